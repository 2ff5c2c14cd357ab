package models

// User is the identity stand-in attached to a request. An empty ID means the
// visitor is anonymous.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (u User) Anonymous() bool {
	return u.ID == ""
}

// DisplayName falls back to the system placeholder for anonymous users.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.ID != "" {
		return u.ID
	}
	return SystemActor
}
