package models

import "github.com/shopspring/decimal"

type Badge string

const (
	BadgePopular Badge = "POPULAR"
	BadgeNew     Badge = "NEW"
	BadgePromo   Badge = "PROMO"
)

type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon" yaml:"icon"`
}

// Variant is a mutually exclusive configuration of a Service.
type Variant struct {
	ID    string          `json:"id" yaml:"id"`
	Name  string          `json:"name" yaml:"name"`
	Price decimal.Decimal `json:"price" yaml:"price"`
}

// Option is an add-on that can be selected independently of the others.
type Option struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Description string          `json:"description,omitempty" yaml:"description"`
}

type Service struct {
	ID              string          `json:"id" yaml:"id"`
	Name            string          `json:"name" yaml:"name"`
	CategoryID      string          `json:"category_id" yaml:"category_id"`
	BasePrice       decimal.Decimal `json:"base_price" yaml:"base_price"`
	Active          bool            `json:"active" yaml:"active"`
	Duration        int             `json:"duration" yaml:"duration"`
	ImageURL        string          `json:"image_url,omitempty" yaml:"image_url"`
	Description     string          `json:"description" yaml:"description"`
	FullDescription string          `json:"full_description" yaml:"full_description"`
	Included        []string        `json:"included" yaml:"included"`
	Excluded        []string        `json:"excluded" yaml:"excluded"`
	Tags            []string        `json:"tags" yaml:"tags"`
	Badge           Badge           `json:"badge,omitempty" yaml:"badge"`
	Variants        []Variant       `json:"variants" yaml:"variants"`
	Options         []Option        `json:"options" yaml:"options"`
}

func (s *Service) Variant(id string) (Variant, bool) {
	for _, v := range s.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

func (s *Service) Option(id string) (Option, bool) {
	for _, o := range s.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Clone returns a deep copy so that cart lines and orders never share slices
// with the catalog.
func (s Service) Clone() Service {
	c := s
	c.Included = append([]string(nil), s.Included...)
	c.Excluded = append([]string(nil), s.Excluded...)
	c.Tags = append([]string(nil), s.Tags...)
	c.Variants = append([]Variant(nil), s.Variants...)
	c.Options = append([]Option(nil), s.Options...)
	return c
}
