package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ms-booking/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// ExtractUserFromJWT reads the subject and display name of a token.
// The signature is not verified: identity here only names the actor.
func ExtractUserFromJWT(tokenString string) (models.User, error) {
	if tokenString == "" {
		return models.User{}, errors.New("empty token")
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return models.User{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return models.User{}, errors.New("subject claim not found in token")
	}

	user := models.User{ID: sub}
	for _, key := range []string{"name", "preferred_username", "email"} {
		if v, ok := claims[key].(string); ok && v != "" {
			user.Name = v
			break
		}
	}
	return user, nil
}
