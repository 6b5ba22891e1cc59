package model

import "time"

// User is the authenticated hotel manager as returned by the backend.
type User struct {
	ID              ID         `json:"id"`
	Nom             string     `json:"nom"`
	Prenom          string     `json:"prenom"`
	Email           string     `json:"email"`
	Avatar          *string    `json:"avatar,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FullName returns "Prenom Nom".
func (u User) FullName() string {
	switch {
	case u.Prenom == "":
		return u.Nom
	case u.Nom == "":
		return u.Prenom
	default:
		return u.Prenom + " " + u.Nom
	}
}

// AuthResponse is the body of a successful login or registration.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Logger provides the minimal logging contract required by the auth domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
