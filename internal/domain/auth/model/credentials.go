package model

import "hotel-admin-go/internal/domain/image"

// LoginCredentials is the login form.
type LoginCredentials struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RegisterData is the registration form. Avatar is optional and sent as multipart.
type RegisterData struct {
	Nom                  string        `json:"nom" validate:"required,min=2"`
	Prenom               string        `json:"prenom" validate:"required,min=2"`
	Email                string        `json:"email" validate:"required,email"`
	Password             string        `json:"password" validate:"required,min=8"`
	PasswordConfirmation string        `json:"password_confirmation" validate:"required,eqfield=Password"`
	Avatar               *image.Upload `json:"-" validate:"-"`
}

// AvatarResponse is returned by the avatar upload endpoint.
type AvatarResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Avatar  string `json:"avatar"`
}
