package validation

import (
	"hotel-admin-go/internal/domain/auth/model"
	"hotel-admin-go/internal/domain/hotel"
)

var loginMessages = Messages{
	"email.required":    "Email invalide",
	"email.email":       "Email invalide",
	"password.required": "Le mot de passe est requis",
}

var registerMessages = Messages{
	"nom.required":                  "Le nom doit contenir au moins 2 caractères",
	"nom.min":                       "Le nom doit contenir au moins 2 caractères",
	"prenom.required":               "Le prénom doit contenir au moins 2 caractères",
	"prenom.min":                    "Le prénom doit contenir au moins 2 caractères",
	"email.required":                "Email invalide",
	"email.email":                   "Email invalide",
	"password.required":             "Le mot de passe doit contenir au moins 8 caractères",
	"password.min":                  "Le mot de passe doit contenir au moins 8 caractères",
	"password_confirmation.eqfield": "Les mots de passe ne correspondent pas",
}

var hotelMessages = Messages{
	"nom.required":       "Le nom doit contenir au moins 2 caractères",
	"nom.min":            "Le nom doit contenir au moins 2 caractères",
	"nom.max":            "Le nom ne peut pas dépasser 255 caractères",
	"adresse.required":   "L'adresse doit contenir au moins 5 caractères",
	"adresse.min":        "L'adresse doit contenir au moins 5 caractères",
	"adresse.max":        "L'adresse ne peut pas dépasser 500 caractères",
	"mail.required":      "Email invalide",
	"mail.email":         "Email invalide",
	"mail.max":           "L'email ne peut pas dépasser 255 caractères",
	"telephone.required": "Le téléphone doit contenir au moins 5 caractères",
	"telephone.min":      "Le téléphone doit contenir au moins 5 caractères",
	"telephone.max":      "Le téléphone ne peut pas dépasser 20 caractères",
	"telephone.phone":    "Format de téléphone invalide",
	"prix_par_nuit.gte":  "Le prix doit être positif",
	"prix_par_nuit.lte":  "Le prix ne peut pas dépasser 1 000 000",
	"device.required":    "Devise invalide",
	"device.oneof":       "Devise invalide",
	"statut.oneof":       "Statut invalide",
}

// Login validates login credentials.
func Login(in model.LoginCredentials) error {
	return Default().Struct("validation.login", in, loginMessages)
}

// Register validates a registration form. The avatar is checked by the image pipeline.
func Register(in model.RegisterData) error {
	return Default().Struct("validation.register", in, registerMessages)
}

// CreateHotel normalizes then validates a creation form.
func CreateHotel(in *hotel.CreateInput) error {
	in.Normalize()
	return Default().Struct("validation.hotel_create", in, hotelMessages)
}

// UpdateHotel normalizes then validates a partial update.
func UpdateHotel(in *hotel.UpdateInput) error {
	in.Normalize()
	return Default().Struct("validation.hotel_update", in, hotelMessages)
}
