package hotel

import (
	"strings"

	"hotel-admin-go/internal/domain/image"
)

// CreateInput is the hotel creation form. Photo is optional.
type CreateInput struct {
	Nom         string        `json:"nom" validate:"required,min=2,max=255"`
	Adresse     string        `json:"adresse" validate:"required,min=5,max=500"`
	Mail        string        `json:"mail" validate:"required,email,max=255"`
	Telephone   string        `json:"telephone" validate:"required,min=5,max=20,phone"`
	PrixParNuit float64       `json:"prix_par_nuit" validate:"gte=0,lte=1000000"`
	Device      Currency      `json:"device" validate:"required,oneof=FCFA EURO DOLLARS"`
	Statut      Status        `json:"statut,omitempty" validate:"omitempty,oneof=actif inactif"`
	Photo       *image.Upload `json:"-" validate:"-"`
}

// Normalize trims text fields and applies the currency fallback.
func (in *CreateInput) Normalize() {
	in.Nom = strings.TrimSpace(in.Nom)
	in.Adresse = strings.TrimSpace(in.Adresse)
	in.Mail = strings.TrimSpace(in.Mail)
	in.Telephone = strings.TrimSpace(in.Telephone)
	in.Device = in.Device.Normalize()
}

// UpdateInput is a partial update. The photo is changed through its own endpoint and never sent here.
type UpdateInput struct {
	Nom         *string   `json:"nom,omitempty" validate:"omitempty,min=2,max=255"`
	Adresse     *string   `json:"adresse,omitempty" validate:"omitempty,min=5,max=500"`
	Mail        *string   `json:"mail,omitempty" validate:"omitempty,email,max=255"`
	Telephone   *string   `json:"telephone,omitempty" validate:"omitempty,min=5,max=20,phone"`
	PrixParNuit *float64  `json:"prix_par_nuit,omitempty" validate:"omitempty,gte=0,lte=1000000"`
	Device      *Currency `json:"device,omitempty" validate:"omitempty,oneof=FCFA EURO DOLLARS"`
	Statut      *Status   `json:"statut,omitempty" validate:"omitempty,oneof=actif inactif"`
}

// Normalize trims set fields and applies the currency fallback.
func (in *UpdateInput) Normalize() {
	for _, p := range []*string{in.Nom, in.Adresse, in.Mail, in.Telephone} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if in.Device != nil {
		d := in.Device.Normalize()
		in.Device = &d
	}
}

// Empty reports an update with nothing to change.
func (in UpdateInput) Empty() bool {
	return in.Nom == nil && in.Adresse == nil && in.Mail == nil && in.Telephone == nil &&
		in.PrixParNuit == nil && in.Device == nil && in.Statut == nil
}
