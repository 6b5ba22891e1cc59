package hotel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"hotel-admin-go/internal/domain/auth/model"
)

// Currency is the billing currency of a hotel.
type Currency string

const (
	CurrencyFCFA    Currency = "FCFA"
	CurrencyEuro    Currency = "EURO"
	CurrencyDollars Currency = "DOLLARS"
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyFCFA, CurrencyEuro, CurrencyDollars:
		return true
	}
	return false
}

// Normalize falls back to EURO for anything unsupported.
func (c Currency) Normalize() Currency {
	if c.Valid() {
		return c
	}
	return CurrencyEuro
}

type Status string

const (
	StatusActive   Status = "actif"
	StatusInactive Status = "inactif"
)

// Action is something the console may offer for a hotel row.
type Action string

const (
	ActionEdit    Action = "edit"
	ActionPhoto   Action = "photo"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
)

// Amount is a price. Some endpoints send decimals as strings.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", data)
	}
	*a = Amount(f)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(a))
}

// String formats the amount without trailing zeros.
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

type Hotel struct {
	ID          model.ID   `json:"id"`
	Nom         string     `json:"nom"`
	Adresse     string     `json:"adresse"`
	Mail        string     `json:"mail"`
	Telephone   string     `json:"telephone"`
	PrixParNuit Amount     `json:"prix_par_nuit"`
	Device      Currency   `json:"device"`
	Statut      Status     `json:"statut"`
	Photo       *string    `json:"photo,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	UserID      model.ID   `json:"user_id"`
}

// IsDeleted reports a soft-deleted hotel.
func (h Hotel) IsDeleted() bool {
	return h.DeletedAt != nil
}

// DisplayStatus is the badge shown in listings.
func (h Hotel) DisplayStatus() string {
	switch {
	case h.IsDeleted():
		return "Supprimé"
	case h.Statut == StatusInactive:
		return "Inactif"
	default:
		return "Actif"
	}
}

// Actions lists what may be done with the hotel: live active hotels can be
// edited, re-photographed or deleted; anything else can only be restored.
func (h Hotel) Actions() []Action {
	if h.IsDeleted() || h.Statut == StatusInactive {
		return []Action{ActionRestore}
	}
	return []Action{ActionEdit, ActionPhoto, ActionDelete}
}

// Allows reports whether a is among h.Actions().
func (h Hotel) Allows(a Action) bool {
	for _, x := range h.Actions() {
		if x == a {
			return true
		}
	}
	return false
}

type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

type Meta struct {
	Total        int  `json:"total"`
	CurrentCount int  `json:"current_count"`
	HasMore      bool `json:"has_more"`
}

// ListResponse is one page of hotels.
type ListResponse struct {
	Success    bool       `json:"success"`
	Data       []Hotel    `json:"data"`
	Pagination Pagination `json:"pagination"`
	Filters    *Filters   `json:"filters,omitempty"`
	Meta       Meta       `json:"meta"`
}

// Stats are the dashboard counters.
type Stats struct {
	TotalHotels     int `json:"total_hotels"`
	HotelsActifs    int `json:"hotels_actifs"`
	HotelsInactifs  int `json:"hotels_inactifs"`
	HotelsSupprimes int `json:"hotels_supprimes"`
}

// GraphPoint is one month of the creation chart.
type GraphPoint struct {
	Mois  string `json:"mois"`
	Total int    `json:"total"`
}
