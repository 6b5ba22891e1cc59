package hotel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHotelActionsAndStatus(t *testing.T) {
	now := time.Now()
	live := Hotel{Statut: StatusActive}
	inactive := Hotel{Statut: StatusInactive}
	deleted := Hotel{Statut: StatusActive, DeletedAt: &now}

	assert.Equal(t, []Action{ActionEdit, ActionPhoto, ActionDelete}, live.Actions())
	assert.Equal(t, []Action{ActionRestore}, inactive.Actions())
	assert.Equal(t, []Action{ActionRestore}, deleted.Actions())

	assert.Equal(t, "Actif", live.DisplayStatus())
	assert.Equal(t, "Inactif", inactive.DisplayStatus())
	assert.Equal(t, "Supprimé", deleted.DisplayStatus())

	assert.True(t, live.Allows(ActionPhoto))
	assert.False(t, deleted.Allows(ActionEdit))
}

func TestCurrencyNormalize(t *testing.T) {
	assert.Equal(t, CurrencyFCFA, CurrencyFCFA.Normalize())
	assert.Equal(t, CurrencyEuro, Currency("YEN").Normalize())
	assert.Equal(t, CurrencyEuro, Currency("").Normalize())
}

func TestHotelDecodesLooseNumbers(t *testing.T) {
	raw := `{"id":12,"nom":"Ivoire","prix_par_nuit":"75000.50","device":"FCFA","statut":"actif",
		"created_at":"2024-05-01T10:00:00.000000Z","updated_at":"2024-05-01T10:00:00.000000Z","user_id":"3"}`
	var h Hotel
	require.NoError(t, json.Unmarshal([]byte(raw), &h))
	assert.Equal(t, "12", h.ID.String())
	assert.Equal(t, Amount(75000.5), h.PrixParNuit)
	assert.Equal(t, "3", h.UserID.String())
	assert.False(t, h.IsDeleted())
}

func TestFiltersEncode(t *testing.T) {
	assert.Equal(t, "", Filters{}.Encode())

	f := Filters{Statut: "actif", Search: "plage", Page: 2, PrixMin: Float(0)}
	assert.Equal(t, "page=2&prix_min=0&search=plage&statut=actif", f.Encode())

	// unset and zero price bounds must be different keys
	assert.NotEqual(t, Filters{}.Encode(), Filters{PrixMin: Float(0)}.Encode())
	assert.NotEqual(t, Filters{Page: 1}.Encode(), Filters{PerPage: 1}.Encode())
	assert.NotEqual(t, Filters{Search: "a&b"}.Encode(), Filters{Search: "a", Statut: ""}.Encode())
}

func TestUpdateInputNormalize(t *testing.T) {
	nom := "  Le Palace "
	dev := Currency("bitcoin")
	in := UpdateInput{Nom: &nom, Device: &dev}
	in.Normalize()

	assert.Equal(t, "Le Palace", *in.Nom)
	assert.Equal(t, CurrencyEuro, *in.Device)
	assert.False(t, in.Empty())
	assert.True(t, UpdateInput{}.Empty())

	payload, err := json.Marshal(in)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "photo")
}
