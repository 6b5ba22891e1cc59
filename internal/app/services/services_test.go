package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-admin-go/internal/domain/auth"
	"hotel-admin-go/internal/domain/auth/model"
	"hotel-admin-go/internal/domain/auth/store"
	"hotel-admin-go/internal/domain/eventbus"
	"hotel-admin-go/internal/domain/hotel"
	imageupload "hotel-admin-go/internal/domain/image"
	"hotel-admin-go/internal/domain/query"
	platformerrors "hotel-admin-go/internal/platform/errors"
	platformtesting "hotel-admin-go/internal/platform/testing"
	"hotel-admin-go/internal/transport/api"
)

type harness struct {
	fake    *platformtesting.FakeAPI
	bus     *eventbus.Bus
	session *auth.Session
	cache   *query.Cache
	inbox   *eventbus.Inbox
	account *AccountService
	hotels  *HotelService
	stats   *StatsService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := platformtesting.SetupTestLogger(t)
	fake := platformtesting.NewFakeAPI(t)
	fake.SeedUser("Diop", "Awa", "awa@example.com", "motdepasse")

	bus := eventbus.New()
	inbox := eventbus.NewInbox(50, nil)
	require.NoError(t, inbox.Attach(bus))

	st := store.NewMemory(store.Config{})
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	session, err := auth.NewSession(auth.Options{Store: st, Bus: bus, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, session.Attach())
	require.NoError(t, session.InitializeAuth(context.Background()))

	client, err := api.New(api.Options{BaseURL: fake.URL(), Tokens: session, Bus: bus, Logger: logger})
	require.NoError(t, err)

	cache := query.New(query.Config{RetryDelay: time.Millisecond, Logger: logger})
	t.Cleanup(cache.Close)

	account, err := NewAccountService(&AccountConfig{API: client, Session: session, Cache: cache, Bus: bus, Logger: logger})
	require.NoError(t, err)
	hotels, err := NewHotelService(&HotelConfig{API: client, Cache: cache, Bus: bus, Logger: logger})
	require.NoError(t, err)
	stats, err := NewStatsService(client, cache, 0)
	require.NoError(t, err)

	return &harness{fake: fake, bus: bus, session: session, cache: cache, inbox: inbox, account: account, hotels: hotels, stats: stats}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.account.Login(platformtesting.Context(t), model.LoginCredentials{Email: "awa@example.com", Password: "motdepasse"})
	require.NoError(t, err)
	h.inbox.Drain()
}

func (h *harness) last(t *testing.T) eventbus.Notification {
	t.Helper()
	notes := h.inbox.Recent()
	require.NotEmpty(t, notes)
	return notes[len(notes)-1]
}

func pngUpload(t *testing.T, name string) imageupload.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imageupload.Upload{Name: name, ContentType: "image/png", Data: buf.Bytes()}
}

func validHotel(name string) hotel.CreateInput {
	return hotel.CreateInput{
		Nom: name, Adresse: "Route de Ngor, Dakar", Mail: "info@example.sn",
		Telephone: "+221 33 820 00 00", PrixParNuit: 42000, Device: hotel.CurrencyFCFA,
	}
}

func TestLoginOpensSession(t *testing.T) {
	h := newHarness(t)
	ctx := platformtesting.Context(t)

	out, err := h.account.Login(ctx, model.LoginCredentials{Email: " awa@example.com ", Password: "motdepasse"})
	require.NoError(t, err)
	assert.Equal(t, RedirectAfterAuth, out.Redirect)
	assert.True(t, h.session.IsAuthenticated())
	assert.Equal(t, out.Token, h.session.Token())

	note := h.last(t)
	assert.Equal(t, eventbus.LevelSuccess, note.Level)
	assert.Equal(t, "Connexion réussie", note.Title)
	assert.Equal(t, "Bienvenue Awa !", note.Description)

	user, err := h.account.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "awa@example.com", user.Email)
	_, err = h.account.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.fake.Hits(http.MethodGet, "/auth/user"), "current user stays fresh for five minutes")
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)
	ctx := platformtesting.Context(t)

	_, err := h.account.Login(ctx, model.LoginCredentials{Email: "pas-un-email"})
	require.True(t, platformerrors.IsKind(err, platformerrors.KindValidation))
	assert.Zero(t, h.fake.Hits(http.MethodPost, "/auth/login"))
	assert.Empty(t, h.inbox.Recent())

	_, err = h.account.Login(ctx, model.LoginCredentials{Email: "awa@example.com", Password: "faux"})
	require.True(t, api.IsKind(err, api.KindUnauthenticated))
	assert.False(t, h.session.IsAuthenticated())
	note := h.last(t)
	assert.Equal(t, "Erreur de connexion", note.Title)
	assert.Equal(t, "Identifiants incorrects", note.Description)

	h.fake.FailNext(http.MethodPost, "/auth/login", http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"email": []string{"Compte inconnu"}}})
	_, err = h.account.Login(ctx, model.LoginCredentials{Email: "awa@example.com", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Compte inconnu", h.last(t).Description)
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := platformtesting.Context(t)
	avatar := pngUpload(t, "avatar.png")
	form := model.RegisterData{
		Nom: "Sow", Prenom: "Mamadou", Email: "mamadou@example.com",
		Password: "motdepasse", PasswordConfirmation: "motdepasse", Avatar: &avatar,
	}

	out, err := h.account.Register(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, RedirectAfterAuth, out.Redirect)
	require.NotNil(t, out.User.Avatar)
	assert.Equal(t, "Inscription réussie", h.last(t).Title)
	assert.Equal(t, "Bienvenue Mamadou !", h.last(t).Description)

	form.Avatar = nil
	_, err = h.account.Register(ctx, form)
	require.True(t, api.IsKind(err, api.KindValidation))
	note := h.last(t)
	assert.Equal(t, "Erreur d'inscription", note.Title)
	assert.Equal(t, "Données invalides, L'adresse email a déjà été utilisée.", note.Description)
}

func TestRegisterRejectsBadAvatarLocally(t *testing.T) {
	h := newHarness(t)
	bad := imageupload.Upload{Name: "cv.pdf", Data: []byte("%PDF-1.4")}
	_, err := h.account.Register(platformtesting.Context(t), model.RegisterData{
		Nom: "S", Prenom: "Mamadou", Email: "m@example.com",
		Password: "motdepasse", PasswordConfirmation: "motdepasse", Avatar: &bad,
	})
	require.True(t, platformerrors.IsKind(err, platformerrors.KindValidation))
	names := platformerrors.FieldNames(platformerrors.FieldsOf(err))
	assert.Equal(t, "avatar,nom", names)
	assert.Zero(t, h.fake.Hits(http.MethodPost, "/auth/register"))
}

func TestUpdateAvatarPatchesCachedUser(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)

	_, err := h.account.CurrentUser(ctx)
	require.NoError(t, err)

	resp, err := h.account.UpdateAvatar(ctx, pngUpload(t, "moi.png"))
	require.NoError(t, err)
	assert.Equal(t, "Photo de profil mise à jour", h.last(t).Title)

	user, err := h.account.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, resp.Avatar, *user.Avatar)
	assert.Equal(t, 1, h.fake.Hits(http.MethodGet, "/auth/user"), "avatar is patched in place, not refetched")
}

func TestLogoutClearsSessionAndCache(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)

	_, err := h.hotels.Hotels(ctx, hotel.Filters{})
	require.NoError(t, err)
	require.NotZero(t, h.cache.Stats().Size)

	require.NoError(t, h.account.Logout(ctx, ""))
	assert.False(t, h.session.IsAuthenticated())
	assert.Zero(t, h.cache.Stats().Size)
	assert.Equal(t, "Déconnexion réussie", h.last(t).Title)
}

func TestConcurrentListingsShareOneRequest(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.SeedHotel(hotel.Hotel{Nom: "Radisson", PrixParNuit: 120, Device: hotel.CurrencyEuro})
	h.fake.SetDelay(50 * time.Millisecond)

	filters := hotel.Filters{Search: "radisson"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := h.hotels.Hotels(context.Background(), filters)
			assert.NoError(t, err)
			assert.Len(t, list.Data, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, h.fake.Hits(http.MethodGet, "/hotels"))

	h.fake.SetDelay(0)
	_, err := h.hotels.Hotels(context.Background(), hotel.Filters{Search: "autre"})
	require.NoError(t, err)
	assert.Equal(t, 2, h.fake.Hits(http.MethodGet, "/hotels"), "different filters are different keys")
}

func TestCreateInvalidatesListingsAndStats(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)

	list, err := h.hotels.Hotels(ctx, hotel.Filters{})
	require.NoError(t, err)
	assert.Empty(t, list.Data)
	stats, err := h.stats.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalHotels)

	photo := pngUpload(t, "facade.png")
	in := validHotel("Terrou-Bi")
	in.Photo = &photo
	created, err := h.hotels.Create(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, created.Photo)
	assert.Equal(t, "Hôtel créé avec succès", h.last(t).Title)

	list, err = h.hotels.Hotels(ctx, hotel.Filters{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1, "listing must be refetched after a create")
	assert.Equal(t, "Terrou-Bi", list.Data[0].Nom)

	stats, err = h.stats.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalHotels)
}

func TestCreateValidatesLocally(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	in := validHotel("X")
	in.Telephone = "abc"
	_, err := h.hotels.Create(platformtesting.Context(t), in)
	require.True(t, platformerrors.IsKind(err, platformerrors.KindValidation))
	assert.Equal(t, "nom,telephone", platformerrors.FieldNames(platformerrors.FieldsOf(err)))
	assert.Zero(t, h.fake.Hits(http.MethodPost, "/hotels"))
	assert.Empty(t, h.inbox.Recent())
}

func TestHotelDetailLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)
	seeded := h.fake.SeedHotel(hotel.Hotel{Nom: "Pullman", PrixParNuit: 150, Device: hotel.CurrencyEuro})
	id := seeded.ID.String()

	_, err := h.hotels.Hotel(ctx, "")
	assert.ErrorIs(t, err, query.ErrDisabled)
	assert.Zero(t, h.fake.Hits(http.MethodGet, "/hotels/"))

	got, err := h.hotels.Hotel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []hotel.Action{hotel.ActionEdit, hotel.ActionPhoto, hotel.ActionDelete}, got.Actions())

	name := "Pullman Teranga"
	updated, err := h.hotels.Update(ctx, id, hotel.UpdateInput{Nom: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Nom)
	assert.Equal(t, "Hôtel modifié avec succès", h.last(t).Title)

	got, err = h.hotels.Hotel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, name, got.Nom, "update invalidates the detail entry")

	url, err := h.hotels.UpdatePhoto(ctx, id, pngUpload(t, "piscine.png"))
	require.NoError(t, err)
	assert.Equal(t, "Photo mise à jour avec succès", h.last(t).Title)
	got, err = h.hotels.Hotel(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Photo)
	assert.Equal(t, url, *got.Photo)

	require.NoError(t, h.hotels.Delete(ctx, id))
	assert.Equal(t, "Hôtel supprimé avec succès", h.last(t).Title)
	stored, _ := h.fake.Hotel(id)
	assert.Equal(t, []hotel.Action{hotel.ActionRestore}, stored.Actions())

	require.NoError(t, h.hotels.Restore(ctx, id))
	assert.Equal(t, "Hôtel restauré avec succès", h.last(t).Title)
}

func TestMutationFailuresNotify(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)

	err := h.hotels.Delete(ctx, "999")
	require.True(t, api.IsKind(err, api.KindNotFound))
	note := h.last(t)
	assert.Equal(t, "Erreur", note.Title)
	assert.Equal(t, "Hôtel introuvable", note.Description)

	h.fake.FailNext(http.MethodPatch, "/hotels/5/restore", http.StatusUnprocessableEntity, gin.H{})
	err = h.hotels.Restore(ctx, "5")
	require.Error(t, err)
	assert.Equal(t, "Erreur lors de la restauration", h.last(t).Description)
}

func TestUnauthorizedLogsOutAndClearsCache(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)

	_, err := h.stats.GraphStats(ctx)
	require.NoError(t, err)

	h.fake.Revoke(h.session.Token())
	_, err = h.hotels.Hotels(ctx, hotel.Filters{})
	require.True(t, api.IsKind(err, api.KindUnauthenticated))

	assert.False(t, h.session.IsAuthenticated())
	assert.Equal(t, auth.ExpiredReason, h.last(t).Title)
	assert.Zero(t, h.cache.Stats().Size)
}

func TestSoftDeleteThenRestoreThroughListing(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)
	seeded := h.fake.SeedHotel(hotel.Hotel{Nom: "Lagon", PrixParNuit: 90, Device: hotel.CurrencyEuro})
	id := seeded.ID.String()

	list, err := h.hotels.Hotels(ctx, hotel.Filters{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Actif", list.Data[0].DisplayStatus())

	require.NoError(t, h.hotels.Delete(ctx, id))
	list, err = h.hotels.Hotels(ctx, hotel.Filters{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.NotNil(t, list.Data[0].DeletedAt)
	assert.Equal(t, "Supprimé", list.Data[0].DisplayStatus())

	require.NoError(t, h.hotels.Restore(ctx, id))
	list, err = h.hotels.Hotels(ctx, hotel.Filters{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Nil(t, list.Data[0].DeletedAt)

	require.NoError(t, h.hotels.Restore(ctx, id), "restoring a live hotel is a no-op")
	stored, _ := h.fake.Hotel(id)
	assert.False(t, stored.IsDeleted())
	assert.Equal(t, hotel.StatusActive, stored.Statut)
}

func TestFilteredListingOrdering(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)
	h.fake.SeedHotel(hotel.Hotel{Nom: "Cher", PrixParNuit: 300, Device: hotel.CurrencyEuro})
	h.fake.SeedHotel(hotel.Hotel{Nom: "Moyen", PrixParNuit: 150, Device: hotel.CurrencyEuro})
	h.fake.SeedHotel(hotel.Hotel{Nom: "Ferme", PrixParNuit: 10, Device: hotel.CurrencyEuro, Statut: hotel.StatusInactive})
	h.fake.SeedHotel(hotel.Hotel{Nom: "Petit", PrixParNuit: 50, Device: hotel.CurrencyEuro})

	names := func(list hotel.ListResponse) []string {
		out := make([]string, 0, len(list.Data))
		for _, item := range list.Data {
			out = append(out, item.Nom)
		}
		return out
	}

	asc, err := h.hotels.Hotels(ctx, hotel.Filters{Statut: "actif", SortField: "prix_par_nuit", SortDirection: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Petit", "Moyen", "Cher"}, names(asc))

	desc, err := h.hotels.Hotels(ctx, hotel.Filters{Statut: "actif", SortField: "prix_par_nuit", SortDirection: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cher", "Moyen", "Petit"}, names(desc))
	assert.Equal(t, 2, h.fake.Hits(http.MethodGet, "/hotels"), "direction is part of the cache key")
}

// tokenlessBackend answers logins with a profile but no access token.
type tokenlessBackend struct {
	AuthBackend
}

func (tokenlessBackend) Login(context.Context, model.LoginCredentials) (model.AuthResponse, error) {
	return model.AuthResponse{User: model.User{Nom: "Diop", Prenom: "Awa", Email: "awa@example.com"}, TokenType: "Bearer"}, nil
}

func TestLoginWithoutTokenKeepsSessionClosed(t *testing.T) {
	h := newHarness(t)
	account, err := NewAccountService(&AccountConfig{API: tokenlessBackend{}, Session: h.session, Cache: h.cache, Bus: h.bus, Logger: platformtesting.SetupTestLogger(t)})
	require.NoError(t, err)

	out, err := account.Login(platformtesting.Context(t), model.LoginCredentials{Email: "awa@example.com", Password: "motdepasse"})
	require.Error(t, err)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.KindServer, apiErr.Kind)
	assert.Empty(t, out.Redirect)
	assert.Empty(t, out.Token)
	assert.False(t, h.session.IsAuthenticated())

	note := h.last(t)
	assert.Equal(t, eventbus.LevelError, note.Level)
	assert.Equal(t, "Erreur de connexion", note.Title)
	assert.Equal(t, "Réponse du serveur invalide", note.Description)
}

func TestLoginAsAnotherUserDropsCachedData(t *testing.T) {
	h := newHarness(t)
	ctx := platformtesting.Context(t)
	h.fake.SeedUser("Fall", "Bob", "bob@example.com", "motdepasse")
	h.fake.SeedHotel(hotel.Hotel{Nom: "King Fahd Palace", Device: hotel.CurrencyFCFA})
	h.login(t)

	first, err := h.account.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "awa@example.com", first.Email)
	_, err = h.hotels.Hotels(ctx, hotel.Filters{})
	require.NoError(t, err)

	_, err = h.account.Login(ctx, model.LoginCredentials{Email: "bob@example.com", Password: "motdepasse"})
	require.NoError(t, err)
	_, cached := query.Cached[hotel.ListResponse](h.cache, HotelsKey(hotel.Filters{}))
	assert.False(t, cached, "listings of the previous user must not survive the new login")

	second, err := h.account.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", second.Email)
	assert.Equal(t, 2, h.fake.Hits(http.MethodGet, "/auth/user"))
}

func TestEmptyUpdateIsRejectedLocally(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seeded := h.fake.SeedHotel(hotel.Hotel{Nom: "Savana", Device: hotel.CurrencyFCFA})
	id := seeded.ID.String()

	_, err := h.hotels.Update(platformtesting.Context(t), id, hotel.UpdateInput{})
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindValidation))
	assert.Zero(t, h.fake.Hits(http.MethodPut, "/hotels/"+id))
}
