package api

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

	"hotel-admin-go/internal/domain/auth/model"
	"hotel-admin-go/internal/domain/eventbus"
	"hotel-admin-go/internal/domain/hotel"
	imageupload "hotel-admin-go/internal/domain/image"
	platformtesting "hotel-admin-go/internal/platform/testing"
)

type tokens struct {
	mu    sync.Mutex
	token string
	ready chan struct{}
}

func newTokens(token string) *tokens {
	ready := make(chan struct{})
	close(ready)
	return &tokens{token: token, ready: ready}
}

func (s *tokens) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *tokens) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *tokens) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type harness struct {
	fake   *platformtesting.FakeAPI
	client *Client
	tokens *tokens
	bus    *eventbus.Bus
	inbox  *eventbus.Inbox
	user   model.User
}

func newHarness(t *testing.T) harness {
	t.Helper()
	fake := platformtesting.NewFakeAPI(t)
	user := fake.SeedUser("Diop", "Awa", "awa@example.com", "motdepasse")

	bus := eventbus.New()
	inbox := eventbus.NewInbox(10, nil)
	require.NoError(t, inbox.Attach(bus))

	toks := newTokens("")
	client, err := New(Options{BaseURL: fake.URL(), Tokens: toks, Bus: bus, Logger: platformtesting.SetupTestLogger(t)})
	require.NoError(t, err)
	return harness{fake: fake, client: client, tokens: toks, bus: bus, inbox: inbox, user: user}
}

func (h harness) login(t *testing.T) string {
	t.Helper()
	token := h.fake.IssueToken(h.user.ID.String())
	h.tokens.set(token)
	return token
}

func pngUpload(t *testing.T, name string) imageupload.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imageupload.Upload{Name: name, ContentType: "image/png", Data: buf.Bytes()}
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	c, err := New(Options{BaseURL: "http://example.test/api/"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/api", c.BaseURL())
}

func TestLoginThenAuthenticatedRead(t *testing.T) {
	h := newHarness(t)
	ctx := platformtesting.Context(t)

	resp, err := h.client.Login(ctx, model.LoginCredentials{Email: "awa@example.com", Password: "motdepasse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Awa", resp.User.Prenom)

	_, err = h.client.CurrentUser(ctx)
	assert.True(t, IsKind(err, KindUnauthenticated), "no token yet: %v", err)

	h.tokens.set(resp.AccessToken)
	user, err := h.client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.user.ID, user.ID)
}

func TestCurrentUserAcceptsEnvelope(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.FailNext(http.MethodGet, "/auth/user", http.StatusOK, gin.H{"data": gin.H{"id": 9, "nom": "N", "prenom": "P", "email": "p@n.fr"}})

	user, err := h.client.CurrentUser(platformtesting.Context(t))
	require.NoError(t, err)
	assert.Equal(t, "9", user.ID.String())
	assert.Equal(t, "p@n.fr", user.Email)
}

func TestUnauthorizedEventOnlyForTokenBearingRequests(t *testing.T) {
	h := newHarness(t)
	ctx := platformtesting.Context(t)

	var events []eventbus.UnauthorizedEvent
	require.NoError(t, h.bus.Subscribe(eventbus.TopicUnauthorized, func(ev eventbus.UnauthorizedEvent) {
		events = append(events, ev)
	}))

	_, err := h.client.Login(ctx, model.LoginCredentials{Email: "awa@example.com", Password: "faux"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnauthenticated))
	assert.Equal(t, "Identifiants incorrects", MessageOf(err))
	assert.Empty(t, events)

	token := h.login(t)
	h.fake.Revoke(token)
	_, err = h.client.ListHotels(ctx, hotel.Filters{})
	require.Error(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, token, events[0].Token)
	assert.Equal(t, "/hotels", events[0].Path)
	assert.Equal(t, 1, h.fake.Hits(http.MethodGet, "/hotels"), "401 must not be retried")
}

func TestValidationErrorShapes(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)

	h.fake.FailNext(http.MethodPost, "/hotels", http.StatusUnprocessableEntity, gin.H{
		"message": "Données invalides",
		"errors":  gin.H{"telephone": []string{"Format invalide"}, "nom": []string{"Requis", "Trop court"}},
	})
	_, err := h.client.CreateHotel(ctx, hotel.CreateInput{Nom: "x"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	fields := FieldsOf(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "nom", fields[0].Field)
	assert.Equal(t, []string{"Requis", "Trop court"}, fields[0].Messages)
	assert.Equal(t, "telephone", fields[1].Field)

	h.fake.FailNext(http.MethodPost, "/hotels", http.StatusUnprocessableEntity, gin.H{
		"mail":    []string{"Email invalide"},
		"message": "ignored",
	})
	_, err = h.client.CreateHotel(ctx, hotel.CreateInput{Nom: "x"})
	fields = FieldsOf(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "mail", fields[0].Field)
	assert.Equal(t, []string{"Email invalide"}, fields[0].Messages)
}

func TestForbiddenAndServerErrorsNotify(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)

	h.fake.FailNext(http.MethodGet, "/hotels/statistiques", http.StatusForbidden, gin.H{})
	_, err := h.client.Stats(ctx)
	assert.True(t, IsKind(err, KindForbidden))

	h.fake.FailNext(http.MethodGet, "/hotels/statistiques", http.StatusInternalServerError, gin.H{"message": "boom"})
	_, err = h.client.Stats(ctx)
	assert.True(t, IsKind(err, KindServer))

	h.fake.FailNext(http.MethodGet, "/hotels/42", http.StatusNotFound, gin.H{})
	_, err = h.client.GetHotel(ctx, "42")
	assert.True(t, IsKind(err, KindNotFound))

	h.fake.FailNext(http.MethodGet, "/hotels/42", http.StatusTeapot, gin.H{})
	_, err = h.client.GetHotel(ctx, "42")
	assert.True(t, IsKind(err, KindUnknown))

	notes := h.inbox.Recent()
	require.Len(t, notes, 2)
	assert.Equal(t, "Accès refusé", notes[0].Title)
	assert.Equal(t, "Vous n'avez pas les permissions nécessaires.", notes[0].Description)
	assert.Equal(t, "Erreur serveur", notes[1].Title)
	assert.Equal(t, "boom", notes[1].Description)
}

func TestNetworkFailures(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.fake.SetDelay(300 * time.Millisecond)
	slow, err := New(Options{BaseURL: h.fake.URL(), Timeout: 50 * time.Millisecond, Tokens: h.tokens})
	require.NoError(t, err)
	_, err = slow.Stats(platformtesting.Context(t))
	assert.True(t, IsKind(err, KindNetwork), "timeout should be a network error: %v", err)

	closed, err := New(Options{BaseURL: "http://127.0.0.1:1/api"})
	require.NoError(t, err)
	_, err = closed.Stats(platformtesting.Context(t))
	assert.True(t, IsKind(err, KindNetwork))
}

func TestRequestsWaitForRehydration(t *testing.T) {
	h := newHarness(t)
	token := h.fake.IssueToken(h.user.ID.String())
	gate := &tokens{ready: make(chan struct{})}
	client, err := New(Options{BaseURL: h.fake.URL(), Tokens: gate})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := client.CurrentUser(context.Background())
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, h.fake.Hits(http.MethodGet, "/auth/user"))

	gate.set(token)
	close(gate.ready)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("request never released")
	}
}

func TestHotelEndpoints(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := platformtesting.Context(t)

	photo := pngUpload(t, "facade.png")
	created, err := h.client.CreateHotel(ctx, hotel.CreateInput{
		Nom: "Hôtel Teranga", Adresse: "Corniche Ouest, Dakar", Mail: "contact@teranga.sn",
		Telephone: "+221 33 000 00 00", PrixParNuit: 55000, Device: hotel.CurrencyFCFA, Photo: &photo,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hôtel créé avec succès", created.Message)
	require.NotNil(t, created.Data.Photo)
	assert.Equal(t, hotel.Amount(55000), created.Data.PrixParNuit)
	id := created.Data.ID.String()

	h.fake.SeedHotel(hotel.Hotel{Nom: "Le Baobab", PrixParNuit: 90, Device: hotel.CurrencyEuro, Statut: hotel.StatusInactive})

	list, err := h.client.ListHotels(ctx, hotel.Filters{Statut: "inactif"})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Le Baobab", list.Data[0].Nom)
	assert.Equal(t, 1, list.Meta.Total)

	list, err = h.client.ListHotels(ctx, hotel.Filters{PrixMin: hotel.Float(1000), PerPage: 5})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, 5, list.Pagination.PerPage)

	price := 60000.0
	updated, err := h.client.UpdateHotel(ctx, id, hotel.UpdateInput{PrixParNuit: &price})
	require.NoError(t, err)
	assert.Equal(t, hotel.Amount(60000), updated.Data.PrixParNuit)
	assert.Equal(t, "Hôtel Teranga", updated.Data.Nom)

	newPhoto, err := h.client.UpdateHotelPhoto(ctx, id, pngUpload(t, "hall.png"))
	require.NoError(t, err)
	assert.NotEqual(t, *created.Data.Photo, newPhoto.Photo)

	_, err = h.client.DeleteHotel(ctx, id)
	require.NoError(t, err)
	got, err := h.client.GetHotel(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())

	stats, err := h.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, hotel.Stats{TotalHotels: 1, HotelsInactifs: 1, HotelsSupprimes: 1}, stats)

	res, err := h.client.RestoreHotel(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Success)

	points, err := h.client.GraphStats(ctx)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 2, points[0].Total)
}

func TestAccountEndpoints(t *testing.T) {
	h := newHarness(t)
	ctx := platformtesting.Context(t)

	avatar := pngUpload(t, "moi.png")
	resp, err := h.client.Register(ctx, model.RegisterData{
		Nom: "Ndiaye", Prenom: "Fatou", Email: "fatou@example.com",
		Password: "motdepasse", PasswordConfirmation: "motdepasse", Avatar: &avatar,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User.Avatar)

	_, err = h.client.Register(ctx, model.RegisterData{
		Nom: "Ndiaye", Prenom: "Fatou", Email: "fatou@example.com",
		Password: "motdepasse", PasswordConfirmation: "motdepasse",
	})
	require.True(t, IsKind(err, KindValidation))
	assert.Equal(t, "email", FieldsOf(err)[0].Field)

	h.tokens.set(resp.AccessToken)
	out, err := h.client.UpdateAvatar(ctx, pngUpload(t, "nouveau.png"))
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.Avatar)

	user, err := h.client.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, out.Avatar, *user.Avatar)
}

type recordingTransport struct {
	mu      sync.Mutex
	headers []string
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.headers = append(r.headers, req.Header.Get("Authorization"))
	r.mu.Unlock()
	return http.DefaultTransport.RoundTrip(req)
}

func TestNoBearerAfterTokenCleared(t *testing.T) {
	fake := platformtesting.NewFakeAPI(t)
	user := fake.SeedUser("Diop", "Awa", "awa@example.com", "motdepasse")
	toks := newTokens(fake.IssueToken(user.ID.String()))
	rec := &recordingTransport{}
	client, err := New(Options{BaseURL: fake.URL(), Tokens: toks, Transport: rec})
	require.NoError(t, err)
	ctx := platformtesting.Context(t)

	_, err = client.CurrentUser(ctx)
	require.NoError(t, err)
	toks.set("")
	_, err = client.CurrentUser(ctx)
	require.True(t, IsKind(err, KindUnauthenticated))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.headers, 2)
	assert.NotEmpty(t, rec.headers[0])
	assert.Empty(t, rec.headers[1])
}
