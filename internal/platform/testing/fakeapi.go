package testing

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hotel-admin-go/internal/domain/auth/model"
	"hotel-admin-go/internal/domain/hotel"
)

type fakeUser struct {
	user     model.User
	password string
}

type failure struct {
	status int
	body   gin.H
}

// FakeAPI is an in-memory hotel backend speaking the real wire format.
type FakeAPI struct {
	Server *httptest.Server

	secret []byte

	mu          sync.Mutex
	users       map[string]*fakeUser
	hotels      []*hotel.Hotel
	nextUserID  int
	nextHotelID int
	revoked     map[string]bool
	hits        map[string]int
	failures    map[string][]failure
	delay       time.Duration
	now         func() time.Time
}

// NewFakeAPI starts a fake backend that is closed with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeAPI{
		secret:   []byte("fake-api-" + uuid.NewString()),
		users:    make(map[string]*fakeUser),
		revoked:  make(map[string]bool),
		hits:     make(map[string]int),
		failures: make(map[string][]failure),
		now:      func() time.Time { return time.Now().UTC() },
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the API root, suitable as the client base URL.
func (f *FakeAPI) URL() string {
	return f.Server.URL + "/api"
}

func (f *FakeAPI) routes() *gin.Engine {
	r := gin.New()
	api := r.Group("/api", f.intercept)

	api.POST("/auth/login", f.login)
	api.POST("/auth/register", f.register)

	secured := api.Group("", f.authenticate)
	secured.GET("/auth/user", f.currentUser)
	secured.POST("/auth/update-avatar", f.updateAvatar)

	secured.GET("/hotels", f.listHotels)
	secured.POST("/hotels", f.createHotel)
	secured.GET("/hotels/statistiques", f.stats)
	secured.GET("/hotels/statistiques/graphiques", f.graph)
	secured.GET("/hotels/:id", f.getHotel)
	secured.PUT("/hotels/:id", f.updateHotel)
	secured.DELETE("/hotels/:id", f.deleteHotel)
	secured.PATCH("/hotels/:id/restore", f.restoreHotel)
	secured.POST("/hotels/:id/update-photo", f.updatePhoto)
	return r
}

func hitKey(method, path string) string {
	return method + " " + path
}

// intercept counts the request, applies the configured delay and any queued failure.
func (f *FakeAPI) intercept(c *gin.Context) {
	key := hitKey(c.Request.Method, strings.TrimPrefix(c.Request.URL.Path, "/api"))

	f.mu.Lock()
	f.hits[key]++
	delay := f.delay
	var fail *failure
	if queue := f.failures[key]; len(queue) > 0 {
		fail = &queue[0]
		f.failures[key] = queue[1:]
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail != nil {
		c.AbortWithStatusJSON(fail.status, fail.body)
		return
	}
	c.Next()
}

// Hits returns how many times method+path was requested, e.g. Hits("GET", "/hotels").
func (f *FakeAPI) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[hitKey(method, path)]
}

// FailNext makes the next request to method+path answer status with body.
func (f *FakeAPI) FailNext(method, path string, status int, body gin.H) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := hitKey(method, path)
	f.failures[key] = append(f.failures[key], failure{status: status, body: body})
}

// SetDelay slows every request down, handy to widen race windows.
func (f *FakeAPI) SetDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

// SeedUser registers an account directly.
func (f *FakeAPI) SeedUser(nom, prenom, email, password string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(nom, prenom, email, password)
}

func (f *FakeAPI) addUserLocked(nom, prenom, email, password string) model.User {
	f.nextUserID++
	now := f.now()
	u := model.User{
		ID:        model.ID(strconv.Itoa(f.nextUserID)),
		Nom:       nom,
		Prenom:    prenom,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.users[strings.ToLower(email)] = &fakeUser{user: u, password: password}
	return u
}

// SeedHotel stores h, assigning an id and timestamps when missing.
func (f *FakeAPI) SeedHotel(h hotel.Hotel) hotel.Hotel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextHotelID++
	if h.ID.IsZero() {
		h.ID = model.ID(strconv.Itoa(f.nextHotelID))
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = f.now()
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = h.CreatedAt
	}
	if h.Statut == "" {
		h.Statut = hotel.StatusActive
	}
	h.Device = h.Device.Normalize()
	stored := h
	f.hotels = append(f.hotels, &stored)
	return stored
}

// Hotel returns the stored hotel with id.
func (f *FakeAPI) Hotel(id string) (hotel.Hotel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h := f.findLocked(id); h != nil {
		return *h, true
	}
	return hotel.Hotel{}, false
}

// IssueToken signs a token for the user with the given id.
func (f *FakeAPI) IssueToken(userID string) string {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(f.now()),
		ExpiresAt: jwt.NewNumericDate(f.now().Add(24 * time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		panic(fmt.Sprintf("sign fake token: %v", err))
	}
	return signed
}

// Revoke makes token answer 401 from now on.
func (f *FakeAPI) Revoke(token string) {
	f.mu.Lock()
	f.revoked[token] = true
	f.mu.Unlock()
}

func (f *FakeAPI) authenticate(c *gin.Context) {
	raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
		return
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return f.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	f.mu.Lock()
	revoked := f.revoked[raw]
	var user *model.User
	for _, u := range f.users {
		if u.user.ID.String() == claims.Subject {
			copied := u.user
			user = &copied
			break
		}
	}
	f.mu.Unlock()

	if err != nil || revoked || user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
		return
	}
	c.Set("user", *user)
	c.Next()
}

func (f *FakeAPI) login(c *gin.Context) {
	var in model.LoginCredentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Données invalides", "errors": gin.H{"email": []string{"Le champ email est obligatoire."}}})
		return
	}
	f.mu.Lock()
	u, ok := f.users[strings.ToLower(in.Email)]
	f.mu.Unlock()
	if !ok || u.password != in.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Identifiants incorrects"})
		return
	}
	c.JSON(http.StatusOK, model.AuthResponse{User: u.user, AccessToken: f.IssueToken(u.user.ID.String()), TokenType: "Bearer"})
}

func (f *FakeAPI) register(c *gin.Context) {
	email := c.PostForm("email")
	errs := gin.H{}
	if len(strings.TrimSpace(c.PostForm("nom"))) < 2 {
		errs["nom"] = []string{"Le champ nom doit contenir au moins 2 caractères."}
	}
	if c.PostForm("password") != c.PostForm("password_confirmation") {
		errs["password"] = []string{"La confirmation du mot de passe ne correspond pas."}
	}
	f.mu.Lock()
	_, taken := f.users[strings.ToLower(email)]
	f.mu.Unlock()
	if taken {
		errs["email"] = []string{"L'adresse email a déjà été utilisée."}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Données invalides", "errors": errs})
		return
	}

	f.mu.Lock()
	u := f.addUserLocked(c.PostForm("nom"), c.PostForm("prenom"), email, c.PostForm("password"))
	if url, ok := f.storeFile(c, "avatar", "avatars"); ok {
		u.Avatar = &url
		f.users[strings.ToLower(email)].user = u
	}
	f.mu.Unlock()

	c.JSON(http.StatusCreated, model.AuthResponse{User: u, AccessToken: f.IssueToken(u.ID.String()), TokenType: "Bearer"})
}

func (f *FakeAPI) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, c.MustGet("user"))
}

func (f *FakeAPI) updateAvatar(c *gin.Context) {
	user := c.MustGet("user").(model.User)
	f.mu.Lock()
	url, ok := f.storeFile(c, "avatar", "avatars")
	if ok {
		stored := f.users[strings.ToLower(user.Email)]
		stored.user.Avatar = &url
	}
	f.mu.Unlock()
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Données invalides", "errors": gin.H{"avatar": []string{"Le champ avatar est obligatoire."}}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Photo de profil mise à jour", "avatar": url})
}

// storeFile pretends to persist the multipart file and returns its public URL.
func (f *FakeAPI) storeFile(c *gin.Context, field, dir string) (string, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", false
	}
	file, err := fh.Open()
	if err != nil {
		return "", false
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		return "", false
	}
	return "/storage/" + dir + "/" + uuid.NewString() + filepath.Ext(fh.Filename), true
}

func (f *FakeAPI) findLocked(id string) *hotel.Hotel {
	for _, h := range f.hotels {
		if h.ID.String() == id {
			return h
		}
	}
	return nil
}

func (f *FakeAPI) listHotels(c *gin.Context) {
	var filters hotel.Filters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	f.mu.Lock()
	var matched []hotel.Hotel
	for _, h := range f.hotels {
		if matches(*h, filters) {
			matched = append(matched, *h)
		}
	}
	f.mu.Unlock()

	sortHotels(matched, filters.SortField, filters.SortDirection)

	page, perPage := filters.Page, filters.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	total := len(matched)
	lastPage := (total + perPage - 1) / perPage
	if lastPage == 0 {
		lastPage = 1
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	data := append([]hotel.Hotel{}, matched[start:end]...)

	c.JSON(http.StatusOK, hotel.ListResponse{
		Success:    true,
		Data:       data,
		Pagination: hotel.Pagination{CurrentPage: page, LastPage: lastPage, PerPage: perPage, Total: total},
		Filters:    &filters,
		Meta:       hotel.Meta{Total: total, CurrentCount: len(data), HasMore: page < lastPage},
	})
}

func matches(h hotel.Hotel, f hotel.Filters) bool {
	if f.Statut != "" && string(h.Statut) != f.Statut {
		return false
	}
	if f.Device != "" && string(h.Device) != f.Device {
		return false
	}
	if f.PrixMin != nil && float64(h.PrixParNuit) < *f.PrixMin {
		return false
	}
	if f.PrixMax != nil && float64(h.PrixParNuit) > *f.PrixMax {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(h.Nom + " " + h.Adresse + " " + h.Mail)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func sortHotels(hotels []hotel.Hotel, field, direction string) {
	less := func(a, b hotel.Hotel) bool {
		switch field {
		case "nom":
			return a.Nom < b.Nom
		case "prix_par_nuit":
			return a.PrixParNuit < b.PrixParNuit
		default:
			if a.CreatedAt.Equal(b.CreatedAt) {
				ai, _ := strconv.Atoi(a.ID.String())
				bi, _ := strconv.Atoi(b.ID.String())
				return ai < bi
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	desc := direction == "desc" || (field == "" && direction == "")
	sort.SliceStable(hotels, func(i, j int) bool {
		if desc {
			return less(hotels[j], hotels[i])
		}
		return less(hotels[i], hotels[j])
	})
}

func (f *FakeAPI) getHotel(c *gin.Context) {
	f.mu.Lock()
	h := f.findLocked(c.Param("id"))
	var out hotel.Hotel
	if h != nil {
		out = *h
	}
	f.mu.Unlock()
	if h == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Hôtel introuvable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

func (f *FakeAPI) createHotel(c *gin.Context) {
	errs := gin.H{}
	if len(strings.TrimSpace(c.PostForm("nom"))) < 2 {
		errs["nom"] = []string{"Le champ nom est obligatoire."}
	}
	price, err := strconv.ParseFloat(c.PostForm("prix_par_nuit"), 64)
	if err != nil {
		errs["prix_par_nuit"] = []string{"Le champ prix par nuit doit être un nombre."}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Données invalides", "errors": errs})
		return
	}

	user := c.MustGet("user").(model.User)
	h := hotel.Hotel{
		Nom:         c.PostForm("nom"),
		Adresse:     c.PostForm("adresse"),
		Mail:        c.PostForm("mail"),
		Telephone:   c.PostForm("telephone"),
		PrixParNuit: hotel.Amount(price),
		Device:      hotel.Currency(c.PostForm("device")),
		Statut:      hotel.Status(c.PostForm("statut")),
		UserID:      user.ID,
	}
	f.mu.Lock()
	if url, ok := f.storeFile(c, "photo", "hotels"); ok {
		h.Photo = &url
	}
	f.mu.Unlock()

	created := f.SeedHotel(h)
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Hôtel créé avec succès", "data": created})
}

func (f *FakeAPI) updateHotel(c *gin.Context) {
	var in hotel.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Données invalides"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.findLocked(c.Param("id"))
	if h == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Hôtel introuvable"})
		return
	}
	if in.Nom != nil {
		h.Nom = *in.Nom
	}
	if in.Adresse != nil {
		h.Adresse = *in.Adresse
	}
	if in.Mail != nil {
		h.Mail = *in.Mail
	}
	if in.Telephone != nil {
		h.Telephone = *in.Telephone
	}
	if in.PrixParNuit != nil {
		h.PrixParNuit = hotel.Amount(*in.PrixParNuit)
	}
	if in.Device != nil {
		h.Device = in.Device.Normalize()
	}
	if in.Statut != nil {
		h.Statut = *in.Statut
	}
	h.UpdatedAt = f.now()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Hôtel modifié avec succès", "data": *h})
}

func (f *FakeAPI) deleteHotel(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.findLocked(c.Param("id"))
	if h == nil || h.IsDeleted() {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Hôtel introuvable"})
		return
	}
	now := f.now()
	h.DeletedAt = &now
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Hôtel supprimé avec succès"})
}

func (f *FakeAPI) restoreHotel(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.findLocked(c.Param("id"))
	if h == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Hôtel introuvable"})
		return
	}
	h.DeletedAt = nil
	h.Statut = hotel.StatusActive
	h.UpdatedAt = f.now()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Hôtel restauré avec succès"})
}

func (f *FakeAPI) updatePhoto(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.findLocked(c.Param("id"))
	if h == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Hôtel introuvable"})
		return
	}
	url, ok := f.storeFile(c, "photo", "hotels")
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Données invalides", "errors": gin.H{"photo": []string{"Le champ photo est obligatoire."}}})
		return
	}
	h.Photo = &url
	h.UpdatedAt = f.now()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Photo mise à jour", "photo": url})
}

func (f *FakeAPI) stats(c *gin.Context) {
	f.mu.Lock()
	var s hotel.Stats
	for _, h := range f.hotels {
		switch {
		case h.IsDeleted():
			s.HotelsSupprimes++
		case h.Statut == hotel.StatusInactive:
			s.TotalHotels++
			s.HotelsInactifs++
		default:
			s.TotalHotels++
			s.HotelsActifs++
		}
	}
	f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s})
}

func (f *FakeAPI) graph(c *gin.Context) {
	f.mu.Lock()
	counts := map[string]int{}
	for _, h := range f.hotels {
		if !h.IsDeleted() {
			counts[h.CreatedAt.Format("2006-01")]++
		}
	}
	f.mu.Unlock()

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)
	points := make([]hotel.GraphPoint, 0, len(months))
	for _, m := range months {
		points = append(points, hotel.GraphPoint{Mois: m, Total: counts[m]})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": points})
}
