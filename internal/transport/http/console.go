package httptransport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hotel-admin-go/internal/app/services"
	"hotel-admin-go/internal/domain/auth"
	"hotel-admin-go/internal/domain/auth/model"
	"hotel-admin-go/internal/domain/eventbus"
	"hotel-admin-go/internal/domain/hotel"
	"hotel-admin-go/internal/domain/image"
	"hotel-admin-go/internal/domain/query"
	platformerrors "hotel-admin-go/internal/platform/errors"
	"hotel-admin-go/internal/platform/logging"
)

// Console serves the administration routes on top of the entity services.
type Console struct {
	account      *services.AccountService
	hotels       *services.HotelService
	stats        *services.StatsService
	session      *auth.Session
	cache        *query.Cache
	inbox        *eventbus.Inbox
	uploads      *image.Pipeline
	photoLimits  image.Limits
	avatarLimits image.Limits
	cookieTTL    time.Duration
	cookieSecure bool
	logger       *logging.Logger
}

// ConsoleConfig 控制台配置
type ConsoleConfig struct {
	Account      *services.AccountService
	Hotels       *services.HotelService
	Stats        *services.StatsService
	Cache        *query.Cache
	Inbox        *eventbus.Inbox
	Uploads      *image.Pipeline
	PhotoLimits  image.Limits
	AvatarLimits image.Limits
	CookieTTL    time.Duration
	CookieSecure bool
	Logger       *logging.Logger
}

// NewConsole 创建控制台
func NewConsole(config *ConsoleConfig) (*Console, error) {
	if config.Account == nil || config.Hotels == nil || config.Stats == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "console.new", "account, hotel and stats services are required")
	}
	c := &Console{
		account:      config.Account,
		hotels:       config.Hotels,
		stats:        config.Stats,
		session:      config.Account.Session(),
		cache:        config.Cache,
		inbox:        config.Inbox,
		uploads:      config.Uploads,
		photoLimits:  config.PhotoLimits,
		avatarLimits: config.AvatarLimits,
		cookieTTL:    config.CookieTTL,
		cookieSecure: config.CookieSecure,
		logger:       config.Logger,
	}
	if c.uploads == nil {
		c.uploads = image.NewPipeline(config.Logger)
	}
	if c.photoLimits.MaxFileSize == 0 {
		c.photoLimits = image.PhotoLimits()
	}
	if c.avatarLimits.MaxFileSize == 0 {
		c.avatarLimits = image.AvatarLimits()
	}
	if c.cookieTTL <= 0 {
		c.cookieTTL = auth.DefaultCookieTTL
	}
	return c, nil
}

// Register 注册控制台路由
func (s *Console) Register(_ context.Context, router *Router) error {
	router.API.GET("/session", s.handleSession)
	router.API.GET("/cache/stats", s.handleCacheStats)

	router.Auth.GET("/login", s.handleLoginForm)
	router.Auth.POST("/login", s.handleLogin)
	router.Auth.GET("/register", s.handleRegisterForm)
	router.Auth.POST("/register", s.handleRegister)

	dash := router.Dashboard
	dash.POST("/logout", s.handleLogout)
	dash.GET("/analytics", s.handleAnalytics)
	dash.GET("/hotels", s.handleListHotels)
	dash.POST("/hotels", s.handleCreateHotel)
	dash.GET("/hotels/:id", s.handleGetHotel)
	dash.PUT("/hotels/:id", s.handleUpdateHotel)
	dash.DELETE("/hotels/:id", s.handleDeleteHotel)
	dash.PATCH("/hotels/:id/restore", s.handleRestoreHotel)
	dash.POST("/hotels/:id/photo", s.handleUpdatePhoto)
	dash.GET("/profile", s.handleProfile)
	dash.POST("/profile/avatar", s.handleUpdateAvatar)
	dash.GET("/notifications", s.handleNotifications)

	s.logger.InfoTag("HTTP", "控制台路由注册完成")
	return nil
}

// hotelView adds what the listing renders for each row.
type hotelView struct {
	hotel.Hotel
	DisplayStatus string         `json:"display_status"`
	Actions       []hotel.Action `json:"actions"`
}

func viewOf(h hotel.Hotel) hotelView {
	return hotelView{Hotel: h, DisplayStatus: h.DisplayStatus(), Actions: h.Actions()}
}

type formField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

func (s *Console) handleSession(c *gin.Context) {
	RespondSuccess(c, http.StatusOK, s.session.Snapshot(), "")
}

func (s *Console) handleCacheStats(c *gin.Context) {
	if s.cache == nil {
		RespondSuccess(c, http.StatusOK, query.Stats{}, "")
		return
	}
	RespondSuccess(c, http.StatusOK, s.cache.Stats(), "")
}

func (s *Console) handleLoginForm(c *gin.Context) {
	RespondSuccess(c, http.StatusOK, gin.H{
		"form": "login",
		"fields": []formField{
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true},
		},
	}, "")
}

func (s *Console) handleRegisterForm(c *gin.Context) {
	RespondSuccess(c, http.StatusOK, gin.H{
		"form": "register",
		"fields": []formField{
			{Name: "nom", Type: "text", Required: true},
			{Name: "prenom", Type: "text", Required: true},
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true},
			{Name: "password_confirmation", Type: "password", Required: true},
			{Name: "avatar", Type: "file", Required: false},
		},
	}, "")
}

func (s *Console) handleLogin(c *gin.Context) {
	var in model.LoginCredentials
	if err := c.ShouldBind(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "Requête invalide", nil)
		return
	}
	out, err := s.account.Login(c.Request.Context(), in)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	s.setTokenCookie(c, out.Token)
	RespondSuccess(c, http.StatusOK, gin.H{"user": out.User, "redirect": out.Redirect}, "Connexion réussie")
}

func (s *Console) handleRegister(c *gin.Context) {
	avatar, err := s.readUpload(c, "avatar", s.avatarLimits)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	in := model.RegisterData{
		Nom:                  c.PostForm("nom"),
		Prenom:               c.PostForm("prenom"),
		Email:                c.PostForm("email"),
		Password:             c.PostForm("password"),
		PasswordConfirmation: c.PostForm("password_confirmation"),
		Avatar:               avatar,
	}
	out, err := s.account.Register(c.Request.Context(), in)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	s.setTokenCookie(c, out.Token)
	RespondSuccess(c, http.StatusCreated, gin.H{"user": out.User, "redirect": out.Redirect}, "Inscription réussie")
}

func (s *Console) handleLogout(c *gin.Context) {
	err := s.account.Logout(c.Request.Context(), "")
	s.clearTokenCookie(c)
	if err != nil {
		s.logger.WarnTag("认证", "logout cleanup failed: %v", err)
	}
	RespondSuccess(c, http.StatusOK, gin.H{"redirect": LoginPath}, "Déconnexion réussie")
}

func (s *Console) handleAnalytics(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := s.stats.DashboardStats(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	graph, err := s.stats.GraphStats(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"stats": stats, "graph": graph}, "")
}

func (s *Console) handleListHotels(c *gin.Context) {
	var filters hotel.Filters
	if err := c.ShouldBindQuery(&filters); err != nil {
		RespondError(c, http.StatusBadRequest, "Filtres invalides", nil)
		return
	}
	list, err := s.hotels.Hotels(c.Request.Context(), filters)
	if err != nil {
		s.fail(c, err)
		return
	}
	views := make([]hotelView, 0, len(list.Data))
	for _, h := range list.Data {
		views = append(views, viewOf(h))
	}
	RespondSuccess(c, http.StatusOK, gin.H{
		"hotels":     views,
		"pagination": list.Pagination,
		"meta":       list.Meta,
	}, "")
}

func (s *Console) handleGetHotel(c *gin.Context) {
	h, err := s.hotels.Hotel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, viewOf(h), "")
}

func (s *Console) handleCreateHotel(c *gin.Context) {
	photo, err := s.readUpload(c, "photo", s.photoLimits)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	in := hotel.CreateInput{
		Nom:       c.PostForm("nom"),
		Adresse:   c.PostForm("adresse"),
		Mail:      c.PostForm("mail"),
		Telephone: c.PostForm("telephone"),
		Device:    hotel.Currency(c.PostForm("device")),
		Statut:    hotel.Status(c.PostForm("statut")),
		Photo:     photo,
	}
	if raw := strings.TrimSpace(c.PostForm("prix_par_nuit")); raw != "" {
		price, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			RespondFailure(c, platformerrors.Invalid("console.hotel_create", "Données invalides", []platformerrors.FieldError{
				{Field: "prix_par_nuit", Messages: []string{"Le prix doit être un nombre"}},
			}))
			return
		}
		in.PrixParNuit = price
	}

	created, err := s.hotels.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusCreated, viewOf(created), "Hôtel créé avec succès")
}

func (s *Console) handleUpdateHotel(c *gin.Context) {
	var in hotel.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "Requête invalide", nil)
		return
	}
	if !s.allowed(c, c.Param("id"), hotel.ActionEdit) {
		return
	}
	updated, err := s.hotels.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, viewOf(updated), "Hôtel modifié avec succès")
}

func (s *Console) handleDeleteHotel(c *gin.Context) {
	if err := s.hotels.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "Hôtel supprimé avec succès")
}

func (s *Console) handleRestoreHotel(c *gin.Context) {
	if err := s.hotels.Restore(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "Hôtel restauré avec succès")
}

func (s *Console) handleUpdatePhoto(c *gin.Context) {
	photo, err := s.readUpload(c, "photo", s.photoLimits)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	if photo == nil {
		RespondFailure(c, platformerrors.Invalid("console.hotel_photo", "Données invalides", []platformerrors.FieldError{
			{Field: "photo", Messages: []string{"Veuillez choisir une photo"}},
		}))
		return
	}
	if !s.allowed(c, c.Param("id"), hotel.ActionPhoto) {
		return
	}
	url, err := s.hotels.UpdatePhoto(c.Request.Context(), c.Param("id"), *photo)
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"photo": url}, "Photo mise à jour avec succès")
}

func (s *Console) handleProfile(c *gin.Context) {
	user, err := s.account.CurrentUser(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"user": user, "full_name": user.FullName()}, "")
}

func (s *Console) handleUpdateAvatar(c *gin.Context) {
	avatar, err := s.readUpload(c, "avatar", s.avatarLimits)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	if avatar == nil {
		RespondFailure(c, platformerrors.Invalid("console.avatar", "Données invalides", []platformerrors.FieldError{
			{Field: "avatar", Messages: []string{"Veuillez choisir une image"}},
		}))
		return
	}
	resp, err := s.account.UpdateAvatar(c.Request.Context(), *avatar)
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"avatar": resp.Avatar}, resp.Message)
}

func (s *Console) handleNotifications(c *gin.Context) {
	var notes []eventbus.Notification
	if s.inbox != nil {
		notes = s.inbox.Drain()
	}
	if notes == nil {
		notes = []eventbus.Notification{}
	}
	RespondSuccess(c, http.StatusOK, notes, "")
}

// fail responds with err. A rejected token also drops the browser cookie so the guard sends the user to login.
// allowed refuses actions the hotel's current state does not offer.
func (s *Console) allowed(c *gin.Context, id string, action hotel.Action) bool {
	h, err := s.hotels.Hotel(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return false
	}
	if !h.Allows(action) {
		RespondFailure(c, platformerrors.New(platformerrors.KindDomain, "console.hotel_action", "Action non disponible pour cet hôtel"))
		return false
	}
	return true
}

func (s *Console) fail(c *gin.Context, err error) {
	if !s.session.IsAuthenticated() {
		s.clearTokenCookie(c)
	}
	RespondFailure(c, err)
}

// readUpload reads an optional multipart file. A missing file yields nil.
func (s *Console) readUpload(c *gin.Context, field string, limits image.Limits) (*image.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "console.upload", "read multipart file", err)
	}
	file, err := fh.Open()
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "console.upload", "open multipart file", err)
	}
	defer file.Close()
	return s.uploads.Read(field, fh.Filename, file, limits)
}

func (s *Console) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(s.cookieTTL.Seconds()), "/", "", s.cookieSecure, true)
}

func (s *Console) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.cookieSecure, true)
}
