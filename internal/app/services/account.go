package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"hotel-admin-go/internal/domain/auth"
	"hotel-admin-go/internal/domain/auth/model"
	"hotel-admin-go/internal/domain/eventbus"
	"hotel-admin-go/internal/domain/image"
	"hotel-admin-go/internal/domain/query"
	"hotel-admin-go/internal/domain/validation"
	platformerrors "hotel-admin-go/internal/platform/errors"
	"hotel-admin-go/internal/platform/logging"
	"hotel-admin-go/internal/transport/api"
)

const (
	loginSuccessTitle    = "Connexion réussie"
	loginErrorTitle      = "Erreur de connexion"
	registerSuccessTitle = "Inscription réussie"
	registerErrorTitle   = "Erreur d'inscription"
	registerErrorDefault = "Erreur lors de l'inscription"
	avatarErrorDefault   = "Erreur lors de la mise à jour de la photo"
	genericErrorTitle    = "Erreur"
	invalidAuthResponse  = "Réponse du serveur invalide"
)

// AuthBackend is the part of the API client the account service needs.
type AuthBackend interface {
	Login(ctx context.Context, in model.LoginCredentials) (model.AuthResponse, error)
	Register(ctx context.Context, in model.RegisterData) (model.AuthResponse, error)
	CurrentUser(ctx context.Context) (model.User, error)
	UpdateAvatar(ctx context.Context, avatar image.Upload) (model.AvatarResponse, error)
}

// AuthOutcome is the result of a successful login or registration.
type AuthOutcome struct {
	User     model.User
	Token    string
	Redirect string
}

// AccountService 处理登录、注册、当前用户与头像
type AccountService struct {
	api       AuthBackend
	session   *auth.Session
	cache     *query.Cache
	bus       *eventbus.Bus
	uploads   *image.Pipeline
	limits    image.Limits
	staleTime time.Duration
	logger    *logging.Logger
}

// AccountConfig 账户服务配置
type AccountConfig struct {
	API          AuthBackend
	Session      *auth.Session
	Cache        *query.Cache
	Bus          *eventbus.Bus
	Uploads      *image.Pipeline
	AvatarLimits image.Limits
	StaleTime    time.Duration
	Logger       *logging.Logger
}

// NewAccountService 创建账户服务. The query cache is cleared whenever the session ends or changes hands.
func NewAccountService(config *AccountConfig) (*AccountService, error) {
	if config.API == nil || config.Session == nil || config.Cache == nil {
		return nil, errors.New("account service requires api, session and cache")
	}
	s := &AccountService{
		api:       config.API,
		session:   config.Session,
		cache:     config.Cache,
		bus:       config.Bus,
		uploads:   config.Uploads,
		limits:    config.AvatarLimits,
		staleTime: config.StaleTime,
		logger:    config.Logger,
	}
	if s.uploads == nil {
		s.uploads = image.NewPipeline(config.Logger)
	}
	if s.limits.MaxFileSize == 0 {
		s.limits = image.AvatarLimits()
	}
	if s.staleTime == 0 {
		s.staleTime = DefaultListStaleTime
	}
	if s.bus != nil {
		if err := s.bus.Subscribe(eventbus.TopicSessionChanged, s.onSessionChanged); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *AccountService) onSessionChanged(ev eventbus.SessionEvent) {
	switch {
	case !ev.Authenticated:
		s.cache.Clear()
		s.logger.DebugTag("缓存", "query cache cleared after logout")
	case ev.Replaced:
		s.cache.Clear()
		s.logger.DebugTag("缓存", "query cache cleared, previous session replaced")
	}
}

// Login validates the credentials, authenticates and opens the session.
// Local validation failures are returned without a notification; the form shows them inline.
func (s *AccountService) Login(ctx context.Context, in model.LoginCredentials) (AuthOutcome, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Login(in); err != nil {
		return AuthOutcome{}, err
	}

	resp, err := s.api.Login(ctx, in)
	if err != nil {
		s.bus.Error(loginErrorTitle, loginFailure(err))
		return AuthOutcome{}, err
	}
	return s.open(ctx, resp, loginSuccessTitle, loginErrorTitle)
}

// Register validates the form and the optional avatar, creates the account and opens the session.
func (s *AccountService) Register(ctx context.Context, in model.RegisterData) (AuthOutcome, error) {
	in.Email = strings.TrimSpace(in.Email)
	formErr := validation.Register(in)
	avatarErr := s.uploads.Check("avatar", in.Avatar, s.limits)
	if formErr != nil || avatarErr != nil {
		return AuthOutcome{}, mergeInvalid("services.register", formErr, avatarErr)
	}

	resp, err := s.api.Register(ctx, in)
	if err != nil {
		s.bus.Error(registerErrorTitle, registerFailure(err))
		return AuthOutcome{}, err
	}
	return s.open(ctx, resp, registerSuccessTitle, registerErrorTitle)
}

// open hands the response to the session. A persistence failure is only logged
// once the session holds the new token; a response the session refused fails the call.
func (s *AccountService) open(ctx context.Context, resp model.AuthResponse, successTitle, errorTitle string) (AuthOutcome, error) {
	if err := s.session.SetAuth(ctx, resp); err != nil {
		if resp.AccessToken == "" || s.session.Token() != resp.AccessToken {
			s.logger.WarnTag("认证", "session not opened: %v", err)
			s.bus.Error(errorTitle, invalidAuthResponse)
			return AuthOutcome{}, &api.APIError{Kind: api.KindServer, Message: invalidAuthResponse, Cause: err}
		}
		s.logger.WarnTag("认证", "session persistence failed: %v", err)
	}
	s.bus.Success(successTitle, "Bienvenue "+resp.User.Prenom+" !")
	return AuthOutcome{User: resp.User, Token: resp.AccessToken, Redirect: RedirectAfterAuth}, nil
}

// CurrentUser reads the profile through the cache: fresh for five minutes, one retry.
func (s *AccountService) CurrentUser(ctx context.Context) (model.User, error) {
	return query.Get(ctx, s.cache, query.Key{Entity: EntityCurrentUser}, readOptions(s.staleTime, 1), s.api.CurrentUser)
}

// UpdateAvatar uploads a new avatar and patches the cached profile with its URL.
func (s *AccountService) UpdateAvatar(ctx context.Context, avatar image.Upload) (model.AvatarResponse, error) {
	if err := s.uploads.Check("avatar", &avatar, s.limits); err != nil {
		return model.AvatarResponse{}, err
	}

	resp, err := s.api.UpdateAvatar(ctx, avatar)
	if err != nil {
		s.bus.Error(genericErrorTitle, describe(err, avatarErrorDefault))
		return resp, err
	}

	query.SetQueryData(s.cache, query.Key{Entity: EntityCurrentUser}, func(u model.User) model.User {
		url := resp.Avatar
		u.Avatar = &url
		return u
	})
	s.bus.Success(resp.Message, "")
	return resp, nil
}

// Logout ends the session. An empty reason is a user-initiated logout.
func (s *AccountService) Logout(ctx context.Context, reason string) error {
	return s.session.Logout(ctx, reason)
}

// Session exposes the session the service writes to.
func (s *AccountService) Session() *auth.Session {
	return s.session
}

func loginFailure(err error) string {
	if msg := describe(err, ""); msg != "" {
		return msg
	}
	for _, f := range api.FieldsOf(err) {
		if len(f.Messages) > 0 {
			return f.Messages[0]
		}
	}
	return loginErrorTitle
}

func registerFailure(err error) string {
	var parts []string
	if msg := describe(err, ""); msg != "" {
		parts = append(parts, msg)
	}
	for _, f := range api.FieldsOf(err) {
		parts = append(parts, f.Messages...)
	}
	if len(parts) == 0 {
		return registerErrorDefault
	}
	return strings.Join(parts, ", ")
}

// mergeInvalid folds several validation errors into one.
func mergeInvalid(op string, errs ...error) error {
	var fields []platformerrors.FieldError
	for _, err := range errs {
		if err == nil {
			continue
		}
		got := platformerrors.FieldsOf(err)
		if len(got) == 0 {
			return err
		}
		fields = append(fields, got...)
	}
	return platformerrors.Invalid(op, "Données invalides", fields)
}
