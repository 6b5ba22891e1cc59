package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"hotel-admin-go/internal/domain/auth/model"
	"hotel-admin-go/internal/domain/auth/store"
	"hotel-admin-go/internal/domain/eventbus"
	platformerrors "hotel-admin-go/internal/platform/errors"
)

type (
	// User re-exports the shared auth entity for callers.
	User = model.User
	// AuthResponse re-exports the login/registration payload.
	AuthResponse = model.AuthResponse
	// Logger re-exports the logging interface used across the domain.
	Logger = model.Logger
)

const (
	// CookieName names the persisted token entry read by the route guard.
	CookieName = "auth-storage"
	// StateKey names the persisted session blob used for rehydration.
	StateKey = "auth-storage:state"
	// DefaultCookieTTL is how long the token entry survives without a new login.
	DefaultCookieTTL = 7 * 24 * time.Hour

	// ExpiredReason is the logout reason used when the backend rejects the token.
	ExpiredReason = "Session expirée, veuillez vous reconnecter."
	logoutTitle   = "Déconnexion réussie"
)

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	User            *User  `json:"user"`
	Token           string `json:"-"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsLoading       bool   `json:"is_loading"`
}

type persistedState struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Options encapsulates the dependencies required to construct a Session.
type Options struct {
	Store     store.Store
	Bus       *eventbus.Bus
	Logger    Logger
	CookieTTL time.Duration
}

// Session is the single owner of the authenticated user and token.
// Only SetAuth and Logout change the token.
type Session struct {
	store     store.Store
	bus       *eventbus.Bus
	logger    Logger
	cookieTTL time.Duration

	// opMu serializes whole transitions including persistence; mu guards reads.
	opMu    sync.Mutex
	mu      sync.RWMutex
	user    *User
	token   string
	loading bool

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSession wires a Session. It starts empty and loading until InitializeAuth runs.
func NewSession(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("session requires a store")
	}
	if opts.Logger == nil {
		return nil, errors.New("session requires a logger")
	}
	ttl := opts.CookieTTL
	if ttl <= 0 {
		ttl = DefaultCookieTTL
	}
	return &Session{
		store:     opts.Store,
		bus:       opts.Bus,
		logger:    opts.Logger,
		cookieTTL: ttl,
		loading:   true,
		ready:     make(chan struct{}),
	}, nil
}

// SetAuth records a successful login or registration and persists the token.
// The in-memory state is updated even when persistence fails; the error is returned.
func (s *Session) SetAuth(ctx context.Context, resp AuthResponse) error {
	if resp.AccessToken == "" {
		return platformerrors.New(platformerrors.KindSession, "session.set_auth", "empty access token")
	}
	user := resp.User

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	replaced := s.token != "" && s.token != resp.AccessToken
	s.user = &user
	s.token = resp.AccessToken
	s.loading = false
	s.mu.Unlock()
	s.markReady()

	if replaced {
		s.logger.Info("[认证] session replaced by %s", user.Email)
	} else {
		s.logger.Info("[认证] session opened for %s", user.Email)
	}
	s.bus.Publish(eventbus.TopicSessionChanged, eventbus.SessionEvent{Authenticated: true, Replaced: replaced})

	return s.persist(ctx, &user, resp.AccessToken)
}

// Logout clears the session. A non-empty reason is shown as an error; otherwise an info toast confirms the logout.
func (s *Session) Logout(ctx context.Context, reason string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.clearLocked(ctx, reason)
}

func (s *Session) clearLocked(ctx context.Context, reason string) error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.loading = false
	s.mu.Unlock()
	s.markReady()

	if reason != "" {
		s.logger.Warn("[认证] session closed: %s", reason)
		s.bus.Error(reason, "")
	} else {
		s.logger.Info("[认证] session closed by user")
		s.bus.Info(logoutTitle, "")
	}
	s.bus.Publish(eventbus.TopicSessionChanged, eventbus.SessionEvent{Authenticated: false, Reason: reason})

	cookieErr := s.store.Remove(ctx, CookieName)
	stateErr := s.store.Remove(ctx, StateKey)
	if err := errors.Join(cookieErr, stateErr); err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session.logout", "failed to clear persisted session", err)
	}
	return nil
}

// InitializeAuth rehydrates the session from persisted state. A recovered token
// marks the session authenticated even if no user profile was persisted.
func (s *Session) InitializeAuth(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	defer s.markReady()

	var state persistedState
	var loadErr error
	raw, err := s.store.Get(ctx, StateKey)
	switch {
	case err == nil:
		if uerr := sonic.Unmarshal(raw, &state); uerr != nil {
			s.logger.Warn("[认证] discarding unreadable session blob: %v", uerr)
			state = persistedState{}
		}
	case !errors.Is(err, store.ErrNotFound):
		loadErr = err
	}

	token := ""
	raw, err = s.store.Get(ctx, CookieName)
	switch {
	case err == nil:
		_ = sonic.Unmarshal(raw, &token)
	case !errors.Is(err, store.ErrNotFound):
		loadErr = errors.Join(loadErr, err)
	}
	if token == "" {
		token = state.Token
	}

	s.mu.Lock()
	s.loading = false
	if token != "" {
		s.token = token
		s.user = state.User
	} else {
		s.token = ""
		s.user = nil
	}
	authenticated := s.token != ""
	s.mu.Unlock()

	if authenticated {
		s.logger.Info("[认证] session restored from persisted state")
	} else {
		s.logger.Debug("[认证] no persisted session found")
	}
	s.bus.Publish(eventbus.TopicSessionChanged, eventbus.SessionEvent{Authenticated: authenticated})

	if loadErr != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session.initialize", "failed to read persisted session", loadErr)
	}
	return nil
}

// HandleUnauthorized logs the session out when the backend rejected the token it currently holds.
func (s *Session) HandleUnauthorized(ev eventbus.UnauthorizedEvent) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	current := s.token
	s.mu.RUnlock()
	if current == "" || current != ev.Token {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.clearLocked(ctx, ExpiredReason); err != nil {
		s.logger.Error("[认证] auto logout failed: %v", err)
	}
}

// Attach subscribes the session to unauthorized events on its bus.
func (s *Session) Attach() error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe(eventbus.TopicUnauthorized, s.HandleUnauthorized)
}

func (s *Session) persist(ctx context.Context, user *User, token string) error {
	cookie, err := sonic.Marshal(token)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session.persist", "encode token", err)
	}
	blob, err := sonic.Marshal(persistedState{User: user, Token: token})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session.persist", "encode session", err)
	}
	if err := s.store.Put(ctx, CookieName, cookie, s.cookieTTL); err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session.persist", "write token cookie", err)
	}
	if err := s.store.Put(ctx, StateKey, blob, 0); err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session.persist", "write session blob", err)
	}
	return nil
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready is closed once the session has been rehydrated or explicitly set.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until Ready or ctx is done.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Token returns the current bearer token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, nil when unknown.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot returns the whole state under a single lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Token:           s.token,
		IsAuthenticated: s.token != "",
		IsLoading:       s.loading,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}
