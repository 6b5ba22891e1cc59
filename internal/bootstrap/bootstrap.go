package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"hotel-admin-go/internal/app/services"
	domainauth "hotel-admin-go/internal/domain/auth"
	authstore "hotel-admin-go/internal/domain/auth/store"
	"hotel-admin-go/internal/domain/eventbus"
	domainimage "hotel-admin-go/internal/domain/image"
	"hotel-admin-go/internal/domain/query"
	platformconfig "hotel-admin-go/internal/platform/config"
	platformerrors "hotel-admin-go/internal/platform/errors"
	platformlogging "hotel-admin-go/internal/platform/logging"
	platformobservability "hotel-admin-go/internal/platform/observability"
	platformstorage "hotel-admin-go/internal/platform/storage"
	"hotel-admin-go/internal/transport/api"
	httptransport "hotel-admin-go/internal/transport/http"
)

const inboxCapacity = 100

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	loader                *platformconfig.Loader
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	store                 authstore.Store
	bus                   *eventbus.Bus
	inbox                 *eventbus.Inbox
	session               *domainauth.Session
	client                *api.Client
	cache                 *query.Cache
	uploads               *domainimage.Pipeline
	account               *services.AccountService
	hotels                *services.HotelService
	stats                 *services.StatsService
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context, loader *platformconfig.Loader) error {
	if loader == nil {
		loader = platformconfig.NewLoader()
	}
	state := &appState{loader: loader}
	defer state.close()

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	logger := state.logger
	if state.config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.account == nil || state.hotels == nil || state.stats == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"services not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// a failing server cancels groupCtx just like a signal does
	group, groupCtx := errgroup.WithContext(signalCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return fmt.Errorf("启动 Http 服务失败: %w", err)
	}
	logger.InfoTag("引导", "服务已成功启动")

	return waitForShutdown(groupCtx, cancel, logger, group)
}

// close releases everything the init steps opened, in reverse order.
func (s *appState) close() {
	if s.cache != nil {
		s.cache.Close()
	}
	if s.store != nil {
		if err := s.store.Close(context.Background()); err != nil {
			s.logger.ErrorTag("认证", "会话存储未正常关闭: %v", err)
		}
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			s.logger.ErrorTag("引导", "数据库未正常关闭: %v", err)
		}
	}
	if shutdown := s.observabilityShutdown; shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			s.logger.WarnTag("引导", "可观测性未正常关闭: %v", err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("引导", "初始化依赖关系概览")
	for _, step := range steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		logger.InfoTag("引导", "%s (%s) <- %s", step.ID, step.Title, deps)
	}
	logger.InfoTag("引导", "启动服务")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-session-store",
			Title:     "Initialise session store",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initSessionStoreStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Initialise notification bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "auth:init-session",
			Title:     "Rehydrate auth session",
			DependsOn: []string{"storage:init-session-store", "eventbus:init"},
			Kind:      platformerrors.KindSession,
			Execute:   initSessionStep,
		},
		{
			ID:        "api:init-client",
			Title:     "Initialise backend client",
			DependsOn: []string{"auth:init-session", "observability:setup-hooks"},
			Kind:      platformerrors.KindTransport,
			Execute:   initClientStep,
		},
		{
			ID:        "query:init-cache",
			Title:     "Initialise query cache",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initCacheStep,
		},
		{
			ID:        "services:init",
			Title:     "Initialise entity services",
			DependsOn: []string{"api:init-client", "query:init-cache"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initServicesStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := state.loader
	if loader == nil {
		loader = platformconfig.NewLoader()
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.logger = logger
	logger.InfoTag("引导", "日志模块就绪 [%s] %s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initSessionStoreStep(_ context.Context, state *appState) error {
	cfg := state.config.Session.Store
	driver := strings.ToLower(strings.TrimSpace(cfg.Type))
	storeCfg := authstore.Config{
		Driver:    driver,
		Namespace: cfg.Namespace,
	}

	var deps authstore.Dependencies
	switch driver {
	case "", authstore.DriverMemory:
		storeCfg.Driver = authstore.DriverMemory
		storeCfg.Memory = &authstore.MemoryConfig{GCInterval: cfg.Cleanup}
	case authstore.DriverSQLite:
		db, err := platformstorage.Open(cfg.SQLite.DSN)
		if err != nil {
			return err
		}
		state.db = db
		deps.SQLiteDB = db
	case authstore.DriverRedis:
		storeCfg.Redis = &authstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
	}

	st, err := authstore.New(storeCfg, deps)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-session-store", "failed to create session store", err)
	}
	state.store = st
	state.logger.InfoTag("认证", "会话存储就绪: %s", storeCfg.Driver)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New()
	state.inbox = eventbus.NewInbox(inboxCapacity, state.logger)
	return state.inbox.Attach(state.bus)
}

func initSessionStep(ctx context.Context, state *appState) error {
	session, err := domainauth.NewSession(domainauth.Options{
		Store:     state.store,
		Bus:       state.bus,
		Logger:    state.logger,
		CookieTTL: state.config.Session.CookieTTL,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "auth:init-session", "failed to create session", err)
	}
	if err := session.Attach(); err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "auth:init-session", "failed to subscribe session", err)
	}
	if err := session.InitializeAuth(ctx); err != nil {
		// an unreadable store leaves the session logged out, which is still usable
		state.logger.WarnTag("认证", "会话恢复失败: %v", err)
	}
	state.session = session
	return nil
}

func initClientStep(_ context.Context, state *appState) error {
	client, err := api.New(api.Options{
		BaseURL: state.config.API.BaseURL,
		Timeout: state.config.API.Timeout,
		Tokens:  state.session,
		Bus:     state.bus,
		Logger:  state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "api:init-client", "failed to create api client", err)
	}
	state.client = client
	state.logger.InfoTag("API", "后端地址 %s", client.BaseURL())
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	state.cache = query.New(query.Config{
		MaxEntries: state.config.Cache.MaxEntries,
		Logger:     state.logger,
	})
	return nil
}

func uploadLimits(cfg platformconfig.UploadConfig) (photo, avatar domainimage.Limits) {
	photo = domainimage.PhotoLimits()
	avatar = domainimage.AvatarLimits()
	if cfg.PhotoMaxBytes > 0 {
		photo.MaxFileSize = cfg.PhotoMaxBytes
	}
	if cfg.AvatarMaxBytes > 0 {
		avatar.MaxFileSize = cfg.AvatarMaxBytes
	}
	if cfg.MaxWidth > 0 {
		photo.MaxWidth, avatar.MaxWidth = cfg.MaxWidth, cfg.MaxWidth
	}
	if cfg.MaxHeight > 0 {
		photo.MaxHeight, avatar.MaxHeight = cfg.MaxHeight, cfg.MaxHeight
	}
	return photo, avatar
}

func initServicesStep(_ context.Context, state *appState) error {
	photoLimits, avatarLimits := uploadLimits(state.config.Uploads)
	state.uploads = domainimage.NewPipeline(state.logger)

	account, err := services.NewAccountService(&services.AccountConfig{
		API:          state.client,
		Session:      state.session,
		Cache:        state.cache,
		Bus:          state.bus,
		Uploads:      state.uploads,
		AvatarLimits: avatarLimits,
		StaleTime:    state.config.Cache.ListStaleTime,
		Logger:       state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "services:init", "failed to create account service", err)
	}
	hotels, err := services.NewHotelService(&services.HotelConfig{
		API:             state.client,
		Cache:           state.cache,
		Bus:             state.bus,
		Uploads:         state.uploads,
		PhotoLimits:     photoLimits,
		ListStaleTime:   state.config.Cache.ListStaleTime,
		DetailStaleTime: state.config.Cache.DetailStaleTime,
		Logger:          state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "services:init", "failed to create hotel service", err)
	}
	stats, err := services.NewStatsService(state.client, state.cache, 0)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "services:init", "failed to create stats service", err)
	}

	state.account, state.hotels, state.stats = account, hotels, stats
	return nil
}

// buildHandler assembles the router with the guard and the console routes.
func buildHandler(ctx context.Context, state *appState) (*gin.Engine, error) {
	config := state.config
	router, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: state.logger,
		Guard:  httptransport.GuardMiddleware(domainauth.CookieName),
	})
	if err != nil {
		return nil, err
	}

	photoLimits, avatarLimits := uploadLimits(config.Uploads)
	console, err := httptransport.NewConsole(&httptransport.ConsoleConfig{
		Account:      state.account,
		Hotels:       state.hotels,
		Stats:        state.stats,
		Cache:        state.cache,
		Inbox:        state.inbox,
		Uploads:      state.uploads,
		PhotoLimits:  photoLimits,
		AvatarLimits: avatarLimits,
		CookieTTL:    config.Session.CookieTTL,
		CookieSecure: config.Web.CookieSecure,
		Logger:       state.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := console.Register(ctx, router); err != nil {
		return nil, err
	}

	engine := router.Engine
	engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, httptransport.HomePath)
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httptransport.APIResponse{
			Success: false,
			Data:    gin.H{},
			Message: "Page introuvable",
			Code:    http.StatusNotFound,
		})
	})
	return engine, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	handler, err := buildHandler(groupCtx, state)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://localhost:%d", config.Server.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("引导", "收到系统信号 %v，正在进行资源清理", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("引导", "所有服务已成功关闭")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("引导", "服务关闭超时，已强制退出")
		return errors.New("服务关闭超时")
	}
	return nil
}
