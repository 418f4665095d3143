package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/etutoring/internal/config"
	"github.com/Skotchmaster/etutoring/internal/db"
	"github.com/Skotchmaster/etutoring/internal/httpserver"
	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/metrics"
	"github.com/Skotchmaster/etutoring/internal/middleware/auth"
	"github.com/Skotchmaster/etutoring/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/etutoring/internal/middleware/logging"
	"github.com/Skotchmaster/etutoring/internal/mykafka"
	"github.com/Skotchmaster/etutoring/internal/realtime"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/search"
	"github.com/Skotchmaster/etutoring/internal/service"
	"github.com/Skotchmaster/etutoring/internal/storage"
)

func fatal(l *slog.Logger, msg string, err error) {
	l.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "config_load_failed", err)
	}
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		fatal(logger, "config_invalid", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "db_open_failed", err)
	}
	if err := db.Migrate(gdb); err != nil {
		fatal(logger, "db_migrate_failed", err)
	}

	m := metrics.New()
	prod := mykafka.NewProducer(cfg.KafkaBrokers)
	if !prod.Enabled() {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var index search.Index = search.NewSQLIndex(gdb)
	if cfg.ESURL != "" {
		es, err := search.NewClient(search.ESConfig{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex})
		if err != nil {
			fatal(logger, "elasticsearch_init_failed", err)
		}
		esIndex := search.NewESIndex(es, cfg.ESIndex)
		if err := esIndex.EnsureIndex(ctx); err != nil {
			fatal(logger, "elasticsearch_index_failed", err)
		}
		index = esIndex
	}

	var store storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		ms, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			fatal(logger, "minio_init_failed", err)
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			fatal(logger, "minio_bucket_failed", err)
		}
		store = ms
	} else {
		logger.Warn("document_storage_disabled", "reason", "MINIO_ENDPOINT is empty")
	}

	var backplane realtime.Backplane = realtime.NewLocalBackplane()
	if cfg.RedisURL != "" {
		rc, err := realtime.NewRedisClient(cfg.RedisURL)
		if err != nil {
			fatal(logger, "redis_init_failed", err)
		}
		backplane = realtime.NewRedisBackplane(rc, logger)
	}

	r := repo.New(gdb)
	events := &service.Events{Pub: prod, Metrics: m}
	notifier := &service.NotificationService{Repo: r}

	authSvc := &service.AuthService{
		Repo:          r,
		Events:        events,
		Metrics:       m,
		JWTSecret:     cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}
	userSvc := &service.UserService{Repo: r, Events: events, Notifier: notifier}
	academicSvc := &service.AcademicService{Repo: r, Events: events, Index: index, Notifier: notifier}
	meetingSvc := &service.MeetingService{Repo: r, Events: events, Notifier: notifier}
	appointmentSvc := &service.AppointmentService{Repo: r, Events: events, Notifier: notifier}
	documentSvc := &service.DocumentService{Repo: r, Store: store, Index: index, Events: events}
	blogSvc := &service.BlogService{Repo: r, Index: index, Events: events, Notifier: notifier}
	messageSvc := &service.MessageService{Repo: r, Events: events, Notifier: notifier}

	hub := realtime.NewHub(realtime.HubConfig{
		Backplane: backplane,
		Messages:  messageSvc,
		Meetings:  meetingSvc,
		Metrics:   m,
		Logger:    logger,
	})
	if err := hub.Start(ctx); err != nil {
		fatal(logger, "hub_start_failed", err)
	}
	notifier.Pusher = hub

	authn := &auth.Authenticator{Users: r, JWTSecret: cfg.JWTSecret}
	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.SecureCookies
	csrfCfg.TrustedOrigins = []string{cfg.FrontendOrigin}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{cfg.FrontendOrigin},
			AllowCredentials: cfg.FrontendOrigin != "*",
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, csrfCfg.HeaderName},
		}),
		loggingmw.RequestLogger(logger),
		m.Middleware(),
	)

	httpserver.Register(e, &httpserver.Deps{
		DB:        gdb,
		Authn:     authn,
		Metrics:   m,
		APISecret: cfg.APISecret,
		CSRF:      csrfCfg,
		Socket:    realtime.NewHandler(hub, authn, cfg.FrontendOrigin).Serve,

		AuthHandler:         &httpserver.AuthHTTP{Svc: authSvc, Users: userSvc, Cookies: auth.Cookies{Secure: cfg.SecureCookies}, CSRF: csrfCfg},
		UserHandler:         &httpserver.UserHTTP{Svc: userSvc},
		AcademicHandler:     &httpserver.AcademicHTTP{Svc: academicSvc},
		MeetingHandler:      &httpserver.MeetingHTTP{Meetings: meetingSvc, Appointments: appointmentSvc},
		DocumentHandler:     &httpserver.DocumentHTTP{Svc: documentSvc},
		BlogHandler:         &httpserver.BlogHTTP{Svc: blogSvc},
		MessageHandler:      &httpserver.MessageHTTP{Svc: messageSvc, Relay: hub},
		NotificationHandler: &httpserver.NotificationHTTP{Svc: notifier},
		SearchHandler:       &httpserver.SearchHTTP{Svc: &service.SearchService{Index: index}},
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server_failed", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := hub.Close(); err != nil {
		logger.Error("hub_close_failed", "error", err)
	}
	if err := prod.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_failed", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}
