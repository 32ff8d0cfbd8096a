package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coalition-api/config"
	"coalition-api/controllers"
	"coalition-api/middleware"
	"coalition-api/monitor"
	"coalition-api/realtime"
	"coalition-api/repository"
	"coalition-api/routes"
	"coalition-api/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile := config.InitLogging(cfg)
	if logFile != nil {
		defer logFile.Close()
	}
	log := config.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if cfg.AutoMigrate {
		if err := config.Migrate(db); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
		log.Info("Database schema migrated")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("❌ Failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	contentCache, err := config.InitCache(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer contentCache.Close()

	store := repository.NewGormStore(db)
	mailer := config.NewSMTPMailer(cfg.SMTP)

	hub := realtime.NewHub(cfg.AllowedOrigins, log)
	go hub.Run(ctx)

	notifier := services.NewNotifier(store.Organizations, mailer, hub, cfg.AppBaseURL).WithLogo(cfg.AppLogoURL)
	dispatcher := services.NewEmailDispatcher(store.Emails, mailer).WithLogo(cfg.AppLogoURL)

	scheduler := services.NewScheduler(5 * time.Minute)
	if err := scheduler.AddJob("email-dispatch", cfg.EmailDispatchCron, func(jobCtx context.Context) error {
		err := repository.WithAdvisoryLock(jobCtx, db, services.EmailDispatchLock, func() error {
			_, err := dispatcher.DispatchDue(jobCtx, time.Now())
			return err
		})
		if errors.Is(err, repository.ErrLockHeld) {
			return nil
		}
		return err
	}); err != nil {
		log.Fatalf("❌ Failed to schedule email dispatch: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	auth := middleware.NewAuthenticator(cfg.JWTSecret, time.Duration(cfg.JWTExpireHours)*time.Hour, store.Organizations)

	ctl := controllers.New(controllers.Deps{
		Store:           store,
		Cache:           contentCache,
		Notifier:        notifier,
		Emails:          dispatcher,
		Tokens:          auth,
		Live:            hub,
		Log:             log,
		AnnouncementTTL: cfg.AnnouncementCacheTTL,
		PageContentTTL:  cfg.PageContentCacheTTL,
	})

	mon := monitor.New(config.LogFilePath())
	mon.DB = sqlDB
	mon.Cache = contentCache
	mon.Live = hub
	mon.Dispatcher = dispatcher

	// Set Gin mode
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = config.LogWriter
	gin.DefaultErrorWriter = config.LogWriter

	router := gin.New()
	router.Use(middleware.RequestLogger(log))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	routes.SetupRoutes(router, ctl, auth, mon)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("🚀 Server starting on port %s (%s)", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server stopped")
}
