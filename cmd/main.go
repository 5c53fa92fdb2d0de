package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/config"
	"github.com/vnkhanh/podstream-backend/controllers"
	"github.com/vnkhanh/podstream-backend/middleware"
	"github.com/vnkhanh/podstream-backend/routes"
	"github.com/vnkhanh/podstream-backend/services"
	"github.com/vnkhanh/podstream-backend/utils"
	"github.com/vnkhanh/podstream-backend/ws"
)

const (
	tempMaxAge      = time.Hour
	cleanupInterval = 30 * time.Minute
)

func main() {
	envErr := config.LoadEnvFile()
	cfg := config.Load()
	log := utils.NewLogger("podstream-api", cfg.LogLevel)
	if envErr != nil {
		log.Warn(".env file not found, using process environment")
	}
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg config.Config, log *logrus.Entry) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UsingDevSecret {
		log.Warn("JWT_SECRET not set, using the development secret")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := utils.InitSentry(cfg.SentryDSN, cfg.AppEnv, cfg.Release); err != nil {
		log.WithError(err).Warn("sentry init failed")
	}
	defer utils.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := config.NewDatabase(cfg, log.WithField("component", "database"))
	hub := ws.NewHub(log.WithField("component", "ws"))

	auth := services.NewAuthService(db, cfg.JWTSecret, log.WithField("component", "auth"))
	handler := &controllers.Handler{
		Auth:      auth,
		Catalog:   services.NewCatalogService(db, hub, log.WithField("component", "catalog")),
		Accounts:  services.NewAccountService(db, log.WithField("component", "accounts")),
		Analytics: services.NewAnalyticsService(db, log.WithField("component", "analytics")),
		Uploads:   newUploadService(cfg, log.WithField("component", "uploads")),
		DB:        db,
		Hub:       hub,
		Config:    cfg,
		Log:       log.WithField("component", "http"),
	}

	if cfg.AdminEmail != "" {
		seedCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if _, err := auth.SeedAdmin(seedCtx, cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.WithError(err).Warn("admin seed failed")
		}
		cancel()
	}

	utils.StartCleanupJob(ctx, cfg.TempUploadDir(), tempMaxAge, cleanupInterval, log.WithField("component", "cleanup"))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	router := routes.SetupRouter(routes.Deps{
		Handler:  handler,
		DB:       db,
		Limiters: middleware.NewLimiters(ctx, rdb),
		WS:       ws.NewHandler(hub, cfg.AllowedOrigins, log.WithField("component", "ws")),
		Log:      log.WithField("component", "http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.AppEnv, "store": cfg.StoreDriver}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	if err := db.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("closing store failed")
	}
	log.Info("server stopped")
	return nil
}

// newUploadService prefers Cloudinary, then Supabase, with local disk as the
// last resort.
func newUploadService(cfg config.Config, log *logrus.Entry) *services.UploadService {
	creds := services.CloudinaryCredentials{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
	}
	local := services.NewLocalUploader(cfg.UploadsDir, cfg.PublicBaseURL)

	var providers []services.Uploader
	if creds.Configured() {
		if up, err := services.NewCloudinaryUploader(creds); err != nil {
			log.WithError(err).Warn("cloudinary unavailable")
		} else {
			providers = append(providers, up)
		}
	}
	if cfg.SupabaseConfigured() {
		up, err := services.NewSupabaseUploader(utils.SupabaseConfig{
			URL:    cfg.SupabaseURL,
			Key:    cfg.SupabaseKey,
			Bucket: cfg.SupabaseBucket,
		})
		if err != nil {
			log.WithError(err).Warn("supabase unavailable")
		} else {
			providers = append(providers, up)
		}
	}
	providers = append(providers, local)

	var fallback services.Uploader
	if len(providers) > 1 {
		fallback = providers[1]
	}
	log.WithField("provider", providers[0].Name()).Info("upload storage selected")
	return services.NewUploadService(creds, providers[0], fallback, log)
}
