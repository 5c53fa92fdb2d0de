package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	devJWTSecret = "podstream-dev-secret-change-me"
)

var DefaultAllowedOrigins = []string{
	"https://frontend-khaki-ten-90.vercel.app",
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:5000",
}

type Config struct {
	Port    string
	AppEnv  string
	Release string

	StoreDriver string
	MongoURI    string
	MongoDB     string
	PostgresDSN string

	JWTSecret        string
	UsingDevSecret   bool
	AllowedOrigins   []string
	MaxBodyBytes     int64
	MaxUploadBytes   int64
	UploadsDir       string
	PublicBaseURL    string
	RateLimitEnabled bool
	RedisURL         string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	AdminEmail    string
	AdminUsername string
	AdminPassword string

	LogLevel  string
	SentryDSN string
}

// LoadEnvFile loads .env when present. It returns the error so the caller can
// log it; a missing file is normal in deployed environments.
func LoadEnvFile() error {
	return godotenv.Load()
}

// Load reads the configuration from the environment.
func Load() Config {
	cfg := Config{
		Port:    getEnv("PORT", "5000"),
		AppEnv:  getEnv("APP_ENV", "development"),
		Release: getEnv("RELEASE", "dev"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getEnv("MONGO_DB", "podstream"),
		PostgresDSN: postgresDSN(),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", strings.Join(DefaultAllowedOrigins, ","))),
		MaxBodyBytes:     getInt64("MAX_BODY_BYTES", 4718592),
		MaxUploadBytes:   getInt64("MAX_UPLOAD_BYTES", 100<<20),
		UploadsDir:       getEnv("UPLOADS_DIR", "uploads"),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		RateLimitEnabled: getBool("RATE_LIMIT_ENABLED", true),
		RedisURL:         os.Getenv("REDIS_URL"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),
		SupabaseBucket: getEnv("SUPABASE_BUCKET", "uploads"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		SentryDSN: os.Getenv("SENTRY_DSN"),
	}
	if cfg.JWTSecret == "" && cfg.StoreDriver == DriverMemory && !cfg.IsProduction() {
		cfg.JWTSecret = devJWTSecret
		cfg.UsingDevSecret = true
	}
	return cfg
}

// TempUploadDir holds multipart uploads until they reach a storage provider.
func (c Config) TempUploadDir() string {
	return filepath.Join(os.TempDir(), "podstream-uploads")
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate reports every missing or inconsistent value at once.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("DATABASE_URL or DB_HOST/DB_USER/DB_NAME is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	if c.MaxUploadBytes < c.MaxBodyBytes {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be at least MAX_BODY_BYTES"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

func (c Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c Config) SupabaseConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		host,
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Timeouts for the HTTP server and upstream calls.
const (
	ReadTimeout      = 15 * time.Second
	WriteTimeout     = 30 * time.Second
	IdleTimeout      = 60 * time.Second
	ShutdownTimeout  = 10 * time.Second
	CategoryTimeout  = 5 * time.Second
	UploadTimeout    = 2 * time.Minute
	HealthPingBudget = 3 * time.Second
)
