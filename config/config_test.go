package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "JWT_SECRET", "MAX_BODY_BYTES", "CORS_ALLOWED_ORIGINS", "APP_ENV", "DATABASE_URL", "DB_HOST"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "5000" {
		t.Errorf("port = %s", cfg.Port)
	}
	if cfg.StoreDriver != DriverMongo {
		t.Errorf("driver = %s", cfg.StoreDriver)
	}
	if cfg.MaxBodyBytes != 4718592 {
		t.Errorf("max body = %d", cfg.MaxBodyBytes)
	}
	if len(cfg.AllowedOrigins) != len(DefaultAllowedOrigins) {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.JWTSecret != "" || cfg.UsingDevSecret {
		t.Error("mongo driver must not get a dev secret")
	}
}

func TestLoadDevSecretForMemoryDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "development")
	cfg := Load()
	if !cfg.UsingDevSecret || cfg.JWTSecret == "" {
		t.Fatal("expected development secret")
	}

	t.Setenv("APP_ENV", "production")
	if cfg := Load(); cfg.JWTSecret != "" {
		t.Fatal("production must never get the development secret")
	}
}

func TestPostgresDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "pod")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "podstream")
	t.Setenv("DB_PORT", "")
	dsn := Load().PostgresDSN
	for _, want := range []string{"host=db", "user=pod", "dbname=podstream", "port=5432"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{StoreDriver: DriverMongo, MaxBodyBytes: 10, MaxUploadBytes: 20}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"JWT_SECRET", "MONGO_URI"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %s", err, want)
		}
	}

	cfg = Config{StoreDriver: DriverMemory, JWTSecret: "s", MaxBodyBytes: 10, MaxUploadBytes: 20, AdminEmail: "a@b.c"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ADMIN_PASSWORD") {
		t.Fatalf("expected admin pairing error, got %v", err)
	}

	cfg.AdminPassword = "secret1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,c")
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("got %v", got)
	}
}
