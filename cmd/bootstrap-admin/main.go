// Command bootstrap-admin creates or promotes an administrator account in the
// configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vnkhanh/podstream-backend/config"
	"github.com/vnkhanh/podstream-backend/services"
	"github.com/vnkhanh/podstream-backend/utils"
)

func main() {
	_ = config.LoadEnvFile()
	cfg := config.Load()

	var (
		email    string
		username string
		password string
	)
	flag.StringVar(&cfg.StoreDriver, "driver", cfg.StoreDriver, "Store driver: mongo or postgres")
	flag.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "Mongo connection string")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "Postgres connection string")
	flag.StringVar(&email, "email", cfg.AdminEmail, "Email address for the admin account")
	flag.StringVar(&username, "username", cfg.AdminUsername, "Username for the admin account")
	flag.StringVar(&password, "password", cfg.AdminPassword, "Password for the admin account")
	flag.Parse()

	if cfg.StoreDriver == config.DriverMemory {
		fatalf("the memory driver does not persist; use mongo or postgres")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if len(password) < 6 {
		fatalf("--password must be at least 6 characters")
	}
	if cfg.JWTSecret == "" {
		// Sessions are never issued here.
		cfg.JWTSecret = "bootstrap"
	}
	if err := cfg.Validate(); err != nil {
		fatalf("config: %v", err)
	}

	log := utils.NewLogger("podstream-bootstrap-admin", cfg.LogLevel)
	db := config.NewDatabase(cfg, log)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Close(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	auth := services.NewAuthService(db, cfg.JWTSecret, log)
	created, err := auth.SeedAdmin(ctx, email, username, password)
	if err != nil {
		fatalf("bootstrap admin: %v", err)
	}

	state := "updated"
	if created {
		state = "created"
	}
	fmt.Printf("Admin user %s %s successfully.\n", services.NormalizeEmail(email), state)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
