package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/podstream-backend/repository"
)

var ErrDatabaseUnavailable = errors.New("database unavailable")

// Database owns the store handle. The store is opened lazily and prepared
// (ping plus migration) once per process; a failed attempt is retried on the
// next Ensure call.
type Database struct {
	open func(ctx context.Context) (repository.Store, error)
	log  *logrus.Entry

	group singleflight.Group

	mu    sync.Mutex
	store repository.Store
	ready bool
}

func NewDatabase(cfg Config, log *logrus.Entry) *Database {
	return &Database{open: opener(cfg), log: log}
}

// NewDatabaseWithStore wraps an already open store.
func NewDatabaseWithStore(store repository.Store, log *logrus.Entry) *Database {
	return &Database{
		open: func(context.Context) (repository.Store, error) { return store, nil },
		log:  log,
	}
}

func opener(cfg Config) func(ctx context.Context) (repository.Store, error) {
	switch cfg.StoreDriver {
	case DriverPostgres:
		return func(ctx context.Context) (repository.Store, error) {
			return repository.NewPostgresStore(repository.PostgresOptions{
				DSN:             cfg.PostgresDSN,
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
				ConnMaxIdleTime: 10 * time.Minute,
				LogLevel:        gormLogLevel(cfg.LogLevel),
			})
		}
	case DriverMemory:
		store := repository.NewMemoryStore()
		return func(context.Context) (repository.Store, error) { return store, nil }
	default:
		return func(ctx context.Context) (repository.Store, error) {
			return repository.NewMongoStore(ctx, repository.MongoOptions{
				URI:                    cfg.MongoURI,
				Database:               cfg.MongoDB,
				MaxPoolSize:            10,
				MaxConnIdleTime:        30 * time.Second,
				ServerSelectionTimeout: 15 * time.Second,
				SocketTimeout:          45 * time.Second,
			})
		}
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug", "trace":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error", "fatal", "panic":
		return logger.Error
	}
	return logger.Silent
}

// Ensure returns a ready store, connecting and migrating on first use.
// Concurrent callers share one attempt.
func (d *Database) Ensure(ctx context.Context) (repository.Store, error) {
	if store := d.Store(); store != nil {
		return store, nil
	}
	v, err, _ := d.group.Do("ensure", func() (any, error) {
		return d.prepare(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(repository.Store), nil
}

func (d *Database) prepare(ctx context.Context) (repository.Store, error) {
	if store := d.Store(); store != nil {
		return store, nil
	}
	store, err := d.handle(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: ping: %v", ErrDatabaseUnavailable, err)
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrDatabaseUnavailable, err)
	}

	d.mu.Lock()
	if d.store == store {
		d.ready = true
	}
	d.mu.Unlock()
	d.log.Info("database connected and migrated")
	return store, nil
}

// handle returns the open store handle, opening it if needed. d.mu is only
// held to read or publish the handle.
func (d *Database) handle(ctx context.Context) (repository.Store, error) {
	d.mu.Lock()
	store := d.store
	d.mu.Unlock()
	if store != nil {
		return store, nil
	}

	v, err, _ := d.group.Do("open", func() (any, error) {
		d.mu.Lock()
		current := d.store
		d.mu.Unlock()
		if current != nil {
			return current, nil
		}
		opened, err := d.open(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
		}
		d.mu.Lock()
		d.store = opened
		d.mu.Unlock()
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(repository.Store), nil
}

// Store returns the prepared store, or nil before Ensure has succeeded.
func (d *Database) Store() repository.Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return nil
	}
	return d.store
}

// Health pings the store, opening the handle if none exists yet. It never
// runs migrations; that stays with Ensure.
func (d *Database) Health(ctx context.Context) error {
	store, err := d.handle(ctx)
	if err != nil {
		return err
	}
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	return nil
}

func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.store == nil {
		return nil
	}
	err := d.store.Close(ctx)
	d.store = nil
	d.ready = false
	return err
}
