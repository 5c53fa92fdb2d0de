package services

import (
	"context"
	"errors"

	"github.com/vnkhanh/podstream-backend/repository"
)

// StoreSource hands out a ready store. config.Database implements it.
type StoreSource interface {
	Ensure(ctx context.Context) (repository.Store, error)
}

type staticSource struct{ store repository.Store }

func (s staticSource) Ensure(context.Context) (repository.Store, error) { return s.store, nil }

// StaticStore wraps an open store as a StoreSource.
func StaticStore(store repository.Store) StoreSource {
	return staticSource{store}
}

func openStore(ctx context.Context, src StoreSource) (repository.Store, error) {
	store, err := src.Ensure(ctx)
	if err != nil {
		return nil, Unavailable("Database connection failed", err)
	}
	return store, nil
}

// storeErr converts repository sentinels into service errors. notFound is the
// client message used for ErrNotFound and ErrInvalidID.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidID):
		return NotFound(notFound)
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout("Database query timeout. Please try again.", err)
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return Internal("Internal server error", err)
}
