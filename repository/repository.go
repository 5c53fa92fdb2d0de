// Package repository holds the persistence layer for users, categories and
// podcasts. Three backends implement Store: MongoDB (primary), PostgreSQL via
// gorm, and an in-memory store used by tests and local development.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vnkhanh/podstream-backend/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrInvalidID = errors.New("invalid id")
)

type Visibility int

const (
	// VisibilityPublic matches published podcasts with isPublic set.
	VisibilityPublic Visibility = iota
	// VisibilityNotArchived is the looser legacy listing filter.
	VisibilityNotArchived
	VisibilityAll
)

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortTitle     SortField = "title"
	SortViews     SortField = "views"
	SortLikes     SortField = "likes"
)

type SortKey struct {
	Field SortField
	Desc  bool
}

// PodcastFilter selects podcasts. When RestrictCategory is set and
// CategoryIDs is empty nothing matches.
type PodcastFilter struct {
	Visibility       Visibility
	RestrictCategory bool
	CategoryIDs      []string
	OwnerID          string
	LikedBy          string
	Search           string
	CreatedAfter     time.Time
}

func (f PodcastFilter) matchesNothing() bool {
	return f.RestrictCategory && len(f.CategoryIDs) == 0
}

type PodcastQuery struct {
	PodcastFilter
	Sort  []SortKey
	Skip  int64
	Limit int64 // 0 means no limit
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	// ToggleFollow flips the follow edge from followerID to followeeID and
	// reports whether the edge exists afterwards.
	ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error)
	SearchByUsername(ctx context.Context, query string, limit int64) ([]models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id string) (*models.Category, error)
	// FindByName looks up by the normalized name.
	FindByName(ctx context.Context, normalizedName string) (*models.Category, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	SearchByName(ctx context.Context, query string, limit int64) ([]models.Category, error)
	Count(ctx context.Context) (int64, error)
}

type PodcastRepository interface {
	Create(ctx context.Context, podcast *models.Podcast) error
	FindByID(ctx context.Context, id string) (*models.Podcast, error)
	Find(ctx context.Context, query PodcastQuery) ([]models.Podcast, error)
	Count(ctx context.Context, filter PodcastFilter) (int64, error)
	// IncrementViews adds one view and returns the updated podcast.
	IncrementViews(ctx context.Context, id string) (*models.Podcast, error)
	// ToggleLike removes userID from the likes set if present, adds it
	// otherwise, and returns the resulting state and like count.
	ToggleLike(ctx context.Context, podcastID, userID string) (bool, int64, error)
	AddComment(ctx context.Context, podcastID string, comment *models.Comment) error
}

type Store interface {
	Users() UserRepository
	Categories() CategoryRepository
	Podcasts() PodcastRepository
	Ping(ctx context.Context) error
	// Migrate creates indexes or tables. It is safe to call repeatedly.
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}
