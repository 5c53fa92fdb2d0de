package services

import (
	"context"
	"errors"
	"testing"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/repository"
	"github.com/vnkhanh/podstream-backend/utils"
)

type fixture struct {
	store     *repository.MemoryStore
	auth      *AuthService
	catalog   *CatalogService
	accounts  *AccountService
	analytics *AnalyticsService
	notes     *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	src := StaticStore(store)
	log := utils.DiscardLogger()
	notes := &recordingNotifier{}
	return &fixture{
		store:     store,
		auth:      NewAuthService(src, "test-secret", log),
		catalog:   NewCatalogService(src, notes, log),
		accounts:  NewAccountService(src, log),
		analytics: NewAnalyticsService(src, log),
		notes:     notes,
	}
}

func (f *fixture) register(t *testing.T, username, email string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: "secret123"})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func (f *fixture) podcast(t *testing.T, ownerID, title, category string) *models.Podcast {
	t.Helper()
	p, err := f.catalog.CreatePodcast(context.Background(), ownerID, CreatePodcastInput{
		Title:       title,
		Description: "a long enough description",
		Category:    category,
	})
	if err != nil {
		t.Fatalf("create podcast %s: %v", title, err)
	}
	return p
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, got, err)
	}
}

func assertMessage(t *testing.T, err error, want string) {
	t.Helper()
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if se.Message != want {
		t.Fatalf("expected message %q, got %q", want, se.Message)
	}
}

type recordingNotifier struct {
	likes    []bool
	comments []models.CommentView
	created  []string
}

func (n *recordingNotifier) PodcastLiked(_ string, liked bool, _ int64) {
	n.likes = append(n.likes, liked)
}

func (n *recordingNotifier) CommentAdded(_ string, c models.CommentView) {
	n.comments = append(n.comments, c)
}

func (n *recordingNotifier) PodcastCreated(id, _ string) {
	n.created = append(n.created, id)
}
