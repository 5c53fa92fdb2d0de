package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/repository"
)

func TestCreatePodcastValidationOrder(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "creator", "c@example.com")
	ctx := context.Background()

	cases := []struct {
		in   CreatePodcastInput
		want string
	}{
		{CreatePodcastInput{Title: "Show", Description: "long description"}, "Title, description, and category are required"},
		{CreatePodcastInput{Title: " ab ", Description: "x", Category: "tech"}, "Title must be at least 3 characters long"},
		{CreatePodcastInput{Title: "Show", Description: "too short", Category: "tech"}, "Description must be at least 10 characters long"},
		{CreatePodcastInput{Title: "Show", Description: "long description", Category: "tech", FrontImage: "ftp://x"}, "Invalid image URL"},
		{CreatePodcastInput{Title: "Show", Description: "long description", Category: "tech", AudioFile: "file.mp3"}, "Invalid audio URL"},
	}
	for _, tc := range cases {
		_, err := f.catalog.CreatePodcast(ctx, u.ID, tc.in)
		assertKind(t, err, KindValidation)
		assertMessage(t, err, tc.want)
	}
}

func TestCreatePodcastDefaultsAndCategory(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "creator", "c@example.com")
	ctx := context.Background()

	first := f.podcast(t, u.ID, "Go Weekly", "Technology")
	if !strings.HasPrefix(first.FrontImage, models.PlaceholderImagePrefix) {
		t.Fatalf("expected placeholder image, got %q", first.FrontImage)
	}
	if first.AudioFile != models.DefaultAudioURL {
		t.Fatalf("expected default audio, got %q", first.AudioFile)
	}
	if first.Status != models.StatusPublished || !first.IsPublic {
		t.Fatalf("expected published public podcast, got %s/%v", first.Status, first.IsPublic)
	}

	second := f.podcast(t, u.ID, "Rust Weekly", "  technology ")
	if first.CategoryID != second.CategoryID {
		t.Fatalf("category not reused: %s vs %s", first.CategoryID, second.CategoryID)
	}
	c, err := f.store.Categories().FindByID(ctx, first.CategoryID)
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	if c.Name != "Technology" || c.Slug != "technology" {
		t.Fatalf("unexpected category %+v", c)
	}
	if len(f.notes.created) != 2 {
		t.Fatalf("expected 2 created events, got %d", len(f.notes.created))
	}
}

type slowCategories struct {
	repository.CategoryRepository
}

func (slowCategories) FindByName(ctx context.Context, _ string) (*models.Category, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type slowStore struct {
	*repository.MemoryStore
}

func (s slowStore) Categories() repository.CategoryRepository {
	return slowCategories{s.MemoryStore.Categories()}
}

func TestCreatePodcastCategoryTimeout(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "creator", "c@example.com")
	svc := NewCatalogService(StaticStore(slowStore{f.store}), nil, f.catalog.log)
	svc.categoryTimeout = 10 * time.Millisecond

	_, err := svc.CreatePodcast(context.Background(), u.ID, CreatePodcastInput{
		Title: "Show", Description: "long description", Category: "tech",
	})
	assertKind(t, err, KindTimeout)
	assertMessage(t, err, "Database query timeout. Please try again.")
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		page, limit string
		wantP       int
		wantL       int
	}{
		{"", "", 1, 10},
		{"0", "1000", 1, 100},
		{"-3", "-1", 1, 1},
		{"abc", "xyz", 1, 10},
		{"4", "25", 4, 25},
	}
	for _, tc := range cases {
		p, l := ParsePagination(tc.page, tc.limit)
		if p != tc.wantP || l != tc.wantL {
			t.Fatalf("ParsePagination(%q,%q) = %d,%d; want %d,%d", tc.page, tc.limit, p, l, tc.wantP, tc.wantL)
		}
	}
}

func TestSortKeyFallback(t *testing.T) {
	k := SortKeyFor("__proto__", "sideways")
	if k.Field != repository.SortCreatedAt || !k.Desc {
		t.Fatalf("unexpected sort key %+v", k)
	}
	k = SortKeyFor("title", "ASC")
	if k.Field != repository.SortTitle || k.Desc {
		t.Fatalf("unexpected sort key %+v", k)
	}
}

func TestListPodcastsPagingAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	for _, title := range []string{"Alpha show", "Beta show", "Gamma show"} {
		f.podcast(t, u.ID, title, "tech")
	}
	f.podcast(t, u.ID, "Cooking hour", "food")

	page, err := f.catalog.ListPodcasts(ctx, ListQuery{Page: 2, Limit: 3, SortBy: "title", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 || page.TotalPages != 2 || page.CurrentPage != 2 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].Title != "Gamma show" {
		t.Fatalf("unexpected order, got %q", page.Items[0].Title)
	}
	if page.Items[0].User == nil || page.Items[0].User.Username != "creator" {
		t.Fatalf("owner not populated: %+v", page.Items[0].User)
	}

	food, err := f.catalog.ListPodcasts(ctx, ListQuery{Category: "FOOD"})
	if err != nil || food.Total != 1 {
		t.Fatalf("category filter: total=%v err=%v", food, err)
	}

	unknown, err := f.catalog.ListPodcasts(ctx, ListQuery{Category: "nope"})
	if err != nil || unknown.Total != 0 || len(unknown.Items) != 0 {
		t.Fatalf("unknown category should be empty: %+v err=%v", unknown, err)
	}

	literal, err := f.catalog.ListPodcasts(ctx, ListQuery{Search: ".*"})
	if err != nil || literal.Total != 0 {
		t.Fatalf("search must be literal: %+v err=%v", literal, err)
	}

	hits, err := f.catalog.ListPodcasts(ctx, ListQuery{Search: "SHOW"})
	if err != nil || hits.Total != 3 {
		t.Fatalf("search: %+v err=%v", hits, err)
	}
}

func TestListPodcastsHidesPrivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	f.podcast(t, u.ID, "Public show", "tech")
	draft := &models.Podcast{Title: "Draft show", OwnerID: u.ID, Status: models.StatusDraft, IsPublic: true}
	if err := f.store.Podcasts().Create(ctx, draft); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, _ := f.catalog.ListPodcasts(ctx, ListQuery{})
	if page.Total != 1 {
		t.Fatalf("expected only the public podcast, got %d", page.Total)
	}
	legacy, _ := f.catalog.ListPodcasts(ctx, ListQuery{Legacy: true})
	if legacy.Total != 2 {
		t.Fatalf("legacy listing should include drafts, got %d", legacy.Total)
	}
	owned, _ := f.catalog.ListByOwner(ctx, u.ID)
	if len(owned) != 2 {
		t.Fatalf("owner listing should include every status, got %d", len(owned))
	}
}

func TestGetPodcastCountsViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	p := f.podcast(t, u.ID, "Counted", "tech")

	const n = 5
	var last *models.PodcastView
	for i := 0; i < n; i++ {
		v, err := f.catalog.GetPodcast(ctx, p.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		last = v
	}
	if last.Views != n {
		t.Fatalf("expected %d views, got %d", n, last.Views)
	}

	_, err := f.catalog.GetPodcast(ctx, "missing")
	assertKind(t, err, KindNotFound)
	assertMessage(t, err, "Podcast not found")
}

func TestToggleLikeTwiceRestores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	fan := f.register(t, "thefan", "f@example.com")
	p := f.podcast(t, u.ID, "Liked", "tech")

	liked, count, err := f.catalog.ToggleLike(ctx, p.ID, fan.ID)
	if err != nil || !liked || count != 1 {
		t.Fatalf("first toggle: liked=%v count=%d err=%v", liked, count, err)
	}
	liked, count, err = f.catalog.ToggleLike(ctx, p.ID, fan.ID)
	if err != nil || liked || count != 0 {
		t.Fatalf("second toggle: liked=%v count=%d err=%v", liked, count, err)
	}
	stored, _ := f.store.Podcasts().FindByID(ctx, p.ID)
	if len(stored.Likes) != 0 || stored.LikeCount != 0 {
		t.Fatalf("like state not restored: %+v", stored.Likes)
	}
	if len(f.notes.likes) != 2 {
		t.Fatalf("expected 2 like events, got %d", len(f.notes.likes))
	}

	_, _, err = f.catalog.ToggleLike(ctx, "missing", fan.ID)
	assertKind(t, err, KindNotFound)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	p := f.podcast(t, u.ID, "Discussed", "tech")

	_, err := f.catalog.AddComment(ctx, p.ID, u.ID, "   \t ")
	assertKind(t, err, KindValidation)
	assertMessage(t, err, "Comment text is required")

	c, err := f.catalog.AddComment(ctx, p.ID, u.ID, "  great episode ")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if c.Text != "great episode" || c.User == nil || c.User.Username != "creator" || c.Timestamp.IsZero() {
		t.Fatalf("unexpected comment %+v", c)
	}
	if len(f.notes.comments) != 1 {
		t.Fatal("comment event not emitted")
	}

	_, err = f.catalog.AddComment(ctx, "missing", u.ID, "hello")
	assertKind(t, err, KindNotFound)
}

func TestListByCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	f.podcast(t, u.ID, "Old one", "Science")
	f.podcast(t, u.ID, "New one", "science")

	groups, err := f.catalog.ListByCategory(ctx, "SCIENCE")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(groups) != 1 || groups[0].CategoryName != "Science" || len(groups[0].Podcasts) != 2 {
		t.Fatalf("unexpected groups %+v", groups)
	}

	none, err := f.catalog.ListByCategory(ctx, "history")
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown category: %+v err=%v", none, err)
	}
}

func TestSearchAndSuggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "golanger", "g@example.com")
	popular := f.podcast(t, u.ID, "Go in production", "golang")
	f.podcast(t, u.ID, "Go basics", "golang")
	for i := 0; i < 3; i++ {
		if _, err := f.catalog.GetPodcast(ctx, popular.ID); err != nil {
			t.Fatalf("get: %v", err)
		}
	}

	_, err := f.catalog.Search(ctx, "  ", "", 0)
	assertMessage(t, err, "Search query is required")

	results, err := f.catalog.Search(ctx, "go", "", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 || results[0].ID != popular.ID {
		t.Fatalf("expected most viewed first, got %+v", results)
	}

	_, err = f.catalog.Suggestions(ctx, "g", 0)
	assertMessage(t, err, "Query must be at least 2 characters")

	s, err := f.catalog.Suggestions(ctx, "go", 0)
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(s.Podcasts) != 2 || len(s.Users) != 1 || len(s.Categories) != 1 {
		t.Fatalf("unexpected suggestions %+v", s)
	}
	if s.Users[0].Type != "user" || s.Categories[0].Type != "category" || s.Podcasts[0].Type != "podcast" {
		t.Fatalf("unexpected suggestion types %+v", s)
	}
}

func TestStoreUnavailable(t *testing.T) {
	svc := NewCatalogService(failingSource{}, nil, newFixture(t).catalog.log)
	_, err := svc.ListPodcasts(context.Background(), ListQuery{})
	assertKind(t, err, KindUnavailable)
}

type failingSource struct{}

func (failingSource) Ensure(context.Context) (repository.Store, error) {
	return nil, errors.New("connection refused")
}
