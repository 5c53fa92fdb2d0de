package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/repository"
)

const (
	DefaultPage       = 1
	DefaultPageLimit  = 10
	MaxPageLimit      = 100
	maxCommentLen     = 1000
	maxTitleLen       = 200
	minCategoryLen    = 2
	maxCategoryLen    = 50
	categoryLookupCap = 5 * time.Second
)

// Notifier receives engagement events after they are stored. The websocket
// hub implements it.
type Notifier interface {
	PodcastLiked(podcastID string, liked bool, likeCount int64)
	CommentAdded(podcastID string, comment models.CommentView)
	PodcastCreated(podcastID, title string)
}

type nopNotifier struct{}

func (nopNotifier) PodcastLiked(string, bool, int64)        {}
func (nopNotifier) CommentAdded(string, models.CommentView) {}
func (nopNotifier) PodcastCreated(string, string)           {}

type CatalogService struct {
	src             StoreSource
	log             *logrus.Entry
	notify          Notifier
	categoryTimeout time.Duration
	now             func() time.Time
}

func NewCatalogService(src StoreSource, notify Notifier, log *logrus.Entry) *CatalogService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &CatalogService{
		src:             src,
		log:             log,
		notify:          notify,
		categoryTimeout: categoryLookupCap,
		now:             time.Now,
	}
}

type CreatePodcastInput struct {
	Title              string
	Description        string
	Category           string
	FrontImage         string
	AudioFile          string
	FrontImageMetadata *models.FileMetadata
	AudioFileMetadata  *models.FileMetadata
	Tags               []string
	FileSize           int64
	Duration           float64
}

func validLocator(u string) bool {
	return u == "" || strings.HasPrefix(u, "http") || strings.HasPrefix(u, "/uploads/")
}

func (in *CreatePodcastInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.FrontImage = strings.TrimSpace(in.FrontImage)
	in.AudioFile = strings.TrimSpace(in.AudioFile)

	if in.Title == "" || in.Description == "" || in.Category == "" {
		return Validation("Title, description, and category are required")
	}
	if len(in.Title) < 3 {
		return Validation("Title must be at least 3 characters long")
	}
	if len(in.Title) > maxTitleLen {
		return Validation("Title cannot exceed 200 characters")
	}
	if len(in.Description) < 10 {
		return Validation("Description must be at least 10 characters long")
	}
	if n := len(in.Category); n < minCategoryLen || n > maxCategoryLen {
		return Validation("Category name must be between 2 and 50 characters")
	}
	if !validLocator(in.FrontImage) {
		return Validation("Invalid image URL")
	}
	if !validLocator(in.AudioFile) {
		return Validation("Invalid audio URL")
	}
	in.Tags = normalizeTags(in.Tags)
	return nil
}

func normalizeTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// ValidateCreate runs the create validation without touching the store.
func ValidateCreate(in CreatePodcastInput) error {
	return in.normalize()
}

func (s *CatalogService) CreatePodcast(ctx context.Context, ownerID string, in CreatePodcastInput) (*models.Podcast, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	category, err := s.resolveCategory(ctx, store.Categories(), in.Category)
	if err != nil {
		return nil, err
	}

	if in.FrontImage == "" {
		in.FrontImage = PlaceholderURL(KindImage)
	}
	if in.AudioFile == "" {
		in.AudioFile = PlaceholderURL(KindAudio)
	}
	podcast := &models.Podcast{
		Title:              in.Title,
		Description:        in.Description,
		OwnerID:            ownerID,
		CategoryID:         category.ID,
		FrontImage:         in.FrontImage,
		AudioFile:          in.AudioFile,
		FrontImageMetadata: in.FrontImageMetadata,
		AudioFileMetadata:  in.AudioFileMetadata,
		Likes:              []string{},
		Comments:           []models.Comment{},
		Status:             models.StatusPublished,
		IsPublic:           true,
		Tags:               in.Tags,
		Duration:           in.Duration,
		FileSize:           in.FileSize,
	}
	if err := store.Podcasts().Create(ctx, podcast); err != nil {
		return nil, storeErr(err, "User not found")
	}

	engagementEvents.WithLabelValues("podcast_created").Inc()
	s.notify.PodcastCreated(podcast.ID, podcast.Title)
	s.log.WithFields(logrus.Fields{"podcast_id": podcast.ID, "user_id": ownerID}).Info("podcast created")
	return podcast, nil
}

// resolveCategory finds the category by normalized name or creates it. The
// lookup and creation share one deadline.
func (s *CatalogService) resolveCategory(ctx context.Context, categories repository.CategoryRepository, name string) (*models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, s.categoryTimeout)
	defer cancel()

	timeout := func(err error) error {
		return Timeout("Database query timeout. Please try again.", err)
	}
	normalized := models.NormalizeCategoryName(name)

	found, err := categories.FindByName(ctx, normalized)
	if err == nil {
		return found, nil
	}
	if ctx.Err() != nil {
		return nil, timeout(ctx.Err())
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, "Category not found")
	}

	created := &models.Category{
		Name:           name,
		NormalizedName: normalized,
		Slug:           categorySlug(name),
		Color:          models.DefaultCategoryColor,
		IsActive:       true,
	}
	if err := categories.Create(ctx, created); err != nil {
		if ctx.Err() != nil {
			return nil, timeout(ctx.Err())
		}
		if errors.Is(err, repository.ErrDuplicate) {
			// Created concurrently by another request.
			if found, ferr := categories.FindByName(ctx, normalized); ferr == nil {
				return found, nil
			}
		}
		return nil, storeErr(err, "Category not found")
	}
	return created, nil
}

func categorySlug(name string) string {
	if s := slug.Make(name); s != "" {
		return s
	}
	return "category-" + uuid.NewString()[:8]
}

type ListQuery struct {
	Page      int
	Limit     int
	Category  string
	Search    string
	SortBy    string
	SortOrder string
	// Legacy widens visibility to every non-archived podcast.
	Legacy bool
}

type Page struct {
	Items       []models.PodcastView
	Total       int64
	TotalPages  int64
	CurrentPage int
}

// ParsePagination reads raw page and limit values. Non-numeric values fall
// back to the defaults, numeric ones are clamped.
func ParsePagination(page, limit string) (int, int) {
	p, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil || p == 0 {
		p = DefaultPage
	}
	l, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || l == 0 {
		l = DefaultPageLimit
	}
	return clampPage(p), clampLimit(l)
}

func clampPage(p int) int {
	if p < 1 {
		return 1
	}
	return p
}

func clampLimit(l int) int {
	switch {
	case l < 1:
		return 1
	case l > MaxPageLimit:
		return MaxPageLimit
	}
	return l
}

var sortFields = map[string]repository.SortField{
	"createdAt": repository.SortCreatedAt,
	"title":     repository.SortTitle,
	"views":     repository.SortViews,
	"likes":     repository.SortLikes,
}

// SortKeyFor validates sortBy and sortOrder; unknown values fall back to
// createdAt descending.
func SortKeyFor(sortBy, sortOrder string) repository.SortKey {
	field, ok := sortFields[sortBy]
	if !ok {
		field = repository.SortCreatedAt
	}
	return repository.SortKey{Field: field, Desc: !strings.EqualFold(sortOrder, "asc")}
}

// categoryFilter narrows f to the category with the given name. An unknown
// name leaves a filter that matches nothing.
func categoryFilter(ctx context.Context, store repository.Store, f *repository.PodcastFilter, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	f.RestrictCategory = true
	c, err := store.Categories().FindByName(ctx, models.NormalizeCategoryName(name))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	f.CategoryIDs = []string{c.ID}
	return nil
}

func (s *CatalogService) ListPodcasts(ctx context.Context, q ListQuery) (*Page, error) {
	page := clampPage(q.Page)
	limit := clampLimit(q.Limit)
	if q.Limit == 0 {
		limit = DefaultPageLimit
	}

	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	filter := repository.PodcastFilter{
		Visibility: repository.VisibilityPublic,
		Search:     strings.TrimSpace(q.Search),
	}
	if q.Legacy {
		filter.Visibility = repository.VisibilityNotArchived
	}
	if err := categoryFilter(ctx, store, &filter, q.Category); err != nil {
		return nil, storeErr(err, "Category not found")
	}

	total, err := store.Podcasts().Count(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	items, err := store.Podcasts().Find(ctx, repository.PodcastQuery{
		PodcastFilter: filter,
		Sort:          []repository.SortKey{SortKeyFor(q.SortBy, q.SortOrder)},
		Skip:          int64((page - 1) * limit),
		Limit:         int64(limit),
	})
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	views, err := populate(ctx, store, items)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	return &Page{
		Items:       views,
		Total:       total,
		TotalPages:  int64(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
	}, nil
}

// GetPodcast counts a view and returns the updated podcast.
func (s *CatalogService) GetPodcast(ctx context.Context, id string) (*models.PodcastView, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	p, err := store.Podcasts().IncrementViews(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	view, err := populateOne(ctx, store, p)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	return view, nil
}

type CategoryPodcasts struct {
	CategoryName string               `json:"categoryName"`
	Slug         string               `json:"slug"`
	Podcasts     []models.PodcastView `json:"podcasts"`
}

func (s *CatalogService) ListByCategory(ctx context.Context, name string) ([]CategoryPodcasts, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	out := []CategoryPodcasts{}
	c, err := store.Categories().FindByName(ctx, models.NormalizeCategoryName(name))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, nil
		}
		return nil, storeErr(err, "Category not found")
	}
	items, err := store.Podcasts().Find(ctx, repository.PodcastQuery{
		PodcastFilter: repository.PodcastFilter{
			Visibility:       repository.VisibilityPublic,
			RestrictCategory: true,
			CategoryIDs:      []string{c.ID},
		},
		Sort: []repository.SortKey{{Field: repository.SortCreatedAt, Desc: true}},
	})
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	views, err := populate(ctx, store, items)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	return append(out, CategoryPodcasts{CategoryName: c.Name, Slug: c.Slug, Podcasts: views}), nil
}

// ListByOwner returns every podcast of the owner regardless of status.
func (s *CatalogService) ListByOwner(ctx context.Context, ownerID string) ([]models.PodcastView, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	items, err := store.Podcasts().Find(ctx, repository.PodcastQuery{
		PodcastFilter: repository.PodcastFilter{Visibility: repository.VisibilityAll, OwnerID: ownerID},
		Sort:          []repository.SortKey{{Field: repository.SortCreatedAt, Desc: true}},
	})
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	views, err := populate(ctx, store, items)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	return views, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	categories, err := store.Categories().List(ctx)
	if err != nil {
		return nil, storeErr(err, "Category not found")
	}
	return categories, nil
}

func (s *CatalogService) ToggleLike(ctx context.Context, podcastID, userID string) (bool, int64, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return false, 0, err
	}
	liked, count, err := store.Podcasts().ToggleLike(ctx, podcastID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidID) {
			return false, 0, Validation("Invalid podcast ID")
		}
		return false, 0, storeErr(err, "Podcast not found")
	}
	event := "unlike"
	if liked {
		event = "like"
	}
	engagementEvents.WithLabelValues(event).Inc()
	s.notify.PodcastLiked(podcastID, liked, count)
	return liked, count, nil
}

func (s *CatalogService) AddComment(ctx context.Context, podcastID, userID, text string) (*models.CommentView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Validation("Comment text is required")
	}
	if len(text) > maxCommentLen {
		return nil, Validation("Comment cannot exceed 1000 characters")
	}
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{UserID: userID, Text: text, Timestamp: s.now().UTC()}
	if err := store.Podcasts().AddComment(ctx, podcastID, comment); err != nil {
		return nil, storeErr(err, "Podcast not found")
	}

	users := map[string]models.UserSummary{}
	if u, err := store.Users().FindByID(ctx, userID); err == nil {
		users[u.ID] = u.Summary()
	}
	view := commentView(*comment, users)
	engagementEvents.WithLabelValues("comment").Inc()
	s.notify.CommentAdded(podcastID, view)
	return &view, nil
}

// Search matches public podcasts by title, description or tag, most viewed first.
func (s *CatalogService) Search(ctx context.Context, query, category string, limit int) ([]models.PodcastView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, Validation("Search query is required")
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	filter := repository.PodcastFilter{Visibility: repository.VisibilityPublic, Search: query}
	if err := categoryFilter(ctx, store, &filter, category); err != nil {
		return nil, storeErr(err, "Category not found")
	}
	items, err := store.Podcasts().Find(ctx, repository.PodcastQuery{
		PodcastFilter: filter,
		Sort: []repository.SortKey{
			{Field: repository.SortViews, Desc: true},
			{Field: repository.SortCreatedAt, Desc: true},
		},
		Limit: int64(clampLimit(limit)),
	})
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	views, err := populate(ctx, store, items)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	return views, nil
}

// Suggestions returns autocomplete entries for podcasts, users and categories.
func (s *CatalogService) Suggestions(ctx context.Context, query string, limit int) (*models.Suggestions, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, Validation("Query must be at least 2 characters")
	}
	if limit == 0 {
		limit = 5
	}
	limit = clampLimit(limit)
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}

	podcasts, err := store.Podcasts().Find(ctx, repository.PodcastQuery{
		PodcastFilter: repository.PodcastFilter{Visibility: repository.VisibilityPublic, Search: query},
		Sort:          []repository.SortKey{{Field: repository.SortViews, Desc: true}},
		Limit:         int64(limit),
	})
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	users, err := store.Users().SearchByUsername(ctx, query, int64(limit))
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	categories, err := store.Categories().SearchByName(ctx, query, int64(limit))
	if err != nil {
		return nil, storeErr(err, "Category not found")
	}

	out := &models.Suggestions{
		Podcasts:   []models.Suggestion{},
		Users:      []models.Suggestion{},
		Categories: []models.Suggestion{},
	}
	lower := strings.ToLower(query)
	for _, p := range podcasts {
		// Search also matches descriptions and tags; suggestions are titles only.
		if strings.Contains(strings.ToLower(p.Title), lower) {
			out.Podcasts = append(out.Podcasts, models.Suggestion{Type: "podcast", Title: p.Title, ID: p.ID})
		}
	}
	for _, u := range users {
		out.Users = append(out.Users, models.Suggestion{Type: "user", Title: u.Username, ID: u.ID, Avatar: u.Profile.Avatar})
	}
	for _, c := range categories {
		out.Categories = append(out.Categories, models.Suggestion{Type: "category", Title: c.Name, ID: c.ID, Color: c.Color})
	}
	return out, nil
}
