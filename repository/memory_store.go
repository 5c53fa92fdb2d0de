package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/podstream-backend/models"
)

// MemoryStore keeps everything in process memory. Values are copied on the
// way in and out so callers never share slices with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	categories map[string]*models.Category
	podcasts   map[string]*models.Podcast
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*models.User),
		categories: make(map[string]*models.Category),
		podcasts:   make(map[string]*models.Podcast),
		now:        time.Now,
	}
}

func (s *MemoryStore) Users() UserRepository             { return memoryUsers{s} }
func (s *MemoryStore) Categories() CategoryRepository    { return memoryCategories{s} }
func (s *MemoryStore) Podcasts() PodcastRepository       { return memoryPodcasts{s} }
func (s *MemoryStore) Ping(ctx context.Context) error    { return ctx.Err() }
func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }
func (s *MemoryStore) Close(ctx context.Context) error   { return nil }

func (s *MemoryStore) followersOf(id string) []string {
	followers := []string{}
	for _, u := range s.users {
		if containsString(u.Following, id) {
			followers = append(followers, u.ID)
		}
	}
	sort.Strings(followers)
	return followers
}

func (s *MemoryStore) userCopy(u *models.User) *models.User {
	out := *u
	out.Following = append([]string{}, u.Following...)
	out.Followers = s.followersOf(u.ID)
	return &out
}

func copyPodcast(p *models.Podcast) *models.Podcast {
	out := *p
	out.Likes = append([]string{}, p.Likes...)
	out.Comments = append([]models.Comment{}, p.Comments...)
	out.Tags = append([]string{}, p.Tags...)
	return &out
}

// ---- users ----

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Following == nil {
		user.Following = []string{}
	}
	stored := *user
	stored.Following = append([]string{}, user.Following...)
	stored.Followers = nil
	r.s.users[user.ID] = &stored
	user.Followers = []string{}
	return nil
}

func (r memoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.s.userCopy(u), nil
}

func (r memoryUsers) findBy(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return r.s.userCopy(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Email == email })
}

func (r memoryUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Username == username })
}

func (r memoryUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range uniqueStrings(ids) {
		if u, ok := r.s.users[id]; ok {
			out = append(out, *r.s.userCopy(u))
		}
	}
	return out, nil
}

func (r memoryUsers) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	for _, u := range r.s.users {
		if u.ID != user.ID && (u.Email == user.Email || u.Username == user.Username) {
			return ErrDuplicate
		}
	}
	user.UpdatedAt = r.s.now()
	stored := *user
	stored.Following = existing.Following
	stored.Followers = nil
	r.s.users[user.ID] = &stored
	return nil
}

func (r memoryUsers) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	follower, ok := r.s.users[followerID]
	if !ok {
		return false, ErrNotFound
	}
	if _, ok := r.s.users[followeeID]; !ok {
		return false, ErrNotFound
	}
	if containsString(follower.Following, followeeID) {
		follower.Following = removeString(follower.Following, followeeID)
		return false, nil
	}
	follower.Following = append(follower.Following, followeeID)
	return true, nil
}

func (r memoryUsers) SearchByUsername(ctx context.Context, query string, limit int64) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []models.User{}
	for _, u := range r.s.users {
		if u.IsActive && containsFold(u.Username, query) {
			out = append(out, *r.s.userCopy(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return truncate(out, limit), nil
}

func (r memoryUsers) List(ctx context.Context) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *r.s.userCopy(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memoryUsers) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

// ---- categories ----

type memoryCategories struct{ s *MemoryStore }

func (r memoryCategories) Create(ctx context.Context, category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.categories {
		if c.NormalizedName == category.NormalizedName || c.Slug == category.Slug {
			return ErrDuplicate
		}
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := r.s.now()
	category.CreatedAt = now
	category.UpdatedAt = now
	stored := *category
	r.s.categories[category.ID] = &stored
	return nil
}

func (r memoryCategories) FindByID(ctx context.Context, id string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r memoryCategories) FindByName(ctx context.Context, normalizedName string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.categories {
		if c.NormalizedName == normalizedName {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryCategories) FindByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Category, 0, len(ids))
	for _, id := range uniqueStrings(ids) {
		if c, ok := r.s.categories[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r memoryCategories) sorted(match func(*models.Category) bool) []models.Category {
	out := []models.Category{}
	for _, c := range r.s.categories {
		if match(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r memoryCategories) List(ctx context.Context) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(*models.Category) bool { return true }), nil
}

func (r memoryCategories) SearchByName(ctx context.Context, query string, limit int64) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.sorted(func(c *models.Category) bool { return c.IsActive && containsFold(c.Name, query) })
	return truncate(out, limit), nil
}

func (r memoryCategories) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.categories)), nil
}

// ---- podcasts ----

type memoryPodcasts struct{ s *MemoryStore }

func (r memoryPodcasts) Create(ctx context.Context, podcast *models.Podcast) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if podcast.ID == "" {
		podcast.ID = uuid.NewString()
	}
	now := r.s.now()
	if podcast.CreatedAt.IsZero() {
		podcast.CreatedAt = now
	}
	podcast.UpdatedAt = now
	if podcast.Likes == nil {
		podcast.Likes = []string{}
	}
	if podcast.Comments == nil {
		podcast.Comments = []models.Comment{}
	}
	if podcast.Tags == nil {
		podcast.Tags = []string{}
	}
	podcast.LikeCount = int64(len(podcast.Likes))
	r.s.podcasts[podcast.ID] = copyPodcast(podcast)
	return nil
}

func (r memoryPodcasts) FindByID(ctx context.Context, id string) (*models.Podcast, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.podcasts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPodcast(p), nil
}

func (r memoryPodcasts) matching(filter PodcastFilter) []models.Podcast {
	out := []models.Podcast{}
	if filter.matchesNothing() {
		return out
	}
	for _, p := range r.s.podcasts {
		if matchPodcast(p, filter) {
			out = append(out, *copyPodcast(p))
		}
	}
	return out
}

func (r memoryPodcasts) Find(ctx context.Context, query PodcastQuery) ([]models.Podcast, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.matching(query.PodcastFilter)
	sortPodcasts(out, query.Sort)
	if query.Skip > 0 {
		if query.Skip >= int64(len(out)) {
			return []models.Podcast{}, nil
		}
		out = out[query.Skip:]
	}
	return truncate(out, query.Limit), nil
}

func (r memoryPodcasts) Count(ctx context.Context, filter PodcastFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

func (r memoryPodcasts) IncrementViews(ctx context.Context, id string) (*models.Podcast, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.podcasts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Views++
	return copyPodcast(p), nil
}

func (r memoryPodcasts) ToggleLike(ctx context.Context, podcastID, userID string) (bool, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.podcasts[podcastID]
	if !ok {
		return false, 0, ErrNotFound
	}
	liked := !p.LikedBy(userID)
	if liked {
		p.Likes = append(p.Likes, userID)
	} else {
		p.Likes = removeString(p.Likes, userID)
	}
	p.LikeCount = int64(len(p.Likes))
	p.UpdatedAt = r.s.now()
	return liked, p.LikeCount, nil
}

func (r memoryPodcasts) AddComment(ctx context.Context, podcastID string, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.podcasts[podcastID]
	if !ok {
		return ErrNotFound
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	p.Comments = append(p.Comments, *comment)
	p.UpdatedAt = r.s.now()
	return nil
}

// ---- helpers shared with the filter logic ----

func matchPodcast(p *models.Podcast, f PodcastFilter) bool {
	switch f.Visibility {
	case VisibilityPublic:
		if !p.Visible() {
			return false
		}
	case VisibilityNotArchived:
		if p.Status == models.StatusArchived {
			return false
		}
	}
	if f.RestrictCategory && !containsString(f.CategoryIDs, p.CategoryID) {
		return false
	}
	if f.OwnerID != "" && p.OwnerID != f.OwnerID {
		return false
	}
	if f.LikedBy != "" && !p.LikedBy(f.LikedBy) {
		return false
	}
	if !f.CreatedAfter.IsZero() && p.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	if f.Search != "" {
		hit := containsFold(p.Title, f.Search) || containsFold(p.Description, f.Search)
		for _, tag := range p.Tags {
			hit = hit || containsFold(tag, f.Search)
		}
		if !hit {
			return false
		}
	}
	return true
}

func sortPodcasts(items []models.Podcast, keys []SortKey) {
	if len(keys) == 0 {
		keys = []SortKey{{Field: SortCreatedAt, Desc: true}}
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, k := range keys {
			c := comparePodcasts(&items[i], &items[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return items[i].ID < items[j].ID
	})
}

func comparePodcasts(a, b *models.Podcast, field SortField) int {
	switch field {
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	case SortViews:
		return compareInt(a.Views, b.Views)
	case SortLikes:
		return compareInt(a.LikeCount, b.LikeCount)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func uniqueStrings(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func truncate[T any](items []T, limit int64) []T {
	if limit > 0 && int64(len(items)) > limit {
		return items[:limit]
	}
	return items
}
