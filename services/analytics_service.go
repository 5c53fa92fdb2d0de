package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/repository"
)

const (
	topListLimit       = 10
	growthMonths       = 12
	activityWindow     = 30 * 24 * time.Hour
	categoryRecentSize = 3
)

type AnalyticsService struct {
	src StoreSource
	log *logrus.Entry
	now func() time.Time
}

func NewAnalyticsService(src StoreSource, log *logrus.Entry) *AnalyticsService {
	return &AnalyticsService{src: src, log: log, now: time.Now}
}

// CanManage reports whether the actor may manage a resource owned by ownerID.
func CanManage(actorID string, role models.UserRole, ownerID string) bool {
	return role == models.RoleAdmin || (actorID != "" && actorID == ownerID)
}

func allPodcasts(ctx context.Context, store repository.Store, filter repository.PodcastFilter) ([]models.Podcast, error) {
	return store.Podcasts().Find(ctx, repository.PodcastQuery{
		PodcastFilter: filter,
		Sort:          []repository.SortKey{{Field: repository.SortCreatedAt, Desc: true}},
	})
}

func (s *AnalyticsService) Platform(ctx context.Context, role models.UserRole) (*models.PlatformAnalytics, error) {
	if role != models.RoleAdmin {
		return nil, Forbidden("Access denied. Admin only.")
	}
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	podcasts, err := allPodcasts(ctx, store, repository.PodcastFilter{Visibility: repository.VisibilityAll})
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	users, err := store.Users().List(ctx)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	categories, err := store.Categories().List(ctx)
	if err != nil {
		return nil, storeErr(err, "Category not found")
	}

	out := &models.PlatformAnalytics{
		Overview: models.PlatformOverview{
			TotalPodcasts:   int64(len(podcasts)),
			TotalUsers:      int64(len(users)),
			TotalCategories: int64(len(categories)),
		},
	}
	for _, p := range podcasts {
		out.Overview.TotalViews += p.Views
		out.Overview.TotalLikes += int64(len(p.Likes))
		out.Overview.TotalComments += int64(len(p.Comments))
	}
	out.MonthlyGrowth = monthlyGrowth(podcasts, s.now())
	out.TopCategories = truncateCategoryStats(categoryStats(categories, podcasts, 0), topListLimit)
	out.TopCreators = topCreators(users, podcasts, topListLimit)
	return out, nil
}

func monthlyGrowth(podcasts []models.Podcast, now time.Time) []models.MonthlyGrowth {
	now = now.UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(growthMonths - 1), 0)
	type month struct{ year, month int }
	buckets := map[month]*models.MonthlyGrowth{}
	for _, p := range podcasts {
		created := p.CreatedAt.UTC()
		if created.Before(since) {
			continue
		}
		key := month{created.Year(), int(created.Month())}
		b, ok := buckets[key]
		if !ok {
			b = &models.MonthlyGrowth{Year: key.year, Month: key.month}
			buckets[key] = b
		}
		b.Podcasts++
		b.Views += p.Views
		b.Likes += int64(len(p.Likes))
	}
	out := make([]models.MonthlyGrowth, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// categoryStats aggregates podcasts per category, largest first. recent is
// the number of newest podcasts attached to each entry.
func categoryStats(categories []models.Category, podcasts []models.Podcast, recent int) []models.CategoryStat {
	byID := make(map[string]*models.CategoryStat, len(categories))
	out := make([]*models.CategoryStat, 0, len(categories))
	for _, c := range categories {
		st := &models.CategoryStat{ID: c.ID, CategoryName: c.Name, Description: c.Description, Color: c.Color}
		if recent > 0 {
			st.RecentPodcasts = []models.PodcastStat{}
		}
		byID[c.ID] = st
		out = append(out, st)
	}
	// podcasts arrive newest first
	for _, p := range podcasts {
		st, ok := byID[p.CategoryID]
		if !ok {
			continue
		}
		st.PodcastCount++
		st.TotalViews += p.Views
		st.TotalLikes += int64(len(p.Likes))
		if len(st.RecentPodcasts) < recent {
			st.RecentPodcasts = append(st.RecentPodcasts, p.Stat())
		}
	}
	stats := make([]models.CategoryStat, 0, len(out))
	for _, st := range out {
		if st.PodcastCount > 0 {
			st.AvgViews = round2(float64(st.TotalViews) / float64(st.PodcastCount))
		}
		stats = append(stats, *st)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].PodcastCount != stats[j].PodcastCount {
			return stats[i].PodcastCount > stats[j].PodcastCount
		}
		return stats[i].CategoryName < stats[j].CategoryName
	})
	return stats
}

func truncateCategoryStats(stats []models.CategoryStat, n int) []models.CategoryStat {
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}

func topCreators(users []models.User, podcasts []models.Podcast, n int) []models.CreatorStat {
	byID := map[string]*models.CreatorStat{}
	for _, u := range users {
		byID[u.ID] = &models.CreatorStat{ID: u.ID, Username: u.Username, Email: u.Email}
	}
	for _, p := range podcasts {
		st, ok := byID[p.OwnerID]
		if !ok {
			continue
		}
		st.PodcastCount++
		st.TotalViews += p.Views
		st.TotalLikes += int64(len(p.Likes))
	}
	out := []models.CreatorStat{}
	for _, st := range byID {
		if st.PodcastCount > 0 {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalViews != out[j].TotalViews {
			return out[i].TotalViews > out[j].TotalViews
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EngagementRate is (likes+comments)/views as a percentage with two decimals.
func EngagementRate(views, likes, comments int64) float64 {
	if views <= 0 {
		return 0
	}
	return round2(float64(likes+comments) / float64(views) * 100)
}

func (s *AnalyticsService) Podcast(ctx context.Context, podcastID, actorID string, role models.UserRole) (*models.PodcastAnalytics, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	p, err := store.Podcasts().FindByID(ctx, podcastID)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	if !CanManage(actorID, role, p.OwnerID) {
		return nil, Forbidden("Access denied")
	}
	view, err := populateOne(ctx, store, p)
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}

	likes, comments := int64(len(p.Likes)), int64(len(p.Comments))
	out := &models.PodcastAnalytics{
		Podcast: *view,
		Metrics: models.PodcastMetrics{
			Views:          p.Views,
			Likes:          likes,
			Comments:       comments,
			EngagementRate: EngagementRate(p.Views, likes, comments),
		},
		RecentActivity: models.PodcastActivity{
			RecentComments: []models.CommentView{},
			CommentsByDay:  map[string]int64{},
		},
		TopLikers: []models.UserSummary{},
	}

	since := s.now().Add(-activityWindow)
	recent := []models.CommentView{}
	for _, c := range view.Comments {
		if c.Timestamp.Before(since) {
			continue
		}
		recent = append(recent, c)
		out.RecentActivity.CommentsByDay[c.Timestamp.UTC().Format("2006-01-02")]++
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Timestamp.After(recent[j].Timestamp) })
	if len(recent) > topListLimit {
		recent = recent[:topListLimit]
	}
	out.RecentActivity.RecentComments = recent

	likers := p.Likes
	if len(likers) > topListLimit {
		likers = likers[:topListLimit]
	}
	if out.TopLikers, err = summaries(ctx, store, likers); err != nil {
		return nil, storeErr(err, "User not found")
	}
	return out, nil
}

// TrendingPeriod maps a period name to its window; unknown names mean 7d.
func TrendingPeriod(period string) (string, time.Duration) {
	switch period {
	case "1d":
		return period, 24 * time.Hour
	case "30d":
		return period, 30 * 24 * time.Hour
	}
	return "7d", 7 * 24 * time.Hour
}

func TrendScore(views, likes, comments int64) int64 {
	return views + likes*2 + comments*3
}

func (s *AnalyticsService) Trending(ctx context.Context, period string, limit int) (string, []models.TrendingPodcast, error) {
	period, window := TrendingPeriod(period)
	if limit == 0 {
		limit = DefaultPageLimit
	}
	limit = clampLimit(limit)

	store, err := openStore(ctx, s.src)
	if err != nil {
		return "", nil, err
	}
	podcasts, err := allPodcasts(ctx, store, repository.PodcastFilter{
		Visibility:   repository.VisibilityPublic,
		CreatedAfter: s.now().Add(-window),
	})
	if err != nil {
		return "", nil, storeErr(err, "Podcast not found")
	}
	views, err := populate(ctx, store, podcasts)
	if err != nil {
		return "", nil, storeErr(err, "Podcast not found")
	}

	out := make([]models.TrendingPodcast, 0, len(views))
	for _, v := range views {
		out = append(out, models.TrendingPodcast{
			PodcastView: v,
			TrendScore:  TrendScore(v.Views, int64(len(v.Likes)), int64(len(v.Comments))),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrendScore > out[j].TrendScore })
	if len(out) > limit {
		out = out[:limit]
	}
	return period, out, nil
}

func (s *AnalyticsService) Categories(ctx context.Context) ([]models.CategoryStat, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	categories, err := store.Categories().List(ctx)
	if err != nil {
		return nil, storeErr(err, "Category not found")
	}
	podcasts, err := allPodcasts(ctx, store, repository.PodcastFilter{Visibility: repository.VisibilityPublic})
	if err != nil {
		return nil, storeErr(err, "Podcast not found")
	}
	return categoryStats(categories, podcasts, categoryRecentSize), nil
}
