package services

import (
	"context"
	"testing"
	"time"

	"github.com/vnkhanh/podstream-backend/models"
)

func TestEngagementRateAndTrendScore(t *testing.T) {
	if got := EngagementRate(0, 5, 5); got != 0 {
		t.Fatalf("zero views should give 0, got %v", got)
	}
	if got := EngagementRate(3, 1, 0); got != 33.33 {
		t.Fatalf("expected 33.33, got %v", got)
	}
	if got := TrendScore(10, 2, 1); got != 17 {
		t.Fatalf("expected 17, got %d", got)
	}
}

func TestTrendingPeriod(t *testing.T) {
	for in, want := range map[string]string{"1d": "1d", "30d": "30d", "7d": "7d", "1y": "7d", "": "7d"} {
		if got, _ := TrendingPeriod(in); got != want {
			t.Fatalf("TrendingPeriod(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlatformAnalyticsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	p := f.podcast(t, u.ID, "Counted", "tech")
	f.catalog.GetPodcast(ctx, p.ID)

	_, err := f.analytics.Platform(ctx, models.RoleUser)
	assertKind(t, err, KindForbidden)
	assertMessage(t, err, "Access denied. Admin only.")

	out, err := f.analytics.Platform(ctx, models.RoleAdmin)
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	if out.Overview.TotalPodcasts != 1 || out.Overview.TotalUsers != 1 || out.Overview.TotalViews != 1 {
		t.Fatalf("unexpected overview %+v", out.Overview)
	}
	if len(out.MonthlyGrowth) != 1 || out.MonthlyGrowth[0].Podcasts != 1 {
		t.Fatalf("unexpected growth %+v", out.MonthlyGrowth)
	}
	if len(out.TopCreators) != 1 || out.TopCreators[0].Username != "creator" {
		t.Fatalf("unexpected creators %+v", out.TopCreators)
	}
}

func TestPodcastAnalyticsAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "creator", "c@example.com")
	stranger := f.register(t, "stranger", "s@example.com")
	p := f.podcast(t, owner.ID, "Measured", "tech")

	for i := 0; i < 4; i++ {
		f.catalog.GetPodcast(ctx, p.ID)
	}
	f.catalog.ToggleLike(ctx, p.ID, stranger.ID)
	f.catalog.AddComment(ctx, p.ID, stranger.ID, "nice")

	_, err := f.analytics.Podcast(ctx, p.ID, stranger.ID, models.RoleUser)
	assertKind(t, err, KindForbidden)

	_, err = f.analytics.Podcast(ctx, "missing", owner.ID, models.RoleUser)
	assertKind(t, err, KindNotFound)

	out, err := f.analytics.Podcast(ctx, p.ID, owner.ID, models.RoleUser)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if out.Metrics.EngagementRate != 50 {
		t.Fatalf("expected 50%% engagement, got %v", out.Metrics.EngagementRate)
	}
	if len(out.RecentActivity.RecentComments) != 1 || len(out.TopLikers) != 1 {
		t.Fatalf("unexpected activity %+v likers %+v", out.RecentActivity, out.TopLikers)
	}

	if _, err := f.analytics.Podcast(ctx, p.ID, stranger.ID, models.RoleAdmin); err != nil {
		t.Fatalf("admin should see any podcast: %v", err)
	}
}

func TestTrendingWindowAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	fan := f.register(t, "thefan", "f@example.com")

	old := &models.Podcast{Title: "Old", OwnerID: u.ID, Status: models.StatusPublished, IsPublic: true,
		CreatedAt: time.Now().Add(-10 * 24 * time.Hour)}
	if err := f.store.Podcasts().Create(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}
	quiet := f.podcast(t, u.ID, "Quiet", "tech")
	loud := f.podcast(t, u.ID, "Loud", "tech")
	f.catalog.ToggleLike(ctx, loud.ID, fan.ID)

	period, items, err := f.analytics.Trending(ctx, "7d", 0)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if period != "7d" || len(items) != 2 {
		t.Fatalf("unexpected trending %s %+v", period, items)
	}
	if items[0].ID != loud.ID || items[0].TrendScore != 2 || items[1].ID != quiet.ID {
		t.Fatalf("unexpected order %+v", items)
	}

	_, all, _ := f.analytics.Trending(ctx, "30d", 0)
	if len(all) != 3 {
		t.Fatalf("30d window should include the old podcast, got %d", len(all))
	}
}

func TestCategoryAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "creator", "c@example.com")
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		f.podcast(t, u.ID, title+" show", "big")
	}
	f.podcast(t, u.ID, "Lonely show", "small")

	stats, err := f.analytics.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(stats) != 2 || stats[0].CategoryName != "big" || stats[0].PodcastCount != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats[0].RecentPodcasts) != 3 {
		t.Fatalf("expected 3 recent podcasts, got %d", len(stats[0].RecentPodcasts))
	}
}
