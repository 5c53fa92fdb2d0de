package models

import (
	"time"
)

// PodcastStat is the compact per-podcast row used by analytics responses.
type PodcastStat struct {
	ID         string    `json:"_id"`
	Title      string    `json:"title"`
	FrontImage string    `json:"frontImage,omitempty"`
	Views      int64     `json:"views"`
	Likes      int64     `json:"likes"`
	Comments   int64     `json:"comments"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (p *Podcast) Stat() PodcastStat {
	return PodcastStat{
		ID:         p.ID,
		Title:      p.Title,
		FrontImage: p.FrontImage,
		Views:      p.Views,
		Likes:      int64(len(p.Likes)),
		Comments:   int64(len(p.Comments)),
		CreatedAt:  p.CreatedAt,
	}
}

type EngagementOverview struct {
	TotalPodcasts int64 `json:"totalPodcasts"`
	TotalViews    int64 `json:"totalViews"`
	TotalLikes    int64 `json:"totalLikes"`
	TotalComments int64 `json:"totalComments"`
}

type UserAnalytics struct {
	Overview       EngagementOverview `json:"overview"`
	RecentPodcasts []PodcastStat      `json:"recentPodcasts"`
}

type UserStats struct {
	TotalPodcasts  int64 `json:"totalPodcasts"`
	TotalViews     int64 `json:"totalViews"`
	TotalLikes     int64 `json:"totalLikes"`
	TotalFollowers int64 `json:"totalFollowers"`
	TotalFollowing int64 `json:"totalFollowing"`
}

type PlatformOverview struct {
	TotalPodcasts   int64 `json:"totalPodcasts"`
	TotalUsers      int64 `json:"totalUsers"`
	TotalCategories int64 `json:"totalCategories"`
	TotalViews      int64 `json:"totalViews"`
	TotalLikes      int64 `json:"totalLikes"`
	TotalComments   int64 `json:"totalComments"`
}

type MonthlyGrowth struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"`
	Podcasts int64 `json:"podcasts"`
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
}

type CategoryStat struct {
	ID             string        `json:"_id"`
	CategoryName   string        `json:"categoryName"`
	Description    string        `json:"description,omitempty"`
	Color          string        `json:"color,omitempty"`
	PodcastCount   int64         `json:"podcastCount"`
	TotalViews     int64         `json:"totalViews"`
	TotalLikes     int64         `json:"totalLikes"`
	AvgViews       float64       `json:"avgViews"`
	RecentPodcasts []PodcastStat `json:"recentPodcasts,omitempty"`
}

type CreatorStat struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PodcastCount int64  `json:"podcastCount"`
	TotalViews   int64  `json:"totalViews"`
	TotalLikes   int64  `json:"totalLikes"`
}

type PlatformAnalytics struct {
	Overview      PlatformOverview `json:"overview"`
	MonthlyGrowth []MonthlyGrowth  `json:"monthlyGrowth"`
	TopCategories []CategoryStat   `json:"topCategories"`
	TopCreators   []CreatorStat    `json:"topCreators"`
}

type PodcastMetrics struct {
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	EngagementRate float64 `json:"engagementRate"`
}

type PodcastActivity struct {
	RecentComments []CommentView    `json:"recentComments"`
	CommentsByDay  map[string]int64 `json:"commentsByDay"`
}

type PodcastAnalytics struct {
	Podcast        PodcastView     `json:"podcast"`
	Metrics        PodcastMetrics  `json:"metrics"`
	RecentActivity PodcastActivity `json:"recentActivity"`
	TopLikers      []UserSummary   `json:"topLikers"`
}

type TrendingPodcast struct {
	PodcastView
	TrendScore int64 `json:"trendScore"`
}

type Suggestion struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	ID     string `json:"id"`
	Avatar string `json:"avatar,omitempty"`
	Color  string `json:"color,omitempty"`
}

type Suggestions struct {
	Podcasts   []Suggestion `json:"podcasts"`
	Users      []Suggestion `json:"users"`
	Categories []Suggestion `json:"categories"`
}
