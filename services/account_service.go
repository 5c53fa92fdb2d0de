package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/repository"
)

const (
	maxBioLen          = 500
	recentPodcastLimit = 5
)

type AccountService struct {
	src StoreSource
	log *logrus.Entry
}

func NewAccountService(src StoreSource, log *logrus.Entry) *AccountService {
	return &AccountService{src: src, log: log}
}

// AccountDetails is an account with the podcasts it owns.
type AccountDetails struct {
	models.User
	Podcasts []models.PodcastView `json:"podcasts"`
}

// ProfileView is an account with its follow lists populated and its stats.
type ProfileView struct {
	models.User
	Following []models.UserSummary `json:"following"`
	Followers []models.UserSummary `json:"followers"`
	Stats     models.UserStats     `json:"stats"`

	LikedPodcasts []models.PodcastView `json:"likedPodcasts"`
}

func (s *AccountService) loadUser(ctx context.Context, store repository.Store, id string) (*models.User, error) {
	u, err := store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	return u, nil
}

func ownedPodcasts(ctx context.Context, store repository.Store, ownerID string) ([]models.Podcast, error) {
	return store.Podcasts().Find(ctx, repository.PodcastQuery{
		PodcastFilter: repository.PodcastFilter{Visibility: repository.VisibilityAll, OwnerID: ownerID},
		Sort:          []repository.SortKey{{Field: repository.SortCreatedAt, Desc: true}},
	})
}

// likedPodcasts lists the public podcasts userID has liked, newest first.
func likedPodcasts(ctx context.Context, store repository.Store, userID string) ([]models.PodcastView, error) {
	liked, err := store.Podcasts().Find(ctx, repository.PodcastQuery{
		PodcastFilter: repository.PodcastFilter{Visibility: repository.VisibilityPublic, LikedBy: userID},
		Sort:          []repository.SortKey{{Field: repository.SortCreatedAt, Desc: true}},
	})
	if err != nil {
		return nil, err
	}
	return populate(ctx, store, liked)
}

func (s *AccountService) Details(ctx context.Context, userID string) (*AccountDetails, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	owned, err := ownedPodcasts(ctx, store, userID)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	views, err := populate(ctx, store, owned)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	return &AccountDetails{User: *user, Podcasts: views}, nil
}

func summaries(ctx context.Context, store repository.Store, ids []string) ([]models.UserSummary, error) {
	out := []models.UserSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	users, err := store.Users().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		s := users[i].Summary()
		s.Email = ""
		out = append(out, s)
	}
	return out, nil
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*ProfileView, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	owned, err := ownedPodcasts(ctx, store, userID)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	following, err := summaries(ctx, store, user.Following)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	followers, err := summaries(ctx, store, user.Followers)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	liked, err := likedPodcasts(ctx, store, userID)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}

	stats := models.UserStats{
		TotalPodcasts:  int64(len(owned)),
		TotalFollowers: int64(len(user.Followers)),
		TotalFollowing: int64(len(user.Following)),
	}
	for _, p := range owned {
		stats.TotalViews += p.Views
		stats.TotalLikes += int64(len(p.Likes))
	}
	return &ProfileView{
		User:          *user,
		Following:     following,
		Followers:     followers,
		Stats:         stats,
		LikedPodcasts: liked,
	}, nil
}

func validTheme(t models.Theme) bool {
	switch t {
	case models.ThemeLight, models.ThemeDark, models.ThemeAuto:
		return true
	}
	return false
}

// UpdateProfile applies the non-nil fields of upd.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	if upd.Bio != nil && len(strings.TrimSpace(*upd.Bio)) > maxBioLen {
		return nil, Validation("Bio cannot exceed 500 characters")
	}
	if p := upd.Preferences; p != nil && p.Theme != nil && *p.Theme != "" && !validTheme(*p.Theme) {
		return nil, Validation("Theme must be light, dark or auto")
	}

	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, store, userID)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&user.Profile.FirstName, upd.FirstName)
	set(&user.Profile.LastName, upd.LastName)
	set(&user.Profile.Bio, upd.Bio)
	set(&user.Profile.Website, upd.Website)
	set(&user.Profile.Location, upd.Location)
	if upd.DateOfBirth != nil {
		dob := upd.DateOfBirth.UTC()
		user.Profile.DateOfBirth = &dob
	}
	if p := upd.Preferences; p != nil {
		if p.Theme != nil && *p.Theme != "" {
			user.Preferences.Theme = *p.Theme
		}
		if p.Language != nil && *p.Language != "" {
			user.Preferences.Language = *p.Language
		}
		if p.EmailNotifications != nil {
			user.Preferences.EmailNotifications = *p.EmailNotifications
		}
		if p.PushNotifications != nil {
			user.Preferences.PushNotifications = *p.PushNotifications
		}
	}

	if err := store.Users().Update(ctx, user); err != nil {
		return nil, storeErr(err, "User not found")
	}
	s.log.WithField("user_id", user.ID).Info("profile updated")
	return user, nil
}

// ToggleFollow flips the follow edge and reports whether followerID follows
// targetID afterwards.
func (s *AccountService) ToggleFollow(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == targetID {
		return false, Validation("You cannot follow yourself")
	}
	store, err := openStore(ctx, s.src)
	if err != nil {
		return false, err
	}
	if _, err := s.loadUser(ctx, store, targetID); err != nil {
		return false, err
	}
	following, err := store.Users().ToggleFollow(ctx, followerID, targetID)
	if err != nil {
		return false, storeErr(err, "User not found")
	}
	event := "unfollow"
	if following {
		event = "follow"
	}
	engagementEvents.WithLabelValues(event).Inc()
	return following, nil
}

func (s *AccountService) UserAnalytics(ctx context.Context, userID string) (*models.UserAnalytics, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	owned, err := ownedPodcasts(ctx, store, userID)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	out := &models.UserAnalytics{
		Overview:       models.EngagementOverview{TotalPodcasts: int64(len(owned))},
		RecentPodcasts: []models.PodcastStat{},
	}
	for i := range owned {
		p := &owned[i]
		out.Overview.TotalViews += p.Views
		out.Overview.TotalLikes += int64(len(p.Likes))
		out.Overview.TotalComments += int64(len(p.Comments))
		if len(out.RecentPodcasts) < recentPodcastLimit {
			out.RecentPodcasts = append(out.RecentPodcasts, p.Stat())
		}
	}
	return out, nil
}
