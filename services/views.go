package services

import (
	"context"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/repository"
)

// populate resolves owners, categories and comment authors of podcasts with
// one lookup per collection and returns the API views in the same order.
func populate(ctx context.Context, store repository.Store, podcasts []models.Podcast) ([]models.PodcastView, error) {
	views := make([]models.PodcastView, 0, len(podcasts))
	if len(podcasts) == 0 {
		return views, nil
	}

	var userIDs, categoryIDs []string
	for _, p := range podcasts {
		userIDs = append(userIDs, p.OwnerID)
		categoryIDs = append(categoryIDs, p.CategoryID)
		for _, c := range p.Comments {
			userIDs = append(userIDs, c.UserID)
		}
	}
	users, err := store.Users().FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	categories, err := store.Categories().FindByIDs(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[string]models.UserSummary, len(users))
	for i := range users {
		userByID[users[i].ID] = users[i].Summary()
	}
	categoryByID := make(map[string]models.CategorySummary, len(categories))
	for i := range categories {
		categoryByID[categories[i].ID] = categories[i].Summary()
	}

	for i := range podcasts {
		views = append(views, buildView(&podcasts[i], userByID, categoryByID))
	}
	return views, nil
}

func populateOne(ctx context.Context, store repository.Store, p *models.Podcast) (*models.PodcastView, error) {
	views, err := populate(ctx, store, []models.Podcast{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func buildView(p *models.Podcast, users map[string]models.UserSummary, categories map[string]models.CategorySummary) models.PodcastView {
	v := models.PodcastView{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		FrontImage:         p.FrontImage,
		AudioFile:          p.AudioFile,
		FrontImageMetadata: p.FrontImageMetadata,
		AudioFileMetadata:  p.AudioFileMetadata,
		Views:              p.Views,
		Likes:              p.Likes,
		LikeCount:          int64(len(p.Likes)),
		Comments:           make([]models.CommentView, 0, len(p.Comments)),
		Status:             p.Status,
		IsPublic:           p.IsPublic,
		Tags:               p.Tags,
		Duration:           p.Duration,
		FileSize:           p.FileSize,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if v.FrontImage == "" {
		v.FrontImage = models.DefaultFrontImageURL
	}
	if v.AudioFile == "" {
		v.AudioFile = models.DefaultAudioURL
	}
	if v.Likes == nil {
		v.Likes = []string{}
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if u, ok := users[p.OwnerID]; ok {
		v.User = &u
	}
	if c, ok := categories[p.CategoryID]; ok {
		v.Category = &c
	}
	for _, c := range p.Comments {
		v.Comments = append(v.Comments, commentView(c, users))
	}
	return v
}

func commentView(c models.Comment, users map[string]models.UserSummary) models.CommentView {
	cv := models.CommentView{ID: c.ID, Text: c.Text, Timestamp: c.Timestamp}
	if u, ok := users[c.UserID]; ok {
		cv.User = &u
	} else {
		cv.User = &models.UserSummary{ID: c.UserID}
	}
	return cv
}
