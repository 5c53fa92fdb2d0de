package models

import (
	"time"
)

type PodcastStatus string

const (
	StatusDraft     PodcastStatus = "draft"
	StatusPublished PodcastStatus = "published"
	StatusArchived  PodcastStatus = "archived"
)

const (
	DefaultAudioURL        = "https://www.soundjay.com/misc/sounds/bell-ringing-05.wav"
	DefaultFrontImageURL   = "https://via.placeholder.com/300x300/4f46e5/ffffff?text=Podcast+Image"
	PlaceholderImagePrefix = "https://via.placeholder.com/300x300/4f46e5/ffffff?text=Podcast+"
)

type FileMetadata struct {
	PublicID string  `json:"publicId,omitempty" bson:"publicId,omitempty"`
	Width    int     `json:"width,omitempty" bson:"width,omitempty"`
	Height   int     `json:"height,omitempty" bson:"height,omitempty"`
	Duration float64 `json:"duration,omitempty" bson:"duration,omitempty"`
	Format   string  `json:"format,omitempty" bson:"format,omitempty"`
	Size     int64   `json:"size,omitempty" bson:"size,omitempty"`
}

type Podcast struct {
	ID                 string        `json:"_id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	OwnerID            string        `json:"user"`
	CategoryID         string        `json:"category"`
	FrontImage         string        `json:"frontImage"`
	AudioFile          string        `json:"audioFile"`
	FrontImageMetadata *FileMetadata `json:"frontImageMetadata,omitempty"`
	AudioFileMetadata  *FileMetadata `json:"audioFileMetadata,omitempty"`
	Views              int64         `json:"views"`
	Likes              []string      `json:"likes"`
	LikeCount          int64         `json:"likeCount"`
	Comments           []Comment     `json:"comments"`
	Status             PodcastStatus `json:"status"`
	IsPublic           bool          `json:"isPublic"`
	Tags               []string      `json:"tags"`
	Duration           float64       `json:"duration,omitempty"`
	FileSize           int64         `json:"fileSize,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

func (p *Podcast) Visible() bool {
	return p.Status == StatusPublished && p.IsPublic
}

func (p *Podcast) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

type Comment struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CommentView is a comment with its author populated.
type CommentView struct {
	ID        string       `json:"_id"`
	User      *UserSummary `json:"user"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
}

// PodcastView is the API form of a podcast with owner and category populated
// and empty locators replaced by the stock defaults.
type PodcastView struct {
	ID                 string           `json:"_id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	User               *UserSummary     `json:"user"`
	Category           *CategorySummary `json:"category"`
	FrontImage         string           `json:"frontImage"`
	AudioFile          string           `json:"audioFile"`
	FrontImageMetadata *FileMetadata    `json:"frontImageMetadata,omitempty"`
	AudioFileMetadata  *FileMetadata    `json:"audioFileMetadata,omitempty"`
	Views              int64            `json:"views"`
	Likes              []string         `json:"likes"`
	LikeCount          int64            `json:"likeCount"`
	Comments           []CommentView    `json:"comments"`
	Status             PodcastStatus    `json:"status"`
	IsPublic           bool             `json:"isPublic"`
	Tags               []string         `json:"tags"`
	Duration           float64          `json:"duration,omitempty"`
	FileSize           int64            `json:"fileSize,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}
