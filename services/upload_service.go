package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/models"
)

type FileKind string

const (
	KindImage FileKind = "image"
	KindAudio FileKind = "audio"
)

// ParseFileKind maps a client fileType to a kind; anything but "audio" is an image.
func ParseFileKind(s string) FileKind {
	if strings.EqualFold(strings.TrimSpace(s), string(KindAudio)) {
		return KindAudio
	}
	return KindImage
}

// Folder is the provider folder for the kind.
func (k FileKind) Folder() string {
	if k == KindAudio {
		return "podstream/audio"
	}
	return "podstream/images"
}

// ResourceType is the Cloudinary resource type; audio is uploaded as video.
func (k FileKind) ResourceType() string {
	if k == KindAudio {
		return "video"
	}
	return "image"
}

type CloudinaryCredentials struct {
	CloudName string
	APIKey    string
	APISecret string
}

func (c CloudinaryCredentials) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type SignedUpload struct {
	UploadURL    string            `json:"uploadUrl"`
	UploadParams map[string]string `json:"uploadParams"`
}

type UploadResult struct {
	URL      string  `json:"url"`
	PublicID string  `json:"publicId,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Format   string  `json:"format,omitempty"`
	Size     int64   `json:"size,omitempty"`
	Provider string  `json:"provider"`
}

// Metadata converts the result into the stored file metadata.
func (r *UploadResult) Metadata() *models.FileMetadata {
	return &models.FileMetadata{
		PublicID: r.PublicID,
		Width:    r.Width,
		Height:   r.Height,
		Duration: r.Duration,
		Format:   r.Format,
		Size:     r.Size,
	}
}

// Uploader sends a local file to a storage provider.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, localPath, name string, kind FileKind) (*UploadResult, error)
}

type UploadService struct {
	creds    CloudinaryCredentials
	primary  Uploader
	fallback Uploader
	log      *logrus.Entry
	now      func() time.Time
}

// NewUploadService uses primary for uploads and falls back to fallback when
// primary fails. Either may be nil.
func NewUploadService(creds CloudinaryCredentials, primary, fallback Uploader, log *logrus.Entry) *UploadService {
	return &UploadService{creds: creds, primary: primary, fallback: fallback, log: log, now: time.Now}
}

func (s *UploadService) IsConfigured() bool {
	return s.creds.Configured()
}

// GenerateSignedUploadURL returns the Cloudinary endpoint and signed form
// fields for a direct client upload.
func (s *UploadService) GenerateSignedUploadURL(kind FileKind) (*SignedUpload, error) {
	if !s.IsConfigured() {
		return nil, Unavailable("Cloud storage not configured. Using local storage.", nil)
	}
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	signature, err := api.SignParameters(url.Values{
		"folder":    {kind.Folder()},
		"timestamp": {timestamp},
	}, s.creds.APISecret)
	if err != nil {
		return nil, Internal("Failed to sign upload", err)
	}
	params := map[string]string{
		"api_key":   s.creds.APIKey,
		"timestamp": timestamp,
		"folder":    kind.Folder(),
		"signature": signature,
	}
	return &SignedUpload{
		UploadURL:    fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/%s/upload", s.creds.CloudName, kind.ResourceType()),
		UploadParams: params,
	}, nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// PlaceholderURL returns a stand-in locator for the kind. Image placeholders
// carry a unique token.
func PlaceholderURL(kind FileKind) string {
	if kind == KindAudio {
		return models.DefaultAudioURL
	}
	return models.PlaceholderImagePrefix + placeholderToken(time.Now())
}

func placeholderToken(now time.Time) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	radix := big.NewInt(int64(len(base36)))
	for i := 0; i < 9; i++ {
		n, err := rand.Int(rand.Reader, radix)
		if err != nil {
			b.WriteByte(base36[now.UnixNano()%int64(len(base36))])
			continue
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String()
}

// UploadFromLocalPath uploads the file at localPath and removes it afterwards
// whether or not the upload succeeded.
func (s *UploadService) UploadFromLocalPath(ctx context.Context, localPath, name string, kind FileKind) (*UploadResult, error) {
	defer func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			s.log.WithError(err).WithField("path", localPath).Warn("failed to remove temp upload")
		}
	}()

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, Internal("Upload failed", err)
	}
	name = sanitizeFileName(name)

	// Decoded before the upload since the local provider moves the file.
	var duration float64
	if kind == KindAudio && isMP3(name) {
		if d, err := MP3DurationFromFile(localPath); err == nil {
			duration = d
		} else {
			s.log.WithError(err).Debug("mp3 duration unavailable")
		}
	}

	var result *UploadResult
	var upErr error
	for _, up := range []Uploader{s.primary, s.fallback} {
		if up == nil {
			continue
		}
		result, upErr = up.Upload(ctx, localPath, name, kind)
		if upErr == nil {
			break
		}
		s.log.WithError(upErr).WithField("provider", up.Name()).Warn("upload failed")
	}
	if result == nil {
		if upErr == nil {
			upErr = fmt.Errorf("no storage provider configured")
		}
		return nil, Internal("File upload failed", upErr)
	}

	if result.Size == 0 {
		result.Size = info.Size()
	}
	if result.Duration == 0 {
		result.Duration = duration
	}
	uploadBytes.WithLabelValues(result.Provider, string(kind)).Add(float64(result.Size))
	return result, nil
}

// sanitizeFileName keeps the base name and replaces characters that are not
// safe in object keys.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func isMP3(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".mp3")
}
