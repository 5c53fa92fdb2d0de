package utils

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

type SupabaseConfig struct {
	URL    string
	Key    string
	Bucket string
}

func (c SupabaseConfig) Enabled() bool {
	return c.URL != "" && c.Key != ""
}

// SupabaseStorage uploads objects to one Supabase Storage bucket.
type SupabaseStorage struct {
	cfg    SupabaseConfig
	client *storage.Client
}

func NewSupabaseStorage(cfg SupabaseConfig) (*SupabaseStorage, error) {
	if !cfg.Enabled() {
		return nil, errors.New("SUPABASE_URL or SUPABASE_KEY is not configured")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "uploads"
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &SupabaseStorage{
		cfg:    cfg,
		client: storage.NewClient(cfg.URL+"/storage/v1", cfg.Key, nil),
	}, nil
}

// Upload stores r at objectPath (e.g. "audio/<id>.mp3") and returns its public URL.
func (s *SupabaseStorage) Upload(objectPath string, r io.Reader, contentType string) (string, error) {
	options := storage.FileOptions{
		ContentType: &contentType,
	}
	if _, err := s.client.UploadFile(s.cfg.Bucket, objectPath, r, options); err != nil {
		return "", fmt.Errorf("supabase upload %s: %w", objectPath, err)
	}
	return s.PublicURL(objectPath), nil
}

func (s *SupabaseStorage) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.cfg.URL, s.cfg.Bucket, objectPath)
}

// Delete removes the object behind a public URL produced by PublicURL.
func (s *SupabaseStorage) Delete(publicURL string) error {
	bucket, object, err := ParseSupabaseObjectURL(publicURL)
	if err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(bucket, []string{object}); err != nil {
		return fmt.Errorf("supabase delete %s: %w", object, err)
	}
	return nil
}

// ParseSupabaseObjectURL extracts bucket and object path from a
// ".../storage/v1/object/[public/]<bucket>/<path>" URL.
func ParseSupabaseObjectURL(publicURL string) (string, string, error) {
	const marker = "/storage/v1/object/"
	idx := strings.Index(publicURL, marker)
	if idx == -1 {
		return "", "", fmt.Errorf("not a storage object url: %s", publicURL)
	}
	rest := strings.TrimPrefix(publicURL[idx+len(marker):], "public/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse bucket/object from url: %s", publicURL)
	}
	object := parts[1]
	if q := strings.Index(object, "?"); q != -1 {
		object = object[:q]
	}
	if u, err := url.PathUnescape(object); err == nil {
		object = u
	}
	return parts[0], object, nil
}
