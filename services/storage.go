package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/vnkhanh/podstream-backend/utils"
)

func objectName(name string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), name)
}

func kindDir(kind FileKind) string {
	if kind == KindAudio {
		return "audio"
	}
	return "images"
}

// ---- Cloudinary ----

type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryUploader(creds CloudinaryCredentials) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(creds.CloudName, creds.APIKey, creds.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld}, nil
}

func (u *CloudinaryUploader) Name() string { return "cloudinary" }

func (u *CloudinaryUploader) Upload(ctx context.Context, localPath, name string, kind FileKind) (*UploadResult, error) {
	publicID := strings.TrimSuffix(objectName(name, time.Now()), filepath.Ext(name))
	resp, err := u.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		Folder:       kind.Folder(),
		PublicID:     publicID,
		ResourceType: kind.ResourceType(),
	})
	if err != nil {
		return nil, err
	}
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}
	return &UploadResult{
		URL:      resp.SecureURL,
		PublicID: resp.PublicID,
		Width:    resp.Width,
		Height:   resp.Height,
		Format:   resp.Format,
		Size:     int64(resp.Bytes),
		Provider: u.Name(),
	}, nil
}

// ---- Supabase Storage ----

type SupabaseUploader struct {
	storage *utils.SupabaseStorage
}

func NewSupabaseUploader(cfg utils.SupabaseConfig) (*SupabaseUploader, error) {
	st, err := utils.NewSupabaseStorage(cfg)
	if err != nil {
		return nil, err
	}
	return &SupabaseUploader{storage: st}, nil
}

func (u *SupabaseUploader) Name() string { return "supabase" }

func (u *SupabaseUploader) Upload(ctx context.Context, localPath, name string, kind FileKind) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	objectPath := path.Join(kindDir(kind), objectName(name, time.Now()))
	url, err := u.storage.Upload(objectPath, f, contentTypeFor(name, kind))
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		URL:      url,
		PublicID: objectPath,
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		Provider: u.Name(),
	}, nil
}

// ---- local disk ----

// LocalUploader moves files under Root and returns /uploads/... locators
// served by the uploads file server.
type LocalUploader struct {
	Root    string
	BaseURL string
}

func NewLocalUploader(root, baseURL string) *LocalUploader {
	return &LocalUploader{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (u *LocalUploader) Name() string { return "local" }

func (u *LocalUploader) Upload(ctx context.Context, localPath, name string, kind FileKind) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(u.Root, kindDir(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	stored := objectName(name, time.Now())
	dst := filepath.Join(dir, stored)
	if err := moveFile(localPath, dst); err != nil {
		return nil, err
	}
	return &UploadResult{
		URL:      u.BaseURL + "/uploads/" + kindDir(kind) + "/" + stored,
		PublicID: kindDir(kind) + "/" + stored,
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		Provider: u.Name(),
	}, nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// mediaTypes covers the audio and video extensions missing from the builtin
// mime table on minimal hosts.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// ContentType returns the media type for the extension of name, or "" when
// it is unknown.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

func contentTypeFor(name string, kind FileKind) string {
	if ct := ContentType(name); ct != "" {
		return ct
	}
	if kind == KindAudio {
		return "audio/mpeg"
	}
	return "application/octet-stream"
}
