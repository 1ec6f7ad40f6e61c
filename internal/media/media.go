package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tcpos/internal/domain"
)

// DefaultMaxBytes caps a single uploaded image.
const DefaultMaxBytes = 5 << 20

var (
	ErrEmpty            = errors.New("empty file")
	ErrTooLarge         = errors.New("file too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// Storage turns image bytes into a reference a receipt or product card can display.
type Storage interface {
	Save(ctx context.Context, contentType string, data []byte) (string, error)
}

// InlineStorage embeds the image as a data URL.
type InlineStorage struct{}

func (InlineStorage) Save(_ context.Context, contentType string, data []byte) (string, error) {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}

type ObjectStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base for object links. When empty
	// the endpoint is used.
	PublicURL string
}

// ObjectStorage keeps images in an S3 compatible bucket.
type ObjectStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewObjectStorage(cfg ObjectStorageConfig) (*ObjectStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}
	return &ObjectStorage{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

func (o *ObjectStorage) EnsureBucket(ctx context.Context) error {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	if exists {
		return nil
	}
	if err := o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	return nil
}

func (o *ObjectStorage) Save(ctx context.Context, contentType string, data []byte) (string, error) {
	key := "images/" + uuid.NewString() + extensionFor(contentType)
	info, err := o.client.PutObject(ctx, o.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	return fmt.Sprintf("%s/%s/%s", o.publicURL, o.bucket, info.Key), nil
}

type Uploader struct {
	storage  Storage
	maxBytes int64
}

func NewUploader(storage Storage, maxBytes int64) *Uploader {
	if storage == nil {
		storage = InlineStorage{}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{storage: storage, maxBytes: maxBytes}
}

func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload accepts a single image. The content type is sniffed from the bytes,
// never taken from the client.
func (u *Uploader) Upload(ctx context.Context, src io.Reader) (domain.MediaUpload, error) {
	data, err := io.ReadAll(io.LimitReader(src, u.maxBytes+1))
	if err != nil {
		return domain.MediaUpload{}, fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	if len(data) == 0 {
		return domain.MediaUpload{}, ErrEmpty
	}
	if int64(len(data)) > u.maxBytes {
		return domain.MediaUpload{}, ErrTooLarge
	}

	contentType := http.DetectContentType(data[:min(len(data), 512)])
	if !strings.HasPrefix(contentType, "image/") {
		return domain.MediaUpload{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}

	ref, err := u.storage.Save(ctx, contentType, data)
	if err != nil {
		return domain.MediaUpload{}, err
	}
	return domain.MediaUpload{Reference: ref, ContentType: contentType, Size: int64(len(data))}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ""
	}
}
