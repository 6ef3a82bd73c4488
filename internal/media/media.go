// Package media bounds inline gallery images and issues presigned S3 upload
// URLs for the ones that should not live inside the document.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	// ErrTooLarge is returned for an image over the configured size.
	ErrTooLarge = errors.New("image too large")
	// ErrNotImage is returned for anything that is not an image.
	ErrNotImage = errors.New("not an image")
)

// DefaultMaxImageBytes keeps the shared document well under typical
// per-document store limits.
const DefaultMaxImageBytes = 700 * 1024

// CheckDataURL verifies s is a base64 image data URL whose decoded payload
// is at most maxBytes. Plain http(s) URLs pass unchecked.
func CheckDataURL(s string, maxBytes int) error {
	if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		return nil
	}
	meta, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(meta, "data:image/") || !strings.HasSuffix(meta, ";base64") {
		return ErrNotImage
	}
	n := base64.StdEncoding.DecodedLen(len(payload)) - strings.Count(payload[max(0, len(payload)-2):], "=")
	if maxBytes > 0 && n > maxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, n, maxBytes)
	}
	return nil
}

// Presigner is the subset of *s3.PresignClient the Uploader needs.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Upload is a presigned PUT target.
type Upload struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Uploader issues short-lived upload URLs into one bucket.
type Uploader struct {
	presigner Presigner
	bucket    string
	expires   time.Duration
}

// NewUploader loads the default AWS configuration for region.
func NewUploader(ctx context.Context, region, bucket string) (*Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewUploaderWithPresigner(s3.NewPresignClient(s3.NewFromConfig(cfg)), bucket), nil
}

// NewUploaderWithPresigner wires an existing presigner.
func NewUploaderWithPresigner(p Presigner, bucket string) *Uploader {
	return &Uploader{presigner: p, bucket: bucket, expires: 5 * time.Minute}
}

// UploadURL presigns a PUT for a new gallery image.
func (u *Uploader) UploadURL(ctx context.Context, fileName, fileType string) (Upload, error) {
	if !strings.HasPrefix(fileType, "image/") {
		return Upload{}, fmt.Errorf("%w: %q", ErrNotImage, fileType)
	}
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		name = "image"
	}
	key := "gallery/" + uuid.Must(uuid.NewV7()).String() + "-" + name

	req, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}, s3.WithPresignExpires(u.expires))
	if err != nil {
		return Upload{}, fmt.Errorf("failed to presign upload: %w", err)
	}
	return Upload{URL: req.URL, Key: key}, nil
}
