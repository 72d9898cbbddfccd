// Package media stores product images in an S3-compatible bucket.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"vitrine/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadSize caps a single image upload
const MaxUploadSize = 8 << 20

// KeyPrefix is the bucket folder holding product images
const KeyPrefix = "products"

var (
	ErrDisabled        = errors.New("image storage is not configured")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrEmpty           = errors.New("empty upload")
)

// AllowedTypes are the image formats accepted for upload
var AllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/avif"}

// ObjectPutter is the slice of the S3 client the uploader needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader stores images and returns their public URL
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, filename string, body io.Reader) (string, error)
}

type s3Uploader struct {
	client    ObjectPutter
	bucket    string
	publicURL string
	newKey    func(ext string) string
}

type disabledUploader struct{}

func (disabledUploader) Enabled() bool { return false }

func (disabledUploader) Upload(context.Context, string, io.Reader) (string, error) {
	return "", ErrDisabled
}

// NewUploader wraps an existing client. publicURL is the base under which
// stored keys are served.
func NewUploader(client ObjectPutter, bucket, publicURL string) Uploader {
	return &s3Uploader{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		newKey: func(ext string) string {
			return path.Join(KeyPrefix, uuid.NewString()+ext)
		},
	}
}

// NewS3Uploader builds an uploader from configuration. With no bucket
// configured, the returned uploader refuses every upload with ErrDisabled.
func NewS3Uploader(ctx context.Context, cfg config.StorageConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return disabledUploader{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return NewUploader(client, cfg.Bucket, publicURL), nil
}

func (u *s3Uploader) Enabled() bool { return true }

// Upload sniffs body, refuses anything that is not an allowed image type and
// stores it under a fresh key. The file name is only used for logging by
// callers; the extension comes from the detected type.
func (u *s3Uploader) Upload(ctx context.Context, filename string, body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload %q: %w", filename, err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxUploadSize {
		return "", ErrTooLarge
	}

	mtype, ok := DetectImage(data)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype)
	}

	key := u.newKey(extension(mtype))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(mtype.String()),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return u.publicURL + "/" + key, nil
}

// DetectImage sniffs data and reports whether it is an accepted image type
func DetectImage(data []byte) (*mimetype.MIME, bool) {
	mtype := mimetype.Detect(data)
	for _, allowed := range AllowedTypes {
		if mtype.Is(allowed) {
			return mtype, true
		}
	}
	return mtype, false
}

func extension(mtype *mimetype.MIME) string {
	if mtype.Is("image/jpeg") {
		return ".jpg"
	}
	return mtype.Extension()
}
