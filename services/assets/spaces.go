// Package assets issues presigned upload URLs for course media stored in an
// S3-compatible bucket (DigitalOcean Spaces in production).
package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
)

// DefaultUploadTTL is how long a presigned upload URL stays valid
const DefaultUploadTTL = 15 * time.Minute

// Kind is the course asset being uploaded
type Kind string

const (
	KindThumbnail Kind = "thumbnail"
	KindVideo     Kind = "video"
)

var allowedTypes = map[Kind]map[string]string{
	KindThumbnail: {
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	},
	KindVideo: {
		"video/mp4":  ".mp4",
		"video/webm": ".webm",
	},
}

// Upload is a presigned PUT the client performs directly against the bucket
type Upload struct {
	Method    string            `json:"method"`
	UploadURL string            `json:"upload_url"`
	PublicURL string            `json:"public_url"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Uploader hands out presigned upload URLs
type Uploader interface {
	PresignUpload(ctx context.Context, courseID model.CourseID, kind Kind, contentType string) (*Upload, error)
}

// SpacesConfig holds configuration for Spaces client
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	CDNURL    string
	UploadTTL time.Duration
}

// Configured reports whether enough settings are present to sign uploads
func (c SpacesConfig) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// SpacesClient handles DigitalOcean Spaces operations
type SpacesClient struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
	cdnURL   string
	ttl      time.Duration
}

var _ Uploader = (*SpacesClient)(nil)

// NewSpacesClient creates a new Spaces client
func NewSpacesClient(config SpacesConfig) (*SpacesClient, error) {
	if !config.Configured() {
		return nil, fmt.Errorf("SPACES_ACCESS_KEY, SPACES_SECRET_KEY and SPACES_BUCKET must be configured")
	}
	if config.Region == "" {
		config.Region = "nyc3"
	}
	if config.Endpoint == "" {
		config.Endpoint = fmt.Sprintf("%s.digitaloceanspaces.com", config.Region)
	}
	if config.UploadTTL <= 0 {
		config.UploadTTL = DefaultUploadTTL
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String("https://" + strings.TrimPrefix(config.Endpoint, "https://")),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesClient{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
		endpoint: strings.TrimPrefix(config.Endpoint, "https://"),
		cdnURL:   strings.TrimSuffix(config.CDNURL, "/"),
		ttl:      config.UploadTTL,
	}, nil
}

// ObjectKey builds the bucket key for a new course asset
func ObjectKey(courseID model.CourseID, kind Kind, contentType string) (string, error) {
	types, ok := allowedTypes[kind]
	if !ok {
		return "", apperr.Validationf("unknown asset kind %q", kind)
	}
	ext, ok := types[strings.ToLower(contentType)]
	if !ok {
		return "", apperr.Validationf("content type %q is not allowed for %s uploads", contentType, kind)
	}
	return fmt.Sprintf("courses/%s/%s/%s%s", courseID, kind, uuid.NewString(), ext), nil
}

// PresignUpload signs a public-read PUT for a new course asset
func (s *SpacesClient) PresignUpload(ctx context.Context, courseID model.CourseID, kind Kind, contentType string) (*Upload, error) {
	key, err := ObjectKey(courseID, kind, contentType)
	if err != nil {
		return nil, err
	}

	req, _ := s.s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)

	url, err := req.Presign(s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &Upload{
		Method:    "PUT",
		UploadURL: url,
		PublicURL: s.PublicURL(key),
		Key:       key,
		Headers: map[string]string{
			"Content-Type": contentType,
			"x-amz-acl":    "public-read",
		},
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	}, nil
}

// PublicURL returns the CDN URL if available, otherwise the bucket URL
func (s *SpacesClient) PublicURL(key string) string {
	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, s.endpoint, key)
}
