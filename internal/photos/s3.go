package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 photo backend.
type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	// KeyPrefix is prepended to every object key, for example "items/".
	KeyPrefix string
	// PublicURL is the base URL objects are reachable under.
	PublicURL string
}

// S3 stores photos in an S3-compatible bucket.
type S3 struct {
	api       *s3.Client
	bucket    string
	keyPrefix string
	publicURL string
}

// NewS3 builds an S3 client. Static credentials are used when given,
// otherwise the default AWS credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		// Buildable so AWS_CA_BUNDLE can extend the transport's root CAs.
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(30 * time.Second)),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3{
		api:       client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		publicURL: publicURL,
	}, nil
}

// Save uploads data under a new key and returns its public URL.
func (s *S3) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.keyPrefix + objectName(name)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading photo: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

// Delete removes the object behind url. URLs outside the bucket are ignored.
func (s *S3) Delete(ctx context.Context, url string) error {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	key := strings.TrimPrefix(url, prefix)

	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return nil
}
