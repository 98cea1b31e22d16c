// Package thumbs resolves stored thumbnail keys to fetchable URLs.
package thumbs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultExpiry = time.Hour

// S3Presigner signs time-limited GET URLs for thumbnail objects.
type S3Presigner struct {
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
}

// Options configures S3 access. AccessKey and Endpoint are optional; when
// unset the default AWS credential chain and endpoint apply.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Expiry    time.Duration
}

// NewS3Presigner builds a presigner from the options.
func NewS3Presigner(ctx context.Context, opts Options) (*S3Presigner, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("thumbnail bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &S3Presigner{
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
		expiry:  expiry,
	}, nil
}

// PresignURL returns a signed GET URL for the stored key.
func (p *S3Presigner) PresignURL(ctx context.Context, key string) (string, error) {
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// StaticPresigner maps keys onto a fixed base URL. Used for local
// deployments serving thumbnails from disk, and in tests.
type StaticPresigner struct {
	BaseURL string
}

func (p *StaticPresigner) PresignURL(_ context.Context, key string) (string, error) {
	return strings.TrimSuffix(p.BaseURL, "/") + "/" + strings.TrimPrefix(key, "/"), nil
}
