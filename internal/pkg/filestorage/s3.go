package filestorage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
)

// S3Config holds the bucket and client settings for S3-compatible storage
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional; custom endpoint such as MinIO or Supabase storage
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	PathStyle       bool
	Expiry          time.Duration
}

// S3Signer presigns GET requests for objects in the document bucket
type S3Signer struct {
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
	now     func() time.Time
}

// NewS3Signer creates a signer from cfg
func NewS3Signer(ctx context.Context, cfg S3Config) (*S3Signer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = time.Hour
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Signer{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		expiry:  cfg.Expiry,
		now:     time.Now,
	}, nil
}

// SignURL presigns a GET of the object for the configured lifetime
func (s *S3Signer) SignURL(ctx context.Context, objectPath string) (*SignedURL, error) {
	key, err := cleanKey(objectPath)
	if err != nil {
		return nil, err
	}

	issued := s.now()
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Failed to presign document URL")
		return nil, fmt.Errorf("failed to presign %s: %w", key, err)
	}

	return &SignedURL{URL: req.URL, ExpiresAt: issued.Add(s.expiry).UTC()}, nil
}
