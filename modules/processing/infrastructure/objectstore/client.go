// Package objectstore is the C2 Presigned-URL Provider plus the GET/PUT
// object store client the pipeline uses for its R2/S3-compatible backend.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/services"
)

// Operation distinguishes GET from PUT when presigning.
type Operation string

const (
	OpGet Operation = "GET"
	OpPut Operation = "PUT"
)

// Client wraps an S3-compatible object store (Cloudflare R2 or AWS S3
// itself) for GET/PUT-by-key and SigV4 presigned-URL generation.
type Client struct {
	bucket  string
	s3      *s3.Client
	presign *s3.PresignClient
}

// Config configures the object store client.
type Config struct {
	Bucket          string
	Endpoint        string // R2 account endpoint; empty for real AWS S3
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient builds a Client from explicit credentials, matching an
// R2-compatible endpoint when Endpoint is set. Fails with ConfigError when
// credentials cannot be resolved, per §4.2.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, perrors.NewConfigError("object store bucket is required", nil)
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, perrors.NewConfigError("object store credentials are missing", nil)
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, perrors.NewConfigError("failed to load object store SDK config", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &Client{
		bucket:  cfg.Bucket,
		s3:      s3Client,
		presign: s3.NewPresignClient(s3Client),
	}, nil
}

// Presign generates a time-limited GET/PUT URL for key. Any "r2://" scheme on
// key is stripped here first, so the signed request always uses the bare key.
func (c *Client) Presign(ctx context.Context, op Operation, key string, contentType string, ttl time.Duration) (string, error) {
	key = services.StripScheme(key)

	switch op {
	case OpGet:
		req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(ttl))
		if err != nil {
			return "", fmt.Errorf("presign GET %s: %w", key, err)
		}
		return req.URL, nil
	case OpPut:
		input := &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		}
		if contentType != "" {
			input.ContentType = aws.String(contentType)
		}
		req, err := c.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(ttl))
		if err != nil {
			return "", fmt.Errorf("presign PUT %s: %w", key, err)
		}
		return req.URL, nil
	default:
		return "", perrors.NewConfigError(fmt.Sprintf("unknown presign operation %q", op), nil)
	}
}

// Get reads an object by key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	key = services.StripScheme(key)
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Put writes an object by key.
func (c *Client) Put(ctx context.Context, key string, contentType string, body []byte) error {
	key = services.StripScheme(key)
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes an object by key. Used by the Cleaner; deletion failures
// there are logged and swallowed by the caller, not here.
func (c *Client) Delete(ctx context.Context, key string) error {
	key = services.StripScheme(key)
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
