package publish

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"CinemaScanner/internal/ports"
)

// objectPutter is the slice of the S3 API the publisher needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads run artifacts to a bucket under a fixed prefix.
type S3Publisher struct {
	client objectPutter
	bucket string
	prefix string
}

var _ ports.Publisher = (*S3Publisher)(nil)

// NewS3Publisher loads AWS credentials from the default chain.
func NewS3Publisher(ctx context.Context, bucket, prefix, region string) (*S3Publisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3Publisher(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3Publisher(client objectPutter, bucket, prefix string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Publish stores body at prefix/key.
func (p *S3Publisher) Publish(ctx context.Context, key string, body io.Reader) error {
	fullKey := p.fullKey(key)
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(fullKey),
		Body:        body,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", p.bucket, fullKey, err)
	}
	return nil
}

func (p *S3Publisher) fullKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if p.prefix == "" {
		return key
	}
	return path.Join(p.prefix, key)
}
