package sink

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// s3API is the slice of the S3 client the uploader needs.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader ships result files to a bucket.
type S3Uploader struct {
	api    s3API
	bucket string
	logger *zap.SugaredLogger
}

// NewS3Uploader builds an uploader on the ambient AWS credential chain.
func NewS3Uploader(ctx context.Context, bucket string, logger *zap.SugaredLogger) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Uploader{api: s3.NewFromConfig(cfg), bucket: bucket, logger: logger}, nil
}

// Upload puts the file into the bucket under its filename.
func (u *S3Uploader) Upload(ctx context.Context, filename, contentType string, content []byte) error {
	_, err := u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(filename),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", u.bucket, filename, err)
	}
	u.logger.Infow("uploaded results", "bucket", u.bucket, "key", filename)
	return nil
}
