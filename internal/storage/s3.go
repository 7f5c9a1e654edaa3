package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads screenshots to a bucket and returns the object key.
type S3Store struct {
	client objectPutter
	bucket string
	prefix string
}

func NewS3Store(client objectPutter, bucket, prefix string) *S3Store {
	if prefix == "" {
		prefix = ScreenshotDir
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// NewS3StoreFromEnv loads the default AWS credential chain for region.
func NewS3StoreFromEnv(ctx context.Context, region, bucket, prefix string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3Store(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (s *S3Store) Save(ctx context.Context, interviewID uint, d models.Detection, frame *proctoring.Frame) (string, error) {
	data, err := EncodeScreenshot(frame, d)
	if err != nil {
		return "", err
	}

	key := path.Join(s.prefix, FileName(interviewID, d))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
		Metadata: map[string]string{
			"interview-id": fmt.Sprint(interviewID),
			"detection":    d.Type(),
			"severity":     string(d.Severity),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload screenshot %s: %w", key, err)
	}
	return key, nil
}
