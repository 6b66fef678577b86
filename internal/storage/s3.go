package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

const minMultipartSize = 12 << 20

type S3Store struct {
	c      *s3.Client
	bucket *string
}

// NewS3Store connects to the configured bucket and verifies it exists.
// Setting aws.endpoint points the client at an S3 compatible service
// like R2 or MinIO.
func NewS3Store() (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("aws.access_key"),
			viper.GetString("aws.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("aws.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.Region = viper.GetString("aws.region")

		if endpoint := viper.GetString("aws.endpoint"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Store{
		c:      client,
		bucket: bucket,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        s.bucket,
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}

	var err error
	if size > minMultipartSize {
		uploader := manager.NewUploader(s.c, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})

		_, err = uploader.Upload(ctx, input)
	} else {
		_, err = s.c.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload to s3, %w", err)
	}

	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, "", ErrNotFound
		}

		return nil, "", fmt.Errorf("failed to fetch from s3, %w", err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}

	return out.Body, contentType, nil
}

func (s *S3Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	// S3 can delete at most 1000 objects in one batch request
	for start := 0; start < len(keys); start += 1000 {
		end := min(start+1000, len(keys))

		objects := make([]types.ObjectIdentifier, end-start)
		for i, key := range keys[start:end] {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		_, err := s.c.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: s.bucket,
			Delete: &types.Delete{
				Objects: objects,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete from s3, %w", err)
		}
	}

	return nil
}
