package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// BlobStore is the slice of the object store the upload flow needs: issue a
// presigned PUT, ask how big an object actually is, and delete rejects.
type BlobStore interface {
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)
	// ObjectSize returns the stored size of the object, or ErrObjectMissing.
	ObjectSize(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

type s3BlobStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
}

// NewS3BlobStore wraps an S3 client and bucket as a BlobStore.
func NewS3BlobStore(client *s3.Client, bucket string) BlobStore {
	return &s3BlobStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
	}
}

func (b *s3BlobStore) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := b.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign PUT for %s: %w", key, err)
	}
	return req.URL, nil
}

func (b *s3BlobStore) ObjectSize(ctx context.Context, key string) (int64, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, ErrObjectMissing
		}
		return 0, fmt.Errorf("head object %s: %w", key, err)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("head object %s: no content length", key)
	}
	return *out.ContentLength, nil
}

func (b *s3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
