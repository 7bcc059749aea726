package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("portal-storage")

// BlobStore wraps MinIO operations with tracing
type BlobStore struct {
	client *minio.Client
	bucket string
}

// NewBlobStore initializes a new MinIO-backed blob store
func NewBlobStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*BlobStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	bs := &BlobStore{
		client: client,
		bucket: bucket,
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		log.Printf("Creating bucket: %s", bucket)
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("Bucket %s created successfully", bucket)
	}

	return bs, nil
}

// Upload stores content at key and returns the public retrieval URL.
// Re-issuing with the same key overwrites the previous object.
func (bs *BlobStore) Upload(ctx context.Context, key string, content []byte, contentType string, userMeta map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "minio.upload",
		trace.WithAttributes(
			attribute.String("object_key", key),
			attribute.Int("size_bytes", len(content)),
			attribute.String("content_type", contentType),
		),
	)
	defer span.End()

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	reader := bytes.NewReader(content)
	_, err := bs.client.PutObject(ctx, bs.bucket, key, reader, int64(len(content)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: userMeta,
	})

	if err != nil {
		span.RecordError(err)
		return "", asStorageError(err)
	}

	span.SetAttributes(attribute.Bool("upload_success", true))
	return bs.URL(key), nil
}

// URL resolves a stored key to its publicly fetchable URL.
func (bs *BlobStore) URL(key string) string {
	endpoint := bs.client.EndpointURL()
	return fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(endpoint.String(), "/"),
		bs.bucket,
		key,
	)
}

func asStorageError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code != "" {
		return &StorageError{Code: resp.Code, Message: resp.Message, Err: err}
	}
	return &StorageError{Message: err.Error(), Err: err}
}
