package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/limnoscan/specimen-processor/config"
	"github.com/limnoscan/specimen-processor/pkg/logger"
)

// MinioStore is the MinIO-backed blob store. Containers map to buckets.
type MinioStore struct {
	client *minio.Client
	region string
	logger logger.Logger
}

// Download implements BlobStore.Download
func (m *MinioStore) Download(ctx context.Context, container, blobName, destPath string) error {
	err := m.client.FGetObject(ctx, container, blobName, destPath, minio.GetObjectOptions{})
	if err != nil {
		m.logger.Error("Failed to download blob from MinIO",
			logger.String("container", container),
			logger.String("blob", blobName),
			logger.Error(err),
		)
		return fmt.Errorf("failed to download blob: %w", err)
	}

	return nil
}

// Upload implements BlobStore.Upload
func (m *MinioStore) Upload(ctx context.Context, container, blobName, srcPath string, metadata map[string]string) error {
	_, err := m.client.FPutObject(ctx, container, blobName, srcPath, minio.PutObjectOptions{
		UserMetadata: metadata,
	})
	if err != nil {
		m.logger.Error("Failed to upload blob to MinIO",
			logger.String("container", container),
			logger.String("blob", blobName),
			logger.Error(err),
		)
		return fmt.Errorf("failed to upload blob: %w", err)
	}

	return nil
}

// Exists implements BlobStore.Exists
func (m *MinioStore) Exists(ctx context.Context, container string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, container)
	if err != nil {
		return false, fmt.Errorf("failed to check container existence: %w", err)
	}
	return exists, nil
}

// EnsureContainer implements BlobStore.EnsureContainer
func (m *MinioStore) EnsureContainer(ctx context.Context, container string) error {
	exists, err := m.client.BucketExists(ctx, container)
	if err != nil {
		return fmt.Errorf("failed to check container existence: %w", err)
	}
	if exists {
		return nil
	}

	err = m.client.MakeBucket(ctx, container, minio.MakeBucketOptions{Region: m.region})
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	m.logger.Info("Created container",
		logger.String("container", container),
	)
	return nil
}

func NewMinioStore(log logger.Logger) (*MinioStore, error) {
	minioConfig := cfg.GetMinioConfig()
	client, err := minio.New(minioConfig.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioConfig.AccessKey, minioConfig.SecretKey, ""),
		Secure: minioConfig.UseSSL,
		Region: minioConfig.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinioStore{
		client: client,
		region: minioConfig.Region,
		logger: log,
	}, nil
}

func GetClient(log logger.Logger) (*MinioStore, error) {
	return NewMinioStore(log)
}
