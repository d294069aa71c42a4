package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	cfg "github.com/limnoscan/specimen-processor/config"
	"github.com/limnoscan/specimen-processor/pkg/logger"
)

// S3Store is the S3-backed blob store. Containers map to buckets.
type S3Store struct {
	client *s3.Client
	region string
	logger logger.Logger
}

// Download implements BlobStore.Download
func (s *S3Store) Download(ctx context.Context, container, blobName, destPath string) error {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blobName),
	})
	if err != nil {
		s.logger.Error("Failed to download blob from S3",
			logger.String("container", container),
			logger.String("blob", blobName),
			logger.Error(err),
		)
		return fmt.Errorf("failed to download blob: %w", err)
	}
	defer result.Body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, result.Body); err != nil {
		return fmt.Errorf("failed to write local file: %w", err)
	}

	return nil
}

// Upload implements BlobStore.Upload
func (s *S3Store) Upload(ctx context.Context, container, blobName, srcPath string, metadata map[string]string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(container),
		Key:      aws.String(blobName),
		Body:     file,
		Metadata: metadata,
	})
	if err != nil {
		s.logger.Error("Failed to upload blob to S3",
			logger.String("container", container),
			logger.String("blob", blobName),
			logger.Error(err),
		)
		return fmt.Errorf("failed to upload blob: %w", err)
	}

	return nil
}

// Exists implements BlobStore.Exists
func (s *S3Store) Exists(ctx context.Context, container string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(container),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check container existence: %w", err)
	}
	return true, nil
}

// EnsureContainer implements BlobStore.EnsureContainer
func (s *S3Store) EnsureContainer(ctx context.Context, container string) error {
	exists, err := s.Exists(ctx, container)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	input := &s3.CreateBucketInput{
		Bucket: aws.String(container),
	}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	s.logger.Info("Created container",
		logger.String("container", container),
	)
	return nil
}

func NewS3Store(log logger.Logger) (*S3Store, error) {
	s3Config := cfg.GetS3Config()

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(s3Config.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s3Config.AccessKey,
			s3Config.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		region: s3Config.Region,
		logger: log,
	}, nil
}

func GetClient(log logger.Logger) (*S3Store, error) {
	return NewS3Store(log)
}
