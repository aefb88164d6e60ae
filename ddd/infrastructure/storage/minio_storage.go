package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/minio/minio-go/v7"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/gateway"
	"github.com/Patricklolilol/ffmpeg-service/internal/resource"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// MinioStorage publishes job artifacts to a MinIO bucket.
type MinioStorage struct {
	minioResource *resource.MinioResource
}

// NewMinioStorage wraps the shared MinIO resource as a storage gateway.
func NewMinioStorage(minioResource *resource.MinioResource) gateway.StorageGateway {
	return &MinioStorage{minioResource: minioResource}
}

// UploadArtifacts uploads each local artifact under its object key, stopping
// at the first failure.
func (s *MinioStorage) UploadArtifacts(ctx context.Context, objects []gateway.UploadObject) error {
	if len(objects) == 0 {
		return nil
	}

	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	for _, obj := range objects {
		if err := s.uploadOne(ctx, client, bucketName, obj); err != nil {
			return err
		}
	}
	return nil
}

func (s *MinioStorage) uploadOne(ctx context.Context, client *minio.Client, bucketName string, obj gateway.UploadObject) error {
	file, err := os.Open(obj.LocalPath)
	if err != nil {
		logger.Error("Failed to open artifact for upload", map[string]interface{}{
			"local_path": obj.LocalPath,
			"error":      err.Error(),
		})
		return fmt.Errorf("open artifact failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		logger.Error("Failed to stat artifact for upload", map[string]interface{}{
			"local_path": obj.LocalPath,
			"error":      err.Error(),
		})
		return fmt.Errorf("stat artifact failed: %w", err)
	}

	_, err = client.PutObject(ctx, bucketName, obj.ObjectKey, file, fileInfo.Size(), minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		logger.Error("Failed to upload artifact to MinIO", map[string]interface{}{
			"local_path": obj.LocalPath,
			"object_key": obj.ObjectKey,
			"error":      err.Error(),
		})
		return fmt.Errorf("upload artifact to minio failed: %w", err)
	}

	logger.Info("Artifact uploaded", map[string]interface{}{
		"object_key": obj.ObjectKey,
		"size":       fileInfo.Size(),
	})
	return nil
}
