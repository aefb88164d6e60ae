package gateway

import "context"

// UploadObject is one local artifact to publish to object storage.
type UploadObject struct {
	LocalPath   string
	ObjectKey   string
	ContentType string
}

// StorageGateway publishes produced artifacts to durable object storage.
type StorageGateway interface {
	// UploadArtifacts uploads all objects, returning the first failure.
	UploadArtifacts(ctx context.Context, objects []UploadObject) error
}
