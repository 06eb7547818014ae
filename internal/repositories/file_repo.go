package repositories

import (
	"context"

	"swiftfiles/internal/models"
)

// FileRepository defines the interface for file metadata access.
type FileRepository interface {
	Create(ctx context.Context, file *models.FileRecord) error
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	GetByShareID(ctx context.Context, shareID string) (*models.FileRecord, error)
	// ListByOwner returns the owner's records newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.FileRecord, error)
	Delete(ctx context.Context, id string) error
}
