package repositories

import (
	"context"
	"errors"
	"fmt"

	"swiftfiles/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMFileRepository is a GORM implementation of FileRepository.
type GORMFileRepository struct {
	db *gorm.DB
}

// NewGORMFileRepository creates a new instance of GORMFileRepository.
func NewGORMFileRepository(db *gorm.DB) *GORMFileRepository {
	return &GORMFileRepository{
		db: db,
	}
}

// Create inserts a new file record.
func (r *GORMFileRepository) Create(ctx context.Context, file *models.FileRecord) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("file %s: %w", file.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

// GetByID retrieves a file record by its ID.
func (r *GORMFileRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByShareID retrieves a file record by its share identifier.
func (r *GORMFileRepository) GetByShareID(ctx context.Context, shareID string) (*models.FileRecord, error) {
	return r.first(ctx, "share_id = ?", shareID)
}

func (r *GORMFileRepository) first(ctx context.Context, query string, arg string) (*models.FileRecord, error) {
	var file models.FileRecord
	if err := r.db.WithContext(ctx).First(&file, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("file %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

// ListByOwner retrieves all file records of an owner, newest first.
func (r *GORMFileRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.FileRecord, error) {
	files := make([]models.FileRecord, 0)
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files for owner %s: %w", ownerID, err)
	}
	return files, nil
}

// Delete removes a file record by its ID.
func (r *GORMFileRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.FileRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete file record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	return nil
}
