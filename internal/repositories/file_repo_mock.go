package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"swiftfiles/internal/models"

	"github.com/google/uuid"
)

// MockFileRepository is an in-memory implementation of FileRepository.
type MockFileRepository struct {
	files map[string]models.FileRecord
	mu    sync.RWMutex
}

// NewMockFileRepository creates a new instance of MockFileRepository.
func NewMockFileRepository() *MockFileRepository {
	return &MockFileRepository{
		files: make(map[string]models.FileRecord),
	}
}

// Create adds a new file record. Share identifiers must be unique.
func (r *MockFileRepository) Create(_ context.Context, file *models.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	if _, ok := r.files[file.ID]; ok {
		return fmt.Errorf("file %s: %w", file.ID, ErrDuplicate)
	}
	for _, f := range r.files {
		if f.ShareID == file.ShareID {
			return fmt.Errorf("share id %s: %w", file.ShareID, ErrDuplicate)
		}
	}
	r.files[file.ID] = *file
	return nil
}

// GetByID returns a file record by its ID.
func (r *MockFileRepository) GetByID(_ context.Context, id string) (*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	return &file, nil
}

// GetByShareID returns a file record by its share identifier.
func (r *MockFileRepository) GetByShareID(_ context.Context, shareID string) (*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.files {
		if f.ShareID == shareID {
			file := f
			return &file, nil
		}
	}
	return nil, fmt.Errorf("file %s: %w", shareID, ErrNotFound)
}

// ListByOwner returns the owner's file records, newest first.
func (r *MockFileRepository) ListByOwner(_ context.Context, ownerID string) ([]models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.FileRecord, 0)
	for _, f := range r.files {
		if f.OwnerID == ownerID {
			list = append(list, f)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

// Delete removes a file record by its ID.
func (r *MockFileRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		return fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	delete(r.files, id)
	return nil
}
