package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"swiftfiles/internal/logging"
	"swiftfiles/internal/models"
	"swiftfiles/internal/repositories"
	"swiftfiles/internal/storage"
	"swiftfiles/internal/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxUploadBytes is the upload ceiling (50 MiB).
const DefaultMaxUploadBytes int64 = 50 << 20

const octetStream = "application/octet-stream"

// maxFieldLen bounds the stored name and MIME type (varchar(255) columns).
const maxFieldLen = 255

// EventPublisher receives file lifecycle events. Publishing is best-effort.
type EventPublisher interface {
	PublishFileEvent(ctx context.Context, event models.FileEvent) error
}

// UploadInput describes an incoming file. Size is the size declared by the
// client, or -1 when unknown.
type UploadInput struct {
	OwnerID  string
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// Download is an opened blob with the metadata needed to serve it. The caller
// must close Body.
type Download struct {
	Body     io.ReadCloser
	Name     string
	MimeType string
	Size     int64
}

// FileService owns file records and their blobs.
type FileService struct {
	files          repositories.FileRepository
	blobs          storage.Storage
	events         EventPublisher
	log            logging.Logger
	maxUploadBytes int64
}

// NewFileService creates a new FileService. events may be nil.
func NewFileService(files repositories.FileRepository, blobs storage.Storage, events EventPublisher, maxUploadBytes int64, log logging.Logger) *FileService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &FileService{
		files:          files,
		blobs:          blobs,
		events:         events,
		log:            log,
		maxUploadBytes: maxUploadBytes,
	}
}

// MaxUploadBytes is the configured upload ceiling.
func (s *FileService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Upload stores the blob and then records its metadata. The record is only
// written once the blob is complete.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*models.FileRecord, error) {
	if in.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if in.Body == nil {
		return nil, ErrMissingFile
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxFieldLen {
		return nil, fmt.Errorf("%w: file name must be at most %d characters", ErrValidation, maxFieldLen)
	}
	if utf8.RuneCountInString(in.MimeType) > maxFieldLen {
		return nil, fmt.Errorf("%w: content type must be at most %d characters", ErrValidation, maxFieldLen)
	}
	if in.Size > s.maxUploadBytes {
		return nil, ErrPayloadTooLarge
	}

	body := bufio.NewReader(in.Body)
	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" || mimeType == octetStream {
		mimeType = detectMimeType(body, name)
	}

	shareID, err := utils.NewShareID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share id: %w", err)
	}

	key := storage.NewKey(name)
	counter := &limitReader{r: body, limit: s.maxUploadBytes}
	if err := s.blobs.Put(ctx, key, counter, mimeType); err != nil {
		s.removeBlob(ctx, key)
		if counter.exceeded() {
			return nil, ErrPayloadTooLarge
		}
		s.log.Error(ctx, "blob write failed", "owner_id", in.OwnerID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	record := &models.FileRecord{
		ID:         uuid.New().String(),
		OwnerID:    in.OwnerID,
		Name:       name,
		Size:       counter.n,
		MimeType:   mimeType,
		StorageKey: key,
		ShareID:    shareID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.files.Create(ctx, record); err != nil {
		s.removeBlob(ctx, key)
		s.log.Error(ctx, "file record write failed", "owner_id", in.OwnerID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.log.Info(ctx, "file uploaded", "file_id", record.ID, "owner_id", record.OwnerID, "size", record.Size)
	s.publish(ctx, models.EventFileUploaded, record)
	return record, nil
}

// ListByOwner returns the owner's files newest first.
func (s *FileService) ListByOwner(ctx context.Context, ownerID string) ([]models.FileRecord, error) {
	files, err := s.files.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if files == nil {
		files = []models.FileRecord{}
	}
	return files, nil
}

// FindByShareID resolves a public share identifier.
func (s *FileService) FindByShareID(ctx context.Context, shareID string) (*models.FileRecord, error) {
	if shareID == "" {
		return nil, ErrNotFound
	}
	record, err := s.files.GetByShareID(ctx, shareID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return record, nil
}

// OpenForDownload resolves the share identifier and opens the blob. A record
// whose blob is gone is reported as ErrNotFound.
func (s *FileService) OpenForDownload(ctx context.Context, shareID string) (*Download, error) {
	record, err := s.FindByShareID(ctx, shareID)
	if err != nil {
		return nil, err
	}

	body, err := s.blobs.Open(ctx, record.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			s.log.Warn(ctx, "blob missing for file record", "file_id", record.ID, "storage_key", record.StorageKey)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &Download{
		Body:     body,
		Name:     record.Name,
		MimeType: record.MimeType,
		Size:     record.Size,
	}, nil
}

// Delete removes one of the owner's files. A file owned by someone else is
// reported exactly like a missing one.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID string) error {
	record, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if record.OwnerID != ownerID {
		return ErrNotFound
	}

	if err := s.blobs.Delete(ctx, record.StorageKey); err != nil {
		s.log.Error(ctx, "blob delete failed, blob orphaned", "file_id", record.ID, "storage_key", record.StorageKey, "error", err)
		s.publish(ctx, models.EventBlobOrphaned, record)
	}

	if err := s.files.Delete(ctx, record.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.log.Info(ctx, "file deleted", "file_id", record.ID, "owner_id", ownerID)
	s.publish(ctx, models.EventFileDeleted, record)
	return nil
}

func (s *FileService) removeBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "failed to remove partial blob", "storage_key", key, "error", err)
	}
}

func (s *FileService) publish(ctx context.Context, eventType string, record *models.FileRecord) {
	if s.events == nil {
		return
	}
	event := models.FileEvent{
		Type:       eventType,
		FileID:     record.ID,
		OwnerID:    record.OwnerID,
		ShareID:    record.ShareID,
		Name:       record.Name,
		Size:       record.Size,
		OccurredAt: time.Now().UTC(),
	}
	if eventType == models.EventBlobOrphaned {
		event.StorageKey = record.StorageKey
	}
	if err := s.events.PublishFileEvent(ctx, event); err != nil {
		s.log.Warn(ctx, "failed to publish file event", "type", eventType, "file_id", record.ID, "error", err)
	}
}

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

func detectMimeType(r *bufio.Reader, name string) string {
	head, _ := r.Peek(sniffLen)
	if len(head) > 0 {
		if mt := mimetype.Detect(head); mt.String() != octetStream {
			return mt.String()
		}
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return octetStream
}

// limitReader counts bytes and fails once more than limit have been read.
type limitReader struct {
	r     io.Reader
	limit int64
	n     int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.limit {
		return n, ErrPayloadTooLarge
	}
	return n, err
}

func (l *limitReader) exceeded() bool {
	return l.n > l.limit
}
