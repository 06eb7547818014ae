package models

import "time"

// File lifecycle event types.
const (
	EventFileUploaded = "file.uploaded"
	EventFileDeleted  = "file.deleted"
	// EventBlobOrphaned reports a blob that could not be removed after its record was deleted.
	EventBlobOrphaned = "blob.orphaned"
)

// FileEvent is published to the event queue for operators and background consumers.
type FileEvent struct {
	Type       string    `json:"type"`
	FileID     string    `json:"file_id"`
	OwnerID    string    `json:"owner_id"`
	ShareID    string    `json:"share_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Size       int64     `json:"size"`
	StorageKey string    `json:"storage_key,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
