package models

import "time"

// FileRecord binds an owner, a public share identifier and a blob reference.
// Every field is immutable once the record is created.
type FileRecord struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID    string    `json:"owner_id" gorm:"index;type:varchar(36);not null"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Size       int64     `json:"size" gorm:"not null"`
	MimeType   string    `json:"type" gorm:"type:varchar(255);not null"`
	StorageKey string    `json:"-" gorm:"type:varchar(512);not null"` // opaque blob store reference
	ShareID    string    `json:"share_id" gorm:"uniqueIndex;type:varchar(64);not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// TableName keeps the table name stable regardless of the struct name.
func (FileRecord) TableName() string {
	return "files"
}
