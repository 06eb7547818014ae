package handlers

import (
	"strings"
	"time"

	"swiftfiles/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserView is the public representation of an account.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// FileView is the public representation of a file record. The URLs are
// derived per response and never stored.
type FileView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	OwnerID     string    `json:"owner_id"`
	ShareID     string    `json:"share_id"`
	ShareURL    string    `json:"share_url"`
	DownloadURL string    `json:"download_url"`
	URL         string    `json:"url,omitempty"`
}

// LinkConfig holds the base URLs used to build links in responses.
type LinkConfig struct {
	// PublicBaseURL is the frontend origin serving /share/<id> pages.
	PublicBaseURL string
	// APIBaseURL overrides the origin of download links. Empty means the
	// request's own origin.
	APIBaseURL string
	// StaticPrefix is the path blobs are served from directly, empty when
	// the blob store is not exposed.
	StaticPrefix string
}

func (l LinkConfig) apiBase(c *fiber.Ctx) string {
	if l.APIBaseURL != "" {
		return strings.TrimRight(l.APIBaseURL, "/")
	}
	return c.BaseURL()
}

func (l LinkConfig) fileView(c *fiber.Ctx, f *models.FileRecord) FileView {
	api := l.apiBase(c)
	v := FileView{
		ID:          f.ID,
		Name:        f.Name,
		Size:        f.Size,
		Type:        f.MimeType,
		CreatedAt:   f.CreatedAt,
		OwnerID:     f.OwnerID,
		ShareID:     f.ShareID,
		ShareURL:    strings.TrimRight(l.PublicBaseURL, "/") + "/share/" + f.ShareID,
		DownloadURL: api + "/api/files/download/" + f.ShareID,
	}
	if l.StaticPrefix != "" {
		v.URL = api + l.StaticPrefix + "/" + f.StorageKey
	}
	return v
}
