package handlers

import (
	"strings"

	"swiftfiles/internal/logging"
	"swiftfiles/internal/middleware"
	"swiftfiles/internal/services"

	"github.com/gofiber/fiber/v2"
)

// FileHandler handles HTTP requests for files and share links.
type FileHandler struct {
	fileService *services.FileService
	auth        fiber.Handler
	links       LinkConfig
	log         logging.Logger
}

// NewFileHandler creates a new FileHandler. auth guards the owner routes.
func NewFileHandler(fileService *services.FileService, auth fiber.Handler, links LinkConfig, log logging.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		auth:        auth,
		links:       links,
		log:         log,
	}
}

// RegisterRoutes registers the file routes with the Fiber app.
func (h *FileHandler) RegisterRoutes(router fiber.Router) {
	fileRoutes := router.Group("/files")

	// public share routes
	fileRoutes.Get("/share/:shareId", h.HandleGetShared)
	fileRoutes.Get("/download/:shareId", h.HandleDownload)

	// owner routes
	fileRoutes.Post("/upload", h.auth, h.HandleUpload)
	fileRoutes.Get("/user", h.auth, h.HandleListMine)
	fileRoutes.Delete("/:fileId", h.auth, h.HandleDelete)
}

// HandleUpload stores the multipart field "file" for the authenticated user.
func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, h.log, services.ErrMissingFile)
	}
	if fileHeader.Size > h.fileService.MaxUploadBytes() {
		return respondError(c, h.log, services.ErrPayloadTooLarge)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer f.Close()

	record, err := h.fileService.Upload(c.UserContext(), services.UploadInput{
		OwnerID:  middleware.UserID(c),
		Name:     fileHeader.Filename,
		MimeType: fileHeader.Header.Get(fiber.HeaderContentType),
		Size:     fileHeader.Size,
		Body:     f,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"metadata": h.links.fileView(c, record),
	})
}

// HandleListMine lists the authenticated user's files, newest first.
func (h *FileHandler) HandleListMine(c *fiber.Ctx) error {
	files, err := h.fileService.ListByOwner(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	views := make([]FileView, 0, len(files))
	for i := range files {
		views = append(views, h.links.fileView(c, &files[i]))
	}
	return c.JSON(fiber.Map{"files": views})
}

// HandleGetShared returns the metadata behind a share link.
func (h *FileHandler) HandleGetShared(c *fiber.Ctx) error {
	record, err := h.fileService.FindByShareID(c.UserContext(), c.Params("shareId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"file": h.links.fileView(c, record)})
}

// HandleDownload streams the file behind a share link as an attachment.
func (h *FileHandler) HandleDownload(c *fiber.Ctx) error {
	dl, err := h.fileService.OpenForDownload(c.UserContext(), c.Params("shareId"))
	if err != nil {
		return respondError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, dl.MimeType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition(dl.Name))
	return c.SendStream(dl.Body, int(dl.Size))
}

// HandleDelete deletes one of the authenticated user's files.
func (h *FileHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.fileService.Delete(c.UserContext(), middleware.UserID(c), c.Params("fileId")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")

func contentDisposition(name string) string {
	return `attachment; filename="` + dispositionEscaper.Replace(name) + `"`
}
