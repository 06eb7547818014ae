// Package api assembles the HTTP surface: middleware, routes and static blobs.
package api

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"swiftfiles/internal/handlers"
	"swiftfiles/internal/logging"
	"swiftfiles/internal/middleware"
	"swiftfiles/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/cors"
)

// multipartOverhead is added to the upload ceiling for the transport body limit.
// Larger bodies are streamed rather than refused, so the upload handler can
// answer them with a 413.
const multipartOverhead = 1 << 20

// StaticPrefix is where local blobs are served read-only.
const StaticPrefix = "/uploads"

// Options holds everything the router needs.
type Options struct {
	AuthService *services.AuthService
	FileService *services.FileService
	Links       handlers.LinkConfig
	// StaticRoot is the local blob directory to expose under StaticPrefix.
	// Empty disables the mount.
	StaticRoot         string
	CORSAllowedOrigins []string
	Logger             logging.Logger
	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer
}

// NewRouter builds the Fiber application.
func NewRouter(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "swiftfiles",
		BodyLimit:             int(opts.FileService.MaxUploadBytes()) + multipartOverhead,
		StreamRequestBody:     true,
		ErrorHandler:          handlers.ErrorHandler(opts.Logger),
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Minute,
	})

	// --- Middleware ---
	app.Use(recover.New())
	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: opts.AccessLog}))
	}
	app.Use(adaptor.HTTPMiddleware(cors.New(corsOptions(opts.CORSAllowedOrigins)).Handler))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("SwiftFiles API is running")
	})

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	links := opts.Links
	if opts.StaticRoot != "" {
		links.StaticPrefix = StaticPrefix
		root := opts.StaticRoot
		app.Static(StaticPrefix, root, fiber.Static{
			Browse: false,
			// the file server caches open handles, so deleted blobs are skipped here
			Next: func(c *fiber.Ctx) bool {
				return !blobExists(root, strings.TrimPrefix(c.Path(), StaticPrefix))
			},
		})
	}

	// --- API Routes ---
	apiRoutes := app.Group("/api")
	authHandler := handlers.NewAuthHandler(opts.AuthService, opts.Logger)
	fileHandler := handlers.NewFileHandler(opts.FileService, middleware.AuthRequired(opts.AuthService), links, opts.Logger)
	authHandler.RegisterRoutes(apiRoutes)
	fileHandler.RegisterRoutes(apiRoutes)

	return app
}

// blobExists reports whether rel names a regular file under root.
func blobExists(root, rel string) bool {
	rel, err := url.PathUnescape(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(path.Clean("/"+rel))))
	return err == nil && info.Mode().IsRegular()
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}
}
