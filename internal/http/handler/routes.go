package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"photoapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, photoSvc service.PhotoService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/photos", ListPhotos(photoSvc))
	app.Post("/photos", CreatePhoto(photoSvc))
	app.Get("/photos/:id", GetPhoto(photoSvc))
	app.Delete("/photos/:id", DeletePhoto(photoSvc))

	app.Put("/photos/:id/image", ReplaceImage(photoSvc))
	app.Delete("/photos/:id/image", DeleteImage(photoSvc))
	app.Post("/photos/:id/image/regenerate", RegenerateImage(photoSvc))
	app.Patch("/photos/:id/metadata", UpdateMetadata(photoSvc))
	app.Get("/photos/:id/files/:key", GetFile(photoSvc))
}
