package handler

import (
	"encoding/json"
	"path"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"photoapi/internal/jsondoc"
	"photoapi/internal/service"
)

// photoID returns the :id parameter and whether it is a UUID.
func photoID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}

// parseDocument decodes a JSON object. Empty input is no document.
func parseDocument(b []byte) (jsondoc.Document, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var doc jsondoc.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListPhotos lists photos with limit & offset.
//
// @Summary List photos
// @Tags photos
// @Produce json
// @Param limit query int false "page size" default(10)
// @Param offset query int false "rows to skip" default(0)
// @Success 200 {object} service.PhotoListResult
// @Failure 400 {object} errorPayload
// @Router /photos [get]
func ListPhotos(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreatePhoto creates a photo from a multipart form with a title, optional
// metadata JSON and an optional image file.
//
// @Summary Create photo
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "title"
// @Param metadata formData string false "metadata JSON object"
// @Param file formData file false "image"
// @Success 201 {object} model.Photo
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /photos [post]
func CreatePhoto(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		metadata, err := parseDocument([]byte(c.FormValue("metadata")))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_METADATA", "metadata must be a JSON object")
		}

		p, err := svc.Create(c.UserContext(), c.FormValue("title"), metadata)
		if err != nil {
			return writeServiceError(c, err)
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusCreated).JSON(p)
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		if p, err = svc.UploadImage(c.UserContext(), p.ID, f, fh.Filename, fh.Size); err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GetPhoto returns a photo with its image and metadata documents.
//
// @Summary Get photo
// @Tags photos
// @Produce json
// @Param id path string true "photo id"
// @Success 200 {object} model.Photo
// @Failure 404 {object} errorPayload
// @Router /photos/{id} [get]
func GetPhoto(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := photoID(c)
		if !ok {
			return invalidID(c)
		}
		p, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// ReplaceImage uploads a new original and refreshes the variants.
//
// @Summary Replace image
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "photo id"
// @Param file formData file true "image"
// @Success 200 {object} model.Photo
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /photos/{id}/image [put]
func ReplaceImage(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := photoID(c)
		if !ok {
			return invalidID(c)
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		p, err := svc.UploadImage(c.UserContext(), id, f, fh.Filename, fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// DeleteImage removes the original. Generated variants stay available.
//
// @Summary Delete image
// @Tags images
// @Produce json
// @Param id path string true "photo id"
// @Success 200 {object} model.Photo
// @Failure 404 {object} errorPayload
// @Router /photos/{id}/image [delete]
func DeleteImage(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := photoID(c)
		if !ok {
			return invalidID(c)
		}
		p, err := svc.DeleteImage(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// RegenerateImage rebuilds variants whose declaration changed.
//
// @Summary Regenerate variants
// @Tags images
// @Produce json
// @Param id path string true "photo id"
// @Success 200 {object} model.Photo
// @Failure 404 {object} errorPayload
// @Router /photos/{id}/image/regenerate [post]
func RegenerateImage(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := photoID(c)
		if !ok {
			return invalidID(c)
		}
		p, err := svc.RegenerateImage(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// UpdateMetadata merges a JSON object into the metadata; null removes a key.
//
// @Summary Patch metadata
// @Tags photos
// @Accept json
// @Produce json
// @Param id path string true "photo id"
// @Param patch body map[string]interface{} true "merge patch"
// @Success 200 {object} model.Photo
// @Failure 400 {object} errorPayload
// @Router /photos/{id}/metadata [patch]
func UpdateMetadata(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := photoID(c)
		if !ok {
			return invalidID(c)
		}
		patch, err := parseDocument(c.Body())
		if err != nil || patch == nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_METADATA", "metadata must be a JSON object")
		}
		p, err := svc.UpdateMetadata(c.UserContext(), id, patch)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// GetFile streams the original ("original") or a variant of a photo.
//
// @Summary Download file
// @Tags images
// @Param id path string true "photo id"
// @Param key path string true "original or variant key"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /photos/{id}/files/{key} [get]
func GetFile(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := photoID(c)
		if !ok {
			return invalidID(c)
		}
		rc, name, err := svc.OpenFile(c.UserContext(), id, c.Params("key"))
		if err != nil {
			return writeServiceError(c, err)
		}
		if ext := path.Ext(name); ext != "" {
			c.Type(ext)
		} else {
			c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		}
		c.Set(fiber.HeaderContentDisposition, `inline; filename="`+path.Base(name)+`"`)
		return c.SendStream(rc)
	}
}

// DeletePhoto removes the original and the photo.
//
// @Summary Delete photo
// @Tags photos
// @Param id path string true "photo id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /photos/{id} [delete]
func DeletePhoto(svc service.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := photoID(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
