package repository

import (
	"context"
	"errors"

	"photoapi/internal/model"
)

// ErrNotFound is returned when no row matches the requested ID.
var ErrNotFound = errors.New("repository: not found")

// PhotoRepository defines data access for photos using SQL queries only.
// Document columns are written through the attributes' Value hook, so the
// current state of every document is saved, including in-place edits.
type PhotoRepository interface {
	// Create inserts a new photo row. ID and timestamps are set by the caller.
	Create(ctx context.Context, p *model.Photo) error

	// Update writes title, documents and updated_at of an existing row.
	Update(ctx context.Context, p *model.Photo) error

	// FindByID returns a photo by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Photo, error)

	// List returns a paginated list of photos and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[*model.Photo], error)

	// Delete removes a photo by ID. It returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
