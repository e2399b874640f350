package postgres

import (
	"context"
	"database/sql"
	"errors"

	"photoapi/internal/model"
	"photoapi/internal/repository"
)

// PhotoPostgres is a PostgreSQL implementation of repository.PhotoRepository.
type PhotoPostgres struct {
	db *sql.DB
}

// NewPhotoPostgres creates a new PhotoPostgres repository.
func NewPhotoPostgres(db *sql.DB) *PhotoPostgres {
	return &PhotoPostgres{db: db}
}

var _ repository.PhotoRepository = (*PhotoPostgres)(nil)

const photoColumns = `id, title, image, metadata, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s scanner) (*model.Photo, error) {
	var p model.Photo
	if err := s.Scan(
		&p.ID,
		&p.Title,
		p.ImageAttr(),
		p.MetadataAttr(),
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new photo row.
func (r *PhotoPostgres) Create(ctx context.Context, p *model.Photo) error {
	const q = `
		INSERT INTO photos (id, title, image, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		p.ID,
		p.Title,
		p.ImageAttr(),
		p.MetadataAttr(),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// Update saves the mutable columns of a photo.
func (r *PhotoPostgres) Update(ctx context.Context, p *model.Photo) error {
	const q = `
		UPDATE photos
		SET title = $2, image = $3, metadata = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q,
		p.ID,
		p.Title,
		p.ImageAttr(),
		p.MetadataAttr(),
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindByID fetches a single photo by its ID.
func (r *PhotoPostgres) FindByID(ctx context.Context, id string) (*model.Photo, error) {
	const q = `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	p, err := scanPhoto(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return p, err
}

// List returns photos using LIMIT/OFFSET pagination and a total count.
func (r *PhotoPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[*model.Photo], error) {
	const qCount = `SELECT COUNT(*) FROM photos`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + photoColumns + `
		FROM photos
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*model.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[*model.Photo]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a photo by ID.
func (r *PhotoPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM photos WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
