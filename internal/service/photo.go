package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"photoapi/internal/field"
	"photoapi/internal/jsondoc"
	"photoapi/internal/model"
	"photoapi/internal/repository"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrTitleRequired = errors.New("title is required")
	ErrNotFound      = errors.New("photo not found")
	ErrReaderNil     = errors.New("reader is nil")
)

var tracer = otel.Tracer("photoapi/internal/service")

// PhotoListResult is the service-level DTO for paginated photos.
type PhotoListResult struct {
	Items []*model.Photo `json:"data"`
	Total int            `json:"total"`
}

// PhotoService defines the use cases for photos and their images.
type PhotoService interface {
	// Create inserts a photo without an image.
	Create(ctx context.Context, title string, metadata jsondoc.Document) (*model.Photo, error)

	// UploadImage stores r as the photo's new original, refreshes its variants
	// and saves the photo.
	UploadImage(ctx context.Context, id string, r io.Reader, filename string, size int64) (*model.Photo, error)

	// RegenerateImage rebuilds the variants whose declaration changed since
	// they were generated.
	RegenerateImage(ctx context.Context, id string) (*model.Photo, error)

	// DeleteImage removes the original from storage and clears it from the
	// photo. Generated variants are kept.
	DeleteImage(ctx context.Context, id string) (*model.Photo, error)

	// OpenFile opens the original (key "original") or a declared variant and
	// returns it with its stored name. The caller closes the reader.
	OpenFile(ctx context.Context, id, key string) (io.ReadCloser, string, error)

	// UpdateMetadata merges patch into the metadata document; null values
	// remove keys.
	UpdateMetadata(ctx context.Context, id string, patch jsondoc.Document) (*model.Photo, error)

	// List returns photos using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*PhotoListResult, error)

	// Get returns a single photo by its ID.
	Get(ctx context.Context, id string) (*model.Photo, error)

	// Delete removes the photo's original from storage, then its record.
	Delete(ctx context.Context, id string) error
}

type photoService struct {
	repo   repository.PhotoRepository
	images *field.ImageField
	now    func() time.Time
}

// NewPhotoService constructs a PhotoService storing images through images.
func NewPhotoService(repo repository.PhotoRepository, images *field.ImageField) PhotoService {
	return &photoService{repo: repo, images: images, now: func() time.Time { return time.Now().UTC() }}
}

func (s *photoService) Create(ctx context.Context, title string, metadata jsondoc.Document) (p *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.Create")
	defer func() { finish(span, err) }()

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	now := s.now()
	p = &model.Photo{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if metadata != nil {
		p.SetMetadata(metadata)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	span.SetAttributes(attribute.String("photo.id", p.ID))
	return p, nil
}

func (s *photoService) UploadImage(ctx context.Context, id string, r io.Reader, filename string, size int64) (p *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.UploadImage", trace.WithAttributes(
		attribute.String("photo.id", id),
		attribute.String("file.name", filename),
		attribute.Int64("file.size", size),
	))
	defer func() { finish(span, err) }()

	if r == nil {
		return nil, ErrReaderNil
	}
	if p, err = s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.attach(p).Save(ctx, filename, r, size, true); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *photoService) RegenerateImage(ctx context.Context, id string) (p *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.RegenerateImage", trace.WithAttributes(attribute.String("photo.id", id)))
	defer func() { finish(span, err) }()

	if p, err = s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.attach(p).Regenerate(ctx, true); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *photoService) DeleteImage(ctx context.Context, id string) (p *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.DeleteImage", trace.WithAttributes(attribute.String("photo.id", id)))
	defer func() { finish(span, err) }()

	if p, err = s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.attach(p).Delete(ctx, true); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *photoService) OpenFile(ctx context.Context, id, key string) (rc io.ReadCloser, name string, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.OpenFile", trace.WithAttributes(
		attribute.String("photo.id", id),
		attribute.String("file.key", key),
	))
	defer func() { finish(span, err) }()

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, "", err
	}
	img := s.attach(p)

	f := &img.File
	if key != field.OriginalKey {
		if f, err = img.Variant(key); err != nil {
			return nil, "", err
		}
	}
	if rc, err = f.Open(ctx); err != nil {
		return nil, "", err
	}
	return rc, f.Name, nil
}

func (s *photoService) UpdateMetadata(ctx context.Context, id string, patch jsondoc.Document) (p *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.UpdateMetadata", trace.WithAttributes(attribute.String("photo.id", id)))
	defer func() { finish(span, err) }()

	if p, err = s.find(ctx, id); err != nil {
		return nil, err
	}
	doc := p.MetadataAttr().Ensure()
	for k, v := range patch {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns paginated photos without exposing repository types.
func (s *photoService) List(ctx context.Context, limit, offset int) (res *PhotoListResult, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.List")
	defer func() { finish(span, err) }()

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	page, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &PhotoListResult{Items: page.Items, Total: page.Total}, nil
}

// Get returns a photo by ID.
func (s *photoService) Get(ctx context.Context, id string) (p *model.Photo, err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.Get", trace.WithAttributes(attribute.String("photo.id", id)))
	defer func() { finish(span, err) }()

	return s.find(ctx, id)
}

// Delete removes the original first; if that fails the row is kept so the
// stored path is not lost.
func (s *photoService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "PhotoService.Delete", trace.WithAttributes(attribute.String("photo.id", id)))
	defer func() { finish(span, err) }()

	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.images.Attach(p.ImageAttr(), nil).Delete(ctx, false); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

func (s *photoService) find(ctx context.Context, id string) (*model.Photo, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// attach binds the image field to p, saving p on commit.
func (s *photoService) attach(p *model.Photo) *field.ImageFile {
	return s.images.Attach(p.ImageAttr(), func(ctx context.Context) error {
		return s.save(ctx, p)
	})
}

func (s *photoService) save(ctx context.Context, p *model.Photo) error {
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("db save failed: %w", err)
	}
	return nil
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
