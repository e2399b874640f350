package field

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"photoapi/internal/imaging"
	"photoapi/internal/jsondoc"
	"photoapi/internal/storage"
)

var (
	// ErrUnknownVariant is returned when a variant key is not declared on the field.
	ErrUnknownVariant = errors.New("field: unknown variant")
	// ErrNoFile is returned when reading a file handle that has no name.
	ErrNoFile = errors.New("field: no file")
	// ErrInvalidName is returned for upload names with no usable base name.
	ErrInvalidName = errors.New("field: invalid file name")
)

// OriginalKey is the document key holding the stored path of the upload itself.
const OriginalKey = "original"

// Committer persists the entity that owns a field value.
type Committer func(ctx context.Context) error

// DocumentField declares a column holding a JSON document. The schema only
// ever sees an opaque text column; the document structure lives in code.
type DocumentField struct {
	Column string
}

// ColumnType is the SQL type used for the column.
func (f DocumentField) ColumnType() string {
	return "TEXT"
}

// ColumnDDL returns the column definition for CREATE/ALTER TABLE statements.
func (f DocumentField) ColumnDDL() string {
	return f.Column + " " + f.ColumnType()
}

// ImageConfig declares an ImageField.
type ImageConfig struct {
	Column string
	// UploadTo is a strftime pattern for the directory files are stored in.
	UploadTo string
	// Thumbnails maps each variant key to the spec used to derive it.
	Thumbnails  map[string]imaging.Spec
	Storage     storage.Storage
	Transformer imaging.Transformer
	// Now defaults to time.Now.
	Now func() time.Time
}

// ImageField is a DocumentField whose document indexes an uploaded image and
// the variants derived from it. The declaration is fixed for the lifetime of
// the process and shared by every entity.
type ImageField struct {
	DocumentField

	uploadTo    *strftime.Strftime
	thumbnails  map[string]imaging.Spec
	keys        []string
	storage     storage.Storage
	transformer imaging.Transformer
	now         func() time.Time
}

// NewImageField validates cfg and builds the field.
func NewImageField(cfg ImageConfig) (*ImageField, error) {
	if cfg.Column == "" {
		return nil, errors.New("field: column is required")
	}
	if cfg.Storage == nil || cfg.Transformer == nil {
		return nil, errors.New("field: storage and transformer are required")
	}
	pattern, err := strftime.New(cfg.UploadTo)
	if err != nil {
		return nil, fmt.Errorf("field: upload_to %q: %w", cfg.UploadTo, err)
	}

	keys := make([]string, 0, len(cfg.Thumbnails))
	for k := range cfg.Thumbnails {
		if k == "" || k == OriginalKey {
			return nil, fmt.Errorf("field: invalid variant key %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &ImageField{
		DocumentField: DocumentField{Column: cfg.Column},
		uploadTo:      pattern,
		thumbnails:    cfg.Thumbnails,
		keys:          keys,
		storage:       cfg.Storage,
		transformer:   cfg.Transformer,
		now:           now,
	}, nil
}

// Keys returns the declared variant keys in sorted order.
func (f *ImageField) Keys() []string {
	return append([]string(nil), f.keys...)
}

// Spec returns the declared spec for a variant key.
func (f *ImageField) Spec(key string) (imaging.Spec, bool) {
	s, ok := f.thumbnails[key]
	return s, ok
}

// Storage returns the backend files of this field are stored in.
func (f *ImageField) Storage() storage.Storage {
	return f.storage
}

// DirectoryName expands the upload pattern for the current time.
func (f *ImageField) DirectoryName() string {
	return path.Clean(f.uploadTo.FormatString(f.now()))
}

// Filename sanitizes the base name of name through the storage backend.
func (f *ImageField) Filename(name string) string {
	return path.Clean(f.storage.ValidName(path.Base(name)))
}

// GenerateFilename returns the storage name for an upload called name.
// Every file, original or variant, gets its own name from here.
func (f *ImageField) GenerateFilename(name string) (string, error) {
	file := f.Filename(name)
	if file == "." || file == ".." || file == "/" || strings.Trim(file, ".") == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return path.Join(f.DirectoryName(), file), nil
}

// Attach binds the field to one entity's attribute. The returned value shares
// the attribute's document; commit is called to persist the entity.
func (f *ImageField) Attach(attr *jsondoc.Attr, commit Committer) *ImageFile {
	doc := attr.Get()
	name, _ := doc[OriginalKey].(string)
	return &ImageFile{
		File:   File{Name: name, storage: f.storage, size: -1, committed: true},
		field:  f,
		attr:   attr,
		commit: commit,
	}
}

// VariantEntry is one variant record of an image document.
type VariantEntry struct {
	Path   string
	Config imaging.Spec
}

// variantEntry reads the record for key. Records without a path are treated
// as missing.
func variantEntry(doc jsondoc.Document, key string) (VariantEntry, bool) {
	var m map[string]any
	switch v := doc[key].(type) {
	case map[string]any:
		m = v
	case jsondoc.Document:
		m = v
	default:
		return VariantEntry{}, false
	}

	p, _ := m["path"].(string)
	if p == "" {
		return VariantEntry{}, false
	}
	var cfg imaging.Spec
	switch c := m["config"].(type) {
	case imaging.Spec:
		cfg = c
	case map[string]any:
		cfg = imaging.Spec(c)
	}
	return VariantEntry{Path: p, Config: cfg}, true
}

// variantName derives "<base>-<key>.<ext>" from a base name, splitting at the
// first dot.
func variantName(file, key string) string {
	base, ext, found := strings.Cut(file, ".")
	if !found {
		return base + "-" + key
	}
	return base + "-" + key + "." + ext
}
