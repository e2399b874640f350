package model

import (
	"encoding/json"
	"time"

	"photoapi/internal/jsondoc"
)

// Photo is a titled entity with an uploaded image and free-form metadata.
// Both are JSON documents stored as text columns; the image document is
// managed through field.ImageField and never edited directly by callers.
type Photo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	image    jsondoc.Attr
	metadata jsondoc.Attr
}

// Image returns the decoded image document.
func (p *Photo) Image() jsondoc.Document { return p.image.Get() }

// SetImage replaces the image document.
func (p *Photo) SetImage(doc jsondoc.Document) { p.image.Set(doc) }

// ImageAttr exposes the attribute for scanning, saving and field attachment.
func (p *Photo) ImageAttr() *jsondoc.Attr { return &p.image }

// Metadata returns the decoded metadata document.
func (p *Photo) Metadata() jsondoc.Document { return p.metadata.Get() }

// SetMetadata replaces the metadata document.
func (p *Photo) SetMetadata(doc jsondoc.Document) { p.metadata.Set(doc) }

// MetadataAttr exposes the metadata attribute.
func (p *Photo) MetadataAttr() *jsondoc.Attr { return &p.metadata }

// MarshalJSON includes both documents as nested objects.
func (p *Photo) MarshalJSON() ([]byte, error) {
	type alias Photo
	return json.Marshal(struct {
		*alias
		Image    jsondoc.Document `json:"image"`
		Metadata jsondoc.Document `json:"metadata"`
	}{
		alias:    (*alias)(p),
		Image:    p.Image(),
		Metadata: p.Metadata(),
	})
}
