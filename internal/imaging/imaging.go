package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/nfnt/resize"
)

var (
	// ErrUnsupportedFormat is returned for output formats the encoder does not know.
	ErrUnsupportedFormat = errors.New("imaging: unsupported format")
	// ErrInvalidSpec is returned for specs with out-of-range values.
	ErrInvalidSpec = errors.New("imaging: invalid spec")
	// ErrDecode is returned by Open when the content is not a decodable image.
	ErrDecode = errors.New("imaging: cannot decode image")
)

// DefaultJPEGQuality applies when a spec does not set "quality".
const DefaultJPEGQuality = 85

// Source is a decoded image together with the format it was decoded from.
type Source struct {
	Image  image.Image
	Format string
}

// Transformer derives encoded variants from a source image.
type Transformer interface {
	// Open decodes r fully into memory.
	Open(r io.Reader) (*Source, error)
	// Process applies spec to src and returns the encoded bytes and their format.
	Process(src *Source, spec Spec) ([]byte, string, error)
}

// Resizer is the Transformer backed by nfnt/resize.
type Resizer struct{}

// NewResizer returns a Resizer.
func NewResizer() *Resizer {
	return &Resizer{}
}

// Open decodes a JPEG, PNG or GIF image.
func (Resizer) Open(r io.Reader) (*Source, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &Source{Image: img, Format: format}, nil
}

// Process resizes src according to spec:
//
//	w, h     target size in pixels; 0 or absent keeps the aspect ratio
//	fit      scale down into the w x h box instead of resizing exactly
//	format   jpeg, png or gif; defaults to the source format
//	quality  JPEG quality 1-100
//	interp   nearest, bilinear, bicubic, mitchell, lanczos2 or lanczos3
func (Resizer) Process(src *Source, spec Spec) ([]byte, string, error) {
	w, h := spec.Int("w"), spec.Int("h")
	if w < 0 || h < 0 {
		return nil, "", fmt.Errorf("%w: negative size %dx%d", ErrInvalidSpec, w, h)
	}
	interp, err := interpolation(spec.String("interp"))
	if err != nil {
		return nil, "", err
	}

	img := src.Image
	switch {
	case w == 0 && h == 0:
	case spec.Bool("fit"):
		b := img.Bounds()
		if w == 0 {
			w = b.Dx()
		}
		if h == 0 {
			h = b.Dy()
		}
		img = resize.Thumbnail(uint(w), uint(h), img, interp)
	default:
		img = resize.Resize(uint(w), uint(h), img, interp)
	}

	format := strings.ToLower(spec.String("format"))
	if format == "" {
		format = src.Format
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		format = "jpeg"
		q := spec.Int("quality")
		if q == 0 {
			q = DefaultJPEGQuality
		}
		if q < 1 || q > 100 {
			return nil, "", fmt.Errorf("%w: quality %d", ErrInvalidSpec, q)
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), format, nil
}

func interpolation(name string) (resize.InterpolationFunction, error) {
	switch strings.ToLower(name) {
	case "", "lanczos3":
		return resize.Lanczos3, nil
	case "lanczos2":
		return resize.Lanczos2, nil
	case "nearest":
		return resize.NearestNeighbor, nil
	case "bilinear":
		return resize.Bilinear, nil
	case "bicubic":
		return resize.Bicubic, nil
	case "mitchell":
		return resize.MitchellNetravali, nil
	}
	return 0, fmt.Errorf("%w: interpolation %q", ErrInvalidSpec, name)
}
