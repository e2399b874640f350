package field

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"

	"github.com/rs/zerolog/log"

	"photoapi/internal/imaging"
	"photoapi/internal/jsondoc"
	"photoapi/internal/storage"
)

// ImageFile is the value of an ImageField on one entity: the original upload
// plus its derived variants. It is a short-lived view over the entity's
// document and the only code that mutates it during Save and Delete.
//
// ImageFile is not safe for concurrent use; callers serialize writes per entity.
type ImageFile struct {
	File

	field  *ImageField
	attr   *jsondoc.Attr
	commit Committer
}

// Document returns the shared document, nil when nothing is stored.
func (fl *ImageFile) Document() jsondoc.Document {
	return fl.attr.Get()
}

// Variant returns the handle for a declared variant. A declared variant that
// has not been generated yet yields an empty handle; an undeclared key is an
// error whatever the document holds.
func (fl *ImageFile) Variant(key string) (*File, error) {
	if _, ok := fl.field.thumbnails[key]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, key)
	}
	entry, ok := variantEntry(fl.attr.Get(), key)
	if !ok {
		return newFile(fl.storage, ""), nil
	}
	return newFile(fl.storage, entry.Path), nil
}

// Save stores content as the new original and brings every declared variant
// up to date, then persists the owner when commit is set.
//
// A variant is regenerated unless its record exists, its stored config equals
// the declared one and the new original has the same bytes as the previous
// one. The previous original and any replaced variants stay in storage.
func (fl *ImageFile) Save(ctx context.Context, name string, content io.Reader, size int64, commit bool) error {
	generated, err := fl.field.GenerateFilename(name)
	if err != nil {
		return err
	}
	doc := fl.attr.Ensure()
	previous, _ := doc[OriginalKey].(string)

	if err := fl.Close(); err != nil {
		return fmt.Errorf("close original: %w", err)
	}

	dr := newDigestReader(content)
	stored, err := fl.storage.Save(ctx, generated, dr, size)
	if err != nil {
		return fmt.Errorf("save original: %w", err)
	}
	fl.Name = stored
	doc[OriginalKey] = stored
	fl.size = dr.n
	fl.committed = true

	sameSource := false
	if previous != "" {
		prevDigest, err := digestOf(ctx, fl.storage, previous)
		if err != nil {
			return fmt.Errorf("digest previous original: %w", err)
		}
		sameSource = prevDigest == dr.digest()
	}

	if err := fl.generate(ctx, doc, path.Base(generated), !sameSource); err != nil {
		return err
	}

	if commit {
		return fl.persist(ctx)
	}
	return nil
}

// Regenerate derives the variants whose stored config no longer matches the
// declaration from the current original, without replacing the original.
func (fl *ImageFile) Regenerate(ctx context.Context, commit bool) error {
	if fl.IsEmpty() {
		return ErrNoFile
	}
	doc := fl.attr.Ensure()
	if err := fl.generate(ctx, doc, path.Base(fl.Name), false); err != nil {
		return err
	}
	if commit {
		return fl.persist(ctx)
	}
	return nil
}

// Delete removes the original from storage and clears it from the document.
// Variant files and their records are left in place.
func (fl *ImageFile) Delete(ctx context.Context, commit bool) error {
	if err := fl.Close(); err != nil {
		return fmt.Errorf("close original: %w", err)
	}
	if !fl.IsEmpty() {
		if err := fl.storage.Delete(ctx, fl.Name); err != nil {
			return fmt.Errorf("delete original: %w", err)
		}
	}

	fl.Name = ""
	fl.attr.Ensure()[OriginalKey] = nil
	fl.size = -1
	fl.committed = false

	if commit {
		return fl.persist(ctx)
	}
	return nil
}

// generate writes every variant that is missing or stale. When force is set
// all variants are rewritten. base is the base name variant names derive from.
func (fl *ImageFile) generate(ctx context.Context, doc jsondoc.Document, base string, force bool) error {
	var src *imaging.Source
	for _, key := range fl.field.keys {
		spec := fl.field.thumbnails[key]
		if entry, ok := variantEntry(doc, key); ok && !force && jsondoc.Equal(entry.Config, spec) {
			log.Ctx(ctx).Debug().Str("variant", key).Str("path", entry.Path).Msg("variant up to date")
			continue
		}

		if src == nil {
			var err error
			if src, err = fl.source(ctx); err != nil {
				return err
			}
		}

		b, _, err := fl.field.transformer.Process(src, spec)
		if err != nil {
			return fmt.Errorf("transform variant %q: %w", key, err)
		}
		name, err := fl.field.GenerateFilename(variantName(base, key))
		if err != nil {
			return err
		}
		stored, err := fl.storage.Save(ctx, name, bytes.NewReader(b), int64(len(b)))
		if err != nil {
			return fmt.Errorf("save variant %q: %w", key, err)
		}
		doc[key] = map[string]any{"path": stored, "config": spec}

		log.Ctx(ctx).Debug().Str("variant", key).Str("path", stored).Int("bytes", len(b)).Msg("variant generated")
	}
	return nil
}

// source reopens the stored original and decodes it.
func (fl *ImageFile) source(ctx context.Context) (*imaging.Source, error) {
	if _, err := fl.Open(ctx); err != nil {
		return nil, fmt.Errorf("open original: %w", err)
	}
	defer fl.Close()

	src, err := fl.field.transformer.Open(&fl.File)
	if err != nil {
		return nil, fmt.Errorf("load original: %w", err)
	}
	return src, nil
}

func (fl *ImageFile) persist(ctx context.Context) error {
	if fl.commit == nil {
		return nil
	}
	return fl.commit(ctx)
}

// digestReader hashes and counts what is read through it.
type digestReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

func newDigestReader(r io.Reader) *digestReader {
	return &digestReader{r: r, h: sha256.New()}
}

func (d *digestReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.h.Write(p[:n])
		d.n += int64(n)
	}
	return n, err
}

func (d *digestReader) digest() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// digestOf hashes a stored file. A missing file has no digest.
func digestOf(ctx context.Context, s storage.Storage, name string) (string, error) {
	rc, err := s.Open(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
