package field

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"photoapi/internal/imaging"
	imagingMocks "photoapi/internal/imaging/mocks"
	"photoapi/internal/jsondoc"
	"photoapi/internal/storage"
	storeMocks "photoapi/internal/storage/mocks"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

func pngBytes(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{shade, uint8(x), uint8(y), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newField(t *testing.T, s storage.Storage, tr imaging.Transformer, thumbs map[string]imaging.Spec) *ImageField {
	t.Helper()
	f, err := NewImageField(ImageConfig{
		Column:      "image",
		UploadTo:    "photos/%Y/%m",
		Thumbnails:  thumbs,
		Storage:     s,
		Transformer: tr,
		Now:         fixedNow,
	})
	require.NoError(t, err)
	return f
}

// commitCounter returns a Committer that counts its calls.
func commitCounter(n *int) Committer {
	return func(context.Context) error {
		*n++
		return nil
	}
}

func normalized(t *testing.T, v any) any {
	t.Helper()
	n, err := jsondoc.Normalize(v)
	require.NoError(t, err)
	return n
}

func TestImageFile_SaveScenario(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	f := newField(t, store, imaging.NewResizer(), map[string]imaging.Spec{"thumb": {"w": 100}})

	var attr jsondoc.Attr
	commits := 0
	img := f.Attach(&attr, commitCounter(&commits))
	require.NoError(t, img.Save(ctx, "photo.jpg", bytes.NewReader(pngBytes(t, 200, 100, 1)), -1, true))

	want := map[string]any{
		"original": "photos/2024/05/photo.jpg",
		"thumb": map[string]any{
			"path":   "photos/2024/05/photo-thumb.jpg",
			"config": map[string]any{"w": 100.0},
		},
	}
	if diff := cmp.Diff(want, normalized(t, attr.Get())); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	thumb, err := img.Variant("thumb")
	require.NoError(t, err)
	assert.Equal(t, "photos/2024/05/photo-thumb.jpg", thumb.Name)

	assert.Equal(t, "photos/2024/05/photo.jpg", img.Name)
	assert.True(t, img.Committed())
	assert.Equal(t, 1, commits)

	size, err := img.Size(ctx)
	require.NoError(t, err)
	stored, err := store.Size(ctx, img.Name)
	require.NoError(t, err)
	assert.Equal(t, stored, size)

	rc, err := thumb.Open(ctx)
	require.NoError(t, err)
	decoded, _, err := image.Decode(rc)
	require.NoError(t, err)
	require.NoError(t, thumb.Close())
	assert.Equal(t, 100, decoded.Bounds().Dx())

	// The pre-save hook reflects the live document.
	v, err := attr.Value()
	require.NoError(t, err)
	assert.Contains(t, v, `"thumb":{"config":{"w":100},"path":"photos/2024/05/photo-thumb.jpg"}`)
}

func TestImageFile_VariantBeforeSave(t *testing.T) {
	f := newField(t, storage.NewMemory(), imaging.NewResizer(), map[string]imaging.Spec{"thumb": {"w": 10}})

	var attr jsondoc.Attr
	img := f.Attach(&attr, nil)
	assert.True(t, img.IsEmpty())

	thumb, err := img.Variant("thumb")
	require.NoError(t, err)
	assert.True(t, thumb.IsEmpty())
	assert.Equal(t, "", thumb.Name)

	_, err = thumb.Open(context.Background())
	assert.ErrorIs(t, err, ErrNoFile)
	_, err = thumb.Size(context.Background())
	assert.ErrorIs(t, err, ErrNoFile)
	_, err = thumb.URL(context.Background(), time.Minute)
	assert.ErrorIs(t, err, ErrNoFile)

	_, err = thumb.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestImageFile_UnknownVariant(t *testing.T) {
	f := newField(t, storage.NewMemory(), imaging.NewResizer(), map[string]imaging.Spec{"thumb": {"w": 10}})

	var attr jsondoc.Attr
	attr.Set(jsondoc.Document{
		"original":    "a.jpg",
		"nonexistent": map[string]any{"path": "a-nonexistent.jpg", "config": map[string]any{}},
	})
	img := f.Attach(&attr, nil)

	_, err := img.Variant("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = img.Variant("original")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestImageFile_ConfigDiffRegeneration(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	src := &imaging.Source{Format: "png"}

	small := imaging.Spec{"w": 10}
	small2 := imaging.Spec{"w": 20}
	large := imaging.Spec{"w": 100}

	tr := new(imagingMocks.MockTransformer)
	tr.On("Open", mock.Anything).Return(src, nil)
	tr.On("Process", src, mock.Anything).Return([]byte("variant"), "png", nil)

	var attr jsondoc.Attr
	commits := 0

	// First save generates both variants.
	f1 := newField(t, store, tr, map[string]imaging.Spec{"small": small, "large": large})
	require.NoError(t, f1.Attach(&attr, commitCounter(&commits)).Save(ctx, "p.png", strings.NewReader("content-1"), -1, true))
	tr.AssertNumberOfCalls(t, "Process", 2)
	largePath := attr.Get()["large"].(map[string]any)["path"]

	// Same bytes, same config: nothing to transform.
	require.NoError(t, f1.Attach(&attr, commitCounter(&commits)).Save(ctx, "p.png", strings.NewReader("content-1"), -1, true))
	tr.AssertNumberOfCalls(t, "Process", 2)
	assert.Equal(t, largePath, attr.Get()["large"].(map[string]any)["path"])

	// Same bytes, one declaration changed: only that variant is redone.
	f2 := newField(t, store, tr, map[string]imaging.Spec{"small": small2, "large": large})
	require.NoError(t, f2.Attach(&attr, commitCounter(&commits)).Save(ctx, "p.png", strings.NewReader("content-1"), -1, true))
	tr.AssertNumberOfCalls(t, "Process", 3)
	tr.AssertCalled(t, "Process", src, small2)
	assert.Equal(t, largePath, attr.Get()["large"].(map[string]any)["path"])
	assert.Equal(t, small2, attr.Get()["small"].(map[string]any)["config"])

	// New bytes: every variant is redone.
	require.NoError(t, f2.Attach(&attr, commitCounter(&commits)).Save(ctx, "p.png", strings.NewReader("content-2"), -1, true))
	tr.AssertNumberOfCalls(t, "Process", 5)
	assert.NotEqual(t, largePath, attr.Get()["large"].(map[string]any)["path"])

	assert.Equal(t, 4, commits, "one commit per save, not per variant")
}

func TestImageFile_ConfigComparedAfterDatabaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	src := &imaging.Source{Format: "png"}

	tr := new(imagingMocks.MockTransformer)
	tr.On("Open", mock.Anything).Return(src, nil)
	tr.On("Process", src, mock.Anything).Return([]byte("v"), "png", nil)

	f := newField(t, store, tr, map[string]imaging.Spec{"thumb": {"w": 100, "fit": true}})

	var attr jsondoc.Attr
	require.NoError(t, f.Attach(&attr, nil).Save(ctx, "p.png", strings.NewReader("same"), -1, false))

	// Reload the row: numbers come back as float64.
	text := attr.String()
	var reloaded jsondoc.Attr
	require.NoError(t, reloaded.Scan(text))

	require.NoError(t, f.Attach(&reloaded, nil).Save(ctx, "p.png", strings.NewReader("same"), -1, false))
	tr.AssertNumberOfCalls(t, "Process", 1)
}

func TestImageFile_Regenerate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	var attr jsondoc.Attr
	f1 := newField(t, store, imaging.NewResizer(), map[string]imaging.Spec{"a": {"w": 10}, "b": {"w": 20}})
	require.NoError(t, f1.Attach(&attr, nil).Save(ctx, "pic.png", bytes.NewReader(pngBytes(t, 40, 40, 9)), -1, false))
	before := attr.Get()["a"].(map[string]any)["path"]
	original := attr.Get()[OriginalKey]

	f2 := newField(t, store, imaging.NewResizer(), map[string]imaging.Spec{"a": {"w": 10}, "b": {"w": 30}, "c": {"h": 5}})
	commits := 0
	img := f2.Attach(&attr, commitCounter(&commits))
	require.NoError(t, img.Regenerate(ctx, true))

	doc := attr.Get()
	assert.Equal(t, original, doc[OriginalKey])
	assert.Equal(t, before, doc["a"].(map[string]any)["path"])
	assert.Equal(t, imaging.Spec{"w": 30}, doc["b"].(map[string]any)["config"])
	c, err := img.Variant("c")
	require.NoError(t, err)
	assert.False(t, c.IsEmpty())
	assert.Equal(t, 1, commits)

	var empty jsondoc.Attr
	assert.ErrorIs(t, f2.Attach(&empty, nil).Regenerate(ctx, true), ErrNoFile)
}

func TestImageFile_DeleteLeavesVariants(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	f := newField(t, store, imaging.NewResizer(), map[string]imaging.Spec{"thumb": {"w": 10}})

	var attr jsondoc.Attr
	img := f.Attach(&attr, nil)
	require.NoError(t, img.Save(ctx, "photo.png", bytes.NewReader(pngBytes(t, 20, 20, 3)), -1, false))
	original := img.Name
	thumb, err := img.Variant("thumb")
	require.NoError(t, err)

	_, err = img.Open(ctx)
	require.NoError(t, err)

	commits := 0
	img.commit = commitCounter(&commits)
	require.NoError(t, img.Delete(ctx, true))

	assert.True(t, img.IsEmpty())
	assert.False(t, img.Committed())
	assert.Nil(t, img.rc, "open handle released")
	assert.Equal(t, 1, commits)

	ok, err := store.Exists(ctx, original)
	require.NoError(t, err)
	assert.False(t, ok, "original removed")

	ok, err = store.Exists(ctx, thumb.Name)
	require.NoError(t, err)
	assert.True(t, ok, "variant file is orphaned, not removed")

	doc := attr.Get()
	assert.Contains(t, doc, OriginalKey)
	assert.Nil(t, doc[OriginalKey])
	assert.Equal(t, thumb.Name, doc["thumb"].(map[string]any)["path"])

	again, err := f.Attach(&attr, nil).Variant("thumb")
	require.NoError(t, err)
	assert.Equal(t, thumb.Name, again.Name)
}

func TestImageFile_DeleteWithoutOriginal(t *testing.T) {
	store := new(storeMocks.MockStorage)
	f := newField(t, store, imaging.NewResizer(), nil)

	var attr jsondoc.Attr
	require.NoError(t, f.Attach(&attr, nil).Delete(context.Background(), false))
	assert.Equal(t, jsondoc.Document{OriginalKey: nil}, attr.Get())
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestImageFile_StorageErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	t.Run("save original", func(t *testing.T) {
		store := new(storeMocks.MockStorage)
		store.On("Save", ctx, "photos/2024/05/a.png", mock.Anything, int64(3)).Return("", errors.New("disk full"))
		f := newField(t, store, imaging.NewResizer(), nil)

		commits := 0
		var attr jsondoc.Attr
		err := f.Attach(&attr, commitCounter(&commits)).Save(ctx, "a.png", strings.NewReader("abc"), 3, true)
		assert.ErrorContains(t, err, "save original: disk full")
		assert.Equal(t, 0, commits)
		store.AssertExpectations(t)
	})

	t.Run("delete original", func(t *testing.T) {
		store := new(storeMocks.MockStorage)
		store.On("Delete", ctx, "a.png").Return(errors.New("denied"))
		f := newField(t, store, imaging.NewResizer(), nil)

		var attr jsondoc.Attr
		attr.Set(jsondoc.Document{OriginalKey: "a.png"})
		img := f.Attach(&attr, nil)
		err := img.Delete(ctx, true)
		assert.ErrorContains(t, err, "delete original: denied")
		assert.Equal(t, "a.png", img.Name)
	})

	t.Run("transform", func(t *testing.T) {
		store := storage.NewMemory()
		f := newField(t, store, imaging.NewResizer(), map[string]imaging.Spec{"bad": {"format": "tiff"}})

		var attr jsondoc.Attr
		err := f.Attach(&attr, nil).Save(ctx, "a.png", bytes.NewReader(pngBytes(t, 4, 4, 0)), -1, true)
		assert.ErrorIs(t, err, imaging.ErrUnsupportedFormat)
	})
}

func TestImageFile_MalformedDocumentBehavesAsUnset(t *testing.T) {
	ctx := context.Background()
	f := newField(t, storage.NewMemory(), imaging.NewResizer(), map[string]imaging.Spec{"thumb": {"w": 5}})

	var attr jsondoc.Attr
	require.NoError(t, attr.Scan(`{"original": "x.jpg"`))
	img := f.Attach(&attr, nil)
	assert.True(t, img.IsEmpty())

	thumb, err := img.Variant("thumb")
	require.NoError(t, err)
	assert.True(t, thumb.IsEmpty())

	require.NoError(t, img.Save(ctx, "x.png", bytes.NewReader(pngBytes(t, 10, 10, 5)), -1, false))
	assert.Equal(t, "photos/2024/05/x.png", attr.Get()[OriginalKey])
}

func TestImageFile_NameCollisions(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	f := newField(t, store, imaging.NewResizer(), map[string]imaging.Spec{"thumb": {"w": 5}})

	var a, b jsondoc.Attr
	require.NoError(t, f.Attach(&a, nil).Save(ctx, "my photo.png", bytes.NewReader(pngBytes(t, 10, 10, 1)), -1, false))
	require.NoError(t, f.Attach(&b, nil).Save(ctx, "my photo.png", bytes.NewReader(pngBytes(t, 10, 10, 2)), -1, false))

	assert.Equal(t, "photos/2024/05/my_photo.png", a.Get()[OriginalKey])
	assert.NotEqual(t, a.Get()[OriginalKey], b.Get()[OriginalKey])
	assert.True(t, strings.HasPrefix(b.Get()[OriginalKey].(string), "photos/2024/05/my_photo_"))

	thumbB := b.Get()["thumb"].(map[string]any)["path"].(string)
	assert.True(t, strings.HasPrefix(thumbB, "photos/2024/05/my_photo-thumb_"), thumbB)
	assert.Len(t, store.Names(), 4)
}

func TestImageFile_OpenReadsOriginal(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	f := newField(t, store, imaging.NewResizer(), nil)

	content := pngBytes(t, 3, 3, 7)
	var attr jsondoc.Attr
	img := f.Attach(&attr, nil)
	require.NoError(t, img.Save(ctx, "o.png", bytes.NewReader(content), int64(len(content)), false))

	reopened := f.Attach(&attr, nil)
	_, err := reopened.Open(ctx)
	require.NoError(t, err)
	got, err := io.ReadAll(reopened)
	require.NoError(t, err)
	require.NoError(t, reopened.Close())
	assert.Equal(t, content, got)

	size, err := reopened.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
}

func TestImageField_Paths(t *testing.T) {
	store := storage.NewMemory()
	f := newField(t, store, imaging.NewResizer(), nil)

	assert.Equal(t, "photos/2024/05", f.DirectoryName())
	assert.Equal(t, "a_b.jpg", f.Filename("/tmp/uploads/a b.jpg"))

	name, err := f.GenerateFilename("dir/../x?.png")
	require.NoError(t, err)
	assert.Equal(t, "photos/2024/05/x.png", name)

	for _, bad := range []string{"", "..", "/", "???"} {
		_, err := f.GenerateFilename(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}

	nested, err := NewImageField(ImageConfig{
		Column: "image", UploadTo: "a//b/%Y/./", Storage: store, Transformer: imaging.NewResizer(), Now: fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "a/b/2024", nested.DirectoryName())
}

func TestVariantName(t *testing.T) {
	assert.Equal(t, "photo-thumb.jpg", variantName("photo.jpg", "thumb"))
	assert.Equal(t, "photo-thumb.tar.gz", variantName("photo.tar.gz", "thumb"))
	assert.Equal(t, "photo-thumb", variantName("photo", "thumb"))
}

func TestNewImageField_Validation(t *testing.T) {
	store := storage.NewMemory()
	tr := imaging.NewResizer()

	_, err := NewImageField(ImageConfig{UploadTo: "x", Storage: store, Transformer: tr})
	assert.Error(t, err)

	_, err = NewImageField(ImageConfig{Column: "image", UploadTo: "x"})
	assert.Error(t, err)

	_, err = NewImageField(ImageConfig{Column: "image", UploadTo: "x", Storage: store, Transformer: tr,
		Thumbnails: map[string]imaging.Spec{"original": {}}})
	assert.Error(t, err)

	f, err := NewImageField(ImageConfig{Column: "image", UploadTo: "x", Storage: store, Transformer: tr,
		Thumbnails: map[string]imaging.Spec{"b": {}, "a": {}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Keys())
	_, ok := f.Spec("a")
	assert.True(t, ok)
	assert.Same(t, store, f.Storage())
}

func TestDocumentField_Column(t *testing.T) {
	f := DocumentField{Column: "metadata"}
	assert.Equal(t, "TEXT", f.ColumnType())
	assert.Equal(t, "metadata TEXT", f.ColumnDDL())
}
