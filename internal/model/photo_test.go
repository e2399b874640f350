package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoapi/internal/jsondoc"
)

func TestPhoto_Accessors(t *testing.T) {
	var p Photo
	require.NoError(t, p.ImageAttr().Scan(`{"original":"a.jpg"}`))
	assert.Equal(t, "a.jpg", p.Image()["original"])

	p.Image()["original"] = "b.jpg"
	v, err := p.ImageAttr().Value()
	require.NoError(t, err)
	assert.Equal(t, `{"original":"b.jpg"}`, v)

	p.SetMetadata(jsondoc.Document{"camera": "x100"})
	assert.Equal(t, "x100", p.Metadata()["camera"])
	assert.Same(t, p.MetadataAttr(), p.MetadataAttr())
}

func TestPhoto_MarshalJSON(t *testing.T) {
	p := &Photo{ID: "1", Title: "sunset"}
	p.SetImage(jsondoc.Document{"original": "a.jpg"})

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "sunset", got["title"])
	assert.Equal(t, map[string]any{"original": "a.jpg"}, got["image"])
	assert.Nil(t, got["metadata"])
}
