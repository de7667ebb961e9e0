package metadata

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgfetch/pkg/unsplash"
)

func testPhoto(id string) *unsplash.Photo {
	return &unsplash.Photo{
		ID:             id,
		Description:    "Ribeye on a slate board",
		AltDescription: "steak",
		Width:          1920,
		Height:         1080,
		Likes:          42,
		URLs:           map[string]string{"regular": "https://images.example.com/" + id},
		User:           unsplash.User{ID: "u1", Username: "chef", Name: "Jane Chef"},
	}
}

func TestFromPhoto(t *testing.T) {
	meta := FromPhoto("steak dinner plating", "regular", "/out/steak_dinner_plating_a1.jpg", testPhoto("a1"), 2048)

	assert.Equal(t, "steak dinner plating", meta.Keyword)
	assert.Equal(t, "a1", meta.ID)
	assert.Equal(t, "steak_dinner_plating_a1.jpg", meta.File)
	assert.Equal(t, "https://images.example.com/a1", meta.URL)
	assert.Equal(t, "16:9", meta.AspectRatio)
	assert.Equal(t, int64(2048), meta.FileSize)
	assert.Equal(t, "chef", meta.Author.Username)
	assert.False(t, meta.DownloadedAt.IsZero())
}

func TestGetAspectRatio(t *testing.T) {
	tests := []struct {
		width, height int
		want          string
	}{
		{1920, 1080, "16:9"},
		{1600, 1200, "4:3"},
		{1000, 1000, "1:1"},
		{1080, 1920, "9:16"},
		{1200, 1600, "3:4"},
		{3000, 1000, "3.00:1"},
		{100, 0, "unknown"},
	}

	for _, tt := range tests {
		m := &PhotoMetadata{Width: tt.width, Height: tt.height}
		assert.Equal(t, tt.want, m.GetAspectRatio(), "%dx%d", tt.width, tt.height)
	}
}

func TestManifestReplacesSameFile(t *testing.T) {
	m := NewManifest("")
	m.Add(FromPhoto("steak", "regular", "steak_a1.jpg", testPhoto("a1"), 1))
	m.Add(FromPhoto("steak", "regular", "steak_a1.jpg", testPhoto("a1"), 2))
	m.Add(nil)

	require.Equal(t, 1, m.Len())
	assert.Equal(t, int64(2), m.Entries()[0].FileSize)
}

func TestManifestConcurrentAdd(t *testing.T) {
	m := NewManifest("")
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m.Add(FromPhoto("kw", "regular", "kw_"+id+".jpg", testPhoto(id), 1))
		}(id)
	}
	wg.Wait()

	entries := m.Entries()
	require.Len(t, entries, len(ids))
	for i, id := range ids {
		assert.Equal(t, "kw_"+id+".jpg", entries[i].File, "entries are sorted by file name")
	}
}

func TestManifestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("run-1")
	m.Add(FromPhoto("sushi", "small", "sushi_b2.jpg", testPhoto("b2"), 10))
	m.Add(FromPhoto("steak", "small", "steak_a1.jpg", testPhoto("a1"), 20))

	path, err := m.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ManifestFileName), path)

	doc, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, 2, doc.Total)
	require.Len(t, doc.Images, 2)
	assert.Equal(t, "steak_a1.jpg", doc.Images[0].File)
	assert.Equal(t, "sushi", doc.Images[1].Keyword)
}

func TestManifestSaveMissingDirectory(t *testing.T) {
	_, err := NewManifest("").Save(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte("{not json"), 0644))
	_, err = Load(dir)
	assert.Error(t, err)
}
