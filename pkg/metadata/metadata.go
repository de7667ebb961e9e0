package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"imgfetch/pkg/unsplash"
)

// ManifestFileName is the name of the manifest written into the output directory
const ManifestFileName = "manifest.json"

// PhotoMetadata represents what is known about one downloaded image
type PhotoMetadata struct {
	// Core identifiers
	Keyword string `json:"keyword"`
	ID      string `json:"id"`
	File    string `json:"file"`
	URL     string `json:"url"`
	Quality string `json:"quality"`

	// Media properties
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AspectRatio string `json:"aspect_ratio"`
	FileSize    int64  `json:"file_size,omitempty"`
	Likes       int    `json:"likes"`

	// Content
	Description    string `json:"description,omitempty"`
	AltDescription string `json:"alt_description,omitempty"`

	// People
	Author Author `json:"author"`

	DownloadedAt time.Time `json:"downloaded_at"`
}

// Author represents the photographer credited for an image
type Author struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// FromPhoto converts a search result to PhotoMetadata
func FromPhoto(keyword, quality, path string, photo *unsplash.Photo, fileSize int64) *PhotoMetadata {
	url, _ := photo.URL(quality)
	meta := &PhotoMetadata{
		Keyword:        keyword,
		ID:             photo.ID,
		File:           filepath.Base(path),
		URL:            url,
		Quality:        quality,
		Width:          photo.Width,
		Height:         photo.Height,
		FileSize:       fileSize,
		Likes:          photo.Likes,
		Description:    photo.Description,
		AltDescription: photo.AltDescription,
		Author: Author{
			ID:       photo.User.ID,
			Username: photo.User.Username,
			Name:     photo.User.Name,
		},
		DownloadedAt: time.Now(),
	}
	meta.AspectRatio = meta.GetAspectRatio()
	return meta
}

// GetAspectRatio returns the aspect ratio as a string
func (m *PhotoMetadata) GetAspectRatio() string {
	if m.Height == 0 {
		return "unknown"
	}

	ratio := float64(m.Width) / float64(m.Height)

	// Common aspect ratios
	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	case ratio > 0.74 && ratio < 0.76:
		return "3:4"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}

// Manifest collects metadata for every image saved during a run.
// Add is safe for concurrent use.
type Manifest struct {
	mu      sync.Mutex
	runID   string
	entries map[string]*PhotoMetadata
}

// Document is the on-disk form of a manifest
type Document struct {
	RunID       string           `json:"run_id,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Total       int              `json:"total"`
	Images      []*PhotoMetadata `json:"images"`
}

// NewManifest creates an empty manifest for the run identified by runID
func NewManifest(runID string) *Manifest {
	return &Manifest{runID: runID, entries: make(map[string]*PhotoMetadata)}
}

// Add records an image. A later entry for the same file replaces the earlier one,
// mirroring how the file itself is overwritten.
func (m *Manifest) Add(meta *PhotoMetadata) {
	if meta == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[meta.File] = meta
}

// Len returns the number of recorded images
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns the recorded images sorted by file name
func (m *Manifest) Entries() []*PhotoMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*PhotoMetadata, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

// Save writes the manifest to <directory>/manifest.json and returns the path
func (m *Manifest) Save(directory string) (string, error) {
	entries := m.Entries()
	doc := Document{
		RunID:       m.runID,
		GeneratedAt: time.Now(),
		Total:       len(entries),
		Images:      entries,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := filepath.Join(directory, ManifestFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return path, fmt.Errorf("failed to write manifest file: %w", err)
	}

	return path, nil
}

// Load reads a manifest document from directory
func Load(directory string) (*Document, error) {
	data, err := os.ReadFile(filepath.Join(directory, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &doc, nil
}
