package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"imgfetch/pkg/errors"
)

// DefaultChunkSize is used when a non-positive chunk size is configured
const DefaultChunkSize = 1024

// Manager handles file storage operations for one output directory
type Manager struct {
	outputDir string
	chunkSize int
	saved     atomic.Int64
}

// NewManager creates the output directory if it is absent
func NewManager(outputDir string, chunkSize int) (*Manager, error) {
	if outputDir == "" {
		return nil, errors.New(errors.KindStorage, "output directory is empty")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrap(errors.KindStorage, err, fmt.Sprintf("failed to create output directory %s", outputDir))
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Manager{
		outputDir: outputDir,
		chunkSize: chunkSize,
	}, nil
}

// FileName returns the deterministic file name for a photo found under keyword
func FileName(keyword, photoID string) string {
	return fmt.Sprintf("%s_%s.jpg", strings.ReplaceAll(keyword, " ", "_"), photoID)
}

// PathFor returns the full path a photo found under keyword is saved to
func (m *Manager) PathFor(keyword, photoID string) string {
	return filepath.Join(m.outputDir, FileName(keyword, photoID))
}

// SaveImage streams r into the file for keyword and photoID and returns its path and size.
// Each call writes its own temporary file, so concurrent saves of one name never interleave.
func (m *Manager) SaveImage(r io.Reader, keyword, photoID string) (string, int64, error) {
	target := m.PathFor(keyword, photoID)

	out, err := os.CreateTemp(m.outputDir, FileName(keyword, photoID)+".*.part")
	if err != nil {
		return target, 0, errors.Wrap(errors.KindStorage, err, "failed to create file")
	}
	tempFile := out.Name()

	written, copyErr := m.copyChunks(out, r)
	closeErr := out.Close()

	if copyErr != nil {
		os.Remove(tempFile)
		return target, written, copyErr
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return target, written, errors.Wrap(errors.KindStorage, closeErr, "failed to close file")
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return target, written, errors.Wrap(errors.KindStorage, err, "failed to set file mode")
	}
	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return target, written, errors.Wrap(errors.KindStorage, err, "failed to move file into place")
	}

	m.saved.Add(1)
	return target, written, nil
}

// copyChunks copies r to w chunkSize bytes at a time, classifying read and write failures separately
func (m *Manager) copyChunks(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, m.chunkSize)
	var written int64

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			wn, err := w.Write(buf[:n])
			written += int64(wn)
			if err != nil {
				return written, errors.Wrap(errors.KindStorage, err, "failed to write file")
			}
			if wn != n {
				return written, errors.Wrap(errors.KindStorage, io.ErrShortWrite, "failed to write file")
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, errors.Wrap(errors.KindNetwork, readErr, "failed to read image body")
		}
	}
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetSavedCount returns the number of images saved through this manager
func (m *Manager) GetSavedCount() int {
	return int(m.saved.Load())
}
