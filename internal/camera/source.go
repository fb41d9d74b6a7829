// Package camera provides frame sources consumed by scan sessions.
package camera

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/ecolens/internal/model"
)

// ErrNoFrame is returned when a source has no frame to hand out.
var ErrNoFrame = errors.New("no frame available")

// Source produces a still frame on demand.
type Source interface {
	Capture(ctx context.Context) (model.Frame, error)
}

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// IsImageFile reports whether path has a supported image extension.
func IsImageFile(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ReadFrame loads a frame from an image file on disk.
func ReadFrame(path string) (model.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}
	if len(data) == 0 {
		return model.Frame{}, fmt.Errorf("%w: %s is empty", ErrNoFrame, path)
	}

	mime, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mime = http.DetectContentType(data)
	}

	return model.Frame{
		Name:       filepath.Base(path),
		MIME:       mime,
		Data:       data,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// FileSource returns the same image file on every capture.
type FileSource struct {
	Path string
}

// Capture implements Source.
func (s FileSource) Capture(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}
	return ReadFrame(s.Path)
}

// DirSource cycles through the image files of a directory in name order.
// The directory is re-listed on every capture so files can be dropped in
// while a session is running.
type DirSource struct {
	dir  string
	next int
	mu   sync.Mutex
}

// NewDirSource creates a source over dir.
func NewDirSource(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("camera path %s is not a directory", dir)
	}
	return &DirSource{dir: dir}, nil
}

// Capture implements Source.
func (s *DirSource) Capture(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}

	files, err := ListImages(s.dir)
	if err != nil {
		return model.Frame{}, err
	}
	if len(files) == 0 {
		return model.Frame{}, fmt.Errorf("%w: no images in %s", ErrNoFrame, s.dir)
	}

	s.mu.Lock()
	idx := s.next % len(files)
	s.next = idx + 1
	s.mu.Unlock()

	return ReadFrame(files[idx])
}

// ListImages returns the image files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list camera directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Slot holds the most recent frame pushed by a client. Capture returns
// ErrNoFrame until the first Put.
type Slot struct {
	frame model.Frame
	mu    sync.RWMutex
	set   bool
}

// Put replaces the held frame.
func (s *Slot) Put(frame model.Frame) {
	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = time.Now().UTC()
	}
	if frame.MIME == "" && len(frame.Data) > 0 {
		frame.MIME = http.DetectContentType(frame.Data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
	s.set = true
}

// Capture implements Source.
func (s *Slot) Capture(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set || len(s.frame.Data) == 0 {
		return model.Frame{}, ErrNoFrame
	}
	return s.frame, nil
}
