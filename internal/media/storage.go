package media

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxUploadBytes is the largest accepted image upload
	MaxUploadBytes = 5 * 1024 * 1024
	// coversSubdir is where block cover originals live under the media root
	coversSubdir = "covers"
)

// allowedImageTypes maps accepted MIME types to their file extensions
var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ErrUnsupportedType is returned for uploads outside the image whitelist
type ErrUnsupportedType struct {
	ContentType string
}

func (e *ErrUnsupportedType) Error() string {
	return "unsupported image type: " + e.ContentType
}

// ErrTooLarge is returned for uploads over MaxUploadBytes
type ErrTooLarge struct {
	Size int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("image too large: %d bytes", e.Size)
}

// StoredImage describes a saved upload
type StoredImage struct {
	// Path is the absolute location on disk
	Path string
	// URL is the public path the file is served under
	URL string
}

// LocalStorage stores uploads on the local filesystem under a single media
// root, served statically under baseURL.
type LocalStorage struct {
	rootDir string
	baseURL string
}

// NewLocalStorage creates storage rooted at rootDir, serving under baseURL
func NewLocalStorage(rootDir string, baseURL string) *LocalStorage {
	return &LocalStorage{
		rootDir: rootDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SaveCover validates and stores a block cover image. The stored name is
// unique per upload so cached URLs never go stale in place.
func (s *LocalStorage) SaveCover(data []byte, blockID uuid.UUID) (*StoredImage, error) {
	if int64(len(data)) > MaxUploadBytes {
		return nil, &ErrTooLarge{Size: int64(len(data))}
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, &ErrUnsupportedType{ContentType: contentType}
	}

	dir := filepath.Join(s.rootDir, coversSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%d.%s", blockID, time.Now().UnixMilli(), ext)
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image file: %w", err)
	}

	return &StoredImage{
		Path: path,
		URL:  s.baseURL + "/" + coversSubdir + "/" + filename,
	}, nil
}

// DeleteByURL removes the stored file behind a public URL. Missing files are
// not an error.
func (s *LocalStorage) DeleteByURL(url string) error {
	rel, ok := s.relativePath(url)
	if !ok {
		return fmt.Errorf("URL %q is outside the media root", url)
	}

	path := filepath.Join(s.rootDir, rel)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}

// PathForURL resolves a public URL back to its on-disk path
func (s *LocalStorage) PathForURL(url string) (string, bool) {
	rel, ok := s.relativePath(url)
	if !ok {
		return "", false
	}
	return filepath.Join(s.rootDir, rel), true
}

func (s *LocalStorage) relativePath(url string) (string, bool) {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return "", false
	}
	rel := strings.TrimPrefix(url, s.baseURL+"/")
	// Reject traversal out of the media root
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", false
	}
	return rel, true
}
