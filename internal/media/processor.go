package media

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// ThumbnailWidths are the pixel widths generated for every cover image
var ThumbnailWidths = []int{1200, 600, 300}

const (
	thumbsSubdir     = "thumbs"
	thumbnailQuality = 85
)

// Processor resizes raw image bytes to the target dimensions. A zero height
// preserves the aspect ratio. Implementations choose the output encoding.
type Processor interface {
	Resize(data []byte, width, height int) ([]byte, error)
}

// ImagingProcessor implements Processor with Lanczos resampling and WebP
// output.
type ImagingProcessor struct {
	quality float32
}

// NewImagingProcessor creates a processor with the default output quality
func NewImagingProcessor() *ImagingProcessor {
	return &ImagingProcessor{quality: thumbnailQuality}
}

// Resize decodes data, resizes it, and re-encodes it as WebP
func (p *ImagingProcessor) Resize(data []byte, width, height int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resized, &webp.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// ThumbnailGenerator renders thumbnails for stored cover images through a
// Processor backend.
type ThumbnailGenerator struct {
	rootDir   string
	processor Processor
	logger    *zap.Logger
}

// NewThumbnailGenerator creates a generator writing under the media root
func NewThumbnailGenerator(rootDir string, processor Processor, logger *zap.Logger) *ThumbnailGenerator {
	return &ThumbnailGenerator{
		rootDir:   rootDir,
		processor: processor,
		logger:    logger,
	}
}

// Generate renders one thumbnail per width for the original at originalPath.
// On any failure, thumbnails already written for this original are cleaned up.
func (g *ThumbnailGenerator) Generate(originalPath string) ([]string, error) {
	data, err := os.ReadFile(originalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read original image: %w", err)
	}

	thumbsDir := filepath.Join(g.rootDir, thumbsSubdir)
	if err := os.MkdirAll(thumbsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbs directory: %w", err)
	}

	basename := strings.TrimSuffix(filepath.Base(originalPath), filepath.Ext(originalPath))
	paths := make([]string, 0, len(ThumbnailWidths))

	for _, width := range ThumbnailWidths {
		resized, err := g.processor.Resize(data, width, 0)
		if err != nil {
			g.cleanup(paths)
			return nil, fmt.Errorf("failed to resize to %dpx: %w", width, err)
		}

		thumbPath := filepath.Join(thumbsDir, fmt.Sprintf("%s_%dpx.webp", basename, width))
		if err := os.WriteFile(thumbPath, resized, 0o644); err != nil {
			g.cleanup(paths)
			return nil, fmt.Errorf("failed to save %dpx thumbnail: %w", width, err)
		}
		paths = append(paths, thumbPath)
	}

	g.logger.Info("thumbnails_generated",
		zap.String("original", filepath.Base(originalPath)),
		zap.Int("count", len(paths)),
	)
	return paths, nil
}

func (g *ThumbnailGenerator) cleanup(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// Delete removes the thumbnails generated for the original at originalPath.
// Missing files are skipped.
func (g *ThumbnailGenerator) Delete(originalPath string) {
	basename := strings.TrimSuffix(filepath.Base(originalPath), filepath.Ext(originalPath))
	thumbsDir := filepath.Join(g.rootDir, thumbsSubdir)

	for _, width := range ThumbnailWidths {
		thumbPath := filepath.Join(thumbsDir, fmt.Sprintf("%s_%dpx.webp", basename, width))
		if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
			g.logger.Warn("thumbnail_delete_failed",
				zap.String("path", thumbPath),
				zap.Error(err),
			)
		}
	}
}
