package analyzer

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/guide-focus/pkg/types"
)

// ScreenshotAnalyzer builds step image records from captured screenshots
type ScreenshotAnalyzer struct {
	config Config
}

// Config holds configuration for the screenshot analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
	PreviewMaxDim    int
}

// New creates a new ScreenshotAnalyzer with default configuration
func New() *ScreenshotAnalyzer {
	return &ScreenshotAnalyzer{
		config: Config{
			SupportedFormats: []string{"jpeg", "png", "webp"},
			MinImageSize:     16,
			PreviewMaxDim:    640,
		},
	}
}

// NewWithConfig creates a new ScreenshotAnalyzer with custom configuration
func NewWithConfig(config Config) *ScreenshotAnalyzer {
	return &ScreenshotAnalyzer{config: config}
}

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// Inspect reads the header of the screenshot at path and returns its step image
// record without decoding the pixels.
func (a *ScreenshotAnalyzer) Inspect(path, stepID string) (types.StepImage, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.StepImage{}, fmt.Errorf("failed to open screenshot: %w", err)
	}
	defer file.Close()

	return a.InspectReader(file, stepID, fileURL(path))
}

// InspectReader is Inspect for an already opened screenshot served from url
func (a *ScreenshotAnalyzer) InspectReader(r io.Reader, stepID, url string) (types.StepImage, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return types.StepImage{}, fmt.Errorf("failed to read image header: %w", err)
	}
	if !a.isFormatSupported(format) {
		return types.StepImage{}, fmt.Errorf("unsupported image format: %s", format)
	}
	if err := a.validateSize(cfg.Width, cfg.Height); err != nil {
		return types.StepImage{}, err
	}

	return types.StepImage{
		ID:          stepID + "-screenshot",
		StepID:      stepID,
		Width:       cfg.Width,
		Height:      cfg.Height,
		DownloadURL: url,
		Variants: map[string]types.ImageVariant{
			types.VariantFull: {
				Width:       cfg.Width,
				Height:      cfg.Height,
				URL:         url,
				ContentType: contentTypes[format],
			},
		},
	}, nil
}

// WritePreview stores a downscaled preview of img next to the full screenshot and
// records it as the preview variant of record.
func (a *ScreenshotAnalyzer) WritePreview(img image.Image, record *types.StepImage, path string) error {
	if err := a.ValidateImage(img); err != nil {
		return err
	}

	preview := img
	limit := a.config.PreviewMaxDim
	b := img.Bounds()
	if limit > 0 && (b.Dx() > limit || b.Dy() > limit) {
		preview = imaging.Fit(img, limit, limit, imaging.Lanczos)
	}
	if err := imaging.Save(preview, path); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}

	if record.Variants == nil {
		record.Variants = make(map[string]types.ImageVariant)
	}
	pb := preview.Bounds()
	record.Variants[types.VariantPreview] = types.ImageVariant{
		Width:       pb.Dx(),
		Height:      pb.Dy(),
		URL:         fileURL(path),
		ContentType: contentTypeForPath(path),
	}
	return nil
}

// GetImageInfo returns basic information about an image
func (a *ScreenshotAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{Width: width, Height: height}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
}

// ValidateImage checks if an image meets minimum requirements
func (a *ScreenshotAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	return a.validateSize(bounds.Dx(), bounds.Dy())
}

func (a *ScreenshotAnalyzer) validateSize(w, h int) error {
	if w < a.config.MinImageSize || h < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)", w, h, a.config.MinImageSize)
	}
	return nil
}

func (a *ScreenshotAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return contentTypes["jpeg"]
	case ".png":
		return contentTypes["png"]
	case ".webp":
		return contentTypes["webp"]
	}
	return ""
}
