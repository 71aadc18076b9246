package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/guide-focus/pkg/focus"
	"github.com/menta2k/guide-focus/pkg/types"
)

// maxDownloadBytes bounds screenshot downloads
const maxDownloadBytes = 64 << 20

// Processor handles screenshot loading, encoding and debug rendering
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadImageFromURL downloads and decodes a screenshot
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Guide-Focus/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return p.DecodeImage(imageData)
}

// LoadImage loads a screenshot from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("image: unknown format for %s: %w", path, err)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(strings.TrimPrefix(source, "file://"))
}

// DecodeImage decodes bytes with the registered decoders, then the cgo WebP decoder
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// PrepareImageForModel converts a screenshot to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// CreateDebugOverlay draws the focus crop, the transform origin and the radar over the
// full screenshot. recorded is the size the focus result was computed for.
func (p *Processor) CreateDebugOverlay(img image.Image, recorded types.Size, result focus.Result, radar *types.RadarPoint, label string) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	sx, sy := 1.0, 1.0
	if recorded.Valid() {
		sx = float64(w) / recorded.Width
		sy = float64(h) / recorded.Height
	}

	gold := color.NRGBA{255, 204, 0, 255} // crop
	red := color.NRGBA{255, 0, 0, 255}    // transform origin
	green := color.NRGBA{0, 255, 0, 255}  // radar
	blue := color.NRGBA{0, 170, 255, 255} // image center
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))
	cross := int(math.Max(4, 0.01*float64(minInt(w, h))))

	if result.HasFocusCrop {
		crop := result.CropRect
		x0 := int(crop.X*sx + 0.5)
		y0 := int(crop.Y*sy + 0.5)
		x1 := int((crop.X+crop.Width)*sx + 0.5)
		y1 := int((crop.Y+crop.Height)*sy + 0.5)
		drawRect(nrgba, x0, y0, x1, y1, gold, stroke)
	}

	ox := int(result.TransformOriginPercent.X/100*float64(w) + 0.5)
	oy := int(result.TransformOriginPercent.Y/100*float64(h) + 0.5)
	drawHLine(nrgba, oy, ox-cross, ox+cross, red)
	drawVLine(nrgba, ox, oy-cross, oy+cross, red)

	if radar.Valid() {
		drawDot(nrgba, int(radar.X*sx+0.5), int(radar.Y*sy+0.5), cross, green)
	}

	ix, iy := w/2, h/2
	drawHLine(nrgba, iy, ix-6, ix+6, blue)
	drawVLine(nrgba, ix, iy-6, iy+6, blue)

	if label != "" {
		drawLabel(nrgba, 8, 8, label)
	}
	return nrgba
}

// Helper functions
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func drawLabel(img *image.NRGBA, x, y int, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()

	bg := image.Rect(x-4, y-2, x+width+4, y+height+2).Intersect(img.Bounds())
	draw.Draw(img, bg, image.NewUniform(color.NRGBA{0, 0, 0, 180}), image.Point{}, draw.Over)

	d.Dst = img
	d.Src = image.NewUniform(color.NRGBA{255, 255, 255, 255})
	d.Dot = fixed.P(x, y+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}

func drawRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA, stroke int) {
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawDot(img *image.NRGBA, cx, cy, radius int, c color.NRGBA) {
	for dy := -radius; dy <= radius; dy++ {
		span := int(math.Sqrt(float64(radius*radius - dy*dy)))
		drawHLine(img, cy+dy, cx-span, cx+span+1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
