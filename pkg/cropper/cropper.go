package cropper

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/guide-focus/pkg/focus"
	"github.com/menta2k/guide-focus/pkg/types"
)

// FocusCropper renders focus transforms onto decoded screenshots
type FocusCropper struct {
	config CropConfig
}

// CropConfig holds configuration for focus rendering
type CropConfig struct {
	RadarColor       color.NRGBA
	RadarRingColor   color.NRGBA
	RadarRadiusRatio float64
	MinRadarRadius   int
	Filter           imaging.ResampleFilter
}

// DefaultCropConfig returns the rendering defaults
func DefaultCropConfig() CropConfig {
	return CropConfig{
		RadarColor:       color.NRGBA{255, 59, 48, 220},
		RadarRingColor:   color.NRGBA{255, 255, 255, 255},
		RadarRadiusRatio: 0.018,
		MinRadarRadius:   4,
		Filter:           imaging.Lanczos,
	}
}

// New creates a new FocusCropper with default configuration
func New() *FocusCropper {
	return &FocusCropper{config: DefaultCropConfig()}
}

// NewWithConfig creates a new FocusCropper with custom configuration
func NewWithConfig(config CropConfig) *FocusCropper {
	if config.MinRadarRadius <= 0 {
		config.MinRadarRadius = 1
	}
	return &FocusCropper{config: config}
}

// CropResult contains the result of a focus render
type CropResult struct {
	Image image.Image
	// Region is the crop in decoded image pixels
	Region     image.Rectangle
	Scale      float64
	RadarShown bool
}

// Render crops img to the focus crop and scales it to the viewport. recorded is the
// size the focus result was computed against; when the decoded screenshot differs
// the crop is rescaled. A zero viewport keeps the crop at native resolution.
func (c *FocusCropper) Render(img image.Image, recorded types.Size, result focus.Result, viewport types.Size, showRadar bool) (CropResult, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return CropResult{}, fmt.Errorf("invalid image dimensions")
	}
	if !recorded.Valid() {
		recorded = types.Size{Width: float64(w), Height: float64(h)}
	}

	region := bounds
	if result.HasFocusCrop {
		region = cropRegion(result.CropRect, recorded, w, h).Add(bounds.Min)
	}
	if region.Empty() {
		return CropResult{}, fmt.Errorf("focus crop %+v is outside the %dx%d image", result.CropRect, w, h)
	}

	out := imaging.Crop(img, region)
	scale := 1.0
	if viewport.Valid() {
		out, scale = c.fitToViewport(out, viewport)
	}

	shown := false
	if showRadar && result.RadarPercentInCrop != nil {
		c.drawRadar(out, result.RadarPercentInCrop)
		shown = true
	}

	return CropResult{
		Image:      out,
		Region:     region,
		Scale:      scale,
		RadarShown: shown,
	}, nil
}

// cropRegion maps a crop rect from recorded pixels to decoded pixels
func cropRegion(crop types.Rect, recorded types.Size, w, h int) image.Rectangle {
	sx := float64(w) / recorded.Width
	sy := float64(h) / recorded.Height

	x0 := int(math.Floor(crop.X * sx))
	y0 := int(math.Floor(crop.Y * sy))
	x1 := int(math.Ceil((crop.X + crop.Width) * sx))
	y1 := int(math.Ceil((crop.Y + crop.Height) * sy))

	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, w, h))
}

// fitToViewport scales the crop to fill the viewport along its limiting axis,
// upscaling zoomed crops.
func (c *FocusCropper) fitToViewport(img *image.NRGBA, viewport types.Size) (*image.NRGBA, float64) {
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())
	scale := math.Min(viewport.Width/w, viewport.Height/h)

	tw := int(math.Round(w * scale))
	th := int(math.Round(h * scale))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	if tw == int(w) && th == int(h) {
		return img, 1
	}
	return imaging.Resize(img, tw, th, c.config.Filter), scale
}

func (c *FocusCropper) drawRadar(img *image.NRGBA, at *focus.RadarPercent) {
	b := img.Bounds()
	cx := b.Min.X + int(math.Round(at.Left/100*float64(b.Dx())))
	cy := b.Min.Y + int(math.Round(at.Top/100*float64(b.Dy())))

	r := int(math.Round(c.config.RadarRadiusRatio * float64(minInt(b.Dx(), b.Dy()))))
	if r < c.config.MinRadarRadius {
		r = c.config.MinRadarRadius
	}
	ring := r / 3
	if ring < 1 {
		ring = 1
	}

	center := image.Point{cx, cy}
	drawDisc(img, center, r+ring, c.config.RadarRingColor)
	drawDisc(img, center, r, c.config.RadarColor)
}

func drawDisc(dst draw.Image, p image.Point, r int, c color.NRGBA) {
	rect := image.Rect(p.X-r, p.Y-r, p.X+r+1, p.Y+r+1)
	draw.DrawMask(dst, rect, image.NewUniform(c), image.Point{}, &disc{p: p, r: r}, rect.Min, draw.Over)
}

// disc is an alpha mask of a filled circle
type disc struct {
	p image.Point
	r int
}

func (d *disc) ColorModel() color.Model {
	return color.AlphaModel
}

func (d *disc) Bounds() image.Rectangle {
	return image.Rect(d.p.X-d.r, d.p.Y-d.r, d.p.X+d.r+1, d.p.Y+d.r+1)
}

func (d *disc) At(x, y int) color.Color {
	dx, dy := x-d.p.X, y-d.p.Y
	if dx*dx+dy*dy <= d.r*d.r {
		return color.Alpha{255}
	}
	return color.Alpha{0}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
