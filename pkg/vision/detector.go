package vision

import (
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/menta2k/guide-focus/pkg/types"
)

// ReasonSaliency tags radar points located by the saliency locator
const ReasonSaliency = "saliency_v1"

// SaliencyLocator finds the most salient UI region of a screenshot
type SaliencyLocator struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for saliency detection
type DetectionConfig struct {
	MaxAnalysisDim int     // screenshots are downscaled to this before analysis
	EdgeWeight     float64 // weight of local gradient strength
	ContrastWeight float64 // weight of deviation from mean brightness
	WindowRatio    float64 // window side as a fraction of the shorter image side
	MinScore       float64 // below this the screenshot is treated as flat
	MaxConfidence  float64
}

// New creates a new SaliencyLocator with default configuration
func New() *SaliencyLocator {
	return &SaliencyLocator{
		config: DetectionConfig{
			MaxAnalysisDim: 320,
			EdgeWeight:     0.8,
			ContrastWeight: 0.2,
			WindowRatio:    0.08,
			MinScore:       0.01,
			MaxConfidence:  0.6,
		},
	}
}

// NewWithConfig creates a new SaliencyLocator with custom configuration
func NewWithConfig(config DetectionConfig) *SaliencyLocator {
	return &SaliencyLocator{config: config}
}

// Region represents a rectangular region of interest in analysis pixels
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (float64, float64) {
	return float64(r.X) + float64(r.Width)/2, float64(r.Y) + float64(r.Height)/2
}

// LocateRadar returns a radar point at the most salient window, expressed in the
// recorded pixel space of the screenshot. It returns nil for flat screenshots.
func (d *SaliencyLocator) LocateRadar(img image.Image, recorded types.Size) *types.RadarPoint {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil
	}
	if !recorded.Valid() {
		recorded = types.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	}

	small := d.downscale(img)
	regions, mean := d.DetectRegions(small, 1)
	if len(regions) == 0 {
		return nil
	}
	best := regions[0]
	if best.Score <= 0 || best.Score < d.config.MinScore {
		return nil
	}

	cx, cy := best.Center()
	sw := float64(small.Bounds().Dx())
	sh := float64(small.Bounds().Dy())
	confidence := d.config.MaxConfidence * (best.Score - mean) / best.Score

	return &types.RadarPoint{
		Point: types.Point{
			X:               cx / sw * recorded.Width,
			Y:               cy / sh * recorded.Height,
			CoordinateSpace: types.StepImagePixelsV1,
		},
		Confidence: types.Float64(math.Max(0, confidence)),
		ReasonCode: ReasonSaliency,
	}
}

// DetectRegions scores every window of img and returns the top n by score along
// with the mean window score.
func (d *SaliencyLocator) DetectRegions(img image.Image, n int) ([]Region, float64) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width < 3 || height < 3 {
		return nil, 0
	}

	integral := d.integralSaliency(img)

	side := int(d.config.WindowRatio * float64(minInt(width, height)))
	if side < 3 {
		side = 3
	}
	step := side / 4
	if step < 1 {
		step = 1
	}

	var regions []Region
	var total float64
	area := float64(side * side)
	for y := 0; y+side <= height; y += step {
		for x := 0; x+side <= width; x += step {
			sum := integral[(y+side)*(width+1)+x+side] - integral[y*(width+1)+x+side] -
				integral[(y+side)*(width+1)+x] + integral[y*(width+1)+x]
			score := sum / area
			total += score
			regions = append(regions, Region{X: x, Y: y, Width: side, Height: side, Score: score})
		}
	}
	if len(regions) == 0 {
		return nil, 0
	}
	mean := total / float64(len(regions))

	// stable on ties so the top-left window wins
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Score > regions[j].Score
	})
	if n > 0 && len(regions) > n {
		regions = regions[:n]
	}
	return regions, mean
}

func (d *SaliencyLocator) downscale(img image.Image) *image.NRGBA {
	limit := d.config.MaxAnalysisDim
	b := img.Bounds()
	if limit <= 0 || (b.Dx() <= limit && b.Dy() <= limit) {
		return imaging.Clone(img)
	}
	return imaging.Fit(img, limit, limit, imaging.Box)
}

// integralSaliency builds a summed-area table of per-pixel saliency
func (d *SaliencyLocator) integralSaliency(img image.Image) []float64 {
	gray := imaging.Grayscale(img)
	width, height := gray.Bounds().Dx(), gray.Bounds().Dy()

	lum := make([]float64, width*height)
	var mean float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := float64(gray.Pix[y*gray.Stride+x*4]) / 255
			lum[y*width+x] = v
			mean += v
		}
	}
	mean /= float64(len(lum))

	integral := make([]float64, (width+1)*(height+1))
	for y := 0; y < height; y++ {
		var row float64
		for x := 0; x < width; x++ {
			v := lum[y*width+x]
			var edge float64
			if x+1 < width {
				edge += math.Abs(v - lum[y*width+x+1])
			}
			if y+1 < height {
				edge += math.Abs(v - lum[(y+1)*width+x])
			}
			saliency := d.config.EdgeWeight*math.Min(1, edge) + d.config.ContrastWeight*math.Abs(v-mean)

			row += saliency
			integral[(y+1)*(width+1)+x+1] = integral[y*(width+1)+x+1] + row
		}
	}
	return integral
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
