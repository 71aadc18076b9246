// Package stepfocus resolves, for every step of a guide, which focus signal the
// screenshot renderer should use and records where that signal came from.
//
// Precedence per step, first match wins:
//
//  1. manual_override        author-supplied focus/cursor in screenshot_overrides.v1
//  2. backend_render_hints   strong render hints on the step's own image
//  3. radar                  the step's own valid radar point
//  4. clamped_click          radar borrowed from the nearest click-like sibling
//  5. center_fallback        the image center
//
// Steps without a step image are skipped. Inputs are never mutated.
package stepfocus

import (
	"math"

	"github.com/menta2k/guide-focus/pkg/types"
)

// Source identifies the strategy that resolved a step's focus
type Source string

const (
	SourceManualOverride Source = "manual_override"
	SourceBackendHints   Source = "backend_render_hints"
	SourceRadar          Source = "radar"
	SourceClampedClick   Source = "clamped_click"
	SourceCenterFallback Source = "center_fallback"
)

// Reason codes written on synthesized radar points
const (
	ReasonManualOverride = "manual_override"
	ReasonDefaultCenter  = "default_center"
	reasonCenterFallback = ReasonDefaultCenter + "_fallback"
)

// Algorithm names written on synthesized render hints
const (
	AlgorithmManualOverride = "manual_override_v1"
	AlgorithmRadarFocus     = "radar_focus_v1"
	AlgorithmClampedClick   = "clamped_click_v1"
	AlgorithmCenterFallback = "center_fallback_v1"
)

// Config holds the empirically chosen thresholds of the derivation
type Config struct {
	ClickStrongConfidence  float64 `json:"click_strong_confidence"`
	ClickStrongZoom        float64 `json:"click_strong_zoom"`
	NonClickStrongZoom     float64 `json:"non_click_strong_zoom"`
	DefaultRadarConfidence float64 `json:"default_radar_confidence"`
	ClickRadarZoom         float64 `json:"click_radar_zoom"`
	NonClickRadarZoom      float64 `json:"non_click_radar_zoom"`
	BorrowConfidenceFactor float64 `json:"borrow_confidence_factor"`
	BorrowConfidenceFloor  float64 `json:"borrow_confidence_floor"`
	CenterZoom             float64 `json:"center_zoom"`
	CenterConfidence       float64 `json:"center_confidence"`
	MinDisplayConfidence   float64 `json:"min_display_confidence"`
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		ClickStrongConfidence:  0.7,
		ClickStrongZoom:        1.22,
		NonClickStrongZoom:     1.05,
		DefaultRadarConfidence: 0.86,
		ClickRadarZoom:         1.85,
		NonClickRadarZoom:      1.4,
		BorrowConfidenceFactor: 0.85,
		BorrowConfidenceFloor:  0.1,
		CenterZoom:             1.25,
		CenterConfidence:       0.35,
		MinDisplayConfidence:   0.05,
	}
}

// Deriver resolves step focus. It holds no state besides its configuration.
type Deriver struct {
	config Config
}

var defaultDeriver = New()

// New creates a Deriver with default thresholds
func New() *Deriver {
	return &Deriver{config: DefaultConfig()}
}

// NewWithConfig creates a Deriver with custom thresholds
func NewWithConfig(config Config) *Deriver {
	return &Deriver{config: config}
}

// Config returns the thresholds in use
func (d *Deriver) Config() Config {
	return d.config
}

// Derived is the resolved focus of one step
type Derived struct {
	Image             types.StepImage    `json:"image"`
	RenderHints       *types.RenderHints `json:"render_hints"`
	Radar             *types.RadarPoint  `json:"radar,omitempty"`
	FocusSource       Source             `json:"focus_source"`
	ClampedFromStepID string             `json:"clamped_from_step_id,omitempty"`
}

type candidate struct {
	stepID     string
	index      int
	captureTS  float64
	hasTS      bool
	center     types.Point
	confidence float64
}

// Derive resolves every step that has a step image. The returned map is keyed by step id
// and owns all of its values.
func (d *Deriver) Derive(steps []types.GuideStep, images []types.StepImage) map[string]Derived {
	byStep := indexImages(images)
	candidates := d.collectCandidates(steps, images, byStep)

	out := make(map[string]Derived, len(steps))
	for i, step := range steps {
		idx, ok := byStep[step.ID]
		if !ok {
			continue
		}
		out[step.ID] = d.deriveStep(i, step, images[idx], candidates)
	}
	return out
}

// Annotate returns a copy of images in which every step's image carries its resolved
// render hints and radar.
func (d *Deriver) Annotate(steps []types.GuideStep, images []types.StepImage) []types.StepImage {
	derived := d.Derive(steps, images)
	byStep := indexImages(images)

	out := make([]types.StepImage, len(images))
	for i, img := range images {
		if res, ok := derived[img.StepID]; ok && byStep[img.StepID] == i {
			out[i] = res.Image
			continue
		}
		out[i] = img.Clone()
	}
	return out
}

// Derive resolves steps with the default thresholds
func Derive(steps []types.GuideStep, images []types.StepImage) map[string]Derived {
	return defaultDeriver.Derive(steps, images)
}

func (d *Deriver) deriveStep(index int, step types.GuideStep, img types.StepImage, candidates []candidate) Derived {
	size := img.Dimensions()
	clickLike := IsStepClickLike(step)

	var (
		hints  *types.RenderHints
		radar  *types.RadarPoint
		source Source
		from   string
	)

	if manual := ParseManualOverride(step.ScreenshotOverrides); manual != nil {
		source = SourceManualOverride
		hints, radar = d.fromManual(manual, img, size, clickLike)
	} else if d.strongHints(img.RenderHints, clickLike) {
		source = SourceBackendHints
		hints = img.RenderHints.Clone()
		if img.Radar.Valid() {
			radar = img.Radar.Clone()
		}
	} else if img.Radar.InImage(size) {
		source = SourceRadar
		radar = img.Radar.Clone()
		hints = &types.RenderHints{
			Algorithm:            AlgorithmRadarFocus,
			Source:               types.HintSourceRadar,
			Confidence:           radar.ConfidenceOr(d.config.DefaultRadarConfidence),
			FocusCenter:          &types.Point{X: radar.X, Y: radar.Y, CoordinateSpace: types.StepImagePixelsV1},
			RecommendedZoomScale: d.radarZoom(clickLike),
		}
	} else if c, ok := nearestCandidate(candidates, index, step.ID, img); ok {
		source = SourceClampedClick
		from = c.stepID
		center := types.Point{
			X:               clamp(c.center.X, 0, size.Width),
			Y:               clamp(c.center.Y, 0, size.Height),
			CoordinateSpace: types.StepImagePixelsV1,
		}
		hints = &types.RenderHints{
			Algorithm:            AlgorithmClampedClick,
			Source:               types.HintSourceClickEvent,
			Confidence:           clamp(c.confidence*d.config.BorrowConfidenceFactor, d.config.BorrowConfidenceFloor, 1),
			FocusCenter:          &center,
			RecommendedZoomScale: d.radarZoom(clickLike),
		}
	} else {
		source = SourceCenterFallback
		hints, radar = d.centerFallback(size, clickLike)
	}

	annotated := img.Clone()
	annotated.RenderHints = hints.Clone()
	annotated.Radar = radar.Clone()

	return Derived{
		Image:             annotated,
		RenderHints:       hints,
		Radar:             radar,
		FocusSource:       source,
		ClampedFromStepID: from,
	}
}

func (d *Deriver) fromManual(m *ManualOverride, img types.StepImage, size types.Size, clickLike bool) (*types.RenderHints, *types.RadarPoint) {
	var radar *types.RadarPoint
	if m.Cursor != nil {
		radar = &types.RadarPoint{
			Point:      m.Cursor.ToPixels(size),
			Confidence: types.Float64(1),
			ReasonCode: ReasonManualOverride,
		}
	} else if img.Radar.Valid() {
		radar = img.Radar.Clone()
	}

	hints := &types.RenderHints{
		Algorithm:  AlgorithmManualOverride,
		Source:     types.HintSourceClickEvent,
		Confidence: 1,
	}
	if m.FocusCenter != nil {
		center := m.FocusCenter.ToPixels(size)
		hints.FocusCenter = &center
		hints.RecommendedZoomScale = m.ZoomScale
	} else {
		center := m.Cursor.ToPixels(size)
		hints.FocusCenter = &center
		hints.RecommendedZoomScale = d.radarZoom(clickLike)
	}
	return hints, radar
}

func (d *Deriver) centerFallback(size types.Size, clickLike bool) (*types.RenderHints, *types.RadarPoint) {
	zoom := d.config.CenterZoom
	if clickLike {
		zoom = math.Max(zoom, d.config.ClickStrongZoom)
	}
	center := types.Point{X: size.Width / 2, Y: size.Height / 2, CoordinateSpace: types.StepImagePixelsV1}

	hints := &types.RenderHints{
		Algorithm:            AlgorithmCenterFallback,
		Source:               types.HintSourceRadar,
		Confidence:           d.config.CenterConfidence,
		FocusCenter:          &center,
		RecommendedZoomScale: zoom,
	}
	radar := &types.RadarPoint{
		Point:      center,
		Confidence: types.Float64(d.config.MinDisplayConfidence),
		ReasonCode: reasonCenterFallback,
	}
	return hints, radar
}

// strongHints decides whether backend hints are trustworthy enough to skip radar-based strategies
func (d *Deriver) strongHints(h *types.RenderHints, clickLike bool) bool {
	if h == nil {
		return false
	}
	if clickLike {
		if h.Source != types.HintSourceRadar && h.Source != types.HintSourceClickEvent {
			return false
		}
		return h.Confidence >= d.config.ClickStrongConfidence || h.RecommendedZoomScale >= d.config.ClickStrongZoom
	}
	return h.RecommendedZoomScale > d.config.NonClickStrongZoom || h.SafeCropRect.Usable()
}

func (d *Deriver) radarZoom(clickLike bool) float64 {
	if clickLike {
		return d.config.ClickRadarZoom
	}
	return d.config.NonClickRadarZoom
}

func (d *Deriver) collectCandidates(steps []types.GuideStep, images []types.StepImage, byStep map[string]int) []candidate {
	var out []candidate
	for i, step := range steps {
		idx, ok := byStep[step.ID]
		if !ok || !IsStepClickLike(step) {
			continue
		}
		img := images[idx]
		if !img.Radar.InImage(img.Dimensions()) {
			continue
		}
		ts, hasTS := img.CaptureTime()
		out = append(out, candidate{
			stepID:     step.ID,
			index:      i,
			captureTS:  ts,
			hasTS:      hasTS,
			center:     img.Radar.Point,
			confidence: img.Radar.ConfidenceOr(d.config.DefaultRadarConfidence),
		})
	}
	return out
}

// nearestCandidate picks by capture time when both sides have one, otherwise by step
// index. Ties go to the lower index, then the lexically smaller step id.
func nearestCandidate(candidates []candidate, index int, stepID string, img types.StepImage) (candidate, bool) {
	pool := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.index == index || c.stepID == stepID {
			continue
		}
		pool = append(pool, c)
	}

	byTime := false
	ts, hasTS := img.CaptureTime()
	if hasTS {
		timed := pool[:0:0]
		for _, c := range pool {
			if c.hasTS {
				timed = append(timed, c)
			}
		}
		if len(timed) > 0 {
			pool = timed
			byTime = true
		}
	}

	var best candidate
	bestDist := math.Inf(1)
	found := false
	for _, c := range pool {
		var dist float64
		if byTime {
			dist = math.Abs(c.captureTS - ts)
		} else {
			dist = math.Abs(float64(c.index - index))
		}
		if !found || dist < bestDist ||
			(dist == bestDist && (c.index < best.index || (c.index == best.index && c.stepID < best.stepID))) {
			best, bestDist, found = c, dist, true
		}
	}
	return best, found
}

func indexImages(images []types.StepImage) map[string]int {
	byStep := make(map[string]int, len(images))
	for i, img := range images {
		if _, seen := byStep[img.StepID]; !seen {
			byStep[img.StepID] = i
		}
	}
	return byStep
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
