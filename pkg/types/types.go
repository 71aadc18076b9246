package types

import (
	"encoding/json"
	"math"
)

// CoordinateSpace tags every point and rect that crosses the JSON boundary.
// Values carrying any other tag are treated as absent.
type CoordinateSpace string

// StepImagePixelsV1 is the only trusted coordinate space: pixels of one captured step image.
const StepImagePixelsV1 CoordinateSpace = "step_image_pixels_v1"

// Size is a width/height pair in pixels
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are finite and positive
func (s Size) Valid() bool {
	return isFinite(s.Width) && isFinite(s.Height) && s.Width > 0 && s.Height > 0
}

// Point is a location inside one specific captured image
type Point struct {
	X               float64         `json:"x"`
	Y               float64         `json:"y"`
	CoordinateSpace CoordinateSpace `json:"coordinate_space"`
}

// Trusted reports whether the point is tagged with the pixel space and has finite coordinates
func (p *Point) Trusted() bool {
	return p != nil && p.CoordinateSpace == StepImagePixelsV1 && isFinite(p.X) && isFinite(p.Y)
}

// Within reports whether the point lies inside [0,w]×[0,h]
func (p *Point) Within(size Size) bool {
	return p.Trusted() && p.X >= 0 && p.Y >= 0 && p.X <= size.Width && p.Y <= size.Height
}

// UnitPoint is a location in the unit square. It only becomes a Point via ToPixels.
type UnitPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are finite numbers
func (u UnitPoint) Finite() bool {
	return isFinite(u.X) && isFinite(u.Y)
}

// ToPixels converts the unit point into the pixel space of an image of the given size
func (u UnitPoint) ToPixels(size Size) Point {
	return Point{
		X:               clamp(u.X, 0, 1) * size.Width,
		Y:               clamp(u.Y, 0, 1) * size.Height,
		CoordinateSpace: StepImagePixelsV1,
	}
}

// Rect is an axis-aligned rectangle in step image pixels
type Rect struct {
	X               float64         `json:"x"`
	Y               float64         `json:"y"`
	Width           float64         `json:"width"`
	Height          float64         `json:"height"`
	CoordinateSpace CoordinateSpace `json:"coordinate_space,omitempty"`
}

// Usable reports whether the rect is tagged and has a positive finite area
func (r *Rect) Usable() bool {
	if r == nil || r.CoordinateSpace != StepImagePixelsV1 {
		return false
	}
	return isFinite(r.X) && isFinite(r.Y) && isFinite(r.Width) && isFinite(r.Height) &&
		r.Width > 0 && r.Height > 0
}

// Center returns the center of the rect
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// RadarPoint is a detected or authored "the user clicked here" signal for one step
type RadarPoint struct {
	Point
	Confidence *float64 `json:"confidence,omitempty"`
	ReasonCode string   `json:"reason_code,omitempty"`
}

// Valid reports whether the radar is present, tagged and finite. Safe on a nil receiver.
func (r *RadarPoint) Valid() bool {
	return r != nil && r.Point.Trusted()
}

// InImage reports whether the radar is valid and lies inside an image of the given size
func (r *RadarPoint) InImage(size Size) bool {
	return r != nil && r.Point.Within(size)
}

// Clone returns a deep copy of the radar point
func (r *RadarPoint) Clone() *RadarPoint {
	if r == nil {
		return nil
	}
	out := *r
	if r.Confidence != nil {
		out.Confidence = Float64(*r.Confidence)
	}
	return &out
}

// ConfidenceOr returns the confidence or def when it is absent
func (r *RadarPoint) ConfidenceOr(def float64) float64 {
	if r == nil || r.Confidence == nil || !isFinite(*r.Confidence) {
		return def
	}
	return *r.Confidence
}

// Hint sources
const (
	HintSourceRadar      = "radar"
	HintSourceClickEvent = "click_event"
)

// RenderHints is a server- or override-computed hint about where to center and how much to zoom
type RenderHints struct {
	Algorithm            string  `json:"algorithm"`
	Source               string  `json:"source"`
	Confidence           float64 `json:"confidence"`
	FocusCenter          *Point  `json:"focus_center,omitempty"`
	RecommendedZoomScale float64 `json:"recommended_zoom_scale"`
	SafeCropRect         *Rect   `json:"safe_crop_rect,omitempty"`
}

// Clone returns a deep copy of the hints
func (h *RenderHints) Clone() *RenderHints {
	if h == nil {
		return nil
	}
	out := *h
	if h.FocusCenter != nil {
		fc := *h.FocusCenter
		out.FocusCenter = &fc
	}
	if h.SafeCropRect != nil {
		rect := *h.SafeCropRect
		out.SafeCropRect = &rect
	}
	return &out
}

// ImageVariant is one downloadable rendition of a step image
type ImageVariant struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// Variant names
const (
	VariantPreview = "preview"
	VariantFull    = "full"
)

// StepImage is the screenshot captured for one step
type StepImage struct {
	ID          string                  `json:"id,omitempty"`
	StepID      string                  `json:"step_id"`
	Width       int                     `json:"width"`
	Height      int                     `json:"height"`
	DownloadURL string                  `json:"download_url,omitempty"`
	Variants    map[string]ImageVariant `json:"variants,omitempty"`
	CaptureTS   *float64                `json:"capture_t_s,omitempty"`
	Radar       *RadarPoint             `json:"radar,omitempty"`
	RenderHints *RenderHints            `json:"render_hints,omitempty"`
}

// Dimensions returns the recorded pixel size, falling back to the full and then the preview variant
func (s StepImage) Dimensions() Size {
	if s.Width > 0 && s.Height > 0 {
		return Size{Width: float64(s.Width), Height: float64(s.Height)}
	}
	for _, name := range []string{VariantFull, VariantPreview} {
		if v, ok := s.Variants[name]; ok && v.Width > 0 && v.Height > 0 {
			return Size{Width: float64(v.Width), Height: float64(v.Height)}
		}
	}
	return Size{}
}

// SourceURL returns the URL for the named variant, falling back to the legacy download URL
func (s StepImage) SourceURL(variant string) string {
	if v, ok := s.Variants[variant]; ok && v.URL != "" {
		return v.URL
	}
	return s.DownloadURL
}

// Clone returns a copy that shares no pointers or maps with s
func (s StepImage) Clone() StepImage {
	out := s
	if s.Variants != nil {
		out.Variants = make(map[string]ImageVariant, len(s.Variants))
		for name, v := range s.Variants {
			out.Variants[name] = v
		}
	}
	if s.CaptureTS != nil {
		out.CaptureTS = Float64(*s.CaptureTS)
	}
	out.Radar = s.Radar.Clone()
	out.RenderHints = s.RenderHints.Clone()
	return out
}

// CaptureTime returns the capture timestamp when it is present and finite
func (s StepImage) CaptureTime() (float64, bool) {
	if s.CaptureTS == nil || !isFinite(*s.CaptureTS) {
		return 0, false
	}
	return *s.CaptureTS, true
}

// ExpectedEvent is the recorded UI event a step expects
type ExpectedEvent struct {
	Type string `json:"type"`
}

// GuideStep is one step definition of a guide version
type GuideStep struct {
	ID                  string          `json:"id"`
	Kind                string          `json:"kind"`
	Title               string          `json:"title,omitempty"`
	ExpectedEvent       *ExpectedEvent  `json:"expected_event,omitempty"`
	ScreenshotOverrides json.RawMessage `json:"screenshot_overrides,omitempty"`
}

// Guide is the envelope exchanged by the CLI and the HTTP service
type Guide struct {
	ID         string      `json:"id,omitempty"`
	Steps      []GuideStep `json:"steps"`
	StepImages []StepImage `json:"step_images"`
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Target is the UI element a vision model located for a step
type Target struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// TargetAnalysis contains the complete answer from the vision model
type TargetAnalysis struct {
	Target      Target `json:"target"`
	Description string `json:"description"`
	Fallback    string `json:"-"`
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 {
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
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
