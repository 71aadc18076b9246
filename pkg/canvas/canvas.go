// Package canvas converts a focus result into pan/zoom parameters for an
// interactive image viewer.
package canvas

import (
	"math"

	"github.com/menta2k/guide-focus/pkg/focus"
)

// Params describes the rendered viewer. ImageWidth/ImageHeight are the on-screen
// rendered image size, which may differ from the capture resolution.
type Params struct {
	FocusTransform focus.Result
	ViewportWidth  float64
	ViewportHeight float64
	ImageWidth     float64
	ImageHeight    float64
	MinScale       float64
	MaxScale       float64
}

// Transform is the pan/zoom state that puts the focus point at the viewport center
type Transform struct {
	Scale     float64 `json:"scale"`
	PositionX float64 `json:"positionX"`
	PositionY float64 `json:"positionY"`
}

// ClampScale clamps value into [lo, hi], bounds inclusive
func ClampScale(value, lo, hi float64) float64 {
	if math.IsNaN(value) {
		return lo
	}
	return math.Min(hi, math.Max(lo, value))
}

// ComputeFocusTransform pans so that the transform origin lands at the viewport center
func ComputeFocusTransform(p Params) Transform {
	scale := ClampScale(p.FocusTransform.ZoomScale, p.MinScale, p.MaxScale)
	focusX := p.FocusTransform.TransformOriginPercent.X / 100 * p.ImageWidth
	focusY := p.FocusTransform.TransformOriginPercent.Y / 100 * p.ImageHeight

	return Transform{
		Scale:     scale,
		PositionX: p.ViewportWidth/2 - focusX*scale,
		PositionY: p.ViewportHeight/2 - focusY*scale,
	}
}
