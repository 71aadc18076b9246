// Package focus computes the crop, zoom and transform origin used to render
// one step screenshot inside a viewport.
package focus

import (
	"math"

	"github.com/menta2k/guide-focus/pkg/types"
)

// ContextMarginFactor is the share of the crop's own width/height added on each side
// so the focused element keeps some surrounding context.
const ContextMarginFactor = 0.04

// fullImageEpsilon is the relative tolerance under which a crop counts as the full image.
const fullImageEpsilon = 0.001

// Percent is a position expressed in percent of some reference box
type Percent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RadarPercent is the radar position in percent of the crop
type RadarPercent struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Result is the output of ComputeTransformV1
type Result struct {
	CropRect               types.Rect    `json:"cropRect"`
	ZoomScale              float64       `json:"zoomScale"`
	TransformOriginPercent Percent       `json:"transformOriginPercent"`
	RadarPercentInCrop     *RadarPercent `json:"radarPercentInCrop"`
	HasFocusCrop           bool          `json:"hasFocusCrop"`
}

// Identity is returned when the image has no usable dimensions
func Identity() Result {
	return Result{
		CropRect:               types.Rect{X: 0, Y: 0, Width: 1, Height: 1},
		ZoomScale:              1,
		TransformOriginPercent: Percent{X: 50, Y: 50},
	}
}

// ComputeTransformV1 picks a crop of the image that matches the viewport aspect ratio,
// centered on the render hints when they are usable. It never panics and is deterministic.
func ComputeTransformV1(image, viewport types.Size, hints *types.RenderHints, radar *types.RadarPoint) Result {
	if !image.Valid() {
		return Identity()
	}
	imgW, imgH := image.Width, image.Height
	full := types.Rect{Width: imgW, Height: imgH, CoordinateSpace: types.StepImagePixelsV1}

	base := full
	if r, ok := hintRect(image, hints); ok {
		base = r
	}
	base = clampRect(base, imgW, imgH)

	if viewport.Valid() {
		base = fitAspect(base, viewport.Width/viewport.Height, imgW, imgH)
	}
	base = expand(base, ContextMarginFactor, imgW, imgH)
	crop := roundRect(base, imgW, imgH)

	result := Result{
		CropRect:     crop,
		ZoomScale:    math.Max(1, imgW/crop.Width),
		HasFocusCrop: !sameRect(crop, full, imgW, imgH),
	}

	if hints != nil && hints.FocusCenter.Trusted() {
		result.TransformOriginPercent = Percent{
			X: clamp(hints.FocusCenter.X/imgW*100, 0, 100),
			Y: clamp(hints.FocusCenter.Y/imgH*100, 0, 100),
		}
	} else {
		cx, cy := crop.Center()
		result.TransformOriginPercent = Percent{
			X: clamp(cx/imgW*100, 0, 100),
			Y: clamp(cy/imgH*100, 0, 100),
		}
	}

	if radar.Valid() && inside(radar.X, radar.Y, crop) {
		result.RadarPercentInCrop = &RadarPercent{
			Left: (radar.X - crop.X) / crop.Width * 100,
			Top:  (radar.Y - crop.Y) / crop.Height * 100,
		}
	}

	return result
}

// EffectiveZoomScale converts a zoom saved by an editor into the zoom that remains
// after the context margin widens the crop.
func EffectiveZoomScale(saved float64) float64 {
	if !(saved > 0) || math.IsInf(saved, 0) {
		return 1
	}
	return math.Max(1, saved/(1+2*ContextMarginFactor))
}

// SavedZoomScale is the inverse of EffectiveZoomScale: the zoom to save so that the
// rendered crop ends up at the requested effective zoom.
func SavedZoomScale(effective float64) float64 {
	if !(effective > 0) || math.IsInf(effective, 0) {
		return 1
	}
	return effective * (1 + 2*ContextMarginFactor)
}

func hintRect(image types.Size, hints *types.RenderHints) (types.Rect, bool) {
	if hints == nil {
		return types.Rect{}, false
	}
	if hints.SafeCropRect.Usable() {
		return *hints.SafeCropRect, true
	}
	zoom := hints.RecommendedZoomScale
	if hints.FocusCenter.Trusted() && zoom > 1 && !math.IsInf(zoom, 0) {
		w := image.Width / zoom
		h := image.Height / zoom
		return types.Rect{
			X:               hints.FocusCenter.X - w/2,
			Y:               hints.FocusCenter.Y - h/2,
			Width:           w,
			Height:          h,
			CoordinateSpace: types.StepImagePixelsV1,
		}, true
	}
	return types.Rect{}, false
}

// clampRect shrinks the rect to fit the image and then shifts it inside.
func clampRect(r types.Rect, imgW, imgH float64) types.Rect {
	w := clamp(r.Width, math.Min(1, imgW), imgW)
	h := clamp(r.Height, math.Min(1, imgH), imgH)
	return types.Rect{
		X:               clamp(r.X, 0, imgW-w),
		Y:               clamp(r.Y, 0, imgH-h),
		Width:           w,
		Height:          h,
		CoordinateSpace: types.StepImagePixelsV1,
	}
}

// fitAspect grows the short side around the center until w/h equals ratio.
func fitAspect(r types.Rect, ratio, imgW, imgH float64) types.Rect {
	cx, cy := r.Center()
	w, h := r.Width, r.Height
	if w/h < ratio {
		w = h * ratio
	} else if w/h > ratio {
		h = w / ratio
	}
	if w > imgW {
		h *= imgW / w
		w = imgW
	}
	if h > imgH {
		w *= imgH / h
		h = imgH
	}
	return clampRect(types.Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}, imgW, imgH)
}

func expand(r types.Rect, factor, imgW, imgH float64) types.Rect {
	mx := r.Width * factor
	my := r.Height * factor
	return clampRect(types.Rect{
		X:      r.X - mx,
		Y:      r.Y - my,
		Width:  r.Width + 2*mx,
		Height: r.Height + 2*my,
	}, imgW, imgH)
}

// roundRect snaps to integer pixels without ever leaving the image.
func roundRect(r types.Rect, imgW, imgH float64) types.Rect {
	w := math.Min(math.Ceil(r.Width), imgW)
	h := math.Min(math.Ceil(r.Height), imgH)
	return types.Rect{
		X:               math.Max(0, math.Min(math.Floor(r.X), imgW-w)),
		Y:               math.Max(0, math.Min(math.Floor(r.Y), imgH-h)),
		Width:           w,
		Height:          h,
		CoordinateSpace: types.StepImagePixelsV1,
	}
}

func sameRect(a, b types.Rect, imgW, imgH float64) bool {
	ex := imgW * fullImageEpsilon
	ey := imgH * fullImageEpsilon
	return math.Abs(a.X-b.X) <= ex && math.Abs(a.Y-b.Y) <= ey &&
		math.Abs(a.Width-b.Width) <= ex && math.Abs(a.Height-b.Height) <= ey
}

func inside(x, y float64, r types.Rect) bool {
	return x >= r.X && y >= r.Y && x <= r.X+r.Width && y <= r.Y+r.Height
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
