package detection

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/guide-focus/pkg/client"
	"github.com/menta2k/guide-focus/pkg/types"
)

// Reason codes written on radar points produced by the detector
const (
	ReasonVisionModel         = "vision_model"
	ReasonDefaultCenterPrefix = "default_center_"
)

// fallbackConfidence keeps fallback radar points below the display threshold
const fallbackConfidence = 0.05

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this screenshot? Describe it briefly.`

// DefaultPrompt is the default prompt for locating the step target
const DefaultPrompt = `You are a UI click locator for screenshots of desktop and web applications.

Return JSON only:
{
  "target": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (≤ 20 words)"
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- The box must tightly include the single control the user interacts with in this step.
- cx, cy is the point the user clicked and must lie inside the box.
- If no control can be identified, return:
  {"target":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.5,"h":0.5},"cx":0.5,"cy":0.5},"description":"no target"}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Detector locates step targets using vision models
type Detector struct {
	client client.VisionClient
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient) *Detector {
	return &Detector{client: client}
}

// BuildPrompt adds the step's context to DefaultPrompt
func BuildPrompt(step types.GuideStep) string {
	var b strings.Builder
	b.WriteString(DefaultPrompt)
	b.WriteString("\n\nSTEP\n")
	fmt.Fprintf(&b, "- kind: %s\n", step.Kind)
	if step.Title != "" {
		fmt.Fprintf(&b, "- instruction: %s\n", step.Title)
	}
	if step.ExpectedEvent != nil && step.ExpectedEvent.Type != "" {
		fmt.Fprintf(&b, "- expected event: %s\n", step.ExpectedEvent.Type)
	}
	return b.String()
}

// LocateRadar asks the model for the step target and converts it into a pixel-space radar
// point for an image of the given size. Unusable answers yield a hidden center radar.
func (d *Detector) LocateRadar(ctx context.Context, model, imageB64 string, step types.GuideStep, size types.Size) (*types.RadarPoint, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("invalid image size %gx%g", size.Width, size.Height)
	}

	result, err := d.client.LocateTarget(ctx, model, BuildPrompt(step), imageB64)
	if err != nil {
		return nil, fmt.Errorf("target location failed: %w", err)
	}
	return ToRadar(result, size), nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

// ToRadar converts a normalized target analysis into a radar point
func ToRadar(result *types.TargetAnalysis, size types.Size) *types.RadarPoint {
	if result == nil {
		return centerRadar("missing", size)
	}
	if result.Fallback != "" {
		return centerRadar(result.Fallback, size)
	}
	if strings.EqualFold(strings.TrimSpace(result.Target.Label), "none") {
		return centerRadar("no_target", size)
	}

	box := normalizeBox(result.Target.Box)
	cx, cy := result.Target.Cx, result.Target.Cy
	if math.IsNaN(cx) || math.IsNaN(cy) {
		cx, cy = box.X+box.W/2, box.Y+box.H/2
	}
	// Keep the click point inside the box when the model drew one.
	if box.W > 0 && box.H > 0 {
		cx = clamp(cx, box.X, box.X+box.W)
		cy = clamp(cy, box.Y, box.Y+box.H)
	}

	return &types.RadarPoint{
		Point: types.Point{
			X:               clamp(cx, 0, 1) * size.Width,
			Y:               clamp(cy, 0, 1) * size.Height,
			CoordinateSpace: types.StepImagePixelsV1,
		},
		Confidence: types.Float64(clamp(result.Target.Confidence, 0, 1)),
		ReasonCode: ReasonVisionModel,
	}
}

func centerRadar(reason string, size types.Size) *types.RadarPoint {
	return &types.RadarPoint{
		Point: types.Point{
			X:               size.Width / 2,
			Y:               size.Height / 2,
			CoordinateSpace: types.StepImagePixelsV1,
		},
		Confidence: types.Float64(fallbackConfidence),
		ReasonCode: ReasonDefaultCenterPrefix + reason,
	}
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox ensures box coordinates are within [0,1] bounds
func normalizeBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}
