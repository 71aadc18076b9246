// Package guidefocus resolves where a guide viewer should zoom for each step
// screenshot and renders the result.
//
// A guide is an ordered list of steps, each with at most one screenshot. Every
// screenshot may carry render hints (a focus center, a zoom scale and a safe
// crop rectangle) and a radar point marking the element the step interacts
// with. The pipeline picks the strongest signal per step, borrows a nearby
// click point when a click-like step has none, and falls back to a gentle center
// zoom otherwise.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		guidefocus "github.com/menta2k/guide-focus"
//		"github.com/menta2k/guide-focus/pkg/types"
//	)
//
//	func main() {
//		pipeline, err := guidefocus.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		var guide types.Guide // decoded from JSON
//		result := pipeline.DeriveGuide(guide, types.Size{Width: 1280, Height: 720})
//		for _, step := range result.Steps {
//			fmt.Printf("%s: %s zoom %.2f\n", step.StepID, step.FocusSource, step.Transform.ZoomScale)
//		}
//	}
//
// The package consists of these components:
//
// 1. Step focus (pkg/stepfocus): resolves render hints and radar per step
// 2. Focus (pkg/focus): turns hints into a crop, zoom and transform origin
// 3. Canvas (pkg/canvas): turns a focus result into pan/zoom for a viewer
// 4. Detection (pkg/detection, pkg/vision): locates radar points with a vision model or saliency
// 5. Cropper and processing (pkg/cropper, pkg/processing): load, render and save screenshots
package guidefocus

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/menta2k/guide-focus/pkg/canvas"
	"github.com/menta2k/guide-focus/pkg/client"
	"github.com/menta2k/guide-focus/pkg/cropper"
	"github.com/menta2k/guide-focus/pkg/detection"
	"github.com/menta2k/guide-focus/pkg/focus"
	"github.com/menta2k/guide-focus/pkg/processing"
	"github.com/menta2k/guide-focus/pkg/stepfocus"
	"github.com/menta2k/guide-focus/pkg/types"
	"github.com/menta2k/guide-focus/pkg/vision"
)

// Version of the guide focus library
const Version = "1.0.0"

// Options configures a Pipeline
type Options struct {
	Derivation stepfocus.Config
	Crop       cropper.CropConfig
	Saliency   vision.DetectionConfig
	// UseSaliency enables the model-free radar locator
	UseSaliency bool
	// VisionClient is optional; without it radar detection uses saliency only
	VisionClient client.VisionClient
	Model        string
	SendFormat   string
	SendMaxDim   int
	SendQuality  int
	MinScale     float64
	MaxScale     float64
	CacheSize    int
}

// DefaultOptions returns the options used by New
func DefaultOptions() Options {
	return Options{
		Derivation:  stepfocus.DefaultConfig(),
		Crop:        cropper.DefaultCropConfig(),
		UseSaliency: true,
		SendFormat:  "jpg",
		SendMaxDim:  1280,
		SendQuality: 85,
		MinScale:    1,
		MaxScale:    4,
		CacheSize:   64,
	}
}

// Pipeline provides a high-level interface over focus derivation, rendering and detection
type Pipeline struct {
	opts      Options
	deriver   *stepfocus.Deriver
	processor *processing.Processor
	cropper   *cropper.FocusCropper
	saliency  *vision.SaliencyLocator
	detector  *detection.Detector
	cache     *lru.Cache[string, image.Image]
}

// New creates a Pipeline with default options
func New() (*Pipeline, error) {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a Pipeline with custom options
func NewWithOptions(opts Options) (*Pipeline, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1
	}
	cache, err := lru.New[string, image.Image](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create screenshot cache: %w", err)
	}

	p := &Pipeline{
		opts:      opts,
		deriver:   stepfocus.NewWithConfig(opts.Derivation),
		processor: processing.NewProcessor(),
		cropper:   cropper.NewWithConfig(opts.Crop),
		cache:     cache,
	}
	if opts.UseSaliency {
		if opts.Saliency == (vision.DetectionConfig{}) {
			p.saliency = vision.New()
		} else {
			p.saliency = vision.NewWithConfig(opts.Saliency)
		}
	}
	if opts.VisionClient != nil {
		p.detector = detection.NewDetector(opts.VisionClient)
	}
	return p, nil
}

// StepResult is the resolved focus of one step
type StepResult struct {
	StepID            string             `json:"step_id"`
	Image             types.StepImage    `json:"image"`
	FocusSource       stepfocus.Source   `json:"focus_source"`
	ClampedFromStepID string             `json:"clamped_from_step_id,omitempty"`
	RenderHints       *types.RenderHints `json:"render_hints"`
	Radar             *types.RadarPoint  `json:"radar,omitempty"`
	ShowRadar         bool               `json:"show_radar"`
	Transform         focus.Result       `json:"transform"`
	Canvas            *canvas.Transform  `json:"canvas,omitempty"`
}

// GuideResult is the resolved focus of a guide, in step order
type GuideResult struct {
	GuideID string       `json:"guide_id,omitempty"`
	Steps   []StepResult `json:"steps"`
}

// Deriver returns the step focus deriver in use
func (p *Pipeline) Deriver() *stepfocus.Deriver {
	return p.deriver
}

// DeriveGuide resolves the focus of every step with a screenshot and computes its
// transform for viewport. With a valid viewport the result also carries canvas
// pan/zoom for a screenshot fitted inside the viewport.
func (p *Pipeline) DeriveGuide(guide types.Guide, viewport types.Size) GuideResult {
	derived := p.deriver.Derive(guide.Steps, guide.StepImages)

	result := GuideResult{GuideID: guide.ID, Steps: make([]StepResult, 0, len(derived))}
	for _, step := range guide.Steps {
		d, ok := derived[step.ID]
		if !ok {
			continue
		}
		transform := p.TransformStep(d.Image, viewport)

		sr := StepResult{
			StepID:            step.ID,
			Image:             d.Image,
			FocusSource:       d.FocusSource,
			ClampedFromStepID: d.ClampedFromStepID,
			RenderHints:       d.RenderHints,
			Radar:             d.Radar,
			ShowRadar:         p.deriver.ShouldDisplayRadar(step, d.Radar),
			Transform:         transform,
		}
		if viewport.Valid() {
			ct := p.CanvasStep(transform, d.Image.Dimensions(), viewport)
			sr.Canvas = &ct
		}
		result.Steps = append(result.Steps, sr)
	}
	return result
}

// TransformStep computes the focus transform of a step image from its own hints and radar
func (p *Pipeline) TransformStep(img types.StepImage, viewport types.Size) focus.Result {
	return focus.ComputeTransformV1(img.Dimensions(), viewport, img.RenderHints, img.Radar)
}

// CanvasStep computes viewer pan/zoom for a screenshot of size imageSize drawn
// fitted inside viewport.
func (p *Pipeline) CanvasStep(transform focus.Result, imageSize, viewport types.Size) canvas.Transform {
	rendered := FitInside(imageSize, viewport)
	return canvas.ComputeFocusTransform(canvas.Params{
		FocusTransform: transform,
		ViewportWidth:  viewport.Width,
		ViewportHeight: viewport.Height,
		ImageWidth:     rendered.Width,
		ImageHeight:    rendered.Height,
		MinScale:       p.opts.MinScale,
		MaxScale:       p.opts.MaxScale,
	})
}

// FitInside returns the largest size with the aspect ratio of size that fits in bounds
func FitInside(size, bounds types.Size) types.Size {
	if !size.Valid() || !bounds.Valid() {
		return bounds
	}
	scale := math.Min(bounds.Width/size.Width, bounds.Height/size.Height)
	return types.Size{Width: size.Width * scale, Height: size.Height * scale}
}

// LoadScreenshot loads the named variant of a step image, reusing recently loaded screenshots
func (p *Pipeline) LoadScreenshot(ctx context.Context, img types.StepImage, variant string) (image.Image, error) {
	source := img.SourceURL(variant)
	if source == "" {
		return nil, fmt.Errorf("step %s has no screenshot URL", img.StepID)
	}
	if cached, ok := p.cache.Get(source); ok {
		return cached, nil
	}

	decoded, err := p.processor.LoadImageSmart(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load screenshot for step %s: %w", img.StepID, err)
	}
	p.cache.Add(source, decoded)
	return decoded, nil
}

// RenderStep renders the focus crop of a step at viewport size, drawing the radar
// when it should be shown.
func (p *Pipeline) RenderStep(ctx context.Context, step types.GuideStep, img types.StepImage, viewport types.Size) (cropper.CropResult, error) {
	decoded, err := p.LoadScreenshot(ctx, img, types.VariantFull)
	if err != nil {
		return cropper.CropResult{}, err
	}

	transform := p.TransformStep(img, viewport)
	show := p.deriver.ShouldDisplayRadar(step, img.Radar)
	return p.cropper.Render(decoded, img.Dimensions(), transform, viewport, show)
}

// DebugOverlay draws the step's focus crop, origin and radar over its full screenshot
func (p *Pipeline) DebugOverlay(ctx context.Context, step StepResult) (image.Image, error) {
	decoded, err := p.LoadScreenshot(ctx, step.Image, types.VariantFull)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("%s %s zoom %.2f", step.StepID, step.FocusSource, step.Transform.ZoomScale)
	if step.ClampedFromStepID != "" {
		label += " from " + step.ClampedFromStepID
	}
	return p.processor.CreateDebugOverlay(decoded, step.Image.Dimensions(), step.Transform, step.Radar, label), nil
}

// DetectRadar locates the element a step interacts with. The vision model is
// consulted first when configured; when it has no answer the saliency locator is
// tried. It returns nil when neither produced a point.
func (p *Pipeline) DetectRadar(ctx context.Context, step types.GuideStep, img types.StepImage) (*types.RadarPoint, error) {
	if p.detector == nil && p.saliency == nil {
		return nil, nil
	}

	decoded, err := p.LoadScreenshot(ctx, img, types.VariantFull)
	if err != nil {
		return nil, err
	}
	size := img.Dimensions()

	var fallback *types.RadarPoint
	if p.detector != nil {
		imgB64, err := p.processor.PrepareImageForModel(decoded, p.opts.SendFormat, p.opts.SendMaxDim, p.opts.SendQuality)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare screenshot for model: %w", err)
		}
		radar, err := p.detector.LocateRadar(ctx, p.opts.Model, imgB64, step, size)
		if err != nil {
			return nil, fmt.Errorf("failed to locate radar for step %s: %w", step.ID, err)
		}
		if !strings.HasPrefix(radar.ReasonCode, detection.ReasonDefaultCenterPrefix) {
			return radar, nil
		}
		fallback = radar
	}

	if p.saliency != nil {
		if radar := p.saliency.LocateRadar(decoded, size); radar != nil {
			return radar, nil
		}
	}
	return fallback, nil
}

// FillMissingRadar returns a copy of guide in which every step image without a
// valid radar and without render hints carries a detected radar. It reports how
// many radar points were added.
func (p *Pipeline) FillMissingRadar(ctx context.Context, guide types.Guide) (types.Guide, int, error) {
	out := guide
	out.StepImages = make([]types.StepImage, len(guide.StepImages))

	steps := make(map[string]types.GuideStep, len(guide.Steps))
	for _, step := range guide.Steps {
		steps[step.ID] = step
	}

	added := 0
	for i, img := range guide.StepImages {
		out.StepImages[i] = img.Clone()
		step, ok := steps[img.StepID]
		if !ok || img.Radar.Valid() || img.RenderHints != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return types.Guide{}, added, err
		}

		radar, err := p.DetectRadar(ctx, step, img)
		if err != nil {
			return types.Guide{}, added, err
		}
		if radar != nil {
			out.StepImages[i].Radar = radar
			added++
		}
	}
	return out, added, nil
}

// SaveImage saves a rendered image in the given format
func (p *Pipeline) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	return p.processor.SaveImage(img, path, format, quality, lossless)
}
