package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	guidefocus "github.com/menta2k/guide-focus"
	"github.com/menta2k/guide-focus/internal/config"
	"github.com/menta2k/guide-focus/pkg/canvas"
	"github.com/menta2k/guide-focus/pkg/focus"
	"github.com/menta2k/guide-focus/pkg/types"
)

// Handler serves the focus API on top of a Pipeline
type Handler struct {
	pipeline *guidefocus.Pipeline
	viewport types.Size
	minScale float64
	maxScale float64
}

// NewHandler creates a handler using cfg for request defaults
func NewHandler(pipeline *guidefocus.Pipeline, cfg *config.Config) *Handler {
	return &Handler{
		pipeline: pipeline,
		viewport: cfg.Viewport(),
		minScale: cfg.Focus.MinScale,
		maxScale: cfg.Focus.MaxScale,
	}
}

// DeriveRequest is a guide plus rendering options
type DeriveRequest struct {
	types.Guide
	Viewport *types.Size `json:"viewport"`
	// Detect fills missing radar points before deriving
	Detect bool `json:"detect"`
}

// DeriveResponse carries the per-step focus and the annotated step images
type DeriveResponse struct {
	guidefocus.GuideResult
	StepImages    []types.StepImage `json:"step_images"`
	RadarDetected int               `json:"radar_detected,omitempty"`
}

// TransformRequest computes a focus transform either from a step image or from
// explicit dimensions, hints and radar.
type TransformRequest struct {
	StepImage   *types.StepImage   `json:"step_image"`
	Image       types.Size         `json:"image"`
	Viewport    types.Size         `json:"viewport"`
	RenderHints *types.RenderHints `json:"render_hints"`
	Radar       *types.RadarPoint  `json:"radar"`
}

// CanvasRequest describes the rendered viewer for a focus transform
type CanvasRequest struct {
	FocusTransform focus.Result `json:"focus_transform"`
	ViewportWidth  float64      `json:"viewport_width" binding:"gt=0"`
	ViewportHeight float64      `json:"viewport_height" binding:"gt=0"`
	ImageWidth     float64      `json:"image_width" binding:"gt=0"`
	ImageHeight    float64      `json:"image_height" binding:"gt=0"`
	MinScale       *float64     `json:"min_scale"`
	MaxScale       *float64     `json:"max_scale"`
}

// Health reports liveness
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": guidefocus.Version,
	})
}

// DeriveGuide resolves the focus of every step of a guide
// POST /api/v1/guides/derive
func (h *Handler) DeriveGuide(c *gin.Context) {
	var req DeriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	viewport := h.viewport
	if req.Viewport != nil {
		viewport = *req.Viewport
	}

	guide := req.Guide
	detected := 0
	if req.Detect {
		filled, added, err := h.pipeline.FillMissingRadar(c.Request.Context(), guide)
		if err != nil {
			_ = c.Error(err)
			InternalError(c, "radar detection failed")
			return
		}
		guide, detected = filled, added
	}

	result := h.pipeline.DeriveGuide(guide, viewport)
	Success(c, DeriveResponse{
		GuideResult:   result,
		StepImages:    h.pipeline.Deriver().Annotate(guide.Steps, guide.StepImages),
		RadarDetected: detected,
	})
}

// Transform computes a single focus transform
// POST /api/v1/focus/transform
func (h *Handler) Transform(c *gin.Context) {
	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if req.StepImage != nil {
		Success(c, h.pipeline.TransformStep(*req.StepImage, req.Viewport))
		return
	}
	Success(c, focus.ComputeTransformV1(req.Image, req.Viewport, req.RenderHints, req.Radar))
}

// Canvas converts a focus transform into viewer pan/zoom
// POST /api/v1/focus/canvas
func (h *Handler) Canvas(c *gin.Context) {
	var req CanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	minScale, maxScale := h.minScale, h.maxScale
	if req.MinScale != nil {
		minScale = *req.MinScale
	}
	if req.MaxScale != nil {
		maxScale = *req.MaxScale
	}
	if minScale > maxScale {
		BadRequest(c, "min_scale must not exceed max_scale")
		return
	}

	Success(c, canvas.ComputeFocusTransform(canvas.Params{
		FocusTransform: req.FocusTransform,
		ViewportWidth:  req.ViewportWidth,
		ViewportHeight: req.ViewportHeight,
		ImageWidth:     req.ImageWidth,
		ImageHeight:    req.ImageHeight,
		MinScale:       minScale,
		MaxScale:       maxScale,
	}))
}
