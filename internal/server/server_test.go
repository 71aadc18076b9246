package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	guidefocus "github.com/menta2k/guide-focus"
	"github.com/menta2k/guide-focus/internal/config"
	"github.com/menta2k/guide-focus/pkg/canvas"
	"github.com/menta2k/guide-focus/pkg/focus"
	"github.com/menta2k/guide-focus/pkg/stepfocus"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Detector.Backend = "none"
	pipeline, err := guidefocus.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	return SetupRouter(NewHandler(pipeline, cfg))
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["version"] != guidefocus.Version {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/focus/canvas", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing CORS header")
	}
}

const deriveBody = `{
	"id": "g1",
	"viewport": {"width": 1000, "height": 800},
	"steps": [
		{"id": "s1", "kind": "click_target"},
		{"id": "s2", "kind": "click_target"}
	],
	"step_images": [
		{"step_id": "s1", "width": 1000, "height": 800, "capture_t_s": 1,
		 "radar": {"x": 700, "y": 100, "coordinate_space": "step_image_pixels_v1", "confidence": 0.9}},
		{"step_id": "s2", "width": 1000, "height": 800, "capture_t_s": 2}
	]
}`

func TestDeriveGuide(t *testing.T) {
	r := newTestRouter(t)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/guides/derive", deriveBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.Code != 0 {
		t.Fatalf("expected code 0, got %d", env.Code)
	}

	var resp DeriveResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if resp.GuideID != "g1" {
		t.Errorf("expected guide g1, got %q", resp.GuideID)
	}
	if len(resp.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(resp.Steps))
	}
	if resp.Steps[0].FocusSource != stepfocus.SourceRadar {
		t.Errorf("s1: expected radar, got %s", resp.Steps[0].FocusSource)
	}
	s2 := resp.Steps[1]
	if s2.FocusSource != stepfocus.SourceClampedClick || s2.ClampedFromStepID != "s1" {
		t.Errorf("s2: expected clamped click from s1, got %s from %q", s2.FocusSource, s2.ClampedFromStepID)
	}
	if s2.Canvas == nil {
		t.Error("s2: expected canvas transform for a valid viewport")
	}
	if !s2.Transform.HasFocusCrop {
		t.Error("s2: expected a focus crop")
	}
	if len(resp.StepImages) != 2 || resp.StepImages[1].RenderHints == nil {
		t.Errorf("expected annotated step images, got %+v", resp.StepImages)
	}
	if resp.RadarDetected != 0 {
		t.Errorf("expected no detection, got %d", resp.RadarDetected)
	}
}

func TestDeriveGuideRejectsInvalidBody(t *testing.T) {
	r := newTestRouter(t)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/guides/derive", `{"steps": "nope"}`)
	if w.Code != http.StatusBadRequest || env.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d / %d", w.Code, env.Code)
	}
}

func TestTransform(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name      string
		body      string
		wantCrop  bool
		wantZoom  float64
		wantWidth float64
	}{
		{
			name:      "full image without hints",
			body:      `{"image": {"width": 1000, "height": 800}, "viewport": {"width": 1000, "height": 800}}`,
			wantZoom:  1,
			wantWidth: 1000,
		},
		{
			name:      "degenerate image",
			body:      `{"image": {"width": 0, "height": 800}}`,
			wantZoom:  1,
			wantWidth: 1,
		},
		{
			name: "step image with hints",
			body: `{"viewport": {"width": 1000, "height": 800}, "step_image": {"step_id": "s1", "width": 1000, "height": 800,
				"render_hints": {"algorithm": "a", "source": "radar", "confidence": 0.9, "recommended_zoom_scale": 2.5,
				"focus_center": {"x": 500, "y": 400, "coordinate_space": "step_image_pixels_v1"}}}}`,
			wantCrop: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, http.MethodPost, "/api/v1/focus/transform", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			var result focus.Result
			if err := json.Unmarshal(env.Data, &result); err != nil {
				t.Fatal(err)
			}
			if result.HasFocusCrop != tt.wantCrop {
				t.Errorf("expected hasFocusCrop %v, got %v", tt.wantCrop, result.HasFocusCrop)
			}
			if tt.wantCrop {
				if result.ZoomScale <= 1 {
					t.Errorf("expected zoom above 1, got %v", result.ZoomScale)
				}
				return
			}
			if result.ZoomScale != tt.wantZoom || result.CropRect.Width != tt.wantWidth {
				t.Errorf("expected zoom %v width %v, got %+v", tt.wantZoom, tt.wantWidth, result)
			}
		})
	}
}

func TestCanvas(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		want   canvas.Transform
	}{
		{
			name: "default scale bounds",
			body: `{"focus_transform": {"zoomScale": 2, "transformOriginPercent": {"x": 50, "y": 50}},
				"viewport_width": 1000, "viewport_height": 800, "image_width": 1000, "image_height": 800}`,
			status: http.StatusOK,
			want:   canvas.Transform{Scale: 2, PositionX: -500, PositionY: -400},
		},
		{
			name: "custom max scale",
			body: `{"focus_transform": {"zoomScale": 2, "transformOriginPercent": {"x": 50, "y": 50}},
				"viewport_width": 1000, "viewport_height": 800, "image_width": 1000, "image_height": 800, "max_scale": 1.5}`,
			status: http.StatusOK,
			want:   canvas.Transform{Scale: 1.5, PositionX: -250, PositionY: -200},
		},
		{
			name: "inverted bounds",
			body: `{"focus_transform": {"zoomScale": 2}, "viewport_width": 1000, "viewport_height": 800,
				"image_width": 1000, "image_height": 800, "min_scale": 3, "max_scale": 2}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "missing viewport",
			body:   `{"focus_transform": {"zoomScale": 2}, "image_width": 1000, "image_height": 800}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, http.MethodPost, "/api/v1/focus/canvas", tt.body)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var got canvas.Transform
			if err := json.Unmarshal(env.Data, &got); err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
