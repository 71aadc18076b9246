package canvas

import (
	"math"
	"testing"

	"github.com/menta2k/guide-focus/pkg/focus"
	"github.com/menta2k/guide-focus/pkg/types"
)

func TestClampScale(t *testing.T) {
	tests := []struct {
		value, lo, hi, want float64
	}{
		{0.4, 1, 4, 1},
		{8.5, 1, 4, 4},
		{2.2, 1, 4, 2.2},
		{1, 1, 4, 1},
		{4, 1, 4, 4},
		{math.NaN(), 1, 4, 1},
	}

	for _, tt := range tests {
		if got := ClampScale(tt.value, tt.lo, tt.hi); got != tt.want {
			t.Errorf("ClampScale(%v, %v, %v) = %v, want %v", tt.value, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestComputeFocusTransformCentersFocus(t *testing.T) {
	result := ComputeFocusTransform(Params{
		FocusTransform: focus.Result{
			ZoomScale:              2,
			TransformOriginPercent: focus.Percent{X: 25, Y: 60},
		},
		ViewportWidth:  1000,
		ViewportHeight: 700,
		ImageWidth:     1200,
		ImageHeight:    800,
		MinScale:       1,
		MaxScale:       4,
	})

	if result.Scale != 2 {
		t.Errorf("expected scale 2, got %f", result.Scale)
	}
	if math.Abs(result.PositionX-(-100)) > 1e-9 {
		t.Errorf("expected positionX -100, got %f", result.PositionX)
	}
	if math.Abs(result.PositionY-(-610)) > 1e-9 {
		t.Errorf("expected positionY -610, got %f", result.PositionY)
	}
}

func TestComputeFocusTransformClampsScale(t *testing.T) {
	result := ComputeFocusTransform(Params{
		FocusTransform: focus.Result{
			ZoomScale:              9,
			TransformOriginPercent: focus.Percent{X: 50, Y: 50},
		},
		ViewportWidth:  800,
		ViewportHeight: 600,
		ImageWidth:     800,
		ImageHeight:    600,
		MinScale:       1,
		MaxScale:       3,
	})

	if result.Scale != 3 {
		t.Errorf("expected clamped scale 3, got %f", result.Scale)
	}
	// focus (400,300) * 3 = (1200,900); centered at (400,300)
	if result.PositionX != -800 || result.PositionY != -600 {
		t.Errorf("expected position (-800,-600), got (%f,%f)", result.PositionX, result.PositionY)
	}
}

func TestComputeFocusTransformFromFocusResult(t *testing.T) {
	image := types.Size{Width: 1000, Height: 800}
	hints := &types.RenderHints{
		FocusCenter:          &types.Point{X: 500, Y: 400, CoordinateSpace: types.StepImagePixelsV1},
		RecommendedZoomScale: 2,
	}
	ft := focus.ComputeTransformV1(image, image, hints, nil)

	// rendered at half resolution
	result := ComputeFocusTransform(Params{
		FocusTransform: ft,
		ViewportWidth:  500,
		ViewportHeight: 400,
		ImageWidth:     500,
		ImageHeight:    400,
		MinScale:       1,
		MaxScale:       4,
	})

	focusX := 250 * result.Scale
	if math.Abs(result.PositionX-(250-focusX)) > 1e-9 {
		t.Errorf("expected positionX %f, got %f", 250-focusX, result.PositionX)
	}
	if result.Scale != ft.ZoomScale {
		t.Errorf("expected scale %f, got %f", ft.ZoomScale, result.Scale)
	}
}
