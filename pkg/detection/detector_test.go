package detection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/menta2k/guide-focus/pkg/stepfocus"
	"github.com/menta2k/guide-focus/pkg/types"
)

type fakeClient struct {
	result *types.TargetAnalysis
	err    error
	prompt string
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a settings window", f.err
}

func (f *fakeClient) LocateTarget(ctx context.Context, model, prompt, imgB64 string) (*types.TargetAnalysis, error) {
	f.prompt = prompt
	return f.result, f.err
}

var screen = types.Size{Width: 1000, Height: 800}

func TestLocateRadar(t *testing.T) {
	fake := &fakeClient{result: &types.TargetAnalysis{Target: types.Target{
		Label:      "Save",
		Confidence: 0.8,
		Box:        types.Box{X: 0.7, Y: 0.1, W: 0.1, H: 0.05},
		Cx:         0.75,
		Cy:         0.125,
	}}}
	step := types.GuideStep{ID: "s", Kind: "click_target", Title: "Click Save"}

	radar, err := NewDetector(fake).LocateRadar(context.Background(), "m", "", step, screen)
	if err != nil {
		t.Fatalf("LocateRadar failed: %v", err)
	}
	if radar.X != 750 || radar.Y != 100 {
		t.Errorf("expected radar at (750,100), got (%f,%f)", radar.X, radar.Y)
	}
	if radar.ReasonCode != ReasonVisionModel || radar.ConfidenceOr(0) != 0.8 {
		t.Errorf("unexpected radar %+v", radar)
	}
	if !strings.Contains(fake.prompt, "instruction: Click Save") {
		t.Error("expected step instruction in prompt")
	}
	if !stepfocus.ShouldDisplayRadar(step, radar) {
		t.Error("expected detected radar to be displayable")
	}
}

func TestLocateRadarClampsPointIntoBox(t *testing.T) {
	result := &types.TargetAnalysis{Target: types.Target{
		Label:      "Menu",
		Confidence: 1.7,
		Box:        types.Box{X: 0.25, Y: 0.25, W: 0.25, H: 0.25},
		Cx:         0.9,
		Cy:         0.0,
	}}

	radar := ToRadar(result, screen)
	if radar.X != 500 || radar.Y != 200 {
		t.Errorf("expected radar clamped to box edge (500,200), got (%f,%f)", radar.X, radar.Y)
	}
	if radar.ConfidenceOr(0) != 1 {
		t.Errorf("expected confidence clamped to 1, got %f", radar.ConfidenceOr(0))
	}
}

func TestFallbackRadarIsHidden(t *testing.T) {
	step := types.GuideStep{ID: "s", Kind: "click_target"}
	results := []*types.TargetAnalysis{
		nil,
		{Fallback: "parse_error", Target: types.Target{Cx: 0.5, Cy: 0.5}},
		{Target: types.Target{Label: "none", Cx: 0.5, Cy: 0.5}},
	}

	for _, r := range results {
		radar := ToRadar(r, screen)
		if !strings.HasPrefix(radar.ReasonCode, stepfocus.ReasonDefaultCenter) {
			t.Errorf("expected default_center reason, got %q", radar.ReasonCode)
		}
		if radar.X != 500 || radar.Y != 400 {
			t.Errorf("expected centered radar, got (%f,%f)", radar.X, radar.Y)
		}
		if stepfocus.ShouldDisplayRadar(step, radar) {
			t.Error("fallback radar must not be displayed")
		}
	}
}

func TestLocateRadarErrors(t *testing.T) {
	d := NewDetector(&fakeClient{err: errors.New("backend down")})
	if _, err := d.LocateRadar(context.Background(), "m", "", types.GuideStep{}, screen); err == nil {
		t.Error("expected client error to propagate")
	}
	if _, err := d.LocateRadar(context.Background(), "m", "", types.GuideStep{}, types.Size{}); err == nil {
		t.Error("expected invalid size error")
	}
}
