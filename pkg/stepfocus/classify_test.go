package stepfocus

import (
	"testing"

	"github.com/menta2k/guide-focus/pkg/types"
)

func TestIsStepClickLike(t *testing.T) {
	tests := []struct {
		kind      string
		eventType string
		want      bool
	}{
		{"click_target", "", true},
		{"select_menu", "", true},
		{"context_menu", "", true},
		{"drag_drop", "", true},
		{"multi_select", "", true},
		{"table_action", "", true},
		{"manual", "", false},
		{"informational", "", false},
		{"type_into_field", "", false},
		{"copy_paste", "", false},
		{"press_shortcut", "", false},
		{"wait_for_window", "", false},
		{"wait_for_element", "", false},
		{"verify_state", "", false},
		{"branch", "", false},
		{"scroll", "", false},
		{"file_dialog", "", false},
		{"", "", false},
		{"hover_tooltip", "", false},
		{"manual", "click", true},
		{"click_target", "keypress", false},
		{"click_target", "input", false},
		{"click_target", "navigation", false},
		{"type_into_field", "focus", false},
		{"select_menu", "focus", true},
		{"Click_Target", "", false},
		{" click_target", "", false},
		{"manual", "Click", false},
		{"click_target", " keypress", true},
	}

	for _, tt := range tests {
		step := types.GuideStep{ID: "s", Kind: tt.kind}
		if tt.eventType != "" {
			step.ExpectedEvent = &types.ExpectedEvent{Type: tt.eventType}
		}
		if got := IsStepClickLike(step); got != tt.want {
			t.Errorf("kind=%q event=%q: expected %v, got %v", tt.kind, tt.eventType, tt.want, got)
		}
	}
}

func TestShouldDisplayRadar(t *testing.T) {
	click := types.GuideStep{ID: "s", Kind: "click_target"}
	typing := types.GuideStep{ID: "s", Kind: "type_into_field"}

	tests := []struct {
		name  string
		step  types.GuideStep
		radar *types.RadarPoint
		want  bool
	}{
		{"valid click radar", click, radar(10, 10, 0.8), true},
		{"no confidence", click, &types.RadarPoint{Point: types.Point{X: 10, Y: 10, CoordinateSpace: types.StepImagePixelsV1}}, true},
		{"not click-like", typing, radar(10, 10, 0.8), false},
		{"default center reason", click, &types.RadarPoint{Point: types.Point{X: 10, Y: 10, CoordinateSpace: types.StepImagePixelsV1}, ReasonCode: "default_center_low_signal"}, false},
		{"confidence at threshold", click, radar(10, 10, 0.05), false},
		{"confidence above threshold", click, radar(10, 10, 0.051), true},
		{"wrong coordinate space", click, &types.RadarPoint{Point: types.Point{X: 10, Y: 10}}, false},
		{"absent", click, nil, false},
		{"manual override", click, &types.RadarPoint{Point: types.Point{X: 10, Y: 10, CoordinateSpace: types.StepImagePixelsV1}, ReasonCode: ReasonManualOverride, Confidence: types.Float64(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldDisplayRadar(tt.step, tt.radar); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseManualOverride(t *testing.T) {
	m := ParseManualOverride([]byte(`{"v1":{"focus":{"center_unit":{"x":1.4,"y":-0.2},"zoom_scale":0.5}}}`))
	if m == nil {
		t.Fatal("expected override to parse")
	}
	if m.ZoomScale != 1 {
		t.Errorf("expected zoom raised to 1, got %f", m.ZoomScale)
	}
	p := m.FocusCenter.ToPixels(types.Size{Width: 200, Height: 100})
	if p.X != 200 || p.Y != 0 {
		t.Errorf("expected unit point clamped into the image, got (%f,%f)", p.X, p.Y)
	}
	if m.Cursor != nil {
		t.Error("expected no cursor")
	}

	if ParseManualOverride(nil) != nil {
		t.Error("expected nil for missing override")
	}

	cursor := ParseManualOverride([]byte(`{"v1":{"cursor":{"point_unit":{"x":0,"y":0}}}}`))
	if cursor == nil || cursor.Cursor == nil {
		t.Fatal("expected explicit zero cursor to parse")
	}
	if cursor.Cursor.X != 0 || cursor.Cursor.Y != 0 || cursor.FocusCenter != nil {
		t.Errorf("unexpected cursor override %+v", cursor)
	}

	for _, raw := range []string{
		`{"v1":{"focus":{"center_unit":{},"zoom_scale":2}}}`,
		`{"v1":{"focus":{"center_unit":{"y":0.4},"zoom_scale":2}}}`,
		`{"v1":{"cursor":{"point_unit":{"x":0.8}}}}`,
	} {
		if m := ParseManualOverride([]byte(raw)); m != nil {
			t.Errorf("%s: expected incomplete unit point to discard the override, got %+v", raw, m)
		}
	}
}
