package stepfocus

import (
	"strings"

	"github.com/menta2k/guide-focus/pkg/types"
)

// clickKinds maps known step kinds to whether they represent a click or selection.
// Kinds missing from the map are treated as not click-like.
var clickKinds = map[string]bool{
	"click_target": true,
	"select_menu":  true,
	"context_menu": true,
	"drag_drop":    true,
	"multi_select": true,
	"table_action": true,

	"manual":           false,
	"informational":    false,
	"type_into_field":  false,
	"copy_paste":       false,
	"press_shortcut":   false,
	"wait_for_window":  false,
	"wait_for_element": false,
	"verify_state":     false,
	"branch":           false,
	"scroll":           false,
	"file_dialog":      false,
}

// IsStepClickLike reports whether a step is a UI click or selection. The expected
// event type decides first; otherwise the step kind is looked up.
func IsStepClickLike(step types.GuideStep) bool {
	if step.ExpectedEvent != nil {
		switch step.ExpectedEvent.Type {
		case "click":
			return true
		case "keypress", "input", "navigation":
			return false
		}
	}
	return clickKinds[step.Kind]
}

// ShouldDisplayRadar reports whether a radar point should be drawn as a visible dot
func (d *Deriver) ShouldDisplayRadar(step types.GuideStep, radar *types.RadarPoint) bool {
	if !radar.Valid() || !IsStepClickLike(step) {
		return false
	}
	if strings.HasPrefix(radar.ReasonCode, ReasonDefaultCenter) {
		return false
	}
	if radar.Confidence != nil && *radar.Confidence <= d.config.MinDisplayConfidence {
		return false
	}
	return true
}

// ShouldDisplayRadar applies the default thresholds
func ShouldDisplayRadar(step types.GuideStep, radar *types.RadarPoint) bool {
	return defaultDeriver.ShouldDisplayRadar(step, radar)
}
