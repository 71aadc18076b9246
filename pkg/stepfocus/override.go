package stepfocus

import (
	"encoding/json"
	"math"

	"github.com/menta2k/guide-focus/pkg/types"
)

// ManualOverride is an author-supplied focus and/or cursor position in unit coordinates
type ManualOverride struct {
	FocusCenter *types.UnitPoint
	ZoomScale   float64
	Cursor      *types.UnitPoint
}

// unitPointJSON keeps track of which coordinates were present in the override
type unitPointJSON struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (u *unitPointJSON) point() (types.UnitPoint, bool) {
	if u == nil || u.X == nil || u.Y == nil {
		return types.UnitPoint{}, false
	}
	p := types.UnitPoint{X: *u.X, Y: *u.Y}
	return p, p.Finite()
}

type overridesEnvelope struct {
	V1 *struct {
		Focus *struct {
			CenterUnit *unitPointJSON `json:"center_unit"`
			ZoomScale  *float64       `json:"zoom_scale"`
		} `json:"focus"`
		Cursor *struct {
			PointUnit *unitPointJSON `json:"point_unit"`
		} `json:"cursor"`
	} `json:"v1"`
}

// ParseManualOverride decodes screenshot_overrides.v1. Any malformed part discards the whole override.
func ParseManualOverride(raw json.RawMessage) *ManualOverride {
	if len(raw) == 0 {
		return nil
	}
	var env overridesEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.V1 == nil {
		return nil
	}

	out := &ManualOverride{}
	if f := env.V1.Focus; f != nil {
		center, ok := f.CenterUnit.point()
		if !ok || f.ZoomScale == nil {
			return nil
		}
		zoom := *f.ZoomScale
		if math.IsNaN(zoom) || math.IsInf(zoom, 0) || zoom <= 0 {
			return nil
		}
		out.FocusCenter = &center
		out.ZoomScale = math.Max(1, zoom)
	}
	if c := env.V1.Cursor; c != nil {
		point, ok := c.PointUnit.point()
		if !ok {
			return nil
		}
		out.Cursor = &point
	}

	if out.FocusCenter == nil && out.Cursor == nil {
		return nil
	}
	return out
}
