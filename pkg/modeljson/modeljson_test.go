package modeljson

import "testing"

func TestParseTargetAnalysis(t *testing.T) {
	raw := "```json\n{\n  // the save button\n  \"target\": {\"label\": \"Save\", \"confidence\": 0.82, \"box\": {\"x\": 0.7, \"y\": 0.1, \"w\": 0.1, \"h\": 0.05}, \"cx\": 0.75, \"cy\": 0.125,},\n  \"description\": \"Save button in the toolbar\",\n}\n```"

	result := ParseTargetAnalysis(raw)
	if result.Fallback != "" {
		t.Fatalf("expected parsed result, got fallback %q", result.Fallback)
	}
	if result.Target.Label != "Save" || result.Target.Confidence != 0.82 {
		t.Errorf("unexpected target %+v", result.Target)
	}
	if result.Target.Cx != 0.75 || result.Target.Cy != 0.125 {
		t.Errorf("unexpected center (%f,%f)", result.Target.Cx, result.Target.Cy)
	}
}

func TestParseTargetAnalysisFallbacks(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"I can see a settings dialog.", FallbackNonJSON},
		{"{\"target\": {\"label\": \"x\", \"confidence\": \"high\"}}", FallbackParseError},
		{"{}", FallbackEmpty},
	}

	for _, tt := range tests {
		result := ParseTargetAnalysis(tt.raw)
		if result.Fallback != tt.want {
			t.Errorf("%q: expected fallback %q, got %q", tt.raw, tt.want, result.Fallback)
		}
		if result.Target.Cx != 0.5 || result.Target.Cy != 0.5 {
			t.Errorf("%q: expected centered fallback, got (%f,%f)", tt.raw, result.Target.Cx, result.Target.Cy)
		}
	}
}

func TestSanitize(t *testing.T) {
	got := Sanitize("noise /* block */ {\"a\": [1, 2,], } trailing")
	if got != "{\"a\": [1, 2] }" {
		t.Errorf("unexpected sanitized output %q", got)
	}
}
