// Package modeljson turns loosely formatted vision model answers into target analyses.
package modeljson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/guide-focus/pkg/types"
)

// Fallback reasons recorded on TargetAnalysis.Fallback
const (
	FallbackNonJSON    = "non_json"
	FallbackParseError = "parse_error"
	FallbackNoJSON     = "no_json"
	FallbackEmpty      = "empty"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseTargetAnalysis parses the model answer. It never fails: unusable answers
// come back as a centered low-confidence analysis with Fallback set.
func ParseTargetAnalysis(raw string) *types.TargetAnalysis {
	raw = Sanitize(raw)

	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return fallback(FallbackNonJSON, "Model returned non-JSON response")
	}

	var result types.TargetAnalysis
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return fallback(FallbackNoJSON, "No valid JSON found in response")
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
			return fallback(FallbackParseError, "Failed to parse model response")
		}
	}

	if result.Target.Label == "" && result.Target.Confidence == 0 &&
		result.Target.Cx == 0 && result.Target.Cy == 0 && result.Target.Box.W == 0 && result.Target.Box.H == 0 {
		return fallback(FallbackEmpty, "Model returned an empty target")
	}

	return &result
}

// Sanitize removes code fences, comments, and trailing commas, keeping the outermost object
func Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

func fallback(reason, description string) *types.TargetAnalysis {
	return &types.TargetAnalysis{
		Target: types.Target{
			Label:      "none",
			Confidence: 0.1,
			Box:        types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			Cx:         0.5,
			Cy:         0.5,
		},
		Description: description,
		Fallback:    reason,
	}
}
