package client

import (
	"context"

	"github.com/menta2k/guide-focus/pkg/types"
)

// VisionClient is a vision model backend able to locate UI targets in a screenshot
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	LocateTarget(ctx context.Context, model, prompt, imgB64 string) (*types.TargetAnalysis, error)
}
