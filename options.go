package guidefocus

import (
	"fmt"

	"github.com/menta2k/guide-focus/internal/config"
	"github.com/menta2k/guide-focus/pkg/llamacpp"
	"github.com/menta2k/guide-focus/pkg/ollama"
)

// NewFromConfig creates a Pipeline from the application configuration, connecting
// the configured detector backend.
func NewFromConfig(cfg *config.Config) (*Pipeline, error) {
	opts := DefaultOptions()
	opts.Derivation = cfg.Derivation
	opts.Model = cfg.Detector.Model
	opts.SendFormat = cfg.Detector.SendFormat
	opts.SendMaxDim = cfg.Detector.SendMaxDim
	opts.SendQuality = cfg.Detector.SendQuality
	opts.MinScale = cfg.Focus.MinScale
	opts.MaxScale = cfg.Focus.MaxScale
	opts.CacheSize = cfg.Server.CacheSize

	switch cfg.Detector.Backend {
	case "ollama":
		c, err := ollama.NewClient(cfg.Detector.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		opts.VisionClient = c
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.Detector.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		opts.VisionClient = c
	case "none":
		opts.UseSaliency = false
	}

	return NewWithOptions(opts)
}
