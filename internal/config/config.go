package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/menta2k/guide-focus/pkg/stepfocus"
	"github.com/menta2k/guide-focus/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Focus      FocusConfig      `json:"focus"`
	Derivation stepfocus.Config `json:"derivation"`
	Detector   DetectorConfig   `json:"detector"`
	Render     RenderConfig     `json:"render"`
	Server     ServerConfig     `json:"server"`
}

// FocusConfig holds viewport and canvas defaults
type FocusConfig struct {
	ViewportWidth  float64 `json:"viewport_width"`
	ViewportHeight float64 `json:"viewport_height"`
	MinScale       float64 `json:"min_scale"`
	MaxScale       float64 `json:"max_scale"`
}

// DetectorConfig holds configuration for radar detection
type DetectorConfig struct {
	Backend     string `json:"backend"` // ollama, llamacpp, saliency or none
	Model       string `json:"model"`
	URL         string `json:"url"`
	SendFormat  string `json:"send_format"`
	SendMaxDim  int    `json:"send_max_dim"`
	SendQuality int    `json:"send_quality"`
}

// RenderConfig holds configuration for crop and overlay output
type RenderConfig struct {
	OutputDir    string `json:"output_dir"`
	Format       string `json:"format"`
	Quality      int    `json:"quality"`
	Lossless     bool   `json:"lossless"`
	DebugOverlay bool   `json:"debug_overlay"`
}

// ServerConfig holds configuration for the HTTP focus service
type ServerConfig struct {
	Port      string `json:"port"`
	Mode      string `json:"mode"`
	CacheSize int    `json:"cache_size"`
}

// Environment overrides
const (
	EnvPort            = "GUIDE_FOCUS_PORT"
	EnvMode            = "GUIDE_FOCUS_MODE"
	EnvCacheSize       = "GUIDE_FOCUS_CACHE_SIZE"
	EnvDetectorBackend = "GUIDE_FOCUS_DETECTOR_BACKEND"
	EnvDetectorURL     = "GUIDE_FOCUS_DETECTOR_URL"
	EnvDetectorModel   = "GUIDE_FOCUS_DETECTOR_MODEL"
	EnvOutputDir       = "GUIDE_FOCUS_OUTPUT_DIR"
)

var detectorBackends = map[string]bool{
	"ollama":   true,
	"llamacpp": true,
	"saliency": true,
	"none":     true,
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Focus: FocusConfig{
			ViewportWidth:  1280,
			ViewportHeight: 720,
			MinScale:       1,
			MaxScale:       4,
		},
		Derivation: stepfocus.DefaultConfig(),
		Detector: DetectorConfig{
			Backend:     "saliency",
			Model:       "qwen2.5vl:7b",
			URL:         "http://localhost:11434",
			SendFormat:  "jpg",
			SendMaxDim:  1280,
			SendQuality: 85,
		},
		Render: RenderConfig{
			OutputDir: "./output",
			Format:    "jpg",
			Quality:   90,
		},
		Server: ServerConfig{
			Port:      ":8080",
			Mode:      "release",
			CacheSize: 64,
		},
	}
}

// Load builds the effective configuration: defaults, then the JSON file when
// filename is not empty, then .env and process environment overrides.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		loaded, err := LoadFromFile(filename)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	_ = godotenv.Load()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON file. Missing keys keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides fields from GUIDE_FOCUS_* environment variables
func (c *Config) ApplyEnv() error {
	if port := strings.TrimSpace(os.Getenv(EnvPort)); port != "" {
		if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
			port = ":" + port
		}
		c.Server.Port = port
	}
	if mode := strings.TrimSpace(os.Getenv(EnvMode)); mode != "" {
		c.Server.Mode = mode
	}
	if raw := strings.TrimSpace(os.Getenv(EnvCacheSize)); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvCacheSize, err)
		}
		c.Server.CacheSize = size
	}
	c.Detector.Backend = firstNonEmpty(os.Getenv(EnvDetectorBackend), c.Detector.Backend)
	c.Detector.URL = firstNonEmpty(os.Getenv(EnvDetectorURL), c.Detector.URL)
	c.Detector.Model = firstNonEmpty(os.Getenv(EnvDetectorModel), c.Detector.Model)
	c.Render.OutputDir = firstNonEmpty(os.Getenv(EnvOutputDir), c.Render.OutputDir)
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Focus.ViewportWidth <= 0 || c.Focus.ViewportHeight <= 0 {
		return fmt.Errorf("focus viewport must be positive")
	}
	if c.Focus.MinScale <= 0 || c.Focus.MaxScale < c.Focus.MinScale {
		return fmt.Errorf("focus.min_scale must be positive and not above focus.max_scale")
	}

	d := c.Derivation
	for name, v := range map[string]float64{
		"click_strong_confidence":  d.ClickStrongConfidence,
		"default_radar_confidence": d.DefaultRadarConfidence,
		"borrow_confidence_factor": d.BorrowConfidenceFactor,
		"borrow_confidence_floor":  d.BorrowConfidenceFloor,
		"center_confidence":        d.CenterConfidence,
		"min_display_confidence":   d.MinDisplayConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("derivation.%s must be between 0 and 1", name)
		}
	}
	for name, v := range map[string]float64{
		"click_strong_zoom":     d.ClickStrongZoom,
		"non_click_strong_zoom": d.NonClickStrongZoom,
		"click_radar_zoom":      d.ClickRadarZoom,
		"non_click_radar_zoom":  d.NonClickRadarZoom,
		"center_zoom":           d.CenterZoom,
	} {
		if v < 1 {
			return fmt.Errorf("derivation.%s must be at least 1", name)
		}
	}

	if !detectorBackends[c.Detector.Backend] {
		return fmt.Errorf("detector.backend must be one of ollama, llamacpp, saliency, none (got %q)", c.Detector.Backend)
	}
	if (c.Detector.Backend == "ollama" || c.Detector.Backend == "llamacpp") && c.Detector.URL == "" {
		return fmt.Errorf("detector.url is required for the %s backend", c.Detector.Backend)
	}
	if c.Detector.SendQuality < 1 || c.Detector.SendQuality > 100 {
		return fmt.Errorf("detector.send_quality must be between 1 and 100")
	}

	switch strings.ToLower(c.Render.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("render.format must be jpg, png or webp")
	}
	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		return fmt.Errorf("render.quality must be between 1 and 100")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server.port cannot be empty")
	}
	if c.Server.CacheSize < 1 {
		return fmt.Errorf("server.cache_size must be positive")
	}

	return nil
}

// Viewport returns the configured default viewport
func (c *Config) Viewport() types.Size {
	return types.Size{Width: c.Focus.ViewportWidth, Height: c.Focus.ViewportHeight}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "guide-focus", "config.json")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
