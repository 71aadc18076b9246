package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	guidefocus "github.com/menta2k/guide-focus"
	"github.com/menta2k/guide-focus/internal/config"
	"github.com/menta2k/guide-focus/internal/utils"
	"github.com/menta2k/guide-focus/pkg/analyzer"
	"github.com/menta2k/guide-focus/pkg/types"
)

func main() {
	var configPath, in, dir, kind, outDir string
	var backend, url, model string
	var ext string
	var quality int
	var lossless bool
	var vw, vh float64
	var detect, render, debug, previews bool

	flag.StringVar(&configPath, "config", "", "JSON config file (defaults are used when empty)")
	flag.StringVar(&in, "in", "", "guide JSON with steps and step_images")
	flag.StringVar(&dir, "dir", "", "directory of screenshots, one step per file in lexical order")
	flag.StringVar(&kind, "kind", "click_target", "step kind for screenshots read with -dir")
	flag.StringVar(&outDir, "out", "", "output directory (default from config)")

	flag.StringVar(&backend, "backend", "", "radar detector: ollama|llamacpp|saliency|none (default from config)")
	flag.StringVar(&url, "url", "", "detector server URL")
	flag.StringVar(&model, "model", "", "detector model name")

	flag.StringVar(&ext, "ext", "", "output format for crops: jpg|png|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP output quality for crops (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP output lossless mode for crops")

	flag.Float64Var(&vw, "vw", 0, "viewport width (default from config)")
	flag.Float64Var(&vh, "vh", 0, "viewport height (default from config)")

	flag.BoolVar(&detect, "detect", false, "detect radar points for screenshots without focus data")
	flag.BoolVar(&render, "render", false, "write focus crops for every step")
	flag.BoolVar(&debug, "debug", false, "write debug overlay images")
	flag.BoolVar(&previews, "previews", false, "write preview variants for screenshots read with -dir")

	flag.Parse()
	if (in == "") == (dir == "") {
		log.Fatalf("usage: %s (-in guide.json | -dir screenshots/) [-detect] [-render] [-debug] [-backend ollama|llamacpp|saliency|none] [-out outdir] [-vw 1280 -vh 720]", filepath.Base(os.Args[0]))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg, outDir, backend, url, model, ext, quality, lossless, vw, vh, debug)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := utils.EnsureDir(cfg.Render.OutputDir); err != nil {
		log.Fatal(err)
	}

	pipeline, err := guidefocus.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	ctx := context.Background()

	var guide types.Guide
	if in != "" {
		guide, err = readGuide(in)
	} else {
		guide, err = guideFromDir(ctx, pipeline, dir, kind, cfg.Render.OutputDir, previews)
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("guide %q: %d steps, %d screenshots", guide.ID, len(guide.Steps), len(guide.StepImages))

	if detect {
		filled, added, err := pipeline.FillMissingRadar(ctx, guide)
		if err != nil {
			log.Fatalf("radar detection failed: %v", err)
		}
		log.Printf("detected %d radar points with %s", added, cfg.Detector.Backend)
		guide = filled
	}

	viewport := cfg.Viewport()
	result := pipeline.DeriveGuide(guide, viewport)
	for _, step := range result.Steps {
		from := ""
		if step.ClampedFromStepID != "" {
			from = " from " + step.ClampedFromStepID
		}
		log.Printf("%s: %s%s zoom=%.3f crop=%.0fx%.0f@%.0f,%.0f radar=%v",
			step.StepID, step.FocusSource, from, step.Transform.ZoomScale,
			step.Transform.CropRect.Width, step.Transform.CropRect.Height,
			step.Transform.CropRect.X, step.Transform.CropRect.Y, step.ShowRadar)
	}

	writeJSON(filepath.Join(cfg.Render.OutputDir, "focus.json"), result)
	annotated := guide
	annotated.StepImages = pipeline.Deriver().Annotate(guide.Steps, guide.StepImages)
	writeJSON(filepath.Join(cfg.Render.OutputDir, "guide_annotated.json"), annotated)

	if !render && !cfg.Render.DebugOverlay {
		return
	}

	steps := make(map[string]types.GuideStep, len(guide.Steps))
	for _, step := range guide.Steps {
		steps[step.ID] = step
	}
	for _, step := range result.Steps {
		if render {
			crop, err := pipeline.RenderStep(ctx, steps[step.StepID], step.Image, viewport)
			if err != nil {
				log.Printf("render %s failed: %v", step.StepID, err)
			} else {
				save(pipeline, crop.Image, utils.OutputPath(cfg.Render.OutputDir, step.StepID, "_focus", cfg.Render.Format), cfg.Render)
			}
		}

		if cfg.Render.DebugOverlay {
			overlay, err := pipeline.DebugOverlay(ctx, step)
			if err != nil {
				log.Printf("debug overlay %s failed: %v", step.StepID, err)
				continue
			}
			dbg := cfg.Render
			dbg.Format = "png"
			save(pipeline, overlay, utils.OutputPath(cfg.Render.OutputDir, step.StepID, "_debug", dbg.Format), dbg)
		}
	}
}

func applyFlags(cfg *config.Config, outDir, backend, url, model, ext string, quality int, lossless bool, vw, vh float64, debug bool) {
	if outDir != "" {
		cfg.Render.OutputDir = outDir
	}
	if backend != "" {
		cfg.Detector.Backend = backend
	}
	if url != "" {
		cfg.Detector.URL = url
	}
	if model != "" {
		cfg.Detector.Model = model
	}
	if ext != "" {
		cfg.Render.Format = strings.ToLower(ext)
	}
	if quality > 0 {
		cfg.Render.Quality = quality
	}
	if lossless {
		cfg.Render.Lossless = true
	}
	if vw > 0 {
		cfg.Focus.ViewportWidth = vw
	}
	if vh > 0 {
		cfg.Focus.ViewportHeight = vh
	}
	if debug {
		cfg.Render.DebugOverlay = true
	}
}

func readGuide(path string) (types.Guide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Guide{}, fmt.Errorf("failed to read guide: %w", err)
	}
	var guide types.Guide
	if err := json.Unmarshal(data, &guide); err != nil {
		return types.Guide{}, fmt.Errorf("failed to parse guide: %w", err)
	}
	return guide, nil
}

// guideFromDir builds a guide with one step per screenshot. Capture times follow
// file order so that clamped clicks pick their neighbours.
func guideFromDir(ctx context.Context, pipeline *guidefocus.Pipeline, dir, kind, outDir string, previews bool) (types.Guide, error) {
	files, err := utils.ListScreenshots(dir)
	if err != nil {
		return types.Guide{}, err
	}
	if len(files) == 0 {
		return types.Guide{}, fmt.Errorf("no screenshots in %s", dir)
	}

	inspector := analyzer.New()
	guide := types.Guide{ID: utils.SanitizeFilename(filepath.Base(dir))}
	for i, path := range files {
		stepID := utils.StepIDFromFilename(path)
		record, err := inspector.Inspect(path, stepID)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		record.CaptureTS = types.Float64(float64(i))

		if previews {
			img, err := pipeline.LoadScreenshot(ctx, record, types.VariantFull)
			if err == nil {
				err = inspector.WritePreview(img, &record, utils.OutputPath(outDir, stepID, "_preview", "jpg"))
			}
			if err != nil {
				log.Printf("preview %s failed: %v", stepID, err)
			}
		}

		guide.Steps = append(guide.Steps, types.GuideStep{ID: stepID, Kind: kind, Title: stepID})
		guide.StepImages = append(guide.StepImages, record)
	}
	return guide, nil
}

func save(pipeline *guidefocus.Pipeline, img image.Image, path string, render config.RenderConfig) {
	if err := pipeline.SaveImage(img, path, render.Format, render.Quality, render.Lossless); err != nil {
		log.Printf("save %s failed: %v", path, err)
		return
	}
	size := ""
	if info, err := os.Stat(path); err == nil {
		size = " (" + utils.FormatFileSize(info.Size()) + ")"
	}
	log.Printf("wrote %s%s", path, size)
}

func writeJSON(path string, v any) {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode %s: %v", path, err)
	}
	if err := os.WriteFile(path, js, 0o644); err != nil {
		log.Fatalf("failed to write %s: %v", path, err)
	}
	log.Printf("wrote %s", path)
}
