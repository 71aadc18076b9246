package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/guide-focus/pkg/focus"
	"github.com/menta2k/guide-focus/pkg/types"
)

// createScreenshot creates a grey screenshot with a white button
func createScreenshot(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/2 && x < width/2+40 && y > height/4 && y < height/4+20 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestLoadImageFromURL(t *testing.T) {
	data := encodePNG(t, createScreenshot(200, 100))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shot.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor()
	img, err := p.LoadImageSmart(context.Background(), srv.URL+"/shot.png")
	if err != nil {
		t.Fatalf("LoadImageSmart failed: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Errorf("expected 200x100, got %v", img.Bounds())
	}

	if _, err := p.LoadImageFromURL(context.Background(), srv.URL+"/page"); err == nil {
		t.Error("expected error for non-image content type")
	}
	if _, err := p.LoadImageFromURL(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := p.LoadImageFromURL(context.Background(), "ftp://example.com/a.png"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor()
	src := createScreenshot(120, 80)

	for _, format := range []string{"png", "jpg", "webp"} {
		path := filepath.Join(dir, "shot."+format)
		if err := p.SaveImage(src, path, format, 90, false); err != nil {
			t.Fatalf("SaveImage %s failed: %v", format, err)
		}
		img, err := p.LoadImageSmart(context.Background(), "file://"+path)
		if err != nil {
			t.Fatalf("LoadImage %s failed: %v", format, err)
		}
		if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
			t.Errorf("%s: expected 120x80, got %v", format, img.Bounds())
		}
	}
}

func TestLoadImageUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewProcessor().LoadImage(path); err == nil {
		t.Error("expected error for non-image file")
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	b64, err := p.PrepareImageForModel(createScreenshot(400, 200), "png", 100, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("expected downscaled 100x50, got %v", img.Bounds())
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	// decoded at half of the recorded resolution
	img := createScreenshot(500, 400)
	recorded := types.Size{Width: 1000, Height: 800}
	hints := &types.RenderHints{
		FocusCenter:          &types.Point{X: 500, Y: 400, CoordinateSpace: types.StepImagePixelsV1},
		RecommendedZoomScale: 2,
	}
	radar := &types.RadarPoint{Point: types.Point{X: 600, Y: 300, CoordinateSpace: types.StepImagePixelsV1}}
	result := focus.ComputeTransformV1(recorded, recorded, hints, radar)

	out := p.CreateDebugOverlay(img, recorded, result, radar, "step_1 radar")
	if out.Bounds() != img.Bounds() {
		t.Fatalf("expected overlay bounds %v, got %v", img.Bounds(), out.Bounds())
	}

	// crop (230,184) scaled by 0.5 starts at (115,92)
	if c := color.NRGBAModel.Convert(out.At(115, 150)).(color.NRGBA); c != (color.NRGBA{255, 204, 0, 255}) {
		t.Errorf("expected crop outline at (115,150), got %v", c)
	}
	if c := color.NRGBAModel.Convert(out.At(300, 150)).(color.NRGBA); c != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("expected radar dot at (300,150), got %v", c)
	}
	if c := color.NRGBAModel.Convert(img.At(300, 150)).(color.NRGBA); c == (color.NRGBA{0, 255, 0, 255}) {
		t.Error("overlay must not modify the source image")
	}
}
