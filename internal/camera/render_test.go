package camera

import (
	"bytes"
	"image/jpeg"
	"testing"
	"time"
)

// TestRendererFrameSize checks downscaling of wide frames only.
func TestRendererFrameSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"wide frame is scaled", 1280, 720, 640, 480},
		{"small frame is kept", 320, 240, 320, 240},
		{"exactly 640 is kept", 640, 360, 640, 360},
	}
	r := NewRenderer(75, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.Frame(testImage(tt.w, tt.h), "Gate", 7, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
			if err != nil {
				t.Fatalf("Frame: %v", err)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

// TestRendererPlaceholder checks the offline card is a 640x480 JPEG.
func TestRendererPlaceholder(t *testing.T) {
	data, err := NewRenderer(75, true).Placeholder("Demo Test Stream 1")
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("size = %dx%d, want 640x480", b.Dx(), b.Dy())
	}
	// The corner is untouched black.
	r, g, b, _ := img.At(5, 5).RGBA()
	if r>>8 > 16 || g>>8 > 16 || b>>8 > 16 {
		t.Errorf("corner = (%d,%d,%d), want near black", r>>8, g>>8, b>>8)
	}
}

// TestRendererOverlayChangesPixels verifies the band is drawn when enabled.
func TestRendererOverlayChangesPixels(t *testing.T) {
	img := testImage(200, 150)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	plain, err := NewRenderer(100, false).Frame(img, "Gate", 1, at)
	if err != nil {
		t.Fatal(err)
	}
	banded, err := NewRenderer(100, true).Frame(img, "Gate", 1, at)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(plain, banded) {
		t.Error("overlay produced an identical frame")
	}
}
