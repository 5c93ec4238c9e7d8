package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	maxWidth        = 640
	scaledHeight    = 480
	bandHeight      = 90
	placeholderQual = 80
)

var (
	colorGreen  = color.RGBA{0, 255, 0, 255}
	colorYellow = color.RGBA{255, 255, 0, 255}
	colorWhite  = color.RGBA{255, 255, 255, 255}
	colorRed    = color.RGBA{255, 0, 0, 255}
	colorBand   = color.RGBA{0, 0, 0, 153}
)

// Renderer scales, annotates and encodes frames.
type Renderer struct {
	quality int
	overlay bool
}

// NewRenderer returns a Renderer encoding at quality (1..100).
func NewRenderer(quality int, overlay bool) *Renderer {
	if quality < 1 || quality > 100 {
		quality = 75
	}
	return &Renderer{quality: quality, overlay: overlay}
}

// Frame prepares a live frame: frames wider than 640 px become 640x480, the
// optional band shows label, frame number and time.
func (r *Renderer) Frame(img image.Image, label string, n uint64, at time.Time) ([]byte, error) {
	dst := fit(img)
	if r.overlay {
		w := dst.Bounds().Dx()
		draw.Draw(dst, image.Rect(0, 0, w, bandHeight), image.NewUniform(colorBand), image.Point{}, draw.Over)
		drawText(dst, label, 10, 30, colorGreen)
		drawText(dst, fmt.Sprintf("LIVE | Frame: %d", n), 10, 55, colorYellow)
		drawText(dst, at.Format("2006-01-02 15:04:05"), 10, 75, colorWhite)
	}
	return encode(dst, r.quality)
}

// Placeholder renders the offline card for a camera.
func (r *Renderer) Placeholder(label string) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, scaledHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	drawText(dst, "Camera Offline", 150, 220, colorRed)
	drawText(dst, label, 100, 270, colorWhite)
	drawText(dst, "Attempting reconnect...", 130, 320, colorYellow)
	return encode(dst, placeholderQual)
}

func fit(img image.Image) *image.RGBA {
	b := img.Bounds()
	if b.Dx() > maxWidth {
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, scaledHeight))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func drawText(dst draw.Image, s string, x, y int, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
