package vision

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// PixelGrid is a decoded frame: row-major, three samples (R, G, B) per pixel.
// It lives for a single pipeline invocation.
type PixelGrid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelGrid flattens img into an RGB grid. Alpha is dropped without
// premultiplying, so transparent pixels keep their colour samples.
func NewPixelGrid(img image.Image) *PixelGrid {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	g := &PixelGrid{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			o := (y*w + x) * 3
			g.Pix[o] = row[x*4]
			g.Pix[o+1] = row[x*4+1]
			g.Pix[o+2] = row[x*4+2]
		}
	}
	return g
}

// Validate checks that the sample buffer matches the declared size.
func (g *PixelGrid) Validate() error {
	if g == nil {
		return fmt.Errorf("nil pixel grid")
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("empty pixel grid %dx%d", g.Width, g.Height)
	}
	if len(g.Pix) != g.Width*g.Height*3 {
		return fmt.Errorf("pixel grid %dx%d has %d samples, want %d", g.Width, g.Height, len(g.Pix), g.Width*g.Height*3)
	}
	return nil
}

// NRGBA converts the grid to an opaque image for the imaging filters.
func (g *PixelGrid) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for i, j := 0, 0; i < len(g.Pix); i, j = i+3, j+4 {
		img.Pix[j] = g.Pix[i]
		img.Pix[j+1] = g.Pix[i+1]
		img.Pix[j+2] = g.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// At returns the colour of pixel (x, y).
func (g *PixelGrid) At(x, y int) color.NRGBA {
	o := (y*g.Width + x) * 3
	return color.NRGBA{R: g.Pix[o], G: g.Pix[o+1], B: g.Pix[o+2], A: 0xff}
}
