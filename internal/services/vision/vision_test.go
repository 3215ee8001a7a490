package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"ChartSense/internal/domain/models"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

// horizontalBand draws a 3px black band starting at row y on a white frame.
func horizontalBand(w, h, y int) *image.NRGBA {
	img := solid(w, h, white)
	for x := 0; x < w; x++ {
		for dy := 0; dy < 3; dy++ {
			img.SetNRGBA(x, y+dy, black)
		}
	}
	return img
}

func TestDecodeInvalidBase64(t *testing.T) {
	_, err := NewDecoder(0).Decode("not base64 !!!")
	var de *models.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Reason != ReasonInvalidBase64 {
		t.Fatalf("reason = %q", de.Reason)
	}
	if !errors.Is(err, models.ErrDecode) {
		t.Fatalf("expected ErrDecode in chain")
	}
}

func TestDecodeInvalidImage(t *testing.T) {
	_, err := NewDecoder(0).Decode(base64.StdEncoding.EncodeToString([]byte("definitely not an image")))
	var de *models.DecodeError
	if !errors.As(err, &de) || de.Reason != ReasonInvalidImage {
		t.Fatalf("expected invalid_image, got %v", err)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, err := NewDecoder(0).Decode("")
	if !errors.Is(err, models.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestDecodeTooLarge(t *testing.T) {
	data := encodePNG(t, solid(8, 8, white))
	_, err := NewDecoder(len(data) - 1).Decode(data)
	var de *models.DecodeError
	if !errors.As(err, &de) || de.Reason != ReasonFrameTooLarge {
		t.Fatalf("expected frame_too_large, got %v", err)
	}
}

func TestDecodeRejectsHugeDimensions(t *testing.T) {
	// A blank 8000x8000 gray PNG compresses to ~100 KB, well under the
	// payload cap, but its raster would be 64M pixels.
	data := encodePNG(t, image.NewGray(image.Rect(0, 0, 8000, 8000)))
	if len(data) > DefaultMaxFrameBytes {
		t.Fatalf("payload unexpectedly large: %d bytes", len(data))
	}
	_, err := NewDecoder(0).Decode(data)
	var de *models.DecodeError
	if !errors.As(err, &de) || de.Reason != ReasonFrameTooLarge {
		t.Fatalf("expected frame_too_large, got %v", err)
	}

	small := encodePNG(t, solid(20, 10, white))
	if _, err := NewDecoder(0, WithMaxPixels(199)).Decode(small); !errors.As(err, &de) || de.Reason != ReasonFrameTooLarge {
		t.Fatalf("expected frame_too_large at 200 > 199 pixels, got %v", err)
	}
	if _, err := NewDecoder(0, WithMaxPixels(200)).Decode(small); err != nil {
		t.Fatalf("200 pixels must pass a 200 pixel cap: %v", err)
	}
}

func TestDecodePNG(t *testing.T) {
	img := solid(4, 3, white)
	img.SetNRGBA(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	grid, err := NewDecoder(0).Decode(encodePNG(t, img))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if grid.Width != 4 || grid.Height != 3 || len(grid.Pix) != 4*3*3 {
		t.Fatalf("unexpected grid %dx%d (%d samples)", grid.Width, grid.Height, len(grid.Pix))
	}
	if c := grid.At(2, 1); c.R != 10 || c.G != 20 || c.B != 30 {
		t.Fatalf("pixel = %+v", c)
	}
}

func TestDecodeDataURLAndUnpadded(t *testing.T) {
	data := encodePNG(t, solid(5, 5, white))
	d := NewDecoder(0)
	if _, err := d.Decode("data:image/png;base64," + data); err != nil {
		t.Fatalf("data url: %v", err)
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, solid(5, 5, black))
	if _, err := d.Decode(base64.RawStdEncoding.EncodeToString(buf.Bytes())); err != nil {
		t.Fatalf("unpadded: %v", err)
	}
}

func TestBlankFrameFallsBackToCentre(t *testing.T) {
	grid := NewPixelGrid(solid(100, 80, white))
	fs := DetectFeatures(grid)
	if fs.HasSeries() {
		t.Fatalf("expected empty series, got %d samples", len(fs.PriceSeries))
	}
	if fs.POI != (models.Point{X: 50, Y: 40}) {
		t.Fatalf("POI = %+v, want centre", fs.POI)
	}
	if fs.SMAShort != nil || fs.SMALong != nil || fs.Slope != 0 {
		t.Fatalf("derived fields should be empty: %+v", fs)
	}
}

func TestHorizontalBand(t *testing.T) {
	grid := NewPixelGrid(horizontalBand(200, 100, 50))
	fs := DetectFeatures(grid)

	if len(fs.PriceSeries) != 100 {
		t.Fatalf("series len = %d, want 100", len(fs.PriceSeries))
	}
	for i, v := range fs.PriceSeries {
		if v < 40 || v > 60 {
			t.Fatalf("series[%d] = %d, expected near the band", i, v)
		}
	}
	if fs.POI.X != 198 || fs.POI.Y != fs.PriceSeries[99] {
		t.Fatalf("POI = %+v", fs.POI)
	}
	if len(fs.SMAShort) != 100-3+1 || len(fs.SMALong) != 100-10+1 {
		t.Fatalf("sma lens = %d/%d", len(fs.SMAShort), len(fs.SMALong))
	}
	if fs.Slope > 0.2 || fs.Slope < -0.2 {
		t.Fatalf("slope = %v, expected flat", fs.Slope)
	}
}

func TestRisingLineHasNegativeRowSlope(t *testing.T) {
	img := solid(200, 160, white)
	for x := 0; x < 200; x++ {
		y := 150 - x/2
		for dy := 0; dy < 3; dy++ {
			if y-dy >= 0 {
				img.SetNRGBA(x, y-dy, black)
			}
		}
	}
	fs := DetectFeatures(NewPixelGrid(img))
	if !fs.HasSeries() {
		t.Fatalf("expected a series")
	}
	// rising on screen means decreasing row index
	if fs.Slope > -0.5 {
		t.Fatalf("slope = %v, expected strongly negative", fs.Slope)
	}
}

func TestSampleStep(t *testing.T) {
	grid := NewPixelGrid(horizontalBand(200, 100, 30))
	fs := DetectFeatures(grid, WithSampleStep(4))
	if len(fs.PriceSeries) != 50 {
		t.Fatalf("series len = %d, want 50", len(fs.PriceSeries))
	}
	if fs.POI.X != 196 {
		t.Fatalf("POI.X = %d, want 196", fs.POI.X)
	}
}

func TestMalformedGridFallsBack(t *testing.T) {
	grid := &PixelGrid{Width: 10, Height: 10, Pix: make([]uint8, 5)}
	fs := NewExtractor().DetectFeatures(grid)
	if fs.HasSeries() || fs.POI != (models.Point{X: 5, Y: 5}) {
		t.Fatalf("expected fallback, got %+v", fs)
	}
	if fs := NewExtractor().DetectFeatures(nil); fs.HasSeries() {
		t.Fatalf("nil grid should fall back")
	}
}

func TestColumnPeakTiesPickFirstRow(t *testing.T) {
	edges := &EdgeMap{Width: 1, Height: 10, Pix: make([]uint8, 10)}
	if got := columnPeak(edges, 0, gaussianKernel(7, 0)); got != 0 {
		t.Fatalf("empty column peak = %d, want 0", got)
	}
	edges.Pix[3], edges.Pix[8] = 255, 255
	if got := columnPeak(edges, 0, gaussianKernel(7, 0)); got != 3 {
		t.Fatalf("peak = %d, want 3", got)
	}
}
