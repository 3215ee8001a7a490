package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"ChartSense/internal/domain/models"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Client-facing decode failure reasons.
const (
	ReasonInvalidBase64 = "invalid_base64"
	ReasonInvalidImage  = "invalid_image"
	ReasonFrameTooLarge = "frame_too_large"
)

// DefaultMaxFrameBytes bounds the base64 payload of one frame.
const DefaultMaxFrameBytes = 8 << 20

// DefaultMaxFramePixels bounds the declared raster size of one frame.
const DefaultMaxFramePixels = 4096 * 4096

// Decoder turns base64 frame payloads into pixel grids.
type Decoder struct {
	maxBytes  int
	maxPixels int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxPixels caps width*height read from the image header. n <= 0
// keeps the default.
func WithMaxPixels(n int) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.maxPixels = n
		}
	}
}

// NewDecoder creates a decoder. maxBytes <= 0 selects DefaultMaxFrameBytes.
func NewDecoder(maxBytes int, opts ...DecoderOption) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	d := &Decoder{maxBytes: maxBytes, maxPixels: DefaultMaxFramePixels}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode parses a base64 encoded PNG, JPEG, GIF, BMP or WebP raster.
// Failures are returned as *models.DecodeError.
func (d *Decoder) Decode(data string) (*PixelGrid, error) {
	if len(data) > d.maxBytes {
		return nil, models.NewDecodeError(ReasonFrameTooLarge, nil)
	}

	raw, err := decodeBase64(data)
	if err != nil {
		return nil, models.NewDecodeError(ReasonInvalidBase64, err)
	}

	// Only the header is read here; the raster is allocated after the
	// dimensions pass.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, models.NewDecodeError(ReasonInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, models.NewDecodeError(ReasonInvalidImage, errors.New("zero sized image"))
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(d.maxPixels) {
		return nil, models.NewDecodeError(ReasonFrameTooLarge,
			fmt.Errorf("%dx%d exceeds %d pixels", cfg.Width, cfg.Height, d.maxPixels))
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, models.NewDecodeError(ReasonInvalidImage, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, models.NewDecodeError(ReasonInvalidImage, errors.New("zero sized image"))
	}

	return NewPixelGrid(img), nil
}

// decodeBase64 accepts padded or unpadded standard base64, optionally
// behind a data URL prefix.
func decodeBase64(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		if i := strings.Index(data, ","); i >= 0 {
			data = data[i+1:]
		}
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return raw, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
