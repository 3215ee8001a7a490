package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/kbinani/screenshot"
)

// Source produces one frame per call.
type Source interface {
	Capture() (image.Image, error)
}

// ScreenSource grabs a whole display.
type ScreenSource struct {
	Display int
}

func (s ScreenSource) Capture() (image.Image, error) {
	if n := screenshot.NumActiveDisplays(); s.Display < 0 || s.Display >= n {
		return nil, fmt.Errorf("display %d not active (%d found)", s.Display, n)
	}
	img, err := screenshot.CaptureDisplay(s.Display)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", s.Display, err)
	}
	return img, nil
}

// FileSource replays a still image, decoded once.
type FileSource struct {
	img image.Image
}

func NewFileSource(path string) (*FileSource, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame %s: %w", path, err)
	}
	return &FileSource{img: img}, nil
}

func (s *FileSource) Capture() (image.Image, error) { return s.img, nil }

// EncodeFrame renders img as base64 PNG, the frame payload format.
func EncodeFrame(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
