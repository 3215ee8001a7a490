package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"ChartSense/internal/domain/models"
)

type recordingMetrics struct {
	mu        sync.Mutex
	frames    map[string]int
	errors    map[string]int
	fallbacks map[string]int
	signals   int
	overlays  int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		frames:    map[string]int{},
		errors:    map[string]int{},
		fallbacks: map[string]int{},
	}
}

func (m *recordingMetrics) RecordFrame(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[result]++
}

func (m *recordingMetrics) RecordSignal(models.Side, models.Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals++
}

func (m *recordingMetrics) RecordOverlay(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overlays++
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *recordingMetrics) RecordTierFallback(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks[reason]++
}

func (m *recordingMetrics) RecordLatency(string, float64) {}
func (m *recordingMetrics) SessionOpened()                {}
func (m *recordingMetrics) SessionClosed()                {}

type mapDirectory struct {
	tiers map[string]models.Tier
	delay time.Duration
	err   error
}

func (d *mapDirectory) Lookup(ctx context.Context, userID string) (models.Tier, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return models.TierFree, ctx.Err()
		}
	}
	if d.err != nil {
		return models.TierFree, d.err
	}
	if t, ok := d.tiers[userID]; ok {
		return t, nil
	}
	return models.TierFree, nil
}

func (d *mapDirectory) SetTier(_ context.Context, userID string, tier models.Tier) error {
	if d.err != nil {
		return d.err
	}
	if d.tiers == nil {
		d.tiers = map[string]models.Tier{}
	}
	d.tiers[userID] = tier
	return nil
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type sliceSink struct {
	events []*models.FrameEvent
	full   bool
}

func (s *sliceSink) Enqueue(ev *models.FrameEvent) bool {
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func pngBase64(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func blankFrame(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// risingFrame draws a 3px line climbing half a row per column.
func risingFrame() *image.NRGBA {
	img := blankFrame(200, 160)
	for x := 0; x < 200; x++ {
		y := 150 - x/2
		for dy := 0; dy < 3; dy++ {
			if y-dy >= 0 {
				img.SetNRGBA(x, y-dy, color.NRGBA{A: 255})
			}
		}
	}
	return img
}
