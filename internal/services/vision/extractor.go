package vision

import (
	"fmt"

	"ChartSense/internal/domain/models"
	"ChartSense/internal/services/features"
	"ChartSense/pkg/logger"
)

const (
	// DefaultSampleStep samples every second column.
	DefaultSampleStep = 2

	columnKernelSize = 7
)

// Extractor derives a price proxy series and trend indicators from a frame.
// It is stateless and safe for concurrent use.
type Extractor struct {
	step      int
	low, high float64
	sigma     float64
	column    []float64
	log       *logger.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSampleStep samples every n-th column.
func WithSampleStep(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.step = n
		}
	}
}

// WithThresholds overrides the Canny hysteresis thresholds.
func WithThresholds(low, high float64) Option {
	return func(e *Extractor) {
		if low > 0 && high >= low {
			e.low, e.high = low, high
		}
	}
}

// WithLogger reports extraction faults to l.
func WithLogger(l *logger.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// NewExtractor creates an extractor with the default edge parameters.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		step:   DefaultSampleStep,
		low:    DefaultLowThreshold,
		high:   DefaultHighThreshold,
		sigma:  DefaultBlurSigma,
		column: gaussianKernel(columnKernelSize, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DetectFeatures runs a default extractor over grid.
func DetectFeatures(grid *PixelGrid, opts ...Option) models.FeatureSet {
	return NewExtractor(opts...).DetectFeatures(grid)
}

// SampleStep reports the column sampling stride.
func (e *Extractor) SampleStep() int { return e.step }

// DetectFeatures never fails: any fault, including a panic, yields the
// frame-centre fallback with an empty series.
func (e *Extractor) DetectFeatures(grid *PixelGrid) (fs models.FeatureSet) {
	w, h := 0, 0
	if grid != nil {
		w, h = grid.Width, grid.Height
	}

	defer func() {
		if r := recover(); r != nil {
			e.fault(fmt.Errorf("%w: panic: %v", models.ErrExtraction, r), w, h)
			fs = models.EmptyFeatures(w, h)
		}
	}()

	if err := grid.Validate(); err != nil {
		e.fault(fmt.Errorf("%w: %v", models.ErrExtraction, err), w, h)
		return models.EmptyFeatures(w, h)
	}

	series := e.priceSeries(grid)
	if len(series) == 0 {
		return models.EmptyFeatures(w, h)
	}

	n := len(series)
	fs = models.FeatureSet{
		POI:         models.Point{X: (n - 1) * e.step, Y: series[n-1]},
		PriceSeries: series,
		SMAShort:    features.SMA(series, features.ShortWindow(n)),
		SMALong:     features.SMA(series, features.LongWindow(n)),
		Slope:       features.LinearSlope(series, features.SlopeLookback),
		Width:       w,
		Height:      h,
	}
	return fs
}

// priceSeries returns the per-column peak rows, or nil when the frame has
// no edges at all.
func (e *Extractor) priceSeries(grid *PixelGrid) []int {
	edges := canny(smoothLuma(grid, e.sigma), grid.Width, grid.Height, e.low, e.high)
	if edges.Count() == 0 {
		return nil
	}
	series := make([]int, 0, (grid.Width+e.step-1)/e.step)
	for x := 0; x < grid.Width; x += e.step {
		series = append(series, columnPeak(edges, x, e.column))
	}
	return series
}

func (e *Extractor) fault(err error, w, h int) {
	if e.log == nil {
		return
	}
	e.log.Warn("feature extraction failed, using fallback",
		logger.Error(err),
		logger.Int("width", w),
		logger.Int("height", h),
	)
}
