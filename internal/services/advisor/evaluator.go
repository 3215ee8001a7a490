package advisor

import (
	"fmt"
	"math/rand/v2"

	"ChartSense/internal/domain/models"
	"ChartSense/internal/services/features"

	"github.com/shopspring/decimal"
)

const (
	// DefaultEmitProbability is the share of directional frames that turn
	// into a signal. A draw u is emitted when u <= p.
	DefaultEmitProbability = 0.35

	// Reason tags every signal produced by this heuristic.
	Reason = "Prototype SMA crossover + slope"

	crossoverSlope = 0.2
	trendSlope     = 0.8

	basePrice     = 1000.0
	pixelToPrice  = 0.5
	stopLossPct   = 0.002
	takeProfitPct = 0.006
)

// RandSource yields uniform draws in [0, 1).
type RandSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Evaluator turns a feature set into an optional trade signal.
type Evaluator struct {
	rand RandSource
	emit float64
}

// NewEvaluator creates an evaluator. A nil src uses the runtime's
// goroutine-safe generator; emit outside (0, 1] selects the default.
func NewEvaluator(src RandSource, emit float64) *Evaluator {
	if src == nil {
		src = globalRand{}
	}
	if emit <= 0 || emit > 1 {
		emit = DefaultEmitProbability
	}
	return &Evaluator{rand: src, emit: emit}
}

// Direction applies the crossover rule when both moving averages exist and
// the slope-only rule otherwise. ok is false when neither fires.
func Direction(fs models.FeatureSet) (side models.Side, ok bool) {
	short, hasShort := features.Last(fs.SMAShort)
	long, hasLong := features.Last(fs.SMALong)

	if hasShort && hasLong {
		switch {
		case short < long && fs.Slope < -crossoverSlope:
			return models.SideSell, true
		case short > long && fs.Slope > crossoverSlope:
			return models.SideBuy, true
		}
		return "", false
	}

	switch {
	case fs.Slope > trendSlope:
		return models.SideBuy, true
	case fs.Slope < -trendSlope:
		return models.SideSell, true
	}
	return "", false
}

// Evaluate returns nil without error when there is no signal for fs. A
// non-nil error wraps models.ErrSignal; callers suppress the signal.
func (e *Evaluator) Evaluate(fs models.FeatureSet) (sig *models.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, err = nil, fmt.Errorf("%w: panic: %v", models.ErrSignal, r)
		}
	}()

	if !fs.HasSeries() {
		return nil, nil
	}

	side, ok := Direction(fs)
	if !ok {
		return nil, nil
	}
	if u := e.rand.Float64(); u > e.emit {
		return nil, nil
	}

	s := Levels(side, maxInt(fs.PriceSeries), fs.POI.Y)
	return &s, nil
}

// Levels synthesizes price, stop-loss and first take-profit for a signal
// from the series peak and the POI row.
func Levels(side models.Side, seriesMax, poiY int) models.Signal {
	base := decimal.NewFromFloat(basePrice + float64(seriesMax-poiY)*pixelToPrice)
	one := decimal.NewFromInt(1)
	sl := decimal.NewFromFloat(stopLossPct)
	tp := decimal.NewFromFloat(takeProfitPct)

	var stop, take decimal.Decimal
	if side == models.SideBuy {
		stop = base.Mul(one.Sub(sl))
		take = base.Mul(one.Add(tp))
	} else {
		stop = base.Mul(one.Add(sl))
		take = base.Mul(one.Sub(tp))
	}

	return models.Signal{
		Side:        side,
		Price:       base.Round(2).InexactFloat64(),
		StopLoss:    stop.Round(2).InexactFloat64(),
		TakeProfit1: take.Round(2).InexactFloat64(),
		Reason:      Reason,
	}
}

func maxInt(xs []int) int {
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
