package advisor

import (
	"errors"
	"testing"

	"ChartSense/internal/domain/models"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type panicRand struct{}

func (panicRand) Float64() float64 { panic("rng exploded") }

// risingFrame has no moving averages, a steep slope and a peak 50px below
// the POI row, which maps to a base price of 1025.
func risingFrame(slope float64) models.FeatureSet {
	return models.FeatureSet{
		POI:         models.Point{X: 10, Y: 50},
		PriceSeries: []int{10, 20, 30, 40, 100, 50},
		Slope:       slope,
	}
}

func TestDirection(t *testing.T) {
	cases := []struct {
		name  string
		fs    models.FeatureSet
		side  models.Side
		found bool
	}{
		{"slope only buy", models.FeatureSet{Slope: 0.81}, models.SideBuy, true},
		{"slope only sell", models.FeatureSet{Slope: -0.81}, models.SideSell, true},
		{"slope only flat", models.FeatureSet{Slope: 0.8}, "", false},
		{"crossover buy", models.FeatureSet{SMAShort: []float64{5}, SMALong: []float64{4}, Slope: 0.3}, models.SideBuy, true},
		{"crossover sell", models.FeatureSet{SMAShort: []float64{3}, SMALong: []float64{4}, Slope: -0.3}, models.SideSell, true},
		{"crossover disagrees with slope", models.FeatureSet{SMAShort: []float64{3}, SMALong: []float64{4}, Slope: 5}, "", false},
		{"short only falls back to slope", models.FeatureSet{SMAShort: []float64{3}, Slope: 0.9}, models.SideBuy, true},
	}
	for _, c := range cases {
		side, ok := Direction(c.fs)
		if side != c.side || ok != c.found {
			t.Errorf("%s: got (%q, %v), want (%q, %v)", c.name, side, ok, c.side, c.found)
		}
	}
}

func TestEvaluateBuyLevels(t *testing.T) {
	sig, err := NewEvaluator(fixedRand(0.1), 0).Evaluate(risingFrame(1.5))
	if err != nil || sig == nil {
		t.Fatalf("expected signal, got %v, %v", sig, err)
	}
	if sig.Side != models.SideBuy || sig.Price != 1025 || sig.StopLoss != 1022.95 || sig.TakeProfit1 != 1031.15 {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if sig.Reason != Reason {
		t.Fatalf("reason = %q", sig.Reason)
	}
}

func TestEvaluateSellLevels(t *testing.T) {
	sig, err := NewEvaluator(fixedRand(0), 0).Evaluate(risingFrame(-1.5))
	if err != nil || sig == nil {
		t.Fatalf("expected signal, got %v, %v", sig, err)
	}
	if sig.Side != models.SideSell || sig.StopLoss != 1027.05 || sig.TakeProfit1 != 1018.85 {
		t.Fatalf("unexpected signal %+v", sig)
	}
}

func TestEmitProbabilityBoundary(t *testing.T) {
	fs := risingFrame(1.5)
	if sig, _ := NewEvaluator(fixedRand(0.35), 0).Evaluate(fs); sig == nil {
		t.Fatalf("draw equal to the emit probability must emit")
	}
	if sig, _ := NewEvaluator(fixedRand(0.3500001), 0).Evaluate(fs); sig != nil {
		t.Fatalf("draw above the emit probability must suppress")
	}
	if sig, _ := NewEvaluator(fixedRand(0.9), 0.95).Evaluate(fs); sig == nil {
		t.Fatalf("custom emit probability ignored")
	}
}

func TestEvaluateWithoutSeries(t *testing.T) {
	fs := models.EmptyFeatures(100, 100)
	fs.Slope = 5
	if sig, err := NewEvaluator(fixedRand(0), 0).Evaluate(fs); sig != nil || err != nil {
		t.Fatalf("expected no signal, got %v, %v", sig, err)
	}
}

func TestEvaluateFaultIsSuppressed(t *testing.T) {
	sig, err := NewEvaluator(panicRand{}, 0).Evaluate(risingFrame(1.5))
	if sig != nil {
		t.Fatalf("expected no signal on fault")
	}
	if !errors.Is(err, models.ErrSignal) {
		t.Fatalf("expected ErrSignal, got %v", err)
	}
}

func TestGate(t *testing.T) {
	sig := Levels(models.SideBuy, 100, 50)

	if g := Gate(&sig, models.TierFree); g != nil {
		t.Fatalf("free tier must not see signals")
	}
	if g := Gate(nil, models.TierMaster); g != nil {
		t.Fatalf("nil signal must stay nil")
	}

	pro := Gate(&sig, models.TierPro)
	if pro == nil || pro.Text != "BUY @ 1025.00 | TP1 1031.15" {
		t.Fatalf("pro text = %+v", pro)
	}

	master := Gate(&sig, models.TierMaster)
	if master == nil || master.Text != "BUY @ 1025.00 | SL 1022.95 | TP1 1031.15" {
		t.Fatalf("master text = %+v", master)
	}
}
