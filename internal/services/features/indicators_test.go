package features

import (
	"math"
	"testing"
)

func TestWindows(t *testing.T) {
	cases := []struct {
		n           int
		short, long int
	}{
		{0, 3, 8},
		{10, 3, 8},
		{100, 3, 10},
		{200, 6, 20},
		{400, 12, 40},
	}
	for _, c := range cases {
		if got := ShortWindow(c.n); got != c.short {
			t.Errorf("ShortWindow(%d) = %d, want %d", c.n, got, c.short)
		}
		if got := LongWindow(c.n); got != c.long {
			t.Errorf("LongWindow(%d) = %d, want %d", c.n, got, c.long)
		}
	}
}

func TestSMA(t *testing.T) {
	got := SMA([]int{1, 2, 3, 4, 5}, 3)
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SMA[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSMAShortSeries(t *testing.T) {
	if got := SMA([]int{1, 2}, 3); got != nil {
		t.Fatalf("expected nil for series shorter than window, got %v", got)
	}
	if got := SMA([]int{4, 4, 4}, 3); len(got) != 1 || got[0] != 4 {
		t.Fatalf("expected single value 4, got %v", got)
	}
}

func TestLinearSlope(t *testing.T) {
	series := make([]int, 20)
	for i := range series {
		series[i] = 3*i + 7
	}
	if got := LinearSlope(series, SlopeLookback); math.Abs(got-3) > 1e-9 {
		t.Fatalf("slope = %v, want 3", got)
	}
}

func TestLinearSlopeUsesLookback(t *testing.T) {
	// flat head followed by a 60 sample descending tail
	series := make([]int, 0, 100)
	for i := 0; i < 40; i++ {
		series = append(series, 500)
	}
	for i := 0; i < 60; i++ {
		series = append(series, 300-2*i)
	}
	if got := LinearSlope(series, SlopeLookback); math.Abs(got+2) > 1e-9 {
		t.Fatalf("slope = %v, want -2", got)
	}
}

func TestLinearSlopeDegenerate(t *testing.T) {
	if got := LinearSlope(nil, SlopeLookback); got != 0 {
		t.Fatalf("empty slope = %v", got)
	}
	if got := LinearSlope([]int{42}, SlopeLookback); got != 0 {
		t.Fatalf("single sample slope = %v", got)
	}
	if got := LinearSlope([]int{5, 5, 5, 5}, SlopeLookback); got != 0 {
		t.Fatalf("flat slope = %v", got)
	}
}
