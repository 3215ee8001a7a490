package overlay

import (
	"testing"

	"ChartSense/internal/domain/models"
)

func withSeries(x, y int) models.FeatureSet {
	return models.FeatureSet{POI: models.Point{X: x, Y: y}, PriceSeries: []int{y}, Width: 400, Height: 300}
}

func TestPOIRectClampsTopLeftOnly(t *testing.T) {
	cases := []struct {
		poi        models.Point
		x, y, w, h int
	}{
		{models.Point{X: 200, Y: 150}, 140, 120, 120, 60},
		{models.Point{X: 10, Y: 5}, 0, 0, 120, 60},
		// near the bottom-right corner of a 400x300 frame the box overflows
		{models.Point{X: 398, Y: 299}, 338, 269, 120, 60},
	}
	for _, c := range cases {
		x, y, w, h := POIRect(c.poi)
		if x != c.x || y != c.y || w != c.w || h != c.h {
			t.Errorf("POIRect(%+v) = (%d,%d,%d,%d), want (%d,%d,%d,%d)", c.poi, x, y, w, h, c.x, c.y, c.w, c.h)
		}
	}
	x, _, w, _ := POIRect(models.Point{X: 398, Y: 10})
	if x+w <= 400 {
		t.Fatalf("expected right edge past the frame, got %d", x+w)
	}
}

func TestComposeEmptySeries(t *testing.T) {
	if cmds := Compose(models.EmptyFeatures(400, 300), nil); len(cmds) != 0 {
		t.Fatalf("expected no overlays, got %+v", cmds)
	}
}

func TestComposePOIOnly(t *testing.T) {
	cmds := Compose(withSeries(200, 150), nil)
	if len(cmds) != 2 {
		t.Fatalf("expected 2 overlays, got %d", len(cmds))
	}
	if cmds[0] != models.DrawRect(140, 120, 120, 60, 0) {
		t.Fatalf("rect = %+v", cmds[0])
	}
	if cmds[1] != models.DrawText(140, 102, "POI", 0) {
		t.Fatalf("label = %+v", cmds[1])
	}
}

func TestComposeWithSignal(t *testing.T) {
	gated := &models.GatedSignal{Tier: models.TierPro, Text: "BUY @ 1025.00 | TP1 1031.15"}
	cmds := Compose(withSeries(200, 150), gated)
	if len(cmds) != 4 {
		t.Fatalf("expected 4 overlays, got %d", len(cmds))
	}
	if cmds[2] != models.DrawText(200, 114, gated.Text, 8) {
		t.Fatalf("signal text = %+v", cmds[2])
	}
	if cmds[3] != models.DrawRect(140, 130, 120, 40, 8) {
		t.Fatalf("signal box = %+v", cmds[3])
	}
}

func TestComposeSignalPositionsAreUnclamped(t *testing.T) {
	gated := &models.GatedSignal{Tier: models.TierMaster, Text: "SELL"}
	cmds := Compose(withSeries(20, 10), gated)
	if cmds[0].X != 0 || cmds[0].Y != 0 {
		t.Fatalf("POI rect should be clamped: %+v", cmds[0])
	}
	if cmds[2].Y != -26 || cmds[3].X != -40 {
		t.Fatalf("signal overlays should keep raw offsets: %+v %+v", cmds[2], cmds[3])
	}
}
