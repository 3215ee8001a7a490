package overlay

import "ChartSense/internal/domain/models"

// Geometry of the generated overlays, in frame pixels.
const (
	POIWidth       = 120
	POIHeight      = 60
	POILabel       = "POI"
	POILabelOffset = 18

	SignalTextOffset = 36
	SignalBoxWidth   = 120
	SignalBoxHeight  = 40
	SignalTTL        = 8
)

// POIRect returns the rectangle centred on poi. Only the top and left edges
// are clamped to the frame; the box may extend past the right or bottom.
func POIRect(poi models.Point) (x, y, w, h int) {
	x = poi.X - POIWidth/2
	y = poi.Y - POIHeight/2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y, POIWidth, POIHeight
}

// Compose lays out the overlay commands for one frame, in send order.
// The POI box and label are drawn only when the frame produced a series;
// the signal text and box follow when a gated signal survived.
func Compose(fs models.FeatureSet, gated *models.GatedSignal) []models.OverlayCommand {
	cmds := make([]models.OverlayCommand, 0, 4)

	if fs.HasSeries() {
		x, y, w, h := POIRect(fs.POI)
		cmds = append(cmds,
			models.DrawRect(x, y, w, h, 0),
			models.DrawText(x, y-POILabelOffset, POILabel, 0),
		)
	}

	if gated != nil {
		poi := fs.POI
		cmds = append(cmds,
			models.DrawText(poi.X, poi.Y-SignalTextOffset, gated.Text, SignalTTL),
			models.DrawRect(poi.X-SignalBoxWidth/2, poi.Y-SignalBoxHeight/2, SignalBoxWidth, SignalBoxHeight, SignalTTL),
		)
	}
	return cmds
}
