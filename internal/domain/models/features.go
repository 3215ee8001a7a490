package models

// Point is a screen coordinate in frame pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FeatureSet is the per-frame output of the vision extractor.
type FeatureSet struct {
	POI         Point
	PriceSeries []int     // column -> row of strongest edge response
	SMAShort    []float64 // aligned to series index window-1
	SMALong     []float64
	Slope       float64

	// Width and Height of the source frame.
	Width  int
	Height int
}

// HasSeries reports whether extraction produced any samples. A FeatureSet
// without samples carries the frame-centre fallback POI.
func (f FeatureSet) HasSeries() bool { return len(f.PriceSeries) > 0 }

// EmptyFeatures returns the fallback feature set for a frame of the given size.
func EmptyFeatures(width, height int) FeatureSet {
	return FeatureSet{
		POI:    Point{X: width / 2, Y: height / 2},
		Width:  width,
		Height: height,
	}
}
