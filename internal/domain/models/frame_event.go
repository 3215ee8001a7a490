package models

import "time"

// FrameEvent is the analytics summary of one processed frame. It holds no
// signal price levels.
type FrameEvent struct {
	ConnID     string    `json:"conn_id"`
	UserID     string    `json:"user_id,omitempty"`
	Tier       Tier      `json:"tier"`
	At         time.Time `json:"at"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	SeriesLen  int       `json:"series_len"`
	Slope      float64   `json:"slope"`
	Direction  string    `json:"direction,omitempty"` // BUY, SELL or empty
	Emitted    bool      `json:"emitted"`
	Overlays   int       `json:"overlays"`
	DurationMs float64   `json:"duration_ms"`
}
