package models

const (
	ActionDrawRect = "draw_rect"
	ActionDrawText = "draw_text"
)

// OverlayCommand is a single draw instruction for the client renderer.
// TTL is advisory (seconds) and omitted when zero.
type OverlayCommand struct {
	Action string
	X      int
	Y      int
	W      int
	H      int
	Text   string
	TTL    int
}

// DrawRect builds a rectangle command.
func DrawRect(x, y, w, h, ttl int) OverlayCommand {
	return OverlayCommand{Action: ActionDrawRect, X: x, Y: y, W: w, H: h, TTL: ttl}
}

// DrawText builds a text command.
func DrawText(x, y int, text string, ttl int) OverlayCommand {
	return OverlayCommand{Action: ActionDrawText, X: x, Y: y, Text: text, TTL: ttl}
}
