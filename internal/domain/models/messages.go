package models

// Inbound message types.
const (
	MsgFrame = "frame"
	MsgPing  = "ping"
)

// Outbound message types.
const (
	MsgOverlay = "overlay"
	MsgPong    = "pong"
	MsgInfo    = "info"
	MsgError   = "error"
)

// HeartbeatMessage is the info text sent once per processed frame.
const HeartbeatMessage = "processed_frame"

// InboundMessage is the client->server envelope.
type InboundMessage struct {
	Type   string `json:"type"`
	Data   string `json:"data,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// RectMessage is the wire form of a draw_rect command.
type RectMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w"`
	H      int    `json:"h"`
	TTL    int    `json:"ttl,omitempty"`
}

// TextMessage is the wire form of a draw_text command.
type TextMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Text   string `json:"text"`
	TTL    int    `json:"ttl,omitempty"`
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"`
}

// StatusMessage carries info and error notices.
type StatusMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Message converts the command to its wire form.
func (c OverlayCommand) Message() interface{} {
	if c.Action == ActionDrawText {
		return TextMessage{Type: MsgOverlay, Action: c.Action, X: c.X, Y: c.Y, Text: c.Text, TTL: c.TTL}
	}
	return RectMessage{Type: MsgOverlay, Action: c.Action, X: c.X, Y: c.Y, W: c.W, H: c.H, TTL: c.TTL}
}

// Pong builds the ping reply.
func Pong() PongMessage { return PongMessage{Type: MsgPong} }

// Heartbeat builds the per-frame acknowledgement.
func Heartbeat() StatusMessage { return StatusMessage{Type: MsgInfo, Message: HeartbeatMessage} }

// ErrorMessage builds an error notice for the client.
func ErrorMessage(msg string) StatusMessage { return StatusMessage{Type: MsgError, Message: msg} }
