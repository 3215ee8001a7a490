package models

// Side is the trade direction of a signal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal is a prototype trade suggestion. It lives for a single response
// cycle and is never persisted.
type Signal struct {
	Side        Side    `json:"side"`
	Price       float64 `json:"price"`
	StopLoss    float64 `json:"sl"`
	TakeProfit1 float64 `json:"tp1"`
	Reason      string  `json:"reason"`
}

// GatedSignal is a signal after tier filtering, carrying the text a client
// is allowed to see.
type GatedSignal struct {
	Signal Signal
	Tier   Tier
	Text   string
}
