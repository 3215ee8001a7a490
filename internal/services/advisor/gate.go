package advisor

import (
	"ChartSense/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Gate filters a signal by subscription tier. Free users never receive
// signals, pro users see side, price and TP1, master users also see the
// stop-loss. Returns nil when nothing may be shown.
func Gate(sig *models.Signal, tier models.Tier) *models.GatedSignal {
	if sig == nil {
		return nil
	}
	text, ok := Render(*sig, tier)
	if !ok {
		return nil
	}
	return &models.GatedSignal{Signal: *sig, Tier: tier, Text: text}
}

// Render formats the overlay text visible to tier.
func Render(sig models.Signal, tier models.Tier) (string, bool) {
	head := string(sig.Side) + " @ " + money(sig.Price)
	switch tier {
	case models.TierPro:
		return head + " | TP1 " + money(sig.TakeProfit1), true
	case models.TierMaster:
		return head + " | SL " + money(sig.StopLoss) + " | TP1 " + money(sig.TakeProfit1), true
	default:
		return "", false
	}
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
