package models

import "strings"

// Tier is a subscription level.
type Tier string

const (
	TierFree   Tier = "free"
	TierPro    Tier = "pro"
	TierMaster Tier = "master"
)

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierPro, TierMaster:
		return true
	default:
		return false
	}
}

// ParseTier normalizes s into a Tier. Unknown values map to free.
func ParseTier(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if t.IsValid() {
		return t
	}
	return TierFree
}

// TierChange is published by the subscription service when a user's tier
// changes (payment webhook, admin action).
type TierChange struct {
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
	At     int64  `json:"at,omitempty"` // unix seconds
}
