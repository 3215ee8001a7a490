package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ChartSense/internal/domain/models"
	domrepo "ChartSense/internal/domain/repository"
	pkgkafka "ChartSense/pkg/kafka"
	applogger "ChartSense/pkg/logger"
)

// TierEventsHandler applies tier changes published by the subscription
// service to the local tier directory.
type TierEventsHandler struct {
	topic   string
	writer  domrepo.TierWriter
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewTierEventsHandler(topic string, writer domrepo.TierWriter, metrics domrepo.Metrics, l *applogger.Logger) *TierEventsHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &TierEventsHandler{topic: topic, writer: writer, metrics: metrics, l: l}
}

func (h *TierEventsHandler) Topic() string { return h.topic }

// incoming message schema: {user_id, tier, at}
func (h *TierEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ch models.TierChange
	if err := json.Unmarshal(b, &ch); err != nil {
		h.metrics.RecordError("tier_event_unmarshal")
		return fmt.Errorf("unmarshal tier change: %w", err)
	}
	if ch.UserID == "" {
		h.metrics.RecordError("tier_event_invalid")
		return fmt.Errorf("tier change without user_id")
	}
	tier := models.Tier(strings.ToLower(strings.TrimSpace(ch.Tier)))
	if !tier.IsValid() {
		h.metrics.RecordError("tier_event_invalid")
		return fmt.Errorf("tier change for %s: unknown tier %q", ch.UserID, ch.Tier)
	}

	if err := h.writer.SetTier(ctx, ch.UserID, tier); err != nil {
		h.metrics.RecordError("tier_event_store")
		return err
	}
	h.l.Info("tier updated",
		applogger.String("user_id", ch.UserID),
		applogger.String("tier", string(tier)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*TierEventsHandler)(nil)
