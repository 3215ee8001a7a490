package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ChartSense/internal/domain/models"
	domrepo "ChartSense/internal/domain/repository"
	pkgkafka "ChartSense/pkg/kafka"
)

// FrameEventsHandler consumes frame analytics events and writes them to
// the store.
type FrameEventsHandler struct {
	topic   string
	store   domrepo.FrameEventStore
	metrics domrepo.Metrics
}

func NewFrameEventsHandler(topic string, store domrepo.FrameEventStore, metrics domrepo.Metrics) *FrameEventsHandler {
	return &FrameEventsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *FrameEventsHandler) Topic() string { return h.topic }

func (h *FrameEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.FrameEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("frame_event_unmarshal")
		return fmt.Errorf("unmarshal frame event: %w", err)
	}
	if ev.ConnID == "" {
		h.metrics.RecordError("frame_event_invalid")
		return fmt.Errorf("frame event without conn_id")
	}
	h.metrics.RecordLatency("frame_event_lag", time.Since(ev.At).Seconds())

	start := time.Now()
	err := h.store.Store(ctx, &ev)
	h.metrics.RecordLatency("frame_event_store", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("frame_event_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*FrameEventsHandler)(nil)
