package repository

import (
	"context"

	"ChartSense/internal/domain/models"
)

// TierDirectory resolves a user's subscription tier. Implementations may
// block on network I/O; callers bound them with a context deadline.
type TierDirectory interface {
	Lookup(ctx context.Context, userID string) (models.Tier, error)
}

// TierWriter applies tier changes coming from the subscription service.
type TierWriter interface {
	SetTier(ctx context.Context, userID string, tier models.Tier) error
}

// FrameEventPublisher ships frame analytics events off-process.
type FrameEventPublisher interface {
	Publish(ctx context.Context, ev *models.FrameEvent) error
	PublishBatch(ctx context.Context, evs []*models.FrameEvent) error
	Close() error
}

// FrameEventStore persists frame analytics events.
type FrameEventStore interface {
	Store(ctx context.Context, ev *models.FrameEvent) error
	StoreBatch(ctx context.Context, evs []*models.FrameEvent) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records pipeline and session measurements.
type Metrics interface {
	RecordFrame(result string)
	RecordSignal(side models.Side, tier models.Tier)
	RecordOverlay(action string)
	RecordError(kind string)
	RecordTierFallback(reason string)
	RecordLatency(op string, seconds float64)
	SessionOpened()
	SessionClosed()
}
