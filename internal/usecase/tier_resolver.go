package usecase

import (
	"context"
	"errors"
	"time"

	"ChartSense/internal/domain/models"
	domrepo "ChartSense/internal/domain/repository"
	applogger "ChartSense/pkg/logger"
)

// DefaultTierTimeout bounds a single directory lookup.
const DefaultTierTimeout = 250 * time.Millisecond

// TierResolver looks up a user's tier per message. It never fails: an
// absent user, a timeout or a directory error all resolve to free.
type TierResolver struct {
	dir     domrepo.TierDirectory
	timeout time.Duration
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewTierResolver(dir domrepo.TierDirectory, timeout time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *TierResolver {
	if timeout <= 0 {
		timeout = DefaultTierTimeout
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &TierResolver{dir: dir, timeout: timeout, metrics: metrics, l: l}
}

func (r *TierResolver) Resolve(ctx context.Context, userID string) models.Tier {
	if userID == "" || r.dir == nil {
		return models.TierFree
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	tier, err := r.dir.Lookup(ctx, userID)
	r.metrics.RecordLatency("tier_lookup", time.Since(start).Seconds())
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			reason = "timeout"
		}
		r.metrics.RecordTierFallback(reason)
		r.l.Warn("tier lookup failed, using free",
			applogger.String("user_id", userID),
			applogger.String("reason", reason),
			applogger.Error(err),
		)
		return models.TierFree
	}
	if !tier.IsValid() {
		r.metrics.RecordTierFallback("invalid")
		return models.TierFree
	}
	return tier
}
