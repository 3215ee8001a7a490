package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ChartSense/internal/domain/models"
	domrepo "ChartSense/internal/domain/repository"
	"ChartSense/internal/services/advisor"
	"ChartSense/internal/services/overlay"
	"ChartSense/internal/services/vision"
	applogger "ChartSense/pkg/logger"
	"ChartSense/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UnknownMessageText is sent for unparsable or unsupported inbound messages.
const UnknownMessageText = "unknown message type"

// FrameEventSink accepts analytics events without blocking. It reports
// false when the event was dropped.
type FrameEventSink interface {
	Enqueue(ev *models.FrameEvent) bool
}

// FramePipeline turns one inbound message into the ordered list of
// outbound messages for that connection. It holds no per-connection or
// per-frame state and is safe for concurrent use by many sessions.
type FramePipeline struct {
	decoder   *vision.Decoder
	extractor *vision.Extractor
	evaluator *advisor.Evaluator
	tiers     *TierResolver
	events    FrameEventSink
	metrics   domrepo.Metrics
	tracer    trace.Tracer
	l         *applogger.Logger
	now       func() time.Time
}

// PipelineOption configures FramePipeline.
type PipelineOption func(*FramePipeline)

// WithEventSink forwards a FrameEvent per processed frame.
func WithEventSink(s FrameEventSink) PipelineOption {
	return func(p *FramePipeline) { p.events = s }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) PipelineOption {
	return func(p *FramePipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *FramePipeline) {
		if l != nil {
			p.l = l
		}
	}
}

func NewFramePipeline(
	decoder *vision.Decoder,
	extractor *vision.Extractor,
	evaluator *advisor.Evaluator,
	tiers *TierResolver,
	metrics domrepo.Metrics,
	opts ...PipelineOption,
) *FramePipeline {
	p := &FramePipeline{
		decoder:   decoder,
		extractor: extractor,
		evaluator: evaluator,
		tiers:     tiers,
		metrics:   metrics,
		tracer:    telemetry.Tracer(),
		l:         applogger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleMessage dispatches a raw text message. Non-JSON text and unknown
// types get a single error reply.
func (p *FramePipeline) HandleMessage(ctx context.Context, connID string, raw []byte) []interface{} {
	var msg models.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return p.protocolError(connID, err)
	}

	switch msg.Type {
	case models.MsgPing:
		return []interface{}{models.Pong()}
	case models.MsgFrame:
		return p.Process(ctx, connID, msg)
	default:
		return p.protocolError(connID, errors.New("type "+msg.Type))
	}
}

func (p *FramePipeline) protocolError(connID string, err error) []interface{} {
	p.metrics.RecordError("protocol")
	p.l.Debug("protocol error",
		applogger.String("conn_id", connID),
		applogger.Error(errors.Join(models.ErrProtocol, err)),
	)
	return []interface{}{models.ErrorMessage(UnknownMessageText)}
}

// Process runs decode, extract, evaluate, gate and compose for one frame.
// A decode failure yields only an error message; every other outcome ends
// with the heartbeat.
func (p *FramePipeline) Process(ctx context.Context, connID string, msg models.InboundMessage) []interface{} {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "frame.process", trace.WithAttributes(
		attribute.String("conn_id", connID),
	))
	defer span.End()

	grid, err := p.decoder.Decode(msg.Data)
	p.metrics.RecordLatency("decode", p.now().Sub(start).Seconds())
	if err != nil {
		reason := err.Error()
		var de *models.DecodeError
		if errors.As(err, &de) {
			reason = de.Reason
		}
		span.SetStatus(codes.Error, reason)
		p.metrics.RecordFrame("decode_error")
		p.metrics.RecordError("decode")
		p.l.Debug("frame decode failed",
			applogger.String("conn_id", connID),
			applogger.String("reason", reason),
		)
		return []interface{}{models.ErrorMessage(reason)}
	}

	stage := p.now()
	fs := p.extractor.DetectFeatures(grid)
	p.metrics.RecordLatency("extract", p.now().Sub(stage).Seconds())

	tier := p.tiers.Resolve(ctx, msg.UserID)

	stage = p.now()
	sig, err := p.evaluator.Evaluate(fs)
	if err != nil {
		p.metrics.RecordError("signal")
		p.l.Warn("signal evaluation failed", applogger.String("conn_id", connID), applogger.Error(err))
		sig = nil
	}
	gated := advisor.Gate(sig, tier)
	p.metrics.RecordLatency("evaluate", p.now().Sub(stage).Seconds())
	if gated != nil {
		p.metrics.RecordSignal(gated.Signal.Side, tier)
	}

	cmds := overlay.Compose(fs, gated)
	out := make([]interface{}, 0, len(cmds)+1)
	for _, c := range cmds {
		out = append(out, c.Message())
		p.metrics.RecordOverlay(c.Action)
	}
	out = append(out, models.Heartbeat())

	result := "ok"
	if !fs.HasSeries() {
		result = "empty"
	}
	p.metrics.RecordFrame(result)
	elapsed := p.now().Sub(start)
	p.metrics.RecordLatency("frame", elapsed.Seconds())

	span.SetAttributes(
		attribute.Int("frame.width", fs.Width),
		attribute.Int("frame.height", fs.Height),
		attribute.Int("series.len", len(fs.PriceSeries)),
		attribute.String("tier", string(tier)),
		attribute.Bool("signal.emitted", gated != nil),
	)

	p.publish(connID, msg.UserID, tier, fs, sig, gated != nil, len(cmds), start, elapsed)
	return out
}

func (p *FramePipeline) publish(connID, userID string, tier models.Tier, fs models.FeatureSet, sig *models.Signal, emitted bool, overlays int, at time.Time, elapsed time.Duration) {
	if p.events == nil {
		return
	}
	ev := &models.FrameEvent{
		ConnID:     connID,
		UserID:     userID,
		Tier:       tier,
		At:         at,
		Width:      fs.Width,
		Height:     fs.Height,
		SeriesLen:  len(fs.PriceSeries),
		Slope:      fs.Slope,
		Emitted:    emitted,
		Overlays:   overlays,
		DurationMs: float64(elapsed.Microseconds()) / 1000,
	}
	if sig != nil {
		ev.Direction = string(sig.Side)
	}
	if !p.events.Enqueue(ev) {
		p.metrics.RecordError("event_dropped")
	}
}
