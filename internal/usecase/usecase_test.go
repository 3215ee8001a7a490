package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ChartSense/internal/domain/models"
	"ChartSense/internal/services/advisor"
	"ChartSense/internal/services/vision"
)

func newPipeline(t *testing.T, dir *mapDirectory, draw float64, sink FrameEventSink) (*FramePipeline, *recordingMetrics) {
	t.Helper()
	m := newRecordingMetrics()
	opts := []PipelineOption{}
	if sink != nil {
		opts = append(opts, WithEventSink(sink))
	}
	p := NewFramePipeline(
		vision.NewDecoder(0),
		vision.NewExtractor(),
		advisor.NewEvaluator(fixedRand(draw), advisor.DefaultEmitProbability),
		NewTierResolver(dir, 50*time.Millisecond, m, nil),
		m,
		opts...,
	)
	return p, m
}

func TestPingGetsPong(t *testing.T) {
	p, _ := newPipeline(t, &mapDirectory{}, 0, nil)
	out := p.HandleMessage(context.Background(), "c1", []byte(`{"type":"ping"}`))
	if len(out) != 1 || out[0] != models.Pong() {
		t.Fatalf("unexpected reply %#v", out)
	}
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	p, m := newPipeline(t, &mapDirectory{}, 0, nil)
	for _, raw := range []string{`{"type":"subscribe"}`, `not json`, `{}`} {
		out := p.HandleMessage(context.Background(), "c1", []byte(raw))
		if len(out) != 1 || out[0] != models.ErrorMessage(UnknownMessageText) {
			t.Fatalf("%q: unexpected reply %#v", raw, out)
		}
	}
	if m.errors["protocol"] != 3 {
		t.Fatalf("expected 3 protocol errors, got %d", m.errors["protocol"])
	}
}

func TestMalformedFrameYieldsSingleError(t *testing.T) {
	sink := &sliceSink{}
	p, m := newPipeline(t, &mapDirectory{}, 0, sink)
	out := p.HandleMessage(context.Background(), "c1", []byte(`{"type":"frame","data":"iVBORw0KGgo"}`))
	if len(out) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(out))
	}
	msg, ok := out[0].(models.StatusMessage)
	if !ok || msg.Type != models.MsgError {
		t.Fatalf("expected error message, got %#v", out[0])
	}
	if msg.Message != vision.ReasonInvalidImage {
		t.Fatalf("unexpected reason %q", msg.Message)
	}
	if m.frames["decode_error"] != 1 || len(sink.events) != 0 {
		t.Fatalf("decode failures must not emit events")
	}
}

func TestBlankFrameYieldsOnlyHeartbeat(t *testing.T) {
	sink := &sliceSink{}
	p, m := newPipeline(t, &mapDirectory{}, 0, sink)
	out := p.Process(context.Background(), "c1", models.InboundMessage{
		Type: models.MsgFrame,
		Data: pngBase64(t, blankFrame(100, 80)),
	})
	if len(out) != 1 || out[0] != models.Heartbeat() {
		t.Fatalf("expected a single heartbeat, got %#v", out)
	}
	if m.frames["empty"] != 1 {
		t.Fatalf("expected empty frame result, got %v", m.frames)
	}
	if len(sink.events) != 1 || sink.events[0].SeriesLen != 0 || sink.events[0].ConnID != "c1" {
		t.Fatalf("unexpected events %#v", sink.events)
	}
}

func TestMasterFrameCarriesSignal(t *testing.T) {
	sink := &sliceSink{}
	dir := &mapDirectory{tiers: map[string]models.Tier{"user_master": models.TierMaster}}
	p, m := newPipeline(t, dir, 0, sink)
	out := p.Process(context.Background(), "c1", models.InboundMessage{
		Type:   models.MsgFrame,
		Data:   pngBase64(t, risingFrame()),
		UserID: "user_master",
	})
	if len(out) != 5 {
		t.Fatalf("expected 5 messages, got %d: %#v", len(out), out)
	}
	if _, ok := out[0].(models.RectMessage); !ok {
		t.Fatalf("first message must be the POI rect, got %#v", out[0])
	}
	label, ok := out[1].(models.TextMessage)
	if !ok || label.Text != "POI" {
		t.Fatalf("second message must be the POI label, got %#v", out[1])
	}
	text, ok := out[2].(models.TextMessage)
	if !ok || !strings.HasPrefix(text.Text, "SELL @ ") || !strings.Contains(text.Text, " | SL ") {
		t.Fatalf("expected master SELL text, got %#v", out[2])
	}
	if text.TTL != 8 {
		t.Fatalf("signal text ttl = %d", text.TTL)
	}
	box, ok := out[3].(models.RectMessage)
	if !ok || box.W != 120 || box.H != 40 || box.TTL != 8 {
		t.Fatalf("unexpected signal box %#v", out[3])
	}
	if out[4] != models.Heartbeat() {
		t.Fatalf("last message must be the heartbeat")
	}
	if m.signals != 1 {
		t.Fatalf("expected one signal recorded")
	}
	if len(sink.events) != 1 || !sink.events[0].Emitted || sink.events[0].Direction != "SELL" {
		t.Fatalf("unexpected event %#v", sink.events)
	}
}

func TestFreeAndProGating(t *testing.T) {
	dir := &mapDirectory{tiers: map[string]models.Tier{"user_pro": models.TierPro}}
	p, _ := newPipeline(t, dir, 0, nil)
	data := pngBase64(t, risingFrame())

	free := p.Process(context.Background(), "c1", models.InboundMessage{Type: models.MsgFrame, Data: data})
	if len(free) != 3 {
		t.Fatalf("free tier: expected POI rect, label and heartbeat, got %#v", free)
	}

	pro := p.Process(context.Background(), "c1", models.InboundMessage{Type: models.MsgFrame, Data: data, UserID: "user_pro"})
	if len(pro) != 5 {
		t.Fatalf("pro tier: expected 5 messages, got %d", len(pro))
	}
	text := pro[2].(models.TextMessage).Text
	if strings.Contains(text, "SL") || !strings.Contains(text, "TP1") {
		t.Fatalf("pro text must carry TP1 but no stop-loss: %q", text)
	}
}

func TestNoSignalAboveEmitProbability(t *testing.T) {
	dir := &mapDirectory{tiers: map[string]models.Tier{"u": models.TierMaster}}
	p, m := newPipeline(t, dir, 0.9, nil)
	out := p.Process(context.Background(), "c1", models.InboundMessage{Type: models.MsgFrame, Data: pngBase64(t, risingFrame()), UserID: "u"})
	if len(out) != 3 || m.signals != 0 {
		t.Fatalf("expected no signal, got %d messages", len(out))
	}
}

func TestDroppedEventIsCounted(t *testing.T) {
	p, m := newPipeline(t, &mapDirectory{}, 0, &sliceSink{full: true})
	p.Process(context.Background(), "c1", models.InboundMessage{Type: models.MsgFrame, Data: pngBase64(t, blankFrame(10, 10))})
	if m.errors["event_dropped"] != 1 {
		t.Fatalf("expected dropped event to be counted")
	}
}

func TestTierResolver(t *testing.T) {
	m := newRecordingMetrics()
	dir := &mapDirectory{tiers: map[string]models.Tier{"p": models.TierPro, "bad": models.Tier("gold")}}
	r := NewTierResolver(dir, 20*time.Millisecond, m, nil)

	if got := r.Resolve(context.Background(), ""); got != models.TierFree {
		t.Fatalf("anonymous must be free, got %s", got)
	}
	if got := r.Resolve(context.Background(), "p"); got != models.TierPro {
		t.Fatalf("expected pro, got %s", got)
	}
	if got := r.Resolve(context.Background(), "bad"); got != models.TierFree || m.fallbacks["invalid"] != 1 {
		t.Fatalf("invalid tier must fall back to free")
	}

	slow := NewTierResolver(&mapDirectory{delay: time.Second}, 10*time.Millisecond, m, nil)
	if got := slow.Resolve(context.Background(), "p"); got != models.TierFree || m.fallbacks["timeout"] != 1 {
		t.Fatalf("timeout must fall back to free, fallbacks=%v", m.fallbacks)
	}

	broken := NewTierResolver(&mapDirectory{err: errors.New("down")}, time.Second, m, nil)
	if got := broken.Resolve(context.Background(), "p"); got != models.TierFree || m.fallbacks["error"] != 1 {
		t.Fatalf("error must fall back to free, fallbacks=%v", m.fallbacks)
	}
}

func TestTierEventsHandler(t *testing.T) {
	m := newRecordingMetrics()
	dir := &mapDirectory{}
	h := NewTierEventsHandler("chartsense.tiers", dir, m, nil)
	if h.Topic() != "chartsense.tiers" {
		t.Fatalf("unexpected topic")
	}

	if err := h.Handle(context.Background(), []byte(`{"user_id":"u1","tier":" Master "}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if dir.tiers["u1"] != models.TierMaster {
		t.Fatalf("expected master, got %s", dir.tiers["u1"])
	}

	for _, raw := range []string{`{`, `{"tier":"pro"}`, `{"user_id":"u1","tier":"gold"}`} {
		if err := h.Handle(context.Background(), []byte(raw)); err == nil {
			t.Fatalf("%s: expected error", raw)
		}
	}
	if dir.tiers["u1"] != models.TierMaster {
		t.Fatalf("rejected events must not change the tier")
	}
}

type memStore struct {
	events []*models.FrameEvent
	err    error
}

func (s *memStore) Store(_ context.Context, ev *models.FrameEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memStore) StoreBatch(ctx context.Context, evs []*models.FrameEvent) error {
	for _, ev := range evs {
		if err := s.Store(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

func TestFrameEventsHandler(t *testing.T) {
	m := newRecordingMetrics()
	store := &memStore{}
	h := NewFrameEventsHandler("chartsense.frames", store, m)

	if err := h.Handle(context.Background(), []byte(`{"conn_id":"c1","tier":"pro","series_len":12,"emitted":true}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.events) != 1 || store.events[0].SeriesLen != 12 || store.events[0].Tier != models.TierPro {
		t.Fatalf("unexpected stored events %#v", store.events)
	}
	if err := h.Handle(context.Background(), []byte(`{"tier":"pro"}`)); err == nil {
		t.Fatalf("expected error for missing conn_id")
	}

	store.err = errors.New("clickhouse down")
	if err := h.Handle(context.Background(), []byte(`{"conn_id":"c2"}`)); err == nil || m.errors["frame_event_store"] != 1 {
		t.Fatalf("expected store error to surface")
	}
}
