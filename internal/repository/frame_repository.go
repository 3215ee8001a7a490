package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ChartSense/internal/domain/models"
	"ChartSense/internal/domain/repository"
	pkgkafka "ChartSense/pkg/kafka"
	applogger "ChartSense/pkg/logger"
)

// DefaultFrameEventsTable is where frame analytics land in ClickHouse.
const DefaultFrameEventsTable = "frame_events"

const frameEventColumns = "(ts, conn_id, user_id, tier, width, height, series_len, slope, direction, emitted, overlays, duration_ms)"

// FrameEventsSchema returns idempotent DDL for the frame events table.
func FrameEventsSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts          DateTime64(3),
            conn_id     String,
            user_id     String,
            tier        LowCardinality(String),
            width       UInt32,
            height      UInt32,
            series_len  UInt32,
            slope       Float64,
            direction   LowCardinality(String),
            emitted     UInt8,
            overlays    UInt16,
            duration_ms Float64
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMMDD(ts)
        ORDER BY (tier, ts)
        TTL toDateTime(ts) + INTERVAL 30 DAY
    `, table)}
}

// ClickHouseFrameStore persists frame events in ClickHouse.
type ClickHouseFrameStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseFrameStore creates the store. An empty table uses
// DefaultFrameEventsTable.
func NewClickHouseFrameStore(db *sql.DB, table string, l *applogger.Logger) *ClickHouseFrameStore {
	if table == "" {
		table = DefaultFrameEventsTable
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseFrameStore{db: db, table: table, l: l}
}

var _ repository.FrameEventStore = (*ClickHouseFrameStore)(nil)

func (s *ClickHouseFrameStore) Store(ctx context.Context, ev *models.FrameEvent) error {
	return s.StoreBatch(ctx, []*models.FrameEvent{ev})
}

// StoreBatch inserts events as multi-row VALUES chunks. Nil events are skipped.
func (s *ClickHouseFrameStore) StoreBatch(ctx context.Context, evs []*models.FrameEvent) error {
	const chunkSize = 2000
	start := time.Now()
	rows := 0
	for lo := 0; lo < len(evs); lo += chunkSize {
		hi := min(lo+chunkSize, len(evs))
		q, args := buildFrameInsert(s.table, evs[lo:hi])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse frame_events insert error",
				applogger.String("table", s.table),
				applogger.Int("rows", hi-lo),
				applogger.Error(err),
			)
			return fmt.Errorf("insert frame events: %w", err)
		}
		rows += len(args) / 12
	}
	if rows > 0 {
		s.l.Debug("clickhouse frame_events insert ok",
			applogger.String("table", s.table),
			applogger.Int("rows", rows),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func buildFrameInsert(table string, evs []*models.FrameEvent) (string, []interface{}) {
	values := make([]string, 0, len(evs))
	args := make([]interface{}, 0, len(evs)*12)
	for _, ev := range evs {
		if ev == nil || ev.ConnID == "" {
			continue
		}
		var emitted uint8
		if ev.Emitted {
			emitted = 1
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			ev.At.UTC(),
			ev.ConnID,
			ev.UserID,
			string(ev.Tier),
			uint32(ev.Width),
			uint32(ev.Height),
			uint32(ev.SeriesLen),
			ev.Slope,
			ev.Direction,
			emitted,
			uint16(ev.Overlays),
			ev.DurationMs,
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s %s VALUES %s", table, frameEventColumns, strings.Join(values, ","))
	return q, args
}

func (s *ClickHouseFrameStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the connection pool belongs to pkg/clickhouse.
func (s *ClickHouseFrameStore) Close() error {
	return nil
}

// KafkaFrameEventPublisher ships frame events to Kafka keyed by connection.
type KafkaFrameEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaFrameEventPublisher creates the publisher.
func NewKafkaFrameEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaFrameEventPublisher {
	return &KafkaFrameEventPublisher{producer: producer, topic: topic}
}

var _ repository.FrameEventPublisher = (*KafkaFrameEventPublisher)(nil)

func (p *KafkaFrameEventPublisher) Publish(ctx context.Context, ev *models.FrameEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.ConnID), ev)
}

func (p *KafkaFrameEventPublisher) PublishBatch(ctx context.Context, evs []*models.FrameEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(evs))
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(ev.ConnID), Value: ev})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaFrameEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
