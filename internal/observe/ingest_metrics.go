package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// IngestMetrics counts message outcomes per channel. All methods are nil-safe
// so callers need not guard against a disabled pipeline.
type IngestMetrics struct {
	received  metric.Int64Counter
	rejected  metric.Int64Counter
	dropped   metric.Int64Counter
	persisted metric.Int64Counter
	failed    metric.Int64Counter
}

// NewIngestMetrics builds the ingest counters on the given meter.
func NewIngestMetrics(meter metric.Meter) (*IngestMetrics, error) {
	m := &IngestMetrics{}
	var err error
	if m.received, err = meter.Int64Counter("ingest.messages.received",
		metric.WithDescription("Inbound pub/sub messages, before validation")); err != nil {
		return nil, err
	}
	if m.rejected, err = meter.Int64Counter("ingest.messages.rejected",
		metric.WithDescription("Messages dropped for malformed or incomplete payloads")); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("ingest.messages.dropped",
		metric.WithDescription("Valid messages dropped because the write queue was full")); err != nil {
		return nil, err
	}
	if m.persisted, err = meter.Int64Counter("ingest.records.persisted",
		metric.WithDescription("Records written to the store")); err != nil {
		return nil, err
	}
	if m.failed, err = meter.Int64Counter("ingest.records.failed",
		metric.WithDescription("Records lost to persistence failures")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IngestMetrics) add(ctx context.Context, c metric.Int64Counter, channel string) {
	if m == nil || c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}

func (m *IngestMetrics) Received(ctx context.Context, channel string) {
	if m != nil {
		m.add(ctx, m.received, channel)
	}
}

func (m *IngestMetrics) Rejected(ctx context.Context, channel string) {
	if m != nil {
		m.add(ctx, m.rejected, channel)
	}
}

func (m *IngestMetrics) Dropped(ctx context.Context, channel string) {
	if m != nil {
		m.add(ctx, m.dropped, channel)
	}
}

func (m *IngestMetrics) Persisted(ctx context.Context, channel string) {
	if m != nil {
		m.add(ctx, m.persisted, channel)
	}
}

func (m *IngestMetrics) Failed(ctx context.Context, channel string) {
	if m != nil {
		m.add(ctx, m.failed, channel)
	}
}
