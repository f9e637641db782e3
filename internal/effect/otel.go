package effect

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Faultbox/entryfx/internal/effect"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the effect instruments. A nil *Metrics records nothing.
type Metrics struct {
	rebuilds metric.Int64Counter
	ticks    metric.Int64Counter
	failures metric.Int64Counter
	dropped  metric.Int64Counter
}

// NewMetrics creates the instruments on m. A nil meter uses the global OTel
// provider (no-op if not configured).
func NewMetrics(m metric.Meter) (*Metrics, error) {
	if m == nil {
		m = meter()
	}

	var (
		out Metrics
		err error
	)

	out.rebuilds, err = m.Int64Counter(
		"entryfx.rebuilds",
		metric.WithDescription("Geometry rebuilds (bounds and envelope discovery)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rebuilds counter: %w", err)
	}

	out.ticks, err = m.Int64Counter(
		"entryfx.ticks",
		metric.WithDescription("Simulation steps processed by active effects"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	out.failures, err = m.Int64Counter(
		"entryfx.geometry.failures",
		metric.WithDescription("Loads suppressed because no eligible geometry was found"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	out.dropped, err = m.Int64Counter(
		"entryfx.events.dropped",
		metric.WithDescription("Host events dropped due to a full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return &out, nil
}

func (m *Metrics) rebuild(vehicle string, structural bool) {
	if m == nil {
		return
	}
	m.rebuilds.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("vehicle", vehicle),
		attribute.Bool("structural", structural),
	))
}

func (m *Metrics) tick(vehicle string) {
	if m == nil {
		return
	}
	m.ticks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("vehicle", vehicle)))
}

func (m *Metrics) failure(vehicle string) {
	if m == nil {
		return
	}
	m.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("vehicle", vehicle)))
}

func (m *Metrics) drop(kind EventKind) {
	if m == nil {
		return
	}
	m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", kind.String())))
}
