package match

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "spacesim/internal/match"

// metrics uses the global OTel meter, a no-op unless a provider is set
type metrics struct {
	ticks       metric.Int64Counter
	explosions  metric.Int64Counter
	agentErrors metric.Int64Counter
	active      metric.Int64UpDownCounter
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)
	out.ticks, err = m.Int64Counter("match.ticks", metric.WithDescription("Simulation ticks run"))
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	out.explosions, err = m.Int64Counter("match.explosions", metric.WithDescription("Ships destroyed by impacts"))
	if err != nil {
		return nil, fmt.Errorf("creating explosions counter: %w", err)
	}
	out.agentErrors, err = m.Int64Counter("match.agent.errors", metric.WithDescription("Failed agent decisions"))
	if err != nil {
		return nil, fmt.Errorf("creating agent errors counter: %w", err)
	}
	out.active, err = m.Int64UpDownCounter("match.active", metric.WithDescription("Matches currently running"))
	if err != nil {
		return nil, fmt.Errorf("creating active gauge: %w", err)
	}
	return &out, nil
}

func (m *metrics) tick(scenario string) {
	m.ticks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("scenario", scenario)))
}
