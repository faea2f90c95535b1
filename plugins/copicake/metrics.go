package copicake

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// outcomeSubmitFailed labels renders whose submission was rejected.
const outcomeSubmitFailed = "submit_failed"

// newInstruments creates the render metrics. Creation errors go to the otel
// error handler and leave no-op instruments in place.
func newInstruments(m metric.Meter) (metric.Int64Counter, metric.Int64Histogram) {
	renders, err := m.Int64Counter("copicake.renders",
		metric.WithDescription("Renders requested, by how the wait ended"),
		metric.WithUnit("{render}"))
	if err != nil {
		otel.Handle(err)
		renders = noop.Int64Counter{}
	}

	polls, err := m.Int64Histogram("copicake.render.polls",
		metric.WithDescription("Status fetches made while waiting for a render"),
		metric.WithUnit("{poll}"))
	if err != nil {
		otel.Handle(err)
		polls = noop.Int64Histogram{}
	}
	return renders, polls
}

func (c *Client) recordRender(ctx context.Context, outcome string, polls int) {
	attrs := metric.WithAttributes(attribute.String("copicake.outcome", outcome))
	c.renders.Add(ctx, 1, attrs)
	if outcome != outcomeSubmitFailed {
		c.polls.Record(ctx, int64(polls), attrs)
	}
}
