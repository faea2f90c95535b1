package copicake

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPollingInterval = 2 * time.Second
	DefaultMaxWait         = 60 * time.Second
)

// PollConfig bounds CreateAndAwait. Zero durations take the defaults;
// negative durations are rejected.
type PollConfig struct {
	WaitForCompletion bool
	PollingInterval   time.Duration
	MaxWait           time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		WaitForCompletion: true,
		PollingInterval:   DefaultPollingInterval,
		MaxWait:           DefaultMaxWait,
	}
}

func (p PollConfig) normalize() (PollConfig, error) {
	if p.PollingInterval < 0 {
		return p, fmt.Errorf("%w: polling interval must be > 0, got %s", ErrInvalidRequest, p.PollingInterval)
	}
	if p.MaxWait < 0 {
		return p, fmt.Errorf("%w: max wait must be > 0, got %s", ErrInvalidRequest, p.MaxWait)
	}
	if p.PollingInterval == 0 {
		p.PollingInterval = DefaultPollingInterval
	}
	if p.MaxWait == 0 {
		p.MaxWait = DefaultMaxWait
	}
	return p, nil
}

// Outcome says why CreateAndAwait returned.
type Outcome string

const (
	// OutcomeNotAwaited: waiting was disabled or the submission had no id.
	OutcomeNotAwaited Outcome = "not_awaited"
	// OutcomeCompleted: the job reached success or failed.
	OutcomeCompleted Outcome = "completed"
	// OutcomeTimedOut: max wait elapsed with the job still in progress.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomePollError: a status fetch failed; Job is the last good state.
	OutcomePollError Outcome = "poll_error"
	// OutcomeCancelled: ctx ended while waiting.
	OutcomeCancelled Outcome = "cancelled"
)

// Result is the last known job state and how the wait ended.
type Result struct {
	Job     *RenderJob
	Outcome Outcome
	Polls   int
	// PollErr is the fetch error behind OutcomePollError.
	PollErr error
}

// CreateAndAwait submits req and, unless poll.WaitForCompletion is false,
// polls until the job is terminal or poll.MaxWait elapses.
//
// Only submission errors are returned. Poll failures, timeouts and
// cancellation end the wait and return the last successfully retrieved
// job, with Outcome telling them apart.
func (c *Client) CreateAndAwait(ctx context.Context, req RenderRequest, poll PollConfig) (*Result, error) {
	poll, err := poll.normalize()
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "copicake.CreateAndAwait", trace.WithAttributes(
		attribute.Bool("copicake.wait", poll.WaitForCompletion),
		attribute.String("copicake.polling_interval", poll.PollingInterval.String()),
		attribute.String("copicake.max_wait", poll.MaxWait.String()),
	))
	defer span.End()

	job, err := c.Submit(ctx, req)
	if err != nil {
		recordError(span, err)
		c.recordRender(ctx, outcomeSubmitFailed, 0)
		return nil, err
	}

	var res *Result
	if !poll.WaitForCompletion || job.ID == "" {
		res = &Result{Job: job, Outcome: OutcomeNotAwaited}
	} else {
		res = c.await(ctx, job, poll)
	}

	span.SetAttributes(
		attribute.String("copicake.outcome", string(res.Outcome)),
		attribute.Int("copicake.polls", res.Polls),
		attribute.String("copicake.status", string(res.Job.Status)),
	)
	c.recordRender(ctx, string(res.Outcome), res.Polls)
	c.l.InfoContext(ctx, "Render finished waiting",
		"render_id", res.Job.ID,
		"status", res.Job.Status,
		"outcome", res.Outcome,
		"polls", res.Polls)
	return res, nil
}

// await polls job until it is terminal. It never sleeps past the deadline,
// so at most floor(MaxWait/PollingInterval) fetches are made.
func (c *Client) await(ctx context.Context, job *RenderJob, poll PollConfig) *Result {
	res := &Result{Job: job}
	deadline := c.clock.Now().Add(poll.MaxWait)

	for {
		if res.Job.Status.Terminal() {
			res.Outcome = OutcomeCompleted
			return res
		}

		now := c.clock.Now()
		if !now.Before(deadline) || now.Add(poll.PollingInterval).After(deadline) {
			res.Outcome = OutcomeTimedOut
			return res
		}

		if err := c.clock.Sleep(ctx, poll.PollingInterval); err != nil {
			res.Outcome = OutcomeCancelled
			return res
		}

		next, err := c.Fetch(ctx, res.Job.ID)
		res.Polls++
		if err != nil {
			if ctx.Err() != nil {
				res.Outcome = OutcomeCancelled
				return res
			}
			c.l.WarnContext(ctx, "Render status poll failed, returning last known state",
				"render_id", res.Job.ID,
				"status", res.Job.Status,
				"error", err)
			res.Outcome = OutcomePollError
			res.PollErr = err
			return res
		}
		if next.ID == "" {
			next.ID = res.Job.ID
		}
		res.Job = next
	}
}
