package copicake

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://api.copicake.com"

	createPath = "/v1/image/create"
	getPath    = "/v1/image/get"
	mePath     = "/v1/user/me"

	tracerName = "github.com/BDNK1/sflowg-copicake/plugins/copicake"
)

// Client talks to the Copicake image API. It is safe for concurrent use;
// each call is independent.
type Client struct {
	http  *resty.Client
	clock Clock
	l     *slog.Logger

	tp      trace.TracerProvider
	mp      metric.MeterProvider
	tracer  trace.Tracer
	renders metric.Int64Counter
	polls   metric.Int64Histogram
}

type Option func(*Client)

// WithClock replaces the poll loop's time source.
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.l = l }
}

// WithTracerProvider overrides the global otel tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tp = tp }
}

// WithMeterProvider overrides the global otel meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) { c.mp = mp }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

func WithDebug(debug bool) Option {
	return func(c *Client) { c.http.SetDebug(debug) }
}

// NewClient creates a client authenticated with creds against baseURL
// (DefaultBaseURL when empty).
func NewClient(creds Credentials, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		http:  configure(resty.New(), baseURL, creds.APIKey),
		clock: systemClock{},
		l:     slog.Default(),
		tp:    otel.GetTracerProvider(),
		mp:    otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.tracer = c.tp.Tracer(tracerName)
	c.renders, c.polls = newInstruments(c.mp.Meter(tracerName))
	return c
}

// configure applies base URL, bearer authentication and JSON content
// negotiation. Retries stay disabled: a render is created at most once per
// call.
func configure(rc *resty.Client, baseURL, apiKey string) *resty.Client {
	return rc.
		SetBaseURL(baseURL).
		SetAuthScheme("Bearer").
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
}

// Submit sends a render request and returns the job as first reported by
// the server, typically pending or processing.
func (c *Client) Submit(ctx context.Context, req RenderRequest) (*RenderJob, error) {
	ctx, span := c.tracer.Start(ctx, "copicake.Submit", trace.WithAttributes(
		attribute.String("copicake.template_id", req.TemplateID),
		attribute.Int("copicake.changes", len(req.Changes)),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		recordError(span, err)
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(createPath)

	job, err := decodeResponse(http.MethodPost, createPath, resp, err)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("copicake.render_id", job.ID),
		attribute.String("copicake.status", string(job.Status)),
	)
	c.l.DebugContext(ctx, "Render submitted",
		"template_id", req.TemplateID,
		"render_id", job.ID,
		"status", job.Status)
	return job, nil
}

// Fetch retrieves the current state of a render.
func (c *Client) Fetch(ctx context.Context, id string) (*RenderJob, error) {
	ctx, span := c.tracer.Start(ctx, "copicake.Fetch", trace.WithAttributes(
		attribute.String("copicake.render_id", id),
	))
	defer span.End()

	if id == "" {
		err := fmt.Errorf("%w: rendering id is required", ErrInvalidRequest)
		recordError(span, err)
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", id).
		Get(getPath)

	job, err := decodeResponse(http.MethodGet, getPath, resp, err)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("copicake.status", string(job.Status)))
	return job, nil
}

// GetByID is a one-shot status check for a known render id; it never polls.
func (c *Client) GetByID(ctx context.Context, id string) (*RenderJob, error) {
	return c.Fetch(ctx, id)
}

func decodeResponse(method, path string, resp *resty.Response, err error) (*RenderJob, error) {
	if err := checkResponse(method, path, resp, err); err != nil {
		return nil, err
	}
	return parseJob(resp.Body())
}

// checkResponse turns transport failures into wrapped errors and non-2xx
// responses into *RemoteError.
func checkResponse(method, path string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("copicake: %s %s: %w", method, path, err)
	}
	if !resp.IsSuccess() {
		return &RemoteError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
