package copicake

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BDNK1/sflowg-copicake/runtime/plugin"
)

// Config holds the Copicake plugin configuration with declarative tags
type Config struct {
	APIKey        string        `yaml:"api_key" validate:"required"`
	BaseURL       string        `yaml:"base_url" default:"https://api.copicake.com" validate:"url_format"`
	Timeout       time.Duration `yaml:"timeout" default:"30s" validate:"gte=1s"`
	Debug         bool          `yaml:"debug" default:"false"`
	VerifyOnStart bool          `yaml:"verify_on_start" default:"false"`
}

// CreateInput is the input of copicake.create.
type CreateInput struct {
	TemplateID string        `json:"template_id" validate:"required"`
	Changes    []ChangeSpec  `json:"changes" validate:"dive"`
	Options    CreateOptions `json:"options"`
}

// CreateOptions mirrors the node's "Additional Options". Zero numbers fall
// back to the poll defaults; WaitForCompletion defaults to true.
type CreateOptions struct {
	Format            Format  `json:"format" validate:"omitempty,oneof=png jpg"`
	WebhookURL        string  `json:"webhook_url" validate:"omitempty,url"`
	WaitForCompletion *bool   `json:"wait_for_completion"`
	PollingInterval   float64 `json:"polling_interval" validate:"gte=0"` // seconds
	MaxWaitTime       float64 `json:"max_wait_time" validate:"gte=0"`    // seconds
}

// GetInput is the input of copicake.get.
type GetInput struct {
	RenderingID string `json:"rendering_id" validate:"required"`
}

// CopicakePlugin exposes the image resource as tasks copicake.create and
// copicake.get.
type CopicakePlugin struct {
	Config Config // Exported so the host can set it during initialization
	Logger *slog.Logger

	opts   []Option
	client atomic.Pointer[Client]
}

// NewPlugin returns a plugin whose client will be built with opts in
// addition to the ones derived from Config.
func NewPlugin(opts ...Option) *CopicakePlugin {
	return &CopicakePlugin{opts: opts}
}

// Initialize implements plugin.Initializer.
// Config is already defaulted and validated by the host.
func (p *CopicakePlugin) Initialize(exec *plugin.Execution) error {
	l := p.Logger
	if l == nil {
		l = slog.Default()
	}

	opts := []Option{
		WithTimeout(p.Config.Timeout),
		WithDebug(p.Config.Debug),
		WithLogger(l.With("plugin", "copicake")),
	}
	client := NewClient(Credentials{APIKey: p.Config.APIKey}, p.Config.BaseURL, append(opts, p.opts...)...)

	if p.Config.VerifyOnStart {
		if _, err := client.Verify(exec); err != nil {
			return fmt.Errorf("copicake: credential check failed: %w", err)
		}
	}
	p.client.Store(client)
	return nil
}

// Shutdown implements plugin.Shutdowner. Tasks already holding the client
// finish normally; later ones fail as not initialized.
func (p *CopicakePlugin) Shutdown(exec *plugin.Execution) error {
	p.client.Store(nil)
	return nil
}

// Client returns the initialized API client, or nil after Shutdown.
func (p *CopicakePlugin) Client() *Client {
	return p.client.Load()
}

var errNotInitialized = errors.New("copicake: plugin not initialized")

// Create renders an image from a template and, unless disabled, waits for
// the render to finish. The output is the API response as received.
func (p *CopicakePlugin) Create(exec *plugin.Execution, input CreateInput) (plugin.Output, error) {
	client := p.client.Load()
	if client == nil {
		return nil, errNotInitialized
	}

	req, poll, err := input.toRequest()
	if err != nil {
		return nil, plugin.NewTaskError(err).WithType(plugin.ErrorTypePermanent)
	}

	res, err := client.CreateAndAwait(exec, req, poll)
	if err != nil {
		return nil, taskError(err)
	}
	return res.Job.Payload, nil
}

// Get fetches an existing render by id without polling.
func (p *CopicakePlugin) Get(exec *plugin.Execution, input GetInput) (plugin.Output, error) {
	client := p.client.Load()
	if client == nil {
		return nil, errNotInitialized
	}

	job, err := client.GetByID(exec, input.RenderingID)
	if err != nil {
		return nil, taskError(err)
	}
	return job.Payload, nil
}

func (in CreateInput) toRequest() (RenderRequest, PollConfig, error) {
	changes, err := BuildChanges(in.Changes)
	if err != nil {
		return RenderRequest{}, PollConfig{}, err
	}

	req := RenderRequest{
		TemplateID: in.TemplateID,
		Changes:    changes,
		Options: RenderOptions{
			Format:     in.Options.Format,
			WebhookURL: in.Options.WebhookURL,
		},
	}

	poll := DefaultPollConfig()
	if in.Options.WaitForCompletion != nil {
		poll.WaitForCompletion = *in.Options.WaitForCompletion
	}
	if in.Options.PollingInterval > 0 {
		poll.PollingInterval = seconds(in.Options.PollingInterval)
	}
	if in.Options.MaxWaitTime > 0 {
		poll.MaxWait = seconds(in.Options.MaxWaitTime)
	}
	return req, poll, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// taskError classifies API failures for the host: throttling and server
// errors are transient, everything else permanent.
func taskError(err error) error {
	te := plugin.NewTaskError(err).WithType(plugin.ErrorTypePermanent)
	if re, ok := IsRemoteError(err); ok {
		te.WithMetadata("status_code", re.StatusCode)
		if re.Temporary() {
			te.WithType(plugin.ErrorTypeTransient)
		}
	}
	return te
}
