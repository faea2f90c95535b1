package copicake

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
)

// RenderOptions are the optional render settings sent to the API.
type RenderOptions struct {
	Format     Format `json:"format,omitempty" validate:"omitempty,oneof=png jpg"`
	WebhookURL string `json:"webhook_url,omitempty" validate:"omitempty,url"`
}

// IsZero reports whether no option is set; such options are left out of
// the request body entirely.
func (o RenderOptions) IsZero() bool {
	return o.Format == "" && o.WebhookURL == ""
}

// RenderRequest asks the API to render a template with changes applied.
type RenderRequest struct {
	TemplateID string        `validate:"required"`
	Changes    []Change      // order is preserved on the wire
	Options    RenderOptions
}

type renderRequestWire struct {
	TemplateID string         `json:"template_id"`
	Changes    []Change       `json:"changes"`
	Options    *RenderOptions `json:"options,omitempty"`
}

// MarshalJSON produces {template_id, changes, options?}. changes is always
// an array; options only appears when at least one option is set.
func (r RenderRequest) MarshalJSON() ([]byte, error) {
	w := renderRequestWire{
		TemplateID: r.TemplateID,
		Changes:    r.Changes,
	}
	if w.Changes == nil {
		w.Changes = []Change{}
	}
	if !r.Options.IsZero() {
		opts := r.Options
		w.Options = &opts
	}
	return json.Marshal(w)
}

// Validate checks the request before it is sent.
func (r RenderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for i, c := range r.Changes {
		if c == nil {
			return fmt.Errorf("%w: change %d is nil", ErrInvalidRequest, i)
		}
		if err := validate.Struct(c); err != nil {
			return fmt.Errorf("%w: change %d (%s): %v", ErrInvalidRequest, i, c.Type(), err)
		}
	}
	return nil
}
