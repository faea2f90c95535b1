package copicake

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Jeffail/gabs/v2"
)

// Status is the server-reported render status. Only StatusSuccess and
// StatusFailed are terminal; any other value, known or not, means the
// render is still in progress.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// RenderJob is the client's view of a server-side render. Payload is the
// full response body, kept unmodified so server-defined fields such as the
// output URL reach the caller.
type RenderJob struct {
	ID      string
	Status  Status
	Payload map[string]any
}

// MarshalJSON emits the server payload as received.
func (j RenderJob) MarshalJSON() ([]byte, error) {
	if j.Payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j.Payload)
}

// Field returns a value from the payload by dotted path, e.g. "data.url".
func (j RenderJob) Field(path string) (any, bool) {
	c := gabs.Wrap(j.Payload)
	if !c.ExistsP(path) {
		return nil, false
	}
	return c.Path(path).Data(), true
}

// parseJob decodes a create/get response: {"data": {"id": ..., "status": ...}, ...}.
// A missing id or status leaves the field empty.
func parseJob(body []byte) (*RenderJob, error) {
	parsed, payload, err := decodePayload(body)
	if err != nil {
		return nil, err
	}

	job := &RenderJob{Payload: payload}
	if id, ok := parsed.Path("data.id").Data().(string); ok {
		job.ID = id
	}
	if status, ok := parsed.Path("data.status").Data().(string); ok {
		job.Status = Status(status)
	}
	return job, nil
}

// decodePayload parses a JSON object response body. Numbers are kept as
// json.Number so integers beyond 2^53 pass through unchanged.
func decodePayload(body []byte) (*gabs.Container, map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	parsed, err := gabs.ParseJSONDecoder(dec)
	if err != nil {
		return nil, nil, fmt.Errorf("copicake: decode response: %w", err)
	}

	payload, ok := parsed.Data().(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("copicake: unexpected response payload of type %T", parsed.Data())
	}
	return parsed, payload, nil
}
