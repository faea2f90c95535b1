package runtime_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BDNK1/sflowg-copicake/runtime"
	flowyaml "github.com/BDNK1/sflowg-copicake/runtime/engine/yaml"
	"github.com/gin-gonic/gin"
)

type cardPlugin struct{}

type cardInput struct {
	Title string `json:"title" validate:"required"`
}

func (p *cardPlugin) Render(exec *runtime.Execution, in cardInput) (map[string]any, error) {
	switch in.Title {
	case "busy":
		return nil, runtime.NewTaskError(errors.New("429 too many requests")).WithType(runtime.ErrorTypeTransient)
	case "boom":
		return nil, errors.New("boom")
	}
	return map[string]any{"data": map[string]any{"id": "r-" + in.Title, "status": "success"}}, nil
}

func newTestRouter(t *testing.T, flowYAML string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	container := runtime.NewContainer()
	if err := container.RegisterPlugin("card", &cardPlugin{}); err != nil {
		t.Fatal(err)
	}

	flow, err := flowyaml.Parse([]byte(flowYAML))
	if err != nil {
		t.Fatal(err)
	}

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	evaluator := flowyaml.NewExpressionEvaluator()
	executor := runtime.NewExecutor(l, evaluator, flowyaml.NewStepExecutor(evaluator, l))
	newStore := func() runtime.ValueStore { return flowyaml.NewValueStore() }

	g := gin.New()
	if err := runtime.NewHttpHandler(&flow, container, executor, map[string]any{"env": "test"}, newStore, g); err != nil {
		t.Fatal(err)
	}
	return g
}

const postFlow = `
id: render
entrypoint:
  type: http
  config:
    method: post
    path: /cards/:kind
steps:
  - id: render
    type: card.render
    args:
      title: request.body.title
return:
  args:
    id: render.result.data.id
    kind: request.pathVariables.kind
    size: request.queryParameters.size
    env: properties.env
`

func TestHttpHandler_Post(t *testing.T) {
	g := newTestRouter(t, postFlow)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cards/social?size=large", strings.NewReader(`{"title": "hello"}`))
	g.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"id": "r-hello", "kind": "social", "size": "large", "env": "test"}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("Expected %s=%v, got %v", k, v, body[k])
		}
	}
}

func TestHttpHandler_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		errTyp string
	}{
		{"transient task error", `{"title": "busy"}`, http.StatusBadGateway, "transient"},
		{"plain task error", `{"title": "boom"}`, http.StatusInternalServerError, "permanent"},
		{"invalid input", `{}`, http.StatusInternalServerError, "permanent"},
	}

	g := newTestRouter(t, postFlow)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cards/social", strings.NewReader(tt.body)))

			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}

			var body struct {
				Error runtime.FlowError `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if string(body.Error.Type) != tt.errTyp || body.Error.Step != "render" {
				t.Errorf("Unexpected flow error: %+v", body.Error)
			}
		})
	}
}

func TestHttpHandler_MalformedBody(t *testing.T) {
	g := newTestRouter(t, postFlow)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cards/social", strings.NewReader(`{"title":`)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestHttpHandler_GetWithoutReturn(t *testing.T) {
	g := newTestRouter(t, `
id: ping
entrypoint:
  type: http
  config:
    method: get
    path: /ping
steps:
  - id: noted
    type: assign
    args:
      ok: "true"
`)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"status":"success"}` {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func TestNewHttpHandler_InvalidEntrypoint(t *testing.T) {
	container := runtime.NewContainer()
	g := gin.New()
	newStore := func() runtime.ValueStore { return flowyaml.NewValueStore() }

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing path", map[string]any{"method": "post"}},
		{"unsupported method", map[string]any{"method": "patch", "path": "/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := runtime.Flow{ID: "f", Entrypoint: runtime.Entrypoint{Type: "http", Config: tt.config}}
			if err := runtime.NewHttpHandler(&flow, container, nil, nil, newStore, g); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
