package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	PathVariablesPrefix   = "request.pathVariables"
	QueryParametersPrefix = "request.queryParameters"
	RequestBodyKey        = "request.body"
)

var wrongBodyFormatRes = gin.H{"message": "Wrong request body format"}

// NewHttpHandler registers a gin route that runs flow for every request.
// The entrypoint config must carry "method" (GET or POST) and "path".
func NewHttpHandler(flow *Flow, container *Container, executor *Executor, globalProperties map[string]any, newStore func() ValueStore, g *gin.Engine) error {
	config := flow.Entrypoint.Config
	method, _ := config["method"].(string)
	path, _ := config["path"].(string)
	if path == "" {
		return fmt.Errorf("flow %s: http entrypoint requires a path", flow.ID)
	}

	h := &flowHandler{
		flow:       flow,
		container:  container,
		executor:   executor,
		properties: globalProperties,
		newStore:   newStore,
	}

	switch strings.ToLower(method) {
	case "get":
		g.GET(path, h.handle(false))
	case "post", "":
		g.POST(path, h.handle(true))
	default:
		return fmt.Errorf("flow %s: method %s is not supported", flow.ID, method)
	}

	slog.Info("Registered HTTP entrypoint", "flow", flow.ID, "method", strings.ToUpper(method), "path", path)
	return nil
}

type flowHandler struct {
	flow       *Flow
	container  *Container
	executor   *Executor
	properties map[string]any
	newStore   func() ValueStore
}

func (h *flowHandler) handle(withBody bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := NewExecution(h.flow, h.container, h.properties, h.newStore())
		if err != nil {
			slog.Error("Failed to create execution", "flow", h.flow.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		e = e.WithContext(c.Request.Context())

		for _, p := range c.Params {
			e.AddValue(PathVariablesPrefix+"."+p.Key, p.Value)
		}
		for k, v := range c.Request.URL.Query() {
			if len(v) > 0 {
				e.AddValue(QueryParametersPrefix+"."+k, v[0])
			}
		}

		if withBody {
			body, err := readJSONBody(c.Request.Body)
			if err != nil {
				c.JSON(http.StatusBadRequest, wrongBodyFormatRes)
				return
			}
			e.AddValue(RequestBodyKey, body)
		}

		result, err := h.executor.Run(e)
		if err != nil {
			var fe *FlowError
			if !errors.As(err, &fe) {
				fe = NewFlowError("", err)
			}
			slog.Error("Flow execution failed",
				"flow", h.flow.ID,
				"execution", e.ID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"error", err.Error())
			c.JSON(statusForFlowError(fe), gin.H{"error": fe})
			return
		}

		if len(result) == 0 {
			c.JSON(http.StatusOK, gin.H{"status": "success"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func readJSONBody(r io.Reader) (any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func statusForFlowError(fe *FlowError) int {
	switch fe.Type {
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
