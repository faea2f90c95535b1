package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BDNK1/sflowg-copicake/runtime"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve flows over HTTP",
	Long: `Serve loads every flow in the flows directory and registers one HTTP
route per flow with an http entrypoint.

Example:
  copicake-flow serve
  copicake-flow serve --config ./deploy/flow-config.yaml --port 9090
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP server port (overrides runtime.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Runtime.Port = servePort
	}

	l := slog.Default()
	h, err := newHost(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer h.shutdown()

	g, err := h.router()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Runtime.Port,
		Handler: g,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// router registers every flow with an http entrypoint.
func (h *host) router() (*gin.Engine, error) {
	g := gin.New()
	g.Use(gin.Recovery())

	for id := range h.app.Flows {
		flow := h.app.Flows[id]
		if flow.Entrypoint.Type != "http" {
			h.l.Debug("Flow has no http entrypoint, not routed", "flow", id, "entrypoint", flow.Entrypoint.Type)
			continue
		}
		if err := runtime.NewHttpHandler(&flow, h.container, h.executor, h.cfg.Properties, h.newStore, g); err != nil {
			return nil, err
		}
	}
	return g, nil
}
