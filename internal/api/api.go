// Package api provides the HTTP surface of the intake bot: the webhook
// ingress that feeds the conversation flow and the health endpoints used by
// the liveness supervisor and the hosting platform.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rahimovschool/intakebot/internal/models"
)

// Default server configuration.
const (
	DefaultAddr            = ":5000"
	shutdownTimeout        = 5 * time.Second
	maxWebhookBodyBytes    = 1 << 20
	defaultWebhookBasePath = "/webhook/"
)

// MessageHandler receives decoded inbound messages. Implemented by the
// conversation flow.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg models.IncomingMessage)
}

// DecodeFunc turns a raw webhook body into a message. ok=false means the
// update type is ignored.
type DecodeFunc func(body io.Reader) (models.IncomingMessage, bool, error)

// Status summarizes service health for the health endpoints.
type Status struct {
	Status          string `json:"status"`
	SheetsConnected bool   `json:"sheets_connected"`
	ActiveSessions  int    `json:"active_sessions"`
}

// Opts holds server configuration.
type Opts struct {
	Addr        string
	WebhookPath string
	StatusFunc  func() Status
}

// Option configures the server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithWebhookPath sets the secret webhook path, including the leading
// slash. The path embeds the bot token so only the transport can reach it.
func WithWebhookPath(path string) Option {
	return func(o *Opts) { o.WebhookPath = path }
}

// WithStatusFunc sets the callback that produces the health summary.
func WithStatusFunc(fn func() Status) Option {
	return func(o *Opts) { o.StatusFunc = fn }
}

// Server hosts the webhook ingress and health endpoints.
type Server struct {
	handler MessageHandler
	decode  DecodeFunc
	opts    Opts
}

// NewServer creates the HTTP server.
func NewServer(handler MessageHandler, decode DecodeFunc, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, WebhookPath: defaultWebhookBasePath}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewServer invoked", "addr", cfg.Addr, "webhook_path_set", cfg.WebhookPath != defaultWebhookBasePath)
	return &Server{handler: handler, decode: decode, opts: cfg}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Handler returns the server's HTTP handler, used directly in tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc(s.opts.WebhookPath, s.webhookHandler)
	return mux
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, s.status())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, s.status())
}

// webhookHandler decodes one transport update and hands it to the flow.
// It always acknowledges with 200 regardless of internal outcome so the
// transport never enters a retry storm; errors are logged only.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	msg, ok, err := s.decode(body)
	switch {
	case err != nil:
		slog.Error("Webhook ingress failed to decode update", "error", err)
	case !ok:
		slog.Debug("Webhook ingress ignored update without a handleable message")
	default:
		s.handler.HandleMessage(r.Context(), msg)
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Webhook ingress failed to write acknowledgment", "error", err)
	}
}

func (s *Server) status() Status {
	if s.opts.StatusFunc != nil {
		return s.opts.StatusFunc()
	}
	return Status{Status: "ok"}
}
