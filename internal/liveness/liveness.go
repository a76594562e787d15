// Package liveness keeps the service reachable on a sleep-prone host.
//
// It runs two independent loops on the shared scheduler: a periodic
// self-ping that keeps the host from suspending an idle process, and a
// webhook maintainer that detects a drifted or missing webhook registration
// and repairs it. Both loops tolerate unbounded transient failures by
// logging and continuing on their normal schedule.
package liveness

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Default loop timings.
const (
	DefaultWarmup        = 30 * time.Second
	DefaultPingInterval  = 10 * time.Minute
	DefaultCheckInterval = 15 * time.Minute
	defaultHTTPTimeout   = 10 * time.Second
)

// WebhookManager is the transport surface the maintainer loop needs.
type WebhookManager interface {
	WebhookURL(ctx context.Context) (string, error)
	SetWebhook(ctx context.Context, url string) error
	DeleteWebhook(ctx context.Context) error
	Identity(ctx context.Context) (string, error)
}

// JobScheduler registers recurring tasks. Implemented by the scheduler
// package.
type JobScheduler interface {
	AddEvery(interval time.Duration, task func())
}

// Supervisor owns the self-ping and maintainer loops. It shares nothing
// mutable with session handling; everything here is read-only after Start.
type Supervisor struct {
	sched         JobScheduler
	manager       WebhookManager
	client        *http.Client
	baseURL       string
	webhookURL    string
	warmup        time.Duration
	pingInterval  time.Duration
	checkInterval time.Duration
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithBaseURL sets the public base URL the self-ping loop targets. Empty
// disables the loop.
func WithBaseURL(url string) Option {
	return func(s *Supervisor) { s.baseURL = url }
}

// WithWebhookURL sets the webhook target the maintainer keeps registered.
// Empty disables the loop.
func WithWebhookURL(url string) Option {
	return func(s *Supervisor) { s.webhookURL = url }
}

// WithHTTPClient overrides the ping HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Supervisor) { s.client = client }
}

// WithWarmup sets the delay before the first self-ping.
func WithWarmup(d time.Duration) Option {
	return func(s *Supervisor) { s.warmup = d }
}

// WithPingInterval sets the self-ping period.
func WithPingInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.pingInterval = d }
}

// WithCheckInterval sets the webhook check period.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.checkInterval = d }
}

// NewSupervisor creates the liveness supervisor.
func NewSupervisor(sched JobScheduler, manager WebhookManager, opts ...Option) *Supervisor {
	s := &Supervisor{
		sched:         sched,
		manager:       manager,
		client:        &http.Client{Timeout: defaultHTTPTimeout},
		warmup:        DefaultWarmup,
		pingInterval:  DefaultPingInterval,
		checkInterval: DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs the initial webhook registration check and registers both
// loops on the scheduler. The self-ping loop begins after the warm-up delay
// so the service is fully up before it pings itself.
func (s *Supervisor) Start(ctx context.Context) {
	if s.webhookURL != "" {
		s.ensureWebhook(ctx)
		s.sched.AddEvery(s.checkInterval, func() {
			s.ensureWebhook(context.Background())
		})
		slog.Info("Liveness maintainer loop registered", "interval", s.checkInterval, "webhook_url", s.webhookURL)
	} else {
		slog.Warn("Liveness maintainer loop disabled, no webhook URL configured")
	}

	if s.baseURL != "" {
		time.AfterFunc(s.warmup, func() {
			s.ping()
			s.sched.AddEvery(s.pingInterval, s.ping)
			slog.Info("Liveness self-ping loop registered", "interval", s.pingInterval, "base_url", s.baseURL)
		})
	} else {
		slog.Warn("Liveness self-ping loop disabled, no base URL configured")
	}
}

// ping issues lightweight requests against the service's own public
// endpoints. Failures are logged and the loop continues.
func (s *Supervisor) ping() {
	for _, path := range []string{"", "/health"} {
		url := s.baseURL + path
		resp, err := s.client.Get(url)
		if err != nil {
			slog.Error("Liveness self-ping failed", "error", err, "url", url)
			continue
		}
		resp.Body.Close()
		slog.Debug("Liveness self-ping OK", "url", url, "status", resp.StatusCode)
	}
}

// ensureWebhook re-validates the registered webhook target and repairs a
// drifted or absent registration by deleting and re-registering it.
func (s *Supervisor) ensureWebhook(ctx context.Context) {
	current, err := s.manager.WebhookURL(ctx)
	if err != nil {
		slog.Error("Liveness webhook check failed", "error", err)
		return
	}

	if current != s.webhookURL {
		slog.Warn("Liveness detected webhook drift, re-registering", "current", current, "expected", s.webhookURL)
		if err := s.manager.DeleteWebhook(ctx); err != nil {
			slog.Error("Liveness failed to delete drifted webhook", "error", err)
			return
		}
		if err := s.manager.SetWebhook(ctx, s.webhookURL); err != nil {
			slog.Error("Liveness failed to re-register webhook", "error", err)
			return
		}
		slog.Info("Liveness repaired webhook registration", "url", s.webhookURL)
	} else {
		slog.Debug("Liveness webhook registration matches", "url", current)
	}

	identity, err := s.manager.Identity(ctx)
	if err != nil {
		slog.Error("Liveness identity check failed", "error", err)
		return
	}
	slog.Debug("Liveness identity check OK", "identity", identity)
}
