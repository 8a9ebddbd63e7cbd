package push

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"shellbridge/internal/platform/config"
	"shellbridge/internal/platform/logging"
)

const logTag = "PUSH"

// TokenSource supplies the current platform push token. The token is
// minted by the platform notification service outside this process.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to a TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

type tokenPayload struct {
	Token    string `json:"token"`
	Platform string `json:"platform,omitempty"`
}

// Registrar exchanges the push token with a remote endpoint using a
// bounded exponential backoff. Exhausted retries surface as a boolean
// failure, never an error.
type Registrar struct {
	cfg    config.PushConfig
	source TokenSource
	client *http.Client
	logger *logging.Logger
}

// NewRegistrar builds a registrar with the configured retry tuning.
func NewRegistrar(cfg config.PushConfig, source TokenSource, logger *logging.Logger) *Registrar {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Registrar{
		cfg:    cfg,
		source: source,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Register announces the push token to the endpoint.
func (r *Registrar) Register(ctx context.Context, endpoint string) bool {
	return r.exchange(ctx, http.MethodPost, endpoint)
}

// Unregister withdraws the push token from the endpoint.
func (r *Registrar) Unregister(ctx context.Context, endpoint string) bool {
	return r.exchange(ctx, http.MethodDelete, endpoint)
}

func (r *Registrar) exchange(ctx context.Context, method, endpoint string) bool {
	if endpoint == "" {
		r.logger.WarnTag(logTag, "no endpoint configured, skipping %s", method)
		return false
	}

	token, err := r.source.Token(ctx)
	if err != nil || token == "" {
		r.logger.WarnTag(logTag, "push token unavailable: %v", err)
		return false
	}

	body, err := sonic.Marshal(tokenPayload{Token: token})
	if err != nil {
		r.logger.ErrorTag(logTag, "encode token payload: %v", err)
		return false
	}

	delay := r.cfg.InitialDelay
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		if r.attempt(ctx, method, endpoint, body) {
			r.logger.InfoTag(logTag, "%s %s succeeded on attempt %d", method, endpoint, attempt)
			return true
		}
		if attempt == r.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			r.logger.WarnTag(logTag, "%s %s aborted: %v", method, endpoint, ctx.Err())
			return false
		case <-time.After(delay):
		}
		delay *= 2
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}

	r.logger.WarnTag(logTag, "%s %s failed after %d attempts", method, endpoint, r.cfg.MaxRetries)
	return false
}

func (r *Registrar) attempt(ctx context.Context, method, endpoint string, body []byte) bool {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		r.logger.WarnTag(logTag, "build request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.DebugTag(logTag, "%s %s: %v", method, endpoint, err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
