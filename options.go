package gptcommands

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// RegistryOption configures a Registry at construction time.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout       time.Duration
	recoverPanics bool
	middlewares   []Middleware
	onBefore      func(ctx context.Context, command string, args map[string]json.RawMessage)
	onAfter       func(ctx context.Context, command string, result string, err error, d time.Duration)
}

// WithInvokeTimeout sets a default timeout applied to every invocation.
func WithInvokeTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithRecoverPanics toggles panic recovery in Invoke (on by default); a
// recovered panic is returned as SystemError.
func WithRecoverPanics(enable bool) RegistryOption {
	return func(o *registryOptions) {
		o.recoverPanics = enable
	}
}

// WithMiddleware applies middlewares to every command's invoker (onion order:
// the first middleware is outermost).
func WithMiddleware(middlewares ...Middleware) RegistryOption {
	return func(o *registryOptions) {
		o.middlewares = middlewares
	}
}

// WithOnBeforeInvoke sets a hook called before each invocation.
func WithOnBeforeInvoke(fn func(ctx context.Context, command string, args map[string]json.RawMessage)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterInvoke sets a hook called after each invocation (success or error).
func WithOnAfterInvoke(fn func(ctx context.Context, command string, result string, err error, d time.Duration)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	apiKey       string
	organization string
	baseURL      string
	maxTokens    int
	temperature  float64
	httpClient   *http.Client
	transport    Transport
	logger       *slog.Logger
}

// WithAPIKey sets the API key. Defaults to the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) ClientOption {
	return func(o *clientOptions) {
		o.apiKey = key
	}
}

// WithOrganization sets the API organization. Defaults to OPENAI_ORGANIZATION.
func WithOrganization(org string) ClientOption {
	return func(o *clientOptions) {
		o.organization = org
	}
}

// WithBaseURL overrides the API base URL (e.g. for a proxy or test server).
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithMaxTokens sets the per-turn completion token limit (default 2000).
func WithMaxTokens(n int) ClientOption {
	return func(o *clientOptions) {
		o.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature (default 0.7).
func WithTemperature(t float64) ClientOption {
	return func(o *clientOptions) {
		o.temperature = t
	}
}

// WithHTTPClient sets the HTTP client used by the default transport.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTransport replaces the default OpenAI transport.
func WithTransport(t Transport) ClientOption {
	return func(o *clientOptions) {
		o.transport = t
	}
}

// WithLogger sets the structured logger. The client is silent by default.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}
