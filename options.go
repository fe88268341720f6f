package qbt

import (
	"net/http"

	"github.com/rs/zerolog"
)

type clientOptions struct {
	transport  Transport
	httpClient *http.Client
	logger     *zerolog.Logger
	invalidate bool
}

// Option customizes a Client at construction.
type Option func(*clientOptions)

// WithTransport replaces the HTTP transport, e.g. with a test double.
// Connection settings of the Config are then ignored.
func WithTransport(t Transport) Option {
	return func(o *clientOptions) { o.transport = t }
}

// WithHTTPClient makes the default transport use c as-is.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithLogger sets the logger. Without it the client is silent unless the
// Config asks for logging.
func WithLogger(l zerolog.Logger) Option {
	return func(o *clientOptions) { o.logger = &l }
}

// WithSessionInvalidation controls whether a 401/403 answer to an
// authenticated call logs the client out locally. It is on by default.
func WithSessionInvalidation(enabled bool) Option {
	return func(o *clientOptions) { o.invalidate = enabled }
}
