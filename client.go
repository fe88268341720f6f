package qbt

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jfxdev/go-qbtapi/internal/logger"
	"github.com/rs/zerolog"
)

// Client is a typed qBittorrent Web API client. It owns one transport and
// one session shared by its façades. Use one Client per account.
type Client struct {
	mu     sync.RWMutex
	config Config

	core *core
	// httpTransport is nil when a custom transport was supplied.
	httpTransport *HTTPTransport

	auth     *AuthAPI
	app      *ApplicationAPI
	torrents *TorrentsAPI
	transfer *TransferAPI
	rss      *RSSAPI
	search   *SearchAPI
}

// New validates config, fills defaults and builds a client. No request is
// sent; call Login before authenticated operations.
func New(config Config, opts ...Option) (*Client, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := clientOptions{invalidate: true}
	for _, opt := range opts {
		opt(&o)
	}

	log, err := newLogger(config, o.logger)
	if err != nil {
		return nil, err
	}

	qb := &Client{config: config}

	transport := o.transport
	if transport == nil {
		topts := []TransportOption{
			WithTransportLogger(log),
			WithClientOptions(config.clientOptions()),
			WithUserAgent(config.UserAgent),
			WithRateLimiter(config.rateLimiter()),
		}
		if o.httpClient != nil {
			topts = append(topts, WithTransportHTTPClient(o.httpClient))
		}
		ht, err := NewHTTPTransport(config.BaseURL, topts...)
		if err != nil {
			return nil, err
		}
		qb.httpTransport = ht
		transport = ht
	} else if err := transport.SetBaseURL(config.BaseURL); err != nil {
		return nil, err
	}

	qb.core = &core{
		transport:       transport,
		session:         NewSession(),
		log:             log,
		invalidate:      o.invalidate,
		sessionDuration: config.SessionDuration,
	}
	qb.auth = &AuthAPI{c: qb.core}
	qb.app = &ApplicationAPI{c: qb.core}
	qb.torrents = &TorrentsAPI{c: qb.core}
	qb.transfer = &TransferAPI{c: qb.core}
	qb.rss = &RSSAPI{c: qb.core}
	qb.search = &SearchAPI{c: qb.core}
	return qb, nil
}

func newLogger(config Config, injected *zerolog.Logger) (zerolog.Logger, error) {
	if injected != nil {
		return *injected, nil
	}
	if !config.Debug && config.LogLevel == "" && config.LogFile == "" {
		return zerolog.Nop(), nil
	}
	level := config.LogLevel
	if config.Debug {
		level = "debug"
	}
	return logger.New(logger.Options{Prefix: "qbt", Level: level, File: config.LogFile})
}

func (qb *Client) Auth() *AuthAPI                { return qb.auth }
func (qb *Client) Application() *ApplicationAPI { return qb.app }
func (qb *Client) Torrents() *TorrentsAPI       { return qb.torrents }
func (qb *Client) Transfer() *TransferAPI       { return qb.transfer }
func (qb *Client) RSS() *RSSAPI                 { return qb.rss }
func (qb *Client) Search() *SearchAPI           { return qb.search }

// Transport returns the transport used for every exchange.
func (qb *Client) Transport() Transport { return qb.core.transport }

// Config returns a copy of the active configuration.
func (qb *Client) Config() Config {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	return qb.config
}

// Update validates and applies a new configuration. Changing the base URL
// or the credentials logs the client out locally.
func (qb *Client) Update(config Config) error {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return err
	}
	if err := qb.core.transport.SetBaseURL(config.BaseURL); err != nil {
		return err
	}

	qb.mu.Lock()
	old := qb.config
	qb.config = config
	qb.mu.Unlock()

	if ht := qb.httpTransport; ht != nil {
		ht.SetTimeout(config.RequestTimeout)
		ht.SetConnectTimeout(config.ConnectTimeout)
		ht.SetVerifySSL(!config.InsecureSkipVerify)
		ht.SetSSLCertPath(config.SSLCertPath)
		ht.SetProxy(config.ProxyURL, config.ProxyUsername, config.ProxyPassword)
		ht.SetUserAgent(config.UserAgent)
		ht.SetRateLimiter(config.rateLimiter())
	}

	qb.core.mu.Lock()
	qb.core.sessionDuration = config.SessionDuration
	qb.core.mu.Unlock()

	if old.BaseURL != config.BaseURL || old.Username != config.Username || old.Password != config.Password {
		qb.core.clearSession()
	}
	return nil
}

// Login opens a session with the configured credentials.
func (qb *Client) Login(ctx context.Context) (*LoginResponse, error) {
	cfg := qb.Config()
	return qb.auth.Login(ctx, cfg.Username, cfg.Password)
}

// Close logs out when a session is open. A failed remote logout is
// reported, but the local session is gone either way.
func (qb *Client) Close(ctx context.Context) error {
	if !qb.auth.IsLoggedIn() {
		return nil
	}
	res, err := qb.auth.Logout(ctx)
	if err != nil {
		return err
	}
	return res.Err()
}

// Execute runs any request, typically one made by BuildRequest, and
// returns the body as raw JSON. Text bodies are returned as JSON strings.
// Login and logout requests also update the session.
func (qb *Client) Execute(ctx context.Context, req Request) (*ExecuteResponse, error) {
	if req == nil {
		var v ValidationResult
		v.addError("request", "is required")
		return nil, NewValidationError(nil, v)
	}

	switch r := req.(type) {
	case *LoginRequest:
		res, err := qb.auth.Login(ctx, r.Username, r.Password)
		return remap(res, func(info LoginInfo) json.RawMessage {
			b, _ := json.Marshal(info)
			return b
		}), err
	case *SimpleRequest:
		if r.Kind() == OpAuthLogout {
			res, err := qb.auth.Logout(ctx)
			return remap(res, func(struct{}) json.RawMessage { return json.RawMessage("null") }), err
		}
	}
	return execute(ctx, qb.core, req, decodeRaw)
}
