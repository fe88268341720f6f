package qbt

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jfxdev/go-qbtapi/request"
	"github.com/rs/zerolog"
)

type requestIDKey struct{}

// ContextWithRequestID sets the id logged with every exchange made under
// ctx. Calls without one get a random id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func ensureRequestID(ctx context.Context) context.Context {
	if requestIDFrom(ctx) != "" {
		return ctx
	}
	return ContextWithRequestID(ctx, uuid.NewString())
}

// core is shared by the client and all of its façades.
type core struct {
	transport Transport
	session   *Session

	mu              sync.RWMutex
	log             zerolog.Logger
	invalidate      bool
	sessionDuration time.Duration
}

func (c *core) logger() zerolog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

func (c *core) lifetime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionDuration
}

func (c *core) invalidates() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.invalidate
}

// syncSession adopts a SID the daemon rotated on a later answer.
func (c *core) syncSession(log zerolog.Logger) {
	if c.session.rotate(c.transport.Authentication()) {
		log.Debug().Msg("daemon rotated the session id")
	}
}

// clearSession drops the local session and the transport cookie.
func (c *core) clearSession() {
	c.session.Clear()
	c.transport.SetAuthentication("")
}

type multipartRequest interface {
	Multipart() (*request.Multipart, error)
}

func sendOptionsFor(req Request) (SendOptions, error) {
	opts := SendOptions{Headers: req.Headers()}
	if m, ok := req.(multipartRequest); ok {
		body, err := m.Multipart()
		if err != nil {
			return opts, err
		}
		opts.Multipart = body
		return opts, nil
	}
	params := req.Params()
	if len(params) == 0 {
		return opts, nil
	}
	if req.Method() == http.MethodGet {
		opts.Query = params
	} else {
		opts.Form = params
	}
	return opts, nil
}

// execute runs one request through validation, the login guard and the
// transport, then classifies the outcome. Errors are returned for
// validation, the login guard and failures without a daemon answer; every
// answer of the daemon becomes a Result.
func execute[T any](ctx context.Context, c *core, req Request, decode Decoder[T]) (*Result[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureRequestID(ctx)
	log := c.logger().With().
		Str("request_id", requestIDFrom(ctx)).
		Str("kind", string(req.Kind())).
		Str("route", requestLabel(req)).
		Logger()

	v := req.Validate()
	if !v.IsValid() {
		log.Debug().Strs("fields", v.Fields()).Msg("request rejected by validation")
		return nil, NewValidationError(req, v)
	}
	for _, w := range v.Warnings {
		log.Warn().Msg(w)
	}

	if req.RequiresAuthentication() && !c.session.IsLoggedIn() {
		return nil, NewNotLoggedInError(req)
	}

	opts, err := sendOptionsFor(req)
	if err != nil {
		return nil, withRequestID(NewAPIRuntimeError(req, err), ctx)
	}

	tr, err := c.transport.Send(ctx, req.Method(), req.Endpoint(), opts)
	if err == nil {
		if req.RequiresAuthentication() {
			c.syncSession(log)
		}
		return FromAPIResponse(tr, decode), nil
	}

	var ce *ClientError
	if errors.As(err, &ce) {
		switch {
		case ce.Kind == KindValidation, ce.Kind == KindConfig:
			return nil, ce
		case ce.Response != nil && ce.Code == ErrorCodeParse:
			r := ce.Response
			return Failure[T]([]string{ce.Message}, r.Header, r.StatusCode, r.Text()), nil
		case ce.Response != nil:
			if ce.Kind == KindAuthentication && req.RequiresAuthentication() && c.invalidates() {
				log.Info().Int("status", ce.StatusCode).Msg("daemon rejected the session, logging out locally")
				c.clearSession()
			}
			return FromAPIResponse(ce.Response, decode), nil
		}
	}

	log.Debug().Err(err).Msg("request failed")
	return nil, withRequestID(NewAPIRuntimeError(req, err), ctx)
}

func withRequestID(e *ClientError, ctx context.Context) *ClientError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details["request_id"] = requestIDFrom(ctx)
	return e
}
