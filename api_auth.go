package qbt

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// AuthAPI opens and closes daemon sessions.
type AuthAPI struct {
	c *core
}

// Login opens a session. HTTP-level rejections (wrong credentials, banned
// IP, an answer without a session cookie) are failed responses; errors are
// reserved for invalid input and unreachable daemons. A failed login
// leaves the client logged out.
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	req := NewLoginRequest(username, password)
	res, err := execute(ctx, a.c, req, loginDecoder(username, a.c.lifetime()))
	if err != nil {
		return nil, err
	}

	log := a.c.logger()
	if !res.IsSuccess() {
		a.c.clearSession()
		if res.StatusCode() == 403 {
			res.errors = []string{ipBannedMessage}
		}
		log.Info().Str("username", username).Int("status", res.StatusCode()).Msg("login failed")
		return res, nil
	}

	info := res.Data()
	a.c.session.start(info)
	a.c.transport.SetAuthentication(info.SessionID)
	log.Info().Str("username", username).Time("expires_at", info.ExpiresAt).Msg("logged in")
	return res, nil
}

// Logout closes the session. Local state is cleared whatever the daemon
// answers, including when it cannot be reached.
func (a *AuthAPI) Logout(ctx context.Context) (*LogoutResponse, error) {
	req := NewLogoutRequest()
	if !a.c.session.IsLoggedIn() {
		a.c.clearSession()
		return nil, NewNotLoggedInError(req)
	}
	defer a.c.clearSession()

	username := a.c.session.Username()
	res, err := execute(ctx, a.c, req, decodeNothing)
	log := a.c.logger()
	log.Info().Str("username", username).Bool("remote_ok", err == nil && res.IsSuccess()).Msg("logged out")
	return res, err
}

func (a *AuthAPI) IsLoggedIn() bool { return a.c.session.IsLoggedIn() }

// SessionID returns the current SID, "" when logged out.
func (a *AuthAPI) SessionID() string { return a.c.session.Token() }

func (a *AuthAPI) Username() string { return a.c.session.Username() }

func (a *AuthAPI) IsSessionExpired() bool { return a.c.session.IsExpired() }

func (a *AuthAPI) RemainingSessionTime() time.Duration { return a.c.session.Remaining() }

// ClearSession logs out locally without contacting the daemon.
func (a *AuthAPI) ClearSession() { a.c.clearSession() }

var errInvalidCredentials = errors.New("invalid credentials")

func loginDecoder(username string, lifetime time.Duration) Decoder[LoginInfo] {
	return func(tr *TransportResponse) (LoginInfo, error) {
		if strings.TrimSpace(tr.Text()) == "Fails." {
			return LoginInfo{}, errInvalidCredentials
		}
		sid, ok := sessionFromHeader(tr.Header)
		if !ok {
			return LoginInfo{}, errors.New("login answered without a SID cookie")
		}
		now := time.Now()
		expires := sessionExpiry(tr.Header, now)
		if expires.IsZero() {
			expires = now.Add(lifetime)
		}
		return LoginInfo{
			SessionID: sid,
			Username:  username,
			LoggedIn:  now,
			ExpiresAt: expires,
		}, nil
	}
}
