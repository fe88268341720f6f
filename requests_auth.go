package qbt

import (
	"net/url"
	"unicode/utf8"
)

// LoginRequest opens a session with username and password.
type LoginRequest struct {
	route
	Username string
	Password string
}

func NewLoginRequest(username, password string) *LoginRequest {
	return &LoginRequest{route: route{OpAuthLogin}, Username: username, Password: password}
}

func (r *LoginRequest) Params() url.Values {
	return url.Values{
		"username": {r.Username},
		"password": {r.Password},
	}
}

func (r *LoginRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireCredential("username", r.Username)
	v.requireCredential("password", r.Password)
	return v
}

func (r *LoginRequest) Summary() map[string]any {
	s := r.summary(url.Values{"username": {r.Username}})
	s["password_length"] = utf8.RuneCountInString(r.Password)
	return s
}

// NewLogoutRequest closes the current session.
func NewLogoutRequest() *SimpleRequest {
	return NewSimpleRequest(OpAuthLogout)
}
