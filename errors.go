package qbt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// ErrorKind groups error codes into the families callers usually branch on.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNetwork        ErrorKind = "network"
	KindAuthentication ErrorKind = "authentication"
	KindHTTP           ErrorKind = "http"
	KindAPIRuntime     ErrorKind = "api_runtime"
	KindConfig         ErrorKind = "config"
)

// ErrorCode represents a specific error type for client-side handling
type ErrorCode string

const (
	// ErrorCodeNone indicates no error
	ErrorCodeNone ErrorCode = ""

	// ErrorCodeValidation indicates a request failed local validation before any I/O
	ErrorCodeValidation ErrorCode = "VALIDATION_FAILED"

	// ErrorCodeConfig indicates an invalid client configuration
	ErrorCodeConfig ErrorCode = "CONFIG_INVALID"

	// ErrorCodeConnectionFailed indicates the daemon could not be reached
	ErrorCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"

	// ErrorCodeDNS indicates DNS resolution failure - check hostname configuration
	ErrorCodeDNS ErrorCode = "DNS_FAILED"

	// ErrorCodeSSLError indicates SSL/TLS certificate or connection error
	ErrorCodeSSLError ErrorCode = "SSL_ERROR"

	// ErrorCodeTimeout indicates connection or request timeout - temporary, can retry
	ErrorCodeTimeout ErrorCode = "TIMEOUT"

	// ErrorCodeAccessDenied indicates a 401/403 answer from the daemon
	ErrorCodeAccessDenied ErrorCode = "ACCESS_DENIED"

	// ErrorCodeNotLoggedIn indicates an authenticated call without a session
	ErrorCodeNotLoggedIn ErrorCode = "NOT_LOGGED_IN"

	// ErrorCodeAuthFailure indicates invalid username/password - requires user intervention
	ErrorCodeAuthFailure ErrorCode = "AUTH_FAILURE"

	// ErrorCodeIPBanned indicates the daemon banned the client IP after failed logins
	ErrorCodeIPBanned ErrorCode = "IP_BANNED"

	// ErrorCodeHTTP indicates a non-success status without a more specific code
	ErrorCodeHTTP ErrorCode = "HTTP_ERROR"

	// ErrorCodeBadGateway indicates a proxy/gateway error (502)
	ErrorCodeBadGateway ErrorCode = "BAD_GATEWAY"

	// ErrorCodeServiceUnavailable indicates the service is temporarily unavailable (503)
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// ErrorCodeParse indicates a response body that could not be decoded
	ErrorCodeParse ErrorCode = "PARSE_ERROR"

	// ErrorCodeRequestFailed indicates a façade call that failed after validation
	ErrorCodeRequestFailed ErrorCode = "REQUEST_FAILED"

	// ErrorCodeUnknown indicates an unclassified error
	ErrorCodeUnknown ErrorCode = "UNKNOWN"
)

// The daemon answers 403 on login only while the client IP is banned.
const ipBannedMessage = "access denied: IP banned after too many failed login attempts"

// Sentinels for errors.Is. A *ClientError matches the sentinel of its kind.
var (
	ErrValidation     = errors.New("validation error")
	ErrNetwork        = errors.New("network error")
	ErrAuthentication = errors.New("authentication error")
	ErrHTTP           = errors.New("http error")
	ErrAPIRuntime     = errors.New("api runtime error")
	ErrConfig         = errors.New("config error")

	// ErrNotLoggedIn matches the local guard on authenticated requests.
	ErrNotLoggedIn = errors.New("login required")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:     ErrValidation,
	KindNetwork:        ErrNetwork,
	KindAuthentication: ErrAuthentication,
	KindHTTP:           ErrHTTP,
	KindAPIRuntime:     ErrAPIRuntime,
	KindConfig:         ErrConfig,
}

// ClientError represents a structured error with classification
type ClientError struct {
	Kind    ErrorKind
	Code    ErrorCode
	Message string

	// Exchange context, when known.
	StatusCode int
	Method     string
	URI        string

	// Fields lists per-field violations of validation errors.
	Fields map[string]string
	// Details carries free-form diagnostics (endpoint, request summary, ...).
	Details map[string]any
	// Response is the daemon answer behind http and authentication errors.
	Response *TransportResponse

	Err error
	// Permanent indicates whether this error requires user intervention (true)
	// or can be resolved by retrying (false)
	Permanent bool
}

func (e *ClientError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Method != "" || e.URI != "" {
		fmt.Fprintf(&b, " [%s %s]", e.Method, e.URI)
	}
	if len(e.Fields) > 0 {
		fields := make([]string, 0, len(e.Fields))
		for _, f := range sortedKeys(e.Fields) {
			fields = append(fields, fmt.Sprintf("%s: %s", f, e.Fields[f]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(fields, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind, and ErrNotLoggedIn for the
// local login guard.
func (e *ClientError) Is(target error) bool {
	if target == ErrNotLoggedIn {
		return e.Code == ErrorCodeNotLoggedIn
	}
	return kindSentinels[e.Kind] == target
}

// IsPermanent returns true if the error requires user intervention
func (e *ClientError) IsPermanent() bool {
	return e.Permanent
}

// ToMap renders the error as a structured map suitable for logging.
func (e *ClientError) ToMap() map[string]any {
	m := map[string]any{
		"type":        string(e.Kind),
		"message":     e.Message,
		"code":        string(e.Code),
		"http_status": e.StatusCode,
		"permanent":   e.Permanent,
	}
	details := make(map[string]any, len(e.Details)+3)
	for k, v := range e.Details {
		details[k] = v
	}
	if e.Method != "" {
		details["method"] = e.Method
	}
	if e.URI != "" {
		details["uri"] = e.URI
	}
	if len(e.Fields) > 0 {
		details["fields"] = e.Fields
	}
	if e.Err != nil {
		details["cause"] = e.Err.Error()
	}
	m["details"] = details
	return m
}

// NewClientError creates a new ClientError of the given kind
func NewClientError(kind ErrorKind, code ErrorCode, message string, err error, permanent bool) *ClientError {
	return &ClientError{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Err:       err,
		Permanent: permanent,
	}
}

// NewValidationError reports every violated constraint of a request.
func NewValidationError(req Request, result ValidationResult) *ClientError {
	e := NewClientError(KindValidation, ErrorCodeValidation, "request validation failed", nil, true)
	e.Fields = result.Errors
	if req != nil {
		e.Message = fmt.Sprintf("%s request validation failed", req.Kind())
		e.Details = map[string]any{"endpoint": req.Endpoint(), "warnings": result.Warnings}
	}
	return e
}

// NewNotLoggedInError is returned before any I/O for authenticated requests
// issued without a session.
func NewNotLoggedInError(req Request) *ClientError {
	e := NewClientError(KindAuthentication, ErrorCodeNotLoggedIn, "not logged in: call Login first", nil, true)
	if req != nil {
		e.Method = req.Method()
		e.URI = req.Endpoint()
	}
	return e
}

// NewAPIRuntimeError wraps a failure that happened inside a façade call
// after validation passed.
func NewAPIRuntimeError(req Request, cause error) *ClientError {
	e := NewClientError(KindAPIRuntime, ErrorCodeRequestFailed, "request failed", cause, IsPermanentError(cause))
	var inner *ClientError
	if errors.As(cause, &inner) {
		e.StatusCode = inner.StatusCode
		e.Method = inner.Method
		e.URI = inner.URI
		e.Message = inner.Message
	}
	if req != nil {
		e.Message = fmt.Sprintf("%s: %s", req.Kind(), e.Message)
		e.Details = map[string]any{
			"endpoint": req.Endpoint(),
			"request":  req.Summary(),
		}
		if e.Method == "" {
			e.Method = req.Method()
		}
	}
	return e
}

// ClassifyError analyzes an error and returns a structured ClientError
func ClassifyError(err error) *ClientError {
	if err == nil {
		return nil
	}

	// Already a ClientError
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewClientError(KindNetwork, ErrorCodeTimeout, "Request timed out", err, false)
	}
	if errors.Is(err, context.Canceled) {
		return NewClientError(KindNetwork, ErrorCodeTimeout, "Request canceled", err, false)
	}

	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return NewClientError(KindNetwork, ErrorCodeTimeout,
				fmt.Sprintf("DNS lookup timed out: %s", dnsErr.Name), err, false)
		}
		return NewClientError(KindNetwork, ErrorCodeDNS,
			fmt.Sprintf("Failed to resolve hostname: %s", dnsErr.Name), err, true)
	}

	// TLS/SSL errors
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	switch {
	case errors.As(err, &certErr), errors.As(err, &unknownAuth), errors.As(err, &hostnameErr):
		return NewClientError(KindNetwork, ErrorCodeSSLError, "SSL certificate verification failed", err, true)
	case errors.As(err, &recordErr):
		return NewClientError(KindNetwork, ErrorCodeSSLError,
			"Protocol mismatch - the server did not answer with TLS", err, true)
	}

	// Network operation errors (connection refused, timeout, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return classifyOpError(opErr, err)
	}

	// URL errors
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return NewClientError(KindNetwork, ErrorCodeTimeout, "Request timed out", err, false)
	}

	// Check for common error patterns in the error string
	return classifyByMessage(err.Error(), err)
}

// classifyOpError classifies net.OpError errors
func classifyOpError(opErr *net.OpError, originalErr error) *ClientError {
	if opErr.Timeout() {
		return NewClientError(KindNetwork, ErrorCodeTimeout, "Connection timed out", originalErr, false)
	}

	msg := opErr.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return NewClientError(KindNetwork, ErrorCodeConnectionFailed,
			"Connection refused - server may be down or port is incorrect", originalErr, false)
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return NewClientError(KindNetwork, ErrorCodeConnectionFailed,
			"Network unreachable - check network connectivity", originalErr, false)
	}

	return NewClientError(KindNetwork, ErrorCodeConnectionFailed, "Network operation failed", originalErr, false)
}

// classifyByMessage classifies errors based on error message patterns
func classifyByMessage(errStr string, err error) *ClientError {
	lowerErr := strings.ToLower(errStr)

	switch {
	case strings.Contains(lowerErr, "timeout"),
		strings.Contains(lowerErr, "deadline exceeded"):
		return NewClientError(KindNetwork, ErrorCodeTimeout, "Request timed out", err, false)

	case strings.Contains(lowerErr, "malformed http response"),
		strings.Contains(lowerErr, "first record does not look like a tls handshake"):
		return NewClientError(KindNetwork, ErrorCodeSSLError,
			"Protocol mismatch - try using HTTPS instead of HTTP", err, true)

	case strings.Contains(lowerErr, "certificate"),
		strings.Contains(lowerErr, "x509"),
		strings.Contains(lowerErr, "tls"):
		return NewClientError(KindNetwork, ErrorCodeSSLError,
			"SSL/TLS connection failed - check certificate configuration", err, true)

	case strings.Contains(lowerErr, "no such host"),
		strings.Contains(lowerErr, "lookup"):
		return NewClientError(KindNetwork, ErrorCodeDNS, "DNS resolution failed - check hostname", err, true)

	case strings.Contains(lowerErr, "connection refused"),
		strings.Contains(lowerErr, "connection reset"),
		strings.Contains(lowerErr, "eof"):
		return NewClientError(KindNetwork, ErrorCodeConnectionFailed, "Connection failed", err, false)
	}

	return NewClientError(KindNetwork, ErrorCodeConnectionFailed, "Network request failed", err, false)
}

// IsRetryableError returns true if the error is temporary and can be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return !ClassifyError(err).Permanent
}

// IsPermanentError returns true if the error requires user intervention
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Permanent
}

// classifyHTTPStatusCode classifies an HTTP status code into a ClientError
func classifyHTTPStatusCode(statusCode int, body string) *ClientError {
	switch statusCode {
	case 401, 403:
		return NewClientError(KindAuthentication, ErrorCodeAccessDenied,
			fmt.Sprintf("Access denied with status %d", statusCode), nil, true)
	case 502:
		return NewClientError(KindHTTP, ErrorCodeBadGateway,
			fmt.Sprintf("Bad Gateway (502): %s", body), nil, false)
	case 503:
		return NewClientError(KindHTTP, ErrorCodeServiceUnavailable,
			fmt.Sprintf("Service Unavailable (503): %s", body), nil, false)
	case 504:
		return NewClientError(KindHTTP, ErrorCodeTimeout,
			fmt.Sprintf("Gateway Timeout (504): %s", body), nil, false)
	default:
		return NewClientError(KindHTTP, ErrorCodeHTTP,
			fmt.Sprintf("Request failed with status %d: %s", statusCode, body), nil, statusCode < 500)
	}
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ErrorCodeNone
	}
	return ClassifyError(err).Code
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
