package qbt

import (
	"mime"
	"net/http"
	"sync"

	"github.com/valyala/fastjson"
)

// TransportResponse is one physical HTTP exchange as seen by the client.
// It is never mutated after construction.
type TransportResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// plainText marks endpoints whose body is never interpreted as JSON.
	plainText bool

	jsonOnce sync.Once
	json     *fastjson.Value
}

// NewTransportResponse copies header and body into a new response.
func NewTransportResponse(statusCode int, header http.Header, body []byte) *TransportResponse {
	return &TransportResponse{
		StatusCode: statusCode,
		Header:     header.Clone(),
		Body:       append([]byte(nil), body...),
	}
}

// Text returns the body as text.
func (r *TransportResponse) Text() string {
	return string(r.Body)
}

// IsSuccess reports whether the status is within [200,300), or within
// acceptable when given.
func (r *TransportResponse) IsSuccess(acceptable ...int) bool {
	if len(acceptable) == 0 {
		return r.StatusCode >= 200 && r.StatusCode < 300
	}
	for _, code := range acceptable {
		if r.StatusCode == code {
			return true
		}
	}
	return false
}

// IsJSON reports whether the body should be treated as JSON: either the
// Content-Type says so or the body parses as a JSON object or array.
func (r *TransportResponse) IsJSON() bool {
	if r.plainText {
		return false
	}
	if declaresJSON(r.Header) {
		return true
	}
	v := r.JSON()
	if v == nil {
		return false
	}
	t := v.Type()
	return t == fastjson.TypeObject || t == fastjson.TypeArray
}

// JSON lazily parses the body. It returns nil when the body is not valid
// JSON or the endpoint only ever answers with plain text.
func (r *TransportResponse) JSON() *fastjson.Value {
	r.jsonOnce.Do(func() {
		if r.plainText || len(r.Body) == 0 {
			return
		}
		v, err := fastjson.ParseBytes(r.Body)
		if err != nil {
			return
		}
		r.json = v
	})
	return r.json
}

func declaresJSON(h http.Header) bool {
	ct := h.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
