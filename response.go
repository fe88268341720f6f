package qbt

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Response is the outcome of one operation. A failed response always
// carries at least one error; a successful one carries none.
type Response interface {
	IsSuccess() bool
	Errors() []string
	StatusCode() int
	RawResponse() string
	Header() http.Header
	ToMap() map[string]any
}

// Result is the concrete Response of every operation. Build it with
// Success, Failure or FromAPIResponse. Accessors are safe on a nil Result
// and return zero values.
type Result[T any] struct {
	success bool
	data    T
	errors  []string
	status  int
	header  http.Header
	raw     string
}

type (
	LoginResponse           = Result[LoginInfo]
	LogoutResponse          = Result[struct{}]
	ActionResponse          = Result[struct{}]
	VersionResponse         = Result[string]
	BuildInfoResponse       = Result[BuildInfo]
	PreferencesResponse     = Result[Preferences]
	TransferInfoResponse    = Result[TransferInfo]
	SpeedLimitsModeResponse = Result[bool]
	LimitResponse           = Result[int64]
	TorrentListResponse     = Result[[]Torrent]
	PropertiesResponse      = Result[TorrentProperties]
	FilesResponse           = Result[[]TorrentContent]
	TrackersResponse        = Result[[]Tracker]
	CategoriesResponse      = Result[map[string]Category]
	RSSItemsResponse        = Result[RSSFolder]
	SearchStartResponse     = Result[int]
	SearchStatusResponse    = Result[[]SearchJob]
	SearchResultsResponse   = Result[SearchResults]
	SearchPluginsResponse   = Result[[]SearchPlugin]
	ExecuteResponse         = Result[json.RawMessage]
)

// Success builds a successful response.
func Success[T any](data T, header http.Header, status int, raw string) *Result[T] {
	return &Result[T]{
		success: true,
		data:    data,
		status:  status,
		header:  header.Clone(),
		raw:     raw,
	}
}

// Failure builds a failed response. Blank messages are dropped; without
// any message a default one for the status is used.
func Failure[T any](errs []string, header http.Header, status int, raw string) *Result[T] {
	kept := make([]string, 0, len(errs)+1)
	for _, e := range errs {
		if e = strings.TrimSpace(e); e != "" {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, StatusMessage(status))
	}
	return &Result[T]{
		errors: kept,
		status: status,
		header: header.Clone(),
		raw:    raw,
	}
}

// FromAPIResponse classifies an exchange by status and decodes successful
// bodies. Decoder errors and panics become failed responses.
func FromAPIResponse[T any](tr *TransportResponse, decode Decoder[T]) (res *Result[T]) {
	if tr == nil {
		return Failure[T]([]string{"no response received"}, nil, 0, "")
	}
	raw := tr.Text()

	if !tr.IsSuccess() {
		errs := []string{StatusMessage(tr.StatusCode)}
		if detail := strings.TrimSpace(raw); detail != "" && !tr.IsJSON() {
			errs = append(errs, truncate(detail, maxErrorBody))
		}
		return Failure[T](errs, tr.Header, tr.StatusCode, raw)
	}

	defer func() {
		if p := recover(); p != nil {
			res = Failure[T]([]string{fmt.Sprintf("decode response: %v", p)}, tr.Header, tr.StatusCode, raw)
		}
	}()

	data, err := decode(tr)
	if err != nil {
		return Failure[T]([]string{err.Error()}, tr.Header, tr.StatusCode, raw)
	}
	return Success(data, tr.Header, tr.StatusCode, raw)
}

// StatusMessage is the default error message for a failed status.
func StatusMessage(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "bad request: missing or invalid parameters"
	case status == http.StatusUnauthorized:
		return "invalid credentials"
	case status == http.StatusForbidden:
		return "access denied: the client IP may be banned after too many failed login attempts"
	case status == http.StatusNotFound:
		return "not found"
	case status == http.StatusConflict:
		return "conflict: the daemon refused the operation in its current state"
	case status == http.StatusUnsupportedMediaType:
		return "unsupported media type: invalid torrent file"
	case status >= 500:
		return fmt.Sprintf("daemon error (status %d)", status)
	case status == 0:
		return "request failed"
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func (r *Result[T]) IsSuccess() bool {
	return r != nil && r.success
}

// Data returns the decoded payload, the zero value on failure.
func (r *Result[T]) Data() T {
	if r == nil {
		var zero T
		return zero
	}
	return r.data
}

func (r *Result[T]) Errors() []string {
	if r == nil {
		return []string{"no response"}
	}
	return append([]string(nil), r.errors...)
}

// Err joins the errors of a failed response, nil on success.
func (r *Result[T]) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(r.Errors(), "; "))
}

func (r *Result[T]) StatusCode() int {
	if r == nil {
		return 0
	}
	return r.status
}

func (r *Result[T]) RawResponse() string {
	if r == nil {
		return ""
	}
	return r.raw
}

func (r *Result[T]) Header() http.Header {
	if r == nil || r.header == nil {
		return http.Header{}
	}
	return r.header
}

func (r *Result[T]) ToMap() map[string]any {
	m := map[string]any{
		"success":     r.IsSuccess(),
		"errors":      r.Errors(),
		"status_code": r.StatusCode(),
	}
	if r.IsSuccess() {
		m["data"] = r.data
		m["errors"] = []string{}
	}
	return m
}

// remap converts the payload of a response while keeping its outcome.
func remap[T, U any](r *Result[T], f func(T) U) *Result[U] {
	if r == nil {
		return nil
	}
	out := &Result[U]{
		success: r.success,
		errors:  r.errors,
		status:  r.status,
		header:  r.header,
		raw:     r.raw,
	}
	if r.success {
		out.data = f(r.data)
	}
	return out
}

func ParseLoginResponse(tr *TransportResponse, username string) *LoginResponse {
	return FromAPIResponse(tr, loginDecoder(username, DefaultSessionDuration))
}

func ParseActionResponse(tr *TransportResponse) *ActionResponse {
	return FromAPIResponse(tr, decodeOkText)
}

func ParseVersionResponse(tr *TransportResponse) *VersionResponse {
	return FromAPIResponse(tr, decodeText)
}

func ParseBuildInfoResponse(tr *TransportResponse) *BuildInfoResponse {
	return FromAPIResponse(tr, decodeJSON[BuildInfo])
}

func ParsePreferencesResponse(tr *TransportResponse) *PreferencesResponse {
	return FromAPIResponse(tr, decodePreferences)
}

func ParseTransferInfoResponse(tr *TransportResponse) *TransferInfoResponse {
	return FromAPIResponse(tr, decodeJSON[TransferInfo])
}

func ParseSpeedLimitsModeResponse(tr *TransportResponse) *SpeedLimitsModeResponse {
	return FromAPIResponse(tr, decodeSpeedLimitsMode)
}

func ParseLimitResponse(tr *TransportResponse) *LimitResponse {
	return FromAPIResponse(tr, decodeInt)
}

func ParseTorrentListResponse(tr *TransportResponse) *TorrentListResponse {
	return FromAPIResponse(tr, decodeTorrents)
}

func ParsePropertiesResponse(tr *TransportResponse) *PropertiesResponse {
	return FromAPIResponse(tr, decodeJSON[TorrentProperties])
}

func ParseFilesResponse(tr *TransportResponse) *FilesResponse {
	return FromAPIResponse(tr, decodeJSON[[]TorrentContent])
}

func ParseTrackersResponse(tr *TransportResponse) *TrackersResponse {
	return FromAPIResponse(tr, decodeTrackers)
}

func ParseCategoriesResponse(tr *TransportResponse) *CategoriesResponse {
	return FromAPIResponse(tr, decodeCategories)
}

func ParseRSSItemsResponse(tr *TransportResponse) *RSSItemsResponse {
	return FromAPIResponse(tr, decodeRSSItems)
}

func ParseSearchStartResponse(tr *TransportResponse) *SearchStartResponse {
	return FromAPIResponse(tr, decodeSearchID)
}

func ParseSearchStatusResponse(tr *TransportResponse) *SearchStatusResponse {
	return FromAPIResponse(tr, decodeSearchJobs)
}

func ParseSearchResultsResponse(tr *TransportResponse) *SearchResultsResponse {
	return FromAPIResponse(tr, decodeSearchResults)
}

func ParseSearchPluginsResponse(tr *TransportResponse) *SearchPluginsResponse {
	return FromAPIResponse(tr, decodeSearchPlugins)
}
