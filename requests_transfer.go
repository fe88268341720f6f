package qbt

import (
	"net/url"
	"strconv"
)

// SetSpeedLimitsModeRequest switches between global and alternative
// speed limits.
type SetSpeedLimitsModeRequest struct {
	route
	Alternative bool
}

func NewSetSpeedLimitsModeRequest(alternative bool) *SetSpeedLimitsModeRequest {
	return &SetSpeedLimitsModeRequest{route: route{OpTransferSetSpeedLimitsMode}, Alternative: alternative}
}

func (r *SetSpeedLimitsModeRequest) Params() url.Values {
	mode := "0"
	if r.Alternative {
		mode = "1"
	}
	return url.Values{"mode": {mode}}
}

func (r *SetSpeedLimitsModeRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	return v
}

func (r *SetSpeedLimitsModeRequest) Summary() map[string]any { return r.summary(r.Params()) }

// SetLimitRequest sets the global download or upload limit in bytes per
// second. Zero removes the limit.
type SetLimitRequest struct {
	route
	Limit int64
}

func NewSetDownloadLimitRequest(limit int64) *SetLimitRequest {
	return &SetLimitRequest{route: route{OpTransferSetDownloadLimit}, Limit: limit}
}

func NewSetUploadLimitRequest(limit int64) *SetLimitRequest {
	return &SetLimitRequest{route: route{OpTransferSetUploadLimit}, Limit: limit}
}

func (r *SetLimitRequest) Params() url.Values {
	return url.Values{"limit": {strconv.FormatInt(r.Limit, 10)}}
}

func (r *SetLimitRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	if r.kind != OpTransferSetDownloadLimit && r.kind != OpTransferSetUploadLimit && v.IsValid() {
		v.addError("kind", "%s is not a limit operation", r.kind)
	}
	v.requireNonNegative("limit", r.Limit)
	return v
}

func (r *SetLimitRequest) Summary() map[string]any { return r.summary(r.Params()) }
