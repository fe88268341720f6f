package qbt

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// SearchAllPlugins and SearchEnabledPlugins are the plugin selectors
	// the daemon understands besides plugin names.
	SearchAllPlugins     = "all"
	SearchEnabledPlugins = "enabled"

	SearchAllCategories = "all"
)

// SearchStartRequest starts a search job.
type SearchStartRequest struct {
	route
	Pattern  string
	Plugins  []string
	Category string
}

// NewSearchStartRequest searches all categories, on every enabled plugin
// unless plugins are given.
func NewSearchStartRequest(pattern string, plugins ...string) *SearchStartRequest {
	if len(plugins) == 0 {
		plugins = []string{SearchEnabledPlugins}
	}
	return &SearchStartRequest{
		route:    route{OpSearchStart},
		Pattern:  pattern,
		Plugins:  plugins,
		Category: SearchAllCategories,
	}
}

func (r *SearchStartRequest) Params() url.Values {
	return url.Values{
		"pattern":  {strings.TrimSpace(r.Pattern)},
		"plugins":  {strings.Join(r.Plugins, "|")},
		"category": {strings.TrimSpace(r.Category)},
	}
}

func (r *SearchStartRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireText("pattern", r.Pattern)
	v.requireText("category", r.Category)
	if len(r.Plugins) == 0 {
		v.addError("plugins", "at least one plugin is required")
	}
	for _, p := range r.Plugins {
		if strings.TrimSpace(p) == "" || strings.Contains(p, "|") {
			v.addError("plugins", "plugin names must be non-empty and must not contain '|'")
			break
		}
	}
	return v
}

func (r *SearchStartRequest) Summary() map[string]any { return r.summary(r.Params()) }

// SearchJobRequest stops or deletes a search job.
type SearchJobRequest struct {
	route
	ID int
}

func NewSearchStopRequest(id int) *SearchJobRequest {
	return &SearchJobRequest{route: route{OpSearchStop}, ID: id}
}

func NewSearchDeleteRequest(id int) *SearchJobRequest {
	return &SearchJobRequest{route: route{OpSearchDelete}, ID: id}
}

func (r *SearchJobRequest) Params() url.Values {
	return url.Values{"id": {strconv.Itoa(r.ID)}}
}

func (r *SearchJobRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	if v.IsValid() && r.kind != OpSearchStop && r.kind != OpSearchDelete {
		v.addError("kind", "%s is not a search job operation", r.kind)
	}
	requireSearchID(&v, r.ID)
	return v
}

func (r *SearchJobRequest) Summary() map[string]any { return r.summary(r.Params()) }

// SearchStatusRequest reports one search job, or all of them when ID is 0.
type SearchStatusRequest struct {
	route
	ID int
}

func NewSearchStatusRequest(id int) *SearchStatusRequest {
	return &SearchStatusRequest{route: route{OpSearchStatus}, ID: id}
}

func (r *SearchStatusRequest) Params() url.Values {
	if r.ID == 0 {
		return url.Values{}
	}
	return url.Values{"id": {strconv.Itoa(r.ID)}}
}

func (r *SearchStatusRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireNonNegative("id", int64(r.ID))
	return v
}

func (r *SearchStatusRequest) Summary() map[string]any { return r.summary(r.Params()) }

// SearchResultsRequest pages through the results of a search job.
type SearchResultsRequest struct {
	route
	ID int
	// Limit caps the page size; zero means no limit.
	Limit  int
	Offset int
}

func NewSearchResultsRequest(id int) *SearchResultsRequest {
	return &SearchResultsRequest{route: route{OpSearchResults}, ID: id}
}

func (r *SearchResultsRequest) Params() url.Values {
	p := url.Values{"id": {strconv.Itoa(r.ID)}}
	if r.Limit > 0 {
		p.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.Offset > 0 {
		p.Set("offset", strconv.Itoa(r.Offset))
	}
	return p
}

func (r *SearchResultsRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	requireSearchID(&v, r.ID)
	v.requireNonNegative("limit", int64(r.Limit))
	v.requireNonNegative("offset", int64(r.Offset))
	return v
}

func (r *SearchResultsRequest) Summary() map[string]any { return r.summary(r.Params()) }

func requireSearchID(v *ValidationResult, id int) {
	if id <= 0 {
		v.addError("id", "a positive search job id is required")
	}
}
