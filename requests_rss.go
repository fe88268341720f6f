package qbt

import (
	"net/url"
)

// RSSItemsRequest lists feeds and folders, with articles when WithData
// is set.
type RSSItemsRequest struct {
	route
	WithData bool
}

func NewRSSItemsRequest(withData bool) *RSSItemsRequest {
	return &RSSItemsRequest{route: route{OpRSSItems}, WithData: withData}
}

func (r *RSSItemsRequest) Params() url.Values {
	return url.Values{"withData": {formatBool(r.WithData)}}
}

func (r *RSSItemsRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	return v
}

func (r *RSSItemsRequest) Summary() map[string]any { return r.summary(r.Params()) }

// RSSAddFeedRequest subscribes to a feed, optionally under a folder path
// such as "Folder\\Feed".
type RSSAddFeedRequest struct {
	route
	URL  string
	Path string
}

func NewRSSAddFeedRequest(feedURL, path string) *RSSAddFeedRequest {
	return &RSSAddFeedRequest{route: route{OpRSSAddFeed}, URL: feedURL, Path: path}
}

func (r *RSSAddFeedRequest) Params() url.Values {
	p := url.Values{"url": {r.URL}}
	if r.Path != "" {
		p.Set("path", r.Path)
	}
	return p
}

func (r *RSSAddFeedRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	u, err := url.Parse(r.URL)
	switch {
	case r.URL == "":
		v.addError("url", "is required")
	case err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https"):
		v.addError("url", "must be an absolute http(s) URL")
	}
	return v
}

func (r *RSSAddFeedRequest) Summary() map[string]any { return r.summary(r.Params()) }

// RSSPathRequest addresses one RSS item (feed or folder) by path.
type RSSPathRequest struct {
	route
	Path string
}

func NewRSSAddFolderRequest(path string) *RSSPathRequest {
	return &RSSPathRequest{route: route{OpRSSAddFolder}, Path: path}
}

func NewRSSRemoveItemRequest(path string) *RSSPathRequest {
	return &RSSPathRequest{route: route{OpRSSRemoveItem}, Path: path}
}

func NewRSSRefreshItemRequest(path string) *RSSPathRequest {
	return &RSSPathRequest{route: route{OpRSSRefreshItem}, Path: path}
}

func (r *RSSPathRequest) Params() url.Values {
	if r.kind == OpRSSRefreshItem {
		return url.Values{"itemPath": {r.Path}}
	}
	return url.Values{"path": {r.Path}}
}

func (r *RSSPathRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	switch r.kind {
	case OpRSSAddFolder, OpRSSRemoveItem, OpRSSRefreshItem:
	default:
		if v.IsValid() {
			v.addError("kind", "%s is not an rss item operation", r.kind)
		}
	}
	v.requireText("path", r.Path)
	return v
}

func (r *RSSPathRequest) Summary() map[string]any { return r.summary(r.Params()) }
