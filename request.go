package qbt

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
)

// RequestKind names one remote operation, e.g. "torrents.pause".
type RequestKind string

const (
	OpAuthLogin  RequestKind = "auth.login"
	OpAuthLogout RequestKind = "auth.logout"

	OpAppVersion         RequestKind = "app.version"
	OpAppWebAPIVersion   RequestKind = "app.webapiVersion"
	OpAppBuildInfo       RequestKind = "app.buildInfo"
	OpAppPreferences     RequestKind = "app.preferences"
	OpAppSetPreferences  RequestKind = "app.setPreferences"
	OpAppDefaultSavePath RequestKind = "app.defaultSavePath"

	OpTransferInfo                  RequestKind = "transfer.info"
	OpTransferSpeedLimitsMode       RequestKind = "transfer.speedLimitsMode"
	OpTransferSetSpeedLimitsMode    RequestKind = "transfer.setSpeedLimitsMode"
	OpTransferToggleSpeedLimitsMode RequestKind = "transfer.toggleSpeedLimitsMode"
	OpTransferDownloadLimit         RequestKind = "transfer.downloadLimit"
	OpTransferUploadLimit           RequestKind = "transfer.uploadLimit"
	OpTransferSetDownloadLimit      RequestKind = "transfer.setDownloadLimit"
	OpTransferSetUploadLimit        RequestKind = "transfer.setUploadLimit"

	OpTorrentsInfo           RequestKind = "torrents.info"
	OpTorrentsProperties     RequestKind = "torrents.properties"
	OpTorrentsFiles          RequestKind = "torrents.files"
	OpTorrentsTrackers       RequestKind = "torrents.trackers"
	OpTorrentsAdd            RequestKind = "torrents.add"
	OpTorrentsDelete         RequestKind = "torrents.delete"
	OpTorrentsPause          RequestKind = "torrents.pause"
	OpTorrentsResume         RequestKind = "torrents.resume"
	OpTorrentsStart          RequestKind = "torrents.start"
	OpTorrentsStop           RequestKind = "torrents.stop"
	OpTorrentsRecheck        RequestKind = "torrents.recheck"
	OpTorrentsReannounce     RequestKind = "torrents.reannounce"
	OpTorrentsAddTrackers    RequestKind = "torrents.addTrackers"
	OpTorrentsSetCategory    RequestKind = "torrents.setCategory"
	OpTorrentsAddTags        RequestKind = "torrents.addTags"
	OpTorrentsRemoveTags     RequestKind = "torrents.removeTags"
	OpTorrentsCategories     RequestKind = "torrents.categories"
	OpTorrentsCreateCategory RequestKind = "torrents.createCategory"

	OpRSSItems       RequestKind = "rss.items"
	OpRSSAddFolder   RequestKind = "rss.addFolder"
	OpRSSAddFeed     RequestKind = "rss.addFeed"
	OpRSSRemoveItem  RequestKind = "rss.removeItem"
	OpRSSRefreshItem RequestKind = "rss.refreshItem"

	OpSearchStart   RequestKind = "search.start"
	OpSearchStop    RequestKind = "search.stop"
	OpSearchDelete  RequestKind = "search.delete"
	OpSearchStatus  RequestKind = "search.status"
	OpSearchResults RequestKind = "search.results"
	OpSearchPlugins RequestKind = "search.plugins"
)

type endpoint struct {
	path   string
	method string
	auth   bool
}

var endpoints = map[RequestKind]endpoint{
	OpAuthLogin:  {"/auth/login", http.MethodPost, false},
	OpAuthLogout: {"/auth/logout", http.MethodPost, true},

	OpAppVersion:         {"/app/version", http.MethodGet, true},
	OpAppWebAPIVersion:   {"/app/webapiVersion", http.MethodGet, true},
	OpAppBuildInfo:       {"/app/buildInfo", http.MethodGet, true},
	OpAppPreferences:     {"/app/preferences", http.MethodGet, true},
	OpAppSetPreferences:  {"/app/setPreferences", http.MethodPost, true},
	OpAppDefaultSavePath: {"/app/defaultSavePath", http.MethodGet, true},

	OpTransferInfo:                  {"/transfer/info", http.MethodGet, true},
	OpTransferSpeedLimitsMode:       {"/transfer/speedLimitsMode", http.MethodGet, true},
	OpTransferSetSpeedLimitsMode:    {"/transfer/setSpeedLimitsMode", http.MethodPost, true},
	OpTransferToggleSpeedLimitsMode: {"/transfer/toggleSpeedLimitsMode", http.MethodPost, true},
	OpTransferDownloadLimit:         {"/transfer/downloadLimit", http.MethodGet, true},
	OpTransferUploadLimit:           {"/transfer/uploadLimit", http.MethodGet, true},
	OpTransferSetDownloadLimit:      {"/transfer/setDownloadLimit", http.MethodPost, true},
	OpTransferSetUploadLimit:        {"/transfer/setUploadLimit", http.MethodPost, true},

	OpTorrentsInfo:           {"/torrents/info", http.MethodGet, true},
	OpTorrentsProperties:     {"/torrents/properties", http.MethodGet, true},
	OpTorrentsFiles:          {"/torrents/files", http.MethodGet, true},
	OpTorrentsTrackers:       {"/torrents/trackers", http.MethodGet, true},
	OpTorrentsAdd:            {"/torrents/add", http.MethodPost, true},
	OpTorrentsDelete:         {"/torrents/delete", http.MethodPost, true},
	OpTorrentsPause:          {"/torrents/pause", http.MethodPost, true},
	OpTorrentsResume:         {"/torrents/resume", http.MethodPost, true},
	OpTorrentsStart:          {"/torrents/start", http.MethodPost, true},
	OpTorrentsStop:           {"/torrents/stop", http.MethodPost, true},
	OpTorrentsRecheck:        {"/torrents/recheck", http.MethodPost, true},
	OpTorrentsReannounce:     {"/torrents/reannounce", http.MethodPost, true},
	OpTorrentsAddTrackers:    {"/torrents/addTrackers", http.MethodPost, true},
	OpTorrentsSetCategory:    {"/torrents/setCategory", http.MethodPost, true},
	OpTorrentsAddTags:        {"/torrents/addTags", http.MethodPost, true},
	OpTorrentsRemoveTags:     {"/torrents/removeTags", http.MethodPost, true},
	OpTorrentsCategories:     {"/torrents/categories", http.MethodGet, true},
	OpTorrentsCreateCategory: {"/torrents/createCategory", http.MethodPost, true},

	OpRSSItems:       {"/rss/items", http.MethodGet, true},
	OpRSSAddFolder:   {"/rss/addFolder", http.MethodPost, true},
	OpRSSAddFeed:     {"/rss/addFeed", http.MethodPost, true},
	OpRSSRemoveItem:  {"/rss/removeItem", http.MethodPost, true},
	OpRSSRefreshItem: {"/rss/refreshItem", http.MethodPost, true},

	OpSearchStart:   {"/search/start", http.MethodPost, true},
	OpSearchStop:    {"/search/stop", http.MethodPost, true},
	OpSearchDelete:  {"/search/delete", http.MethodPost, true},
	OpSearchStatus:  {"/search/status", http.MethodGet, true},
	OpSearchResults: {"/search/results", http.MethodGet, true},
	OpSearchPlugins: {"/search/plugins", http.MethodGet, true},
}

// Kinds returns every known request kind in sorted order.
func Kinds() []RequestKind {
	kinds := make([]RequestKind, 0, len(endpoints))
	for k := range endpoints {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Request is one remote operation: routing, parameters and validation.
// Parameters must not be trusted before Validate reports no errors.
type Request interface {
	Kind() RequestKind
	// Endpoint is the path below the API base path, e.g. "/app/version".
	Endpoint() string
	Method() string
	RequiresAuthentication() bool
	// Params are sent as the query of GET requests and the form of POST
	// requests. Encoding sorts them by key.
	Params() url.Values
	Headers() map[string]string
	// Validate collects every violated constraint.
	Validate() ValidationResult
	// Summary describes the request for logs and errors. Secrets are
	// reduced to their length.
	Summary() map[string]any
}

// route is embedded by every request type and resolves routing from the
// endpoint table.
type route struct {
	kind RequestKind
}

func (r route) Kind() RequestKind { return r.kind }

func (r route) Endpoint() string { return endpoints[r.kind].path }

func (r route) Method() string {
	if ep, ok := endpoints[r.kind]; ok {
		return ep.method
	}
	return http.MethodGet
}

// RequiresAuthentication defaults to true for unknown kinds.
func (r route) RequiresAuthentication() bool {
	if ep, ok := endpoints[r.kind]; ok {
		return ep.auth
	}
	return true
}

func (r route) Headers() map[string]string { return nil }

func (r route) validateKind(v *ValidationResult) {
	if _, ok := endpoints[r.kind]; !ok {
		v.addError("kind", "unknown request kind %q", r.kind)
	}
}

func (r route) summary(params url.Values) map[string]any {
	s := map[string]any{
		"kind":     string(r.kind),
		"endpoint": r.Endpoint(),
		"method":   r.Method(),
	}
	if len(params) > 0 {
		flat := make(map[string]string, len(params))
		for k := range params {
			flat[k] = params.Get(k)
		}
		s["params"] = flat
	}
	return s
}

// simpleKinds take no parameters.
var simpleKinds = map[RequestKind]bool{
	OpAuthLogout:                    true,
	OpAppVersion:                    true,
	OpAppWebAPIVersion:              true,
	OpAppBuildInfo:                  true,
	OpAppPreferences:                true,
	OpAppDefaultSavePath:            true,
	OpTransferInfo:                  true,
	OpTransferSpeedLimitsMode:       true,
	OpTransferToggleSpeedLimitsMode: true,
	OpTransferDownloadLimit:         true,
	OpTransferUploadLimit:           true,
	OpTorrentsCategories:            true,
	OpSearchPlugins:                 true,
}

// SimpleRequest is any operation without parameters.
type SimpleRequest struct {
	route
}

func NewSimpleRequest(kind RequestKind) *SimpleRequest {
	return &SimpleRequest{route{kind}}
}

func (r *SimpleRequest) Params() url.Values { return url.Values{} }

func (r *SimpleRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	if v.IsValid() && !simpleKinds[r.kind] {
		v.addError("kind", "%s takes parameters", r.kind)
	}
	return v
}

func (r *SimpleRequest) Summary() map[string]any { return r.summary(nil) }

// BuildRequest creates the request of the given kind from string
// parameters and validates it. Lists use "|" as separator, matching the
// daemon's own encoding of hashes.
func BuildRequest(kind RequestKind, params map[string]string) (Request, error) {
	if simpleKinds[kind] {
		return NewSimpleRequest(kind), nil
	}
	build, ok := builders[kind]
	if !ok {
		var v ValidationResult
		v.addError("kind", "unknown request kind %q", kind)
		return nil, NewValidationError(nil, v)
	}

	p := paramReader{values: params}
	req := build(&p)
	v := req.Validate()
	v.merge(p.result)
	if !v.IsValid() {
		return nil, NewValidationError(req, v)
	}
	return req, nil
}

var builders map[RequestKind]func(p *paramReader) Request

func init() {
	builders = map[RequestKind]func(p *paramReader) Request{
		OpAuthLogin: func(p *paramReader) Request {
			return NewLoginRequest(p.str("username"), p.str("password"))
		},
		OpAppSetPreferences: func(p *paramReader) Request {
			prefs := map[string]any{}
			for k, v := range p.values {
				prefs[k] = preferenceValue(v)
			}
			return NewSetPreferencesRequest(prefs)
		},
		OpTransferSetSpeedLimitsMode: func(p *paramReader) Request {
			return NewSetSpeedLimitsModeRequest(p.boolean("mode"))
		},
		OpTransferSetDownloadLimit: func(p *paramReader) Request {
			return NewSetDownloadLimitRequest(p.int64("limit"))
		},
		OpTransferSetUploadLimit: func(p *paramReader) Request {
			return NewSetUploadLimitRequest(p.int64("limit"))
		},
		OpTorrentsInfo: func(p *paramReader) Request {
			r := NewTorrentsInfoRequest()
			r.Filter = p.str("filter")
			r.Category = p.str("category")
			r.Tag = p.str("tag")
			r.Sort = p.str("sort")
			r.Reverse = p.boolean("reverse")
			r.Limit = int(p.int64("limit"))
			r.Offset = int(p.int64("offset"))
			r.Hashes = p.list("hashes")
			return r
		},
		OpTorrentsProperties: hashBuilder(NewTorrentPropertiesRequest),
		OpTorrentsFiles:      hashBuilder(NewTorrentFilesRequest),
		OpTorrentsTrackers:   hashBuilder(NewTorrentTrackersRequest),
		OpTorrentsAdd: func(p *paramReader) Request {
			r := NewAddTorrentRequest(p.list("urls")...)
			for _, path := range p.list("files") {
				data, err := os.ReadFile(path)
				if err != nil {
					p.result.addError("files", "cannot read %s: %v", path, err)
					continue
				}
				r.AddFile(path, data)
			}
			r.SavePath = p.str("savepath")
			r.Category = p.str("category")
			r.Tags = p.list("tags")
			r.Paused = p.boolean("paused")
			r.SkipChecking = p.boolean("skip_checking")
			r.Rename = p.str("rename")
			return r
		},
		OpTorrentsDelete: func(p *paramReader) Request {
			return NewDeleteTorrentsRequest(p.boolean("deleteFiles"), p.list("hashes")...)
		},
		OpTorrentsPause:      actionBuilder(OpTorrentsPause),
		OpTorrentsResume:     actionBuilder(OpTorrentsResume),
		OpTorrentsStart:      actionBuilder(OpTorrentsStart),
		OpTorrentsStop:       actionBuilder(OpTorrentsStop),
		OpTorrentsRecheck:    actionBuilder(OpTorrentsRecheck),
		OpTorrentsReannounce: actionBuilder(OpTorrentsReannounce),
		OpTorrentsAddTrackers: func(p *paramReader) Request {
			return NewAddTrackersRequest(p.str("hash"), p.list("urls")...)
		},
		OpTorrentsSetCategory: func(p *paramReader) Request {
			return NewSetCategoryRequest(p.str("category"), p.list("hashes")...)
		},
		OpTorrentsAddTags: func(p *paramReader) Request {
			return NewAddTagsRequest(p.list("hashes"), p.list("tags")...)
		},
		OpTorrentsRemoveTags: func(p *paramReader) Request {
			return NewRemoveTagsRequest(p.list("hashes"), p.list("tags")...)
		},
		OpTorrentsCreateCategory: func(p *paramReader) Request {
			return NewCreateCategoryRequest(p.str("category"), p.str("savePath"))
		},
		OpRSSItems: func(p *paramReader) Request {
			return NewRSSItemsRequest(p.boolean("withData"))
		},
		OpRSSAddFolder: func(p *paramReader) Request {
			return NewRSSAddFolderRequest(p.str("path"))
		},
		OpRSSAddFeed: func(p *paramReader) Request {
			return NewRSSAddFeedRequest(p.str("url"), p.str("path"))
		},
		OpRSSRemoveItem: func(p *paramReader) Request {
			return NewRSSRemoveItemRequest(p.str("path"))
		},
		OpRSSRefreshItem: func(p *paramReader) Request {
			return NewRSSRefreshItemRequest(p.str("path"))
		},
		OpSearchStart: func(p *paramReader) Request {
			r := NewSearchStartRequest(p.str("pattern"), p.list("plugins")...)
			if c, ok := p.values["category"]; ok {
				r.Category = c
			}
			return r
		},
		OpSearchStop: func(p *paramReader) Request {
			return NewSearchStopRequest(int(p.int64("id")))
		},
		OpSearchDelete: func(p *paramReader) Request {
			return NewSearchDeleteRequest(int(p.int64("id")))
		},
		OpSearchStatus: func(p *paramReader) Request {
			return NewSearchStatusRequest(int(p.int64("id")))
		},
		OpSearchResults: func(p *paramReader) Request {
			r := NewSearchResultsRequest(int(p.int64("id")))
			r.Limit = int(p.int64("limit"))
			r.Offset = int(p.int64("offset"))
			return r
		},
	}
}

func hashBuilder(newReq func(hash string) *TorrentHashRequest) func(p *paramReader) Request {
	return func(p *paramReader) Request { return newReq(p.str("hash")) }
}

func actionBuilder(kind RequestKind) func(p *paramReader) Request {
	return func(p *paramReader) Request {
		return NewTorrentsActionRequest(kind, p.list("hashes")...)
	}
}

// paramReader converts string parameters and records conversion errors.
type paramReader struct {
	values map[string]string
	result ValidationResult
}

func (p *paramReader) str(key string) string {
	return p.values[key]
}

func (p *paramReader) list(key string) []string {
	raw := strings.TrimSpace(p.values[key])
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *paramReader) boolean(key string) bool {
	raw, ok := p.values[key]
	if !ok || raw == "" {
		return false
	}
	b, err := parseBool(raw)
	if err != nil {
		p.result.addError(key, "%v", err)
	}
	return b
}

func (p *paramReader) int64(key string) int64 {
	raw, ok := p.values[key]
	if !ok || raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		p.result.addError(key, "must be an integer, got %q", raw)
	}
	return n
}

// preferenceValue keeps numbers and booleans typed in the preferences payload.
func preferenceValue(raw string) any {
	if b, err := parseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func joinHashes(hashes []string) string {
	return strings.Join(hashes, "|")
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

func requestLabel(r Request) string {
	return fmt.Sprintf("%s %s", r.Method(), r.Endpoint())
}
