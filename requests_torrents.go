package qbt

import (
	"bytes"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/jfxdev/go-qbtapi/request"
	"github.com/pkg/errors"
)

var torrentFilters = map[string]bool{
	"all": true, "downloading": true, "seeding": true, "completed": true,
	"paused": true, "stopped": true, "active": true, "inactive": true,
	"resumed": true, "running": true, "stalled": true,
	"stalled_uploading": true, "stalled_downloading": true, "errored": true,
}

// TorrentsInfoRequest lists torrents, optionally filtered.
type TorrentsInfoRequest struct {
	route
	Filter   string
	Category string
	Tag      string
	Sort     string
	Reverse  bool
	// Limit caps the number of torrents; zero means no limit.
	Limit  int
	Offset int
	Hashes []string
}

func NewTorrentsInfoRequest() *TorrentsInfoRequest {
	return &TorrentsInfoRequest{route: route{OpTorrentsInfo}}
}

func (r *TorrentsInfoRequest) Params() url.Values {
	p := url.Values{}
	if r.Filter != "" {
		p.Set("filter", r.Filter)
	}
	if r.Category != "" {
		p.Set("category", r.Category)
	}
	if r.Tag != "" {
		p.Set("tag", r.Tag)
	}
	if r.Sort != "" {
		p.Set("sort", r.Sort)
		p.Set("reverse", formatBool(r.Reverse))
	}
	if r.Limit > 0 {
		p.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.Offset != 0 {
		p.Set("offset", strconv.Itoa(r.Offset))
	}
	if len(r.Hashes) > 0 {
		p.Set("hashes", joinHashes(r.Hashes))
	}
	return p
}

func (r *TorrentsInfoRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireNonNegative("limit", int64(r.Limit))
	v.requireNonNegative("offset", int64(r.Offset))
	if len(r.Hashes) > 0 {
		v.requireHashes("hashes", r.Hashes)
	}
	if r.Filter != "" && !torrentFilters[r.Filter] {
		v.addWarning("unknown filter %q is passed through to the daemon", r.Filter)
	}
	return v
}

func (r *TorrentsInfoRequest) Summary() map[string]any { return r.summary(r.Params()) }

// TorrentHashRequest addresses a single torrent by info-hash.
type TorrentHashRequest struct {
	route
	Hash string
}

func NewTorrentPropertiesRequest(hash string) *TorrentHashRequest {
	return &TorrentHashRequest{route: route{OpTorrentsProperties}, Hash: hash}
}

func NewTorrentFilesRequest(hash string) *TorrentHashRequest {
	return &TorrentHashRequest{route: route{OpTorrentsFiles}, Hash: hash}
}

func NewTorrentTrackersRequest(hash string) *TorrentHashRequest {
	return &TorrentHashRequest{route: route{OpTorrentsTrackers}, Hash: hash}
}

func (r *TorrentHashRequest) Params() url.Values {
	return url.Values{"hash": {strings.ToLower(r.Hash)}}
}

func (r *TorrentHashRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireHash("hash", r.Hash)
	return v
}

func (r *TorrentHashRequest) Summary() map[string]any { return r.summary(r.Params()) }

// TorrentFile is a .torrent document uploaded with an add request.
type TorrentFile struct {
	Name string
	Data []byte
}

// AddTorrentRequest adds torrents from URLs (magnet, http, https) and
// uploaded .torrent files.
type AddTorrentRequest struct {
	route
	URLs  []string
	Files []TorrentFile

	SavePath               string
	Category               string
	Tags                   []string
	Paused                 bool
	SkipChecking           bool
	Rename                 string
	SequentialDownload     bool
	FirstLastPiecePriority bool
	// Limits in bytes per second; zero means unlimited.
	UploadLimit   int64
	DownloadLimit int64
}

func NewAddTorrentRequest(urls ...string) *AddTorrentRequest {
	return &AddTorrentRequest{route: route{OpTorrentsAdd}, URLs: urls}
}

// AddFile attaches a .torrent document.
func (r *AddTorrentRequest) AddFile(name string, data []byte) *AddTorrentRequest {
	r.Files = append(r.Files, TorrentFile{Name: name, Data: data})
	return r
}

// Params returns the form fields without the uploaded files.
func (r *AddTorrentRequest) Params() url.Values {
	p := url.Values{}
	if len(r.URLs) > 0 {
		p.Set("urls", strings.Join(r.URLs, "\n"))
	}
	if r.SavePath != "" {
		p.Set("savepath", r.SavePath)
	}
	if r.Category != "" {
		p.Set("category", r.Category)
	}
	if len(r.Tags) > 0 {
		p.Set("tags", strings.Join(r.Tags, ","))
	}
	if r.Paused {
		// "stopped" replaced "paused" in Web API 2.11.
		p.Set("paused", "true")
		p.Set("stopped", "true")
	}
	if r.SkipChecking {
		p.Set("skip_checking", "true")
	}
	if r.Rename != "" {
		p.Set("rename", r.Rename)
	}
	if r.SequentialDownload {
		p.Set("sequentialDownload", "true")
	}
	if r.FirstLastPiecePriority {
		p.Set("firstLastPiecePrio", "true")
	}
	if r.UploadLimit > 0 {
		p.Set("upLimit", strconv.FormatInt(r.UploadLimit, 10))
	}
	if r.DownloadLimit > 0 {
		p.Set("dlLimit", strconv.FormatInt(r.DownloadLimit, 10))
	}
	return p
}

// Multipart renders the request as the multipart body the daemon expects.
func (r *AddTorrentRequest) Multipart() (*request.Multipart, error) {
	m := request.NewMultipart()
	params := r.Params()
	for _, k := range sortedKeys(params) {
		m.AddField(k, params.Get(k))
	}
	for _, f := range r.Files {
		if len(f.Data) == 0 {
			return nil, errors.Errorf("torrent file %s is empty", f.Name)
		}
		m.AddFile("torrents", filepath.Base(f.Name), f.Data)
	}
	return m, nil
}

// InfoHashes returns the v1 info-hashes of every source that carries one:
// magnet links and uploaded files. HTTP URLs are skipped.
func (r *AddTorrentRequest) InfoHashes() []string {
	var hashes []string
	for _, u := range r.URLs {
		if m, err := ParseMagnetLink(u); err == nil && m.InfoHash != "" {
			hashes = append(hashes, m.InfoHash)
		}
	}
	for _, f := range r.Files {
		if h, err := torrentFileInfoHash(f.Data); err == nil {
			hashes = append(hashes, h)
		}
	}
	return hashes
}

func (r *AddTorrentRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)

	if len(r.URLs) == 0 && len(r.Files) == 0 {
		v.addError("source", "at least one URL or torrent file is required")
	}
	for i, u := range r.URLs {
		if err := validateTorrentURL(u); err != nil {
			v.addError("urls", "url #%d: %v", i+1, err)
			break
		}
	}
	for i, f := range r.Files {
		if strings.TrimSpace(f.Name) == "" {
			v.addError("files", "file #%d has no name", i+1)
			break
		}
		if _, err := torrentFileInfoHash(f.Data); err != nil {
			v.addError("files", "%s: %v", f.Name, err)
			break
		}
	}
	v.requireNonNegative("upLimit", r.UploadLimit)
	v.requireNonNegative("dlLimit", r.DownloadLimit)
	if r.Rename != "" && len(r.URLs)+len(r.Files) > 1 {
		v.addWarning("rename applies to every added torrent")
	}
	return v
}

func (r *AddTorrentRequest) Summary() map[string]any {
	params := r.Params()
	s := r.summary(params)
	if len(r.Files) > 0 {
		names := make([]string, len(r.Files))
		for i, f := range r.Files {
			names[i] = f.Name
		}
		s["files"] = names
	}
	return s
}

func validateTorrentURL(raw string) error {
	switch {
	case strings.HasPrefix(raw, "magnet:"):
		m, err := ParseMagnetLink(raw)
		if err != nil {
			return err
		}
		if m.InfoHash == "" {
			return errors.New("magnet link has no btih info-hash")
		}
		return nil
	case strings.HasPrefix(raw, "bc://bt/"):
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "malformed URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be a magnet, http or https URL")
	}
	return nil
}

// torrentFileInfoHash decodes a .torrent document and returns its v1
// info-hash.
func torrentFileInfoHash(data []byte) (string, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "not a torrent file")
	}
	if _, err := mi.UnmarshalInfo(); err != nil {
		return "", errors.Wrap(err, "invalid info dictionary")
	}
	return mi.HashInfoBytes().HexString(), nil
}

// TorrentsActionRequest runs a hash-scoped action (pause, resume, start,
// stop, recheck, reannounce). Hashes may be the single value "all".
type TorrentsActionRequest struct {
	route
	Hashes []string
}

var torrentActions = map[RequestKind]bool{
	OpTorrentsPause:      true,
	OpTorrentsResume:     true,
	OpTorrentsStart:      true,
	OpTorrentsStop:       true,
	OpTorrentsRecheck:    true,
	OpTorrentsReannounce: true,
}

func NewTorrentsActionRequest(kind RequestKind, hashes ...string) *TorrentsActionRequest {
	return &TorrentsActionRequest{route: route{kind}, Hashes: hashes}
}

func (r *TorrentsActionRequest) Params() url.Values {
	return url.Values{"hashes": {joinHashes(r.Hashes)}}
}

func (r *TorrentsActionRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	if v.IsValid() && !torrentActions[r.kind] {
		v.addError("kind", "%s is not a torrent action", r.kind)
	}
	v.requireHashes("hashes", r.Hashes)
	return v
}

func (r *TorrentsActionRequest) Summary() map[string]any { return r.summary(r.Params()) }

// DeleteTorrentsRequest removes torrents, and their data when DeleteFiles
// is set.
type DeleteTorrentsRequest struct {
	route
	Hashes      []string
	DeleteFiles bool
}

func NewDeleteTorrentsRequest(deleteFiles bool, hashes ...string) *DeleteTorrentsRequest {
	return &DeleteTorrentsRequest{route: route{OpTorrentsDelete}, Hashes: hashes, DeleteFiles: deleteFiles}
}

func (r *DeleteTorrentsRequest) Params() url.Values {
	return url.Values{
		"hashes":      {joinHashes(r.Hashes)},
		"deleteFiles": {formatBool(r.DeleteFiles)},
	}
}

func (r *DeleteTorrentsRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireHashes("hashes", r.Hashes)
	if r.DeleteFiles && len(r.Hashes) == 1 && strings.EqualFold(r.Hashes[0], AllTorrents) {
		v.addWarning("deleting the data of every torrent")
	}
	return v
}

func (r *DeleteTorrentsRequest) Summary() map[string]any { return r.summary(r.Params()) }

// AddTrackersRequest appends tracker URLs to one torrent.
type AddTrackersRequest struct {
	route
	Hash string
	URLs []string
}

func NewAddTrackersRequest(hash string, urls ...string) *AddTrackersRequest {
	return &AddTrackersRequest{route: route{OpTorrentsAddTrackers}, Hash: hash, URLs: urls}
}

func (r *AddTrackersRequest) Params() url.Values {
	return url.Values{
		"hash": {strings.ToLower(r.Hash)},
		"urls": {strings.Join(r.URLs, "\n")},
	}
}

func (r *AddTrackersRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireHash("hash", r.Hash)
	if len(r.URLs) == 0 {
		v.addError("urls", "at least one tracker URL is required")
	}
	for i, raw := range r.URLs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			v.addError("urls", "tracker #%d (%q) is not a URL", i+1, raw)
			break
		}
		if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "udp" {
			v.addError("urls", "tracker #%d must use http, https or udp", i+1)
			break
		}
	}
	return v
}

func (r *AddTrackersRequest) Summary() map[string]any { return r.summary(r.Params()) }

// SetCategoryRequest moves torrents into a category; an empty category
// removes the current one.
type SetCategoryRequest struct {
	route
	Hashes   []string
	Category string
}

func NewSetCategoryRequest(category string, hashes ...string) *SetCategoryRequest {
	return &SetCategoryRequest{route: route{OpTorrentsSetCategory}, Hashes: hashes, Category: category}
}

func (r *SetCategoryRequest) Params() url.Values {
	return url.Values{
		"hashes":   {joinHashes(r.Hashes)},
		"category": {r.Category},
	}
}

func (r *SetCategoryRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireHashes("hashes", r.Hashes)
	return v
}

func (r *SetCategoryRequest) Summary() map[string]any { return r.summary(r.Params()) }

// TagsRequest adds or removes tags on torrents.
type TagsRequest struct {
	route
	Hashes []string
	Tags   []string
}

func NewAddTagsRequest(hashes []string, tags ...string) *TagsRequest {
	return &TagsRequest{route: route{OpTorrentsAddTags}, Hashes: hashes, Tags: tags}
}

func NewRemoveTagsRequest(hashes []string, tags ...string) *TagsRequest {
	return &TagsRequest{route: route{OpTorrentsRemoveTags}, Hashes: hashes, Tags: tags}
}

func (r *TagsRequest) Params() url.Values {
	return url.Values{
		"hashes": {joinHashes(r.Hashes)},
		"tags":   {strings.Join(r.Tags, ",")},
	}
}

func (r *TagsRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	if v.IsValid() && r.kind != OpTorrentsAddTags && r.kind != OpTorrentsRemoveTags {
		v.addError("kind", "%s is not a tag operation", r.kind)
	}
	v.requireHashes("hashes", r.Hashes)
	if len(r.Tags) == 0 {
		v.addError("tags", "at least one tag is required")
	}
	for _, tag := range r.Tags {
		if strings.TrimSpace(tag) == "" || strings.Contains(tag, ",") {
			v.addError("tags", "tags must be non-empty and must not contain commas")
			break
		}
	}
	return v
}

func (r *TagsRequest) Summary() map[string]any { return r.summary(r.Params()) }

// CreateCategoryRequest defines a new category.
type CreateCategoryRequest struct {
	route
	Category string
	SavePath string
}

func NewCreateCategoryRequest(category, savePath string) *CreateCategoryRequest {
	return &CreateCategoryRequest{route: route{OpTorrentsCreateCategory}, Category: category, SavePath: savePath}
}

func (r *CreateCategoryRequest) Params() url.Values {
	return url.Values{
		"category": {r.Category},
		"savePath": {r.SavePath},
	}
}

func (r *CreateCategoryRequest) Validate() ValidationResult {
	var v ValidationResult
	r.validateKind(&v)
	v.requireText("category", r.Category)
	return v
}

func (r *CreateCategoryRequest) Summary() map[string]any { return r.summary(r.Params()) }
