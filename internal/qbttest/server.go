// Package qbttest runs an in-memory qBittorrent Web API daemon for tests.
package qbttest

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	DefaultUsername = "admin"
	DefaultPassword = "adminadmin"
	DefaultVersion  = "v5.0.1"
)

// Recorded is one request received by the daemon, relative to /api/v2.
type Recorded struct {
	Method    string
	Path      string
	SessionID string
	UserAgent string
	Query     url.Values
	Form      url.Values
	Files     []string
}

// Torrent is the state the daemon keeps per torrent.
type Torrent struct {
	Hash     string   `json:"hash"`
	Name     string   `json:"name"`
	State    string   `json:"state"`
	Category string   `json:"category"`
	Tags     string   `json:"tags"`
	SavePath string   `json:"save_path"`
	Magnet   string   `json:"magnet_uri"`
	Size     int64    `json:"size"`
	Progress float64  `json:"progress"`
	Trackers []string `json:"-"`
}

type feed struct {
	UID string `json:"uid"`
	URL string `json:"url"`
}

type searchJob struct {
	ID      int    `json:"id"`
	Pattern string `json:"-"`
	Status  string `json:"status"`
	Total   int    `json:"total"`
}

// Server is a fake daemon. Its fields may be changed between requests
// while holding no lock; use the methods when requests run concurrently.
type Server struct {
	*httptest.Server

	Username string
	Password string
	Version  string

	mu          sync.Mutex
	sessions    map[string]bool
	banned      bool
	failures    map[string]int
	requests    []Recorded
	torrents    map[string]*Torrent
	categories  map[string]string
	preferences map[string]any
	altSpeed    bool
	dlLimit     int64
	upLimit     int64
	feeds       map[string]feed
	folders     map[string]bool
	searches    map[int]*searchJob
	nextSearch  int
}

// New starts a daemon accepting DefaultUsername and DefaultPassword.
func New() *Server {
	s := &Server{
		Username:   DefaultUsername,
		Password:   DefaultPassword,
		Version:    DefaultVersion,
		sessions:   map[string]bool{},
		failures:   map[string]int{},
		torrents:   map[string]*Torrent{},
		categories: map[string]string{},
		feeds:      map[string]feed{},
		folders:    map[string]bool{},
		searches:   map[int]*searchJob{},
		nextSearch: 1,
	}
	s.preferences = map[string]any{
		"save_path":           "/downloads",
		"dht":                 true,
		"max_active_torrents": 5,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// Ban makes every login answer 403.
func (s *Server) Ban(banned bool) {
	s.mu.Lock()
	s.banned = banned
	s.mu.Unlock()
}

// FailWith makes path (e.g. "/auth/logout") answer status until cleared
// with status 0.
func (s *Server) FailWith(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Requests returns every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// LastRequest returns the most recent request to path.
func (s *Server) LastRequest(path string) (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return Recorded{}, false
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// AddTorrent seeds the daemon with a torrent.
func (s *Server) AddTorrent(t Torrent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Hash = strings.ToLower(t.Hash)
	if t.State == "" {
		t.State = "downloading"
	}
	s.torrents[t.Hash] = &t
}

// Torrent returns a copy of the stored torrent.
func (s *Server) Torrent(hash string) (Torrent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.torrents[strings.ToLower(hash)]
	if !ok {
		return Torrent{}, false
	}
	return *t, true
}

// Preference returns a stored preference.
func (s *Server) Preference(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences[key]
}

// TorrentFile builds a minimal single-file .torrent document.
func TorrentFile(name string) ([]byte, string, error) {
	info := metainfo.Info{
		Name:        name,
		PieceLength: 16 * 1024,
		Length:      1024,
		Pieces:      make([]byte, 20),
	}
	infoBytes, err := bencode.Marshal(info)
	if err != nil {
		return nil, "", err
	}
	mi := metainfo.MetaInfo{
		InfoBytes: infoBytes,
		Announce:  "http://tracker.example.org/announce",
	}
	var buf bytes.Buffer
	if err := mi.Write(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mi.HashInfoBytes().HexString(), nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v2", func(r chi.Router) {
		r.Use(s.record)
		r.Use(s.injectFailures)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticated)
			r.Post("/auth/logout", s.handleLogout)

			r.Route("/app", func(r chi.Router) {
				r.Get("/version", s.text(func() string { return s.Version }))
				r.Get("/webapiVersion", s.text(func() string { return "2.11.2" }))
				r.Get("/buildInfo", s.handleBuildInfo)
				r.Get("/preferences", s.handlePreferences)
				r.Post("/setPreferences", s.handleSetPreferences)
				r.Get("/defaultSavePath", s.text(func() string { return "/downloads" }))
			})

			r.Route("/transfer", func(r chi.Router) {
				r.Get("/info", s.handleTransferInfo)
				r.Get("/speedLimitsMode", s.handleSpeedLimitsMode)
				r.Post("/setSpeedLimitsMode", s.handleSetSpeedLimitsMode)
				r.Post("/toggleSpeedLimitsMode", s.handleToggleSpeedLimitsMode)
				r.Get("/downloadLimit", s.handleLimit(&s.dlLimit))
				r.Get("/uploadLimit", s.handleLimit(&s.upLimit))
				r.Post("/setDownloadLimit", s.handleSetLimit(&s.dlLimit))
				r.Post("/setUploadLimit", s.handleSetLimit(&s.upLimit))
			})

			r.Route("/torrents", func(r chi.Router) {
				r.Get("/info", s.handleTorrentsInfo)
				r.Get("/properties", s.handleTorrentProperties)
				r.Get("/files", s.handleTorrentFiles)
				r.Get("/trackers", s.handleTorrentTrackers)
				r.Post("/add", s.handleTorrentsAdd)
				r.Post("/delete", s.handleTorrentsDelete)
				r.Post("/pause", s.setState("stoppedDL"))
				r.Post("/stop", s.setState("stoppedDL"))
				r.Post("/resume", s.setState("downloading"))
				r.Post("/start", s.setState("downloading"))
				r.Post("/recheck", s.setState("checkingDL"))
				r.Post("/reannounce", s.setState(""))
				r.Post("/addTrackers", s.handleAddTrackers)
				r.Post("/setCategory", s.handleSetCategory)
				r.Post("/addTags", s.handleTags(true))
				r.Post("/removeTags", s.handleTags(false))
				r.Get("/categories", s.handleCategories)
				r.Post("/createCategory", s.handleCreateCategory)
			})

			r.Route("/rss", func(r chi.Router) {
				r.Get("/items", s.handleRSSItems)
				r.Post("/addFolder", s.handleRSSAddFolder)
				r.Post("/addFeed", s.handleRSSAddFeed)
				r.Post("/removeItem", s.handleRSSRemoveItem)
				r.Post("/refreshItem", s.handleRSSRefreshItem)
			})

			r.Route("/search", func(r chi.Router) {
				r.Post("/start", s.handleSearchStart)
				r.Post("/stop", s.handleSearchStop)
				r.Post("/delete", s.handleSearchDelete)
				r.Get("/status", s.handleSearchStatus)
				r.Get("/results", s.handleSearchResults)
				r.Get("/plugins", s.handleSearchPlugins)
			})
		})
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Recorded{
			Method:    r.Method,
			Path:      strings.TrimPrefix(r.URL.Path, "/api/v2"),
			UserAgent: r.UserAgent(),
			Query:     r.URL.Query(),
		}
		if c, err := r.Cookie("SID"); err == nil {
			rec.SessionID = c.Value
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(32 << 20); err == nil {
				rec.Form = url.Values(r.MultipartForm.Value)
				for _, fh := range r.MultipartForm.File["torrents"] {
					rec.Files = append(rec.Files, fh.Filename)
				}
			}
		} else if r.Method == http.MethodPost {
			_ = r.ParseForm()
			rec.Form = r.PostForm
		}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[strings.TrimPrefix(r.URL.Path, "/api/v2")]
		s.mu.Unlock()
		if ok {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("SID")
		s.mu.Lock()
		ok := err == nil && s.sessions[c.Value]
		s.mu.Unlock()
		if !ok {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonResponse(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func textResponse(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	_, _ = w.Write([]byte(text))
}

func (s *Server) text(value func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		v := value()
		s.mu.Unlock()
		textResponse(w, v)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banned {
		http.Error(w, "Your IP address has been banned after too many failed authentication attempts.", http.StatusForbidden)
		return
	}
	if r.FormValue("username") != s.Username || r.FormValue("password") != s.Password {
		textResponse(w, "Fails.")
		return
	}
	sid := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.sessions[sid] = true
	http.SetCookie(w, &http.Cookie{Name: "SID", Value: sid, Path: "/", HttpOnly: true})
	textResponse(w, "Ok.")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie("SID")
	s.mu.Lock()
	delete(s.sessions, c.Value)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBuildInfo(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{
		"qt":         "6.7.2",
		"libtorrent": "2.0.10.0",
		"boost":      "1.85.0",
		"openssl":    "3.3.1",
		"zlib":       "1.3.1",
		"bitness":    64,
		"platform":   "linux",
	}, http.StatusOK)
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jsonResponse(w, s.preferences, http.StatusOK)
}

func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var update map[string]any
	if err := json.Unmarshal([]byte(r.FormValue("json")), &update); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	for k, v := range update {
		s.preferences[k] = v
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTransferInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jsonResponse(w, map[string]any{
		"dl_info_speed":     1024,
		"dl_info_data":      1 << 20,
		"up_info_speed":     512,
		"up_info_data":      1 << 19,
		"dl_rate_limit":     s.dlLimit,
		"up_rate_limit":     s.upLimit,
		"dht_nodes":         42,
		"connection_status": "connected",
	}, http.StatusOK)
}

func (s *Server) handleSpeedLimitsMode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.altSpeed {
		textResponse(w, "1")
		return
	}
	textResponse(w, "0")
}

func (s *Server) handleSetSpeedLimitsMode(w http.ResponseWriter, r *http.Request) {
	mode := r.FormValue("mode")
	if mode != "0" && mode != "1" {
		http.Error(w, "mode must be 0 or 1", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.altSpeed = mode == "1"
	s.mu.Unlock()
}

func (s *Server) handleToggleSpeedLimitsMode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.altSpeed = !s.altSpeed
	s.mu.Unlock()
}

func (s *Server) handleLimit(limit *int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		textResponse(w, strconv.FormatInt(*limit, 10))
	}
}

func (s *Server) handleSetLimit(limit *int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.ParseInt(r.FormValue("limit"), 10, 64)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		*limit = n
		s.mu.Unlock()
	}
}

func (s *Server) handleTorrentsInfo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wanted := map[string]bool{}
	if h := q.Get("hashes"); h != "" {
		for _, hash := range strings.Split(h, "|") {
			wanted[strings.ToLower(hash)] = true
		}
	}

	s.mu.Lock()
	list := make([]Torrent, 0, len(s.torrents))
	for _, t := range s.torrents {
		if len(wanted) > 0 && !wanted[t.Hash] {
			continue
		}
		if c := q.Get("category"); c != "" && t.Category != c {
			continue
		}
		list = append(list, *t)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	if limit, _ := strconv.Atoi(q.Get("limit")); limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	jsonResponse(w, list, http.StatusOK)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Torrent, bool) {
	hash := strings.ToLower(r.URL.Query().Get("hash"))
	if hash == "" {
		hash = strings.ToLower(r.FormValue("hash"))
	}
	t, ok := s.torrents[hash]
	if !ok {
		http.Error(w, "Torrent hash was not found", http.StatusNotFound)
	}
	return t, ok
}

func (s *Server) handleTorrentProperties(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	jsonResponse(w, map[string]any{
		"save_path":   t.SavePath,
		"total_size":  t.Size,
		"share_ratio": 0.5,
		"pieces_num":  1,
		"pieces_have": 1,
		"hash":        t.Hash,
		"name":        t.Name,
		"comment":     "",
		"isPrivate":   false,
	}, http.StatusOK)
}

func (s *Server) handleTorrentFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	jsonResponse(w, []map[string]any{{
		"index":        0,
		"name":         t.Name,
		"size":         t.Size,
		"progress":     t.Progress,
		"priority":     1,
		"is_seed":      false,
		"piece_range":  []int{0, 0},
		"availability": 1.0,
	}}, http.StatusOK)
}

func (s *Server) handleTorrentTrackers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	// DHT entries carry an empty tier, as older daemons send it.
	trackers := []map[string]any{{"url": "** [DHT] **", "status": 2, "tier": "", "msg": ""}}
	for i, u := range t.Trackers {
		trackers = append(trackers, map[string]any{"url": u, "status": 2, "tier": i, "num_peers": 3, "msg": ""})
	}
	jsonResponse(w, trackers, http.StatusOK)
}

func (s *Server) handleTorrentsAdd(w http.ResponseWriter, r *http.Request) {
	if r.MultipartForm == nil {
		http.Error(w, "expected multipart/form-data", http.StatusUnsupportedMediaType)
		return
	}

	var added []*Torrent
	for _, line := range strings.Split(r.FormValue("urls"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		t := &Torrent{Name: line}
		if m, err := metainfo.ParseMagnetUri(line); err == nil {
			t.Hash = m.InfoHash.HexString()
			t.Magnet = line
			if m.DisplayName != "" {
				t.Name = m.DisplayName
			}
		} else {
			t.Hash = fmt.Sprintf("%040x", len(line))
		}
		added = append(added, t)
	}
	for _, fh := range r.MultipartForm.File["torrents"] {
		f, err := fh.Open()
		if err != nil {
			continue
		}
		mi, err := metainfo.Load(f)
		f.Close()
		if err != nil {
			continue
		}
		info, err := mi.UnmarshalInfo()
		if err != nil {
			continue
		}
		added = append(added, &Torrent{Hash: mi.HashInfoBytes().HexString(), Name: info.Name, Size: info.TotalLength()})
	}
	if len(added) == 0 {
		textResponse(w, "Fails.")
		return
	}

	state := "downloading"
	if r.FormValue("stopped") == "true" || r.FormValue("paused") == "true" {
		state = "stoppedDL"
	}
	s.mu.Lock()
	for _, t := range added {
		t.State = state
		t.Category = r.FormValue("category")
		t.Tags = r.FormValue("tags")
		t.SavePath = r.FormValue("savepath")
		s.torrents[t.Hash] = t
	}
	s.mu.Unlock()
	textResponse(w, "Ok.")
}

// selected resolves the hashes form field; "all" selects every torrent.
func (s *Server) selected(r *http.Request) []*Torrent {
	var out []*Torrent
	raw := r.FormValue("hashes")
	if raw == "all" {
		for _, t := range s.torrents {
			out = append(out, t)
		}
		return out
	}
	for _, h := range strings.Split(raw, "|") {
		if t, ok := s.torrents[strings.ToLower(h)]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (s *Server) handleTorrentsDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.selected(r) {
		delete(s.torrents, t.Hash)
	}
}

func (s *Server) setState(state string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if state == "" {
			return
		}
		for _, t := range s.selected(r) {
			t.State = state
		}
	}
}

func (s *Server) handleAddTrackers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	for _, u := range strings.Split(r.FormValue("urls"), "\n") {
		if u = strings.TrimSpace(u); u != "" {
			t.Trackers = append(t.Trackers, u)
		}
	}
}

func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	category := r.FormValue("category")
	if _, ok := s.categories[category]; category != "" && !ok {
		http.Error(w, "Category does not exist", http.StatusConflict)
		return
	}
	for _, t := range s.selected(r) {
		t.Category = category
	}
}

func (s *Server) handleTags(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags := strings.Split(r.FormValue("tags"), ",")
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, t := range s.selected(r) {
			current := map[string]bool{}
			for _, tag := range strings.Split(t.Tags, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					current[tag] = true
				}
			}
			for _, tag := range tags {
				current[strings.TrimSpace(tag)] = add
			}
			var kept []string
			for tag, on := range current {
				if on {
					kept = append(kept, tag)
				}
			}
			sort.Strings(kept)
			t.Tags = strings.Join(kept, ",")
		}
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]map[string]string{}
	for name, path := range s.categories {
		out[name] = map[string]string{"name": name, "savePath": path}
	}
	jsonResponse(w, out, http.StatusOK)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("category"))
	if name == "" {
		http.Error(w, "Category name is empty", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.categories[name]; exists {
		http.Error(w, "Category already exists", http.StatusConflict)
		return
	}
	s.categories[name] = r.FormValue("savePath")
}

func (s *Server) handleRSSItems(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root := map[string]any{}
	for path := range s.folders {
		placeFolder(root, path)
	}
	for path, f := range s.feeds {
		parent, name := splitRSSPath(path)
		placeFolder(root, parent)[name] = f
	}
	jsonResponse(w, root, http.StatusOK)
}

func placeFolder(root map[string]any, path string) map[string]any {
	node := root
	if path == "" {
		return node
	}
	for _, part := range strings.Split(path, `\`) {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	return node
}

func splitRSSPath(path string) (string, string) {
	i := strings.LastIndex(path, `\`)
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func (s *Server) handleRSSAddFolder(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("path")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folders[path] {
		http.Error(w, "Item already exists", http.StatusConflict)
		return
	}
	s.folders[path] = true
}

func (s *Server) handleRSSAddFeed(w http.ResponseWriter, r *http.Request) {
	feedURL := r.FormValue("url")
	path := r.FormValue("path")
	if path == "" {
		path = feedURL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.feeds[path]; exists {
		http.Error(w, "Feed already exists", http.StatusConflict)
		return
	}
	s.feeds[path] = feed{UID: "{" + uuid.NewString() + "}", URL: feedURL}
}

func (s *Server) handleRSSRemoveItem(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("path")
	s.mu.Lock()
	defer s.mu.Unlock()
	_, isFeed := s.feeds[path]
	if !isFeed && !s.folders[path] {
		http.Error(w, "Item does not exist", http.StatusConflict)
		return
	}
	delete(s.feeds, path)
	delete(s.folders, path)
}

func (s *Server) handleRSSRefreshItem(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("itemPath")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.feeds[path]; !ok && !s.folders[path] {
		http.Error(w, "Item does not exist", http.StatusConflict)
	}
}

func (s *Server) handleSearchStart(w http.ResponseWriter, r *http.Request) {
	pattern := r.FormValue("pattern")
	if pattern == "" || r.FormValue("plugins") == "" || r.FormValue("category") == "" {
		http.Error(w, "missing parameters", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSearch
	s.nextSearch++
	s.searches[id] = &searchJob{ID: id, Pattern: pattern, Status: "Running", Total: 2}
	jsonResponse(w, map[string]int{"id": id}, http.StatusOK)
}

func (s *Server) job(w http.ResponseWriter, raw string) (*searchJob, bool) {
	id, _ := strconv.Atoi(raw)
	j, ok := s.searches[id]
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
	}
	return j, ok
}

func (s *Server) handleSearchStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.job(w, r.FormValue("id")); ok {
		j.Status = "Stopped"
	}
}

func (s *Server) handleSearchDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.job(w, r.FormValue("id")); ok {
		delete(s.searches, j.ID)
	}
}

func (s *Server) handleSearchStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw := r.URL.Query().Get("id"); raw != "" {
		if j, ok := s.job(w, raw); ok {
			jsonResponse(w, []*searchJob{j}, http.StatusOK)
		}
		return
	}
	jobs := make([]*searchJob, 0, len(s.searches))
	for _, j := range s.searches {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	jsonResponse(w, jobs, http.StatusOK)
}

func (s *Server) handleSearchResults(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.job(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	results := []map[string]any{
		{"fileName": j.Pattern + " 1080p", "fileUrl": "magnet:?xt=urn:btih:" + strings.Repeat("a", 40), "fileSize": 1 << 30, "nbSeeders": 10, "nbLeechers": 2, "siteUrl": "https://tracker.example.org"},
		{"fileName": j.Pattern + " 720p", "fileUrl": "magnet:?xt=urn:btih:" + strings.Repeat("b", 40), "fileSize": 1 << 29, "nbSeeders": 5, "nbLeechers": 1, "siteUrl": "https://tracker.example.org"},
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset > len(results) {
		offset = len(results)
	}
	results = results[offset:]
	if limit, _ := strconv.Atoi(r.URL.Query().Get("limit")); limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	jsonResponse(w, map[string]any{"results": results, "status": j.Status, "total": j.Total}, http.StatusOK)
}

func (s *Server) handleSearchPlugins(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, []map[string]any{
		{
			"name": "legittorrents", "fullName": "Legit Torrents", "version": "2.7",
			"url": "http://www.legittorrents.info", "enabled": true,
			"supportedCategories": []map[string]string{{"id": "all", "name": "All categories"}, {"id": "movies", "name": "Movies"}},
		},
		{
			"name": "piratebay", "fullName": "The Pirate Bay", "version": "3.3",
			"url": "https://thepiratebay.org", "enabled": false,
			"supportedCategories": []string{"all", "music"},
		},
	}, http.StatusOK)
}
