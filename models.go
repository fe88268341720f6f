package qbt

import (
	"time"

	"github.com/tidwall/gjson"
)

// ListOptions filters torrent listings.
type ListOptions struct {
	Filter   string
	Category string
	Tag      string
	Sort     string
	Reverse  bool
	Limit    int
	Offset   int
	Hashes   []string
}

func (o ListOptions) request() *TorrentsInfoRequest {
	r := NewTorrentsInfoRequest()
	r.Filter = o.Filter
	r.Category = o.Category
	r.Tag = o.Tag
	r.Sort = o.Sort
	r.Reverse = o.Reverse
	r.Limit = o.Limit
	r.Offset = o.Offset
	r.Hashes = o.Hashes
	return r
}

// TorrentConfig configures new torrent creation from a link.
type TorrentConfig struct {
	MagnetURI    string
	Directory    string
	Category     string
	Tags         []string
	Paused       bool
	SkipChecking bool
}

func (c TorrentConfig) request() *AddTorrentRequest {
	r := NewAddTorrentRequest(c.MagnetURI)
	r.SavePath = c.Directory
	r.Category = c.Category
	r.Tags = c.Tags
	r.Paused = c.Paused
	r.SkipChecking = c.SkipChecking
	return r
}

// LoginInfo describes a freshly opened session.
type LoginInfo struct {
	SessionID string    `json:"-"`
	Username  string    `json:"username"`
	LoggedIn  time.Time `json:"logged_in_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BuildInfo lists the library versions the daemon was built with.
type BuildInfo struct {
	Qt         string `json:"qt"`
	Libtorrent string `json:"libtorrent"`
	Boost      string `json:"boost"`
	OpenSSL    string `json:"openssl"`
	Zlib       string `json:"zlib"`
	Bitness    int    `json:"bitness"`
	Platform   string `json:"platform"`
}

// Preferences is the daemon preference document. Lookups use gjson paths,
// e.g. "save_path" or "scan_dirs.0".
type Preferences struct {
	raw []byte
}

func (p Preferences) Get(path string) gjson.Result {
	return gjson.GetBytes(p.raw, path)
}

func (p Preferences) String(key string) string { return p.Get(key).String() }

func (p Preferences) Int(key string) int64 { return p.Get(key).Int() }

func (p Preferences) Bool(key string) bool { return p.Get(key).Bool() }

// Has reports whether the daemon sent key.
func (p Preferences) Has(key string) bool { return p.Get(key).Exists() }

// Map returns every preference as generic values.
func (p Preferences) Map() map[string]any {
	m, ok := gjson.ParseBytes(p.raw).Value().(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// Raw returns the undecoded document.
func (p Preferences) Raw() []byte {
	return append([]byte(nil), p.raw...)
}

// TransferInfo represents global transfer information.
type TransferInfo struct {
	DlInfoSpeed      int64  `json:"dl_info_speed"`
	DlInfoData       int64  `json:"dl_info_data"`
	UpInfoSpeed      int64  `json:"up_info_speed"`
	UpInfoData       int64  `json:"up_info_data"`
	DlRateLimit      int64  `json:"dl_rate_limit"`
	UpRateLimit      int64  `json:"up_rate_limit"`
	DhtNodes         int    `json:"dht_nodes"`
	ConnectionStatus string `json:"connection_status"`
}

// Torrent is a subset of torrent info returned by qBittorrent.
type Torrent struct {
	AddedOn       int64   `json:"added_on"`
	Category      string  `json:"category"`
	CompletionOn  int64   `json:"completion_on"`
	Dlspeed       int64   `json:"dlspeed"`
	Downloaded    int64   `json:"downloaded"`
	Eta           int64   `json:"eta"`
	ForceStart    bool    `json:"force_start"`
	Hash          string  `json:"hash"`
	InfoHashV1    string  `json:"infohash_v1"`
	InfoHashV2    string  `json:"infohash_v2"`
	MagnetURI     string  `json:"magnet_uri"`
	Name          string  `json:"name"`
	NumComplete   int     `json:"num_complete"`
	NumIncomplete int     `json:"num_incomplete"`
	NumLeechs     int     `json:"num_leechs"`
	NumSeeds      int     `json:"num_seeds"`
	Priority      int     `json:"priority"`
	Progress      float64 `json:"progress"`
	Ratio         float64 `json:"ratio"`
	SavePath      string  `json:"save_path"`
	SeqDl         bool    `json:"seq_dl"`
	Size          int64   `json:"size"`
	State         string  `json:"state"`
	SuperSeeding  bool    `json:"super_seeding"`
	Upspeed       int64   `json:"upspeed"`
	Uploaded      int64   `json:"uploaded"`
	Tags          string  `json:"tags"`

	// MagnetLink is parsed from MagnetURI when listing.
	MagnetLink *MagnetLink `json:"-"`
}

// TorrentProperties holds the generic properties of one torrent.
type TorrentProperties struct {
	SavePath             string  `json:"save_path"`
	CreationDate         int64   `json:"creation_date"`
	PieceSize            int64   `json:"piece_size"`
	Comment              string  `json:"comment"`
	TotalWasted          int64   `json:"total_wasted"`
	TotalUploaded        int64   `json:"total_uploaded"`
	TotalDownloaded      int64   `json:"total_downloaded"`
	UpLimit              int64   `json:"up_limit"`
	DlLimit              int64   `json:"dl_limit"`
	TimeElapsed          int64   `json:"time_elapsed"`
	SeedingTime          int64   `json:"seeding_time"`
	NbConnections        int     `json:"nb_connections"`
	NbConnectionsLimit   int     `json:"nb_connections_limit"`
	ShareRatio           float64 `json:"share_ratio"`
	AdditionDate         int64   `json:"addition_date"`
	CompletionDate       int64   `json:"completion_date"`
	CreatedBy            string  `json:"created_by"`
	DlSpeedAvg           int64   `json:"dl_speed_avg"`
	DlSpeed              int64   `json:"dl_speed"`
	Eta                  int64   `json:"eta"`
	LastSeen             int64   `json:"last_seen"`
	Peers                int     `json:"peers"`
	PeersTotal           int     `json:"peers_total"`
	PiecesHave           int     `json:"pieces_have"`
	PiecesNum            int     `json:"pieces_num"`
	Reannounce           int64   `json:"reannounce"`
	Seeds                int     `json:"seeds"`
	SeedsTotal           int     `json:"seeds_total"`
	TotalSize            int64   `json:"total_size"`
	UpSpeedAvg           int64   `json:"up_speed_avg"`
	UpSpeed              int64   `json:"up_speed"`
	IsPrivate            bool    `json:"isPrivate"`
	InfoHashV1           string  `json:"infohash_v1"`
	InfoHashV2           string  `json:"infohash_v2"`
	Name                 string  `json:"name"`
	Hash                 string  `json:"hash"`
	DownloadPath         string  `json:"download_path"`
	Popularity           float64 `json:"popularity"`
	SeedingTimeLimit     int64   `json:"seeding_time_limit"`
	InactiveSeedingLimit int64   `json:"inactive_seeding_time_limit"`
}

// TorrentContent is one file inside a torrent.
type TorrentContent struct {
	Index        int     `json:"index"`
	Name         string  `json:"name"`
	Size         int64   `json:"size"`
	Progress     float64 `json:"progress"`
	Priority     int     `json:"priority"`
	IsSeed       bool    `json:"is_seed"`
	PieceRange   []int   `json:"piece_range"`
	Availability float64 `json:"availability"`
}

// Tracker is one tracker of a torrent.
type Tracker struct {
	URL           string `json:"url"`
	Status        int    `json:"status"`
	Tier          int    `json:"tier"`
	NumPeers      int    `json:"num_peers"`
	NumSeeds      int    `json:"num_seeds"`
	NumLeeches    int    `json:"num_leeches"`
	NumDownloaded int    `json:"num_downloaded"`
	Msg           string `json:"msg"`
}

// Category is a torrent category and its default save path.
type Category struct {
	Name     string `json:"name"`
	SavePath string `json:"savePath"`
}

// RSSArticle is one item of an RSS feed.
type RSSArticle struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Link        string `json:"link"`
	TorrentURL  string `json:"torrentURL"`
	IsRead      bool   `json:"isRead"`
}

// RSSFeed is a subscribed feed.
type RSSFeed struct {
	UID           string       `json:"uid"`
	URL           string       `json:"url"`
	Title         string       `json:"title"`
	LastBuildDate string       `json:"lastBuildDate"`
	IsLoading     bool         `json:"isLoading"`
	HasError      bool         `json:"hasError"`
	Articles      []RSSArticle `json:"articles"`
}

// RSSFolder is a node of the RSS tree. The root folder has no name.
type RSSFolder struct {
	Feeds   map[string]RSSFeed    `json:"feeds"`
	Folders map[string]*RSSFolder `json:"folders"`
}

// AllFeeds flattens the tree into feeds keyed by their full path, with
// folders separated by a backslash as the daemon does.
func (f *RSSFolder) AllFeeds() map[string]RSSFeed {
	out := map[string]RSSFeed{}
	f.collect("", out)
	return out
}

func (f *RSSFolder) collect(prefix string, out map[string]RSSFeed) {
	if f == nil {
		return
	}
	for name, feed := range f.Feeds {
		out[prefix+name] = feed
	}
	for name, sub := range f.Folders {
		sub.collect(prefix+name+`\`, out)
	}
}

// SearchJob is the status of one search job.
type SearchJob struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// IsRunning reports whether the job is still collecting results.
func (j SearchJob) IsRunning() bool {
	return j.Status == "Running"
}

// SearchResult is one hit of a search job.
type SearchResult struct {
	FileName   string `json:"fileName"`
	FileURL    string `json:"fileUrl"`
	FileSize   int64  `json:"fileSize"`
	NbSeeders  int    `json:"nbSeeders"`
	NbLeechers int    `json:"nbLeechers"`
	SiteURL    string `json:"siteUrl"`
	DescrLink  string `json:"descrLink"`
}

// SearchResults is one page of search hits.
type SearchResults struct {
	Results []SearchResult `json:"results"`
	Status  string         `json:"status"`
	Total   int            `json:"total"`
}

// SearchPlugin describes an installed search plugin.
type SearchPlugin struct {
	Name                string   `json:"name"`
	FullName            string   `json:"fullName"`
	Version             string   `json:"version"`
	URL                 string   `json:"url"`
	Enabled             bool     `json:"enabled"`
	SupportedCategories []string `json:"-"`
}
