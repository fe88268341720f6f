package qbt

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Decoder turns a successful exchange into typed data.
type Decoder[T any] func(tr *TransportResponse) (T, error)

// decodeJSON decodes the whole body into T.
func decodeJSON[T any](tr *TransportResponse) (T, error) {
	var v T
	if len(tr.Body) == 0 {
		return v, errors.New("empty response body")
	}
	if err := json.Unmarshal(tr.Body, &v); err != nil {
		return v, errors.Wrap(err, "decode response")
	}
	return v, nil
}

func decodeText(tr *TransportResponse) (string, error) {
	return strings.TrimSpace(tr.Text()), nil
}

func decodeNothing(*TransportResponse) (struct{}, error) {
	return struct{}{}, nil
}

// decodeOkText accepts "Ok." or an empty body; "Fails." is a failure
// reported with status 200.
func decodeOkText(tr *TransportResponse) (struct{}, error) {
	if strings.TrimSpace(tr.Text()) == "Fails." {
		return struct{}{}, errors.New("daemon rejected the request")
	}
	return struct{}{}, nil
}

func decodeInt(tr *TransportResponse) (int64, error) {
	text := strings.TrimSpace(tr.Text())
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, errors.Errorf("expected an integer, got %q", truncate(text, 64))
	}
	return n, nil
}

// decodeSpeedLimitsMode reports whether alternative limits are active.
func decodeSpeedLimitsMode(tr *TransportResponse) (bool, error) {
	v := gjson.ParseBytes(tr.Body)
	if v.Type != gjson.Number {
		return false, errors.Errorf("expected 0 or 1, got %q", truncate(tr.Text(), 64))
	}
	return v.Int() == 1, nil
}

func decodePreferences(tr *TransportResponse) (Preferences, error) {
	if !gjson.ValidBytes(tr.Body) || !gjson.ParseBytes(tr.Body).IsObject() {
		return Preferences{}, errors.New("preferences are not a JSON object")
	}
	return Preferences{raw: append([]byte(nil), tr.Body...)}, nil
}

// decodeTorrents decodes a listing and parses each magnet link. A magnet
// link that does not parse leaves MagnetLink nil.
func decodeTorrents(tr *TransportResponse) ([]Torrent, error) {
	torrents, err := decodeJSON[[]Torrent](tr)
	if err != nil {
		return nil, err
	}
	if torrents == nil {
		torrents = []Torrent{}
	}
	for i := range torrents {
		if torrents[i].MagnetURI == "" {
			continue
		}
		if magnet, err := ParseMagnetLink(torrents[i].MagnetURI); err == nil {
			torrents[i].MagnetLink = magnet
		}
	}
	return torrents, nil
}

// decodeTrackers tolerates the "tier" field being a number or an empty
// string, which depends on the daemon version.
func decodeTrackers(tr *TransportResponse) ([]Tracker, error) {
	if !gjson.ValidBytes(tr.Body) {
		return nil, errors.New("trackers are not valid JSON")
	}
	list := gjson.ParseBytes(tr.Body)
	if !list.IsArray() {
		return nil, errors.New("trackers are not a JSON array")
	}
	trackers := []Tracker{}
	list.ForEach(func(_, t gjson.Result) bool {
		trackers = append(trackers, Tracker{
			URL:           t.Get("url").String(),
			Status:        int(t.Get("status").Int()),
			Tier:          int(t.Get("tier").Int()),
			NumPeers:      int(t.Get("num_peers").Int()),
			NumSeeds:      int(t.Get("num_seeds").Int()),
			NumLeeches:    int(t.Get("num_leeches").Int()),
			NumDownloaded: int(t.Get("num_downloaded").Int()),
			Msg:           t.Get("msg").String(),
		})
		return true
	})
	return trackers, nil
}

// decodeCategories fills missing names from the map keys.
func decodeCategories(tr *TransportResponse) (map[string]Category, error) {
	categories, err := decodeJSON[map[string]Category](tr)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = map[string]Category{}
	}
	for name, c := range categories {
		if c.Name == "" {
			c.Name = name
			categories[name] = c
		}
	}
	return categories, nil
}

// decodeRSSItems walks the item tree: objects with a "uid" or "url" are
// feeds, other objects are folders.
func decodeRSSItems(tr *TransportResponse) (RSSFolder, error) {
	if !gjson.ValidBytes(tr.Body) {
		return RSSFolder{}, errors.New("rss items are not valid JSON")
	}
	root := gjson.ParseBytes(tr.Body)
	if !root.IsObject() {
		return RSSFolder{}, errors.New("rss items are not a JSON object")
	}
	folder, err := decodeRSSFolder(root)
	if err != nil {
		return RSSFolder{}, err
	}
	return *folder, nil
}

func decodeRSSFolder(node gjson.Result) (*RSSFolder, error) {
	folder := &RSSFolder{
		Feeds:   map[string]RSSFeed{},
		Folders: map[string]*RSSFolder{},
	}
	var err error
	node.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		if value.Get("uid").Exists() || value.Get("url").Exists() {
			var feed RSSFeed
			if err = json.Unmarshal([]byte(value.Raw), &feed); err != nil {
				err = errors.Wrapf(err, "feed %s", key.String())
				return false
			}
			folder.Feeds[key.String()] = feed
			return true
		}
		var sub *RSSFolder
		if sub, err = decodeRSSFolder(value); err != nil {
			return false
		}
		folder.Folders[key.String()] = sub
		return true
	})
	return folder, err
}

func decodeSearchID(tr *TransportResponse) (int, error) {
	id := gjson.GetBytes(tr.Body, "id")
	if !id.Exists() {
		return 0, errors.New(`response has no "id"`)
	}
	return int(id.Int()), nil
}

func decodeSearchJobs(tr *TransportResponse) ([]SearchJob, error) {
	jobs, err := decodeJSON[[]SearchJob](tr)
	if jobs == nil && err == nil {
		jobs = []SearchJob{}
	}
	return jobs, err
}

func decodeSearchResults(tr *TransportResponse) (SearchResults, error) {
	results, err := decodeJSON[SearchResults](tr)
	if err != nil {
		return SearchResults{}, err
	}
	if results.Results == nil {
		results.Results = []SearchResult{}
	}
	return results, nil
}

// decodeSearchPlugins accepts supported categories as plain names or as
// {"id","name"} objects.
func decodeSearchPlugins(tr *TransportResponse) ([]SearchPlugin, error) {
	plugins, err := decodeJSON[[]SearchPlugin](tr)
	if err != nil {
		return nil, err
	}
	if plugins == nil {
		plugins = []SearchPlugin{}
	}
	gjson.ParseBytes(tr.Body).ForEach(func(idx, p gjson.Result) bool {
		i := int(idx.Int())
		if i >= len(plugins) {
			return false
		}
		p.Get("supportedCategories").ForEach(func(_, c gjson.Result) bool {
			name := c.String()
			if c.IsObject() {
				name = c.Get("name").String()
			}
			plugins[i].SupportedCategories = append(plugins[i].SupportedCategories, name)
			return true
		})
		return true
	})
	return plugins, nil
}

// decodeRaw returns JSON bodies untouched and encodes text bodies as a
// JSON string.
func decodeRaw(tr *TransportResponse) (json.RawMessage, error) {
	if len(tr.Body) == 0 {
		return json.RawMessage("null"), nil
	}
	if tr.IsJSON() {
		return json.RawMessage(append([]byte(nil), tr.Body...)), nil
	}
	encoded, err := json.Marshal(tr.Text())
	if err != nil {
		return nil, errors.Wrap(err, "encode text body")
	}
	return encoded, nil
}
