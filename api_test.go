package qbt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jfxdev/go-qbtapi/internal/qbttest"
)

func TestTorrentsAddListAndDelete(t *testing.T) {
	client, srv := newLoggedInClient(t)
	ctx := context.Background()

	data, fileHash, err := qbttest.TorrentFile("debian.iso")
	if err != nil {
		t.Fatalf("Failed to build torrent file: %v", err)
	}
	req := NewAddTorrentRequest("magnet:?xt=urn:btih:"+hashA+"&dn=Ubuntu").AddFile("debian.torrent", data)
	req.Paused = true
	req.Category = "linux"

	res, err := client.Torrents().Add(ctx, req)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !res.IsSuccess() {
		t.Fatalf("Expected success, got %v", res.Errors())
	}

	rec, ok := srv.LastRequest("/torrents/add")
	if !ok {
		t.Fatal("Expected the daemon to receive the add request")
	}
	if rec.Form.Get("stopped") != "true" || rec.Form.Get("paused") != "true" {
		t.Errorf("Expected stopped and paused flags, got %v", rec.Form)
	}
	if len(rec.Files) != 1 || rec.Files[0] != "debian.torrent" {
		t.Errorf("Expected one uploaded file, got %v", rec.Files)
	}

	list, err := client.Torrents().List(ctx, ListOptions{Category: "linux"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	torrents := list.Data()
	if len(torrents) != 2 {
		t.Fatalf("Expected 2 torrents, got %d", len(torrents))
	}
	if torrents[0].Name != "Ubuntu" || torrents[0].MagnetLink == nil || torrents[0].MagnetLink.InfoHash != hashA {
		t.Errorf("Expected the magnet torrent with a parsed link, got %+v", torrents[0])
	}
	if torrents[1].Hash != fileHash || torrents[1].MagnetLink != nil {
		t.Errorf("Expected the file torrent without a magnet link, got %+v", torrents[1])
	}
	for _, tr := range torrents {
		if tr.State != "stoppedDL" {
			t.Errorf("Expected %s to be stopped, got %s", tr.Name, tr.State)
		}
	}

	if _, err := client.Torrents().Resume(ctx, AllTorrents); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if tr, _ := srv.Torrent(fileHash); tr.State != "downloading" {
		t.Errorf("Expected resume all to restart the torrent, got %s", tr.State)
	}

	if _, err := client.Torrents().Delete(ctx, false, hashA); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := srv.Torrent(hashA); ok {
		t.Error("Expected the torrent to be deleted")
	}
	if _, ok := srv.Torrent(fileHash); !ok {
		t.Error("Expected the other torrent to stay")
	}
}

func TestTorrentsAddLink(t *testing.T) {
	client, srv := newLoggedInClient(t)

	res, err := client.Torrents().AddLink(context.Background(), TorrentConfig{
		MagnetURI: "magnet:?xt=urn:btih:" + hashB,
		Directory: "/downloads/tv",
		Tags:      []string{"tv", "hd"},
	})
	if err != nil {
		t.Fatalf("AddLink failed: %v", err)
	}
	if !res.IsSuccess() {
		t.Fatalf("Expected success, got %v", res.Errors())
	}

	tr, ok := srv.Torrent(hashB)
	if !ok {
		t.Fatal("Expected the torrent to be added")
	}
	if tr.SavePath != "/downloads/tv" || tr.Tags != "tv,hd" {
		t.Errorf("Unexpected torrent %+v", tr)
	}
}

func TestTorrentLookups(t *testing.T) {
	client, srv := newLoggedInClient(t)
	ctx := context.Background()
	srv.AddTorrent(qbttest.Torrent{Hash: hashB, Name: "Sintel", Size: 4096, SavePath: "/downloads"})

	props, err := client.Torrents().Properties(ctx, strings.ToUpper(hashB))
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if props.Data().TotalSize != 4096 || props.Data().SavePath != "/downloads" {
		t.Errorf("Unexpected properties %+v", props.Data())
	}

	files, err := client.Torrents().Files(ctx, hashB)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files.Data()) != 1 || files.Data()[0].Name != "Sintel" {
		t.Errorf("Unexpected files %+v", files.Data())
	}

	if _, err := client.Torrents().AddTrackers(ctx, hashB, "udp://tracker.example.org:1337/announce"); err != nil {
		t.Fatalf("AddTrackers failed: %v", err)
	}
	trackers, err := client.Torrents().Trackers(ctx, hashB)
	if err != nil {
		t.Fatalf("Trackers failed: %v", err)
	}
	if !trackers.IsSuccess() {
		t.Fatalf("Expected success, got %v", trackers.Errors())
	}
	got := trackers.Data()
	if len(got) != 2 {
		t.Fatalf("Expected 2 trackers, got %+v", got)
	}
	if got[0].Tier != 0 || got[1].URL != "udp://tracker.example.org:1337/announce" {
		t.Errorf("Unexpected trackers %+v", got)
	}
}

func TestTorrentNotFound(t *testing.T) {
	client, _ := newLoggedInClient(t)

	res, err := client.Torrents().Properties(context.Background(), hashA)
	if err != nil {
		t.Fatalf("Expected a failed response, got error %v", err)
	}
	if res.IsSuccess() || res.StatusCode() != 404 {
		t.Fatalf("Expected a 404 failure, got %d %v", res.StatusCode(), res.Errors())
	}
	if res.Errors()[0] != "not found" {
		t.Errorf("Expected not found first, got %v", res.Errors())
	}
	if !client.Auth().IsLoggedIn() {
		t.Error("Expected a 404 to keep the session")
	}
}

func TestCategoriesAndTags(t *testing.T) {
	client, srv := newLoggedInClient(t)
	ctx := context.Background()
	srv.AddTorrent(qbttest.Torrent{Hash: hashB, Name: "Sintel"})

	res, err := client.Torrents().SetCategory(ctx, "movies", hashB)
	if err != nil {
		t.Fatalf("SetCategory failed: %v", err)
	}
	if res.StatusCode() != 409 {
		t.Errorf("Expected 409 for an unknown category, got %d", res.StatusCode())
	}

	if res, _ := client.Torrents().CreateCategory(ctx, "movies", "/m"); !res.IsSuccess() {
		t.Fatalf("Expected CreateCategory to succeed, got %v", res.Errors())
	}
	if res, _ := client.Torrents().CreateCategory(ctx, "movies", "/m"); res.StatusCode() != 409 {
		t.Errorf("Expected 409 for a duplicate category, got %d", res.StatusCode())
	}
	if res, _ := client.Torrents().SetCategory(ctx, "movies", hashB); !res.IsSuccess() {
		t.Fatalf("Expected SetCategory to succeed, got %v", res.Errors())
	}
	if tr, _ := srv.Torrent(hashB); tr.Category != "movies" {
		t.Errorf("Expected category movies, got %q", tr.Category)
	}

	categories, err := client.Torrents().Categories(ctx)
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	if c, ok := categories.Data()["movies"]; !ok || c.SavePath != "/m" {
		t.Errorf("Unexpected categories %+v", categories.Data())
	}

	if _, err := client.Torrents().AddTags(ctx, []string{hashB}, "hd", "new"); err != nil {
		t.Fatalf("AddTags failed: %v", err)
	}
	if _, err := client.Torrents().RemoveTags(ctx, []string{hashB}, "new"); err != nil {
		t.Fatalf("RemoveTags failed: %v", err)
	}
	if tr, _ := srv.Torrent(hashB); tr.Tags != "hd" {
		t.Errorf("Expected tags hd, got %q", tr.Tags)
	}

	if _, err := client.Torrents().AddTags(ctx, []string{hashB}, "a,b"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for a tag with a comma, got %v", err)
	}
}

func TestApplication(t *testing.T) {
	client, srv := newLoggedInClient(t)
	ctx := context.Background()

	webAPI, err := client.Application().WebAPIVersion(ctx)
	if err != nil {
		t.Fatalf("WebAPIVersion failed: %v", err)
	}
	if webAPI.Data() != "2.11.2" {
		t.Errorf("Expected 2.11.2, got %q", webAPI.Data())
	}

	build, err := client.Application().BuildInfo(ctx)
	if err != nil {
		t.Fatalf("BuildInfo failed: %v", err)
	}
	if build.Data().Bitness != 64 || build.Data().Libtorrent == "" {
		t.Errorf("Unexpected build info %+v", build.Data())
	}

	prefs, err := client.Application().Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences failed: %v", err)
	}
	if prefs.Data().Int("max_active_torrents") != 5 || !prefs.Data().Bool("dht") {
		t.Errorf("Unexpected preferences %s", prefs.Data().Raw())
	}

	res, err := client.Application().SetPreferences(ctx, map[string]any{"max_active_torrents": 10})
	if err != nil {
		t.Fatalf("SetPreferences failed: %v", err)
	}
	if !res.IsSuccess() {
		t.Fatalf("Expected success, got %v", res.Errors())
	}
	if v, _ := srv.Preference("max_active_torrents").(float64); v != 10 {
		t.Errorf("Expected 10, got %v", srv.Preference("max_active_torrents"))
	}

	if _, err := client.Application().SetPreferences(ctx, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty preferences, got %v", err)
	}

	path, err := client.Application().DefaultSavePath(ctx)
	if err != nil {
		t.Fatalf("DefaultSavePath failed: %v", err)
	}
	if path.Data() != "/downloads" {
		t.Errorf("Expected /downloads, got %q", path.Data())
	}
}

func TestTransfer(t *testing.T) {
	client, _ := newLoggedInClient(t)
	ctx := context.Background()
	transfer := client.Transfer()

	info, err := transfer.Info(ctx)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Data().ConnectionStatus != "connected" || info.Data().DhtNodes != 42 {
		t.Errorf("Unexpected transfer info %+v", info.Data())
	}

	if mode, _ := transfer.SpeedLimitsMode(ctx); mode.Data() {
		t.Error("Expected global limits by default")
	}
	if _, err := transfer.ToggleSpeedLimitsMode(ctx); err != nil {
		t.Fatalf("ToggleSpeedLimitsMode failed: %v", err)
	}
	if mode, _ := transfer.SpeedLimitsMode(ctx); !mode.Data() {
		t.Error("Expected alternative limits after toggling")
	}
	if _, err := transfer.SetSpeedLimitsMode(ctx, false); err != nil {
		t.Fatalf("SetSpeedLimitsMode failed: %v", err)
	}
	if mode, _ := transfer.SpeedLimitsMode(ctx); mode.Data() {
		t.Error("Expected global limits after setting mode 0")
	}

	if _, err := transfer.SetDownloadLimit(ctx, 1<<20); err != nil {
		t.Fatalf("SetDownloadLimit failed: %v", err)
	}
	if limit, _ := transfer.DownloadLimit(ctx); limit.Data() != 1<<20 {
		t.Errorf("Expected 1MiB/s, got %d", limit.Data())
	}
	if limit, _ := transfer.UploadLimit(ctx); limit.Data() != 0 {
		t.Errorf("Expected no upload limit, got %d", limit.Data())
	}
	if _, err := transfer.SetUploadLimit(ctx, -1); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for a negative limit, got %v", err)
	}
}

func TestRSS(t *testing.T) {
	client, srv := newLoggedInClient(t)
	ctx := context.Background()
	rss := client.RSS()

	if res, _ := rss.AddFolder(ctx, "News"); !res.IsSuccess() {
		t.Fatalf("Expected AddFolder to succeed, got %v", res.Errors())
	}
	if res, _ := rss.AddFolder(ctx, "News"); res.StatusCode() != 409 {
		t.Errorf("Expected 409 for a duplicate folder, got %d", res.StatusCode())
	}
	if res, _ := rss.AddFeed(ctx, "https://feed.example.org/rss", `News\Feed`); !res.IsSuccess() {
		t.Fatalf("Expected AddFeed to succeed, got %v", res.Errors())
	}

	items, err := rss.Items(ctx, true)
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	root := items.Data()
	news, ok := root.Folders["News"]
	if !ok {
		t.Fatalf("Expected a News folder, got %+v", root)
	}
	if news.Feeds["Feed"].URL != "https://feed.example.org/rss" {
		t.Errorf("Unexpected folder %+v", news)
	}
	all := root.AllFeeds()
	if feed, ok := all[`News\Feed`]; !ok || !strings.HasPrefix(feed.UID, "{") {
		t.Errorf("Expected the feed under its full path, got %+v", all)
	}

	if res, _ := rss.RefreshItem(ctx, `News\Feed`); !res.IsSuccess() {
		t.Errorf("Expected RefreshItem to succeed, got %v", res.Errors())
	}
	if rec, _ := srv.LastRequest("/rss/refreshItem"); rec.Form.Get("itemPath") != `News\Feed` {
		t.Errorf("Expected itemPath, got %v", rec.Form)
	}

	if res, _ := rss.RemoveItem(ctx, `News\Feed`); !res.IsSuccess() {
		t.Fatalf("Expected RemoveItem to succeed, got %v", res.Errors())
	}
	if res, _ := rss.RemoveItem(ctx, `News\Feed`); res.StatusCode() != 409 {
		t.Errorf("Expected 409 for a missing item, got %d", res.StatusCode())
	}
}

func TestSearch(t *testing.T) {
	client, _ := newLoggedInClient(t)
	ctx := context.Background()
	search := client.Search()

	start, err := search.Start(ctx, NewSearchStartRequest("ubuntu"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	id := start.Data()
	if id <= 0 {
		t.Fatalf("Expected a positive id, got %d", id)
	}

	status, err := search.Status(ctx, 0)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(status.Data()) != 1 || !status.Data()[0].IsRunning() {
		t.Errorf("Expected one running job, got %+v", status.Data())
	}

	results, err := search.Results(ctx, id, 1, 0)
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	page := results.Data()
	if len(page.Results) != 1 || page.Total != 2 {
		t.Errorf("Expected one of two results, got %+v", page)
	}
	if page.Results[0].FileName != "ubuntu 1080p" {
		t.Errorf("Unexpected result %+v", page.Results[0])
	}

	if _, err := search.Stop(ctx, id); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if status, _ := search.Status(ctx, id); status.Data()[0].Status != "Stopped" {
		t.Errorf("Expected a stopped job, got %+v", status.Data())
	}
	if _, err := search.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if status, _ := search.Status(ctx, id); status.StatusCode() != 404 {
		t.Errorf("Expected 404 for a deleted job, got %d", status.StatusCode())
	}

	if _, err := search.Stop(ctx, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for id 0, got %v", err)
	}

	plugins, err := search.Plugins(ctx)
	if err != nil {
		t.Fatalf("Plugins failed: %v", err)
	}
	got := plugins.Data()
	if len(got) != 2 {
		t.Fatalf("Expected 2 plugins, got %+v", got)
	}
	if strings.Join(got[0].SupportedCategories, ",") != "All categories,Movies" {
		t.Errorf("Expected category names from objects, got %v", got[0].SupportedCategories)
	}
	if strings.Join(got[1].SupportedCategories, ",") != "all,music" {
		t.Errorf("Expected plain category names, got %v", got[1].SupportedCategories)
	}
}
