package qbt

import "context"

// TorrentsAPI covers /torrents. Multi-hash operations accept the single
// hash "all".
type TorrentsAPI struct {
	c *core
}

// List returns torrents matching opts, each with its parsed magnet link.
func (t *TorrentsAPI) List(ctx context.Context, opts ListOptions) (*TorrentListResponse, error) {
	return execute(ctx, t.c, opts.request(), decodeTorrents)
}

func (t *TorrentsAPI) Properties(ctx context.Context, hash string) (*PropertiesResponse, error) {
	return execute(ctx, t.c, NewTorrentPropertiesRequest(hash), decodeJSON[TorrentProperties])
}

func (t *TorrentsAPI) Files(ctx context.Context, hash string) (*FilesResponse, error) {
	return execute(ctx, t.c, NewTorrentFilesRequest(hash), decodeJSON[[]TorrentContent])
}

func (t *TorrentsAPI) Trackers(ctx context.Context, hash string) (*TrackersResponse, error) {
	return execute(ctx, t.c, NewTorrentTrackersRequest(hash), decodeTrackers)
}

// Add uploads links and .torrent files. The daemon answers "Fails." when
// nothing could be added, which yields a failed response.
func (t *TorrentsAPI) Add(ctx context.Context, req *AddTorrentRequest) (*ActionResponse, error) {
	if req == nil {
		req = NewAddTorrentRequest()
	}
	return execute(ctx, t.c, req, decodeOkText)
}

// AddLink adds a single magnet or http(s) link.
func (t *TorrentsAPI) AddLink(ctx context.Context, cfg TorrentConfig) (*ActionResponse, error) {
	return t.Add(ctx, cfg.request())
}

func (t *TorrentsAPI) Delete(ctx context.Context, deleteFiles bool, hashes ...string) (*ActionResponse, error) {
	return execute(ctx, t.c, NewDeleteTorrentsRequest(deleteFiles, hashes...), decodeNothing)
}

// Pause and Resume target Web API versions before 2.11; Stop and Start
// replace them afterwards.
func (t *TorrentsAPI) Pause(ctx context.Context, hashes ...string) (*ActionResponse, error) {
	return t.action(ctx, OpTorrentsPause, hashes)
}

func (t *TorrentsAPI) Resume(ctx context.Context, hashes ...string) (*ActionResponse, error) {
	return t.action(ctx, OpTorrentsResume, hashes)
}

func (t *TorrentsAPI) Start(ctx context.Context, hashes ...string) (*ActionResponse, error) {
	return t.action(ctx, OpTorrentsStart, hashes)
}

func (t *TorrentsAPI) Stop(ctx context.Context, hashes ...string) (*ActionResponse, error) {
	return t.action(ctx, OpTorrentsStop, hashes)
}

func (t *TorrentsAPI) Recheck(ctx context.Context, hashes ...string) (*ActionResponse, error) {
	return t.action(ctx, OpTorrentsRecheck, hashes)
}

func (t *TorrentsAPI) Reannounce(ctx context.Context, hashes ...string) (*ActionResponse, error) {
	return t.action(ctx, OpTorrentsReannounce, hashes)
}

func (t *TorrentsAPI) action(ctx context.Context, kind RequestKind, hashes []string) (*ActionResponse, error) {
	return execute(ctx, t.c, NewTorrentsActionRequest(kind, hashes...), decodeNothing)
}

func (t *TorrentsAPI) AddTrackers(ctx context.Context, hash string, urls ...string) (*ActionResponse, error) {
	return execute(ctx, t.c, NewAddTrackersRequest(hash, urls...), decodeNothing)
}

// SetCategory moves torrents into category; "" removes their category.
func (t *TorrentsAPI) SetCategory(ctx context.Context, category string, hashes ...string) (*ActionResponse, error) {
	return execute(ctx, t.c, NewSetCategoryRequest(category, hashes...), decodeNothing)
}

func (t *TorrentsAPI) AddTags(ctx context.Context, hashes []string, tags ...string) (*ActionResponse, error) {
	return execute(ctx, t.c, NewAddTagsRequest(hashes, tags...), decodeNothing)
}

func (t *TorrentsAPI) RemoveTags(ctx context.Context, hashes []string, tags ...string) (*ActionResponse, error) {
	return execute(ctx, t.c, NewRemoveTagsRequest(hashes, tags...), decodeNothing)
}

func (t *TorrentsAPI) Categories(ctx context.Context) (*CategoriesResponse, error) {
	return execute(ctx, t.c, NewSimpleRequest(OpTorrentsCategories), decodeCategories)
}

func (t *TorrentsAPI) CreateCategory(ctx context.Context, name, savePath string) (*ActionResponse, error) {
	return execute(ctx, t.c, NewCreateCategoryRequest(name, savePath), decodeNothing)
}
