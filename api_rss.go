package qbt

import "context"

// RSSAPI manages feeds and folders. Item paths separate folders with a
// backslash, e.g. `Linux\Distros`.
type RSSAPI struct {
	c *core
}

func (r *RSSAPI) Items(ctx context.Context, withData bool) (*RSSItemsResponse, error) {
	return execute(ctx, r.c, NewRSSItemsRequest(withData), decodeRSSItems)
}

func (r *RSSAPI) AddFolder(ctx context.Context, path string) (*ActionResponse, error) {
	return execute(ctx, r.c, NewRSSAddFolderRequest(path), decodeNothing)
}

func (r *RSSAPI) AddFeed(ctx context.Context, feedURL, path string) (*ActionResponse, error) {
	return execute(ctx, r.c, NewRSSAddFeedRequest(feedURL, path), decodeNothing)
}

func (r *RSSAPI) RemoveItem(ctx context.Context, path string) (*ActionResponse, error) {
	return execute(ctx, r.c, NewRSSRemoveItemRequest(path), decodeNothing)
}

func (r *RSSAPI) RefreshItem(ctx context.Context, path string) (*ActionResponse, error) {
	return execute(ctx, r.c, NewRSSRefreshItemRequest(path), decodeNothing)
}
