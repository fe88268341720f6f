package qbt

import "context"

// SearchAPI drives the daemon's search plugins.
type SearchAPI struct {
	c *core
}

// Start launches a search job and returns its id.
func (s *SearchAPI) Start(ctx context.Context, req *SearchStartRequest) (*SearchStartResponse, error) {
	if req == nil {
		req = NewSearchStartRequest("")
	}
	return execute(ctx, s.c, req, decodeSearchID)
}

func (s *SearchAPI) Stop(ctx context.Context, id int) (*ActionResponse, error) {
	return execute(ctx, s.c, NewSearchStopRequest(id), decodeNothing)
}

func (s *SearchAPI) Delete(ctx context.Context, id int) (*ActionResponse, error) {
	return execute(ctx, s.c, NewSearchDeleteRequest(id), decodeNothing)
}

// Status reports one job, or every job when id is 0.
func (s *SearchAPI) Status(ctx context.Context, id int) (*SearchStatusResponse, error) {
	return execute(ctx, s.c, NewSearchStatusRequest(id), decodeSearchJobs)
}

// Results returns up to limit hits starting at offset; limit 0 returns all.
func (s *SearchAPI) Results(ctx context.Context, id, limit, offset int) (*SearchResultsResponse, error) {
	req := NewSearchResultsRequest(id)
	req.Limit, req.Offset = limit, offset
	return execute(ctx, s.c, req, decodeSearchResults)
}

func (s *SearchAPI) Plugins(ctx context.Context) (*SearchPluginsResponse, error) {
	return execute(ctx, s.c, NewSimpleRequest(OpSearchPlugins), decodeSearchPlugins)
}
