package qbt

import "context"

// ApplicationAPI covers /app: versions, build info and preferences.
type ApplicationAPI struct {
	c *core
}

// Version returns the daemon version, e.g. "v5.0.1".
func (a *ApplicationAPI) Version(ctx context.Context) (*VersionResponse, error) {
	return execute(ctx, a.c, NewSimpleRequest(OpAppVersion), decodeText)
}

// WebAPIVersion returns the Web API version, e.g. "2.11.2".
func (a *ApplicationAPI) WebAPIVersion(ctx context.Context) (*VersionResponse, error) {
	return execute(ctx, a.c, NewSimpleRequest(OpAppWebAPIVersion), decodeText)
}

func (a *ApplicationAPI) BuildInfo(ctx context.Context) (*BuildInfoResponse, error) {
	return execute(ctx, a.c, NewSimpleRequest(OpAppBuildInfo), decodeJSON[BuildInfo])
}

func (a *ApplicationAPI) Preferences(ctx context.Context) (*PreferencesResponse, error) {
	return execute(ctx, a.c, NewSimpleRequest(OpAppPreferences), decodePreferences)
}

// SetPreferences changes only the given preferences.
func (a *ApplicationAPI) SetPreferences(ctx context.Context, prefs map[string]any) (*ActionResponse, error) {
	return execute(ctx, a.c, NewSetPreferencesRequest(prefs), decodeNothing)
}

func (a *ApplicationAPI) DefaultSavePath(ctx context.Context) (*VersionResponse, error) {
	return execute(ctx, a.c, NewSimpleRequest(OpAppDefaultSavePath), decodeText)
}
