package qbt

import "context"

// TransferAPI covers global transfer statistics and speed limits.
type TransferAPI struct {
	c *core
}

func (t *TransferAPI) Info(ctx context.Context) (*TransferInfoResponse, error) {
	return execute(ctx, t.c, NewSimpleRequest(OpTransferInfo), decodeJSON[TransferInfo])
}

// SpeedLimitsMode reports true while alternative speed limits are active.
func (t *TransferAPI) SpeedLimitsMode(ctx context.Context) (*SpeedLimitsModeResponse, error) {
	return execute(ctx, t.c, NewSimpleRequest(OpTransferSpeedLimitsMode), decodeSpeedLimitsMode)
}

func (t *TransferAPI) SetSpeedLimitsMode(ctx context.Context, alternative bool) (*ActionResponse, error) {
	return execute(ctx, t.c, NewSetSpeedLimitsModeRequest(alternative), decodeNothing)
}

func (t *TransferAPI) ToggleSpeedLimitsMode(ctx context.Context) (*ActionResponse, error) {
	return execute(ctx, t.c, NewSimpleRequest(OpTransferToggleSpeedLimitsMode), decodeNothing)
}

// DownloadLimit returns the global download limit in bytes per second,
// zero when unlimited.
func (t *TransferAPI) DownloadLimit(ctx context.Context) (*LimitResponse, error) {
	return execute(ctx, t.c, NewSimpleRequest(OpTransferDownloadLimit), decodeInt)
}

func (t *TransferAPI) UploadLimit(ctx context.Context) (*LimitResponse, error) {
	return execute(ctx, t.c, NewSimpleRequest(OpTransferUploadLimit), decodeInt)
}

func (t *TransferAPI) SetDownloadLimit(ctx context.Context, limit int64) (*ActionResponse, error) {
	return execute(ctx, t.c, NewSetDownloadLimitRequest(limit), decodeNothing)
}

func (t *TransferAPI) SetUploadLimit(ctx context.Context, limit int64) (*ActionResponse, error) {
	return execute(ctx, t.c, NewSetUploadLimitRequest(limit), decodeNothing)
}
