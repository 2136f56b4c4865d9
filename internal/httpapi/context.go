package httpapi

import "context"

// serverBaseCtx is canceled when the process starts shutting down.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level context. Generations started by
// handlers end when it is canceled; reloads run under it so that a client
// hanging up does not abort them. nil resets it to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// withShutdown derives a context from the request context that is also
// canceled, with the shutdown cause, when serverBaseCtx ends.
func withShutdown(req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(req)
	base := serverBaseCtx
	stop := context.AfterFunc(base, func() { cancel(context.Cause(base)) })
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
