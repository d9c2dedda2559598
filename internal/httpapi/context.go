package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
)

// baseCtx is canceled on shutdown so long-polls return promptly.
var baseCtx atomic.Pointer[context.Context]

// SetBaseContext sets the process-level context that ends long-running
// handlers. A nil ctx restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	baseCtx.Store(&ctx)
}

func serverContext() context.Context {
	if p := baseCtx.Load(); p != nil {
		return *p
	}
	return context.Background()
}

// requestContext ends when either the request or the server context is done.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(serverContext(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
