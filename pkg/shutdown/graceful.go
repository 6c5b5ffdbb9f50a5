package shutdown

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

// WithSignals returns a context cancelled on SIGINT or SIGTERM. The returned
// stop func releases the signal handler; a second signal after stop kills
// the process the default way.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// Grace returns a fresh context bounded by timeout for cleanup work that
// runs after the run context has already ended.
func Grace(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
