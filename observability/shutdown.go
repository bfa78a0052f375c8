package observability

import (
	"context"
	"fmt"
	"time"
)

// DefaultShutdownTimeout bounds the final flush when Shutdown gets no timeout.
const DefaultShutdownTimeout = 5 * time.Second

// Shutdown flushes and stops p within timeout. A nil provider is a no-op.
func Shutdown(p Provider, timeout time.Duration) error {
	if p == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := p.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability shutdown failed: %w", err)
	}
	return nil
}
