package services

import "context"

// detachedContext keeps ctx values but drops its cancellation and deadline.
func detachedContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
