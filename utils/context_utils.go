package utils

import "golang.org/x/net/context"

// CheckContextDone reports whether the provided context has been cancelled or has expired. The check never blocks,
// so callers can poll it between units of work.
func CheckContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
