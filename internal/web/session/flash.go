package session

import "context"

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
)

// AddFlash queues a message on the request session. It is a no-op outside
// the session middleware.
func AddFlash(ctx context.Context, kind, message string) {
	if sess := FromContext(ctx); sess != nil {
		sess.AddFlash(kind, message)
	}
}

// PopFlashes returns and clears the queued messages
func PopFlashes(ctx context.Context) []Flash {
	if sess := FromContext(ctx); sess != nil {
		return sess.PopFlashes()
	}
	return nil
}
