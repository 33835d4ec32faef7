package shared

import "context"

// Unexported key type so no other package can collide with the session slot.
type sessionKey struct{}

// ContextWithSession attaches the request's session for downstream handlers.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the request's session, nil when the session
// middleware never ran.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}
