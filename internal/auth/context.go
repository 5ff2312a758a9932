package auth

import (
	"context"

	"collectdash/pkg/contracts/domain"
)

type sessionKey struct{}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session placed by WithSession.
func SessionFromContext(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(domain.Session)
	return sess, ok
}
