package authz

import "context"

// AuthContext is the immutable per-request value produced once by the
// authentication boundary: the externally authenticated actor plus the
// resolved coarse role. It travels through context.Context; nothing mutates
// it downstream.
type AuthContext struct {
	Actor         Actor
	EffectiveRole Resolution
}

type authContextKey struct{}

// ContextWithAuth stores the auth context for the request.
func ContextWithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthFromContext extracts the auth context, reporting whether one is present.
func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(AuthContext)
	return ac, ok
}
