package auth

import "context"

type contextKey int

const (
	claimsKey contextKey = iota
	actorKey
)

// WithClaims stores validated token claims in the context. The claim name
// also becomes the actor.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return WithActor(ctx, claims.Name)
}

// ClaimsFrom returns the claims stored by WithClaims, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// WithActor records the name of the user acting in ctx.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey, name)
}

// ActorFrom returns the acting user's name, or "" when there is none.
func ActorFrom(ctx context.Context) string {
	name, _ := ctx.Value(actorKey).(string)
	return name
}
