package identity

import "context"

type ctxKey int

const claimsKey ctxKey = iota

// WithClaims guarda as claims verificadas no contexto da requisição.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext recupera as claims do contexto.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
