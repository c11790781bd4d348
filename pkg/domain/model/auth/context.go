package auth

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

type ctxPrincipalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, error) {
	p, ok := ctx.Value(ctxPrincipalKey{}).(*Principal)
	if !ok {
		return nil, goerr.New("principal not found in context")
	}
	return p, nil
}
