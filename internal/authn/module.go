package authn

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/tokens"
)

// NewModule returns the authentication resolution module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide resolver
			fx.Annotate(
				func(log *zap.Logger, sessions tokens.SessionRepository) *Resolver {
					return NewResolver(log, sessions)
				},
			),
			// Provide middleware
			fx.Annotate(
				func(resolver *Resolver) *Middleware {
					return NewMiddleware(resolver)
				},
			),
		),
	)
}
