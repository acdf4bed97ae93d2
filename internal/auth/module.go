package auth

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/tokens"
	"github.com/elskow/auth-infra/internal/users"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide the user-deletion cascade over the token stores
			fx.Annotate(
				func(sessions tokens.SessionRepository, confirmations tokens.ConfirmationRepository) users.TokenRevoker {
					return NewTokenRevoker(sessions, confirmations)
				},
			),
			// Provide service
			fx.Annotate(
				func(log *zap.Logger, usersService *users.Service, sessions tokens.SessionRepository, confirmations tokens.ConfirmationRepository) *Service {
					return NewService(log, usersService, sessions, confirmations)
				},
			),
			// Provide the confirmation issuer consumed by user creation
			fx.Annotate(
				func(svc *Service) users.ConfirmationIssuer {
					return svc
				},
			),
			// Provide handler
			fx.Annotate(
				func(svc *Service, log *zap.Logger) *Handler {
					return NewHandler(svc, log)
				},
			),
		),
	)
}
