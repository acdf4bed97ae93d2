package users

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/config"
	"github.com/elskow/auth-infra/internal/database"
)

// NewModule returns the user store module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide repository
			fx.Annotate(
				func(manager *database.Manager) Repository {
					return NewRepository(manager.DB())
				},
			),
			// Provide service
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger, repo Repository, revoker TokenRevoker) *Service {
					return NewService(&config.Auth, log, repo, revoker)
				},
			),
			// Provide handler
			fx.Annotate(
				func(svc *Service, issuer ConfirmationIssuer, log *zap.Logger) *Handler {
					return NewHandler(svc, issuer, log)
				},
			),
		),
	)
}
