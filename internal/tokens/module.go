package tokens

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/config"
	"github.com/elskow/auth-infra/internal/database"
)

// NewModule returns the token store module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide session repository
			fx.Annotate(
				func(config *config.AppConfig, manager *database.Manager) SessionRepository {
					return NewSessionRepository(manager.DB(), config.Auth.SessionTokenTTL)
				},
			),
			// Provide confirmation repository
			fx.Annotate(
				func(config *config.AppConfig, manager *database.Manager) ConfirmationRepository {
					return NewConfirmationRepository(manager.DB(), config.Auth.ConfirmTokenTTL)
				},
			),
			// Provide expiry sweeper
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger, sessions SessionRepository, confirmations ConfirmationRepository) *Sweeper {
					return NewSweeper(config.Auth.TokenSweepPeriod, log, sessions, confirmations)
				},
			),
		),
		fx.Invoke(registerHooks),
	)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	sweeper *Sweeper,
	logger *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go sweeper.Run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping token sweeper")
			sweeper.Stop()
			return nil
		},
	})
}
