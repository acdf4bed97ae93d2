package server

import "go.uber.org/zap"

// NewLogger builds the process logger for the given APP_ENV: human
// readable output in development, JSON in everything else.
func NewLogger(env string) (*zap.Logger, error) {
	if env == EnvDevelopment || env == EnvTesting {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
