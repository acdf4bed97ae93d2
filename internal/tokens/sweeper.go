package tokens

import (
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically purges expired token rows. Read paths already
// filter expired rows out, so sweep timing only affects storage size,
// never authentication correctness.
type Sweeper struct {
	log           *zap.Logger
	period        time.Duration
	sessions      SessionRepository
	confirmations ConfirmationRepository
	stop          chan struct{}
	done          chan struct{}
}

func NewSweeper(period time.Duration, log *zap.Logger, sessions SessionRepository, confirmations ConfirmationRepository) *Sweeper {
	return &Sweeper{
		log:           log,
		period:        period,
		sessions:      sessions,
		confirmations: confirmations,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Run sweeps on the configured period until Stop is called.
func (s *Sweeper) Run() {
	defer close(s.done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// Sweep purges expired rows from both token collections once.
func (s *Sweeper) Sweep() {
	sessions, err := s.sessions.DeleteExpired()
	if err != nil {
		s.log.Error("failed to purge expired session tokens", zap.Error(err))
	}

	confirmations, err := s.confirmations.DeleteExpired()
	if err != nil {
		s.log.Error("failed to purge expired confirmation tokens", zap.Error(err))
	}

	if sessions > 0 || confirmations > 0 {
		s.log.Info("purged expired tokens",
			zap.Int64("session_tokens", sessions),
			zap.Int64("confirm_tokens", confirmations))
	}
}
