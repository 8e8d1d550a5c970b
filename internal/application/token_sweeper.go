package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ymatsuda/member-api/internal/domain/repository"
)

// SweepExpiredTokens deletes verification rows past their expiry, once
// immediately and then on every interval tick, until ctx is cancelled.
// Expired tokens are already rejected on use; the sweep only keeps the
// table from growing.
func SweepExpiredTokens(ctx context.Context, verifications repository.VerificationRepository, interval time.Duration, logger *logrus.Logger) {
	sweep := func() {
		n, err := verifications.DeleteExpired(ctx)
		if err != nil {
			if logger != nil {
				logger.WithError(err).Warn("failed to sweep expired verification tokens")
			}
			return
		}
		if n > 0 && logger != nil {
			logger.WithField("count", n).Info("swept expired verification tokens")
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
