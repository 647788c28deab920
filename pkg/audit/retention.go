package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/roster/pkg/auth"
)

// DefaultRetention keeps audit rows for 90 days
const DefaultRetention = 90 * 24 * time.Hour

// RetentionSweeper prunes old audit rows and expired API tokens on a cron
// schedule.
type RetentionSweeper struct {
	db        *sql.DB
	tokens    *auth.TokenStore
	retention time.Duration
	logger    *logrus.Logger
	cron      *cron.Cron
}

// NewRetentionSweeper creates a new sweeper. A zero retention uses the
// default.
func NewRetentionSweeper(db *sql.DB, tokens *auth.TokenStore, retention time.Duration, logger *logrus.Logger) *RetentionSweeper {
	if retention == 0 {
		retention = DefaultRetention
	}
	return &RetentionSweeper{
		db:        db,
		tokens:    tokens,
		retention: retention,
		logger:    logger,
	}
}

// Start schedules the sweep. The schedule is a standard cron expression,
// typically "0 3 * * *" for a nightly run.
func (s *RetentionSweeper) Start(schedule string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil && s.logger != nil {
			s.logger.WithError(err).Error("retention sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *RetentionSweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep removes audit rows older than the retention window and API tokens
// that expired before now.
func (s *RetentionSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.retention)

	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_logs WHERE created_at < $1", cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune audit logs: %w", err)
	}
	pruned, _ := res.RowsAffected()

	var tokensDeleted int64
	if s.tokens != nil {
		tokensDeleted, err = s.tokens.DeleteExpired(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("failed to prune expired tokens: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"audit_rows": pruned,
			"tokens":     tokensDeleted,
		}).Info("retention sweep complete")
	}
	return nil
}
