package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
)

type overdueSessionLister interface {
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.TestSession, error)
}

type sessionExpirer interface {
	Expire(ctx context.Context, session models.TestSession) (*models.SessionResult, error)
}

type tokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type cooldownTracker interface {
	ListCooldownElapsed(ctx context.Context, now time.Time, limit int) ([]models.MentorApplication, error)
	MarkCooldownNotified(ctx context.Context, id string) (bool, error)
}

// ReaperConfig tunes the background sweep.
type ReaperConfig struct {
	Interval        time.Duration
	BatchSize       int
	TokenPurgeGrace time.Duration
	SweepTimeout    time.Duration
}

// SweepReport summarises one reaper pass.
type SweepReport struct {
	Expired          int
	TokensPurged     int64
	CooldownsElapsed int
}

// Reaper finalizes abandoned sessions, purges dead tokens and announces
// elapsed cooldowns.
type Reaper struct {
	sessions  overdueSessionLister
	expirer   sessionExpirer
	tokens    tokenPurger
	cooldowns cooldownTracker
	notifier  Notifier
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ReaperConfig
	now       func() time.Time
}

// NewReaper constructs the reaper.
func NewReaper(sessions overdueSessionLister, expirer sessionExpirer, tokens tokenPurger, cooldowns cooldownTracker,
	notifier Notifier, metrics *MetricsService, logger *zap.Logger, cfg ReaperConfig) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 30 * time.Second
	}
	return &Reaper{
		sessions:  sessions,
		expirer:   expirer,
		tokens:    tokens,
		cooldowns: cooldowns,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start boots a goroutine sweeping every Interval until ctx is done.
func (r *Reaper) Start(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(ctx, r.cfg.SweepTimeout)
				r.Sweep(sweepCtx)
				cancel()
			}
		}
	}()
}

// Sweep runs one pass. Failures are logged and retried on the next tick.
func (r *Reaper) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	ok := true
	now := r.now().UTC()

	sessions, err := r.sessions.ListOverdue(ctx, now, r.cfg.BatchSize)
	if err != nil {
		r.logger.Warn("reaper list overdue failed", zap.Error(err))
		ok = false
	}
	for _, session := range sessions {
		if _, err := r.expirer.Expire(ctx, session); err != nil {
			r.logger.Warn("reaper expire failed", zap.String("session_id", session.ID), zap.Error(err))
			ok = false
			continue
		}
		report.Expired++
	}

	if r.tokens != nil {
		purged, err := r.tokens.PurgeExpired(ctx, now.Add(-r.cfg.TokenPurgeGrace))
		if err != nil {
			r.logger.Warn("reaper token purge failed", zap.Error(err))
			ok = false
		}
		report.TokensPurged = purged
		r.metrics.TokensPurged(purged)
	}

	if r.cooldowns != nil {
		report.CooldownsElapsed, err = r.announceCooldowns(ctx, now)
		if err != nil {
			r.logger.Warn("reaper cooldown scan failed", zap.Error(err))
			ok = false
		}
	}

	r.metrics.ReaperSweep(ok)
	if report.Expired > 0 || report.TokensPurged > 0 || report.CooldownsElapsed > 0 {
		r.logger.Info("reaper sweep",
			zap.Int("expired_sessions", report.Expired),
			zap.Int64("purged_tokens", report.TokensPurged),
			zap.Int("elapsed_cooldowns", report.CooldownsElapsed))
	}
	return report
}

func (r *Reaper) announceCooldowns(ctx context.Context, now time.Time) (int, error) {
	apps, err := r.cooldowns.ListCooldownElapsed(ctx, now, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, app := range apps {
		claimed, err := r.cooldowns.MarkCooldownNotified(ctx, app.ID)
		if err != nil {
			r.logger.Warn("reaper mark cooldown failed", zap.String("application_id", app.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		count++
		if r.notifier == nil {
			continue
		}
		payload := map[string]interface{}{"testAttempts": app.TestAttempts}
		if app.RetryAllowedAt != nil {
			payload["retryAllowedAt"] = *app.RetryAllowedAt
		}
		r.notifier.Publish(ctx, models.Event{
			Type:          models.EventCooldownElapsed,
			ApplicationID: app.ID,
			Email:         app.Email,
			FullName:      app.FullName,
			Payload:       payload,
		})
	}
	return count, nil
}
