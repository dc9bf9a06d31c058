package bot

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/pathakanu/remindr/internal/config"
	"github.com/pathakanu/remindr/internal/engine"
	"github.com/pathakanu/remindr/internal/model"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var (
	// ErrUnauthorized is returned when the presented token does not match the secret.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAuthNotConfigured is returned when no secret is set and auth was not explicitly disabled.
	ErrAuthNotConfigured = errors.New("cron secret not configured")
)

// RunResult is the outcome of one invocation.
type RunResult struct {
	OK        bool            `json:"ok"`
	Timestamp time.Time       `json:"timestamp"`
	Processed int             `json:"processed"`
	Sent      int             `json:"sent"`
	Errors    int             `json:"errors"`
	Skipped   int             `json:"skipped"`
	Details   []engine.Detail `json:"details"`
}

type selector interface {
	SelectDue(ctx context.Context, now time.Time) ([]model.Reminder, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, now time.Time, reminders []model.Reminder) engine.Result
}

// SummaryGate runs the best-effort daily summary pass.
type SummaryGate interface {
	MaybeRun(ctx context.Context, now time.Time) error
}

// Bot coordinates one reminder run: auth, selection, dispatch and the daily summary.
type Bot struct {
	cfg        *config.Config
	selector   selector
	dispatcher dispatcher
	gate       SummaryGate
	cron       *cron.Cron
	now        func() time.Time
	log        zerolog.Logger
}

// New creates a Bot. gate may be nil to skip daily summaries.
func New(cfg *config.Config, sel selector, disp dispatcher, gate SummaryGate, log zerolog.Logger) *Bot {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	b := &Bot{
		cfg:        cfg,
		selector:   sel,
		dispatcher: disp,
		gate:       gate,
		cron:       cron.New(cron.WithLocation(loc)),
		now:        time.Now,
		log:        log,
	}
	if cfg.CronSecret == "" && cfg.AuthDisabled {
		log.Warn().Msg("AUTH_DISABLED is set: the reminder endpoint accepts unauthenticated calls")
	}
	return b
}

// Run performs one invocation at now. Only auth and selection failures are returned;
// everything else is reported per item in the result.
func (b *Bot) Run(ctx context.Context, now time.Time, token string) (RunResult, error) {
	if err := b.authorize(token); err != nil {
		b.log.Warn().Err(err).Msg("run rejected")
		return RunResult{}, err
	}

	due, err := b.selector.SelectDue(ctx, now)
	if err != nil {
		b.log.Error().Err(err).Msg("run aborted")
		return RunResult{}, err
	}

	res := b.dispatcher.Dispatch(ctx, now, due)
	if res.Details == nil {
		res.Details = []engine.Detail{}
	}
	b.runGate(ctx, now)

	b.log.Info().
		Int("processed", res.Processed).
		Int("sent", res.Sent).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("reminder run finished")

	return RunResult{
		OK:        true,
		Timestamp: now.UTC(),
		Processed: res.Processed,
		Sent:      res.Sent,
		Errors:    res.Errors,
		Skipped:   res.Skipped,
		Details:   res.Details,
	}, nil
}

func (b *Bot) authorize(token string) error {
	if b.cfg.CronSecret == "" {
		if b.cfg.AuthDisabled {
			b.log.Debug().Msg("auth disabled, run accepted without a token")
			return nil
		}
		return ErrAuthNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(b.cfg.CronSecret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// runGate never lets the summary pass affect the run's result.
func (b *Bot) runGate(ctx context.Context, now time.Time) {
	if b.gate == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("daily summary panicked")
		}
	}()
	if err := b.gate.MaybeRun(ctx, now); err != nil {
		b.log.Error().Err(err).Msg("daily summary failed")
	}
}
