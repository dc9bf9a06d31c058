package bot

import (
	"context"
	"time"
)

// runTimeout bounds one run started over HTTP or by the scheduler.
const runTimeout = 5 * time.Minute

// StartScheduler registers the self-trigger when TRIGGER_SCHEDULE is set and starts the
// cron loop. Without a schedule the service only runs when called over HTTP.
func (b *Bot) StartScheduler() error {
	if b.cfg.TriggerSchedule == "" {
		return nil
	}
	_, err := b.cron.AddFunc(b.cfg.TriggerSchedule, b.scheduledRun)
	if err != nil {
		return err
	}
	b.cron.Start()
	b.log.Info().Str("schedule", b.cfg.TriggerSchedule).Msg("self-trigger scheduled")
	return nil
}

// StopScheduler stops the cron scheduler and waits for a running job to finish.
func (b *Bot) StopScheduler() {
	ctx := b.cron.Stop()
	<-ctx.Done()
}

func (b *Bot) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := b.Run(ctx, b.now(), b.cfg.CronSecret); err != nil {
		b.log.Error().Err(err).Msg("scheduled run failed")
	}
}
