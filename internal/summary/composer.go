package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/pathakanu/remindr/internal/model"
	myopenai "github.com/pathakanu/remindr/internal/openai"
	"github.com/rs/zerolog"
)

const header = "📋 Your reminders for today:\n"

type reminderLister interface {
	FindPendingForUser(ctx context.Context, userID string, from, to time.Time) ([]model.Reminder, error)
}

// Condenser rewrites a day's reminder lines into a short digest.
type Condenser interface {
	SummarizeDay(ctx context.Context, lines []string) (string, error)
}

// Composer builds the text of a user's daily summary.
type Composer struct {
	reminders reminderLister
	condenser Condenser
	log       zerolog.Logger
}

// NewComposer returns a composer. A nil condenser always yields the plain list.
func NewComposer(reminders reminderLister, condenser Condenser, log zerolog.Logger) *Composer {
	return &Composer{reminders: reminders, condenser: condenser, log: log}
}

// Compose lists the user's pending reminders in the local day starting at dayStart.
// It returns an empty string when nothing is scheduled.
func (c *Composer) Compose(ctx context.Context, user model.User, dayStart time.Time) (string, error) {
	dayEnd := dayStart.AddDate(0, 0, 1)
	reminders, err := c.reminders.FindPendingForUser(ctx, user.ID, dayStart, dayEnd)
	if err != nil {
		return "", fmt.Errorf("list reminders: %w", err)
	}
	if len(reminders) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(reminders))
	for _, r := range reminders {
		lines = append(lines, fmt.Sprintf("%s %s", r.ScheduledAt.In(dayStart.Location()).Format("15:04"), r.Message))
	}

	if c.condenser == nil {
		return header + myopenai.PlainDigest(lines), nil
	}
	digest, err := c.condenser.SummarizeDay(ctx, lines)
	if err != nil {
		c.log.Warn().Err(err).Str("user", user.ID).Msg("digest condensation failed, using plain list")
		digest = myopenai.PlainDigest(lines)
	}
	return header + digest, nil
}
