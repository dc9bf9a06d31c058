// Package summary sends each eligible user one digest of the day's reminders.
//
// A user is due once their local clock passes Preferences.DailySummaryTime. The local
// date is claimed in the users table before anything is sent, so repeated or overlapping
// runs deliver at most one summary per user and local day.
package summary

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pathakanu/remindr/internal/model"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

type userStore interface {
	FindAll(ctx context.Context) ([]model.User, error)
	ClaimSummary(ctx context.Context, userID, date string) (bool, error)
}

// Notifier delivers text to a channel target.
type Notifier interface {
	Send(ctx context.Context, target, text string) error
}

// Options configures a Gate.
type Options struct {
	// DefaultLocation applies to users without a timezone preference. Nil means UTC.
	DefaultLocation *time.Location
	// SummaryHour, when 0-23, only opens the gate during that hour in DefaultLocation.
	SummaryHour int
}

// Gate decides which users get their daily summary on a run.
type Gate struct {
	users    userStore
	composer *Composer
	notifier Notifier
	opts     Options
	log      zerolog.Logger
}

func NewGate(users userStore, composer *Composer, notifier Notifier, opts Options, log zerolog.Logger) *Gate {
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	return &Gate{
		users:    users,
		composer: composer,
		notifier: notifier,
		opts:     opts,
		log:      log,
	}
}

// MaybeRun sends the summary to every due user. Only a failure to load users is
// returned; per-user failures are logged and do not affect other users.
func (g *Gate) MaybeRun(ctx context.Context, now time.Time) error {
	if h := g.opts.SummaryHour; h >= 0 && now.In(g.opts.DefaultLocation).Hour() != h {
		return nil
	}

	users, err := g.users.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	sent := 0
	for _, u := range users {
		if !u.WantsDailySummary() {
			continue
		}
		ok, err := g.runUser(ctx, u, now)
		if err != nil {
			g.log.Error().Err(err).Str("user", u.ID).Msg("daily summary failed")
			continue
		}
		if ok {
			sent++
		}
	}
	if sent > 0 {
		g.log.Info().Int("sent", sent).Msg("daily summaries delivered")
	}
	return nil
}

func (g *Gate) runUser(ctx context.Context, u model.User, now time.Time) (bool, error) {
	loc, err := g.location(u)
	if err != nil {
		return false, err
	}
	hour, minute, err := parseClock(u.Preferences.DailySummaryTime)
	if err != nil {
		return false, err
	}

	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	due := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	date := local.Format(dateLayout)
	if local.Before(due) || u.LastSummaryDate == date {
		return false, nil
	}

	claimed, err := g.users.ClaimSummary(ctx, u.ID, date)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", date, err)
	}
	if !claimed {
		return false, nil
	}

	text, err := g.composer.Compose(ctx, u, dayStart)
	if err != nil {
		return false, err
	}
	if text == "" {
		g.log.Debug().Str("user", u.ID).Msg("nothing scheduled today")
		return false, nil
	}
	if err := g.notifier.Send(ctx, u.ChannelTarget, text); err != nil {
		return false, fmt.Errorf("send: %w", err)
	}
	return true, nil
}

func (g *Gate) location(u model.User) (*time.Location, error) {
	if u.Preferences.Timezone == "" {
		return g.opts.DefaultLocation, nil
	}
	loc, err := time.LoadLocation(u.Preferences.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", u.Preferences.Timezone, err)
	}
	return loc, nil
}

// parseClock reads an "HH:MM" wall clock.
func parseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid summary time %q", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid summary hour %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid summary minute %q", s)
	}
	return hour, minute, nil
}
