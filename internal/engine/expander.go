package engine

import (
	"context"
	"fmt"

	"github.com/pathakanu/remindr/internal/model"
	"github.com/rs/zerolog"
)

type reminderCreator interface {
	Create(ctx context.Context, reminder *model.Reminder) error
}

// RecurrenceExpander persists the next occurrence of a delivered recurring reminder.
type RecurrenceExpander struct {
	store reminderCreator
	log   zerolog.Logger
}

func NewRecurrenceExpander(store reminderCreator, log zerolog.Logger) *RecurrenceExpander {
	return &RecurrenceExpander{store: store, log: log}
}

// Expand creates the successor of delivered and returns it. It returns nil without error
// when the reminder is not recurring, the frequency is unknown, or the next occurrence
// falls after the pattern's end date.
//
// The next occurrence is computed from delivered.ScheduledAt, never from the delivery
// time, so late runs do not drift the series.
func (e *RecurrenceExpander) Expand(ctx context.Context, delivered model.Reminder) (*model.Reminder, error) {
	if !delivered.IsRecurring || delivered.Recurrence == nil {
		return nil, nil
	}
	pattern := *delivered.Recurrence

	next, ok := pattern.NextOccurrence(delivered.ScheduledAt)
	if !ok {
		e.log.Debug().Str("id", delivered.ID).Str("frequency", string(pattern.Frequency)).Msg("unknown frequency, series stops")
		return nil, nil
	}
	if pattern.Ends(next) {
		e.log.Debug().Str("id", delivered.ID).Time("next", next).Msg("series reached its end date")
		return nil, nil
	}

	successor := delivered.Successor(next)
	if err := e.store.Create(ctx, &successor); err != nil {
		return nil, fmt.Errorf("%w after %s: %w", ErrRecurrence, delivered.ID, err)
	}
	return &successor, nil
}
