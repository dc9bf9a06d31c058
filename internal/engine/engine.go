// Package engine selects due reminders, delivers them and schedules the next occurrence
// of recurring ones.
//
// One run is Selector.SelectDue followed by Dispatcher.Dispatch. A selection failure
// aborts the run before anything is sent; every later failure is confined to the
// reminder it happened on and reported in the run's Result.
//
// Delivery is at least once: a reminder whose send fails keeps a nil SentAt and is picked
// up again by the next run. MarkSent is conditional, so when two runs overlap only one of
// them records the delivery and expands the recurrence.
package engine

import (
	"context"
	"errors"
)

var (
	// ErrSelection marks a failure to list due reminders. It is fatal for the run.
	ErrSelection = errors.New("engine: select due reminders")
	// ErrRecurrence marks a failure to persist the successor of a delivered reminder.
	ErrRecurrence = errors.New("engine: create next occurrence")
)

// Notifier delivers text to a channel target.
type Notifier interface {
	Send(ctx context.Context, target, text string) error
}
