package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pathakanu/remindr/internal/model"
)

type pendingFinder interface {
	FindPending(ctx context.Context, now time.Time) ([]model.Reminder, error)
}

// Selector returns the reminders due at a given instant.
type Selector struct {
	store pendingFinder
}

func NewSelector(store pendingFinder) *Selector {
	return &Selector{store: store}
}

// SelectDue lists every pending reminder scheduled at or before now, across all users,
// in store order. Rows the store returns that are not due are dropped.
func (s *Selector) SelectDue(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	reminders, err := s.store.FindPending(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSelection, err)
	}

	due := make([]model.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if r.IsDue(now) {
			due = append(due, r)
		}
	}
	return due, nil
}
