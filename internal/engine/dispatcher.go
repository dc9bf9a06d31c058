package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pathakanu/remindr/internal/model"
	"github.com/rs/zerolog"
)

// Status is the outcome of one reminder in a run.
type Status string

const (
	StatusSent  Status = "sent"
	StatusError Status = "error"
	// StatusSkipped means the reminder was delivered but a concurrent run had already
	// marked it sent; this run neither counts it nor expands its recurrence.
	StatusSkipped Status = "skipped"
)

const messageTemplate = "⏰ Reminder: "

// Detail records what happened to one reminder.
type Detail struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result aggregates a dispatch run. Processed counts every reminder considered.
type Result struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Skipped   int      `json:"skipped"`
	Errors    int      `json:"errors"`
	Details   []Detail `json:"details"`
}

type sentMarker interface {
	MarkSent(ctx context.Context, id string, now time.Time) (bool, error)
}

type expander interface {
	Expand(ctx context.Context, delivered model.Reminder) (*model.Reminder, error)
}

// Dispatcher delivers due reminders and records the outcome of each.
type Dispatcher struct {
	notifier Notifier
	store    sentMarker
	expander expander
	workers  int
	log      zerolog.Logger
}

// NewDispatcher returns a dispatcher running up to workers deliveries at once.
// workers <= 1 processes reminders one after another.
func NewDispatcher(notifier Notifier, store sentMarker, exp expander, workers int, log zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		notifier: notifier,
		store:    store,
		expander: exp,
		workers:  workers,
		log:      log,
	}
}

// FormatMessage renders the delivered text for a reminder.
func FormatMessage(r model.Reminder) string {
	return messageTemplate + r.Message
}

// Dispatch delivers every reminder and returns the run's result. Details are listed in
// the order of reminders whatever the worker count.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time, reminders []model.Reminder) Result {
	details := make([]Detail, len(reminders))

	if d.workers == 1 || len(reminders) <= 1 {
		for i, r := range reminders {
			details[i] = d.deliver(ctx, now, r)
		}
		return summarize(details)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < d.workers && w < len(reminders); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				details[i] = d.deliver(ctx, now, reminders[i])
			}
		}()
	}
	for i := range reminders {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return summarize(details)
}

func (d *Dispatcher) deliver(ctx context.Context, now time.Time, r model.Reminder) Detail {
	log := d.log.With().Str("id", r.ID).Str("user", r.UserID).Logger()

	if err := d.notifier.Send(ctx, r.ChannelTarget, FormatMessage(r)); err != nil {
		log.Warn().Err(err).Msg("delivery failed, reminder stays pending")
		return Detail{ID: r.ID, Status: StatusError, Error: "delivery: " + err.Error()}
	}

	marked, err := d.store.MarkSent(ctx, r.ID, now)
	if err != nil {
		log.Error().Err(err).Msg("delivered but could not mark sent")
		return Detail{ID: r.ID, Status: StatusError, Error: "mark sent: " + err.Error()}
	}
	if !marked {
		log.Info().Msg("already marked sent by another run")
		return Detail{ID: r.ID, Status: StatusSkipped, Error: "already sent"}
	}

	if r.IsRecurring {
		next, err := d.expander.Expand(ctx, r)
		if err != nil {
			// sent_at stays set; the series has no pending successor until someone recreates it.
			log.Error().Err(err).Msg("recurrence chain broken")
			return Detail{ID: r.ID, Status: StatusError, Error: "recurrence: " + err.Error()}
		}
		if next != nil {
			log.Debug().Str("next_id", next.ID).Time("next_at", next.ScheduledAt).Msg("next occurrence scheduled")
		}
	}

	return Detail{ID: r.ID, Status: StatusSent}
}

func summarize(details []Detail) Result {
	res := Result{Processed: len(details), Details: details}
	for _, dt := range details {
		switch dt.Status {
		case StatusSent:
			res.Sent++
		case StatusSkipped:
			res.Skipped++
		default:
			res.Errors++
		}
	}
	return res
}
