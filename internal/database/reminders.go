package database

import (
	"context"
	"errors"
	"time"

	"github.com/pathakanu/remindr/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("database: not found")

// ReminderStore persists reminders in the reminders table.
// Timestamps are written and compared in UTC so SQLite text ordering stays chronological.
type ReminderStore struct {
	db *gorm.DB
}

// NewReminderStore wraps an open connection.
func NewReminderStore(db *gorm.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// FindPending returns every unsent reminder scheduled at or before now, oldest first.
func (s *ReminderStore) FindPending(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.WithContext(ctx).
		Where("sent_at IS NULL AND scheduled_at <= ?", now.UTC()).
		Order("scheduled_at ASC, id ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

// FindPendingForUser returns the user's unsent reminders scheduled within [from, to).
func (s *ReminderStore) FindPendingForUser(ctx context.Context, userID string, from, to time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND sent_at IS NULL AND scheduled_at >= ? AND scheduled_at < ?", userID, from.UTC(), to.UTC()).
		Order("scheduled_at ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

// MarkSent sets sent_at only while it is still NULL. It returns false when another
// run already marked the reminder, or when no such reminder exists.
func (s *ReminderStore) MarkSent(ctx context.Context, id string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ? AND sent_at IS NULL", id).
		Update("sent_at", now.UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Create inserts a new reminder, assigning an id when empty.
func (s *ReminderStore) Create(ctx context.Context, reminder *model.Reminder) error {
	if reminder == nil {
		return errors.New("database: nil reminder")
	}
	reminder.ScheduledAt = reminder.ScheduledAt.UTC()
	if reminder.SentAt != nil {
		sent := reminder.SentAt.UTC()
		reminder.SentAt = &sent
	}
	return s.db.WithContext(ctx).Create(reminder).Error
}

// Get loads a reminder by id.
func (s *ReminderStore) Get(ctx context.Context, id string) (model.Reminder, error) {
	var reminder model.Reminder
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&reminder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Reminder{}, ErrNotFound
	}
	return reminder, err
}
