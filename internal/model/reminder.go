package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder represents a single scheduled occurrence addressed to one channel target.
// Recurring reminders never move in place; every occurrence is its own row.
type Reminder struct {
	ID            string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        string             `gorm:"index;not null" json:"userId"`
	ChannelTarget string             `gorm:"not null" json:"channelTarget"`
	Message       string             `gorm:"type:text;not null" json:"message"`
	ScheduledAt   time.Time          `gorm:"index;not null" json:"scheduledAt"`
	SentAt        *time.Time         `gorm:"index" json:"sentAt"`
	IsRecurring   bool               `gorm:"not null;default:false" json:"isRecurring"`
	Recurrence    *RecurrencePattern `gorm:"type:text;serializer:json" json:"recurrencePattern"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"createdAt"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsDue reports whether the reminder is pending and its scheduled time has passed.
func (r Reminder) IsDue(now time.Time) bool {
	return r.SentAt == nil && !r.ScheduledAt.After(now)
}

// Successor builds the next pending occurrence of a recurring reminder at the given time.
func (r Reminder) Successor(at time.Time) Reminder {
	return Reminder{
		UserID:        r.UserID,
		ChannelTarget: r.ChannelTarget,
		Message:       r.Message,
		ScheduledAt:   at,
		IsRecurring:   true,
		Recurrence:    r.Recurrence,
	}
}
