package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the subset of account data the daily summary reads.
type User struct {
	ID              string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChannelTarget   string      `json:"channelTarget"`
	IsActive        bool        `gorm:"not null" json:"isActive"`
	Preferences     Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	LastSummaryDate string      `gorm:"type:varchar(10)" json:"lastSummaryDate,omitempty"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"createdAt"`
}

// Preferences holds per-user delivery settings.
type Preferences struct {
	// DailySummaryTime is a local "HH:MM" wall clock; empty disables the summary.
	DailySummaryTime string `json:"dailySummaryTime,omitempty"`
	// Timezone is an IANA zone name; empty falls back to the service default.
	Timezone string `json:"timezone,omitempty"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// WantsDailySummary reports whether the user is eligible for the daily summary.
func (u User) WantsDailySummary() bool {
	return u.IsActive && u.Preferences.DailySummaryTime != ""
}
