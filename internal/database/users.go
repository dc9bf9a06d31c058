package database

import (
	"context"
	"errors"

	"github.com/pathakanu/remindr/internal/model"
	"gorm.io/gorm"
)

// UserStore reads users for the daily summary and records its per-day marker.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore wraps an open connection.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindAll returns every user.
func (s *UserStore) FindAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Create inserts a user.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("database: nil user")
	}
	return s.db.WithContext(ctx).Create(user).Error
}

// ClaimSummary records date as the user's last summary date unless it already is.
// Only one caller per user and date observes true.
func (s *UserStore) ClaimSummary(ctx context.Context, userID, date string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND (last_summary_date IS NULL OR last_summary_date <> ?)", userID, date).
		Update("last_summary_date", date)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
