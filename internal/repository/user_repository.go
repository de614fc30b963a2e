package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/aimd54/planet-heroes/internal/models"
)

// UserRepository mirrors player profiles into the relational store.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts a user or refreshes its identity fields and last-active
// time. Progress columns of an existing row are left alone.
func (r *UserRepository) Upsert(user *models.User) error {
	if user.Badges == nil {
		user.Badges = []string{}
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "last_active"}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id %s: %w", id, err)
	}
	return &user, nil
}

// UpdateProgress writes points, level and last-active time.
func (r *UserRepository) UpdateProgress(id string, totalPoints, level int, lastActive time.Time) error {
	res := r.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_points": totalPoints,
		"level":        level,
		"last_active":  lastActive,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update progress for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to update progress for %s: user not mirrored", id)
	}
	return nil
}

// SetBadges replaces the badge list.
func (r *UserRepository) SetBadges(id string, badges []string) error {
	if badges == nil {
		badges = []string{}
	}
	err := r.db.Model(&models.User{ID: id}).Select("badges").Updates(&models.User{Badges: badges}).Error
	if err != nil {
		return fmt.Errorf("failed to set badges for %s: %w", id, err)
	}
	return nil
}

// List retrieves users, optionally filtered by role, by points descending.
func (r *UserRepository) List(role string) ([]models.User, error) {
	query := r.db.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Order("total_points DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
