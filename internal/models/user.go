// Package models defines the relational mirror of player data.
package models

import (
	"time"
)

// User mirrors a player profile in the relational store.
type User struct {
	ID          string    `gorm:"primaryKey;size:128" json:"id"`
	Email       string    `gorm:"size:255;index" json:"email"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	Role        string    `gorm:"size:20;not null;default:student;index" json:"role"`
	TotalPoints int       `gorm:"not null;default:0;index" json:"total_points"`
	Badges      []string  `gorm:"serializer:json;type:jsonb" json:"badges"`
	Level       int       `gorm:"not null;default:1" json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
