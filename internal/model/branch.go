package model

import (
	"time"

	"github.com/google/uuid"
)

// Branch is a store location owning one or more desks.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
}

func (Branch) TableName() string { return "branches" }
