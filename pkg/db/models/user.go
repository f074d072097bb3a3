package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal account surface the billing flow references. Profile
// and auth data live in the main application service.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string    `gorm:"column:email;not null;unique"`
	DisplayName string    `gorm:"column:display_name"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
