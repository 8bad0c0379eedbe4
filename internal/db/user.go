package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a registered driver or analyst. Sessions reference users by
// UserID; there is no back-reference from User to its sessions.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	CreatedAt time.Time `json:"created_at"`

	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	FullName   *string `gorm:"size:255" json:"full_name"`
	University *string `gorm:"size:255" json:"university"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
