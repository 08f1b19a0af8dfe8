package model

import "time"

// Account is a parlor owner's login. Its ID is also the ID of the parlor
// document the owner manages.
type Account struct {
	ID           string `gorm:"primaryKey;size:128"`
	Email        string `gorm:"uniqueIndex;size:256;not null"`
	PasswordHash string `gorm:"not null"`
	OwnerName    string `gorm:"size:128"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
