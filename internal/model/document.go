package model

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one entry of the hierarchical store. Collection is the full
// collection path, e.g. "parlors" or "parlors/p-001/rooms".
type Document struct {
	Collection string            `gorm:"primaryKey;size:512"`
	ID         string            `gorm:"primaryKey;size:128"`
	Fields     datatypes.JSONMap `gorm:"not null"`
	CreatedAt  time.Time         `gorm:"not null"`
	UpdatedAt  time.Time         `gorm:"not null"`
}
