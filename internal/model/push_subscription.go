package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Parlors []SubscriptionParlor `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionParlor links a subscription to a parlor whose rooms it watches.
type SubscriptionParlor struct {
	Endpoint string `gorm:"primaryKey"`
	ParlorID string `gorm:"primaryKey;size:128;index"`
}
