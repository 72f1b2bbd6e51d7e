package models

import "time"

// Client is a person who may owe debts. The optional User link (one-to-one)
// gives the client an account able to consult its own dettes.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Surnom    string    `gorm:"size:255;not null;uniqueIndex" json:"surnom"`
	Telephone string    `gorm:"size:20;not null;uniqueIndex" json:"telephone"`
	Adresse   string    `gorm:"size:255" json:"adresse"`
	UserID    *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
