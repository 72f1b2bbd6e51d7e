package models

import "time"

// Roles understood by the authorization profiles.
const (
	RoleAdmin      = "ADMIN"
	RoleBoutiquier = "BOUTIQUIER"
	RoleClient     = "CLIENT"
)

// User is an authenticatable principal. Etat=false means the account is
// blocked: tokens keep parsing but the auth verifier rejects the user.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Nom        string    `gorm:"size:255;not null" json:"nom"`
	Prenom     string    `gorm:"size:255;not null" json:"prenom"`
	Email      string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	MotDePasse string    `gorm:"not null" json:"-"`
	Role       string    `gorm:"size:20;not null;default:'CLIENT'" json:"role"`
	Etat       bool      `gorm:"not null;default:true" json:"etat"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RefreshToken is an issued refresh credential; only the sha256 digest of the
// plain token is stored. Logout deletes every row of the user.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"-"`
}
