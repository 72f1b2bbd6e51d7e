package models

import "time"

// Categorie is a lookup entity articles reference.
type Categorie struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Libelle   string    `gorm:"size:255;not null;uniqueIndex" json:"libelle"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Promo carries a percentage discount valid between DateDebut and DateFin
// (DateFin strictly after DateDebut, enforced at validation).
type Promo struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Code                 string    `gorm:"size:255;not null;uniqueIndex" json:"code"`
	PourcentageReduction float64   `gorm:"not null" json:"pourcentage_reduction"`
	DateDebut            time.Time `gorm:"not null" json:"date_debut"`
	DateFin              time.Time `gorm:"not null" json:"date_fin"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
