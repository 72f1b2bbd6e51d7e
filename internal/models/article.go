package models

import (
	"time"

	"gorm.io/gorm"
)

// Article is an inventory line item. Quantite is only ever mutated through
// the stock service and never goes negative.
type Article struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Libele       string         `gorm:"size:255;not null;uniqueIndex" json:"libele"`
	Description  string         `json:"description,omitempty"`
	PrixUnitaire float64        `gorm:"not null" json:"prix_unitaire"`
	Quantite     int            `gorm:"not null;default:0" json:"quantite"`
	PrixDetails  float64        `json:"prix_details"`
	CategorieID  uint           `gorm:"not null;index" json:"categorie_id"`
	Categorie    *Categorie     `gorm:"foreignKey:CategorieID" json:"categorie,omitempty"`
	PromoID      *uint          `gorm:"index" json:"promo_id,omitempty"`
	Promo        *Promo         `gorm:"foreignKey:PromoID" json:"promo,omitempty"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
