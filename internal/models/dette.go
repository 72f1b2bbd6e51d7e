package models

import (
	"time"

	"gorm.io/gorm"
)

// Dette statuses. "en_retard" is only ever set manually; the two others are
// managed by the ledger.
const (
	StatutEnCours  = "en_cours"
	StatutPayee    = "payee"
	StatutEnRetard = "en_retard"
)

// Dette is an amount owed by exactly one client, with priced article lines
// captured at creation time. MontantPaye and MontantRestant are derived by
// the ledger, never stored.
type Dette struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	MontantTotal float64        `gorm:"not null" json:"montant_total"`
	DateEcheance time.Time      `gorm:"not null" json:"date_echeance"`
	Statut       string         `gorm:"size:20;not null;default:'en_cours'" json:"statut"`
	ClientID     uint           `gorm:"not null;index" json:"client_id"`
	Client       *Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Articles     []ArticleDette `gorm:"foreignKey:DetteID" json:"articles,omitempty"`
	Paiements    []Paiement     `gorm:"foreignKey:DetteID;constraint:OnDelete:CASCADE" json:"paiements,omitempty"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ArticleDette is the dette<->article association. Quantite and PrixUnitaire
// are copied at attach time, so later article price changes never alter an
// existing debt.
type ArticleDette struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	DetteID      uint      `gorm:"not null;index:idx_dette_article,unique,priority:1" json:"dette_id"`
	ArticleID    uint      `gorm:"not null;index:idx_dette_article,unique,priority:2" json:"article_id"`
	Article      *Article  `gorm:"foreignKey:ArticleID" json:"article,omitempty"`
	Quantite     int       `gorm:"not null" json:"quantite"`
	PrixUnitaire float64   `gorm:"not null" json:"prix_unitaire"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the historical pivot table name.
func (ArticleDette) TableName() string { return "article_dette" }

// Paiement is a single payment event against exactly one dette.
type Paiement struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DetteID      uint      `gorm:"not null;index" json:"dette_id"`
	Montant      float64   `gorm:"not null" json:"montant"`
	DatePaiement time.Time `gorm:"not null" json:"date_paiement"`
	ModePaiement string    `gorm:"size:50;not null" json:"mode_paiement"`
	Commentaire  string    `json:"commentaire,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
