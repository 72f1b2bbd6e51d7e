package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/internal/models"
)

var (
	ErrClientNotFound   = errors.New("client non trouvé")
	ErrDetteNotFound    = errors.New("dette non trouvée")
	ErrPaiementNotFound = errors.New("paiement non trouvé")
	// ErrMontantExcessif rejects payments above the remaining amount, so the
	// remaining balance never goes negative.
	ErrMontantExcessif = errors.New("le montant dépasse le restant dû")
)

// DetteLigne is one purchased article line of a debt. PrixUnitaire is the
// price agreed at sale time, not the article's live price.
type DetteLigne struct {
	ArticleID    uint    `json:"id"`
	Quantite     int     `json:"quantite"`
	PrixUnitaire float64 `json:"prix_unitaire"`
}

// CreateDette is the command to open a debt.
type CreateDette struct {
	MontantTotal float64
	DateEcheance time.Time
	Statut       string
	ClientID     uint
	Articles     []DetteLigne
}

// RecordPaiement is the command to register a payment against a debt.
type RecordPaiement struct {
	DetteID      uint
	Montant      float64
	DatePaiement time.Time
	ModePaiement string
	Commentaire  string
}

// DetteService owns the debt lifecycle: creation with captured article lines,
// derived paid/remaining amounts, and the statut transition to "payee".
type DetteService struct {
	db *gorm.DB
}

func NewDetteService(db *gorm.DB) *DetteService { return &DetteService{db: db} }

// Create opens a debt and attaches its lines in one transaction. The client
// and every referenced article must exist; lines keep the quantity and unit
// price given in the command.
func (s *DetteService) Create(ctx context.Context, cmd CreateDette) (*models.Dette, error) {
	if cmd.Statut == "" {
		cmd.Statut = models.StatutEnCours
	}
	dette := models.Dette{
		MontantTotal: cmd.MontantTotal,
		DateEcheance: cmd.DateEcheance,
		Statut:       cmd.Statut,
		ClientID:     cmd.ClientID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Client{}).Where("id = ?", cmd.ClientID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrClientNotFound
		}
		for _, ligne := range cmd.Articles {
			if err := tx.Model(&models.Article{}).Where("id = ?", ligne.ArticleID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: article %d", ErrArticleNotFound, ligne.ArticleID)
			}
		}
		if err := tx.Create(&dette).Error; err != nil {
			return err
		}
		if len(cmd.Articles) == 0 {
			return nil
		}
		lignes := make([]models.ArticleDette, 0, len(cmd.Articles))
		for _, ligne := range cmd.Articles {
			lignes = append(lignes, models.ArticleDette{
				DetteID:      dette.ID,
				ArticleID:    ligne.ArticleID,
				Quantite:     ligne.Quantite,
				PrixUnitaire: ligne.PrixUnitaire,
			})
		}
		return tx.Create(&lignes).Error
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Articles.Article").First(&dette, dette.ID).Error; err != nil {
		return nil, err
	}
	return &dette, nil
}

// MontantPaye sums every payment recorded against the debt.
func (s *DetteService) MontantPaye(ctx context.Context, detteID uint) (float64, error) {
	return montantPaye(s.db.WithContext(ctx), detteID)
}

// MontantRestant is montant_total minus the paid amount.
func (s *DetteService) MontantRestant(ctx context.Context, detteID uint) (float64, error) {
	var dette models.Dette
	if err := s.db.WithContext(ctx).First(&dette, detteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrDetteNotFound
		}
		return 0, err
	}
	paye, err := montantPaye(s.db.WithContext(ctx), detteID)
	if err != nil {
		return 0, err
	}
	return dette.MontantTotal - paye, nil
}

func montantPaye(tx *gorm.DB, detteID uint) (float64, error) {
	var total float64
	err := tx.Model(&models.Paiement{}).
		Where("dette_id = ?", detteID).
		Select("COALESCE(SUM(montant), 0)").
		Scan(&total).Error
	return total, err
}

// RecordPaiement persists a payment, then re-evaluates the parent debt's
// statut. A payment above the remaining amount is rejected.
func (s *DetteService) RecordPaiement(ctx context.Context, cmd RecordPaiement) (*models.Paiement, error) {
	paiement := models.Paiement{
		DetteID:      cmd.DetteID,
		Montant:      cmd.Montant,
		DatePaiement: cmd.DatePaiement,
		ModePaiement: cmd.ModePaiement,
		Commentaire:  cmd.Commentaire,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dette models.Dette
		if err := tx.First(&dette, cmd.DetteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDetteNotFound
			}
			return err
		}
		paye, err := montantPaye(tx, dette.ID)
		if err != nil {
			return err
		}
		if cmd.Montant > dette.MontantTotal-paye {
			return ErrMontantExcessif
		}
		if err := tx.Create(&paiement).Error; err != nil {
			return err
		}
		return refreshStatut(tx, &dette)
	})
	if err != nil {
		return nil, err
	}
	return &paiement, nil
}

// UpdatePaiement changes a payment's fields and re-evaluates the debt statut.
// Zero-valued fields of the patch are left untouched.
type UpdatePaiement struct {
	Montant      *float64
	DatePaiement *time.Time
	ModePaiement *string
	Commentaire  *string
}

func (s *DetteService) UpdatePaiement(ctx context.Context, paiementID uint, patch UpdatePaiement) (*models.Paiement, error) {
	var paiement models.Paiement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&paiement, paiementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaiementNotFound
			}
			return err
		}
		var dette models.Dette
		if err := tx.First(&dette, paiement.DetteID).Error; err != nil {
			return err
		}
		if patch.Montant != nil {
			paye, err := montantPaye(tx, dette.ID)
			if err != nil {
				return err
			}
			// Remaining amount evaluated without this payment's old value.
			if *patch.Montant > dette.MontantTotal-(paye-paiement.Montant) {
				return ErrMontantExcessif
			}
			paiement.Montant = *patch.Montant
		}
		if patch.DatePaiement != nil {
			paiement.DatePaiement = *patch.DatePaiement
		}
		if patch.ModePaiement != nil {
			paiement.ModePaiement = *patch.ModePaiement
		}
		if patch.Commentaire != nil {
			paiement.Commentaire = *patch.Commentaire
		}
		if err := tx.Save(&paiement).Error; err != nil {
			return err
		}
		return refreshStatut(tx, &dette)
	})
	if err != nil {
		return nil, err
	}
	return &paiement, nil
}

// DeletePaiement removes a payment and re-evaluates the debt statut, so a
// fully paid debt reverts to "en_cours" when a payment is withdrawn.
func (s *DetteService) DeletePaiement(ctx context.Context, paiementID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var paiement models.Paiement
		if err := tx.First(&paiement, paiementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaiementNotFound
			}
			return err
		}
		var dette models.Dette
		if err := tx.First(&dette, paiement.DetteID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&paiement).Error; err != nil {
			return err
		}
		return refreshStatut(tx, &dette)
	})
}

// refreshStatut recomputes the paid state from the payment sum. A fully paid
// debt becomes "payee"; a "payee" debt that is no longer covered reopens as
// "en_cours". A manual "en_retard" is preserved until full payment.
func refreshStatut(tx *gorm.DB, dette *models.Dette) error {
	paye, err := montantPaye(tx, dette.ID)
	if err != nil {
		return err
	}
	statut := dette.Statut
	if paye >= dette.MontantTotal {
		statut = models.StatutPayee
	} else if dette.Statut == models.StatutPayee {
		statut = models.StatutEnCours
	}
	if statut == dette.Statut {
		return nil
	}
	dette.Statut = statut
	return tx.Model(dette).Update("statut", statut).Error
}
