// Package services holds the business core: the stock adjustment engine and
// the debt ledger. Handlers stay thin and delegate every multi-step write here.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/internal/models"
)

// Per-line failure reasons reported in failedUpdates.
const (
	ReasonArticleNotFound  = "Article non trouvé"
	ReasonNegativeQuantity = "La quantité résultante serait négative"
)

// Sentinel errors for single-article adjustments.
var (
	ErrArticleNotFound  = errors.New("article non trouvé")
	ErrNegativeQuantity = errors.New("la quantité résultante serait négative")
)

// StockAdjustment is one signed delta against an article's on-hand quantity.
// Deltas are additive: applying the same batch twice doubles the effect.
type StockAdjustment struct {
	ArticleID uint `json:"id"`
	Quantite  int  `json:"quantite"`
}

// StockUpdateSuccess reports a persisted line with the resulting quantity.
type StockUpdateSuccess struct {
	ID          uint `json:"id"`
	NewQuantity int  `json:"newQuantity"`
}

// StockUpdateFailure reports a rejected line and why it was rejected.
type StockUpdateFailure struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

// StockResult carries both outcome lists of a batch.
type StockResult struct {
	SuccessfulUpdates []StockUpdateSuccess `json:"successfulUpdates"`
	FailedUpdates     []StockUpdateFailure `json:"failedUpdates"`
}

// StockService applies quantity deltas to articles.
type StockService struct {
	db *gorm.DB
}

func NewStockService(db *gorm.DB) *StockService { return &StockService{db: db} }

// Adjust applies a batch of signed deltas inside one transaction. Expected
// per-line failures (unknown article, result would go negative) are recorded
// and the batch continues; the line's quantity is left untouched. Only an
// unexpected lookup or persistence error rolls the whole batch back.
func (s *StockService) Adjust(ctx context.Context, lines []StockAdjustment) (StockResult, error) {
	result := StockResult{
		SuccessfulUpdates: []StockUpdateSuccess{},
		FailedUpdates:     []StockUpdateFailure{},
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			var article models.Article
			if err := tx.First(&article, line.ArticleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					result.FailedUpdates = append(result.FailedUpdates, StockUpdateFailure{
						ID:     line.ArticleID,
						Reason: ReasonArticleNotFound,
					})
					continue
				}
				return err
			}
			newQuantity := article.Quantite + line.Quantite
			if newQuantity < 0 {
				result.FailedUpdates = append(result.FailedUpdates, StockUpdateFailure{
					ID:     line.ArticleID,
					Reason: ReasonNegativeQuantity,
				})
				continue
			}
			if err := tx.Model(&article).Update("quantite", newQuantity).Error; err != nil {
				return err
			}
			result.SuccessfulUpdates = append(result.SuccessfulUpdates, StockUpdateSuccess{
				ID:          article.ID,
				NewQuantity: newQuantity,
			})
		}
		return nil
	})
	if err != nil {
		return StockResult{}, err
	}
	return result, nil
}

// AdjustOne applies a single signed delta and returns the new quantity.
// Unlike the batch, a rejected line surfaces as an error.
func (s *StockService) AdjustOne(ctx context.Context, articleID uint, delta int) (int, error) {
	var newQuantity int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		if err := tx.First(&article, articleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArticleNotFound
			}
			return err
		}
		newQuantity = article.Quantite + delta
		if newQuantity < 0 {
			return ErrNegativeQuantity
		}
		return tx.Model(&article).Update("quantite", newQuantity).Error
	})
	if err != nil {
		return 0, err
	}
	return newQuantity, nil
}
