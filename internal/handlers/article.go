package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/gate"
	"github.com/diewo77/gestion-boutique/httpx"
	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/internal/services"
	"github.com/diewo77/gestion-boutique/validation"
)

// ArticleHandler covers inventory CRUD, soft-delete management, and the two
// stock adjustment entry points.
type ArticleHandler struct {
	DB    *gorm.DB
	Gate  *gate.Gate[uint]
	Stock *services.StockService
}

func NewArticleHandler(db *gorm.DB, g *gate.Gate[uint], stock *services.StockService) *ArticleHandler {
	return &ArticleHandler{DB: db, Gate: g, Stock: stock}
}

// List: GET /api/v1/articles
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "article", nil) {
		return
	}
	limit, offset := paginate(r)
	var total int64
	h.DB.Model(&models.Article{}).Count(&total)
	var articles []models.Article
	if err := h.DB.Preload("Categorie").Preload("Promo").
		Order("id").Limit(limit).Offset(offset).Find(&articles).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des articles", nil)
		return
	}
	httpx.Success(w, http.StatusOK, listPayload(articles, total, limit, offset), "Articles récupérés")
}

// Show: GET /api/v1/articles/{id}
func (h *ArticleHandler) Show(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionView, "article", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var article models.Article
	if err := h.DB.Preload("Categorie").Preload("Promo").First(&article, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Article non trouvé", nil)
		return
	}
	httpx.Success(w, http.StatusOK, article, "Article récupéré")
}

type storeArticleInput struct {
	Libele       string  `json:"libele" validate:"required,max=255"`
	Description  string  `json:"description"`
	PrixUnitaire float64 `json:"prix_unitaire" validate:"gte=0"`
	Quantite     int     `json:"quantite" validate:"gte=0"`
	PrixDetails  float64 `json:"prix_details" validate:"gte=0"`
	CategorieID  uint    `json:"categorie_id" validate:"required"`
	PromoID      *uint   `json:"promo_id"`
}

// Create: POST /api/v1/articles
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionCreate, "article", nil) {
		return
	}
	var in storeArticleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	violations := validation.Struct(in)
	if violations == nil {
		violations = validation.Violations{}
	}
	var count int64
	h.DB.Model(&models.Categorie{}).Where("id = ?", in.CategorieID).Count(&count)
	if in.CategorieID != 0 && count == 0 {
		violations["categorie_id"] = "La catégorie sélectionnée n'existe pas."
	}
	// Unicity checked against soft-deleted rows too: a trashed article still
	// reserves its libellé until force deletion.
	h.DB.Unscoped().Model(&models.Article{}).Where("libele = ?", in.Libele).Count(&count)
	if count > 0 {
		violations["libele"] = "Le libellé de l'article doit être unique."
	}
	if in.PromoID != nil {
		h.DB.Model(&models.Promo{}).Where("id = ?", *in.PromoID).Count(&count)
		if count == 0 {
			violations["promo_id"] = "La promo sélectionnée n'existe pas."
		}
	}
	if !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}
	article := models.Article{
		Libele:       in.Libele,
		Description:  in.Description,
		PrixUnitaire: in.PrixUnitaire,
		Quantite:     in.Quantite,
		PrixDetails:  in.PrixDetails,
		CategorieID:  in.CategorieID,
		PromoID:      in.PromoID,
	}
	if err := h.DB.Create(&article).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création de l'article", nil)
		return
	}
	httpx.Success(w, http.StatusCreated, article, "Article créé")
}

type updateArticleInput struct {
	Libele       *string  `json:"libele" validate:"omitempty,max=255"`
	Description  *string  `json:"description"`
	PrixUnitaire *float64 `json:"prix_unitaire" validate:"omitempty,gte=0"`
	PrixDetails  *float64 `json:"prix_details" validate:"omitempty,gte=0"`
	CategorieID  *uint    `json:"categorie_id"`
	PromoID      *uint    `json:"promo_id"`
}

// Update: PUT /api/v1/articles/{id} — metadata only; quantities go through
// the stock endpoints.
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "article", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var article models.Article
	if err := h.DB.First(&article, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Article non trouvé", nil)
		return
	}
	var in updateArticleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	updates := map[string]any{}
	if in.Libele != nil {
		var count int64
		h.DB.Unscoped().Model(&models.Article{}).Where("libele = ? AND id <> ?", *in.Libele, id).Count(&count)
		if count > 0 {
			httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation",
				validation.Violations{"libele": "Le libellé de l'article doit être unique."})
			return
		}
		updates["libele"] = *in.Libele
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.PrixUnitaire != nil {
		updates["prix_unitaire"] = *in.PrixUnitaire
	}
	if in.PrixDetails != nil {
		updates["prix_details"] = *in.PrixDetails
	}
	if in.CategorieID != nil {
		var count int64
		h.DB.Model(&models.Categorie{}).Where("id = ?", *in.CategorieID).Count(&count)
		if count == 0 {
			httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation",
				validation.Violations{"categorie_id": "La catégorie sélectionnée n'existe pas."})
			return
		}
		updates["categorie_id"] = *in.CategorieID
	}
	if in.PromoID != nil {
		updates["promo_id"] = *in.PromoID
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&article).Updates(updates).Error; err != nil {
			httpx.Error(w, http.StatusInternalServerError, "Échec de la mise à jour de l'article", nil)
			return
		}
	}
	httpx.Success(w, http.StatusOK, article, "Article mis à jour")
}

// Destroy: DELETE /api/v1/articles/{id} — soft delete.
func (h *ArticleHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionDelete, "article", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	res := h.DB.Delete(&models.Article{}, id)
	if res.Error != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la suppression de l'article", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, http.StatusNotFound, "Article non trouvé", nil)
		return
	}
	httpx.Success(w, http.StatusOK, nil, "Article supprimé")
}

// Trashed: GET /api/v1/articles/trashed — soft-deleted articles only.
func (h *ArticleHandler) Trashed(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "article", nil) {
		return
	}
	limit, offset := paginate(r)
	base := h.DB.Unscoped().Model(&models.Article{}).Where("deleted_at IS NOT NULL")
	var total int64
	base.Count(&total)
	var articles []models.Article
	if err := h.DB.Unscoped().Where("deleted_at IS NOT NULL").
		Order("id").Limit(limit).Offset(offset).Find(&articles).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des articles", nil)
		return
	}
	httpx.Success(w, http.StatusOK, listPayload(articles, total, limit, offset), "Articles supprimés récupérés")
}

// Restore: POST /api/v1/articles/{id}/restore
func (h *ArticleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionRestore, "article", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var article models.Article
	if err := h.DB.Unscoped().First(&article, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Article non trouvé", nil)
		return
	}
	if err := h.DB.Unscoped().Model(&article).Update("deleted_at", nil).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la restauration de l'article", nil)
		return
	}
	httpx.Success(w, http.StatusOK, article, "Article restauré")
}

// ForceDelete: DELETE /api/v1/articles/{id}/force — permanent.
func (h *ArticleHandler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionDelete, "article", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	res := h.DB.Unscoped().Delete(&models.Article{}, id)
	if res.Error != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la suppression de l'article", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, http.StatusNotFound, "Article non trouvé", nil)
		return
	}
	httpx.Success(w, http.StatusOK, nil, "Article supprimé définitivement")
}

type searchLibelleInput struct {
	Libelle string `json:"libelle" validate:"required"`
}

// SearchByLibelle: POST /api/v1/articles/libelle
func (h *ArticleHandler) SearchByLibelle(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "article", nil) {
		return
	}
	var in searchLibelleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	var articles []models.Article
	like := "%" + strings.ToLower(strings.TrimSpace(in.Libelle)) + "%"
	if err := h.DB.Where("lower(libele) LIKE ?", like).Order("id").Find(&articles).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la recherche", nil)
		return
	}
	httpx.Success(w, http.StatusOK, articles, "Articles récupérés")
}

type stockBatchInput struct {
	Articles []services.StockAdjustment `json:"articles" validate:"required,min=1,dive"`
}

// UpdateStock: POST /api/v1/articles/stock — batch adjustment. Expected
// per-line failures ride in failedUpdates next to the successes.
func (h *ArticleHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "article", nil) {
		return
	}
	var in stockBatchInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	result, err := h.Stock.Adjust(r.Context(), in.Articles)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Une erreur est survenue lors de la mise à jour du stock", nil)
		return
	}
	httpx.Success(w, http.StatusOK, result, "Mise à jour du stock effectuée")
}

// A zero delta is a valid no-op, so the field carries no required tag.
type stockSingleInput struct {
	Quantite int `json:"quantite"`
}

// UpdateStockSingle: PATCH /api/v1/articles/{id} — one signed delta.
func (h *ArticleHandler) UpdateStockSingle(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "article", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var in stockSingleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	newQuantity, err := h.Stock.AdjustOne(r.Context(), id, in.Quantite)
	switch {
	case errors.Is(err, services.ErrArticleNotFound):
		httpx.Error(w, http.StatusNotFound, "Article non trouvé", nil)
	case errors.Is(err, services.ErrNegativeQuantity):
		httpx.Error(w, http.StatusUnprocessableEntity, "La quantité résultante serait négative", nil)
	case err != nil:
		httpx.Error(w, http.StatusInternalServerError, "Une erreur est survenue lors de la mise à jour du stock", nil)
	default:
		httpx.Success(w, http.StatusOK, map[string]any{"id": id, "newQuantity": newQuantity}, "Stock mis à jour")
	}
}
