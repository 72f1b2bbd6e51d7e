package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/gate"
	"github.com/diewo77/gestion-boutique/httpx"
	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/validation"
)

type PromoHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[uint]
}

func NewPromoHandler(db *gorm.DB, g *gate.Gate[uint]) *PromoHandler {
	return &PromoHandler{DB: db, Gate: g}
}

// List: GET /api/v1/promos
func (h *PromoHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "promo", nil) {
		return
	}
	limit, offset := paginate(r)
	var total int64
	h.DB.Model(&models.Promo{}).Count(&total)
	var promos []models.Promo
	if err := h.DB.Order("id").Limit(limit).Offset(offset).Find(&promos).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des promos", nil)
		return
	}
	httpx.Success(w, http.StatusOK, listPayload(promos, total, limit, offset), "Promos récupérées")
}

// Show: GET /api/v1/promos/{id}
func (h *PromoHandler) Show(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionView, "promo", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var promo models.Promo
	if err := h.DB.First(&promo, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Promo non trouvée", nil)
		return
	}
	httpx.Success(w, http.StatusOK, promo, "Promo récupérée")
}

type promoInput struct {
	Code                 string    `json:"code" validate:"required,max=255"`
	PourcentageReduction float64   `json:"pourcentage_reduction" validate:"required,gte=0,lte=100"`
	DateDebut            time.Time `json:"date_debut" validate:"required"`
	DateFin              time.Time `json:"date_fin" validate:"required,gtfield=DateDebut"`
}

func (h *PromoHandler) validatePromo(in promoInput, excludeID uint) validation.Violations {
	violations := validation.Struct(in)
	if violations == nil {
		violations = validation.Violations{}
	}
	var count int64
	q := h.DB.Model(&models.Promo{}).Where("code = ?", in.Code)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	q.Count(&count)
	if count > 0 {
		violations["code"] = "Le code promo doit être unique."
	}
	return violations
}

// Create: POST /api/v1/promos
func (h *PromoHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionCreate, "promo", nil) {
		return
	}
	var in promoInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if violations := h.validatePromo(in, 0); !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}
	promo := models.Promo{
		Code:                 in.Code,
		PourcentageReduction: in.PourcentageReduction,
		DateDebut:            in.DateDebut,
		DateFin:              in.DateFin,
	}
	if err := h.DB.Create(&promo).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création de la promo", nil)
		return
	}
	httpx.Success(w, http.StatusCreated, promo, "Promo créée")
}

// Update: PUT /api/v1/promos/{id}
func (h *PromoHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "promo", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var promo models.Promo
	if err := h.DB.First(&promo, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Promo non trouvée", nil)
		return
	}
	var in promoInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if violations := h.validatePromo(in, id); !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}
	promo.Code = in.Code
	promo.PourcentageReduction = in.PourcentageReduction
	promo.DateDebut = in.DateDebut
	promo.DateFin = in.DateFin
	if err := h.DB.Save(&promo).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la mise à jour de la promo", nil)
		return
	}
	httpx.Success(w, http.StatusOK, promo, "Promo mise à jour")
}

// Destroy: DELETE /api/v1/promos/{id} — articles referencing it are detached.
func (h *PromoHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionDelete, "promo", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Model(&models.Article{}).
			Where("promo_id = ?", id).Update("promo_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Promo{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		httpx.Error(w, http.StatusNotFound, "Promo non trouvée", nil)
		return
	}
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la suppression de la promo", nil)
		return
	}
	httpx.Success(w, http.StatusOK, nil, "Promo supprimée")
}
