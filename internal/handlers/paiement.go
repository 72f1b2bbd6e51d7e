package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/gate"
	"github.com/diewo77/gestion-boutique/httpx"
	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/internal/services"
	"github.com/diewo77/gestion-boutique/validation"
)

type PaiementHandler struct {
	DB     *gorm.DB
	Gate   *gate.Gate[uint]
	Dettes *services.DetteService
}

func NewPaiementHandler(db *gorm.DB, g *gate.Gate[uint], dettes *services.DetteService) *PaiementHandler {
	return &PaiementHandler{DB: db, Gate: g, Dettes: dettes}
}

// parentDette loads the dette a payment belongs to, for the ownership check.
func (h *PaiementHandler) parentDette(detteID uint) (*models.Dette, error) {
	var dette models.Dette
	if err := h.DB.First(&dette, detteID).Error; err != nil {
		return nil, err
	}
	return &dette, nil
}

// List: GET /api/v1/paiements?dette_id=
func (h *PaiementHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "paiement", nil) {
		return
	}
	limit, offset := paginate(r)
	q := h.DB.Model(&models.Paiement{})
	if detteID := r.URL.Query().Get("dette_id"); detteID != "" {
		q = q.Where("dette_id = ?", detteID)
	}
	var total int64
	q.Count(&total)
	var paiements []models.Paiement
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&paiements).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des paiements", nil)
		return
	}
	httpx.Success(w, http.StatusOK, listPayload(paiements, total, limit, offset), "Paiements récupérés")
}

// Show: GET /api/v1/paiements/{id}
func (h *PaiementHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var paiement models.Paiement
	if err := h.DB.First(&paiement, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Paiement non trouvé", nil)
		return
	}
	dette, err := h.parentDette(paiement.DetteID)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionView, "paiement", dette) {
		return
	}
	httpx.Success(w, http.StatusOK, paiement, "Paiement récupéré")
}

type storePaiementInput struct {
	DetteID      uint      `json:"dette_id" validate:"required"`
	Montant      float64   `json:"montant" validate:"required,gt=0"`
	DatePaiement time.Time `json:"date_paiement"`
	ModePaiement string    `json:"mode_paiement" validate:"required"`
	Commentaire  string    `json:"commentaire"`
}

// Create: POST /api/v1/paiements — recomputes the dette statut afterwards.
func (h *PaiementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in storePaiementInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	dette, err := h.parentDette(in.DetteID)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionCreate, "paiement", dette) {
		return
	}
	if in.DatePaiement.IsZero() {
		in.DatePaiement = time.Now()
	}
	paiement, err := h.Dettes.RecordPaiement(r.Context(), services.RecordPaiement{
		DetteID:      in.DetteID,
		Montant:      in.Montant,
		DatePaiement: in.DatePaiement,
		ModePaiement: in.ModePaiement,
		Commentaire:  in.Commentaire,
	})
	switch {
	case errors.Is(err, services.ErrDetteNotFound):
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
	case errors.Is(err, services.ErrMontantExcessif):
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation",
			validation.Violations{"montant": "Le montant dépasse le restant dû."})
	case err != nil:
		httpx.Error(w, http.StatusInternalServerError, "Échec de l'enregistrement du paiement", nil)
	default:
		httpx.Success(w, http.StatusCreated, paiement, "Paiement enregistré")
	}
}

type updatePaiementInput struct {
	Montant      *float64   `json:"montant" validate:"omitempty,gt=0"`
	DatePaiement *time.Time `json:"date_paiement"`
	ModePaiement *string    `json:"mode_paiement"`
	Commentaire  *string    `json:"commentaire"`
}

// Update: PUT /api/v1/paiements/{id}
func (h *PaiementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var paiement models.Paiement
	if err := h.DB.First(&paiement, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Paiement non trouvé", nil)
		return
	}
	dette, err := h.parentDette(paiement.DetteID)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "paiement", dette) {
		return
	}
	var in updatePaiementInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	updated, err := h.Dettes.UpdatePaiement(r.Context(), id, services.UpdatePaiement{
		Montant:      in.Montant,
		DatePaiement: in.DatePaiement,
		ModePaiement: in.ModePaiement,
		Commentaire:  in.Commentaire,
	})
	switch {
	case errors.Is(err, services.ErrPaiementNotFound):
		httpx.Error(w, http.StatusNotFound, "Paiement non trouvé", nil)
	case errors.Is(err, services.ErrMontantExcessif):
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation",
			validation.Violations{"montant": "Le montant dépasse le restant dû."})
	case err != nil:
		httpx.Error(w, http.StatusInternalServerError, "Échec de la mise à jour du paiement", nil)
	default:
		httpx.Success(w, http.StatusOK, updated, "Paiement mis à jour")
	}
}

// Destroy: DELETE /api/v1/paiements/{id} — statut recomputed; a fully paid
// dette reopens when the covering payment disappears.
func (h *PaiementHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var paiement models.Paiement
	if err := h.DB.First(&paiement, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Paiement non trouvé", nil)
		return
	}
	dette, err := h.parentDette(paiement.DetteID)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionDelete, "paiement", dette) {
		return
	}
	err = h.Dettes.DeletePaiement(r.Context(), id)
	switch {
	case errors.Is(err, services.ErrPaiementNotFound):
		httpx.Error(w, http.StatusNotFound, "Paiement non trouvé", nil)
	case err != nil:
		httpx.Error(w, http.StatusInternalServerError, "Échec de la suppression du paiement", nil)
	default:
		httpx.Success(w, http.StatusOK, nil, "Paiement supprimé")
	}
}
