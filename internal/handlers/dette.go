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

type DetteHandler struct {
	DB     *gorm.DB
	Gate   *gate.Gate[uint]
	Dettes *services.DetteService
}

func NewDetteHandler(db *gorm.DB, g *gate.Gate[uint], dettes *services.DetteService) *DetteHandler {
	return &DetteHandler{DB: db, Gate: g, Dettes: dettes}
}

// detteView decorates a dette with its derived amounts.
type detteView struct {
	models.Dette
	MontantPaye    float64 `json:"montant_paye"`
	MontantRestant float64 `json:"montant_restant"`
}

func (h *DetteHandler) view(r *http.Request, dette models.Dette) (detteView, error) {
	paye, err := h.Dettes.MontantPaye(r.Context(), dette.ID)
	if err != nil {
		return detteView{}, err
	}
	return detteView{Dette: dette, MontantPaye: paye, MontantRestant: dette.MontantTotal - paye}, nil
}

// List: GET /api/v1/dettes?statut=&client_id=
func (h *DetteHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "dette", nil) {
		return
	}
	limit, offset := paginate(r)
	q := h.DB.Model(&models.Dette{})
	if statut := r.URL.Query().Get("statut"); statut != "" {
		q = q.Where("statut = ?", statut)
	}
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	var total int64
	q.Count(&total)
	var dettes []models.Dette
	if err := q.Preload("Client").Preload("Articles.Article").
		Order("id").Limit(limit).Offset(offset).Find(&dettes).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des dettes", nil)
		return
	}
	views := make([]detteView, 0, len(dettes))
	for _, dette := range dettes {
		v, err := h.view(r, dette)
		if err != nil {
			httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des dettes", nil)
			return
		}
		views = append(views, v)
	}
	httpx.Success(w, http.StatusOK, listPayload(views, total, limit, offset), "Dettes récupérées")
}

// Show: GET /api/v1/dettes/{id} — lines, payments, and derived amounts.
func (h *DetteHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var dette models.Dette
	if err := h.DB.Preload("Client").Preload("Articles.Article").Preload("Paiements").
		First(&dette, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionView, "dette", &dette) {
		return
	}
	v, err := h.view(r, dette)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement de la dette", nil)
		return
	}
	httpx.Success(w, http.StatusOK, v, "Dette récupérée")
}

type detteLigneInput struct {
	ArticleID    uint    `json:"id" validate:"required"`
	Quantite     int     `json:"quantite" validate:"required,gte=1"`
	PrixUnitaire float64 `json:"prix_unitaire" validate:"gte=0"`
}

type storeDetteInput struct {
	MontantTotal float64           `json:"montant_total" validate:"required,gt=0"`
	DateEcheance time.Time         `json:"date_echeance" validate:"required"`
	Statut       string            `json:"statut" validate:"omitempty,oneof=en_cours payee en_retard"`
	ClientID     uint              `json:"client_id" validate:"required"`
	Articles     []detteLigneInput `json:"articles" validate:"required,min=1,dive"`
}

// Create: POST /api/v1/dettes — lines captured with the prices in the request.
func (h *DetteHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionCreate, "dette", nil) {
		return
	}
	var in storeDetteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	cmd := services.CreateDette{
		MontantTotal: in.MontantTotal,
		DateEcheance: in.DateEcheance,
		Statut:       in.Statut,
		ClientID:     in.ClientID,
	}
	for _, ligne := range in.Articles {
		cmd.Articles = append(cmd.Articles, services.DetteLigne{
			ArticleID:    ligne.ArticleID,
			Quantite:     ligne.Quantite,
			PrixUnitaire: ligne.PrixUnitaire,
		})
	}
	dette, err := h.Dettes.Create(r.Context(), cmd)
	switch {
	case errors.Is(err, services.ErrClientNotFound):
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation",
			validation.Violations{"client_id": "Le client sélectionné n'existe pas."})
	case errors.Is(err, services.ErrArticleNotFound):
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation",
			validation.Violations{"articles": "Un des articles sélectionnés n'existe pas."})
	case err != nil:
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création de la dette", nil)
	default:
		httpx.Success(w, http.StatusCreated, dette, "Dette créée")
	}
}

type updateDetteInput struct {
	MontantTotal *float64   `json:"montant_total" validate:"omitempty,gt=0"`
	DateEcheance *time.Time `json:"date_echeance"`
	Statut       *string    `json:"statut" validate:"omitempty,oneof=en_cours payee en_retard"`
}

// Update: PUT /api/v1/dettes/{id} — montant_total, échéance, or a manual
// statut override. Lines are immutable once captured.
func (h *DetteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var dette models.Dette
	if err := h.DB.First(&dette, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "dette", &dette) {
		return
	}
	var in updateDetteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	updates := map[string]any{}
	if in.MontantTotal != nil {
		updates["montant_total"] = *in.MontantTotal
	}
	if in.DateEcheance != nil {
		updates["date_echeance"] = *in.DateEcheance
	}
	if in.Statut != nil {
		updates["statut"] = *in.Statut
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&dette).Updates(updates).Error; err != nil {
			httpx.Error(w, http.StatusInternalServerError, "Échec de la mise à jour de la dette", nil)
			return
		}
	}
	httpx.Success(w, http.StatusOK, dette, "Dette mise à jour")
}

// Destroy: DELETE /api/v1/dettes/{id} — soft delete; payments cascade on
// force deletion only.
func (h *DetteHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var dette models.Dette
	if err := h.DB.First(&dette, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionDelete, "dette", &dette) {
		return
	}
	if err := h.DB.Delete(&dette).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la suppression de la dette", nil)
		return
	}
	httpx.Success(w, http.StatusOK, nil, "Dette supprimée")
}

// Paiements: GET /api/v1/dettes/{id}/paiements
func (h *DetteHandler) Paiements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var dette models.Dette
	if err := h.DB.First(&dette, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionList, "paiement", &dette) {
		return
	}
	var paiements []models.Paiement
	if err := h.DB.Where("dette_id = ?", dette.ID).Order("id").Find(&paiements).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des paiements", nil)
		return
	}
	httpx.Success(w, http.StatusOK, paiements, "Paiements récupérés")
}

// Articles: GET /api/v1/dettes/{id}/articles
func (h *DetteHandler) Articles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var dette models.Dette
	if err := h.DB.Preload("Articles.Article").First(&dette, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Dette non trouvée", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionView, "dette", &dette) {
		return
	}
	httpx.Success(w, http.StatusOK, dette.Articles, "Articles de la dette récupérés")
}
