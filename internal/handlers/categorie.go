package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/gate"
	"github.com/diewo77/gestion-boutique/httpx"
	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/validation"
)

type CategorieHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[uint]
}

func NewCategorieHandler(db *gorm.DB, g *gate.Gate[uint]) *CategorieHandler {
	return &CategorieHandler{DB: db, Gate: g}
}

// List: GET /api/v1/categories
func (h *CategorieHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "categorie", nil) {
		return
	}
	limit, offset := paginate(r)
	var total int64
	h.DB.Model(&models.Categorie{}).Count(&total)
	var categories []models.Categorie
	if err := h.DB.Order("id").Limit(limit).Offset(offset).Find(&categories).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des catégories", nil)
		return
	}
	httpx.Success(w, http.StatusOK, listPayload(categories, total, limit, offset), "Catégories récupérées")
}

// Show: GET /api/v1/categories/{id}
func (h *CategorieHandler) Show(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionView, "categorie", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var categorie models.Categorie
	if err := h.DB.First(&categorie, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Catégorie non trouvée", nil)
		return
	}
	httpx.Success(w, http.StatusOK, categorie, "Catégorie récupérée")
}

type categorieInput struct {
	Libelle string `json:"libelle" validate:"required,max=255"`
}

// Create: POST /api/v1/categories
func (h *CategorieHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionCreate, "categorie", nil) {
		return
	}
	var in categorieInput
	if !decodeJSON(w, r, &in) {
		return
	}
	violations := validation.Struct(in)
	if violations == nil {
		violations = validation.Violations{}
	}
	var count int64
	h.DB.Model(&models.Categorie{}).Where("libelle = ?", in.Libelle).Count(&count)
	if count > 0 {
		violations["libelle"] = "Le libellé de la catégorie doit être unique."
	}
	if !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}
	categorie := models.Categorie{Libelle: in.Libelle}
	if err := h.DB.Create(&categorie).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création de la catégorie", nil)
		return
	}
	httpx.Success(w, http.StatusCreated, categorie, "Catégorie créée")
}

// Update: PUT /api/v1/categories/{id}
func (h *CategorieHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "categorie", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var categorie models.Categorie
	if err := h.DB.First(&categorie, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Catégorie non trouvée", nil)
		return
	}
	var in categorieInput
	if !decodeJSON(w, r, &in) {
		return
	}
	violations := validation.Struct(in)
	if violations == nil {
		violations = validation.Violations{}
	}
	var count int64
	h.DB.Model(&models.Categorie{}).Where("libelle = ? AND id <> ?", in.Libelle, id).Count(&count)
	if count > 0 {
		violations["libelle"] = "Le libellé de la catégorie doit être unique."
	}
	if !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}
	categorie.Libelle = in.Libelle
	if err := h.DB.Save(&categorie).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la mise à jour de la catégorie", nil)
		return
	}
	httpx.Success(w, http.StatusOK, categorie, "Catégorie mise à jour")
}

// Destroy: DELETE /api/v1/categories/{id} — refused while articles reference it.
func (h *CategorieHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionDelete, "categorie", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var count int64
	h.DB.Unscoped().Model(&models.Article{}).Where("categorie_id = ?", id).Count(&count)
	if count > 0 {
		httpx.Error(w, http.StatusConflict, "La catégorie est utilisée par des articles", nil)
		return
	}
	res := h.DB.Delete(&models.Categorie{}, id)
	if res.Error != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la suppression de la catégorie", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, http.StatusNotFound, "Catégorie non trouvée", nil)
		return
	}
	httpx.Success(w, http.StatusOK, nil, "Catégorie supprimée")
}
