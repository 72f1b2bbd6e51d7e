package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/gate"
	"github.com/diewo77/gestion-boutique/httpx"
	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/validation"
)

type UserHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[uint]
}

func NewUserHandler(db *gorm.DB, g *gate.Gate[uint]) *UserHandler {
	return &UserHandler{DB: db, Gate: g}
}

// List: GET /api/v1/users?role=&etat=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "user", nil) {
		return
	}
	limit, offset := paginate(r)
	q := h.DB.Model(&models.User{})
	if role := r.URL.Query().Get("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	switch r.URL.Query().Get("etat") {
	case "actif":
		q = q.Where("etat = ?", true)
	case "bloque":
		q = q.Where("etat = ?", false)
	}
	var total int64
	q.Count(&total)
	var users []models.User
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des utilisateurs", nil)
		return
	}
	httpx.Success(w, http.StatusOK, listPayload(users, total, limit, offset), "Utilisateurs récupérés")
}

// Show: GET /api/v1/users/{id}
func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionView, "user", &user) {
		return
	}
	httpx.Success(w, http.StatusOK, user, "Utilisateur récupéré")
}

type registerInput struct {
	Nom                    string `json:"nom" validate:"required,max=255"`
	Prenom                 string `json:"prenom" validate:"required,max=255"`
	Email                  string `json:"email" validate:"required,email"`
	MotDePasse             string `json:"mot_de_passe" validate:"required,mot_de_passe"`
	MotDePasseConfirmation string `json:"mot_de_passe_confirmation" validate:"required,eqfield=MotDePasse"`
	Role                   string `json:"role" validate:"required,oneof=ADMIN BOUTIQUIER CLIENT"`
}

// Create: POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionCreate, "user", nil) {
		return
	}
	var in registerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	violations := validation.Struct(in)
	if violations == nil {
		violations = validation.Violations{}
	}
	var count int64
	h.DB.Model(&models.User{}).Where("email = ?", in.Email).Count(&count)
	if count > 0 {
		violations["email"] = "L'adresse email est déjà utilisée."
	}
	if !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.MotDePasse), bcrypt.DefaultCost)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création de l'utilisateur", nil)
		return
	}
	user := models.User{
		Nom:        in.Nom,
		Prenom:     in.Prenom,
		Email:      in.Email,
		MotDePasse: string(hash),
		Role:       in.Role,
		Etat:       true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création de l'utilisateur", nil)
		return
	}
	httpx.Success(w, http.StatusCreated, user, "Utilisateur créé")
}

type updateUserInput struct {
	Nom        *string `json:"nom" validate:"omitempty,max=255"`
	Prenom     *string `json:"prenom" validate:"omitempty,max=255"`
	Email      *string `json:"email" validate:"omitempty,email"`
	MotDePasse *string `json:"mot_de_passe" validate:"omitempty,mot_de_passe"`
	Etat       *bool   `json:"etat"`
}

// Update: PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "user", &user) {
		return
	}
	var in updateUserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	violations := validation.Struct(in)
	if violations == nil {
		violations = validation.Violations{}
	}
	updates := map[string]any{}
	if in.Nom != nil {
		updates["nom"] = *in.Nom
	}
	if in.Prenom != nil {
		updates["prenom"] = *in.Prenom
	}
	if in.Email != nil {
		var count int64
		h.DB.Model(&models.User{}).Where("email = ? AND id <> ?", *in.Email, id).Count(&count)
		if count > 0 {
			violations["email"] = "L'adresse email est déjà utilisée."
		}
		updates["email"] = *in.Email
	}
	if in.MotDePasse != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.MotDePasse), bcrypt.DefaultCost)
		if err != nil {
			httpx.Error(w, http.StatusInternalServerError, "Échec de la mise à jour de l'utilisateur", nil)
			return
		}
		updates["mot_de_passe"] = string(hash)
	}
	if in.Etat != nil {
		updates["etat"] = *in.Etat
	}
	if !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
			httpx.Error(w, http.StatusInternalServerError, "Échec de la mise à jour de l'utilisateur", nil)
			return
		}
	}
	httpx.Success(w, http.StatusOK, user, "Utilisateur mis à jour")
}

// Block: PATCH /api/v1/users/{id}/bloquer — flips etat to false so every
// subsequent token check rejects the account.
func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionDelete, "user", &user) {
		return
	}
	if err := h.DB.Model(&user).Update("etat", false).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du blocage de l'utilisateur", nil)
		return
	}
	h.DB.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{})
	httpx.Success(w, http.StatusOK, user, "Utilisateur bloqué")
}

// Destroy: DELETE /api/v1/users/{id}
func (h *UserHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
		return
	}
	if !authorize(w, r, h.Gate, gate.ActionDelete, "user", &user) {
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Client{}).Where("user_id = ?", user.ID).
			Update("user_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la suppression de l'utilisateur", nil)
		return
	}
	httpx.Success(w, http.StatusOK, nil, "Utilisateur supprimé")
}
