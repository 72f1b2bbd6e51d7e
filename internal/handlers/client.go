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

type ClientHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[uint]
}

func NewClientHandler(db *gorm.DB, g *gate.Gate[uint]) *ClientHandler {
	return &ClientHandler{DB: db, Gate: g}
}

// List: GET /api/v1/clients?telephone=&sort=&include=user
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionList, "client", nil) {
		return
	}
	limit, offset := paginate(r)
	q := h.DB.Model(&models.Client{})
	if tel := r.URL.Query().Get("telephone"); tel != "" {
		if normalized, ok := validation.NormalizePhone(tel); ok {
			tel = normalized
		}
		q = q.Where("telephone = ?", tel)
	}
	var total int64
	q.Count(&total)
	switch r.URL.Query().Get("sort") {
	case "surnom":
		q = q.Order("surnom")
	case "-surnom":
		q = q.Order("surnom DESC")
	case "-id":
		q = q.Order("id DESC")
	default:
		q = q.Order("id")
	}
	if r.URL.Query().Get("include") == "user" {
		q = q.Preload("User")
	}
	var clients []models.Client
	if err := q.Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec du chargement des clients", nil)
		return
	}
	httpx.Success(w, http.StatusOK, listPayload(clients, total, limit, offset), "Clients récupérés")
}

// Show: GET /api/v1/clients/{id}
func (h *ClientHandler) Show(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionView, "client", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	q := h.DB
	if r.URL.Query().Get("include") == "user" {
		q = q.Preload("User")
	}
	var client models.Client
	if err := q.First(&client, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Client non trouvé", nil)
		return
	}
	httpx.Success(w, http.StatusOK, client, "Client récupéré")
}

type nestedUserInput struct {
	Nom                    string `json:"nom" validate:"required,max=255"`
	Prenom                 string `json:"prenom" validate:"required,max=255"`
	Email                  string `json:"email" validate:"required,email"`
	MotDePasse             string `json:"mot_de_passe" validate:"required,mot_de_passe"`
	MotDePasseConfirmation string `json:"mot_de_passe_confirmation" validate:"required,eqfield=MotDePasse"`
}

type storeClientInput struct {
	Surnom    string           `json:"surnom" validate:"required,max=255"`
	Telephone string           `json:"telephone" validate:"required,telephone_sn"`
	Adresse   string           `json:"adresse"`
	User      *nestedUserInput `json:"user"`
}

// Create: POST /api/v1/clients — optional nested account; one transaction so
// a failed account creation leaves no orphan client.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionCreate, "client", nil) {
		return
	}
	var in storeClientInput
	if !decodeJSON(w, r, &in) {
		return
	}
	violations := validation.Struct(in)
	if violations == nil {
		violations = validation.Violations{}
	}
	if in.User != nil {
		for field, message := range validation.Struct(*in.User) {
			violations["user."+field] = message
		}
	}
	normalized := in.Telephone
	if n, ok := validation.NormalizePhone(in.Telephone); ok {
		normalized = n
	}
	var count int64
	h.DB.Model(&models.Client{}).Where("surnom = ?", in.Surnom).Count(&count)
	if count > 0 {
		violations["surnom"] = "Le surnom du client doit être unique."
	}
	h.DB.Model(&models.Client{}).Where("telephone = ?", normalized).Count(&count)
	if count > 0 {
		violations["telephone"] = "Le téléphone du client doit être unique."
	}
	if in.User != nil {
		h.DB.Model(&models.User{}).Where("email = ?", in.User.Email).Count(&count)
		if count > 0 {
			violations["user.email"] = "L'adresse email est déjà utilisée."
		}
	}
	if !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}

	client := models.Client{Surnom: in.Surnom, Telephone: normalized, Adresse: in.Adresse}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if in.User != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(in.User.MotDePasse), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user := models.User{
				Nom:        in.User.Nom,
				Prenom:     in.User.Prenom,
				Email:      in.User.Email,
				MotDePasse: string(hash),
				Role:       models.RoleClient,
				Etat:       true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			client.UserID = &user.ID
			client.User = &user
		}
		return tx.Create(&client).Error
	})
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création du client", nil)
		return
	}
	httpx.Success(w, http.StatusCreated, client, "Client créé")
}

type updateClientInput struct {
	Surnom    *string `json:"surnom" validate:"omitempty,max=255"`
	Telephone *string `json:"telephone" validate:"omitempty,telephone_sn"`
	Adresse   *string `json:"adresse"`
}

// Update: PUT /api/v1/clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionUpdate, "client", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, id).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Client non trouvé", nil)
		return
	}
	var in updateClientInput
	if !decodeJSON(w, r, &in) {
		return
	}
	violations := validation.Struct(in)
	if violations == nil {
		violations = validation.Violations{}
	}
	updates := map[string]any{}
	if in.Surnom != nil {
		var count int64
		h.DB.Model(&models.Client{}).Where("surnom = ? AND id <> ?", *in.Surnom, id).Count(&count)
		if count > 0 {
			violations["surnom"] = "Le surnom du client doit être unique."
		}
		updates["surnom"] = *in.Surnom
	}
	if in.Telephone != nil {
		normalized := *in.Telephone
		if n, ok := validation.NormalizePhone(*in.Telephone); ok {
			normalized = n
		}
		var count int64
		h.DB.Model(&models.Client{}).Where("telephone = ? AND id <> ?", normalized, id).Count(&count)
		if count > 0 {
			violations["telephone"] = "Le téléphone du client doit être unique."
		}
		updates["telephone"] = normalized
	}
	if in.Adresse != nil {
		updates["adresse"] = *in.Adresse
	}
	if !violations.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", violations)
		return
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&client).Updates(updates).Error; err != nil {
			httpx.Error(w, http.StatusInternalServerError, "Échec de la mise à jour du client", nil)
			return
		}
	}
	httpx.Success(w, http.StatusOK, client, "Client mis à jour")
}

// Destroy: DELETE /api/v1/clients/{id} — refused while the client has debts.
func (h *ClientHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Gate, gate.ActionDelete, "client", nil) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Identifiant invalide", nil)
		return
	}
	var count int64
	h.DB.Unscoped().Model(&models.Dette{}).Where("client_id = ?", id).Count(&count)
	if count > 0 {
		httpx.Error(w, http.StatusConflict, "Le client possède des dettes", nil)
		return
	}
	res := h.DB.Delete(&models.Client{}, id)
	if res.Error != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la suppression du client", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Error(w, http.StatusNotFound, "Client non trouvé", nil)
		return
	}
	httpx.Success(w, http.StatusOK, nil, "Client supprimé")
}
