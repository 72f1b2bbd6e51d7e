package handlers

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/auth"
	"github.com/diewo77/gestion-boutique/httpx"
	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/validation"
)

const invalidCredentials = "Les informations d'identification sont incorrectes"

// AuthHandler issues, refreshes, and revokes tokens.
type AuthHandler struct {
	DB         *gorm.DB
	Issuer     *auth.TokenIssuer
	RefreshTTL time.Duration
}

func NewAuthHandler(db *gorm.DB, issuer *auth.TokenIssuer, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{DB: db, Issuer: issuer, RefreshTTL: refreshTTL}
}

type loginInput struct {
	Email      string `json:"email" validate:"required,email"`
	MotDePasse string `json:"mot_de_passe" validate:"required"`
}

// Login: POST /api/v1/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	var user models.User
	if err := h.DB.Where("email = ?", in.Email).First(&user).Error; err != nil {
		httpx.Error(w, http.StatusUnauthorized, invalidCredentials, nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.MotDePasse), []byte(in.MotDePasse)) != nil {
		httpx.Error(w, http.StatusUnauthorized, invalidCredentials, nil)
		return
	}
	if !user.Etat {
		httpx.Error(w, http.StatusUnauthorized, "Compte bloqué", nil)
		return
	}
	access, err := h.Issuer.AccessToken(user.ID, user.Role)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création du jeton", nil)
		return
	}
	refresh, digest, err := auth.NewRefreshToken()
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création du jeton", nil)
		return
	}
	row := models.RefreshToken{UserID: user.ID, TokenHash: digest, ExpiresAt: time.Now().Add(h.RefreshTTL)}
	if err := h.DB.Create(&row).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création du jeton", nil)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    int(h.Issuer.AccessTTL().Seconds()),
	}, "Connexion réussie")
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh: POST /api/v1/refresh — stateless exchange of a refresh token for
// a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if v := validation.Struct(in); !v.Empty() {
		httpx.Error(w, http.StatusUnprocessableEntity, "Échec de la validation", v)
		return
	}
	var row models.RefreshToken
	err := h.DB.Where("token_hash = ?", auth.HashRefreshToken(in.RefreshToken)).First(&row).Error
	if err != nil || time.Now().After(row.ExpiresAt) {
		httpx.Error(w, http.StatusUnauthorized, "Jeton de rafraîchissement invalide", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, row.UserID).Error; err != nil || !user.Etat {
		httpx.Error(w, http.StatusUnauthorized, "Jeton de rafraîchissement invalide", nil)
		return
	}
	access, err := h.Issuer.AccessToken(user.ID, user.Role)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la création du jeton", nil)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   int(h.Issuer.AccessTTL().Seconds()),
	}, "Jeton renouvelé")
}

// Logout: POST /api/v1/logout — revokes every refresh token of the caller.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.DB.Where("user_id = ?", uid).Delete(&models.RefreshToken{}).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Échec de la déconnexion", nil)
		return
	}
	httpx.Success(w, http.StatusOK, nil, "Déconnexion réussie")
}

// Me: GET /api/v1/user — the authenticated principal.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.Error(w, http.StatusNotFound, "Utilisateur non trouvé", nil)
		return
	}
	httpx.Success(w, http.StatusOK, user, "Utilisateur connecté")
}
