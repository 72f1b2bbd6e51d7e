package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/auth"
	"github.com/diewo77/gestion-boutique/gate"
	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/internal/policy"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Categorie{},
		&models.Promo{}, &models.Article{}, &models.Client{}, &models.Dette{},
		&models.ArticleDette{}, &models.Paiement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, role, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{Nom: "Test", Prenom: "User", Email: email, MotDePasse: string(hash), Role: role, Etat: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func testGate(db *gorm.DB) *gate.Gate[uint] {
	return policy.NewGate(db)
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// jsonReq builds an authenticated JSON request for a direct handler call.
func jsonReq(method, target string, body string, userID uint) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, w.Body.String())
	}
	return env
}

func seedCategorie(t *testing.T, db *gorm.DB, libelle string) models.Categorie {
	t.Helper()
	c := models.Categorie{Libelle: libelle}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed categorie: %v", err)
	}
	return c
}

func seedArticle(t *testing.T, db *gorm.DB, libele string, quantite int, categorieID uint) models.Article {
	t.Helper()
	a := models.Article{Libele: libele, PrixUnitaire: 100, Quantite: quantite, PrixDetails: 120, CategorieID: categorieID}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seed article: %v", err)
	}
	return a
}

func seedClient(t *testing.T, db *gorm.DB, surnom, telephone string) models.Client {
	t.Helper()
	c := models.Client{Surnom: surnom, Telephone: telephone, Adresse: "Dakar"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}
