package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/internal/services"
)

func newArticleHandler(t *testing.T) (*ArticleHandler, *models.User) {
	t.Helper()
	db := setupTestDB(t)
	admin := seedUser(t, db, "admin@test", models.RoleAdmin, "Passer@1")
	return NewArticleHandler(db, testGate(db), services.NewStockService(db)), &admin
}

func TestArticleCreateAndList(t *testing.T) {
	h, admin := newArticleHandler(t)
	cat := seedCategorie(t, h.DB, "Alimentation")

	w := httptest.NewRecorder()
	h.Create(w, jsonReq(http.MethodPost, "/api/v1/articles",
		`{"libele":"Riz parfumé","prix_unitaire":500,"quantite":20,"prix_details":600,"categorie_id":`+itoa(cat.ID)+`}`, admin.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Status != "SUCCESS" {
		t.Fatalf("expected SUCCESS got %s", env.Status)
	}

	w2 := httptest.NewRecorder()
	h.List(w2, jsonReq(http.MethodGet, "/api/v1/articles", "", admin.ID))
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w2.Code)
	}
	var payload struct {
		Items []models.Article `json:"items"`
		Total int64            `json:"total"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w2).Data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Total != 1 || len(payload.Items) != 1 {
		t.Fatalf("expected one article, got total=%d items=%d", payload.Total, len(payload.Items))
	}
	if payload.Items[0].Libele != "Riz parfumé" {
		t.Fatalf("unexpected libele %q", payload.Items[0].Libele)
	}
}

func TestArticleCreateDuplicateLibele(t *testing.T) {
	h, admin := newArticleHandler(t)
	cat := seedCategorie(t, h.DB, "Alimentation")
	seedArticle(t, h.DB, "Sucre", 5, cat.ID)

	w := httptest.NewRecorder()
	h.Create(w, jsonReq(http.MethodPost, "/api/v1/articles",
		`{"libele":"Sucre","prix_unitaire":300,"quantite":2,"prix_details":350,"categorie_id":`+itoa(cat.ID)+`}`, admin.ID))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", w.Code)
	}
	if decodeEnvelope(t, w).Status != "ERROR" {
		t.Fatalf("expected ERROR envelope")
	}
}

func TestArticleStockBatch(t *testing.T) {
	h, admin := newArticleHandler(t)
	cat := seedCategorie(t, h.DB, "Alimentation")
	a1 := seedArticle(t, h.DB, "Riz", 10, cat.ID)
	a2 := seedArticle(t, h.DB, "Huile", 3, cat.ID)

	body := `{"articles":[` +
		`{"id":` + itoa(a1.ID) + `,"quantite":5},` +
		`{"id":` + itoa(a2.ID) + `,"quantite":-10},` +
		`{"id":9999,"quantite":1}]}`
	w := httptest.NewRecorder()
	h.UpdateStock(w, jsonReq(http.MethodPost, "/api/v1/articles/stock", body, admin.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	var result services.StockResult
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.SuccessfulUpdates) != 1 || len(result.FailedUpdates) != 2 {
		t.Fatalf("expected 1 success / 2 failures, got %d / %d",
			len(result.SuccessfulUpdates), len(result.FailedUpdates))
	}
	if result.SuccessfulUpdates[0].NewQuantity != 15 {
		t.Fatalf("expected newQuantity 15, got %d", result.SuccessfulUpdates[0].NewQuantity)
	}

	// The valid line committed even though siblings failed.
	var stored models.Article
	if err := h.DB.First(&stored, a1.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Quantite != 15 {
		t.Fatalf("expected stored quantity 15, got %d", stored.Quantite)
	}
}

func TestArticleSoftDeleteAndRestore(t *testing.T) {
	h, admin := newArticleHandler(t)
	cat := seedCategorie(t, h.DB, "Alimentation")
	a := seedArticle(t, h.DB, "Café", 4, cat.ID)

	req := jsonReq(http.MethodDelete, "/api/v1/articles/"+itoa(a.ID), "", admin.ID)
	req.SetPathValue("id", itoa(a.ID))
	w := httptest.NewRecorder()
	h.Destroy(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200 got %d", w.Code)
	}

	// Gone from the live listing but visible in the trash.
	var count int64
	h.DB.Model(&models.Article{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected 0 live articles, got %d", count)
	}
	w2 := httptest.NewRecorder()
	h.Trashed(w2, jsonReq(http.MethodGet, "/api/v1/articles/trashed", "", admin.ID))
	var payload struct {
		Items []models.Article `json:"items"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w2).Data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 1 {
		t.Fatalf("expected 1 trashed article, got %d", len(payload.Items))
	}

	req3 := jsonReq(http.MethodPost, "/api/v1/articles/"+itoa(a.ID)+"/restore", "", admin.ID)
	req3.SetPathValue("id", itoa(a.ID))
	w3 := httptest.NewRecorder()
	h.Restore(w3, req3)
	if w3.Code != http.StatusOK {
		t.Fatalf("restore: expected 200 got %d", w3.Code)
	}
	h.DB.Model(&models.Article{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected article restored, got %d live rows", count)
	}
}

func TestArticleStockSingleNegative(t *testing.T) {
	h, admin := newArticleHandler(t)
	cat := seedCategorie(t, h.DB, "Alimentation")
	a := seedArticle(t, h.DB, "Thé", 2, cat.ID)

	req := jsonReq(http.MethodPatch, "/api/v1/articles/"+itoa(a.ID), `{"quantite":-5}`, admin.ID)
	req.SetPathValue("id", itoa(a.ID))
	w := httptest.NewRecorder()
	h.UpdateStockSingle(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", w.Code)
	}
}

func TestArticleStockSingleZeroDelta(t *testing.T) {
	h, admin := newArticleHandler(t)
	cat := seedCategorie(t, h.DB, "Alimentation")
	a := seedArticle(t, h.DB, "Thé", 2, cat.ID)

	req := jsonReq(http.MethodPatch, "/api/v1/articles/"+itoa(a.ID), `{"quantite":0}`, admin.ID)
	req.SetPathValue("id", itoa(a.ID))
	w := httptest.NewRecorder()
	h.UpdateStockSingle(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("zero delta should be a valid no-op, got %d (%s)", w.Code, w.Body.String())
	}
	var stored models.Article
	h.DB.First(&stored, a.ID)
	if stored.Quantite != 2 {
		t.Fatalf("expected quantity unchanged at 2, got %d", stored.Quantite)
	}
}

func TestArticleListRequiresPermission(t *testing.T) {
	h, _ := newArticleHandler(t)

	// No authenticated user in context.
	w := httptest.NewRecorder()
	h.List(w, jsonReq(http.MethodGet, "/api/v1/articles", "", 0))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
}
