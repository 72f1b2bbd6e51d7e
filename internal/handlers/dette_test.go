package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/internal/services"
)

func newDetteHandlers(t *testing.T) (*DetteHandler, *PaiementHandler, *models.User) {
	t.Helper()
	db := setupTestDB(t)
	admin := seedUser(t, db, "admin@test", models.RoleAdmin, "Passer@1")
	svc := services.NewDetteService(db)
	g := testGate(db)
	return NewDetteHandler(db, g, svc), NewPaiementHandler(db, g, svc), &admin
}

func TestDetteCreateWithLignes(t *testing.T) {
	dh, _, admin := newDetteHandlers(t)
	cat := seedCategorie(t, dh.DB, "Alimentation")
	a := seedArticle(t, dh.DB, "Riz", 10, cat.ID)
	cl := seedClient(t, dh.DB, "Modou", "771234567")

	body := `{"montant_total":1000,"date_echeance":"2026-12-31T00:00:00Z","client_id":` + itoa(cl.ID) +
		`,"articles":[{"id":` + itoa(a.ID) + `,"quantite":2,"prix_unitaire":500}]}`
	w := httptest.NewRecorder()
	dh.Create(w, jsonReq(http.MethodPost, "/api/v1/dettes", body, admin.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	var dette models.Dette
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &dette); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dette.Articles) != 1 || dette.Articles[0].PrixUnitaire != 500 {
		t.Fatalf("expected one captured line at 500, got %+v", dette.Articles)
	}
	if dette.Statut != models.StatutEnCours {
		t.Fatalf("expected statut en_cours, got %s", dette.Statut)
	}
}

func TestDetteCreateHonorsInitialStatut(t *testing.T) {
	dh, _, admin := newDetteHandlers(t)
	cat := seedCategorie(t, dh.DB, "Alimentation")
	a := seedArticle(t, dh.DB, "Riz", 10, cat.ID)
	cl := seedClient(t, dh.DB, "Modou", "771234567")

	body := `{"montant_total":1000,"date_echeance":"2026-12-31T00:00:00Z","statut":"en_retard","client_id":` + itoa(cl.ID) +
		`,"articles":[{"id":` + itoa(a.ID) + `,"quantite":2,"prix_unitaire":500}]}`
	w := httptest.NewRecorder()
	dh.Create(w, jsonReq(http.MethodPost, "/api/v1/dettes", body, admin.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	var dette models.Dette
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &dette); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dette.Statut != models.StatutEnRetard {
		t.Fatalf("expected en_retard, got %s", dette.Statut)
	}
	var stored models.Dette
	dh.DB.First(&stored, dette.ID)
	if stored.Statut != models.StatutEnRetard {
		t.Fatalf("expected stored statut en_retard, got %s", stored.Statut)
	}
}

func TestDetteCreateRejectsUnknownStatut(t *testing.T) {
	dh, _, admin := newDetteHandlers(t)
	cat := seedCategorie(t, dh.DB, "Alimentation")
	a := seedArticle(t, dh.DB, "Riz", 10, cat.ID)
	cl := seedClient(t, dh.DB, "Modou", "771234567")

	body := `{"montant_total":1000,"date_echeance":"2026-12-31T00:00:00Z","statut":"annulee","client_id":` + itoa(cl.ID) +
		`,"articles":[{"id":` + itoa(a.ID) + `,"quantite":2,"prix_unitaire":500}]}`
	w := httptest.NewRecorder()
	dh.Create(w, jsonReq(http.MethodPost, "/api/v1/dettes", body, admin.ID))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", w.Code)
	}
}

func TestDetteCreateUnknownClient(t *testing.T) {
	dh, _, admin := newDetteHandlers(t)
	cat := seedCategorie(t, dh.DB, "Alimentation")
	a := seedArticle(t, dh.DB, "Riz", 10, cat.ID)

	body := `{"montant_total":1000,"date_echeance":"2026-12-31T00:00:00Z","client_id":999,"articles":[{"id":` + itoa(a.ID) + `,"quantite":1,"prix_unitaire":500}]}`
	w := httptest.NewRecorder()
	dh.Create(w, jsonReq(http.MethodPost, "/api/v1/dettes", body, admin.ID))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", w.Code)
	}
}

func TestPaiementFlowToPayee(t *testing.T) {
	dh, ph, admin := newDetteHandlers(t)
	cat := seedCategorie(t, dh.DB, "Alimentation")
	a := seedArticle(t, dh.DB, "Riz", 10, cat.ID)
	cl := seedClient(t, dh.DB, "Modou", "771234567")

	body := `{"montant_total":100,"date_echeance":"2026-12-31T00:00:00Z","client_id":` + itoa(cl.ID) +
		`,"articles":[{"id":` + itoa(a.ID) + `,"quantite":1,"prix_unitaire":100}]}`
	w := httptest.NewRecorder()
	dh.Create(w, jsonReq(http.MethodPost, "/api/v1/dettes", body, admin.ID))
	var dette models.Dette
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &dette); err != nil {
		t.Fatalf("decode: %v", err)
	}

	pay := func(montant string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		ph.Create(rec, jsonReq(http.MethodPost, "/api/v1/paiements",
			`{"dette_id":`+itoa(dette.ID)+`,"montant":`+montant+`,"mode_paiement":"espece"}`, admin.ID))
		return rec
	}

	if rec := pay("60"); rec.Code != http.StatusCreated {
		t.Fatalf("first payment: expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	var stored models.Dette
	dh.DB.First(&stored, dette.ID)
	if stored.Statut != models.StatutEnCours {
		t.Fatalf("after partial payment expected en_cours, got %s", stored.Statut)
	}

	// Over the remaining amount: rejected.
	if rec := pay("50"); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overpayment: expected 422 got %d", rec.Code)
	}

	if rec := pay("40"); rec.Code != http.StatusCreated {
		t.Fatalf("final payment: expected 201 got %d", rec.Code)
	}
	dh.DB.First(&stored, dette.ID)
	if stored.Statut != models.StatutPayee {
		t.Fatalf("expected payee, got %s", stored.Statut)
	}
}

func TestDetteShowDerivedAmounts(t *testing.T) {
	dh, ph, admin := newDetteHandlers(t)
	cat := seedCategorie(t, dh.DB, "Alimentation")
	a := seedArticle(t, dh.DB, "Riz", 10, cat.ID)
	cl := seedClient(t, dh.DB, "Modou", "771234567")

	w := httptest.NewRecorder()
	dh.Create(w, jsonReq(http.MethodPost, "/api/v1/dettes",
		`{"montant_total":100,"date_echeance":"2026-12-31T00:00:00Z","client_id":`+itoa(cl.ID)+
			`,"articles":[{"id":`+itoa(a.ID)+`,"quantite":1,"prix_unitaire":100}]}`, admin.ID))
	var dette models.Dette
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &dette); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec := httptest.NewRecorder()
	ph.Create(rec, jsonReq(http.MethodPost, "/api/v1/paiements",
		`{"dette_id":`+itoa(dette.ID)+`,"montant":30,"mode_paiement":"wave"}`, admin.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: expected 201 got %d", rec.Code)
	}

	req := jsonReq(http.MethodGet, "/api/v1/dettes/"+itoa(dette.ID), "", admin.ID)
	req.SetPathValue("id", itoa(dette.ID))
	w2 := httptest.NewRecorder()
	dh.Show(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("show: expected 200 got %d", w2.Code)
	}
	var view struct {
		MontantPaye    float64 `json:"montant_paye"`
		MontantRestant float64 `json:"montant_restant"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w2).Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.MontantPaye != 30 || view.MontantRestant != 70 {
		t.Fatalf("expected 30/70, got %v/%v", view.MontantPaye, view.MontantRestant)
	}
}

func TestClientOwnershipOnDette(t *testing.T) {
	dh, _, admin := newDetteHandlers(t)
	cat := seedCategorie(t, dh.DB, "Alimentation")
	a := seedArticle(t, dh.DB, "Riz", 10, cat.ID)

	owner := seedUser(t, dh.DB, "owner@test", models.RoleClient, "Passer@1")
	other := seedUser(t, dh.DB, "other@test", models.RoleClient, "Passer@1")
	cl := models.Client{Surnom: "Modou", Telephone: "771234567", UserID: &owner.ID}
	if err := dh.DB.Create(&cl).Error; err != nil {
		t.Fatalf("client: %v", err)
	}

	w := httptest.NewRecorder()
	dh.Create(w, jsonReq(http.MethodPost, "/api/v1/dettes",
		`{"montant_total":100,"date_echeance":"2026-12-31T00:00:00Z","client_id":`+itoa(cl.ID)+
			`,"articles":[{"id":`+itoa(a.ID)+`,"quantite":1,"prix_unitaire":100}]}`, admin.ID))
	var dette models.Dette
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &dette); err != nil {
		t.Fatalf("decode: %v", err)
	}

	show := func(uid uint) int {
		req := jsonReq(http.MethodGet, "/api/v1/dettes/"+itoa(dette.ID), "", uid)
		req.SetPathValue("id", itoa(dette.ID))
		rec := httptest.NewRecorder()
		dh.Show(rec, req)
		return rec.Code
	}
	if code := show(owner.ID); code != http.StatusOK {
		t.Fatalf("owner should see own dette, got %d", code)
	}
	if code := show(other.ID); code != http.StatusForbidden {
		t.Fatalf("other client should be denied, got %d", code)
	}
}
