package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/internal/models"
)

func setupDetteTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Categorie{}, &models.Article{}, &models.User{}, &models.Client{},
		&models.Dette{}, &models.ArticleDette{}, &models.Paiement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDetteFixtures(t *testing.T, db *gorm.DB) (models.Client, models.Article, models.Article) {
	t.Helper()
	cat := models.Categorie{Libelle: "alimentation"}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("categorie: %v", err)
	}
	a := models.Article{Libele: "riz 25kg", PrixUnitaire: 10, Quantite: 50, CategorieID: cat.ID}
	b := models.Article{Libele: "huile 5L", PrixUnitaire: 5, Quantite: 30, CategorieID: cat.ID}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("article a: %v", err)
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("article b: %v", err)
	}
	client := models.Client{Surnom: "ASTAR", Telephone: "771234567", Adresse: "PLATEAU"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return client, a, b
}

func echeance() time.Time { return time.Now().AddDate(0, 1, 0) }

func TestCreateDetteCapturesLines(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	client, a, b := seedDetteFixtures(t, db)

	dette, err := svc.Create(context.Background(), CreateDette{
		MontantTotal: 25,
		DateEcheance: echeance(),
		Statut:       models.StatutEnCours,
		ClientID:     client.ID,
		Articles: []DetteLigne{
			{ArticleID: a.ID, Quantite: 2, PrixUnitaire: 10},
			{ArticleID: b.ID, Quantite: 1, PrixUnitaire: 5},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dette.ID == 0 || len(dette.Articles) != 2 {
		t.Fatalf("unexpected dette: %#v", dette)
	}

	// A later article price change must not alter the captured lines.
	if err := db.Model(&models.Article{}).Where("id = ?", a.ID).Update("prix_unitaire", 99).Error; err != nil {
		t.Fatalf("update price: %v", err)
	}
	var lignes []models.ArticleDette
	if err := db.Where("dette_id = ?", dette.ID).Order("article_id").Find(&lignes).Error; err != nil {
		t.Fatalf("load lines: %v", err)
	}
	if lignes[0].PrixUnitaire != 10 || lignes[0].Quantite != 2 {
		t.Errorf("line a = %+v, want qty 2 @ 10", lignes[0])
	}
	if lignes[1].PrixUnitaire != 5 || lignes[1].Quantite != 1 {
		t.Errorf("line b = %+v, want qty 1 @ 5", lignes[1])
	}
}

func TestCreateDetteUnknownClient(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	_, a, _ := seedDetteFixtures(t, db)

	_, err := svc.Create(context.Background(), CreateDette{
		MontantTotal: 10,
		DateEcheance: echeance(),
		ClientID:     9999,
		Articles:     []DetteLigne{{ArticleID: a.ID, Quantite: 1, PrixUnitaire: 10}},
	})
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestCreateDetteUnknownArticleRollsBack(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	client, a, _ := seedDetteFixtures(t, db)

	_, err := svc.Create(context.Background(), CreateDette{
		MontantTotal: 10,
		DateEcheance: echeance(),
		ClientID:     client.ID,
		Articles: []DetteLigne{
			{ArticleID: a.ID, Quantite: 1, PrixUnitaire: 10},
			{ArticleID: 9999, Quantite: 1, PrixUnitaire: 1},
		},
	})
	if !errors.Is(err, ErrArticleNotFound) {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
	var count int64
	db.Model(&models.Dette{}).Count(&count)
	if count != 0 {
		t.Errorf("dette persisted despite rollback, count=%d", count)
	}
}

func TestMontantPayeSumsPaiements(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	client, a, _ := seedDetteFixtures(t, db)

	dette, err := svc.Create(context.Background(), CreateDette{
		MontantTotal: 100,
		DateEcheance: echeance(),
		ClientID:     client.ID,
		Articles:     []DetteLigne{{ArticleID: a.ID, Quantite: 10, PrixUnitaire: 10}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	paye, err := svc.MontantPaye(context.Background(), dette.ID)
	if err != nil || paye != 0 {
		t.Fatalf("MontantPaye = (%v, %v), want (0, nil)", paye, err)
	}

	for _, montant := range []float64{30, 25.5} {
		if _, err := svc.RecordPaiement(context.Background(), RecordPaiement{
			DetteID: dette.ID, Montant: montant, DatePaiement: time.Now(), ModePaiement: "espèces",
		}); err != nil {
			t.Fatalf("paiement %v: %v", montant, err)
		}
	}
	paye, err = svc.MontantPaye(context.Background(), dette.ID)
	if err != nil || paye != 55.5 {
		t.Fatalf("MontantPaye = (%v, %v), want (55.5, nil)", paye, err)
	}
	restant, err := svc.MontantRestant(context.Background(), dette.ID)
	if err != nil || restant != 44.5 {
		t.Fatalf("MontantRestant = (%v, %v), want (44.5, nil)", restant, err)
	}
}

func TestRecordPaiementTransitionsToPayee(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	client, a, _ := seedDetteFixtures(t, db)

	dette, err := svc.Create(context.Background(), CreateDette{
		MontantTotal: 100,
		DateEcheance: echeance(),
		Statut:       models.StatutEnCours,
		ClientID:     client.ID,
		Articles:     []DetteLigne{{ArticleID: a.ID, Quantite: 10, PrixUnitaire: 10}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.RecordPaiement(context.Background(), RecordPaiement{
		DetteID: dette.ID, Montant: 60, DatePaiement: time.Now(), ModePaiement: "virement",
	}); err != nil {
		t.Fatalf("paiement 60: %v", err)
	}
	var loaded models.Dette
	db.First(&loaded, dette.ID)
	if loaded.Statut != models.StatutEnCours {
		t.Fatalf("statut after partial payment = %q, want en_cours", loaded.Statut)
	}

	if _, err := svc.RecordPaiement(context.Background(), RecordPaiement{
		DetteID: dette.ID, Montant: 40, DatePaiement: time.Now(), ModePaiement: "espèces",
	}); err != nil {
		t.Fatalf("paiement 40: %v", err)
	}
	db.First(&loaded, dette.ID)
	if loaded.Statut != models.StatutPayee {
		t.Fatalf("statut after full payment = %q, want payee", loaded.Statut)
	}
}

func TestRecordPaiementRejectsOverpayment(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	client, a, _ := seedDetteFixtures(t, db)

	dette, err := svc.Create(context.Background(), CreateDette{
		MontantTotal: 100,
		DateEcheance: echeance(),
		ClientID:     client.ID,
		Articles:     []DetteLigne{{ArticleID: a.ID, Quantite: 10, PrixUnitaire: 10}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.RecordPaiement(context.Background(), RecordPaiement{
		DetteID: dette.ID, Montant: 60, DatePaiement: time.Now(), ModePaiement: "espèces",
	}); err != nil {
		t.Fatalf("paiement 60: %v", err)
	}
	if _, err := svc.RecordPaiement(context.Background(), RecordPaiement{
		DetteID: dette.ID, Montant: 50, DatePaiement: time.Now(), ModePaiement: "espèces",
	}); !errors.Is(err, ErrMontantExcessif) {
		t.Fatalf("expected ErrMontantExcessif, got %v", err)
	}
	paye, _ := svc.MontantPaye(context.Background(), dette.ID)
	if paye != 60 {
		t.Errorf("MontantPaye = %v after rejected payment, want 60", paye)
	}
}

func TestRecordPaiementUnknownDette(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	seedDetteFixtures(t, db)

	_, err := svc.RecordPaiement(context.Background(), RecordPaiement{
		DetteID: 9999, Montant: 10, DatePaiement: time.Now(), ModePaiement: "espèces",
	})
	if !errors.Is(err, ErrDetteNotFound) {
		t.Fatalf("expected ErrDetteNotFound, got %v", err)
	}
}

func TestDeletePaiementReopensDette(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	client, a, _ := seedDetteFixtures(t, db)

	dette, err := svc.Create(context.Background(), CreateDette{
		MontantTotal: 100,
		DateEcheance: echeance(),
		ClientID:     client.ID,
		Articles:     []DetteLigne{{ArticleID: a.ID, Quantite: 10, PrixUnitaire: 10}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	paiement, err := svc.RecordPaiement(context.Background(), RecordPaiement{
		DetteID: dette.ID, Montant: 100, DatePaiement: time.Now(), ModePaiement: "virement",
	})
	if err != nil {
		t.Fatalf("paiement: %v", err)
	}
	var loaded models.Dette
	db.First(&loaded, dette.ID)
	if loaded.Statut != models.StatutPayee {
		t.Fatalf("statut = %q, want payee", loaded.Statut)
	}

	if err := svc.DeletePaiement(context.Background(), paiement.ID); err != nil {
		t.Fatalf("delete paiement: %v", err)
	}
	db.First(&loaded, dette.ID)
	if loaded.Statut != models.StatutEnCours {
		t.Fatalf("statut after delete = %q, want en_cours", loaded.Statut)
	}
}

func TestUpdatePaiementRecomputesStatut(t *testing.T) {
	db := setupDetteTestDB(t)
	svc := NewDetteService(db)
	client, a, _ := seedDetteFixtures(t, db)

	dette, err := svc.Create(context.Background(), CreateDette{
		MontantTotal: 100,
		DateEcheance: echeance(),
		ClientID:     client.ID,
		Articles:     []DetteLigne{{ArticleID: a.ID, Quantite: 10, PrixUnitaire: 10}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	paiement, err := svc.RecordPaiement(context.Background(), RecordPaiement{
		DetteID: dette.ID, Montant: 100, DatePaiement: time.Now(), ModePaiement: "carte",
	})
	if err != nil {
		t.Fatalf("paiement: %v", err)
	}

	reduced := 40.0
	if _, err := svc.UpdatePaiement(context.Background(), paiement.ID, UpdatePaiement{Montant: &reduced}); err != nil {
		t.Fatalf("update paiement: %v", err)
	}
	var loaded models.Dette
	db.First(&loaded, dette.ID)
	if loaded.Statut != models.StatutEnCours {
		t.Fatalf("statut after reduction = %q, want en_cours", loaded.Statut)
	}

	excessive := 150.0
	if _, err := svc.UpdatePaiement(context.Background(), paiement.ID, UpdatePaiement{Montant: &excessive}); !errors.Is(err, ErrMontantExcessif) {
		t.Fatalf("expected ErrMontantExcessif, got %v", err)
	}
}
