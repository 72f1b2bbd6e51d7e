package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-boutique/auth"
	"github.com/diewo77/gestion-boutique/httpx"
	"github.com/diewo77/gestion-boutique/internal/handlers"
	"github.com/diewo77/gestion-boutique/internal/models"
	"github.com/diewo77/gestion-boutique/internal/policy"
	"github.com/diewo77/gestion-boutique/internal/services"
)

// Options carries the pieces the router needs beyond the database handle.
type Options struct {
	Issuer     *auth.TokenIssuer
	RefreshTTL time.Duration
	Logger     zerolog.Logger
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, opts Options) http.Handler {
	mux := http.NewServeMux()

	g := policy.NewGate(db)
	stockSvc := services.NewStockService(db)
	detteSvc := services.NewDetteService(db)

	authMW := auth.NewMiddleware(opts.Issuer, func(ctx context.Context, uid uint) bool {
		var user models.User
		if err := db.WithContext(ctx).Select("etat").First(&user, uid).Error; err != nil {
			return false
		}
		return user.Etat
	})

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.Success(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.Error(w, http.StatusServiceUnavailable, "degraded", nil)
			return
		}
		httpx.Success(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})

	// --- Public auth endpoints ---
	ah := handlers.NewAuthHandler(db, opts.Issuer, opts.RefreshTTL)
	mux.HandleFunc("POST /api/v1/login", ah.Login)
	mux.HandleFunc("POST /api/v1/refresh", ah.Refresh)

	// Protected routes share one wrapper.
	protect := func(h http.HandlerFunc) http.Handler {
		return authMW.Require(h)
	}

	mux.Handle("POST /api/v1/logout", protect(ah.Logout))
	mux.Handle("GET /api/v1/user", protect(ah.Me))

	// --- Articles ---
	arth := handlers.NewArticleHandler(db, g, stockSvc)
	mux.Handle("GET /api/v1/articles", protect(arth.List))
	mux.Handle("POST /api/v1/articles", protect(arth.Create))
	mux.Handle("GET /api/v1/articles/trashed", protect(arth.Trashed))
	mux.Handle("POST /api/v1/articles/libelle", protect(arth.SearchByLibelle))
	mux.Handle("POST /api/v1/articles/stock", protect(arth.UpdateStock))
	mux.Handle("GET /api/v1/articles/{id}", protect(arth.Show))
	mux.Handle("PUT /api/v1/articles/{id}", protect(arth.Update))
	mux.Handle("PATCH /api/v1/articles/{id}", protect(arth.UpdateStockSingle))
	mux.Handle("DELETE /api/v1/articles/{id}", protect(arth.Destroy))
	mux.Handle("POST /api/v1/articles/{id}/restore", protect(arth.Restore))
	mux.Handle("DELETE /api/v1/articles/{id}/force", protect(arth.ForceDelete))

	// --- Categories ---
	ch := handlers.NewCategorieHandler(db, g)
	mux.Handle("GET /api/v1/categories", protect(ch.List))
	mux.Handle("POST /api/v1/categories", protect(ch.Create))
	mux.Handle("GET /api/v1/categories/{id}", protect(ch.Show))
	mux.Handle("PUT /api/v1/categories/{id}", protect(ch.Update))
	mux.Handle("DELETE /api/v1/categories/{id}", protect(ch.Destroy))

	// --- Promos ---
	prh := handlers.NewPromoHandler(db, g)
	mux.Handle("GET /api/v1/promos", protect(prh.List))
	mux.Handle("POST /api/v1/promos", protect(prh.Create))
	mux.Handle("GET /api/v1/promos/{id}", protect(prh.Show))
	mux.Handle("PUT /api/v1/promos/{id}", protect(prh.Update))
	mux.Handle("DELETE /api/v1/promos/{id}", protect(prh.Destroy))

	// --- Clients ---
	clh := handlers.NewClientHandler(db, g)
	mux.Handle("GET /api/v1/clients", protect(clh.List))
	mux.Handle("POST /api/v1/clients", protect(clh.Create))
	mux.Handle("GET /api/v1/clients/{id}", protect(clh.Show))
	mux.Handle("PUT /api/v1/clients/{id}", protect(clh.Update))
	mux.Handle("DELETE /api/v1/clients/{id}", protect(clh.Destroy))

	// --- Users ---
	uh := handlers.NewUserHandler(db, g)
	mux.Handle("GET /api/v1/users", protect(uh.List))
	mux.Handle("POST /api/v1/users", protect(uh.Create))
	mux.Handle("GET /api/v1/users/{id}", protect(uh.Show))
	mux.Handle("PUT /api/v1/users/{id}", protect(uh.Update))
	mux.Handle("PATCH /api/v1/users/{id}/bloquer", protect(uh.Block))
	mux.Handle("DELETE /api/v1/users/{id}", protect(uh.Destroy))

	// --- Dettes ---
	dh := handlers.NewDetteHandler(db, g, detteSvc)
	mux.Handle("GET /api/v1/dettes", protect(dh.List))
	mux.Handle("POST /api/v1/dettes", protect(dh.Create))
	mux.Handle("GET /api/v1/dettes/{id}", protect(dh.Show))
	mux.Handle("PUT /api/v1/dettes/{id}", protect(dh.Update))
	mux.Handle("DELETE /api/v1/dettes/{id}", protect(dh.Destroy))
	mux.Handle("GET /api/v1/dettes/{id}/paiements", protect(dh.Paiements))
	mux.Handle("GET /api/v1/dettes/{id}/articles", protect(dh.Articles))

	// --- Paiements ---
	pah := handlers.NewPaiementHandler(db, g, detteSvc)
	mux.Handle("GET /api/v1/paiements", protect(pah.List))
	mux.Handle("POST /api/v1/paiements", protect(pah.Create))
	mux.Handle("GET /api/v1/paiements/{id}", protect(pah.Show))
	mux.Handle("PUT /api/v1/paiements/{id}", protect(pah.Update))
	mux.Handle("DELETE /api/v1/paiements/{id}", protect(pah.Destroy))

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusNotFound, "Page non trouvée !", nil)
	})

	return withRecover(opts.Logger, logRequests(opts.Logger, authMW.Attach(mux)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func withRecover(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("panic recovered")
				httpx.Error(w, http.StatusInternalServerError, "Erreur interne du serveur", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
