package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter registers every endpoint. Everything except health, bet
// previews and public verification requires the X-User-ID header.
func NewRouter(h *HandlerProvider) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/bets", func(r chi.Router) {
		r.Post("/preview", h.PreviewBetHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/", h.PlaceBetHandler)
			r.Get("/", h.ListBetsHandler)
			r.Get("/{betId}", h.GetBetHandler)
			r.Post("/{betId}/resolve", h.ResolveBetHandler)
			r.Post("/{betId}/cashout", h.CashoutBetHandler)
			r.Post("/{betId}/verify", h.VerifyBetHandler)
		})
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/balances", h.BalancesHandler)
		r.Get("/entries", h.EntriesHandler)
		r.Post("/faucet", h.FaucetHandler)
	})

	r.Route("/fairness", func(r chi.Router) {
		r.Post("/verify", h.VerifyHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/commitment", h.CommitmentHandler)
			r.Post("/rotate", h.RotateSeedHandler)
			r.Get("/seeds", h.ListSeedsHandler)
			r.Post("/seeds/{seedId}/reveal", h.RevealSeedHandler)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
