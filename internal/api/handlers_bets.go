package api

import (
	"net/http"

	"github.com/fastprodman/betsettle/internal/repos/bets"
	betsvc "github.com/fastprodman/betsettle/internal/services/bets"
	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PreviewBetHandler handles POST /bets/preview
func (h *HandlerProvider) PreviewBetHandler(w http.ResponseWriter, r *http.Request) {
	var req betsvc.Request
	if !decodeBody(w, r, &req, false) {
		return
	}

	p, err := h.bets.Preview(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPreviewView(p))
}

// PlaceBetHandler handles POST /bets
func (h *HandlerProvider) PlaceBetHandler(w http.ResponseWriter, r *http.Request) {
	var req betsvc.Request
	if !decodeBody(w, r, &req, false) {
		return
	}

	bet, err := h.bets.Place(r.Context(), userFrom(r.Context()), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newBetView(bet))
}

// ResolveBetHandler handles POST /bets/{betId}/resolve
func (h *HandlerProvider) ResolveBetHandler(w http.ResponseWriter, r *http.Request) {
	betID, err := parseUUIDParam(chi.URLParam(r, "betId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	bet, err := h.bets.Resolve(r.Context(), userFrom(r.Context()), betID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBetView(bet))
}

type cashoutRequest struct {
	Multiplier *decimal.Decimal `json:"multiplier"`
}

// CashoutBetHandler handles POST /bets/{betId}/cashout
func (h *HandlerProvider) CashoutBetHandler(w http.ResponseWriter, r *http.Request) {
	betID, err := parseUUIDParam(chi.URLParam(r, "betId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	var req cashoutRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	bet, err := h.bets.Cashout(r.Context(), userFrom(r.Context()), betID, req.Multiplier)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBetView(bet))
}

// GetBetHandler handles GET /bets/{betId}
func (h *HandlerProvider) GetBetHandler(w http.ResponseWriter, r *http.Request) {
	betID, err := parseUUIDParam(chi.URLParam(r, "betId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	bet, err := h.bets.Get(r.Context(), userFrom(r.Context()), betID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBetView(bet))
}

// ListBetsHandler handles GET /bets?limit=&offset=
func (h *HandlerProvider) ListBetsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	list, err := h.bets.ListByUser(r.Context(), userFrom(r.Context()), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bets": lo.Map(list, func(b bets.Bet, _ int) betView { return newBetView(b) }),
	})
}

type verifyBetRequest struct {
	ServerSeed string `json:"serverSeed"`
}

// VerifyBetHandler handles POST /bets/{betId}/verify
func (h *HandlerProvider) VerifyBetHandler(w http.ResponseWriter, r *http.Request) {
	betID, err := parseUUIDParam(chi.URLParam(r, "betId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	var req verifyBetRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	res, err := h.bets.VerifyBet(r.Context(), userFrom(r.Context()), betID, req.ServerSeed)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
