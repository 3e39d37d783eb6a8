package api

import (
	"net/http"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	"github.com/fastprodman/betsettle/internal/services/ledger"
	"github.com/samber/lo"
)

// BalancesHandler handles GET /wallet/balances
func (h *HandlerProvider) BalancesHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := h.wallet.Balances(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"balances": lo.Map(rows, func(b ledger.Balance, _ int) balanceView { return newBalanceView(b) }),
	})
}

type faucetRequest struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// FaucetHandler handles POST /wallet/faucet
func (h *HandlerProvider) FaucetHandler(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	code, err := currency.Parse(req.Currency)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	e, err := h.wallet.Faucet(r.Context(), userFrom(r.Context()), code, req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newEntryView(e))
}

// EntriesHandler handles GET /wallet/entries?currency=&type=&limit=&offset=
func (h *HandlerProvider) EntriesHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	f := entries.Filter{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("currency"); raw != "" {
		f.Currency, err = currency.Parse(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	if raw := r.URL.Query().Get("type"); raw != "" {
		f.Type = entries.Type(raw)
	}

	list, err := h.wallet.Entries(r.Context(), userFrom(r.Context()), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": lo.Map(list, func(e entries.Entry, _ int) entryView { return newEntryView(e) }),
	})
}
