package api

import (
	"net/http"

	"github.com/fastprodman/betsettle/internal/games"
	"github.com/fastprodman/betsettle/internal/services/fairness"
	"github.com/go-chi/chi/v5"
)

// CommitmentHandler handles GET /fairness/commitment
func (h *HandlerProvider) CommitmentHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.fairness.CurrentCommitment(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// RotateSeedHandler handles POST /fairness/rotate. The new secret stays
// server side until it is revealed.
func (h *HandlerProvider) RotateSeedHandler(w http.ResponseWriter, r *http.Request) {
	rot, err := h.fairness.RotateSeed(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"seedId":         rot.SeedID,
		"serverSeedHash": rot.ServerSeedHash,
	})
}

// RevealSeedHandler handles POST /fairness/seeds/{seedId}/reveal
func (h *HandlerProvider) RevealSeedHandler(w http.ResponseWriter, r *http.Request) {
	seedID, err := parseUUIDParam(chi.URLParam(r, "seedId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	seed, err := h.fairness.RevealSeed(r.Context(), userFrom(r.Context()), seedID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"seedId":         seed.ID,
		"serverSeed":     seed.ServerSeed,
		"serverSeedHash": seed.ServerSeedHash,
		"revealedAt":     seed.RevealedAt.Time,
	})
}

// ListSeedsHandler handles GET /fairness/seeds?limit=&offset=
func (h *HandlerProvider) ListSeedsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	list, err := h.fairness.ListSeeds(r.Context(), userFrom(r.Context()), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"seeds": list})
}

type verifyRequest struct {
	ServerSeed   string       `json:"serverSeed"`
	ClientSeed   string       `json:"clientSeed"`
	Nonce        int64        `json:"nonce"`
	Game         string       `json:"game"`
	Params       games.Params `json:"params"`
	ExpectedHash string       `json:"expectedHash,omitempty"`
}

// VerifyHandler handles POST /fairness/verify. It always answers 200 with a
// structured result once the body decodes; invalid input is reported as
// valid=false. The current catalog rules are used.
func (h *HandlerProvider) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	g, err := games.ParseGame(req.Game)
	if err != nil {
		g = games.Game(req.Game)
	}

	rules, _ := h.bets.Rules(g) // an unknown game fails inside Verify

	writeJSON(w, http.StatusOK, fairness.Verify(fairness.VerifyRequest{
		ServerSeed:   req.ServerSeed,
		ClientSeed:   req.ClientSeed,
		Nonce:        req.Nonce,
		Game:         g,
		Rules:        rules,
		Params:       req.Params,
		ExpectedHash: req.ExpectedHash,
	}))
}
