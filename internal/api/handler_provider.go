package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/games"
	"github.com/fastprodman/betsettle/internal/repos/bets"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	"github.com/fastprodman/betsettle/internal/repos/seeds"
	betsvc "github.com/fastprodman/betsettle/internal/services/bets"
	"github.com/fastprodman/betsettle/internal/services/fairness"
	"github.com/fastprodman/betsettle/internal/services/ledger"
	"github.com/fastprodman/betsettle/internal/services/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BetService interface {
	Preview(ctx context.Context, req betsvc.Request) (betsvc.Preview, error)
	Place(ctx context.Context, userID uuid.UUID, req betsvc.Request) (bets.Bet, error)
	Resolve(ctx context.Context, userID, betID uuid.UUID) (bets.Bet, error)
	Cashout(ctx context.Context, userID, betID uuid.UUID, multiplier *decimal.Decimal) (bets.Bet, error)
	Get(ctx context.Context, userID, betID uuid.UUID) (bets.Bet, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]bets.Bet, error)
	VerifyBet(ctx context.Context, userID, betID uuid.UUID, serverSeed string) (fairness.Verification, error)
	Rules(g games.Game) (games.Rules, error)
}

type WalletService interface {
	Faucet(ctx context.Context, userID uuid.UUID, code currency.Code, amount string) (entries.Entry, error)
	Balances(ctx context.Context, userID uuid.UUID) ([]ledger.Balance, error)
	Entries(ctx context.Context, userID uuid.UUID, f entries.Filter) ([]entries.Entry, error)
}

type FairnessService interface {
	RotateSeed(ctx context.Context, userID uuid.UUID) (fairness.Rotation, error)
	CurrentCommitment(ctx context.Context, userID uuid.UUID) (fairness.Commitment, error)
	RevealSeed(ctx context.Context, userID, seedID uuid.UUID) (seeds.Seed, error)
	ListSeeds(ctx context.Context, userID uuid.UUID, limit, offset int) ([]fairness.SeedView, error)
}

// HandlerProvider exposes the settlement core over HTTP. It holds no logic
// beyond decoding, formatting and error mapping.
type HandlerProvider struct {
	bets     BetService
	wallet   WalletService
	fairness FairnessService
}

func NewHandler(b BetService, w WalletService, f FairnessService) *HandlerProvider {
	return &HandlerProvider{bets: b, wallet: w, fairness: f}
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxBodyBytes    = 1 << 20
)

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// writeDomainError maps a service error to its HTTP status.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"

	switch {
	case errors.Is(err, betsvc.ErrInvalidStake):
		status, code = http.StatusBadRequest, "INVALID_STAKE"
	case errors.Is(err, currency.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, games.ErrInvalidParams):
		status, code = http.StatusBadRequest, "INVALID_PARAMS"
	case errors.Is(err, games.ErrUnknownGame):
		status, code = http.StatusBadRequest, "UNKNOWN_GAME"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status, code = http.StatusConflict, "INSUFFICIENT_FUNDS"
	case errors.Is(err, fairness.ErrNoActiveSeed):
		status, code = http.StatusNotFound, "NO_ACTIVE_SEED"
	case errors.Is(err, fairness.ErrNotFound), errors.Is(err, betsvc.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, fairness.ErrAlreadyRevealed):
		status, code = http.StatusConflict, "ALREADY_REVEALED"
	case errors.Is(err, fairness.ErrPendingBets):
		status, code = http.StatusConflict, "PENDING_BETS"
	case errors.Is(err, betsvc.ErrAlreadyResolved):
		status, code = http.StatusConflict, "ALREADY_RESOLVED"
	case errors.Is(err, wallet.ErrFaucetDisabled):
		status, code = http.StatusForbidden, "FAUCET_DISABLED"
	case errors.Is(err, wallet.ErrLimitExceeded):
		status, code = http.StatusTooManyRequests, "LIMIT_EXCEEDED"
	case errors.Is(err, ledger.ErrAccountCorrupted):
		status, code = http.StatusLocked, "ACCOUNT_LOCKED"
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, code, "internal error")

		return
	}

	writeError(w, status, code, err.Error())
}

// decodeBody reads a JSON body, rejecting unknown fields. An empty body is
// allowed when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	if errors.Is(err, io.EOF) {
		if optional {
			return true
		}

		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "empty body")

		return false
	}

	writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON")

	return false
}

func parsePage(r *http.Request) (limit, offset int, err error) {
	limit, offset = defaultPageSize, 0

	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}

	return limit, offset, nil
}

func parseUUIDParam(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", raw)
	}

	return id, nil
}
