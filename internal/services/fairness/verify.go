package fairness

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/fastprodman/betsettle/internal/games"
)

// VerifyRequest is everything needed to replay one draw offline.
type VerifyRequest struct {
	ServerSeed   string       `json:"serverSeed"`
	ClientSeed   string       `json:"clientSeed"`
	Nonce        int64        `json:"nonce"`
	Game         games.Game   `json:"game"`
	Rules        games.Rules  `json:"rules"`
	Params       games.Params `json:"params"`
	ExpectedHash string       `json:"expectedHash,omitempty"`
}

type Verification struct {
	Valid          bool           `json:"valid"`
	Error          string         `json:"error,omitempty"`
	ServerSeedHash string         `json:"serverSeedHash,omitempty"`
	RNG            string         `json:"rng,omitempty"`
	RNGPrefix      uint32         `json:"rngPrefix,omitempty"`
	RNGDivisor     uint64         `json:"rngDivisor,omitempty"`
	Outcome        *games.Outcome `json:"outcome,omitempty"`
}

// Verify replays a draw. It has no side effects and never fails: bad input
// comes back as Valid=false with the reason in Error.
func Verify(req VerifyRequest) Verification {
	if req.ServerSeed == "" {
		return invalid("", errors.New("server seed is required"))
	}

	hash := HashServerSeed(req.ServerSeed)

	if req.ExpectedHash != "" && !sameHash(hash, req.ExpectedHash) {
		return invalid(hash, ErrHashMismatch)
	}

	if req.Nonce < 1 {
		return invalid(hash, fmt.Errorf("%w: nonce %d", games.ErrInvalidParams, req.Nonce))
	}

	v, err := games.Build(req.Game, req.Rules, req.Params)
	if err != nil {
		return invalid(hash, err)
	}

	rng := DeriveRNG(req.ServerSeed, req.ClientSeed, req.Nonce)
	out := games.Resolve(v, rng)

	return Verification{
		Valid:          true,
		ServerSeedHash: hash,
		RNG:            rng.String(),
		RNGPrefix:      rng.Prefix,
		RNGDivisor:     games.RNGDivisor,
		Outcome:        &out,
	}
}

func sameHash(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(want))) == 1
}

func invalid(hash string, err error) Verification {
	return Verification{ServerSeedHash: hash, Error: err.Error()}
}
