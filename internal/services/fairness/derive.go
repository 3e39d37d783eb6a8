package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/fastprodman/betsettle/internal/games"
)

const (
	serverSeedBytes = 32
	clientSeedBytes = 16
)

// GenerateServerSeed returns a fresh 256-bit secret, hex encoded.
func GenerateServerSeed() (string, error) {
	return randomHex(serverSeedBytes)
}

// GenerateClientSeed is used when a player does not bring their own.
func GenerateClientSeed() (string, error) {
	return randomHex(clientSeedBytes)
}

// HashServerSeed is the public commitment: hex SHA-256 of the seed text.
func HashServerSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))

	return hex.EncodeToString(sum[:])
}

// DeriveRNG computes HMAC-SHA256(serverSeed, clientSeed:nonce) and takes the
// first four digest bytes, big-endian, as the draw.
func DeriveRNG(serverSeed, clientSeed string, nonce int64) games.RNG {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(clientSeed + ":" + strconv.FormatInt(nonce, 10)))

	return games.RNG{Prefix: binary.BigEndian.Uint32(mac.Sum(nil)[:4])}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)

	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
