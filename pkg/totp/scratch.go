package totp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	// ScratchTokenCount is the number of scratch tokens issued with a fresh key.
	ScratchTokenCount = 10

	// ScratchTokenLength is the length of each scratch token in characters.
	ScratchTokenLength = 8
)

// scratchAlphabet is the Base32 character set (RFC 4648) used for scratch
// tokens, so the tokens survive the same normalization as the stored secret.
const scratchAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// GenerateScratchTokens creates cryptographically secure single-use backup
// codes. Each token is ScratchTokenLength Base32 characters. Duplicates within
// the returned set are regenerated, although a collision is already negligible
// at this length.
func GenerateScratchTokens(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidScratchTokenCount
	}

	out := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	for len(out) < count {
		token, err := generateScratchToken()
		if err != nil {
			return nil, err
		}

		if _, ok := seen[token]; ok {
			continue
		}

		seen[token] = struct{}{}
		out = append(out, token)
	}

	return out, nil
}

func generateScratchToken() (string, error) {
	var sb strings.Builder
	sb.Grow(ScratchTokenLength)

	for i := 0; i < ScratchTokenLength; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(scratchAlphabet))))
		if err != nil {
			return "", errors.Join(ErrFailedToGenerateScratchToken, err)
		}
		sb.WriteByte(scratchAlphabet[idx.Int64()])
	}

	return sb.String(), nil
}
