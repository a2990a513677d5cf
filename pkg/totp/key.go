package totp

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"
)

// Key is a single TOTP device: a shared secret plus the set of single-use
// scratch tokens that substitute for a live OTP when the device is unavailable.
//
// Key is not safe for concurrent use. A successful scratch-token verification
// removes the token from the key, so the caller must re-persist the key
// immediately after VerifyResult.UsedScratchToken is reported.
type Key struct {
	secret        string
	scratchTokens []string
}

// VerifyResult reports the outcome of a token verification.
type VerifyResult struct {
	// OK is true when the submitted token matched either a live OTP or a
	// scratch token.
	OK bool

	// UsedScratchToken is true when the match consumed a scratch token.
	// Consumption is committed on first match regardless of what the overall
	// login attempt does afterwards, so the key must be persisted.
	UsedScratchToken bool
}

// NewKey creates a key from an existing secret and scratch token set.
// The secret must be a Base32-encoded string.
func NewKey(secret string, scratchTokens []string) (*Key, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if !ValidateSecretKeyRegex.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	return &Key{
		secret:        secret,
		scratchTokens: append([]string(nil), scratchTokens...),
	}, nil
}

// NewKeyFromRandom creates a key with a fresh random secret and a full set of
// scratch tokens. Used when a user enables the TOTP mechanism.
func NewKeyFromRandom() (*Key, error) {
	secret, err := GenerateSecretKey()
	if err != nil {
		return nil, err
	}

	tokens, err := GenerateScratchTokens(ScratchTokenCount)
	if err != nil {
		return nil, err
	}

	return &Key{secret: secret, scratchTokens: tokens}, nil
}

// NewKeyFromJSON restores a key from its serialized payload.
// Round-tripping a key through MarshalJSON and NewKeyFromJSON preserves the
// secret and the exact remaining scratch token sequence.
func NewKeyFromJSON(data []byte) (*Key, error) {
	var payload keyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Join(ErrInvalidKeyPayload, err)
	}
	if payload.Secret == "" {
		return nil, errors.Join(ErrInvalidKeyPayload, ErrMissingSecret)
	}
	return &Key{
		secret:        payload.Secret,
		scratchTokens: payload.ScratchTokens,
	}, nil
}

// keyPayload is the serialized form of a key. The field names match the
// payload stored per device row, so existing rows keep deserializing.
type keyPayload struct {
	Secret        string   `json:"secret"`
	ScratchTokens []string `json:"scratch_tokens"`
}

// MarshalJSON serializes the secret and the remaining scratch tokens in order.
func (k *Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(keyPayload{
		Secret:        k.secret,
		ScratchTokens: k.scratchTokens,
	})
}

// UnmarshalJSON restores the key in place from its serialized payload.
func (k *Key) UnmarshalJSON(data []byte) error {
	restored, err := NewKeyFromJSON(data)
	if err != nil {
		return err
	}
	*k = *restored
	return nil
}

// Secret returns the Base32-encoded shared secret.
func (k *Key) Secret() string {
	return k.secret
}

// ScratchTokens returns a copy of the remaining scratch tokens in order.
func (k *Key) ScratchTokens() []string {
	return append([]string(nil), k.scratchTokens...)
}

// Verify checks the submitted token against the scratch token set first and
// the live OTP second, using the current time for the OTP window.
func (k *Key) Verify(token string) (VerifyResult, error) {
	return k.VerifyAt(token, time.Now())
}

// VerifyAt is Verify with an explicit evaluation time.
//
// Scratch tokens are compared case-insensitively after whitespace removal.
// A matched scratch token is removed from the key before the result is
// returned; the caller owns persisting the mutated key. Non-scratch input
// must be an exactly six digit decimal OTP valid for the window containing
// at, or one window on either side.
func (k *Key) VerifyAt(token string, at time.Time) (VerifyResult, error) {
	normalized := normalizeToken(token)

	if k.consumeScratchToken(normalized) {
		return VerifyResult{OK: true, UsedScratchToken: true}, nil
	}

	ok, err := ValidateTOTPAt(k.secret, normalized, at)
	if err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			// Not a scratch token and not shaped like an OTP: a plain mismatch,
			// not an infrastructure failure.
			return VerifyResult{}, nil
		}
		return VerifyResult{}, err
	}

	return VerifyResult{OK: ok}, nil
}

// consumeScratchToken removes and reports the first scratch token matching the
// normalized input. Comparison is constant-time per candidate token.
func (k *Key) consumeScratchToken(normalized string) bool {
	if normalized == "" {
		return false
	}

	matched := -1
	for i, candidate := range k.scratchTokens {
		stored := normalizeToken(candidate)
		if len(stored) == len(normalized) &&
			subtle.ConstantTimeCompare([]byte(stored), []byte(normalized)) == 1 &&
			matched < 0 {
			matched = i
		}
	}
	if matched < 0 {
		return false
	}

	k.scratchTokens = append(k.scratchTokens[:matched], k.scratchTokens[matched+1:]...)
	return true
}

// normalizeToken strips all whitespace and uppercases the input so scratch
// tokens match regardless of how the user typed or pasted them.
func normalizeToken(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
