package oath

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrymomot/oathkit/pkg/qrcode"
	"github.com/dmitrymomot/oathkit/pkg/totp"
)

// ModuleTOTP is the mechanism name for time-based one-time passwords.
const ModuleTOTP = "totp"

// TOTPModule implements the TOTP second-factor mechanism.
type TOTPModule struct {
	issuer string
}

// TOTPModuleOption configures a TOTPModule.
type TOTPModuleOption func(*TOTPModule)

// WithIssuer sets the issuer embedded in provisioning URIs.
func WithIssuer(issuer string) TOTPModuleOption {
	return func(m *TOTPModule) {
		m.issuer = issuer
	}
}

// NewTOTPModule creates the TOTP mechanism.
func NewTOTPModule(opts ...TOTPModuleOption) *TOTPModule {
	m := &TOTPModule{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns "totp".
func (m *TOTPModule) Name() string { return ModuleTOTP }

// DisplayName returns a human-readable mechanism name.
func (m *TOTPModule) DisplayName() string { return "Time-based one-time password (OATH)" }

// NewKey mints a fresh credential with a random secret and a full set of
// scratch tokens.
func (m *TOTPModule) NewKey(ctx context.Context) (Key, error) {
	key, err := totp.NewKeyFromRandom()
	if err != nil {
		return nil, err
	}
	return &TOTPKey{module: m, key: key}, nil
}

// LoadKey restores a credential from its stored payload.
func (m *TOTPModule) LoadKey(id int64, payload []byte) (Key, error) {
	key, err := totp.NewKeyFromJSON(payload)
	if err != nil {
		return nil, errors.Join(ErrInvalidKeyPayload, err)
	}
	snapshot := make([]byte, len(payload))
	copy(snapshot, payload)
	return &TOTPKey{module: m, key: key, id: id, snapshot: snapshot}, nil
}

// TOTPKey is one TOTP credential: a shared secret plus its remaining
// single-use scratch tokens.
type TOTPKey struct {
	module   *TOTPModule
	key      *totp.Key
	id       int64
	snapshot []byte
}

// ID returns the storage-assigned identifier, or zero if not persisted.
func (k *TOTPKey) ID() int64 { return k.id }

// Module returns "totp".
func (k *TOTPKey) Module() string { return ModuleTOTP }

// Secret returns the base32-encoded shared secret.
func (k *TOTPKey) Secret() string { return k.key.Secret() }

// ScratchTokens returns the remaining single-use backup codes.
func (k *TOTPKey) ScratchTokens() []string { return k.key.ScratchTokens() }

// Verify checks a submitted token, trying scratch tokens first and falling
// back to the live OTP with one time step of skew tolerance each side.
// A consumed scratch token sets KeyDirty so the caller re-persists the key.
func (k *TOTPKey) Verify(ctx context.Context, token string) (VerifyResult, error) {
	res, err := k.key.Verify(token)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{OK: res.OK, KeyDirty: res.UsedScratchToken}, nil
}

// MarshalPayload serializes the secret and the remaining scratch tokens.
func (k *TOTPKey) MarshalPayload() ([]byte, error) {
	return json.Marshal(k.key)
}

// PayloadSnapshot returns the payload bytes as they were read from storage,
// or nil for a credential that has not been loaded from storage. Conditional
// writes use it as the compare value.
func (k *TOTPKey) PayloadSnapshot() []byte {
	if k.snapshot == nil {
		return nil
	}
	out := make([]byte, len(k.snapshot))
	copy(out, k.snapshot)
	return out
}

// ProvisioningURI returns the otpauth:// URI an authenticator app enrolls
// with for the given account name.
func (k *TOTPKey) ProvisioningURI(account string) (string, error) {
	return totp.GetTOTPURI(totp.TOTPParams{
		Secret:      k.key.Secret(),
		AccountName: account,
		Issuer:      k.module.issuer,
	})
}

// EnrollmentQR renders the provisioning URI as a PNG QR code of the given
// pixel size.
func (k *TOTPKey) EnrollmentQR(account string, size int) ([]byte, error) {
	uri, err := k.ProvisioningURI(account)
	if err != nil {
		return nil, err
	}
	return qrcode.Generate(uri, size)
}
