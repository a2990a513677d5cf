package totp_test

import (
	"testing"
	"time"

	"github.com/dmitrymomot/oathkit/pkg/totp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecretKey(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Regexp(t, totp.ValidateSecretKeyRegex, secret)
}

func TestGetTOTPURI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		params  totp.TOTPParams
		want    string
		wantErr bool
	}{
		{
			name: "Basic URI",
			params: totp.TOTPParams{
				Secret:      "ABCDEFGHIJKLMNOP",
				AccountName: "test@example.com",
				Issuer:      "TestApp",
			},
			want:    "otpauth://totp/TestApp:test@example.com?algorithm=SHA1&digits=6&issuer=TestApp&period=30&secret=ABCDEFGHIJKLMNOP",
			wantErr: false,
		},
		{
			name: "Missing secret",
			params: totp.TOTPParams{
				AccountName: "test@example.com",
				Issuer:      "TestApp",
			},
			wantErr: true,
		},
		{
			name: "Missing account name",
			params: totp.TOTPParams{
				Secret: "ABCDEFGHIJKLMNOP",
				Issuer: "TestApp",
			},
			wantErr: true,
		},
		{
			name: "Invalid secret",
			params: totp.TOTPParams{
				Secret:      "not-base32!",
				AccountName: "test@example.com",
				Issuer:      "TestApp",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.GetTOTPURI(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// RFC 4226 Appendix D test vectors for the HOTP algorithm with the ASCII
// secret "12345678901234567890".
func TestGenerateHOTPVectors(t *testing.T) {
	t.Parallel()

	key := []byte("12345678901234567890")
	want := []int{755224, 287082, 359152, 969429, 338314, 254676, 287922, 162583, 399871, 520489}

	for counter, expected := range want {
		assert.Equal(t, expected, totp.GenerateHOTP(key, int64(counter), 6), "counter %d", counter)
	}
}

func TestValidateTOTP(t *testing.T) {
	t.Parallel()
	validSecret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	validOTP, err := totp.GenerateTOTP(validSecret)
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		otp     string
		wantErr bool
		result  bool
	}{
		{
			name:   "Valid OTP",
			secret: validSecret,
			otp:    validOTP,
			result: true,
		},
		{
			name:    "Invalid base32 secret",
			secret:  "invalid-base32!@#$",
			otp:     "123456",
			wantErr: true,
		},
		{
			name:    "Invalid OTP length",
			secret:  "ABCDEFGHIJKLMNOP",
			otp:     "12345",
			wantErr: true,
		},
		{
			name:    "Invalid OTP characters",
			secret:  "ABCDEFGHIJKLMNOP",
			otp:     "12345a",
			wantErr: true,
		},
		{
			name:    "Empty secret",
			secret:  "",
			otp:     "123456",
			wantErr: true,
		},
		{
			name:    "Empty OTP",
			secret:  "ABCDEFGHIJKLMNOP",
			otp:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.ValidateTOTP(tt.secret, tt.otp)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.result, got)
		})
	}
}

func TestValidateTOTPAtSkew(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	step := totp.DefaultPeriod * time.Second
	anchor := time.Now().Truncate(step).Add(step / 2)

	for offset := -3; offset <= 3; offset++ {
		code, err := totp.GenerateTOTPWithTime(secret, anchor.Add(time.Duration(offset)*step))
		require.NoError(t, err)

		ok, err := totp.ValidateTOTPAt(secret, code, anchor)
		require.NoError(t, err)
		assert.Equal(t, offset >= -1 && offset <= 1, ok, "offset %d steps", offset)
	}
}
