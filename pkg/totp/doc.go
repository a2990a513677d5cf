// Package totp implements the Time-based One-Time Password device used as a
// second authentication factor, including its single-use scratch tokens.
//
// The package bundles everything the credential layer needs: secret key
// creation, URI generation compatible with authenticator applications,
// HOTP/TOTP code calculation per RFC 4226 and RFC 6238, AES-256-GCM helpers
// for persisting secrets encrypted at rest, and scratch token generation.
//
// # The Key value object
//
// Key holds one device: a Base32 shared secret plus the ordered set of
// remaining scratch tokens. Verification checks the scratch tokens first
// (whitespace-stripped, case-insensitive, constant-time) and falls back to a
// six digit OTP accepted for the current 30-second window and exactly one
// window on either side. A matched scratch token is consumed immediately;
// the VerifyResult tells the caller the key is dirty and must be persisted.
//
//	key, _ := totp.NewKeyFromRandom()
//	res, _ := key.Verify(" 64szljttpri5xbue ")
//	if res.UsedScratchToken {
//	    // re-serialize and store the key: the token is gone for good
//	}
//
// Key serializes to {"secret": ..., "scratch_tokens": [...]} and the
// round-trip preserves the secret and the exact remaining token sequence.
//
// # Enrollment
//
// The minimal happy path for enrolling a user:
//
//	key, _ := totp.NewKeyFromRandom()
//	uri, _ := totp.GetTOTPURI(totp.TOTPParams{
//	    Secret:      key.Secret(),
//	    AccountName: "alice@example.com",
//	    Issuer:      "Acme",
//	})
//	// render uri as a QR code, then confirm with key.Verify(firstCode)
//
// # Error Handling
//
// Every exported operation returns a descriptive error that may be wrapped
// using errors.Join. Inspect errors with errors.Is against package level
// sentinels such as ErrInvalidSecret, ErrInvalidOTP, ErrInvalidKeyPayload.
package totp
