// errors.go - the RUC error taxonomy.
//
// Every error a caller might need to branch on is a sentinel value here,
// checkable with errors.Is. Call sites that need to say more wrap the
// sentinel with fmt.Errorf("...: %w", Err...) rather than inventing a new
// error kind.
package ruc

import "errors"

var (
	// ErrInvalidLength is returned when a key, salt, nonce, or block input
	// is not the fixed size the operation requires.
	ErrInvalidLength = errors.New("ruc: invalid input length")

	// ErrPadding is returned when PKCS#7 padding is missing, exceeds one
	// block, or is internally inconsistent. Deliberately as uninformative
	// as ErrAuthentication: a decrypt path must not let padding validity
	// leak anything an attacker could use as an oracle.
	ErrPadding = errors.New("ruc: padding error")

	// ErrMalformedFrame is returned when a ciphertext frame is too short
	// to contain its declared components, or its body length is not a
	// block multiple.
	ErrMalformedFrame = errors.New("ruc: malformed frame")

	// ErrAuthentication is returned when AEAD tag verification fails. No
	// plaintext is released when this error is returned.
	ErrAuthentication = errors.New("ruc: authentication failed")

	// ErrKDF is returned when password-based key derivation cannot
	// proceed (e.g. an unsupported KDF level).
	ErrKDF = errors.New("ruc: key derivation failed")
)
