// kdf.go - password-based master-key derivation. Argon2id is primary;
// iterated SHAKE256 is the fallback used when Argon2id is unavailable.
//
// Grounded on other_examples/9aba1b79_frnd1406-NasServer's
// argon2.IDKey(password, salt, time, memory, threads, keyLen) call shape.
package ruc

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"
)

// KDFLevel selects an Argon2id cost profile.
type KDFLevel int

const (
	// KDFInteractive is the lightest profile, suitable for UI-blocking
	// derivation.
	KDFInteractive KDFLevel = iota
	// KDFModerate is a mid-cost profile for general file encryption.
	KDFModerate
	// KDFSensitive is the heaviest profile, for long-term secrets.
	KDFSensitive
)

type argon2Params struct {
	time    uint32
	memory  uint32 // KiB
	threads uint8
}

func (l KDFLevel) params() (argon2Params, error) {
	switch l {
	case KDFInteractive:
		return argon2Params{time: 2, memory: 64 * 1024, threads: 1}, nil
	case KDFModerate:
		return argon2Params{time: 3, memory: 64 * 1024, threads: 1}, nil
	case KDFSensitive:
		return argon2Params{time: 4, memory: 128 * 1024, threads: 1}, nil
	default:
		return argon2Params{}, ErrKDF
	}
}

// ForceShakeFallback, when set, makes DeriveKey use the iterated-SHAKE256
// fallback instead of Argon2id at every supported level. Exists so the
// fallback path has real test coverage: golang.org/x/crypto/argon2 never
// itself fails at runtime, so the spec's "fallback if Argon2id is
// unavailable" branch has no naturally occurring trigger to test against.
var ForceShakeFallback = false

// DeriveKey derives a 64-byte master key from password using Argon2id at
// the given level (or the SHAKE256 fallback, see ForceShakeFallback). A
// random salt is generated if salt is nil.
func DeriveKey(password string, salt []byte, level KDFLevel) (key [KeySize]byte, outSalt [SaltSize]byte, err error) {
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, rerr := rand.Read(salt); rerr != nil {
			return key, outSalt, rerr
		}
	} else if len(salt) != SaltSize {
		return key, outSalt, ErrInvalidLength
	}
	copy(outSalt[:], salt)

	params, perr := level.params()
	if perr != nil {
		return key, outSalt, perr
	}

	if ForceShakeFallback {
		copy(key[:], shakeFallback([]byte(password), salt, level))
		return key, outSalt, nil
	}

	derived := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, KeySize)
	copy(key[:], derived)
	return key, outSalt, nil
}

// shakeFallback implements the deterministic SHAKE256-iteration fallback:
// key = SHAKE256(password || salt, 64), then iterations*10000 rounds of
// key = SHAKE256(key || salt || password, 64).
func shakeFallback(password, salt []byte, level KDFLevel) []byte {
	iterations := shakeFallbackIterations(level)

	key := shake256(append(append([]byte{}, password...), salt...), KeySize)
	for i := 0; i < iterations*10000; i++ {
		input := make([]byte, 0, len(key)+len(salt)+len(password))
		input = append(input, key...)
		input = append(input, salt...)
		input = append(input, password...)
		key = shake256(input, KeySize)
	}
	return key
}

func shakeFallbackIterations(level KDFLevel) int {
	switch level {
	case KDFInteractive:
		return 2
	case KDFModerate:
		return 3
	case KDFSensitive:
		return 4
	default:
		return 2
	}
}
