// frame.go - password-based bundler: the user-facing frame formats that
// prepend salt and, for AEAD, append a tag. The KDF profile itself is a
// caller contract and is never encoded in the frame.
package ruc

// EncryptWithPassword derives a master key from password (AEAD path
// recommended; see EncryptWithPasswordCTR for the tag-less CTR variant)
// and returns salt || nonce || ciphertext || tag.
func EncryptWithPassword(plaintext []byte, password string, level KDFLevel) ([]byte, error) {
	key, salt, err := DeriveKey(password, nil, level)
	if err != nil {
		return nil, err
	}
	defer zeroKeyBytes(key[:])

	body, err := AEADEncrypt(plaintext, key[:], nil, nil)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, SaltSize+len(body))
	out = append(out, salt[:]...)
	out = append(out, body...)
	return out, nil
}

// DecryptWithPassword reverses EncryptWithPassword: the first SaltSize
// bytes of frame are the salt; the caller must supply the same level used
// at encrypt time, since the profile is not recorded in the frame.
func DecryptWithPassword(frame []byte, password string, level KDFLevel) ([]byte, error) {
	if len(frame) < SaltSize {
		return nil, ErrMalformedFrame
	}
	salt := frame[:SaltSize]
	body := frame[SaltSize:]

	key, _, err := DeriveKey(password, salt, level)
	if err != nil {
		return nil, err
	}
	defer zeroKeyBytes(key[:])

	return AEADDecrypt(body, key[:], nil)
}

// EncryptWithPasswordCTR is the CTR (non-authenticated) password variant:
// salt || nonce || ciphertext, with no tag.
func EncryptWithPasswordCTR(plaintext []byte, password string, level KDFLevel) ([]byte, error) {
	key, salt, err := DeriveKey(password, nil, level)
	if err != nil {
		return nil, err
	}
	defer zeroKeyBytes(key[:])

	body, err := EncryptCTR(plaintext, key[:], nil)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, SaltSize+len(body))
	out = append(out, salt[:]...)
	out = append(out, body...)
	return out, nil
}

// DecryptWithPasswordCTR reverses EncryptWithPasswordCTR.
func DecryptWithPasswordCTR(frame []byte, password string, level KDFLevel) ([]byte, error) {
	if len(frame) < SaltSize {
		return nil, ErrMalformedFrame
	}
	salt := frame[:SaltSize]
	body := frame[SaltSize:]

	key, _, err := DeriveKey(password, salt, level)
	if err != nil {
		return nil, err
	}
	defer zeroKeyBytes(key[:])

	return DecryptCTR(body, key[:])
}

func zeroKeyBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
