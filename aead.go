// aead.go - encrypt-then-MAC composition: CTR encryption authenticated
// with HMAC-SHA256 over ad_len || ad || nonce-and-ciphertext.
package ruc

import "encoding/binary"

// aeadSubkeys derives the encryption and MAC sub-keys from a master key.
func aeadSubkeys(key MasterKey) (encKey MasterKey, macKey [32]byte) {
	copy(encKey[:], shake256Domain(key[:], domainAEADEnc, 0, 0, KeySize))
	copy(macKey[:], shake256Domain(key[:], domainAEADMac, 0, 0, 32))
	return
}

// AEADEncrypt encrypts plaintext under key with associated data ad,
// returning nonce || ciphertext || tag.
func AEADEncrypt(plaintext, keyBytes, ad, nonce []byte) ([]byte, error) {
	key, err := asMasterKey(keyBytes)
	if err != nil {
		return nil, err
	}
	encKey, macKey := aeadSubkeys(key)
	defer encKey.Zero()
	defer zeroKeyBytes(macKey[:])

	ct, err := EncryptCTR(plaintext, encKey[:], nonce)
	if err != nil {
		return nil, err
	}

	tag := aeadTag(macKey, ad, ct)

	out := make([]byte, 0, len(ct)+TagSize)
	out = append(out, ct...)
	out = append(out, tag...)
	return out, nil
}

// AEADDecrypt verifies the tag over frame before releasing any plaintext,
// then decrypts. frame is nonce || ciphertext || tag.
func AEADDecrypt(frame, keyBytes, ad []byte) ([]byte, error) {
	key, err := asMasterKey(keyBytes)
	if err != nil {
		return nil, err
	}

	if len(frame) < TagSize {
		return nil, ErrMalformedFrame
	}
	ct := frame[:len(frame)-TagSize]
	tag := frame[len(frame)-TagSize:]

	if len(ct) < NonceSize+BlockSize {
		return nil, ErrMalformedFrame
	}

	encKey, macKey := aeadSubkeys(key)
	defer encKey.Zero()
	defer zeroKeyBytes(macKey[:])

	expectedTag := aeadTag(macKey, ad, ct)
	if !constantTimeEqual(tag, expectedTag) {
		return nil, ErrAuthentication
	}

	return DecryptCTR(ct, encKey[:])
}

// aeadTag computes HMAC-SHA256(macKey, ad_len || ad || ct).
func aeadTag(macKey [32]byte, ad, ct []byte) []byte {
	var adLen [8]byte
	binary.BigEndian.PutUint64(adLen[:], uint64(len(ad)))

	input := make([]byte, 0, 8+len(ad)+len(ct))
	input = append(input, adLen[:]...)
	input = append(input, ad...)
	input = append(input, ct...)

	return hmacSHA256(macKey[:], input)
}
