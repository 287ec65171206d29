// ctr.go - CTR-style block mode. Each block is independent: its initial
// register state is the key material's registers mixed with the nonce-
// derived IV and a counter hash, so blocks can be produced in any order
// (see pipeline.go).
package ruc

import (
	"crypto/rand"
	"encoding/binary"
)

// newBlockState derives the initial per-block cipherState for block n,
// from a shared KeyMaterial and a 32-byte IV.
func newBlockState(km *KeyMaterial, iv []byte, n uint64) *cipherState {
	state := &cipherState{Registers: mixIV(km.Registers, iv)}

	counterHash := counterHashForBlock(n)
	var counterReg Register
	copy(counterReg[:], counterHash)
	state.Registers[0] = xorRegister(state.Registers[0], counterReg)

	return state
}

// counterHashForBlock computes SHAKE256(u64_be(n) || "CTR", 64), per spec
// §4.6 step 4c: the block number leads, with the domain tag as a suffix.
// shake256Domain always builds key||domain||index (domain-prefix), so this
// one derivation - the only index-before-domain layout in the schedule -
// is assembled by hand instead.
func counterHashForBlock(n uint64) []byte {
	var bn [8]byte
	binary.BigEndian.PutUint64(bn[:], n)
	input := make([]byte, 0, 8+len(domainCTRCounter))
	input = append(input, bn[:]...)
	input = append(input, domainCTRCounter...)
	return shake256(input, RegisterSize)
}

// deriveCTRIV expands a 16-byte nonce into the 32-byte IV used for
// per-block state initialization.
func deriveCTRIV(nonce []byte) []byte {
	return shake256Domain(nonce, domainCTRIV, 0, 0, IVSize)
}

// processBlocksSequential runs blocks through the CTR mode, one at a time,
// without parallel dispatch. encrypt selects EncryptBlock vs DecryptBlock.
func processBlocksSequential(key MasterKey, km *KeyMaterial, iv []byte, startBlock uint64, blocks [][BlockSize]byte, encrypt bool) [][BlockSize]byte {
	out := make([][BlockSize]byte, len(blocks))
	for i, b := range blocks {
		state := newBlockState(km, iv, startBlock+uint64(i))
		if encrypt {
			out[i] = EncryptBlock(key, km, state, iv, startBlock+uint64(i), b)
		} else {
			out[i] = DecryptBlock(key, km, state, iv, startBlock+uint64(i), b)
		}
		state.zero()
	}
	return out
}

// EncryptCTR encrypts plaintext under key using CTR mode, returning
// nonce || padded-ciphertext. A random nonce is generated if nonce is nil.
func EncryptCTR(plaintext, keyBytes, nonce []byte) ([]byte, error) {
	key, err := asMasterKey(keyBytes)
	if err != nil {
		return nil, err
	}

	if nonce == nil {
		nonce = make([]byte, NonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return nil, err
		}
	} else if len(nonce) != NonceSize {
		return nil, ErrInvalidLength
	}

	km := ExpandKey(key)
	defer km.Zero()
	iv := deriveCTRIV(nonce)

	padded := pkcs7Pad(plaintext)
	blocks := bytesToBlocks(padded)

	ciphertextBlocks, err := ProcessBlocks(key, &km, iv, 0, blocks, true, nil)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, NonceSize+len(padded))
	out = append(out, nonce...)
	out = append(out, blocksToBytes(ciphertextBlocks)...)
	return out, nil
}

// DecryptCTR reverses EncryptCTR, stripping the nonce and PKCS#7 padding.
func DecryptCTR(frame, keyBytes []byte) ([]byte, error) {
	key, err := asMasterKey(keyBytes)
	if err != nil {
		return nil, err
	}

	if len(frame) < NonceSize+BlockSize {
		return nil, ErrMalformedFrame
	}
	nonce := frame[:NonceSize]
	body := frame[NonceSize:]
	if len(body)%BlockSize != 0 {
		return nil, ErrMalformedFrame
	}

	km := ExpandKey(key)
	defer km.Zero()
	iv := deriveCTRIV(nonce)

	blocks := bytesToBlocks(body)
	plainBlocks, err := ProcessBlocks(key, &km, iv, 0, blocks, false, nil)
	if err != nil {
		return nil, err
	}

	return pkcs7Unpad(blocksToBytes(plainBlocks))
}

// asMasterKey validates that keyBytes is exactly KeySize bytes and copies
// it into a MasterKey.
func asMasterKey(keyBytes []byte) (MasterKey, error) {
	var key MasterKey
	if len(keyBytes) != KeySize {
		return key, ErrInvalidLength
	}
	copy(key[:], keyBytes)
	return key, nil
}

// bytesToBlocks splits data (already a multiple of BlockSize) into
// fixed-size blocks.
func bytesToBlocks(data []byte) [][BlockSize]byte {
	n := len(data) / BlockSize
	blocks := make([][BlockSize]byte, n)
	for i := 0; i < n; i++ {
		copy(blocks[i][:], data[i*BlockSize:(i+1)*BlockSize])
	}
	return blocks
}

// blocksToBytes concatenates blocks back into a flat byte slice.
func blocksToBytes(blocks [][BlockSize]byte) []byte {
	out := make([]byte, len(blocks)*BlockSize)
	for i, b := range blocks {
		copy(out[i*BlockSize:], b[:])
	}
	return out
}

