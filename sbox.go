// sbox.go - key-derived S-box generation.
//
// Each round's S-box is an identity permutation of {0..255} shuffled by a
// SHAKE256-driven Fisher-Yates pass, so every key and round number
// produces one fixed, bijective substitution table.
package ruc

import "encoding/binary"

// generateSBox builds the round-r S-box for the given master key.
func generateSBox(key []byte, round int) [256]byte {
	var sbox [256]byte
	for i := range sbox {
		sbox[i] = byte(i)
	}

	// One Fisher-Yates swap needs 2 bytes of randomness; 255 swaps
	// (indices 255 down to 1) need 510 bytes, drawn from one SHAKE256
	// stream.
	randomness := shake256Domain(key, domainSBox, uint64(round), 2, 510)

	for i := 255; i > 0; i-- {
		rangeSize := i + 1
		idxBytes := randomness[(255-i)*2 : (255-i)*2+2]
		r := int(binary.BigEndian.Uint16(idxBytes)) % rangeSize
		sbox[i], sbox[r] = sbox[r], sbox[i]
	}

	return sbox
}

// isBijective reports whether sbox is a permutation of {0..255}.
func isBijective(sbox [256]byte) bool {
	var seen [256]bool
	for _, v := range sbox {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
