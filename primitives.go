// primitives.go - SHAKE256, the ChaCha20 PRNG, HMAC-SHA256, and
// constant-time comparison. Key-material derivations in this package go
// through shake256Domain, except the few whose input layout it cannot
// build (the CTR counter hash, the selector-ordering seed, and the block
// keystream), which call shake256 directly.
package ruc

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// shake256 reads dlen bytes of SHAKE256 output from input.
func shake256(input []byte, dlen int) []byte {
	out := make([]byte, dlen)
	h := sha3.NewShake256()
	h.Write(input)
	h.Read(out)
	return out
}

// shake256Domain computes SHAKE256(key || domain || index, dlen), where
// index is encoded big-endian at the given byte width (2 or 8, per the
// receiving domain's contract). Pass idxWidth 0 to omit the index.
func shake256Domain(key []byte, domain string, index uint64, idxWidth int, dlen int) []byte {
	buf := make([]byte, 0, len(key)+len(domain)+idxWidth)
	buf = append(buf, key...)
	buf = append(buf, domain...)
	switch idxWidth {
	case 2:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(index))
		buf = append(buf, b[:]...)
	case 8:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], index)
		buf = append(buf, b[:]...)
	case 0:
		// no index
	default:
		panic("ruc: unsupported SHAKE256 index width")
	}
	return shake256(buf, dlen)
}

// hmacSHA256 computes HMAC-SHA256(key, data).
func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// constantTimeEqual reports whether a and b are equal, in time
// independent of where they first differ. Differing lengths return false
// immediately; length itself is not considered secret.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// chacha20 state constants ("expand 32-byte k"). Grounded on the public-domain
// skeeto/chacha-go reference block function, adapted to the IETF layout
// (96-bit nonce, 32-bit block counter at word 12) this PRNG needs.
const (
	chachaConst0 = 0x61707865 // "expa"
	chachaConst1 = 0x3320646e // "nd 3"
	chachaConst2 = 0x79622d32 // "2-by"
	chachaConst3 = 0x6b206574 // "te k"
)

// chacha20PRNG is a deterministic keystream generator seeded by a 32-byte
// key and an optional 12-byte nonce, used throughout key expansion and the
// per-block selector ordering. It is not a general-purpose stream cipher:
// callers only ever consume its output as pseudorandom bytes/words.
type chacha20PRNG struct {
	state  [16]uint32
	block  [64]byte
	offset int // next unread byte in block; 64 means block is exhausted
}

// newChaCha20PRNG seeds a PRNG from a 32-byte key and an optional 12-byte
// nonce (a nil nonce is all zero; a shorter one is zero-padded on the
// right).
func newChaCha20PRNG(key []byte, nonce []byte) *chacha20PRNG {
	if len(key) != 32 {
		panic("ruc: chacha20 PRNG requires a 32-byte key")
	}
	var n [12]byte
	copy(n[:], nonce)

	c := &chacha20PRNG{}
	c.state[0] = chachaConst0
	c.state[1] = chachaConst1
	c.state[2] = chachaConst2
	c.state[3] = chachaConst3
	for i := 0; i < 8; i++ {
		c.state[4+i] = binary.LittleEndian.Uint32(key[i*4:])
	}
	c.state[12] = 0 // block counter
	c.state[13] = binary.LittleEndian.Uint32(n[0:4])
	c.state[14] = binary.LittleEndian.Uint32(n[4:8])
	c.state[15] = binary.LittleEndian.Uint32(n[8:12])
	c.offset = 64 // force generation of the first block on first read
	return c
}

func rotl32(x uint32, n uint) uint32 {
	return (x << n) | (x >> (32 - n))
}

func quarterRound(a, b, c, d *uint32) {
	*a += *b
	*d ^= *a
	*d = rotl32(*d, 16)
	*c += *d
	*b ^= *c
	*b = rotl32(*b, 12)
	*a += *b
	*d ^= *a
	*d = rotl32(*d, 8)
	*c += *d
	*b ^= *c
	*b = rotl32(*b, 7)
}

// nextBlock runs the 20-round (10 double-round) ChaCha20 block function
// and refills c.block, then increments the counter.
func (c *chacha20PRNG) nextBlock() {
	var x [16]uint32
	copy(x[:], c.state[:])

	for i := 0; i < 10; i++ {
		// column rounds
		quarterRound(&x[0], &x[4], &x[8], &x[12])
		quarterRound(&x[1], &x[5], &x[9], &x[13])
		quarterRound(&x[2], &x[6], &x[10], &x[14])
		quarterRound(&x[3], &x[7], &x[11], &x[15])
		// diagonal rounds
		quarterRound(&x[0], &x[5], &x[10], &x[15])
		quarterRound(&x[1], &x[6], &x[11], &x[12])
		quarterRound(&x[2], &x[7], &x[8], &x[13])
		quarterRound(&x[3], &x[4], &x[9], &x[14])
	}

	for i := 0; i < 16; i++ {
		x[i] += c.state[i]
		binary.LittleEndian.PutUint32(c.block[i*4:], x[i])
	}

	c.state[12]++
	c.offset = 0
}

// NextBytes returns n pseudorandom bytes.
func (c *chacha20PRNG) NextBytes(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		if c.offset >= 64 {
			c.nextBlock()
		}
		out[i] = c.block[c.offset]
		c.offset++
	}
	return out
}

// NextU32 returns the next pseudorandom 32-bit word, little-endian over
// the underlying byte stream (consistent with the ChaCha20 block layout).
func (c *chacha20PRNG) NextU32() uint32 {
	b := c.NextBytes(4)
	return binary.LittleEndian.Uint32(b)
}

// NextInt returns a uniform pseudorandom value in [0, max) using rejection
// sampling, so the result is not biased toward small remainders the way a
// plain modulo would be. max must be > 0.
func (c *chacha20PRNG) NextInt(max uint32) uint32 {
	if max == 0 {
		panic("ruc: NextInt requires max > 0")
	}
	// Largest multiple of max that fits in uint32; values drawn above it
	// are rejected and redrawn to remove modulo bias.
	limit := (^uint32(0) / max) * max
	for {
		v := c.NextU32()
		if v < limit {
			return v % max
		}
	}
}
