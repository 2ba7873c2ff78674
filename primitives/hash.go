// Package primitives provides the chain-agnostic value types shared by every
// higher layer of walletkit: opaque hashes, fixed-width integers, and the
// textual codecs (hex, base58check, CB58, bech32) that chain families use to
// render those bytes for humans.
package primitives

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash is an opaque byte string. Chains use 20 bytes (address-style hashes),
// 32 bytes (most block/tx hashes) or 34 bytes (CB58-checksummed handles);
// the length itself carries no semantics beyond what the caller expects.
type Hash []byte

// Equal reports bit-exact equality. Two hashes of different length are
// never equal, even if one is a prefix of the other.
func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h, other)
}

// Sum folds the hash into a uint64 suitable for use as a map key alongside
// Equal, matching the "hash-dispatched sets" note in spec.md §9: callers
// that need associative lookup key on Hex() directly (a string), and this
// method exists only for callers building a custom bucketed set.
func (h Hash) Sum() uint64 {
	var sum uint64
	for i, b := range h {
		sum ^= uint64(b) << uint((8*i)%56)
	}
	return sum
}

// Hex renders the hash as lowercase hex with no prefix.
func (h Hash) Hex() string {
	return hex.EncodeToString(h)
}

// HashFromHex parses a lowercase-or-uppercase hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("primitives: invalid hex hash: %w", err)
	}
	return Hash(b), nil
}

// Base58Check renders the hash as Bitcoin-style base58check: a version byte
// prefix, the payload, and the first 4 bytes of double-SHA256 as checksum.
func (h Hash) Base58Check(version byte) string {
	payload := append([]byte{version}, h...)
	checksum := doubleSHA256(payload)[:4]
	return base58Encode(append(payload, checksum...))
}

// FromBase58Check decodes a base58check string, verifying the checksum and
// returning the version byte and payload separately.
func FromBase58Check(s string) (version byte, payload Hash, err error) {
	raw, err := base58Decode(s)
	if err != nil {
		return 0, nil, fmt.Errorf("primitives: invalid base58check: %w", err)
	}
	if len(raw) < 5 {
		return 0, nil, fmt.Errorf("primitives: base58check payload too short")
	}
	body, checksum := raw[:len(raw)-4], raw[len(raw)-4:]
	want := doubleSHA256(body)[:4]
	if !bytes.Equal(checksum, want) {
		return 0, nil, fmt.Errorf("primitives: base58check checksum mismatch")
	}
	return body[0], Hash(body[1:]), nil
}

func doubleSHA256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}
