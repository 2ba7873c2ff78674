package primitives

import (
	"bytes"
	"crypto/sha256"
	"fmt"
)

// CB58 is base58 with the last 4 bytes of a *single* SHA-256 appended as
// checksum — distinct from Base58Check, which double-hashes. Avalanche uses
// CB58 for every textual hash and node ID; see spec.md scenarios S1/S2.
func CB58Encode(payload []byte) string {
	sum := sha256.Sum256(payload)
	checksum := sum[len(sum)-4:]
	return base58Encode(append(append([]byte{}, payload...), checksum...))
}

// CB58Decode reverses CB58Encode, verifying the trailing checksum.
func CB58Decode(s string) ([]byte, error) {
	raw, err := base58Decode(s)
	if err != nil {
		return nil, fmt.Errorf("primitives: invalid CB58 string: %w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("primitives: CB58 payload too short")
	}
	body, checksum := raw[:len(raw)-4], raw[len(raw)-4:]
	sum := sha256.Sum256(body)
	want := sum[len(sum)-4:]
	if !bytes.Equal(checksum, want) {
		return nil, fmt.Errorf("primitives: CB58 checksum mismatch")
	}
	return body, nil
}

// CB58 renders the hash using CB58 (see CB58Encode).
func (h Hash) CB58() string {
	return CB58Encode(h)
}

// FromCB58 parses a CB58 string into a Hash.
func FromCB58(s string) (Hash, error) {
	b, err := CB58Decode(s)
	if err != nil {
		return nil, err
	}
	return Hash(b), nil
}
