package primitives

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32 renders the hash with an explicit human-readable prefix. Both
// Avalanche ("avax1...") and Zilliqa ("zil1...") addresses are bech32 with
// a 5-bit regrouped payload and no witness-version byte (unlike Bitcoin's
// segwit bech32, which the chainadapter teacher wraps separately in
// bitcoin/derive.go for P2WPKH); this helper is the plain form both of
// those chains use.
func (h Hash) Bech32(hrp string) (string, error) {
	converted, err := bech32.ConvertBits(h, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("primitives: bech32 bit conversion failed: %w", err)
	}
	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("primitives: bech32 encode failed: %w", err)
	}
	return encoded, nil
}

// FromBech32 decodes a bech32 string, verifying the human-readable prefix
// matches the expected one, and returns the underlying hash bytes.
func FromBech32(expectedHRP, s string) (Hash, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("primitives: invalid bech32 string: %w", err)
	}
	if hrp != expectedHRP {
		return nil, fmt.Errorf("primitives: bech32 hrp mismatch: got %q, want %q", hrp, expectedHRP)
	}
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("primitives: bech32 bit conversion failed: %w", err)
	}
	return Hash(converted), nil
}

// Bech32WithSeparator mirrors the "X-avax1..." / "C-avax1..." chain-prefix
// convention used by Avalanche's multi-chain addressing (see spec.md
// scenario S3): it prepends a literal chain-letter and hyphen ahead of the
// bech32 string proper.
func Bech32WithSeparator(chainLetter, hrp string, h Hash) (string, error) {
	encoded, err := h.Bech32(hrp)
	if err != nil {
		return "", err
	}
	return chainLetter + "-" + encoded, nil
}
