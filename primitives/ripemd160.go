package primitives

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for Avalanche/Bitcoin-style short addresses
)

// ShortAddressHash computes the standard UTXO-chain short-address digest:
// ripemd160(sha256(publicKey)). Used by Avalanche and Bitcoin-style chain
// families to derive a 20-byte address hash from a compressed public key.
func ShortAddressHash(publicKey []byte) Hash {
	sha := sha256.Sum256(publicKey)
	r := ripemd160.New()
	r.Write(sha[:])
	return Hash(r.Sum(nil))
}
