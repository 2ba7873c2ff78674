package avaxhandler

import (
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// DeriveAddresses is this chain's account.AddressDeriver: an X-chain
// address is RIPEMD160(SHA256(compressed public key)), the standard
// Bitcoin-style short address hash Avalanche's X-chain reuses.
func DeriveAddresses(publicKey []byte) ([]model.Address, error) {
	hash := primitives.ShortAddressHash(publicKey)
	var out [20]byte
	copy(out[:], hash)
	return []model.Address{modelAddress(model.ChainFamilyAvalanche, model.SchemeAvalancheXChain, out)}, nil
}
