package ethhandler

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arcsign/walletkit/model"
)

// DeriveAddresses is this chain's account.AddressDeriver: an Ethereum
// address is the low 20 bytes of Keccak256(uncompressed public key)
// (go-ethereum's crypto.PubkeyToAddress), applied to the compressed
// secp256k1 key bip32 derivation hands back.
func DeriveAddresses(publicKey []byte) ([]model.Address, error) {
	pub, err := crypto.DecompressPubkey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("ethhandler: decompressing public key: %w", err)
	}
	addr := crypto.PubkeyToAddress(*pub)
	return []model.Address{{
		Family: model.ChainFamilyEthereum,
		Scheme: model.SchemeEthereum,
		Bytes:  append([]byte(nil), addr.Bytes()...),
	}}, nil
}
