package model

import (
	"fmt"

	"github.com/Zilliqa/gozilliqa-sdk/bech32"
	"github.com/arcsign/walletkit/primitives"
	"github.com/gagliardetto/solana-go"
	"github.com/stellar/go/strkey"
	"blockwatch.cc/tzgo/tezos"
)

// AddressScheme discriminates between address encodings within one chain
// family (e.g. legacy vs segwit for Bitcoin-style chains, X-chain vs
// C-chain for Avalanche).
type AddressScheme string

const (
	SchemeBitcoinLegacy  AddressScheme = "btc-legacy"
	SchemeBitcoinSegwit  AddressScheme = "btc-segwit"
	SchemeEthereum       AddressScheme = "eth"
	SchemeAvalancheXChain AddressScheme = "avax-x"
	SchemeAvalancheCChain AddressScheme = "avax-c"
	SchemeTezos          AddressScheme = "xtz"
	SchemeSolana         AddressScheme = "sol"
	SchemeStellar        AddressScheme = "xlm"
	SchemeZilliqa        AddressScheme = "zil"
	SchemePolkadot       AddressScheme = "dot"
)

// Address is a sealed variant over chain families: the raw bytes plus a
// scheme discriminator. Equality is bit-exact *within* a variant; two
// addresses of different families or schemes are never equal even if their
// raw bytes coincide (spec.md §3).
type Address struct {
	Family ChainFamily
	Scheme AddressScheme
	Bytes  primitives.Hash
}

// Equal implements spec.md §3's address-equality invariant.
func (a Address) Equal(other Address) bool {
	return a.Family == other.Family && a.Scheme == other.Scheme && a.Bytes.Equal(other.Bytes)
}

// String renders the canonical textual form for the address's family and
// scheme. Every branch here round-trips through the matching
// AddressFromString constructor (spec.md §8 property 6).
func (a Address) String() string {
	s, err := a.encode()
	if err != nil {
		// encode fails for an Address whose bytes or scheme it cannot
		// render, for example one built by hand with the wrong byte length
		// for its scheme; a diagnostic placeholder is returned instead.
		return fmt.Sprintf("<invalid %s/%s address: %v>", a.Family, a.Scheme, err)
	}
	return s
}

func (a Address) encode() (string, error) {
	switch a.Scheme {
	case SchemeBitcoinLegacy:
		return a.Bytes.Base58Check(0x00), nil
	case SchemeEthereum:
		if len(a.Bytes) != 20 {
			return "", fmt.Errorf("ethereum address must be 20 bytes, got %d", len(a.Bytes))
		}
		return ethereumChecksumHex(a.Bytes), nil
	case SchemeAvalancheXChain:
		return primitives.Bech32WithSeparator("X", "avax", a.Bytes)
	case SchemeAvalancheCChain:
		return primitives.Bech32WithSeparator("C", "avax", a.Bytes)
	case SchemeTezos:
		hash, err := tezos.NewAddress(tezos.AddressTypeEd25519, a.Bytes).MarshalText()
		if err != nil {
			return "", err
		}
		return string(hash), nil
	case SchemeSolana:
		return solana.PublicKeyFromBytes(a.Bytes).String(), nil
	case SchemeStellar:
		return strkey.Encode(strkey.VersionByteAccountID, a.Bytes)
	case SchemeZilliqa:
		return bech32.Encode("zil", a.Bytes)
	default:
		return "", fmt.Errorf("unsupported address scheme %q", a.Scheme)
	}
}

// AddressFromString parses the canonical textual form for a given family
// and scheme back into bytes, the inverse of Address.String.
func AddressFromString(family ChainFamily, scheme AddressScheme, s string) (Address, error) {
	switch scheme {
	case SchemeBitcoinLegacy:
		_, payload, err := primitives.FromBase58Check(s)
		if err != nil {
			return Address{}, err
		}
		return Address{Family: family, Scheme: scheme, Bytes: payload}, nil
	case SchemeEthereum:
		b, err := ethereumHexToBytes(s)
		if err != nil {
			return Address{}, err
		}
		return Address{Family: family, Scheme: scheme, Bytes: b}, nil
	case SchemeAvalancheXChain:
		b, err := decodeAvalancheAddress("X-", s)
		if err != nil {
			return Address{}, err
		}
		return Address{Family: family, Scheme: scheme, Bytes: b}, nil
	case SchemeAvalancheCChain:
		b, err := decodeAvalancheAddress("C-", s)
		if err != nil {
			return Address{}, err
		}
		return Address{Family: family, Scheme: scheme, Bytes: b}, nil
	case SchemeTezos:
		addr, err := tezos.ParseAddress(s)
		if err != nil {
			return Address{}, err
		}
		return Address{Family: family, Scheme: scheme, Bytes: addr.Bytes()}, nil
	case SchemeZilliqa:
		_, data, err := bech32.Decode(s)
		if err != nil {
			return Address{}, err
		}
		return Address{Family: family, Scheme: scheme, Bytes: data}, nil
	case SchemeStellar:
		b, err := strkey.Decode(strkey.VersionByteAccountID, s)
		if err != nil {
			return Address{}, err
		}
		return Address{Family: family, Scheme: scheme, Bytes: b}, nil
	case SchemeSolana:
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return Address{}, err
		}
		return Address{Family: family, Scheme: scheme, Bytes: pk.Bytes()}, nil
	default:
		return Address{}, fmt.Errorf("unsupported address scheme %q for parsing", scheme)
	}
}

func decodeAvalancheAddress(prefix, s string) (primitives.Hash, error) {
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return nil, fmt.Errorf("model: avalanche address missing %q prefix: %s", prefix, s)
	}
	return primitives.FromBech32("avax", s[len(prefix):])
}
