// Package model holds the semantic value types shared across every chain
// family: currencies, units, amounts, addresses, networks, fee bases,
// transfers, wallets, and the indexer bundle shapes those last two are
// recovered from.
package model

// ChainFamily tags which protocol shape an Address/Network/FeeBasis
// belongs to. New chain families are added at build time (spec.md §9:
// "chains register through a build-time enumeration, not at runtime") by
// extending this const block and the chainhandler.Registry that maps each
// tag to a handler.
type ChainFamily string

const (
	ChainFamilyBitcoin   ChainFamily = "bitcoin"
	ChainFamilyEthereum  ChainFamily = "ethereum"
	ChainFamilyAvalanche ChainFamily = "avalanche"
	ChainFamilyTezos     ChainFamily = "tezos"
	ChainFamilySolana    ChainFamily = "solana"
	ChainFamilyStellar   ChainFamily = "stellar"
	ChainFamilyZilliqa   ChainFamily = "zilliqa"
	ChainFamilyPolkadot  ChainFamily = "polkadot"
)

// CurrencyType distinguishes a chain's native asset from a token embedded
// in another chain (an ERC-20, an Avalanche ANT, etc).
type CurrencyType string

const (
	CurrencyTypeNative CurrencyType = "native"
	CurrencyTypeToken  CurrencyType = "token"
)

// Currency identifies a unit of value. Currencies with a non-empty Issuer
// represent a token embedded in another chain's native ledger (spec.md §3).
type Currency struct {
	UIDS   string // stable identifier, e.g. "ethereum-mainnet:eth" or an ERC-20 contract address
	Name   string
	Code   string // ticker, e.g. "ETH", "AVAX"
	Type   CurrencyType
	Issuer string // chain-family address of the issuing contract/account; empty for native currencies
}

// IsToken reports whether this currency is issued on another chain rather
// than being that chain's native asset.
func (c Currency) IsToken() bool {
	return c.Type == CurrencyTypeToken && c.Issuer != ""
}

// Equal compares currencies by identity (UIDS), not by value.
func (c Currency) Equal(other Currency) bool {
	return c.UIDS == other.UIDS
}
