package model

// BundleAttribute is one unordered (key, value) pair carried on a bundle.
type BundleAttribute struct {
	Key   string
	Value string
}

// TransferBundle is the indexer's report of one transfer: every field is a
// string as received over the wire, left for the chain handler to parse
// into the strongly-typed Transfer/Amount/Address values (spec.md §3).
// Bundles are, alongside raw serialized transactions for UTXO chains, the
// only unit the file service persists.
type TransferBundle struct {
	UIDS   string
	Hash   string

	Source   string
	Target   string
	Amount   string
	Currency string
	Fee      string

	BlockNumber   uint64
	Timestamp     uint64
	Confirmations uint64
	Index         uint64
	BlockHash     string

	TransferStateType string
	Attributes        []BundleAttribute
}

// TransactionBundle is the indexer's report of one serialized transaction,
// used by UTXO-style chains where one broadcast transaction resolves
// several transfers at once (spec.md §3, §4.3 op 12
// "recover-transfers-from-transaction-bundle").
type TransactionBundle struct {
	Hash string

	BlockNumber   uint64
	Timestamp     uint64
	Confirmations uint64
	BlockHash     string

	Status string // e.g. "confirmed", "pending", "rejected"

	Raw []byte // the raw serialized transaction, as the indexer reported it
}
