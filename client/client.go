// Package client declares the host-implemented callback interface the
// sync engine and submit path dispatch through (spec.md §1: "the host
// client callbacks for HTTP to the indexer" is out of scope for this
// module — only the interface is specified here). A concrete HTTP-backed
// implementation lives outside this module.
package client

import "math"

// UnboundedEndBlock is the sentinel passed as endBlock to GetTransactions
// for an unbounded request (spec.md §6: "endBlock may be the sentinel
// u64::MAX for unbounded").
const UnboundedEndBlock = uint64(math.MaxUint64)

// CallbackState carries the originating request id (rid) and whatever
// per-request shape data the sync engine needs to match a reply back to
// its request, across the asynchronous boundary to the host's indexer
// client and back through the matching Announce* call.
type CallbackState struct {
	RequestID uint64
	Addresses []string // the address set the request was issued for
}

// Client is the host-implemented indexer/broadcast gateway. Every method
// is fire-and-forget from the manager's point of view: once the HTTP round
// trip completes, the host delivers the reply asynchronously, carrying the
// same CallbackState back — block-number and bundle replies through
// syncengine.Engine's PostAnnounce* methods, a submit outcome through
// walletmanager.Manager.HandleSubmitReply. No reply entry point exists for
// EstimateTransactionFee. The manager never blocks waiting on these calls.
type Client interface {
	GetBlockNumber(state CallbackState) error
	GetTransfers(state CallbackState, addresses []string, begBlock, endBlock uint64) error
	GetTransactions(state CallbackState, addresses []string, begBlock, endBlock uint64) error
	SubmitTransaction(state CallbackState, identifier string, serialization []byte) error
	EstimateTransactionFee(state CallbackState, serialization []byte, hashHex string) error
}
