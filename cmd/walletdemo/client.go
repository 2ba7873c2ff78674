package main

import (
	"go.uber.org/zap"

	"github.com/arcsign/walletkit/client"
)

// demoClient is a no-op stand-in for the host-implemented indexer/broadcast
// gateway (spec.md §1 places a concrete HTTP-backed client out of scope).
// It logs every call it receives and never calls back into the engine,
// since this demo has no real indexer to answer from.
type demoClient struct {
	log *zap.Logger
}

func newDemoClient(log *zap.Logger) *demoClient {
	return &demoClient{log: log}
}

func (c *demoClient) GetBlockNumber(state client.CallbackState) error {
	c.log.Debug("client: get-block-number", zap.Uint64("requestID", state.RequestID))
	return nil
}

func (c *demoClient) GetTransfers(state client.CallbackState, addresses []string, begBlock, endBlock uint64) error {
	c.log.Debug("client: get-transfers",
		zap.Uint64("requestID", state.RequestID),
		zap.Int("addresses", len(addresses)),
		zap.Uint64("begBlock", begBlock),
		zap.Uint64("endBlock", endBlock),
	)
	return nil
}

func (c *demoClient) GetTransactions(state client.CallbackState, addresses []string, begBlock, endBlock uint64) error {
	c.log.Debug("client: get-transactions",
		zap.Uint64("requestID", state.RequestID),
		zap.Int("addresses", len(addresses)),
		zap.Uint64("begBlock", begBlock),
		zap.Uint64("endBlock", endBlock),
	)
	return nil
}

func (c *demoClient) SubmitTransaction(state client.CallbackState, identifier string, serialization []byte) error {
	c.log.Info("client: submit-transaction", zap.String("identifier", identifier), zap.Int("bytes", len(serialization)))
	return nil
}

func (c *demoClient) EstimateTransactionFee(state client.CallbackState, serialization []byte, hashHex string) error {
	c.log.Debug("client: estimate-transaction-fee", zap.String("hash", hashHex), zap.Int("bytes", len(serialization)))
	return nil
}
