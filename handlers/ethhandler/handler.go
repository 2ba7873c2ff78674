// Package ethhandler implements chainhandler.ChainHandler for the Ethereum
// chain family: an account-based, gas-metered chain with API-only sync
// (no embedded P2P client), grounded on the teacher's
// src/chainadapter/ethereum/{adapter,builder,derive,fee,signer}.go.
package ethhandler

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/fileservice"
	"github.com/arcsign/walletkit/model"
)

// chainIDs maps a Network.UIDS to its Ethereum numeric chain id, mirroring
// the teacher's NewEthereumAdapter chainID-from-networkID switch.
var chainIDs = map[string]int64{
	"ethereum-mainnet": 1,
	"ethereum-goerli":  5,
	"ethereum-sepolia": 11155111,
}

// managerState is the private Impl a ManagerHandle carries between
// CreateManager and ReleaseManager: the resolved numeric chain id, a
// per-address nonce counter (op 13's "update wallet balance and nonce"),
// and one file service per currency this manager has been asked to persist.
type managerState struct {
	chainID int64

	mu            sync.Mutex
	nonces        map[string]uint64
	fileServices  map[string]*fileservice.Service
}

// Handler implements chainhandler.ChainHandler for Ethereum.
type Handler struct{}

// New constructs an Ethereum chain handler.
func New() *Handler { return &Handler{} }

func (h *Handler) Family() model.ChainFamily { return model.ChainFamilyEthereum }

// CreateManager resolves the network's numeric chain id and allocates the
// handler's private per-manager state.
func (h *Handler) CreateManager(cfg chainhandler.ManagerConfig) (*chainhandler.ManagerHandle, error) {
	chainID, ok := chainIDs[cfg.Network.UIDS]
	if !ok {
		return nil, chainhandler.NewHandlerError("ERR_UNKNOWN_NETWORK", fmt.Sprintf("ethhandler: unrecognized network %q", cfg.Network.UIDS), chainhandler.ClassNonRetryable, nil)
	}
	return &chainhandler.ManagerHandle{
		Family:  model.ChainFamilyEthereum,
		Account: cfg.Account,
		Network: cfg.Network,
		Impl: &managerState{
			chainID:      chainID,
			nonces:       make(map[string]uint64),
			fileServices: make(map[string]*fileservice.Service),
		},
	}, nil
}

func (h *Handler) ReleaseManager(handle *chainhandler.ManagerHandle) error {
	return nil
}

// CreateFileService registers the bundle types this handler persists and
// caches the resulting service under currencyName for reuse by
// SaveTransactionBundle/SaveTransferBundle.
func (h *Handler) CreateFileService(handle *chainhandler.ManagerHandle, basePath, currencyName, networkName string) (chainhandler.FileServiceHandle, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return nil, err
	}

	svc := fileservice.New(basePath, currencyName, networkName)
	if err := svc.RegisterType(transferBundleType()); err != nil {
		return nil, chainhandler.NewHandlerError("ERR_FILE_SERVICE", "registering transfer-bundle type", chainhandler.ClassFileService, err)
	}
	if err := svc.RegisterType(transactionBundleType()); err != nil {
		return nil, chainhandler.NewHandlerError("ERR_FILE_SERVICE", "registering transaction-bundle type", chainhandler.ClassFileService, err)
	}

	state.mu.Lock()
	state.fileServices[currencyName] = svc
	state.mu.Unlock()

	return svc, nil
}

// EventTypes describes the sync-driven event kinds this handler's polling
// loop produces; Ethereum has no P2P layer, so every event originates from
// an indexer reply.
func (h *Handler) EventTypes() []chainhandler.EventDescriptor {
	return []chainhandler.EventDescriptor{
		{Name: "block-height-changed", Description: "the indexer reported a new chain height"},
		{Name: "transfer-recovered", Description: "a transfer bundle was recovered from the indexer"},
		{Name: "fee-estimate-ready", Description: "a queued estimate-fee-basis round trip completed"},
	}
}

// CreateP2PManager returns none: Ethereum in this module is API-only
// (spec.md op 5: "returns none for API-only chains").
func (h *Handler) CreateP2PManager(handle *chainhandler.ManagerHandle) (chainhandler.P2PManagerHandle, error) {
	return nil, nil
}

func managerStateOf(handle *chainhandler.ManagerHandle) (*managerState, error) {
	state, ok := handle.Impl.(*managerState)
	if !ok {
		return nil, chainhandler.NewHandlerError("ERR_BAD_HANDLE", "ethhandler: manager handle was not created by this handler", chainhandler.ClassNonRetryable, nil)
	}
	return state, nil
}

// ethereumAddress renders a primitives.Hash-backed model.Address as a
// go-ethereum common.Address, validating its length.
func ethereumAddress(addr model.Address) (common.Address, error) {
	if len(addr.Bytes) != 20 {
		return common.Address{}, fmt.Errorf("ethhandler: address must be 20 bytes, got %d", len(addr.Bytes))
	}
	var out common.Address
	copy(out[:], addr.Bytes)
	return out, nil
}
