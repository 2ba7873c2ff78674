package tezoshandler

import (
	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
)

// ValidateSweeperSupported always reports unsupported: Tezos is
// account-based, and the original never builds a sweeper for it
// (WK_WALLET_SWEEPER_UNSUPPORTED_CURRENCY).
func (h *Handler) ValidateSweeperSupported(handle *chainhandler.ManagerHandle, importedKeyFamily model.ChainFamily) chainhandler.SweeperSupport {
	return chainhandler.SweeperSupport{
		Supported: false,
		Reason:    "tezos is account-based; empty-balance sweep applies only to UTXO-style chains",
	}
}

func (h *Handler) CreateSweeper(handle *chainhandler.ManagerHandle, wallet *model.Wallet, importedKey account.Keypair) (chainhandler.Sweeper, error) {
	return nil, chainhandler.NewHandlerError("ERR_SWEEP_UNSUPPORTED", "tezoshandler: tezos does not support sweep", chainhandler.ClassNonRetryable, nil)
}
