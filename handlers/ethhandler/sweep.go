package ethhandler

import (
	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
)

// ValidateSweeperSupported reports that Ethereum never supports sweep:
// sweep moves every UTXO controlled by an imported key into the wallet's
// own addresses, a notion specific to UTXO-style chains (spec.md op 15).
// An account-based chain has nothing to enumerate — the imported key's
// balance is just sent with an ordinary transfer.
func (h *Handler) ValidateSweeperSupported(handle *chainhandler.ManagerHandle, importedKeyFamily model.ChainFamily) chainhandler.SweeperSupport {
	return chainhandler.SweeperSupport{
		Supported: false,
		Reason:    "ethereum is account-based; empty-balance sweep applies only to UTXO-style chains",
	}
}

func (h *Handler) CreateSweeper(handle *chainhandler.ManagerHandle, wallet *model.Wallet, importedKey account.Keypair) (chainhandler.Sweeper, error) {
	return nil, chainhandler.NewHandlerError("ERR_SWEEP_UNSUPPORTED", "ethhandler: ethereum does not support sweep", chainhandler.ClassNonRetryable, nil)
}
