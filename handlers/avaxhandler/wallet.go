package avaxhandler

import (
	"fmt"

	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
)

// CreateWallet builds a Wallet for currency. Avalanche resolves transfers
// from transaction bundles, not transfer bundles, so preloadedTransfers is
// rejected the same way ethhandler rejects the opposite shape.
func (h *Handler) CreateWallet(handle *chainhandler.ManagerHandle, currency model.Currency, preloadedTransactions []model.TransactionBundle, preloadedTransfers []model.TransferBundle) (*model.Wallet, error) {
	if len(preloadedTransfers) > 0 {
		return nil, chainhandler.NewHandlerError("ERR_UNSUPPORTED_BUNDLE", "avaxhandler: avalanche wallets are recovered from transaction bundles, not transfer bundles", chainhandler.ClassNonRetryable, nil)
	}

	unit, feeUnit := unitsFor(handle, currency)
	wallet := model.NewWallet(currency, unit, feeUnit, handle.Account)

	for _, bundle := range preloadedTransactions {
		transfers, err := h.RecoverTransfersFromTransactionBundle(handle, wallet, bundle)
		if err != nil {
			return nil, err
		}
		for _, transfer := range transfers {
			if err := wallet.AddOwnedTransfer(transfer); err != nil {
				return nil, chainhandler.NewHandlerError("ERR_WALLET_REPLAY", "avaxhandler: replaying preloaded transaction", chainhandler.ClassNonRetryable, err)
			}
		}
	}
	return wallet, nil
}

func (h *Handler) SaveTransferBundle(handle *chainhandler.ManagerHandle, bundle model.TransferBundle) error {
	state, err := managerStateOf(handle)
	if err != nil {
		return err
	}
	state.mu.Lock()
	svc, ok := state.fileServices[bundle.Currency]
	state.mu.Unlock()
	if !ok {
		return chainhandler.NewHandlerError("ERR_NO_FILE_SERVICE", fmt.Sprintf("avaxhandler: no file service registered for currency %q", bundle.Currency), chainhandler.ClassFileService, nil)
	}
	if err := svc.Save(transferBundleTypeName, bundle); err != nil {
		return chainhandler.NewHandlerError("ERR_FILE_SERVICE", "avaxhandler: saving transfer bundle", chainhandler.ClassFileService, err)
	}
	return nil
}

func (h *Handler) SaveTransactionBundle(handle *chainhandler.ManagerHandle, bundle model.TransactionBundle) error {
	state, err := managerStateOf(handle)
	if err != nil {
		return err
	}
	native := handle.Network.NativeCurrency.UIDS
	state.mu.Lock()
	svc, ok := state.fileServices[native]
	state.mu.Unlock()
	if !ok {
		return chainhandler.NewHandlerError("ERR_NO_FILE_SERVICE", fmt.Sprintf("avaxhandler: no file service registered for native currency %q", native), chainhandler.ClassFileService, nil)
	}
	if err := svc.Save(transactionBundleTypeName, bundle); err != nil {
		return chainhandler.NewHandlerError("ERR_FILE_SERVICE", "avaxhandler: saving transaction bundle", chainhandler.ClassFileService, err)
	}
	return nil
}
