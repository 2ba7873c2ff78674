package ethhandler

import (
	"fmt"

	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// weiUnit builds the base (decimals=0) unit for currency, used whenever the
// network has no registered CurrencyAssociation for it yet.
func weiUnit(currency model.Currency) model.Unit {
	return model.NewBaseUnit(currency, "wei", "wei")
}

func unitsFor(handle *chainhandler.ManagerHandle, currency model.Currency) (unit, feeUnit model.Unit) {
	if assoc, ok := handle.Network.Association(currency.UIDS); ok {
		return assoc.DefaultUnit, assoc.BaseUnit
	}
	base := weiUnit(currency)
	return base, base
}

// CreateWallet builds a Wallet for currency and replays every preloaded
// transfer bundle into it. Ethereum transfers resolve one-to-one with the
// indexer's transfer bundles, so preloadedTransactions (the UTXO-style
// transaction-bundle path) is rejected rather than silently ignored.
func (h *Handler) CreateWallet(handle *chainhandler.ManagerHandle, currency model.Currency, preloadedTransactions []model.TransactionBundle, preloadedTransfers []model.TransferBundle) (*model.Wallet, error) {
	if len(preloadedTransactions) > 0 {
		return nil, chainhandler.NewHandlerError("ERR_UNSUPPORTED_BUNDLE", "ethhandler: ethereum wallets are recovered from transfer bundles, not transaction bundles", chainhandler.ClassNonRetryable, nil)
	}

	unit, feeUnit := unitsFor(handle, currency)
	wallet := model.NewWallet(currency, unit, feeUnit, handle.Account)

	for _, bundle := range preloadedTransfers {
		transfer, err := h.RecoverTransferFromTransferBundle(handle, wallet, bundle)
		if err != nil {
			return nil, err
		}
		if err := wallet.AddOwnedTransfer(transfer); err != nil {
			return nil, chainhandler.NewHandlerError("ERR_WALLET_REPLAY", "ethhandler: replaying preloaded transfer", chainhandler.ClassNonRetryable, err)
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
		return chainhandler.NewHandlerError("ERR_NO_FILE_SERVICE", fmt.Sprintf("ethhandler: no file service registered for currency %q", bundle.Currency), chainhandler.ClassFileService, nil)
	}
	if err := svc.Save(transferBundleTypeName, bundle); err != nil {
		return chainhandler.NewHandlerError("ERR_FILE_SERVICE", "ethhandler: saving transfer bundle", chainhandler.ClassFileService, err)
	}
	return nil
}

// SaveTransactionBundle persists the indexer's raw transaction report under
// the network's native currency, even though this handler never recovers
// transfers from it (Ethereum resolves balance from transfer bundles only).
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
		return chainhandler.NewHandlerError("ERR_NO_FILE_SERVICE", fmt.Sprintf("ethhandler: no file service registered for native currency %q", native), chainhandler.ClassFileService, nil)
	}
	if err := svc.Save(transactionBundleTypeName, bundle); err != nil {
		return chainhandler.NewHandlerError("ERR_FILE_SERVICE", "ethhandler: saving transaction bundle", chainhandler.ClassFileService, err)
	}
	return nil
}

// RecoverTransfersFromTransactionBundle is the UTXO-style recovery path
// (spec.md op 12); Ethereum is account-based and resolves transfers through
// RecoverTransferFromTransferBundle instead.
func (h *Handler) RecoverTransfersFromTransactionBundle(handle *chainhandler.ManagerHandle, wallet *model.Wallet, bundle model.TransactionBundle) ([]*model.Transfer, error) {
	return nil, chainhandler.NewHandlerError("ERR_UNSUPPORTED_BUNDLE", "ethhandler: ethereum does not recover transfers from transaction bundles", chainhandler.ClassNonRetryable, nil)
}

// forwardStates is the transfer state machine's monotone progression
// (model.TransferState's doc comment), used to replay an indexer-reported
// state onto a freshly materialized Created transfer one step at a time.
var forwardStates = []model.TransferStateKind{
	model.TransferStateCreated,
	model.TransferStateSigned,
	model.TransferStateSubmitted,
	model.TransferStateIncluded,
}

func advanceTransferTo(t *model.Transfer, target model.TransferState) error {
	if target.Kind == model.TransferStateErrored || target.Kind == model.TransferStateDeleted {
		return t.SetState(target)
	}
	targetIdx := -1
	for i, k := range forwardStates {
		if k == target.Kind {
			targetIdx = i
		}
	}
	if targetIdx < 0 {
		return fmt.Errorf("ethhandler: unknown transfer state %q", target.Kind)
	}
	for i := 1; i <= targetIdx; i++ {
		step := model.TransferState{Kind: forwardStates[i]}
		if forwardStates[i] == target.Kind {
			step = target
		}
		if err := t.SetState(step); err != nil {
			return err
		}
	}
	return nil
}

// RecoverTransferFromTransferBundle materializes one Transfer from the
// indexer's reported fields (spec.md op 13), deriving direction from
// whether the manager's account controls the source or target address.
func (h *Handler) RecoverTransferFromTransferBundle(handle *chainhandler.ManagerHandle, wallet *model.Wallet, bundle model.TransferBundle) (*model.Transfer, error) {
	source, err := model.AddressFromString(model.ChainFamilyEthereum, model.SchemeEthereum, bundle.Source)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: parsing source address", chainhandler.ClassParse, err)
	}
	target, err := model.AddressFromString(model.ChainFamilyEthereum, model.SchemeEthereum, bundle.Target)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: parsing target address", chainhandler.ClassParse, err)
	}

	amountValue, err := primitives.Int256FromDecimal(bundle.Amount)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: parsing amount", chainhandler.ClassParse, err)
	}
	amount, err := model.NewAmount(wallet.Currency, wallet.Unit, amountValue)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: building amount", chainhandler.ClassParse, err)
	}

	feeValue, err := primitives.Int256FromDecimal(bundle.Fee)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: parsing fee", chainhandler.ClassParse, err)
	}
	feeAmount, err := model.NewAmount(wallet.Currency, wallet.FeeUnit, feeValue)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: building fee amount", chainhandler.ClassParse, err)
	}
	basis := flatGasFeeBasis(feeAmount)

	account, ok := handle.Account, handle.Account != nil
	var direction model.TransferDirection
	switch {
	case ok && account.HasAddress(source):
		direction = model.DirectionSent
	case ok && account.HasAddress(target):
		direction = model.DirectionReceived
	default:
		return nil, chainhandler.NewHandlerError("ERR_UNOWNED_TRANSFER", "ethhandler: transfer bundle involves neither of the account's addresses", chainhandler.ClassNonRetryable, nil)
	}

	transfer := model.NewTransfer(source, target, amount, direction, basis)
	transfer.UIDS = bundle.UIDS
	transfer.Hash = bundle.Hash
	for _, a := range bundle.Attributes {
		transfer.Attributes = append(transfer.Attributes, model.TransferAttribute{Key: a.Key, Value: a.Value})
	}

	state := model.TransferState{Kind: model.TransferStateKind(bundle.TransferStateType)}
	if state.Kind == model.TransferStateIncluded {
		state.IncludedBlockNumber = bundle.BlockNumber
		state.IncludedIndex = bundle.Index
		state.IncludedTimestamp = bundle.Timestamp
		state.IncludedSuccess = true
		confirmed := basis
		transfer.ConfirmedFeeBasis = &confirmed
	}
	if err := advanceTransferTo(transfer, state); err != nil {
		return nil, chainhandler.NewHandlerError("ERR_BAD_STATE", "ethhandler: replaying transfer state", chainhandler.ClassNonRetryable, err)
	}

	return transfer, nil
}

// flatGasFeeBasis represents an indexer-reported flat fee as a degenerate
// gas-kind basis (limit=1, price=fee) since a transfer bundle only ever
// carries the already-settled total, not the limit/price split a live
// estimate would have.
func flatGasFeeBasis(fee model.Amount) model.FeeBasis {
	return model.NewGasFeeBasis(primitives.Int256FromInt64(1), fee)
}
