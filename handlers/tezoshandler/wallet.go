package tezoshandler

import (
	"fmt"

	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// mutezUnit builds the base (decimals=0) unit for currency, used whenever
// the network has no registered CurrencyAssociation for it yet.
func mutezUnit(currency model.Currency) model.Unit {
	return model.NewBaseUnit(currency, "mutez", "mutez")
}

func unitsFor(handle *chainhandler.ManagerHandle, currency model.Currency) (unit, feeUnit model.Unit) {
	if assoc, ok := handle.Network.Association(currency.UIDS); ok {
		return assoc.DefaultUnit, assoc.BaseUnit
	}
	base := mutezUnit(currency)
	return base, base
}

// CreateWallet builds a Wallet for currency and replays every preloaded
// transfer bundle into it. Tezos transfers resolve one-to-one with the
// indexer's transfer bundles (wkWalletManagerRecoverTransfersFromTransferBundlesXTZ),
// so preloadedTransactions is rejected the same way ethhandler rejects it.
func (h *Handler) CreateWallet(handle *chainhandler.ManagerHandle, currency model.Currency, preloadedTransactions []model.TransactionBundle, preloadedTransfers []model.TransferBundle) (*model.Wallet, error) {
	if len(preloadedTransactions) > 0 {
		return nil, chainhandler.NewHandlerError("ERR_UNSUPPORTED_BUNDLE", "tezoshandler: tezos wallets are recovered from transfer bundles, not transaction bundles", chainhandler.ClassNonRetryable, nil)
	}

	unit, feeUnit := unitsFor(handle, currency)
	wallet := model.NewWallet(currency, unit, feeUnit, handle.Account)

	for _, bundle := range preloadedTransfers {
		transfer, err := h.RecoverTransferFromTransferBundle(handle, wallet, bundle)
		if err != nil {
			return nil, err
		}
		if err := wallet.AddOwnedTransfer(transfer); err != nil {
			return nil, chainhandler.NewHandlerError("ERR_WALLET_REPLAY", "tezoshandler: replaying preloaded transfer", chainhandler.ClassNonRetryable, err)
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
		return chainhandler.NewHandlerError("ERR_NO_FILE_SERVICE", fmt.Sprintf("tezoshandler: no file service registered for currency %q", bundle.Currency), chainhandler.ClassFileService, nil)
	}
	if err := svc.Save(transferBundleTypeName, bundle); err != nil {
		return chainhandler.NewHandlerError("ERR_FILE_SERVICE", "tezoshandler: saving transfer bundle", chainhandler.ClassFileService, err)
	}
	return nil
}

// SaveTransactionBundle persists the indexer's raw transaction report even
// though this handler never recovers transfers from it, for parity with
// the file service's type registration.
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
		return chainhandler.NewHandlerError("ERR_NO_FILE_SERVICE", fmt.Sprintf("tezoshandler: no file service registered for native currency %q", native), chainhandler.ClassFileService, nil)
	}
	if err := svc.Save(transactionBundleTypeName, bundle); err != nil {
		return chainhandler.NewHandlerError("ERR_FILE_SERVICE", "tezoshandler: saving transaction bundle", chainhandler.ClassFileService, err)
	}
	return nil
}

// RecoverTransfersFromTransactionBundle is the UTXO-style recovery path
// (spec.md op 12); Tezos is account-based and never resolves transfers
// this way, matching wkWalletManagerRecoverTransfersFromTransactionBundlesXTZ's
// assert(0) ("Not XTZ functionality").
func (h *Handler) RecoverTransfersFromTransactionBundle(handle *chainhandler.ManagerHandle, wallet *model.Wallet, bundle model.TransactionBundle) ([]*model.Transfer, error) {
	return nil, chainhandler.NewHandlerError("ERR_UNSUPPORTED_BUNDLE", "tezoshandler: tezos does not recover transfers from transaction bundles", chainhandler.ClassNonRetryable, nil)
}

// forwardStates is the transfer state machine's monotone progression,
// used to replay an indexer-reported state onto a freshly materialized
// Created transfer one step at a time.
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
		return fmt.Errorf("tezoshandler: unknown transfer state %q", target.Kind)
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

// operationKindAttributeKey is the attribute key this handler looks for
// to classify the bundle's underlying Tezos operation
// (wkWalletManagerRecoverOperationKind looks up the same "kind" key).
const operationKindAttributeKey = "kind"

// RecoverTransferFromTransferBundle materializes one Transfer from the
// indexer's reported fields (spec.md op 13). A bundle whose "kind"
// attribute is "reveal" marks this account as revealed once included,
// so a later EstimateFeeBasis stops padding in a reveal sub-operation.
func (h *Handler) RecoverTransferFromTransferBundle(handle *chainhandler.ManagerHandle, wallet *model.Wallet, bundle model.TransferBundle) (*model.Transfer, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return nil, err
	}

	source, err := model.AddressFromString(model.ChainFamilyTezos, model.SchemeTezos, bundle.Source)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: parsing source address", chainhandler.ClassParse, err)
	}
	// A transaction may carry a synthetic "burn" leg to an unrevealed
	// target, sharing the parent hash; an empty Target marks that leg
	// (the original's "target address 'unknown'" case), which this
	// handler records against the zero address rather than dropping it,
	// since the burn still affects wallet balance.
	var target model.Address
	if bundle.Target != "" {
		target, err = model.AddressFromString(model.ChainFamilyTezos, model.SchemeTezos, bundle.Target)
		if err != nil {
			return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: parsing target address", chainhandler.ClassParse, err)
		}
	} else {
		target = model.Address{Family: model.ChainFamilyTezos, Scheme: model.SchemeTezos, Bytes: make(primitives.Hash, 20)}
	}

	amountValue, err := primitives.Int256FromDecimal(bundle.Amount)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: parsing amount", chainhandler.ClassParse, err)
	}
	amount, err := model.NewAmount(wallet.Currency, wallet.Unit, amountValue)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: building amount", chainhandler.ClassParse, err)
	}

	feeValue := primitives.Int256FromInt64(0)
	if bundle.Fee != "" {
		feeValue, err = primitives.Int256FromDecimal(bundle.Fee)
		if err != nil {
			return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: parsing fee", chainhandler.ClassParse, err)
		}
	}
	feeAmount, err := model.NewAmount(wallet.Currency, wallet.FeeUnit, feeValue)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: building fee amount", chainhandler.ClassParse, err)
	}
	basis := model.NewStructuredFeeBasis([]model.StructuredOperationFee{{
		Gas:     primitives.Int256FromInt64(0),
		Storage: primitives.Int256FromInt64(0),
		Counter: primitives.Int256FromInt64(0),
		Burn:    feeAmount,
	}}, nil)

	var direction model.TransferDirection
	switch {
	case handle.Account != nil && handle.Account.HasAddress(source):
		direction = model.DirectionSent
	case handle.Account != nil && handle.Account.HasAddress(target):
		direction = model.DirectionReceived
	default:
		return nil, chainhandler.NewHandlerError("ERR_UNOWNED_TRANSFER", "tezoshandler: transfer bundle involves neither of the account's addresses", chainhandler.ClassNonRetryable, nil)
	}

	transfer := model.NewTransfer(source, target, amount, direction, basis)
	transfer.UIDS = bundle.UIDS
	transfer.Hash = bundle.Hash
	for _, a := range bundle.Attributes {
		transfer.Attributes = append(transfer.Attributes, model.TransferAttribute{Key: a.Key, Value: a.Value})
	}

	isReveal := false
	for _, a := range bundle.Attributes {
		if a.Key == operationKindAttributeKey && a.Value == "reveal" {
			isReveal = true
		}
	}

	transferState := model.TransferState{Kind: model.TransferStateKind(bundle.TransferStateType)}
	if transferState.Kind == model.TransferStateIncluded {
		transferState.IncludedBlockNumber = bundle.BlockNumber
		transferState.IncludedIndex = bundle.Index
		transferState.IncludedTimestamp = bundle.Timestamp
		transferState.IncludedSuccess = true
		confirmed := basis
		transfer.ConfirmedFeeBasis = &confirmed

		state.mu.Lock()
		if isReveal {
			state.revealed = true
		}
		state.counter++
		state.mu.Unlock()
	}
	if err := advanceTransferTo(transfer, transferState); err != nil {
		return nil, chainhandler.NewHandlerError("ERR_BAD_STATE", "tezoshandler: replaying transfer state", chainhandler.ClassNonRetryable, err)
	}

	return transfer, nil
}
