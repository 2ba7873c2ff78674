package avaxhandler

import (
	"encoding/json"
	"fmt"

	"github.com/arcsign/walletkit/avaxtx"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// weiUnit-equivalent: Avalanche's base unit, used whenever the network has
// no registered CurrencyAssociation for the currency yet.
func baseUnit(currency model.Currency) model.Unit {
	return model.NewBaseUnit(currency, "navax", "nAVAX")
}

func unitsFor(handle *chainhandler.ManagerHandle, currency model.Currency) (unit, feeUnit model.Unit) {
	if assoc, ok := handle.Network.Association(currency.UIDS); ok {
		return assoc.DefaultUnit, assoc.BaseUnit
	}
	base := baseUnit(currency)
	return base, base
}

// forwardStates mirrors ethhandler's replay helper: the monotone state
// progression a freshly materialized Created transfer must step through
// one rank at a time to reach an indexer-reported terminal state.
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
		return fmt.Errorf("avaxhandler: unknown transfer state %q", target.Kind)
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

// transferStateFromBundleStatus maps the indexer's free-form transaction
// status ("confirmed", "pending", "rejected") onto the transfer state
// machine's kinds; anything unrecognized is treated as still submitted
// rather than guessed at.
func transferStateFromBundleStatus(status string) model.TransferStateKind {
	switch status {
	case "confirmed":
		return model.TransferStateIncluded
	case "rejected":
		return model.TransferStateErrored
	default:
		return model.TransferStateSubmitted
	}
}

// utxoFeeBasis builds a UTXO fee basis from a flat indexer-reported total:
// the basis's feePerKB/size fields are left zero since a settled bundle
// carries only the final fee, not the rate it was computed from.
func utxoFeeBasis(fee model.Amount) model.FeeBasis {
	return model.NewUTXOFeeBasis(model.ZeroAmount(fee.Unit), 0, fee)
}

// recordUTXOsFromOutputs adds one UTXO per output this manager's account
// owns, keyed per owner address, so a later SignTransactionWithSeed/
// CreateSweeper call has a spendable set to select from.
func (h *Handler) recordUTXOsFromOutputs(state *managerState, txid primitives.Hash, tx avaxtx.Transaction, ownedAddresses map[[20]byte]bool) {
	state.mu.Lock()
	defer state.mu.Unlock()
	for i, out := range tx.Outputs {
		owned := false
		for _, a := range out.Addresses {
			if ownedAddresses[a] {
				owned = true
				break
			}
		}
		if !owned {
			continue
		}
		utxo := avaxtx.NewUTXO(txid, uint32(i), out.Asset, out.Amount, out.Addresses)
		for _, a := range out.Addresses {
			if ownedAddresses[a] {
				state.utxos[a] = append(state.utxos[a], utxo)
			}
		}
	}
}

// consumeUTXOsFromInputs removes spent UTXOs (by (txid,index)) from every
// owned address's tracked set.
func (h *Handler) consumeUTXOsFromInputs(state *managerState, tx avaxtx.Transaction) {
	state.mu.Lock()
	defer state.mu.Unlock()
	for addr, set := range state.utxos {
		filtered := set[:0]
		for _, u := range set {
			spent := false
			for _, in := range tx.Inputs {
				if u.TxID.Equal(in.TxID) && u.Index == in.Index {
					spent = true
					break
				}
			}
			if !spent {
				filtered = append(filtered, u)
			}
		}
		state.utxos[addr] = filtered
	}
}

// RecoverTransfersFromTransactionBundle parses the raw recovered
// transaction (spec.md op 12), registers one Transfer per owned
// source/target address, and updates the tracked UTXO pool to reflect the
// transaction's effect (spent inputs removed, owned outputs added).
func (h *Handler) RecoverTransfersFromTransactionBundle(handle *chainhandler.ManagerHandle, wallet *model.Wallet, bundle model.TransactionBundle) ([]*model.Transfer, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return nil, err
	}

	var tx avaxtx.Transaction
	if err := json.Unmarshal(bundle.Raw, &tx); err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "avaxhandler: decoding recovered transaction", chainhandler.ClassParse, err)
	}

	ownedAddresses := make(map[[20]byte]bool)
	for _, a := range handle.Account.Addresses {
		if b, err := avaxAddressBytes(a); err == nil {
			ownedAddresses[b] = true
		}
	}

	txidHash, err := primitives.HashFromHex(bundle.Hash)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "avaxhandler: decoding bundle hash", chainhandler.ClassParse, err)
	}

	var transfers []*model.Transfer
	amount, err := model.NewAmount(wallet.Currency, wallet.Unit, primitives.Int256FromInt64(int64(tx.Amount)))
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "avaxhandler: building amount", chainhandler.ClassParse, err)
	}
	feeAmount, err := model.NewAmount(wallet.Currency, wallet.FeeUnit, primitives.Int256FromInt64(int64(tx.FeeAmount)))
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "avaxhandler: building fee amount", chainhandler.ClassParse, err)
	}
	basis := utxoFeeBasis(feeAmount)

	source := modelAddress(model.ChainFamilyAvalanche, model.SchemeAvalancheXChain, tx.Source)
	target := modelAddress(model.ChainFamilyAvalanche, model.SchemeAvalancheXChain, tx.Target)

	if ownedAddresses[tx.Source] {
		transfers = append(transfers, model.NewTransfer(source, target, amount, model.DirectionSent, basis))
	}
	if ownedAddresses[tx.Target] {
		transfers = append(transfers, model.NewTransfer(source, target, amount, model.DirectionReceived, basis))
	}
	if len(transfers) == 0 {
		return nil, chainhandler.NewHandlerError("ERR_UNOWNED_TRANSFER", "avaxhandler: transaction bundle involves neither of the account's addresses", chainhandler.ClassNonRetryable, nil)
	}

	state2 := model.TransferState{Kind: transferStateFromBundleStatus(bundle.Status)}
	if state2.Kind == model.TransferStateIncluded {
		state2.IncludedBlockNumber = bundle.BlockNumber
		state2.IncludedTimestamp = bundle.Timestamp
		state2.IncludedSuccess = true
	}
	for _, t := range transfers {
		t.UIDS = bundle.Hash
		t.Hash = bundle.Hash
		if state2.Kind == model.TransferStateIncluded {
			confirmed := basis
			t.ConfirmedFeeBasis = &confirmed
		}
		if err := advanceTransferTo(t, state2); err != nil {
			return nil, chainhandler.NewHandlerError("ERR_BAD_STATE", "avaxhandler: replaying transfer state", chainhandler.ClassNonRetryable, err)
		}
	}

	h.consumeUTXOsFromInputs(state, tx)
	h.recordUTXOsFromOutputs(state, txidHash, tx, ownedAddresses)

	return transfers, nil
}

// RecoverTransferFromTransferBundle is the account-style recovery path
// (spec.md op 13). Avalanche resolves transfers from transaction bundles
// instead, since one transaction can touch several addresses at once.
func (h *Handler) RecoverTransferFromTransferBundle(handle *chainhandler.ManagerHandle, wallet *model.Wallet, bundle model.TransferBundle) (*model.Transfer, error) {
	return nil, chainhandler.NewHandlerError("ERR_UNSUPPORTED_BUNDLE", "avaxhandler: avalanche recovers transfers from transaction bundles, not transfer bundles", chainhandler.ClassNonRetryable, nil)
}
