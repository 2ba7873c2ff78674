package avaxhandler

import (
	"crypto/sha256"

	"github.com/arcsign/walletkit/avaxtx"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// estimateSizeBytes mirrors the teacher's bitcoin/fee.go P2WPKH formula:
// 10 bytes overhead, 68 bytes per input, 31 bytes per output.
func estimateSizeBytes(numInputs, numOutputs int) uint64 {
	return uint64(10 + numInputs*68 + numOutputs*31)
}

func primaryAddress(handle *chainhandler.ManagerHandle) ([20]byte, error) {
	for _, a := range handle.Account.Addresses {
		if a.Scheme == model.SchemeAvalancheXChain {
			return avaxAddressBytes(a)
		}
	}
	return [20]byte{}, chainhandler.NewHandlerError("ERR_NO_ADDRESS", "avaxhandler: account has no avalanche X-chain address", chainhandler.ClassNonRetryable, nil)
}

func (h *Handler) selectableUTXOs(state *managerState, source [20]byte) []avaxtx.UTXO {
	state.mu.Lock()
	defer state.mu.Unlock()
	out := make([]avaxtx.UTXO, len(state.utxos[source]))
	copy(out, state.utxos[source])
	return out
}

// EstimateLimit returns the wallet's spendable maximum (asMaximum) net of
// a 2-input, 2-output transaction's fee, or zero otherwise; no indexer
// round trip is needed since the fee only depends on tracked UTXOs already
// known to this manager.
func (h *Handler) EstimateLimit(handle *chainhandler.ManagerHandle, wallet *model.Wallet, asMaximum bool, target model.Address, networkFee model.NetworkFee, unit model.Unit) (model.Amount, bool, bool, error) {
	if !asMaximum {
		return model.ZeroAmount(unit), false, false, nil
	}

	priceInUnit, err := networkFee.Price.ConvertTo(wallet.Unit)
	if err != nil {
		return model.Amount{}, false, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "avaxhandler: converting network fee price", chainhandler.ClassNonRetryable, err)
	}
	size := estimateSizeBytes(2, 2)
	gasCost, err := scaleAmount(priceInUnit, size)
	if err != nil {
		return model.Amount{}, false, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "avaxhandler: scaling fee by size estimate", chainhandler.ClassNonRetryable, err)
	}

	max, err := wallet.Balance().Sub(gasCost)
	if err != nil {
		return model.Amount{}, false, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "avaxhandler: subtracting fee from balance", chainhandler.ClassNonRetryable, err)
	}
	if max.IsNegative() {
		return model.ZeroAmount(wallet.Unit), false, true, nil
	}
	return max, false, true, nil
}

func scaleAmount(a model.Amount, scalar uint64) (model.Amount, error) {
	product, err := a.Value.Mul(primitives.Int256FromInt64(int64(scalar)))
	if err != nil {
		return model.Amount{}, err
	}
	return model.Amount{Currency: a.Currency, Unit: a.Unit, Value: product}, nil
}

// EstimateFeeBasis selects candidate UTXOs to size the transaction
// realistically (input count drives fee under a fee-per-byte model), then
// builds the UTXO fee basis immediately: no indexer round trip is needed
// since this handler maintains its own UTXO set from prior recoveries.
func (h *Handler) EstimateFeeBasis(handle *chainhandler.ManagerHandle, wallet *model.Wallet, cookie string, target model.Address, amount model.Amount, networkFee model.NetworkFee, attributes []model.TransferAttribute) (*model.FeeBasis, bool, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return nil, false, err
	}
	source, err := primaryAddress(handle)
	if err != nil {
		return nil, false, err
	}

	priceInFeeUnit, err := networkFee.Price.ConvertTo(wallet.FeeUnit)
	if err != nil {
		return nil, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "avaxhandler: converting network fee to fee unit", chainhandler.ClassNonRetryable, err)
	}

	candidates := h.selectableUTXOs(state, source)
	numOutputs := 2 // target + change, conservative
	selected, _ := avaxtx.SelectUTXOs(candidates, source, nativeAsset(handle), uint64(amount.Value.BigInt().Int64()), avaxtx.SortByAmountAscending)
	numInputs := len(selected)
	if numInputs == 0 {
		numInputs = 1 // nothing tracked yet; assume the simplest shape
	}
	size := estimateSizeBytes(numInputs, numOutputs)

	computedFee, err := scaleAmount(priceInFeeUnit, size)
	if err != nil {
		return nil, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "avaxhandler: scaling fee by size estimate", chainhandler.ClassNonRetryable, err)
	}

	basis := model.NewUTXOFeeBasis(priceInFeeUnit, size, computedFee)
	return &basis, false, nil
}

// nativeAsset derives the asset id this handler selects UTXOs against:
// the network's native currency's identifier, hashed to the 32-byte shape
// an X-chain asset id takes.
func nativeAsset(handle *chainhandler.ManagerHandle) primitives.Hash {
	sum := sha256.Sum256([]byte(handle.Network.NativeCurrency.UIDS))
	return primitives.Hash(sum[:])
}

// RecoverFeeBasisFromFeeEstimate exists for the account-style async fee
// round trip (spec.md op 14); Avalanche's UTXO fee is always computed
// synchronously in EstimateFeeBasis, so this path is not reachable in
// practice but is implemented for completeness using the same byte-count
// cost unit as EstimateFeeBasis.
func (h *Handler) RecoverFeeBasisFromFeeEstimate(handle *chainhandler.ManagerHandle, transfer *model.Transfer, networkFee model.NetworkFee, costUnits map[string]uint64, attributes []model.TransferAttribute) (model.FeeBasis, error) {
	size, ok := costUnits["bytes"]
	if !ok {
		return model.FeeBasis{}, chainhandler.NewHandlerError("ERR_MISSING_COST_UNIT", "avaxhandler: fee estimate reply is missing a \"bytes\" cost unit", chainhandler.ClassParse, nil)
	}
	computedFee, err := scaleAmount(networkFee.Price, size)
	if err != nil {
		return model.FeeBasis{}, chainhandler.NewHandlerError("ERR_FEE_CALC", "avaxhandler: scaling fee by byte count", chainhandler.ClassNonRetryable, err)
	}
	return model.NewUTXOFeeBasis(networkFee.Price, size, computedFee), nil
}
