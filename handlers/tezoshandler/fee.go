package tezoshandler

import (
	"math/big"

	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// feePaddingPercent mirrors TEZOS_FEE_PADDING_PERCENT: the margin applied
// to a computed fee so the submission goes through even if the node's
// minimal-fee computation disagrees slightly.
const feePaddingPercent = 10

// revealGasLimit/revealOpBytes approximate the cost of a reveal operation
// ahead of the real one (constant across all implicit accounts, the
// teacher's BRTezosFeeBasis reveal path has no per-account variance).
const (
	revealGasLimit  = 1000
	revealOpBytes   = 137
	baseOpBytes     = 100
)

func applyMargin(fee primitives.Int256) (primitives.Int256, error) {
	scaled, err := fee.Mul(primitives.Int256FromInt64(100 + feePaddingPercent))
	if err != nil {
		return primitives.Int256{}, err
	}
	quotient := new(big.Int).Div(scaled.BigInt(), big.NewInt(100))
	return primitives.Int256FromBig(quotient)
}

// EstimateLimit returns the wallet's balance as the maximum when asked,
// but always reports needEstimate=true for the maximum case: Tezos's
// structured fee depends on the forged operation's byte size, which is
// not known without building it first
// (wkWalletManagerEstimateLimitXTZ's literal "we always need an estimate
// as we do not know the fees").
func (h *Handler) EstimateLimit(handle *chainhandler.ManagerHandle, wallet *model.Wallet, asMaximum bool, target model.Address, networkFee model.NetworkFee, unit model.Unit) (model.Amount, bool, bool, error) {
	if !asMaximum {
		return model.ZeroAmount(unit), false, false, nil
	}
	return wallet.Balance(), true, false, nil
}

// EstimateFeeBasis builds a structured fee basis sized against a reveal
// operation (if the account is not yet known-revealed) plus the transfer
// itself, with a 10% margin, mirroring
// wkWalletManagerEstimateFeeBasisXTZ/TEZOS_FEE_PADDING_PERCENT.
func (h *Handler) EstimateFeeBasis(handle *chainhandler.ManagerHandle, wallet *model.Wallet, cookie string, target model.Address, amount model.Amount, networkFee model.NetworkFee, attributes []model.TransferAttribute) (*model.FeeBasis, bool, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return nil, false, err
	}
	state.mu.Lock()
	needsReveal := !state.revealed
	state.mu.Unlock()

	price, err := networkFee.Price.ConvertTo(wallet.FeeUnit)
	if err != nil {
		return nil, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "tezoshandler: converting network fee to fee unit", chainhandler.ClassNonRetryable, err)
	}
	// networkFee.Price is mutez/byte; the node quotes mutez/KB, so scale
	// by 1000 the way tezosMutezCreate(pricePerCostFactor) * 1000 does.
	perKB, err := scaleAmount(price, 1000)
	if err != nil {
		return nil, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "tezoshandler: scaling price to per-KB", chainhandler.ClassNonRetryable, err)
	}

	primary, err := structuredOperationFee(perKB, baseOpBytes, 0)
	if err != nil {
		return nil, false, err
	}

	var reveal *model.FeeBasis
	if needsReveal {
		revealOp, err := structuredOperationFee(perKB, revealOpBytes, revealGasLimit)
		if err != nil {
			return nil, false, err
		}
		basis := model.NewStructuredFeeBasis([]model.StructuredOperationFee{revealOp}, nil)
		reveal = &basis
	}

	basis := model.NewStructuredFeeBasis([]model.StructuredOperationFee{primary}, reveal)
	return &basis, false, nil
}

func scaleAmount(a model.Amount, scalar uint64) (model.Amount, error) {
	product, err := a.Value.Mul(primitives.Int256FromInt64(int64(scalar)))
	if err != nil {
		return model.Amount{}, err
	}
	return model.Amount{Currency: a.Currency, Unit: a.Unit, Value: product}, nil
}

// structuredOperationFee computes one operation's burn (its fee, in this
// handler's accounting: Structured.Burn carries the total mutez owed,
// margin applied) from a per-KB price and an assumed byte size.
func structuredOperationFee(perKB model.Amount, sizeBytes uint64, gasLimit int64) (model.StructuredOperationFee, error) {
	scaled, err := perKB.Value.Mul(primitives.Int256FromInt64(int64(sizeBytes)))
	if err != nil {
		return model.StructuredOperationFee{}, err
	}
	quotient := new(big.Int).Div(scaled.BigInt(), big.NewInt(1000))
	raw, err := primitives.Int256FromBig(quotient)
	if err != nil {
		return model.StructuredOperationFee{}, err
	}
	withMargin, err := applyMargin(raw)
	if err != nil {
		return model.StructuredOperationFee{}, err
	}
	return model.StructuredOperationFee{
		Gas:     primitives.Int256FromInt64(gasLimit),
		Storage: primitives.Int256FromInt64(0),
		Counter: primitives.Int256FromInt64(0),
		Burn:    model.Amount{Currency: perKB.Currency, Unit: perKB.Unit, Value: withMargin},
	}, nil
}

// RecoverFeeBasisFromFeeEstimate assembles the final structured fee basis
// from the indexer's dry-run cost units (spec.md op 14), applying the
// same 10% margin EstimateFeeBasis uses.
func (h *Handler) RecoverFeeBasisFromFeeEstimate(handle *chainhandler.ManagerHandle, transfer *model.Transfer, networkFee model.NetworkFee, costUnits map[string]uint64, attributes []model.TransferAttribute) (model.FeeBasis, error) {
	gas, ok := costUnits["gas"]
	if !ok {
		return model.FeeBasis{}, chainhandler.NewHandlerError("ERR_MISSING_COST_UNIT", "tezoshandler: fee estimate reply is missing a \"gas\" cost unit", chainhandler.ClassParse, nil)
	}
	storage := costUnits["storage"]
	sizeBytes, ok := costUnits["bytes"]
	if !ok {
		sizeBytes = baseOpBytes
	}

	perKB, err := scaleAmount(networkFee.Price, 1000)
	if err != nil {
		return model.FeeBasis{}, chainhandler.NewHandlerError("ERR_FEE_CALC", "tezoshandler: scaling price to per-KB", chainhandler.ClassNonRetryable, err)
	}
	primary, err := structuredOperationFee(perKB, sizeBytes, int64(gas))
	if err != nil {
		return model.FeeBasis{}, chainhandler.NewHandlerError("ERR_FEE_CALC", "tezoshandler: computing operation fee", chainhandler.ClassNonRetryable, err)
	}
	primary.Storage = primitives.Int256FromInt64(int64(storage))

	var reveal *model.FeeBasis
	if revealGas, ok := costUnits["reveal_gas"]; ok {
		revealOp, err := structuredOperationFee(perKB, revealOpBytes, int64(revealGas))
		if err != nil {
			return model.FeeBasis{}, chainhandler.NewHandlerError("ERR_FEE_CALC", "tezoshandler: computing reveal operation fee", chainhandler.ClassNonRetryable, err)
		}
		basis := model.NewStructuredFeeBasis([]model.StructuredOperationFee{revealOp}, nil)
		reveal = &basis
	}

	return model.NewStructuredFeeBasis([]model.StructuredOperationFee{primary}, reveal), nil
}
