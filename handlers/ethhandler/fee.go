package ethhandler

import (
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// nativeTransferGasLimit is the standard cost of a plain ETH transfer
// (the teacher's adapter.go fallback: "Standard ETH transfer").
const nativeTransferGasLimit = 21000

// bufferGasLimit applies the teacher's 10% safety margin
// (adapter.go: "gasLimit = gasLimit * 110 / 100 // Add 10% buffer").
func bufferGasLimit(limit uint64) uint64 {
	return limit * 110 / 100
}

func scaleAmount(a model.Amount, scalar uint64) (model.Amount, error) {
	product, err := a.Value.Mul(primitives.Int256FromInt64(int64(scalar)))
	if err != nil {
		return model.Amount{}, err
	}
	return model.Amount{Currency: a.Currency, Unit: a.Unit, Value: product}, nil
}

// EstimateLimit returns the largest (asMaximum) or smallest (!asMaximum)
// amount this wallet can send, given networkFee. A plain ETH transfer's
// gas cost is known without an indexer round trip, so needEstimate is
// always false here; token transfers to a contract would need one, but
// that path is out of scope for this handler.
func (h *Handler) EstimateLimit(handle *chainhandler.ManagerHandle, wallet *model.Wallet, asMaximum bool, target model.Address, networkFee model.NetworkFee, unit model.Unit) (model.Amount, bool, bool, error) {
	if !asMaximum {
		return model.ZeroAmount(unit), false, false, nil
	}

	priceInUnit, err := networkFee.Price.ConvertTo(wallet.Unit)
	if err != nil {
		return model.Amount{}, false, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "ethhandler: converting network fee price", chainhandler.ClassNonRetryable, err)
	}
	gasCost, err := scaleAmount(priceInUnit, bufferGasLimit(nativeTransferGasLimit))
	if err != nil {
		return model.Amount{}, false, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "ethhandler: scaling fee by gas limit", chainhandler.ClassNonRetryable, err)
	}

	max, err := wallet.Balance().Sub(gasCost)
	if err != nil {
		return model.Amount{}, false, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "ethhandler: subtracting fee from balance", chainhandler.ClassNonRetryable, err)
	}
	if max.IsNegative() {
		return model.ZeroAmount(wallet.Unit), false, true, nil
	}
	return max, false, true, nil
}

// EstimateFeeBasis builds a gas fee basis immediately for a plain ETH
// transfer; there is no contract-call gas estimation in this handler's
// scope, so pending is always false and cookie/target/amount/attributes
// go unused.
func (h *Handler) EstimateFeeBasis(handle *chainhandler.ManagerHandle, wallet *model.Wallet, cookie string, target model.Address, amount model.Amount, networkFee model.NetworkFee, attributes []model.TransferAttribute) (*model.FeeBasis, bool, error) {
	price, err := networkFee.Price.ConvertTo(wallet.FeeUnit)
	if err != nil {
		return nil, false, chainhandler.NewHandlerError("ERR_FEE_CALC", "ethhandler: converting network fee to fee unit", chainhandler.ClassNonRetryable, err)
	}
	basis := model.NewGasFeeBasis(primitives.Int256FromInt64(int64(bufferGasLimit(nativeTransferGasLimit))), price)
	return &basis, false, nil
}

// RecoverFeeBasisFromFeeEstimate assembles the final fee basis from the
// indexer's dry-run gas units (spec.md op 14), applying the same 10%
// safety margin EstimateFeeBasis uses for the synchronous case.
func (h *Handler) RecoverFeeBasisFromFeeEstimate(handle *chainhandler.ManagerHandle, transfer *model.Transfer, networkFee model.NetworkFee, costUnits map[string]uint64, attributes []model.TransferAttribute) (model.FeeBasis, error) {
	gas, ok := costUnits["gas"]
	if !ok {
		return model.FeeBasis{}, chainhandler.NewHandlerError("ERR_MISSING_COST_UNIT", "ethhandler: fee estimate reply is missing a \"gas\" cost unit", chainhandler.ClassParse, nil)
	}
	return model.NewGasFeeBasis(primitives.Int256FromInt64(int64(bufferGasLimit(gas))), networkFee.Price), nil
}
