package model

import (
	"fmt"

	"github.com/arcsign/walletkit/primitives"
)

// FeeBasisKind discriminates the fee-basis tagged union (spec.md §3).
type FeeBasisKind string

const (
	FeeBasisKindUTXO       FeeBasisKind = "utxo"
	FeeBasisKindGas        FeeBasisKind = "gas"
	FeeBasisKindFixed      FeeBasisKind = "fixed"
	FeeBasisKindStructured FeeBasisKind = "structured"
)

// StructuredOperationFee is one entry of a structured fee basis's operation
// list: the per-operation gas, storage and counter costs, plus any asset
// burned by the operation (e.g. Tezos implicit-account origination burn).
type StructuredOperationFee struct {
	Gas     primitives.Int256
	Storage primitives.Int256
	Counter primitives.Int256
	Burn    Amount
}

// FeeBasis is a sealed variant over the four fee-accounting shapes chains
// in this module use. Exactly the fields for FeeBasis.Kind are meaningful;
// the others are zero-valued. Reveal is only ever non-nil on a Structured
// basis, for delegated-account chains that must publish a public key
// before their first outgoing transfer (spec.md glossary: "Reveal").
type FeeBasis struct {
	Kind FeeBasisKind

	// UTXO
	FeePerKB          Amount
	SizeEstimateBytes uint64
	ComputedFee       Amount

	// Gas
	GasLimit primitives.Int256
	GasPrice Amount

	// Fixed
	FeePerOperation Amount
	OperationCount  uint64

	// Structured
	Operations []StructuredOperationFee
	Reveal     *FeeBasis
}

// NewUTXOFeeBasis builds a UTXO-chain fee basis. computedFee is the final
// fee the handler arrived at (feePerKB scaled by the size estimate,
// rounded per chain convention); it is carried verbatim rather than
// recomputed here since the rounding rule is chain-specific.
func NewUTXOFeeBasis(feePerKB Amount, sizeEstimateBytes uint64, computedFee Amount) FeeBasis {
	return FeeBasis{
		Kind:              FeeBasisKindUTXO,
		FeePerKB:          feePerKB,
		SizeEstimateBytes: sizeEstimateBytes,
		ComputedFee:       computedFee,
	}
}

// NewGasFeeBasis builds a gas-chain fee basis (Ethereum-style: limit × price).
func NewGasFeeBasis(gasLimit primitives.Int256, gasPrice Amount) FeeBasis {
	return FeeBasis{Kind: FeeBasisKindGas, GasLimit: gasLimit, GasPrice: gasPrice}
}

// NewFixedFeeBasis builds a fixed-fee-chain basis (Stellar-style: a flat
// per-operation fee times the operation count).
func NewFixedFeeBasis(feePerOperation Amount, operationCount uint64) FeeBasis {
	return FeeBasis{Kind: FeeBasisKindFixed, FeePerOperation: feePerOperation, OperationCount: operationCount}
}

// NewStructuredFeeBasis builds a structured-chain basis (Tezos-style:
// per-operation gas/storage/counter, with an optional reveal sub-basis).
func NewStructuredFeeBasis(operations []StructuredOperationFee, reveal *FeeBasis) FeeBasis {
	return FeeBasis{Kind: FeeBasisKindStructured, Operations: operations, Reveal: reveal}
}

// Fee computes the total amount this basis represents, in the unit of its
// constituent price/fee fields. For a structured basis the total does not
// include gas/storage/counter conversion to an asset amount (that
// conversion needs a chain-specific price the basis itself does not
// carry); it sums only the burn amounts, plus the reveal sub-basis's fee
// if present.
func (f FeeBasis) Fee() (Amount, error) {
	switch f.Kind {
	case FeeBasisKindUTXO:
		return f.ComputedFee, nil
	case FeeBasisKindGas:
		scaled, err := multiplyAmountByInt256(f.GasPrice, f.GasLimit)
		if err != nil {
			return Amount{}, fmt.Errorf("model: gas fee basis: %w", err)
		}
		return scaled, nil
	case FeeBasisKindFixed:
		n := primitives.Int256FromInt64(int64(f.OperationCount))
		scaled, mulErr := multiplyAmountByInt256(f.FeePerOperation, n)
		if mulErr != nil {
			return Amount{}, fmt.Errorf("model: fixed fee basis: %w", mulErr)
		}
		return scaled, nil
	case FeeBasisKindStructured:
		total := ZeroAmount(f.burnUnit())
		for _, op := range f.Operations {
			if op.Burn.IsZero() && op.Burn.Currency.UIDS == "" {
				continue
			}
			sum, err := total.Add(op.Burn)
			if err != nil {
				return Amount{}, fmt.Errorf("model: structured fee basis burn sum: %w", err)
			}
			total = sum
		}
		if f.Reveal != nil {
			revealFee, err := f.Reveal.Fee()
			if err != nil {
				return Amount{}, err
			}
			sum, err := total.Add(revealFee)
			if err != nil {
				return Amount{}, fmt.Errorf("model: structured fee basis reveal sum: %w", err)
			}
			total = sum
		}
		return total, nil
	default:
		return Amount{}, fmt.Errorf("model: unknown fee basis kind %q", f.Kind)
	}
}

func (f FeeBasis) burnUnit() Unit {
	for _, op := range f.Operations {
		if op.Burn.Currency.UIDS != "" {
			return op.Burn.Unit
		}
	}
	return Unit{}
}

func multiplyAmountByInt256(a Amount, scalar primitives.Int256) (Amount, error) {
	product, err := a.Value.Mul(scalar)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Currency: a.Currency, Unit: a.Unit, Value: product}, nil
}
