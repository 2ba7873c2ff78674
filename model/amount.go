package model

import (
	"fmt"
	"math/big"

	"github.com/arcsign/walletkit/primitives"
)

// Amount is a signed quantity of a Currency, expressed in a specific Unit.
// Invariant (spec.md §3): amount.Currency == amount.Unit.Currency. All
// arithmetic is checked; overflow returns an error rather than wrapping.
type Amount struct {
	Currency Currency
	Unit     Unit
	Value    primitives.Int256 // in the smallest denomination of Unit, not of the base unit
}

// NewAmount constructs an Amount, enforcing the currency/unit invariant.
func NewAmount(currency Currency, unit Unit, value primitives.Int256) (Amount, error) {
	if !currency.Equal(unit.Currency) {
		return Amount{}, fmt.Errorf("model: amount currency %q does not match unit currency %q", currency.UIDS, unit.Currency.UIDS)
	}
	return Amount{Currency: currency, Unit: unit, Value: value}, nil
}

// ZeroAmount returns a zero-valued Amount in the given unit.
func ZeroAmount(unit Unit) Amount {
	return Amount{Currency: unit.Currency, Unit: unit, Value: primitives.ZeroInt256()}
}

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool { return a.Value.IsNegative() }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.Value.IsZero() }

// ConvertTo rescales the amount into a different unit of the *same*
// currency, returning an error if the units belong to different
// currencies or the scaling would overflow.
func (a Amount) ConvertTo(target Unit) (Amount, error) {
	if !a.Unit.IsCompatible(target) {
		return Amount{}, fmt.Errorf("model: cannot convert amount of currency %q into unit of currency %q", a.Currency.UIDS, target.Currency.UIDS)
	}
	if a.Unit.Decimals == target.Decimals {
		return Amount{Currency: a.Currency, Unit: target, Value: a.Value}, nil
	}
	// Value is expressed relative to each unit's own decimals; rescale
	// through the shared base unit: base = value / 10^decimals(a.Unit),
	// target_value = base * 10^decimals(target).
	diff := int(target.Decimals) - int(a.Unit.Decimals)
	v := a.Value.BigInt()
	if diff > 0 {
		v = new(big.Int).Mul(v, pow10(diff))
	} else if diff < 0 {
		v = new(big.Int).Quo(v, pow10(-diff))
	}
	scaled, err := primitives.Int256FromBig(v)
	if err != nil {
		return Amount{}, fmt.Errorf("model: unit conversion overflow: %w", err)
	}
	return Amount{Currency: a.Currency, Unit: target, Value: scaled}, nil
}

// Add returns a+b after converting b into a's unit. Fails if the
// currencies differ or the result would overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	conv, err := b.ConvertTo(a.Unit)
	if err != nil {
		return Amount{}, err
	}
	sum, err := a.Value.Add(conv.Value)
	if err != nil {
		return Amount{}, fmt.Errorf("model: amount addition overflow: %w", err)
	}
	return Amount{Currency: a.Currency, Unit: a.Unit, Value: sum}, nil
}

// Sub returns a-b after converting b into a's unit.
func (a Amount) Sub(b Amount) (Amount, error) {
	conv, err := b.ConvertTo(a.Unit)
	if err != nil {
		return Amount{}, err
	}
	diff, err := a.Value.Sub(conv.Value)
	if err != nil {
		return Amount{}, fmt.Errorf("model: amount subtraction overflow: %w", err)
	}
	return Amount{Currency: a.Currency, Unit: a.Unit, Value: diff}, nil
}

// Neg returns the additive inverse of the amount.
func (a Amount) Neg() Amount {
	return Amount{Currency: a.Currency, Unit: a.Unit, Value: a.Value.Neg()}
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
