package model

import "fmt"

// TransferDirection classifies a transfer from the owning wallet's point
// of view.
type TransferDirection string

const (
	DirectionSent      TransferDirection = "sent"
	DirectionReceived  TransferDirection = "received"
	DirectionRecovered TransferDirection = "recovered"
)

// TransferStateKind enumerates the transfer state machine (spec.md §3).
// Progress is monotone except for the reorg back-edge Included→Submitted.
type TransferStateKind string

const (
	TransferStateCreated   TransferStateKind = "created"
	TransferStateSigned    TransferStateKind = "signed"
	TransferStateSubmitted TransferStateKind = "submitted"
	TransferStateIncluded  TransferStateKind = "included"
	TransferStateErrored   TransferStateKind = "errored"
	TransferStateDeleted   TransferStateKind = "deleted"
)

// TransferState carries the kind plus whatever payload that kind defines.
// IncludedBlockNumber/IncludedIndex/IncludedTimestamp/IncludedSuccess/
// IncludedError are only meaningful when Kind == TransferStateIncluded;
// ErrorKind is only meaningful when Kind == TransferStateErrored.
type TransferState struct {
	Kind TransferStateKind

	IncludedBlockNumber uint64
	IncludedIndex       uint64
	IncludedTimestamp   uint64
	IncludedSuccess     bool
	IncludedError       string

	ErrorKind string
}

// transferStateRank gives each non-terminal, non-errored state a position
// in the forward progression, used to reject non-monotone transitions.
var transferStateRank = map[TransferStateKind]int{
	TransferStateCreated:   0,
	TransferStateSigned:    1,
	TransferStateSubmitted: 2,
	TransferStateIncluded:  3,
}

// CanTransitionTo reports whether moving from this state to next is legal:
// either strictly forward in the created→signed→submitted→included chain,
// the Included→Submitted reorg back-edge, or into one of the terminal
// states (errored, deleted) from anywhere non-terminal.
func (s TransferState) CanTransitionTo(next TransferStateKind) bool {
	if next == TransferStateErrored || next == TransferStateDeleted {
		return s.Kind != TransferStateErrored && s.Kind != TransferStateDeleted
	}
	if s.Kind == TransferStateIncluded && next == TransferStateSubmitted {
		return true
	}
	curRank, curOK := transferStateRank[s.Kind]
	nextRank, nextOK := transferStateRank[next]
	if !curOK || !nextOK {
		return false
	}
	return nextRank == curRank+1
}

// TransferAttribute is one (key, value) pair carried on a transfer, used
// for chain-specific metadata (e.g. Stellar memos, Tezos counters).
type TransferAttribute struct {
	Key   string
	Value string
}

// Transfer is one movement of value. Before indexer confirmation it is
// identified by its Hash (computed at sign time for account-style chains,
// only after a broadcast round-trip for some UTXO chains); after
// confirmation it additionally carries a UIDS assigned by the indexer.
// EstimatedFeeBasis is set at creation time; ConfirmedFeeBasis is only set
// once State.Kind == TransferStateIncluded.
type Transfer struct {
	UIDS   string // empty until the indexer assigns one
	Hash   string // empty until computable for this chain's signing scheme

	Source Address
	Target Address
	Amount Amount

	Direction TransferDirection

	EstimatedFeeBasis FeeBasis
	ConfirmedFeeBasis *FeeBasis

	State TransferState

	OriginatingData interface{} // per-chain originating payload (e.g. raw UTXO tx bytes)
	Attributes      []TransferAttribute
}

// NewTransfer constructs a Transfer in the Created state.
func NewTransfer(source, target Address, amount Amount, direction TransferDirection, estimatedFeeBasis FeeBasis) *Transfer {
	return &Transfer{
		Source:            source,
		Target:            target,
		Amount:            amount,
		Direction:         direction,
		EstimatedFeeBasis: estimatedFeeBasis,
		State:             TransferState{Kind: TransferStateCreated},
	}
}

// SetState transitions the transfer to a new state, rejecting any move
// that violates the monotone-progress-plus-reorg invariant.
func (t *Transfer) SetState(next TransferState) error {
	if !t.State.CanTransitionTo(next.Kind) {
		return fmt.Errorf("model: transfer %s: illegal state transition %s -> %s", t.identifier(), t.State.Kind, next.Kind)
	}
	t.State = next
	return nil
}

func (t *Transfer) identifier() string {
	if t.UIDS != "" {
		return t.UIDS
	}
	if t.Hash != "" {
		return t.Hash
	}
	return "<unidentified>"
}

// NetAmount computes this transfer's signed effect on a wallet's balance,
// per spec.md §3: +amount when received, -(amount+fee) when sent and the
// fee is paid in the transferred currency, 0 when errored. feeLeg selects
// which side of a cross-currency-fee transfer the caller wants: false is
// the currency wallet's own view (its Amount, plus the fee too when the
// fee happens to be paid in that same currency); true is the native
// wallet's weak-appearance view (the fee alone, only when it is paid in a
// currency other than the one transferred — spec.md §3: "the native
// wallet receives a weak appearance" precisely in that case, nothing
// otherwise).
func (t *Transfer) NetAmount(feeLeg bool) (Amount, error) {
	if t.State.Kind == TransferStateErrored {
		if feeLeg {
			if fee, err := t.effectiveFeeBasis().Fee(); err == nil {
				return ZeroAmount(fee.Unit), nil
			}
		}
		return ZeroAmount(t.Amount.Unit), nil
	}
	switch t.Direction {
	case DirectionReceived, DirectionRecovered:
		if feeLeg {
			return ZeroAmount(t.Amount.Unit), nil
		}
		return t.Amount, nil
	case DirectionSent:
		fee, err := t.effectiveFeeBasis().Fee()
		if err != nil {
			return Amount{}, err
		}
		feeCurrencyMatches := t.Amount.Currency.Equal(fee.Currency)
		if feeLeg {
			if feeCurrencyMatches {
				return ZeroAmount(fee.Unit), nil
			}
			return fee.Neg(), nil
		}
		total := t.Amount
		if feeCurrencyMatches {
			sum, err := total.Add(fee)
			if err != nil {
				return Amount{}, err
			}
			total = sum
		}
		return total.Neg(), nil
	default:
		return Amount{}, fmt.Errorf("model: transfer %s: unknown direction %q", t.identifier(), t.Direction)
	}
}

func (t *Transfer) effectiveFeeBasis() FeeBasis {
	if t.ConfirmedFeeBasis != nil {
		return *t.ConfirmedFeeBasis
	}
	return t.EstimatedFeeBasis
}

// Fee returns this transfer's fee amount from whichever fee basis is
// currently authoritative (the confirmed one once the indexer has
// reported it, the estimated one otherwise). Callers deciding whether a
// transfer needs a cross-currency weak wallet appearance (spec.md §3)
// compare this against the transferred Amount's currency.
func (t *Transfer) Fee() (Amount, error) {
	return t.effectiveFeeBasis().Fee()
}
