package avaxhandler

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/avaxtx"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// ValidateSweeperSupported reports that Avalanche supports sweep: it is a
// UTXO-style chain, so every output reachable from an imported key's
// address can be enumerated and spent in one transaction (spec.md op 15).
func (h *Handler) ValidateSweeperSupported(handle *chainhandler.ManagerHandle, importedKeyFamily model.ChainFamily) chainhandler.SweeperSupport {
	if importedKeyFamily != model.ChainFamilyAvalanche {
		return chainhandler.SweeperSupport{
			Supported: false,
			Reason:    "avaxhandler: cannot sweep a key derived for a different chain family",
		}
	}
	return chainhandler.SweeperSupport{Supported: true}
}

// sweeper moves every UTXO reachable from an imported key into the
// wallet's own address.
type sweeper struct {
	handle *chainhandler.ManagerHandle
	key    *btcec.PrivateKey
	source [20]byte
}

func importedKeyAddress(key account.Keypair) ([20]byte, *btcec.PrivateKey, error) {
	if len(key.PrivateKey) == 0 {
		return [20]byte{}, nil, chainhandler.NewHandlerError("ERR_NO_PRIVATE_KEY", "avaxhandler: sweep requires a private key", chainhandler.ClassNonRetryable, nil)
	}
	priv, pub := btcec.PrivKeyFromBytes(key.PrivateKey)
	hash := btcutil.Hash160(pub.SerializeCompressed())
	var out [20]byte
	copy(out[:], hash)
	return out, priv, nil
}

// CreateSweeper builds a Sweeper that spends every UTXO tracked under the
// imported key's derived address into the wallet's primary address.
func (h *Handler) CreateSweeper(handle *chainhandler.ManagerHandle, wallet *model.Wallet, importedKey account.Keypair) (chainhandler.Sweeper, error) {
	if importedKey.Curve != account.CurveSecp256k1 {
		return nil, chainhandler.NewHandlerError("ERR_BAD_CURVE", "avaxhandler: avalanche requires a secp256k1 key", chainhandler.ClassNonRetryable, nil)
	}
	source, priv, err := importedKeyAddress(importedKey)
	if err != nil {
		return nil, err
	}
	return &sweeper{handle: handle, key: priv, source: source}, nil
}

func (s *sweeper) utxos() ([]avaxtx.UTXO, error) {
	state, err := managerStateOf(s.handle)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	out := make([]avaxtx.UTXO, len(state.utxos[s.source]))
	copy(out, state.utxos[s.source])
	return out, nil
}

// EstimateSweepAmount sums every UTXO the imported key's address controls.
func (s *sweeper) EstimateSweepAmount(wallet *model.Wallet) (model.Amount, error) {
	utxos, err := s.utxos()
	if err != nil {
		return model.Amount{}, err
	}
	var total uint64
	for _, u := range utxos {
		total += u.Amount
	}
	return model.NewAmount(wallet.Currency, wallet.Unit, primitives.Int256FromInt64(int64(total)))
}

// Sweep builds, signs, and returns a Transfer moving every tracked UTXO of
// the imported key's address to the wallet's primary address, net of a fee
// sized for every tracked UTXO as an input and a single output.
func (s *sweeper) Sweep(wallet *model.Wallet) (*model.Transfer, error) {
	state, err := managerStateOf(s.handle)
	if err != nil {
		return nil, err
	}
	target, err := primaryAddress(s.handle)
	if err != nil {
		return nil, err
	}
	utxos, err := s.utxos()
	if err != nil {
		return nil, err
	}

	total, err := s.EstimateSweepAmount(wallet)
	if err != nil {
		return nil, err
	}
	if total.IsZero() {
		return nil, chainhandler.NewHandlerError("ERR_NOTHING_TO_SWEEP", "avaxhandler: imported key's address has no tracked UTXOs", chainhandler.ClassUserIntervention, nil)
	}

	feePerByte, err := model.NewAmount(wallet.Currency, wallet.FeeUnit, primitives.Int256FromInt64(1))
	if err != nil {
		return nil, err
	}
	size := estimateSizeBytes(len(utxos), 1)
	computedFee, err := scaleAmount(feePerByte, size)
	if err != nil {
		return nil, err
	}
	basis := model.NewUTXOFeeBasis(feePerByte, size, computedFee)
	feeTotal, err := basis.Fee()
	if err != nil {
		return nil, err
	}

	amount, err := total.Sub(feeTotal)
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, chainhandler.NewHandlerError("ERR_NOTHING_TO_SWEEP", "avaxhandler: sweep amount does not cover its own fee", chainhandler.ClassUserIntervention, nil)
	}

	sourceAddr := modelAddress(model.ChainFamilyAvalanche, model.SchemeAvalancheXChain, s.source)
	targetAddr := modelAddress(model.ChainFamilyAvalanche, model.SchemeAvalancheXChain, target)
	transfer := model.NewTransfer(sourceAddr, targetAddr, amount, model.DirectionReceived, basis)

	tx, err := avaxtx.Build(avaxtx.BuildParams{
		NetworkID:    state.networkID,
		BlockchainID: state.blockchainID,
		Source:       s.source,
		Target:       target,
		Change:       target,
		Asset:        nativeAsset(s.handle),
		Amount:       uint64(amount.Value.BigInt().Int64()),
		FeeAmount:    uint64(feeTotal.Value.BigInt().Int64()),
		UTXOs:        utxos,
		SortOrder:    avaxtx.SortNone,
	})
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_INSUFFICIENT_FUNDS", "avaxhandler: building sweep transaction", chainhandler.ClassNonRetryable, err)
	}

	creds, digest, err := tx.Sign(s.key)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_SIGN", "avaxhandler: signing sweep transaction", chainhandler.ClassNonRetryable, err)
	}
	transfer.Hash = primitives.CB58Encode(digest[:])
	transfer.OriginatingData = tx.SignedEncode(creds)
	if err := transfer.SetState(model.TransferState{Kind: model.TransferStateSigned}); err != nil {
		return nil, chainhandler.NewHandlerError("ERR_BAD_STATE", "avaxhandler: transitioning sweep transfer to signed", chainhandler.ClassNonRetryable, err)
	}
	return transfer, nil
}
