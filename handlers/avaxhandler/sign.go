package avaxhandler

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/avaxtx"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
)

// buildTransaction renders a Transfer as an avaxtx.Transaction, selecting
// UTXOs from the manager's tracked set for the transfer's source address
// (spec.md §4.5's Build).
func (h *Handler) buildTransaction(handle *chainhandler.ManagerHandle, transfer *model.Transfer) (*avaxtx.Transaction, [20]byte, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return nil, [20]byte{}, err
	}

	source, err := avaxAddressBytes(transfer.Source)
	if err != nil {
		return nil, [20]byte{}, chainhandler.NewHandlerError("ERR_PARSE", "avaxhandler: parsing source address", chainhandler.ClassParse, err)
	}
	target, err := avaxAddressBytes(transfer.Target)
	if err != nil {
		return nil, [20]byte{}, chainhandler.NewHandlerError("ERR_PARSE", "avaxhandler: parsing target address", chainhandler.ClassParse, err)
	}

	fee, err := transfer.EstimatedFeeBasis.Fee()
	if err != nil {
		return nil, [20]byte{}, chainhandler.NewHandlerError("ERR_BAD_FEE_BASIS", "avaxhandler: computing transfer fee", chainhandler.ClassNonRetryable, err)
	}

	asset := nativeAsset(handle)
	utxos := h.selectableUTXOs(state, source)

	tx, err := avaxtx.Build(avaxtx.BuildParams{
		CodecVersion: 0,
		NetworkID:    state.networkID,
		BlockchainID: state.blockchainID,
		Source:       source,
		Target:       target,
		Change:       source,
		Asset:        asset,
		Amount:       uint64(transfer.Amount.Value.BigInt().Int64()),
		FeeAmount:    uint64(fee.Value.BigInt().Int64()),
		UTXOs:        utxos,
		SortOrder:    avaxtx.SortByAmountAscending,
	})
	if err != nil {
		return nil, [20]byte{}, chainhandler.NewHandlerError("ERR_INSUFFICIENT_FUNDS", "avaxhandler: building transaction", chainhandler.ClassNonRetryable, err)
	}
	return tx, source, nil
}

func (h *Handler) finalizeSignedTransaction(handle *chainhandler.ManagerHandle, transfer *model.Transfer, tx *avaxtx.Transaction, creds []avaxtx.Credential, digest [32]byte) (bool, error) {
	transfer.Hash = primitives.CB58Encode(digest[:])
	transfer.OriginatingData = tx.SignedEncode(creds)
	if err := transfer.SetState(model.TransferState{Kind: model.TransferStateSigned}); err != nil {
		return false, chainhandler.NewHandlerError("ERR_BAD_STATE", "avaxhandler: transitioning transfer to signed", chainhandler.ClassNonRetryable, err)
	}
	return true, nil
}

// SignTransactionWithSeed signs a transfer by re-deriving the account's
// secp256k1 key directly from seed (spec.md op 7).
func (h *Handler) SignTransactionWithSeed(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, seed []byte) (bool, error) {
	if handle.Account.Keypair.Curve != account.CurveSecp256k1 {
		return false, chainhandler.NewHandlerError("ERR_BAD_CURVE", "avaxhandler: avalanche requires a secp256k1 account", chainhandler.ClassNonRetryable, nil)
	}

	tx, _, err := h.buildTransaction(handle, transfer)
	if err != nil {
		return false, err
	}

	keyBytes, err := account.DeriveSecp256k1PrivateKeyWithSeed(seed, handle.Account.Path)
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_SIGN", "avaxhandler: deriving key from seed", chainhandler.ClassNonRetryable, err)
	}
	key, _ := btcec.PrivKeyFromBytes(keyBytes)

	creds, digest, err := tx.Sign(key)
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_SIGN", "avaxhandler: signing transaction", chainhandler.ClassNonRetryable, err)
	}
	return h.finalizeSignedTransaction(handle, transfer, tx, creds, digest)
}

// SignTransactionWithKey signs a transfer with an externally-imported
// private key (spec.md op 8), used for key-import and sweep flows.
func (h *Handler) SignTransactionWithKey(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, key account.Keypair) (bool, error) {
	if key.Curve != account.CurveSecp256k1 {
		return false, chainhandler.NewHandlerError("ERR_BAD_CURVE", "avaxhandler: avalanche requires a secp256k1 key", chainhandler.ClassNonRetryable, nil)
	}
	if len(key.PrivateKey) == 0 {
		return false, chainhandler.NewHandlerError("ERR_NO_PRIVATE_KEY", "avaxhandler: sign-transaction-with-key requires a private key", chainhandler.ClassNonRetryable, nil)
	}

	tx, _, err := h.buildTransaction(handle, transfer)
	if err != nil {
		return false, err
	}

	privKey, _ := btcec.PrivKeyFromBytes(key.PrivateKey)
	creds, digest, err := tx.Sign(privKey)
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_SIGN", "avaxhandler: signing transaction with imported key", chainhandler.ClassNonRetryable, err)
	}
	return h.finalizeSignedTransaction(handle, transfer, tx, creds, digest)
}
