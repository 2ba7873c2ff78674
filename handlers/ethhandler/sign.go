package ethhandler

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
)

// effectiveFeeBasis mirrors Transfer.effectiveFeeBasis (unexported in
// model): prefer the confirmed basis once one has been recorded.
func effectiveFeeBasis(t *model.Transfer) model.FeeBasis {
	if t.ConfirmedFeeBasis != nil {
		return *t.ConfirmedFeeBasis
	}
	return t.EstimatedFeeBasis
}

// buildUnsignedTx renders a Transfer as a go-ethereum EIP-1559 dynamic-fee
// transaction envelope (the teacher's builder.go Build), reading the nonce
// from the handler's per-address counter and splitting the fee basis's
// single GasPrice into a fee cap and a half-price tip cap.
func (h *Handler) buildUnsignedTx(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer) (*types.Transaction, common.Address, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return nil, common.Address{}, err
	}

	from, err := ethereumAddress(transfer.Source)
	if err != nil {
		return nil, common.Address{}, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: parsing source address", chainhandler.ClassParse, err)
	}
	to, err := ethereumAddress(transfer.Target)
	if err != nil {
		return nil, common.Address{}, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: parsing target address", chainhandler.ClassParse, err)
	}

	basis := effectiveFeeBasis(transfer)
	if basis.Kind != model.FeeBasisKindGas {
		return nil, common.Address{}, chainhandler.NewHandlerError("ERR_BAD_FEE_BASIS", fmt.Sprintf("ethhandler: expected a gas fee basis, got %q", basis.Kind), chainhandler.ClassNonRetryable, nil)
	}
	priceWei, err := basis.GasPrice.ConvertTo(wallet.FeeUnit)
	if err != nil {
		return nil, common.Address{}, chainhandler.NewHandlerError("ERR_BAD_FEE_BASIS", "ethhandler: converting gas price to fee unit", chainhandler.ClassNonRetryable, err)
	}
	feeCap := priceWei.Value.BigInt()
	tipCap := new(big.Int).Div(feeCap, big.NewInt(2))

	amountWei, err := transfer.Amount.ConvertTo(wallet.FeeUnit)
	if err != nil {
		return nil, common.Address{}, chainhandler.NewHandlerError("ERR_PARSE", "ethhandler: converting amount to wei", chainhandler.ClassNonRetryable, err)
	}

	state.mu.Lock()
	nonce := state.nonces[from.Hex()]
	state.mu.Unlock()

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(state.chainID),
		Nonce:     nonce,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
		Gas:       basis.GasLimit.BigInt().Uint64(),
		To:        &to,
		Value:     amountWei.Value.BigInt(),
	})
	return tx, from, nil
}

func (h *Handler) finalizeSignedTx(handle *chainhandler.ManagerHandle, transfer *model.Transfer, from common.Address, signedTx *types.Transaction) (bool, error) {
	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_SERIALIZE", "ethhandler: serializing signed transaction", chainhandler.ClassNonRetryable, err)
	}
	transfer.Hash = signedTx.Hash().Hex()
	transfer.OriginatingData = raw
	if err := transfer.SetState(model.TransferState{Kind: model.TransferStateSigned}); err != nil {
		return false, chainhandler.NewHandlerError("ERR_BAD_STATE", "ethhandler: transitioning transfer to signed", chainhandler.ClassNonRetryable, err)
	}

	state, err := managerStateOf(handle)
	if err != nil {
		return false, err
	}
	state.mu.Lock()
	state.nonces[from.Hex()] = signedTx.Nonce() + 1
	state.mu.Unlock()

	return true, nil
}

// SignTransactionWithSeed signs a transfer by re-deriving the account's
// private key directly from seed, never storing it (spec.md op 7).
func (h *Handler) SignTransactionWithSeed(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, seed []byte) (bool, error) {
	if handle.Account.Keypair.Curve != account.CurveSecp256k1 {
		return false, chainhandler.NewHandlerError("ERR_BAD_CURVE", "ethhandler: ethereum requires a secp256k1 account", chainhandler.ClassNonRetryable, nil)
	}

	tx, from, err := h.buildUnsignedTx(handle, wallet, transfer)
	if err != nil {
		return false, err
	}
	state, err := managerStateOf(handle)
	if err != nil {
		return false, err
	}
	signer := types.LatestSignerForChainID(big.NewInt(state.chainID))
	hash := signer.Hash(tx)

	sig, err := account.SignWithSeed(seed, handle.Account.Path, handle.Account.Keypair.Curve, hash.Bytes())
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_SIGN", "ethhandler: signing with seed", chainhandler.ClassNonRetryable, err)
	}
	signedTx, err := tx.WithSignature(signer, sig)
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_SIGN", "ethhandler: attaching signature", chainhandler.ClassNonRetryable, err)
	}

	return h.finalizeSignedTx(handle, transfer, from, signedTx)
}

// SignTransactionWithKey signs a transfer with an externally-imported
// private key (spec.md op 8), used for key-import and sweep flows where the
// signing key does not belong to the manager's own derived Account.
func (h *Handler) SignTransactionWithKey(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, key account.Keypair) (bool, error) {
	if key.Curve != account.CurveSecp256k1 {
		return false, chainhandler.NewHandlerError("ERR_BAD_CURVE", "ethhandler: ethereum requires a secp256k1 key", chainhandler.ClassNonRetryable, nil)
	}
	if len(key.PrivateKey) == 0 {
		return false, chainhandler.NewHandlerError("ERR_NO_PRIVATE_KEY", "ethhandler: sign-transaction-with-key requires a private key", chainhandler.ClassNonRetryable, nil)
	}
	privKey, err := crypto.ToECDSA(key.PrivateKey)
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_BAD_KEY", "ethhandler: parsing imported private key", chainhandler.ClassNonRetryable, err)
	}

	tx, from, err := h.buildUnsignedTx(handle, wallet, transfer)
	if err != nil {
		return false, err
	}
	state, err := managerStateOf(handle)
	if err != nil {
		return false, err
	}
	signer := types.LatestSignerForChainID(big.NewInt(state.chainID))
	signedTx, err := signWithECDSA(tx, signer, privKey)
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_SIGN", "ethhandler: signing with imported key", chainhandler.ClassNonRetryable, err)
	}

	return h.finalizeSignedTx(handle, transfer, from, signedTx)
}

func signWithECDSA(tx *types.Transaction, signer types.Signer, key *ecdsa.PrivateKey) (*types.Transaction, error) {
	return types.SignTx(tx, signer, key)
}
