package tezoshandler

import (
	"crypto/ed25519"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/tezostx"
)

// effectiveFeeBasis mirrors Transfer.effectiveFeeBasis (unexported in
// model): prefer the confirmed basis once one has been recorded.
func effectiveFeeBasis(t *model.Transfer) model.FeeBasis {
	if t.ConfirmedFeeBasis != nil {
		return *t.ConfirmedFeeBasis
	}
	return t.EstimatedFeeBasis
}

// branchFromVerifiedHash folds the network's verified block hash string
// down to the 32-byte branch Build anchors the operation to. This handler
// never parses the node's actual base58check block-hash encoding (no tzgo
// forge/codec surface is wired in here, see tezostx's package doc), so the
// string is hashed instead of decoded; the branch only needs to change
// whenever the verified block does, which a hash still guarantees.
func branchFromVerifiedHash(hash string) [32]byte {
	return blake2b.Sum256([]byte(hash))
}

// buildTransaction renders a Transfer as a tezostx.Transaction, chaining a
// reveal operation ahead of it when the account is not yet known-revealed
// (mirroring EstimateFeeBasis's needsReveal check).
func (h *Handler) buildTransaction(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer) (*tezostx.Transaction, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return nil, err
	}

	source, err := tezosAddressBytes(transfer.Source)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: parsing source address", chainhandler.ClassParse, err)
	}
	target, err := tezosAddressBytes(transfer.Target)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: parsing target address", chainhandler.ClassParse, err)
	}

	basis := effectiveFeeBasis(transfer)
	if basis.Kind != model.FeeBasisKindStructured || len(basis.Operations) == 0 {
		return nil, chainhandler.NewHandlerError("ERR_BAD_FEE_BASIS", "tezoshandler: expected a structured fee basis with one operation", chainhandler.ClassNonRetryable, nil)
	}
	primary := basis.Operations[0]

	amountUnits, err := transfer.Amount.ConvertTo(wallet.Unit)
	if err != nil {
		return nil, chainhandler.NewHandlerError("ERR_PARSE", "tezoshandler: converting amount to mutez", chainhandler.ClassNonRetryable, err)
	}

	state.mu.Lock()
	needsReveal := !state.revealed
	counter := state.counter + 1
	state.mu.Unlock()

	params := tezostx.BuildParams{
		Branch:       branchFromVerifiedHash(handle.Network.VerifiedHash()),
		Source:       source,
		Destination:  target,
		Amount:       amountUnits.Value.BigInt().Uint64(),
		Fee:          primary.Burn.Value.BigInt().Uint64(),
		Counter:      counter,
		GasLimit:     primary.Gas.BigInt().Uint64(),
		StorageLimit: primary.Storage.BigInt().Uint64(),
	}
	if needsReveal {
		if basis.Reveal == nil || len(basis.Reveal.Operations) == 0 {
			return nil, chainhandler.NewHandlerError("ERR_BAD_FEE_BASIS", "tezoshandler: account needs a reveal but fee basis carries none", chainhandler.ClassNonRetryable, nil)
		}
		revealOp := basis.Reveal.Operations[0]
		params.NeedsReveal = true
		params.RevealPublicKey = handle.Account.Keypair.PublicKey
		params.RevealFee = revealOp.Burn.Value.BigInt().Uint64()
		params.RevealGasLimit = revealOp.Gas.BigInt().Uint64()
	}

	return tezostx.Build(params)
}

func (h *Handler) finalizeSignedTransaction(handle *chainhandler.ManagerHandle, transfer *model.Transfer, tx *tezostx.Transaction, signature []byte, digest [32]byte) (bool, error) {
	state, err := managerStateOf(handle)
	if err != nil {
		return false, err
	}

	transfer.Hash = hex.EncodeToString(digest[:])
	transfer.OriginatingData = tx.SignedEncode(signature)
	if err := transfer.SetState(model.TransferState{Kind: model.TransferStateSigned}); err != nil {
		return false, chainhandler.NewHandlerError("ERR_BAD_STATE", "tezoshandler: transitioning transfer to signed", chainhandler.ClassNonRetryable, err)
	}

	state.mu.Lock()
	state.counter = tx.Operations[len(tx.Operations)-1].Counter
	state.mu.Unlock()

	return true, nil
}

// SignTransactionWithSeed signs a transfer by re-deriving the account's
// Ed25519 key directly from seed (spec.md op 7). A reveal operation is
// chained ahead of the transfer automatically when the account has not yet
// published its public key, mirroring wkWalletManagerEstimateFeeBasisXTZ's
// reveal-then-transact shape.
func (h *Handler) SignTransactionWithSeed(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, seed []byte) (bool, error) {
	if handle.Account.Keypair.Curve != account.CurveEd25519 {
		return false, chainhandler.NewHandlerError("ERR_BAD_CURVE", "tezoshandler: tezos requires an ed25519 account", chainhandler.ClassNonRetryable, nil)
	}

	tx, err := h.buildTransaction(handle, wallet, transfer)
	if err != nil {
		return false, err
	}

	digest := tx.Digest()
	sig, err := account.SignWithSeed(seed, handle.Account.Path, account.CurveEd25519, digest[:])
	if err != nil {
		return false, chainhandler.NewHandlerError("ERR_SIGN", "tezoshandler: signing with seed", chainhandler.ClassNonRetryable, err)
	}
	if !ed25519.Verify(handle.Account.Keypair.PublicKey, digest[:], sig) {
		return false, chainhandler.NewHandlerError("ERR_SIGN", "tezoshandler: signature failed self-verification", chainhandler.ClassNonRetryable, nil)
	}

	return h.finalizeSignedTransaction(handle, transfer, tx, sig, digest)
}

// SignTransactionWithKey always fails: Tezos's implicit accounts sign with
// the account's own derived key only, matching
// wkWalletManagerSignTransactionWithKeyXTZ's literal assert(0) ("Not
// supported").
func (h *Handler) SignTransactionWithKey(handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, key account.Keypair) (bool, error) {
	return false, chainhandler.NewHandlerError("ERR_UNSUPPORTED", "tezoshandler: sign-transaction-with-key is not supported for tezos", chainhandler.ClassNonRetryable, nil)
}
