// Package submit implements the transfer submit path of spec.md §4.3:
// sign with a paper key or an imported key, attach the signed transfer to
// its currency wallet (and, for a cross-currency fee, the native wallet
// too), dispatch it to the host's submit-transaction callback, and apply
// the submit-reply outcome.
package submit

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/client"
	"github.com/arcsign/walletkit/model"
)

// Sign derives a BIP-39 seed directly from paperKey — mirroring
// wkAccountDeriveSeed's mnemonic-to-seed step — and hands it to the chain
// handler's sign-with-seed operation (spec.md §4.3 step 1). The seed never
// outlives this call; nothing in this package retains it.
func Sign(handler chainhandler.ChainHandler, handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, paperKey string) error {
	seed := bip39.NewSeed(paperKey, "")
	ok, err := handler.SignTransactionWithSeed(handle, wallet, transfer, seed)
	if err != nil {
		return fmt.Errorf("submit: sign-transaction-with-seed: %w", err)
	}
	if !ok {
		return fmt.Errorf("submit: sign-transaction-with-seed declined the transfer")
	}
	return nil
}

// SignWithKey signs with an externally-imported key rather than the
// manager's own derived account (spec.md op 8; the key-import and sweep
// flows, where the signing key is not one the account derived itself).
func SignWithKey(handler chainhandler.ChainHandler, handle *chainhandler.ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, key account.Keypair) error {
	ok, err := handler.SignTransactionWithKey(handle, wallet, transfer, key)
	if err != nil {
		return fmt.Errorf("submit: sign-transaction-with-key: %w", err)
	}
	if !ok {
		return fmt.Errorf("submit: sign-transaction-with-key declined the transfer")
	}
	return nil
}

// Submit implements spec.md §4.3 steps 2-3: attaches the now-signed
// transfer to the currency wallet and, when its fee is paid in a different
// currency, to the native wallet as a weak appearance (spec.md §3), then
// dispatches it to the host's submit-transaction callback using the
// handler-assigned hash and serialization a prior Sign call produced.
// feeWallet is nil for a same-currency transfer, or when no separate
// native wallet applies.
func Submit(c client.Client, state client.CallbackState, wallet, feeWallet *model.Wallet, transfer *model.Transfer) error {
	if err := wallet.AddOwnedTransfer(transfer); err != nil {
		return fmt.Errorf("submit: adding transfer to currency wallet: %w", err)
	}
	if feeWallet != nil && feeWallet != wallet {
		if err := feeWallet.AddWeakTransfer(transfer); err != nil {
			return fmt.Errorf("submit: adding weak fee appearance to native wallet: %w", err)
		}
	}

	raw, ok := transfer.OriginatingData.([]byte)
	if !ok {
		return fmt.Errorf("submit: transfer has no serialized originating data; was it signed?")
	}
	if err := c.SubmitTransaction(state, transfer.Hash, raw); err != nil {
		return fmt.Errorf("submit: dispatching submit-transaction: %w", err)
	}
	return nil
}

// HandleSubmitReply implements spec.md §4.3 step 4. On success the transfer
// moves to submitted and adopts any indexer-assigned hash (some chains only
// learn their hash on submit); on failure it moves to errored(submit-unknown).
// Either way, renotifying both wallets is enough to apply — or, on failure,
// implicitly undo — the fee's balance effect: Wallet.recomputeBalanceLocked
// already treats an errored transfer as contributing zero, so no separate
// rollback bookkeeping is needed. This mirrors wkClientHandleSubmit, which
// on error forces exactly this recompute on the native wallet rather than
// reversing anything by hand.
func HandleSubmitReply(wallet, feeWallet *model.Wallet, transfer *model.Transfer, success bool, hashHex string) error {
	var next model.TransferState
	if success {
		next = model.TransferState{Kind: model.TransferStateSubmitted}
	} else {
		next = model.TransferState{Kind: model.TransferStateErrored, ErrorKind: "submit-unknown"}
	}
	if err := transfer.SetState(next); err != nil {
		return fmt.Errorf("submit: transitioning transfer state: %w", err)
	}
	if hashHex != "" {
		transfer.Hash = hashHex
	}

	if err := wallet.NotifyTransferChanged(transfer); err != nil {
		return fmt.Errorf("submit: notifying currency wallet: %w", err)
	}
	if feeWallet != nil && feeWallet != wallet {
		if err := feeWallet.NotifyTransferChanged(transfer); err != nil {
			return fmt.Errorf("submit: notifying native wallet: %w", err)
		}
	}
	return nil
}
