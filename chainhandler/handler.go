// Package chainhandler defines the per-chain-family operation table
// (spec.md §4.1): one ChainHandler implementation per family, looked up
// by chain-family tag on every polymorphic call, installed once at
// program start into a build-time Registry.
package chainhandler

import (
	"time"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/model"
)

// ErrorClass classifies a HandlerError the way spec.md §7 requires chain
// handlers to report failure: never a panic, always one of these axes.
// It generalizes the teacher's chainadapter.ErrorClassification with the
// three axes spec.md's file-service/sync/parse layers add.
type ErrorClass int

const (
	ClassRetryable ErrorClass = iota
	ClassNonRetryable
	ClassUserIntervention
	ClassFileService
	ClassSync
	ClassParse
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRetryable:
		return "Retryable"
	case ClassNonRetryable:
		return "NonRetryable"
	case ClassUserIntervention:
		return "UserIntervention"
	case ClassFileService:
		return "FileService"
	case ClassSync:
		return "Sync"
	case ClassParse:
		return "Parse"
	default:
		return "Unknown"
	}
}

// HandlerError is the classified error every ChainHandler method returns
// on failure, modeled directly on the teacher's chainadapter.ChainError.
type HandlerError struct {
	Code    string
	Message string
	Class   ErrorClass
	Cause   error
}

func (e *HandlerError) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Message + " (caused by: " + e.Cause.Error() + ")"
	}
	return e.Code + ": " + e.Message
}

func (e *HandlerError) Unwrap() error { return e.Cause }

// NewHandlerError constructs a classified HandlerError.
func NewHandlerError(code, message string, class ErrorClass, cause error) *HandlerError {
	return &HandlerError{Code: code, Message: message, Class: class, Cause: cause}
}

// EventDescriptor names one kind of event a chain handler's event queue
// may emit (spec.md §4.1 op 4: "event types").
type EventDescriptor struct {
	Name        string
	Description string
}

// SweeperSupport reports whether a chain family supports empty-balance
// sweeping on key import (spec.md §4.1 op 15 — UTXO chains only).
type SweeperSupport struct {
	Supported bool
	Reason    string // populated when Supported is false
}

// Sweeper moves all balance reachable from an imported key into a wallet's
// own addresses. Only constructed for chains where SweeperSupport.Supported.
type Sweeper interface {
	EstimateSweepAmount(wallet *model.Wallet) (model.Amount, error)
	Sweep(wallet *model.Wallet) (*model.Transfer, error)
}

// ManagerConfig carries every construction-time parameter CreateManager
// needs, in place of the environment/global-registry configuration the
// original codebase used (spec.md §9's "global mutable state → explicit
// context").
type ManagerConfig struct {
	Account    *account.Account
	Network    *model.Network
	SyncMode   model.SyncMode
	AddressScheme model.AddressScheme
	Path       string
}

// ChainHandler is the per-chain-family operation table: spec.md §4.1's 15
// operations, one Go method apiece (two spec.md bullets that name a pair
// of operations become two methods here, kept adjacent).
type ChainHandler interface {
	Family() model.ChainFamily

	// 1-2
	CreateManager(cfg ManagerConfig) (*ManagerHandle, error)
	ReleaseManager(handle *ManagerHandle) error

	// 3
	CreateFileService(handle *ManagerHandle, basePath, currencyName, networkName string) (FileServiceHandle, error)

	// 4
	EventTypes() []EventDescriptor

	// 5
	CreateP2PManager(handle *ManagerHandle) (P2PManagerHandle, error)

	// 6
	CreateWallet(handle *ManagerHandle, currency model.Currency, preloadedTransactions []model.TransactionBundle, preloadedTransfers []model.TransferBundle) (*model.Wallet, error)

	// 7-8
	SignTransactionWithSeed(handle *ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, seed []byte) (bool, error)
	SignTransactionWithKey(handle *ManagerHandle, wallet *model.Wallet, transfer *model.Transfer, key account.Keypair) (bool, error)

	// 9
	EstimateLimit(handle *ManagerHandle, wallet *model.Wallet, asMaximum bool, target model.Address, networkFee model.NetworkFee, unit model.Unit) (amount model.Amount, needEstimate bool, zeroIsInsufficientFunds bool, err error)

	// 10
	EstimateFeeBasis(handle *ManagerHandle, wallet *model.Wallet, cookie string, target model.Address, amount model.Amount, networkFee model.NetworkFee, attributes []model.TransferAttribute) (basis *model.FeeBasis, pending bool, err error)

	// 11
	SaveTransactionBundle(handle *ManagerHandle, bundle model.TransactionBundle) error
	SaveTransferBundle(handle *ManagerHandle, bundle model.TransferBundle) error

	// 12
	RecoverTransfersFromTransactionBundle(handle *ManagerHandle, wallet *model.Wallet, bundle model.TransactionBundle) ([]*model.Transfer, error)

	// 13
	RecoverTransferFromTransferBundle(handle *ManagerHandle, wallet *model.Wallet, bundle model.TransferBundle) (*model.Transfer, error)

	// 14
	RecoverFeeBasisFromFeeEstimate(handle *ManagerHandle, transfer *model.Transfer, networkFee model.NetworkFee, costUnits map[string]uint64, attributes []model.TransferAttribute) (model.FeeBasis, error)

	// 15
	ValidateSweeperSupported(handle *ManagerHandle, importedKeyFamily model.ChainFamily) SweeperSupport
	CreateSweeper(handle *ManagerHandle, wallet *model.Wallet, importedKey account.Keypair) (Sweeper, error)
}

// ManagerHandle is the opaque per-manager state a ChainHandler implementation
// keeps between CreateManager and ReleaseManager; its contents are private
// to each handler package.
type ManagerHandle struct {
	Family  model.ChainFamily
	Account *account.Account
	Network *model.Network
	Impl    interface{} // handler-private state
}

// FileServiceHandle is an opaque reference a handler's CreateFileService
// returns, to be threaded back into SaveTransactionBundle etc. when a
// chain overrides default persistence.
type FileServiceHandle interface{}

// P2PManagerHandle is returned by CreateP2PManager; nil for API-only
// chains (spec.md §4.1 op 5: "optional; returns none for API-only chains").
type P2PManagerHandle interface{}

// ConfirmationTimerPeriod computes the sync engine's tick period for a
// network (spec.md §4.2): max(10s, min(60s, confirmation_period/4)).
func ConfirmationTimerPeriod(confirmationPeriod time.Duration) time.Duration {
	quarter := confirmationPeriod / 4
	if quarter > 60*time.Second {
		return 60 * time.Second
	}
	if quarter < 10*time.Second {
		return 10 * time.Second
	}
	return quarter
}
