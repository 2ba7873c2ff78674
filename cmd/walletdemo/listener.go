package main

import (
	"go.uber.org/zap"

	"github.com/arcsign/walletkit/listener"
)

// loggingListener satisfies listener.Listener by writing every event
// through a zap logger, standing in for the host UI dispatcher spec.md §1
// places out of this module's scope.
type loggingListener struct {
	log *zap.Logger
}

func newLoggingListener(log *zap.Logger) *loggingListener {
	return &loggingListener{log: log}
}

func (l *loggingListener) OnNetworkEvent(event listener.NetworkEvent) {
	fields := []zap.Field{zap.String("network", event.Network.UIDS)}
	if event.Height != nil {
		fields = append(fields, zap.Uint64("height", *event.Height))
	}
	if event.VerifiedHash != nil {
		fields = append(fields, zap.String("verifiedHash", *event.VerifiedHash))
	}
	l.log.Info("network event", fields...)
}

func (l *loggingListener) OnWalletEvent(event listener.WalletEvent) {
	fields := []zap.Field{zap.String("currency", event.Wallet.Currency.Code)}
	if event.Balance != nil {
		fields = append(fields, zap.String("balance", event.Balance.Value.String()))
	}
	if event.Added != nil {
		fields = append(fields, zap.String("added", event.Added.UIDS))
	}
	if event.Changed != nil {
		fields = append(fields, zap.String("changed", event.Changed.UIDS))
	}
	l.log.Info("wallet event", fields...)
}

func (l *loggingListener) OnTransferEvent(event listener.TransferEvent) {
	l.log.Info("transfer event",
		zap.String("transfer", event.Transfer.UIDS),
		zap.String("from", string(event.Previous)),
		zap.String("to", string(event.Current)),
	)
}

func (l *loggingListener) OnManagerEvent(event listener.ManagerEvent) {
	l.log.Info("manager event", zap.String("state", string(event.State)))
}

func (l *loggingListener) OnSystemEvent(event listener.SystemEvent) {
	switch event.Severity {
	case listener.SeverityError:
		l.log.Error("system event", zap.String("message", event.Message))
	case listener.SeverityWarning:
		l.log.Warn("system event", zap.String("message", event.Message))
	default:
		l.log.Info("system event", zap.String("message", event.Message))
	}
}
