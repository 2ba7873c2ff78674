package account

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFileKeyUseLoggerRoundTrips covers the append/read shape every
// LogKeyUse call relies on: events come back out in the order they were
// written.
func TestFileKeyUseLoggerRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.ndjson")
	logger, err := NewFileKeyUseLogger(path)
	require.NoError(t, err)

	require.NoError(t, logger.LogKeyUse(KeyUseEvent{Family: "ethereum", Path: "m/44'/60'/0'/0/0", Operation: "sign", Status: "success"}))
	require.NoError(t, logger.LogKeyUse(KeyUseEvent{Family: "ethereum", Path: "m/44'/60'/0'/0/0", Operation: "sign", Status: "failure", FailureReason: "watch-only key source"}))

	events, err := logger.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "success", events[0].Status)
	require.Equal(t, "failure", events[1].Status)
	require.Equal(t, "watch-only key source", events[1].FailureReason)
}

// TestAccountSignLogsKeyUse covers Account.Sign's audit wiring: a signing
// attempt through a watch-only key source (one with no Signer) is recorded
// as a failure without an audit logger ever seeing the digest itself.
func TestAccountSignLogsKeyUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.ndjson")
	logger, err := NewFileKeyUseLogger(path)
	require.NoError(t, err)

	acc := &Account{Family: "ethereum", Path: "m/44'/60'/0'/0/0", keySource: watchOnlyKeySource{}}
	acc.WithAuditLogger(logger)

	_, err = acc.Sign([]byte("digest"))
	require.Error(t, err)

	events, err := logger.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "sign", events[0].Operation)
	require.Equal(t, "failure", events[0].Status)
}

// watchOnlyKeySource implements KeySource but not Signer, mirroring an
// xpub-derived or hardware-stub account that can derive public keys but
// never signs.
type watchOnlyKeySource struct{}

func (watchOnlyKeySource) Type() KeySourceType { return KeySourceXPub }
func (watchOnlyKeySource) DerivePublicKey(path string, curve Curve) ([]byte, error) {
	return nil, nil
}
