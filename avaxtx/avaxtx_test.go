package avaxtx

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/arcsign/walletkit/primitives"
)

func testUTXO(txidSeed byte, index uint32, amount uint64, owner [20]byte) UTXO {
	txid := make(primitives.Hash, 32)
	for i := range txid {
		txid[i] = txidSeed
	}
	asset := make(primitives.Hash, 32)
	asset[0] = 0xAA
	return NewUTXO(txid, index, asset, amount, [][20]byte{owner})
}

func TestSelectUTXOsAccumulatesUntilCovered(t *testing.T) {
	var source [20]byte
	source[0] = 0x01

	utxos := []UTXO{
		testUTXO(1, 0, 10, source),
		testUTXO(2, 0, 20, source),
		testUTXO(3, 0, 5, source),
	}

	selected, total := SelectUTXOs(utxos, source, utxos[0].Asset, 25, SortByAmountAscending)
	require.NotNil(t, selected)
	require.GreaterOrEqual(t, total, uint64(25))

	var sum uint64
	for _, u := range selected {
		sum += u.Amount
	}
	require.Equal(t, total, sum)
}

func TestSelectUTXOsExhaustedReturnsEmpty(t *testing.T) {
	var source [20]byte
	source[0] = 0x01
	utxos := []UTXO{testUTXO(1, 0, 5, source)}

	selected, total := SelectUTXOs(utxos, source, utxos[0].Asset, 100, SortNone)
	require.Nil(t, selected)
	require.Equal(t, uint64(0), total)
}

func TestBuildTransactionProducesChangeOutputWhenOverselected(t *testing.T) {
	var source, target, change [20]byte
	source[0], target[0], change[0] = 0x01, 0x02, 0x03

	utxos := []UTXO{testUTXO(1, 0, 30, source)}
	tx, err := Build(BuildParams{
		CodecVersion: 0,
		NetworkID:    1,
		BlockchainID: make(primitives.Hash, 32),
		Source:       source,
		Target:       target,
		Change:       change,
		Asset:        utxos[0].Asset,
		Amount:       10,
		FeeAmount:    1,
		UTXOs:        utxos,
	})
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 2)
	require.Equal(t, uint64(10), tx.Outputs[0].Amount)
	require.Equal(t, uint64(19), tx.Outputs[1].Amount) // 30 - (10+1)
}

func TestEncodeIsDeterministic(t *testing.T) {
	var source, target [20]byte
	source[0], target[0] = 0x01, 0x02

	utxos := []UTXO{testUTXO(1, 0, 10, source), testUTXO(2, 0, 10, source)}
	params := BuildParams{
		NetworkID:    1,
		BlockchainID: make(primitives.Hash, 32),
		Source:       source,
		Target:       target,
		Change:       source,
		Asset:        utxos[0].Asset,
		Amount:       5,
		FeeAmount:    1,
		UTXOs:        utxos,
	}

	tx1, err := Build(params)
	require.NoError(t, err)
	tx2, err := Build(params)
	require.NoError(t, err)

	require.Equal(t, tx1.Encode(), tx2.Encode())
}

func TestDecodeRoundTripsEncode(t *testing.T) {
	var source, target, change [20]byte
	source[0], target[0], change[0] = 0x01, 0x02, 0x03

	utxos := []UTXO{testUTXO(1, 0, 10, source), testUTXO(2, 0, 10, source)}
	tx, err := Build(BuildParams{
		CodecVersion: 7,
		NetworkID:    1,
		BlockchainID: make(primitives.Hash, 32),
		Source:       source,
		Target:       target,
		Change:       change,
		Asset:        utxos[0].Asset,
		Amount:       5,
		FeeAmount:    1,
		Memo:         []byte("hello"),
		UTXOs:        utxos,
	})
	require.NoError(t, err)

	encoded := tx.Encode()

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, encoded, decoded.Encode())

	require.Equal(t, tx.CodecVersion, decoded.CodecVersion)
	require.Equal(t, tx.Purpose, decoded.Purpose)
	require.Equal(t, tx.NetworkID, decoded.NetworkID)
	require.True(t, tx.BlockchainID.Equal(decoded.BlockchainID))
	require.Equal(t, tx.Memo, decoded.Memo)
	require.Len(t, decoded.Inputs, len(tx.Inputs))
	require.Len(t, decoded.Outputs, len(tx.Outputs))
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02})
	require.Error(t, err)
}

func TestSignProducesLowSRecoverableCredential(t *testing.T) {
	var source, target [20]byte
	source[0], target[0] = 0x01, 0x02

	utxos := []UTXO{testUTXO(1, 0, 10, source)}
	tx, err := Build(BuildParams{
		NetworkID:    1,
		BlockchainID: make(primitives.Hash, 32),
		Source:       source,
		Target:       target,
		Change:       source,
		Asset:        utxos[0].Asset,
		Amount:       5,
		UTXOs:        utxos,
	})
	require.NoError(t, err)

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	creds, digest, err := tx.Sign(key)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	require.LessOrEqual(t, creds[0].V, byte(1))
	require.NotEqual(t, [32]byte{}, digest)

	signed := tx.SignedEncode(creds)
	require.Greater(t, len(signed), len(tx.Encode()))
}
