package account

import (
	"encoding/hex"
	"testing"

	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/primitives"
	"github.com/stretchr/testify/require"
)

const s3PaperKey = "patient doctor olympic frog force glimpse endless antenna online dragon bargain someone"
const s3Path = "m/44'/9000'/0'/0/0"

func deriveAvalancheAddresses(pub []byte) ([]model.Address, error) {
	hash := primitives.ShortAddressHash(pub)
	return []model.Address{
		{Family: model.ChainFamilyAvalanche, Scheme: model.SchemeAvalancheXChain, Bytes: hash},
		{Family: model.ChainFamilyAvalanche, Scheme: model.SchemeAvalancheCChain, Bytes: hash},
	}, nil
}

// TestAddressDerivationS3 is spec.md scenario S3.
func TestAddressDerivationS3(t *testing.T) {
	ks, err := NewMnemonicKeySource(s3PaperKey, "")
	require.NoError(t, err)

	pub, err := ks.DerivePublicKey(s3Path, CurveSecp256k1)
	require.NoError(t, err)
	require.Equal(t, "029dc79308883267bb49f3924e9eb58d60bcecd17ad3f2f53681ecc5c668b2ba5f", hex.EncodeToString(pub))

	hash := primitives.ShortAddressHash(pub)
	require.Equal(t, "cc30e2015780a6c72efaef2280e3de4a954e770c", hash.Hex())

	addr, err := primitives.Bech32WithSeparator("X", "avax", hash)
	require.NoError(t, err)
	require.Equal(t, "X-avax1escwyq2hsznvwth6au3gpc77f225uacvwldgal", addr)
}

// TestAccountSerializeDeserializeS4 is spec.md scenario S4.
func TestAccountSerializeDeserializeS4(t *testing.T) {
	ks, err := NewMnemonicKeySource(s3PaperKey, "")
	require.NoError(t, err)

	acc, err := NewAccountFromSeed(ks, model.ChainFamilyAvalanche, s3Path, CurveSecp256k1, deriveAvalancheAddresses, nil)
	require.NoError(t, err)
	require.Len(t, acc.Addresses, 2)

	blob, err := acc.Serialize(nil)
	require.NoError(t, err)

	reconstructed, err := DeserializeAccount(blob, ks, nil)
	require.NoError(t, err)

	require.Len(t, reconstructed.Addresses, 2)
	for _, original := range acc.Addresses {
		require.True(t, reconstructed.HasAddress(original))
	}
	for _, restored := range reconstructed.Addresses {
		require.True(t, acc.HasAddress(restored))
	}
}
