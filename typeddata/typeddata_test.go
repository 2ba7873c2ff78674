package typeddata

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// mailDocument is the canonical EIP-712 "Mail" example, used by spec.md's
// scenario S6.
func mailDocument(t *testing.T) *Document {
	t.Helper()
	raw := map[string]interface{}{
		"types": map[string]interface{}{
			"EIP712Domain": []interface{}{
				map[string]interface{}{"name": "name", "type": "string"},
				map[string]interface{}{"name": "version", "type": "string"},
				map[string]interface{}{"name": "chainId", "type": "uint256"},
				map[string]interface{}{"name": "verifyingContract", "type": "address"},
			},
			"Person": []interface{}{
				map[string]interface{}{"name": "name", "type": "string"},
				map[string]interface{}{"name": "wallet", "type": "address"},
			},
			"Mail": []interface{}{
				map[string]interface{}{"name": "from", "type": "Person"},
				map[string]interface{}{"name": "to", "type": "Person"},
				map[string]interface{}{"name": "contents", "type": "string"},
			},
		},
		"primaryType": "Mail",
		"domain": map[string]interface{}{
			"name":              "Ether Mail",
			"version":           "1",
			"chainId":           float64(1),
			"verifyingContract": "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccCC",
		},
		"message": map[string]interface{}{
			"from": map[string]interface{}{
				"name":   "Cow",
				"wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826",
			},
			"to": map[string]interface{}{
				"name":   "Bob",
				"wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB",
			},
			"contents": "Hello, Bob!",
		},
	}

	doc, err := NewDocument(raw)
	require.NoError(t, err)
	return doc
}

func TestEncodeTypeMail(t *testing.T) {
	doc := mailDocument(t)
	encoded, err := doc.EncodeType("Mail")
	require.NoError(t, err)
	require.Equal(t, "Mail(Person from,Person to,string contents)Person(string name,address wallet)", encoded)
}

func TestTypeHashMail(t *testing.T) {
	doc := mailDocument(t)
	hash, err := doc.TypeHash("Mail")
	require.NoError(t, err)
	require.Equal(t, "a0cedeb2dc280ba39b857546d74f5549c3a1d7bdc2dd96bf881f76108e23dac2", hex.EncodeToString(hash[:]))
}

func TestStructHashDomain(t *testing.T) {
	doc := mailDocument(t)
	hash, err := doc.StructHash(domainTypeName, doc.Domain)
	require.NoError(t, err)
	require.Equal(t, "f2cee375fa42b42143804025fc449deafd50cc031ca257e0b194a650a912090f", hex.EncodeToString(hash[:]))
}

func TestSignAndRecoverMail(t *testing.T) {
	doc := mailDocument(t)

	key, err := crypto.ToECDSA(crypto.Keccak256([]byte("cow")))
	require.NoError(t, err)

	sig, err := doc.Sign(key)
	require.NoError(t, err)

	require.Equal(t, byte(28), sig.V)
	require.Equal(t, "4355c47d63924e8a72e509b65029052eb6c299d53a04e167c5775fd466751c9d", hex.EncodeToString(sig.R[:]))
	require.Equal(t, "07299936d304c153f6443dfa05f40ff007d72911b6f72307f996231605b91562", hex.EncodeToString(sig.S[:]))

	recovered, err := sig.RecoverAddress()
	require.NoError(t, err)
	require.Equal(t, "cd2a3d9f938e13cd947ec05abc7fe734df8dd826", hex.EncodeToString(recovered[:]))
}

func TestValidationRejectsMissingTypes(t *testing.T) {
	_, err := NewDocument(map[string]interface{}{})
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.Equal(t, ErrMissingTypes, verr.Kind)
}
