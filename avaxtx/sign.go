package avaxtx

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Credential is one input's signature, appended after the transaction
// body (spec.md §4.5 "Signing").
type Credential struct {
	R [32]byte
	S [32]byte
	V byte // 0 or 1
}

// Sign hashes the unsigned serialization with SHA-256 and produces one
// recoverable low-S credential per input, all using the same key (the
// simple case where every selected UTXO belongs to the same source
// address).
func (t *Transaction) Sign(key *btcec.PrivateKey) ([]Credential, [32]byte, error) {
	unsigned := t.Encode()
	digest := sha256.Sum256(unsigned)

	compact, err := ecdsa.SignCompact(key, digest[:], true)
	if err != nil {
		return nil, [32]byte{}, fmt.Errorf("avaxtx: signing digest: %w", err)
	}
	if len(compact) != 65 {
		return nil, [32]byte{}, fmt.Errorf("avaxtx: unexpected compact signature length %d", len(compact))
	}

	header := compact[0]
	recoveryID := header - 27
	if recoveryID >= 4 {
		recoveryID -= 4 // compressed-key flag
	}

	var cred Credential
	copy(cred.R[:], compact[1:33])
	copy(cred.S[:], compact[33:65])
	cred.V = recoveryID

	creds := make([]Credential, len(t.Inputs))
	for i := range creds {
		creds[i] = cred
	}
	return creds, digest, nil
}

const credentialPurposeTag uint32 = uint32(PurposeCredential)

// EncodeCredentials implements spec.md §4.5's credential encoding: a
// 4-byte purpose tag, 4-byte count, then each 65-byte signature
// concatenated as r, s, then the 1-byte recovery id — the RSV layout
// BRAvalancheSignature uses, rather than Ethereum's VRS.
func EncodeCredentials(creds []Credential) []byte {
	out := encodeValue(uint64(credentialPurposeTag), 4)
	out = append(out, encodeValue(uint64(len(creds)), 4)...)
	for _, c := range creds {
		out = append(out, c.R[:]...)
		out = append(out, c.S[:]...)
		out = append(out, c.V)
	}
	return out
}

// SignedEncode appends the input's credential array after the unsigned
// transaction body.
func (t *Transaction) SignedEncode(creds []Credential) []byte {
	return append(t.Encode(), EncodeCredentials(creds)...)
}
