package typeddata

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signature is a recoverable VRS-EIP signature (spec.md §4.4): v in
// {27,28}, produced over a typed-data digest. It carries the signed
// digest alongside (v, r, s) so a verifier doesn't need to recompute it
// from the original document.
type Signature struct {
	Digest [32]byte
	V      byte
	R      [32]byte
	S      [32]byte
}

// Sign computes the document's digest and signs it with key, producing a
// VRS-EIP signature (spec.md §4.4 "Signature").
func (d *Document) Sign(key *ecdsa.PrivateKey) (Signature, error) {
	digest, err := d.Digest()
	if err != nil {
		return Signature{}, err
	}
	return SignDigest(digest, key)
}

// SignDigest signs an already-computed digest directly, used both by
// Document.Sign and by tests that check against a fixed digest vector.
func SignDigest(digest [32]byte, key *ecdsa.PrivateKey) (Signature, error) {
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return Signature{}, fmt.Errorf("typeddata: signing digest: %w", err)
	}
	var out Signature
	out.Digest = digest
	copy(out.R[:], sig[0:32])
	copy(out.S[:], sig[32:64])
	out.V = sig[64] + 27
	return out, nil
}

// RecoverAddress recovers the 20-byte signer address from a VRS-EIP
// signature over its digest.
func (s Signature) RecoverAddress() ([20]byte, error) {
	sig := make([]byte, 65)
	copy(sig[0:32], s.R[:])
	copy(sig[32:64], s.S[:])
	sig[64] = s.V - 27

	pub, err := crypto.SigToPub(s.Digest[:], sig)
	if err != nil {
		return [20]byte{}, fmt.Errorf("typeddata: recovering signer: %w", err)
	}
	var out [20]byte
	copy(out[:], crypto.PubkeyToAddress(*pub).Bytes())
	return out, nil
}
