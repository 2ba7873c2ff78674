// Package account holds derived per-chain-family key material: keypairs,
// derived addresses, and chain-specific account handles. An Account never
// stores a seed or private key; every signing call re-derives via its
// KeySource.
package account

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"fmt"
	"strconv"
	"strings"

	"github.com/anyproto/go-slip10"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"github.com/vedhavyas/go-subkey"
	subkeysr25519 "github.com/vedhavyas/go-subkey/sr25519"
)

// KeySourceType identifies the origin of an account's key material.
type KeySourceType string

const (
	KeySourceMnemonic KeySourceType = "mnemonic"
	KeySourceXPub     KeySourceType = "xpub"
	KeySourceHardware KeySourceType = "hardware"
)

// Curve selects the signature scheme a chain family expects.
type Curve string

const (
	CurveSecp256k1 Curve = "secp256k1"
	CurveEd25519   Curve = "ed25519"
	CurveSr25519   Curve = "sr25519"
)

// ErrNotYetImplemented marks a KeySource operation this module's scope
// never exercises: hardware-wallet derivation and signing stay stubbed
// exactly as in the teacher.
var ErrNotYetImplemented = fmt.Errorf("account: not yet implemented")

// KeySource abstracts key material sources for public-key derivation.
// Implementations MUST NOT expose private key material directly.
type KeySource interface {
	Type() KeySourceType
	DerivePublicKey(path string, curve Curve) ([]byte, error)
}

// Signer is implemented by KeySources that hold enough material to produce
// signatures (mnemonic-backed sources; not xpub or hardware-stub sources).
type Signer interface {
	Sign(path string, curve Curve, digest []byte) ([]byte, error)
}

// MnemonicKeySource derives key material from a BIP-39 mnemonic on demand.
// The mnemonic is held in memory for the lifetime of the source but is
// never serialized by Account.Serialize.
type MnemonicKeySource struct {
	mnemonic string
	password string
}

// NewMnemonicKeySource validates and wraps a BIP-39 mnemonic phrase.
func NewMnemonicKeySource(mnemonic, password string) (*MnemonicKeySource, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("account: invalid BIP-39 mnemonic")
	}
	return &MnemonicKeySource{mnemonic: mnemonic, password: password}, nil
}

func (m *MnemonicKeySource) Type() KeySourceType { return KeySourceMnemonic }

func (m *MnemonicKeySource) seed() []byte {
	return bip39.NewSeed(m.mnemonic, m.password)
}

// DerivePublicKey derives the public key at path under the given curve.
func (m *MnemonicKeySource) DerivePublicKey(path string, curve Curve) ([]byte, error) {
	switch curve {
	case CurveSecp256k1:
		key, err := deriveSecp256k1(m.seed(), path)
		if err != nil {
			return nil, err
		}
		return key.PublicKey().Key, nil
	case CurveEd25519:
		_, pub, err := deriveEd25519(m.seed(), path)
		if err != nil {
			return nil, err
		}
		return pub, nil
	case CurveSr25519:
		_, pub, err := deriveSr25519(m.mnemonic, path)
		if err != nil {
			return nil, err
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("account: unsupported curve %q", curve)
	}
}

// Sign re-derives the private key at path and signs digest, per the curve's
// native signature scheme. For secp256k1 this returns a 65-byte compact
// recoverable signature (r ∥ s ∥ v); for ed25519 a 64-byte signature; for
// sr25519 a 64-byte Schnorrkel signature.
func (m *MnemonicKeySource) Sign(path string, curve Curve, digest []byte) ([]byte, error) {
	switch curve {
	case CurveSecp256k1:
		key, err := deriveSecp256k1(m.seed(), path)
		if err != nil {
			return nil, err
		}
		ecdsaKey, err := crypto.ToECDSA(key.Key)
		if err != nil {
			return nil, fmt.Errorf("account: secp256k1 key conversion: %w", err)
		}
		return signSecp256k1(ecdsaKey, digest)
	case CurveEd25519:
		priv, _, err := deriveEd25519(m.seed(), path)
		if err != nil {
			return nil, err
		}
		return ed25519.Sign(priv, digest), nil
	case CurveSr25519:
		priv, _, err := deriveSr25519(m.mnemonic, path)
		if err != nil {
			return nil, err
		}
		return priv.Sign(digest)
	default:
		return nil, fmt.Errorf("account: unsupported curve %q", curve)
	}
}

func signSecp256k1(key *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	return crypto.Sign(digest, key)
}

func deriveSecp256k1(seed []byte, path string) (*bip32.Key, error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("account: master key derivation: %w", err)
	}
	indices, err := parseBIP44Path(path)
	if err != nil {
		return nil, err
	}
	key := master
	for i, idx := range indices {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("account: child key derivation at depth %d: %w", i, err)
		}
	}
	return key, nil
}

func deriveEd25519(seed []byte, path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	key, err := slip10.DeriveForPath(path, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("account: slip10 derivation: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(key.Seed())
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("account: ed25519 public key assertion failed")
	}
	return priv, pub, nil
}

// deriveSr25519 derives a Substrate-style sr25519 keypair by translating a
// BIP44 numeric path into a subkey "hard" junction URI appended to the
// mnemonic (Substrate chains do not use BIP44 apostrophe notation; they
// use "//component" junctions applied directly to the seed phrase).
func deriveSr25519(mnemonic, path string) (subkey.KeyPair, []byte, error) {
	indices, err := parseRawPathComponents(path)
	if err != nil {
		return nil, nil, err
	}
	uri := mnemonic
	for _, c := range indices {
		uri += "//" + c
	}
	kp, err := subkey.DeriveKeyPair(subkeysr25519.Scheme{}, uri)
	if err != nil {
		return nil, nil, fmt.Errorf("account: sr25519 derivation: %w", err)
	}
	return kp, kp.Public(), nil
}

// SignWithSeed signs digest by deriving a path's private key directly from
// a raw BIP-39 seed, without constructing a KeySource or Account (spec.md
// operation 7 "sign-transaction-with-seed": the host hands the manager a
// freshly-derived seed for a single signing call, and the manager re-derives
// rather than retaining it). sr25519 is not supported here since Substrate
// derivation operates on mnemonic words, not a raw seed; use a
// MnemonicKeySource for that curve instead.
func SignWithSeed(seed []byte, path string, curve Curve, digest []byte) ([]byte, error) {
	switch curve {
	case CurveSecp256k1:
		key, err := deriveSecp256k1(seed, path)
		if err != nil {
			return nil, err
		}
		ecdsaKey, err := crypto.ToECDSA(key.Key)
		if err != nil {
			return nil, fmt.Errorf("account: secp256k1 key conversion: %w", err)
		}
		return signSecp256k1(ecdsaKey, digest)
	case CurveEd25519:
		priv, _, err := deriveEd25519(seed, path)
		if err != nil {
			return nil, err
		}
		return ed25519.Sign(priv, digest), nil
	default:
		return nil, fmt.Errorf("account: SignWithSeed does not support curve %q", curve)
	}
}

// DeriveSecp256k1PrivateKeyWithSeed re-derives the raw 32-byte secp256k1
// private key at path from seed. It exists for chain handlers that need
// the key itself rather than a single signature — Avalanche's transaction
// codec signs every input with the same key object in one call, so handing
// it a digest-at-a-time signer like SignWithSeed would not fit.
func DeriveSecp256k1PrivateKeyWithSeed(seed []byte, path string) ([]byte, error) {
	key, err := deriveSecp256k1(seed, path)
	if err != nil {
		return nil, err
	}
	return key.Key, nil
}

// XPubKeySource derives only public keys from an extended public key; it
// cannot sign (watch-only).
type XPubKeySource struct {
	key *bip32.Key
}

// NewXPubKeySource wraps a base58-serialized extended public key.
func NewXPubKeySource(xpub string) (*XPubKeySource, error) {
	key, err := bip32.B58Deserialize(xpub)
	if err != nil {
		return nil, fmt.Errorf("account: invalid extended public key: %w", err)
	}
	if key.IsPrivate {
		return nil, fmt.Errorf("account: expected an extended public key, got a private one")
	}
	return &XPubKeySource{key: key}, nil
}

func (x *XPubKeySource) Type() KeySourceType { return KeySourceXPub }

// DerivePublicKey derives along a non-hardened path relative to the xpub's
// own level (e.g. "0/0", not "m/44'/0'/0'/0/0"); any curve other than
// secp256k1 is rejected, since an xpub is inherently secp256k1.
func (x *XPubKeySource) DerivePublicKey(path string, curve Curve) ([]byte, error) {
	if curve != CurveSecp256k1 {
		return nil, fmt.Errorf("account: xpub key source only supports secp256k1, got %q", curve)
	}
	indices, err := parseRawIndices(path)
	if err != nil {
		return nil, err
	}
	key := x.key
	for i, idx := range indices {
		if idx >= bip32.FirstHardenedChild {
			return nil, fmt.Errorf("account: xpub cannot derive hardened path component at depth %d", i)
		}
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("account: xpub child derivation at depth %d: %w", i, err)
		}
	}
	return key.PublicKey().Key, nil
}

// HardwareKeySource is a stub for hardware-wallet-backed accounts (Ledger,
// Trezor). Matches the teacher's own unimplemented stub one-for-one.
type HardwareKeySource struct {
	DeviceType string
	DevicePath string
}

func NewHardwareKeySource(deviceType, devicePath string) (*HardwareKeySource, error) {
	return nil, ErrNotYetImplemented
}

func (h *HardwareKeySource) Type() KeySourceType { return KeySourceHardware }

func (h *HardwareKeySource) DerivePublicKey(path string, curve Curve) ([]byte, error) {
	return nil, ErrNotYetImplemented
}

// parseBIP44Path parses "m/44'/9000'/0'/0/0" into BIP32 child indices,
// applying the hardened offset for apostrophe-suffixed components.
func parseBIP44Path(path string) ([]uint32, error) {
	return parseIndices(path, true)
}

// parseRawIndices parses a path without applying the hardened offset: an
// apostrophe-suffixed component is rejected with an error (used for
// xpub-relative paths, where the caller also rejects any numeric component
// at or above the hardened offset).
func parseRawIndices(path string) ([]uint32, error) {
	return parseIndices(path, false)
}

func parseIndices(path string, allowHardened bool) ([]uint32, error) {
	parts := splitPath(path)
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		hardened := false
		if strings.HasSuffix(part, "'") {
			hardened = true
			part = strings.TrimSuffix(part, "'")
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("account: invalid path component %q: %w", part, err)
		}
		idx := uint32(n)
		if hardened {
			if !allowHardened {
				return nil, fmt.Errorf("account: hardened path component %q not allowed here", part)
			}
			idx += bip32.FirstHardenedChild
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// parseRawPathComponents returns each path component verbatim (apostrophe
// included), for translation into subkey junction syntax.
func parseRawPathComponents(path string) ([]string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("account: empty derivation path")
	}
	return parts, nil
}

func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "m/")
	if path == "" || path == "m" {
		return nil
	}
	return strings.Split(path, "/")
}
