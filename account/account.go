package account

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/arcsign/walletkit/model"
)

// Keypair is the per-chain-family key material: the curve it was derived
// under and the raw public key bytes. An Account's own Keypair never
// populates PrivateKey — Account.Sign re-derives through its KeySource
// instead. PrivateKey is only ever set by a caller handing a handler an
// externally-imported key (spec.md's sign-transaction-with-key and sweep
// operations: a paper/imported key the wallet does not own).
type Keypair struct {
	Curve      Curve
	PublicKey  []byte
	PrivateKey []byte
}

// Account holds, per chain family, the minimal derived handle that family
// needs: a Keypair, zero or more addresses, and any opaque chain-specific
// handle (e.g. Avalanche's X/C-chain HRP pair, or a Tezos reveal-state
// flag). It never stores a seed or private key; Sign re-derives through
// KeySource on every call.
type Account struct {
	Family ChainFamilyTag
	Path   string
	Keypair   Keypair
	Addresses []model.Address
	Handle    interface{}

	keySource   KeySource
	auditLogger KeyUseLogger
}

// ChainFamilyTag mirrors model.ChainFamily without importing model's
// identity cyclically into derivation — kept as a plain string alias so
// account has no hard dependency on the handler that uses it.
type ChainFamilyTag = model.ChainFamily

// AddressDeriver builds the canonical address set for a chain family from
// a freshly derived public key; it is supplied by the caller (a chain
// handler) since address encoding is chain-specific.
type AddressDeriver func(publicKey []byte) ([]model.Address, error)

// NewAccountFromSeed derives a Keypair for path/curve via keySource,
// builds its address set through deriveAddresses, and attaches handle
// (may be nil) as the chain-specific account handle.
func NewAccountFromSeed(keySource KeySource, family ChainFamilyTag, path string, curve Curve, deriveAddresses AddressDeriver, handle interface{}) (*Account, error) {
	pub, err := keySource.DerivePublicKey(path, curve)
	if err != nil {
		return nil, fmt.Errorf("account: deriving public key: %w", err)
	}
	addrs, err := deriveAddresses(pub)
	if err != nil {
		return nil, fmt.Errorf("account: deriving addresses: %w", err)
	}
	return &Account{
		Family:    family,
		Path:      path,
		Keypair:   Keypair{Curve: curve, PublicKey: pub},
		Addresses: addrs,
		Handle:    handle,
		keySource: keySource,
	}, nil
}

// HasAddress reports whether addr is one of this account's derived
// addresses (spec.md scenario S4: "has-address returns true for both").
func (a *Account) HasAddress(addr model.Address) bool {
	for _, own := range a.Addresses {
		if own.Equal(addr) {
			return true
		}
	}
	return false
}

// Sign re-derives the account's private key and signs digest. Returns an
// error if the account's KeySource cannot sign (xpub or hardware-stub
// sources are watch-only).
func (a *Account) Sign(digest []byte) ([]byte, error) {
	signer, ok := a.keySource.(Signer)
	if !ok {
		err := fmt.Errorf("account: key source %q cannot sign", a.keySource.Type())
		a.logKeyUse("sign", err)
		return nil, err
	}
	sig, err := signer.Sign(a.Path, a.Keypair.Curve, digest)
	a.logKeyUse("sign", err)
	return sig, err
}

// serializedAccount is the on-wire shape for Account.Serialize: public
// material only, matching spec.md's "Accounts never serialize private key
// material" invariant. Handle is carried as an opaque hex blob the caller
// produced; it is out of scope for this package to interpret.
type serializedAccount struct {
	Family        string                 `json:"family"`
	Path          string                 `json:"path"`
	Curve         string                 `json:"curve"`
	PublicKeyHex  string                 `json:"publicKeyHex"`
	Addresses     []serializedAddress    `json:"addresses"`
	HandleHex     string                 `json:"handleHex,omitempty"`
}

type serializedAddress struct {
	Family string `json:"family"`
	Scheme string `json:"scheme"`
	Bytes  string `json:"bytesHex"`
}

// Serialize encodes the account's public material to a per-chain byte
// blob. handleEncoder converts the opaque Handle into bytes; pass nil if
// Handle is nil or the chain doesn't need one preserved.
func (a *Account) Serialize(handleEncoder func(interface{}) ([]byte, error)) ([]byte, error) {
	s := serializedAccount{
		Family:       string(a.Family),
		Path:         a.Path,
		Curve:        string(a.Keypair.Curve),
		PublicKeyHex: hex.EncodeToString(a.Keypair.PublicKey),
	}
	for _, addr := range a.Addresses {
		s.Addresses = append(s.Addresses, serializedAddress{
			Family: string(addr.Family),
			Scheme: string(addr.Scheme),
			Bytes:  hex.EncodeToString(addr.Bytes),
		})
	}
	if a.Handle != nil && handleEncoder != nil {
		h, err := handleEncoder(a.Handle)
		if err != nil {
			return nil, fmt.Errorf("account: encoding chain handle: %w", err)
		}
		s.HandleHex = hex.EncodeToString(h)
	}
	return json.Marshal(s)
}

// DeserializeAccount reconstructs an Account from bytes produced by
// Serialize. keySource is supplied by the caller (it is never part of the
// blob); handleDecoder rebuilds the opaque Handle from its encoded bytes,
// and may be nil if the chain has no handle to restore.
func DeserializeAccount(data []byte, keySource KeySource, handleDecoder func([]byte) (interface{}, error)) (*Account, error) {
	var s serializedAccount
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("account: decoding account: %w", err)
	}
	pub, err := hex.DecodeString(s.PublicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("account: decoding public key: %w", err)
	}
	addrs := make([]model.Address, 0, len(s.Addresses))
	for _, sa := range s.Addresses {
		b, err := hex.DecodeString(sa.Bytes)
		if err != nil {
			return nil, fmt.Errorf("account: decoding address bytes: %w", err)
		}
		addrs = append(addrs, model.Address{
			Family: model.ChainFamily(sa.Family),
			Scheme: model.AddressScheme(sa.Scheme),
			Bytes:  b,
		})
	}
	var handle interface{}
	if s.HandleHex != "" && handleDecoder != nil {
		raw, err := hex.DecodeString(s.HandleHex)
		if err != nil {
			return nil, fmt.Errorf("account: decoding chain handle: %w", err)
		}
		handle, err = handleDecoder(raw)
		if err != nil {
			return nil, fmt.Errorf("account: reconstructing chain handle: %w", err)
		}
	}
	return &Account{
		Family:    model.ChainFamily(s.Family),
		Path:      s.Path,
		Keypair:   Keypair{Curve: Curve(s.Curve), PublicKey: pub},
		Addresses: addrs,
		Handle:    handle,
		keySource: keySource,
	}, nil
}
