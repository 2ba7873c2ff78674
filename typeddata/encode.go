package typeddata

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arcsign/walletkit/primitives"
)

// encodeAtomic encodes one atomic-typed value to exactly 32 bytes
// (spec.md §4.4 "encode-data").
func encodeAtomic(typeName string, value interface{}) ([32]byte, error) {
	switch {
	case typeName == "address":
		s, ok := asString(value)
		if !ok {
			return [32]byte{}, fmt.Errorf("typeddata: address value must be a string")
		}
		raw, err := ethereumHexToBytesAnyLength(s)
		if err != nil {
			return [32]byte{}, err
		}
		if len(raw) != 20 {
			return [32]byte{}, fmt.Errorf("typeddata: address value must be 20 bytes, got %d", len(raw))
		}
		var out [32]byte
		copy(out[32-len(raw):], raw)
		return out, nil

	case typeName == "bool":
		b, ok := value.(bool)
		if !ok {
			return [32]byte{}, fmt.Errorf("typeddata: bool value must be a JSON boolean")
		}
		var out [32]byte
		if b {
			out[31] = 1
		}
		return out, nil

	case atomicByteN.MatchString(typeName):
		n, _ := strconv.Atoi(atomicByteN.FindStringSubmatch(typeName)[1])
		s, ok := asString(value)
		if !ok {
			return [32]byte{}, fmt.Errorf("typeddata: %s value must be a hex string", typeName)
		}
		raw, err := ethereumHexToBytesAnyLength(s)
		if err != nil {
			return [32]byte{}, err
		}
		if len(raw) != n {
			return [32]byte{}, fmt.Errorf("typeddata: %s expects %d bytes, got %d", typeName, n, len(raw))
		}
		var out [32]byte
		copy(out[:], raw) // left-aligned, zero-padded
		return out, nil

	case atomicUintN.MatchString(typeName):
		n, _ := strconv.Atoi(atomicUintN.FindStringSubmatch(typeName)[1])
		i, err := parseDeclaredInt(value)
		if err != nil {
			return [32]byte{}, err
		}
		if i.IsNegative() {
			return [32]byte{}, fmt.Errorf("typeddata: %s value must not be negative", typeName)
		}
		if !i.FitsUnsignedBits(n) {
			return [32]byte{}, fmt.Errorf("typeddata: value out of range for %s", typeName)
		}
		return i.Bytes32TwosComplement(), nil

	case atomicIntN.MatchString(typeName):
		n, _ := strconv.Atoi(atomicIntN.FindStringSubmatch(typeName)[1])
		i, err := parseDeclaredInt(value)
		if err != nil {
			return [32]byte{}, err
		}
		if !i.FitsSignedBits(n) {
			return [32]byte{}, fmt.Errorf("typeddata: value out of range for %s", typeName)
		}
		return i.Bytes32TwosComplement(), nil
	}
	return [32]byte{}, fmt.Errorf("typeddata: %q is not an atomic type", typeName)
}

// parseDeclaredInt parses an integer value arriving as a JSON number,
// JSON string (signed-decimal fast path, then 256-bit decimal/hex), per
// spec.md §4.4.
func parseDeclaredInt(value interface{}) (primitives.Int256, error) {
	switch v := value.(type) {
	case float64:
		return primitives.Int256FromInt64(int64(v)), nil
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return primitives.Int256FromInt64(n), nil
		}
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			b, ok := new(big.Int).SetString(v[2:], 16)
			if !ok {
				return primitives.Int256{}, fmt.Errorf("typeddata: invalid hex integer %q", v)
			}
			return primitives.Int256FromBig(b)
		}
		return primitives.Int256FromDecimal(v)
	default:
		return primitives.Int256{}, fmt.Errorf("typeddata: integer value must be a JSON number or string")
	}
}

func asString(value interface{}) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func ethereumHexToBytesAnyLength(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("typeddata: odd-length hex string %q", s)
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		var b byte
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &b); err != nil {
			return nil, fmt.Errorf("typeddata: invalid hex string %q: %w", s, err)
		}
		out[i] = b
	}
	return out, nil
}

// EncodeData implements spec.md §4.4's `encode-data`: the type hash of
// typeName, followed by each member's 32-byte encoding, concatenated.
func (d *Document) EncodeData(typeName string, value map[string]interface{}) ([]byte, error) {
	typeHash, err := d.TypeHash(typeName)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 32*(len(d.Types[typeName])+1))
	out = append(out, typeHash[:]...)

	for _, m := range d.Types[typeName] {
		raw, present := value[m.Name]
		kind, base, ok := d.classifyType(m.Type)
		if !ok {
			return nil, fmt.Errorf("typeddata: unknown member type %q", m.Type)
		}

		var encoded [32]byte
		switch kind {
		case kindAtomic:
			if !present {
				return nil, fmt.Errorf("typeddata: missing value for member %q", m.Name)
			}
			encoded, err = encodeAtomic(m.Type, raw)
			if err != nil {
				return nil, err
			}

		case kindDynamic:
			s, ok := asString(raw)
			if !present || !ok {
				return nil, fmt.Errorf("typeddata: member %q must be a string", m.Name)
			}
			var content []byte
			if m.Type == "bytes" {
				content, err = ethereumHexToBytesAnyLength(s)
				if err != nil {
					return nil, err
				}
			} else {
				content = []byte(s)
			}
			encoded = crypto.Keccak256Hash(content)

		case kindReferenceSingle:
			obj, ok := raw.(map[string]interface{})
			if !present || !ok {
				return nil, fmt.Errorf("typeddata: member %q must be an object", m.Name)
			}
			nested, err := d.EncodeData(base, obj)
			if err != nil {
				return nil, err
			}
			encoded = crypto.Keccak256Hash(nested)

		case kindReferenceArray:
			arr, ok := raw.([]interface{})
			if !present || !ok {
				return nil, fmt.Errorf("typeddata: member %q must be an array", m.Name)
			}
			var concat []byte
			for _, elemRaw := range arr {
				elem, ok := elemRaw.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("typeddata: member %q elements must be objects", m.Name)
				}
				nested, err := d.EncodeData(base, elem)
				if err != nil {
					return nil, err
				}
				concat = append(concat, nested...)
			}
			encoded = crypto.Keccak256Hash(concat)
		}
		out = append(out, encoded[:]...)
	}
	return out, nil
}

// StructHash is keccak256(encode-data(typeName, value)).
func (d *Document) StructHash(typeName string, value map[string]interface{}) ([32]byte, error) {
	encoded, err := d.EncodeData(typeName, value)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// Digest computes spec.md §4.4's final digest:
// keccak256(0x19 || 0x01 || structHash(EIP712Domain, domain) || structHash(primaryType, message)).
func (d *Document) Digest() ([32]byte, error) {
	domainHash, err := d.StructHash(domainTypeName, d.Domain)
	if err != nil {
		return [32]byte{}, err
	}
	messageHash, err := d.StructHash(d.PrimaryType, d.Message)
	if err != nil {
		return [32]byte{}, err
	}
	preimage := make([]byte, 0, 2+32+32)
	preimage = append(preimage, 0x19, 0x01)
	preimage = append(preimage, domainHash[:]...)
	preimage = append(preimage, messageHash[:]...)
	return crypto.Keccak256Hash(preimage), nil
}
