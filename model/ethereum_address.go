package model

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ethereumChecksumHex renders a 20-byte address as EIP-55 mixed-case hex:
// each hex digit of the lowercase address is upper-cased if the
// corresponding nibble of keccak256(lowercase hex) is >= 8.
func ethereumChecksumHex(addr []byte) string {
	lower := hex.EncodeToString(addr)
	hash := crypto.Keccak256([]byte(lower))
	hashHex := hex.EncodeToString(hash)

	var b strings.Builder
	b.WriteString("0x")
	for i, c := range lower {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
			continue
		}
		if hashHex[i] >= '8' {
			b.WriteRune(c - 'a' + 'A')
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ethereumHexToBytes parses a "0x"-prefixed 20-byte hex address, ignoring
// whether it carries a (valid or invalid) EIP-55 checksum.
func ethereumHexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s) != 40 {
		return nil, fmt.Errorf("model: ethereum address must be 40 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("model: invalid ethereum address hex: %w", err)
	}
	return b, nil
}
