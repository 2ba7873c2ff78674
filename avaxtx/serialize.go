package avaxtx

import "sort"

// encodeValue renders v big-endian in byteSize bytes (spec.md §4.5
// "Canonical serialization").
func encodeValue(v uint64, byteSize int) []byte {
	out := make([]byte, byteSize)
	for i := 0; i < byteSize; i++ {
		out[byteSize-1-i] = byte(v >> (8 * uint(i)))
	}
	return out
}

// encodeString is a 4-byte length prefix followed by raw bytes.
func encodeString(s []byte) []byte {
	out := make([]byte, 0, 4+len(s))
	out = append(out, encodeValue(uint64(len(s)), 4)...)
	out = append(out, s...)
	return out
}

func encodeAddressArray(addresses [][20]byte) []byte {
	out := make([]byte, 0, 4+20*len(addresses))
	out = append(out, encodeValue(uint64(len(addresses)), 4)...)
	for _, a := range addresses {
		out = append(out, a[:]...)
	}
	return out
}

// encodeOutput serializes one output: asset hash, type-specific payload,
// address array.
func encodeOutput(o TransactionOutput) []byte {
	var body []byte
	body = append(body, o.Asset...)
	switch o.Kind {
	case OutputKindTransfer:
		variety := make([]byte, 0, 4+8+8+4)
		variety = append(variety, encodeValue(uint64(o.Kind), 4)...)
		variety = append(variety, encodeValue(o.Amount, 8)...)
		variety = append(variety, encodeValue(o.Locktime, 8)...)
		variety = append(variety, encodeValue(uint64(o.Threshold), 4)...)
		body = append(body, variety...)
	}
	body = append(body, encodeAddressArray(o.Addresses)...)
	return body
}

// encodeOutputArray serializes the 4-byte count followed by each output's
// encoding sorted lexicographically by serialized bytes (spec.md §4.5).
func encodeOutputArray(outputs []TransactionOutput) []byte {
	encoded := make([][]byte, len(outputs))
	for i, o := range outputs {
		encoded[i] = encodeOutput(o)
	}
	sort.Slice(encoded, func(i, j int) bool { return lexicographicLess(encoded[i], encoded[j]) })

	out := encodeValue(uint64(len(encoded)), 4)
	for _, e := range encoded {
		out = append(out, e...)
	}
	return out
}

// encodeInput serializes one input: txid, index, asset, type tag,
// type-specific payload, address-index array.
func encodeInput(in TransactionInput) []byte {
	var body []byte
	body = append(body, in.TxID...)
	body = append(body, encodeValue(uint64(in.Index), 4)...)
	body = append(body, in.Asset...)
	body = append(body, encodeValue(uint64(in.Kind), 4)...)
	switch in.Kind {
	case InputKindTransfer:
		body = append(body, encodeValue(in.Amount, 8)...)
	}
	body = append(body, encodeValue(uint64(len(in.AddressIndices)), 4)...)
	for _, idx := range in.AddressIndices {
		body = append(body, encodeValue(uint64(idx), 4)...)
	}
	return body
}

// encodeInputArray serializes the 4-byte count followed by inputs sorted
// by (txid, index) ascending, then each input's own encoding (spec.md
// §4.5: "Input arrays are sorted lexicographically by (txid, index)").
func encodeInputArray(inputs []TransactionInput) []byte {
	sorted := append([]TransactionInput(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if cmp := lexicographicCompare(a.TxID, b.TxID); cmp != 0 {
			return cmp < 0
		}
		return a.Index < b.Index
	})

	out := encodeValue(uint64(len(sorted)), 4)
	for _, in := range sorted {
		out = append(out, encodeInput(in)...)
	}
	return out
}

func lexicographicCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func lexicographicLess(a, b []byte) bool { return lexicographicCompare(a, b) < 0 }

// Encode implements spec.md §4.5's canonical unsigned serialization:
// codec version, purpose, network id, blockchain id, output array, input
// array, memo — deterministic so signing the same UTXO set twice
// produces the same pre-image.
func (t *Transaction) Encode() []byte {
	var out []byte
	out = append(out, encodeValue(uint64(t.CodecVersion), 2)...)
	out = append(out, encodeValue(uint64(t.Purpose), 4)...)
	out = append(out, encodeValue(uint64(t.NetworkID), 4)...)
	out = append(out, t.BlockchainID...)
	out = append(out, encodeOutputArray(t.Outputs)...)
	out = append(out, encodeInputArray(t.Inputs)...)
	out = append(out, encodeString(t.Memo)...)
	return out
}
