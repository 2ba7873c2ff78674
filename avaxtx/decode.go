package avaxtx

import "fmt"

const (
	hashSize    = 32
	addressSize = 20
)

// decodeCursor walks a canonical encoding left to right, the inverse of the
// append-only writers in serialize.go.
type decodeCursor struct {
	data []byte
	pos  int
}

func (c *decodeCursor) take(n int) ([]byte, error) {
	if c.pos+n > len(c.data) {
		return nil, fmt.Errorf("avaxtx: unexpected end of data at offset %d wanting %d bytes", c.pos, n)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *decodeCursor) takeValue(byteSize int) (uint64, error) {
	b, err := c.take(byteSize)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v, nil
}

func (c *decodeCursor) takeString() ([]byte, error) {
	n, err := c.takeValue(4)
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding string length: %w", err)
	}
	return c.take(int(n))
}

func (c *decodeCursor) takeAddressArray() ([][20]byte, error) {
	n, err := c.takeValue(4)
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding address array count: %w", err)
	}
	out := make([][20]byte, n)
	for i := range out {
		raw, err := c.take(addressSize)
		if err != nil {
			return nil, fmt.Errorf("avaxtx: decoding address %d: %w", i, err)
		}
		copy(out[i][:], raw)
	}
	return out, nil
}

func (c *decodeCursor) decodeOutput() (TransactionOutput, error) {
	var o TransactionOutput
	asset, err := c.take(hashSize)
	if err != nil {
		return o, fmt.Errorf("avaxtx: decoding output asset: %w", err)
	}
	o.Asset = append([]byte(nil), asset...)

	kind, err := c.takeValue(4)
	if err != nil {
		return o, fmt.Errorf("avaxtx: decoding output kind: %w", err)
	}
	o.Kind = TransactionOutputKind(kind)

	switch o.Kind {
	case OutputKindTransfer:
		amount, err := c.takeValue(8)
		if err != nil {
			return o, fmt.Errorf("avaxtx: decoding output amount: %w", err)
		}
		locktime, err := c.takeValue(8)
		if err != nil {
			return o, fmt.Errorf("avaxtx: decoding output locktime: %w", err)
		}
		threshold, err := c.takeValue(4)
		if err != nil {
			return o, fmt.Errorf("avaxtx: decoding output threshold: %w", err)
		}
		o.Amount = amount
		o.Locktime = locktime
		o.Threshold = uint32(threshold)
	default:
		return o, fmt.Errorf("avaxtx: unknown output kind %d", o.Kind)
	}

	addrs, err := c.takeAddressArray()
	if err != nil {
		return o, fmt.Errorf("avaxtx: decoding output addresses: %w", err)
	}
	o.Addresses = addrs
	return o, nil
}

func (c *decodeCursor) decodeOutputArray() ([]TransactionOutput, error) {
	n, err := c.takeValue(4)
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding output array count: %w", err)
	}
	out := make([]TransactionOutput, n)
	for i := range out {
		o, err := c.decodeOutput()
		if err != nil {
			return nil, fmt.Errorf("avaxtx: decoding output %d: %w", i, err)
		}
		out[i] = o
	}
	return out, nil
}

func (c *decodeCursor) decodeInput() (TransactionInput, error) {
	var in TransactionInput
	txid, err := c.take(hashSize)
	if err != nil {
		return in, fmt.Errorf("avaxtx: decoding input txid: %w", err)
	}
	in.TxID = append([]byte(nil), txid...)

	index, err := c.takeValue(4)
	if err != nil {
		return in, fmt.Errorf("avaxtx: decoding input index: %w", err)
	}
	in.Index = uint32(index)

	asset, err := c.take(hashSize)
	if err != nil {
		return in, fmt.Errorf("avaxtx: decoding input asset: %w", err)
	}
	in.Asset = append([]byte(nil), asset...)

	kind, err := c.takeValue(4)
	if err != nil {
		return in, fmt.Errorf("avaxtx: decoding input kind: %w", err)
	}
	in.Kind = TransactionInputKind(kind)

	switch in.Kind {
	case InputKindTransfer:
		amount, err := c.takeValue(8)
		if err != nil {
			return in, fmt.Errorf("avaxtx: decoding input amount: %w", err)
		}
		in.Amount = amount
	default:
		return in, fmt.Errorf("avaxtx: unknown input kind %d", in.Kind)
	}

	count, err := c.takeValue(4)
	if err != nil {
		return in, fmt.Errorf("avaxtx: decoding input address-index count: %w", err)
	}
	in.AddressIndices = make([]uint32, count)
	for i := range in.AddressIndices {
		idx, err := c.takeValue(4)
		if err != nil {
			return in, fmt.Errorf("avaxtx: decoding input address index %d: %w", i, err)
		}
		in.AddressIndices[i] = uint32(idx)
	}
	return in, nil
}

func (c *decodeCursor) decodeInputArray() ([]TransactionInput, error) {
	n, err := c.takeValue(4)
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding input array count: %w", err)
	}
	out := make([]TransactionInput, n)
	for i := range out {
		in, err := c.decodeInput()
		if err != nil {
			return nil, fmt.Errorf("avaxtx: decoding input %d: %w", i, err)
		}
		out[i] = in
	}
	return out, nil
}

// Decode inverts Encode, reconstructing a Transaction from its canonical
// unsigned serialization. Re-encoding the result reproduces the exact same
// bytes (spec.md §8's serialize-then-deserialize round-trip property),
// since Encode's output and input arrays are already in their canonical
// sorted order by the time they're written.
func Decode(data []byte) (*Transaction, error) {
	c := &decodeCursor{data: data}

	codecVersion, err := c.takeValue(2)
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding codec version: %w", err)
	}
	purpose, err := c.takeValue(4)
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding purpose: %w", err)
	}
	networkID, err := c.takeValue(4)
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding network id: %w", err)
	}
	blockchainID, err := c.take(hashSize)
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding blockchain id: %w", err)
	}
	outputs, err := c.decodeOutputArray()
	if err != nil {
		return nil, err
	}
	inputs, err := c.decodeInputArray()
	if err != nil {
		return nil, err
	}
	memo, err := c.takeString()
	if err != nil {
		return nil, fmt.Errorf("avaxtx: decoding memo: %w", err)
	}
	if c.pos != len(c.data) {
		return nil, fmt.Errorf("avaxtx: %d trailing bytes after memo", len(c.data)-c.pos)
	}

	return &Transaction{
		Purpose:      Purpose(purpose),
		CodecVersion: uint16(codecVersion),
		NetworkID:    uint32(networkID),
		BlockchainID: append([]byte(nil), blockchainID...),
		Amount:       0,
		FeeAmount:    0,
		Memo:         append([]byte(nil), memo...),
		Inputs:       inputs,
		Outputs:      outputs,
	}, nil
}
