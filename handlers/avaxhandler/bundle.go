package avaxhandler

import (
	"encoding/json"
	"fmt"

	"github.com/arcsign/walletkit/fileservice"
	"github.com/arcsign/walletkit/model"
)

const (
	transferBundleTypeName    = "transfer-bundle"
	transactionBundleTypeName = "transaction-bundle"
	bundleCurrentVersion      = uint32(1)
)

func transferBundleType() fileservice.TypeRegistration {
	return fileservice.TypeRegistration{
		Name:           transferBundleTypeName,
		CurrentVersion: bundleCurrentVersion,
		Readers: map[uint32]fileservice.Reader{
			1: func(data []byte) (interface{}, error) {
				var b model.TransferBundle
				if err := json.Unmarshal(data, &b); err != nil {
					return nil, fmt.Errorf("avaxhandler: decoding transfer bundle: %w", err)
				}
				return b, nil
			},
		},
		Encode: func(entity interface{}) ([]byte, error) {
			return json.Marshal(entity)
		},
		IdentifierSeed: func(entity interface{}) []byte {
			b := entity.(model.TransferBundle)
			return []byte(b.UIDS + ":" + b.Hash)
		},
	}
}

// transactionBundleType persists TransactionBundle as reported, with Raw
// holding a JSON encoding of the recovered avaxtx.Transaction (see
// recoveredTransaction in recover.go) rather than avaxtx.Encode's
// canonical wire bytes: Encode is a one-way signing pre-image (it never
// carries Source/Target/Amount, only the resulting outputs), so this
// handler's own submit path is what produces Raw and there is no external
// wire format to match.
func transactionBundleType() fileservice.TypeRegistration {
	return fileservice.TypeRegistration{
		Name:           transactionBundleTypeName,
		CurrentVersion: bundleCurrentVersion,
		Readers: map[uint32]fileservice.Reader{
			1: func(data []byte) (interface{}, error) {
				var b model.TransactionBundle
				if err := json.Unmarshal(data, &b); err != nil {
					return nil, fmt.Errorf("avaxhandler: decoding transaction bundle: %w", err)
				}
				return b, nil
			},
		},
		Encode: func(entity interface{}) ([]byte, error) {
			return json.Marshal(entity)
		},
		IdentifierSeed: func(entity interface{}) []byte {
			b := entity.(model.TransactionBundle)
			return []byte(b.Hash)
		},
	}
}
