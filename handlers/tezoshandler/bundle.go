package tezoshandler

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
					return nil, fmt.Errorf("tezoshandler: decoding transfer bundle: %w", err)
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

func transactionBundleType() fileservice.TypeRegistration {
	return fileservice.TypeRegistration{
		Name:           transactionBundleTypeName,
		CurrentVersion: bundleCurrentVersion,
		Readers: map[uint32]fileservice.Reader{
			1: func(data []byte) (interface{}, error) {
				var b model.TransactionBundle
				if err := json.Unmarshal(data, &b); err != nil {
					return nil, fmt.Errorf("tezoshandler: decoding transaction bundle: %w", err)
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
