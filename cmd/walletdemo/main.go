// Command walletdemo wires the Ethereum, Avalanche, and Tezos chain
// handlers through a single chainhandler.Registry and a walletmanager per
// account, to exercise spec.md §2's control flow end to end: derive an
// account from a paper key, create its native wallet, connect it, and log
// every manager/network/wallet event a demo in-memory client produces.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/arcsign/walletkit/account"
	"github.com/arcsign/walletkit/chainhandler"
	"github.com/arcsign/walletkit/handlers/avaxhandler"
	"github.com/arcsign/walletkit/handlers/ethhandler"
	"github.com/arcsign/walletkit/handlers/tezoshandler"
	"github.com/arcsign/walletkit/model"
	"github.com/arcsign/walletkit/walletmanager"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "walletdemo: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	registry, err := chainhandler.NewRegistry(ethhandler.New(), avaxhandler.New(), tezoshandler.New())
	if err != nil {
		logger.Fatal("building chain handler registry", zap.Error(err))
	}

	const paperKey = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	keySource, err := account.NewMnemonicKeySource(paperKey, "")
	if err != nil {
		logger.Fatal("deriving mnemonic key source", zap.Error(err))
	}

	basePath, err := os.MkdirTemp("", "walletdemo")
	if err != nil {
		logger.Fatal("creating demo base path", zap.Error(err))
	}
	defer os.RemoveAll(basePath)

	for _, dm := range demoManagers() {
		runDemo(logger, registry, keySource, basePath, dm)
	}
}

// demoManager bundles one chain family's demo network, currency, address
// scheme, curve, and derivation path.
type demoManager struct {
	family   model.ChainFamily
	curve    account.Curve
	path     string
	scheme   model.AddressScheme
	deriver  account.AddressDeriver
	network  *model.Network
	currency model.Currency
}

func demoManagers() []demoManager {
	eth := model.Currency{UIDS: "ethereum-mainnet:eth", Name: "Ether", Code: "ETH", Type: model.CurrencyTypeNative}
	avax := model.Currency{UIDS: "avalanche-mainnet:avax", Name: "Avalanche", Code: "AVAX", Type: model.CurrencyTypeNative}
	xtz := model.Currency{UIDS: "tezos-mainnet:xtz", Name: "Tezos", Code: "XTZ", Type: model.CurrencyTypeNative}

	return []demoManager{
		{
			family:   model.ChainFamilyEthereum,
			curve:    account.CurveSecp256k1,
			path:     "m/44'/60'/0'/0/0",
			scheme:   model.SchemeEthereum,
			deriver:  ethhandler.DeriveAddresses,
			network:  model.NewNetwork(model.ChainFamilyEthereum, "ethereum-mainnet", true, eth),
			currency: eth,
		},
		{
			family:   model.ChainFamilyAvalanche,
			curve:    account.CurveSecp256k1,
			path:     "m/44'/9000'/0'/0/0",
			scheme:   model.SchemeAvalancheXChain,
			deriver:  avaxhandler.DeriveAddresses,
			network:  model.NewNetwork(model.ChainFamilyAvalanche, "avalanche-mainnet", true, avax),
			currency: avax,
		},
		{
			family:   model.ChainFamilyTezos,
			curve:    account.CurveEd25519,
			path:     "m/44'/1729'/0'/0'",
			scheme:   model.SchemeTezos,
			deriver:  tezoshandler.DeriveAddresses,
			network:  model.NewNetwork(model.ChainFamilyTezos, "tezos-mainnet", true, xtz),
			currency: xtz,
		},
	}
}

func runDemo(logger *zap.Logger, registry *chainhandler.Registry, keySource *account.MnemonicKeySource, basePath string, dm demoManager) {
	log := logger.With(zap.String("family", string(dm.family)))

	acct, err := account.NewAccountFromSeed(keySource, dm.family, dm.path, dm.curve, dm.deriver, nil)
	if err != nil {
		log.Error("deriving account", zap.Error(err))
		return
	}
	if len(acct.Addresses) == 0 {
		log.Error("account derived no addresses")
		return
	}
	log.Info("derived account", zap.String("address", acct.Addresses[0].String()))

	l := newLoggingListener(log)
	c := newDemoClient(log)

	manager, err := walletmanager.New(walletmanager.Config{
		Registry:      registry,
		Account:       acct,
		Network:       dm.network,
		SyncMode:      model.SyncModeAPIOnly,
		AddressScheme: dm.scheme,
		Path:          basePath,
		Client:        c,
		Listener:      l,
	})
	if err != nil {
		log.Error("creating wallet manager", zap.Error(err))
		return
	}
	defer manager.Release()

	wallet, err := manager.CreateWallet(dm.currency)
	if err != nil {
		log.Error("creating wallet", zap.Error(err))
		return
	}
	log.Info("created wallet", zap.String("balance", wallet.Balance().Value.String()))

	manager.Connect()
	defer manager.Disconnect()
}
