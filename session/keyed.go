package session

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainmarket/storefront/types"
)

// KeyedWallet signs with a local private key. Browser-wallet integrations
// implement Wallet themselves; this one serves CLIs and tests.
type KeyedWallet struct {
	address common.Address
	opts    *bind.TransactOpts
	chainID *big.Int
}

// NewKeyedWallet builds a wallet from a hex-encoded secp256k1 private key.
func NewKeyedWallet(privateKeyHex string, chainID *big.Int) (*KeyedWallet, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, &types.Error{
			Kind:    types.KindProvider,
			Code:    types.ErrCodeInvalidAddress,
			Message: "invalid private key",
			Detail:  err,
		}
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, &types.Error{
			Kind:    types.KindProvider,
			Message: "failed to build transactor",
			Detail:  err,
		}
	}
	return &KeyedWallet{
		address: crypto.PubkeyToAddress(key.PublicKey),
		opts:    opts,
		chainID: chainID,
	}, nil
}

func (w *KeyedWallet) Address() common.Address { return w.address }

func (w *KeyedWallet) ChainID() *big.Int { return w.chainID }

func (w *KeyedWallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts := *w.opts
	opts.Context = ctx
	return &opts, nil
}
