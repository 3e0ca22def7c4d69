package session

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainmarket/storefront/types"
)

// StaticWallet identifies an address without signing capability: a
// watch-only session. Writes through it fail as provider errors.
type StaticWallet struct {
	Addr  common.Address
	Chain *big.Int
}

func (w StaticWallet) Address() common.Address { return w.Addr }

func (w StaticWallet) ChainID() *big.Int { return w.Chain }

func (w StaticWallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return nil, &types.Error{
		Kind:    types.KindProvider,
		Message: "watch-only wallet cannot sign transactions",
	}
}
