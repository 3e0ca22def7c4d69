package ledger

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var _ Token = (*erc20Token)(nil)

// erc20Token is the settlement token's allowance surface.
type erc20Token struct {
	address common.Address
	client  *ethclient.Client
	bound   *bind.BoundContract
	signer  Signer
}

func newERC20Token(addr common.Address, client *ethclient.Client, signer Signer) *erc20Token {
	// The ABI literal is fixed; parsing cannot fail.
	parsed, _ := abi.JSON(strings.NewReader(erc20ABI))
	return &erc20Token{
		address: addr,
		client:  client,
		bound:   bind.NewBoundContract(addr, parsed, client, client, client),
		signer:  signer,
	}
}

func (t *erc20Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.bound.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, wrapReadErr("allowance", err)
	}
	return out[0].(*big.Int), nil
}

func (t *erc20Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.bound.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, wrapReadErr("balanceOf", err)
	}
	return out[0].(*big.Int), nil
}

func (t *erc20Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (PendingTx, error) {
	opts, err := t.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	tx, err := t.bound.Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, wrapWriteErr("approve", err)
	}
	return &pendingTx{tx: tx, client: t.client}, nil
}
