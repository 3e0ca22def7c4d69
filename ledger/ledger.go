// Package ledger defines the boundary to the external settlement contract
// and its payment token, plus the go-ethereum implementation. The ledger is
// the source of truth for products, orders and balances; everything returned
// by a Reader is a stale-on-arrival projection.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainmarket/storefront/types"
)

// PendingTx is a submitted write. State must not be treated as changed until
// Wait observes one confirmation.
type PendingTx interface {
	Hash() common.Hash
	Wait(ctx context.Context) error
}

// Reader is the ledger's read surface.
type Reader interface {
	Owner(ctx context.Context) (common.Address, error)
	PaymentToken(ctx context.Context) (common.Address, error)
	Paused(ctx context.Context) (bool, error)
	ProductCount(ctx context.Context) (uint64, error)
	OrderCount(ctx context.Context) (uint64, error)
	Product(ctx context.Context, id uint64) (types.Product, error)
	AllProducts(ctx context.Context) ([]types.Product, error)
	Order(ctx context.Context, id uint64) (types.Order, error)
	OrderItems(ctx context.Context, id uint64) ([]types.OrderItem, error)
	BuyerOrderIDs(ctx context.Context, buyer common.Address) ([]uint64, error)
	RefundBalance(ctx context.Context, owner, token common.Address) (*big.Int, error)
	WithdrawableRevenue(ctx context.Context) (*big.Int, error)
}

// Writer is the ledger's write surface. Every method submits a single
// transaction and returns its pending handle.
type Writer interface {
	CreateOrder(ctx context.Context, r types.RecipientInfo, items []types.OrderInput) (PendingTx, error)
	UpdateOrderStatus(ctx context.Context, orderID uint64, status types.OrderStatus) (PendingTx, error)
	CancelOrder(ctx context.Context, orderID uint64) (PendingTx, error)
	ClaimRefund(ctx context.Context, token common.Address) (PendingTx, error)
	WithdrawRevenue(ctx context.Context, amount *big.Int) (PendingTx, error)
	SetPaymentToken(ctx context.Context, token common.Address) (PendingTx, error)
	Pause(ctx context.Context) (PendingTx, error)
	Unpause(ctx context.Context) (PendingTx, error)
	TransferOwnership(ctx context.Context, newOwner common.Address) (PendingTx, error)
	AddProduct(ctx context.Context, name, description string, price *big.Int) (PendingTx, error)
	EditProduct(ctx context.Context, id uint64, name, description string, price *big.Int) (PendingTx, error)
}

// Ledger is the full contract boundary.
type Ledger interface {
	Reader
	Writer

	// ContractAddress is the spender for token approvals.
	ContractAddress() common.Address
}

// Token is the settlement token's allowance surface.
type Token interface {
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (PendingTx, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
}

// TokenSource resolves a Token for an address. The payment token can change
// via owner action, so callers resolve it per operation rather than holding
// one.
type TokenSource interface {
	Token(addr common.Address) Token
}

// Signer produces transact options for writes. *session.Session satisfies
// this.
type Signer interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}
