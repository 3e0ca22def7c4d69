// Package ledgertest provides an in-memory ledger double for component
// tests. It mimics the contract's observable behavior: create-order snapshots
// prices, cancellation credits the refund balance, claims zero it.
package ledgertest

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainmarket/storefront/ledger"
	"github.com/chainmarket/storefront/types"
)

// Tx is an immediately-confirmable pending transaction.
type Tx struct {
	hash    common.Hash
	WaitErr error
}

func (t *Tx) Hash() common.Hash              { return t.hash }
func (t *Tx) Wait(ctx context.Context) error { return t.WaitErr }

// Fake implements ledger.Ledger, ledger.TokenSource and ledger.Token against
// in-memory state. Calls records every operation name in order; FailOn maps
// an operation name to an error returned instead of executing it.
type Fake struct {
	mu sync.Mutex

	Contract   common.Address
	OwnerAddr  common.Address
	TokenAddr  common.Address
	PausedFlag bool
	Revenue    *big.Int

	Products   map[uint64]types.Product
	OrdersByID map[uint64]*types.Order
	ItemsByID  map[uint64][]types.OrderItem
	BuyerIndex map[common.Address][]uint64

	Allowances map[string]*big.Int
	Refunds    map[string]*big.Int

	Calls  []string
	FailOn map[string]error

	// NextBuyer is recorded as the buyer of orders created through
	// CreateOrder, since the fake has no signer.
	NextBuyer common.Address

	// Clock returns CreatedAt for new orders; defaults to time.Now.
	Clock func() time.Time

	nextOrderID uint64
}

func New() *Fake {
	return &Fake{
		Contract:   common.HexToAddress("0x00000000000000000000000000000000000000CC"),
		Revenue:    new(big.Int),
		Products:   make(map[uint64]types.Product),
		OrdersByID: make(map[uint64]*types.Order),
		ItemsByID:  make(map[uint64][]types.OrderItem),
		BuyerIndex: make(map[common.Address][]uint64),
		Allowances: make(map[string]*big.Int),
		Refunds:    make(map[string]*big.Int),
		FailOn:     make(map[string]error),
	}
}

var _ ledger.Ledger = (*Fake)(nil)
var _ ledger.TokenSource = (*Fake)(nil)
var _ ledger.Token = (*Fake)(nil)

func (f *Fake) record(op string) error {
	f.Calls = append(f.Calls, op)
	if err := f.FailOn[op]; err != nil {
		return err
	}
	return nil
}

// CallCount returns how many times op was recorded.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// AddProductRecord seeds a catalog entry directly.
func (f *Fake) AddProductRecord(p types.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Products[p.ID] = p
}

// SeedOrder installs an order and its items directly.
func (f *Fake) SeedOrder(o types.Order, items []types.OrderItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := o
	f.OrdersByID[o.ID] = &cp
	f.ItemsByID[o.ID] = items
	f.BuyerIndex[o.Buyer] = append(f.BuyerIndex[o.Buyer], o.ID)
	if o.ID > f.nextOrderID {
		f.nextOrderID = o.ID
	}
}

// SetAllowance seeds an allowance for (owner, spender).
func (f *Fake) SetAllowance(owner, spender common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Allowances[owner.Hex()+"|"+spender.Hex()] = new(big.Int).Set(amount)
}

func (f *Fake) ContractAddress() common.Address        { return f.Contract }
func (f *Fake) Token(addr common.Address) ledger.Token { return f }

func (f *Fake) Owner(ctx context.Context) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("owner"); err != nil {
		return common.Address{}, err
	}
	return f.OwnerAddr, nil
}

func (f *Fake) PaymentToken(ctx context.Context) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("paymentToken"); err != nil {
		return common.Address{}, err
	}
	return f.TokenAddr, nil
}

func (f *Fake) Paused(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("isPaused"); err != nil {
		return false, err
	}
	return f.PausedFlag, nil
}

func (f *Fake) ProductCount(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("productCount"); err != nil {
		return 0, err
	}
	return uint64(len(f.Products)), nil
}

func (f *Fake) OrderCount(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("orderCount"); err != nil {
		return 0, err
	}
	return f.nextOrderID, nil
}

func (f *Fake) Product(ctx context.Context, id uint64) (types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("getProduct"); err != nil {
		return types.Product{}, err
	}
	p, ok := f.Products[id]
	if !ok {
		return types.Product{}, fmt.Errorf("product %d not found", id)
	}
	return p, nil
}

func (f *Fake) AllProducts(ctx context.Context) ([]types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("getAllProducts"); err != nil {
		return nil, err
	}
	out := make([]types.Product, 0, len(f.Products))
	for id := uint64(1); id <= uint64(len(f.Products)); id++ {
		if p, ok := f.Products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fake) Order(ctx context.Context, id uint64) (types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("getOrder"); err != nil {
		return types.Order{}, err
	}
	o, ok := f.OrdersByID[id]
	if !ok {
		return types.Order{}, &types.Error{
			Kind:    types.KindLedgerRejection,
			Message: fmt.Sprintf("order %d not found", id),
		}
	}
	return *o, nil
}

func (f *Fake) OrderItems(ctx context.Context, id uint64) ([]types.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("getOrderItems"); err != nil {
		return nil, err
	}
	return f.ItemsByID[id], nil
}

func (f *Fake) BuyerOrderIDs(ctx context.Context, buyer common.Address) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("getUserOrders"); err != nil {
		return nil, err
	}
	return append([]uint64(nil), f.BuyerIndex[buyer]...), nil
}

func (f *Fake) RefundBalance(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("getRefundBalance"); err != nil {
		return nil, err
	}
	if bal, ok := f.Refunds[refundKey(owner, token)]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (f *Fake) WithdrawableRevenue(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("getWithdrawableRevenue"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(f.Revenue), nil
}

func (f *Fake) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("allowance"); err != nil {
		return nil, err
	}
	if a, ok := f.Allowances[owner.Hex()+"|"+spender.Hex()]; ok {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

func (f *Fake) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("balanceOf"); err != nil {
		return nil, err
	}
	return new(big.Int), nil
}

func (f *Fake) Approve(ctx context.Context, spender common.Address, amount *big.Int) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("approve"); err != nil {
		return nil, err
	}
	f.Allowances[f.NextBuyer.Hex()+"|"+spender.Hex()] = new(big.Int).Set(amount)
	return &Tx{}, nil
}

func (f *Fake) CreateOrder(ctx context.Context, r types.RecipientInfo, items []types.OrderInput) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("createOrder"); err != nil {
		return nil, err
	}

	total := new(big.Int)
	lineItems := make([]types.OrderItem, 0, len(items))
	for _, in := range items {
		p, ok := f.Products[in.ProductID]
		if !ok {
			return nil, &types.Error{
				Kind:    types.KindLedgerRejection,
				Reason:  "unknown product",
				Message: fmt.Sprintf("product %d not found", in.ProductID),
			}
		}
		subtotal := new(big.Int).Mul(p.Price, new(big.Int).SetUint64(in.Quantity))
		total.Add(total, subtotal)
		lineItems = append(lineItems, types.OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     in.Quantity,
			Subtotal:     subtotal,
		})
	}

	f.nextOrderID++
	createdAt := time.Now()
	if f.Clock != nil {
		createdAt = f.Clock()
	}
	order := &types.Order{
		ID:           f.nextOrderID,
		Buyer:        f.NextBuyer,
		Recipient:    r,
		TotalAmount:  total,
		Status:       types.StatusPending,
		PaymentToken: f.TokenAddr,
		CreatedAt:    createdAt,
	}
	f.OrdersByID[order.ID] = order
	f.ItemsByID[order.ID] = lineItems
	f.BuyerIndex[order.Buyer] = append(f.BuyerIndex[order.Buyer], order.ID)
	return &Tx{}, nil
}

func (f *Fake) UpdateOrderStatus(ctx context.Context, orderID uint64, status types.OrderStatus) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("updateOrderStatus"); err != nil {
		return nil, err
	}
	o, ok := f.OrdersByID[orderID]
	if !ok {
		return nil, &types.Error{Kind: types.KindLedgerRejection, Reason: "order not found"}
	}
	o.Status = status
	if status == types.StatusCancelled {
		f.creditRefund(o)
	}
	return &Tx{}, nil
}

func (f *Fake) CancelOrder(ctx context.Context, orderID uint64) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("cancelOrder"); err != nil {
		return nil, err
	}
	o, ok := f.OrdersByID[orderID]
	if !ok {
		return nil, &types.Error{Kind: types.KindLedgerRejection, Reason: "order not found"}
	}
	o.Status = types.StatusCancelled
	f.creditRefund(o)
	return &Tx{}, nil
}

func (f *Fake) ClaimRefund(ctx context.Context, token common.Address) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("claimRefund"); err != nil {
		return nil, err
	}
	f.Refunds[refundKey(f.NextBuyer, token)] = new(big.Int)
	return &Tx{}, nil
}

func (f *Fake) WithdrawRevenue(ctx context.Context, amount *big.Int) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("withdrawRevenue"); err != nil {
		return nil, err
	}
	f.Revenue.Sub(f.Revenue, amount)
	return &Tx{}, nil
}

func (f *Fake) SetPaymentToken(ctx context.Context, token common.Address) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("setPaymentToken"); err != nil {
		return nil, err
	}
	f.TokenAddr = token
	return &Tx{}, nil
}

func (f *Fake) Pause(ctx context.Context) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("pause"); err != nil {
		return nil, err
	}
	f.PausedFlag = true
	return &Tx{}, nil
}

func (f *Fake) Unpause(ctx context.Context) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("unpause"); err != nil {
		return nil, err
	}
	f.PausedFlag = false
	return &Tx{}, nil
}

func (f *Fake) TransferOwnership(ctx context.Context, newOwner common.Address) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("transferOwnership"); err != nil {
		return nil, err
	}
	f.OwnerAddr = newOwner
	return &Tx{}, nil
}

func (f *Fake) AddProduct(ctx context.Context, name, description string, price *big.Int) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("addProduct"); err != nil {
		return nil, err
	}
	id := uint64(len(f.Products) + 1)
	f.Products[id] = types.Product{ID: id, Name: name, Description: description, Price: price}
	return &Tx{}, nil
}

func (f *Fake) EditProduct(ctx context.Context, id uint64, name, description string, price *big.Int) (ledger.PendingTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("editProduct"); err != nil {
		return nil, err
	}
	if _, ok := f.Products[id]; !ok {
		return nil, &types.Error{Kind: types.KindLedgerRejection, Reason: "product not found"}
	}
	f.Products[id] = types.Product{ID: id, Name: name, Description: description, Price: price}
	return &Tx{}, nil
}

func (f *Fake) creditRefund(o *types.Order) {
	key := refundKey(o.Buyer, o.PaymentToken)
	bal, ok := f.Refunds[key]
	if !ok {
		bal = new(big.Int)
		f.Refunds[key] = bal
	}
	bal.Add(bal, o.TotalAmount)
}

func refundKey(owner, token common.Address) string {
	return owner.Hex() + "|" + token.Hex()
}
