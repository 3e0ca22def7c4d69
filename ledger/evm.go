package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chainmarket/storefront/types"
)

const storefrontABI = `[
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"paymentToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"isPaused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"productCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"orderCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getProduct","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"id","type":"uint256"},{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"price","type":"uint256"}]}]},
  {"type":"function","name":"getAllProducts","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"id","type":"uint256"},{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"price","type":"uint256"}]}]},
  {"type":"function","name":"getOrder","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"},{"name":"","type":"address"},{"name":"","type":"string"},{"name":"","type":"string"},{"name":"","type":"string"},{"name":"","type":"uint256"},{"name":"","type":"uint8"},{"name":"","type":"address"},{"name":"","type":"uint256"},{"name":"","type":"bool"}]},
  {"type":"function","name":"getOrderItems","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"productId","type":"uint256"},{"name":"productName","type":"string"},{"name":"productPrice","type":"uint256"},{"name":"quantity","type":"uint256"},{"name":"subtotal","type":"uint256"}]}]},
  {"type":"function","name":"getUserOrders","stateMutability":"view","inputs":[{"name":"buyer","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getRefundBalance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getWithdrawableRevenue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"createOrder","stateMutability":"nonpayable","inputs":[{"name":"recipientName","type":"string"},{"name":"recipientAddress","type":"string"},{"name":"recipientPhone","type":"string"},{"name":"items","type":"tuple[]","components":[{"name":"productId","type":"uint256"},{"name":"quantity","type":"uint256"}]}],"outputs":[]},
  {"type":"function","name":"updateOrderStatus","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"uint256"},{"name":"status","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"cancelOrder","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claimRefund","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"}],"outputs":[]},
  {"type":"function","name":"withdrawRevenue","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setPaymentToken","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"}],"outputs":[]},
  {"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
  {"type":"function","name":"addProduct","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"editProduct","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"price","type":"uint256"}],"outputs":[]}
]`

var _ Ledger = (*EVM)(nil)
var _ TokenSource = (*EVM)(nil)

// EVM talks to the storefront contract over an Ethereum JSON-RPC endpoint.
type EVM struct {
	address common.Address
	client  *ethclient.Client
	bound   *bind.BoundContract
	signer  Signer

	mu     sync.Mutex
	tokens map[common.Address]*erc20Token
}

// Dial connects to the RPC endpoint and binds the contract.
func Dial(rpcURL string, contract common.Address, signer Signer) (*EVM, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, &types.Error{
			Kind:    types.KindNetwork,
			Message: fmt.Sprintf("failed to connect to RPC: %v", err),
			Detail:  err,
		}
	}
	return NewEVM(client, contract, signer)
}

// NewEVM binds the contract over an existing client.
func NewEVM(client *ethclient.Client, contract common.Address, signer Signer) (*EVM, error) {
	parsed, err := abi.JSON(strings.NewReader(storefrontABI))
	if err != nil {
		return nil, fmt.Errorf("parse storefront ABI: %w", err)
	}
	return &EVM{
		address: contract,
		client:  client,
		bound:   bind.NewBoundContract(contract, parsed, client, client, client),
		signer:  signer,
		tokens:  make(map[common.Address]*erc20Token),
	}, nil
}

func (l *EVM) ContractAddress() common.Address { return l.address }

// Token returns an allowance surface for the ERC-20 at addr, bound lazily
// because the payment token can change via owner action.
func (l *EVM) Token(addr common.Address) Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.tokens[addr]; ok {
		return t
	}
	t := newERC20Token(addr, l.client, l.signer)
	l.tokens[addr] = t
	return t
}

// Close releases the underlying RPC connection.
func (l *EVM) Close() {
	l.client.Close()
}

func (l *EVM) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := l.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, wrapReadErr(method, err)
	}
	return out, nil
}

func (l *EVM) transact(ctx context.Context, method string, args ...interface{}) (PendingTx, error) {
	opts, err := l.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	tx, err := l.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, wrapWriteErr(method, err)
	}
	return &pendingTx{tx: tx, client: l.client}, nil
}

// productTuple mirrors the contract's Product struct.
type productTuple struct {
	Id          *big.Int
	Name        string
	Description string
	Price       *big.Int
}

// orderItemTuple mirrors the contract's OrderItem struct.
type orderItemTuple struct {
	ProductId    *big.Int
	ProductName  string
	ProductPrice *big.Int
	Quantity     *big.Int
	Subtotal     *big.Int
}

// orderInputTuple mirrors the createOrder items parameter.
type orderInputTuple struct {
	ProductId *big.Int
	Quantity  *big.Int
}

func (l *EVM) Owner(ctx context.Context) (common.Address, error) {
	out, err := l.call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (l *EVM) PaymentToken(ctx context.Context) (common.Address, error) {
	out, err := l.call(ctx, "paymentToken")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (l *EVM) Paused(ctx context.Context) (bool, error) {
	out, err := l.call(ctx, "isPaused")
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (l *EVM) ProductCount(ctx context.Context) (uint64, error) {
	out, err := l.call(ctx, "productCount")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (l *EVM) OrderCount(ctx context.Context) (uint64, error) {
	out, err := l.call(ctx, "orderCount")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (l *EVM) Product(ctx context.Context, id uint64) (types.Product, error) {
	out, err := l.call(ctx, "getProduct", new(big.Int).SetUint64(id))
	if err != nil {
		return types.Product{}, err
	}
	raw := *abi.ConvertType(out[0], new(productTuple)).(*productTuple)
	return productFromTuple(raw), nil
}

func (l *EVM) AllProducts(ctx context.Context) ([]types.Product, error) {
	out, err := l.call(ctx, "getAllProducts")
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]productTuple)).(*[]productTuple)
	products := make([]types.Product, 0, len(raw))
	for _, p := range raw {
		products = append(products, productFromTuple(p))
	}
	return products, nil
}

func (l *EVM) Order(ctx context.Context, id uint64) (types.Order, error) {
	out, err := l.call(ctx, "getOrder", new(big.Int).SetUint64(id))
	if err != nil {
		return types.Order{}, err
	}
	return types.Order{
		ID:    out[0].(*big.Int).Uint64(),
		Buyer: out[1].(common.Address),
		Recipient: types.RecipientInfo{
			Name:    out[2].(string),
			Address: out[3].(string),
			Phone:   out[4].(string),
		},
		TotalAmount:   out[5].(*big.Int),
		Status:        types.OrderStatus(out[6].(uint8)),
		PaymentToken:  out[7].(common.Address),
		CreatedAt:     time.Unix(out[8].(*big.Int).Int64(), 0).UTC(),
		RefundClaimed: out[9].(bool),
	}, nil
}

func (l *EVM) OrderItems(ctx context.Context, id uint64) ([]types.OrderItem, error) {
	out, err := l.call(ctx, "getOrderItems", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]orderItemTuple)).(*[]orderItemTuple)
	items := make([]types.OrderItem, 0, len(raw))
	for _, it := range raw {
		items = append(items, types.OrderItem{
			ProductID:    it.ProductId.Uint64(),
			ProductName:  it.ProductName,
			ProductPrice: it.ProductPrice,
			Quantity:     it.Quantity.Uint64(),
			Subtotal:     it.Subtotal,
		})
	}
	return items, nil
}

func (l *EVM) BuyerOrderIDs(ctx context.Context, buyer common.Address) ([]uint64, error) {
	out, err := l.call(ctx, "getUserOrders", buyer)
	if err != nil {
		return nil, err
	}
	raw := out[0].([]*big.Int)
	ids := make([]uint64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Uint64())
	}
	return ids, nil
}

func (l *EVM) RefundBalance(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	out, err := l.call(ctx, "getRefundBalance", owner, token)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (l *EVM) WithdrawableRevenue(ctx context.Context) (*big.Int, error) {
	out, err := l.call(ctx, "getWithdrawableRevenue")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (l *EVM) CreateOrder(ctx context.Context, r types.RecipientInfo, items []types.OrderInput) (PendingTx, error) {
	tuples := make([]orderInputTuple, 0, len(items))
	for _, it := range items {
		tuples = append(tuples, orderInputTuple{
			ProductId: new(big.Int).SetUint64(it.ProductID),
			Quantity:  new(big.Int).SetUint64(it.Quantity),
		})
	}
	return l.transact(ctx, "createOrder", r.Name, r.Address, r.Phone, tuples)
}

func (l *EVM) UpdateOrderStatus(ctx context.Context, orderID uint64, status types.OrderStatus) (PendingTx, error) {
	return l.transact(ctx, "updateOrderStatus", new(big.Int).SetUint64(orderID), uint8(status))
}

func (l *EVM) CancelOrder(ctx context.Context, orderID uint64) (PendingTx, error) {
	return l.transact(ctx, "cancelOrder", new(big.Int).SetUint64(orderID))
}

func (l *EVM) ClaimRefund(ctx context.Context, token common.Address) (PendingTx, error) {
	return l.transact(ctx, "claimRefund", token)
}

func (l *EVM) WithdrawRevenue(ctx context.Context, amount *big.Int) (PendingTx, error) {
	return l.transact(ctx, "withdrawRevenue", amount)
}

func (l *EVM) SetPaymentToken(ctx context.Context, token common.Address) (PendingTx, error) {
	return l.transact(ctx, "setPaymentToken", token)
}

func (l *EVM) Pause(ctx context.Context) (PendingTx, error) {
	return l.transact(ctx, "pause")
}

func (l *EVM) Unpause(ctx context.Context) (PendingTx, error) {
	return l.transact(ctx, "unpause")
}

func (l *EVM) TransferOwnership(ctx context.Context, newOwner common.Address) (PendingTx, error) {
	return l.transact(ctx, "transferOwnership", newOwner)
}

func (l *EVM) AddProduct(ctx context.Context, name, description string, price *big.Int) (PendingTx, error) {
	return l.transact(ctx, "addProduct", name, description, price)
}

func (l *EVM) EditProduct(ctx context.Context, id uint64, name, description string, price *big.Int) (PendingTx, error) {
	return l.transact(ctx, "editProduct", new(big.Int).SetUint64(id), name, description, price)
}

func productFromTuple(p productTuple) types.Product {
	return types.Product{
		ID:          p.Id.Uint64(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
	}
}

// pendingTx wraps a submitted transaction until one confirmation.
type pendingTx struct {
	tx     *ethtypes.Transaction
	client *ethclient.Client
}

func (p *pendingTx) Hash() common.Hash { return p.tx.Hash() }

func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.client, p.tx)
	if err != nil {
		return &types.Error{
			Kind:    types.KindNetwork,
			Message: fmt.Sprintf("waiting for confirmation of %s: %v", p.tx.Hash().Hex(), err),
			Detail:  err,
		}
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return &types.Error{
			Kind:    types.KindLedgerRejection,
			Code:    types.ErrCodeWriteReverted,
			Message: fmt.Sprintf("transaction %s reverted", p.tx.Hash().Hex()),
		}
	}
	return nil
}

func wrapReadErr(method string, err error) error {
	return &types.Error{
		Kind:    types.KindNetwork,
		Code:    types.ErrCodeReadFailed,
		Message: fmt.Sprintf("%s: %v", method, err),
		Detail:  err,
	}
}

// wrapWriteErr classifies a failed submission: reverts (from gas estimation)
// are ledger rejections with a structured reason where the node supplied one;
// everything else is a provider failure.
func wrapWriteErr(method string, err error) error {
	if reason := types.ExtractRevertReason(err.Error()); reason != "" {
		return &types.Error{
			Kind:    types.KindLedgerRejection,
			Code:    types.ErrCodeWriteReverted,
			Message: fmt.Sprintf("%s rejected by ledger", method),
			Reason:  reason,
			Detail:  err,
		}
	}
	return &types.Error{
		Kind:    types.KindProvider,
		Message: fmt.Sprintf("%s: %v", method, err),
		Detail:  err,
	}
}
