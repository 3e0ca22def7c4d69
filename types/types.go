// Package types defines the domain model shared by all storefront components:
// catalog products, orders and their line items, the contract-level state
// snapshot, and the client configuration.
package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// OrderStatus is the order lifecycle position as recorded by the ledger.
type OrderStatus uint8

const (
	StatusPending    OrderStatus = 0
	StatusConfirmed  OrderStatus = 1
	StatusProcessing OrderStatus = 2
	StatusShipped    OrderStatus = 3
	StatusCompleted  OrderStatus = 4
	StatusCancelled  OrderStatus = 5
)

var statusLabels = [...]string{
	"Pending", "Confirmed", "Processing", "Shipped", "Completed", "Cancelled",
}

func (s OrderStatus) String() string {
	if int(s) < len(statusLabels) {
		return statusLabels[s]
	}
	return fmt.Sprintf("OrderStatus(%d)", uint8(s))
}

// Terminal reports whether no further transitions exist from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the six ledger-recorded statuses.
func (s OrderStatus) Valid() bool {
	return s <= StatusCancelled
}

// Product is a catalog entry. Price is a fixed-point integer scaled by 10^6.
type Product struct {
	ID          uint64
	Name        string
	Description string
	Price       *big.Int
}

// RecipientInfo is the shipping data supplied at checkout. All three fields
// must be non-blank; it is immutable once an order exists.
type RecipientInfo struct {
	Name    string `validate:"required"`
	Address string `validate:"required"`
	Phone   string `validate:"required"`
}

// OrderInput is a {productId, quantity} pair sent to the create-order write.
type OrderInput struct {
	ProductID uint64
	Quantity  uint64
}

// Order is the ledger's order record. The client only ever holds a read
// projection of it; it is stale the moment it is fetched.
type Order struct {
	ID            uint64
	Buyer         common.Address
	Recipient     RecipientInfo
	TotalAmount   *big.Int
	Status        OrderStatus
	PaymentToken  common.Address
	CreatedAt     time.Time
	RefundClaimed bool
}

// OrderItem is a line item with name and price snapshotted at order-creation
// time. Subtotal = ProductPrice * Quantity.
type OrderItem struct {
	ProductID    uint64
	ProductName  string
	ProductPrice *big.Int
	Quantity     uint64
	Subtotal     *big.Int
}

// OrderDetail pairs an order with its line items.
type OrderDetail struct {
	Order Order
	Items []OrderItem
}

// ContractState is a point-in-time snapshot of contract-level configuration.
// It is refreshed on demand and never cached across sessions.
type ContractState struct {
	Owner               common.Address
	PaymentToken        common.Address
	Paused              bool
	ProductCount        uint64
	OrderCount          uint64
	WithdrawableRevenue *big.Int
}

// Config configures a Storefront client.
type Config struct {
	// RPCURL is the JSON-RPC endpoint used for ledger reads and writes.
	RPCURL string `json:"rpcUrl" validate:"required,url"`

	// ContractAddress is the storefront ledger contract.
	ContractAddress string `json:"contractAddress" validate:"required,eth_addr"`

	// ChainID is the expected network id; connecting a wallet on another
	// network is rejected as a provider error.
	ChainID int64 `json:"chainId" validate:"required,gt=0"`

	// DefaultTimeout bounds every suspending call. Zero means 30s.
	DefaultTimeout time.Duration `json:"defaultTimeout"`

	// FetchConcurrency bounds the order-detail fan-out. Zero means 8.
	FetchConcurrency int `json:"fetchConcurrency" validate:"gte=0"`

	LogLevel      string `json:"logLevel"`
	EnableMetrics bool   `json:"enableMetrics"`
}

const (
	DefaultTimeout          = 30 * time.Second
	DefaultFetchConcurrency = 8
)

var validate = validator.New()

// Validate checks the configuration using struct tags and applies defaults.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &Error{
			Kind:    KindValidation,
			Code:    ErrCodeInvalidConfig,
			Message: fmt.Sprintf("invalid config: %v", err),
		}
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = DefaultFetchConcurrency
	}
	return nil
}

// ValidateRecipient rejects recipient info with any blank field.
func ValidateRecipient(r RecipientInfo) error {
	if err := validate.Struct(&r); err != nil {
		return &Error{
			Kind:    KindValidation,
			Code:    ErrCodeIncompleteRecipient,
			Message: "recipient name, address and phone are all required",
		}
	}
	return nil
}

// ShortAddress renders 0xABCD...1234 for display.
func ShortAddress(addr common.Address) string {
	s := addr.Hex()
	return s[:6] + "..." + s[len(s)-4:]
}
