// Package storefront is a client for an on-chain storefront: buyers browse a
// catalog, assemble a cart, and pay in a fungible settlement token against a
// remote ledger contract; a designated owner manages catalog, order
// lifecycle, revenue, and contract configuration. The ledger itself is an
// external collaborator; this package orchestrates between user intent and
// ledger calls.
package storefront

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainmarket/storefront/admin"
	"github.com/chainmarket/storefront/cart"
	"github.com/chainmarket/storefront/checkout"
	"github.com/chainmarket/storefront/events"
	"github.com/chainmarket/storefront/ledger"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/metrics"
	"github.com/chainmarket/storefront/refund"
	"github.com/chainmarket/storefront/session"
	"github.com/chainmarket/storefront/status"
	"github.com/chainmarket/storefront/store"
	"github.com/chainmarket/storefront/types"
)

// Storefront wires the components around one ledger contract and one wallet
// session.
type Storefront struct {
	config  *types.Config
	log     logger.Logger
	rec     metrics.Recorder
	timeout time.Duration
	confirm admin.Confirmer

	bus     *events.Bus
	session *session.Session
	ledger  ledger.Ledger
	tokens  ledger.TokenSource

	cart     *cart.Cart
	store    *store.Repository
	checkout *checkout.Orchestrator
	status   *status.Controller
	refunds  *refund.Ledger
	admin    *admin.Panel

	closer func()
}

// New validates the configuration, connects to the ledger (unless one is
// injected), and assembles the component graph.
func New(config *types.Config, opts ...Option) (*Storefront, error) {
	if config == nil {
		return nil, types.ValidationError(types.ErrCodeInvalidConfig, "config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Storefront{
		config:  config,
		log:     logger.NoopLogger{},
		rec:     metrics.NoopRecorder{},
		timeout: config.DefaultTimeout,
		bus:     events.NewBus(),
		session: session.New(),
	}
	if config.LogLevel != "" {
		s.log = logger.NewZapLogger(config.LogLevel)
	}
	if config.EnableMetrics {
		s.rec = metrics.NewPrometheusRecorder()
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.ledger == nil {
		evm, err := ledger.Dial(config.RPCURL, common.HexToAddress(config.ContractAddress), s.session)
		if err != nil {
			return nil, err
		}
		s.ledger = evm
		s.tokens = evm
		s.closer = evm.Close
	}

	s.cart = cart.New()
	s.store = store.New(s.ledger, s.log, s.rec, s.timeout, config.FetchConcurrency)
	s.checkout = checkout.New(s.cart, s.ledger, s.tokens, s.session, s.bus, s.log, s.rec, s.timeout)
	s.status = status.New(s.ledger, s.session, s.bus, s.log, s.rec, s.timeout)
	s.refunds = refund.New(s.ledger, s.session, s.bus, s.log, s.timeout)
	s.admin = admin.New(s.ledger, s.session, s.bus, s.log, s.rec, s.confirm, s.timeout)
	return s, nil
}

// Connect binds a wallet to the session after checking it is on the expected
// network, and records the contract owner for authorization checks.
func (s *Storefront) Connect(ctx context.Context, wallet session.Wallet) error {
	if wallet.ChainID() == nil || wallet.ChainID().Int64() != s.config.ChainID {
		return &types.Error{
			Kind:    types.KindProvider,
			Code:    types.ErrCodeWrongNetwork,
			Message: fmt.Sprintf("wallet is on the wrong network; expected chain id %d", s.config.ChainID),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	owner, err := s.ledger.Owner(ctx)
	if err != nil {
		return err
	}
	s.session.Connect(wallet, owner)
	s.log.Info("wallet connected", map[string]any{
		"address": wallet.Address().Hex(),
		"isOwner": wallet.Address() == owner,
	})
	return nil
}

// Disconnect drops the wallet session and the cart it owned.
func (s *Storefront) Disconnect() {
	s.session.Disconnect()
	s.cart.Clear()
}

func (s *Storefront) Cart() *cart.Cart                 { return s.cart }
func (s *Storefront) Store() *store.Repository         { return s.store }
func (s *Storefront) Checkout() *checkout.Orchestrator { return s.checkout }
func (s *Storefront) Status() *status.Controller       { return s.status }
func (s *Storefront) Refunds() *refund.Ledger          { return s.refunds }
func (s *Storefront) Admin() *admin.Panel              { return s.admin }
func (s *Storefront) Session() *session.Session        { return s.session }
func (s *Storefront) Events() *events.Bus              { return s.bus }

// Close releases the underlying ledger connection.
func (s *Storefront) Close() {
	if s.closer != nil {
		s.closer()
	}
}
