// Package admin is the owner's control panel: revenue withdrawal, payment
// token change, pause toggle, ownership transfer, and catalog management.
// Each operation is a single guarded write followed by a full state reload;
// all are rejected client-side for non-owners before any network call (the
// ledger enforces ownership as well).
package admin

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/chainmarket/storefront/events"
	"github.com/chainmarket/storefront/ledger"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/metrics"
	"github.com/chainmarket/storefront/session"
	"github.com/chainmarket/storefront/types"
)

// Confirmer asks the user to confirm a destructive-adjacent action. It
// receives a one-line description and returns whether to proceed.
type Confirmer func(action string) bool

// Panel executes owner-only contract operations.
type Panel struct {
	ledger  ledger.Ledger
	session *session.Session
	bus     *events.Bus
	log     logger.Logger
	rec     metrics.Recorder
	confirm Confirmer
	timeout time.Duration

	mu    sync.Mutex
	state types.ContractState
}

func New(l ledger.Ledger, s *session.Session, bus *events.Bus, log logger.Logger, rec metrics.Recorder, confirm Confirmer, timeout time.Duration) *Panel {
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &Panel{
		ledger:  l,
		session: s,
		bus:     bus,
		log:     log,
		rec:     rec,
		confirm: confirm,
		timeout: timeout,
		state:   types.ContractState{WithdrawableRevenue: new(big.Int)},
	}
}

// State returns the last loaded contract snapshot.
func (p *Panel) State() types.ContractState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reload re-fetches the full contract state. Reads are independent, so they
// run concurrently; the result replaces the cached snapshot wholesale.
func (p *Panel) Reload(ctx context.Context) (types.ContractState, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var state types.ContractState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { state.Owner, err = p.ledger.Owner(gctx); return })
	g.Go(func() (err error) { state.PaymentToken, err = p.ledger.PaymentToken(gctx); return })
	g.Go(func() (err error) { state.Paused, err = p.ledger.Paused(gctx); return })
	g.Go(func() (err error) { state.ProductCount, err = p.ledger.ProductCount(gctx); return })
	g.Go(func() (err error) { state.OrderCount, err = p.ledger.OrderCount(gctx); return })
	g.Go(func() (err error) { state.WithdrawableRevenue, err = p.ledger.WithdrawableRevenue(gctx); return })
	if err := g.Wait(); err != nil {
		return types.ContractState{}, err
	}

	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
	p.bus.Publish(events.TopicState)
	return state, nil
}

// Withdraw moves accumulated revenue to the owner. The amount must be
// positive; the cached revenue ceiling is advisory only (the ledger is
// authoritative), so exceeding it logs a warning but still submits.
func (p *Panel) Withdraw(ctx context.Context, amount *big.Int) error {
	if err := p.session.RequireOwner(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return types.ValidationError(types.ErrCodeInvalidAmount,
			"withdraw amount must be greater than zero")
	}
	if revenue := p.State().WithdrawableRevenue; revenue != nil && amount.Cmp(revenue) > 0 {
		p.log.Warn("withdraw amount exceeds cached revenue", map[string]any{
			"amount":  amount.String(),
			"revenue": revenue.String(),
		})
	}
	return p.write(ctx, "withdraw", func(ctx context.Context) (ledger.PendingTx, error) {
		return p.ledger.WithdrawRevenue(ctx, amount)
	})
}

// SetPaymentToken changes the token future orders and approvals use.
// Requires explicit confirmation.
func (p *Panel) SetPaymentToken(ctx context.Context, tokenAddr string) error {
	if err := p.session.RequireOwner(); err != nil {
		return err
	}
	if !common.IsHexAddress(tokenAddr) {
		return types.ValidationError(types.ErrCodeInvalidAddress,
			"payment token must be a valid address")
	}
	if !p.confirmed(fmt.Sprintf("change payment token to %s", tokenAddr)) {
		return types.ValidationError(types.ErrCodeNotConfirmed,
			"payment token change not confirmed")
	}
	token := common.HexToAddress(tokenAddr)
	return p.write(ctx, "set_payment_token", func(ctx context.Context) (ledger.PendingTx, error) {
		return p.ledger.SetPaymentToken(ctx, token)
	})
}

// PauseLabel names the action TogglePause would take, reflecting current
// state before the call.
func (p *Panel) PauseLabel() string {
	if p.State().Paused {
		return "Unpause"
	}
	return "Pause"
}

// TogglePause pauses a running contract or unpauses a paused one.
func (p *Panel) TogglePause(ctx context.Context) error {
	if err := p.session.RequireOwner(); err != nil {
		return err
	}
	if p.State().Paused {
		return p.write(ctx, "unpause", p.ledger.Unpause)
	}
	return p.write(ctx, "pause", p.ledger.Pause)
}

// TransferOwnership hands the contract to a new owner. Requires explicit
// confirmation; on success the session's entire authorization context is
// stale, so the session is disconnected and an ownership event published for
// callers to fully reset.
func (p *Panel) TransferOwnership(ctx context.Context, newOwner string) error {
	if err := p.session.RequireOwner(); err != nil {
		return err
	}
	if !common.IsHexAddress(newOwner) {
		return types.ValidationError(types.ErrCodeInvalidAddress,
			"new owner must be a valid address")
	}
	if !p.confirmed(fmt.Sprintf("transfer ownership to %s; you will lose access", newOwner)) {
		return types.ValidationError(types.ErrCodeNotConfirmed,
			"ownership transfer not confirmed")
	}
	addr := common.HexToAddress(newOwner)
	if err := p.write(ctx, "transfer_ownership", func(ctx context.Context) (ledger.PendingTx, error) {
		return p.ledger.TransferOwnership(ctx, addr)
	}); err != nil {
		return err
	}
	p.session.Disconnect()
	p.bus.Publish(events.TopicOwnership)
	return nil
}

// AddProduct appends a catalog entry.
func (p *Panel) AddProduct(ctx context.Context, name, description string, price *big.Int) error {
	if err := p.session.RequireOwner(); err != nil {
		return err
	}
	if err := validateProduct(name, price); err != nil {
		return err
	}
	if err := p.write(ctx, "add_product", func(ctx context.Context) (ledger.PendingTx, error) {
		return p.ledger.AddProduct(ctx, name, description, price)
	}); err != nil {
		return err
	}
	p.bus.Publish(events.TopicCatalog)
	return nil
}

// EditProduct replaces a catalog entry's fields. Existing orders keep their
// snapshotted name and price.
func (p *Panel) EditProduct(ctx context.Context, id uint64, name, description string, price *big.Int) error {
	if err := p.session.RequireOwner(); err != nil {
		return err
	}
	if err := validateProduct(name, price); err != nil {
		return err
	}
	if err := p.write(ctx, "edit_product", func(ctx context.Context) (ledger.PendingTx, error) {
		return p.ledger.EditProduct(ctx, id, name, description, price)
	}); err != nil {
		return err
	}
	p.bus.Publish(events.TopicCatalog)
	return nil
}

// write submits one transaction, awaits confirmation, and reloads state.
func (p *Panel) write(ctx context.Context, op string, submit func(context.Context) (ledger.PendingTx, error)) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	tx, err := submit(ctx)
	if err != nil {
		p.rec.IncCounter("admin_write_failed", map[string]string{"component": "admin"})
		return err
	}
	if err := tx.Wait(ctx); err != nil {
		p.rec.IncCounter("admin_write_failed", map[string]string{"component": "admin"})
		return err
	}
	p.rec.ObserveLatency(op, time.Since(start), map[string]string{"component": "admin"})
	p.log.Info("admin write confirmed", map[string]any{"op": op, "tx": tx.Hash().Hex()})

	if _, err := p.Reload(ctx); err != nil {
		return err
	}
	return nil
}

func (p *Panel) confirmed(action string) bool {
	if p.confirm == nil {
		return false
	}
	return p.confirm(action)
}

func validateProduct(name string, price *big.Int) error {
	if name == "" {
		return types.ValidationError(types.ErrCodeInvalidProduct,
			"product name is required")
	}
	if price == nil || price.Sign() <= 0 {
		return types.ValidationError(types.ErrCodeInvalidAmount,
			"product price must be greater than zero")
	}
	return nil
}
