// Package checkout drives the two-phase payment sequence: approve the
// settlement token for exactly the cart total when the current allowance
// falls short, then create the order. The two writes are strictly
// serialized; a failed checkout never leaves a created order behind, and an
// approval without an order simply remains available for a retry.
package checkout

import (
	"context"
	"time"

	"github.com/chainmarket/storefront/cart"
	"github.com/chainmarket/storefront/events"
	"github.com/chainmarket/storefront/ledger"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/metrics"
	"github.com/chainmarket/storefront/session"
	"github.com/chainmarket/storefront/types"
)

// Orchestrator executes checkouts for the active session's cart.
type Orchestrator struct {
	cart    *cart.Cart
	ledger  ledger.Ledger
	tokens  ledger.TokenSource
	session *session.Session
	bus     *events.Bus
	log     logger.Logger
	rec     metrics.Recorder
	timeout time.Duration
}

func New(
	c *cart.Cart,
	l ledger.Ledger,
	tokens ledger.TokenSource,
	s *session.Session,
	bus *events.Bus,
	log logger.Logger,
	rec metrics.Recorder,
	timeout time.Duration,
) *Orchestrator {
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &Orchestrator{
		cart:    c,
		ledger:  l,
		tokens:  tokens,
		session: s,
		bus:     bus,
		log:     log,
		rec:     rec,
		timeout: timeout,
	}
}

// Checkout validates locally, then runs the transaction sequence:
//
//  1. read the current allowance granted to the contract
//  2. if allowance < total, approve exactly total and await confirmation
//  3. create the order and await confirmation
//
// On success the cart is cleared and an orders-changed event published;
// callers refresh listings rather than receiving mutated state. On any
// failure the cart is untouched.
func (o *Orchestrator) Checkout(ctx context.Context, recipient types.RecipientInfo) error {
	if err := o.session.RequireConnected(); err != nil {
		return err
	}
	if o.cart.Len() == 0 {
		return types.ValidationError(types.ErrCodeEmptyCart, "cart is empty")
	}
	if err := types.ValidateRecipient(recipient); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	buyer := o.session.Address()
	total := o.cart.Total()
	items := o.cart.Items()

	tokenAddr, err := o.ledger.PaymentToken(ctx)
	if err != nil {
		return err
	}
	token := o.tokens.Token(tokenAddr)

	allowance, err := token.Allowance(ctx, buyer, o.ledger.ContractAddress())
	if err != nil {
		return err
	}

	if allowance.Cmp(total) < 0 {
		o.log.Info("approving settlement token", map[string]any{
			"buyer": buyer.Hex(),
			"total": total.String(),
		})
		approveTx, err := token.Approve(ctx, o.ledger.ContractAddress(), total)
		if err != nil {
			o.rec.IncCounter("checkout_failed", map[string]string{"component": "checkout"})
			return err
		}
		if err := approveTx.Wait(ctx); err != nil {
			o.rec.IncCounter("checkout_failed", map[string]string{"component": "checkout"})
			return &types.Error{
				Kind:    types.KindLedgerRejection,
				Code:    types.ErrCodeApproveFailed,
				Message: "token approval failed",
				Detail:  err,
			}
		}
	}

	orderTx, err := o.ledger.CreateOrder(ctx, recipient, items)
	if err != nil {
		o.rec.IncCounter("checkout_failed", map[string]string{"component": "checkout"})
		return err
	}
	if err := orderTx.Wait(ctx); err != nil {
		o.rec.IncCounter("checkout_failed", map[string]string{"component": "checkout"})
		return err
	}

	o.cart.Clear()
	o.bus.Publish(events.TopicOrders)
	o.rec.IncCounter("checkout_succeeded", map[string]string{"component": "checkout"})
	o.rec.ObserveLatency("checkout", time.Since(start), map[string]string{"component": "checkout"})
	o.log.Info("order created", map[string]any{
		"buyer": buyer.Hex(),
		"total": total.String(),
		"tx":    orderTx.Hash().Hex(),
	})
	return nil
}
