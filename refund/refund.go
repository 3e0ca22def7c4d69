// Package refund tracks a buyer's claimable refund balance. The ledger is
// the source of truth: Refresh replaces the cached value wholesale, and a
// confirmed claim is followed by another Refresh rather than assuming zero.
package refund

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/chainmarket/storefront/events"
	"github.com/chainmarket/storefront/ledger"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/session"
	"github.com/chainmarket/storefront/types"
)

// Ledger is the client-side projection of a buyer's refund balance for the
// current payment token.
type Ledger struct {
	ledger  ledger.Ledger
	session *session.Session
	bus     *events.Bus
	log     logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	balance *big.Int
}

func New(l ledger.Ledger, s *session.Session, bus *events.Bus, log logger.Logger, timeout time.Duration) *Ledger {
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &Ledger{
		ledger:  l,
		session: s,
		bus:     bus,
		log:     log,
		timeout: timeout,
		balance: new(big.Int),
	}
}

// Refresh re-reads the claimable balance for (buyer, current payment token)
// and replaces the cached value entirely.
func (r *Ledger) Refresh(ctx context.Context) (*big.Int, error) {
	if err := r.session.RequireConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	token, err := r.ledger.PaymentToken(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := r.ledger.RefundBalance(ctx, r.session.Address(), token)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.balance = new(big.Int).Set(balance)
	r.mu.Unlock()
	return new(big.Int).Set(balance), nil
}

// Balance returns the last refreshed balance.
func (r *Ledger) Balance() *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return new(big.Int).Set(r.balance)
}

// Claimable reports whether the claim affordance should be shown. A zero
// balance hides it.
func (r *Ledger) Claimable() bool {
	return r.Balance().Sign() > 0
}

// Claim submits the claim write, awaits confirmation, then refreshes from
// the ledger.
func (r *Ledger) Claim(ctx context.Context) error {
	if err := r.session.RequireConnected(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	token, err := r.ledger.PaymentToken(ctx)
	if err != nil {
		return err
	}
	tx, err := r.ledger.ClaimRefund(ctx, token)
	if err != nil {
		return err
	}
	if err := tx.Wait(ctx); err != nil {
		return err
	}

	r.log.Info("refund claimed", map[string]any{
		"buyer": r.session.Address().Hex(),
		"token": token.Hex(),
	})
	if _, err := r.Refresh(ctx); err != nil {
		return err
	}
	r.bus.Publish(events.TopicRefunds)
	return nil
}
