// Package status enforces the order lifecycle state machine and executes
// transitions against the ledger. The controller never mutates local order
// state; on confirmation it publishes a change event so projections refresh.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/chainmarket/storefront/events"
	"github.com/chainmarket/storefront/ledger"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/metrics"
	"github.com/chainmarket/storefront/session"
	"github.com/chainmarket/storefront/types"
)

// AdminTargets returns the statuses an admin may move an order to from s:
// every later non-terminal status (forward jumps of any size are allowed),
// plus Cancelled while the order is still Pending or Confirmed. Terminal
// states offer nothing.
func AdminTargets(s types.OrderStatus) []types.OrderStatus {
	if s.Terminal() {
		return nil
	}
	var targets []types.OrderStatus
	for t := s + 1; t <= types.StatusCompleted; t++ {
		targets = append(targets, t)
	}
	if s <= types.StatusConfirmed {
		targets = append(targets, types.StatusCancelled)
	}
	return targets
}

// CanBuyerCancel reports whether the buyer self-cancel path is open. It is
// narrower than the admin path: only a Pending order qualifies.
func CanBuyerCancel(s types.OrderStatus) bool {
	return s == types.StatusPending
}

func adminTargetAllowed(from, to types.OrderStatus) bool {
	for _, t := range AdminTargets(from) {
		if t == to {
			return true
		}
	}
	return false
}

// Controller executes transitions as single guarded writes.
type Controller struct {
	ledger  ledger.Ledger
	session *session.Session
	bus     *events.Bus
	log     logger.Logger
	rec     metrics.Recorder
	timeout time.Duration
}

func New(l ledger.Ledger, s *session.Session, bus *events.Bus, log logger.Logger, rec metrics.Recorder, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &Controller{ledger: l, session: s, bus: bus, log: log, rec: rec, timeout: timeout}
}

// Advance moves an order to a later status on the owner's authority. The
// target must be in AdminTargets for the order's current status.
func (c *Controller) Advance(ctx context.Context, orderID uint64, target types.OrderStatus) error {
	if err := c.session.RequireOwner(); err != nil {
		return err
	}
	if !target.Valid() {
		return types.ValidationError(types.ErrCodeInvalidTransition,
			fmt.Sprintf("unknown status %d", target))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	order, err := c.ledger.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if !adminTargetAllowed(order.Status, target) {
		return types.ValidationError(types.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot move order #%d from %s to %s", orderID, order.Status, target))
	}

	tx, err := c.ledger.UpdateOrderStatus(ctx, orderID, target)
	if err != nil {
		return err
	}
	if err := tx.Wait(ctx); err != nil {
		return err
	}

	c.log.Info("order status updated", map[string]any{
		"order": orderID,
		"from":  order.Status.String(),
		"to":    target.String(),
	})
	c.rec.IncCounter("status_advanced", map[string]string{"component": "status"})
	c.bus.Publish(events.TopicOrders)
	if target == types.StatusCancelled {
		c.bus.Publish(events.TopicRefunds)
	}
	return nil
}

// BuyerCancel cancels the caller's own Pending order. Cancellation makes the
// order total claimable in the refund ledger; it does not itself move funds.
func (c *Controller) BuyerCancel(ctx context.Context, orderID uint64) error {
	if err := c.session.RequireConnected(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	order, err := c.ledger.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Buyer != c.session.Address() {
		return types.AuthorizationError(types.ErrCodeNotBuyer,
			fmt.Sprintf("order #%d belongs to another buyer", orderID))
	}
	if !CanBuyerCancel(order.Status) {
		return types.ValidationError(types.ErrCodeInvalidTransition,
			fmt.Sprintf("order #%d is %s; only pending orders can be cancelled", orderID, order.Status))
	}

	tx, err := c.ledger.CancelOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := tx.Wait(ctx); err != nil {
		return err
	}

	c.log.Info("order cancelled by buyer", map[string]any{"order": orderID})
	c.rec.IncCounter("order_cancelled", map[string]string{"component": "status"})
	c.bus.Publish(events.TopicOrders)
	c.bus.Publish(events.TopicRefunds)
	return nil
}
