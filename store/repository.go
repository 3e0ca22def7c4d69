// Package store is the read-side projection of the ledger: catalog and order
// listings. All ledger reads for listings converge here; writers ask for a
// refresh instead of patching local state.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/chainmarket/storefront/ledger"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/metrics"
	"github.com/chainmarket/storefront/types"
)

// Repository fetches and merges ledger records. Per-id detail fetches run
// concurrently with a bounded fan-out; the merge step sorts explicitly so the
// final ordering never depends on fetch completion order.
type Repository struct {
	ledger      ledger.Reader
	log         logger.Logger
	rec         metrics.Recorder
	timeout     time.Duration
	concurrency int
}

func New(l ledger.Reader, log logger.Logger, rec metrics.Recorder, timeout time.Duration, concurrency int) *Repository {
	if concurrency <= 0 {
		concurrency = types.DefaultFetchConcurrency
	}
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &Repository{
		ledger:      l,
		log:         log,
		rec:         rec,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// Catalog lists all products.
func (r *Repository) Catalog(ctx context.Context) ([]types.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	products, err := r.ledger.AllProducts(ctx)
	r.rec.ObserveLatency("catalog_fetch", time.Since(start), map[string]string{"component": "store"})
	if err != nil {
		r.log.Error("catalog fetch failed", map[string]any{"error": err.Error()})
		return nil, err
	}
	return products, nil
}

// BuyerOrders lists a buyer's orders with line items, newest first by
// creation time (ties broken by id, descending).
func (r *Repository) BuyerOrders(ctx context.Context, buyer common.Address) ([]types.OrderDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ids, err := r.ledger.BuyerOrderIDs(ctx, buyer)
	if err != nil {
		return nil, err
	}
	details, err := r.fetchDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(details, func(i, j int) bool {
		a, b := details[i].Order, details[j].Order
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return details, nil
}

// AllOrders lists every order on the ledger for the admin view, id
// descending.
func (r *Repository) AllOrders(ctx context.Context) ([]types.OrderDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	count, err := r.ledger.OrderCount(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, count)
	for id := uint64(1); id <= count; id++ {
		ids = append(ids, id)
	}
	details, err := r.fetchDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].Order.ID > details[j].Order.ID
	})
	return details, nil
}

// OrderDetail fetches a single order with its items.
func (r *Repository) OrderDetail(ctx context.Context, id uint64) (types.OrderDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.fetchDetail(ctx, id)
}

// fetchDetails fans out independent per-id fetches with bounded parallelism.
// Any single failure fails the whole listing; no best-effort partial result.
func (r *Repository) fetchDetails(ctx context.Context, ids []uint64) ([]types.OrderDetail, error) {
	start := time.Now()
	details := make([]types.OrderDetail, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			d, err := r.fetchDetail(gctx, id)
			if err != nil {
				return err
			}
			details[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Error("order listing failed", map[string]any{
			"orders": len(ids),
			"error":  err.Error(),
		})
		return nil, err
	}
	r.rec.ObserveLatency("order_fanout", time.Since(start), map[string]string{"component": "store"})
	return details, nil
}

func (r *Repository) fetchDetail(ctx context.Context, id uint64) (types.OrderDetail, error) {
	order, err := r.ledger.Order(ctx, id)
	if err != nil {
		return types.OrderDetail{}, err
	}
	items, err := r.ledger.OrderItems(ctx, id)
	if err != nil {
		return types.OrderDetail{}, err
	}
	return types.OrderDetail{Order: order, Items: items}, nil
}

// FilterByStatus narrows a listing to one status, preserving order.
func FilterByStatus(details []types.OrderDetail, s types.OrderStatus) []types.OrderDetail {
	out := make([]types.OrderDetail, 0, len(details))
	for _, d := range details {
		if d.Order.Status == s {
			out = append(out, d)
		}
	}
	return out
}
