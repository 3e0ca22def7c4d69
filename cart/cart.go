// Package cart holds the in-memory cart owned by the active session. It is
// purely local: nothing here touches the ledger.
package cart

import (
	"math/big"
	"sort"
	"sync"

	"github.com/chainmarket/storefront/money"
	"github.com/chainmarket/storefront/types"
)

// Line is one cart entry. Quantity is always >= 1.
type Line struct {
	Product  types.Product
	Quantity uint64
}

// Cart maps product id to line. Mutations are atomic per call; no partial
// state is observable between reads.
type Cart struct {
	mu    sync.Mutex
	lines map[uint64]*Line
}

func New() *Cart {
	return &Cart{lines: make(map[uint64]*Line)}
}

// Add inserts the product with quantity 1, or increments the existing line.
func (c *Cart) Add(p types.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[p.ID]; ok {
		line.Quantity++
		return
	}
	c.lines[p.ID] = &Line{Product: p, Quantity: 1}
}

// ChangeQty adjusts a line's quantity by delta, clamped to a minimum of 1.
// Removal is never implicit; a missing product id is a no-op.
func (c *Cart) ChangeQty(productID uint64, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, ok := c.lines[productID]
	if !ok {
		return
	}
	q := int64(line.Quantity) + delta
	if q < 1 {
		q = 1
	}
	line.Quantity = uint64(q)
}

// Remove deletes the line; removing an absent id is a no-op.
func (c *Cart) Remove(productID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lines, productID)
}

// Clear empties the cart. Called only after a confirmed checkout.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[uint64]*Line)
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Count returns the summed quantity across lines.
func (c *Cart) Count() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n uint64
	for _, line := range c.lines {
		n += line.Quantity
	}
	return n
}

// Lines returns a copy of the cart contents ordered by product id.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, 0, len(c.lines))
	for _, line := range c.lines {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product.ID < out[j].Product.ID })
	return out
}

// Items derives the {productId, quantity} pairs for the create-order write.
func (c *Cart) Items() []types.OrderInput {
	lines := c.Lines()
	items := make([]types.OrderInput, 0, len(lines))
	for _, line := range lines {
		items = append(items, types.OrderInput{ProductID: line.Product.ID, Quantity: line.Quantity})
	}
	return items
}

// Total returns the integer sum of price * quantity over all lines.
func (c *Cart) Total() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := new(big.Int)
	for _, line := range c.lines {
		total.Add(total, money.Mul(line.Product.Price, line.Quantity))
	}
	return total
}
