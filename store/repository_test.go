package store

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainmarket/storefront/ledger/ledgertest"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/metrics"
	"github.com/chainmarket/storefront/types"
)

var buyer = common.HexToAddress("0x00000000000000000000000000000000000000B1")

func newRepo(fake *ledgertest.Fake) *Repository {
	return New(fake, logger.NoopLogger{}, metrics.NoopRecorder{}, time.Second, 4)
}

func seed(fake *ledgertest.Fake, id uint64, createdAt time.Time, status types.OrderStatus) {
	fake.SeedOrder(types.Order{
		ID:          id,
		Buyer:       buyer,
		TotalAmount: big.NewInt(int64(id) * 1_000_000),
		Status:      status,
		CreatedAt:   createdAt,
	}, []types.OrderItem{{ProductID: 1, Quantity: 1}})
}

func TestCatalog(t *testing.T) {
	fake := ledgertest.New()
	fake.AddProductRecord(types.Product{ID: 1, Name: "Shirt", Price: big.NewInt(10_000_000)})
	fake.AddProductRecord(types.Product{ID: 2, Name: "Mug", Price: big.NewInt(5_000_000)})

	products, err := newRepo(fake).Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Shirt", products[0].Name)
	assert.Equal(t, "Mug", products[1].Name)
}

func TestBuyerOrdersNewestFirst(t *testing.T) {
	fake := ledgertest.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed(fake, 1, base, types.StatusPending)
	seed(fake, 2, base.Add(2*time.Hour), types.StatusPending)
	seed(fake, 3, base.Add(time.Hour), types.StatusPending)

	details, err := newRepo(fake).BuyerOrders(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, uint64(2), details[0].Order.ID)
	assert.Equal(t, uint64(3), details[1].Order.ID)
	assert.Equal(t, uint64(1), details[2].Order.ID)
}

func TestBuyerOrdersBreaksTimestampTiesByID(t *testing.T) {
	fake := ledgertest.New()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed(fake, 1, at, types.StatusPending)
	seed(fake, 2, at, types.StatusPending)
	seed(fake, 3, at, types.StatusPending)

	details, err := newRepo(fake).BuyerOrders(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, uint64(3), details[0].Order.ID)
	assert.Equal(t, uint64(2), details[1].Order.ID)
	assert.Equal(t, uint64(1), details[2].Order.ID)
}

func TestBuyerOrdersEmpty(t *testing.T) {
	fake := ledgertest.New()
	details, err := newRepo(fake).BuyerOrders(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestAllOrdersIDDescending(t *testing.T) {
	fake := ledgertest.New()
	at := time.Now()
	seed(fake, 1, at, types.StatusPending)
	seed(fake, 2, at, types.StatusShipped)
	seed(fake, 3, at, types.StatusPending)

	details, err := newRepo(fake).AllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, uint64(3), details[0].Order.ID)
	assert.Equal(t, uint64(2), details[1].Order.ID)
	assert.Equal(t, uint64(1), details[2].Order.ID)
}

func TestListingFailsWhenAnyFetchFails(t *testing.T) {
	fake := ledgertest.New()
	at := time.Now()
	seed(fake, 1, at, types.StatusPending)
	seed(fake, 2, at, types.StatusPending)
	fake.FailOn["getOrderItems"] = errors.New("rpc timeout")

	_, err := newRepo(fake).BuyerOrders(context.Background(), buyer)
	require.Error(t, err)
}

func TestOrderDetail(t *testing.T) {
	fake := ledgertest.New()
	seed(fake, 7, time.Now(), types.StatusProcessing)

	detail, err := newRepo(fake).OrderDetail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), detail.Order.ID)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, uint64(1), detail.Items[0].ProductID)
}

func TestFilterByStatus(t *testing.T) {
	details := []types.OrderDetail{
		{Order: types.Order{ID: 3, Status: types.StatusPending}},
		{Order: types.Order{ID: 2, Status: types.StatusShipped}},
		{Order: types.Order{ID: 1, Status: types.StatusPending}},
	}

	pending := FilterByStatus(details, types.StatusPending)
	require.Len(t, pending, 2)
	assert.Equal(t, uint64(3), pending[0].Order.ID)
	assert.Equal(t, uint64(1), pending[1].Order.ID)

	assert.Empty(t, FilterByStatus(details, types.StatusCancelled))
}
