package admin

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainmarket/storefront/events"
	"github.com/chainmarket/storefront/ledger/ledgertest"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/metrics"
	"github.com/chainmarket/storefront/session"
	"github.com/chainmarket/storefront/types"
)

var (
	ownerAddr = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	buyerAddr = common.HexToAddress("0x00000000000000000000000000000000000000B1")
	tokenAddr = "0x00000000000000000000000000000000000000E9"
)

func confirmAll(string) bool  { return true }
func confirmNone(string) bool { return false }

func newPanel(fake *ledgertest.Fake, as common.Address, confirm Confirmer) (*Panel, *session.Session, *events.Bus) {
	sess := session.New()
	sess.Connect(session.StaticWallet{Addr: as, Chain: big.NewInt(1)}, ownerAddr)
	bus := events.NewBus()
	p := New(fake, sess, bus, logger.NoopLogger{}, metrics.NoopRecorder{}, confirm, time.Second)
	return p, sess, bus
}

func TestReload(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	fake.PausedFlag = true
	fake.Revenue = big.NewInt(75_000_000)
	fake.AddProductRecord(types.Product{ID: 1, Name: "Shirt", Price: big.NewInt(1)})

	p, _, bus := newPanel(fake, ownerAddr, confirmAll)

	notified := false
	bus.Subscribe(events.TopicState, func(events.Topic) { notified = true })

	state, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, state.Owner)
	assert.True(t, state.Paused)
	assert.Equal(t, uint64(1), state.ProductCount)
	assert.Equal(t, int64(75_000_000), state.WithdrawableRevenue.Int64())
	assert.True(t, notified)
	assert.Equal(t, state, p.State())
}

func TestWithdraw(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	fake.Revenue = big.NewInt(100_000_000)
	p, _, _ := newPanel(fake, ownerAddr, confirmAll)

	require.NoError(t, p.Withdraw(context.Background(), big.NewInt(40_000_000)))

	assert.Equal(t, 1, fake.CallCount("withdrawRevenue"))
	// write triggers a reload, so the cached snapshot reflects the new revenue
	assert.Equal(t, int64(60_000_000), p.State().WithdrawableRevenue.Int64())
}

func TestWithdrawRejectsNonPositiveAmount(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, _, _ := newPanel(fake, ownerAddr, confirmAll)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		err := p.Withdraw(context.Background(), amount)
		var se *types.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, types.ErrCodeInvalidAmount, se.Code)
	}
	assert.Empty(t, fake.Calls)
}

func TestWithdrawAboveCachedRevenueStillSubmits(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	fake.Revenue = big.NewInt(10)
	p, _, _ := newPanel(fake, ownerAddr, confirmAll)
	_, err := p.Reload(context.Background())
	require.NoError(t, err)

	// the ledger is authoritative; the client only warns
	require.NoError(t, p.Withdraw(context.Background(), big.NewInt(100)))
	assert.Equal(t, 1, fake.CallCount("withdrawRevenue"))
}

func TestOwnerOnlyOperationsRejectNonOwner(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, _, _ := newPanel(fake, buyerAddr, confirmAll)

	ops := map[string]func() error{
		"withdraw":     func() error { return p.Withdraw(context.Background(), big.NewInt(1)) },
		"set_token":    func() error { return p.SetPaymentToken(context.Background(), tokenAddr) },
		"toggle_pause": func() error { return p.TogglePause(context.Background()) },
		"transfer":     func() error { return p.TransferOwnership(context.Background(), tokenAddr) },
		"add_product":  func() error { return p.AddProduct(context.Background(), "x", "", big.NewInt(1)) },
		"edit_product": func() error { return p.EditProduct(context.Background(), 1, "x", "", big.NewInt(1)) },
	}
	for name, op := range ops {
		err := op()
		var se *types.Error
		require.ErrorAs(t, err, &se, name)
		assert.Equal(t, types.ErrCodeNotOwner, se.Code, name)
	}
	assert.Empty(t, fake.Calls)
}

func TestSetPaymentToken(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, _, _ := newPanel(fake, ownerAddr, confirmAll)

	require.NoError(t, p.SetPaymentToken(context.Background(), tokenAddr))
	assert.Equal(t, common.HexToAddress(tokenAddr), fake.TokenAddr)
}

func TestSetPaymentTokenRejectsBadAddress(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, _, _ := newPanel(fake, ownerAddr, confirmAll)

	err := p.SetPaymentToken(context.Background(), "not-an-address")
	var se *types.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrCodeInvalidAddress, se.Code)
	assert.Empty(t, fake.Calls)
}

func TestSetPaymentTokenRequiresConfirmation(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, _, _ := newPanel(fake, ownerAddr, confirmNone)

	err := p.SetPaymentToken(context.Background(), tokenAddr)
	var se *types.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrCodeNotConfirmed, se.Code)
	assert.Empty(t, fake.Calls, "declined confirmation never reaches the ledger")
}

func TestTogglePause(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, _, _ := newPanel(fake, ownerAddr, confirmAll)

	assert.Equal(t, "Pause", p.PauseLabel())
	require.NoError(t, p.TogglePause(context.Background()))
	assert.True(t, fake.PausedFlag)
	assert.Equal(t, "Unpause", p.PauseLabel())

	require.NoError(t, p.TogglePause(context.Background()))
	assert.False(t, fake.PausedFlag)
	assert.Equal(t, "Pause", p.PauseLabel())
}

func TestTransferOwnershipDisconnectsSession(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	newOwner := "0x00000000000000000000000000000000000000A2"
	p, sess, bus := newPanel(fake, ownerAddr, confirmAll)

	notified := false
	bus.Subscribe(events.TopicOwnership, func(events.Topic) { notified = true })

	require.NoError(t, p.TransferOwnership(context.Background(), newOwner))
	assert.Equal(t, common.HexToAddress(newOwner), fake.OwnerAddr)
	assert.False(t, sess.Connected())
	assert.True(t, notified)
}

func TestTransferOwnershipRequiresConfirmation(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, sess, _ := newPanel(fake, ownerAddr, confirmNone)

	err := p.TransferOwnership(context.Background(), "0x00000000000000000000000000000000000000A2")
	var se *types.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrCodeNotConfirmed, se.Code)
	assert.True(t, sess.Connected())
	assert.Empty(t, fake.Calls)
}

func TestAddProduct(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, _, bus := newPanel(fake, ownerAddr, confirmAll)

	notified := false
	bus.Subscribe(events.TopicCatalog, func(events.Topic) { notified = true })

	require.NoError(t, p.AddProduct(context.Background(), "Shirt", "cotton", big.NewInt(10_000_000)))
	assert.True(t, notified)

	got, err := fake.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Shirt", got.Name)
}

func TestAddProductValidation(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	p, _, _ := newPanel(fake, ownerAddr, confirmAll)

	err := p.AddProduct(context.Background(), "", "", big.NewInt(1))
	var se *types.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrCodeInvalidProduct, se.Code)

	err = p.AddProduct(context.Background(), "Shirt", "", big.NewInt(0))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrCodeInvalidAmount, se.Code)

	assert.Empty(t, fake.Calls)
}

func TestEditProduct(t *testing.T) {
	fake := ledgertest.New()
	fake.OwnerAddr = ownerAddr
	fake.AddProductRecord(types.Product{ID: 1, Name: "Shirt", Price: big.NewInt(1)})
	p, _, _ := newPanel(fake, ownerAddr, confirmAll)

	require.NoError(t, p.EditProduct(context.Background(), 1, "Shirt v2", "", big.NewInt(12_000_000)))

	got, err := fake.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Shirt v2", got.Name)
	assert.Equal(t, int64(12_000_000), got.Price.Int64())
}
