package session

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainmarket/storefront/types"
)

var (
	ownerAddr = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	buyerAddr = common.HexToAddress("0x00000000000000000000000000000000000000B1")
)

func TestLifecycle(t *testing.T) {
	s := New()
	assert.False(t, s.Connected())
	assert.Equal(t, common.Address{}, s.Address())

	s.Connect(StaticWallet{Addr: buyerAddr, Chain: big.NewInt(1)}, ownerAddr)
	assert.True(t, s.Connected())
	assert.Equal(t, buyerAddr, s.Address())
	assert.Equal(t, ownerAddr, s.Owner())
	assert.False(t, s.IsOwner())

	s.Disconnect()
	assert.False(t, s.Connected())
	assert.Equal(t, common.Address{}, s.Owner())
}

func TestRequireOwner(t *testing.T) {
	s := New()

	err := s.RequireOwner()
	var se *types.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrCodeNotConnected, se.Code)

	s.Connect(StaticWallet{Addr: buyerAddr, Chain: big.NewInt(1)}, ownerAddr)
	err = s.RequireOwner()
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrCodeNotOwner, se.Code)

	s.Connect(StaticWallet{Addr: ownerAddr, Chain: big.NewInt(1)}, ownerAddr)
	assert.True(t, s.IsOwner())
	assert.NoError(t, s.RequireOwner())
}

func TestStaticWalletCannotSign(t *testing.T) {
	s := New()
	s.Connect(StaticWallet{Addr: buyerAddr, Chain: big.NewInt(1)}, ownerAddr)

	_, err := s.TransactOpts(context.Background())
	var se *types.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.KindProvider, se.Kind)
}

func TestKeyedWallet(t *testing.T) {
	// well-known anvil/hardhat dev key, not a live account
	w, err := NewKeyedWallet("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", big.NewInt(31337))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), w.Address())
	assert.Equal(t, int64(31337), w.ChainID().Int64())

	opts, err := w.TransactOpts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, w.Address(), opts.From)
}

func TestKeyedWalletRejectsBadKey(t *testing.T) {
	_, err := NewKeyedWallet("not-a-key", big.NewInt(1))
	require.Error(t, err)
}
