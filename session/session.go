// Package session models the wallet/session collaborator as an explicit
// object with a connect/disconnect lifecycle, replacing any ambient global
// signer. Components receive the session by injection and guard owner-only
// and buyer-only operations through it before any network call.
package session

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainmarket/storefront/types"
)

// Wallet is the external signing identity: it knows its address and network
// and produces transact options for ledger writes.
type Wallet interface {
	Address() common.Address
	ChainID() *big.Int
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Session is the single logical session per client. The recorded contract
// owner is captured at connect time so owner checks need no further reads.
type Session struct {
	mu     sync.RWMutex
	wallet Wallet
	owner  common.Address
}

func New() *Session {
	return &Session{}
}

// Connect binds a wallet and the ledger's recorded owner to the session.
func (s *Session) Connect(w Wallet, owner common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = w
	s.owner = owner
}

// Disconnect drops the wallet. Also used after ownership transfer, when the
// whole authorization context is invalid.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = nil
	s.owner = common.Address{}
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet != nil
}

// Address returns the connected address, or the zero address when
// disconnected.
func (s *Session) Address() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return common.Address{}
	}
	return s.wallet.Address()
}

// Owner returns the contract owner recorded at connect time.
func (s *Session) Owner() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// IsOwner reports whether the connected address is the recorded owner.
func (s *Session) IsOwner() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet != nil && s.wallet.Address() == s.owner
}

// RequireConnected rejects when no session is connected.
func (s *Session) RequireConnected() error {
	if !s.Connected() {
		return types.AuthorizationError(types.ErrCodeNotConnected,
			"no wallet session connected")
	}
	return nil
}

// RequireOwner rejects when disconnected or not the recorded owner. The
// ledger enforces this too; the client check keeps invalid writes off the
// wire.
func (s *Session) RequireOwner() error {
	if err := s.RequireConnected(); err != nil {
		return err
	}
	if !s.IsOwner() {
		return types.AuthorizationError(types.ErrCodeNotOwner,
			"connected address is not the contract owner")
	}
	return nil
}

// TransactOpts produces signing options for a ledger write.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.RLock()
	w := s.wallet
	s.mu.RUnlock()
	if w == nil {
		return nil, types.AuthorizationError(types.ErrCodeNotConnected,
			"no wallet session connected")
	}
	return w.TransactOpts(ctx)
}
