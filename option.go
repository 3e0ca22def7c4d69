package storefront

import (
	"time"

	"github.com/chainmarket/storefront/admin"
	"github.com/chainmarket/storefront/ledger"
	"github.com/chainmarket/storefront/logger"
	"github.com/chainmarket/storefront/metrics"
)

type Option func(*Storefront)

func WithLogger(l logger.Logger) Option {
	return func(s *Storefront) {
		s.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Storefront) {
		s.rec = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(s *Storefront) {
		s.timeout = t
	}
}

// WithLedger injects a ledger and token source instead of dialing the
// configured RPC endpoint. Used by tests and custom transports.
func WithLedger(l ledger.Ledger, tokens ledger.TokenSource) Option {
	return func(s *Storefront) {
		s.ledger = l
		s.tokens = tokens
	}
}

// WithConfirmer supplies the prompt used by destructive-adjacent admin
// actions (payment-token change, ownership transfer). Without one, those
// actions are always refused.
func WithConfirmer(c admin.Confirmer) Option {
	return func(s *Storefront) {
		s.confirm = c
	}
}
