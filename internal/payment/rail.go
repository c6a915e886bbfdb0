// Package payment abstracts fund movement: the native coin and any number
// of fungible token currencies behind one Rail interface. The engine holds
// escrowed bids and accrued fees in its own account on the rail.
package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
)

var (
	// ErrUnsupportedCurrency is returned for a currency the rail does not carry.
	ErrUnsupportedCurrency = errors.New("payment: unsupported currency")

	// ErrInsufficientFunds is returned when the payer's balance cannot
	// cover the transfer.
	ErrInsufficientFunds = errors.New("payment: insufficient funds")

	// ErrTransferRejected is returned when the recipient refuses funds.
	// Native transfers can be rejected by the receiving principal; the
	// whole enclosing operation must abort when this happens.
	ErrTransferRejected = errors.New("payment: transfer rejected by recipient")
)

// Rail moves funds between principals. The engine account (escrow + fees)
// is fixed at construction; Native/Token Transfer pay out of it, Deposit
// and TransferFrom pull into it.
type Rail interface {
	// Supported reports whether the currency identifier is recognized.
	// The native sentinel is always supported.
	Supported(currency string) bool

	// NativeDeposit moves attached native funds from a principal into the
	// engine account. Models value attached to a call.
	NativeDeposit(ctx context.Context, from string, amount decimal.Decimal) error

	// NativeTransfer pays native funds out of the engine account.
	NativeTransfer(ctx context.Context, to string, amount decimal.Decimal) error

	// TokenTransferFrom pulls exactly amount of a fungible currency from a
	// principal into the engine account.
	TokenTransferFrom(ctx context.Context, currency, from string, amount decimal.Decimal) error

	// TokenTransfer pays a fungible currency out of the engine account.
	TokenTransfer(ctx context.Context, currency, to string, amount decimal.Decimal) error
}

// MemoryRail implements Rail with in-memory balances. Used for testing and
// development. Principals can be marked as rejecting native funds to
// exercise refund-failure paths.
type MemoryRail struct {
	engine     string
	currencies map[string]bool

	mu           sync.Mutex
	balances     map[string]map[string]decimal.Decimal // principal → currency → balance
	rejectNative map[string]bool
}

// NewMemoryRail creates a rail holding the engine account and the given
// fungible currencies.
func NewMemoryRail(engineAccount string, currencies []string) *MemoryRail {
	supported := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		supported[c] = true
	}
	return &MemoryRail{
		engine:       engineAccount,
		currencies:   supported,
		balances:     make(map[string]map[string]decimal.Decimal),
		rejectNative: make(map[string]bool),
	}
}

// Credit adds funds to a principal's balance. Test/seed helper.
func (r *MemoryRail) Credit(principal, currency string, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credit(principal, currency, amount)
}

// BalanceOf returns a principal's balance in a currency.
func (r *MemoryRail) BalanceOf(principal, currency string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[principal][currency]
}

// RejectNative marks a principal as refusing incoming native transfers.
func (r *MemoryRail) RejectNative(principal string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejectNative[principal] = true
}

func (r *MemoryRail) Supported(currency string) bool {
	if currency == model.NativeCurrency {
		return true
	}
	return r.currencies[currency]
}

func (r *MemoryRail) NativeDeposit(_ context.Context, from string, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.move(model.NativeCurrency, from, r.engine, amount)
}

func (r *MemoryRail) NativeTransfer(_ context.Context, to string, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rejectNative[to] {
		return ErrTransferRejected
	}
	return r.move(model.NativeCurrency, r.engine, to, amount)
}

func (r *MemoryRail) TokenTransferFrom(_ context.Context, currency, from string, amount decimal.Decimal) error {
	if !r.Supported(currency) || currency == model.NativeCurrency {
		return ErrUnsupportedCurrency
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.move(currency, from, r.engine, amount)
}

func (r *MemoryRail) TokenTransfer(_ context.Context, currency, to string, amount decimal.Decimal) error {
	if !r.Supported(currency) || currency == model.NativeCurrency {
		return ErrUnsupportedCurrency
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.move(currency, r.engine, to, amount)
}

// move debits and credits under the held lock.
func (r *MemoryRail) move(currency, from, to string, amount decimal.Decimal) error {
	if r.balances[from][currency].LessThan(amount) {
		return ErrInsufficientFunds
	}
	r.balances[from][currency] = r.balances[from][currency].Sub(amount)
	r.credit(to, currency, amount)
	return nil
}

func (r *MemoryRail) credit(principal, currency string, amount decimal.Decimal) {
	if r.balances[principal] == nil {
		r.balances[principal] = make(map[string]decimal.Decimal)
	}
	r.balances[principal][currency] = r.balances[principal][currency].Add(amount)
}
