// Package settle computes the fee/royalty/seller split for a trade and
// executes the atomic payout: asset transfer, seller payment, royalty
// payment, and collection volume bookkeeping. The marketplace fee is not
// transferred per trade; it accrues in the engine account and is read out
// by the admin surface.
//
// All monetary values use shopspring/decimal — never float64 for money.
package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/asset"
	"github.com/mintworks/marketplace-engine/internal/collection"
	"github.com/mintworks/marketplace-engine/internal/model"
	"github.com/mintworks/marketplace-engine/internal/payment"
)

var (
	// ErrInvalidFeeRate is returned when the engine is constructed with a
	// fee rate outside [0, denominator).
	ErrInvalidFeeRate = errors.New("settle: fee rate out of range")

	// ErrSplitUnderflow is returned when fee+royalty would not leave the
	// seller a positive amount. The configuration caps make this
	// unreachable for any trade amount >= 1; it is checked regardless.
	ErrSplitUnderflow = errors.New("settle: fee and royalty exceed trade amount")
)

// Split is the disbursement plan for one trade amount.
type Split struct {
	Fee     decimal.Decimal `json:"fee"`
	Royalty decimal.Decimal `json:"royalty"`
	Seller  decimal.Decimal `json:"seller"`
}

// Trade is the caller-supplied record a settlement executes. The trade
// amount is assumed to already sit in the engine account (pulled at buy
// time, or escrowed over the course of an auction).
type Trade struct {
	Asset    model.AssetRef
	Seller   string
	Buyer    string
	Amount   decimal.Decimal
	Currency string
}

// Engine executes settlements. It owns no ledger state of its own beyond
// the accrued-fee totals per currency.
type Engine struct {
	registry  asset.Registry
	rail      payment.Rail
	directory collection.Directory
	feeBps    decimal.Decimal

	mu   sync.Mutex
	fees map[string]decimal.Decimal // currency → accrued fees
}

// NewEngine creates a settlement engine with the given fee rate in basis
// points. The rate is validated here so Split never has to re-check it.
func NewEngine(registry asset.Registry, rail payment.Rail, directory collection.Directory, feeBps int64) (*Engine, error) {
	if feeBps < 0 || feeBps >= model.BpsDenominator {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFeeRate, feeBps)
	}
	return &Engine{
		registry:  registry,
		rail:      rail,
		directory: directory,
		feeBps:    decimal.NewFromInt(feeBps),
		fees:      make(map[string]decimal.Decimal),
	}, nil
}

var bpsDenom = decimal.NewFromInt(model.BpsDenominator)

// Split computes the disbursement plan: fee and royalty are floored
// integer fractions of the trade amount, the seller takes the remainder.
func (e *Engine) Split(amount decimal.Decimal, royalty model.Royalty) (Split, error) {
	fee := amount.Mul(e.feeBps).Div(bpsDenom).Floor()

	roy := decimal.Zero
	if royalty.Present() {
		roy = amount.Mul(decimal.NewFromInt(royalty.Bps)).Div(bpsDenom).Floor()
	}

	seller := amount.Sub(fee).Sub(roy)
	if seller.LessThanOrEqual(decimal.Zero) {
		return Split{}, ErrSplitUnderflow
	}
	return Split{Fee: fee, Royalty: roy, Seller: seller}, nil
}

// Execute settles a trade: (1) asset moves seller→buyer, (2) seller is
// paid their net amount, (3) the royalty recipient is paid, (4) traded
// volume is recorded. Any failure unwinds the steps already taken so the
// caller observes all-or-nothing behavior.
func (e *Engine) Execute(ctx context.Context, t Trade) (Split, error) {
	royalty, _, err := e.directory.RoyaltyOf(ctx, t.Asset.Contract)
	if err != nil {
		return Split{}, fmt.Errorf("royalty lookup: %w", err)
	}

	split, err := e.Split(t.Amount, royalty)
	if err != nil {
		return Split{}, err
	}

	if err := e.registry.Transfer(ctx, t.Seller, t.Buyer, t.Asset); err != nil {
		return Split{}, fmt.Errorf("asset transfer: %w", err)
	}

	if err := e.pay(ctx, t.Currency, t.Seller, split.Seller); err != nil {
		e.unwindAsset(ctx, t)
		return Split{}, fmt.Errorf("seller payment: %w", err)
	}

	if split.Royalty.IsPositive() {
		if err := e.pay(ctx, t.Currency, royalty.Recipient, split.Royalty); err != nil {
			e.pullBack(ctx, t.Currency, t.Seller, split.Seller)
			e.unwindAsset(ctx, t)
			return Split{}, fmt.Errorf("royalty payment: %w", err)
		}
	}

	if err := e.directory.RecordVolume(ctx, t.Asset.Contract, t.Amount); err != nil {
		if split.Royalty.IsPositive() {
			e.pullBack(ctx, t.Currency, royalty.Recipient, split.Royalty)
		}
		e.pullBack(ctx, t.Currency, t.Seller, split.Seller)
		e.unwindAsset(ctx, t)
		return Split{}, fmt.Errorf("record volume: %w", err)
	}

	// Fee stays in the engine account; only the running total moves.
	e.mu.Lock()
	e.fees[t.Currency] = e.fees[t.Currency].Add(split.Fee)
	e.mu.Unlock()

	return split, nil
}

// AccruedFees returns a snapshot of undistributed fees per currency.
func (e *Engine) AccruedFees() map[string]decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(e.fees))
	for c, v := range e.fees {
		out[c] = v
	}
	return out
}

// pay routes a payout from the engine account over the right rail.
func (e *Engine) pay(ctx context.Context, currency, to string, amount decimal.Decimal) error {
	if currency == model.NativeCurrency {
		return e.rail.NativeTransfer(ctx, to, amount)
	}
	return e.rail.TokenTransfer(ctx, currency, to, amount)
}

// pullBack reverses a payout during unwinding. Best effort: a failure here
// is logged, not returned, since the operation is already aborting.
func (e *Engine) pullBack(ctx context.Context, currency, from string, amount decimal.Decimal) {
	var err error
	if currency == model.NativeCurrency {
		err = e.rail.NativeDeposit(ctx, from, amount)
	} else {
		err = e.rail.TokenTransferFrom(ctx, currency, from, amount)
	}
	if err != nil {
		slog.Error("settlement unwind: payout claw-back failed",
			"from", from, "amount", amount.String(), "err", err)
	}
}

func (e *Engine) unwindAsset(ctx context.Context, t Trade) {
	if err := e.registry.Transfer(ctx, t.Buyer, t.Seller, t.Asset); err != nil {
		slog.Error("settlement unwind: asset return failed",
			"contract", t.Asset.Contract, "token_id", t.Asset.TokenID, "err", err)
	}
}
