package payment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
	"github.com/mintworks/marketplace-engine/internal/payment"
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

func TestRail_Supported(t *testing.T) {
	rail := payment.NewMemoryRail("engine", []string{"usdx"})

	if !rail.Supported(model.NativeCurrency) {
		t.Error("native currency must always be supported")
	}
	if !rail.Supported("usdx") {
		t.Error("configured token must be supported")
	}
	if rail.Supported("dogecoin") {
		t.Error("unknown token must not be supported")
	}
}

func TestRail_NativeRoundTrip(t *testing.T) {
	rail := payment.NewMemoryRail("engine", nil)
	rail.Credit("alice", model.NativeCurrency, d(100))

	ctx := context.Background()
	if err := rail.NativeDeposit(ctx, "alice", d(60)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := rail.BalanceOf("engine", model.NativeCurrency); !got.Equal(d(60)) {
		t.Errorf("expected engine 60, got %s", got)
	}

	if err := rail.NativeTransfer(ctx, "bob", d(25)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := rail.BalanceOf("bob", model.NativeCurrency); !got.Equal(d(25)) {
		t.Errorf("expected bob 25, got %s", got)
	}

	// Overdrawing the engine account fails.
	if err := rail.NativeTransfer(ctx, "bob", d(100)); !errors.Is(err, payment.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestRail_RejectNative(t *testing.T) {
	rail := payment.NewMemoryRail("engine", nil)
	rail.Credit("engine", model.NativeCurrency, d(100))
	rail.RejectNative("grief")

	err := rail.NativeTransfer(context.Background(), "grief", d(10))
	if !errors.Is(err, payment.ErrTransferRejected) {
		t.Errorf("expected ErrTransferRejected, got %v", err)
	}
	if got := rail.BalanceOf("engine", model.NativeCurrency); !got.Equal(d(100)) {
		t.Errorf("rejected transfer must not move funds, got %s", got)
	}
}

func TestRail_TokenTransfers(t *testing.T) {
	rail := payment.NewMemoryRail("engine", []string{"usdx"})
	rail.Credit("alice", "usdx", d(100))

	ctx := context.Background()
	if err := rail.TokenTransferFrom(ctx, "usdx", "alice", d(40)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if err := rail.TokenTransfer(ctx, "usdx", "bob", d(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := rail.BalanceOf("bob", "usdx"); !got.Equal(d(40)) {
		t.Errorf("expected bob 40, got %s", got)
	}

	// The native sentinel never rides the token paths.
	if err := rail.TokenTransferFrom(ctx, model.NativeCurrency, "alice", d(1)); !errors.Is(err, payment.ErrUnsupportedCurrency) {
		t.Errorf("expected ErrUnsupportedCurrency, got %v", err)
	}
	if err := rail.TokenTransferFrom(ctx, "dogecoin", "alice", d(1)); !errors.Is(err, payment.ErrUnsupportedCurrency) {
		t.Errorf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestRail_InsufficientPayerBalance(t *testing.T) {
	rail := payment.NewMemoryRail("engine", []string{"usdx"})
	rail.Credit("alice", "usdx", d(10))

	err := rail.TokenTransferFrom(context.Background(), "usdx", "alice", d(50))
	if !errors.Is(err, payment.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := rail.BalanceOf("alice", "usdx"); !got.Equal(d(10)) {
		t.Errorf("failed pull must not move funds, got %s", got)
	}
}
