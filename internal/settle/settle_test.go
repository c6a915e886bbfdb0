package settle_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/asset"
	"github.com/mintworks/marketplace-engine/internal/collection"
	"github.com/mintworks/marketplace-engine/internal/model"
	"github.com/mintworks/marketplace-engine/internal/payment"
	"github.com/mintworks/marketplace-engine/internal/settle"
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

const engineAccount = "marketplace"

func newEngine(t *testing.T, feeBps int64) (*settle.Engine, *asset.MemoryRegistry, *payment.MemoryRail, *collection.MemoryDirectory) {
	t.Helper()
	reg := asset.NewMemoryRegistry()
	rail := payment.NewMemoryRail(engineAccount, []string{"usdx"})
	dir := collection.NewMemoryDirectory(1000)

	eng, err := settle.NewEngine(reg, rail, dir, feeBps)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return eng, reg, rail, dir
}

func TestNewEngine_RejectsBadFeeRate(t *testing.T) {
	reg := asset.NewMemoryRegistry()
	rail := payment.NewMemoryRail(engineAccount, nil)
	dir := collection.NewMemoryDirectory(1000)

	for _, bps := range []int64{-1, 10000, 20000} {
		if _, err := settle.NewEngine(reg, rail, dir, bps); err == nil {
			t.Errorf("expected error for fee rate %d bps", bps)
		}
	}
}

func TestSplit_Conservation(t *testing.T) {
	eng, _, _, _ := newEngine(t, 250)
	royalty := model.Royalty{Recipient: "creator", Bps: 500}

	// Every unit of the trade amount must land with exactly one party.
	for amount := int64(1); amount <= 5000; amount++ {
		split, err := eng.Split(d(amount), royalty)
		if err != nil {
			t.Fatalf("split failed for amount %d: %v", amount, err)
		}
		total := split.Fee.Add(split.Royalty).Add(split.Seller)
		if !total.Equal(d(amount)) {
			t.Fatalf("amount %d: fee %s + royalty %s + seller %s = %s",
				amount, split.Fee, split.Royalty, split.Seller, total)
		}
		if split.Seller.LessThanOrEqual(decimal.Zero) {
			t.Fatalf("amount %d: seller amount not positive: %s", amount, split.Seller)
		}
	}
}

func TestSplit_ReferenceScenario(t *testing.T) {
	// Price 1000, fee 2.5% (250 bps), royalty 5% (500 bps):
	// seller 925, royalty 50, fee 25.
	eng, _, _, _ := newEngine(t, 250)

	split, err := eng.Split(d(1000), model.Royalty{Recipient: "creator", Bps: 500})
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if !split.Fee.Equal(d(25)) {
		t.Errorf("expected fee=25, got %s", split.Fee)
	}
	if !split.Royalty.Equal(d(50)) {
		t.Errorf("expected royalty=50, got %s", split.Royalty)
	}
	if !split.Seller.Equal(d(925)) {
		t.Errorf("expected seller=925, got %s", split.Seller)
	}
}

func TestSplit_NoRoyalty(t *testing.T) {
	eng, _, _, _ := newEngine(t, 250)

	split, err := eng.Split(d(1000), model.Royalty{})
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if !split.Royalty.IsZero() {
		t.Errorf("expected zero royalty, got %s", split.Royalty)
	}
	if !split.Seller.Equal(d(975)) {
		t.Errorf("expected seller=975, got %s", split.Seller)
	}
}

func TestSplit_Underflow(t *testing.T) {
	// A royalty schedule that eats the whole amount must be rejected even
	// though configuration caps make it unreachable in practice.
	eng, _, _, _ := newEngine(t, 250)

	// amount 1000: fee 25, royalty 990, seller would be -15.
	_, err := eng.Split(d(1000), model.Royalty{Recipient: "creator", Bps: 9900})
	if err == nil {
		t.Fatal("expected underflow error")
	}
}

func TestExecute_DistributesFunds(t *testing.T) {
	eng, reg, rail, dir := newEngine(t, 250)

	a := model.AssetRef{Contract: "0xcats", TokenID: "7"}
	reg.Mint(a, "seller")
	dir.Register("0xcats", "creator")
	if err := dir.SetRoyalty("0xcats", "creator", 500); err != nil {
		t.Fatalf("set royalty: %v", err)
	}

	// Trade amount already sits in the engine account.
	rail.Credit(engineAccount, model.NativeCurrency, d(1000))

	split, err := eng.Execute(context.Background(), settle.Trade{
		Asset:    a,
		Seller:   "seller",
		Buyer:    "buyer",
		Amount:   d(1000),
		Currency: model.NativeCurrency,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	owner, _ := reg.OwnerOf(context.Background(), a)
	if owner != "buyer" {
		t.Errorf("expected buyer to own asset, got %s", owner)
	}
	if got := rail.BalanceOf("seller", model.NativeCurrency); !got.Equal(d(925)) {
		t.Errorf("expected seller balance 925, got %s", got)
	}
	if got := rail.BalanceOf("creator", model.NativeCurrency); !got.Equal(d(50)) {
		t.Errorf("expected creator balance 50, got %s", got)
	}
	// Fee stays put in the engine account.
	if got := rail.BalanceOf(engineAccount, model.NativeCurrency); !got.Equal(d(25)) {
		t.Errorf("expected engine balance 25, got %s", got)
	}
	if !split.Fee.Equal(d(25)) {
		t.Errorf("expected fee=25, got %s", split.Fee)
	}

	fees := eng.AccruedFees()
	if !fees[model.NativeCurrency].Equal(d(25)) {
		t.Errorf("expected accrued fee 25, got %s", fees[model.NativeCurrency])
	}

	col, _ := dir.Get("0xcats")
	if !col.Volume.Equal(d(1000)) {
		t.Errorf("expected volume 1000, got %s", col.Volume)
	}
}

func TestExecute_AssetTransferFailureLeavesFundsIntact(t *testing.T) {
	eng, reg, rail, _ := newEngine(t, 250)

	a := model.AssetRef{Contract: "0xcats", TokenID: "7"}
	reg.Mint(a, "someone-else") // seller no longer owns the asset

	rail.Credit(engineAccount, model.NativeCurrency, d(1000))

	_, err := eng.Execute(context.Background(), settle.Trade{
		Asset:    a,
		Seller:   "seller",
		Buyer:    "buyer",
		Amount:   d(1000),
		Currency: model.NativeCurrency,
	})
	if err == nil {
		t.Fatal("expected asset transfer failure")
	}

	if got := rail.BalanceOf(engineAccount, model.NativeCurrency); !got.Equal(d(1000)) {
		t.Errorf("engine account should be untouched, got %s", got)
	}
	if got := rail.BalanceOf("seller", model.NativeCurrency); !got.IsZero() {
		t.Errorf("seller should not be paid, got %s", got)
	}
}

func TestExecute_SellerPaymentFailureReturnsAsset(t *testing.T) {
	eng, reg, rail, dir := newEngine(t, 250)

	a := model.AssetRef{Contract: "0xcats", TokenID: "7"}
	reg.Mint(a, "seller")
	dir.Register("0xcats", "creator")

	rail.Credit(engineAccount, model.NativeCurrency, d(1000))
	rail.RejectNative("seller")

	_, err := eng.Execute(context.Background(), settle.Trade{
		Asset:    a,
		Seller:   "seller",
		Buyer:    "buyer",
		Amount:   d(1000),
		Currency: model.NativeCurrency,
	})
	if err == nil {
		t.Fatal("expected seller payment failure")
	}

	owner, _ := reg.OwnerOf(context.Background(), a)
	if owner != "seller" {
		t.Errorf("asset should be returned to seller, got %s", owner)
	}
	if got := rail.BalanceOf(engineAccount, model.NativeCurrency); !got.Equal(d(1000)) {
		t.Errorf("engine account should hold the full amount, got %s", got)
	}
	if fees := eng.AccruedFees(); !fees[model.NativeCurrency].IsZero() {
		t.Errorf("no fee should accrue on failure, got %s", fees[model.NativeCurrency])
	}
}

func TestExecute_TokenCurrency(t *testing.T) {
	eng, reg, rail, dir := newEngine(t, 250)

	a := model.AssetRef{Contract: "0xcats", TokenID: "9"}
	reg.Mint(a, "seller")
	dir.Register("0xcats", "creator")

	rail.Credit(engineAccount, "usdx", d(400))

	split, err := eng.Execute(context.Background(), settle.Trade{
		Asset:    a,
		Seller:   "seller",
		Buyer:    "buyer",
		Amount:   d(400),
		Currency: "usdx",
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !split.Fee.Equal(d(10)) {
		t.Errorf("expected fee=10, got %s", split.Fee)
	}
	if got := rail.BalanceOf("seller", "usdx"); !got.Equal(d(390)) {
		t.Errorf("expected seller balance 390, got %s", got)
	}
}
