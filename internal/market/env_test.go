package market_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/asset"
	"github.com/mintworks/marketplace-engine/internal/collection"
	"github.com/mintworks/marketplace-engine/internal/market"
	"github.com/mintworks/marketplace-engine/internal/model"
	"github.com/mintworks/marketplace-engine/internal/payment"
	"github.com/mintworks/marketplace-engine/internal/settle"
	"github.com/mintworks/marketplace-engine/internal/store"
)

const (
	engineAccount = "marketplace"
	tokenCurrency = "usdx"
	feeBps        = 250
	royaltyCap    = 1000
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

// testEnv wires a Service against in-memory collaborators.
type testEnv struct {
	svc     *market.Service
	st      *store.MemoryStore
	reg     *asset.MemoryRegistry
	rail    *payment.MemoryRail
	dir     *collection.MemoryDirectory
	settler *settle.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := asset.NewMemoryRegistry()
	rail := payment.NewMemoryRail(engineAccount, []string{tokenCurrency})
	dir := collection.NewMemoryDirectory(royaltyCap)

	settler, err := settle.NewEngine(reg, rail, dir, feeBps)
	if err != nil {
		t.Fatalf("failed to create settlement engine: %v", err)
	}

	st := store.NewMemoryStore()
	svc := market.NewService(st, reg, rail, dir, settler, nil)

	return &testEnv{svc: svc, st: st, reg: reg, rail: rail, dir: dir, settler: settler}
}

// seedAsset mints an asset, registers its collection, and grants the
// operator approval — the happy-path starting point for a sale.
func (e *testEnv) seedAsset(t *testing.T, contract, tokenID, owner string) model.AssetRef {
	t.Helper()
	a := model.AssetRef{Contract: contract, TokenID: tokenID}
	e.reg.Mint(a, owner)
	e.reg.SetApprovalForAll(owner, contract, true)
	if _, ok := e.dir.Get(contract); !ok {
		e.dir.Register(contract, "creator")
	}
	return a
}

// seedExpiredListing writes an already-expired but still-active listing
// directly to the store, bypassing creation-time validation.
func (e *testEnv) seedExpiredListing(t *testing.T, seller string, a model.AssetRef, price decimal.Decimal) uint64 {
	t.Helper()
	now := time.Now().UTC()
	id, err := e.st.CreateListing(context.Background(), &model.Listing{
		Seller:    seller,
		Asset:     a,
		Price:     price,
		Currency:  model.NativeCurrency,
		Active:    true,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to seed expired listing: %v", err)
	}
	return id
}

// seedEndedAuction writes an ended, unsettled auction directly to the
// store. If a bidder is given, the matching escrow is credited to the
// engine account so settlement finds the funds it expects.
func (e *testEnv) seedEndedAuction(t *testing.T, seller string, a model.AssetRef,
	currency string, bid decimal.Decimal, bidder string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	auc := &model.Auction{
		Seller:        seller,
		Asset:         a,
		StartingPrice: d(100),
		CurrentBid:    decimal.Zero,
		Currency:      currency,
		StartsAt:      now.Add(-2 * time.Hour),
		EndsAt:        now.Add(-time.Minute),
		Active:        true,
	}
	if bidder != "" {
		auc.CurrentBid = bid
		auc.CurrentBidder = bidder
		e.rail.Credit(engineAccount, currency, bid)
	}
	id, err := e.st.CreateAuction(context.Background(), auc)
	if err != nil {
		t.Fatalf("failed to seed ended auction: %v", err)
	}
	return id
}
