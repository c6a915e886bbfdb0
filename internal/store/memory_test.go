package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
	"github.com/mintworks/marketplace-engine/internal/store"
)

func newListing(seller, contract, tokenID string) *model.Listing {
	now := time.Now().UTC()
	return &model.Listing{
		Seller:    seller,
		Asset:     model.AssetRef{Contract: contract, TokenID: tokenID},
		Price:     decimal.NewFromInt(100),
		Currency:  model.NativeCurrency,
		Active:    true,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestMemoryStore_ListingIDsAreMonotonic(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		id, err := st.CreateListing(ctx, newListing("alice", "0xcats", string(rune('a'+i))))
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if id <= last {
			t.Fatalf("ids must increase: got %d after %d", id, last)
		}
		last = id
	}
}

func TestMemoryStore_AssetIndexEnforcesSingleActive(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	id1, err := st.CreateListing(ctx, newListing("alice", "0xcats", "1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same asset again is busy.
	if _, err := st.CreateListing(ctx, newListing("alice", "0xcats", "1")); !errors.Is(err, store.ErrAssetBusy) {
		t.Errorf("expected ErrAssetBusy, got %v", err)
	}

	// Deactivation frees the asset and keeps the old record readable.
	if err := st.DeactivateListing(ctx, id1); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := st.GetListing(ctx, id1)
	if err != nil {
		t.Fatalf("get after deactivate: %v", err)
	}
	if got.Active {
		t.Error("deactivated listing must not be active")
	}

	id2, err := st.CreateListing(ctx, newListing("alice", "0xcats", "1"))
	if err != nil {
		t.Fatalf("relist after deactivate: %v", err)
	}
	active, _ := st.ActiveListingID(ctx, model.AssetRef{Contract: "0xcats", TokenID: "1"})
	if active != id2 {
		t.Errorf("expected index at %d, got %d", id2, active)
	}
}

func TestMemoryStore_ListingsNewestFirst(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	for _, token := range []string{"1", "2", "3"} {
		if _, err := st.CreateListing(ctx, newListing("alice", "0xcats", token)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	listings, err := st.ListListings(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(listings))
	}
	for i := 1; i < len(listings); i++ {
		if listings[i].ID >= listings[i-1].ID {
			t.Errorf("expected descending ids, got %d then %d", listings[i-1].ID, listings[i].ID)
		}
	}
}

func TestMemoryStore_GetReturnsCopies(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	id, err := st.CreateListing(ctx, newListing("alice", "0xcats", "1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := st.GetListing(ctx, id)
	first.Active = false // mutating the returned value must not leak back

	second, _ := st.GetListing(ctx, id)
	if !second.Active {
		t.Error("store state must be isolated from returned copies")
	}
}

func TestMemoryStore_AuctionLifecycle(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	a := model.AssetRef{Contract: "0xcats", TokenID: "1"}

	now := time.Now().UTC()
	id, err := st.CreateAuction(ctx, &model.Auction{
		Seller:        "alice",
		Asset:         a,
		StartingPrice: decimal.NewFromInt(100),
		Currency:      model.NativeCurrency,
		StartsAt:      now,
		EndsAt:        now.Add(time.Hour),
		Active:        true,
	})
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	if err := st.UpdateAuctionBid(ctx, id, decimal.NewFromInt(150), "bob"); err != nil {
		t.Fatalf("update bid: %v", err)
	}
	got, _ := st.GetAuction(ctx, id)
	if got.CurrentBidder != "bob" || !got.CurrentBid.Equal(decimal.NewFromInt(150)) {
		t.Errorf("unexpected bid record: %s %s", got.CurrentBidder, got.CurrentBid)
	}

	if err := st.MarkAuctionSettled(ctx, id); err != nil {
		t.Fatalf("mark settled: %v", err)
	}
	got, _ = st.GetAuction(ctx, id)
	if got.Active || !got.Settled {
		t.Errorf("expected settled terminal state, got %+v", got)
	}
	if active, _ := st.ActiveAuctionID(ctx, a); active != 0 {
		t.Errorf("expected cleared index, got %d", active)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	if _, err := st.GetListing(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetAuction(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.DeactivateListing(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.MarkAuctionSettled(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListingAndAuctionIndexesAreIndependent(t *testing.T) {
	// A live listing does not block an auction at the store level; the
	// service layer decides cross-ledger policy.
	st := store.NewMemoryStore()
	ctx := context.Background()
	a := model.AssetRef{Contract: "0xcats", TokenID: "1"}

	if _, err := st.CreateListing(ctx, newListing("alice", "0xcats", "1")); err != nil {
		t.Fatalf("create listing: %v", err)
	}
	now := time.Now().UTC()
	if _, err := st.CreateAuction(ctx, &model.Auction{
		Seller: "alice", Asset: a,
		StartingPrice: decimal.NewFromInt(100),
		Currency:      model.NativeCurrency,
		StartsAt:      now, EndsAt: now.Add(time.Hour),
		Active: true,
	}); err != nil {
		t.Fatalf("create auction: %v", err)
	}
}
