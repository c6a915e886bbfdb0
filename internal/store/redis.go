package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for single-record lookups. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary. Index lookups and list queries always hit the primary — they
// gate invariants and must never serve stale data.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Listings ---

func (s *CachedStore) CreateListing(ctx context.Context, l *model.Listing) (uint64, error) {
	id, err := s.primary.CreateListing(ctx, l)
	if err != nil {
		return 0, err
	}
	s.rdb.Del(ctx, listingKey(id))
	return id, nil
}

func (s *CachedStore) GetListing(ctx context.Context, id uint64) (*model.Listing, error) {
	data, err := s.rdb.Get(ctx, listingKey(id)).Bytes()
	if err == nil {
		var l model.Listing
		if json.Unmarshal(data, &l) == nil {
			return &l, nil
		}
	}

	l, err := s.primary.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(l); err == nil {
		s.rdb.Set(ctx, listingKey(id), data, s.ttl)
	}
	return l, nil
}

func (s *CachedStore) DeactivateListing(ctx context.Context, id uint64) error {
	if err := s.primary.DeactivateListing(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, listingKey(id))
	return nil
}

func (s *CachedStore) ListListings(ctx context.Context) ([]model.Listing, error) {
	return s.primary.ListListings(ctx)
}

func (s *CachedStore) ActiveListingID(ctx context.Context, asset model.AssetRef) (uint64, error) {
	return s.primary.ActiveListingID(ctx, asset)
}

// --- Auctions ---

func (s *CachedStore) CreateAuction(ctx context.Context, a *model.Auction) (uint64, error) {
	id, err := s.primary.CreateAuction(ctx, a)
	if err != nil {
		return 0, err
	}
	s.rdb.Del(ctx, auctionKey(id))
	return id, nil
}

func (s *CachedStore) GetAuction(ctx context.Context, id uint64) (*model.Auction, error) {
	data, err := s.rdb.Get(ctx, auctionKey(id)).Bytes()
	if err == nil {
		var a model.Auction
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	a, err := s.primary.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, auctionKey(id), data, s.ttl)
	}
	return a, nil
}

func (s *CachedStore) UpdateAuctionBid(ctx context.Context, id uint64, bid decimal.Decimal, bidder string) error {
	if err := s.primary.UpdateAuctionBid(ctx, id, bid, bidder); err != nil {
		return err
	}
	s.rdb.Del(ctx, auctionKey(id))
	return nil
}

func (s *CachedStore) MarkAuctionSettled(ctx context.Context, id uint64) error {
	if err := s.primary.MarkAuctionSettled(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, auctionKey(id))
	return nil
}

func (s *CachedStore) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	return s.primary.ListAuctions(ctx)
}

func (s *CachedStore) ActiveAuctionID(ctx context.Context, asset model.AssetRef) (uint64, error) {
	return s.primary.ActiveAuctionID(ctx, asset)
}

func listingKey(id uint64) string { return fmt.Sprintf("listing:%d", id) }
func auctionKey(id uint64) string { return fmt.Sprintf("auction:%d", id) }
