package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu            sync.RWMutex
	listings      map[uint64]*model.Listing
	auctions      map[uint64]*model.Auction
	listingIndex  map[model.AssetRef]uint64 // asset → active listing id
	auctionIndex  map[model.AssetRef]uint64 // asset → active auction id
	nextListingID uint64
	nextAuctionID uint64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings:     make(map[uint64]*model.Listing),
		auctions:     make(map[uint64]*model.Auction),
		listingIndex: make(map[model.AssetRef]uint64),
		auctionIndex: make(map[model.AssetRef]uint64),
	}
}

func (s *MemoryStore) CreateListing(_ context.Context, l *model.Listing) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listingIndex[l.Asset] != 0 {
		return 0, ErrAssetBusy
	}

	s.nextListingID++
	copy := *l
	copy.ID = s.nextListingID
	s.listings[copy.ID] = &copy
	s.listingIndex[copy.Asset] = copy.ID
	return copy.ID, nil
}

func (s *MemoryStore) GetListing(_ context.Context, id uint64) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *l
	return &copy, nil
}

func (s *MemoryStore) ListListings(_ context.Context) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := make([]model.Listing, 0, len(s.listings))
	for id := s.nextListingID; id >= 1; id-- {
		if l, ok := s.listings[id]; ok {
			listings = append(listings, *l)
		}
	}
	return listings, nil
}

func (s *MemoryStore) DeactivateListing(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return ErrNotFound
	}
	l.Active = false
	if s.listingIndex[l.Asset] == id {
		delete(s.listingIndex, l.Asset)
	}
	return nil
}

func (s *MemoryStore) ActiveListingID(_ context.Context, asset model.AssetRef) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listingIndex[asset], nil
}

func (s *MemoryStore) CreateAuction(_ context.Context, a *model.Auction) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.auctionIndex[a.Asset] != 0 {
		return 0, ErrAssetBusy
	}

	s.nextAuctionID++
	copy := *a
	copy.ID = s.nextAuctionID
	s.auctions[copy.ID] = &copy
	s.auctionIndex[copy.Asset] = copy.ID
	return copy.ID, nil
}

func (s *MemoryStore) GetAuction(_ context.Context, id uint64) (*model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) ListAuctions(_ context.Context) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(s.auctions))
	for id := s.nextAuctionID; id >= 1; id-- {
		if a, ok := s.auctions[id]; ok {
			auctions = append(auctions, *a)
		}
	}
	return auctions, nil
}

func (s *MemoryStore) UpdateAuctionBid(_ context.Context, id uint64, bid decimal.Decimal, bidder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return ErrNotFound
	}
	a.CurrentBid = bid
	a.CurrentBidder = bidder
	return nil
}

func (s *MemoryStore) MarkAuctionSettled(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return ErrNotFound
	}
	a.Active = false
	a.Settled = true
	if s.auctionIndex[a.Asset] == id {
		delete(s.auctionIndex, a.Asset)
	}
	return nil
}

func (s *MemoryStore) ActiveAuctionID(_ context.Context, asset model.AssetRef) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auctionIndex[asset], nil
}
