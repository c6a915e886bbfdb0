// Package store defines the persistence interface for the marketplace
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
//
// Listings and auctions are append-style tables keyed by monotonically
// increasing ids the store assigns. Each table carries a secondary index
// from asset reference to the currently active record id; id 0 means no
// active record, which is what enforces the at-most-one-active invariant.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("store: not found")

	// ErrAssetBusy is returned when the asset already has an active
	// listing or auction.
	ErrAssetBusy = errors.New("store: asset already has an active record")
)

// Store is the persistence interface.
type Store interface {
	// --- Listings ---

	// CreateListing assigns the next id, persists the listing, and points
	// the asset index at it. Fails with ErrAssetBusy if the asset already
	// has an active listing.
	CreateListing(ctx context.Context, l *model.Listing) (uint64, error)

	// GetListing retrieves a listing by id.
	GetListing(ctx context.Context, id uint64) (*model.Listing, error)

	// ListListings returns all listings, newest first.
	ListListings(ctx context.Context) ([]model.Listing, error)

	// DeactivateListing flips Active to false and clears the asset index
	// entry. The record itself is kept as an audit trail.
	DeactivateListing(ctx context.Context, id uint64) error

	// ActiveListingID returns the active listing id for an asset, 0 if none.
	ActiveListingID(ctx context.Context, asset model.AssetRef) (uint64, error)

	// --- Auctions ---

	// CreateAuction assigns the next id, persists the auction, and points
	// the asset index at it. Fails with ErrAssetBusy if the asset already
	// has an active auction.
	CreateAuction(ctx context.Context, a *model.Auction) (uint64, error)

	// GetAuction retrieves an auction by id.
	GetAuction(ctx context.Context, id uint64) (*model.Auction, error)

	// ListAuctions returns all auctions, newest first.
	ListAuctions(ctx context.Context) ([]model.Auction, error)

	// UpdateAuctionBid overwrites the current bid and bidder.
	UpdateAuctionBid(ctx context.Context, id uint64, bid decimal.Decimal, bidder string) error

	// MarkAuctionSettled flips Active to false and Settled to true and
	// clears the asset index entry.
	MarkAuctionSettled(ctx context.Context, id uint64) error

	// ActiveAuctionID returns the active auction id for an asset, 0 if none.
	ActiveAuctionID(ctx context.Context, asset model.AssetRef) (uint64, error)
}
