// Package market implements the two core ledgers of the marketplace
// engine: fixed-price listings and rising-bid auctions with escrow. Both
// delegate payout to the settlement engine and share one global entry
// guard so mutating operations execute one at a time to completion.
//
// All monetary values use shopspring/decimal — never float64 for money.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/asset"
	"github.com/mintworks/marketplace-engine/internal/collection"
	"github.com/mintworks/marketplace-engine/internal/model"
	"github.com/mintworks/marketplace-engine/internal/payment"
	"github.com/mintworks/marketplace-engine/internal/settle"
	"github.com/mintworks/marketplace-engine/internal/store"
)

// Service executes listing and auction operations against the store and
// the external collaborators (asset registry, payment rail, collection
// directory).
type Service struct {
	store     store.Store
	registry  asset.Registry
	rail      payment.Rail
	directory collection.Directory
	settler   *settle.Engine
	hub       *Hub // optional WebSocket hub for event broadcasts
	guard     entryGuard
}

// NewService creates a marketplace service. Pass nil for hub if event
// broadcasting is not needed.
func NewService(st store.Store, registry asset.Registry, rail payment.Rail,
	directory collection.Directory, settler *settle.Engine, hub *Hub) *Service {
	return &Service{
		store:     st,
		registry:  registry,
		rail:      rail,
		directory: directory,
		settler:   settler,
		hub:       hub,
	}
}

// Settler exposes the settlement engine for fee queries.
func (s *Service) Settler() *settle.Engine {
	return s.settler
}

// --- Read-only queries (no entry guard; the store locks internally) ---

// GetListing returns one listing by id.
func (s *Service) GetListing(ctx context.Context, id uint64) (*model.Listing, error) {
	return s.store.GetListing(ctx, id)
}

// ListListings returns all listings, newest first.
func (s *Service) ListListings(ctx context.Context) ([]model.Listing, error) {
	return s.store.ListListings(ctx)
}

// GetAuction returns one auction by id.
func (s *Service) GetAuction(ctx context.Context, id uint64) (*model.Auction, error) {
	return s.store.GetAuction(ctx, id)
}

// ListAuctions returns all auctions, newest first.
func (s *Service) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	return s.store.ListAuctions(ctx)
}

// --- Shared validation ---

// validSaleTerms runs the common creation preconditions for listings and
// auctions, in order: price, duration, currency, collection, ownership,
// operator approval. All checks precede any state mutation.
func (s *Service) validSaleTerms(ctx context.Context, seller string, a model.AssetRef,
	price decimal.Decimal, currency string, duration time.Duration) error {

	if !price.IsPositive() || !price.IsInteger() {
		return ErrInvalidPrice
	}
	if duration <= 0 {
		return ErrInvalidDuration
	}
	if !s.rail.Supported(currency) {
		return ErrUnsupportedCurrency
	}

	active, err := s.directory.IsActive(ctx, a.Contract)
	if err != nil {
		return fmt.Errorf("collection lookup: %w", err)
	}
	if !active {
		return ErrCollectionInactive
	}

	owner, err := s.registry.OwnerOf(ctx, a)
	if err != nil {
		return fmt.Errorf("owner lookup: %w", err)
	}
	if owner != seller {
		return ErrNotOwner
	}

	approved, err := s.registry.IsApprovedForAll(ctx, seller, a.Contract)
	if err != nil {
		return fmt.Errorf("approval lookup: %w", err)
	}
	if !approved {
		return ErrNotApproved
	}
	return nil
}

// --- Payment plumbing ---

// takePayment pulls the required amount into the engine account. Native
// currency models attached funds: the full attachment is deposited and any
// excess over required stays with the engine (no change-making — a known
// value leak preserved from the original design, surfaced via log).
func (s *Service) takePayment(ctx context.Context, currency, payer string,
	required, attached decimal.Decimal) error {

	if currency == model.NativeCurrency {
		if attached.LessThan(required) {
			return ErrInsufficientFunds
		}
		if err := s.rail.NativeDeposit(ctx, payer, attached); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		if excess := attached.Sub(required); excess.IsPositive() {
			slog.Warn("excess native funds retained by engine",
				"payer", payer, "excess", excess.String())
		}
		return nil
	}

	if err := s.rail.TokenTransferFrom(ctx, currency, payer, required); err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	return nil
}

// returnPayment pays funds back out of the engine account.
func (s *Service) returnPayment(ctx context.Context, currency, to string, amount decimal.Decimal) error {
	if currency == model.NativeCurrency {
		return s.rail.NativeTransfer(ctx, to, amount)
	}
	return s.rail.TokenTransfer(ctx, currency, to, amount)
}

// approvedForFulfillment re-checks the seller's operator approval right
// before settlement. Approval is checked at creation time too, but it can
// be revoked in between; the revocation is only caught here.
func (s *Service) approvedForFulfillment(ctx context.Context, seller string, a model.AssetRef) error {
	approved, err := s.registry.IsApprovedForAll(ctx, seller, a.Contract)
	if err != nil {
		return fmt.Errorf("approval lookup: %w", err)
	}
	if !approved {
		return ErrNotApproved
	}
	return nil
}

func (s *Service) emit(evt Event) {
	if s.hub != nil {
		s.hub.Broadcast(evt)
	}
}
