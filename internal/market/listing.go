package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/metrics"
	"github.com/mintworks/marketplace-engine/internal/model"
	"github.com/mintworks/marketplace-engine/internal/settle"
)

// CreateListing records a fixed-price listing after validating price,
// currency, collection state, ownership, and operator approval.
func (s *Service) CreateListing(ctx context.Context, seller string, a model.AssetRef,
	price decimal.Decimal, currency string, duration time.Duration) (*model.Listing, error) {

	if err := s.guard.enter(); err != nil {
		metrics.ReentrancyRejections.Inc()
		return nil, err
	}
	defer s.guard.exit()

	if err := s.validSaleTerms(ctx, seller, a, price, currency, duration); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	l := &model.Listing{
		Seller:    seller,
		Asset:     a,
		Price:     price,
		Currency:  currency,
		Active:    true,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}

	id, err := s.store.CreateListing(ctx, l)
	if err != nil {
		return nil, err
	}
	l.ID = id

	metrics.ListingsCreated.Inc()
	metrics.ActiveListings.Inc()

	slog.Info("listing created",
		"id", id,
		"seller", seller,
		"contract", a.Contract,
		"token_id", a.TokenID,
		"price", price.String(),
		"currency", currency,
	)

	s.emit(Event{
		Type:      EventListingCreated,
		ListingID: id,
		Seller:    seller,
		Contract:  a.Contract,
		TokenID:   a.TokenID,
		Amount:    price.String(),
		Currency:  currency,
	})
	return l, nil
}

// BuyListing fulfills an active listing: pulls payment from the buyer,
// executes the settlement (asset transfer + fee/royalty/seller split), and
// only then flips the listing inactive and clears the asset index.
// A failure at any step unwinds everything already done.
func (s *Service) BuyListing(ctx context.Context, id uint64, buyer string,
	attached decimal.Decimal) (*model.Listing, settle.Split, error) {

	if err := s.guard.enter(); err != nil {
		metrics.ReentrancyRejections.Inc()
		return nil, settle.Split{}, err
	}
	defer s.guard.exit()

	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, settle.Split{}, err
	}
	if !l.Active {
		return nil, settle.Split{}, ErrListingInactive
	}
	if time.Now().UTC().After(l.ExpiresAt) {
		return nil, settle.Split{}, ErrListingExpired
	}
	if buyer == l.Seller {
		return nil, settle.Split{}, ErrSelfTrade
	}

	if err := s.takePayment(ctx, l.Currency, buyer, l.Price, attached); err != nil {
		return nil, settle.Split{}, err
	}

	// From here on the buyer's funds sit in the engine account; every
	// failure path must return them before surfacing the error.
	refund := l.Price
	if l.Currency == model.NativeCurrency {
		refund = attached
	}

	if err := s.approvedForFulfillment(ctx, l.Seller, l.Asset); err != nil {
		s.refundOrLog(ctx, l.Currency, buyer, refund)
		return nil, settle.Split{}, err
	}

	split, err := s.settler.Execute(ctx, settle.Trade{
		Asset:    l.Asset,
		Seller:   l.Seller,
		Buyer:    buyer,
		Amount:   l.Price,
		Currency: l.Currency,
	})
	if err != nil {
		s.refundOrLog(ctx, l.Currency, buyer, refund)
		return nil, settle.Split{}, fmt.Errorf("settlement: %w", err)
	}

	if err := s.store.DeactivateListing(ctx, id); err != nil {
		return nil, settle.Split{}, fmt.Errorf("deactivate listing: %w", err)
	}
	l.Active = false

	metrics.ListingsSold.Inc()
	metrics.ActiveListings.Dec()
	metrics.TradeVolume.WithLabelValues(currencyLabel(l.Currency)).Add(toFloat(l.Price))

	slog.Info("listing sold",
		"id", id,
		"seller", l.Seller,
		"buyer", buyer,
		"price", l.Price.String(),
		"fee", split.Fee.String(),
		"royalty", split.Royalty.String(),
	)

	s.emit(Event{
		Type:      EventListingSold,
		ListingID: id,
		Seller:    l.Seller,
		Buyer:     buyer,
		Contract:  l.Asset.Contract,
		TokenID:   l.Asset.TokenID,
		Amount:    l.Price.String(),
		Currency:  l.Currency,
	})
	return l, split, nil
}

// CancelListing withdraws an active listing. Only the recorded seller may
// cancel.
func (s *Service) CancelListing(ctx context.Context, id uint64, caller string) error {
	if err := s.guard.enter(); err != nil {
		metrics.ReentrancyRejections.Inc()
		return err
	}
	defer s.guard.exit()

	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if !l.Active {
		return ErrListingInactive
	}
	if caller != l.Seller {
		return ErrNotSeller
	}

	if err := s.store.DeactivateListing(ctx, id); err != nil {
		return fmt.Errorf("deactivate listing: %w", err)
	}

	metrics.ListingsCancelled.Inc()
	metrics.ActiveListings.Dec()

	slog.Info("listing cancelled", "id", id, "seller", caller)

	s.emit(Event{
		Type:      EventListingCancelled,
		ListingID: id,
		Seller:    l.Seller,
		Contract:  l.Asset.Contract,
		TokenID:   l.Asset.TokenID,
	})
	return nil
}

// refundOrLog returns funds during an abort. A refund failure here cannot
// fail the already-failing operation; it is logged for reconciliation.
func (s *Service) refundOrLog(ctx context.Context, currency, to string, amount decimal.Decimal) {
	if err := s.returnPayment(ctx, currency, to, amount); err != nil {
		slog.Error("abort refund failed", "to", to, "amount", amount.String(), "err", err)
	}
}

func currencyLabel(currency string) string {
	if currency == model.NativeCurrency {
		return "native"
	}
	return currency
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
