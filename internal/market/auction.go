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

// CreateAuction records a rising-bid auction with the same preconditions
// as listing creation. The auction starts immediately and runs for the
// given duration.
func (s *Service) CreateAuction(ctx context.Context, seller string, a model.AssetRef,
	startingPrice decimal.Decimal, currency string, duration time.Duration) (*model.Auction, error) {

	if err := s.guard.enter(); err != nil {
		metrics.ReentrancyRejections.Inc()
		return nil, err
	}
	defer s.guard.exit()

	if err := s.validSaleTerms(ctx, seller, a, startingPrice, currency, duration); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	auc := &model.Auction{
		Seller:        seller,
		Asset:         a,
		StartingPrice: startingPrice,
		CurrentBid:    decimal.Zero,
		Currency:      currency,
		StartsAt:      now,
		EndsAt:        now.Add(duration),
		Active:        true,
	}

	id, err := s.store.CreateAuction(ctx, auc)
	if err != nil {
		return nil, err
	}
	auc.ID = id

	metrics.AuctionsCreated.Inc()
	metrics.ActiveAuctions.Inc()

	slog.Info("auction created",
		"id", id,
		"seller", seller,
		"contract", a.Contract,
		"token_id", a.TokenID,
		"starting_price", startingPrice.String(),
		"currency", currency,
		"ends_at", auc.EndsAt,
	)

	s.emit(Event{
		Type:      EventAuctionCreated,
		AuctionID: id,
		Seller:    seller,
		Contract:  a.Contract,
		TokenID:   a.TokenID,
		Amount:    startingPrice.String(),
		Currency:  currency,
	})
	return auc, nil
}

// PlaceBid escrows a new highest bid and refunds the previous bidder.
// The new funds are confirmed received before the old bidder is paid
// back, and the old bidder's refund completes before the bid record is
// overwritten. If the refund fails, the new funds are returned and the
// whole attempt fails with no state change.
func (s *Service) PlaceBid(ctx context.Context, id uint64, bidder string,
	amount, attached decimal.Decimal) (*model.Auction, error) {

	if err := s.guard.enter(); err != nil {
		metrics.ReentrancyRejections.Inc()
		return nil, err
	}
	defer s.guard.exit()

	auc, err := s.store.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auc.Active {
		return nil, ErrAuctionInactive
	}

	now := time.Now().UTC()
	if now.Before(auc.StartsAt) {
		return nil, ErrAuctionNotStarted
	}
	if now.After(auc.EndsAt) {
		return nil, ErrAuctionEnded
	}
	if bidder == auc.Seller {
		return nil, ErrSelfTrade
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return nil, ErrInvalidPrice
	}
	if amount.LessThanOrEqual(auc.CurrentBid) {
		return nil, ErrBidTooLow
	}
	if amount.LessThan(auc.StartingPrice) {
		return nil, ErrBelowStartingPrice
	}

	if err := s.takePayment(ctx, auc.Currency, bidder, amount, attached); err != nil {
		return nil, err
	}

	// Escrow swap: the previous bidder is made whole before their bid is
	// overwritten. A failed refund unwinds the new escrow entirely.
	if auc.HasBid() {
		if err := s.returnPayment(ctx, auc.Currency, auc.CurrentBidder, auc.CurrentBid); err != nil {
			newEscrow := amount
			if auc.Currency == model.NativeCurrency {
				newEscrow = attached
			}
			s.refundOrLog(ctx, auc.Currency, bidder, newEscrow)
			return nil, fmt.Errorf("%w: prior bid refund: %v", ErrPaymentFailed, err)
		}
	}

	if err := s.store.UpdateAuctionBid(ctx, id, amount, bidder); err != nil {
		return nil, fmt.Errorf("update bid: %w", err)
	}
	auc.CurrentBid = amount
	auc.CurrentBidder = bidder

	metrics.BidsTotal.Inc()

	slog.Info("bid placed",
		"auction_id", id,
		"bidder", bidder,
		"amount", amount.String(),
	)

	s.emit(Event{
		Type:      EventAuctionBid,
		AuctionID: id,
		Seller:    auc.Seller,
		Buyer:     bidder,
		Contract:  auc.Asset.Contract,
		TokenID:   auc.Asset.TokenID,
		Amount:    amount.String(),
		Currency:  auc.Currency,
	})
	return auc, nil
}

// SettleAuction concludes an ended auction, callable by anyone, exactly
// once. The settled flags flip and the asset index clears before any
// external transfer happens, so a repeated or re-entrant call always
// observes the settled state. With no bids the auction simply terminates:
// the asset stays with the seller and nothing is paid.
func (s *Service) SettleAuction(ctx context.Context, id uint64) (*model.Auction, settle.Split, error) {
	if err := s.guard.enter(); err != nil {
		metrics.ReentrancyRejections.Inc()
		return nil, settle.Split{}, err
	}
	defer s.guard.exit()

	auc, err := s.store.GetAuction(ctx, id)
	if err != nil {
		return nil, settle.Split{}, err
	}
	if auc.Settled {
		return nil, settle.Split{}, ErrAlreadySettled
	}
	if !time.Now().UTC().After(auc.EndsAt) {
		return nil, settle.Split{}, ErrAuctionActive
	}

	// Effects before interactions: commit the terminal state first.
	if err := s.store.MarkAuctionSettled(ctx, id); err != nil {
		return nil, settle.Split{}, fmt.Errorf("mark settled: %w", err)
	}
	auc.Active = false
	auc.Settled = true

	metrics.ActiveAuctions.Dec()

	var split settle.Split
	outcome := "unsold"
	if auc.HasBid() {
		outcome = "won"
		split, err = s.settler.Execute(ctx, settle.Trade{
			Asset:    auc.Asset,
			Seller:   auc.Seller,
			Buyer:    auc.CurrentBidder,
			Amount:   auc.CurrentBid,
			Currency: auc.Currency,
		})
		if err != nil {
			// The auction stays settled; the escrow remains in the
			// engine account for operator reconciliation.
			slog.Error("auction payout failed",
				"auction_id", id, "bidder", auc.CurrentBidder, "err", err)
			return nil, settle.Split{}, fmt.Errorf("settlement: %w", err)
		}
		metrics.TradeVolume.WithLabelValues(currencyLabel(auc.Currency)).Add(toFloat(auc.CurrentBid))
	}

	metrics.AuctionsSettled.WithLabelValues(outcome).Inc()

	slog.Info("auction settled",
		"id", id,
		"outcome", outcome,
		"winner", auc.CurrentBidder,
		"amount", auc.CurrentBid.String(),
	)

	s.emit(Event{
		Type:      EventAuctionSettled,
		AuctionID: id,
		Seller:    auc.Seller,
		Buyer:     auc.CurrentBidder,
		Contract:  auc.Asset.Contract,
		TokenID:   auc.Asset.TokenID,
		Amount:    auc.CurrentBid.String(),
		Currency:  auc.Currency,
		Outcome:   outcome,
	})
	return auc, split, nil
}
