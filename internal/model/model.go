// Package model defines the core domain types shared across the marketplace engine.
// All monetary values use shopspring/decimal — never float64 for money. Amounts are
// denominated in the smallest unit of their currency.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NativeCurrency is the sentinel identifier for the chain's native coin.
// Any other currency string names a fungible token.
const NativeCurrency = ""

// BpsDenominator is the basis-point denominator for fee and royalty rates.
const BpsDenominator = 10000

// AssetRef identifies one unit of a unique asset: one token id on one contract.
type AssetRef struct {
	Contract string `json:"contract" db:"contract"`
	TokenID  string `json:"token_id" db:"token_id"`
}

// Listing is a fixed-price offer to sell one asset, valid until ExpiresAt.
// Listings are never deleted: Active flips to false on sale or cancellation
// and the record remains as an audit trail.
type Listing struct {
	ID        uint64          `json:"id" db:"id"`
	Seller    string          `json:"seller" db:"seller"`
	Asset     AssetRef        `json:"asset"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Currency  string          `json:"currency" db:"currency"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt time.Time       `json:"expires_at" db:"expires_at"`
}

// Auction is a time-boxed rising-bid sale of one asset. While Active,
// CurrentBid is monotonically non-decreasing and funds equal to CurrentBid
// are escrowed by the engine whenever CurrentBidder is non-empty.
type Auction struct {
	ID            uint64          `json:"id" db:"id"`
	Seller        string          `json:"seller" db:"seller"`
	Asset         AssetRef        `json:"asset"`
	StartingPrice decimal.Decimal `json:"starting_price" db:"starting_price"`
	CurrentBid    decimal.Decimal `json:"current_bid" db:"current_bid"`
	CurrentBidder string          `json:"current_bidder" db:"current_bidder"`
	Currency      string          `json:"currency" db:"currency"`
	StartsAt      time.Time       `json:"starts_at" db:"starts_at"`
	EndsAt        time.Time       `json:"ends_at" db:"ends_at"`
	Active        bool            `json:"active" db:"active"`
	Settled       bool            `json:"settled" db:"settled"`
}

// HasBid reports whether at least one bid has been accepted.
func (a *Auction) HasBid() bool {
	return a.CurrentBidder != ""
}

// Royalty is a collection's creator payout: a recipient and a cut in basis
// points of BpsDenominator. A zero-value Royalty means no royalty.
type Royalty struct {
	Recipient string `json:"recipient"`
	Bps       int64  `json:"bps"`
}

// Present reports whether a royalty recipient is configured.
func (r Royalty) Present() bool {
	return r.Recipient != "" && r.Bps > 0
}
