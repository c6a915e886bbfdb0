package market

import "errors"

// Failure taxonomy. Validation errors are checked before any state
// mutation; state-conflict errors are pure precondition failures; payment
// errors abort the whole operation with zero state change.
var (
	// --- Validation ---

	// ErrInvalidPrice is returned for a price that is not a positive
	// integer amount of the currency's smallest unit.
	ErrInvalidPrice = errors.New("market: price must be a positive integer amount")

	// ErrInvalidDuration is returned for a non-positive listing or
	// auction duration.
	ErrInvalidDuration = errors.New("market: duration must be positive")

	// ErrUnsupportedCurrency is returned for a currency with no payment rail.
	ErrUnsupportedCurrency = errors.New("market: unsupported payment currency")

	// ErrCollectionInactive is returned when the asset's collection is not
	// enabled for trading.
	ErrCollectionInactive = errors.New("market: collection not active")

	// ErrNotOwner is returned when the seller does not own the asset.
	ErrNotOwner = errors.New("market: seller does not own asset")

	// ErrNotApproved is returned when the marketplace lacks the seller's
	// operator approval on the asset's contract.
	ErrNotApproved = errors.New("market: marketplace not approved to transfer asset")

	// --- State conflicts ---

	// ErrListingInactive is returned when acting on a sold or cancelled listing.
	ErrListingInactive = errors.New("market: listing not active")

	// ErrListingExpired is returned when buying past the listing expiry.
	ErrListingExpired = errors.New("market: listing expired")

	// ErrNotSeller is returned when someone other than the seller cancels.
	ErrNotSeller = errors.New("market: only the seller may cancel")

	// ErrSelfTrade is returned when a seller buys their own listing or
	// bids on their own auction.
	ErrSelfTrade = errors.New("market: self-trade not permitted")

	// ErrAuctionInactive is returned when acting on a settled auction.
	ErrAuctionInactive = errors.New("market: auction not active")

	// ErrAuctionNotStarted is returned for a bid before the start time.
	ErrAuctionNotStarted = errors.New("market: auction not started")

	// ErrAuctionEnded is returned for a bid after the end time.
	ErrAuctionEnded = errors.New("market: auction ended")

	// ErrBidTooLow is returned for a bid not exceeding the current bid.
	ErrBidTooLow = errors.New("market: bid must exceed current bid")

	// ErrBelowStartingPrice is returned for a bid under the starting price.
	ErrBelowStartingPrice = errors.New("market: bid below starting price")

	// ErrAuctionActive is returned when settling before the end time.
	ErrAuctionActive = errors.New("market: auction has not ended")

	// ErrAlreadySettled is returned on repeated settlement. Settlement is
	// exactly-once; this is the idempotency backstop.
	ErrAlreadySettled = errors.New("market: auction already settled")

	// --- Payment failures ---

	// ErrInsufficientFunds is returned when attached native funds do not
	// cover the required amount.
	ErrInsufficientFunds = errors.New("market: insufficient attached funds")

	// ErrPaymentFailed is returned when the payment rail rejects a
	// transfer. The enclosing operation aborts with zero state change.
	ErrPaymentFailed = errors.New("market: payment failed")

	// --- Invariant violations ---

	// ErrReentrantCall is returned when a mutating entry point is invoked
	// while another mutating operation is still in progress. Rejected,
	// never deadlocked.
	ErrReentrantCall = errors.New("market: reentrant call rejected")
)
