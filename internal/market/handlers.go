package market

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
	"github.com/mintworks/marketplace-engine/internal/settle"
	"github.com/mintworks/marketplace-engine/internal/store"
)

// --- Request/Response types ---

// CreateListingRequest is the JSON body for POST /api/v1/listings.
type CreateListingRequest struct {
	Seller          string          `json:"seller"`
	Contract        string          `json:"contract"`
	TokenID         string          `json:"token_id"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	DurationSeconds int64           `json:"duration_seconds"`
}

// BuyListingRequest is the JSON body for POST /api/v1/listings/{id}/buy.
type BuyListingRequest struct {
	Buyer         string          `json:"buyer"`
	AttachedFunds decimal.Decimal `json:"attached_funds"`
}

// CancelListingRequest is the JSON body for POST /api/v1/listings/{id}/cancel.
type CancelListingRequest struct {
	Caller string `json:"caller"`
}

// CreateAuctionRequest is the JSON body for POST /api/v1/auctions.
type CreateAuctionRequest struct {
	Seller          string          `json:"seller"`
	Contract        string          `json:"contract"`
	TokenID         string          `json:"token_id"`
	StartingPrice   decimal.Decimal `json:"starting_price"`
	Currency        string          `json:"currency"`
	DurationSeconds int64           `json:"duration_seconds"`
}

// PlaceBidRequest is the JSON body for POST /api/v1/auctions/{id}/bids.
type PlaceBidRequest struct {
	Bidder        string          `json:"bidder"`
	Amount        decimal.Decimal `json:"amount"`
	AttachedFunds decimal.Decimal `json:"attached_funds"`
}

// TradeResponse is returned from buy and settle endpoints.
type TradeResponse struct {
	ListingID uint64          `json:"listing_id,omitempty"`
	AuctionID uint64          `json:"auction_id,omitempty"`
	Seller    string          `json:"seller"`
	Buyer     string          `json:"buyer,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Split     settle.Split    `json:"split"`
	Outcome   string          `json:"outcome,omitempty"`
}

// --- Routing ---

// Routes mounts the marketplace endpoints on a chi router.
func (s *Service) Routes(r chi.Router) {
	r.Get("/listings", s.handleListListings)
	r.Post("/listings", s.handleCreateListing)
	r.Get("/listings/{id}", s.handleGetListing)
	r.Post("/listings/{id}/buy", s.handleBuyListing)
	r.Post("/listings/{id}/cancel", s.handleCancelListing)

	r.Get("/auctions", s.handleListAuctions)
	r.Post("/auctions", s.handleCreateAuction)
	r.Get("/auctions/{id}", s.handleGetAuction)
	r.Post("/auctions/{id}/bids", s.handlePlaceBid)
	r.Post("/auctions/{id}/settle", s.handleSettleAuction)

	r.Get("/fees", s.handleGetFees)
}

// --- Listing handlers ---

func (s *Service) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Seller == "" || req.Contract == "" || req.TokenID == "" {
		writeError(w, "seller, contract, and token_id are required", http.StatusBadRequest)
		return
	}

	l, err := s.CreateListing(r.Context(), req.Seller,
		model.AssetRef{Contract: req.Contract, TokenID: req.TokenID},
		req.Price, req.Currency, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Service) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	l, err := s.GetListing(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Service) handleListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.ListListings(r.Context())
	if err != nil {
		writeError(w, "failed to list listings", http.StatusInternalServerError)
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Service) handleBuyListing(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req BuyListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Buyer == "" {
		writeError(w, "buyer is required", http.StatusBadRequest)
		return
	}

	l, split, err := s.BuyListing(r.Context(), id, req.Buyer, req.AttachedFunds)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TradeResponse{
		ListingID: l.ID,
		Seller:    l.Seller,
		Buyer:     req.Buyer,
		Amount:    l.Price,
		Currency:  l.Currency,
		Split:     split,
	})
}

func (s *Service) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req CancelListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.CancelListing(r.Context(), id, req.Caller); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Auction handlers ---

func (s *Service) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Seller == "" || req.Contract == "" || req.TokenID == "" {
		writeError(w, "seller, contract, and token_id are required", http.StatusBadRequest)
		return
	}

	auc, err := s.CreateAuction(r.Context(), req.Seller,
		model.AssetRef{Contract: req.Contract, TokenID: req.TokenID},
		req.StartingPrice, req.Currency, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, auc)
}

func (s *Service) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	auc, err := s.GetAuction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auc)
}

func (s *Service) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := s.ListAuctions(r.Context())
	if err != nil {
		writeError(w, "failed to list auctions", http.StatusInternalServerError)
		return
	}
	if auctions == nil {
		auctions = []model.Auction{}
	}
	writeJSON(w, http.StatusOK, auctions)
}

func (s *Service) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Bidder == "" {
		writeError(w, "bidder is required", http.StatusBadRequest)
		return
	}

	auc, err := s.PlaceBid(r.Context(), id, req.Bidder, req.Amount, req.AttachedFunds)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auc)
}

func (s *Service) handleSettleAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	auc, split, err := s.SettleAuction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	outcome := "unsold"
	if auc.HasBid() {
		outcome = "won"
	}
	writeJSON(w, http.StatusOK, TradeResponse{
		AuctionID: auc.ID,
		Seller:    auc.Seller,
		Buyer:     auc.CurrentBidder,
		Amount:    auc.CurrentBid,
		Currency:  auc.Currency,
		Split:     split,
		Outcome:   outcome,
	})
}

// --- Fees ---

func (s *Service) handleGetFees(w http.ResponseWriter, _ *http.Request) {
	fees := s.settler.AccruedFees()
	out := make(map[string]decimal.Decimal, len(fees))
	for currency, amount := range fees {
		out[currencyLabel(currency)] = amount
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Helpers ---

func parseID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeDomainError maps the failure taxonomy onto HTTP statuses:
// validation → 400, payment → 402, missing → 404, state conflicts and
// invariant rejections → 409.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidDuration),
		errors.Is(err, ErrUnsupportedCurrency),
		errors.Is(err, ErrCollectionInactive),
		errors.Is(err, ErrNotOwner),
		errors.Is(err, ErrNotApproved):
		status = http.StatusBadRequest

	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrPaymentFailed):
		status = http.StatusPaymentRequired

	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound

	case errors.Is(err, store.ErrAssetBusy),
		errors.Is(err, ErrListingInactive),
		errors.Is(err, ErrListingExpired),
		errors.Is(err, ErrNotSeller),
		errors.Is(err, ErrSelfTrade),
		errors.Is(err, ErrAuctionInactive),
		errors.Is(err, ErrAuctionNotStarted),
		errors.Is(err, ErrAuctionEnded),
		errors.Is(err, ErrBidTooLow),
		errors.Is(err, ErrBelowStartingPrice),
		errors.Is(err, ErrAuctionActive),
		errors.Is(err, ErrAlreadySettled),
		errors.Is(err, ErrReentrantCall),
		errors.Is(err, settle.ErrSplitUnderflow):
		status = http.StatusConflict
	}
	writeError(w, err.Error(), status)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
