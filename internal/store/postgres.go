package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
//
// Expected schema:
//
//	CREATE TABLE listings (
//	    id         BIGSERIAL PRIMARY KEY,
//	    seller     TEXT NOT NULL,
//	    contract   TEXT NOT NULL,
//	    token_id   TEXT NOT NULL,
//	    price      NUMERIC NOT NULL,
//	    currency   TEXT NOT NULL,
//	    active     BOOLEAN NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX listings_active_asset ON listings (contract, token_id) WHERE active;
//
//	CREATE TABLE auctions (
//	    id             BIGSERIAL PRIMARY KEY,
//	    seller         TEXT NOT NULL,
//	    contract       TEXT NOT NULL,
//	    token_id       TEXT NOT NULL,
//	    starting_price NUMERIC NOT NULL,
//	    current_bid    NUMERIC NOT NULL,
//	    current_bidder TEXT NOT NULL DEFAULT '',
//	    currency       TEXT NOT NULL,
//	    starts_at      TIMESTAMPTZ NOT NULL,
//	    ends_at        TIMESTAMPTZ NOT NULL,
//	    active         BOOLEAN NOT NULL,
//	    settled        BOOLEAN NOT NULL
//	);
//	CREATE UNIQUE INDEX auctions_active_asset ON auctions (contract, token_id) WHERE active;
//
// The partial unique indexes are the asset→active-record indices: at most
// one active row per asset per table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// uniqueViolation is the Postgres error code raised when an insert hits
// the active-asset partial unique index.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *PostgresStore) CreateListing(ctx context.Context, l *model.Listing) (uint64, error) {
	var id uint64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO listings (seller, contract, token_id, price, currency, active, created_at, expires_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7, $8)
		 RETURNING id`,
		l.Seller, l.Asset.Contract, l.Asset.TokenID,
		l.Price.String(), l.Currency, l.Active, l.CreatedAt, l.ExpiresAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAssetBusy
		}
		return 0, fmt.Errorf("create listing: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetListing(ctx context.Context, id uint64) (*model.Listing, error) {
	var l model.Listing
	var price string

	err := s.pool.QueryRow(ctx,
		`SELECT id, seller, contract, token_id, price::TEXT, currency, active, created_at, expires_at
		 FROM listings WHERE id = $1`, id).
		Scan(&l.ID, &l.Seller, &l.Asset.Contract, &l.Asset.TokenID,
			&price, &l.Currency, &l.Active, &l.CreatedAt, &l.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %d: %w", id, err)
	}

	l.Price, _ = decimal.NewFromString(price)
	return &l, nil
}

func (s *PostgresStore) ListListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, seller, contract, token_id, price::TEXT, currency, active, created_at, expires_at
		 FROM listings ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var price string
		if err := rows.Scan(&l.ID, &l.Seller, &l.Asset.Contract, &l.Asset.TokenID,
			&price, &l.Currency, &l.Active, &l.CreatedAt, &l.ExpiresAt); err != nil {
			return nil, err
		}
		l.Price, _ = decimal.NewFromString(price)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) DeactivateListing(ctx context.Context, id uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate listing %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ActiveListingID(ctx context.Context, asset model.AssetRef) (uint64, error) {
	var id uint64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM listings WHERE contract = $1 AND token_id = $2 AND active`,
		asset.Contract, asset.TokenID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) CreateAuction(ctx context.Context, a *model.Auction) (uint64, error) {
	var id uint64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO auctions (seller, contract, token_id, starting_price, current_bid, current_bidder,
		                       currency, starts_at, ends_at, active, settled)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		a.Seller, a.Asset.Contract, a.Asset.TokenID,
		a.StartingPrice.String(), a.CurrentBid.String(), a.CurrentBidder,
		a.Currency, a.StartsAt, a.EndsAt, a.Active, a.Settled,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAssetBusy
		}
		return 0, fmt.Errorf("create auction: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetAuction(ctx context.Context, id uint64) (*model.Auction, error) {
	var a model.Auction
	var startingPrice, currentBid string

	err := s.pool.QueryRow(ctx,
		`SELECT id, seller, contract, token_id, starting_price::TEXT, current_bid::TEXT, current_bidder,
		        currency, starts_at, ends_at, active, settled
		 FROM auctions WHERE id = $1`, id).
		Scan(&a.ID, &a.Seller, &a.Asset.Contract, &a.Asset.TokenID,
			&startingPrice, &currentBid, &a.CurrentBidder,
			&a.Currency, &a.StartsAt, &a.EndsAt, &a.Active, &a.Settled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get auction %d: %w", id, err)
	}

	a.StartingPrice, _ = decimal.NewFromString(startingPrice)
	a.CurrentBid, _ = decimal.NewFromString(currentBid)
	return &a, nil
}

func (s *PostgresStore) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, seller, contract, token_id, starting_price::TEXT, current_bid::TEXT, current_bidder,
		        currency, starts_at, ends_at, active, settled
		 FROM auctions ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		var a model.Auction
		var startingPrice, currentBid string
		if err := rows.Scan(&a.ID, &a.Seller, &a.Asset.Contract, &a.Asset.TokenID,
			&startingPrice, &currentBid, &a.CurrentBidder,
			&a.Currency, &a.StartsAt, &a.EndsAt, &a.Active, &a.Settled); err != nil {
			return nil, err
		}
		a.StartingPrice, _ = decimal.NewFromString(startingPrice)
		a.CurrentBid, _ = decimal.NewFromString(currentBid)
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

func (s *PostgresStore) UpdateAuctionBid(ctx context.Context, id uint64, bid decimal.Decimal, bidder string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET current_bid = $2::NUMERIC, current_bidder = $3 WHERE id = $1`,
		id, bid.String(), bidder)
	if err != nil {
		return fmt.Errorf("update auction bid %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkAuctionSettled(ctx context.Context, id uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET active = FALSE, settled = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark auction settled %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ActiveAuctionID(ctx context.Context, asset model.AssetRef) (uint64, error) {
	var id uint64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM auctions WHERE contract = $1 AND token_id = $2 AND active`,
		asset.Contract, asset.TokenID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
