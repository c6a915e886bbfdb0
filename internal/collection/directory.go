// Package collection tracks per-contract marketplace metadata: whether a
// collection may be traded, its royalty schedule, and cumulative traded
// volume. Registration and flag toggles belong to the admin surface, which
// lives outside the engine; the engine only queries state and records volume.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mintworks/marketplace-engine/internal/model"
)

var (
	// ErrUnknownCollection is returned for a contract never registered.
	ErrUnknownCollection = errors.New("collection: unknown collection")

	// ErrRoyaltyTooHigh is returned when a royalty rate exceeds the
	// configured cap. The cap keeps fee+royalty below the denominator.
	ErrRoyaltyTooHigh = errors.New("collection: royalty exceeds cap")
)

// Collection is one asset contract's marketplace record.
type Collection struct {
	Contract string          `json:"contract"`
	Creator  string          `json:"creator"`
	Active   bool            `json:"active"`
	Verified bool            `json:"verified"`
	Royalty  model.Royalty   `json:"royalty"`
	Volume   decimal.Decimal `json:"volume"`
}

// Directory is the engine-facing view of collection state.
type Directory interface {
	// IsActive reports whether listings and auctions on the contract are
	// permitted.
	IsActive(ctx context.Context, contract string) (bool, error)

	// RoyaltyOf returns the contract's royalty schedule. The second return
	// is false when no royalty is configured.
	RoyaltyOf(ctx context.Context, contract string) (model.Royalty, bool, error)

	// RecordVolume accumulates traded volume against the contract.
	RecordVolume(ctx context.Context, contract string, amount decimal.Decimal) error
}

// MemoryDirectory implements Directory with an in-memory map. Used for
// testing and development.
type MemoryDirectory struct {
	royaltyCapBps int64

	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewMemoryDirectory creates a directory that enforces the given royalty
// cap (basis points) on SetRoyalty.
func NewMemoryDirectory(royaltyCapBps int64) *MemoryDirectory {
	return &MemoryDirectory{
		royaltyCapBps: royaltyCapBps,
		collections:   make(map[string]*Collection),
	}
}

// Register adds an active collection. Test/seed helper standing in for the
// admin surface.
func (d *MemoryDirectory) Register(contract, creator string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collections[contract] = &Collection{
		Contract: contract,
		Creator:  creator,
		Active:   true,
	}
}

// SetActive toggles whether the collection may be traded.
func (d *MemoryDirectory) SetActive(contract string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[contract]
	if !ok {
		return ErrUnknownCollection
	}
	c.Active = active
	return nil
}

// SetRoyalty configures the collection's royalty, rejecting rates above
// the cap at configuration time rather than at trade time.
func (d *MemoryDirectory) SetRoyalty(contract, recipient string, bps int64) error {
	if bps < 0 || bps > d.royaltyCapBps {
		return fmt.Errorf("%w: %d bps, cap %d", ErrRoyaltyTooHigh, bps, d.royaltyCapBps)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[contract]
	if !ok {
		return ErrUnknownCollection
	}
	c.Royalty = model.Royalty{Recipient: recipient, Bps: bps}
	return nil
}

// Get returns a copy of the collection record.
func (d *MemoryDirectory) Get(contract string) (Collection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[contract]
	if !ok {
		return Collection{}, false
	}
	return *c, true
}

func (d *MemoryDirectory) IsActive(_ context.Context, contract string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[contract]
	if !ok {
		return false, nil
	}
	return c.Active, nil
}

func (d *MemoryDirectory) RoyaltyOf(_ context.Context, contract string) (model.Royalty, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[contract]
	if !ok || !c.Royalty.Present() {
		return model.Royalty{}, false, nil
	}
	return c.Royalty, true, nil
}

func (d *MemoryDirectory) RecordVolume(_ context.Context, contract string, amount decimal.Decimal) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[contract]
	if !ok {
		return ErrUnknownCollection
	}
	c.Volume = c.Volume.Add(amount)
	return nil
}
