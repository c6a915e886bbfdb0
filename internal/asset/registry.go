// Package asset abstracts the NFT contract side of a trade: who owns an
// asset, whether the marketplace may move it, and the ownership transfer
// itself. The engine only ever talks to the Registry interface; the chain
// integration and the in-memory registry are interchangeable behind it.
//
// Approval is a contract-wide operator grant, queried as a precondition by
// the ledgers — at creation time and again at fulfillment time. A seller
// revoking approval (or moving the asset) after listing is caught only when
// the trade fulfills, not when it is created.
package asset

import (
	"context"
	"errors"
	"sync"

	"github.com/mintworks/marketplace-engine/internal/model"
)

var (
	// ErrUnknownAsset is returned when an asset has no recorded owner.
	ErrUnknownAsset = errors.New("asset: unknown asset")

	// ErrNotOwner is returned when a transfer names a sender that does not
	// own the asset.
	ErrNotOwner = errors.New("asset: sender does not own asset")

	// ErrNotApproved is returned when the marketplace lacks operator
	// approval for the owner on the asset's contract.
	ErrNotApproved = errors.New("asset: operator approval missing")
)

// Registry answers ownership questions and performs asset transfers on
// behalf of the marketplace operator.
type Registry interface {
	// OwnerOf returns the current owner of an asset.
	OwnerOf(ctx context.Context, asset model.AssetRef) (string, error)

	// IsApprovedForAll reports whether the owner has granted the
	// marketplace blanket operator approval on the given contract.
	// Approval is contract-wide, not per token.
	IsApprovedForAll(ctx context.Context, owner, contract string) (bool, error)

	// Transfer moves the asset from one principal to another. Fails if
	// `from` is not the current owner.
	Transfer(ctx context.Context, from, to string, asset model.AssetRef) error
}

// MemoryRegistry implements Registry with in-memory maps. Used for testing
// and development.
type MemoryRegistry struct {
	mu        sync.RWMutex
	owners    map[model.AssetRef]string
	approvals map[approvalKey]bool
}

type approvalKey struct {
	owner    string
	contract string
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		owners:    make(map[model.AssetRef]string),
		approvals: make(map[approvalKey]bool),
	}
}

// Mint assigns an asset to an owner. Test/seed helper.
func (r *MemoryRegistry) Mint(asset model.AssetRef, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[asset] = owner
}

// SetApprovalForAll grants or revokes the marketplace's operator approval
// for all of owner's assets on a contract.
func (r *MemoryRegistry) SetApprovalForAll(owner, contract string, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals[approvalKey{owner, contract}] = approved
}

func (r *MemoryRegistry) OwnerOf(_ context.Context, asset model.AssetRef) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.owners[asset]
	if !ok {
		return "", ErrUnknownAsset
	}
	return owner, nil
}

func (r *MemoryRegistry) IsApprovedForAll(_ context.Context, owner, contract string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.approvals[approvalKey{owner, contract}], nil
}

func (r *MemoryRegistry) Transfer(_ context.Context, from, to string, asset model.AssetRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[asset]
	if !ok {
		return ErrUnknownAsset
	}
	if owner != from {
		return ErrNotOwner
	}
	r.owners[asset] = to
	return nil
}
