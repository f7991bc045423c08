package storage

import (
	"context"
	"errors"
	"fmt"
)

// Resolver layers a local cache over one or more remote stores.
// Reads try the local store first, then each remote in order; a remote
// hit is cached locally. Writes go to the local store and every remote.
//
// With VerifyContent set, remote bytes must hash to their address or the
// remote is skipped. Leave it unset for document stores, whose ids are
// not content hashes.
type Resolver struct {
	Local         Store
	Remotes       []Store
	VerifyContent bool
}

var _ Store = (*Resolver)(nil)

// NewResolver creates a content-verifying Resolver.
func NewResolver(local Store, remotes ...Store) *Resolver {
	return &Resolver{Local: local, Remotes: remotes, VerifyContent: true}
}

func (r *Resolver) tiers() []Store {
	out := make([]Store, 0, len(r.Remotes)+1)
	if r.Local != nil {
		out = append(out, r.Local)
	}
	return append(out, r.Remotes...)
}

// Put writes to every tier.
func (r *Resolver) Put(ctx context.Context, addr Address, data []byte) error {
	for _, s := range r.tiers() {
		if err := s.Put(ctx, addr, data); err != nil {
			return fmt.Errorf("resolver: put: %w", err)
		}
	}
	return nil
}

// Get returns the first verified copy of addr.
func (r *Resolver) Get(ctx context.Context, addr Address) ([]byte, error) {
	if r.Local != nil {
		data, err := r.Local.Get(ctx, addr)
		if err == nil {
			return data, nil
		}
		// Only continue if not found; other errors are real failures.
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("resolver: local store: %w", err)
		}
	}

	var lastErr error
	for _, remote := range r.Remotes {
		data, err := remote.Get(ctx, addr)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !errors.Is(err, ErrNotFound) {
				lastErr = err
			}
			continue
		}
		if r.VerifyContent {
			if err := Verify(data, addr); err != nil {
				lastErr = err
				continue
			}
		}
		if r.Local != nil {
			_ = r.Local.Put(ctx, addr, data) // best-effort cache
		}
		return data, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("resolver: %s: %w", addr, lastErr)
	}
	return nil, fmt.Errorf("resolver: %w: %s", ErrNotFound, addr)
}

// Has reports whether any tier holds addr.
func (r *Resolver) Has(ctx context.Context, addr Address) (bool, error) {
	for _, s := range r.tiers() {
		ok, err := s.Has(ctx, addr)
		if err != nil {
			return false, fmt.Errorf("resolver: has: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes addr from every tier that holds it.
func (r *Resolver) Delete(ctx context.Context, addr Address) error {
	removed := false
	for _, s := range r.tiers() {
		err := s.Delete(ctx, addr)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, ErrNotFound):
		default:
			return fmt.Errorf("resolver: delete: %w", err)
		}
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// Size returns the size reported by the first tier holding addr.
func (r *Resolver) Size(ctx context.Context, addr Address) (int64, error) {
	for _, s := range r.tiers() {
		n, err := s.Size(ctx, addr)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return 0, fmt.Errorf("resolver: size: %w", err)
		}
	}
	return 0, ErrNotFound
}

// List returns the union of every tier's addresses.
func (r *Resolver) List(ctx context.Context) ([]Address, error) {
	seen := make(map[Address]struct{})
	var out []Address
	for _, s := range r.tiers() {
		addrs, err := s.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolver: list: %w", err)
		}
		for _, a := range addrs {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out, nil
}
