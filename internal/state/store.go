package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/stockroom/internal/catalog"
)

// ErrStaleIndex is matched by every *StaleIndexError.
var ErrStaleIndex = errors.New("stale index")

// ErrCreateNotVisible is returned when a create succeeded remotely but the
// refreshed collection holds no new product with the submitted fields.
var ErrCreateNotVisible = errors.New("created product not visible after refresh")

// StaleIndexError reports a mutation addressed to a product the cache no
// longer holds. The caller's position came from an older List snapshot.
type StaleIndexError struct {
	ID       string
	Position int
	Len      int
}

func (e *StaleIndexError) Error() string {
	return fmt.Sprintf("product %s not in cache (position %d, %d cached); refresh and retry", e.ID, e.Position, e.Len)
}

func (e *StaleIndexError) Unwrap() error { return ErrStaleIndex }

// Snapshot represents the latest data available to readers.
type Snapshot struct {
	Products            []catalog.Product
	HasData             bool // at least one fetch succeeded
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // consecutive failed fetches
}

// IsOffline returns true when the backend has been unreachable for multiple fetches.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store is the local, eventually consistent view of the remote product
// collection. Only its CRUD operations mutate the cached sequence, and each
// mutation is applied after the remote call has succeeded.
type Store struct {
	api catalog.ProductAPI
	log *zap.Logger
	now func() time.Time

	// op serializes FetchAll, Create, Update and Delete so at most one
	// cache mutation is in flight. Readers never take it.
	op sync.Mutex

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewStore builds an empty Store backed by api.
func NewStore(api catalog.ProductAPI, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{api: api, log: logger, now: time.Now}
}

// List returns a copy of the cached products in remote order. It never
// blocks on the network.
func (s *Store) List() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Clone(s.snapshot.Products)
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Products = catalog.Clone(s.snapshot.Products)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// FetchAll replaces the cache with the remote collection. On failure the
// cache is left as it was and the error is recorded and returned.
func (s *Store) FetchAll(ctx context.Context) ([]catalog.Product, error) {
	s.op.Lock()
	defer s.op.Unlock()
	return s.fetchLocked(ctx)
}

// Create submits a new product, then refetches the collection so the
// server-assigned id and ordering come from the backend. It returns the
// product as it appears in the refreshed cache.
func (s *Store) Create(ctx context.Context, name string, price int) (catalog.Product, error) {
	s.op.Lock()
	defer s.op.Unlock()

	known := s.knownIDs()
	ack, err := s.api.CreateProduct(ctx, catalog.Draft{Name: name, Price: price})
	if err != nil {
		s.recordError(err)
		return catalog.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.log.Info("product created", zap.String("name", name), zap.Int("price", price), zap.String("ack", ack))

	products, err := s.fetchLocked(ctx)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("refresh after create: %w", err)
	}
	for i := len(products) - 1; i >= 0; i-- {
		p := products[i]
		if _, seen := known[p.ID]; seen {
			continue
		}
		if p.Name == name && p.Price == price {
			return p, nil
		}
	}
	return catalog.Product{}, ErrCreateNotVisible
}

// Update sends product to the backend and, on success, replaces the cached
// entry in place. position is the index from the caller's last List; the
// entry is located by id when the position has shifted.
func (s *Store) Update(ctx context.Context, product catalog.Product, position int) (catalog.Product, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if _, err := s.locate(product.ID, position); err != nil {
		return catalog.Product{}, err
	}

	ack, err := s.api.UpdateProduct(ctx, product)
	if err != nil {
		s.recordError(err)
		return catalog.Product{}, fmt.Errorf("update product %s: %w", product.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := resolveIndex(s.snapshot.Products, product.ID, position)
	if idx < 0 {
		return catalog.Product{}, &StaleIndexError{ID: product.ID, Position: position, Len: len(s.snapshot.Products)}
	}
	s.snapshot.Products[idx] = product
	s.snapshot.LastError = nil
	s.log.Info("product updated",
		zap.String("id", product.ID),
		zap.Int("position", idx),
		zap.String("ack", ack))
	return product, nil
}

// Delete removes the product remotely and, on success, drops exactly one
// cached entry. position follows the same rules as in Update.
func (s *Store) Delete(ctx context.Context, id string, position int) error {
	s.op.Lock()
	defer s.op.Unlock()

	if _, err := s.locate(id, position); err != nil {
		return err
	}

	if err := s.api.DeleteProduct(ctx, id); err != nil {
		s.recordError(err)
		return fmt.Errorf("delete product %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.snapshot.Products
	idx := resolveIndex(current, id, position)
	if idx < 0 {
		return &StaleIndexError{ID: id, Position: position, Len: len(current)}
	}
	next := make([]catalog.Product, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	s.snapshot.Products = next
	s.snapshot.LastError = nil
	s.log.Info("product deleted", zap.String("id", id), zap.Int("position", idx))
	return nil
}

func (s *Store) fetchLocked(ctx context.Context) ([]catalog.Product, error) {
	products, err := s.api.FetchProducts(ctx)
	if err == nil {
		err = checkUniqueIDs(products)
	}
	if err != nil {
		s.mu.Lock()
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = s.now()
		s.snapshot.ConsecutiveFailures++
		failures := s.snapshot.ConsecutiveFailures
		s.mu.Unlock()
		s.log.Warn("fetch products failed", zap.Error(err), zap.Int("consecutive_failures", failures))
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	// Build the new sequence first, then publish it in one assignment.
	fresh := catalog.Clone(products)

	s.mu.Lock()
	s.snapshot.Products = fresh
	s.snapshot.HasData = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = s.now()
	s.snapshot.ConsecutiveFailures = 0
	s.mu.Unlock()

	s.log.Debug("products fetched", zap.Int("count", len(fresh)))
	return catalog.Clone(fresh), nil
}

func (s *Store) locate(id string, position int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := resolveIndex(s.snapshot.Products, id, position)
	if idx < 0 {
		return -1, &StaleIndexError{ID: id, Position: position, Len: len(s.snapshot.Products)}
	}
	if idx != position {
		s.log.Debug("position moved", zap.String("id", id), zap.Int("requested", position), zap.Int("resolved", idx))
	}
	return idx, nil
}

func (s *Store) knownIDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{}, len(s.snapshot.Products))
	for _, p := range s.snapshot.Products {
		ids[p.ID] = struct{}{}
	}
	return ids
}

func (s *Store) recordError(err error) {
	s.mu.Lock()
	s.snapshot.LastError = err
	s.mu.Unlock()
	s.log.Warn("product operation failed", zap.Error(err))
}

// resolveIndex trusts position when it still points at id and otherwise
// searches by id. It returns -1 when id is not cached.
func resolveIndex(products []catalog.Product, id string, position int) int {
	if id == "" {
		return -1
	}
	if position >= 0 && position < len(products) && products[position].ID == id {
		return position
	}
	return catalog.IndexOf(products, id)
}

// checkUniqueIDs rejects a list in which an entry has no id or shares one
// with another entry. Either makes the list unusable for id-based lookups.
func checkUniqueIDs(products []catalog.Product) error {
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return &catalog.DecodeError{Err: fmt.Errorf("product at position %d has no id", i)}
		}
		if _, dup := seen[p.ID]; dup {
			return &catalog.DecodeError{Err: fmt.Errorf("duplicate product id %q", p.ID)}
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
