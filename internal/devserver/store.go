package devserver

import (
	"sync"

	"github.com/google/uuid"

	"github.com/five82/stockroom/internal/catalog"
)

// MemStore keeps products in insertion order. Ids are random UUIDs.
type MemStore struct {
	mu       sync.RWMutex
	products []catalog.Product
	newID    func() string
}

// NewMemStore returns a store holding seed in order, each under a fresh id.
func NewMemStore(seed ...catalog.Draft) *MemStore {
	s := &MemStore{newID: uuid.NewString}
	for _, d := range seed {
		s.Create(d)
	}
	return s
}

// DefaultSeed is the sample data loaded with -seed.
func DefaultSeed() []catalog.Draft {
	return []catalog.Draft{
		{Name: "Pen", Price: 2},
		{Name: "Mug", Price: 5},
		{Name: "Lamp", Price: 30},
	}
}

// List returns a copy of every product in insertion order.
func (s *MemStore) List() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Create appends d under a new id and returns the stored product.
func (s *MemStore) Create(d catalog.Draft) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := catalog.Product{ID: s.newID(), Name: d.Name, Price: d.Price}
	s.products = append(s.products, p)
	return p
}

// Update replaces the product's fields in place. It reports false when the
// id is unknown.
func (s *MemStore) Update(id string, d catalog.Draft) (catalog.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := catalog.IndexOf(s.products, id)
	if idx < 0 {
		return catalog.Product{}, false
	}
	s.products[idx] = s.products[idx].WithDraft(d)
	return s.products[idx], true
}

// Delete removes the product, keeping the order of the rest. It reports
// false when the id is unknown.
func (s *MemStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := catalog.IndexOf(s.products, id)
	if idx < 0 {
		return false
	}
	s.products = append(s.products[:idx], s.products[idx+1:]...)
	return true
}

// Len reports how many products are stored.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
