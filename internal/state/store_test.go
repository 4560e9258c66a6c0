package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/stockroom/internal/catalog"
)

// fakeAPI is an in-memory backend with per-verb failure injection.
type fakeAPI struct {
	mu       sync.Mutex
	products []catalog.Product
	nextID   int
	calls    []string

	fetchErr  error
	createErr error
	updateErr error
	deleteErr error

	dropCreates bool          // acknowledge creates without storing them
	duplicate   bool          // answer fetches with a repeated id
	blankIDs    bool          // store creates without an id
	fetchGate   chan struct{} // when set, FetchProducts waits on it
	entered     chan struct{}

	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeAPI(products ...catalog.Product) *fakeAPI {
	return &fakeAPI{products: products, nextID: 100}
}

func (f *fakeAPI) enter(call string) func() {
	n := f.inFlight.Add(1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	time.Sleep(time.Millisecond)
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	defer f.enter("fetch")()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.fetchGate != nil {
		<-f.fetchGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := append([]catalog.Product{}, f.products...)
	if f.duplicate && len(out) > 0 {
		out = append(out, out[0])
	}
	return out, nil
}

func (f *fakeAPI) CreateProduct(ctx context.Context, d catalog.Draft) (string, error) {
	defer f.enter("create")()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	if !f.dropCreates {
		f.nextID++
		id := strconv.Itoa(f.nextID)
		if f.blankIDs {
			id = ""
		}
		f.products = append(f.products, catalog.Product{ID: id, Name: d.Name, Price: d.Price})
	}
	return "Product created", nil
}

func (f *fakeAPI) UpdateProduct(ctx context.Context, p catalog.Product) (string, error) {
	defer f.enter("update " + p.ID)()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return "", f.updateErr
	}
	idx := catalog.IndexOf(f.products, p.ID)
	if idx < 0 {
		return "", &catalog.StatusError{Method: "PUT", Path: "/products/" + p.ID, Code: 404}
	}
	f.products[idx] = p
	return "Product updated", nil
}

func (f *fakeAPI) DeleteProduct(ctx context.Context, id string) error {
	defer f.enter("delete " + id)()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	idx := catalog.IndexOf(f.products, id)
	if idx < 0 {
		return &catalog.StatusError{Method: "DELETE", Path: "/products/" + id, Code: 404}
	}
	f.products = append(f.products[:idx], f.products[idx+1:]...)
	return nil
}

func seeded(t *testing.T, products ...catalog.Product) (*Store, *fakeAPI) {
	t.Helper()
	api := newFakeAPI(products...)
	s := NewStore(api, nil)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	return s, api
}

var (
	pen  = catalog.Product{ID: "1", Name: "Pen", Price: 2}
	mug  = catalog.Product{ID: "2", Name: "Mug", Price: 5}
	lamp = catalog.Product{ID: "3", Name: "Lamp", Price: 30}
)

func TestStore_ZeroState(t *testing.T) {
	s := NewStore(newFakeAPI(), nil)

	snap := s.Snapshot()
	assert.Empty(t, s.List())
	assert.False(t, snap.HasData)
	assert.Nil(t, snap.LastError)
	assert.False(t, snap.IsOffline())
}

func TestStore_FetchAllReplacesCache(t *testing.T) {
	s, api := seeded(t, pen, mug)
	assert.Equal(t, []catalog.Product{pen, mug}, s.List())

	api.mu.Lock()
	api.products = []catalog.Product{lamp}
	api.mu.Unlock()

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.Product{lamp}, got)
	assert.Equal(t, []catalog.Product{lamp}, s.List())
}

func TestStore_FetchAllIsIdempotent(t *testing.T) {
	s, _ := seeded(t, pen, mug)
	first := s.List()

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, s.List())
}

func TestStore_ListAndSnapshotReturnCopies(t *testing.T) {
	s, _ := seeded(t, pen, mug)

	list := s.List()
	list[0].Name = "mutated"
	snap := s.Snapshot()
	snap.Products[1].Price = 999

	assert.Equal(t, []catalog.Product{pen, mug}, s.List())
}

func TestStore_FetchFailureKeepsPreviousData(t *testing.T) {
	s, api := seeded(t, pen)

	before := time.Now()
	origErr := errors.New("boom")
	api.fetchErr = origErr

	_, err := s.FetchAll(context.Background())
	require.ErrorIs(t, err, origErr)

	snap := s.Snapshot()
	assert.Equal(t, []catalog.Product{pen}, snap.Products)
	assert.True(t, snap.HasData)
	assert.False(t, snap.LastUpdated.Before(before))
	require.Error(t, snap.LastError)
	assert.Equal(t, "boom", snap.LastError.Error())
	assert.NotSame(t, origErr, snap.LastError, "Snapshot should clone error instance")
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	s := NewStore(newFakeAPI(pen), nil)
	api := s.api.(*fakeAPI)
	api.fetchErr = &catalog.TransportError{Method: "GET", URL: "x", Err: errors.New("refused")}

	for i := 1; i <= 3; i++ {
		_, err := s.FetchAll(context.Background())
		require.Error(t, err)
		snap := s.Snapshot()
		assert.Equal(t, i, snap.ConsecutiveFailures)
		assert.Equal(t, i >= 2, snap.IsOffline(), "IsOffline after %d failures", i)
	}

	api.fetchErr = nil
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.False(t, snap.IsOffline())
	assert.Nil(t, snap.LastError)
}

func TestStore_DuplicateIDsRejected(t *testing.T) {
	s, api := seeded(t, pen, mug)
	api.duplicate = true

	_, err := s.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, catalog.IsDecode(err), "err = %v, want DecodeError", err)
	assert.Equal(t, []catalog.Product{pen, mug}, s.List())
}

func TestStore_MissingIDRejected(t *testing.T) {
	s, api := seeded(t, pen)
	api.blankIDs = true

	got, err := s.Create(context.Background(), "Mug", 5)
	require.Error(t, err)
	assert.True(t, catalog.IsDecode(err), "err = %v, want DecodeError", err)
	assert.Equal(t, catalog.Product{}, got)
	assert.Equal(t, []catalog.Product{pen}, s.List())
	assert.Equal(t, 1, s.Snapshot().ConsecutiveFailures)
}

func TestStore_Create(t *testing.T) {
	tests := []struct {
		name    string
		initial []catalog.Product
		draft   catalog.Draft
		want    []catalog.Product
	}{
		{
			name:  "into empty cache",
			draft: catalog.Draft{Name: "Mug", Price: 5},
			want:  []catalog.Product{{ID: "101", Name: "Mug", Price: 5}},
		},
		{
			name:    "appends after existing",
			initial: []catalog.Product{pen},
			draft:   catalog.Draft{Name: "Lamp", Price: 30},
			want:    []catalog.Product{pen, {ID: "101", Name: "Lamp", Price: 30}},
		},
		{
			name:    "same fields as existing product",
			initial: []catalog.Product{mug},
			draft:   catalog.Draft{Name: "Mug", Price: 5},
			want:    []catalog.Product{mug, {ID: "101", Name: "Mug", Price: 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			s, _ := seeded(t, tt.initial...)

			// when
			created, err := s.Create(context.Background(), tt.draft.Name, tt.draft.Price)

			// then
			require.NoError(t, err)
			assert.Equal(t, catalog.Product{ID: "101", Name: tt.draft.Name, Price: tt.draft.Price}, created)
			assert.Equal(t, tt.want, s.List())
		})
	}
}

func TestStore_CreateNotVisible(t *testing.T) {
	s, api := seeded(t, pen)
	api.dropCreates = true

	_, err := s.Create(context.Background(), "Ghost", 1)
	require.ErrorIs(t, err, ErrCreateNotVisible)
	assert.Equal(t, []catalog.Product{pen}, s.List())
}

func TestStore_CreateFailureLeavesCache(t *testing.T) {
	s, api := seeded(t, pen)
	api.createErr = &catalog.StatusError{Method: "POST", Path: "/products/create", Code: 500}

	_, err := s.Create(context.Background(), "Lamp", 30)
	var se *catalog.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []catalog.Product{pen}, s.List())
	assert.Equal(t, []string{"fetch", "create"}, api.callLog(), "no refetch after a failed create")
}

func TestStore_Update(t *testing.T) {
	s, api := seeded(t, pen, mug)

	updated, err := s.Update(context.Background(), pen.WithDraft(catalog.Draft{Name: "Pen", Price: 3}), 0)
	require.NoError(t, err)

	want := []catalog.Product{{ID: "1", Name: "Pen", Price: 3}, mug}
	assert.Equal(t, want[0], updated)
	assert.Equal(t, want, s.List())
	assert.Equal(t, []string{"fetch", "update 1"}, api.callLog(), "update must not refetch")
}

func TestStore_UpdateFailureLeavesCache(t *testing.T) {
	s, api := seeded(t, pen, mug)
	api.updateErr = &catalog.TransportError{Method: "PUT", URL: "x", Err: context.DeadlineExceeded}

	_, err := s.Update(context.Background(), catalog.Product{ID: "1", Name: "Pen", Price: 9}, 0)
	require.Error(t, err)
	assert.True(t, catalog.IsTransport(err))
	assert.Equal(t, []catalog.Product{pen, mug}, s.List())
	assert.Error(t, s.Snapshot().LastError)
}

func TestStore_Delete(t *testing.T) {
	s, _ := seeded(t, pen, mug, lamp)

	require.NoError(t, s.Delete(context.Background(), "2", 1))
	assert.Equal(t, []catalog.Product{pen, lamp}, s.List())
}

func TestStore_DeleteTransportFailureLeavesCache(t *testing.T) {
	s, api := seeded(t, pen, mug)
	api.deleteErr = &catalog.TransportError{Method: "DELETE", URL: "x", Err: errors.New("connection refused")}

	err := s.Delete(context.Background(), "1", 0)
	require.Error(t, err)
	assert.True(t, catalog.IsTransport(err))
	assert.Equal(t, []catalog.Product{pen, mug}, s.List())
}

func TestStore_DeleteEmptyResponseLeavesCache(t *testing.T) {
	s, api := seeded(t, pen)
	api.deleteErr = fmt.Errorf("delete product 1: %w", catalog.ErrEmptyResponse)

	err := s.Delete(context.Background(), "1", 0)
	require.ErrorIs(t, err, catalog.ErrEmptyResponse)
	assert.Equal(t, []catalog.Product{pen}, s.List())
}

func TestStore_StalePositionResolvedByID(t *testing.T) {
	s, _ := seeded(t, pen, mug, lamp)

	// Position 0 holds Pen, but the caller means Lamp.
	require.NoError(t, s.Delete(context.Background(), "3", 0))
	assert.Equal(t, []catalog.Product{pen, mug}, s.List())

	// Out of range positions are hints too.
	_, err := s.Update(context.Background(), catalog.Product{ID: "2", Name: "Mug", Price: 6}, 7)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Product{pen, {ID: "2", Name: "Mug", Price: 6}}, s.List())
}

func TestStore_UnknownIDSendsNoRequest(t *testing.T) {
	s, api := seeded(t, pen)

	err := s.Delete(context.Background(), "404", 0)
	var stale *StaleIndexError
	require.ErrorAs(t, err, &stale)
	assert.ErrorIs(t, err, ErrStaleIndex)
	assert.Equal(t, "404", stale.ID)
	assert.Equal(t, 1, stale.Len)

	_, err = s.Update(context.Background(), catalog.Product{ID: "404", Name: "x"}, 0)
	require.ErrorIs(t, err, ErrStaleIndex)

	_, err = s.Update(context.Background(), catalog.Product{Name: "no id"}, 0)
	require.ErrorIs(t, err, ErrStaleIndex)

	assert.Equal(t, []string{"fetch"}, api.callLog())
	assert.Equal(t, []catalog.Product{pen}, s.List())
}

func TestStore_MutationsAreSerialized(t *testing.T) {
	products := make([]catalog.Product, 10)
	for i := range products {
		products[i] = catalog.Product{ID: strconv.Itoa(i), Name: "p" + strconv.Itoa(i), Price: i}
	}
	s, api := seeded(t, products...)

	var wg sync.WaitGroup
	for i := range products {
		wg.Add(3)
		go func(p catalog.Product) {
			defer wg.Done()
			p.Price += 100
			_, _ = s.Update(context.Background(), p, 0)
		}(products[i])
		go func() {
			defer wg.Done()
			_, _ = s.FetchAll(context.Background())
		}()
		go func(i int) {
			defer wg.Done()
			_, _ = s.Create(context.Background(), "new"+strconv.Itoa(i), i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), api.maxSeen.Load(), "backend calls overlapped")

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, s.List(), 20)
	for _, p := range s.List()[:10] {
		assert.GreaterOrEqual(t, p.Price, 100, "update for %s lost", p.ID)
	}
}

func TestStore_ReadersDoNotWaitOnNetwork(t *testing.T) {
	s, api := seeded(t, pen)
	api.fetchGate = make(chan struct{})
	api.entered = make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.FetchAll(context.Background())
	}()
	<-api.entered

	listed := make(chan []catalog.Product, 1)
	go func() { listed <- s.List() }()

	select {
	case got := <-listed:
		assert.Equal(t, []catalog.Product{pen}, got)
	case <-time.After(time.Second):
		t.Fatal("List blocked behind an in-flight fetch")
	}

	close(api.fetchGate)
	<-done
}
