// Package state holds the local cache of the remote product collection.
//
// # Overview
//
// Store is the only place product data lives on the client. The poller and
// the UI both call into it: the poller refreshes it with FetchAll, the UI
// reads it with List and Snapshot and mutates it with Create, Update and
// Delete. Every mutation goes to the backend first; the cache changes only
// after the backend has accepted it.
//
// # Concurrency Model
//
// Two locks are involved:
//
//   - op (sync.Mutex): held for the full duration of FetchAll, Create,
//     Update and Delete, network call included. Mutations therefore apply
//     in the order they were issued and never interleave.
//   - mu (sync.RWMutex): guards the snapshot itself. Readers take it
//     briefly and never wait on the network.
//
// A refresh builds the new sequence completely and publishes it with a
// single assignment under mu, so readers see either the old or the new
// collection, never a mix.
//
// # Positions
//
// Update and Delete take the position the caller saw in its last List. The
// position is a hint: when it no longer points at the given id the entry is
// found by id instead. When the id is not cached at all the call returns a
// *StaleIndexError and no request is sent.
//
// # Create
//
// The backend answers a create with plain text, not the stored record.
// Create therefore refetches and returns the first product whose id was
// not cached before and whose name and price match. If none exists it
// returns ErrCreateNotVisible.
//
// # Error Propagation
//
// Errors are always returned to the caller. They are also recorded in the
// snapshot for display:
//
//   - LastError: most recent failure, cleared by the next success
//   - ConsecutiveFailures: failed fetches in a row, reset by a good fetch
//   - IsOffline: two or more failed fetches in a row
//
// A failed call never touches the cached products.
package state
