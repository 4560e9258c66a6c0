// Package app provides the orchestration layer for the stockroom client.
//
// # Overview
//
// This package wires together configuration, logging, the catalog client,
// the shared product cache, background polling and the UI. It is the
// composition root where all dependencies are initialized and connected.
//
// # Architecture
//
//  1. Load client configuration from ~/.config/stockroom/config.toml
//  2. Open the zap log file (the TUI owns the terminal)
//  3. Build the catalog.Client with its circuit breaker
//  4. Create the shared state.Store used by the UI and the poller
//  5. Populate the cache once; a failure is shown in the UI, not fatal
//  6. Launch the background poller
//  7. Start the TUI and block until the user exits or the context ends
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()       Read client config
//	       ├─────> logging.New()       JSON log file
//	       ├─────> catalog.NewClient() HTTP client + breaker
//	       ├─────> state.NewStore()    Shared product cache
//	       ├─────> StartPoller()       Launch background refreshes
//	       └─────> ui.Run()            Start TUI (blocks)
//
// # Polling Behavior
//
// The poller waits one interval, then calls Store.FetchAll. Failures are
// recorded in the store and logged; the next attempt backs off exponentially
// (interval × 2^failures, capped at 30 seconds). The UI reads snapshots at
// its own rate, so slow requests never block rendering.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Config file present but unreadable or invalid
//   - Log file cannot be opened
//   - Invalid base URL
//
// Recoverable errors (recorded in the store, shown in the UI):
//   - Backend unreachable at startup or during polling
//   - Failed create, update or delete
package app
