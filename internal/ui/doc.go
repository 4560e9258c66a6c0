// Package ui provides the terminal interface for browsing and editing the
// product catalog.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds all view state and reads
// product data from a ProductStore (normally *state.Store). The UI never
// talks to the HTTP API directly.
//
// # Package Structure
//
//   - app.go: Model, Options, Init/Update/View and Run
//   - products.go: product table, header, command bar and status line
//   - commands.go: store calls wrapped in tea.Cmd and their results
//   - form.go, confirm.go: add/edit form and delete confirmation modals
//   - logs.go: activity log view over the zap log file
//   - help.go, keys.go: key bindings and the help overlay
//   - theme.go, style_helpers.go: color themes and background-safe rendering
//
// # Event Flow
//
//  1. A tick re-reads the store snapshot every second; the background poller
//     in package app keeps the snapshot fresh.
//  2. Add, edit, delete and refresh run the blocking store call inside a
//     tea.Cmd with the request timeout, and report back with opResultMsg.
//  3. While a call is in flight the header shows a busy marker and further
//     store calls are refused with a status message.
//  4. A stale position triggers a reload instead of retrying the mutation.
//
// # Preferences
//
// T cycles the theme and saves it, together with confirm_delete, to the
// preferences file.
package ui
