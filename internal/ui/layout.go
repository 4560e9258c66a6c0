package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the header drops the base URL.
	LayoutCompactWidth = 80

	// LayoutIDWidth is the minimum width to show the id column.
	LayoutIDWidth = 100
)

// Table geometry.
const (
	indexColumnWidth = 4
	priceColumnWidth = 10
	idColumnWidth    = 36
)

// Log display limits.
const (
	// LogTailLines is the number of log lines read for the activity view.
	LogTailLines = 500
)

// Timing constants.
const (
	// DefaultUIInterval is how often the UI re-reads the store snapshot.
	DefaultUIInterval = time.Second

	// StatusMessageTTL is how long a transient status message stays visible.
	StatusMessageTTL = 8 * time.Second
)
