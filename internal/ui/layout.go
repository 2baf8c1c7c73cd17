package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which descriptions are hidden.
	LayoutCompactWidth = 80

	// LayoutMaxWidth caps the cart panel width on wide terminals.
	LayoutMaxWidth = 110
)

// Timing constants.
const (
	// StatusRefreshInterval re-renders relative timestamps ("updated 4s ago").
	StatusRefreshInterval = time.Second

	// IntentTimeout bounds a single user-triggered Store API round trip.
	IntentTimeout = 10 * time.Second
)
