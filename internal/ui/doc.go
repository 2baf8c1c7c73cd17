// Package ui renders the minicart terminal interface with Bubble Tea.
//
// # Model
//
// Model holds only presentation state: the selected line, the quantity being
// typed, the theme and the terminal size. Everything about the cart itself
// comes from the state.SyncState values published by the store, delivered
// through Options.Updates. The model never edits a snapshot; it renders the
// last one it received.
//
// # Intents
//
// Key presses become calls on the Intents interface, run as tea.Cmd values
// with IntentTimeout. Their results are not applied directly. The
// synchronizer publishes a new state and the screen follows it, so a failed
// or dropped intent simply leaves the previous cart on screen.
//
// # Layout
//
//   - Header: title, sync badge (idle, fetching, mutating, cached, offline),
//     spinner while loading and the age of the last refresh
//   - Collapsed: item count and total
//   - Open: "Your cart (N items)", one block per line with price, sale
//     savings, quantity controls and description, then the totals
//   - Footer: short key help
//
// Descriptions are hidden below LayoutCompactWidth.
//
// # Key Bindings
//
//   - o: Open or close the cart
//   - j/k, g/G: Select a line
//   - +/-: Change quantity by one (below the minimum removes the line)
//   - enter: Type a quantity, enter again to apply, esc to cancel
//   - x: Remove the selected line
//   - r: Refresh now
//   - T: Cycle theme
//   - h or ?: Toggle help
//   - e or Ctrl+C: Exit
package ui
