// Package state owns the mini cart's SyncState and publishes it to readers.
//
// # Overview
//
// The Store is the single authoritative holder of cart state. The
// synchronizer is its only writer; the UI and the local cache only ever see
// copies. Every transition replaces the published SyncState as a whole.
//
//	Synchronizer                     Readers
//	┌──────────────────┐            ┌──────────────────┐
//	│ BeginFetch()     │            │ Subscribe()      │
//	│ FinishFetch(seq) │───────────→│   <-ch           │
//	│ BeginMutation(k) │  (mutex)   │ Snapshot()       │
//	│ EndMutation(k)   │            │   render         │
//	└──────────────────┘            └──────────────────┘
//
// # Sequencing
//
// BeginFetch hands out a monotonically increasing sequence number. A fetch
// result is applied only if its number is higher than the last one published,
// so a slow response can never overwrite a newer snapshot. Reset invalidates
// every outstanding number.
//
// # Per-key mutations
//
// BeginMutation is an atomic check-and-claim. While a key is claimed any
// further BeginMutation for the same key reports false and the intent is
// dropped. Different keys proceed independently.
//
// # Loading
//
// IsLoading is derived, never set: it is true while any fetch or mutation is
// outstanding. A failed fetch therefore always returns IsLoading to false once
// its FailFetch is recorded.
//
// # Subscriptions
//
// Subscribe returns a channel with a buffer of one that always carries the
// latest state. Readers that fall behind skip intermediate states, which is
// what a renderer wants.
//
// # Warm start
//
// Warm installs a cached snapshot before the first network round trip. The
// state is flagged Warm until the first successful fetch replaces it, and
// Warm is refused once anything has been published.
package state
