// Package app is the composition root for minicart.
//
// # Startup
//
// Run wires the pieces in dependency order:
//
//  1. config.Load reads config.toml, .env and MINICART_* variables
//  2. obs sets up the zerolog file logger, a Prometheus registry and tracing
//  3. storeapi.NewClient builds the Store API client
//  4. The cache backend (file or Redis) is opened and the cached cart and
//     token warm the state.Store
//  5. syncer.New ties client, store and cache together
//  6. Preferences restore the open flag and theme
//  7. The coalescer, poller and change sources start in the background
//  8. The first refresh is issued and ui.Run blocks until the user quits
//
// Deferred shutdown flushes the cache, closes Redis and flushes traces.
//
// # Data Flow
//
//	┌──────────┐  intents   ┌──────────────┐  HTTP  ┌───────────┐
//	│    ui    │ ─────────> │    syncer    │ ─────> │ Store API │
//	└────▲─────┘            └──────┬───────┘        └───────────┘
//	     │ SyncState               │ publish / persist
//	┌────┴─────┐            ┌──────▼───────┐
//	│  state   │ <───────── │    cache     │ (warm start)
//	└──────────┘            └──────────────┘
//
//	poller ──────────────────────────> syncer.Refresh
//	redis / http signals ─> coalescer ─> syncer.Refresh
//
// # Error Handling
//
// Fatal (returned from Run): invalid configuration, an unusable log file,
// cache directory or Redis URL, and tracing exporter setup failures.
//
// Recoverable (logged, state keeps the last good cart): every Store API
// failure after startup, cache write failures and signal source errors.
//
// # Notify
//
// Notify publishes one cart-changed message on the Redis channel so other
// running instances refresh, for use from shop-side hooks or scripts.
package app
