// Package syncer turns user intents and change signals into Store API calls
// and publishes the results through the state store.
package syncer

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/five82/minicart/internal/cart"
	"github.com/five82/minicart/internal/obs"
	"github.com/five82/minicart/internal/state"
	"github.com/five82/minicart/internal/storeapi"
)

// Intent names used in logs and metrics.
const (
	IntentUpdate = "update_item"
	IntentRemove = "remove_item"
)

// Persister receives every published snapshot and token. Implementations must
// not block and must not fail.
type Persister interface {
	SaveSnapshot(snap *cart.Snapshot)
	SaveToken(token string)
}

// Options configures a Synchronizer.
type Options struct {
	Client  storeapi.CartAPI
	Store   *state.Store
	Cache   Persister
	Logger  zerolog.Logger
	Metrics *obs.Metrics
	Tracer  trace.Tracer
}

// Synchronizer is the only writer of the state store.
type Synchronizer struct {
	client  storeapi.CartAPI
	store   *state.Store
	cache   Persister
	logger  zerolog.Logger
	metrics *obs.Metrics
	tracer  trace.Tracer
}

// New builds a Synchronizer. Client and Store are required.
func New(opts Options) *Synchronizer {
	store := opts.Store
	if store == nil {
		store = state.NewStore()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/five82/minicart/internal/syncer")
	}
	return &Synchronizer{
		client:  opts.Client,
		store:   store,
		cache:   opts.Cache,
		logger:  opts.Logger.With().Str("component", "syncer").Logger(),
		metrics: opts.Metrics,
		tracer:  tracer,
	}
}

// Store returns the state store the synchronizer publishes to.
func (s *Synchronizer) Store() *state.Store {
	return s.store
}

// ToggleOpen flips the open flag. It never touches the network.
func (s *Synchronizer) ToggleOpen() bool {
	return s.store.ToggleOpen()
}

// Refresh fetches the cart and publishes it unless a newer fetch already has.
// On failure the previous snapshot stays visible and the error is recorded.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "cart.refresh")
	defer span.End()

	seq := s.store.BeginFetch()
	span.SetAttributes(attribute.Int64("cart.seq", int64(seq)))

	raw, err := s.client.FetchCart(ctx)
	token := s.client.Token()
	if err != nil {
		s.store.SetToken(token)
		s.store.FailFetch(seq, err)
		s.metrics.RefreshOutcome("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		s.logger.Warn().Err(err).Uint64("seq", seq).Msg("cart_refresh_failed")
		return err
	}

	snap := cart.Normalize(raw, s.logger)
	if !s.store.FinishFetch(seq, snap, token) {
		s.metrics.RefreshOutcome("stale")
		s.logger.Debug().Uint64("seq", seq).Msg("cart_refresh_stale")
		s.persistToken(token)
		return nil
	}

	s.metrics.RefreshOutcome("published")
	s.logger.Debug().
		Uint64("seq", seq).
		Int("items", len(snap.Items)).
		Int("item_count", snap.ItemCount).
		Msg("cart_refreshed")
	if s.cache != nil {
		s.cache.SaveSnapshot(snap)
	}
	s.persistToken(token)
	return nil
}

// ChangeQuantity moves the quantity of key by delta. A result below one
// removes the line; anything else is clamped to the line's limits. Unknown
// keys and non-editable lines are ignored.
func (s *Synchronizer) ChangeQuantity(ctx context.Context, key string, delta int) error {
	item, ok := s.editable(key)
	if !ok {
		return nil
	}
	target := item.Quantity + delta
	if target < 1 {
		return s.mutate(ctx, key, IntentRemove, func(ctx context.Context) error {
			return s.client.RemoveItem(ctx, key)
		})
	}
	return s.updateTo(ctx, item, target)
}

// SetQuantity sets the quantity of key, clamped to the line's limits.
func (s *Synchronizer) SetQuantity(ctx context.Context, key string, value int) error {
	item, ok := s.editable(key)
	if !ok {
		return nil
	}
	return s.updateTo(ctx, item, value)
}

// SetQuantityInput is SetQuantity for raw text input. Input that is not a
// number becomes the line's minimum.
func (s *Synchronizer) SetQuantityInput(ctx context.Context, key, input string) error {
	item, ok := s.editable(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		value = item.Limits.Minimum
	}
	return s.updateTo(ctx, item, value)
}

// RemoveItem removes key from the cart. Unknown keys are ignored.
func (s *Synchronizer) RemoveItem(ctx context.Context, key string) error {
	if _, ok := s.find(key); !ok {
		return nil
	}
	return s.mutate(ctx, key, IntentRemove, func(ctx context.Context) error {
		return s.client.RemoveItem(ctx, key)
	})
}

func (s *Synchronizer) updateTo(ctx context.Context, item cart.LineItem, value int) error {
	quantity := item.Limits.Clamp(value)
	if quantity == item.Quantity {
		return nil
	}
	return s.mutate(ctx, item.Key, IntentUpdate, func(ctx context.Context) error {
		return s.client.UpdateItem(ctx, item.Key, quantity)
	})
}

// mutate runs call with key claimed, then refreshes. The claim is held until
// the trailing refresh resolves so a second intent cannot act on a quantity
// the server has already changed.
func (s *Synchronizer) mutate(ctx context.Context, key, intent string, call func(context.Context) error) error {
	if !s.store.BeginMutation(key) {
		s.metrics.IntentDropped(intent)
		s.logger.Debug().Str("key", key).Str("intent", intent).Msg("cart_intent_dropped")
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "cart."+intent, trace.WithAttributes(attribute.String("cart.key", key)))
	defer span.End()

	if err := s.ensureToken(ctx); err != nil {
		s.store.EndMutation(key, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no token")
		return err
	}

	err := call(ctx)
	s.store.SetToken(s.client.Token())
	if err != nil {
		s.store.EndMutation(key, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, intent+" failed")
		s.logger.Warn().Err(err).Str("key", key).Str("intent", intent).Msg("cart_mutation_failed")
		return err
	}
	defer s.store.EndMutation(key, nil)

	s.logger.Info().Str("key", key).Str("intent", intent).Msg("cart_mutated")
	return s.Refresh(ctx)
}

// ensureToken fetches once when no token is known yet; mutations are
// rejected by the store without one.
func (s *Synchronizer) ensureToken(ctx context.Context) error {
	if s.client.Token() != "" {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *Synchronizer) persistToken(token string) {
	if s.cache != nil && token != "" {
		s.cache.SaveToken(token)
	}
}

func (s *Synchronizer) find(key string) (cart.LineItem, bool) {
	current := s.store.Snapshot()
	item, ok := current.Snapshot.Find(key)
	if !ok {
		s.logger.Debug().Str("key", key).Msg("cart_intent_unknown_key")
	}
	return item, ok
}

func (s *Synchronizer) editable(key string) (cart.LineItem, bool) {
	item, ok := s.find(key)
	if ok && !item.Limits.Editable {
		s.logger.Debug().Str("key", key).Msg("cart_intent_not_editable")
		return item, false
	}
	return item, ok
}
