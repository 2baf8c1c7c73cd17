package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/five82/minicart/internal/cart"
	"github.com/five82/minicart/internal/obs"
	"github.com/five82/minicart/internal/state"
	"github.com/five82/minicart/internal/storeapi"
)

type update struct {
	key      string
	quantity int
}

type fakeAPI struct {
	mu       sync.Mutex
	cart     *storeapi.Cart
	fetchErr error
	mutErr   error
	token    string
	fetches  int
	updates  []update
	removes  []string

	// gate, when set, blocks mutations until closed. entered receives one
	// value per mutation that reached the gate.
	gate    chan struct{}
	entered chan struct{}
}

var _ storeapi.CartAPI = (*fakeAPI)(nil)

func (f *fakeAPI) FetchCart(context.Context) (*storeapi.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.token == "" {
		f.token = "nonce-from-fetch"
	}
	return f.cart, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, key string, quantity int) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update{key, quantity})
	return f.mutErr
}

func (f *fakeAPI) RemoveItem(_ context.Context, key string) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, key)
	return f.mutErr
}

func (f *fakeAPI) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) calls() (int, []update, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches, append([]update(nil), f.updates...), append([]string(nil), f.removes...)
}

type memCache struct {
	mu     sync.Mutex
	snaps  []*cart.Snapshot
	tokens []string
}

func (c *memCache) SaveSnapshot(snap *cart.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, snap)
}

func (c *memCache) SaveToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, token)
}

func rawCart(quantity int, limits *storeapi.QuantityLimits) *storeapi.Cart {
	return &storeapi.Cart{
		ItemsCount: quantity,
		Items: []storeapi.Item{{
			Key:            "line-1",
			Name:           "Socks",
			Quantity:       quantity,
			QuantityLimits: limits,
			Prices: &storeapi.ItemPrices{
				RegularPrice: storeapi.Amount{Value: 1000, Present: true},
				SalePrice:    storeapi.Amount{Value: 800, Present: true},
			},
		}},
	}
}

func newSynchronizer(t *testing.T, api *fakeAPI) (*Synchronizer, *memCache, *obs.Metrics) {
	t.Helper()
	cache := &memCache{}
	metrics := obs.NewMetrics("test", prometheus.NewRegistry())
	s := New(Options{
		Client:  api,
		Store:   state.NewStore(),
		Cache:   cache,
		Logger:  zerolog.Nop(),
		Metrics: metrics,
	})
	return s, cache, metrics
}

func primed(t *testing.T, api *fakeAPI) (*Synchronizer, *memCache, *obs.Metrics) {
	t.Helper()
	s, cache, metrics := newSynchronizer(t, api)
	require.NoError(t, s.Refresh(context.Background()))
	return s, cache, metrics
}

func TestRefreshPublishesAndPersists(t *testing.T) {
	api := &fakeAPI{cart: rawCart(2, nil), token: "n1"}
	s, cache, metrics := primed(t, api)

	st := s.Store().Snapshot()
	require.NotNil(t, st.Snapshot)
	require.False(t, st.IsEmpty)
	require.False(t, st.IsLoading)
	require.Equal(t, "n1", st.Token)
	require.Equal(t, "4,00 ", st.Snapshot.Items[0].FormattedTotalDiscount)

	require.Len(t, cache.snaps, 1)
	require.Equal(t, []string{"n1"}, cache.tokens)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("published")))
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	api := &fakeAPI{cart: rawCart(2, nil), token: "n1"}
	s, cache, metrics := primed(t, api)
	before := s.Store().Snapshot()

	api.mu.Lock()
	api.fetchErr = &storeapi.NetworkError{Op: storeapi.OpFetch, Status: 503}
	api.mu.Unlock()

	err := s.Refresh(context.Background())
	var netErr *storeapi.NetworkError
	require.ErrorAs(t, err, &netErr)

	after := s.Store().Snapshot()
	require.Equal(t, before.Snapshot, after.Snapshot)
	require.False(t, after.IsLoading)
	require.Error(t, after.LastError)
	require.Len(t, cache.snaps, 1)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("failed")))
}

func TestChangeQuantityBelowOneRemoves(t *testing.T) {
	api := &fakeAPI{cart: rawCart(1, nil), token: "n1"}
	s, _, _ := primed(t, api)

	require.NoError(t, s.ChangeQuantity(context.Background(), "line-1", -1))

	_, updates, removes := api.calls()
	require.Empty(t, updates)
	require.Equal(t, []string{"line-1"}, removes)
}

func TestChangeQuantityClampsToMaximum(t *testing.T) {
	api := &fakeAPI{cart: rawCart(4, &storeapi.QuantityLimits{Minimum: 1, Maximum: 5}), token: "n1"}
	s, _, _ := primed(t, api)

	require.NoError(t, s.ChangeQuantity(context.Background(), "line-1", 10))

	fetches, updates, _ := api.calls()
	require.Equal(t, []update{{"line-1", 5}}, updates)
	require.Equal(t, 2, fetches, "mutation should trigger a trailing refresh")
}

func TestChangeQuantityAtBoundIsNoop(t *testing.T) {
	api := &fakeAPI{cart: rawCart(5, &storeapi.QuantityLimits{Minimum: 1, Maximum: 5}), token: "n1"}
	s, _, _ := primed(t, api)

	require.NoError(t, s.ChangeQuantity(context.Background(), "line-1", 1))

	_, updates, _ := api.calls()
	require.Empty(t, updates)
}

func TestSetQuantityClamps(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{"zero clamps to minimum", 0, 2},
		{"huge clamps to maximum", 999999, 50},
		{"within range", 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{cart: rawCart(3, &storeapi.QuantityLimits{Minimum: 2, Maximum: 50}), token: "n1"}
			s, _, _ := primed(t, api)

			require.NoError(t, s.SetQuantity(context.Background(), "line-1", tt.value))

			_, updates, removes := api.calls()
			require.Empty(t, removes)
			require.Equal(t, []update{{"line-1", tt.want}}, updates)
		})
	}
}

func TestSetQuantityInputNonNumericUsesMinimum(t *testing.T) {
	api := &fakeAPI{cart: rawCart(3, &storeapi.QuantityLimits{Minimum: 2, Maximum: 50}), token: "n1"}
	s, _, _ := primed(t, api)

	require.NoError(t, s.SetQuantityInput(context.Background(), "line-1", "lots"))
	require.NoError(t, s.SetQuantityInput(context.Background(), "line-1", " 9 "))

	_, updates, _ := api.calls()
	require.Equal(t, []update{{"line-1", 2}, {"line-1", 9}}, updates)
}

func TestUnknownKeyIsNoop(t *testing.T) {
	api := &fakeAPI{cart: rawCart(1, nil), token: "n1"}
	s, _, _ := primed(t, api)
	ctx := context.Background()

	require.NoError(t, s.ChangeQuantity(ctx, "missing", 1))
	require.NoError(t, s.SetQuantity(ctx, "missing", 3))
	require.NoError(t, s.RemoveItem(ctx, "missing"))

	fetches, updates, removes := api.calls()
	require.Equal(t, 1, fetches)
	require.Empty(t, updates)
	require.Empty(t, removes)
}

func TestNonEditableLineIgnoresQuantityIntents(t *testing.T) {
	locked := false
	api := &fakeAPI{cart: rawCart(1, &storeapi.QuantityLimits{Minimum: 1, Maximum: 1, Editable: &locked}), token: "n1"}
	s, _, _ := primed(t, api)

	require.NoError(t, s.ChangeQuantity(context.Background(), "line-1", 1))
	require.NoError(t, s.RemoveItem(context.Background(), "line-1"))

	_, updates, removes := api.calls()
	require.Empty(t, updates)
	require.Equal(t, []string{"line-1"}, removes)
}

func TestRapidSameKeyIntentsSendOneRequest(t *testing.T) {
	api := &fakeAPI{cart: rawCart(1, &storeapi.QuantityLimits{Minimum: 1, Maximum: 10}), token: "n1"}
	s, _, metrics := primed(t, api)

	api.gate = make(chan struct{})
	api.entered = make(chan struct{}, 4)

	done := make(chan error, 1)
	go func() { done <- s.ChangeQuantity(context.Background(), "line-1", 1) }()

	select {
	case <-api.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first mutation never reached the client")
	}
	require.True(t, s.Store().Snapshot().IsMutating("line-1"))

	require.NoError(t, s.ChangeQuantity(context.Background(), "line-1", 1))
	close(api.gate)
	require.NoError(t, <-done)

	_, updates, _ := api.calls()
	require.Equal(t, []update{{"line-1", 2}}, updates)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.DroppedIntents.WithLabelValues(IntentUpdate)))
	require.False(t, s.Store().Snapshot().IsLoading)
}

func TestMutationFailureKeepsSnapshot(t *testing.T) {
	api := &fakeAPI{cart: rawCart(2, nil), token: "n1"}
	s, _, _ := primed(t, api)
	before := s.Store().Snapshot()

	api.mu.Lock()
	api.mutErr = &storeapi.MutationError{Op: storeapi.OpUpdate, Key: "line-1", Status: 409}
	api.mu.Unlock()

	err := s.ChangeQuantity(context.Background(), "line-1", 1)
	var mutErr *storeapi.MutationError
	require.ErrorAs(t, err, &mutErr)

	after := s.Store().Snapshot()
	require.Equal(t, before.Snapshot, after.Snapshot)
	require.False(t, after.IsLoading)
	require.Empty(t, after.Mutating)
	require.ErrorAs(t, after.LastError, &mutErr)

	fetches, _, _ := api.calls()
	require.Equal(t, 1, fetches, "failed mutation must not refresh")
}

func TestMutationWithoutTokenFetchesFirst(t *testing.T) {
	api := &fakeAPI{cart: rawCart(2, nil)}
	s, _, _ := newSynchronizer(t, api)
	s.Store().Warm(cart.Normalize(rawCart(2, nil), zerolog.Nop()), "")

	require.NoError(t, s.RemoveItem(context.Background(), "line-1"))

	fetches, _, removes := api.calls()
	require.Equal(t, []string{"line-1"}, removes)
	require.Equal(t, 2, fetches)
	require.Equal(t, "nonce-from-fetch", s.Store().Snapshot().Token)
}

func TestToggleOpenHasNoNetworkEffect(t *testing.T) {
	api := &fakeAPI{}
	s, _, _ := newSynchronizer(t, api)

	require.True(t, s.ToggleOpen())
	require.False(t, s.ToggleOpen())

	fetches, _, _ := api.calls()
	require.Zero(t, fetches)
}

func TestRefreshFailureBeforeFirstPublish(t *testing.T) {
	api := &fakeAPI{fetchErr: errors.New("dial tcp: refused")}
	s, _, _ := newSynchronizer(t, api)

	require.Error(t, s.Refresh(context.Background()))
	st := s.Store().Snapshot()
	require.Nil(t, st.Snapshot)
	require.Equal(t, 1, st.ConsecutiveFailures)
}
