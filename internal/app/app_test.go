package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/five82/minicart/internal/cache"
	"github.com/five82/minicart/internal/cart"
	"github.com/five82/minicart/internal/config"
	"github.com/five82/minicart/internal/state"
	"github.com/five82/minicart/internal/storeapi"
)

func TestNewCacheBackendFile(t *testing.T) {
	cfg := config.Default()
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")

	backend, err := newCacheBackend(cfg, nil)
	require.NoError(t, err)
	fb, ok := backend.(*cache.FileBackend)
	require.True(t, ok)
	require.Equal(t, cfg.CacheDir, fb.Dir())
}

func TestNewCacheBackendRedisNeedsClient(t *testing.T) {
	cfg := config.Default()
	cfg.CacheBackend = config.CacheRedis

	_, err := newCacheBackend(cfg, nil)
	require.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	cfg := config.Default()
	rdb, err := newRedisClient(cfg)
	require.NoError(t, err)
	require.Nil(t, rdb)

	cfg.RedisURL = "not a url"
	_, err = newRedisClient(cfg)
	require.Error(t, err)

	mr := miniredis.RunT(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	rdb, err = newRedisClient(cfg)
	require.NoError(t, err)
	defer rdb.Close()
	require.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestWarmStartRestoresCachedCart(t *testing.T) {
	backend, err := cache.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	c := cache.New(backend, zerolog.Nop(), nil)
	c.SaveSnapshot(&cart.Snapshot{Items: []cart.LineItem{{Key: "a", Quantity: 2}}, ItemCount: 2})
	c.SaveToken("nonce-1")
	c.Flush()

	store := state.NewStore()
	client, err := storeapi.NewClient(storeapi.Options{StoreURL: "http://shop.test"})
	require.NoError(t, err)

	warmStart(context.Background(), c, store, client, zerolog.Nop())

	s := store.Snapshot()
	require.True(t, s.Warm)
	require.Equal(t, "nonce-1", s.Token)
	require.Equal(t, 2, s.Snapshot.ItemCount)
	require.Equal(t, "nonce-1", client.Token())
	require.NoError(t, c.Close())
}

func TestNotifyPublishesOnChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := "redis_url = \"redis://" + mr.Addr() + "\"\nredis_channel = \"shop:changed\"\ncache_dir = \"" + dir + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	rdb, err := newRedisClient(cfg)
	require.NoError(t, err)
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sub := rdb.Subscribe(ctx, "shop:changed")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, Notify(ctx, Options{ConfigPath: path}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, msg.Payload)
}

func TestNotifyWithoutRedis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("cache_dir = \""+dir+"\"\n"), 0o644))

	err := Notify(context.Background(), Options{ConfigPath: path})
	require.ErrorContains(t, err, "redis_url")
}
