package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/forensics"
	"github.com/drpramila84/600-commanddiscord/internal/state"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Bot.Token = "test-token"
	cfg.Database.Path = filepath.Join(t.TempDir(), "antinuke.db")
	cfg.Metrics.Enabled = false
	return cfg
}

func TestNewCounterStore_Memory(t *testing.T) {
	store, closer, err := NewCounterStore(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &state.MemoryCounterStore{}, store)
}

func TestNewCounterStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Counters.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()

	store, closer, err := NewCounterStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	n, err := store.Record(context.Background(), state.RaidKey("g1"), time.Now(), 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewCounterStore_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Counters.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 100 * time.Millisecond

	_, _, err := NewCounterStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewCounterStore_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Counters.Backend = "etcd"

	_, _, err := NewCounterStore(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown counter backend")
}

func TestNewAuditSource_Breaker(t *testing.T) {
	raw := forensics.NewAuditLogFetcher(nil, time.Second)

	assert.Same(t, forensics.AuditSource(raw), NewAuditSource(raw, config.BreakerConfig{}))
	assert.IsType(t, &forensics.BreakerAuditSource{}, NewAuditSource(raw, config.BreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Second}))
}

func TestWire_RequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bot.Token = ""

	err := Wire(context.Background(), New(cfg))
	assert.ErrorIs(t, err, config.ErrMissingToken)
}

func TestWire_BuildsComponentsOffline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	b := New(cfg)

	require.NoError(t, Wire(context.Background(), b))
	c := b.Components
	require.NotNil(t, c)
	assert.NotNil(t, c.Engine)
	assert.NotNil(t, c.Exporter)
	assert.IsType(t, &forensics.BreakerAuditSource{}, c.Audit)

	settings, err := c.Database.Load(context.Background(), "g1")
	require.NoError(t, err)
	assert.False(t, settings.Enabled)

	c.Session = nil
	c.Exporter = nil
	require.NoError(t, Shutdown(context.Background(), c))
	assert.Error(t, c.Database.Ping(context.Background()))
}
