package cache

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/forensia/internal/model"
)

func TestReportKey(t *testing.T) {
	k := ReportKey("a.db", "ecosystem", 0, 42)

	assert.True(t, strings.HasPrefix(k, KeyPrefix))
	assert.Equal(t, k, ReportKey("a.db", "ecosystem", 0, 42))
	assert.NotEqual(t, k, ReportKey("a.db", "ecosystem", 0, 43), "revision bump misses")
	assert.NotEqual(t, k, ReportKey("a.db", "source", 0, 42))
	assert.NotEqual(t, ReportKey("a.db", "source", 1, 42), ReportKey("a.db", "source", 2, 42))
	assert.NotEqual(t, k, ReportKey("b.db", "ecosystem", 0, 42), "stores never share entries")
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	val := []byte("report")
	require.NoError(t, c.Set("k", val, 0))

	val[0] = 'X'
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "report", string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("forensia:v1:abc", []byte(`{"a":1}`), 0))
	got, ok := c.Get("forensia:v1:abc")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))

	now = now.Add(2 * time.Hour)
	_, ok = c.Get("forensia:v1:abc")
	assert.False(t, ok)

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "expired entry removed")

	assert.NoError(t, c.Delete("never-set"))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	warm := NewLayeredCache(time.Minute, dir, time.Hour)
	require.NoError(t, warm.Set("k", []byte("v"), 0))

	cold := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := cold.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	mem, ok := cold.memory.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(mem))

	require.NoError(t, cold.Clear())
	_, ok = cold.Get("k")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	in := model.CoordinationSummary{TotalEvents: 3, HighestScore: 0.8}
	require.NoError(t, SetJSON(c, "sum", in, 0))

	var out model.CoordinationSummary
	require.True(t, GetJSON(c, "sum", &out))
	assert.Equal(t, 3, out.TotalEvents)

	require.NoError(t, c.Set("bad", []byte("{"), 0))
	assert.False(t, GetJSON(c, "bad", &out))
	_, ok := c.Get("bad")
	assert.False(t, ok, "corrupt entry evicted")
}

func TestFromConfig(t *testing.T) {
	assert.Nil(t, FromConfig(model.CacheConfig{Enabled: false}))

	_, isMemory := FromConfig(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute}).(*MemoryCache)
	assert.True(t, isMemory)

	_, isLayered := FromConfig(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute}).(*LayeredCache)
	assert.True(t, isLayered)
}
