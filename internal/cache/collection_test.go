package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/erp-reports/backend-go/internal/config"
	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (CollectionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewCollectionCache(config.CacheConfig{
		Enabled:              true,
		RedisURL:             "redis://" + mr.Addr(),
		CollectionTTLSeconds: 30,
	})
	require.NoError(t, err)
	return c, mr
}

func dateFilter(from, to string) *domain.Filter {
	f, _ := time.Parse("2006-01-02", from)
	tt, _ := time.Parse("2006-01-02", to)
	return &domain.Filter{FromDate: &f, ToDate: &tt}
}

func TestCollectionCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := CollectionKey{SessionID: "s1", Report: "invoices", DivisionID: "7", Filter: dateFilter("2024-03-01", "2024-03-07")}

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, &Collection{Items: []domain.Row{{"_id": "a", "totalAmount": 12.5}}, Total: 1}))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 12.5, got.Items[0]["totalAmount"])

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, 30*time.Second, mr.TTL(keys[0]))
}

func TestCollectionKeySeparatesQueries(t *testing.T) {
	base := CollectionKey{SessionID: "s1", Report: "sales", DivisionID: "7", Filter: dateFilter("2024-03-01", "2024-03-07")}

	other := []CollectionKey{
		{SessionID: "s2", Report: "sales", DivisionID: "7", Filter: base.Filter},
		{SessionID: "s1", Report: "sales", DivisionID: "1", Filter: base.Filter},
		{SessionID: "s1", Report: "sales", DivisionID: "7", Filter: dateFilter("2024-03-02", "2024-03-07")},
		{SessionID: "s1", Report: "sales", DivisionID: "7", Filter: base.Filter, Page: 2, Limit: 10},
		{SessionID: "s1", Report: "invoices", DivisionID: "7", Filter: base.Filter},
	}
	for _, k := range other {
		assert.NotEqual(t, buildCollectionKey(base), buildCollectionKey(k))
	}

	a := &domain.Filter{Extra: map[string]string{"status": "paid", "type": "cash"}}
	b := &domain.Filter{Extra: map[string]string{"type": "cash", "status": "paid"}}
	assert.Equal(t,
		buildCollectionKey(CollectionKey{Report: "sales", Filter: a}),
		buildCollectionKey(CollectionKey{Report: "sales", Filter: b}))
}

func TestInvalidateReport(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for _, session := range []string{"s1", "s2"} {
		require.NoError(t, c.Set(ctx, CollectionKey{SessionID: session, Report: "customers"}, &Collection{Total: 0}))
	}
	require.NoError(t, c.Set(ctx, CollectionKey{SessionID: "s1", Report: "customers-archive"}, &Collection{}))
	require.NoError(t, c.Set(ctx, CollectionKey{SessionID: "s1", Report: "products"}, &Collection{}))

	require.NoError(t, c.InvalidateReport(ctx, "customers"))

	_, ok, err := c.Get(ctx, CollectionKey{SessionID: "s1", Report: "customers"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, mr.Keys(), 2)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewCollectionCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, CollectionKey{Report: "sales"}, &Collection{Total: 3}))
	_, ok, err := c.Get(ctx, CollectionKey{Report: "sales"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.InvalidateReport(ctx, "sales"))
}
