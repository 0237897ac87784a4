package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_, err := m.Get(ctx, "missing")
	assert.Equal(t, core.ErrCacheMiss, err)

	require.NoError(t, m.Set(ctx, "students:list:a", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "students:list:b", []byte("2"), 0))
	require.NoError(t, m.Set(ctx, "staff:list", []byte("3"), 0))

	val, err := m.Get(ctx, "students:list:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	t.Run("returned values are copies", func(t *testing.T) {
		val[0] = 'x'
		got, err := m.Get(ctx, "students:list:a")
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), got)
	})

	t.Run("expiry", func(t *testing.T) {
		now = now.Add(time.Minute)
		_, err := m.Get(ctx, "students:list:a")
		assert.Equal(t, core.ErrCacheMiss, err)
		_, err = m.Get(ctx, "students:list:b")
		assert.NoError(t, err)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("delete prefix", func(t *testing.T) {
		require.NoError(t, m.DeletePrefix(ctx, "students:"))
		_, err := m.Get(ctx, "students:list:b")
		assert.Equal(t, core.ErrCacheMiss, err)
		_, err = m.Get(ctx, "staff:list")
		assert.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, m.Delete(ctx, "staff:list", "unknown"))
		assert.Equal(t, 0, m.Len())
	})
}
