package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/gw-invoicer/db/kvdb"
)

func TestListOps(t *testing.T) {
	ctx := context.Background()
	c := New()
	for _, v := range []string{"a", "b", "a", "c", "a"} {
		require.NoError(t, c.Push(ctx, "runs", v))
	}

	n, err := c.Len(ctx, "runs")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{"all", 0, -1, []string{"a", "b", "a", "c", "a"}},
		{"head", 0, 1, []string{"a", "b"}},
		{"tail", -2, -1, []string{"c", "a"}},
		{"stop past end", 3, 100, []string{"c", "a"}},
		{"empty", 4, 2, []string{}},
		{"start past end", 10, 20, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Range(ctx, "runs", tt.start, tt.stop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	removed, err := c.Remove(ctx, "runs", -1, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	got, _ := c.Range(ctx, "runs", 0, -1)
	assert.Equal(t, []string{"a", "b", "a", "c"}, got)

	removed, err = c.Remove(ctx, "runs", 0, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	require.NoError(t, c.Trim(ctx, "runs", -1, -1))
	got, _ = c.Range(ctx, "runs", 0, -1)
	assert.Equal(t, []string{"c"}, got)

	require.NoError(t, c.Trim(ctx, "runs", 5, 10))
	exists, _ := c.Exists(ctx, "runs")
	assert.False(t, exists, "trimming everything removes the key")
}

func TestHashOps(t *testing.T) {
	ctx := context.Background()
	c := New()

	all, err := c.GetAllFields(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, c.SetFields(ctx, "run", map[string]any{"status": "running", "count": 3}))
	require.NoError(t, c.SetFields(ctx, "run", map[string]any{"status": "done"}))

	v, ok, err := c.GetField(ctx, "run", "status")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "done", v)

	_, ok, err = c.GetField(ctx, "run", "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err = c.GetAllFields(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"status": "done", "count": "3"}, all)

	assert.ErrorIs(t, c.Push(ctx, "run", "x"), kvdb.ErrWrongType)
}

func TestExpireAndDelete(t *testing.T) {
	ctx := context.Background()
	c := New()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetFields(ctx, "k", map[string]any{"f": "v"}))
	ok, err := c.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(59 * time.Second)
	exists, _ := c.Exists(ctx, "k")
	assert.True(t, exists)

	now = now.Add(time.Second)
	exists, _ = c.Exists(ctx, "k")
	assert.False(t, exists)

	ok, _ = c.Expire(ctx, "k", time.Minute)
	assert.False(t, ok)

	require.NoError(t, c.Push(ctx, "a", "1"))
	require.NoError(t, c.Push(ctx, "b", "1"))
	n, err := c.Delete(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMoveToTail(t *testing.T) {
	ctx := context.Background()
	c := New()
	for _, v := range []string{"a", "b", "a", "c"} {
		require.NoError(t, c.Push(ctx, "runs", v))
	}

	require.NoError(t, c.MoveToTail(ctx, "runs", "a", 0))
	all, err := c.Range(ctx, "runs", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, all)

	require.NoError(t, c.MoveToTail(ctx, "runs", "d", 2))
	all, err = c.Range(ctx, "runs", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, all)

	require.NoError(t, c.SetFields(ctx, "hash", map[string]any{"f": 1}))
	assert.ErrorIs(t, c.MoveToTail(ctx, "hash", "x", 1), kvdb.ErrWrongType)
}

func TestSetFieldsExpire(t *testing.T) {
	ctx := context.Background()
	c := New()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetFieldsExpire(ctx, "k", map[string]any{"status": "running"}, time.Hour))
	require.NoError(t, c.SetFieldsExpire(ctx, "k", map[string]any{"stage": "items"}, 0))

	now = now.Add(30 * time.Minute)
	all, err := c.GetAllFields(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"status": "running", "stage": "items"}, all)

	now = now.Add(30 * time.Minute)
	all, err = c.GetAllFields(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, all)
}
