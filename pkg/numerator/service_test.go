package numerator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "retailpos/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates a single sys_sequences row.
type mockQuerier struct {
	mu    sync.Mutex
	value int64
	calls int
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	switch {
	case strings.Contains(sql, "current_val + $2"):
		m.value += args[1].(int64)
	case strings.Contains(sql, "current_val = $2"):
		m.value = args[1].(int64)
	default:
		m.value++
	}
	return &mockRow{val: m.value}
}

var period = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := core.DefaultConfig("RCP")

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-00002", num)
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := core.DefaultConfig("RCP")
	opts := &core.Options{Strategy: core.StrategyCached, RangeSize: 10}

	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-00001", num)
	assert.Equal(t, int64(10), q.value)

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-00002", num)
	assert.Equal(t, 1, q.calls, "second number must come from the reserved range")

	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, period)
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-00011", num)
	assert.Equal(t, int64(20), q.value)
	assert.Equal(t, 2, q.calls)
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := core.DefaultConfig("RCP")
	opts := &core.Options{Strategy: core.StrategyCached, RangeSize: 10}

	_, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)

	require.NoError(t, svc.SetNextNumber(ctx, cfg, period, 100))

	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-00101", num)
}

func TestGetNextNumber_ConcurrentCachedIsUnique(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	cfg := core.DefaultConfig("RCP")
	opts := &core.Options{Strategy: core.StrategyCached, RangeSize: 7}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.GetNextNumber(context.Background(), cfg, opts, period)
			assert.NoError(t, err)
			mu.Lock()
			seen[num] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("RCP-2026-00042"))
	assert.Equal(t, int64(7), ParseNumber("RCP-00007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
}
