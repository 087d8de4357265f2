package liveness

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)

func newTestTable(timeout time.Duration) *Table {
	return New(zerolog.New(io.Discard), timeout)
}

func TestRecord_Idempotent(t *testing.T) {
	table := newTestTable(2 * time.Minute)

	table.Record("desk", t0)
	table.Record("desk", t0)

	snap := table.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "desk", snap[0].Hostname)
	assert.Equal(t, t0, snap[0].LastSeen)
}

func TestRecord_RefreshesTimestamp(t *testing.T) {
	table := newTestTable(2 * time.Minute)

	table.Record("desk", t0)
	table.Record("desk", t0.Add(time.Minute))

	snap := table.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, t0.Add(time.Minute), snap[0].LastSeen)
}

func TestRecord_StoresUTC(t *testing.T) {
	table := newTestTable(time.Minute)
	local := t0.In(time.FixedZone("CET", 3600))

	table.Record("desk", local)

	assert.Equal(t, time.UTC, table.Snapshot()[0].LastSeen.Location())
}

func TestSweep(t *testing.T) {
	tests := []struct {
		name       string
		age        time.Duration
		wantActive bool
	}{
		{name: "fresh", age: 0, wantActive: true},
		{name: "just below timeout", age: 2*time.Minute - time.Second, wantActive: true},
		{name: "exactly timeout", age: 2 * time.Minute, wantActive: false},
		{name: "well past timeout", age: time.Hour, wantActive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTestTable(2 * time.Minute)
			table.Record("desk", t0)

			active := table.Sweep(t0.Add(tt.age))

			assert.Equal(t, tt.wantActive, active)
			if tt.wantActive {
				assert.Equal(t, 1, table.Len())
			} else {
				assert.Zero(t, table.Len())
			}
		})
	}
}

func TestSweep_EmptyTable(t *testing.T) {
	assert.False(t, newTestTable(time.Minute).Sweep(t0))
}

func TestSweep_EvictsOnlyStale(t *testing.T) {
	table := newTestTable(2 * time.Minute)
	table.Record("laptop", t0)
	table.Record("desk", t0.Add(90*time.Second))

	active := table.Sweep(t0.Add(2 * time.Minute))

	assert.True(t, active)
	snap := table.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "desk", snap[0].Hostname)
}

func TestSnapshot_SortedCopy(t *testing.T) {
	table := newTestTable(time.Minute)
	table.Record("zeta", t0)
	table.Record("alpha", t0)

	snap := table.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "alpha", snap[0].Hostname)
	assert.Equal(t, "zeta", snap[1].Hostname)

	snap[0].Hostname = "mutated"
	assert.Equal(t, "alpha", table.Snapshot()[0].Hostname)
}

func TestConcurrentRecordAndSweep(t *testing.T) {
	table := newTestTable(time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				table.Record(fmt.Sprintf("host-%d", i), t0.Add(time.Duration(j)*time.Second))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				table.Sweep(t0.Add(30 * time.Second))
				_ = table.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.True(t, table.Sweep(t0.Add(200*time.Second)))
	assert.Equal(t, 8, table.Len())
}
