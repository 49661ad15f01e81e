package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	timestamps := []time.Time{
		now.Add(-90 * time.Second), // out
		now.Add(-61 * time.Second), // out
		now.Add(-60 * time.Second), // exactly on the boundary, out
		now.Add(-59 * time.Second), // in
		now.Add(-time.Second),      // in
		now,                        // in
	}

	kept := PruneWindow(timestamps, now)
	require.Len(t, kept, 3)
	assert.Equal(t, now.Add(-59*time.Second), kept[0])
	assert.Equal(t, now, kept[2])
}

func TestPruneWindow_Empty(t *testing.T) {
	now := time.Now()
	assert.Empty(t, PruneWindow(nil, now))
	assert.Empty(t, PruneWindow([]time.Time{}, now))
}

func TestRecordAndCheck_WithinQuota(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	state := CallerState{}

	var within bool
	for i := 0; i < 3; i++ {
		state, within = RecordAndCheck(state, 3, now.Add(time.Duration(i)*time.Second))
		assert.True(t, within, "request %d", i+1)
	}
	assert.Len(t, state.Timestamps, 3)
}

// The request that pushes the count past the quota is itself recorded and
// reported as over quota.
func TestRecordAndCheck_TripsOnExcess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	state := CallerState{}

	for i := 0; i < 2; i++ {
		state, _ = RecordAndCheck(state, 2, now)
	}

	state, within := RecordAndCheck(state, 2, now)
	assert.False(t, within)
	assert.Len(t, state.Timestamps, 3)
}

func TestRecordAndCheck_PrunesBeforeCounting(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	state := CallerState{
		Timestamps: []time.Time{
			now.Add(-2 * time.Minute),
			now.Add(-90 * time.Second),
			now.Add(-10 * time.Second),
		},
	}

	state, within := RecordAndCheck(state, 2, now)
	assert.True(t, within)
	assert.Len(t, state.Timestamps, 2)
}
