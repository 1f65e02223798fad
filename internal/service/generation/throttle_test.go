package generation

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_FirstValueImmediate(t *testing.T) {
	start := time.Unix(0, 0)
	th := NewThrottle[int](100 * time.Millisecond)

	v, ok := th.Offer(start, 1)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = th.Offer(start.Add(10*time.Millisecond), 2)
	assert.False(t, ok)
	_, ok = th.Offer(start.Add(20*time.Millisecond), 3)
	assert.False(t, ok)

	due, ok := th.Due()
	require.True(t, ok)
	assert.Equal(t, start.Add(100*time.Millisecond), due)

	_, ok = th.Fire(start.Add(99 * time.Millisecond))
	assert.False(t, ok)

	v, ok = th.Fire(due)
	require.True(t, ok)
	assert.Equal(t, 3, v, "latest pending value wins")

	_, ok = th.Due()
	assert.False(t, ok)
}

func TestThrottle_EmitsAfterIntervalWithoutTimer(t *testing.T) {
	start := time.Unix(0, 0)
	th := NewThrottle[int](50 * time.Millisecond)

	_, ok := th.Offer(start, 1)
	require.True(t, ok)
	v, ok := th.Offer(start.Add(50*time.Millisecond), 2)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

// simulate drives a throttle the way the turn loop does: the trailing timer
// fires before any delta arriving at or after the due time, and at stream end
// the loop waits for the due time and flushes.
func simulate(th *Throttle[int], start time.Time, deltas int, span time.Duration) (emitted []int, times []time.Time) {
	record := func(now time.Time, v int) {
		emitted = append(emitted, v)
		times = append(times, now)
	}

	step := span / time.Duration(deltas)
	for i := 0; i < deltas; i++ {
		now := start.Add(time.Duration(i) * step)
		if due, ok := th.Due(); ok && !now.Before(due) {
			if v, ok := th.Fire(due); ok {
				record(due, v)
			}
		}
		if v, ok := th.Offer(now, i); ok {
			record(now, v)
		}
	}

	end := start.Add(span)
	if due, ok := th.Due(); ok {
		if due.Before(end) {
			due = end
		}
		if v, ok := th.Fire(due); ok {
			record(due, v)
		}
	}
	return emitted, times
}

func TestThrottle_BoundsEmissions(t *testing.T) {
	const span = 100 * time.Millisecond
	for _, interval := range []time.Duration{
		time.Millisecond, 7 * time.Millisecond, 20 * time.Millisecond,
		33 * time.Millisecond, 150 * time.Millisecond,
	} {
		for _, deltas := range []int{1, 3, 50, 1000} {
			t.Run(fmt.Sprintf("%s/%d", interval, deltas), func(t *testing.T) {
				emitted, times := simulate(NewThrottle[int](interval), time.Unix(0, 0), deltas, span)

				limit := int(math.Ceil(float64(span)/float64(interval))) + 1
				assert.LessOrEqual(t, len(emitted), limit)
				require.NotEmpty(t, emitted)
				assert.Equal(t, deltas-1, emitted[len(emitted)-1], "last delta must be emitted")

				for i := 1; i < len(times); i++ {
					assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), interval, "emissions %d and %d too close", i-1, i)
				}
			})
		}
	}
}
