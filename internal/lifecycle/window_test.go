package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestWindowCapacityClosesAtLimit(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	w := Window{Active: true, Capacity: intPtr(1)}
	assert.True(t, w.IsOpen(now))
	assert.Equal(t, 1, *w.Remaining())

	w.Count = 1
	assert.False(t, w.IsOpen(now))
	assert.ErrorIs(t, w.Check(now), ErrFull)
	assert.Equal(t, 0, *w.Remaining())
}

func TestWindowNilCapacityIsUnlimited(t *testing.T) {
	now := time.Now()
	w := Window{Active: true, Count: 100000}
	assert.True(t, w.IsOpen(now))
	assert.Nil(t, w.Remaining())
}

func TestWindowInactive(t *testing.T) {
	w := Window{Active: false}
	assert.ErrorIs(t, w.Check(time.Now()), ErrInactive)
}

func TestWindowDateDeadlineIncludesWholeDay(t *testing.T) {
	deadline := OnDate(NewDate(2025, 3, 10))
	w := Window{Active: true, Capacity: intPtr(10), Deadline: deadline}

	lateSameDay := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.True(t, w.IsOpen(lateSameDay))

	nextDay := time.Date(2025, 3, 11, 0, 0, 1, 0, time.UTC)
	assert.False(t, w.IsOpen(nextDay))
	assert.ErrorIs(t, w.Check(nextDay), ErrDeadlinePassed)
}

func TestWindowInstantDeadline(t *testing.T) {
	deadline := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	w := Window{Active: true, Deadline: AtInstant(deadline)}

	assert.True(t, w.IsOpen(deadline))
	assert.False(t, w.IsOpen(deadline.Add(time.Second)))
}

func TestWindowDeadlineIgnoresCapacityOnceClosed(t *testing.T) {
	w := Window{Active: true, Capacity: intPtr(1000), Deadline: OnDate(NewDate(2024, 1, 1))}
	assert.False(t, w.IsOpen(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestZeroDeadlinesAreAbsent(t *testing.T) {
	assert.Nil(t, OnDate(Date{}))
	assert.Nil(t, AtInstant(time.Time{}))
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalJSON([]byte(`"2025-02-01"`)))
	assert.Equal(t, "2025-02-01", d.String())

	require.NoError(t, d.UnmarshalJSON([]byte(`"2025-02-01T22:30:00Z"`)))
	assert.Equal(t, "2025-02-01", d.String())

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2025-02-01"`, string(out))

	require.NoError(t, d.UnmarshalJSON([]byte(`null`)))
	assert.True(t, d.IsZero())

	assert.Error(t, d.UnmarshalJSON([]byte(`"01/02/2025"`)))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 5, 6, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewDate(2025, 5, 6), d)
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	require.NoError(t, d.Scan([]byte("2024-12-31")))
	assert.Equal(t, "2024-12-31", d.String())

	v, err := Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
