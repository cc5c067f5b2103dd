package tstime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMinMaxTSDaily(t *testing.T) {
	// 2024-03-15 12:30:00 UTC
	ts := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC).UnixNano()

	min := PartitionMinTS("%Y-%m-%d", ToTime(ts))
	max := PartitionMaxTS("%Y-%m-%d", ToTime(ts))

	dayStart := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).UnixNano()
	dayEnd := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC).UnixNano() - 1

	assert.Equal(t, dayStart, min)
	assert.Equal(t, dayEnd, max)
}

func TestPartitionMinMaxTSMonthly(t *testing.T) {
	ts := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC).UnixNano()

	min := PartitionMinTS("%Y-%m", ToTime(ts))
	max := PartitionMaxTS("%Y-%m", ToTime(ts))

	monthStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	// 2024 is a leap year, so February has 29 days.
	monthEnd := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixNano() - 1

	assert.Equal(t, monthStart, min)
	assert.Equal(t, monthEnd, max)
}

func TestPartitionMinMaxTSEmptyFormat(t *testing.T) {
	ts := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).UnixNano()

	assert.Equal(t, int64(-1<<63), PartitionMinTS("", ToTime(ts)))
	assert.Equal(t, int64(1<<63-1), PartitionMaxTS("", ToTime(ts)))
}

func TestPartitionDirEmptyFormatIsAll(t *testing.T) {
	assert.Equal(t, "all", PartitionDir("", 0))
}

func TestToTimeRoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)
	got := ToTime(want.UnixNano())
	assert.True(t, want.Equal(got))
	assert.Equal(t, time.UTC, got.Location())
}
