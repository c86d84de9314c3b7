package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	require.NoError(t, err)
	return parsed
}

func iv(t *testing.T, start, end string) Interval {
	t.Helper()
	return Interval{Start: at(t, start), End: at(t, end)}
}

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Interval
		expected bool
	}{
		{
			name:     "real intersection",
			a:        iv(t, "2025-10-15 11:30", "2025-10-15 12:00"),
			b:        iv(t, "2025-10-15 11:20", "2025-10-15 11:40"),
			expected: true,
		},
		{
			name:     "touching boundaries are not an overlap",
			a:        iv(t, "2025-10-15 11:30", "2025-10-15 12:00"),
			b:        iv(t, "2025-10-15 11:00", "2025-10-15 11:30"),
			expected: false,
		},
		{
			name:     "touching on the right",
			a:        iv(t, "2025-10-15 11:30", "2025-10-15 12:00"),
			b:        iv(t, "2025-10-15 12:00", "2025-10-15 12:30"),
			expected: false,
		},
		{
			name:     "containment",
			a:        iv(t, "2025-10-15 09:00", "2025-10-15 17:00"),
			b:        iv(t, "2025-10-15 10:00", "2025-10-15 11:00"),
			expected: true,
		},
		{
			name:     "disjoint",
			a:        iv(t, "2025-10-15 09:00", "2025-10-15 10:00"),
			b:        iv(t, "2025-10-15 14:00", "2025-10-15 15:00"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.expected, tt.b.Overlaps(tt.a))
		})
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		in       []Interval
		expected []Interval
	}{
		{
			name: "unsorted overlapping intervals are merged",
			in: []Interval{
				iv(t, "2025-10-15 12:00", "2025-10-15 14:00"),
				iv(t, "2025-10-15 09:00", "2025-10-15 13:00"),
			},
			expected: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 14:00")},
		},
		{
			name: "touching intervals are merged",
			in: []Interval{
				iv(t, "2025-10-15 09:00", "2025-10-15 12:00"),
				iv(t, "2025-10-15 12:00", "2025-10-15 14:00"),
			},
			expected: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 14:00")},
		},
		{
			name: "zero-length intervals are dropped",
			in: []Interval{
				iv(t, "2025-10-15 09:00", "2025-10-15 09:00"),
				iv(t, "2025-10-15 10:00", "2025-10-15 11:00"),
			},
			expected: []Interval{iv(t, "2025-10-15 10:00", "2025-10-15 11:00")},
		},
		{
			name:     "empty input",
			in:       nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Merge(tt.in))
		})
	}
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		name       string
		base, busy []Interval
		expected   []Interval
	}{
		{
			name: "hole in the middle",
			base: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 17:00")},
			busy: []Interval{iv(t, "2025-10-15 12:00", "2025-10-15 13:00")},
			expected: []Interval{
				iv(t, "2025-10-15 09:00", "2025-10-15 12:00"),
				iv(t, "2025-10-15 13:00", "2025-10-15 17:00"),
			},
		},
		{
			name: "busy covering interval start",
			base: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 17:00")},
			busy: []Interval{iv(t, "2025-10-15 08:00", "2025-10-15 10:00")},
			expected: []Interval{
				iv(t, "2025-10-15 10:00", "2025-10-15 17:00"),
			},
		},
		{
			name: "touching busy block removes nothing",
			base: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 12:00")},
			busy: []Interval{iv(t, "2025-10-15 12:00", "2025-10-15 13:00")},
			expected: []Interval{
				iv(t, "2025-10-15 09:00", "2025-10-15 12:00"),
			},
		},
		{
			name: "full coverage leaves nothing",
			base: []Interval{iv(t, "2025-10-15 09:00", "2025-10-15 12:00")},
			busy: []Interval{iv(t, "2025-10-15 08:00", "2025-10-15 13:00")},
			expected: []Interval{},
		},
		{
			name: "multiple holes produce exact set difference",
			base: []Interval{
				iv(t, "2025-10-15 09:00", "2025-10-15 12:00"),
				iv(t, "2025-10-15 13:00", "2025-10-15 17:00"),
			},
			busy: []Interval{
				iv(t, "2025-10-15 10:00", "2025-10-15 11:00"),
				iv(t, "2025-10-15 14:00", "2025-10-15 15:00"),
			},
			expected: []Interval{
				iv(t, "2025-10-15 09:00", "2025-10-15 10:00"),
				iv(t, "2025-10-15 11:00", "2025-10-15 12:00"),
				iv(t, "2025-10-15 13:00", "2025-10-15 14:00"),
				iv(t, "2025-10-15 15:00", "2025-10-15 17:00"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Subtract(tt.base, tt.busy)
			assert.Equal(t, tt.expected, result)

			// Результат не содержит пустых интервалов и отсортирован
			for i, interval := range result {
				assert.False(t, interval.IsZero())
				if i > 0 {
					assert.True(t, result[i-1].End.Before(interval.Start) || result[i-1].End.Equal(interval.Start))
				}
			}
		})
	}
}
