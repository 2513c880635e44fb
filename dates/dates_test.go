package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"12/16/10", time.Date(2010, 12, 16, 0, 0, 0, 0, time.UTC)},
		{"2014-10-14 00:00:00", time.Date(2014, 10, 14, 0, 0, 0, 0, time.UTC)},
		{"2017-03-10", time.Date(2017, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDate(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %v", got)
		})
	}

	for _, bad := range []string{"", "16.12.2010", "1/x/10", "2014-13-40"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestInLastWeeks(t *testing.T) {
	ok, err := InLastWeeks("2017-03-10", 1, "2017-03-14")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = InLastWeeks("2017-03-15", 1, "2017-03-14")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = InLastWeeks("2017-03-07", 1, "2017-03-14")
	require.NoError(t, err)
	assert.False(t, ok, "start of the period is exclusive")
}

func TestInLastDays(t *testing.T) {
	tests := []struct {
		date string
		days int
		want bool
	}{
		{"2017-03-12", 3, true},
		{"2017-03-11", 3, false},
		{"03/14/17", 1, true},
		{"2017-03-15 00:00:00", 30, false},
	}
	for _, tc := range tests {
		got, err := InLastDays(tc.date, tc.days, "2017-03-14")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.date)
	}

	_, err := InLastDays("yesterday", 1, "")
	assert.Error(t, err)
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "2017-03-09:11:45:09", Timestamp(time.Date(2017, 3, 9, 11, 45, 9, 0, time.UTC)))
	assert.NotEmpty(t, Timestamp(time.Time{}))
}

func TestAgo(t *testing.T) {
	now := time.Date(2017, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2017, 3, 7, 0, 0, 0, 0, time.UTC), WeeksAgo(now, 1))
	assert.Equal(t, time.Date(2017, 3, 11, 0, 0, 0, 0, time.UTC), DaysAgo(now, 3))
}
