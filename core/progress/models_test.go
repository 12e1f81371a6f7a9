package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStreak(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			t.Fatalf("time.Parse(%s): %v", s, err)
		}
		return d
	}
	days := func(ss ...string) []time.Time {
		out := make([]time.Time, 0, len(ss))
		for _, s := range ss {
			out = append(out, day(s))
		}
		return out
	}
	today := day("2024-03-10")

	tests := []struct {
		name string
		days []time.Time
		want Streak
	}{
		{name: "no activity", want: Streak{}},
		{
			name: "today only", days: days("2024-03-10"),
			want: Streak{Current: 1, Longest: 1, ActiveToday: true, LastActiveDate: "2024-03-10"},
		},
		{
			name: "run ending yesterday is still current", days: days("2024-03-07", "2024-03-08", "2024-03-09"),
			want: Streak{Current: 3, Longest: 3, LastActiveDate: "2024-03-09"},
		},
		{
			name: "broken run", days: days("2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "2024-03-08"),
			want: Streak{Current: 0, Longest: 4, LastActiveDate: "2024-03-08"},
		},
		{
			name: "duplicates and disorder", days: days("2024-03-10", "2024-03-09", "2024-03-10", "2024-03-05", "2024-03-09"),
			want: Streak{Current: 2, Longest: 2, ActiveToday: true, LastActiveDate: "2024-03-10"},
		},
		{
			name: "month boundary", days: days("2024-02-28", "2024-02-29", "2024-03-01"),
			want: Streak{Current: 0, Longest: 3, LastActiveDate: "2024-03-01"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.days, today))
		})
	}
}

func TestComputeStreak_ignoresClock(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	activity := []time.Time{time.Date(2024, 3, 9, 23, 59, 0, 0, loc)}
	today := time.Date(2024, 3, 10, 0, 1, 0, 0, loc)

	s := ComputeStreak(activity, today)
	assert.Equal(t, 1, s.Current)
	assert.False(t, s.ActiveToday)
}
