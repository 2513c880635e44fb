// Package dates parses the issued/updated dates found in updateinfo.xml and
// answers period questions about them.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is strftime "%F:%T".
const TimestampLayout = "2006-01-02:15:04:05"

// ParseDate accepts the errata date formats seen in the wild:
//
//	12/16/10             month/day/year, year is 20YY
//	2014-10-14 00:00:00  only the date part is used
//	2014-10-14
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if strings.Contains(s, "-") {
		d, err := time.Parse("2006-01-02", strings.Fields(s)[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return d, nil
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	var mdy [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		mdy[i] = n
	}
	year := mdy[2]
	if year < 100 {
		year += 2000
	}
	return time.Date(year, time.Month(mdy[0]), mdy[1], 0, 0, 0, 0, time.UTC), nil
}

func DaysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

func WeeksAgo(now time.Time, weeks int) time.Time {
	return now.AddDate(0, 0, -7*weeks)
}

// InLastWeeks reports whether date falls in (end - weeks, end]. An empty end
// means now.
func InLastWeeks(date string, weeks int, end string) (bool, error) {
	return inPeriod(date, end, func(t time.Time) time.Time { return WeeksAgo(t, weeks) })
}

// InLastDays is InLastWeeks counted in days.
func InLastDays(date string, days int, end string) (bool, error) {
	return inPeriod(date, end, func(t time.Time) time.Time { return DaysAgo(t, days) })
}

func inPeriod(date, end string, startOf func(time.Time) time.Time) (bool, error) {
	now := time.Now().UTC()
	if end != "" {
		e, err := ParseDate(end)
		if err != nil {
			return false, err
		}
		now = e
	}

	d, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	start := startOf(now)

	return start.Before(d) && !d.After(now), nil
}

// Timestamp formats t, or now if t is zero, e.g. 2017-03-09:11:45:09.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(TimestampLayout)
}
