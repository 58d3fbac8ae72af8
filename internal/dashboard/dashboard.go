// Package dashboard derives the repair counters and the 7-day
// received/completed histogram shown on the home screen.
package dashboard

import (
	"fmt"
	"time"

	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// Days is the number of daily buckets in the histogram.
const Days = 7

// Window is the trailing instant range a job must fall in to be bucketed.
const Window = Days * 24 * time.Hour

// Date is a calendar date in the location of the aggregation clock.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight of the date in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Label returns the short weekday name used on the chart axis.
func (d Date) Label() string {
	return d.Time(time.UTC).Weekday().String()[:3]
}

// MarshalText lets Date act as a JSON string and map key.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DayBucket holds the counts for one calendar day.
type DayBucket struct {
	Date      Date `json:"date"`
	Received  int  `json:"received"`
	Completed int  `json:"completed"`
}

// Summary is the aggregated dashboard view.
type Summary struct {
	Pending   int         `json:"pending"`
	Completed int         `json:"completed"`
	Days      []DayBucket `json:"days"`
}

// Aggregate computes the dashboard over repairs as seen at now.
//
// Pending and Completed count every job. Days holds one bucket per calendar
// day from now-6 to now, oldest first. A job whose createdAt lies in
// [now-7d, now] increments Received on its creation date; a completed job
// whose completedAt lies in the same window increments Completed on its
// completion date. The window is compared by instant, not by calendar day.
// A job inside the window whose date matches no bucket (the day before the
// oldest bucket, or a future date from clock skew) is dropped.
func Aggregate(repairs []*models.RepairJob, now time.Time) Summary {
	loc := now.Location()
	start := now.Add(-Window)

	s := Summary{Days: make([]DayBucket, Days)}
	index := make(map[Date]int, Days)
	for i := 0; i < Days; i++ {
		d := DateOf(now.AddDate(0, 0, i-(Days-1)))
		s.Days[i] = DayBucket{Date: d}
		index[d] = i
	}

	inWindow := func(t time.Time) bool {
		return !t.Before(start) && !t.After(now)
	}

	for _, r := range repairs {
		if r.IsCompleted() {
			s.Completed++
		} else {
			s.Pending++
		}

		created := time.UnixMilli(r.CreatedAt).In(loc)
		if inWindow(created) {
			if i, ok := index[DateOf(created)]; ok {
				s.Days[i].Received++
			}
		}

		if done, ok := r.CompletedAtTime(); ok && r.IsCompleted() {
			done = done.In(loc)
			if inWindow(done) {
				if i, ok := index[DateOf(done)]; ok {
					s.Days[i].Completed++
				}
			}
		}
	}
	return s
}

// Bucket returns the bucket for d, if it is part of the summary.
func (s Summary) Bucket(d Date) (DayBucket, bool) {
	for _, b := range s.Days {
		if b.Date == d {
			return b, true
		}
	}
	return DayBucket{}, false
}
