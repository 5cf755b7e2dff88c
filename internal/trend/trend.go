// Package trend aggregates per-day violation counts into daily, monthly and
// month-anchored weekly buckets.
package trend

import (
	"fmt"
	"safetywatch/internal/models"
	"sort"
	"time"
)

type Point struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

type Series []Point

type Bucket struct {
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

type Summary struct {
	Total            int  `json:"total"`
	WorstMonth       int  `json:"worst_month"`
	WorstWeek        int  `json:"worst_week"`
	CurrentWeekCount int  `json:"current_week_count"`
	WeekEnded        bool `json:"week_ended"`
}

const (
	MetricImages = "images"
	MetricVideos = "videos"
	MetricItems  = "items"
)

// firstSaturday returns the first Saturday on or after the 1st of date's month.
func firstSaturday(date time.Time) time.Time {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	offset := (int(time.Saturday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset)
}

// WeekOf is the 1-based month-anchored week number of date. Days before the
// month's first Saturday belong to week 1, as do the seven days starting on it.
func WeekOf(date time.Time) int {
	date = models.DateOf(date)
	sat := models.DateOf(firstSaturday(date))
	if date.Before(sat) {
		return 1
	}
	days := int(date.Sub(sat).Hours() / 24)
	return days/7 + 1
}

func WeekKey(date time.Time) string {
	return fmt.Sprintf("%04d-%02d-W%02d", date.Year(), int(date.Month()), WeekOf(date))
}

func MonthKey(date time.Time) string {
	return fmt.Sprintf("%04d-%02d", date.Year(), int(date.Month()))
}

func weekStart(date time.Time) time.Time {
	date = models.DateOf(date)
	week := WeekOf(date)
	if week == 1 {
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return models.DateOf(firstSaturday(date)).AddDate(0, 0, 7*(week-1))
}

func monthStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Daily returns one point per date, oldest first. Points sharing a date are summed.
func Daily(series Series) Series {
	byDay := make(map[string]*Point, len(series))
	for _, p := range series {
		d := models.DateOf(p.Date)
		k := models.DateKey(d)
		if agg, ok := byDay[k]; ok {
			agg.Count += p.Count
			continue
		}
		byDay[k] = &Point{Date: d, Count: p.Count}
	}
	out := make(Series, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func Monthly(series Series) []Bucket {
	return group(series, MonthKey, monthStart)
}

func Weekly(series Series) []Bucket {
	return group(series, WeekKey, weekStart)
}

func group(series Series, key func(time.Time) string, start func(time.Time) time.Time) []Bucket {
	buckets := make(map[string]*Bucket)
	for _, p := range series {
		k := key(p.Date)
		b, ok := buckets[k]
		if !ok {
			b = &Bucket{Key: k, Start: start(p.Date)}
			buckets[k] = b
		}
		b.Count += p.Count
	}
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Summarize computes the headline metrics of series relative to now.
func Summarize(series Series, now time.Time) Summary {
	s := Summary{WeekEnded: WeekEnded(now)}
	for _, p := range series {
		s.Total += p.Count
	}
	for _, b := range Monthly(series) {
		s.WorstMonth = max(s.WorstMonth, b.Count)
	}
	current := WeekKey(models.DateOf(now))
	for _, b := range Weekly(series) {
		s.WorstWeek = max(s.WorstWeek, b.Count)
		if b.Key == current {
			s.CurrentWeekCount = b.Count
		}
	}
	return s
}

// WeekEnded reports whether now falls on the last two days of a Saturday-anchored week.
func WeekEnded(now time.Time) bool {
	wd := now.Weekday()
	return wd == time.Friday || wd == time.Saturday
}

// Extract builds a series for metric from date folder records, oldest first.
// Any metric other than images, videos or items is read as a sub-type count.
func Extract(records []models.DateFolderRecord, metric string) Series {
	out := make(Series, 0, len(records))
	for _, r := range records {
		var n int
		switch metric {
		case MetricImages:
			n = r.ImageCount
		case MetricVideos:
			n = r.VideoCount
		case MetricItems:
			n = r.ItemCount
		default:
			n = r.SubTypeCounts[metric]
		}
		out = append(out, Point{Date: models.DateOf(r.DisplayDate), Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

type RunningRow struct {
	Date    time.Time `json:"date"`
	Count   int       `json:"count"`
	Running int       `json:"running_total"`
}

// RunningTotals lists series most recent first, each row carrying the sum of
// itself and every more recent row.
func RunningTotals(series Series) []RunningRow {
	daily := Daily(series)
	out := make([]RunningRow, 0, len(daily))
	total := 0
	for i := len(daily) - 1; i >= 0; i-- {
		total += daily[i].Count
		out = append(out, RunningRow{Date: daily[i].Date, Count: daily[i].Count, Running: total})
	}
	return out
}
