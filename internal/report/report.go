// Package report assembles the data a violation report renderer needs from
// aggregated count series.
package report

import (
	"safetywatch/internal/models"
	"safetywatch/internal/trend"
	"time"
)

// Input is one category's series keyed by series name, in presentation order.
type Input struct {
	Category models.Category
	Title    string
	Order    []string
	Series   map[string]trend.Series
}

type SeriesReport struct {
	Name    string             `json:"name"`
	Summary trend.Summary      `json:"summary"`
	Daily   trend.Series       `json:"daily"`
	Weekly  []trend.Bucket     `json:"weekly"`
	Monthly []trend.Bucket     `json:"monthly"`
	Rows    []trend.RunningRow `json:"rows"`
}

type CategoryReport struct {
	Category models.Category `json:"category"`
	Title    string          `json:"title"`
	Total    int             `json:"total"`
	Series   []SeriesReport  `json:"series"`
}

type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Total       int              `json:"total"`
	Categories  []CategoryReport `json:"categories"`
}

func Build(now time.Time, inputs []Input) *Report {
	rep := &Report{
		GeneratedAt: now.UTC(),
		Categories:  make([]CategoryReport, 0, len(inputs)),
	}
	for _, in := range inputs {
		cr := CategoryReport{Category: in.Category, Title: in.Title}
		for _, name := range in.Order {
			sr := BuildSeries(name, in.Series[name], now)
			cr.Total += sr.Summary.Total
			cr.Series = append(cr.Series, sr)
		}
		rep.Total += cr.Total
		rep.Categories = append(rep.Categories, cr)
	}
	return rep
}

// BuildSeries aggregates one named series relative to now.
func BuildSeries(name string, s trend.Series, now time.Time) SeriesReport {
	daily := trend.Daily(s)
	return SeriesReport{
		Name:    name,
		Summary: trend.Summarize(daily, now),
		Daily:   daily,
		Weekly:  trend.Weekly(daily),
		Monthly: trend.Monthly(daily),
		Rows:    trend.RunningTotals(daily),
	}
}

// Category returns the report section for cat, if present.
func (r *Report) Category(cat models.Category) (CategoryReport, bool) {
	for _, c := range r.Categories {
		if c.Category == cat {
			return c, true
		}
	}
	return CategoryReport{}, false
}
