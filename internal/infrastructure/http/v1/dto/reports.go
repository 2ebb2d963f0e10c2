package dto

import (
	"time"

	"retailpos/internal/domain/reports"
)

// ReportQuery holds the query parameters shared by period reports.
type ReportQuery struct {
	From     string `form:"from" binding:"required"`
	To       string `form:"to" binding:"required"`
	Bucket   string `form:"bucket"`
	SellerID string `form:"sellerId"`
	Limit    int    `form:"limit"`
}

// ToFilter converts query parameters to a report filter.
func (q ReportQuery) ToFilter() (reports.Filter, error) {
	from, err := ParseTime(q.From, "from")
	if err != nil {
		return reports.Filter{}, err
	}
	to, err := ParseTime(q.To, "to")
	if err != nil {
		return reports.Filter{}, err
	}
	return reports.Filter{
		From:     from,
		To:       to,
		Bucket:   reports.Bucket(q.Bucket),
		SellerID: q.SellerID,
		Limit:    q.Limit,
	}, nil
}

// DailyQuery selects the day of a daily summary. Empty means today (UTC).
type DailyQuery struct {
	Date string `form:"date"`
}

// Day resolves the requested day.
func (q DailyQuery) Day(now time.Time) (time.Time, error) {
	if q.Date == "" {
		return now.UTC(), nil
	}
	return ParseTime(q.Date, "date")
}
