package analytics

import (
	"regexp"
	"strings"
	"time"
)

// Jakarta is fixed UTC+7; Indonesia has no DST.
var Jakarta = time.FixedZone("WIB", 7*60*60)

const (
	PresetThisMonth  = "this-month"
	PresetLastMonth  = "last-month"
	PresetLast30Days = "last-30-days"
)

var monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Range is [From, To) in absolute time, labelled with Jakarta calendar months.
type Range struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	FromMonth string    `json:"from_month"`
	ToMonth   string    `json:"to_month"`
}

func monthStart(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, Jakarta)
}

func monthLabel(t time.Time) string {
	return t.In(Jakarta).Format("2006-01")
}

func parseMonth(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !monthRe.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01", s, Jakarta)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MonthRange covers whole Jakarta months from..to inclusive. Invalid or missing
// from falls back to the current month; missing to equals from; a reversed pair is swapped.
func MonthRange(from, to string, now time.Time) Range {
	local := now.In(Jakarta)
	start, ok := parseMonth(from)
	if !ok {
		start = monthStart(local.Year(), local.Month())
	}
	end, ok := parseMonth(to)
	if !ok {
		end = start
	}
	if end.Before(start) {
		start, end = end, start
	}

	return Range{
		From:      start,
		To:        end.AddDate(0, 1, 0),
		FromMonth: monthLabel(start),
		ToMonth:   monthLabel(end),
	}
}

// PresetRange treats unknown presets as this-month.
func PresetRange(preset string, now time.Time) Range {
	local := now.In(Jakarta)
	thisMonth := monthStart(local.Year(), local.Month())

	switch preset {
	case PresetLastMonth:
		prev := thisMonth.AddDate(0, -1, 0)
		return Range{
			From:      prev,
			To:        thisMonth,
			FromMonth: monthLabel(prev),
			ToMonth:   monthLabel(prev),
		}
	case PresetLast30Days:
		today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Jakarta)
		from := today.AddDate(0, 0, -30)
		to := today.AddDate(0, 0, 1)
		return Range{
			From:      from,
			To:        to,
			FromMonth: monthLabel(from),
			ToMonth:   monthLabel(to.Add(-time.Nanosecond)),
		}
	default:
		return Range{
			From:      thisMonth,
			To:        thisMonth.AddDate(0, 1, 0),
			FromMonth: monthLabel(thisMonth),
			ToMonth:   monthLabel(thisMonth),
		}
	}
}

// Resolve prefers a preset over explicit months.
func Resolve(preset, from, to string, now time.Time) Range {
	if p := strings.TrimSpace(preset); p != "" {
		return PresetRange(p, now)
	}
	return MonthRange(from, to, now)
}
