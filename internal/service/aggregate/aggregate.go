package aggregate

import (
	"time"

	"agro-report/internal/storage"
)

const dateLayout = "2006-01-02"

// Field selects the numeric report value that is summed.
type Field int

const (
	ActualArea Field = iota
	ActualTon
	ShippedTon
	Labor
)

func (f Field) value(r storage.Report) float64 {
	switch f {
	case ActualArea:
		return r.ActualArea
	case ActualTon:
		return r.ActualTon
	case ShippedTon:
		return r.ShippedTon
	case Labor:
		if r.Type == storage.KindMaintenance {
			return float64(r.WorkerTotal())
		}
		return float64(r.Labor)
	}
	return 0
}

// Totals are the "SD Hi" and "SD Bi" sums of one field.
type Totals struct {
	MonthToDate float64 `json:"sdHi"`
	YearToDate  float64 `json:"sdBi"`
}

// Rollup sums field over every report sharing the target's kind, estate,
// division and activity type. Month-to-date covers the target's month up to
// its day, year-to-date its year up to its date. Rows whose date does not
// parse are never counted, and an unparsable target date yields zero totals.
func Rollup(all []storage.Report, target storage.Report, field Field) Totals {
	var t Totals

	d, err := time.Parse(dateLayout, target.Date)
	if err != nil {
		return t
	}

	for _, r := range all {
		if !sameGroup(r, target) {
			continue
		}
		rd, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			continue
		}
		if rd.Year() != d.Year() {
			continue
		}

		v := field.value(r)
		if rd.Month() == d.Month() && rd.Day() <= d.Day() {
			t.MonthToDate += v
		}
		if !rd.After(d) {
			t.YearToDate += v
		}
	}

	return t
}

func sameGroup(r, target storage.Report) bool {
	return r.Type == target.Type &&
		r.Estate == target.Estate &&
		r.Division == target.Division &&
		r.ActivityType == target.ActivityType
}
