package syncer

import (
	"agro-report/internal/remote"
	"agro-report/internal/storage"
)

// Rows flattens reports into the appendData payload. Harvest-only columns are
// sent for harvest reports only, line items are always lists.
func Rows(reports []storage.Report, user storage.UserInfo) []remote.Row {
	rows := make([]remote.Row, 0, len(reports))
	for _, r := range reports {
		row := remote.Row{
			ID:           r.ID,
			Type:         r.Type,
			Timestamp:    r.Timestamp,
			Estate:       r.Estate,
			Division:     r.Division,
			Block:        r.Block,
			Date:         r.Date,
			ActivityType: r.ActivityType,
			Job:          r.Job,
			PlannedArea:  r.PlannedArea,
			ActualArea:   r.ActualArea,
			Labor:        r.Labor,
			Remarks:      r.Remarks,
			MenteeName:   user.MenteeName,
			MentorName:   user.MentorName,
			Workers:      r.Workers,
			Materials:    r.Materials,
		}
		if row.Workers == nil {
			row.Workers = []storage.Worker{}
		}
		if row.Materials == nil {
			row.Materials = []storage.Material{}
		}

		if r.Type == storage.KindHarvest {
			row.PlannedTon = ptr(r.PlannedTon)
			row.ActualTon = ptr(r.ActualTon)
			row.ShippedTon = ptr(r.ShippedTon)
			row.CarryOver = ptr(r.CarryOver)
			row.Rotation = ptr(r.Rotation)
			row.Feeder = ptr(r.Feeder)
			row.Truck = ptr(r.Truck)
		}

		rows = append(rows, row)
	}
	return rows
}

func ptr[T any](v T) *T {
	return &v
}
