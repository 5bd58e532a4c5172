package aggregate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agro-report/internal/storage"
)

var ErrNoReports = errors.New("no reports for the requested day")

const closing = "*Demikian kami sampaikan dan terima kasih*"

// Query selects the reports of one daily message.
type Query struct {
	Kind     storage.Kind
	Estate   string
	Division int
	Date     string
}

// Message renders the daily WhatsApp summary of every report matching q, with
// month-to-date and year-to-date rollups computed over all.
func Message(q Query, all []storage.Report, user storage.UserInfo) (string, error) {
	const op = "service.aggregate.Message"

	var list []storage.Report
	for _, r := range all {
		if r.Type == q.Kind && r.Date == q.Date && r.Estate == q.Estate && r.Division == q.Division {
			list = append(list, r)
		}
	}
	if len(list) == 0 {
		return "", fmt.Errorf("%s: %s %s/%d on %s: %w", op, q.Kind, q.Estate, q.Division, q.Date, ErrNoReports)
	}

	var b strings.Builder
	for _, r := range list {
		if q.Kind == storage.KindHarvest {
			writeHarvest(&b, r, all, user)
		} else {
			writeMaintenance(&b, r, all, user)
		}
	}
	b.WriteString(closing)

	return b.String(), nil
}

func writeHeader(b *strings.Builder, title string, r storage.Report, user storage.UserInfo) {
	fmt.Fprintf(b, "*LAPORAN HARIAN %s %s, Divisi %d, Blok %s, %s*\n\n", title, r.Estate, r.Division, r.Block, displayDate(r.Date))
	fmt.Fprintf(b, "Mentee: %s\n", orDash(user.MenteeName))
	fmt.Fprintf(b, "Mentor: %s\n\n", orDash(user.MentorName))
}

func writeRollup(b *strings.Builder, n int, label, today string, t Totals) {
	fmt.Fprintf(b, "%d. %s\n", n, label)
	fmt.Fprintf(b, "    Hi: %s\n", today)
	fmt.Fprintf(b, "    SD Hi: %s\n", fnum(t.MonthToDate))
	fmt.Fprintf(b, "    SD Bi: %s\n\n", fnum(t.YearToDate))
}

func writeMaintenance(b *strings.Builder, r storage.Report, all []storage.Report, user storage.UserInfo) {
	writeHeader(b, "PERAWATAN", r, user)

	fmt.Fprintf(b, "1. Pekerjaan : %s\n", r.Job)
	fmt.Fprintf(b, "    ActTyp: %s\n\n", r.ActivityType)
	fmt.Fprintf(b, "2. Rencana Ha: %s\n\n", fnum(r.PlannedArea))
	writeRollup(b, 3, "Aktual Ha", fnum(r.ActualArea), Rollup(all, r, ActualArea))

	materials := make([]string, 0, len(r.Materials))
	for _, m := range r.Materials {
		materials = append(materials, fmt.Sprintf("%s %s %s", fnum(m.Quantity), m.Unit, m.Type))
	}
	fmt.Fprintf(b, "4. Bahan\n    Hi: %s\n\n", joinOrDash(materials))

	workers := make([]string, 0, len(r.Workers))
	for _, w := range r.Workers {
		workers = append(workers, fmt.Sprintf("%d %s", w.Count, w.Type))
	}
	labor := Rollup(all, r, Labor)
	fmt.Fprintf(b, "5. Tenaga Kerja\n    Hi: %s\n", joinOrDash(workers))
	fmt.Fprintf(b, "    SD Hi: %s\n", fnum(labor.MonthToDate))
	fmt.Fprintf(b, "    SD Bi: %s\n\n", fnum(labor.YearToDate))

	fmt.Fprintf(b, "6. Keterangan: %s\n\n", orDash(r.Remarks))
}

func writeHarvest(b *strings.Builder, r storage.Report, all []storage.Report, user storage.UserInfo) {
	writeHeader(b, "PANEN", r, user)

	fmt.Fprintf(b, "1. Pekerjaan: %s\n", r.Job)
	fmt.Fprintf(b, "    ActTyp: %s\n\n", r.ActivityType)
	fmt.Fprintf(b, "2. Rencana Ton: %s\n\n", fnum(r.PlannedTon))
	fmt.Fprintf(b, "3. Rencana Ha: %s\n\n", fnum(r.PlannedArea))
	writeRollup(b, 4, "Aktual Ha", fnum(r.ActualArea), Rollup(all, r, ActualArea))
	writeRollup(b, 5, "Aktual Ton", fnum(r.ActualTon), Rollup(all, r, ActualTon))
	writeRollup(b, 6, "Kirim Ton", fnum(r.ShippedTon), Rollup(all, r, ShippedTon))
	fmt.Fprintf(b, "7. Restan: %s\n\n", fnum(r.CarryOver))
	writeRollup(b, 8, "Tenaga Kerja", strconv.Itoa(r.Labor), Rollup(all, r, Labor))
	fmt.Fprintf(b, "9. Pusingan: %s\n\n", r.Rotation)
	fmt.Fprintf(b, "10. Feeder: %s\n\n", r.Feeder)
	fmt.Fprintf(b, "11. Truk: %s\n\n", r.Truck)
	fmt.Fprintf(b, "12. Keterangan: %s\n\n", orDash(r.Remarks))
}

// displayDate turns 2024-05-10 into 10/05/2024. Unparsable dates pass through.
func displayDate(s string) string {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return s
	}
	return d.Format("02/01/2006")
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, "\n    ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
