package reports

import (
	"fmt"
	"strconv"
	"strings"

	"agro-report/internal/storage"
)

// Describe renders the detail view of a single report.
func Describe(r storage.Report) string {
	var b strings.Builder

	if r.Type == storage.KindMaintenance {
		b.WriteString("*LAPORAN PERAWATAN*\n\n")
	} else {
		b.WriteString("*LAPORAN PANEN & TRANSPORT*\n\n")
	}

	fmt.Fprintf(&b, "Estate: %s\nDivisi: %d\nBlok: %s\nTanggal: %s\n", r.Estate, r.Division, r.Block, r.Date)
	fmt.Fprintf(&b, "ActTyp: %s\nPekerjaan: %s\n", r.ActivityType, r.Job)

	if r.Type == storage.KindMaintenance {
		fmt.Fprintf(&b, "Rencana Ha: %s\nAktual Ha: %s\n", fnum(r.PlannedArea), fnum(r.ActualArea))

		b.WriteString("Tenaga Kerja:\n")
		if len(r.Workers) == 0 {
			b.WriteString("- Tidak ada data\n")
		}
		for _, w := range r.Workers {
			fmt.Fprintf(&b, "- %s: %d\n", w.Type, w.Count)
		}

		b.WriteString("Bahan:\n")
		if len(r.Materials) == 0 {
			b.WriteString("- Tidak ada data\n")
		}
		for _, mat := range r.Materials {
			fmt.Fprintf(&b, "- %s: %s %s\n", mat.Type, fnum(mat.Quantity), mat.Unit)
		}
	} else {
		fmt.Fprintf(&b, "Rencana Ha: %s\nRencana Ton: %s\n", fnum(r.PlannedArea), fnum(r.PlannedTon))
		fmt.Fprintf(&b, "Aktual Ha: %s\nAktual Ton: %s\n", fnum(r.ActualArea), fnum(r.ActualTon))
		fmt.Fprintf(&b, "Tenaga Kerja: %d\nKirim Ton: %s\nRestan: %s\n", r.Labor, fnum(r.ShippedTon), fnum(r.CarryOver))
		fmt.Fprintf(&b, "Pusingan: %s\nFeeder: %s\nTruk: %s\n", r.Rotation, r.Feeder, r.Truck)
	}

	fmt.Fprintf(&b, "Keterangan: %s\n", orDash(r.Remarks))
	if r.Synced {
		b.WriteString("Status Sync: Tersinkronisasi")
	} else {
		b.WriteString("Status Sync: Belum sinkron")
	}

	return b.String()
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
