package excel

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"agro-report/internal/storage"
)

var (
	ErrEmptyFile        = errors.New("file contains no report rows")
	ErrUnreadableFile   = errors.New("file is not a readable workbook")
	ErrNothingToImport  = errors.New("every report in the file already exists")
	errUnknownReportRow = errors.New("unknown report type")
)

const (
	SheetName   = "Laporan"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Columns is the fixed header row of an export.
var Columns = []string{
	"ID", "Tipe", "Timestamp", "Estate", "Divisi", "Blok", "Tanggal", "ActTyp", "Pekerjaan",
	"Rencana Ha", "Aktual Ha", "Keterangan", "Synced", "Tenaga Kerja", "Bahan",
	"Rencana Ton", "Aktual Ton", "Kirim Ton", "Restan", "Pusingan", "Feeder", "Truk",
}

const (
	colID = iota + 1
	colType
	colTimestamp
	colEstate
	colDivision
	colBlock
	colDate
	colActivityType
	colJob
	colPlannedArea
	colActualArea
	colRemarks
	colSynced
	colLabor
	colMaterials
	colPlannedTon
	colActualTon
	colShippedTon
	colCarryOver
	colRotation
	colFeeder
	colTruck
)

// FileName is the download name of an export made on day.
func FileName(day time.Time) string {
	return "Laporan_KLP1_AGRO_" + day.Format("2006-01-02") + ".xlsx"
}

// Export writes one row per report. Cells that do not apply to the report's
// kind, and zero numbers, are left empty.
func Export(reports []storage.Report) ([]byte, error) {
	const op = "service.excel.Export"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, name := range Columns {
		if err := f.SetCellStr(SheetName, cellName(i+1, 1), name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", cellName(len(Columns), 1), headerStyle); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, r := range reports {
		if err := writeRow(f, i+2, r); err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", op, i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := f.SetColWidth(SheetName, "A", "I", 15); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, r storage.Report) error {
	cells := map[int]any{
		colID:           r.ID.String(),
		colType:         string(r.Type),
		colTimestamp:    r.Timestamp,
		colEstate:       r.Estate,
		colDivision:     r.Division,
		colBlock:        r.Block,
		colDate:         r.Date,
		colActivityType: r.ActivityType,
		colJob:          r.Job,
		colPlannedArea:  number(r.PlannedArea),
		colActualArea:   number(r.ActualArea),
		colRemarks:      r.Remarks,
		colSynced:       "FALSE",
	}
	if r.Synced {
		cells[colSynced] = "TRUE"
	}

	if r.Type == storage.KindMaintenance {
		cells[colLabor] = JoinWorkers(r.Workers)
		cells[colMaterials] = JoinMaterials(r.Materials)
	} else {
		cells[colLabor] = number(float64(r.Labor))
		cells[colPlannedTon] = number(r.PlannedTon)
		cells[colActualTon] = number(r.ActualTon)
		cells[colShippedTon] = number(r.ShippedTon)
		cells[colCarryOver] = number(r.CarryOver)
		cells[colRotation] = r.Rotation
		cells[colFeeder] = r.Feeder
		cells[colTruck] = r.Truck
	}

	for col, v := range cells {
		switch v := v.(type) {
		case nil:
			continue
		case string:
			if v == "" {
				continue
			}
			if err := f.SetCellStr(SheetName, cellName(col, row), v); err != nil {
				return err
			}
		default:
			if err := f.SetCellValue(SheetName, cellName(col, row), v); err != nil {
				return err
			}
		}
	}

	return nil
}

// Import reads the first sheet and maps columns by header name. Rows without
// an ID keep an empty id. Rows with an unknown Tipe are skipped.
func Import(r io.Reader) ([]storage.Report, error) {
	const op = "service.excel.Import"

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnreadableFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnreadableFile, err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.TrimSpace(name)] = i
	}

	var out []storage.Report
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}

		rep, err := parseRow(row, index)
		if errors.Is(err, errUnknownReportRow) {
			continue
		}
		out = append(out, rep)
	}

	if len(out) == 0 {
		return nil, ErrEmptyFile
	}

	return out, nil
}

func parseRow(row []string, index map[string]int) (storage.Report, error) {
	get := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	kind, ok := storage.ParseKind(get("Tipe"))
	if !ok {
		return storage.Report{}, errUnknownReportRow
	}

	r := storage.Report{
		ID:           storage.ID(get("ID")),
		Type:         kind,
		Timestamp:    get("Timestamp"),
		Estate:       get("Estate"),
		Division:     parseInt(get("Divisi")),
		Block:        get("Blok"),
		Date:         get("Tanggal"),
		ActivityType: get("ActTyp"),
		Job:          get("Pekerjaan"),
		PlannedArea:  parseFloat(get("Rencana Ha")),
		ActualArea:   parseFloat(get("Aktual Ha")),
		Remarks:      get("Keterangan"),
		Synced:       strings.EqualFold(get("Synced"), "TRUE"),
	}

	if kind == storage.KindMaintenance {
		r.Workers = SplitWorkers(get("Tenaga Kerja"))
		r.Materials = SplitMaterials(get("Bahan"))
		return r, nil
	}

	r.Labor = parseInt(get("Tenaga Kerja"))
	r.PlannedTon = parseFloat(get("Rencana Ton"))
	r.ActualTon = parseFloat(get("Aktual Ton"))
	r.ShippedTon = parseFloat(get("Kirim Ton"))
	r.CarryOver = parseFloat(get("Restan"))
	r.Rotation = get("Pusingan")
	r.Feeder = get("Feeder")
	r.Truck = get("Truk")

	return r, nil
}

// JoinWorkers renders workers as "type:count;type:count".
func JoinWorkers(ws []storage.Worker) string {
	parts := make([]string, 0, len(ws))
	for _, w := range ws {
		parts = append(parts, w.Type+":"+strconv.Itoa(w.Count))
	}
	return strings.Join(parts, ";")
}

// JoinMaterials renders materials as "type:quantity:unit;...".
func JoinMaterials(ms []storage.Material) string {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, m.Type+":"+strconv.FormatFloat(m.Quantity, 'f', -1, 64)+":"+m.Unit)
	}
	return strings.Join(parts, ";")
}

func SplitWorkers(s string) []storage.Worker {
	var out []storage.Worker
	for _, part := range strings.Split(s, ";") {
		fields := strings.Split(part, ":")
		if len(fields) < 2 {
			continue
		}
		typ, count := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if typ == "" || count == "" {
			continue
		}
		out = append(out, storage.Worker{Type: typ, Count: parseInt(count)})
	}
	return out
}

func SplitMaterials(s string) []storage.Material {
	var out []storage.Material
	for _, part := range strings.Split(s, ";") {
		fields := strings.Split(part, ":")
		if len(fields) < 2 {
			continue
		}
		typ, qty := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if typ == "" || qty == "" {
			continue
		}
		m := storage.Material{Type: typ, Quantity: parseFloat(qty)}
		if len(fields) > 2 {
			m.Unit = strings.TrimSpace(fields[2])
		}
		out = append(out, m)
	}
	return out
}

// number maps zero to an empty cell.
func number(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

// parseFloat reads a cell. Blank, unparsable and non-finite cells are zero.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return storage.Finite(f)
}

func parseInt(s string) int {
	return storage.IntOf(parseFloat(s))
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
