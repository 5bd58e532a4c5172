package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"agro-report/internal/storage"
)

func sampleReports() []storage.Report {
	return []storage.Report{
		{
			ID: "1715328000000", Type: storage.KindMaintenance, Timestamp: "2024-05-10T08:00:00Z",
			Estate: "A", Division: 1, Block: "B1", Date: "2024-05-10", ActivityType: "TMPM01",
			Job: "Pemupukan", Remarks: "hujan sore", PlannedArea: 2, ActualArea: 1.5,
			Workers:   []storage.Worker{{Type: "Harian", Count: 5}, {Type: "Borongan", Count: 2}},
			Materials: []storage.Material{{Type: "NPK", Quantity: 50.5, Unit: "kg"}, {Type: "Urea", Quantity: 3, Unit: ""}},
		},
		{
			ID: "imp-7", Type: storage.KindHarvest, Timestamp: "2024-05-11T08:00:00Z", Synced: true,
			Estate: "B", Division: 2, Block: "C3", Date: "2024-05-11", ActivityType: "PNKT01",
			Job: "Panen", PlannedArea: 10, ActualArea: 9.25, PlannedTon: 5, ActualTon: 4.75,
			Labor: 12, ShippedTon: 4, CarryOver: 0.75, Rotation: "P3", Feeder: "FD-01", Truck: "BK 1234",
		},
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	in := sampleReports()

	data, err := Export(in)
	require.NoError(t, err)

	out, err := Import(bytes.NewReader(data))
	require.NoError(t, err)

	if diff := cmp.Diff(in, out, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_Layout(t *testing.T) {
	data, err := Export(sampleReports())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])

	maint := rows[1]
	assert.Equal(t, "1715328000000", maint[colID-1])
	assert.Equal(t, "Harian:5;Borongan:2", maint[colLabor-1])
	assert.Equal(t, "NPK:50.5:kg;Urea:3:", maint[colMaterials-1])
	assert.Equal(t, "FALSE", maint[colSynced-1])
	assert.LessOrEqual(t, len(maint), colMaterials, "harvest cells stay empty")

	harvest := rows[2]
	assert.Equal(t, "TRUE", harvest[colSynced-1])
	assert.Equal(t, "12", harvest[colLabor-1])
	assert.Equal(t, "", harvest[colMaterials-1])
	assert.Equal(t, "BK 1234", harvest[colTruck-1])
}

func TestImport_MapsByHeaderName(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Data"
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Tipe", "Estate", "Divisi", "Tanggal", "Tenaga Kerja", "Bahan", "Synced"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"perawatan", "A", 3, "2024-05-10", "Harian:5; :4;Borongan", "NPK:2", "true"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"lainnya", "A", 3, "2024-05-10"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"panen", "B", 1, "2024-05-11", 9}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := Import(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, storage.ID(""), got[0].ID)
	assert.Equal(t, 3, got[0].Division)
	assert.True(t, got[0].Synced)
	assert.Equal(t, []storage.Worker{{Type: "Harian", Count: 5}}, got[0].Workers)
	assert.Equal(t, []storage.Material{{Type: "NPK", Quantity: 2}}, got[0].Materials)

	assert.Equal(t, storage.KindHarvest, got[1].Type)
	assert.Equal(t, 9, got[1].Labor)
}

func TestImport_Empty(t *testing.T) {
	data, err := Export(nil)
	require.NoError(t, err)

	_, err = Import(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Import(bytes.NewReader([]byte("not a workbook")))
	assert.ErrorIs(t, err, ErrUnreadableFile)
}

func TestFileName(t *testing.T) {
	day := time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "Laporan_KLP1_AGRO_2024-05-10.xlsx", FileName(day))
}

func TestParseCells(t *testing.T) {
	tests := []struct {
		in      string
		float   float64
		integer int
	}{
		{in: "2.5", float: 2.5, integer: 2},
		{in: " 7 ", float: 7, integer: 7},
		{in: "", float: 0, integer: 0},
		{in: "abc", float: 0, integer: 0},
		{in: "NaN", float: 0, integer: 0},
		{in: "inf", float: 0, integer: 0},
		{in: "-Infinity", float: 0, integer: 0},
		{in: "1e19", float: 1e19, integer: 0},
		{in: "-1e19", float: -1e19, integer: 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.float, parseFloat(tt.in))
			assert.Equal(t, tt.integer, parseInt(tt.in))
		})
	}
}

func TestImport_NonFiniteCellsAreZero(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Data"
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Tipe", "Estate", "Divisi", "Rencana Ha", "Aktual Ha", "Tenaga Kerja", "Bahan"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"perawatan", "A", "1e19", "NaN", "inf", "Harian:inf", "NPK:NaN;Urea:2"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := Import(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Zero(t, got[0].Division)
	assert.Zero(t, got[0].PlannedArea)
	assert.Zero(t, got[0].ActualArea)
	assert.Equal(t, []storage.Worker{{Type: "Harian", Count: 0}}, got[0].Workers)
	assert.Equal(t, []storage.Material{{Type: "NPK", Quantity: 0}, {Type: "Urea", Quantity: 2}}, got[0].Materials)
}
