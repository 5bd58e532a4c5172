package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agro-report/internal/config"
	"agro-report/internal/storage"
	"agro-report/internal/storage/sqldb"
)

func newManager(t *testing.T) (*Manager, *sqldb.Storage) {
	t.Helper()
	s, err := sqldb.New(context.Background(), config.Storage{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := New(s, slog.Default())
	fixed := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	return m, s
}

func maintenanceFields() Fields {
	return Fields{
		Estate:       "A",
		Division:     "1",
		Block:        "B1",
		Date:         "2024-05-10",
		ActivityType: "TMPM01",
		Job:          "Pemupukan",
		PlannedArea:  "2",
		ActualArea:   "1.5",
		Workers: []WorkerInput{
			{Type: "Harian", Count: "5"},
			{Type: "", Count: "3"},
			{Type: "Borongan", Count: "0"},
		},
		Materials: []MaterialInput{
			{Type: "NPK", Quantity: "50", Unit: "kg"},
			{Type: "Urea", Quantity: "abc", Unit: "kg"},
		},
	}
}

func TestManager_SaveMaintenance(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	r, err := m.Save(ctx, storage.KindMaintenance, maintenanceFields())
	require.NoError(t, err)

	assert.False(t, r.Synced)
	assert.Equal(t, storage.ID("1715328000000"), r.ID)
	assert.Equal(t, 1, r.Division)
	assert.Equal(t, 1.5, r.ActualArea)
	assert.Equal(t, []storage.Worker{{Type: "Harian", Count: 5}}, r.Workers)
	assert.Equal(t, []storage.Material{{Type: "NPK", Quantity: 50, Unit: "kg"}}, r.Materials)
	assert.Zero(t, r.ActualTon)

	stored, err := storage.GetJSON[storage.Report](ctx, s, storage.CollReports, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, r, stored)
	assert.False(t, stored.Synced)
}

func TestManager_SaveHarvestDefaultsNumbers(t *testing.T) {
	m, _ := newManager(t)

	r, err := m.Save(context.Background(), storage.KindHarvest, Fields{
		Estate: "A", Division: "2", Block: "C3", Date: "2024-05-11",
		ActivityType: "PNKT01", Job: "Panen",
		ActualTon: "4.25", Labor: "12", ShippedTon: "", CarryOver: "x",
		Rotation: "P3", Feeder: "FD-01", Truck: "BK 1234",
		Workers: []WorkerInput{{Type: "Harian", Count: "5"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 4.25, r.ActualTon)
	assert.Equal(t, 12, r.Labor)
	assert.Zero(t, r.ShippedTon)
	assert.Zero(t, r.CarryOver)
	assert.Equal(t, "BK 1234", r.Truck)
	assert.Empty(t, r.Workers, "harvest reports carry no worker lines")
}

func TestManager_SaveValidation(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	f := maintenanceFields()
	f.Block = "  "
	f.Job = ""
	f.Division = "satu"

	_, err := m.Save(ctx, storage.KindMaintenance, f)
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"divisi", "blok", "pekerjaan"}, verr.Missing)

	all, err := s.GetAll(ctx, storage.CollReports)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, m.All())

	_, err = m.Save(ctx, "lainnya", maintenanceFields())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestManager_IDsAreUnique(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	seen := map[storage.ID]bool{}
	for i := 0; i < 5; i++ {
		r, err := m.Save(ctx, storage.KindMaintenance, maintenanceFields())
		require.NoError(t, err)
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}

func TestManager_EditRemovesAndRefills(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	f := maintenanceFields()
	f.Workers = nil
	f.Materials = nil
	r, err := m.Save(ctx, storage.KindMaintenance, f)
	require.NoError(t, err)

	form, err := m.Edit(ctx, r.ID)
	require.NoError(t, err)

	assert.Equal(t, storage.KindMaintenance, form.Kind)
	assert.Equal(t, Input("B1"), form.Fields.Block)
	assert.Equal(t, Input("1.5"), form.Fields.ActualArea)
	assert.Len(t, form.Fields.Workers, 1, "one blank worker line")
	assert.Len(t, form.Fields.Materials, 1, "one blank material line")

	assert.False(t, m.Has(r.ID))
	_, err = s.Get(ctx, storage.CollReports, r.ID.String())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// resubmitting the form produces exactly one report again
	_, err = m.Save(ctx, storage.KindMaintenance, form.Fields)
	require.NoError(t, err)
	assert.Len(t, m.All(), 1)

	_, err = m.Edit(ctx, "nope")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestManager_Delete(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	r, err := m.Save(ctx, storage.KindMaintenance, maintenanceFields())
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, r.ID))
	assert.Empty(t, m.All())
	_, err = s.Get(ctx, storage.CollReports, r.ID.String())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, m.Delete(ctx, r.ID), ErrReportNotFound)
}

func TestManager_ListFiltersAndOrders(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	for _, d := range []string{"2024-05-10", "2024-05-12", "2024-05-11"} {
		f := maintenanceFields()
		f.Date = Input(d)
		_, err := m.Save(ctx, storage.KindMaintenance, f)
		require.NoError(t, err)
	}
	_, err := m.Save(ctx, storage.KindHarvest, Fields{
		Estate: "A", Division: "1", Block: "B", Date: "2024-05-12", ActivityType: "PNKT01", Job: "Panen",
	})
	require.NoError(t, err)

	all := m.List(Filter{})
	require.Len(t, all, 4)
	assert.Equal(t, "2024-05-12", all[0].Date)
	assert.Equal(t, "2024-05-10", all[3].Date)

	maint := m.List(Filter{Kind: storage.KindMaintenance})
	require.Len(t, maint, 3)
	assert.Equal(t, []string{"2024-05-12", "2024-05-11", "2024-05-10"}, dates(maint))

	day := m.List(Filter{Date: "2024-05-12"})
	assert.Len(t, day, 2)

	assert.Len(t, m.List(Filter{Date: "2024-05-12", Kind: storage.KindMaintenance}), 1)
}

func TestManager_MergeSkipsKnownIDs(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	r, err := m.Save(ctx, storage.KindMaintenance, maintenanceFields())
	require.NoError(t, err)

	added, err := m.Merge(ctx, []storage.Report{
		{ID: r.ID, Type: storage.KindMaintenance, Estate: "dup"},
		{ID: "900", Type: storage.KindHarvest, Synced: true},
		{ID: "900", Type: storage.KindHarvest},
		{Type: storage.KindHarvest},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	got, ok := m.Get(r.ID)
	require.True(t, ok)
	assert.Equal(t, "A", got.Estate)

	imported, ok := m.Get("900")
	require.True(t, ok)
	assert.True(t, imported.Synced)
}

func TestManager_MarkSyncedOnlyAcknowledged(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	a, err := m.Save(ctx, storage.KindMaintenance, maintenanceFields())
	require.NoError(t, err)
	b, err := m.Save(ctx, storage.KindMaintenance, maintenanceFields())
	require.NoError(t, err)

	changed, err := m.MarkSynced(ctx, []storage.ID{a.ID, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	ga, _ := m.Get(a.ID)
	gb, _ := m.Get(b.ID)
	assert.True(t, ga.Synced)
	assert.False(t, gb.Synced)

	stored, err := storage.GetJSON[storage.Report](ctx, s, storage.CollReports, a.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.Synced)

	assert.Len(t, m.Unsynced(), 1)
	assert.Equal(t, Stats{Total: 2, Maintenance: 2, Unsynced: 1}, m.Stats())
}

func TestManager_LoadAndClear(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	_, err := m.Save(ctx, storage.KindMaintenance, maintenanceFields())
	require.NoError(t, err)

	other := New(s, slog.Default())
	require.NoError(t, other.Load(ctx))
	assert.Len(t, other.All(), 1)

	require.NoError(t, other.ClearAll(ctx))
	assert.Empty(t, other.All())

	require.NoError(t, m.Load(ctx))
	assert.Empty(t, m.All())
}

func TestManager_LoadSkipsUnreadableRecords(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, storage.CollReports, "1", []byte(`{"id":1,"workers":"Harian:5"}`)))
	require.NoError(t, s.Put(ctx, storage.CollReports, "2", []byte(`not json`)))
	require.NoError(t, s.Put(ctx, storage.CollReports, "3", []byte(`{"type":"perawatan","rencanaHa":"1,5","divisi":"2"}`)))

	require.NoError(t, m.Load(ctx))

	all := m.All()
	require.Len(t, all, 1)
	assert.Equal(t, storage.ID("3"), all[0].ID)
	assert.Equal(t, 1.5, all[0].PlannedArea)
	assert.Equal(t, 2, all[0].Division)
}

func TestManager_SaveRejectsDivisionBelowOne(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	for _, div := range []Input{"0", "-3", "1.5"} {
		f := maintenanceFields()
		f.Division = div

		_, err := m.Save(ctx, storage.KindMaintenance, f)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "divisi %q", div)
		assert.Equal(t, []string{"divisi"}, verr.Missing)
	}
	assert.Empty(t, m.All())
}

func TestInput_Numbers(t *testing.T) {
	tests := []struct {
		in      Input
		float   float64
		integer int
	}{
		{in: "1.5", float: 1.5, integer: 1},
		{in: " 12 ", float: 12, integer: 12},
		{in: "-5.7", float: -5.7, integer: -5},
		{in: "", float: 0, integer: 0},
		{in: "abc", float: 0, integer: 0},
		{in: "NaN", float: 0, integer: 0},
		{in: "inf", float: 0, integer: 0},
		{in: "+Inf", float: 0, integer: 0},
		{in: "-infinity", float: 0, integer: 0},
		{in: "1e400", float: 0, integer: 0},
		{in: "1e19", float: 1e19, integer: 0},
		{in: "-1e19", float: -1e19, integer: 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.float, tt.in.Float())
			assert.Equal(t, tt.integer, tt.in.Int())
		})
	}
}

func TestManager_SaveDropsNonFiniteNumbers(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	f := maintenanceFields()
	f.PlannedArea = "NaN"
	f.ActualArea = "inf"
	f.Workers = []WorkerInput{{Type: "Harian", Count: "1e19"}, {Type: "Borongan", Count: "2"}}
	f.Materials = []MaterialInput{{Type: "NPK", Quantity: "Inf"}}

	r, err := m.Save(ctx, storage.KindMaintenance, f)
	require.NoError(t, err)

	assert.Zero(t, r.PlannedArea)
	assert.Zero(t, r.ActualArea)
	assert.Equal(t, []storage.Worker{{Type: "Borongan", Count: 2}}, r.Workers)
	assert.Empty(t, r.Materials)

	// stored JSON stays readable
	require.NoError(t, m.Load(ctx))
	assert.Len(t, m.All(), 1)
	_, err = storage.GetJSON[storage.Report](ctx, s, storage.CollReports, r.ID.String())
	require.NoError(t, err)
}

func TestFields_DecodeNumbersAndStrings(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{"estate":"A","divisi":1,"aktualHa":1.5,"rencanaHa":"2","keterangan":null,
		"workers":[{"type":"Harian","count":5}]}`), &f)
	require.NoError(t, err)

	assert.Equal(t, Input("1"), f.Division)
	assert.Equal(t, 1.5, f.ActualArea.Float())
	assert.Equal(t, 2.0, f.PlannedArea.Float())
	assert.Equal(t, "", f.Remarks.String())
	assert.Equal(t, 5, f.Workers[0].Count.Int())
}

func TestDescribe(t *testing.T) {
	text := Describe(storage.Report{
		Type: storage.KindMaintenance, Estate: "A", Division: 1, Block: "B1", Date: "2024-05-10",
		ActivityType: "TMPM01", Job: "Pemupukan", PlannedArea: 2, ActualArea: 1.5,
		Workers: []storage.Worker{{Type: "Harian", Count: 5}},
	})

	assert.Contains(t, text, "*LAPORAN PERAWATAN*")
	assert.Contains(t, text, "Aktual Ha: 1.5")
	assert.Contains(t, text, "- Harian: 5")
	assert.Contains(t, text, "Bahan:\n- Tidak ada data")
	assert.Contains(t, text, "Keterangan: -")
	assert.Contains(t, text, "Status Sync: Belum sinkron")
}

func dates(rs []storage.Report) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Date)
	}
	return out
}
