package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agro-report/internal/config"
	"agro-report/internal/remote"
	"agro-report/internal/service/aggregate"
	"agro-report/internal/service/catalog"
	"agro-report/internal/service/excel"
	"agro-report/internal/service/migrate"
	"agro-report/internal/service/reports"
	"agro-report/internal/service/syncer"
	"agro-report/internal/storage"
	"agro-report/internal/storage/sqldb"
)

type remoteMock struct {
	mock.Mock
}

func (m *remoteMock) AppendData(ctx context.Context, rows []remote.Row) ([]storage.ID, error) {
	args := m.Called(ctx, rows)
	ids, _ := args.Get(0).([]storage.ID)
	return ids, args.Error(1)
}

func (m *remoteMock) GetActivityTypes(ctx context.Context) ([]storage.ActivityType, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]storage.ActivityType)
	return items, args.Error(1)
}

func (m *remoteMock) GetActualByNIK(ctx context.Context, nik string) ([]storage.Report, error) {
	args := m.Called(ctx, nik)
	items, _ := args.Get(0).([]storage.Report)
	return items, args.Error(1)
}

func (m *remoteMock) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestApp(t *testing.T) (*App, *sqldb.Storage, *remoteMock) {
	t.Helper()

	s, err := sqldb.New(context.Background(), config.Storage{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	rc := &remoteMock{}
	return New(slog.Default(), s, rc, nil, ""), s, rc
}

func form(date string) reports.Fields {
	return reports.Fields{
		Estate: "A", Division: "1", Block: "B1", Date: reports.Input(date),
		ActivityType: "TMPM01", Job: "Pemupukan", PlannedArea: "2", ActualArea: "1.5",
		Workers: []reports.WorkerInput{{Type: "Harian", Count: "5"}},
	}
}

func TestStart_MigratesLegacyData(t *testing.T) {
	a, s, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, storage.CollMeta, migrate.LegacyReports,
		[]byte(`[{"id":1700000000000,"type":"perawatan","estate":"A","divisi":1,"tanggal":"2024-05-01","synced":false}]`)))
	require.NoError(t, s.Put(ctx, storage.CollMeta, migrate.LegacyUserInfo,
		[]byte(`{"menteeName":"Budi","mentorName":"Sari"}`)))
	require.NoError(t, s.Put(ctx, storage.CollMeta, migrate.LegacyActTyps,
		[]byte(`{"perawatan":[{"code":"TMPM07","desc":"Kastrasi"}]}`)))

	require.NoError(t, a.Start(ctx))

	assert.True(t, a.Reports.Has("1700000000000"))
	assert.Equal(t, "Budi", a.UserInfo().MenteeName)
	_, ok := a.Catalog.Lookup(storage.KindMaintenance, "TMPM07")
	assert.True(t, ok)

	_, err := s.Get(ctx, storage.CollMeta, migrate.LegacyReports)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStart_BrokenLegacyDataDoesNotAbort(t *testing.T) {
	a, s, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, storage.CollMeta, migrate.LegacyReports, []byte(`{"not":"a list"}`)))

	require.NoError(t, a.Start(ctx))
	assert.Empty(t, a.Reports.All())
}

func TestStart_LegacyReportsWithSheetValues(t *testing.T) {
	a, s, rc := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, storage.CollMeta, migrate.LegacyReports, []byte(`[
		{"id":1700000000000,"type":"perawatan","estate":"A","divisi":"1","blok":"B1","tanggal":"2024-05-01","rencanaHa":"1,5","aktualHa":"","synced":false},
		{"id":1700000000001,"type":"perawatan","estate":"A","divisi":1,"tanggal":"2024-05-01","workers":"Harian:5"}
	]`)))

	require.NoError(t, a.Start(ctx))

	r, ok := a.Reports.Get("1700000000000")
	require.True(t, ok)
	assert.Equal(t, 1.5, r.PlannedArea)
	assert.Zero(t, r.ActualArea)
	assert.Equal(t, 1, r.Division)
	assert.False(t, a.Reports.Has("1700000000001"))

	// a restart reads the migrated records back
	again := New(slog.Default(), s, rc, nil, "")
	require.NoError(t, again.Start(ctx))
	assert.Len(t, again.Reports.All(), 1)
}

func TestStart_SkipsUnreadableStoredReport(t *testing.T) {
	a, s, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, storage.CollReports, "1", []byte(`{"id":1,"estate":{"name":"A"}}`)))
	require.NoError(t, storage.PutJSON(ctx, s, storage.CollReports, "2", storage.Report{ID: "2", Type: storage.KindHarvest}))

	require.NoError(t, a.Start(ctx))

	all := a.Reports.All()
	require.Len(t, all, 1)
	assert.Equal(t, storage.ID("2"), all[0].ID)
}

func TestSaveReport_RemembersLastInputs(t *testing.T) {
	a, s, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	r, err := a.SaveReport(ctx, storage.KindMaintenance, form("2024-05-10"))
	require.NoError(t, err)
	assert.False(t, r.Synced)

	want := storage.FormInputs{Estate: "A", Division: "1", ActivityType: "TMPM01", Job: "Pemupukan"}
	assert.Equal(t, want, a.LastInputs().Perawatan)

	stored, err := storage.GetJSON[storage.LastInputs](ctx, s, storage.CollMeta, storage.MetaLastInputs)
	require.NoError(t, err)
	assert.Equal(t, want, stored.Perawatan)
	assert.Equal(t, LevelSuccess, a.Status().Level)

	_, err = a.SaveReport(ctx, storage.KindMaintenance, reports.Fields{})
	assert.ErrorIs(t, err, reports.ErrValidation)
}

func TestDailyMessage(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.SaveReport(ctx, storage.KindMaintenance, form("2024-05-10"))
	require.NoError(t, err)
	second := form("2024-05-15")
	second.ActualArea = "2"
	_, err = a.SaveReport(ctx, storage.KindMaintenance, second)
	require.NoError(t, err)

	msg, err := a.DailyMessage(aggregate.Query{Kind: storage.KindMaintenance, Estate: "A", Division: 1, Date: "2024-05-15"})
	require.NoError(t, err)
	assert.Contains(t, msg, "SD Hi: 3.5")
	assert.Contains(t, msg, "SD Bi: 3.5")

	_, err = a.DailyMessage(aggregate.Query{Kind: storage.KindMaintenance, Date: "2024-05-15"})
	assert.ErrorIs(t, err, reports.ErrValidation)

	_, err = a.DailyMessage(aggregate.Query{Kind: storage.KindMaintenance, Estate: "A", Division: -1, Date: "2024-05-15"})
	var verr *reports.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"divisi"}, verr.Missing)
}

func TestSaveReport_DivisionZeroIsRejected(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	f := form("2024-05-15")
	f.Division = "0"
	_, err := a.SaveReport(ctx, storage.KindMaintenance, f)
	require.ErrorIs(t, err, reports.ErrValidation)
	assert.Empty(t, a.Reports.All())
}

func TestSaveUserInfo_TriggersFirstMasterPull(t *testing.T) {
	a, _, rc := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	err := a.SaveUserInfo(ctx, storage.UserInfo{MenteeName: "Budi"})
	require.ErrorIs(t, err, reports.ErrValidation)

	rc.On("GetActivityTypes", mock.Anything).Return([]storage.ActivityType{
		{Category: storage.KindHarvest, Code: "PNKT09", Desc: "Langsir"},
	}, nil).Once()

	require.NoError(t, a.SaveUserInfo(ctx, storage.UserInfo{MenteeName: " Budi ", MentorName: "Sari", NIK: "123"}))
	assert.Equal(t, storage.UserInfo{MenteeName: "Budi", MentorName: "Sari", NIK: "123"}, a.UserInfo())
	assert.Equal(t, 1, a.Catalog.MasterCount())

	// master already present, no second pull
	require.NoError(t, a.SaveUserInfo(ctx, storage.UserInfo{MenteeName: "Budi", MentorName: "Sari", NIK: "123"}))
	rc.AssertNumberOfCalls(t, "GetActivityTypes", 1)
}

func TestSaveUserInfo_PullFailureIsNotFatal(t *testing.T) {
	a, _, rc := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	rc.On("GetActivityTypes", mock.Anything).Return(nil, remote.ErrUnsuccessful).Once()

	require.NoError(t, a.SaveUserInfo(ctx, storage.UserInfo{MenteeName: "Budi", MentorName: "Sari", NIK: "123"}))
	assert.Equal(t, LevelError, a.Status().Level)
}

func TestPush_BusyGuard(t *testing.T) {
	a, _, rc := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	r, err := a.SaveReport(ctx, storage.KindMaintenance, form("2024-05-10"))
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	rc.On("AppendData", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return([]storage.ID{r.ID}, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := a.Push(ctx)
		done <- err
	}()

	<-entered
	_, err = a.Push(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	got, _ := a.Reports.Get(r.ID)
	assert.True(t, got.Synced)

	_, err = a.Push(ctx)
	assert.ErrorIs(t, err, syncer.ErrNothingToSync)
}

func TestPullActual_NeedsNIK(t *testing.T) {
	a, _, rc := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.PullActual(ctx)
	assert.Error(t, err)
	assert.Equal(t, LevelWarning, a.Status().Level)
	rc.AssertNotCalled(t, "GetActualByNIK", mock.Anything, mock.Anything)
}

func TestExportImport(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.Export()
	require.ErrorIs(t, err, ErrNothingToExport)

	_, err = a.SaveReport(ctx, storage.KindMaintenance, form("2024-05-10"))
	require.NoError(t, err)

	data, err := a.Export()
	require.NoError(t, err)

	_, err = a.Import(ctx, bytes.NewReader(data))
	assert.ErrorIs(t, err, excel.ErrNothingToImport)

	require.NoError(t, a.ClearReports(ctx))
	n, err := a.Import(ctx, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReset(t *testing.T) {
	a, s, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.SaveReport(ctx, storage.KindMaintenance, form("2024-05-10"))
	require.NoError(t, err)
	require.NoError(t, a.SaveUserInfo(ctx, storage.UserInfo{MenteeName: "Budi", MentorName: "Sari"}))
	_, err = a.AddActivityType(ctx, storage.ActivityType{Category: storage.KindMaintenance, Code: "x1", Desc: "Lain"})
	require.NoError(t, err)

	require.NoError(t, a.Reset(ctx))

	assert.Empty(t, a.Reports.All())
	assert.Equal(t, storage.UserInfo{}, a.UserInfo())
	assert.Len(t, a.ActivityTypes(storage.KindMaintenance), 4)
	assert.Len(t, a.ActivityTypes(storage.KindHarvest), 2)

	custom, err := s.GetAll(ctx, storage.CollCustomActType)
	require.NoError(t, err)
	assert.Len(t, custom, len(catalog.Defaults))

	assert.Equal(t, "Pemupukan", a.Autofill(storage.KindMaintenance, "tmpm01", ""))
	assert.Equal(t, "Sendiri", a.Autofill(storage.KindMaintenance, "TMPM01", "Sendiri"))
}

func TestNotifyOnline(t *testing.T) {
	a, _, rc := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	a.NotifyOnline(ctx)
	assert.Equal(t, Status{}, a.Status())

	_, err := a.SaveReport(ctx, storage.KindMaintenance, form("2024-05-10"))
	require.NoError(t, err)

	a.NotifyOnline(ctx)
	assert.Equal(t, LevelWarning, a.Status().Level)
	assert.Contains(t, a.Status().Message, "1 laporan")
	rc.AssertNotCalled(t, "AppendData", mock.Anything, mock.Anything)
}

func TestOnline(t *testing.T) {
	a, _, rc := newTestApp(t)

	rc.On("Ping", mock.Anything).Return(nil).Once()
	assert.True(t, a.Online(context.Background()))

	rc.On("Ping", mock.Anything).Return(errors.New("dial tcp: timeout")).Once()
	assert.False(t, a.Online(context.Background()))
}
