package save

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agro-report/internal/service/reports"
	"agro-report/internal/storage"
)

type MockReportSaver struct {
	mock.Mock
}

func (m *MockReportSaver) SaveReport(ctx context.Context, kind storage.Kind, f reports.Fields) (storage.Report, error) {
	args := m.Called(ctx, kind, f)
	return args.Get(0).(storage.Report), args.Error(1)
}

func (m *MockReportSaver) EditReport(ctx context.Context, id storage.ID) (reports.EditForm, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(reports.EditForm), args.Error(1)
}

func newRouter(saver *MockReportSaver) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/reports/{kind}", SaveReport(slog.Default(), saver))
	r.Post("/api/reports/{id}/edit", EditReport(slog.Default(), saver))
	return r
}

func TestSaveReport_Success(t *testing.T) {
	saver := new(MockReportSaver)
	saver.On("SaveReport", mock.Anything, storage.KindMaintenance, mock.MatchedBy(func(f reports.Fields) bool {
		return f.Estate == "A" && f.Division == "1" && f.ActualArea.Float() == 1.5 && len(f.Workers) == 1
	})).Return(storage.Report{ID: "1715328000000", Type: storage.KindMaintenance, Estate: "A"}, nil)

	body := `{"estate":"A","divisi":1,"blok":"B1","tanggal":"2024-05-10","actTyp":"TMPM01",
		"pekerjaan":"Pemupukan","rencanaHa":2,"aktualHa":"1.5","workers":[{"type":"Harian","count":5}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports/perawatan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	newRouter(saver).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp SaveResponse
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, storage.ID("1715328000000"), resp.Report.ID)
	assert.False(t, resp.Report.Synced)

	saver.AssertExpectations(t)
}

func TestSaveReport_Validation(t *testing.T) {
	saver := new(MockReportSaver)
	saver.On("SaveReport", mock.Anything, storage.KindHarvest, mock.Anything).
		Return(storage.Report{}, &reports.ValidationError{Missing: []string{"blok"}})

	req := httptest.NewRequest(http.MethodPost, "/api/reports/panen", strings.NewReader(`{"estate":"A"}`))
	rr := httptest.NewRecorder()
	newRouter(saver).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "harus diisi")
}

func TestSaveReport_BadInput(t *testing.T) {
	saver := new(MockReportSaver)

	rr := httptest.NewRecorder()
	newRouter(saver).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reports/perawatan", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	newRouter(saver).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reports/lainnya", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	saver.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditReport(t *testing.T) {
	saver := new(MockReportSaver)
	saver.On("EditReport", mock.Anything, storage.ID("42")).Return(reports.EditForm{
		Kind:   storage.KindMaintenance,
		Fields: reports.Fields{Estate: "A", Workers: []reports.WorkerInput{{}}},
	}, nil)
	saver.On("EditReport", mock.Anything, storage.ID("404")).
		Return(reports.EditForm{}, fmt.Errorf("edit: %w", reports.ErrReportNotFound))

	rr := httptest.NewRecorder()
	newRouter(saver).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reports/42/edit", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var form reports.EditForm
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &form))
	assert.Equal(t, storage.KindMaintenance, form.Kind)
	assert.Len(t, form.Fields.Workers, 1)

	rr = httptest.NewRecorder()
	newRouter(saver).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reports/404/edit", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
