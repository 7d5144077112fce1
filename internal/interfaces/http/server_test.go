package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/reportdesk/internal/application/dispatcher"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/application/service"
	"github.com/garyjia/reportdesk/internal/infrastructure/document"
	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/reportdesk/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/reportdesk/internal/infrastructure/storage"
	"github.com/garyjia/reportdesk/internal/testutil"
)

const testSecret = "test-secret"

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// storedReport is the subset of the report row the tests inspect
type storedReport struct {
	ID       int64   `json:"id"`
	Status   string  `json:"status"`
	FilePath *string `json:"file_path"`
	DueDate  *string `json:"due_date"`
}

type testApp struct {
	server   *Server
	auth     *Authenticator
	fixtures *testutil.Fixtures
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T, scope service.NotificationScope) *testApp {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	fixtures := testutil.SetupFixtures(t, db)
	zl := zap.NewNop()

	reports := repository.NewReportRepository(db, zl)
	history := repository.NewHistoryRepository(db, zl)
	notifications := repository.NewNotificationRepository(db, zl)
	directory := repository.NewDirectoryRepository(db, zl)
	files := storage.NewLocalFileStorage(t.TempDir(), zl)

	events := dispatcher.NewDispatcher()
	notificationService := service.NewNotificationService(reports, notifications, directory, nil, scope, nopLogger{})
	notificationService.Register(events)
	service.RegisterUploadCleanup(events, files, nopLogger{})

	services := Services{
		Workflow:      service.NewWorkflowService(reports, history, directory, files, sqldb.NewDB(db.DB, zl), events, nopLogger{}),
		Queries:       service.NewQueryService(reports, directory, document.NewPDFRenderer(), document.NewXLSXExporter(), nopLogger{}),
		Notifications: notificationService,
	}

	auth := NewAuthenticator(testSecret, directory, nopLogger{})
	return &testApp{
		server:   NewServer(DefaultServerConfig(), services, auth, nopLogger{}),
		auth:     auth,
		fixtures: fixtures,
	}
}

func (a *testApp) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := a.auth.Issue(userID, time.Hour)
	require.NoError(t, err)
	return token
}

func (a *testApp) do(t *testing.T, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+a.token(t, userID))
	}

	rec := httptest.NewRecorder()
	a.server.Router().ServeHTTP(rec, req)
	return rec
}

func (a *testApp) submit(t *testing.T, userID int64, fields map[string]string, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.token(t, userID))

	rec := httptest.NewRecorder()
	a.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[ErrorResponse](t, rec).Error
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)

	rec := app.do(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

type stubHealth struct{ status *HealthStatus }

func (s stubHealth) Health() *HealthStatus { return s.status }

func TestHealthCheck_Components(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)
	services := app.server.services

	services.Health = stubHealth{status: &HealthStatus{
		Overall:    true,
		Components: map[string]ComponentHealth{"database": {Healthy: true}},
	}}
	app.server = NewServer(DefaultServerConfig(), services, app.auth, nopLogger{})
	rec := app.do(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[HealthResponse](t, rec).Components["database"].Healthy)

	services.Health = stubHealth{status: &HealthStatus{
		Overall:    false,
		Components: map[string]ComponentHealth{"database": {Healthy: false, Message: "ping failed: closed"}},
	}}
	app.server = NewServer(DefaultServerConfig(), services, app.auth, nopLogger{})
	rec = app.do(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ping failed: closed", resp.Components["database"].Message)
}

func TestAuth_Failures(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)

	rec := app.do(t, http.MethodGet, "/api/reports/review-queue", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", errorMessage(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/review-queue", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	app.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", errorMessage(t, rec))

	other := NewAuthenticator("other-secret", nil, nopLogger{})
	forged, err := other.Issue(app.fixtures.FinanceReviewer, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/reports/review-queue", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	app.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, "Invalid token", errorMessage(t, rec))

	expired, err := app.auth.Issue(app.fixtures.FinanceReviewer, -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/reports/review-queue", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	app.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/reports/review-queue", 9999, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not found", errorMessage(t, rec))

	rec = app.do(t, http.MethodGet, "/api/reports/review-queue", app.fixtures.Employee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", errorMessage(t, rec))
}

func TestReportLifecycle(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)
	f := app.fixtures

	rec := app.submit(t, f.Employee, map[string]string{
		"title":          "Q1 Budget",
		"description":    "Quarterly numbers",
		"report_type_id": strconv.FormatInt(f.FinanceTypeID, 10),
		"due_date":       "2024-03-31",
	}, "budget.xlsx", []byte("spreadsheet"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	submitted := decode[storedReport](t, rec)
	assert.Equal(t, "Pending", submitted.Status)
	require.NotNil(t, submitted.FilePath)
	assert.Contains(t, *submitted.FilePath, "budget.xlsx")
	assert.Equal(t, "2024-03-31", *submitted.DueDate)
	path := "/api/reports/" + strconv.FormatInt(submitted.ID, 10)

	rec = app.do(t, http.MethodGet, "/api/reports/review-queue", f.FinanceReviewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decode[[]port.ReportView](t, rec)
	require.Len(t, queue, 1)
	assert.Equal(t, "Finance", queue[0].Department)
	assert.Equal(t, "Monthly Financials", queue[0].Type)
	assert.Equal(t, "Regular Employee", queue[0].SubmittedBy)

	rec = app.do(t, http.MethodGet, "/api/reports/review-queue", f.OperationsReviewer, nil)
	assert.Empty(t, decode[[]port.ReportView](t, rec))

	rec = app.do(t, http.MethodPost, path+"/review", f.FinanceReviewer, ActionRequest{Action: "Reviewed", Comments: "fine"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, TransitionResponse{OK: true, Status: "Reviewed"}, decode[TransitionResponse](t, rec))

	rec = app.do(t, http.MethodGet, "/api/reports/approval-queue", f.Approver, nil)
	assert.Len(t, decode[[]port.ReportView](t, rec), 1)

	rec = app.do(t, http.MethodPost, path+"/approve", f.Approver, ActionRequest{Action: "Approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, TransitionResponse{OK: true, Status: "Approved"}, decode[TransitionResponse](t, rec))

	rec = app.do(t, http.MethodPost, path+"/approve", f.Approver, ActionRequest{Action: "Approved"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/reports?status=APPROVED&q=quarterly", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]port.ReportListItem](t, rec)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ReviewedBy)
	assert.Equal(t, f.FinanceReviewer, *items[0].ReviewedBy)
	assert.Equal(t, "fine", *items[0].ReviewComments)
	require.NotNil(t, items[0].ApprovedDate)

	rec = app.do(t, http.MethodGet, path, 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Approved", decode[port.ReportView](t, rec).Status)

	rec = app.do(t, http.MethodGet, path+"/download", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Q1_Budget.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = app.do(t, http.MethodGet, "/api/notifications", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notifications := decode[[]map[string]interface{}](t, rec)
	require.Len(t, notifications, 3)
	assert.Equal(t, "success", notifications[0]["type"])
	assert.Equal(t, "Report Approved", notifications[0]["title"])
	assert.Equal(t, "Your report Q1 Budget status is now Approved", notifications[0]["message"])
}

func TestSubmit_Validation(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)
	f := app.fixtures

	rec := app.submit(t, f.Employee, map[string]string{"title": "Q1", "report_type_id": "Nope"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid report type", errorMessage(t, rec))

	rec = app.submit(t, f.Approver, map[string]string{"title": "Q1"}, "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/reports", 0, nil)
	assert.Empty(t, decode[[]port.ReportListItem](t, rec))
}

func TestSubmit_UploadLimit(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)
	f := app.fixtures

	cfg := DefaultServerConfig()
	cfg.MaxUploadBytes = 2048
	app.server = NewServer(cfg, app.server.services, app.auth, nopLogger{})

	rec := app.submit(t, f.Employee, map[string]string{"title": "Big"}, "big.pdf", bytes.Repeat([]byte("x"), 8<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Upload exceeds 2048 bytes", errorMessage(t, rec))

	rec = app.submit(t, f.Employee, map[string]string{"title": "Small"}, "small.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/reports", 0, nil)
	items := decode[[]port.ReportListItem](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "Small", items[0].Title)
}

func TestReportRoutes_BadIDs(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)

	rec := app.do(t, http.MethodGet, "/api/reports/abc", 0, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/reports/999", 0, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", errorMessage(t, rec))

	rec = app.do(t, http.MethodPost, "/api/reports/999/review", app.fixtures.FinanceReviewer, ActionRequest{Action: "Reviewed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/reports/999/review", app.fixtures.FinanceReviewer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)
	f := app.fixtures

	rec := app.submit(t, f.Employee, map[string]string{"title": "Q1", "report_type_id": "Monthly Financials"}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[storedReport](t, rec).ID
	path := "/api/reports/" + strconv.FormatInt(id, 10)

	rec = app.do(t, http.MethodPut, path, f.Employee, map[string]interface{}{
		"title":          "Q1 Budget",
		"status":         "reviewed",
		"report_type_id": nil,
		"description":    "ignored",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "Q1 Budget", updated["title"])
	assert.Equal(t, "Reviewed", updated["status"])
	assert.Nil(t, updated["report_type_id"])
	assert.Equal(t, "", updated["description"])

	rec = app.do(t, http.MethodPut, path, f.Employee, map[string]interface{}{"status": "Archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodDelete, path, f.Employee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodDelete, path, f.Admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TransitionResponse{OK: true}, decode[TransitionResponse](t, rec))

	rec = app.do(t, http.MethodGet, path, 0, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodDelete, path, f.Admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)
	f := app.fixtures

	rec := app.submit(t, f.Employee, map[string]string{"title": "Q1"}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/reports/export", f.Employee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/reports/export", f.Approver, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, document.NewXLSXExporter().ContentType(), rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reports.xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestMarkRead_Scopes(t *testing.T) {
	seed := func(t *testing.T, app *testApp) {
		f := app.fixtures
		rec := app.submit(t, f.Employee, map[string]string{"title": "Q1", "report_type_id": "Monthly Financials"}, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		id := decode[storedReport](t, rec).ID
		rec = app.do(t, http.MethodPost, "/api/reports/"+strconv.FormatInt(id, 10)+"/review", f.FinanceReviewer, ActionRequest{Action: "Reviewed"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	unread := func(views []map[string]interface{}) int {
		n := 0
		for _, v := range views {
			if v["read"] == false {
				n++
			}
		}
		return n
	}

	t.Run("all", func(t *testing.T) {
		app := newTestApp(t, service.ScopeAll)
		seed(t, app)

		rec := app.do(t, http.MethodPost, "/api/notifications/mark-read", app.fixtures.Approver, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, MarkReadResponse{OK: true, Updated: 2}, decode[MarkReadResponse](t, rec))

		rec = app.do(t, http.MethodGet, "/api/notifications", 0, nil)
		assert.Equal(t, 0, unread(decode[[]map[string]interface{}](t, rec)))
	})

	t.Run("recipient", func(t *testing.T) {
		app := newTestApp(t, service.ScopeRecipient)
		seed(t, app)

		rec := app.do(t, http.MethodGet, "/api/notifications", 0, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = app.do(t, http.MethodPost, "/api/notifications/mark-read", app.fixtures.Approver, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, MarkReadResponse{OK: true, Updated: 1}, decode[MarkReadResponse](t, rec))

		rec = app.do(t, http.MethodGet, "/api/notifications", app.fixtures.FinanceReviewer, nil)
		views := decode[[]map[string]interface{}](t, rec)
		require.Len(t, views, 1)
		assert.Equal(t, 1, unread(views))
	})
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t, service.ScopeAll)

	req := httptest.NewRequest(http.MethodOptions, "/api/reports/submit", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	app.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

type failingQueries struct {
	service.QueryService
}

func (failingQueries) List(ctx context.Context, q service.ListQuery) ([]port.ReportListItem, error) {
	return nil, errors.New("pq: connection refused")
}

func TestInternalErrors_HiddenInProduction(t *testing.T) {
	for _, tt := range []struct {
		environment string
		want        string
	}{
		{"development", "pq: connection refused"},
		{"production", "Server error"},
	} {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := DefaultServerConfig()
			cfg.Environment = tt.environment
			server := NewServer(cfg, Services{Queries: failingQueries{}}, NewAuthenticator(testSecret, nil, nopLogger{}), nopLogger{})

			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}
}
