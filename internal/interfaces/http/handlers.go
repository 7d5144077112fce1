package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/reportdesk/internal/application/apperr"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/application/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// multipartMemory is how much of a form is held in memory before parts
// spill to temporary files
const multipartMemory = 8 << 20

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string                     `json:"status"`
	Timestamp  string                     `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// HealthStatus represents the health of all components
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthChecker reports component health for GET /health
type HealthChecker interface {
	Health() *HealthStatus
}

// ActionRequest is the body of review and approve calls
type ActionRequest struct {
	Action   string `json:"action"`
	Comments string `json:"comments"`
}

// TransitionResponse is returned by review and approve
type TransitionResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
}

// MarkReadResponse is returned by mark-read
type MarkReadResponse struct {
	OK      bool  `json:"ok"`
	Updated int64 `json:"updated"`
}

// HealthCheck handles GET /health. An unhealthy component answers 503.
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if h.services.Health != nil {
		status := h.services.Health.Health()
		resp.Components = status.Components
		if !status.Overall {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, resp)
}

// ListReports handles GET /api/reports
func (h *Handlers) ListReports(c *gin.Context) {
	items, err := h.services.Queries.List(c.Request.Context(), listQuery(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// ExportReports handles GET /api/reports/export
func (h *Handlers) ExportReports(c *gin.Context) {
	download, err := h.services.Queries.Export(c.Request.Context(), *currentIdentity(c), listQuery(c))
	if err != nil {
		abort(c, err)
		return
	}
	sendFile(c, download)
}

// ReviewQueue handles GET /api/reports/review-queue
func (h *Handlers) ReviewQueue(c *gin.Context) {
	views, err := h.services.Queries.ReviewQueue(c.Request.Context(), *currentIdentity(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ApprovalQueue handles GET /api/reports/approval-queue
func (h *Handlers) ApprovalQueue(c *gin.Context) {
	views, err := h.services.Queries.ApprovalQueue(c.Request.Context(), *currentIdentity(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetReport handles GET /api/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	view, err := h.services.Queries.Get(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DownloadReport handles GET /api/reports/:id/download
func (h *Handlers) DownloadReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	download, err := h.services.Queries.Document(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	sendFile(c, download)
}

// SubmitReport handles POST /api/reports/submit
func (h *Handlers) SubmitReport(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		h.logger.Error("Invalid upload", "error", err)
		abort(c, apperr.Validation("Invalid upload"))
		return
	}

	in := service.SubmitInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		DueDate:     c.PostForm("due_date"),
	}
	if ref, ok := c.GetPostForm("report_type_id"); ok {
		in.ReportType = &ref
	}

	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		f, err := fileHeader.Open()
		if err != nil {
			abort(c, apperr.Validation("Could not read uploaded file"))
			return
		}
		defer f.Close()
		in.File = &service.Upload{Name: fileHeader.Filename, Reader: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.logger.Error("Invalid upload", "error", err)
		abort(c, apperr.Validation("Invalid upload"))
		return
	}

	report, err := h.services.Workflow.Submit(c.Request.Context(), *currentIdentity(c), in)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateReport handles PUT /api/reports/:id
func (h *Handlers) UpdateReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	in, err := decodeUpdate(c)
	if err != nil {
		abort(c, err)
		return
	}

	report, err := h.services.Workflow.Update(c.Request.Context(), *currentIdentity(c), id, in)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DeleteReport handles DELETE /api/reports/:id
func (h *Handlers) DeleteReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	if err := h.services.Workflow.Delete(c.Request.Context(), *currentIdentity(c), id); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, TransitionResponse{OK: true})
}

// ReviewReport handles POST /api/reports/:id/review
func (h *Handlers) ReviewReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, apperr.Validation("Invalid request body"))
		return
	}

	result, err := h.services.Workflow.Review(c.Request.Context(), *currentIdentity(c), id, req.Action, req.Comments)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, TransitionResponse{OK: true, Status: result.Status})
}

// ApproveReport handles POST /api/reports/:id/approve
func (h *Handlers) ApproveReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, apperr.Validation("Invalid request body"))
		return
	}

	result, err := h.services.Workflow.Approve(c.Request.Context(), *currentIdentity(c), id, req.Action, req.Comments)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, TransitionResponse{OK: true, Status: result.Status})
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	views, err := h.services.Notifications.List(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// MarkNotificationsRead handles POST /api/notifications/mark-read
func (h *Handlers) MarkNotificationsRead(c *gin.Context) {
	n, err := h.services.Notifications.MarkAllRead(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, MarkReadResponse{OK: true, Updated: n})
}

func listQuery(c *gin.Context) service.ListQuery {
	return service.ListQuery{
		Status: c.Query("status"),
		Q:      strings.TrimSpace(c.Query("q")),
	}
}

// reportID parses the :id parameter, writing a 400 when it is not a number
func reportID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		abort(c, apperr.Validation("Invalid report id"))
		return 0, false
	}
	return id, true
}

func sendFile(c *gin.Context, d *service.Download) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, d.FileName))
	c.Data(http.StatusOK, d.ContentType, d.Data)
}

// decodeUpdate reads the whitelisted update columns. A key that is
// present with null clears the column; other keys are ignored.
func decodeUpdate(c *gin.Context) (service.UpdateInput, error) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		return service.UpdateInput{}, apperr.Validation("Invalid request body")
	}

	var in service.UpdateInput
	var err error
	if in.Title, err = textField(body, "title"); err != nil {
		return in, err
	}
	if in.DueDate, err = textField(body, "due_date"); err != nil {
		return in, err
	}
	if in.Status, err = textField(body, "status"); err != nil {
		return in, err
	}
	if in.ReportType, err = textField(body, "report_type_id"); err != nil {
		return in, err
	}
	return in, nil
}

// textField reads key as a string, accepting JSON numbers verbatim
func textField(body map[string]json.RawMessage, key string) (port.Field[string], error) {
	raw, ok := body[key]
	if !ok {
		return port.Field[string]{}, nil
	}
	if string(raw) == "null" {
		return port.SetField[string](nil), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return port.SetValue(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return port.SetValue(n.String()), nil
	}
	return port.Field[string]{}, apperr.Validation(fmt.Sprintf("Invalid value for %s", key))
}
