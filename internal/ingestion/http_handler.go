package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/logging"
	"github.com/rpattn/payrolldesk/internal/tabular"
)

const defaultMaxUploadBytes = 32 << 20

// Uploader is the part of Service the HTTP layer needs.
type Uploader interface {
	UploadEmployees(ctx context.Context, req UploadRequest) (domain.UploadResult, error)
	UploadAttendance(ctx context.Context, req AttendanceRequest) (domain.UploadResult, error)
}

var _ Uploader = (*Service)(nil)

// Handler exposes ingestion as HTTP endpoints.
type Handler struct {
	service  Uploader
	maxBytes int64
	mux      *http.ServeMux
}

// NewHTTPHandler wraps the service with the upload endpoints. maxBytes <= 0
// selects the default form size limit.
func NewHTTPHandler(service Uploader, maxBytes int64) http.Handler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	h := &Handler{service: service, maxBytes: maxBytes, mux: http.NewServeMux()}
	h.mux.HandleFunc("/api/upload/employees", h.uploadEmployees)
	h.mux.HandleFunc("/api/upload/attendance", h.uploadAttendance)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) uploadEmployees(w http.ResponseWriter, r *http.Request) {
	tenant, fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.service.UploadEmployees(r.Context(), UploadRequest{
		Tenant:   tenant,
		FileName: fileName,
		Format:   formatFromRequest(r),
		Data:     bytes.NewReader(data),
	})
	h.respond(w, r, result, err)
}

func (h *Handler) uploadAttendance(w http.ResponseWriter, r *http.Request) {
	tenant, fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	month, err := strconv.Atoi(strings.TrimSpace(r.FormValue("month")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month is required and must be a number")
		return
	}
	year, err := strconv.Atoi(strings.TrimSpace(r.FormValue("year")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year is required and must be a number")
		return
	}

	result, err := h.service.UploadAttendance(r.Context(), AttendanceRequest{
		Tenant:   tenant,
		Year:     year,
		Month:    month,
		FileName: fileName,
		Format:   formatFromRequest(r),
		Data:     bytes.NewReader(data),
	})
	h.respond(w, r, result, err)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (domain.Tenant, string, []byte, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return domain.Tenant{}, "", nil, false
	}

	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, auth.NoTenantMessage)
		return domain.Tenant{}, "", nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
		return domain.Tenant{}, "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file required: %v", err))
		return domain.Tenant{}, "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return domain.Tenant{}, "", nil, false
	}

	return tenant, header.Filename, data, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, result domain.UploadResult, err error) {
	var persistErr *PersistenceError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.As(err, &persistErr):
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, tabular.ErrUnreadable), errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context()).WithError(err).Error("upload failed")
		writeError(w, http.StatusInternalServerError, "upload failed")
	}
}

func formatFromRequest(r *http.Request) tabular.Format {
	switch strings.ToLower(strings.TrimSpace(r.FormValue("format"))) {
	case "csv":
		return tabular.FormatCSV
	case "xlsx", "excel", "spreadsheet":
		return tabular.FormatSpreadsheet
	}
	return tabular.FormatUnknown
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
