package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/logging"
)

var contentTypes = map[Format]string{
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatCSV:  "text/csv",
}

type Handler struct {
	service *Service
}

// NewHTTPHandler serves GET /api/employees/export?format=xlsx|csv.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, auth.NoTenantMessage)
		return
	}
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if _, err := h.service.WriteEmployees(r.Context(), tenant, format, &buf); err != nil {
		if errors.Is(err, ErrInvalidTenant) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.FromContext(r.Context()).WithError(err).Error("employee export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.service.FileName(tenant, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
