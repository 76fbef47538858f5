package http

import (
	"net/http"
	"strings"
	"time"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
	"github.com/dangdich07/fire-alert/internal/alerts/interfaces"
	"github.com/dangdich07/fire-alert/internal/auth"
)

const exportPathPrefix = "/api/v1/exports/alerts"

// ExportHandler serves the owner-scoped alert history as a downloadable
// file: /api/v1/exports/alerts.csv, .xlsx or .pdf.
type ExportHandler struct {
	service *alertapp.Service
}

// NewExportHandler constructs an export handler.
func NewExportHandler(service *alertapp.Service) *ExportHandler {
	return &ExportHandler{service: service}
}

// ServeHTTP dispatches by extension.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	format := strings.TrimPrefix(r.URL.Path, exportPathPrefix)
	list, err := h.service.ListAlerts(r.Context(), userID, false)
	if err != nil {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}

	switch format {
	case ".csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.csv"`)
		if err := interfaces.WriteAlertsCSV(w, list); err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
		}
	case ".xlsx":
		data, err := interfaces.BuildAlertsXLSX(list)
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.xlsx"`)
		_, _ = w.Write(data)
	case ".pdf":
		data, err := interfaces.BuildAlertsPDF(list, time.Now().UTC())
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.pdf"`)
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
