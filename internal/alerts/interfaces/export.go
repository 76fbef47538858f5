// Package interfaces holds alert export builders shared by the export
// HTTP endpoints.
package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
)

const exportTimeLayout = time.RFC3339

// WriteAlertsCSV streams the alert history as CSV.
func WriteAlertsCSV(w io.Writer, list []alerts.Alert) error {
	writer := csv.NewWriter(w)
	header := []string{"id", "device_code", "device_name", "location", "type", "level", "message", "active", "acked_by", "resolved_at", "created_at"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, alert := range list {
		record := []string{
			strconv.FormatInt(alert.ID, 10),
			alert.DeviceCode,
			alert.DeviceName,
			alert.DeviceLocation,
			alert.Type,
			strconv.Itoa(alert.Level),
			alert.Message,
			strconv.FormatBool(alert.IsActive),
			formatID(alert.AckByUserID),
			formatTime(alert.ResolvedAt),
			formatTime(alert.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// BuildAlertsXLSX renders the alert history as a spreadsheet.
func BuildAlertsXLSX(list []alerts.Alert) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "alerts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Device", "Name", "Location", "Type", "Level", "Message", "Active", "Resolved At", "Created At"}
	for i, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	for i, alert := range list {
		row := i + 2
		values := []any{
			alert.ID,
			alert.DeviceCode,
			alert.DeviceName,
			alert.DeviceLocation,
			alert.Type,
			alert.Level,
			alert.Message,
			alert.IsActive,
			formatTime(alert.ResolvedAt),
			formatTime(alert.CreatedAt),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertsPDF renders the alert history as a minimal PDF report.
func BuildAlertsPDF(list []alerts.Alert, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alert History")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(exportTimeLayout)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Alerts: %d", len(list)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(15, 6, "ID", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Device", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Level", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Message", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Active", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Created", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, alert := range list {
		pdf.CellFormat(15, 6, strconv.FormatInt(alert.ID, 10), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, alert.DeviceCode, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, alert.Type, "1", 0, "C", false, 0, "")
		pdf.CellFormat(15, 6, strconv.Itoa(alert.Level), "1", 0, "R", false, 0, "")
		pdf.CellFormat(95, 6, alert.Message, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, strconv.FormatBool(alert.IsActive), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, formatTime(alert.CreatedAt), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
