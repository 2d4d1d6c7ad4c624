package http

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	equipment "equipment-api/internal/equipment/domain"
)

const exportPerPageDefault = 10000

// ExportHandler streams stored readings as csv, xlsx or pdf at
// /equipment/export.
type ExportHandler struct {
	repo   equipment.ReadingRepository
	logger *log.Logger
}

// NewExportHandler constructs an export handler.
func NewExportHandler(repo equipment.ReadingRepository, logger *log.Logger) (*ExportHandler, error) {
	if repo == nil {
		return nil, errors.New("export handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExportHandler{repo: repo, logger: logger}, nil
}

// ServeHTTP handles GET /equipment/export.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	page, perPage := parsePagination(r, 1, exportPerPageDefault)
	readings, _, err := h.repo.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Printf("equipment export: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Unable to export readings")
		return
	}

	var payload []byte
	var contentType, filename string
	switch format {
	case "csv":
		payload, err = BuildReadingsCSV(readings)
		contentType, filename = "text/csv", "readings.csv"
	case "xlsx":
		payload, err = BuildReadingsXLSX(readings)
		contentType, filename = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "readings.xlsx"
	case "pdf":
		payload, err = BuildReadingsPDF(readings)
		contentType, filename = "application/pdf", "readings.pdf"
	default:
		respondMessage(w, http.StatusBadRequest, "format must be one of csv, xlsx, pdf")
		return
	}
	if err != nil {
		h.logger.Printf("equipment export: build %s: %v", format, err)
		respondMessage(w, http.StatusInternalServerError, "Unable to export readings")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	_, _ = w.Write(payload)
}

// BuildReadingsCSV renders readings as a ';'-delimited document, the same
// shape the upload endpoint accepts.
func BuildReadingsCSV(readings []equipment.Reading) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Comma = ';'

	if err := writer.Write([]string{"equipmentId", "timestamp", "value"}); err != nil {
		return nil, err
	}
	for _, reading := range readings {
		value := ""
		if reading.Value != nil {
			value = strconv.FormatFloat(*reading.Value, 'f', -1, 64)
		}
		record := []string{reading.EquipmentID, reading.Timestamp.Format(timestampLayout), value}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}

// BuildReadingsXLSX renders readings as a single-sheet workbook.
func BuildReadingsXLSX(readings []equipment.Reading) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "readings"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "equipmentId")
	_ = f.SetCellValue(sheet, "B1", "timestamp")
	_ = f.SetCellValue(sheet, "C1", "value")
	for i, reading := range readings {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), reading.EquipmentID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), reading.Timestamp.Format(timestampLayout))
		if reading.Value != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), *reading.Value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReadingsPDF renders readings as a table.
func BuildReadingsPDF(readings []equipment.Reading) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Equipment Readings")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Equipment", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 6, "Timestamp", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, reading := range readings {
		value := ""
		if reading.Value != nil {
			value = strconv.FormatFloat(*reading.Value, 'f', -1, 64)
		}
		pdf.CellFormat(60, 6, reading.EquipmentID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 6, reading.Timestamp.Format(timestampLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, value, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
