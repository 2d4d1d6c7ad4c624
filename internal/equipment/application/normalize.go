package application

import (
	"math"
	"strconv"
	"strings"
	"time"

	equipment "equipment-api/internal/equipment/domain"
)

// Required upload columns, in the order schema errors report them.
const (
	ColumnEquipmentID = "equipmentId"
	ColumnTimestamp   = "timestamp"
	ColumnValue       = "value"
)

var requiredColumns = []string{ColumnEquipmentID, ColumnTimestamp, ColumnValue}

// Accepted textual timestamp forms. RFC3339 covers offset-carrying input;
// the rest are the naive shapes the source system exports.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ValidateSchema checks that every required column is present and, on
// success, splits the dataset rows into records. Missing columns are
// reported together before any row is read.
func ValidateSchema(ds Dataset) ([]Record, error) {
	present := make(map[string]struct{}, len(ds.Columns))
	for _, name := range ds.Columns {
		present[name] = struct{}{}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &equipment.SchemaError{Missing: missing}
	}

	records := make([]Record, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		record := Record{
			EquipmentID: row[ColumnEquipmentID],
			Timestamp:   row[ColumnTimestamp],
			Value:       row[ColumnValue],
		}
		for name, cell := range row {
			switch name {
			case ColumnEquipmentID, ColumnTimestamp, ColumnValue:
			default:
				if record.Extra == nil {
					record.Extra = make(map[string]string)
				}
				record.Extra[name] = cell.Raw
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// NormalizeEquipmentID trims the raw identifier and rejects blank or
// missing values. Case and interior content are preserved.
func NormalizeEquipmentID(cell Cell, row int) (string, error) {
	raw := ""
	if !cell.Missing() {
		raw = cell.Raw
	}
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", &equipment.ValidationError{Column: ColumnEquipmentID, Row: row, Reason: "is blank"}
	}
	return id, nil
}

// NormalizeTimestamp parses the raw timestamp and converts it to the
// canonical stored form: UTC wall clock with the offset dropped, truncated
// to microseconds. Missing cells fail before any parse attempt.
func NormalizeTimestamp(cell Cell, row int) (time.Time, error) {
	if cell.Missing() {
		return time.Time{}, &equipment.ValidationError{Column: ColumnTimestamp, Row: row, Reason: "is blank"}
	}
	raw := strings.TrimSpace(cell.Raw)
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return equipment.CanonicalTimestamp(ts), nil
		}
	}
	return time.Time{}, &equipment.ValidationError{Column: ColumnTimestamp, Row: row, Reason: "is not a valid timestamp"}
}

// NormalizeValue coerces the raw value to a finite float, or nil when the
// cell is missing.
func NormalizeValue(cell Cell, row int) (*float64, error) {
	if cell.Missing() {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(cell.Raw), 64)
	if err != nil || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
		return nil, &equipment.ValidationError{Column: ColumnValue, Row: row, Reason: "is not a finite number"}
	}
	return &parsed, nil
}
