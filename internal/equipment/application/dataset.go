package application

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// UploadDelimiter is the cell separator expected in uploaded files.
const UploadDelimiter = ';'

// Cell is one raw tabular value. Present is false when the column had no
// cell on the row at all; blank and NaN-like markers are resolved by
// Missing, not here.
type Cell struct {
	Raw     string
	Present bool
}

// Missing reports whether the cell carries no usable value. The CSV
// ecosystem the uploads come from writes empty strings and NaN markers
// interchangeably for absent values, so both count as missing.
func (c Cell) Missing() bool {
	if !c.Present {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Raw)) {
	case "", "nan", "null", "n/a":
		return true
	}
	return false
}

// Record is one upload line with the required columns split out and every
// unrecognized column kept as-is.
type Record struct {
	EquipmentID Cell
	Timestamp   Cell
	Value       Cell
	Extra       map[string]string
}

// Dataset is a parsed upload: the header columns and the data rows.
type Dataset struct {
	Columns []string
	Rows    []map[string]Cell
}

// ParseCSV reads a ';'-delimited document with a header row. Short rows are
// padded with absent cells so later columns simply read as missing.
func ParseCSV(r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = UploadDelimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, errors.New("the file is empty")
		}
		return Dataset{}, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	ds := Dataset{Columns: columns}
	for {
		cells, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Dataset{}, fmt.Errorf("read row %d: %w", len(ds.Rows)+1, err)
		}

		row := make(map[string]Cell, len(columns))
		for i, name := range columns {
			if i < len(cells) {
				row[name] = Cell{Raw: cells[i], Present: true}
			} else {
				row[name] = Cell{}
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}
