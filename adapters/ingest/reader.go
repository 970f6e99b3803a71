package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"airlens/domain/series"
	"airlens/internal/errors"
	"airlens/ports"
)

// timestampCandidates are the header names checked, in order, when
// locating the timestamp column.
var timestampCandidates = []string{"timestamp", "datetime", "date", "sampling_date", "time"}

// labelCandidates are headers kept as categorical label columns rather
// than coerced to numbers.
var labelCandidates = map[string]bool{
	"state": true, "city": true, "location": true, "region": true,
	"area": true, "station": true, "type": true, "agency": true,
}

// absentMarkers are cell values treated as a missing reading.
var absentMarkers = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true,
	"null": true, "none": true, "-": true, "--": true,
}

// timestampLayouts are tried in order when parsing timestamp cells.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04",
	"02-01-2006",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02",
}

// Reader loads pollution measurement files. CSV and Excel are supported,
// chosen by file extension.
type Reader struct {
	sheet string
}

// NewReader creates a dataset reader. Excel files are read from Sheet1.
func NewReader() *Reader {
	return &Reader{sheet: "Sheet1"}
}

var _ ports.DatasetReader = (*Reader)(nil)

// Read loads a file into a measurement table. Rows without a parseable
// timestamp are dropped and counted in the report; cells that fail
// numeric coercion become missing values, never zeros.
func (r *Reader) Read(ctx context.Context, path string) (*series.Table, *ports.IngestReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, errors.IngestError(fmt.Sprintf("file not found: %s", path))
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = r.readCSV(path)
	case ".xlsx", ".xls":
		rows, err = r.readExcel(path)
	default:
		return nil, nil, errors.IngestError(fmt.Sprintf("unsupported file type: %s", filepath.Ext(path)))
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, errors.IngestError("file must have a header row and at least one data row")
	}

	return r.buildTable(path, rows)
}

func (r *Reader) readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return rows, nil
}

func (r *Reader) readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", r.sheet)
	}
	return rows, nil
}

// buildTable converts raw string rows into a typed measurement table.
func (r *Reader) buildTable(path string, rows [][]string) (*series.Table, *ports.IngestReport, error) {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	tsIndex := findTimestampColumn(headers)
	if tsIndex < 0 {
		return nil, nil, errors.IngestError("no timestamp column found (expected one of: " + strings.Join(timestampCandidates, ", ") + ")")
	}

	report := &ports.IngestReport{
		SourcePath:      path,
		RowsRead:        len(rows) - 1,
		TimestampColumn: headers[tsIndex],
	}

	type rawRow struct {
		ts    time.Time
		cells []string
	}
	kept := make([]rawRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if tsIndex >= len(row) {
			report.RowsDropped++
			continue
		}
		ts, ok := parseTimestamp(row[tsIndex])
		if !ok {
			report.RowsDropped++
			continue
		}
		kept = append(kept, rawRow{ts: ts, cells: row})
	}
	report.RowsKept = len(kept)
	if len(kept) == 0 {
		return nil, nil, errors.IngestError("no rows with a parseable timestamp")
	}

	timestamps := make([]time.Time, len(kept))
	for i, row := range kept {
		timestamps[i] = row.ts
	}
	table := series.New(timestamps)

	for j, header := range headers {
		if j == tsIndex || header == "" {
			continue
		}
		if labelCandidates[header] {
			labels := make([]string, len(kept))
			for i, row := range kept {
				if j < len(row.cells) {
					labels[i] = strings.TrimSpace(row.cells[j])
				}
			}
			table.AddLabelColumn(header, labels)
			report.LabelColumns = append(report.LabelColumns, header)
			continue
		}

		values := make([]float64, len(kept))
		present := make([]bool, len(kept))
		parsed, nonEmpty := 0, 0
		for i, row := range kept {
			if j >= len(row.cells) {
				continue
			}
			cell := strings.TrimSpace(row.cells[j])
			if absentMarkers[strings.ToLower(cell)] {
				continue
			}
			nonEmpty++
			v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
			if err != nil {
				continue
			}
			values[i] = v
			present[i] = true
			parsed++
		}

		// A column where most non-empty cells fail coercion is not a
		// measurement column; skip it rather than carry junk.
		if nonEmpty == 0 || parsed*2 < nonEmpty {
			if nonEmpty > 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("column %s skipped: %d of %d cells not numeric", header, nonEmpty-parsed, nonEmpty))
			}
			continue
		}
		table.AddColumn(header, values, present)
		report.NumericColumns = append(report.NumericColumns, header)
	}

	if len(report.NumericColumns) == 0 {
		return nil, nil, errors.IngestError("no numeric measurement columns found")
	}
	return table, report, nil
}

func findTimestampColumn(headers []string) int {
	for _, candidate := range timestampCandidates {
		for i, h := range headers {
			if h == candidate {
				return i
			}
		}
	}
	return -1
}

func parseTimestamp(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, cell); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
