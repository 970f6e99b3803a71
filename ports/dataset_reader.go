package ports

import (
	"context"

	"airlens/domain/series"
)

// IngestReport summarizes what a reader kept and dropped while turning a
// raw file into a measurement table.
type IngestReport struct {
	SourcePath      string   `json:"source_path"`
	RowsRead        int      `json:"rows_read"`
	RowsKept        int      `json:"rows_kept"`
	RowsDropped     int      `json:"rows_dropped"`
	TimestampColumn string   `json:"timestamp_column"`
	NumericColumns  []string `json:"numeric_columns"`
	LabelColumns    []string `json:"label_columns"`
	Warnings        []string `json:"warnings,omitempty"`
}

// DatasetReader loads a measurement table from an external file.
type DatasetReader interface {
	Read(ctx context.Context, path string) (*series.Table, *IngestReport, error)
}
