package series

import (
	"fmt"
	"sort"
	"time"
)

// Point is a single (timestamp, value) observation for one pollutant.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Column holds one pollutant's readings aligned with the table timestamps.
// Present marks which rows carry a real reading; an absent cell has no
// meaningful numeric value and must never be read through Values directly.
type Column struct {
	Values  []float64
	Present []bool
}

// Table is a rectangular measurement table: one timestamp per row plus
// zero or more numeric pollutant columns and optional categorical label
// columns (region, city, ...). Timestamps need not be evenly spaced.
type Table struct {
	Timestamps []time.Time
	Columns    map[string]Column
	Labels     map[string][]string
}

// New creates an empty table over the given timestamps.
func New(timestamps []time.Time) *Table {
	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	return &Table{
		Timestamps: ts,
		Columns:    make(map[string]Column),
		Labels:     make(map[string][]string),
	}
}

// RowCount returns the number of rows in the table.
func (t *Table) RowCount() int {
	return len(t.Timestamps)
}

// AddColumn attaches a numeric column. Values and present mask must match
// the table's row count.
func (t *Table) AddColumn(name string, values []float64, present []bool) error {
	if len(values) != len(t.Timestamps) || len(present) != len(t.Timestamps) {
		return fmt.Errorf("column %s: length %d does not match %d rows", name, len(values), len(t.Timestamps))
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	mask := make([]bool, len(present))
	copy(mask, present)
	t.Columns[name] = Column{Values: vals, Present: mask}
	return nil
}

// AddLabelColumn attaches a categorical column (empty string = absent).
func (t *Table) AddLabelColumn(name string, values []string) error {
	if len(values) != len(t.Timestamps) {
		return fmt.Errorf("label column %s: length %d does not match %d rows", name, len(values), len(t.Timestamps))
	}
	vals := make([]string, len(values))
	copy(vals, values)
	t.Labels[name] = vals
	return nil
}

// HasColumn reports whether a numeric column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Columns[name]
	return ok
}

// ColumnNames returns the numeric column names in sorted order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Slice extracts the (timestamp, value) series for one pollutant, sorted
// ascending by timestamp, with rows missing that pollutant dropped. The
// returned slice is a fresh copy; the table is never mutated.
func (t *Table) Slice(pollutant string) ([]Point, bool) {
	col, ok := t.Columns[pollutant]
	if !ok {
		return nil, false
	}
	pts := make([]Point, 0, len(t.Timestamps))
	for i, ts := range t.Timestamps {
		if col.Present[i] {
			pts = append(pts, Point{Timestamp: ts, Value: col.Values[i]})
		}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Timestamp.Before(pts[j].Timestamp) })
	return pts, true
}

// Values returns the non-missing readings for one pollutant in row order.
func (t *Table) Values(pollutant string) []float64 {
	col, ok := t.Columns[pollutant]
	if !ok {
		return nil
	}
	vals := make([]float64, 0, len(col.Values))
	for i, v := range col.Values {
		if col.Present[i] {
			vals = append(vals, v)
		}
	}
	return vals
}

// PairedValues returns aligned readings for two pollutants over the rows
// where both are present.
func (t *Table) PairedValues(a, b string) ([]float64, []float64) {
	ca, okA := t.Columns[a]
	cb, okB := t.Columns[b]
	if !okA || !okB {
		return nil, nil
	}
	xs := make([]float64, 0, len(t.Timestamps))
	ys := make([]float64, 0, len(t.Timestamps))
	for i := range t.Timestamps {
		if ca.Present[i] && cb.Present[i] {
			xs = append(xs, ca.Values[i])
			ys = append(ys, cb.Values[i])
		}
	}
	return xs, ys
}

// FilterLabel returns a fresh sub-table containing only the rows whose
// label column equals value.
func (t *Table) FilterLabel(column, value string) *Table {
	labels, ok := t.Labels[column]
	if !ok {
		return New(nil)
	}
	keep := make([]int, 0, len(t.Timestamps))
	for i, l := range labels {
		if l == value {
			keep = append(keep, i)
		}
	}
	out := &Table{
		Timestamps: make([]time.Time, len(keep)),
		Columns:    make(map[string]Column, len(t.Columns)),
		Labels:     make(map[string][]string, len(t.Labels)),
	}
	for j, i := range keep {
		out.Timestamps[j] = t.Timestamps[i]
	}
	for name, col := range t.Columns {
		vals := make([]float64, len(keep))
		mask := make([]bool, len(keep))
		for j, i := range keep {
			vals[j] = col.Values[i]
			mask[j] = col.Present[i]
		}
		out.Columns[name] = Column{Values: vals, Present: mask}
	}
	for name, col := range t.Labels {
		vals := make([]string, len(keep))
		for j, i := range keep {
			vals[j] = col[i]
		}
		out.Labels[name] = vals
	}
	return out
}

// LabelValues returns the distinct non-empty values of a label column in
// first-seen order.
func (t *Table) LabelValues(column string) []string {
	labels, ok := t.Labels[column]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// Period returns the earliest and latest timestamps in the table.
func (t *Table) Period() (time.Time, time.Time) {
	if len(t.Timestamps) == 0 {
		return time.Time{}, time.Time{}
	}
	min, max := t.Timestamps[0], t.Timestamps[0]
	for _, ts := range t.Timestamps[1:] {
		if ts.Before(min) {
			min = ts
		}
		if ts.After(max) {
			max = ts
		}
	}
	return min, max
}

// FromPoints builds a single-column table from an already extracted series.
// Used when a cleaned slice needs to be re-analyzed as its own table.
func FromPoints(pollutant string, pts []Point) *Table {
	ts := make([]time.Time, len(pts))
	vals := make([]float64, len(pts))
	mask := make([]bool, len(pts))
	for i, p := range pts {
		ts[i] = p.Timestamp
		vals[i] = p.Value
		mask[i] = true
	}
	t := New(ts)
	t.Columns[pollutant] = Column{Values: vals, Present: mask}
	return t
}
