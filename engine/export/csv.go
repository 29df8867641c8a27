package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/WessleyAI/vahan-insights/engine/domain"
)

// WriteCSV writes t with its header row.
func WriteCSV(w io.Writer, t Table) error {
	if t.Empty() {
		return ErrEmptyTable
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// ReadCSV parses a CSV written by WriteCSV. The first record is the header.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, ErrEmptyTable
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	cr.FieldsPerRecord = len(header)
	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read rows: %w", err)
	}
	return Table{Header: header, Rows: rows}, nil
}

// ParseLabelValues converts a label,value table back into rows.
func ParseLabelValues(t Table) ([]domain.LabelValue, error) {
	if len(t.Header) != 2 || t.Header[0] != "label" || t.Header[1] != "value" {
		return nil, fmt.Errorf("export: unexpected header %v", t.Header)
	}
	out := make([]domain.LabelValue, 0, len(t.Rows))
	for i, row := range t.Rows {
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, domain.LabelValue{Label: row[0], Value: v})
	}
	return out, nil
}
