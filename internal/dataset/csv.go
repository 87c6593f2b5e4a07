package dataset

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// ReadCSV parses CSV content into a Table. The first record is the
// header. Cells that parse as numbers become float64, "True"/"False"
// become bool, blank cells stay nil so Row.Empty treats them as unset.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	t := New(header...)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]any, len(t.cols))
		for i := range t.cols {
			if i < len(rec) {
				row[i] = coerceCell(rec[i])
			}
		}
		t.appendRaw(row)
	}
	return t, nil
}

// WriteCSV renders the table, nil cells as empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		rec := make([]string, t.NumColumns())
		for j, c := range t.cols {
			if !row.Empty(c) {
				rec[j] = row.Str(c)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func coerceCell(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
