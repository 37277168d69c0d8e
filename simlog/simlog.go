// Package simlog writes and reads simulation time series logs in CSV format.
// A log has a header row followed by one row per simulation step.
package simlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Float formats a logged value with 7 decimals
func Float(f float64) string {
	return strconv.FormatFloat(f, 'f', 7, 64)
}

// Time formats a logged time stamp with 3 decimals
func Time(t float64) string {
	return strconv.FormatFloat(t, 'f', 3, 64)
}

// Writer is an append-only CSV log writer.
// Every row is flushed as a whole, so rows written before an I/O failure stay intact.
type Writer struct {
	w    *csv.Writer
	cols int
	rows int
}

// NewWriter creates new Writer and writes header to w.
func NewWriter(w io.Writer, header []string) (*Writer, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("empty log header")
	}

	lw := &Writer{
		w:    csv.NewWriter(w),
		cols: len(header),
	}

	if err := lw.write(header); err != nil {
		return nil, fmt.Errorf("failed to write log header: %w", err)
	}

	return lw, nil
}

// Write appends a single row to the log.
// It returns error if the row length does not match the header or the row fails to be written.
func (w *Writer) Write(row []string) error {
	if len(row) != w.cols {
		return fmt.Errorf("invalid log row length: %d, expected %d", len(row), w.cols)
	}

	if err := w.write(row); err != nil {
		return fmt.Errorf("failed to write log row %d: %w", w.rows, err)
	}
	w.rows++

	return nil
}

// Rows returns number of rows written, header excluded
func (w *Writer) Rows() int {
	return w.rows
}

func (w *Writer) write(row []string) error {
	if err := w.w.Write(row); err != nil {
		return err
	}
	w.w.Flush()

	return w.w.Error()
}

// Row is a single log row
type Row struct {
	index  map[string]int
	fields []string
}

// String returns raw value of column col
func (r Row) String(col string) (string, error) {
	i, ok := r.index[col]
	if !ok {
		return "", fmt.Errorf("unknown log column %q", col)
	}
	return r.fields[i], nil
}

// Float returns value of column col parsed as a float
func (r Row) Float(col string) (float64, error) {
	s, err := r.String(col)
	if err != nil {
		return 0, err
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value of log column %q: %w", col, err)
	}

	return f, nil
}

// Reader reads logs written by Writer
type Reader struct {
	r      *csv.Reader
	header []string
	index  map[string]int
}

// NewReader creates new Reader and reads the log header from r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read log header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		if _, ok := index[col]; ok {
			return nil, fmt.Errorf("duplicate log column %q", col)
		}
		index[col] = i
	}

	return &Reader{
		r:      cr,
		header: header,
		index:  index,
	}, nil
}

// Header returns log column names
func (r *Reader) Header() []string {
	h := make([]string, len(r.header))
	copy(h, r.header)
	return h
}

// Read reads the next row. It returns io.EOF at the end of the log.
func (r *Reader) Read() (Row, error) {
	fields, err := r.r.Read()
	if err != nil {
		return Row{}, err
	}

	return Row{index: r.index, fields: fields}, nil
}

// ReadAll reads all remaining rows
func (r *Reader) ReadAll() ([]Row, error) {
	var rows []Row
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read log row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}
}

// Column returns values of column col of rows parsed as floats
func Column(rows []Row, col string) ([]float64, error) {
	vals := make([]float64, len(rows))
	for i, row := range rows {
		v, err := row.Float(col)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	return vals, nil
}
