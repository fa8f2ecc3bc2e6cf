package sink

import (
	"encoding/csv"
	"fmt"
	"os"

	"tgarchive/pkg/models"
)

// CSVWriter streams records to a CSV file. The header is derived from the
// first record's columns; later records with columns outside that set have
// them silently dropped, and columns missing from a record write empty cells.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	header []string
}

// NewCSVWriter opens (truncating) the CSV file at path.
func NewCSVWriter(path string) (*CSVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}
	return &CSVWriter{
		file:   file,
		writer: csv.NewWriter(file),
	}, nil
}

// Write appends one message as a row, emitting the header first if this is
// the first record.
func (w *CSVWriter) Write(msg *models.Message) error {
	return w.WriteRow(msg.Columns(), msg.Values())
}

// WriteRow writes one row from a column list and a value map. The first call
// fixes the header.
func (w *CSVWriter) WriteRow(columns []string, values map[string]string) error {
	if w.header == nil {
		w.header = append([]string(nil), columns...)
		if err := w.writer.Write(w.header); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}

	row := make([]string, len(w.header))
	for i, col := range w.header {
		row[i] = values[col]
	}
	if err := w.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}

	// One row at a time reaches the file, so an interrupted job loses
	// nothing already written.
	w.writer.Flush()
	return w.writer.Error()
}

// Finalize flushes and closes the file. CSV needs no structural terminator.
func (w *CSVWriter) Finalize() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return w.file.Close()
}

// Path returns the output file path.
func (w *CSVWriter) Path() string {
	return w.file.Name()
}
