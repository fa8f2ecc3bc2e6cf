package sink

import (
	"encoding/json"
	"fmt"
	"os"

	"tgarchive/pkg/models"
)

// JSONWriter streams records as a JSON array. The opening bracket goes out
// immediately on open and records are comma-separated as they arrive, so the
// file only becomes a syntactically complete array once Finalize writes the
// closing bracket.
//
// Recovery contract: if the process dies before Finalize, the file is a
// well-formed prefix of a JSON array, missing only the final "\n]". Resumed
// jobs never append to such a file; output files always restart fresh and
// resume position comes from the progress record instead.
type JSONWriter struct {
	file  *os.File
	count int
}

// NewJSONWriter opens (truncating) the JSON file at path and writes the
// array opening.
func NewJSONWriter(path string) (*JSONWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create json file: %w", err)
	}
	if _, err := file.WriteString("[\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write json array opening: %w", err)
	}
	return &JSONWriter{file: file}, nil
}

// Write appends one message to the array.
func (w *JSONWriter) Write(msg *models.Message) error {
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal message %d: %w", msg.ID, err)
	}

	if w.count > 0 {
		if _, err := w.file.WriteString(",\n"); err != nil {
			return fmt.Errorf("failed to write json separator: %w", err)
		}
	}
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("failed to write json record: %w", err)
	}

	w.count++
	return nil
}

// Finalize writes the closing bracket and closes the file.
func (w *JSONWriter) Finalize() error {
	if _, err := w.file.WriteString("\n]"); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to write json array closing: %w", err)
	}
	return w.file.Close()
}

// Path returns the output file path.
func (w *JSONWriter) Path() string {
	return w.file.Name()
}
