package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tgarchive/pkg/models"
)

func TestCSVWriterRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}

	msg := &models.Message{
		ID:       42,
		Date:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Text:     "hello, \"world\"\nsecond line",
		HasMedia: true,
		MediaKind: models.MediaImage,
	}
	if err := w.Write(msg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1 record", len(rows))
	}
	if rows[0][0] != "id" || rows[0][1] != "date" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "42" {
		t.Errorf("id cell = %q, want 42", rows[1][0])
	}
	if rows[1][2] != msg.Text {
		t.Errorf("text cell = %q, newlines and quotes should survive", rows[1][2])
	}
}

func TestCSVWriterSchemaDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}

	// First row fixes the header.
	if err := w.WriteRow([]string{"id", "text"}, map[string]string{"id": "1", "text": "a"}); err != nil {
		t.Fatalf("WriteRow failed: %v", err)
	}
	// Later rows: extra columns dropped, missing columns empty.
	if err := w.WriteRow([]string{"id", "text", "views"}, map[string]string{"id": "2", "views": "9"}); err != nil {
		t.Fatalf("WriteRow failed: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	want := [][]string{
		{"id", "text"},
		{"1", "a"},
		{"2", ""},
	}
	for i, row := range want {
		for j := range row {
			if rows[i][j] != row[j] {
				t.Errorf("row %d col %d = %q, want %q", i, j, rows[i][j], row[j])
			}
		}
	}
}
