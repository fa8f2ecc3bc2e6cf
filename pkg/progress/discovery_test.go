package progress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Channel", "My Channel"},
		{"News & Updates!", "News  Updates"},
		{"chan/nel:2024", "channel2024"},
		{"   padded   ", "padded"},
		{strings.Repeat("x", 60), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeProgress(t *testing.T, dir, baseName string, rec *Record) {
	t.Helper()
	store, err := NewStore(dir, baseName)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(rec, nil); err != nil {
		t.Fatal(err)
	}
}

func TestFindExistingFuzzyMatch(t *testing.T) {
	dir := t.TempDir()
	writeProgress(t, dir, "My Channel_20240301_120000", &Record{TotalDownloaded: 10})
	writeProgress(t, dir, "channel news_20240210_090000", &Record{TotalDownloaded: 5})
	writeProgress(t, dir, "unrelated_20240101_000000", &Record{TotalDownloaded: 99})

	// Substring match plus single-word match, but not the unrelated job.
	got := FindExisting(dir, "My Channel")
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(got), got)
	}
	for _, c := range got {
		if c.BaseName == "unrelated_20240101_000000" {
			t.Error("unrelated job should not match")
		}
	}
}

func TestFindExistingSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeProgress(t, dir, "team chat_20240301_120000", &Record{TotalDownloaded: 3})

	// A corrupt progress file must be skipped, not reported.
	bad := filepath.Join(dir, "team old"+ProgressSuffix)
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	got := FindExisting(dir, "team chat")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Record.TotalDownloaded != 3 {
		t.Errorf("candidate record = %+v", got[0].Record)
	}
}

func TestFindExistingNoTitle(t *testing.T) {
	dir := t.TempDir()
	writeProgress(t, dir, "something_20240301_120000", &Record{})

	if got := FindExisting(dir, "!!!"); len(got) != 0 {
		t.Errorf("a title that sanitizes to nothing should match no jobs, got %v", got)
	}
}

func TestFindAll(t *testing.T) {
	dir := t.TempDir()
	writeProgress(t, dir, "a_20240301_120000", &Record{})
	writeProgress(t, dir, "b_20240302_120000", &Record{})

	if got := FindAll(dir); len(got) != 2 {
		t.Errorf("FindAll found %d jobs, want 2", len(got))
	}
	if got := FindAll(filepath.Join(dir, "missing")); len(got) != 0 {
		t.Errorf("FindAll on a missing dir should be empty, got %v", got)
	}
}
