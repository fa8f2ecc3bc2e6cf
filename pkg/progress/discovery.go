package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ProgressSuffix is the filename suffix shared by all progress files.
const ProgressSuffix = "_progress.json"

var unsafeTitleChars = regexp.MustCompile(`[^\w\s-]`)

// SanitizeTitle strips characters that are unsafe in filenames and caps the
// result at 50 runes, matching the base-name minting rule.
func SanitizeTitle(title string) string {
	safe := unsafeTitleChars.ReplaceAllString(title, "")
	runes := []rune(safe)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return strings.TrimSpace(string(runes))
}

// Candidate is a prior job whose progress file plausibly belongs to the
// requested channel.
type Candidate struct {
	BaseName string
	Record   Record
}

// FindExisting scans the output directory for progress files whose base name
// fuzzy-matches the channel title: a case-insensitive substring match on the
// sanitized title, or any single word of it appearing in the base name.
// Unreadable or malformed progress files are skipped, not reported.
func FindExisting(outputDir, channelTitle string) []Candidate {
	safeTitle := strings.ToLower(SanitizeTitle(channelTitle))
	words := strings.Fields(safeTitle)

	var candidates []Candidate
	for _, c := range FindAll(outputDir) {
		if titleMatches(strings.ToLower(c.BaseName), safeTitle, words) {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// FindAll returns every readable progress file in the directory, regardless
// of which channel it belongs to.
func FindAll(outputDir string) []Candidate {
	matches, err := filepath.Glob(filepath.Join(outputDir, "*"+ProgressSuffix))
	if err != nil {
		return nil
	}

	var candidates []Candidate
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}

		baseName := strings.TrimSuffix(filepath.Base(path), ProgressSuffix)
		candidates = append(candidates, Candidate{BaseName: baseName, Record: rec})
	}

	return candidates
}

func titleMatches(baseName, safeTitle string, words []string) bool {
	if safeTitle == "" {
		return false
	}
	if strings.Contains(baseName, safeTitle) {
		return true
	}
	for _, word := range words {
		if strings.Contains(baseName, word) {
			return true
		}
	}
	return false
}
