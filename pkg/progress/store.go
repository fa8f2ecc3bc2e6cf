package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tgarchive/pkg/logger"
)

// Record is the persisted snapshot of a job's state.
//
// LastMessageID is the lowest identifier seen so far; the gateway delivers
// messages in decreasing-identifier order, so it doubles as the next
// pagination offset. TotalDownloaded only grows within a job and
// LastMessageID only shrinks.
type Record struct {
	LastMessageID     int64   `json:"last_message_id"`
	TotalDownloaded   int     `json:"total_downloaded"`
	TextComplete      bool    `json:"text_complete"`
	MediaDownloaded   bool    `json:"media_downloaded"`
	MessagesWithMedia []int64 `json:"messages_with_media"`
}

// Store persists progress records for one job, one JSON object per file,
// named <base_name>_progress.json inside the job's output directory.
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a store for the given job base name.
func NewStore(outputDir, baseName string) (*Store, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Store{
		path:   filepath.Join(outputDir, baseName+ProgressSuffix),
		logger: logger.GetLogger(),
	}, nil
}

// Load reads the persisted record, repopulating the given inventory from the
// messages_with_media field. A missing file yields a zero-valued record.
func (s *Store) Load(inv *Inventory) (*Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Record{MessagesWithMedia: []int64{}}, nil
		}
		return nil, fmt.Errorf("failed to open progress file: %w", err)
	}
	defer file.Close()

	var rec Record
	if err := json.NewDecoder(file).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode progress file: %w", err)
	}
	if rec.MessagesWithMedia == nil {
		rec.MessagesWithMedia = []int64{}
	}

	if inv != nil {
		inv.Replace(rec.MessagesWithMedia)
	}

	s.logger.InfoWithFields("Progress loaded", map[string]interface{}{
		"path":             s.path,
		"total_downloaded": rec.TotalDownloaded,
		"last_message_id":  rec.LastMessageID,
		"media_pending":    len(rec.MessagesWithMedia),
	})

	return &rec, nil
}

// Save serializes the full record, folding in the inventory contents, and
// replaces the file in place. The write goes to a temp file first and is
// renamed over the old one, so a crash mid-write leaves either the old or
// the new record on disk, never a hybrid.
func (s *Store) Save(rec *Record, inv *Inventory) error {
	if inv != nil {
		rec.MessagesWithMedia = inv.IDs()
	}
	if rec.MessagesWithMedia == nil {
		rec.MessagesWithMedia = []int64{}
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary progress file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rec); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode progress record: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync progress file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close progress file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace progress file: %w", err)
	}

	s.logger.DebugWithFields("Progress saved", map[string]interface{}{
		"total_downloaded": rec.TotalDownloaded,
		"last_message_id":  rec.LastMessageID,
	})

	return nil
}

// Exists checks if a progress file exists for this job
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the progress file path
func (s *Store) Path() string {
	return s.path
}
