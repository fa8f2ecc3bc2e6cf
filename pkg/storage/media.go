package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MediaDirName is the subdirectory that holds downloaded attachments.
const MediaDirName = "media"

// tempSuffix marks an in-progress write; Downloaded must never count one.
const tempSuffix = ".tmp"

// Manager handles attachment storage for one job's media directory.
//
// Filenames follow <message_id>_<download_timestamp>.<ext>; the leading
// identifier token is load-bearing, since the remaining-work computation
// parses it back out of the directory listing.
type Manager struct {
	dir string
}

// NewManager creates a manager for <outputDir>/media, creating it if needed.
func NewManager(outputDir string) (*Manager, error) {
	dir := filepath.Join(outputDir, MediaDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the media directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// Scan lists downloaded attachment identifiers under <outputDir>/media
// without creating anything. A missing directory reads as nothing
// downloaded, so inspection commands leave the directory untouched.
func Scan(outputDir string) (map[int64]struct{}, error) {
	dir := filepath.Join(outputDir, MediaDirName)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return map[int64]struct{}{}, nil
	}
	m := &Manager{dir: dir}
	return m.Downloaded()
}

// Downloaded lists message identifiers with an attachment already on disk,
// by parsing the token before the first underscore of each filename.
// Filenames that do not start with a numeric token are ignored, as are
// temp files left behind by an interrupted write.
func (m *Manager) Downloaded() (map[int64]struct{}, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}

	ids := make(map[int64]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		token, _, found := strings.Cut(entry.Name(), "_")
		if !found {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}

	return ids, nil
}

// SaveAttachment writes an attachment atomically and returns its path
// relative to the job's output directory, e.g. "media/5861_20250904_141300.mp4".
func (m *Manager) SaveAttachment(r io.Reader, messageID int64, ext string) (string, error) {
	name := fmt.Sprintf("%d_%s", messageID, time.Now().Format("20060102_150405"))
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	path := filepath.Join(m.dir, name)

	tempPath := path + tempSuffix
	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to save attachment data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return filepath.Join(MediaDirName, name), nil
}
