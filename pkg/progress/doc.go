// Package progress persists resume state for incremental channel downloads.
//
// Each job owns one progress file, <base_name>_progress.json, overwritten
// wholesale on every save via a temp-file rename so an interrupted write
// never corrupts the record. The package also tracks the media inventory
// (message identifiers known to carry attachments) and discovers prior jobs
// for a channel by fuzzy-matching progress filenames.
package progress
