// Package storage manages a job's media directory.
//
// Attachments are written atomically (temp file + rename) with filenames of
// the form <message_id>_<download_timestamp>.<ext>. The identifier prefix is
// the contract that lets an interrupted media phase skip files already on
// disk: the directory listing is parsed back into a set of message IDs.
package storage
