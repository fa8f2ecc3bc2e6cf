// Package archiver orchestrates a channel download job: resolve the target,
// page through its history writing every record to the configured sinks,
// then fetch pending attachments as a second pass. Progress is persisted
// continuously so an interrupted job resumes where it left off.
package archiver
