// Package sink provides the streaming output writers for archived messages.
//
// Each writer accepts one record at a time and buffers nothing beyond it, so
// output files grow as the download progresses. Finalize closes a file with
// the format's structural terminators and may be called at any point in the
// stream; the JSON writer's incomplete-file shape on interruption is part of
// its documented contract.
//
// Formats are independent: a Set fans records out to every enabled writer,
// and one format failing to open or write never takes the others down.
package sink
