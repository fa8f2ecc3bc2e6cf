package archiver

import (
	"context"
	"io"

	"tgarchive/pkg/progress"
	"tgarchive/pkg/telegram"
)

// ChannelClient is the slice of the gateway API the archiver consumes.
// *telegram.Client satisfies it; tests substitute fakes.
type ChannelClient interface {
	// Resolve turns a user-supplied target into channel metadata.
	Resolve(ctx context.Context, target string) (*telegram.Channel, error)

	// History returns up to limit messages older than offsetID, newest
	// first; zero starts from the newest message. An empty slice means the
	// channel is exhausted.
	History(ctx context.Context, channel *telegram.Channel, limit int, offsetID int64) ([]telegram.RawMessage, error)

	// MessageByID re-fetches a single message.
	MessageByID(ctx context.Context, channel *telegram.Channel, id int64) (*telegram.RawMessage, error)

	// DownloadAttachment streams the attachment of the given message. The
	// returned extension may be empty when the gateway cannot tell.
	DownloadAttachment(ctx context.Context, channel *telegram.Channel, id int64) (io.ReadCloser, string, error)
}

// Decisions answers the two questions a run cannot decide on its own:
// which prior job to continue, and whether to fetch media right away.
// The CLI backs this with terminal prompts; automation passes fixed answers.
type Decisions interface {
	// ChooseJob picks a prior job to resume. ok=false starts a fresh job.
	ChooseJob(candidates []progress.Candidate) (baseName string, ok bool)

	// DownloadMediaNow is asked once the text phase is complete and
	// pending attachments remain.
	DownloadMediaNow(pending int) bool
}

// AutoDecisions answers without prompting. Resume picks the candidate with
// the highest total when one exists; Media controls the second phase.
type AutoDecisions struct {
	Resume bool
	Media  bool
}

func (a AutoDecisions) ChooseJob(candidates []progress.Candidate) (string, bool) {
	if !a.Resume || len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Record.TotalDownloaded > best.Record.TotalDownloaded {
			best = c
		}
	}
	return best.BaseName, true
}

func (a AutoDecisions) DownloadMediaNow(int) bool { return a.Media }
