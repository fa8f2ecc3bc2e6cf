package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tgarchive/pkg/progress"
)

// Prompter answers the archiver's interactive questions on a terminal. It
// reads from In and writes to Out, defaulting to the process's stdio when
// constructed with NewPrompter.
type Prompter struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{In: in, Out: out, reader: bufio.NewReader(in)}
}

// ChooseJob lists prior jobs for the channel and lets the user pick one or
// start fresh. Empty input or an unparseable answer starts fresh.
func (p *Prompter) ChooseJob(candidates []progress.Candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	fmt.Fprintln(p.Out, Cyan("Found existing downloads for this channel:"))
	for i, c := range candidates {
		status := "text incomplete"
		if c.Record.TextComplete {
			status = "text complete"
			if c.Record.MediaDownloaded {
				status = "complete"
			}
		}
		fmt.Fprintf(p.Out, "  [%d] %s  %s messages, %s\n",
			i+1, c.BaseName, Yellow(strconv.Itoa(c.Record.TotalDownloaded)), Dim(status))
	}
	fmt.Fprintf(p.Out, "Resume which download? [1-%d, Enter for new]: ", len(candidates))

	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(candidates) {
		return "", false
	}
	return candidates[n-1].BaseName, true
}

// DownloadMediaNow asks whether to fetch pending attachments right away.
func (p *Prompter) DownloadMediaNow(pending int) bool {
	fmt.Fprintf(p.Out, "Download %s pending media files now? [y/N]: ", Yellow(strconv.Itoa(pending)))

	line, err := p.reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
