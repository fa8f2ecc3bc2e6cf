package archiver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgarchive/pkg/config"
	"tgarchive/pkg/errors"
	"tgarchive/pkg/logger"
	"tgarchive/pkg/progress"
	"tgarchive/pkg/telegram"
)

// fakeGateway serves a fixed message set the way the real gateway does:
// newest first, offset exclusive, empty page at exhaustion.
type fakeGateway struct {
	mu       sync.Mutex
	channel  telegram.Channel
	messages map[int64]telegram.RawMessage

	historyCalls int
	floodOnCall  int // history call number that gets a flood-wait, once
	failOnCall   int // history call number that gets a network error, once
	failMedia    map[int64]bool
	floodMedia   map[int64]time.Duration // per-id flood-wait, once
	mediaCtxErrs []error                 // ctx.Err() at each DownloadAttachment call
}

func newFakeGateway(total int, mediaIDs ...int64) *fakeGateway {
	g := &fakeGateway{
		channel:    telegram.Channel{ID: -100500, Title: "Test Channel", Type: "channel"},
		messages:   make(map[int64]telegram.RawMessage, total),
		failMedia:  make(map[int64]bool),
		floodMedia: make(map[int64]time.Duration),
	}
	withMedia := make(map[int64]bool, len(mediaIDs))
	for _, id := range mediaIDs {
		withMedia[id] = true
	}
	for i := 1; i <= total; i++ {
		id := int64(i)
		msg := telegram.RawMessage{
			ID:   id,
			Date: 1700000000 + id,
			Text: "message",
			Sender: &telegram.Sender{
				ID: 7, FirstName: "Alice", Username: "alice",
			},
		}
		if withMedia[id] {
			msg.Media = &telegram.Media{Type: "photo"}
		}
		g.messages[id] = msg
	}
	return g
}

func (g *fakeGateway) Resolve(ctx context.Context, target string) (*telegram.Channel, error) {
	if target == "missing" {
		return nil, &errors.Error{Type: errors.ErrorTypeResolution, Message: "chat not found"}
	}
	ch := g.channel
	return &ch, nil
}

func (g *fakeGateway) History(ctx context.Context, channel *telegram.Channel, limit int, offsetID int64) ([]telegram.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.historyCalls++
	if g.historyCalls == g.floodOnCall {
		g.floodOnCall = 0
		return nil, &telegram.FloodWaitError{Wait: 10 * time.Millisecond}
	}
	if g.historyCalls == g.failOnCall {
		g.failOnCall = 0
		return nil, &errors.Error{Type: errors.ErrorTypeNetwork, Message: "connection reset"}
	}

	var ids []int64
	for id := range g.messages {
		if offsetID == 0 || id < offsetID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	batch := make([]telegram.RawMessage, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, g.messages[id])
	}
	return batch, nil
}

func (g *fakeGateway) MessageByID(ctx context.Context, channel *telegram.Channel, id int64) (*telegram.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	msg, ok := g.messages[id]
	if !ok {
		return nil, &errors.Error{Type: errors.ErrorTypeResolution, Message: "message not found"}
	}
	return &msg, nil
}

func (g *fakeGateway) DownloadAttachment(ctx context.Context, channel *telegram.Channel, id int64) (io.ReadCloser, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mediaCtxErrs = append(g.mediaCtxErrs, ctx.Err())
	if wait, ok := g.floodMedia[id]; ok {
		delete(g.floodMedia, id)
		return nil, "", &telegram.FloodWaitError{Wait: wait}
	}
	if g.failMedia[id] {
		return nil, "", &errors.Error{Type: errors.ErrorTypeNetwork, Message: "stream broken"}
	}
	return io.NopCloser(strings.NewReader("bytes")), "jpg", nil
}

// recordingDecisions notes what was asked.
type recordingDecisions struct {
	resume     bool
	media      bool
	mediaAsked bool
}

func (d *recordingDecisions) ChooseJob(candidates []progress.Candidate) (string, bool) {
	if !d.resume || len(candidates) == 0 {
		return "", false
	}
	return candidates[0].BaseName, true
}

func (d *recordingDecisions) DownloadMediaNow(int) bool {
	d.mediaAsked = true
	return d.media
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.Directory = dir
	cfg.Download.BatchSize = 25
	cfg.Download.Format = config.FormatAll
	cfg.Download.MediaRetryAttempts = 1
	cfg.RateLimit.RequestsPerMinute = 600
	cfg.RateLimit.BatchDelay = 0
	return cfg
}

func TestRunFullArchive(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(47, 3, 10, 22, 30, 45)
	arch := New(testConfig(dir), gw, AutoDecisions{Media: true}, logger.NewNopLogger())

	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)

	assert.Equal(t, StateDone, sum.State)
	assert.Equal(t, 47, sum.TotalDownloaded)
	assert.Equal(t, 5, sum.MediaTotal)
	assert.Equal(t, 0, sum.MediaPending)

	// 47 messages at batch size 25: two full pages plus the empty one.
	assert.Equal(t, 3, gw.historyCalls)

	// All three output files exist.
	require.Len(t, sum.OutputPaths, 3)
	for _, p := range sum.OutputPaths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	// Every attachment came down.
	entries, err := os.ReadDir(filepath.Join(dir, "media"))
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	// Final progress record is terminal.
	jobs := progress.FindAll(dir)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Record.TextComplete)
	assert.True(t, jobs[0].Record.MediaDownloaded)
	assert.Equal(t, 47, jobs[0].Record.TotalDownloaded)
	assert.Equal(t, int64(1), jobs[0].Record.LastMessageID)
	assert.Len(t, jobs[0].Record.MessagesWithMedia, 5)
}

func TestRunResolutionFailureTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(5)
	arch := New(testConfig(dir), gw, AutoDecisions{}, logger.NewNopLogger())

	_, err := arch.Run(context.Background(), "missing")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed resolution must not create files")
}

func TestRunInterruptAndResume(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(47, 3, 10, 30)
	gw.failOnCall = 2

	dec := &recordingDecisions{resume: true, media: true}
	arch := New(testConfig(dir), gw, dec, logger.NewNopLogger())

	_, err := arch.Run(context.Background(), "@test_channel")
	require.Error(t, err, "the failed batch should surface")

	// First batch committed and persisted; media phase never entered.
	jobs := progress.FindAll(dir)
	require.Len(t, jobs, 1)
	assert.Equal(t, 25, jobs[0].Record.TotalDownloaded)
	assert.Equal(t, int64(23), jobs[0].Record.LastMessageID)
	assert.False(t, jobs[0].Record.TextComplete)
	assert.False(t, dec.mediaAsked, "media must not be offered while text is incomplete")

	// Second run picks the same job and finishes it.
	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)
	assert.Equal(t, StateDone, sum.State)
	assert.Equal(t, 47, sum.TotalDownloaded)

	jobs = progress.FindAll(dir)
	require.Len(t, jobs, 1, "resume must not mint a second job")
	assert.True(t, jobs[0].Record.TextComplete)
	assert.Equal(t, 47, jobs[0].Record.TotalDownloaded)
}

func TestRunFloodWaitNoDoubleCount(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(47, 10)
	gw.floodOnCall = 2

	arch := New(testConfig(dir), gw, AutoDecisions{Media: true}, logger.NewNopLogger())

	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)

	// The flooded request committed nothing and was re-issued.
	assert.Equal(t, 47, sum.TotalDownloaded)
	assert.Equal(t, 4, gw.historyCalls)
}

func TestRunMaxMessagesCap(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(47, 40)
	cfg := testConfig(dir)
	cfg.Download.MaxMessages = 30

	dec := &recordingDecisions{media: true}
	arch := New(cfg, gw, dec, logger.NewNopLogger())

	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)

	assert.Equal(t, 30, sum.TotalDownloaded)

	// A capped run is not exhaustion: the job stays resumable and media
	// stays unoffered.
	jobs := progress.FindAll(dir)
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].Record.TextComplete)
	assert.False(t, dec.mediaAsked)
	assert.NotEqual(t, StateDone, sum.State)
}

func TestRunMediaFailureTolerated(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(10, 2, 5, 8)
	gw.failMedia[5] = true

	arch := New(testConfig(dir), gw, AutoDecisions{Media: true}, logger.NewNopLogger())

	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)

	assert.Equal(t, 1, sum.MediaPending)

	// The other attachments landed; the phase stays incomplete.
	entries, err := os.ReadDir(filepath.Join(dir, "media"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	jobs := progress.FindAll(dir)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Record.TextComplete)
	assert.False(t, jobs[0].Record.MediaDownloaded)

	// A later run retries only the failed one.
	gw.failMedia[5] = false
	dec := &recordingDecisions{resume: true, media: true}
	arch2 := New(testConfig(dir), gw, dec, logger.NewNopLogger())
	sum2, err := arch2.Run(context.Background(), "@test_channel")
	require.NoError(t, err)
	assert.Equal(t, StateDone, sum2.State)

	entries, _ = os.ReadDir(filepath.Join(dir, "media"))
	assert.Len(t, entries, 3)
}

func TestRunMediaFloodWaitGetsFreshTimeout(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(5, 3)
	// The flood wait outlasts the per-download timeout; the retry must not
	// inherit the expired deadline.
	gw.floodMedia[3] = 60 * time.Millisecond

	cfg := testConfig(dir)
	cfg.Download.DownloadTimeout = 30 * time.Millisecond
	arch := New(cfg, gw, AutoDecisions{Media: true}, logger.NewNopLogger())

	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)
	assert.Equal(t, StateDone, sum.State)

	require.Len(t, gw.mediaCtxErrs, 2)
	assert.NoError(t, gw.mediaCtxErrs[1], "retry after the flood wait ran on an expired deadline")
}

func TestRunMediaDeclined(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(10, 4)

	dec := &recordingDecisions{media: false}
	arch := New(testConfig(dir), gw, dec, logger.NewNopLogger())

	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)

	assert.True(t, dec.mediaAsked)
	assert.Equal(t, StateMediaOffered, sum.State)
	assert.Equal(t, 1, sum.MediaPending)

	if _, err := os.ReadDir(filepath.Join(dir, "media")); err == nil {
		entries, _ := os.ReadDir(filepath.Join(dir, "media"))
		assert.Empty(t, entries)
	}
}

func TestRunMediaImmediately(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(10, 4, 7)
	cfg := testConfig(dir)
	cfg.Download.MediaImmediately = true

	dec := &recordingDecisions{}
	arch := New(cfg, gw, dec, logger.NewNopLogger())

	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)

	// Attachments were fetched inline, so the second phase resolves to
	// nothing pending without asking.
	assert.Equal(t, StateDone, sum.State)
	assert.False(t, dec.mediaAsked)

	entries, err := os.ReadDir(filepath.Join(dir, "media"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRunNoMediaAtAll(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(5)

	dec := &recordingDecisions{}
	arch := New(testConfig(dir), gw, dec, logger.NewNopLogger())

	sum, err := arch.Run(context.Background(), "@test_channel")
	require.NoError(t, err)

	assert.Equal(t, StateDone, sum.State)
	assert.False(t, dec.mediaAsked)
	assert.Equal(t, 0, sum.MediaTotal)
}

func TestRunCancelledContext(t *testing.T) {
	dir := t.TempDir()
	gw := newFakeGateway(47)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	arch := New(testConfig(dir), gw, AutoDecisions{}, logger.NewNopLogger())
	sum, err := arch.Run(ctx, "@test_channel")
	require.Error(t, err)
	assert.Equal(t, StateInterrupted, sum.State)
}

func TestClassifyMedia(t *testing.T) {
	assert.Equal(t, "image", string(classifyMedia("photo")))
	assert.Equal(t, "document", string(classifyMedia("document")))
	assert.Equal(t, "other", string(classifyMedia("video")))
	assert.Equal(t, "other", string(classifyMedia("")))
}
