package archiver

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"tgarchive/pkg/config"
	"tgarchive/pkg/errors"
	"tgarchive/pkg/logger"
	"tgarchive/pkg/models"
	"tgarchive/pkg/progress"
	"tgarchive/pkg/ratelimit"
	"tgarchive/pkg/retry"
	"tgarchive/pkg/sink"
	"tgarchive/pkg/storage"
	"tgarchive/pkg/telegram"
)

// saveEvery is how many records may be committed to sinks between progress
// saves inside a single batch. A crash loses at most this many records worth
// of position, which the next run re-downloads.
const saveEvery = 25

// Archiver drives a job through its two phases: text first, attachments
// second. All position is kept in the progress record, so a run killed at
// any point resumes from the last save.
type Archiver struct {
	cfg       *config.Config
	client    ChannelClient
	decisions Decisions
	limiter   ratelimit.Limiter
	logger    logger.Logger
}

// Summary reports what a run accomplished.
type Summary struct {
	BaseName        string
	State           State
	Channel         *telegram.Channel
	TotalDownloaded int
	MediaTotal      int
	MediaPending    int
	OutputPaths     []string
	ProgressPath    string
}

func New(cfg *config.Config, client ChannelClient, decisions Decisions, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Archiver{
		cfg:       cfg,
		client:    client,
		decisions: decisions,
		limiter:   ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute),
		logger:    log,
	}
}

// Run archives the given target end to end. Resolution happens before any
// file is touched, so a bad target leaves no trace on disk. The returned
// summary is valid even when err is non-nil.
func (a *Archiver) Run(ctx context.Context, target string) (*Summary, error) {
	channel, err := a.client.Resolve(ctx, target)
	if err != nil {
		return &Summary{State: StateNotStarted}, fmt.Errorf("resolving %q: %w", target, err)
	}

	log := a.logger.WithFields(map[string]interface{}{
		"channel": channel.Title,
		"type":    channel.Type,
	})
	log.Info("Channel resolved")

	baseName := a.pickBaseName(channel)
	store, err := progress.NewStore(a.cfg.Output.Directory, baseName)
	if err != nil {
		return &Summary{BaseName: baseName, Channel: channel, State: StateNotStarted}, err
	}
	inv := progress.NewInventory()
	rec, err := store.Load(inv)
	if err != nil {
		return &Summary{BaseName: baseName, Channel: channel, State: StateNotStarted}, err
	}

	media, err := storage.NewManager(a.cfg.Output.Directory)
	if err != nil {
		return &Summary{BaseName: baseName, Channel: channel, State: StateNotStarted}, err
	}

	sum := &Summary{
		BaseName:     baseName,
		Channel:      channel,
		ProgressPath: store.Path(),
	}

	state := StateNotStarted
	if rec.TotalDownloaded > 0 {
		log.InfoWithFields("Resuming prior job", map[string]interface{}{
			"base_name":       baseName,
			"last_message_id": rec.LastMessageID,
			"downloaded":      rec.TotalDownloaded,
		})
	}

	if !rec.TextComplete {
		state = StateTextPhase
		if err := a.runTextPhase(ctx, channel, store, inv, rec, sum); err != nil {
			sum.State = StateInterrupted
			sum.TotalDownloaded = rec.TotalDownloaded
			return sum, err
		}
	}
	if rec.TextComplete {
		state = StateTextComplete
	}
	sum.TotalDownloaded = rec.TotalDownloaded
	sum.MediaTotal = inv.Len()

	// The second phase is only reachable once the first has finished; a
	// capped or interrupted run stops here and keeps its pending set.
	if rec.TextComplete && !rec.MediaDownloaded && inv.Len() > 0 {
		state = StateMediaOffered
		onDisk, err := media.Downloaded()
		if err != nil {
			sum.State = state
			return sum, err
		}
		remaining := inv.Remaining(onDisk)
		sum.MediaPending = len(remaining)

		switch {
		case len(remaining) == 0:
			rec.MediaDownloaded = true
			if err := store.Save(rec, inv); err != nil {
				sum.State = state
				return sum, err
			}
		case a.decisions.DownloadMediaNow(len(remaining)):
			state = StateMediaPhase
			failed, err := a.runMediaPhase(ctx, channel, media, remaining)
			if err != nil {
				sum.State = StateInterrupted
				sum.MediaPending = failed
				return sum, err
			}
			sum.MediaPending = failed
			if failed == 0 {
				rec.MediaDownloaded = true
			}
			if err := store.Save(rec, inv); err != nil {
				sum.State = state
				return sum, err
			}
		default:
			log.InfoWithFields("Media deferred", map[string]interface{}{
				"pending": len(remaining),
			})
		}
	} else if rec.TextComplete && inv.Len() == 0 && !rec.MediaDownloaded {
		// Nothing to fetch: mark the phase done so status reads clean.
		rec.MediaDownloaded = true
		if err := store.Save(rec, inv); err != nil {
			sum.State = state
			return sum, err
		}
	}

	if rec.TextComplete && rec.MediaDownloaded {
		state = StateDone
	}
	sum.State = state
	return sum, nil
}

// pickBaseName consults prior jobs matching this channel and either reuses
// one or mints a fresh timestamped name.
func (a *Archiver) pickBaseName(channel *telegram.Channel) string {
	candidates := progress.FindExisting(a.cfg.Output.Directory, channel.Title)
	if len(candidates) > 0 {
		if name, ok := a.decisions.ChooseJob(candidates); ok {
			return name
		}
	}
	safe := progress.SanitizeTitle(channel.Title)
	if safe == "" {
		safe = fmt.Sprintf("channel_%d", channel.ID)
	}
	return fmt.Sprintf("%s_%s", safe, time.Now().Format("20060102_150405"))
}

// runTextPhase is the batch fetch loop. Sinks are opened fresh each run:
// resuming rewrites the files from the new position, and the progress record
// is the only authority on where the job stands.
func (a *Archiver) runTextPhase(ctx context.Context, channel *telegram.Channel, store *progress.Store, inv *progress.Inventory, rec *progress.Record, sum *Summary) (err error) {
	sinks, err := sink.Open(a.cfg.Output.Directory, sum.BaseName, a.cfg.Download.Format, a.logger)
	if err != nil {
		return err
	}
	sum.OutputPaths = sinks.Paths()

	var media *storage.Manager
	if a.cfg.Download.MediaImmediately {
		media, err = storage.NewManager(a.cfg.Output.Directory)
		if err != nil {
			return err
		}
	}

	// On every exit path the sinks are closed valid and the record
	// reflects every committed row.
	defer func() {
		if ferr := sinks.Finalize(); ferr != nil && err == nil {
			err = ferr
		}
		if serr := store.Save(rec, inv); serr != nil && err == nil {
			err = serr
		}
	}()

	start := time.Now()
	startCount := rec.TotalDownloaded

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		limit := a.cfg.Download.BatchSize
		if max := a.cfg.Download.MaxMessages; max > 0 {
			left := max - rec.TotalDownloaded
			if left <= 0 {
				a.logger.InfoWithFields("Message cap reached", map[string]interface{}{
					"max_messages": max,
				})
				return nil
			}
			if left < limit {
				limit = left
			}
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}

		batch, err := a.client.History(ctx, channel, limit, rec.LastMessageID)
		var flood *telegram.FloodWaitError
		if stderrors.As(err, &flood) {
			logger.LogRateLimit(telegram.HistoryEndpoint, int(flood.Wait.Seconds()))
			if werr := retry.Wait(ctx, flood.Wait); werr != nil {
				return werr
			}
			continue // same request, nothing was committed
		}
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			rec.TextComplete = true
			a.logger.InfoWithFields("Channel exhausted", map[string]interface{}{
				"total": rec.TotalDownloaded,
			})
			return nil
		}

		for i := range batch {
			raw := &batch[i]
			msg := a.transform(ctx, channel, raw, media)
			if msg.HasMedia {
				inv.RecordIfNew(msg.ID)
			}
			if werr := sinks.Write(msg); werr != nil {
				a.logger.WithError(werr).Error("Sink write failed")
			}
			rec.LastMessageID = raw.ID
			rec.TotalDownloaded++
			if (i+1)%saveEvery == 0 {
				if serr := store.Save(rec, inv); serr != nil {
					return serr
				}
			}
		}
		if serr := store.Save(rec, inv); serr != nil {
			return serr
		}

		rate := float64(rec.TotalDownloaded-startCount) / time.Since(start).Seconds()
		logger.LogBatchProgress(channel.Title, rec.TotalDownloaded, rec.LastMessageID, rate)

		if d := a.cfg.RateLimit.BatchDelay; d > 0 {
			if werr := retry.Wait(ctx, d); werr != nil {
				return werr
			}
		}
	}
}

// transform maps a gateway record onto the sink model. Sender fields degrade
// to empty when the gateway omits them; that is never an error. When media
// is present and immediate download is on, the attachment is fetched inline
// and a failure leaves the path pending for phase two.
func (a *Archiver) transform(ctx context.Context, channel *telegram.Channel, raw *telegram.RawMessage, media *storage.Manager) *models.Message {
	msg := models.FromBasic(models.Basic{
		ID:   raw.ID,
		Date: time.Unix(raw.Date, 0).UTC(),
		Text: raw.Text,
	})
	msg.ReplyToID = raw.ReplyToID
	msg.Forwards = raw.Forwards
	msg.Views = raw.Views
	if raw.EditDate != 0 {
		msg.EditDate = time.Unix(raw.EditDate, 0).UTC()
	}
	if s := raw.Sender; s != nil {
		msg.SenderID = s.ID
		msg.SenderUsername = s.Username
		switch {
		case s.Title != "":
			msg.SenderName = s.Title
		case s.LastName != "":
			msg.SenderName = s.FirstName + " " + s.LastName
		default:
			msg.SenderName = s.FirstName
		}
	}
	if raw.Media != nil {
		msg.HasMedia = true
		msg.MediaKind = classifyMedia(raw.Media.Type)
		if media != nil {
			path, err := a.fetchAttachment(ctx, channel, raw.ID, media)
			if err != nil {
				logger.LogMediaDownload(channel.Title, raw.ID, false, err)
			} else {
				msg.MediaPath = path
			}
		}
	}
	return msg
}

func classifyMedia(gatewayType string) models.MediaKind {
	switch gatewayType {
	case "photo":
		return models.MediaImage
	case "document":
		return models.MediaDocument
	default:
		return models.MediaOther
	}
}

// runMediaPhase fetches every pending attachment, tolerating per-item
// failures. It returns how many items remain unfetched; only a clean sweep
// lets the caller mark the phase complete.
func (a *Archiver) runMediaPhase(ctx context.Context, channel *telegram.Channel, media *storage.Manager, remaining []int64) (failed int, err error) {
	a.logger.InfoWithFields("Downloading media", map[string]interface{}{
		"channel": channel.Title,
		"pending": len(remaining),
	})

	for _, id := range remaining {
		if ctx.Err() != nil {
			return failed + countAfter(remaining, id), ctx.Err()
		}
		if werr := a.limiter.Wait(ctx); werr != nil {
			return failed + countAfter(remaining, id), werr
		}

		derr := retry.Do(func() error {
			return a.downloadOne(ctx, channel, id, media)
		}, &retry.Config{
			MaxAttempts: a.cfg.Download.MediaRetryAttempts,
			Backoff:     retry.DefaultExponentialBackoff(),
			RetryIf:     retry.DefaultRetryIf,
			Context:     ctx,
			Logger:      a.logger,
		})
		if derr != nil {
			if ctx.Err() != nil {
				return failed + countAfter(remaining, id), ctx.Err()
			}
			failed++
			logger.LogMediaDownload(channel.Title, id, false, derr)
			continue
		}
		logger.LogMediaDownload(channel.Title, id, true, nil)
	}
	return failed, nil
}

// downloadOne re-fetches the message, confirms the attachment still exists,
// and streams it to disk. FloodWait is absorbed here so the retry budget is
// spent on real failures.
func (a *Archiver) downloadOne(ctx context.Context, channel *telegram.Channel, id int64, media *storage.Manager) error {
	raw, err := a.client.MessageByID(ctx, channel, id)
	var flood *telegram.FloodWaitError
	if stderrors.As(err, &flood) {
		logger.LogRateLimit(telegram.MessageEndpoint, int(flood.Wait.Seconds()))
		if werr := retry.Wait(ctx, flood.Wait); werr != nil {
			return werr
		}
		raw, err = a.client.MessageByID(ctx, channel, id)
	}
	if err != nil {
		return err
	}
	if raw.Media == nil {
		// Deleted or edited away since the text phase saw it.
		return nil
	}
	if _, err := a.fetchAttachment(ctx, channel, id, media); err != nil {
		return err
	}
	return nil
}

func (a *Archiver) fetchAttachment(ctx context.Context, channel *telegram.Channel, id int64, media *storage.Manager) (string, error) {
	rc, ext, cancel, err := a.openAttachment(ctx, channel, id)
	var flood *telegram.FloodWaitError
	if stderrors.As(err, &flood) {
		logger.LogRateLimit(telegram.AttachmentEndpoint, int(flood.Wait.Seconds()))
		if werr := retry.Wait(ctx, flood.Wait); werr != nil {
			return "", werr
		}
		// The wait may outlast the download timeout, so the retry gets a
		// fresh one.
		rc, ext, cancel, err = a.openAttachment(ctx, channel, id)
	}
	if err != nil {
		return "", err
	}
	defer cancel()
	defer rc.Close()
	path, err := media.SaveAttachment(rc, id, ext)
	if err != nil {
		return "", &errors.Error{
			Type:    errors.ErrorTypeMedia,
			Message: fmt.Sprintf("saving attachment for message %d: %v", id, err),
		}
	}
	return path, nil
}

// openAttachment issues one download request under its own timeout. The
// returned cancel must be held until the body has been consumed.
func (a *Archiver) openAttachment(ctx context.Context, channel *telegram.Channel, id int64) (io.ReadCloser, string, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if t := a.cfg.Download.DownloadTimeout; t > 0 {
		ctx, cancel = context.WithTimeout(ctx, t)
	}
	rc, ext, err := a.client.DownloadAttachment(ctx, channel, id)
	if err != nil {
		cancel()
		return nil, "", nil, err
	}
	return rc, ext, cancel, nil
}

func countAfter(ids []int64, current int64) int {
	for i, id := range ids {
		if id == current {
			return len(ids) - i
		}
	}
	return 0
}
