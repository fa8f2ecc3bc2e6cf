package logger

import "github.com/rs/zerolog"

// LogRateLimit logs a rate limit signal from the gateway
func LogRateLimit(endpoint string, retryAfterSeconds int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfterSeconds,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogMediaDownload logs the outcome of a single attachment download
func LogMediaDownload(channel string, messageID int64, success bool, err error) {
	l := GetLogger().WithFields(map[string]interface{}{
		"channel":    channel,
		"message_id": messageID,
		"success":    success,
	})

	if err != nil {
		l.WithError(err).Error("Media download failed")
	} else {
		l.Info("Media download completed")
	}
}

// LogBatchProgress logs fetch-loop progress after a batch commits
func LogBatchProgress(channel string, total int, lastID int64, rate float64) {
	GetLogger().WithFields(map[string]interface{}{
		"channel":          channel,
		"total_downloaded": total,
		"last_message_id":  lastID,
		"msgs_per_sec":     rate,
	}).Info("Batch complete")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
