package models

import (
	"strconv"
	"time"
)

// MediaKind classifies a message attachment.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
	MediaOther    MediaKind = "other"
)

// Message is the transformed unit of work fed to every sink.
//
// A message with HasMedia set and an empty MediaPath is valid: it means the
// attachment bytes have not been fetched yet, not that something went wrong.
type Message struct {
	ID             int64     `json:"id"`
	Date           time.Time `json:"date"`
	Text           string    `json:"text"`
	SenderID       int64     `json:"sender_id,omitempty"`
	SenderName     string    `json:"sender_name,omitempty"`
	SenderUsername string    `json:"sender_username,omitempty"`
	ReplyToID      int64     `json:"reply_to_msg_id,omitempty"`
	Forwards       int       `json:"forwards,omitempty"`
	Views          int       `json:"views,omitempty"`
	EditDate       time.Time `json:"edit_date,omitempty"`
	HasMedia       bool      `json:"has_media"`
	MediaKind      MediaKind `json:"media_type,omitempty"`
	MediaPath      string    `json:"media_path,omitempty"`
}

// Columns returns the CSV column names for a message, in output order.
func (m *Message) Columns() []string {
	return []string{
		"id", "date", "text",
		"sender_id", "sender_name", "sender_username",
		"reply_to_msg_id", "forwards", "views", "edit_date",
		"has_media", "media_type", "media_path",
	}
}

// Values returns the message fields keyed by column name.
func (m *Message) Values() map[string]string {
	vals := map[string]string{
		"id":              strconv.FormatInt(m.ID, 10),
		"date":            formatTime(m.Date),
		"text":            m.Text,
		"sender_name":     m.SenderName,
		"sender_username": m.SenderUsername,
		"forwards":        strconv.Itoa(m.Forwards),
		"views":           strconv.Itoa(m.Views),
		"edit_date":       formatTime(m.EditDate),
		"has_media":       strconv.FormatBool(m.HasMedia),
		"media_type":      string(m.MediaKind),
		"media_path":      m.MediaPath,
	}
	if m.SenderID != 0 {
		vals["sender_id"] = strconv.FormatInt(m.SenderID, 10)
	}
	if m.ReplyToID != 0 {
		vals["reply_to_msg_id"] = strconv.FormatInt(m.ReplyToID, 10)
	}
	return vals
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Basic is the minimal message shape shared by every source that feeds a
// downstream processor: remote chat API, scraped post, and so on. Sources
// construct it explicitly instead of synthesizing ad hoc types per call site.
type Basic struct {
	ID   int64     `json:"id"`
	Date time.Time `json:"date"`
	Text string    `json:"text"`
}

// FromBasic builds a full Message carrying only the minimal fields.
func FromBasic(b Basic) *Message {
	return &Message{ID: b.ID, Date: b.Date, Text: b.Text}
}
