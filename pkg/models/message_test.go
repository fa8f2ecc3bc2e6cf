package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValuesOmitsZeroIdentifiers(t *testing.T) {
	msg := &Message{ID: 1, Text: "hi"}
	vals := msg.Values()

	if _, ok := vals["sender_id"]; ok {
		t.Error("sender_id should be absent when zero")
	}
	if _, ok := vals["reply_to_msg_id"]; ok {
		t.Error("reply_to_msg_id should be absent when zero")
	}
	if vals["edit_date"] != "" {
		t.Errorf("zero edit_date should render empty, got %q", vals["edit_date"])
	}
	if vals["has_media"] != "false" {
		t.Errorf("has_media = %q, want false", vals["has_media"])
	}
}

func TestValuesCoverColumns(t *testing.T) {
	msg := &Message{
		ID:        5,
		Date:      time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		SenderID:  77,
		ReplyToID: 3,
		HasMedia:  true,
		MediaKind: MediaDocument,
	}
	vals := msg.Values()
	for _, col := range msg.Columns() {
		if _, ok := vals[col]; !ok && col != "sender_id" && col != "reply_to_msg_id" {
			t.Errorf("column %q has no value", col)
		}
	}
	if vals["date"] != "2024-06-01T08:00:00Z" {
		t.Errorf("date = %q, want RFC3339", vals["date"])
	}
	if vals["sender_id"] != "77" || vals["reply_to_msg_id"] != "3" {
		t.Errorf("identifier columns wrong: %q %q", vals["sender_id"], vals["reply_to_msg_id"])
	}
}

func TestMessageJSONShape(t *testing.T) {
	msg := &Message{ID: 9, Text: "x", HasMedia: true, MediaKind: MediaImage}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["media_type"] != "image" {
		t.Errorf("media_type = %v", raw["media_type"])
	}
	if _, ok := raw["sender_id"]; ok {
		t.Error("zero sender_id should be omitted from JSON")
	}
}

func TestFromBasic(t *testing.T) {
	b := Basic{ID: 4, Date: time.Unix(100, 0), Text: "t"}
	msg := FromBasic(b)
	if msg.ID != 4 || msg.Text != "t" || !msg.Date.Equal(b.Date) {
		t.Errorf("FromBasic = %+v", msg)
	}
	if msg.HasMedia {
		t.Error("FromBasic should leave media fields zero")
	}
}
