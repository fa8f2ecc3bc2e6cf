package telegram

import (
	"fmt"
	"time"
)

// Channel is a resolved remote resource handle.
type Channel struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
	Type     string `json:"type"`
}

// Sender identifies who posted a message. Either the name fields (user) or
// Title (channel/group) is set.
type Sender struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Media describes an attachment without its bytes.
type Media struct {
	Type     string `json:"type"` // photo, document, video, ...
	FileName string `json:"file_name,omitempty"`
}

// RawMessage is one message record as delivered by the gateway, before the
// archiver's transform.
type RawMessage struct {
	ID        int64   `json:"id"`
	Date      int64   `json:"date"` // unix seconds
	Text      string  `json:"text"`
	EditDate  int64   `json:"edit_date,omitempty"`
	Sender    *Sender `json:"sender,omitempty"`
	ReplyToID int64   `json:"reply_to_msg_id,omitempty"`
	Forwards  int     `json:"forwards,omitempty"`
	Views     int     `json:"views,omitempty"`
	Media     *Media  `json:"media,omitempty"`
}

// FloodWaitError is the gateway's rate-limit signal. The request that hit it
// committed nothing; callers wait out the duration and re-issue the same
// request.
type FloodWaitError struct {
	Wait time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Wait)
}
