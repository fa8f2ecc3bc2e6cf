package telegram

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// ResolveEndpoint maps a channel identifier to a handle
	ResolveEndpoint = "resolveChat"

	// HistoryEndpoint pages through a channel's messages
	HistoryEndpoint = "chatHistory"

	// MessageEndpoint fetches a single message by identifier
	MessageEndpoint = "getMessage"

	// AttachmentEndpoint streams a message's attachment bytes
	AttachmentEndpoint = "getAttachment"

	// MaxHistoryLimit is the largest page the gateway accepts
	MaxHistoryLimit = 200
)

// ResolveURL constructs the URL for resolving a channel identifier.
func ResolveURL(baseURL, token, target string) string {
	params := url.Values{}
	params.Set("target", target)
	return endpointURL(baseURL, token, ResolveEndpoint, params)
}

// HistoryURL constructs the URL for one history page. offsetID is exclusive:
// only messages with smaller identifiers are returned, newest first. Zero
// means start from the newest message.
func HistoryURL(baseURL, token string, channelID int64, limit int, offsetID int64) string {
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(channelID, 10))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset_id", strconv.FormatInt(offsetID, 10))
	return endpointURL(baseURL, token, HistoryEndpoint, params)
}

// MessageURL constructs the URL for fetching a single message.
func MessageURL(baseURL, token string, channelID, messageID int64) string {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(channelID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	return endpointURL(baseURL, token, MessageEndpoint, params)
}

// AttachmentURL constructs the URL for downloading a message's attachment.
func AttachmentURL(baseURL, token string, channelID, messageID int64) string {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(channelID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	return endpointURL(baseURL, token, AttachmentEndpoint, params)
}

func endpointURL(baseURL, token, method string, params url.Values) string {
	return fmt.Sprintf("%s/bot%s/%s?%s", baseURL, token, method, params.Encode())
}
