package telegram

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tgarchive/pkg/errors"
	"tgarchive/pkg/logger"
)

// Client talks to the message gateway over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     logger.Logger
}

// NewClient creates a gateway client.
func NewClient(baseURL, token string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		logger:     log,
	}
}

// apiResponse is the gateway's envelope for JSON endpoints.
type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	Description string              `json:"description,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

type responseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

var inviteLinkPattern = regexp.MustCompile(`t\.me/(joinchat/)?([a-zA-Z0-9_\-+]+)`)

// NormalizeTarget reduces the accepted identifier shapes (@username, numeric
// ID, t.me or invite link) to the form the gateway resolves.
func NormalizeTarget(target string) string {
	target = strings.TrimSpace(target)

	if m := inviteLinkPattern.FindStringSubmatch(target); m != nil {
		if m[1] != "" {
			// Invite links are resolved by their hash, marked with a +.
			return "+" + strings.TrimPrefix(m[2], "+")
		}
		return m[2]
	}

	return strings.TrimPrefix(target, "@")
}

// Resolve maps a user-supplied identifier to a channel handle.
func (c *Client) Resolve(ctx context.Context, target string) (*Channel, error) {
	normalized := NormalizeTarget(target)
	if normalized == "" {
		return nil, &errors.Error{Type: errors.ErrorTypeResolution, Message: "empty channel identifier"}
	}

	c.logger.DebugWithFields("Resolving channel", map[string]interface{}{
		"target": normalized,
	})

	var channel Channel
	if err := c.getJSON(ctx, ResolveURL(c.baseURL, c.token, normalized), &channel); err != nil {
		var apiErr *errors.Error
		if stderrors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, &errors.Error{
				Type:    errors.ErrorTypeResolution,
				Message: fmt.Sprintf("channel %q not found", target),
				Code:    apiErr.Code,
			}
		}
		return nil, fmt.Errorf("failed to resolve channel %q: %w", target, err)
	}

	return &channel, nil
}

// History fetches up to limit messages older than offsetID, newest first.
// An empty slice means the channel's history is exhausted.
func (c *Client) History(ctx context.Context, channel *Channel, limit int, offsetID int64) ([]RawMessage, error) {
	var messages []RawMessage
	url := HistoryURL(c.baseURL, c.token, channel.ID, limit, offsetID)
	if err := c.getJSON(ctx, url, &messages); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return messages, nil
}

// MessageByID re-fetches a single message, typically to get at its
// attachment after a text-only pass.
func (c *Client) MessageByID(ctx context.Context, channel *Channel, messageID int64) (*RawMessage, error) {
	var message RawMessage
	url := MessageURL(c.baseURL, c.token, channel.ID, messageID)
	if err := c.getJSON(ctx, url, &message); err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", messageID, err)
	}
	return &message, nil
}

// DownloadAttachment streams a message's attachment. The returned extension
// (without dot, possibly empty) comes from the gateway's filename or content
// type. The caller owns the reader.
func (c *Client) DownloadAttachment(ctx context.Context, channel *Channel, messageID int64) (io.ReadCloser, string, error) {
	url := AttachmentURL(c.baseURL, c.token, channel.ID, messageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &errors.Error{Type: errors.ErrorTypeNetwork, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", c.statusError(resp)
	}

	return resp.Body, attachmentExt(resp), nil
}

// getJSON performs a GET and decodes the envelope's result into out.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("Gateway request completed", map[string]interface{}{
		"url":         req.URL.Path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeNetwork, Message: err.Error()}
	}

	var envelope apiResponse
	if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil {
		if wait := retryAfter(resp, &envelope); wait > 0 {
			return &FloodWaitError{Wait: wait}
		}
		if !envelope.OK {
			return c.envelopeError(resp.StatusCode, &envelope)
		}
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return &errors.Error{
				Type:    errors.ErrorTypeTransform,
				Message: fmt.Sprintf("failed to decode result: %v", err),
			}
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return &errors.Error{Type: errors.ErrorTypeTransform, Message: "gateway returned non-JSON body"}
}

// retryAfter extracts the rate-limit wait from either the envelope or the
// Retry-After header.
func retryAfter(resp *http.Response, envelope *apiResponse) time.Duration {
	if envelope != nil && envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
		return time.Duration(envelope.Parameters.RetryAfter) * time.Second
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
		return time.Minute
	}
	return 0
}

func (c *Client) envelopeError(statusCode int, envelope *apiResponse) error {
	msg := envelope.Description
	if msg == "" {
		msg = "gateway reported failure"
	}
	return &errors.Error{
		Type:    classifyStatus(statusCode),
		Message: msg,
		Code:    statusCode,
	}
}

func (c *Client) statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &FloodWaitError{Wait: retryAfter(resp, nil)}
	}
	return &errors.Error{
		Type:    classifyStatus(resp.StatusCode),
		Message: http.StatusText(resp.StatusCode),
		Code:    resp.StatusCode,
	}
}

func classifyStatus(statusCode int) errors.ErrorType {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return errors.ErrorTypeRateLimit
	case statusCode == http.StatusNotFound:
		return errors.ErrorTypeResolution
	case statusCode >= 500:
		return errors.ErrorTypeServerError
	default:
		return errors.ErrorTypeUnknown
	}
}

// attachmentExt derives a file extension from the response metadata.
func attachmentExt(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return strings.TrimPrefix(filepath.Ext(name), ".")
			}
		}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if exts, err := mime.ExtensionsByType(ct); err == nil && len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
	}

	return ""
}
