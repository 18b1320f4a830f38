// Package imsgbridge adapts a local iMessage bridge daemon to the
// platform contracts: REST for enumeration and history, a websocket
// stream for live message events.
package imsgbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

const (
	defaultBaseURL     = "http://127.0.0.1:1234"
	defaultHTTPTimeout = 15 * time.Second
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *slog.Logger

	dialer *websocket.Dialer
}

func New(baseURL string, logger *slog.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: defaultHTTPTimeout},
		Logger:  logger,
		dialer:  websocket.DefaultDialer,
	}
}

type wireChat struct {
	Handle        string `json:"handle"`
	IsGroup       bool   `json:"is_group"`
	DisplayName   string `json:"display_name"`
	LastMessageAt string `json:"last_message_at"`
}

type wireMessage struct {
	Text      string `json:"text"`
	FromOwner bool   `json:"from_owner"`
	Timestamp string `json:"timestamp"`
}

type wireMessagePage struct {
	Messages       []wireMessage `json:"messages"`
	TotalAvailable int           `json:"total_available"`
}

type wireEvent struct {
	Handle  string      `json:"handle"`
	Message wireMessage `json:"message"`
}

func (c *Client) ListChats(ctx context.Context, limit int) ([]platform.Chat, error) {
	endpoint := fmt.Sprintf("%s/api/v1/chats?limit=%d", c.BaseURL, limit)
	var wire []wireChat
	if err := c.getJSON(ctx, endpoint, &wire); err != nil {
		return nil, fmt.Errorf("imsgbridge list chats: %w", err)
	}
	out := make([]platform.Chat, 0, len(wire))
	for _, item := range wire {
		chat := platform.Chat{
			Handle:      strings.TrimSpace(item.Handle),
			IsGroup:     item.IsGroup,
			DisplayName: strings.TrimSpace(item.DisplayName),
		}
		if ts, ok := c.parseTimestamp(item.LastMessageAt); ok {
			chat.LastMessageAt = &ts
		}
		if chat.Handle == "" {
			continue
		}
		out = append(out, chat)
	}
	return out, nil
}

func (c *Client) GetMessages(ctx context.Context, canonicalHandle string, limit, offset int) (platform.MessagePage, error) {
	endpoint := fmt.Sprintf(
		"%s/api/v1/chats/%s/messages?limit=%d&offset=%d",
		c.BaseURL, url.PathEscape(canonicalHandle), limit, offset,
	)
	var wire wireMessagePage
	if err := c.getJSON(ctx, endpoint, &wire); err != nil {
		return platform.MessagePage{}, fmt.Errorf("imsgbridge get messages: %w", err)
	}
	page := platform.MessagePage{
		Messages:       make([]platform.Message, 0, len(wire.Messages)),
		TotalAvailable: wire.TotalAvailable,
	}
	for _, item := range wire.Messages {
		msg := platform.Message{
			Text:      item.Text,
			FromOwner: item.FromOwner,
		}
		if ts, ok := c.parseTimestamp(item.Timestamp); ok {
			msg.Timestamp = ts
		}
		page.Messages = append(page.Messages, msg)
	}
	return page, nil
}

// Watch opens the bridge's websocket stream and forwards events until
// ctx is canceled or the stream breaks.
func (c *Client) Watch(ctx context.Context) (<-chan platform.Event, error) {
	wsURL, err := c.websocketURL()
	if err != nil {
		return nil, err
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("imsgbridge watch dial: %w", err)
	}

	events := make(chan platform.Event, 16)
	go func() {
		defer close(events)
		defer conn.Close()
		go func() {
			<-ctx.Done()
			_ = conn.Close()
		}()
		for {
			var wire wireEvent
			if err := conn.ReadJSON(&wire); err != nil {
				if ctx.Err() == nil {
					c.Logger.Warn("watch stream closed", "error", err)
				}
				return
			}
			handle := strings.TrimSpace(wire.Handle)
			if handle == "" {
				continue
			}
			evt := platform.Event{
				Handle: handle,
				Message: platform.Message{
					Text:      wire.Message.Text,
					FromOwner: wire.Message.FromOwner,
				},
			}
			if ts, ok := c.parseTimestamp(wire.Message.Timestamp); ok {
				evt.Message.Timestamp = ts
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// LookupDirectoryName asks the bridge's contact directory for the
// saved name behind a phone or email. 404 means no entry.
func (c *Client) LookupDirectoryName(ctx context.Context, phone, email string) (string, error) {
	query := url.Values{}
	if phone = strings.TrimSpace(phone); phone != "" {
		query.Set("phone", phone)
	}
	if email = strings.TrimSpace(email); email != "" {
		query.Set("email", email)
	}
	if len(query) == 0 {
		return "", nil
	}
	endpoint := fmt.Sprintf("%s/api/v1/directory?%s", c.BaseURL, query.Encode())
	var wire struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, endpoint, &wire); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("imsgbridge directory lookup: %w", err)
	}
	return strings.TrimSpace(wire.Name), nil
}

func (c *Client) websocketURL() (string, error) {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("imsgbridge base url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/v1/stream"
	return parsed.String(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return json.Unmarshal(raw, out)
}

// statusError carries a non-2xx response so callers can branch on the
// status code instead of parsing error text.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// parseTimestamp accepts RFC3339 and epoch milliseconds; anything else
// is logged and dropped so one bad record cannot abort a fetch.
func (c *Client) parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), true
	}
	if ms, err := parseInt64(raw); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	c.Logger.Debug("unparseable timestamp", "raw", raw)
	return time.Time{}, false
}

func parseInt64(raw string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(raw, "%d", &n)
	return n, err
}
