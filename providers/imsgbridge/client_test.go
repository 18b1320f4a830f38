package imsgbridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestListChatsParsesTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chats" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"handle":"iMessage;+15551234567","is_group":false,"display_name":"John Smith","last_message_at":"2026-02-01T10:00:00Z"},
			{"handle":"chat883771","is_group":true,"last_message_at":"not-a-time"},
			{"handle":"  ","is_group":false}
		]`))
	}))
	defer srv.Close()

	client := New(srv.URL, nil)
	chats, err := client.ListChats(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListChats() error = %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("ListChats() len = %d, want 2 (blank handle dropped)", len(chats))
	}
	if chats[0].LastMessageAt == nil || !chats[0].LastMessageAt.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("chat[0].LastMessageAt = %v", chats[0].LastMessageAt)
	}
	if chats[1].LastMessageAt != nil {
		t.Fatalf("unparseable last_message_at should be nil, got %v", chats[1].LastMessageAt)
	}
}

func TestGetMessagesZeroesBadTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total_available": 2,
			"messages": [
				{"text":"hi","from_owner":true,"timestamp":"1767225600000"},
				{"text":"hello","from_owner":false,"timestamp":"garbage"}
			]
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, nil)
	page, err := client.GetMessages(context.Background(), "iMessage;+15551234567", 10, 0)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if page.TotalAvailable != 2 || len(page.Messages) != 2 {
		t.Fatalf("page shape mismatch: %+v", page)
	}
	if page.Messages[0].Timestamp.IsZero() {
		t.Fatalf("epoch-ms timestamp should parse")
	}
	if !page.Messages[1].Timestamp.IsZero() {
		t.Fatalf("bad timestamp should zero, got %v", page.Messages[1].Timestamp)
	}
}

func TestGetMessagesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bridge down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, nil)
	if _, err := client.GetMessages(context.Background(), "x", 10, 0); err == nil {
		t.Fatalf("expected error on HTTP 502")
	}
}

func TestLookupDirectoryName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/directory" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("phone") == "+15551234567" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"John Smith"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := New(srv.URL, nil)
	name, err := client.LookupDirectoryName(context.Background(), "+15551234567", "")
	if err != nil {
		t.Fatalf("LookupDirectoryName() error = %v", err)
	}
	if name != "John Smith" {
		t.Fatalf("name = %q", name)
	}

	// No entry and no identifiers both resolve to empty, not errors.
	if name, err = client.LookupDirectoryName(context.Background(), "+15550000000", ""); err != nil || name != "" {
		t.Fatalf("missing entry = %q, %v", name, err)
	}
	if name, err = client.LookupDirectoryName(context.Background(), "", ""); err != nil || name != "" {
		t.Fatalf("empty lookup = %q, %v", name, err)
	}
}

func TestLookupDirectoryNameSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Body mentioning 404 must not be mistaken for a missing entry;
		// only the status code decides.
		http.Error(w, "directory backend returned 404 upstream", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, nil)
	if _, err := client.LookupDirectoryName(context.Background(), "+15551234567", ""); err == nil {
		t.Fatalf("expected error on HTTP 500")
	}
}

func TestWatchDeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/stream" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{
			"handle": "iMessage;+15551234567",
			"message": map[string]any{
				"text":       "hey",
				"from_owner": false,
				"timestamp":  "2026-02-01T10:00:00Z",
			},
		})
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := New(srv.URL, nil)
	events, err := client.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	select {
	case evt, ok := <-events:
		if !ok {
			t.Fatalf("event channel closed before delivery")
		}
		if evt.Handle != "iMessage;+15551234567" || evt.Message.Text != "hey" {
			t.Fatalf("event mismatch: %+v", evt)
		}
		if evt.Message.Timestamp.IsZero() {
			t.Fatalf("event timestamp should parse")
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for event")
	}
	cancel()
}
