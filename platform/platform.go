// Package platform defines the contracts the engine requires from the
// message platform: chat enumeration, paginated message fetch, a live
// event subscription, and an optional address-directory lookup. Wire
// formats are the adapter's concern.
package platform

import (
	"context"
	"time"
)

// Chat is one entry of the platform's chat enumeration. Handle is
// whatever identifier the platform returned; it is not guaranteed to be
// stable in format across calls for the same conversation.
type Chat struct {
	Handle        string     `json:"handle"`
	IsGroup       bool       `json:"is_group"`
	DisplayName   string     `json:"display_name,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Message is a single message as fetched or delivered by the platform.
// A zero Timestamp means the wire timestamp was missing or unparseable;
// such messages still count toward totals but are excluded from any
// time-based calculation.
type Message struct {
	Text      string    `json:"text"`
	FromOwner bool      `json:"from_owner"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePage is one page of a conversation's history, oldest first.
type MessagePage struct {
	Messages       []Message `json:"messages"`
	TotalAvailable int       `json:"total_available"`
}

// Event is a single live message plus the handle of the conversation it
// belongs to, as delivered by the watch subscription.
type Event struct {
	Handle  string  `json:"handle"`
	Message Message `json:"message"`
}

type Client interface {
	// ListChats enumerates up to limit conversations.
	ListChats(ctx context.Context, limit int) ([]Chat, error)

	// GetMessages returns a page of messages for a canonical handle.
	// The platform is not guaranteed to honor offset server-side;
	// adapters may over-fetch and slice.
	GetMessages(ctx context.Context, canonicalHandle string, limit, offset int) (MessagePage, error)
}

type Watcher interface {
	// Watch delivers message events until ctx is canceled. The returned
	// channel is closed when the subscription ends.
	Watch(ctx context.Context) (<-chan Event, error)
}

// DirectoryLookup resolves a phone or email to a saved directory name.
// An empty result means no entry; errors are treated by callers as
// "no answer".
type DirectoryLookup interface {
	LookupDirectoryName(ctx context.Context, phone, email string) (string, error)
}
