package garden

import "context"

// Store persists conversation records keyed by canonical handle.
// PutConversation has upsert semantics: a retried or duplicate sync for
// the same conversation overwrites, never duplicates, and concurrent
// upserts resolve as last-write-wins.
type Store interface {
	Ensure(ctx context.Context) error
	GetConversation(ctx context.Context, canonicalID string) (ConversationRecord, bool, error)
	PutConversation(ctx context.Context, record ConversationRecord) error
	ListConversations(ctx context.Context) ([]ConversationRecord, error)
}
