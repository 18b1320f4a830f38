// Package garden coordinates identity resolution, name resolution,
// metrics, and health classification over a batch of conversations,
// and keeps the persisted garden up to date.
package garden

import (
	"time"

	"github.com/wasumayan/SorryIMissedThis-sub001/health"
	"github.com/wasumayan/SorryIMissedThis-sub001/naming"
)

const (
	DefaultWorkers     = 5
	DefaultFetchLimit  = 200
	DefaultCallTimeout = 20 * time.Second
)

// ConversationRecord is the single logical document persisted per
// conversation, identified stably by canonical handle. Raw message text
// is never part of it.
type ConversationRecord struct {
	CanonicalID string             `json:"canonical_id"`
	IsGroup     bool               `json:"is_group,omitempty"`
	PinnedName  string             `json:"pinned_name,omitempty"`
	Name        naming.Result      `json:"name"`
	Metrics     health.ConversationMetrics `json:"metrics"`
	Health      health.HealthState `json:"health"`

	LastSyncedAt time.Time `json:"last_synced_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SyncMode string

const (
	ModeAll      SyncMode = "all"
	ModeRecent   SyncMode = "recent"
	ModeSelected SyncMode = "selected"
)

// SyncPolicy filters the enumeration before any network or inference
// work happens. A selected policy with an empty set means "sync
// nothing", not an error.
type SyncPolicy struct {
	Mode     SyncMode
	RecentN  int
	Selected []string
}

// ChatResult is one conversation's outcome within a sync pass. Err is
// set when that chat's pipeline failed; other chats are unaffected.
type ChatResult struct {
	Handle      string
	CanonicalID string
	Record      *ConversationRecord
	Err         error
}

type SyncReport struct {
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time
	Planned   int
	Succeeded int
	Failed    int
	Results   map[string]ChatResult
}
