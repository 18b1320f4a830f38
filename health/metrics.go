// Package health derives conversation metrics from message streams and
// classifies relationship health from them.
package health

import (
	"math"
	"time"

	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

const (
	DefaultWindowDays = 10

	// UndefinedResponseHours marks a conversation with no owner/partner
	// transition to measure. Never zero: zero is a real latency.
	UndefinedResponseHours = -1.0
)

// ConversationMetrics is the incremental state for one conversation.
// Values are never mutated in place; ApplyNewMessage returns a new
// value so the batch and incremental paths stay equivalent.
type ConversationMetrics struct {
	TotalMessages   int     `json:"total_messages"`
	OwnerMessages   int     `json:"owner_messages"`
	PartnerMessages int     `json:"partner_messages"`
	Reciprocity     float64 `json:"reciprocity"`

	AvgResponseHours    float64 `json:"avg_response_hours"`
	ResponseTransitions int     `json:"response_transitions"`
	ResponseHoursTotal  float64 `json:"response_hours_total"`

	LastMessageAt   time.Time `json:"last_message_at"`
	LastAuthorOwner bool      `json:"last_author_owner"`

	InteractionFreq  float64     `json:"interaction_freq"`
	WindowDays       int         `json:"window_days"`
	RecentTimestamps []time.Time `json:"recent_timestamps,omitempty"`
}

// DaysSinceLastContact is computed at read time, never stored, so the
// caller always sees current freshness. A conversation with no
// timestamped messages reads as infinitely stale.
func (m ConversationMetrics) DaysSinceLastContact(now time.Time) float64 {
	if m.LastMessageAt.IsZero() {
		return math.Inf(1)
	}
	days := now.Sub(m.LastMessageAt).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

type Engine struct {
	windowDays int
}

func NewEngine(windowDays int) *Engine {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Engine{windowDays: windowDays}
}

// Recompute folds ApplyNewMessage over the full ordered message set so
// the batch result is identical to the incremental one by construction.
// Messages must be ordered by timestamp ascending.
func (e *Engine) Recompute(messages []platform.Message) ConversationMetrics {
	metrics := ConversationMetrics{
		WindowDays:       e.windowDays,
		AvgResponseHours: UndefinedResponseHours,
		Reciprocity:      0.5,
	}
	for _, msg := range messages {
		metrics = e.ApplyNewMessage(metrics, msg)
	}
	return metrics
}

// ApplyNewMessage folds one message into current and returns the new
// metrics value. Messages with a zero timestamp count toward totals but
// are excluded from latency, recency, and window calculations.
func (e *Engine) ApplyNewMessage(current ConversationMetrics, msg platform.Message) ConversationMetrics {
	next := current
	if next.WindowDays <= 0 {
		next.WindowDays = e.windowDays
	}
	next.RecentTimestamps = append([]time.Time(nil), current.RecentTimestamps...)

	next.TotalMessages++
	if msg.FromOwner {
		next.OwnerMessages++
	} else {
		next.PartnerMessages++
	}
	next.Reciprocity = float64(next.OwnerMessages) / float64(next.TotalMessages)

	if msg.Timestamp.IsZero() {
		return next
	}
	ts := msg.Timestamp.UTC()

	if !next.LastMessageAt.IsZero() && next.LastAuthorOwner != msg.FromOwner {
		gap := ts.Sub(next.LastMessageAt).Hours()
		if gap >= 0 {
			next.ResponseTransitions++
			next.ResponseHoursTotal += gap
		}
	}
	if next.ResponseTransitions > 0 {
		next.AvgResponseHours = next.ResponseHoursTotal / float64(next.ResponseTransitions)
	} else {
		next.AvgResponseHours = UndefinedResponseHours
	}

	if ts.After(next.LastMessageAt) {
		next.LastMessageAt = ts
	}
	next.LastAuthorOwner = msg.FromOwner

	next.RecentTimestamps = append(next.RecentTimestamps, ts)
	next.RecentTimestamps = pruneWindow(next.RecentTimestamps, next.LastMessageAt, next.WindowDays)
	next.InteractionFreq = float64(len(next.RecentTimestamps)) / float64(next.WindowDays)
	return next
}

// pruneWindow keeps timestamps within the trailing window anchored at
// the newest message, so the frequency is a pure function of the
// message set.
func pruneWindow(timestamps []time.Time, newest time.Time, windowDays int) []time.Time {
	cutoff := newest.AddDate(0, 0, -windowDays)
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
