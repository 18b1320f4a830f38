package garden

import (
	"context"
	"errors"
	"fmt"

	"github.com/wasumayan/SorryIMissedThis-sub001/health"
	"github.com/wasumayan/SorryIMissedThis-sub001/identity"
	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

// Watch consumes the platform's live event stream and applies each
// message incrementally: metrics fold, health reclassification,
// persist. The enumeration path is not re-entered.
func (s *Service) Watch(ctx context.Context, watcher platform.Watcher) error {
	if watcher == nil {
		return fmt.Errorf("watcher is required")
	}
	if err := s.store.Ensure(ctx); err != nil {
		return err
	}
	events, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	for event := range events {
		if err := s.ApplyEvent(ctx, event); err != nil {
			s.logger.Warn("event apply failed", "handle", event.Handle, "error", err)
		}
	}
	return ctx.Err()
}

// ApplyEvent folds one live message into its conversation's metrics.
// The per-conversation lock keeps this serialized against a concurrent
// sync pass, preserving batch/incremental equivalence.
func (s *Service) ApplyEvent(ctx context.Context, event platform.Event) error {
	resolveCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	canonical, err := s.resolver.Resolve(resolveCtx, event.Handle)
	cancel()
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.logger.Debug("event for unknown conversation", "handle", event.Handle)
			return nil
		}
		return err
	}

	unlock := s.locks.lock(canonical)
	defer unlock()

	record, ok, err := s.store.GetConversation(ctx, canonical)
	if err != nil {
		return err
	}
	now := s.clock()
	if !ok {
		// First sighting between sync passes: start an empty record;
		// the next sync pass fills in the name properly.
		record = ConversationRecord{
			CanonicalID: canonical,
			IsGroup:     identity.Extract(canonical).IsGroup,
			Metrics:     s.engine.Recompute(nil),
			CreatedAt:   now,
		}
	}

	record.Metrics = s.engine.ApplyNewMessage(record.Metrics, event.Message)
	record.Health = health.Classify(record.Metrics.DaysSinceLastContact(now))
	record.UpdatedAt = now
	return s.store.PutConversation(ctx, record)
}
