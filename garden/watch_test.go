package garden

import (
	"context"
	"testing"
	"time"

	"github.com/wasumayan/SorryIMissedThis-sub001/health"
	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

type fakeWatcher struct {
	events chan platform.Event
}

func (f *fakeWatcher) Watch(ctx context.Context) (<-chan platform.Event, error) {
	return f.events, nil
}

func TestApplyEventFoldsIntoExistingRecord(t *testing.T) {
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	messages := conversationOf(base, 6, 0.5)
	bridge := &fakeBridge{
		chats: []platform.Chat{{Handle: "iMessage;+15551234567", DisplayName: "John"}},
		pages: map[string]platform.MessagePage{
			"iMessage;+15551234567": {Messages: messages, TotalAvailable: 6},
		},
	}
	now := base.AddDate(0, 0, 1)
	svc := newTestService(t, bridge, nil, func() time.Time { return now })
	ctx := context.Background()

	if _, err := svc.SyncAll(ctx, nil, SyncPolicy{Mode: ModeAll}); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	next := platform.Message{Text: "one more", FromOwner: false, Timestamp: now}
	if err := svc.ApplyEvent(ctx, platform.Event{Handle: "iMessage;+15551234567", Message: next}); err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}

	record, ok, err := svc.store.GetConversation(ctx, "iMessage;+15551234567")
	if err != nil || !ok {
		t.Fatalf("GetConversation() = %v, %v", ok, err)
	}
	if record.Metrics.TotalMessages != 7 {
		t.Fatalf("TotalMessages = %d, want 7", record.Metrics.TotalMessages)
	}
	if !record.Metrics.LastMessageAt.Equal(now) {
		t.Fatalf("LastMessageAt = %v, want %v", record.Metrics.LastMessageAt, now)
	}
	if record.Health != health.StateHealthy {
		t.Fatalf("Health = %v", record.Health)
	}
}

func TestApplyEventMatchesBatchRecompute(t *testing.T) {
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	initial := conversationOf(base, 5, 0.4)
	extra := platform.Message{Text: "later", FromOwner: true, Timestamp: base.Add(12 * time.Hour)}

	bridge := &fakeBridge{
		chats: []platform.Chat{{Handle: "iMessage;+15551234567", DisplayName: "John"}},
		pages: map[string]platform.MessagePage{
			"iMessage;+15551234567": {Messages: initial, TotalAvailable: 5},
		},
	}
	now := base.AddDate(0, 0, 1)
	svc := newTestService(t, bridge, nil, func() time.Time { return now })
	ctx := context.Background()

	if _, err := svc.SyncAll(ctx, nil, SyncPolicy{Mode: ModeAll}); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if err := svc.ApplyEvent(ctx, platform.Event{Handle: "iMessage;+15551234567", Message: extra}); err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}

	record, _, err := svc.store.GetConversation(ctx, "iMessage;+15551234567")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	want := health.NewEngine(0).Recompute(append(append([]platform.Message{}, initial...), extra))
	if record.Metrics.TotalMessages != want.TotalMessages ||
		record.Metrics.OwnerMessages != want.OwnerMessages ||
		record.Metrics.Reciprocity != want.Reciprocity ||
		record.Metrics.AvgResponseHours != want.AvgResponseHours {
		t.Fatalf("incremental metrics %+v diverge from batch %+v", record.Metrics, want)
	}
}

func TestApplyEventUnknownHandleIsSkipped(t *testing.T) {
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	bridge := &fakeBridge{pages: map[string]platform.MessagePage{}}
	svc := newTestService(t, bridge, nil, func() time.Time { return base })

	event := platform.Event{
		Handle:  "iMessage;+15559999999",
		Message: platform.Message{Text: "hi", FromOwner: false, Timestamp: base},
	}
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("ApplyEvent() error = %v, want unresolvable handles skipped", err)
	}
	records, err := svc.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want none", records)
	}
}

func TestApplyEventFirstSightingCreatesRecord(t *testing.T) {
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	bridge := &fakeBridge{
		chats: []platform.Chat{{Handle: "iMessage;+15551234567"}},
		pages: map[string]platform.MessagePage{},
	}
	svc := newTestService(t, bridge, nil, func() time.Time { return base })
	ctx := context.Background()
	if err := svc.store.Ensure(ctx); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	event := platform.Event{
		Handle:  "iMessage;+15551234567",
		Message: platform.Message{Text: "hello", FromOwner: false, Timestamp: base},
	}
	if err := svc.ApplyEvent(ctx, event); err != nil {
		t.Fatalf("ApplyEvent() error = %v", err)
	}

	record, ok, err := svc.store.GetConversation(ctx, "iMessage;+15551234567")
	if err != nil || !ok {
		t.Fatalf("GetConversation() = %v, %v", ok, err)
	}
	if record.Metrics.TotalMessages != 1 || record.Metrics.OwnerMessages != 0 {
		t.Fatalf("metrics = %+v", record.Metrics)
	}
	if record.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not set")
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	bridge := &fakeBridge{
		chats: []platform.Chat{{Handle: "iMessage;+15551234567"}},
		pages: map[string]platform.MessagePage{},
	}
	svc := newTestService(t, bridge, nil, func() time.Time { return base })

	watcher := &fakeWatcher{events: make(chan platform.Event)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(ctx, watcher)
	}()

	watcher.events <- platform.Event{
		Handle:  "iMessage;+15551234567",
		Message: platform.Message{Text: "hi", FromOwner: false, Timestamp: base},
	}
	cancel()
	close(watcher.events)

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Watch() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Watch did not return")
	}

	record, ok, err := svc.store.GetConversation(context.Background(), "iMessage;+15551234567")
	if err != nil || !ok {
		t.Fatalf("GetConversation() = %v, %v", ok, err)
	}
	if record.Metrics.TotalMessages != 1 {
		t.Fatalf("TotalMessages = %d", record.Metrics.TotalMessages)
	}
}
