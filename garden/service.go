package garden

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/wasumayan/SorryIMissedThis-sub001/health"
	"github.com/wasumayan/SorryIMissedThis-sub001/identity"
	"github.com/wasumayan/SorryIMissedThis-sub001/naming"
	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

type ServiceOptions struct {
	Workers     int
	FetchLimit  int
	CallTimeout time.Duration
	WindowDays  int
	Clock       func() time.Time
	Logger      *slog.Logger
}

func normalizeServiceOptions(opts ServiceOptions) ServiceOptions {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = DefaultFetchLimit
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// Service runs the full pipeline per conversation: identity, fetch,
// naming, metrics, health, persist. Chats are processed with bounded
// concurrency and one chat's failure never aborts the others.
type Service struct {
	client    platform.Client
	resolver  *identity.Resolver
	pipeline  *naming.Pipeline
	directory *naming.CachedDirectory
	engine    *health.Engine
	store     Store

	workers     int64
	fetchLimit  int
	callTimeout time.Duration
	clock       func() time.Time
	logger      *slog.Logger

	locks conversationLocks
}

type ServiceDeps struct {
	Client    platform.Client
	Resolver  *identity.Resolver
	Pipeline  *naming.Pipeline
	Directory *naming.CachedDirectory // optional
	Store     Store
}

func NewService(deps ServiceDeps, opts ServiceOptions) (*Service, error) {
	if deps.Client == nil || deps.Resolver == nil || deps.Pipeline == nil || deps.Store == nil {
		return nil, fmt.Errorf("garden service: missing dependency")
	}
	opts = normalizeServiceOptions(opts)
	return &Service{
		client:      deps.Client,
		resolver:    deps.Resolver,
		pipeline:    deps.Pipeline,
		directory:   deps.Directory,
		engine:      health.NewEngine(opts.WindowDays),
		store:       deps.Store,
		workers:     int64(opts.Workers),
		fetchLimit:  opts.FetchLimit,
		callTimeout: opts.CallTimeout,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}, nil
}

// SyncAll runs one sync pass. With rawHandles nil the platform's
// current enumeration is the input set; otherwise only the given
// handles are considered. The policy filter runs before any per-chat
// network or inference work.
func (s *Service) SyncAll(ctx context.Context, rawHandles []string, policy SyncPolicy) (SyncReport, error) {
	report := SyncReport{
		RunID:     uuid.NewString(),
		StartedAt: s.clock(),
		Results:   map[string]ChatResult{},
	}
	if err := s.store.Ensure(ctx); err != nil {
		return report, err
	}

	chats, err := s.candidates(ctx, rawHandles)
	if err != nil {
		return report, err
	}
	chats = applyPolicy(chats, policy)
	report.Planned = len(chats)
	if len(chats) == 0 {
		report.EndedAt = s.clock()
		return report, nil
	}

	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, chat := range chats {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Never-attempted chats still show up in the report, so
			// Planned always equals Succeeded+Failed.
			mu.Lock()
			for _, skipped := range chats[i:] {
				report.Results[skipped.Handle] = ChatResult{
					Handle: skipped.Handle,
					Err:    fmt.Errorf("sync pass interrupted: %w", err),
				}
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(chat platform.Chat) {
			defer wg.Done()
			defer sem.Release(1)
			result := s.syncChat(ctx, chat)
			mu.Lock()
			report.Results[chat.Handle] = result
			mu.Unlock()
			if result.Err != nil {
				s.logger.Warn("chat sync failed", "handle", chat.Handle, "error", result.Err)
			}
		}(chat)
	}
	wg.Wait()

	for _, result := range report.Results {
		if result.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	report.EndedAt = s.clock()
	s.logger.Info("sync pass finished",
		"run_id", report.RunID,
		"planned", report.Planned,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
	return report, nil
}

// candidates maps the input handles onto enumeration entries so the
// policy filter can use display names and last-message times.
func (s *Service) candidates(ctx context.Context, rawHandles []string) ([]platform.Chat, error) {
	enumCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	enumeration, err := s.resolver.Enumeration(enumCtx)
	if err != nil {
		return nil, err
	}
	if rawHandles == nil {
		return enumeration, nil
	}

	byStripped := make(map[string]platform.Chat, len(enumeration))
	for _, chat := range enumeration {
		byStripped[identity.StripServicePrefix(chat.Handle, identity.DefaultServicePrefixes)] = chat
	}
	out := make([]platform.Chat, 0, len(rawHandles))
	for _, handle := range rawHandles {
		handle = strings.TrimSpace(handle)
		if handle == "" {
			continue
		}
		if chat, ok := byStripped[identity.StripServicePrefix(handle, identity.DefaultServicePrefixes)]; ok {
			out = append(out, chat)
			continue
		}
		out = append(out, platform.Chat{Handle: handle})
	}
	return out, nil
}

func applyPolicy(chats []platform.Chat, policy SyncPolicy) []platform.Chat {
	switch policy.Mode {
	case ModeRecent:
		if policy.RecentN <= 0 {
			return nil
		}
		sorted := make([]platform.Chat, len(chats))
		copy(sorted, chats)
		sort.SliceStable(sorted, func(i, j int) bool {
			ti, tj := sorted[i].LastMessageAt, sorted[j].LastMessageAt
			switch {
			case ti == nil:
				return false
			case tj == nil:
				return true
			default:
				return ti.After(*tj)
			}
		})
		if len(sorted) > policy.RecentN {
			sorted = sorted[:policy.RecentN]
		}
		return sorted
	case ModeSelected:
		// Empty selection means sync nothing.
		if len(policy.Selected) == 0 {
			return nil
		}
		selected := make(map[string]bool, len(policy.Selected))
		for _, handle := range policy.Selected {
			selected[identity.StripServicePrefix(handle, identity.DefaultServicePrefixes)] = true
		}
		out := make([]platform.Chat, 0, len(chats))
		for _, chat := range chats {
			if selected[identity.StripServicePrefix(chat.Handle, identity.DefaultServicePrefixes)] {
				out = append(out, chat)
			}
		}
		return out
	default:
		return chats
	}
}

func (s *Service) syncChat(ctx context.Context, chat platform.Chat) ChatResult {
	result := ChatResult{Handle: chat.Handle}

	resolveCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	canonical, err := s.resolver.Resolve(resolveCtx, chat.Handle)
	cancel()
	if err != nil {
		result.Err = err
		return result
	}
	result.CanonicalID = canonical

	// Steps within one chat are strictly sequential, and the lock keeps
	// the watch path from touching the same conversation mid-sync.
	unlock := s.locks.lock(canonical)
	defer unlock()

	messages, err := s.fetchMessages(ctx, canonical)
	if err != nil {
		result.Err = err
		return result
	}

	existing, _, err := s.store.GetConversation(ctx, canonical)
	if err != nil {
		result.Err = err
		return result
	}

	now := s.clock()
	record := s.buildRecord(ctx, chat, canonical, existing, messages, now)
	if err := s.store.PutConversation(ctx, record); err != nil {
		result.Err = err
		return result
	}
	result.Record = &record
	return result
}

// fetchMessages over-fetches and keeps the newest fetchLimit messages
// in ascending order; the platform's offset support is not trusted.
func (s *Service) fetchMessages(ctx context.Context, canonical string) ([]platform.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	page, err := s.client.GetMessages(fetchCtx, canonical, s.fetchLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	messages := page.Messages
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	if len(messages) > s.fetchLimit {
		messages = messages[len(messages)-s.fetchLimit:]
	}
	return messages, nil
}

func (s *Service) buildRecord(
	ctx context.Context,
	chat platform.Chat,
	canonical string,
	existing ConversationRecord,
	messages []platform.Message,
	now time.Time,
) ConversationRecord {
	id := identity.Extract(canonical)

	platformName := strings.TrimSpace(chat.DisplayName)
	if platformName == "" && s.directory != nil {
		dirCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		platformName = s.directory.Name(dirCtx, id.Phone, id.Email)
		cancel()
	}

	nameCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	nameResult := s.pipeline.Resolve(nameCtx, naming.Input{
		Handle:       canonical,
		PinnedName:   existing.PinnedName,
		PlatformName: platformName,
		Messages:     messages,
		Self:         naming.DeriveSelfIdentities(messages),
	})
	cancel()

	metrics := s.engine.Recompute(messages)
	state := health.Classify(metrics.DaysSinceLastContact(now))

	record := ConversationRecord{
		CanonicalID:  canonical,
		IsGroup:      chat.IsGroup || id.IsGroup,
		PinnedName:   existing.PinnedName,
		Name:         nameResult,
		Metrics:      metrics,
		Health:       state,
		LastSyncedAt: now,
		CreatedAt:    existing.CreatedAt,
		UpdatedAt:    now,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	return record
}

// PinName stores an explicit display name on a conversation; it wins
// every later resolution with explicit provenance.
func (s *Service) PinName(ctx context.Context, canonicalID, name string) (ConversationRecord, error) {
	canonicalID = strings.TrimSpace(canonicalID)
	name = strings.TrimSpace(name)
	if canonicalID == "" {
		return ConversationRecord{}, fmt.Errorf("canonical_id is required")
	}
	if name == "" {
		return ConversationRecord{}, fmt.Errorf("name is required")
	}
	if err := s.store.Ensure(ctx); err != nil {
		return ConversationRecord{}, err
	}

	unlock := s.locks.lock(canonicalID)
	defer unlock()

	record, ok, err := s.store.GetConversation(ctx, canonicalID)
	if err != nil {
		return ConversationRecord{}, err
	}
	if !ok {
		return ConversationRecord{}, fmt.Errorf("conversation not found: %s", canonicalID)
	}
	now := s.clock()
	record.PinnedName = name
	record.Name = naming.Result{Name: name, Provenance: naming.ProvenanceExplicit, Confidence: 1.0}
	record.UpdatedAt = now
	if err := s.store.PutConversation(ctx, record); err != nil {
		return ConversationRecord{}, err
	}
	return record, nil
}

func (s *Service) ListConversations(ctx context.Context) ([]ConversationRecord, error) {
	if err := s.store.Ensure(ctx); err != nil {
		return nil, err
	}
	return s.store.ListConversations(ctx)
}

// conversationLocks hands out one mutex per canonical handle so the
// batch and watch paths serialize per conversation without a global
// lock across unrelated ones. Entries are refcounted and evicted once
// the last holder releases, so a long watch does not accumulate one
// entry per conversation ever seen.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func (l *conversationLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*refLock{}
	}
	entry, ok := l.locks[key]
	if !ok {
		entry = &refLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
