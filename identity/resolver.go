package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wasumayan/SorryIMissedThis-sub001/internal/ttlcache"
	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

// ErrNotFound means every format rewrite was tried and the platform
// still does not know the conversation. Callers must not synthesize a
// canonical handle on their own.
var ErrNotFound = errors.New("identity: conversation not found")

const (
	defaultEnumerationTTL   = 30 * time.Second
	defaultEnumerationLimit = 500

	enumerationCacheKey = "chat-enumeration"
)

type ResolverOptions struct {
	EnumerationTTL   time.Duration
	EnumerationLimit int
	ServicePrefixes  []string
	Clock            func() time.Time
	Logger           *slog.Logger
}

func normalizeResolverOptions(opts ResolverOptions) ResolverOptions {
	if opts.EnumerationTTL <= 0 {
		opts.EnumerationTTL = defaultEnumerationTTL
	}
	if opts.EnumerationLimit <= 0 {
		opts.EnumerationLimit = defaultEnumerationLimit
	}
	if len(opts.ServicePrefixes) == 0 {
		opts.ServicePrefixes = DefaultServicePrefixes
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// Resolver reconciles externally-supplied handles against the
// platform's enumeration. The enumeration call and the per-chat fetch
// call normalize handles differently, so plain equality is not enough;
// the resolver tries format rewrites in a fixed order.
type Resolver struct {
	client   platform.Client
	prefixes []string
	limit    int
	logger   *slog.Logger

	enumCache   *ttlcache.Cache[string, []platform.Chat]
	handleCache *ttlcache.Cache[string, string]
}

func NewResolver(client platform.Client, opts ResolverOptions) *Resolver {
	opts = normalizeResolverOptions(opts)
	return &Resolver{
		client:   client,
		prefixes: opts.ServicePrefixes,
		limit:    opts.EnumerationLimit,
		logger:   opts.Logger,
		enumCache: ttlcache.New[string, []platform.Chat](
			opts.EnumerationTTL,
			ttlcache.WithClock[string, []platform.Chat](opts.Clock),
		),
		handleCache: ttlcache.New[string, string](
			opts.EnumerationTTL,
			ttlcache.WithClock[string, string](opts.Clock),
		),
	}
}

// Resolve maps an external handle to the canonical handle chosen for
// its conversation this pass. It consults the cached enumeration first,
// then falls back to direct platform queries over format rewrites.
func (r *Resolver) Resolve(ctx context.Context, externalHandle string) (string, error) {
	if r == nil || r.client == nil {
		return "", fmt.Errorf("nil identity resolver")
	}
	externalHandle = strings.TrimSpace(externalHandle)
	if externalHandle == "" {
		return "", fmt.Errorf("empty handle")
	}

	if canonical, ok := r.handleCache.Get(externalHandle); ok {
		return canonical, nil
	}

	chats, err := r.enumeration(ctx)
	if err != nil {
		return "", err
	}
	normalized := StripServicePrefix(externalHandle, r.prefixes)
	for _, chat := range chats {
		if chat.Handle == externalHandle || StripServicePrefix(chat.Handle, r.prefixes) == normalized {
			r.handleCache.Set(externalHandle, chat.Handle)
			return chat.Handle, nil
		}
	}

	// Not in the enumeration: probe the platform directly with each
	// rewrite. The first form the fetch API accepts is canonical for
	// this call only; it bypassed the enumeration, so it is not cached.
	for _, rewrite := range r.rewrites(externalHandle) {
		page, err := r.client.GetMessages(ctx, rewrite, 1, 0)
		if err != nil {
			r.logger.Debug("handle rewrite probe failed", "rewrite", rewrite, "error", err)
			continue
		}
		if len(page.Messages) > 0 || page.TotalAvailable > 0 {
			return rewrite, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, externalHandle)
}

// Enumeration returns the current chat listing, cached for the TTL so a
// batch of resolutions costs one platform call.
func (r *Resolver) Enumeration(ctx context.Context) ([]platform.Chat, error) {
	return r.enumeration(ctx)
}

func (r *Resolver) enumeration(ctx context.Context) ([]platform.Chat, error) {
	if cached, ok := r.enumCache.Get(enumerationCacheKey); ok {
		return cached, nil
	}
	chats, err := r.client.ListChats(ctx, r.limit)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	r.enumCache.Set(enumerationCacheKey, chats)
	return chats, nil
}

func (r *Resolver) rewrites(handle string) []string {
	out := make([]string, 0, 3)
	out = append(out, handle)
	if stripped := StripServicePrefix(handle, r.prefixes); stripped != handle {
		out = append(out, stripped)
	}
	if groupID, ok := ExtractGroupID(handle); ok && groupID != handle {
		out = append(out, groupID)
	}
	return out
}
