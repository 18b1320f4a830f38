package naming

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/wasumayan/SorryIMissedThis-sub001/internal/ttlcache"
	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

const defaultDirectoryTTL = 10 * time.Minute

type CachedDirectoryOptions struct {
	TTL    time.Duration
	Clock  func() time.Time
	Logger *slog.Logger
}

// CachedDirectory wraps an address-directory lookup with a minutes-
// scale cache keyed by the phone/email pair. Lookup errors degrade to
// "no answer".
type CachedDirectory struct {
	lookup platform.DirectoryLookup
	cache  *ttlcache.Cache[string, string]
	logger *slog.Logger
}

func NewCachedDirectory(lookup platform.DirectoryLookup, opts CachedDirectoryOptions) *CachedDirectory {
	if opts.TTL <= 0 {
		opts.TTL = defaultDirectoryTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cacheOpts := []ttlcache.Option[string, string]{}
	if opts.Clock != nil {
		cacheOpts = append(cacheOpts, ttlcache.WithClock[string, string](opts.Clock))
	}
	return &CachedDirectory{
		lookup: lookup,
		cache:  ttlcache.New[string, string](opts.TTL, cacheOpts...),
		logger: opts.Logger,
	}
}

// Name returns the directory name for the phone/email pair, or "" when
// the directory has no answer or the lookup fails.
func (d *CachedDirectory) Name(ctx context.Context, phone, email string) string {
	if d == nil || d.lookup == nil {
		return ""
	}
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)
	if phone == "" && email == "" {
		return ""
	}
	key := phone + "|" + email
	if cached, ok := d.cache.Get(key); ok {
		return cached
	}
	name, err := d.lookup.LookupDirectoryName(ctx, phone, email)
	if err != nil {
		d.logger.Debug("directory lookup failed", "error", err)
		return ""
	}
	name = strings.TrimSpace(name)
	d.cache.Set(key, name)
	return name
}
