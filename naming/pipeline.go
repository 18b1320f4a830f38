package naming

import (
	"context"
	"log/slog"
	"strings"

	"github.com/wasumayan/SorryIMissedThis-sub001/identity"
	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

const (
	// Tier-2 samples the most recent partner messages; when the first
	// inference echoes contact info or the owner's own name, one retry
	// widens the sample to catch introductions outside the initial
	// window.
	recentSampleSize  = 20
	widenedSampleSize = 50

	confidenceExplicit  = 1.0
	confidenceDirectory = 0.95
	confidenceInferred  = 0.7
	confidenceExtracted = 0.4
)

// Input carries everything one resolution needs. Messages are ordered
// by timestamp ascending.
type Input struct {
	Handle       string
	PinnedName   string
	PlatformName string
	Messages     []platform.Message
	Self         SelfIdentities
}

type Pipeline struct {
	inferrer Inferrer
	logger   *slog.Logger
}

func NewPipeline(inferrer Inferrer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{inferrer: inferrer, logger: logger}
}

// Resolve runs the fallback chain and returns the first tier's answer.
// Each tier either resolves or has no opinion; the chain always
// terminates at the generic fallback.
func (p *Pipeline) Resolve(ctx context.Context, in Input) Result {
	tiers := []func(context.Context, Input) (Result, bool){
		p.resolvePinned,
		p.resolvePlatformName,
		p.resolveInferred,
		p.resolveExtracted,
	}
	for _, tier := range tiers {
		if res, ok := tier(ctx, in); ok {
			return res
		}
	}
	return Result{Name: FallbackName, Provenance: ProvenanceFallback, Confidence: 0}
}

// resolvePinned honors a name the user pinned on the conversation.
func (p *Pipeline) resolvePinned(_ context.Context, in Input) (Result, bool) {
	pinned := strings.TrimSpace(in.PinnedName)
	if pinned == "" {
		return Result{}, false
	}
	return Result{Name: pinned, Provenance: ProvenanceExplicit, Confidence: confidenceExplicit}, true
}

func (p *Pipeline) resolvePlatformName(_ context.Context, in Input) (Result, bool) {
	name := strings.TrimSpace(in.PlatformName)
	if name == "" || identity.IsContactInfo(name) || in.Self.Matches(name) {
		return Result{}, false
	}
	return Result{Name: name, Provenance: ProvenanceDirectory, Confidence: confidenceDirectory}, true
}

func (p *Pipeline) resolveInferred(ctx context.Context, in Input) (Result, bool) {
	if p.inferrer == nil {
		return Result{}, false
	}
	sample := partnerTexts(in.Messages, recentSampleSize)
	if len(sample) == 0 {
		return Result{}, false
	}
	hint := contactHint(in.Handle)

	name, err := p.inferrer.InferName(ctx, sample, hint)
	if err != nil {
		// Capability unavailable is "no answer", never fatal.
		p.logger.Debug("name inference failed", "handle", in.Handle, "error", err)
		return Result{}, false
	}
	if name == "" {
		return Result{}, false
	}
	if valid := !identity.IsContactInfo(name) && !in.Self.Matches(name); valid {
		return Result{Name: name, Provenance: ProvenanceInferred, Confidence: confidenceInferred}, true
	}

	widened := partnerTexts(in.Messages, widenedSampleSize)
	if len(widened) <= len(sample) {
		return Result{}, false
	}
	name, err = p.inferrer.InferName(ctx, widened, hint)
	if err != nil {
		p.logger.Debug("widened name inference failed", "handle", in.Handle, "error", err)
		return Result{}, false
	}
	if name == "" || identity.IsContactInfo(name) || in.Self.Matches(name) {
		return Result{}, false
	}
	return Result{Name: name, Provenance: ProvenanceInferred, Confidence: confidenceInferred}, true
}

func (p *Pipeline) resolveExtracted(_ context.Context, in Input) (Result, bool) {
	id := identity.Extract(in.Handle)
	if id.Phone != "" {
		return Result{Name: identity.FormatPhone(id.Phone), Provenance: ProvenanceExtracted, Confidence: confidenceExtracted}, true
	}
	if id.Email != "" {
		return Result{Name: id.Email, Provenance: ProvenanceExtracted, Confidence: confidenceExtracted}, true
	}
	return Result{}, false
}

// partnerTexts returns the texts of the most recent n partner-authored
// messages, oldest first.
func partnerTexts(messages []platform.Message, n int) []string {
	partner := make([]string, 0, n)
	for i := len(messages) - 1; i >= 0 && len(partner) < n; i-- {
		if messages[i].FromOwner {
			continue
		}
		text := strings.TrimSpace(messages[i].Text)
		if text == "" {
			continue
		}
		partner = append(partner, text)
	}
	// Reverse back into chronological order.
	for i, j := 0, len(partner)-1; i < j; i, j = i+1, j-1 {
		partner[i], partner[j] = partner[j], partner[i]
	}
	return partner
}

func contactHint(handle string) string {
	id := identity.Extract(handle)
	switch {
	case id.Phone != "":
		return id.Phone
	case id.Email != "":
		return id.Email
	default:
		return ""
	}
}
