package garden

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wasumayan/SorryIMissedThis-sub001/health"
	"github.com/wasumayan/SorryIMissedThis-sub001/internal/fsstore"
	"github.com/wasumayan/SorryIMissedThis-sub001/naming"
)

const gardenFileName = "garden.md"

// FileStore keeps the garden in one markdown file, one conversation
// profile per section as a YAML code block. Writes are atomic whole-
// file replacements, which makes upsert-by-key trivial.
type FileStore struct {
	root string
	mu   sync.Mutex
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: strings.TrimSpace(root)}
}

func (s *FileStore) path() string {
	return filepath.Join(s.root, gardenFileName)
}

func (s *FileStore) Ensure(ctx context.Context) error {
	if err := ensureNotCanceled(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fsstore.EnsureDir(s.root, 0o700)
}

func (s *FileStore) GetConversation(ctx context.Context, canonicalID string) (ConversationRecord, bool, error) {
	if err := ensureNotCanceled(ctx); err != nil {
		return ConversationRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return ConversationRecord{}, false, err
	}
	canonicalID = strings.TrimSpace(canonicalID)
	for _, item := range records {
		if item.CanonicalID == canonicalID {
			return item, true, nil
		}
	}
	return ConversationRecord{}, false, nil
}

func (s *FileStore) PutConversation(ctx context.Context, record ConversationRecord) error {
	if err := ensureNotCanceled(ctx); err != nil {
		return err
	}
	record.CanonicalID = strings.TrimSpace(record.CanonicalID)
	if record.CanonicalID == "" {
		return fmt.Errorf("canonical_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	replaced := false
	for i, item := range records {
		if item.CanonicalID == record.CanonicalID {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}
	return s.saveLocked(records)
}

func (s *FileStore) ListConversations(ctx context.Context) ([]ConversationRecord, error) {
	if err := ensureNotCanceled(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() ([]ConversationRecord, error) {
	content, ok, err := fsstore.ReadText(s.path())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return parseGardenMarkdown(content)
}

func (s *FileStore) saveLocked(records []ConversationRecord) error {
	rendered, err := renderGardenMarkdown(records)
	if err != nil {
		return err
	}
	return fsstore.WriteTextAtomic(s.path(), rendered, fsstore.FileOptions{
		DirPerm:  0o700,
		FilePerm: 0o600,
	})
}

func ensureNotCanceled(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

type conversationSection struct {
	CanonicalID string         `yaml:"canonical_id"`
	IsGroup     bool           `yaml:"is_group,omitempty"`
	PinnedName  string         `yaml:"pinned_name,omitempty"`
	Name        string         `yaml:"name"`
	Provenance  string         `yaml:"provenance"`
	Confidence  float64        `yaml:"confidence"`
	Health      string         `yaml:"health"`
	Metrics     metricsSection `yaml:"metrics"`

	LastSyncedAt time.Time `yaml:"last_synced_at,omitempty"`
	CreatedAt    time.Time `yaml:"created_at,omitempty"`
	UpdatedAt    time.Time `yaml:"updated_at,omitempty"`
}

type metricsSection struct {
	TotalMessages       int         `yaml:"total_messages"`
	OwnerMessages       int         `yaml:"owner_messages"`
	PartnerMessages     int         `yaml:"partner_messages"`
	Reciprocity         float64     `yaml:"reciprocity"`
	AvgResponseHours    float64     `yaml:"avg_response_hours"`
	ResponseTransitions int         `yaml:"response_transitions"`
	ResponseHoursTotal  float64     `yaml:"response_hours_total"`
	LastMessageAt       time.Time   `yaml:"last_message_at,omitempty"`
	LastAuthorOwner     bool        `yaml:"last_author_owner,omitempty"`
	InteractionFreq     float64     `yaml:"interaction_freq"`
	WindowDays          int         `yaml:"window_days"`
	RecentTimestamps    []time.Time `yaml:"recent_timestamps,omitempty"`
}

func sectionFromRecord(record ConversationRecord) conversationSection {
	return conversationSection{
		CanonicalID: record.CanonicalID,
		IsGroup:     record.IsGroup,
		PinnedName:  record.PinnedName,
		Name:        record.Name.Name,
		Provenance:  string(record.Name.Provenance),
		Confidence:  record.Name.Confidence,
		Health:      string(record.Health),
		Metrics: metricsSection{
			TotalMessages:       record.Metrics.TotalMessages,
			OwnerMessages:       record.Metrics.OwnerMessages,
			PartnerMessages:     record.Metrics.PartnerMessages,
			Reciprocity:         record.Metrics.Reciprocity,
			AvgResponseHours:    record.Metrics.AvgResponseHours,
			ResponseTransitions: record.Metrics.ResponseTransitions,
			ResponseHoursTotal:  record.Metrics.ResponseHoursTotal,
			LastMessageAt:       record.Metrics.LastMessageAt,
			LastAuthorOwner:     record.Metrics.LastAuthorOwner,
			InteractionFreq:     record.Metrics.InteractionFreq,
			WindowDays:          record.Metrics.WindowDays,
			RecentTimestamps:    record.Metrics.RecentTimestamps,
		},
		LastSyncedAt: record.LastSyncedAt,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func recordFromSection(section conversationSection) ConversationRecord {
	return ConversationRecord{
		CanonicalID: strings.TrimSpace(section.CanonicalID),
		IsGroup:     section.IsGroup,
		PinnedName:  strings.TrimSpace(section.PinnedName),
		Name: naming.Result{
			Name:       section.Name,
			Provenance: naming.Provenance(section.Provenance),
			Confidence: section.Confidence,
		},
		Health: health.HealthState(section.Health),
		Metrics: health.ConversationMetrics{
			TotalMessages:       section.Metrics.TotalMessages,
			OwnerMessages:       section.Metrics.OwnerMessages,
			PartnerMessages:     section.Metrics.PartnerMessages,
			Reciprocity:         section.Metrics.Reciprocity,
			AvgResponseHours:    section.Metrics.AvgResponseHours,
			ResponseTransitions: section.Metrics.ResponseTransitions,
			ResponseHoursTotal:  section.Metrics.ResponseHoursTotal,
			LastMessageAt:       section.Metrics.LastMessageAt,
			LastAuthorOwner:     section.Metrics.LastAuthorOwner,
			InteractionFreq:     section.Metrics.InteractionFreq,
			WindowDays:          section.Metrics.WindowDays,
			RecentTimestamps:    section.Metrics.RecentTimestamps,
		},
		LastSyncedAt: section.LastSyncedAt,
		CreatedAt:    section.CreatedAt,
		UpdatedAt:    section.UpdatedAt,
	}
}

func renderGardenMarkdown(records []ConversationRecord) (string, error) {
	items := make([]ConversationRecord, len(records))
	copy(items, records)
	sort.Slice(items, func(i, j int) bool {
		return items[i].CanonicalID < items[j].CanonicalID
	})

	var b strings.Builder
	b.WriteString("# Garden\n\n")
	b.WriteString("<!-- One conversation profile per section, as YAML code block. -->\n\n")
	for _, item := range items {
		raw, err := yaml.Marshal(sectionFromRecord(item))
		if err != nil {
			return "", err
		}
		heading := strings.TrimSpace(item.Name.Name)
		if heading == "" {
			heading = item.CanonicalID
		}
		b.WriteString("## ")
		b.WriteString(heading)
		b.WriteString("\n\n```yaml\n")
		b.Write(raw)
		b.WriteString("```\n\n")
	}
	return b.String(), nil
}

func parseGardenMarkdown(content string) ([]ConversationRecord, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	out := make([]ConversationRecord, 0, 32)
	inYAML := false
	yamlLines := make([]string, 0, 32)

	flush := func() error {
		if len(yamlLines) == 0 {
			return nil
		}
		var section conversationSection
		if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &section); err != nil {
			return fmt.Errorf("parse garden section: %w", err)
		}
		yamlLines = yamlLines[:0]
		record := recordFromSection(section)
		if record.CanonicalID == "" {
			return nil
		}
		out = append(out, record)
		return nil
	}

	for scanner.Scan() {
		rawLine := scanner.Text()
		line := strings.TrimSpace(rawLine)

		if !inYAML && strings.HasPrefix(strings.ToLower(line), "```yaml") {
			inYAML = true
			yamlLines = yamlLines[:0]
			continue
		}
		if inYAML && strings.HasPrefix(line, "```") {
			if err := flush(); err != nil {
				return nil, err
			}
			inYAML = false
			continue
		}
		if inYAML {
			yamlLines = append(yamlLines, rawLine)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inYAML {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
