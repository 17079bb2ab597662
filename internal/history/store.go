package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/subtitle"
)

// MaxEntries is the history capacity; older entries are evicted first.
const MaxEntries = 10

var (
	ErrNotFound    = errors.New("history entry not found")
	ErrCueNotFound = errors.New("cue not found")
)

// Entry is one completed file translation.
type Entry struct {
	ID             string              `json:"id"`
	Timestamp      time.Time           `json:"timestamp"`
	Language       string              `json:"language"`
	SourceFileName string              `json:"source_file_name"`
	FileType       subtitle.Format     `json:"file_type"`
	SourceCues     []subtitle.Cue      `json:"source_cues"`
	TranslatedCues []subtitle.Cue      `json:"translated_cues"`
	Styles         subtitle.StyleTable `json:"styles"`
	RenderedOutput string              `json:"rendered_output"`
}

// Query filters and orders a history listing.
type Query struct {
	Language    string // empty matches all
	NewestFirst bool
}

// Persister stores entries row by row so several processes can share one
// history.
type Persister interface {
	LoadHistory(ctx context.Context) ([]Entry, error)
	// AppendHistory stores e, keeps only the newest max entries and returns
	// them oldest first.
	AppendHistory(ctx context.Context, e Entry, max int) ([]Entry, error)
	UpdateHistory(ctx context.Context, e Entry) error
}

// Store is the bounded, ordered translation history. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	entries   []Entry // oldest first
	persister Persister
	logger    zerolog.Logger
}

// NewStore returns an in-memory store. With a non-nil persister the store is
// loaded from it, and every change is written there before it is applied in
// memory.
func NewStore(ctx context.Context, persister Persister) (*Store, error) {
	s := &Store{persister: persister, logger: logging.Component("history")}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory entries with the persisted ones, picking up
// entries other processes appended.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *Store) reloadLocked(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	entries, err := s.persister.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.setLocked(entries)
	return nil
}

func (s *Store) setLocked(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}
	s.entries = entries
}

// Append adds e, evicting the oldest entries beyond MaxEntries. If the
// persister rejects e the store is left unchanged.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e = cloneEntry(e)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persister != nil {
		entries, err := s.persister.AppendHistory(ctx, cloneEntry(e), MaxEntries)
		if err != nil {
			return Entry{}, fmt.Errorf("save history: %w", err)
		}
		s.setLocked(entries)
		return cloneEntry(e), nil
	}

	s.entries = append(s.entries, e)
	if over := len(s.entries) - MaxEntries; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
		s.logger.Debug().Int("evicted", over).Msg("history trimmed")
	}
	return cloneEntry(e), nil
}

// List returns a filtered, ordered copy. Entries with equal timestamps keep
// insertion order.
func (s *Store) List(q Query) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if q.Language != "" && e.Language != q.Language {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.NewestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if q.NewestFirst {
		// equal timestamps: later insertion first
		reverseTies(out)
	}
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// UpdateLastTranslationForFile replaces the output and cues of the most recent
// entry matching fileName and language.
func (s *Store) UpdateLastTranslationForFile(ctx context.Context, fileName, language, output string, cues []subtitle.Cue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(ctx); err != nil {
		return err
	}

	i := s.lastIndexLocked(fileName, language)
	if i < 0 {
		return fmt.Errorf("%w: %s (%s)", ErrNotFound, fileName, language)
	}
	updated := cloneEntry(s.entries[i])
	updated.RenderedOutput = output
	updated.TranslatedCues = append([]subtitle.Cue(nil), cues...)
	return s.replaceLocked(ctx, i, updated)
}

// UpdateCue edits one translated cue of the latest matching entry and
// re-renders its output.
func (s *Store) UpdateCue(ctx context.Context, fileName, language, index, text string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(ctx); err != nil {
		return Entry{}, err
	}

	i := s.lastIndexLocked(fileName, language)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %s (%s)", ErrNotFound, fileName, language)
	}

	cues := append([]subtitle.Cue(nil), s.entries[i].TranslatedCues...)
	found := false
	for j := range cues {
		if cues[j].Index == index {
			cues[j].Text = text
			found = true
			break
		}
	}
	if !found {
		return Entry{}, fmt.Errorf("%w: index %s", ErrCueNotFound, index)
	}

	updated := cloneEntry(s.entries[i])
	updated.TranslatedCues = cues
	updated.RenderedOutput = subtitle.Render(cues)
	if err := s.replaceLocked(ctx, i, updated); err != nil {
		return Entry{}, err
	}
	return cloneEntry(updated), nil
}

func (s *Store) lastIndexLocked(fileName, language string) int {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].SourceFileName == fileName && s.entries[i].Language == language {
			return i
		}
	}
	return -1
}

// replaceLocked persists e and only then swaps it in at i.
func (s *Store) replaceLocked(ctx context.Context, i int, e Entry) error {
	if s.persister != nil {
		if err := s.persister.UpdateHistory(ctx, e); err != nil {
			return fmt.Errorf("save history: %w", err)
		}
	}
	s.entries[i] = e
	return nil
}

func reverseTies(entries []Entry) {
	for start := 0; start < len(entries); {
		end := start + 1
		for end < len(entries) && entries[end].Timestamp.Equal(entries[start].Timestamp) {
			end++
		}
		for i, j := start, end-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
		start = end
	}
}

func cloneEntry(e Entry) Entry {
	e.SourceCues = append([]subtitle.Cue(nil), e.SourceCues...)
	e.TranslatedCues = append([]subtitle.Cue(nil), e.TranslatedCues...)
	if e.Styles != nil {
		styles := make(subtitle.StyleTable, len(e.Styles))
		for k, v := range e.Styles {
			styles[k] = v
		}
		e.Styles = styles
	}
	return e
}
