package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/parser"
	"mudae-tracker/internal/platform"
)

var ErrScrapeActive = errors.New("a scrape session is already running")

// ImportStore is the write surface the scraper flushes through.
type ImportStore interface {
	UpsertImport(ctx context.Context, entry domain.TopListEntry, kakeraValue, claimRank, likeRank *int64, source domain.SourceTag) error
}

// ListScraper drives a manual top-list scrape session: the operator starts a
// session, types the paging command in the game channel, and each returned
// list embed is matched against the expected page before its entries are
// collected and flushed. Safe for concurrent callers.
type ListScraper struct {
	store  ImportStore
	logger zerolog.Logger

	mu           sync.Mutex
	active       bool
	listKind     domain.ListKind
	totalPages   int
	expectedPage *int
	pending      []domain.TopListEntry
	startedAt    time.Time
	collected    int
}

func NewListScraper(store ImportStore, logger zerolog.Logger) *ListScraper {
	return &ListScraper{store: store, logger: logger}
}

// ScrapeStatus is a point-in-time snapshot for the control surface.
type ScrapeStatus struct {
	Active       bool            `json:"active"`
	ListKind     domain.ListKind `json:"list_kind,omitempty"`
	TotalPages   int             `json:"total_pages,omitempty"`
	ExpectedPage *int            `json:"expected_page,omitempty"`
	Pending      int             `json:"pending"`
	Collected    int             `json:"collected"`
}

func (s *ListScraper) Start(kind domain.ListKind, totalPages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return ErrScrapeActive
	}

	s.active = true
	s.listKind = kind
	s.totalPages = totalPages
	s.expectedPage = nil
	s.pending = nil
	s.collected = 0
	s.startedAt = time.Now()

	s.logger.Info().
		Str("list_kind", string(kind)).
		Int("total_pages", totalPages).
		Msg("scrape session started")
	return nil
}

func (s *ListScraper) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *ListScraper) Status() ScrapeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScrapeStatus{
		Active:       s.active,
		ListKind:     s.listKind,
		TotalPages:   s.totalPages,
		ExpectedPage: s.expectedPage,
		Pending:      len(s.pending),
		Collected:    s.collected,
	}
}

// SetExpectedPage arms the page gate before the operator requests a page.
func (s *ListScraper) SetExpectedPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedPage = &page
}

// HandleListEmbed processes one list embed. A page that does not match the
// armed expectation is skipped silently and the expectation stays armed, so a
// stale or duplicate embed never consumes it. Returns whether the embed was
// accepted.
func (s *ListScraper) HandleListEmbed(ctx context.Context, embed *platform.Embed) bool {
	s.mu.Lock()

	if !s.active {
		s.mu.Unlock()
		return false
	}

	page, total := parser.DetectPage(embed.FooterText)
	if total != nil {
		s.totalPages = *total
	}

	if s.expectedPage != nil {
		if page == nil || *page != *s.expectedPage {
			s.logger.Debug().
				Interface("page", page).
				Int("expected", *s.expectedPage).
				Msg("list embed page mismatch, skipping")
			s.mu.Unlock()
			return false
		}
		s.expectedPage = nil
	}

	entries := parser.ParseListEntries(parser.ListEmbedText(embed))
	s.pending = append(s.pending, entries...)
	s.collected += len(entries)

	s.logger.Info().
		Interface("page", page).
		Int("entries", len(entries)).
		Int("pending", len(s.pending)).
		Msg("list embed processed")
	s.mu.Unlock()

	s.flush(ctx)
	return true
}

// Complete flushes any remainder and ends the session unconditionally.
func (s *ListScraper) Complete(ctx context.Context) int {
	s.flush(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return 0
	}
	leftover := len(s.pending)
	saved := s.collected

	s.active = false
	s.pending = nil
	s.expectedPage = nil

	s.logger.Info().
		Int("collected", saved).
		Int("unsaved", leftover).
		Dur("duration", time.Since(s.startedAt)).
		Msg("scrape session complete")
	return saved
}

// flush upserts pending entries through the import-merge policy. Entries are
// removed as soon as they are saved; a failed entry stays pending for the
// next flush. At-most-once per entry, not transactional.
func (s *ListScraper) flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	kind := s.listKind
	s.mu.Unlock()

	var failed []domain.TopListEntry
	for _, entry := range batch {
		var err error
		rank := entry.Rank
		if kind == domain.ListClaimed {
			err = s.store.UpsertImport(ctx, entry, nil, &rank, nil, domain.SourceTopClaimed)
		} else {
			err = s.store.UpsertImport(ctx, entry, nil, nil, &rank, domain.SourceTopLiked)
		}
		if err != nil {
			s.logger.Error().Err(err).Str("name", entry.Name).Msg("failed to save list entry, keeping for retry")
			failed = append(failed, entry)
		}
	}

	if len(failed) > 0 {
		s.mu.Lock()
		s.pending = append(failed, s.pending...)
		s.mu.Unlock()
	}
}
