package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/platform"
)

type importCall struct {
	entry     domain.TopListEntry
	claimRank *int64
	likeRank  *int64
	source    domain.SourceTag
}

type fakeImportStore struct {
	calls []importCall
	fail  bool
}

func (f *fakeImportStore) UpsertImport(_ context.Context, entry domain.TopListEntry, _, claimRank, likeRank *int64, source domain.SourceTag) error {
	if f.fail {
		return errors.New("store unavailable")
	}
	f.calls = append(f.calls, importCall{entry: entry, claimRank: claimRank, likeRank: likeRank, source: source})
	return nil
}

func listEmbed(page int, lines string) *platform.Embed {
	return &platform.Embed{
		Title:       "Top Characters",
		Description: lines,
		FooterText:  fmt.Sprintf("Page %d / 9", page),
	}
}

func TestScraperPageGate(t *testing.T) {
	t.Parallel()

	store := &fakeImportStore{}
	scraper := NewListScraper(store, zerolog.Nop())
	ctx := context.Background()

	if err := scraper.Start(domain.ListClaimed, 9); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := scraper.Start(domain.ListClaimed, 9); !errors.Is(err, ErrScrapeActive) {
		t.Fatalf("second start should be rejected, got %v", err)
	}

	scraper.SetExpectedPage(5)

	// A stale page is skipped and the expectation stays armed.
	if scraper.HandleListEmbed(ctx, listEmbed(3, "#1 - Rem - Re:Zero")) {
		t.Fatal("page 3 should be skipped while page 5 is expected")
	}
	if len(store.calls) != 0 {
		t.Fatalf("no entries should be flushed on a skipped page, got %d", len(store.calls))
	}
	status := scraper.Status()
	if status.ExpectedPage == nil || *status.ExpectedPage != 5 {
		t.Fatalf("expectation should stay armed, got %+v", status)
	}

	// The expected page clears the gate and flushes its entries.
	if !scraper.HandleListEmbed(ctx, listEmbed(5, "#41 - Rem - Re:Zero\n#42 - Emilia - Re:Zero")) {
		t.Fatal("page 5 should be accepted")
	}
	status = scraper.Status()
	if status.ExpectedPage != nil {
		t.Fatal("expectation should be consumed by the matching page")
	}
	if len(store.calls) != 2 {
		t.Fatalf("expected 2 flushed entries, got %d", len(store.calls))
	}
	if store.calls[0].claimRank == nil || *store.calls[0].claimRank != 41 {
		t.Fatalf("claimed list entries fill the claim rank slot: %+v", store.calls[0])
	}
	if store.calls[0].likeRank != nil {
		t.Fatal("claimed list entries must not touch the like rank slot")
	}
	if store.calls[0].source != domain.SourceTopClaimed {
		t.Fatalf("unexpected source tag: %q", store.calls[0].source)
	}

	if saved := scraper.Complete(ctx); saved != 2 {
		t.Fatalf("complete should report collected entries, got %d", saved)
	}
	if scraper.Active() {
		t.Fatal("session should be idle after complete")
	}
}

func TestScraperLikedListFillsLikeSlot(t *testing.T) {
	t.Parallel()

	store := &fakeImportStore{}
	scraper := NewListScraper(store, zerolog.Nop())
	ctx := context.Background()

	if err := scraper.Start(domain.ListLiked, 9); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	scraper.HandleListEmbed(ctx, listEmbed(1, "#1 - Miku - Vocaloid"))

	if len(store.calls) != 1 {
		t.Fatalf("expected 1 flushed entry, got %d", len(store.calls))
	}
	if store.calls[0].likeRank == nil || *store.calls[0].likeRank != 1 {
		t.Fatalf("liked list entries fill the like rank slot: %+v", store.calls[0])
	}
	if store.calls[0].claimRank != nil {
		t.Fatal("liked list entries must not touch the claim rank slot")
	}
	scraper.Complete(ctx)
}

func TestScraperKeepsFailedEntries(t *testing.T) {
	t.Parallel()

	store := &fakeImportStore{fail: true}
	scraper := NewListScraper(store, zerolog.Nop())
	ctx := context.Background()

	if err := scraper.Start(domain.ListClaimed, 9); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	scraper.HandleListEmbed(ctx, listEmbed(1, "#1 - Rem - Re:Zero"))

	if status := scraper.Status(); status.Pending != 1 {
		t.Fatalf("failed entries should stay pending for retry, got %+v", status)
	}

	// Once the store recovers, Complete flushes the remainder.
	store.fail = false
	scraper.Complete(ctx)
	if len(store.calls) != 1 {
		t.Fatalf("expected the retried entry to be flushed, got %d", len(store.calls))
	}
	if scraper.Active() {
		t.Fatal("session should be idle after complete")
	}
}

func TestScraperInactiveIgnoresEmbeds(t *testing.T) {
	t.Parallel()

	store := &fakeImportStore{}
	scraper := NewListScraper(store, zerolog.Nop())

	if scraper.HandleListEmbed(context.Background(), listEmbed(1, "#1 - Rem - Re:Zero")) {
		t.Fatal("an idle scraper should ignore list embeds")
	}
}
