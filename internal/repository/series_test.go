package repository

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/domain"
)

func TestSeriesSnapshotRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewSeriesRepository(db, zerolog.Nop())
	ctx := context.Background()

	if info, err := repo.GetSeriesInfo(ctx, "hololive"); err != nil || info != nil {
		t.Fatalf("empty snapshot should miss, info=%v err=%v", info, err)
	}
	if top, err := repo.TopSeries(ctx, 5); err != nil || len(top) != 0 {
		t.Fatalf("empty snapshot should list nothing, top=%v err=%v", top, err)
	}

	first := []domain.SeriesAggregate{
		{Series: "Hololive", AvgMetaRank: 120, CharactersInTop: 30, Score: 900, TierScore: 100, Tier: "S"},
		{Series: "Old Series", AvgMetaRank: 4000, CharactersInTop: 1, Score: 10, TierScore: 0, Tier: "D"},
	}
	if err := repo.Replace(ctx, first); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	info, err := repo.GetSeriesInfo(ctx, "HOLOLIVE")
	if err != nil || info == nil {
		t.Fatalf("case-insensitive lookup should hit, info=%v err=%v", info, err)
	}
	if info.Tier != "S" || info.CharactersInTop != 30 {
		t.Fatalf("unexpected aggregate: %+v", info)
	}

	// A rebuild replaces the snapshot wholesale.
	second := []domain.SeriesAggregate{
		{Series: "New Series", AvgMetaRank: 50, CharactersInTop: 10, Score: 500, TierScore: 100, Tier: "S"},
	}
	if err := repo.Replace(ctx, second); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}
	if info, _ := repo.GetSeriesInfo(ctx, "Old Series"); info != nil {
		t.Fatalf("old snapshot rows should be gone, got %+v", info)
	}
	top, err := repo.TopSeries(ctx, 5)
	if err != nil || len(top) != 1 || top[0].Series != "New Series" {
		t.Fatalf("unexpected top list: %+v err=%v", top, err)
	}
}

func TestNotificationAuditLog(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db, zerolog.Nop())
	ctx := context.Background()

	err := repo.Record(ctx, domain.NotificationRecord{
		Character:   "Zero Two",
		Series:      "Darling in the Franxx",
		Tier:        "S",
		RecipientID: "1234",
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	recent, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(recent))
	}
	if recent[0].ID == "" {
		t.Fatal("an id should be generated when absent")
	}
	if recent[0].Character != "Zero Two" || recent[0].RecipientID != "1234" {
		t.Fatalf("unexpected record: %+v", recent[0])
	}
}
