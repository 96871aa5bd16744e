package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/config"
	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/platform"
)

type fakeCharacterStore struct {
	meta        map[string]*domain.CharacterMeta
	directCalls []domain.ParsedCharacter
}

func (f *fakeCharacterStore) GetMetaView(_ context.Context, name string) (*domain.CharacterMeta, error) {
	return f.meta[strings.ToLower(name)], nil
}

func (f *fakeCharacterStore) UpsertDirect(_ context.Context, parsed domain.ParsedCharacter) (domain.MergeResult, error) {
	f.directCalls = append(f.directCalls, parsed)
	return domain.MergeUpdate, nil
}

type fakeSeriesLookup struct {
	tiers map[string]string
}

func (f *fakeSeriesLookup) GetSeriesInfo(_ context.Context, series string) (*domain.SeriesAggregate, error) {
	tier, ok := f.tiers[strings.ToLower(series)]
	if !ok {
		return nil, nil
	}
	return &domain.SeriesAggregate{Series: series, Tier: tier}, nil
}

type fakeAlerter struct {
	alerts []domain.RollAlert
}

func (f *fakeAlerter) Dispatch(_ context.Context, alert domain.RollAlert) {
	f.alerts = append(f.alerts, alert)
}

type engineFixture struct {
	engine  *Engine
	store   *fakeCharacterStore
	series  *fakeSeriesLookup
	alerter *fakeAlerter
}

func newEngineFixture(mutate func(*config.Config)) *engineFixture {
	cfg := &config.Config{
		GameBotName:       "mudae",
		OwnerIDs:          []string{"100"},
		KakeraThreshold:   100,
		MetaRankThreshold: 5000,
		DMTierThreshold:   "B",
	}
	if mutate != nil {
		mutate(cfg)
	}

	fx := &engineFixture{
		store:   &fakeCharacterStore{meta: map[string]*domain.CharacterMeta{}},
		series:  &fakeSeriesLookup{tiers: map[string]string{}},
		alerter: &fakeAlerter{},
	}
	fx.engine = NewEngine(cfg, fx.store, fx.series, nil, fx.alerter, zerolog.Nop())
	return fx
}

func gameMessage(embed platform.Embed) *platform.Message {
	return &platform.Message{
		AuthorID:   "999000",
		AuthorName: "Mudae",
		IsBot:      true,
		Embeds:     []platform.Embed{embed},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func storedMeta(name string, kakera, claimRank, likeRank *int64) *domain.CharacterMeta {
	return &domain.CharacterMeta{
		CharacterRecord: domain.CharacterRecord{
			NameDisplay: name,
			KakeraValue: kakera,
			ClaimRank:   claimRank,
			LikeRank:    likeRank,
		},
		MetaRank: domain.MetaRankOrSentinel(claimRank, likeRank),
	}
}

func TestClaimedRollAlwaysEligible(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)
	fx.store.meta["rem"] = storedMeta("Rem", int64Ptr(50), nil, nil)

	fx.engine.HandleMessage(context.Background(), gameMessage(platform.Embed{
		AuthorLine:  "Rem",
		Description: "Re:Zero\nBelongs to Collector",
	}))

	if len(fx.alerter.alerts) != 1 {
		t.Fatalf("a claimed roll must notify even below the kakera threshold, got %d alerts", len(fx.alerter.alerts))
	}
	alert := fx.alerter.alerts[0]
	if !alert.Claimed {
		t.Fatal("alert should be flagged as claimed")
	}
	if alert.KakeraValue == nil || *alert.KakeraValue != 50 {
		t.Fatalf("stored kakera should fill the alert, got %+v", alert.KakeraValue)
	}
	if len(fx.store.directCalls) != 0 {
		t.Fatal("rolls must never write to the store")
	}
}

func TestClaimedAccentColorDetected(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)

	fx.engine.HandleMessage(context.Background(), gameMessage(platform.Embed{
		AuthorLine:  "Rem",
		Description: "Re:Zero\nReact with any emoji to claim!",
		AccentColor: 0xF47FF5,
	}))

	if len(fx.alerter.alerts) != 1 {
		t.Fatalf("the claimed accent color must force eligibility, got %d alerts", len(fx.alerter.alerts))
	}
	if !fx.alerter.alerts[0].Claimed {
		t.Fatal("alert should be flagged as claimed")
	}
}

func TestInfoUpdateNeverNotifies(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)

	fx.engine.HandleMessage(context.Background(), gameMessage(platform.Embed{
		AuthorLine:  "Rem",
		Description: "Re:Zero\nClaim Rank: #12\nLike Rank: #34\n6,000💎",
	}))

	if len(fx.store.directCalls) != 1 {
		t.Fatalf("an info embed should write through the direct merge, got %d calls", len(fx.store.directCalls))
	}
	parsed := fx.store.directCalls[0]
	if parsed.ClaimRank == nil || *parsed.ClaimRank != 12 {
		t.Fatalf("claim rank should survive the parse: %+v", parsed.ClaimRank)
	}
	if parsed.KakeraValue == nil || *parsed.KakeraValue != 6000 {
		t.Fatalf("kakera value should survive the parse: %+v", parsed.KakeraValue)
	}
	if len(fx.alerter.alerts) != 0 {
		t.Fatal("info updates must never dispatch a notification")
	}
}

func TestUnknownRollNotEligible(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)

	// No stored history, no series tier, no inline value.
	fx.engine.HandleMessage(context.Background(), gameMessage(platform.Embed{
		AuthorLine:  "Mystery Girl",
		Description: "Some Obscure Show\nReact with any emoji to claim!",
	}))

	if len(fx.alerter.alerts) != 0 {
		t.Fatal("unknown value, unknown meta rank and unknown tier must not notify")
	}
}

func TestKakeraFloorOverridesMetaRank(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)
	// Excellent meta rank, but a known value below the floor.
	fx.store.meta["rem"] = storedMeta("Rem", int64Ptr(50), int64Ptr(10), int64Ptr(20))

	fx.engine.HandleMessage(context.Background(), gameMessage(platform.Embed{
		AuthorLine:  "Rem",
		Description: "Re:Zero\nReact with any emoji to claim!",
	}))

	if len(fx.alerter.alerts) != 0 {
		t.Fatal("a known kakera value below the threshold is a hard floor")
	}
}

func TestMetaRankAloneQualifies(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)
	fx.store.meta["rem"] = storedMeta("Rem", nil, int64Ptr(100), int64Ptr(200))

	fx.engine.HandleMessage(context.Background(), gameMessage(platform.Embed{
		AuthorLine:  "Rem",
		Description: "Re:Zero\nReact with any emoji to claim!",
	}))

	if len(fx.alerter.alerts) != 1 {
		t.Fatalf("a meta rank inside the threshold should qualify, got %d alerts", len(fx.alerter.alerts))
	}
	alert := fx.alerter.alerts[0]
	if alert.MetaRank == nil || *alert.MetaRank != 150 {
		t.Fatalf("alert should carry the averaged meta rank, got %+v", alert.MetaRank)
	}
}

func TestSeriesTierAloneQualifies(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)
	fx.series.tiers["re:zero"] = "S"

	fx.engine.HandleMessage(context.Background(), gameMessage(platform.Embed{
		AuthorLine:  "Mystery Girl",
		Description: "Re:Zero\nReact with any emoji to claim!",
	}))

	if len(fx.alerter.alerts) != 1 {
		t.Fatalf("an S-tier series should qualify on its own, got %d alerts", len(fx.alerter.alerts))
	}
	if fx.alerter.alerts[0].Tier != "S" {
		t.Fatalf("alert should carry the series tier, got %q", fx.alerter.alerts[0].Tier)
	}
}

func TestUtilityCommandShortCircuits(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)

	msg := gameMessage(platform.Embed{
		AuthorLine:  "Rem",
		Description: "Re:Zero\nClaim Rank: #12\nLike Rank: #34",
	})
	msg.TextContent = "$tu remaining rolls"
	fx.engine.HandleMessage(context.Background(), msg)

	if len(fx.store.directCalls) != 0 {
		t.Fatal("utility responses must be dropped before the info-update rule")
	}
	if len(fx.alerter.alerts) != 0 {
		t.Fatal("utility responses must never notify")
	}
}

func TestNonGameMessagesIgnored(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)

	fx.engine.HandleMessage(context.Background(), &platform.Message{
		AuthorID:    "42",
		AuthorName:  "SomeHuman",
		TextContent: "hello there",
	})

	if len(fx.alerter.alerts) != 0 || len(fx.store.directCalls) != 0 {
		t.Fatal("plain chat must not reach the store or the alerter")
	}
}

func TestOwnerRollArmsAndSpendsContext(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(func(cfg *config.Config) {
		cfg.OwnerOnlyDM = true
	})
	fx.series.tiers["some show"] = "S"
	ctx := context.Background()

	fx.engine.HandleMessage(ctx, &platform.Message{
		AuthorID:    "100",
		AuthorName:  "Collector",
		TextContent: "$wa",
	})
	if got := fx.engine.LastRoller(); got != "collector" {
		t.Fatalf("owner roll command should arm the roll context, got %q", got)
	}

	fx.engine.HandleMessage(ctx, gameMessage(platform.Embed{
		AuthorLine:  "Mystery Girl",
		Description: "Some Show\nCollector",
	}))

	if len(fx.alerter.alerts) != 1 {
		t.Fatalf("the tracked owner's roll should notify, got %d alerts", len(fx.alerter.alerts))
	}
	if got := fx.engine.LastRoller(); got != "" {
		t.Fatalf("the roll context must be spent by the evaluation, got %q", got)
	}
}

func TestOwnerOnlyGateBlocksUntrackedRolls(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(func(cfg *config.Config) {
		cfg.OwnerOnlyDM = true
	})
	fx.series.tiers["re:zero"] = "S"

	// Eligible on its own merits, but no roll context is armed.
	fx.engine.HandleMessage(context.Background(), gameMessage(platform.Embed{
		AuthorLine:  "Rem",
		Description: "Re:Zero\nReact with any emoji to claim!",
	}))

	if len(fx.alerter.alerts) != 0 {
		t.Fatal("owner-only mode must drop rolls with no tracked roller")
	}
}

func TestNonOwnerRollCommandDoesNotArm(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(nil)

	fx.engine.HandleMessage(context.Background(), &platform.Message{
		AuthorID:    "555",
		AuthorName:  "Stranger",
		TextContent: "$wa",
	})

	if got := fx.engine.LastRoller(); got != "" {
		t.Fatalf("a non-owner roll command must not arm the context, got %q", got)
	}
}
