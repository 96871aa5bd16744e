package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/config"
	"mudae-tracker/internal/constants"
	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/parser"
	"mudae-tracker/internal/platform"
)

// Prefixes an owner types to roll; seeing one arms the roll context.
var rollCommands = []string{"$wa", "$wg", "$ha", "$hg", "$ma", "$mg", "$mx", "$waifu"}

// Utility commands whose responses are never character embeds.
var utilityCommands = []string{"$top", "$mm", "$tu", "$help", "$info", "$note", "$bonus", "$dk", "$rt"}

// Textual markers of a claimed roll. The extended set also catches the claim
// confirmation embeds.
var (
	claimedMarkers         = []string{"belongs to", "is married to", "claimed by"}
	claimedMarkersExtended = []string{"belongs to", "is married to", "claimed by", "has claimed", "💍"}
	newRollMarkers         = []string{"react with any emoji to claim"}
)

// CharacterStore is the store surface the engine needs: a read-only meta view
// for rolls and the direct-update write path for info embeds.
type CharacterStore interface {
	GetMetaView(ctx context.Context, name string) (*domain.CharacterMeta, error)
	UpsertDirect(ctx context.Context, parsed domain.ParsedCharacter) (domain.MergeResult, error)
}

// SeriesLookup resolves a series against the last-built ranking snapshot.
type SeriesLookup interface {
	GetSeriesInfo(ctx context.Context, series string) (*domain.SeriesAggregate, error)
}

// Alerter dispatches one notification per configured recipient; failures are
// handled inside and never surface to the engine.
type Alerter interface {
	Dispatch(ctx context.Context, alert domain.RollAlert)
}

// Engine classifies every incoming message and decides whether it warrants a
// notification. Classification is an ordered rule list: each rule either
// terminates processing or passes the event on, and the order encodes the
// precedence between message kinds.
type Engine struct {
	cfg     *config.Config
	store   CharacterStore
	series  SeriesLookup
	scraper *ListScraper
	alerter Alerter
	logger  zerolog.Logger

	rules []rule

	// mu guards the cross-message roll context.
	mu         sync.Mutex
	lastRoller string
}

type ruleResult int

const (
	ruleContinue ruleResult = iota
	ruleStop
)

type rule struct {
	name string
	eval func(ctx context.Context, ev *rollEvent) ruleResult
}

// rollEvent is the per-message decision state.
type rollEvent struct {
	msg   *platform.Message
	embed *platform.Embed

	contentLower string
	titleLower   string
	descLower    string
	footerLower  string

	parsed  *domain.ParsedCharacter
	claimed bool
}

func NewEngine(cfg *config.Config, store CharacterStore, series SeriesLookup, scraper *ListScraper, alerter Alerter, logger zerolog.Logger) *Engine {
	e := &Engine{
		cfg:     cfg,
		store:   store,
		series:  series,
		scraper: scraper,
		alerter: alerter,
		logger:  logger,
	}
	e.rules = []rule{
		{"track-owner-roll", e.trackOwnerRoll},
		{"require-game-embed", e.requireGameEmbed},
		{"skip-utility", e.skipUtility},
		{"route-scrape", e.routeScrape},
		{"info-update", e.infoUpdate},
		{"require-roll-pattern", e.requireRollPattern},
		{"evaluate-roll", e.evaluateRoll},
	}
	return e
}

// HandleMessage runs the rule list over one delivered message.
func (e *Engine) HandleMessage(ctx context.Context, msg *platform.Message) {
	ev := &rollEvent{
		msg:          msg,
		embed:        msg.FirstEmbed(),
		contentLower: strings.ToLower(msg.TextContent),
	}
	if ev.embed != nil {
		ev.titleLower = strings.ToLower(ev.embed.Title)
		ev.descLower = strings.ToLower(ev.embed.Description)
		ev.footerLower = strings.ToLower(ev.embed.FooterText)
	}

	for _, r := range e.rules {
		if r.eval(ctx, ev) == ruleStop {
			e.logger.Debug().Str("rule", r.name).Msg("message classified")
			return
		}
	}
}

// trackOwnerRoll arms the roll context when a privileged user issues a roll
// command, so the following embed can be correlated with its roller.
func (e *Engine) trackOwnerRoll(_ context.Context, ev *rollEvent) ruleResult {
	if !e.isOwner(ev.msg.AuthorID) {
		return ruleContinue
	}
	for _, cmd := range rollCommands {
		if strings.Contains(ev.contentLower, cmd) {
			roller := strings.ToLower(strings.TrimSpace(ev.msg.AuthorName))
			e.mu.Lock()
			e.lastRoller = roller
			e.mu.Unlock()
			e.logger.Info().Str("roller", roller).Str("command", ev.msg.TextContent).Msg("owner roll tracked, awaiting embed")
			return ruleStop
		}
	}
	return ruleContinue
}

func (e *Engine) requireGameEmbed(_ context.Context, ev *rollEvent) ruleResult {
	authorLower := strings.ToLower(ev.msg.AuthorName)
	if !strings.Contains(authorLower, e.cfg.GameBotName) || ev.embed == nil {
		return ruleStop
	}
	return ruleContinue
}

func (e *Engine) skipUtility(_ context.Context, ev *rollEvent) ruleResult {
	for _, cmd := range utilityCommands {
		if strings.HasPrefix(ev.contentLower, cmd) {
			return ruleStop
		}
	}
	return ruleContinue
}

// routeScrape hands list embeds to an active scrape session.
func (e *Engine) routeScrape(ctx context.Context, ev *rollEvent) ruleResult {
	if e.scraper == nil || !e.scraper.Active() {
		return ruleContinue
	}
	e.scraper.HandleListEmbed(ctx, ev.embed)
	return ruleStop
}

// infoUpdate recognizes $im responses by their data: any parsed value or rank
// marks the embed as an info update, which is written through the direct
// merge and never notified.
func (e *Engine) infoUpdate(ctx context.Context, ev *rollEvent) ruleResult {
	ev.parsed = parser.ParseCharacterEmbed(ev.embed)
	if ev.parsed == nil || !ev.parsed.HasStats() {
		return ruleContinue
	}

	result, err := e.store.UpsertDirect(ctx, *ev.parsed)
	if err != nil {
		// Write lost; the next organic observation retries naturally.
		e.logger.Error().Err(err).Str("name", ev.parsed.Name).Msg("info update write failed")
		return ruleStop
	}

	e.logger.Info().
		Str("result", string(result)).
		Str("name", ev.parsed.Name).
		Str("series", ev.parsed.Series).
		Msg("info update merged, skipping notification")
	return ruleStop
}

// requireRollPattern keeps only embeds that look like a roll or claim: a
// claimed marker, a fresh-roll marker, or the tracked roller's name in the
// embed text.
func (e *Engine) requireRollPattern(_ context.Context, ev *rollEvent) ruleResult {
	for _, marker := range claimedMarkers {
		if strings.Contains(ev.descLower, marker) || strings.Contains(ev.footerLower, marker) {
			ev.claimed = true
			return ruleContinue
		}
	}
	for _, marker := range newRollMarkers {
		if strings.Contains(ev.descLower, marker) {
			return ruleContinue
		}
	}

	e.mu.Lock()
	roller := e.lastRoller
	e.mu.Unlock()
	if roller != "" && (strings.Contains(ev.descLower, roller) || strings.Contains(ev.footerLower, roller)) {
		return ruleContinue
	}
	return ruleStop
}

// evaluateRoll is the terminal rule: merge the parse with stored history,
// compute eligibility and dispatch.
func (e *Engine) evaluateRoll(ctx context.Context, ev *rollEvent) ruleResult {
	name, series := "Unknown", "Unknown"
	parsed := domain.ParsedCharacter{}
	if ev.parsed != nil {
		parsed = *ev.parsed
		name, series = parsed.Name, parsed.Series
	}

	// Read-only merge: parsed fields win, stored history fills the gaps.
	// Rolls never write to the store.
	stored, err := e.store.GetMetaView(ctx, name)
	if err != nil {
		e.logger.Warn().Err(err).Str("name", name).Msg("store read failed, proceeding without history")
		stored = nil
	}
	kakera := parsed.KakeraValue
	claimRank := parsed.ClaimRank
	likeRank := parsed.LikeRank
	if stored != nil {
		if kakera == nil {
			kakera = stored.KakeraValue
		}
		if claimRank == nil {
			claimRank = stored.ClaimRank
		}
		if likeRank == nil {
			likeRank = stored.LikeRank
		}
	}
	metaRank := domain.MetaRank(claimRank, likeRank)

	claimed := ev.claimed || e.detectClaimed(ev)
	eligible, tier, reasons := e.decide(ctx, series, kakera, metaRank, claimed)

	logEvent := e.logger.Info().
		Str("name", name).
		Str("series", series).
		Str("tier", tier).
		Bool("claimed", claimed).
		Bool("eligible", eligible)
	if metaRank != nil {
		logEvent = logEvent.Float64("meta_rank", *metaRank)
	}
	if kakera != nil {
		logEvent = logEvent.Int64("kakera", *kakera)
	}
	logEvent.Strs("reasons", reasons).Msg("roll evaluated")

	// Owner-only gating: the roll must belong to the tracked owner roller.
	// The roll context is spent by this check either way.
	e.mu.Lock()
	roller := e.lastRoller
	e.lastRoller = ""
	e.mu.Unlock()
	if e.cfg.OwnerOnlyDM {
		ownerRoll := roller != "" && strings.Contains(ev.descLower+ev.footerLower, roller)
		if !ownerRoll {
			e.logger.Debug().Msg("non-owner roll ignored in owner-only mode")
			return ruleStop
		}
	}

	if !eligible {
		return ruleStop
	}

	e.alerter.Dispatch(ctx, domain.RollAlert{
		Name:         name,
		Series:       series,
		Tier:         tier,
		MetaRank:     metaRank,
		KakeraValue:  kakera,
		Claimed:      claimed,
		ImageURL:     ev.embed.ImageURL,
		ThumbnailURL: ev.embed.ThumbnailURL,
	})
	return ruleStop
}

// detectClaimed checks the extended marker set across title, description and
// footer, plus the accent color the game uses for claimed embeds.
func (e *Engine) detectClaimed(ev *rollEvent) bool {
	for _, marker := range claimedMarkersExtended {
		if strings.Contains(ev.descLower, marker) ||
			strings.Contains(ev.footerLower, marker) ||
			strings.Contains(ev.titleLower, marker) {
			return true
		}
	}
	color := ev.embed.AccentColor
	return color >= constants.ClaimedColorMin && color <= constants.ClaimedColorMax
}

// decide computes notification eligibility. A claimed roll is always
// eligible. Otherwise a known kakera value below the threshold is a hard
// floor; past it, a good meta rank, a high-enough series tier or a high
// kakera value each suffice.
func (e *Engine) decide(ctx context.Context, series string, kakera *int64, metaRank *float64, claimed bool) (bool, string, []string) {
	tier := "Unknown"
	if claimed {
		return true, e.lookupTier(ctx, series), nil
	}

	var reasons []string
	if kakera != nil && *kakera < e.cfg.KakeraThreshold {
		reasons = append(reasons, fmt.Sprintf("kakera too low (%d < %d)", *kakera, e.cfg.KakeraThreshold))
		return false, tier, reasons
	}

	metaOK := metaRank != nil && *metaRank <= float64(e.cfg.MetaRankThreshold)
	kakeraOK := kakera != nil && *kakera >= e.cfg.KakeraThreshold

	tier = e.lookupTier(ctx, series)
	tierOK := domain.TierValue(tier) >= domain.TierValue(e.cfg.DMTierThreshold)

	if !metaOK {
		reasons = append(reasons, fmt.Sprintf("meta rank above %d", e.cfg.MetaRankThreshold))
	}
	if !tierOK {
		reasons = append(reasons, fmt.Sprintf("series tier %s below %s", tier, e.cfg.DMTierThreshold))
	}
	if !kakeraOK {
		reasons = append(reasons, fmt.Sprintf("kakera below %d", e.cfg.KakeraThreshold))
	}

	return metaOK || tierOK || kakeraOK, tier, reasons
}

func (e *Engine) lookupTier(ctx context.Context, series string) string {
	info, err := e.series.GetSeriesInfo(ctx, series)
	if err != nil {
		e.logger.Warn().Err(err).Str("series", series).Msg("series lookup failed")
		return "Unknown"
	}
	if info == nil {
		return "Unknown"
	}
	return info.Tier
}

func (e *Engine) isOwner(authorID string) bool {
	for _, id := range e.cfg.OwnerIDs {
		if id == authorID {
			return true
		}
	}
	return false
}

// LastRoller exposes the tracked roll context for the control surface.
func (e *Engine) LastRoller() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRoller
}
