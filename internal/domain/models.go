package domain

import (
	"time"

	"mudae-tracker/internal/constants"
)

type SourceTag string

const (
	SourceOrganic    SourceTag = "organic"
	SourceInfoUpdate SourceTag = "im"
	SourceTopClaimed SourceTag = "top_claimed"
	SourceTopLiked   SourceTag = "top_liked"
)

// CharacterRecord is one row of the characters table. NameNormalized is the
// stable key; records are only ever updated, never deleted.
type CharacterRecord struct {
	ID               int64     `json:"id"`
	NameDisplay      string    `json:"name"`
	NameNormalized   string    `json:"name_normalized"`
	SeriesDisplay    string    `json:"series"`
	SeriesNormalized string    `json:"series_normalized"`
	KakeraValue      *int64    `json:"kakera_value"`
	ClaimRank        *int64    `json:"claim_rank"`
	LikeRank         *int64    `json:"like_rank"`
	TimesSeen        int64     `json:"times_seen"`
	DataSource       SourceTag `json:"data_source"`
	LastUpdated      time.Time `json:"last_updated"`
}

// CharacterMeta is the characters_meta projection: a record plus its computed
// meta rank (UnrankedSentinel when neither rank is known).
type CharacterMeta struct {
	CharacterRecord
	MetaRank float64 `json:"meta_rank"`
}

// ParsedCharacter is the output of the embed parser. A nil pointer from the
// parser means the embed was rejected, not an error.
type ParsedCharacter struct {
	Name        string
	Series      string
	KakeraValue *int64
	ClaimRank   *int64
	LikeRank    *int64
}

// HasStats reports whether the parse carried any value or rank data, which is
// what distinguishes an $im info embed from a bare roll.
func (p ParsedCharacter) HasStats() bool {
	return p.KakeraValue != nil || p.ClaimRank != nil || p.LikeRank != nil
}

// MergeResult is the tri-state outcome of a direct upsert.
type MergeResult string

const (
	MergeNew    MergeResult = "new"
	MergeUpdate MergeResult = "update"
	MergeSkip   MergeResult = "skip"
)

type ListKind string

const (
	ListClaimed ListKind = "claimed"
	ListLiked   ListKind = "liked"
)

// TopListEntry is one parsed line of a $top / $topl page.
type TopListEntry struct {
	Rank   int64
	Name   string
	Series string
}

// SeriesAggregate is one row of the rebuilt series_rank snapshot.
type SeriesAggregate struct {
	Series          string  `json:"series"`
	AvgMetaRank     float64 `json:"avg_meta_rank"`
	CharactersInTop int64   `json:"characters_in_top"`
	Score           float64 `json:"score"`
	TierScore       float64 `json:"tier_score"`
	Tier            string  `json:"tier"`
}

// RollAlert carries everything the notifier needs to build a DM.
type RollAlert struct {
	Name         string
	Series       string
	Tier         string
	MetaRank     *float64
	KakeraValue  *int64
	Claimed      bool
	ImageURL     string
	ThumbnailURL string
}

// NotificationRecord is one row of the notifications audit table.
type NotificationRecord struct {
	ID          string    `json:"id"`
	Character   string    `json:"character"`
	Series      string    `json:"series"`
	Tier        string    `json:"tier"`
	RecipientID string    `json:"recipient_id"`
	SentAt      time.Time `json:"sent_at"`
}

// MetaRank combines the two rank fields: average when both are known,
// whichever is known otherwise, nil when neither is.
func MetaRank(claimRank, likeRank *int64) *float64 {
	switch {
	case claimRank != nil && likeRank != nil:
		v := float64(*claimRank+*likeRank) / 2.0
		return &v
	case claimRank != nil:
		v := float64(*claimRank)
		return &v
	case likeRank != nil:
		v := float64(*likeRank)
		return &v
	default:
		return nil
	}
}

// MetaRankOrSentinel is the view variant: unranked sorts last.
func MetaRankOrSentinel(claimRank, likeRank *int64) float64 {
	if v := MetaRank(claimRank, likeRank); v != nil {
		return *v
	}
	return constants.UnrankedSentinel
}

var tierValues = map[string]int{"S": 5, "A": 4, "B": 3, "C": 2, "D": 1}

// TierValue maps a tier letter to its ordinal (S highest). Unknown tiers are 0.
func TierValue(tier string) int {
	return tierValues[tier]
}

var tierFlavors = map[string]string{
	"S": "S-TIER Series!",
	"A": "A-TIER Series!",
	"B": "B-TIER Series",
	"C": "C-TIER Series",
	"D": "D-TIER Series",
}

func TierFlavorLabel(tier string) string {
	if label, ok := tierFlavors[tier]; ok {
		return label
	}
	return "Unknown Tier"
}
