package service

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/constants"
	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/repository"
)

// SeriesScorer rebuilds the series_rank snapshot from the accumulated
// character records. The rebuild is idempotent and safe to run at any time;
// readers see the previous snapshot until Replace commits.
type SeriesScorer struct {
	characters *repository.CharacterRepository
	series     *repository.SeriesRepository
	logger     zerolog.Logger
}

func NewSeriesScorer(characters *repository.CharacterRepository, series *repository.SeriesRepository, logger zerolog.Logger) *SeriesScorer {
	return &SeriesScorer{characters: characters, series: series, logger: logger}
}

// Rebuild recomputes every series aggregate from the top meta-ranked
// characters and swaps the snapshot. Returns the number of series scored.
func (s *SeriesScorer) Rebuild(ctx context.Context) (int, error) {
	rows, err := s.characters.TopRankedForScoring(ctx, constants.TopCharacterLimit)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		s.logger.Warn().Msg("no fully ranked characters, skipping series rank rebuild")
		return 0, nil
	}

	aggregates := scoreSeries(rows)
	if err := s.series.Replace(ctx, aggregates); err != nil {
		return 0, err
	}

	s.logger.Info().
		Int("characters", len(rows)).
		Int("series", len(aggregates)).
		Msg("series ranking rebuilt")
	return len(aggregates), nil
}

// scoreSeries groups ranked characters by normalized series and derives the
// score, the 0-100 normalized tier score and the quantile-relative tier.
// Tiers partition the scored batch at its 90/75/50/25 percentiles, so a tier
// is only meaningful relative to the snapshot it was computed in.
func scoreSeries(rows []domain.CharacterMeta) []domain.SeriesAggregate {
	type group struct {
		display string
		sum     float64
		count   int64
	}

	groups := make(map[string]*group)
	var order []string
	for _, row := range rows {
		key := row.SeriesNormalized
		g, ok := groups[key]
		if !ok {
			g = &group{display: row.SeriesDisplay}
			groups[key] = g
			order = append(order, key)
		}
		g.sum += row.MetaRank
		g.count++
	}

	aggregates := make([]domain.SeriesAggregate, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		avg := g.sum / float64(g.count)
		score := (1/avg)*constants.ScoreRankWeight +
			math.Pow(float64(g.count), constants.ScoreCountExponent)*constants.ScoreCountWeight
		aggregates = append(aggregates, domain.SeriesAggregate{
			Series:          g.display,
			AvgMetaRank:     avg,
			CharactersInTop: g.count,
			Score:           score,
		})
	}

	// Min-max normalize to 0-100. A single-series batch pins to 100.
	minScore, maxScore := aggregates[0].Score, aggregates[0].Score
	for _, agg := range aggregates[1:] {
		minScore = math.Min(minScore, agg.Score)
		maxScore = math.Max(maxScore, agg.Score)
	}
	for i := range aggregates {
		if maxScore > minScore {
			aggregates[i].TierScore = 100 * (aggregates[i].Score - minScore) / (maxScore - minScore)
		} else {
			aggregates[i].TierScore = 100
		}
	}

	tierScores := make([]float64, len(aggregates))
	for i, agg := range aggregates {
		tierScores[i] = agg.TierScore
	}
	sort.Float64s(tierScores)

	q90 := quantile(tierScores, 0.90)
	q75 := quantile(tierScores, 0.75)
	q50 := quantile(tierScores, 0.50)
	q25 := quantile(tierScores, 0.25)

	for i := range aggregates {
		switch ts := aggregates[i].TierScore; {
		case ts >= q90:
			aggregates[i].Tier = "S"
		case ts >= q75:
			aggregates[i].Tier = "A"
		case ts >= q50:
			aggregates[i].Tier = "B"
		case ts >= q25:
			aggregates[i].Tier = "C"
		default:
			aggregates[i].Tier = "D"
		}
	}

	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].Score > aggregates[j].Score
	})
	return aggregates
}

// quantile interpolates linearly between the two nearest order statistics.
// The input must be sorted ascending and non-empty.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
