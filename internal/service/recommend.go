package service

import (
	"context"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/repository"
)

// Recommender surfaces the best characters and series accumulated so far.
type Recommender struct {
	characters *repository.CharacterRepository
	series     *repository.SeriesRepository
	logger     zerolog.Logger
}

func NewRecommender(characters *repository.CharacterRepository, series *repository.SeriesRepository, logger zerolog.Logger) *Recommender {
	return &Recommender{characters: characters, series: series, logger: logger}
}

// Recommendation is a hybrid result: characters when enough rank data exists,
// series popularity otherwise.
type Recommendation struct {
	Source     string                   `json:"source"`
	Characters []domain.CharacterMeta   `json:"characters,omitempty"`
	Series     []domain.SeriesAggregate `json:"series,omitempty"`
}

// TopCharacters lists characters by ascending meta rank, falling back to the
// highest kakera values when no rank data has been collected yet.
func (r *Recommender) TopCharacters(ctx context.Context, limit int) ([]domain.CharacterMeta, error) {
	chars, err := r.characters.TopByMetaRank(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(chars) > 0 {
		return chars, nil
	}

	r.logger.Debug().Msg("no meta-ranked characters, falling back to kakera values")
	return r.characters.TopByKakera(ctx, limit)
}

// PopularSeries lists series by popularity score from the ranking snapshot.
func (r *Recommender) PopularSeries(ctx context.Context, limit int) ([]domain.SeriesAggregate, error) {
	return r.series.TopSeries(ctx, limit)
}

// Recommend prefers top characters and falls back to series popularity when
// fewer than three ranked characters are known.
func (r *Recommender) Recommend(ctx context.Context, limit int) (*Recommendation, error) {
	chars, err := r.TopCharacters(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(chars) >= 3 {
		return &Recommendation{Source: "characters", Characters: chars}, nil
	}

	r.logger.Debug().Int("characters", len(chars)).Msg("not enough characters, recommending series")
	series, err := r.PopularSeries(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &Recommendation{Source: "series", Series: series}, nil
}
