package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/normalize"
)

// SeriesRepository holds the rebuilt series_rank snapshot. The snapshot is
// replaced wholesale on rebuild and read-only in between.
type SeriesRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSeriesRepository(sqlDB *sql.DB, logger zerolog.Logger) *SeriesRepository {
	return &SeriesRepository{db: sqlDB, logger: logger}
}

// Replace swaps the whole snapshot in one transaction.
func (r *SeriesRepository) Replace(ctx context.Context, aggregates []domain.SeriesAggregate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM series_rank`); err != nil {
		return fmt.Errorf("failed to clear series snapshot: %w", err)
	}

	const query = `
	INSERT INTO series_rank (series, series_normalized, avg_meta_rank, characters_in_top, series_score, tier_score, tier)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, agg := range aggregates {
		_, err := tx.ExecContext(ctx, query,
			agg.Series, normalize.SeriesLoose(agg.Series),
			agg.AvgMetaRank, agg.CharactersInTop, agg.Score, agg.TierScore, agg.Tier,
		)
		if err != nil {
			return fmt.Errorf("failed to insert series %q: %w", agg.Series, err)
		}
	}

	return tx.Commit()
}

// GetSeriesInfo looks up one series by case-insensitive exact match on the
// raw series string. Returns nil when no snapshot row matches.
func (r *SeriesRepository) GetSeriesInfo(ctx context.Context, series string) (*domain.SeriesAggregate, error) {
	const query = `
	SELECT series, avg_meta_rank, characters_in_top, series_score, tier_score, tier
	FROM series_rank
	WHERE LOWER(series) = LOWER(?)
	LIMIT 1`

	var agg domain.SeriesAggregate
	err := r.db.QueryRowContext(ctx, query, series).Scan(
		&agg.Series, &agg.AvgMetaRank, &agg.CharactersInTop, &agg.Score, &agg.TierScore, &agg.Tier,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series %q: %w", series, err)
	}
	return &agg, nil
}

// TopSeries lists aggregates by score descending.
func (r *SeriesRepository) TopSeries(ctx context.Context, limit int) ([]domain.SeriesAggregate, error) {
	const query = `
	SELECT series, avg_meta_rank, characters_in_top, series_score, tier_score, tier
	FROM series_rank
	ORDER BY series_score DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top series: %w", err)
	}
	defer rows.Close()

	var result []domain.SeriesAggregate
	for rows.Next() {
		var agg domain.SeriesAggregate
		if err := rows.Scan(&agg.Series, &agg.AvgMetaRank, &agg.CharactersInTop, &agg.Score, &agg.TierScore, &agg.Tier); err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		result = append(result, agg)
	}
	return result, rows.Err()
}
