package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/normalize"
)

type CharacterRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewCharacterRepository(sqlDB *sql.DB, logger zerolog.Logger) *CharacterRepository {
	return &CharacterRepository{db: sqlDB, logger: logger}
}

// UpsertImport merges a bulk/ranked-list observation keyed on the normalized
// name. Display fields overwrite only when non-empty, the kakera value only
// ever goes up, and a rank slot takes the incoming value when present and
// keeps the stored one otherwise.
func (r *CharacterRepository) UpsertImport(ctx context.Context, entry domain.TopListEntry, kakeraValue, claimRank, likeRank *int64, source domain.SourceTag) error {
	nameNorm := normalize.Name(entry.Name)
	if nameNorm == "" {
		r.logger.Warn().Str("name", entry.Name).Msg("skipping import upsert: empty normalized name")
		return nil
	}

	const query = `
	INSERT INTO characters (
	    name_display, name_normalized, series_display, series_normalized,
	    kakera_value, claim_rank, like_rank, times_seen, data_source
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
	ON CONFLICT(name_normalized)
	DO UPDATE SET
	    name_display = excluded.name_display,
	    series_display = COALESCE(NULLIF(excluded.series_display, ''), characters.series_display),
	    series_normalized = CASE
	        WHEN NULLIF(excluded.series_display, '') IS NOT NULL THEN excluded.series_normalized
	        ELSE characters.series_normalized END,
	    kakera_value = CASE
	        WHEN excluded.kakera_value IS NOT NULL
	             AND (characters.kakera_value IS NULL OR excluded.kakera_value > characters.kakera_value)
	        THEN excluded.kakera_value
	        ELSE characters.kakera_value END,
	    claim_rank = COALESCE(excluded.claim_rank, characters.claim_rank),
	    like_rank = COALESCE(excluded.like_rank, characters.like_rank),
	    times_seen = characters.times_seen + 1,
	    data_source = excluded.data_source,
	    last_updated = CURRENT_TIMESTAMP`

	_, err := r.db.ExecContext(ctx, query,
		entry.Name, nameNorm, entry.Series, normalize.SeriesLoose(entry.Series),
		nullInt(kakeraValue), nullInt(claimRank), nullInt(likeRank), string(source),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert imported character %q: %w", entry.Name, err)
	}
	return nil
}

// UpsertDirect merges a live info-update observation: every field overwrites
// the stored value, latest observation wins. The tri-state result tells the
// caller whether a row was created, updated, or skipped entirely.
func (r *CharacterRepository) UpsertDirect(ctx context.Context, parsed domain.ParsedCharacter) (domain.MergeResult, error) {
	nameNorm := normalize.Name(parsed.Name)
	if nameNorm == "" {
		r.logger.Warn().Str("name", parsed.Name).Msg("skipping direct upsert: empty normalized name")
		return domain.MergeSkip, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM characters WHERE name_normalized = ?)`, nameNorm,
	).Scan(&exists)
	if err != nil {
		return domain.MergeSkip, fmt.Errorf("failed to check character existence: %w", err)
	}

	const query = `
	INSERT INTO characters (
	    name_display, name_normalized, series_display, series_normalized,
	    kakera_value, claim_rank, like_rank, times_seen, data_source
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
	ON CONFLICT(name_normalized)
	DO UPDATE SET
	    name_display = excluded.name_display,
	    series_display = excluded.series_display,
	    series_normalized = excluded.series_normalized,
	    kakera_value = excluded.kakera_value,
	    claim_rank = excluded.claim_rank,
	    like_rank = excluded.like_rank,
	    times_seen = characters.times_seen + 1,
	    data_source = excluded.data_source,
	    last_updated = CURRENT_TIMESTAMP`

	_, err = r.db.ExecContext(ctx, query,
		parsed.Name, nameNorm, parsed.Series, normalize.SeriesLoose(parsed.Series),
		nullInt(parsed.KakeraValue), nullInt(parsed.ClaimRank), nullInt(parsed.LikeRank),
		string(domain.SourceInfoUpdate),
	)
	if err != nil {
		return domain.MergeSkip, fmt.Errorf("failed to upsert character %q: %w", parsed.Name, err)
	}

	if exists {
		return domain.MergeUpdate, nil
	}
	return domain.MergeNew, nil
}

// GetByName looks up a record by normalized name, optionally narrowing by a
// case-insensitive series match. Read-only; returns nil when absent.
func (r *CharacterRepository) GetByName(ctx context.Context, name, series string) (*domain.CharacterRecord, error) {
	nameNorm := normalize.Name(name)
	if nameNorm == "" {
		return nil, nil
	}

	query := `
	SELECT id, name_display, name_normalized, series_display, series_normalized,
	       kakera_value, claim_rank, like_rank, times_seen, data_source, last_updated
	FROM characters
	WHERE name_normalized = ?`
	args := []any{nameNorm}
	if series != "" {
		query += ` AND LOWER(series_display) = LOWER(?)`
		args = append(args, series)
	}
	query += ` LIMIT 1`

	var rec domain.CharacterRecord
	var kakera, claim, like sql.NullInt64
	var source string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.NameDisplay, &rec.NameNormalized, &rec.SeriesDisplay, &rec.SeriesNormalized,
		&kakera, &claim, &like, &rec.TimesSeen, &source, &rec.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character %q: %w", name, err)
	}

	rec.KakeraValue = intPtr(kakera)
	rec.ClaimRank = intPtr(claim)
	rec.LikeRank = intPtr(like)
	rec.DataSource = domain.SourceTag(source)
	return &rec, nil
}

// GetMetaView reads the characters_meta projection for one name.
func (r *CharacterRepository) GetMetaView(ctx context.Context, name string) (*domain.CharacterMeta, error) {
	nameNorm := normalize.Name(name)
	if nameNorm == "" {
		return nil, nil
	}

	const query = `
	SELECT id, name_display, name_normalized, series_display, series_normalized,
	       kakera_value, claim_rank, like_rank, times_seen, data_source, last_updated, meta_rank
	FROM characters_meta
	WHERE name_normalized = ?
	LIMIT 1`

	var meta domain.CharacterMeta
	var kakera, claim, like sql.NullInt64
	var source string
	err := r.db.QueryRowContext(ctx, query, nameNorm).Scan(
		&meta.ID, &meta.NameDisplay, &meta.NameNormalized, &meta.SeriesDisplay, &meta.SeriesNormalized,
		&kakera, &claim, &like, &meta.TimesSeen, &source, &meta.LastUpdated, &meta.MetaRank,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character meta %q: %w", name, err)
	}

	meta.KakeraValue = intPtr(kakera)
	meta.ClaimRank = intPtr(claim)
	meta.LikeRank = intPtr(like)
	meta.DataSource = domain.SourceTag(source)
	return &meta, nil
}

// TopRankedForScoring is the scorer's bulk read: records with both rank slots
// filled and a non-empty series, ascending by meta rank.
func (r *CharacterRepository) TopRankedForScoring(ctx context.Context, limit int) ([]domain.CharacterMeta, error) {
	const query = `
	SELECT name_display, series_display, series_normalized, claim_rank, like_rank, meta_rank
	FROM characters_meta
	WHERE claim_rank IS NOT NULL
	  AND like_rank IS NOT NULL
	  AND TRIM(series_display) != ''
	ORDER BY meta_rank ASC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranked characters: %w", err)
	}
	defer rows.Close()

	var result []domain.CharacterMeta
	for rows.Next() {
		var meta domain.CharacterMeta
		var claim, like sql.NullInt64
		if err := rows.Scan(&meta.NameDisplay, &meta.SeriesDisplay, &meta.SeriesNormalized, &claim, &like, &meta.MetaRank); err != nil {
			return nil, fmt.Errorf("failed to scan ranked character: %w", err)
		}
		meta.ClaimRank = intPtr(claim)
		meta.LikeRank = intPtr(like)
		result = append(result, meta)
	}
	return result, rows.Err()
}

// TopByMetaRank lists the best ranked characters for the recommender.
func (r *CharacterRepository) TopByMetaRank(ctx context.Context, limit int) ([]domain.CharacterMeta, error) {
	const query = `
	SELECT name_display, series_display, kakera_value, meta_rank
	FROM characters_meta
	WHERE meta_rank < 9999
	ORDER BY meta_rank ASC
	LIMIT ?`
	return r.queryMetaList(ctx, query, limit)
}

// TopByKakera is the recommender fallback when no rank data exists yet.
func (r *CharacterRepository) TopByKakera(ctx context.Context, limit int) ([]domain.CharacterMeta, error) {
	const query = `
	SELECT name_display, series_display, kakera_value, meta_rank
	FROM characters_meta
	WHERE kakera_value IS NOT NULL
	ORDER BY kakera_value DESC
	LIMIT ?`
	return r.queryMetaList(ctx, query, limit)
}

func (r *CharacterRepository) queryMetaList(ctx context.Context, query string, limit int) ([]domain.CharacterMeta, error) {
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	var result []domain.CharacterMeta
	for rows.Next() {
		var meta domain.CharacterMeta
		var kakera sql.NullInt64
		if err := rows.Scan(&meta.NameDisplay, &meta.SeriesDisplay, &kakera, &meta.MetaRank); err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		meta.KakeraValue = intPtr(kakera)
		result = append(result, meta)
	}
	return result, rows.Err()
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	val := v.Int64
	return &val
}
