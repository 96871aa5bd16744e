package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"mudae-tracker/internal/domain"
)

// NotificationRepository is the audit log of dispatched DMs.
type NotificationRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewNotificationRepository(sqlDB *sql.DB, logger zerolog.Logger) *NotificationRepository {
	return &NotificationRepository{db: sqlDB, logger: logger}
}

func (r *NotificationRepository) Record(ctx context.Context, rec domain.NotificationRecord) error {
	id := rec.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, character_name, series_display, tier, recipient_id, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.Character, rec.Series, rec.Tier, rec.RecipientID, sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Recent(ctx context.Context, limit int) ([]domain.NotificationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, character_name, series_display, tier, recipient_id, sent_at
		 FROM notifications
		 ORDER BY sent_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var result []domain.NotificationRecord
	for rows.Next() {
		var rec domain.NotificationRecord
		if err := rows.Scan(&rec.ID, &rec.Character, &rec.Series, &rec.Tier, &rec.RecipientID, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
