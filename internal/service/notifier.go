package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mudae-tracker/internal/config"
	"mudae-tracker/internal/constants"
	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/platform"
)

// DirectMessenger is the outbound chat-platform surface.
type DirectMessenger interface {
	SendDirectMessage(ctx context.Context, userID string, payload platform.DMPayload) error
}

// NotificationLog records dispatched notifications for the audit surface.
type NotificationLog interface {
	Record(ctx context.Context, rec domain.NotificationRecord) error
}

var tierEmojis = map[string]string{"S": "💎", "A": "🌟", "B": "⭐", "C": "✨", "D": "💤"}

var tierColors = map[string]int{
	"S": 0xF1C40F, // gold
	"A": 0x9B59B6, // purple
	"B": 0x3498DB, // blue
	"C": 0x1ABC9C, // teal
	"D": 0x607D8B, // dark grey
}

const unknownTierColor = 0x607D8B

// Notifier fans a roll alert out to every configured recipient. Each dispatch
// is independent; one failed recipient never blocks or cancels the rest.
type Notifier struct {
	dm     DirectMessenger
	audit  NotificationLog
	cfg    *config.Config
	logger zerolog.Logger
}

func NewNotifier(dm DirectMessenger, audit NotificationLog, cfg *config.Config, logger zerolog.Logger) *Notifier {
	return &Notifier{dm: dm, audit: audit, cfg: cfg, logger: logger}
}

func (n *Notifier) Dispatch(ctx context.Context, alert domain.RollAlert) {
	payload := buildPayload(alert)

	var g errgroup.Group
	for _, recipient := range n.cfg.OwnerIDs {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, constants.DispatchTimeout)
			defer cancel()

			if err := n.dm.SendDirectMessage(sendCtx, recipient, payload); err != nil {
				switch {
				case errors.Is(err, platform.ErrUserNotFound):
					n.logger.Error().Str("recipient", recipient).Msg("notification recipient not found")
				case errors.Is(err, platform.ErrForbidden):
					n.logger.Error().Str("recipient", recipient).Msg("notification forbidden, recipient may block DMs")
				default:
					n.logger.Error().Err(err).Str("recipient", recipient).Msg("notification dispatch failed")
				}
				return nil
			}

			n.logger.Info().
				Str("recipient", recipient).
				Str("name", alert.Name).
				Str("tier", alert.Tier).
				Msg("notification sent")

			if err := n.audit.Record(ctx, domain.NotificationRecord{
				Character:   alert.Name,
				Series:      alert.Series,
				Tier:        alert.Tier,
				RecipientID: recipient,
			}); err != nil {
				n.logger.Warn().Err(err).Msg("failed to record notification")
			}
			return nil
		})
	}
	g.Wait()
}

func buildPayload(alert domain.RollAlert) platform.DMPayload {
	emoji, ok := tierEmojis[alert.Tier]
	if !ok {
		emoji = "🎯"
	}
	color, ok := tierColors[alert.Tier]
	if !ok {
		color = unknownTierColor
	}

	metaRank := "?"
	if alert.MetaRank != nil {
		metaRank = fmt.Sprintf("%.0f", *alert.MetaRank)
	}
	kakera := "?"
	if alert.KakeraValue != nil {
		kakera = fmt.Sprintf("%d", *alert.KakeraValue)
	}
	claimed := "no"
	if alert.Claimed {
		claimed = "yes"
	}

	return platform.DMPayload{
		Title: fmt.Sprintf("%s %s — %s-Tier", emoji, alert.Name, alert.Tier),
		Description: fmt.Sprintf(
			"**Series:** %s\n**Meta Rank:** %s\n**Kakera:** %s\n**Claimed:** %s",
			alert.Series, metaRank, kakera, claimed,
		),
		Color:        color,
		ImageURL:     alert.ImageURL,
		ThumbnailURL: alert.ThumbnailURL,
	}
}
