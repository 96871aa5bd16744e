package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DiscordToken string
	DBPath       string
	ServerPort   string
	LogLevel     string

	// GameBotName is matched (case-insensitive, substring) against message
	// author names to recognize game output.
	GameBotName string

	// OwnerIDs are the privileged rollers and the DM recipients.
	OwnerIDs []string

	KakeraThreshold   int64
	MetaRankThreshold int64
	DMTierThreshold   string
	OwnerOnlyDM       bool

	TopSeriesLimit        int
	SeriesRebuildInterval time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DiscordToken:          getEnv("DISCORD_TOKEN", ""),
		DBPath:                getEnv("DB_PATH", "mudae.db"),
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		GameBotName:           strings.ToLower(getEnv("GAME_BOT_NAME", "mudae")),
		OwnerIDs:              parseOwnerIDs(),
		KakeraThreshold:       getEnvInt64("KAKERA_THRESHOLD", 100),
		MetaRankThreshold:     getEnvInt64("META_RANK_THRESHOLD", 5000),
		DMTierThreshold:       strings.ToUpper(getEnv("DM_TIER_THRESHOLD", "B")),
		OwnerOnlyDM:           getEnvBool("OWNER_ONLY_DM", true),
		TopSeriesLimit:        int(getEnvInt64("TOP_SERIES_LIMIT", 50)),
		SeriesRebuildInterval: getEnvDuration("SERIES_REBUILD_INTERVAL", 30*time.Minute),
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if len(cfg.OwnerIDs) == 0 {
		logger.Warn().Msg("no OWNER_IDS configured, notifications have no recipients")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Strs("owner_ids", cfg.OwnerIDs).
		Int64("kakera_threshold", cfg.KakeraThreshold).
		Int64("meta_rank_threshold", cfg.MetaRankThreshold).
		Str("dm_tier_threshold", cfg.DMTierThreshold).
		Bool("owner_only_dm", cfg.OwnerOnlyDM).
		Dur("series_rebuild_interval", cfg.SeriesRebuildInterval).
		Msg("configuration loaded")

	return cfg, nil
}

// parseOwnerIDs reads OWNER_IDS (comma-separated) with OWNER_ID as a
// single-value fallback; non-numeric entries are dropped.
func parseOwnerIDs() []string {
	raw := os.Getenv("OWNER_IDS")
	if raw == "" {
		raw = os.Getenv("OWNER_ID")
	}

	var ids []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := strconv.ParseUint(part, 10, 64); err != nil {
			continue
		}
		ids = append(ids, part)
	}
	return ids
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
