package constants

import "time"

// Series scoring. The score rewards both a low average meta rank and a large
// presence in the top set, with presence weighted super-linearly.
const (
	TopCharacterLimit  = 1000
	UnrankedSentinel   = 9999
	ScoreRankWeight    = 5e4
	ScoreCountWeight   = 250
	ScoreCountExponent = 1.5
)

// Kakera extraction fallback window around the currency icon.
const (
	KakeraWindowRadius = 30
	KakeraValueMin     = 10
	KakeraValueMax     = 50000
)

// Mudae colors a roll embed purple once it has been claimed.
const (
	ClaimedColorMin = 0xF47FF0
	ClaimedColorMax = 0xF480FF
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	DispatchTimeout = 10 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultScrapePages   = 67
	RecommendLimit       = 10
	NotificationLogLimit = 50
)
