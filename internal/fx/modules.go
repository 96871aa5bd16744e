package fx

import (
	"github.com/rs/zerolog"

	"mudae-tracker/internal/config"
	"mudae-tracker/internal/database"
	"mudae-tracker/internal/logger"
	"mudae-tracker/internal/platform"
	"mudae-tracker/internal/repository"
	"mudae-tracker/internal/server"
	"mudae-tracker/internal/service"

	"go.uber.org/fx"
)

// Constructor wrappers bind the concrete repositories and clients to the
// narrow interfaces the services declare.

func ProvideScraper(characters *repository.CharacterRepository, log zerolog.Logger) *service.ListScraper {
	return service.NewListScraper(characters, log)
}

func ProvideNotifier(dm *platform.DMClient, audit *repository.NotificationRepository, cfg *config.Config, log zerolog.Logger) *service.Notifier {
	return service.NewNotifier(dm, audit, cfg, log)
}

func ProvideEngine(
	cfg *config.Config,
	characters *repository.CharacterRepository,
	series *repository.SeriesRepository,
	scraper *service.ListScraper,
	notifier *service.Notifier,
	log zerolog.Logger,
) *service.Engine {
	return service.NewEngine(cfg, characters, series, scraper, notifier, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewCharacterRepository),
	fx.Provide(repository.NewSeriesRepository),
	fx.Provide(repository.NewNotificationRepository),
	// chat client
	fx.Provide(platform.NewDMClient),
	// svc
	fx.Provide(ProvideScraper),
	fx.Provide(ProvideNotifier),
	fx.Provide(service.NewSeriesScorer),
	fx.Provide(service.NewRecommender),
	fx.Provide(ProvideEngine),
	// server
	fx.Provide(server.NewTrackerServer),
)
