package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"mudae-tracker/internal/config"
	"mudae-tracker/internal/constants"
	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/platform"
	"mudae-tracker/internal/repository"
	"mudae-tracker/internal/service"
)

// TrackerServer is the JSON control surface: message ingestion, scrape session
// control, series ranking and recommendations.
type TrackerServer struct {
	cfg           *config.Config
	engine        *service.Engine
	scraper       *service.ListScraper
	scorer        *service.SeriesScorer
	recommender   *service.Recommender
	characters    *repository.CharacterRepository
	series        *repository.SeriesRepository
	notifications *repository.NotificationRepository
	logger        zerolog.Logger
}

func NewTrackerServer(
	cfg *config.Config,
	engine *service.Engine,
	scraper *service.ListScraper,
	scorer *service.SeriesScorer,
	recommender *service.Recommender,
	characters *repository.CharacterRepository,
	series *repository.SeriesRepository,
	notifications *repository.NotificationRepository,
	logger zerolog.Logger,
) *TrackerServer {
	return &TrackerServer{
		cfg:           cfg,
		engine:        engine,
		scraper:       scraper,
		scorer:        scorer,
		recommender:   recommender,
		characters:    characters,
		series:        series,
		notifications: notifications,
		logger:        logger,
	}
}

// Handler builds the route table.
func (s *TrackerServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/messages", s.handleMessage)
	mux.HandleFunc("POST /api/scrape/start", s.handleScrapeStart)
	mux.HandleFunc("POST /api/scrape/expect", s.handleScrapeExpect)
	mux.HandleFunc("POST /api/scrape/complete", s.handleScrapeComplete)
	mux.HandleFunc("GET /api/scrape/status", s.handleScrapeStatus)
	mux.HandleFunc("POST /api/series/rebuild", s.handleSeriesRebuild)
	mux.HandleFunc("GET /api/series/top", s.handleTopSeries)
	mux.HandleFunc("GET /api/series", s.handleSeriesInfo)
	mux.HandleFunc("GET /api/characters", s.handleCharacterLookup)
	mux.HandleFunc("GET /api/recommend", s.handleRecommend)
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	return mux
}

func (s *TrackerServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMessage ingests one chat message. Classification happens inline;
// ingestion always answers 202 so a slow evaluation never backs up the
// forwarder.
func (s *TrackerServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg platform.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid message payload")
		return
	}

	s.engine.HandleMessage(r.Context(), &msg)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type scrapeStartRequest struct {
	ListKind   string `json:"list_kind"`
	TotalPages int    `json:"total_pages"`
}

func (s *TrackerServer) handleScrapeStart(w http.ResponseWriter, r *http.Request) {
	var req scrapeStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid scrape request")
		return
	}

	var kind domain.ListKind
	switch req.ListKind {
	case string(domain.ListClaimed):
		kind = domain.ListClaimed
	case string(domain.ListLiked):
		kind = domain.ListLiked
	default:
		s.writeError(w, http.StatusBadRequest, "list_kind must be claimed or liked")
		return
	}

	pages := req.TotalPages
	if pages <= 0 {
		pages = constants.DefaultScrapePages
	}

	if err := s.scraper.Start(kind, pages); err != nil {
		if errors.Is(err, service.ErrScrapeActive) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to start scrape")
		return
	}
	s.writeJSON(w, http.StatusOK, s.scraper.Status())
}

type scrapeExpectRequest struct {
	Page int `json:"page"`
}

func (s *TrackerServer) handleScrapeExpect(w http.ResponseWriter, r *http.Request) {
	var req scrapeExpectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Page < 1 {
		s.writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	if !s.scraper.Active() {
		s.writeError(w, http.StatusConflict, "no scrape session is running")
		return
	}

	s.scraper.SetExpectedPage(req.Page)
	s.writeJSON(w, http.StatusOK, s.scraper.Status())
}

func (s *TrackerServer) handleScrapeComplete(w http.ResponseWriter, r *http.Request) {
	saved := s.scraper.Complete(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]int{"collected": saved})
}

func (s *TrackerServer) handleScrapeStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scraper.Status())
}

func (s *TrackerServer) handleSeriesRebuild(w http.ResponseWriter, r *http.Request) {
	count, err := s.scorer.Rebuild(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("manual series rebuild failed")
		s.writeError(w, http.StatusInternalServerError, "rebuild failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"series_ranked": count})
}

func (s *TrackerServer) handleTopSeries(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", s.cfg.TopSeriesLimit)
	top, err := s.series.TopSeries(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("top series query failed")
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"series": top})
}

func (s *TrackerServer) handleSeriesInfo(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	info, err := s.series.GetSeriesInfo(r.Context(), name)
	if err != nil {
		s.logger.Error().Err(err).Str("series", name).Msg("series lookup failed")
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if info == nil {
		s.writeError(w, http.StatusNotFound, "series not ranked")
		return
	}
	s.writeJSON(w, http.StatusOK, seriesInfoResponse{
		SeriesAggregate: *info,
		FlavorLabel:     domain.TierFlavorLabel(info.Tier),
	})
}

// handleCharacterLookup resolves one character by name, optionally scoped to a
// series when names collide across shows.
func (s *TrackerServer) handleCharacterLookup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	record, err := s.characters.GetByName(r.Context(), name, r.URL.Query().Get("series"))
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("character lookup failed")
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "character not tracked")
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

type seriesInfoResponse struct {
	domain.SeriesAggregate
	FlavorLabel string `json:"flavor_label"`
}

func (s *TrackerServer) handleRecommend(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", constants.RecommendLimit)
	rec, err := s.recommender.Recommend(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("recommend query failed")
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *TrackerServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", constants.NotificationLogLimit)
	recent, err := s.notifications.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("notification log query failed")
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"notifications": recent})
}

func (s *TrackerServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *TrackerServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
