package http

import (
	"net/http"

	"github.com/longth-dev/billiard-ladder/internal/challenge"
	"github.com/longth-dev/billiard-ladder/internal/config"
	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/match"
	"github.com/longth-dev/billiard-ladder/internal/metrics"
)

func NewServer(store league.LeagueStore, matches *match.Service, challenges *challenge.Service, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Store:          store,
		Matches:        matches,
		Challenges:     challenges,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// The actor middleware resolves the caller's identity once, so handlers
	// only ever deal with a ready-made ActorContext.
	actor := actorMiddleware(s.Cfg.AdminIDs)

	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("GET /players", Chain(s.ListPlayersHandler(), paramsMiddleware))
	s.Router.Handle("POST /players", Chain(s.CreatePlayerHandler(), paramsMiddleware, actor))
	s.Router.Handle("GET /players/{id}", Chain(s.GetPlayerHandler(), paramsMiddleware))

	s.Router.Handle("GET /matches", Chain(s.ListMatchesHandler(), paramsMiddleware))
	s.Router.Handle("POST /matches", Chain(s.CreateMatchHandler(), paramsMiddleware, actor))
	s.Router.Handle("GET /matches/{id}", Chain(s.GetMatchHandler(), paramsMiddleware))
	s.Router.Handle("POST /matches/{id}/confirm", Chain(s.ConfirmMatchHandler(), paramsMiddleware, actor))
	s.Router.Handle("POST /matches/{id}/reject", Chain(s.RejectMatchHandler(), paramsMiddleware, actor))
	s.Router.Handle("PUT /matches/{id}/score", Chain(s.UpdateScoreHandler(), paramsMiddleware, actor))
	s.Router.Handle("POST /matches/{id}/finish", Chain(s.FinishMatchHandler(), paramsMiddleware, actor))
	s.Router.Handle("POST /matches/{id}/cancel", Chain(s.CancelMatchHandler(), paramsMiddleware, actor))

	s.Router.Handle("POST /challenges", Chain(s.IssueChallengeHandler(), paramsMiddleware, actor))
	s.Router.Handle("POST /challenges/open", Chain(s.IssueOpenChallengeHandler(), paramsMiddleware, actor))
	s.Router.Handle("GET /challenges/{id}", Chain(s.GetChallengeHandler(), paramsMiddleware))
	s.Router.Handle("POST /challenges/{id}/accept", Chain(s.RespondChallengeHandler(true), paramsMiddleware, actor))
	s.Router.Handle("POST /challenges/{id}/reject", Chain(s.RespondChallengeHandler(false), paramsMiddleware, actor))
	s.Router.Handle("POST /challenges/{id}/claim", Chain(s.ClaimChallengeHandler(), paramsMiddleware, actor))
	s.Router.Handle("POST /challenges/{id}/cancel", Chain(s.CancelChallengeHandler(), paramsMiddleware, actor))

	s.Router.Handle("POST /cron/cleanup", Chain(s.CleanupHandler(), paramsMiddleware))
	s.Router.Handle("POST /cron/reminders", Chain(s.RemindersHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
