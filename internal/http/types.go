package http

import (
	"net/http"

	"github.com/longth-dev/billiard-ladder/internal/challenge"
	"github.com/longth-dev/billiard-ladder/internal/config"
	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/match"
	"github.com/longth-dev/billiard-ladder/internal/metrics"
)

type Server struct {
	Store          league.LeagueStore
	Matches        *match.Service
	Challenges     *challenge.Service
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}
