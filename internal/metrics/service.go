package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MatchesApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_approved_total",
			Help: "The total number of matches finalized with a rating update.",
		}),
		MatchesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_cancelled_total",
			Help: "The total number of matches cancelled with the elo penalty applied.",
		}),
		ChallengesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_challenges_issued_total",
			Help: "The total number of challenges issued (targeted and open).",
		}),
		ChallengesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_challenges_accepted_total",
			Help: "The total number of challenges accepted or claimed.",
		}),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_sweep_runs_total",
			Help: "The total number of expiry/reminder sweep runs.",
		}),
		TransitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ladder_transition_duration_seconds",
			Help:    "The duration of individual state machine transitions.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		NotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_notifications_sent_total",
			Help: "The total number of chat notifications successfully sent.",
		}),
		NotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_notifications_failed_total",
			Help: "The total number of chat notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ladder_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.MatchesApproved,
		s.MatchesCancelled,
		s.ChallengesIssued,
		s.ChallengesAccepted,
		s.SweepRuns,
		s.TransitionDuration,
		s.NotifSent,
		s.NotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncMatchesApproved() {
	s.MatchesApproved.Inc()
}

func (s *Service) IncMatchesCancelled() {
	s.MatchesCancelled.Inc()
}

func (s *Service) IncChallengesIssued() {
	s.ChallengesIssued.Inc()
}

func (s *Service) IncChallengesAccepted() {
	s.ChallengesAccepted.Inc()
}

func (s *Service) IncSweepRuns() {
	s.SweepRuns.Inc()
}

func (s *Service) ObserveTransitionDuration(duration float64) {
	s.TransitionDuration.Observe(duration)
}

func (s *Service) IncNotifSent() {
	s.NotifSent.Inc()
}

func (s *Service) IncNotifFailed() {
	s.NotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
