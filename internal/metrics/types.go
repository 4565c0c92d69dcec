package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	MatchesApproved    prometheus.Counter
	MatchesCancelled   prometheus.Counter
	ChallengesIssued   prometheus.Counter
	ChallengesAccepted prometheus.Counter
	SweepRuns          prometheus.Counter
	TransitionDuration prometheus.Histogram
	NotifSent          prometheus.Counter
	NotifFailed        prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
