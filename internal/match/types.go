package match

import (
	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/metrics"
	"github.com/longth-dev/billiard-ladder/internal/notifier"
	"github.com/longth-dev/billiard-ladder/internal/pubsub"
)

// Service drives matches through their lifecycle. All writes that finalize a
// match go through the store's conditional updates, so two racing callers can
// never both succeed.
type Service struct {
	store    league.LeagueStore
	notifier notifier.Notifier
	metrics  metrics.Metrics
	pubsub   pubsub.PubSubClient
}

// CreateParams is the input for recording a finished match directly, without a
// live session.
type CreateParams struct {
	Player1ID    string `json:"player1_id"`
	Player2ID    string `json:"player2_id"`
	Player1Score int    `json:"player1_score"`
	Player2Score int    `json:"player2_score"`
}
