package challenge

import (
	"time"

	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/metrics"
	"github.com/longth-dev/billiard-ladder/internal/notifier"
	"github.com/longth-dev/billiard-ladder/internal/pubsub"
)

// MatchStarter is the slice of the match service the challenge workflow needs:
// spawning the live match for an accepted challenge, and cancelling it again
// when the challenge is called off.
type MatchStarter interface {
	StartFromChallenge(ch *league.Challenge) (*league.Match, error)
	Cancel(actor league.ActorContext, id string) (*league.Match, error)
}

// Service drives challenges from issue to an accepted live match. The
// open-challenge claim path is a first-wins conditional write; everything else
// moves through status compare-and-swaps.
type Service struct {
	store    league.LeagueStore
	matches  MatchStarter
	notifier notifier.Notifier
	metrics  metrics.Metrics
	pubsub   pubsub.PubSubClient
}

// IssueParams is the input for issuing a challenge. A nil OpponentID makes the
// challenge open for anyone to claim.
type IssueParams struct {
	OpponentID    *string    `json:"opponent_id,omitempty"`
	Message       *string    `json:"message,omitempty"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	GameType      *string    `json:"game_type,omitempty"`
	RaceTo        *int       `json:"race_to,omitempty"`
	Handicap      *int       `json:"handicap,omitempty"`
}

// reminderLookahead is how far ahead of the scheduled time the reminder sweep
// looks. Slightly more than half an hour, so an every-30-minutes cron never
// skips over a match.
const reminderLookahead = 35 * time.Minute
