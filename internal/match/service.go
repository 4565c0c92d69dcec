package match

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/longth-dev/billiard-ladder/internal/elo"
	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/metrics"
	"github.com/longth-dev/billiard-ladder/internal/notifier"
	"github.com/longth-dev/billiard-ladder/internal/pubsub"
)

// New creates a new match Service.
func New(store league.LeagueStore, notifier notifier.Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		pubsub:   pubsub,
	}
}

// Create records a finished match directly. Admins get their result approved
// immediately with ratings applied; everyone else creates a PENDING match that
// the opponent has to confirm.
func (s *Service) Create(actor league.ActorContext, params CreateParams) (*league.Match, error) {
	if params.Player1ID == params.Player2ID {
		return nil, league.Validationf("a match needs two distinct players")
	}
	if params.Player1Score < 0 || params.Player2Score < 0 {
		return nil, league.Validationf("scores cannot be negative")
	}

	p1, err := s.store.GetPlayer(params.Player1ID)
	if err != nil {
		return nil, err
	}
	p2, err := s.store.GetPlayer(params.Player2ID)
	if err != nil {
		return nil, err
	}

	m := &league.Match{
		Player1ID:    params.Player1ID,
		Player2ID:    params.Player2ID,
		Player1Score: params.Player1Score,
		Player2Score: params.Player2Score,
		Status:       league.MatchPending,
	}
	submitter := submitterFor(m, p1, p2, actor)
	m.SubmitterID = &submitter

	if err := s.store.InsertMatch(m); err != nil {
		return nil, err
	}
	log.Info("Match recorded", "matchID", m.ID, "player1", p1.Name, "player2", p2.Name, "admin", actor.IsAdmin)

	if actor.IsAdmin {
		return s.approve(m, p1, p2, league.MatchPending)
	}

	s.notify(fmt.Sprintf("🎱 %s recorded a match: %s %d – %d %s. %s, please confirm the result.",
		playerByID(submitter, p1, p2).DisplayName(), p1.DisplayName(), m.Player1Score, m.Player2Score, p2.DisplayName(),
		opponentOf(submitter, p1, p2).Tag()))
	return m, nil
}

// Confirm approves a PENDING match. The confirmer must be a participant and
// must not be the player who submitted the result; admins bypass both checks.
// Deltas are computed at confirmation time from the players' current ratings
// and approved-match counts.
func (s *Service) Confirm(actor league.ActorContext, id string) (*league.Match, error) {
	m, p1, p2, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if m.Status != league.MatchPending {
		return nil, league.StateConflictf("match %s is %s, not PENDING", id, m.Status)
	}
	if !actor.IsAdmin {
		role := league.ResolveParticipantRole(m, p1, p2, actor)
		if role == league.RoleNone {
			return nil, league.Authorizationf("only a participant can confirm this match")
		}
		if m.SubmitterID != nil && rolePlayer(role, p1, p2).ID == *m.SubmitterID {
			return nil, league.Authorizationf("you cannot confirm a result you submitted yourself")
		}
	}
	return s.approve(m, p1, p2, league.MatchPending)
}

// Reject deletes a PENDING match outright. Either participant or an admin can
// reject; nothing about the players changes.
func (s *Service) Reject(actor league.ActorContext, id string) error {
	m, p1, p2, err := s.load(id)
	if err != nil {
		return err
	}
	if m.Status != league.MatchPending {
		return league.StateConflictf("match %s is %s, not PENDING", id, m.Status)
	}
	if !actor.IsAdmin && league.ResolveParticipantRole(m, p1, p2, actor) == league.RoleNone {
		return league.Authorizationf("only a participant can reject this match")
	}
	if err := s.store.DeleteMatch(id); err != nil {
		return err
	}
	log.Info("Pending match rejected", "matchID", id)
	return nil
}

// UpdateScore changes the running score of a LIVE match. Negative inputs clamp
// to zero. Ratings are untouched.
func (s *Service) UpdateScore(actor league.ActorContext, id string, player1Score, player2Score int) (*league.Match, error) {
	m, p1, p2, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && league.ResolveParticipantRole(m, p1, p2, actor) == league.RoleNone {
		return nil, league.Authorizationf("only a participant can update the score")
	}
	if player1Score < 0 {
		player1Score = 0
	}
	if player2Score < 0 {
		player2Score = 0
	}
	if err := s.store.UpdateMatchScore(id, player1Score, player2Score); err != nil {
		return nil, err
	}
	m.Player1Score = player1Score
	m.Player2Score = player2Score
	return m, nil
}

// Finish advances a live session towards approval. On a LIVE match the caller
// submits the current score as final, parking the match in
// WAITING_CONFIRMATION with themselves recorded as submitter. On a
// WAITING_CONFIRMATION match any participant other than the submitter (or an
// admin) confirms, which approves the match and applies ratings.
func (s *Service) Finish(actor league.ActorContext, id string) (*league.Match, error) {
	m, p1, p2, err := s.load(id)
	if err != nil {
		return nil, err
	}
	role := league.ResolveParticipantRole(m, p1, p2, actor)
	if !actor.IsAdmin && role == league.RoleNone {
		return nil, league.Authorizationf("only a participant can finish this match")
	}

	switch m.Status {
	case league.MatchLive:
		submitter := submitterFor(m, p1, p2, actor)
		if err := s.store.MarkWaitingConfirmation(id, submitter); err != nil {
			return nil, err
		}
		m.Status = league.MatchWaitingConfirmation
		m.SubmitterID = &submitter
		opponent := opponentOf(submitter, p1, p2)
		s.notify(fmt.Sprintf("🎱 %s reports a final score of %d – %d. %s, please confirm the result.",
			playerByID(submitter, p1, p2).DisplayName(), m.Player1Score, m.Player2Score, opponent.Tag()))
		return m, nil

	case league.MatchWaitingConfirmation:
		if !actor.IsAdmin {
			if m.SubmitterID != nil && rolePlayer(role, p1, p2).ID == *m.SubmitterID {
				return nil, league.Authorizationf("you cannot confirm a result you submitted yourself")
			}
		}
		return s.approve(m, p1, p2, league.MatchWaitingConfirmation)

	default:
		return nil, league.StateConflictf("match %s is %s and cannot be finished", id, m.Status)
	}
}

// Cancel abandons a LIVE or WAITING_CONFIRMATION match. The canceller forfeits
// a fixed amount of elo to their opponent; win/loss records are untouched.
func (s *Service) Cancel(actor league.ActorContext, id string) (*league.Match, error) {
	start := time.Now()
	m, p1, p2, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if m.Status != league.MatchLive && m.Status != league.MatchWaitingConfirmation {
		return nil, league.StateConflictf("match %s is %s and cannot be cancelled", id, m.Status)
	}
	role := league.ResolveParticipantRole(m, p1, p2, actor)
	if !actor.IsAdmin && role == league.RoleNone {
		return nil, league.Authorizationf("only a participant can cancel this match")
	}

	// The penalty lands on whoever walked away. An admin cancelling on
	// behalf of the club charges the recorded submitter, falling back to
	// player1 when no score was ever submitted.
	canceller := p1
	switch {
	case role == league.RolePlayer1:
		canceller = p1
	case role == league.RolePlayer2:
		canceller = p2
	case m.SubmitterID != nil && *m.SubmitterID == p2.ID:
		canceller = p2
	}

	delta1, delta2 := elo.CancelPenalty, -elo.CancelPenalty
	if canceller.ID == p1.ID {
		delta1, delta2 = -elo.CancelPenalty, elo.CancelPenalty
	}

	cancellation := league.MatchCancellation{
		MatchID: id,
		Delta1:  delta1,
		Delta2:  delta2,
		Player1: league.RatingUpdate{PlayerID: p1.ID, Elo: p1.Elo + delta1, Wins: p1.Wins, Losses: p1.Losses},
		Player2: league.RatingUpdate{PlayerID: p2.ID, Elo: p2.Elo + delta2, Wins: p2.Wins, Losses: p2.Losses},
	}
	if err := s.store.CancelMatch(cancellation); err != nil {
		return nil, err
	}
	m.Status = league.MatchCancelled
	m.EloDelta1 = delta1
	m.EloDelta2 = delta2

	s.metrics.IncMatchesCancelled()
	s.metrics.ObserveTransitionDuration(time.Since(start).Seconds())
	log.Info("Match cancelled", "matchID", id, "canceller", canceller.Name)

	opponent := opponentOf(canceller.ID, p1, p2)
	s.notify(fmt.Sprintf("🚫 %s abandoned the match against %s and forfeits %d elo.",
		canceller.DisplayName(), opponent.DisplayName(), elo.CancelPenalty))
	s.publish(pubsub.EventMatchCancelled, m)
	return m, nil
}

// StartFromChallenge spawns the LIVE match for an accepted challenge. If a
// live match between the two players already exists it is returned instead, so
// racing accept/claim paths converge on a single match. A challenge handicap
// becomes the opponent's starting score.
func (s *Service) StartFromChallenge(ch *league.Challenge) (*league.Match, error) {
	if ch.OpponentID == nil {
		return nil, league.Validationf("challenge %s has no opponent", ch.ID)
	}

	existing, err := s.store.FindLiveMatch(ch.ChallengerID, *ch.OpponentID)
	if err == nil {
		log.Debug("Live match already exists for challenge", "challengeID", ch.ID, "matchID", existing.ID)
		return existing, nil
	}
	if !league.IsKind(err, league.KindNotFound) {
		return nil, err
	}

	handicap := 0
	if ch.Handicap != nil && *ch.Handicap > 0 {
		handicap = *ch.Handicap
	}
	m := &league.Match{
		Player1ID:    ch.ChallengerID,
		Player2ID:    *ch.OpponentID,
		Player1Score: 0,
		Player2Score: handicap,
		Status:       league.MatchLive,
	}
	if err := s.store.InsertMatch(m); err != nil {
		return nil, err
	}
	log.Info("Live match started from challenge", "challengeID", ch.ID, "matchID", m.ID)
	return m, nil
}

// approve flips a match to APPROVED and applies ratings, atomically. The
// expected prior status makes the flip a compare-and-swap: of two racing
// confirmers only one reaches this line with the swap succeeding.
func (s *Service) approve(m *league.Match, p1, p2 *league.Player, expected league.MatchStatus) (*league.Match, error) {
	start := time.Now()

	// K-factor eligibility comes from a live count of approved matches, not
	// the denormalized win/loss counters.
	prior1, err := s.store.CountApprovedMatches(p1.ID)
	if err != nil {
		return nil, err
	}
	prior2, err := s.store.CountApprovedMatches(p2.ID)
	if err != nil {
		return nil, err
	}

	delta1, delta2 := elo.Deltas(p1.Elo, p2.Elo, m.Player1Score, m.Player2Score, prior1, prior2)

	var winnerID *string
	wins1, losses1 := p1.Wins, p1.Losses
	wins2, losses2 := p2.Wins, p2.Losses
	switch {
	case m.Player1Score > m.Player2Score:
		winnerID = &p1.ID
		wins1++
		losses2++
	case m.Player2Score > m.Player1Score:
		winnerID = &p2.ID
		wins2++
		losses1++
	}

	approval := league.MatchApproval{
		MatchID:        m.ID,
		ExpectedStatus: expected,
		WinnerID:       winnerID,
		Delta1:         delta1,
		Delta2:         delta2,
		Player1:        league.RatingUpdate{PlayerID: p1.ID, Elo: p1.Elo + delta1, Wins: wins1, Losses: losses1},
		Player2:        league.RatingUpdate{PlayerID: p2.ID, Elo: p2.Elo + delta2, Wins: wins2, Losses: losses2},
	}
	if err := s.store.ApproveMatch(approval); err != nil {
		return nil, err
	}
	m.Status = league.MatchApproved
	m.WinnerID = winnerID
	m.EloDelta1 = delta1
	m.EloDelta2 = delta2

	s.metrics.IncMatchesApproved()
	s.metrics.ObserveTransitionDuration(time.Since(start).Seconds())
	log.Info("Match approved", "matchID", m.ID, "delta1", delta1, "delta2", delta2)

	s.notify(resultText(m, p1, p2))
	s.publish(pubsub.EventMatchApproved, m)
	return m, nil
}

func (s *Service) load(id string) (*league.Match, *league.Player, *league.Player, error) {
	m, err := s.store.GetMatch(id)
	if err != nil {
		return nil, nil, nil, err
	}
	p1, err := s.store.GetPlayer(m.Player1ID)
	if err != nil {
		return nil, nil, nil, err
	}
	p2, err := s.store.GetPlayer(m.Player2ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return m, p1, p2, nil
}

// notify sends a chat message best-effort; a failed notification never fails
// the transition that triggered it.
func (s *Service) notify(text string) {
	if err := s.notifier.Send(text); err != nil {
		log.Error("Failed to send match notification", "error", err)
	}
}

func (s *Service) publish(topic pubsub.EventType, m *league.Match) {
	if err := s.pubsub.SendMessage(topic, m); err != nil {
		log.Error("Failed to publish match event", "error", err, "topic", topic, "matchID", m.ID)
	}
}

func resultText(m *league.Match, p1, p2 *league.Player) string {
	if m.WinnerID == nil {
		return fmt.Sprintf("🎱 %s and %s drew %d – %d. (%s %+d, %s %+d)",
			p1.DisplayName(), p2.DisplayName(), m.Player1Score, m.Player2Score,
			p1.Tag(), m.EloDelta1, p2.Tag(), m.EloDelta2)
	}
	winner, loser := p1, p2
	if *m.WinnerID == p2.ID {
		winner, loser = p2, p1
	}
	return fmt.Sprintf("🏆 %s beats %s %d – %d! (%s %+d, %s %+d)",
		winner.DisplayName(), loser.DisplayName(), m.Player1Score, m.Player2Score,
		p1.Tag(), m.EloDelta1, p2.Tag(), m.EloDelta2)
}

// submitterFor resolves which player id to record as the submitter of a
// result: the actor's own side when they play in the match, otherwise the raw
// actor id (an admin acting on someone else's behalf).
func submitterFor(m *league.Match, p1, p2 *league.Player, actor league.ActorContext) string {
	switch league.ResolveParticipantRole(m, p1, p2, actor) {
	case league.RolePlayer1:
		return p1.ID
	case league.RolePlayer2:
		return p2.ID
	}
	return actor.ID
}

func rolePlayer(role league.ParticipantRole, p1, p2 *league.Player) *league.Player {
	if role == league.RolePlayer2 {
		return p2
	}
	return p1
}

func playerByID(id string, p1, p2 *league.Player) *league.Player {
	if p2.ID == id {
		return p2
	}
	return p1
}

func opponentOf(id string, p1, p2 *league.Player) *league.Player {
	if p1.ID == id {
		return p2
	}
	return p1
}
