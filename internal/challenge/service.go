package challenge

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/metrics"
	"github.com/longth-dev/billiard-ladder/internal/notifier"
	"github.com/longth-dev/billiard-ladder/internal/pubsub"
)

// New creates a new challenge Service.
func New(store league.LeagueStore, matches MatchStarter, notifier notifier.Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient) *Service {
	return &Service{
		store:    store,
		matches:  matches,
		notifier: notifier,
		metrics:  metrics,
		pubsub:   pubsub,
	}
}

// Issue creates a targeted challenge against a named opponent.
func (s *Service) Issue(actor league.ActorContext, params IssueParams) (*league.Challenge, error) {
	if params.OpponentID == nil {
		return nil, league.Validationf("a targeted challenge needs an opponent")
	}
	challenger, err := s.resolveActorPlayer(actor)
	if err != nil {
		return nil, err
	}
	if *params.OpponentID == challenger.ID {
		return nil, league.Validationf("you cannot challenge yourself")
	}
	opponent, err := s.store.GetPlayer(*params.OpponentID)
	if err != nil {
		return nil, err
	}

	ch, err := s.insert(challenger.ID, params, league.ChallengePending)
	if err != nil {
		return nil, err
	}
	s.notify(fmt.Sprintf("⚔️ %s challenges %s!%s", challenger.DisplayName(), opponent.Tag(), challengeDetails(ch)))
	return ch, nil
}

// IssueOpen creates an open challenge anyone but the challenger can claim.
func (s *Service) IssueOpen(actor league.ActorContext, params IssueParams) (*league.Challenge, error) {
	challenger, err := s.resolveActorPlayer(actor)
	if err != nil {
		return nil, err
	}
	params.OpponentID = nil

	ch, err := s.insert(challenger.ID, params, league.ChallengeOpen)
	if err != nil {
		return nil, err
	}
	s.notify(fmt.Sprintf("⚔️ %s threw down an open challenge, first come first served!%s",
		challenger.DisplayName(), challengeDetails(ch)))
	return ch, nil
}

// Respond lets the named opponent accept or reject a pending challenge.
// Accepting spawns the live match.
func (s *Service) Respond(actor league.ActorContext, id string, accept bool) (*league.Challenge, error) {
	ch, err := s.store.GetChallenge(id)
	if err != nil {
		return nil, err
	}
	if ch.Status != league.ChallengePending {
		return nil, league.StateConflictf("challenge %s is %s, not PENDING", id, ch.Status)
	}
	responder, err := s.resolveActorPlayer(actor)
	if err != nil {
		return nil, err
	}
	if ch.OpponentID == nil || *ch.OpponentID != responder.ID {
		return nil, league.Authorizationf("only the challenged player can respond")
	}

	challenger, err := s.store.GetPlayer(ch.ChallengerID)
	if err != nil {
		return nil, err
	}

	if !accept {
		if err := s.store.UpdateChallengeStatus(id, league.ChallengePending, league.ChallengeRejected); err != nil {
			return nil, err
		}
		ch.Status = league.ChallengeRejected
		log.Info("Challenge rejected", "challengeID", id, "opponent", responder.Name)
		s.notify(fmt.Sprintf("🙅 %s declined the challenge from %s.", responder.DisplayName(), challenger.DisplayName()))
		return ch, nil
	}

	if err := s.store.UpdateChallengeStatus(id, league.ChallengePending, league.ChallengeAccepted); err != nil {
		return nil, err
	}
	ch.Status = league.ChallengeAccepted
	return s.accepted(ch, challenger, responder)
}

// Claim lets any player take an open challenge. The claim is a conditional
// write keyed on the opponent slot still being empty, so of any number of
// concurrent claimers exactly one wins; the rest get a state conflict.
func (s *Service) Claim(actor league.ActorContext, id string) (*league.Challenge, error) {
	ch, err := s.store.GetChallenge(id)
	if err != nil {
		return nil, err
	}
	if ch.Status != league.ChallengeOpen {
		return nil, league.StateConflictf("challenge %s is %s, not OPEN", id, ch.Status)
	}
	claimer, err := s.resolveActorPlayer(actor)
	if err != nil {
		return nil, err
	}
	if ch.ChallengerID == claimer.ID {
		return nil, league.Validationf("you cannot claim your own challenge")
	}

	claimed, err := s.store.ClaimOpenChallenge(id, claimer.ID)
	if err != nil {
		return nil, err
	}

	challenger, err := s.store.GetPlayer(claimed.ChallengerID)
	if err != nil {
		return nil, err
	}
	return s.accepted(claimed, challenger, claimer)
}

// Cancel calls a challenge off. The challenger (or an admin) can retract a
// challenge nobody accepted yet, with no penalty. Once accepted, either
// participant can cancel, which abandons the live match first and charges the
// usual cancellation penalty there.
func (s *Service) Cancel(actor league.ActorContext, id string) (*league.Challenge, error) {
	ch, err := s.store.GetChallenge(id)
	if err != nil {
		return nil, err
	}

	switch ch.Status {
	case league.ChallengePending, league.ChallengeOpen:
		if !actor.IsAdmin {
			p, err := s.resolveActorPlayer(actor)
			if err != nil {
				return nil, err
			}
			if p.ID != ch.ChallengerID {
				return nil, league.Authorizationf("only the challenger can retract this challenge")
			}
		}
		if err := s.store.UpdateChallengeStatus(id, ch.Status, league.ChallengeCancelled); err != nil {
			return nil, err
		}
		ch.Status = league.ChallengeCancelled
		log.Info("Challenge retracted", "challengeID", id)
		return ch, nil

	case league.ChallengeAccepted:
		if !actor.IsAdmin {
			p, err := s.resolveActorPlayer(actor)
			if err != nil {
				return nil, err
			}
			if p.ID != ch.ChallengerID && (ch.OpponentID == nil || p.ID != *ch.OpponentID) {
				return nil, league.Authorizationf("only a participant can cancel this challenge")
			}
		}
		// Abandon the live match first so the penalty lands; a match that
		// already finished on its own leaves nothing to cancel.
		if ch.OpponentID != nil {
			live, err := s.store.FindLiveMatch(ch.ChallengerID, *ch.OpponentID)
			switch {
			case err == nil:
				if _, err := s.matches.Cancel(actor, live.ID); err != nil {
					return nil, err
				}
			case !league.IsKind(err, league.KindNotFound):
				return nil, err
			}
		}
		if err := s.store.UpdateChallengeStatus(id, league.ChallengeAccepted, league.ChallengeCancelled); err != nil {
			return nil, err
		}
		ch.Status = league.ChallengeCancelled
		log.Info("Accepted challenge cancelled", "challengeID", id)
		return ch, nil

	default:
		return nil, league.StateConflictf("challenge %s is %s and cannot be cancelled", id, ch.Status)
	}
}

// ExpireOpenChallenges rejects open challenges whose scheduled time has
// passed: nobody took them up. The sweep is safe to re-run: each flip is a
// compare-and-swap, and a challenge claimed between listing and flipping is
// simply skipped.
func (s *Service) ExpireOpenChallenges(now time.Time) (int, error) {
	s.metrics.IncSweepRuns()
	expired, err := s.store.ListExpiredOpenChallenges(now)
	if err != nil {
		return 0, err
	}
	rejected := 0
	for _, ch := range expired {
		if err := s.store.UpdateChallengeStatus(ch.ID, league.ChallengeOpen, league.ChallengeRejected); err != nil {
			if league.IsKind(err, league.KindStateConflict) {
				log.Debug("Open challenge claimed before expiry could land", "challengeID", ch.ID)
				continue
			}
			return rejected, err
		}
		rejected++
		log.Info("Expired open challenge", "challengeID", ch.ID, "scheduled", ch.ScheduledTime)
	}
	if rejected > 0 {
		log.Info("Expiry sweep finished", "rejected", rejected)
	}
	return rejected, nil
}

// SendReminders notifies both players of accepted challenges starting within
// the lookahead window. The reminder flag is flipped before the message goes
// out, so a rerun of the sweep (or a racing second instance) can never remind
// the same challenge twice.
func (s *Service) SendReminders(now time.Time) (int, error) {
	s.metrics.IncSweepRuns()
	due, err := s.store.ListDueReminders(now, now.Add(reminderLookahead))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, ch := range due {
		if err := s.store.MarkReminderSent(ch.ID); err != nil {
			if league.IsKind(err, league.KindStateConflict) {
				log.Debug("Reminder already sent", "challengeID", ch.ID)
				continue
			}
			return sent, err
		}
		challenger, err := s.store.GetPlayer(ch.ChallengerID)
		if err != nil {
			log.Error("Failed to load challenger for reminder", "error", err, "challengeID", ch.ID)
			continue
		}
		if ch.OpponentID == nil || ch.ScheduledTime == nil {
			continue
		}
		opponent, err := s.store.GetPlayer(*ch.OpponentID)
		if err != nil {
			log.Error("Failed to load opponent for reminder", "error", err, "challengeID", ch.ID)
			continue
		}
		s.notify(fmt.Sprintf("⏰ %s and %s, your match starts at %s!",
			challenger.Tag(), opponent.Tag(), ch.ScheduledTime.Format("15:04")))
		sent++
	}
	if sent > 0 {
		log.Info("Reminder sweep finished", "sent", sent)
	}
	return sent, nil
}

// accepted runs the shared tail of the Respond and Claim accept paths: start
// the live match, count, announce, publish.
func (s *Service) accepted(ch *league.Challenge, challenger, opponent *league.Player) (*league.Challenge, error) {
	if _, err := s.matches.StartFromChallenge(ch); err != nil {
		return nil, err
	}
	s.metrics.IncChallengesAccepted()
	log.Info("Challenge accepted", "challengeID", ch.ID, "challenger", challenger.Name, "opponent", opponent.Name)
	s.notify(fmt.Sprintf("🔥 %s accepted the challenge from %s. The match is on!",
		opponent.DisplayName(), challenger.DisplayName()))
	if err := s.pubsub.SendMessage(pubsub.EventChallengeAccepted, ch); err != nil {
		log.Error("Failed to publish challenge event", "error", err, "challengeID", ch.ID)
	}
	return ch, nil
}

func (s *Service) insert(challengerID string, params IssueParams, status league.ChallengeStatus) (*league.Challenge, error) {
	ch := &league.Challenge{
		ChallengerID:  challengerID,
		OpponentID:    params.OpponentID,
		Status:        status,
		Message:       params.Message,
		ScheduledTime: params.ScheduledTime,
		GameType:      params.GameType,
		RaceTo:        params.RaceTo,
		Handicap:      params.Handicap,
	}
	if err := s.store.InsertChallenge(ch); err != nil {
		return nil, err
	}
	s.metrics.IncChallengesIssued()
	log.Info("Challenge issued", "challengeID", ch.ID, "status", status)
	return ch, nil
}

// resolveActorPlayer maps the caller to their player row, by id first and by
// email as a fallback for legacy-linked accounts.
func (s *Service) resolveActorPlayer(actor league.ActorContext) (*league.Player, error) {
	if actor.ID != "" {
		p, err := s.store.GetPlayer(actor.ID)
		if err == nil {
			return p, nil
		}
		if !league.IsKind(err, league.KindNotFound) {
			return nil, err
		}
	}
	if actor.Email != "" {
		return s.store.GetPlayerByEmail(actor.Email)
	}
	return nil, league.NotFoundf("no player linked to this account")
}

func (s *Service) notify(text string) {
	if err := s.notifier.Send(text); err != nil {
		log.Error("Failed to send challenge notification", "error", err)
	}
}

func challengeDetails(ch *league.Challenge) string {
	details := ""
	if ch.GameType != nil {
		details += fmt.Sprintf(" %s.", *ch.GameType)
	}
	if ch.RaceTo != nil {
		details += fmt.Sprintf(" Race to %d.", *ch.RaceTo)
	}
	if ch.ScheduledTime != nil {
		details += fmt.Sprintf(" Scheduled for %s.", ch.ScheduledTime.Format("Mon 15:04"))
	}
	if ch.Message != nil && *ch.Message != "" {
		details += fmt.Sprintf(" “%s”", *ch.Message)
	}
	return details
}
