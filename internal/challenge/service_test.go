package challenge_test

import (
	"testing"
	"time"

	"github.com/longth-dev/billiard-ladder/internal/challenge"
	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/metrics"
	"github.com/longth-dev/billiard-ladder/internal/notifier"
	"github.com/longth-dev/billiard-ladder/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMatchStarter is a mock implementation of the MatchStarter interface.
type mockMatchStarter struct {
	StartFunc  func(ch *league.Challenge) (*league.Match, error)
	CancelFunc func(actor league.ActorContext, id string) (*league.Match, error)

	StartCalls  []*league.Challenge
	CancelCalls []string
}

func (m *mockMatchStarter) StartFromChallenge(ch *league.Challenge) (*league.Match, error) {
	m.StartCalls = append(m.StartCalls, ch)
	if m.StartFunc != nil {
		return m.StartFunc(ch)
	}
	return &league.Match{ID: "m-spawned", Status: league.MatchLive}, nil
}

func (m *mockMatchStarter) Cancel(actor league.ActorContext, id string) (*league.Match, error) {
	m.CancelCalls = append(m.CancelCalls, id)
	if m.CancelFunc != nil {
		return m.CancelFunc(actor, id)
	}
	return &league.Match{ID: id, Status: league.MatchCancelled}, nil
}

type fixture struct {
	store   *league.MockStore
	matches *mockMatchStarter
	notif   *notifier.Mock
	metrics *metrics.Mock
	events  *pubsub.MockPubSubClient
	svc     *challenge.Service

	alice *league.Player
	bob   *league.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   league.NewMock(),
		matches: &mockMatchStarter{},
		notif:   notifier.NewMock(),
		metrics: metrics.NewMock(),
		events:  pubsub.NewMock(),
		alice:   &league.Player{ID: "p-alice", Name: "Alice Adams", Email: "alice@club.test", Elo: 1000},
		bob:     &league.Player{ID: "p-bob", Name: "Bob Brown", Email: "bob@club.test", Elo: 1000},
	}
	f.store.GetPlayerFunc = func(id string) (*league.Player, error) {
		switch id {
		case f.alice.ID:
			return f.alice, nil
		case f.bob.ID:
			return f.bob, nil
		}
		return nil, league.NotFoundf("player not found")
	}
	f.svc = challenge.New(f.store, f.matches, f.notif, f.metrics, f.events)
	return f
}

func (f *fixture) serve(ch league.Challenge) {
	f.store.GetChallengeFunc = func(id string) (*league.Challenge, error) {
		if id == ch.ID {
			copied := ch
			return &copied, nil
		}
		return nil, league.NotFoundf("challenge not found")
	}
}

func asActor(p *league.Player) league.ActorContext {
	return league.ActorContext{ID: p.ID, Email: p.Email}
}

func TestIssue_CannotChallengeSelf(t *testing.T) {
	f := newFixture(t)

	opponent := "p-alice"
	_, err := f.svc.Issue(asActor(f.alice), challenge.IssueParams{OpponentID: &opponent})
	assert.True(t, league.IsKind(err, league.KindValidation))
	assert.Empty(t, f.store.InsertChallengeCalls)
}

func TestIssue_Targeted(t *testing.T) {
	f := newFixture(t)

	opponent := "p-bob"
	gameType := "9-ball"
	ch, err := f.svc.Issue(asActor(f.alice), challenge.IssueParams{OpponentID: &opponent, GameType: &gameType})
	require.NoError(t, err)

	assert.Equal(t, league.ChallengePending, ch.Status)
	require.NotNil(t, ch.OpponentID)
	assert.Equal(t, "p-bob", *ch.OpponentID)
	require.Len(t, f.store.InsertChallengeCalls, 1)
	assert.Len(t, f.notif.Sent(), 1)
}

func TestIssue_UnknownOpponent(t *testing.T) {
	f := newFixture(t)

	opponent := "p-ghost"
	_, err := f.svc.Issue(asActor(f.alice), challenge.IssueParams{OpponentID: &opponent})
	assert.True(t, league.IsKind(err, league.KindNotFound))
}

func TestIssueOpen_HasNoOpponent(t *testing.T) {
	f := newFixture(t)

	// Even a sneaky opponent id in the params must not survive.
	opponent := "p-bob"
	ch, err := f.svc.IssueOpen(asActor(f.alice), challenge.IssueParams{OpponentID: &opponent})
	require.NoError(t, err)

	assert.Equal(t, league.ChallengeOpen, ch.Status)
	assert.Nil(t, ch.OpponentID)
}

func TestIssue_EmailFallbackResolvesChallenger(t *testing.T) {
	f := newFixture(t)
	f.store.GetPlayerByEmailFunc = func(email string) (*league.Player, error) {
		if email == "alice@club.test" {
			return f.alice, nil
		}
		return nil, league.NotFoundf("player not found")
	}

	opponent := "p-bob"
	actor := league.ActorContext{ID: "auth-legacy-12", Email: "alice@club.test"}
	ch, err := f.svc.Issue(actor, challenge.IssueParams{OpponentID: &opponent})
	require.NoError(t, err)
	assert.Equal(t, "p-alice", ch.ChallengerID)
}

func TestRespond_OnlyNamedOpponent(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengePending})

	_, err := f.svc.Respond(asActor(f.alice), "c1", true)
	assert.True(t, league.IsKind(err, league.KindAuthorization), "the challenger cannot accept their own challenge")
}

func TestRespond_AcceptSpawnsMatch(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengePending})

	var from, to league.ChallengeStatus
	f.store.UpdateChallengeStatusFunc = func(id string, f2, t2 league.ChallengeStatus) error {
		from, to = f2, t2
		return nil
	}

	ch, err := f.svc.Respond(asActor(f.bob), "c1", true)
	require.NoError(t, err)
	assert.Equal(t, league.ChallengeAccepted, ch.Status)
	assert.Equal(t, league.ChallengePending, from)
	assert.Equal(t, league.ChallengeAccepted, to)

	require.Len(t, f.matches.StartCalls, 1)
	require.Len(t, f.events.SendMessageCalls, 1)
	assert.Equal(t, "challenge-accepted", f.events.SendMessageCalls[0].Topic)
}

func TestRespond_Reject(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengePending})

	ch, err := f.svc.Respond(asActor(f.bob), "c1", false)
	require.NoError(t, err)
	assert.Equal(t, league.ChallengeRejected, ch.Status)
	assert.Empty(t, f.matches.StartCalls, "rejecting must not spawn a match")
	assert.Len(t, f.notif.Sent(), 1)
}

func TestRespond_WrongStatus(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengeCancelled})

	_, err := f.svc.Respond(asActor(f.bob), "c1", true)
	assert.True(t, league.IsKind(err, league.KindStateConflict))
}

func TestClaim_CannotClaimOwn(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", Status: league.ChallengeOpen})

	_, err := f.svc.Claim(asActor(f.alice), "c1")
	assert.True(t, league.IsKind(err, league.KindValidation))
	assert.Empty(t, f.store.ClaimCalls)
}

func TestClaim_WinnerStartsMatch(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", Status: league.ChallengeOpen})

	opponent := "p-bob"
	f.store.ClaimOpenChallengeFunc = func(id, opponentID string) (*league.Challenge, error) {
		return &league.Challenge{ID: id, ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengeAccepted}, nil
	}

	ch, err := f.svc.Claim(asActor(f.bob), "c1")
	require.NoError(t, err)
	assert.Equal(t, league.ChallengeAccepted, ch.Status)
	require.Len(t, f.store.ClaimCalls, 1)
	assert.Equal(t, "p-bob", f.store.ClaimCalls[0].OpponentID)
	require.Len(t, f.matches.StartCalls, 1)
	require.Len(t, f.events.SendMessageCalls, 1)
	assert.Equal(t, "challenge-accepted", f.events.SendMessageCalls[0].Topic)
}

func TestClaim_LoserGetsConflict(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", Status: league.ChallengeOpen})

	// The mock's default claim behavior is the losing side of the race.
	_, err := f.svc.Claim(asActor(f.bob), "c1")
	assert.True(t, league.IsKind(err, league.KindStateConflict))
	assert.Empty(t, f.matches.StartCalls, "a lost claim race must not spawn a match")
}

func TestCancel_ChallengerRetractsPending(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengePending})

	ch, err := f.svc.Cancel(asActor(f.alice), "c1")
	require.NoError(t, err)
	assert.Equal(t, league.ChallengeCancelled, ch.Status)
	assert.Empty(t, f.matches.CancelCalls, "no penalty before a match exists")
}

func TestCancel_OpponentCannotRetractPending(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengePending})

	_, err := f.svc.Cancel(asActor(f.bob), "c1")
	assert.True(t, league.IsKind(err, league.KindAuthorization))
}

func TestCancel_AcceptedCascadesToLiveMatch(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengeAccepted})

	f.store.FindLiveMatchFunc = func(p1, p2 string) (*league.Match, error) {
		return &league.Match{ID: "m-live", Player1ID: p1, Player2ID: p2, Status: league.MatchLive}, nil
	}

	ch, err := f.svc.Cancel(asActor(f.bob), "c1")
	require.NoError(t, err)
	assert.Equal(t, league.ChallengeCancelled, ch.Status)
	assert.Equal(t, []string{"m-live"}, f.matches.CancelCalls, "the live match is abandoned with its penalty")
}

func TestCancel_AcceptedWithoutLiveMatch(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengeAccepted})

	ch, err := f.svc.Cancel(asActor(f.alice), "c1")
	require.NoError(t, err)
	assert.Equal(t, league.ChallengeCancelled, ch.Status)
	assert.Empty(t, f.matches.CancelCalls)
}

func TestCancel_TerminalStatusConflicts(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Challenge{ID: "c1", ChallengerID: "p-alice", Status: league.ChallengeRejected})

	_, err := f.svc.Cancel(asActor(f.alice), "c1")
	assert.True(t, league.IsKind(err, league.KindStateConflict))
}

func TestExpireOpenChallenges_SkipsClaimed(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	past := now.Add(-time.Hour)

	f.store.ListExpiredOpenChallengesFunc = func(t time.Time) ([]league.Challenge, error) {
		return []league.Challenge{
			{ID: "c1", ChallengerID: "p-alice", Status: league.ChallengeOpen, ScheduledTime: &past},
			{ID: "c2", ChallengerID: "p-bob", Status: league.ChallengeOpen, ScheduledTime: &past},
		}, nil
	}
	var targets []league.ChallengeStatus
	f.store.UpdateChallengeStatusFunc = func(id string, from, to league.ChallengeStatus) error {
		targets = append(targets, to)
		if id == "c2" {
			// Claimed between listing and flipping.
			return league.StateConflictf("challenge is no longer OPEN")
		}
		return nil
	}

	rejected, err := f.svc.ExpireOpenChallenges(now)
	require.NoError(t, err)
	assert.Equal(t, 1, rejected, "a challenge claimed mid-sweep is skipped, not an error")
	for _, to := range targets {
		assert.Equal(t, league.ChallengeRejected, to, "an unclaimed open challenge expires to REJECTED")
	}
}

func TestSendReminders_MarksBeforeNotifying(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	soon := now.Add(20 * time.Minute)
	opponent := "p-bob"

	f.store.ListDueRemindersFunc = func(from, to time.Time) ([]league.Challenge, error) {
		return []league.Challenge{
			{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengeAccepted, ScheduledTime: &soon},
		}, nil
	}

	sent, err := f.svc.SendReminders(now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"c1"}, f.store.MarkReminderSentCalls)
	assert.Len(t, f.notif.Sent(), 1)
}

func TestSendReminders_SecondSweepIsNoop(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	soon := now.Add(20 * time.Minute)
	opponent := "p-bob"

	f.store.ListDueRemindersFunc = func(from, to time.Time) ([]league.Challenge, error) {
		return []league.Challenge{
			{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Status: league.ChallengeAccepted, ScheduledTime: &soon},
		}, nil
	}
	f.store.MarkReminderSentFunc = func(id string) error {
		return league.StateConflictf("reminder already sent")
	}

	sent, err := f.svc.SendReminders(now)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, f.notif.Sent(), "a racing second sweep must not double-remind")
}
