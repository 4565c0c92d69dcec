package match_test

import (
	"testing"

	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/match"
	"github.com/longth-dev/billiard-ladder/internal/metrics"
	"github.com/longth-dev/billiard-ladder/internal/notifier"
	"github.com/longth-dev/billiard-ladder/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *league.MockStore
	notif   *notifier.Mock
	metrics *metrics.Mock
	events  *pubsub.MockPubSubClient
	svc     *match.Service

	alice *league.Player
	bob   *league.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   league.NewMock(),
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
	f.svc = match.New(f.store, f.notif, f.metrics, f.events)
	return f
}

// serve makes GetMatch return a copy of the given match.
func (f *fixture) serve(m league.Match) {
	f.store.GetMatchFunc = func(id string) (*league.Match, error) {
		if id == m.ID {
			copied := m
			return &copied, nil
		}
		return nil, league.NotFoundf("match not found")
	}
}

func asActor(p *league.Player) league.ActorContext {
	return league.ActorContext{ID: p.ID, Email: p.Email}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(asActor(f.alice), match.CreateParams{Player1ID: "p-alice", Player2ID: "p-alice", Player1Score: 5, Player2Score: 3})
	assert.True(t, league.IsKind(err, league.KindValidation), "same player on both sides must be rejected")

	_, err = f.svc.Create(asActor(f.alice), match.CreateParams{Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: -1, Player2Score: 3})
	assert.True(t, league.IsKind(err, league.KindValidation), "negative scores must be rejected")

	_, err = f.svc.Create(asActor(f.alice), match.CreateParams{Player1ID: "p-alice", Player2ID: "p-ghost", Player1Score: 5, Player2Score: 3})
	assert.True(t, league.IsKind(err, league.KindNotFound))
}

func TestCreate_NonAdminIsPending(t *testing.T) {
	f := newFixture(t)

	m, err := f.svc.Create(asActor(f.alice), match.CreateParams{Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 7, Player2Score: 3})
	require.NoError(t, err)

	assert.Equal(t, league.MatchPending, m.Status)
	require.NotNil(t, m.SubmitterID)
	assert.Equal(t, "p-alice", *m.SubmitterID, "the creating participant is recorded as submitter")
	assert.Zero(t, m.EloDelta1, "no ratings move before confirmation")
	require.Len(t, f.store.InsertMatchCalls, 1)
	assert.Empty(t, f.store.ApproveMatchCalls)
	assert.Len(t, f.notif.Sent(), 1, "the opponent should be asked to confirm")
}

func TestCreate_AdminApprovesImmediately(t *testing.T) {
	f := newFixture(t)

	actor := league.ActorContext{ID: "admin-1", IsAdmin: true}
	m, err := f.svc.Create(actor, match.CreateParams{Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 7, Player2Score: 3})
	require.NoError(t, err)

	assert.Equal(t, league.MatchApproved, m.Status)
	require.NotNil(t, m.WinnerID)
	assert.Equal(t, "p-alice", *m.WinnerID)
	// Equal baselines, both provisional, 7-3: K * 0.5 * sqrt(4) = 32.
	assert.Equal(t, 32, m.EloDelta1)
	assert.Equal(t, -32, m.EloDelta2)

	require.Len(t, f.store.ApproveMatchCalls, 1)
	approval := f.store.ApproveMatchCalls[0]
	assert.Equal(t, league.MatchPending, approval.ExpectedStatus)
	assert.Equal(t, 1032, approval.Player1.Elo)
	assert.Equal(t, 1, approval.Player1.Wins)
	assert.Equal(t, 968, approval.Player2.Elo)
	assert.Equal(t, 1, approval.Player2.Losses)

	assert.Equal(t, 1, f.metrics.MatchesApproved())
	require.Len(t, f.events.SendMessageCalls, 1)
	assert.Equal(t, "match-approved", f.events.SendMessageCalls[0].Topic)
}

func TestConfirm_SubmitterCannotSelfConfirm(t *testing.T) {
	f := newFixture(t)
	submitter := "p-alice"
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 5, Player2Score: 2, Status: league.MatchPending, SubmitterID: &submitter})

	_, err := f.svc.Confirm(asActor(f.alice), "m1")
	assert.True(t, league.IsKind(err, league.KindAuthorization))
	assert.Empty(t, f.store.ApproveMatchCalls)
}

func TestConfirm_NonParticipantForbidden(t *testing.T) {
	f := newFixture(t)
	submitter := "p-alice"
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchPending, SubmitterID: &submitter})

	_, err := f.svc.Confirm(league.ActorContext{ID: "p-carol", Email: "carol@club.test"}, "m1")
	assert.True(t, league.IsKind(err, league.KindAuthorization))
}

func TestConfirm_OpponentApproves(t *testing.T) {
	f := newFixture(t)
	submitter := "p-alice"
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 5, Player2Score: 2, Status: league.MatchPending, SubmitterID: &submitter})

	m, err := f.svc.Confirm(asActor(f.bob), "m1")
	require.NoError(t, err)
	assert.Equal(t, league.MatchApproved, m.Status)
	require.Len(t, f.store.ApproveMatchCalls, 1)
	assert.Equal(t, league.MatchPending, f.store.ApproveMatchCalls[0].ExpectedStatus)
}

func TestConfirm_EmailFallbackIdentifiesParticipant(t *testing.T) {
	f := newFixture(t)
	submitter := "p-alice"
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 5, Player2Score: 2, Status: league.MatchPending, SubmitterID: &submitter})

	// Legacy-linked account: the auth id matches no player row, but the
	// email identifies the opponent.
	actor := league.ActorContext{ID: "auth-legacy-77", Email: "bob@club.test"}
	m, err := f.svc.Confirm(actor, "m1")
	require.NoError(t, err)
	assert.Equal(t, league.MatchApproved, m.Status)
}

func TestConfirm_WrongStatus(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchApproved})

	_, err := f.svc.Confirm(asActor(f.bob), "m1")
	assert.True(t, league.IsKind(err, league.KindStateConflict))
}

func TestReject_DeletesPendingMatch(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchPending})

	require.NoError(t, f.svc.Reject(asActor(f.bob), "m1"))
	assert.Equal(t, []string{"m1"}, f.store.DeleteMatchCalls)

	err := f.svc.Reject(league.ActorContext{ID: "p-carol"}, "m1")
	assert.True(t, league.IsKind(err, league.KindAuthorization))
}

func TestUpdateScore_ClampsAtZero(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchLive})

	var gotS1, gotS2 int
	f.store.UpdateMatchScoreFunc = func(id string, s1, s2 int) error {
		gotS1, gotS2 = s1, s2
		return nil
	}

	m, err := f.svc.UpdateScore(asActor(f.alice), "m1", -3, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, gotS1)
	assert.Equal(t, 4, gotS2)
	assert.Equal(t, 0, m.Player1Score)
}

func TestFinish_LiveRecordsSubmitter(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 5, Player2Score: 4, Status: league.MatchLive})

	var gotSubmitter string
	f.store.MarkWaitingConfirmationFunc = func(id, submitterID string) error {
		gotSubmitter = submitterID
		return nil
	}

	m, err := f.svc.Finish(asActor(f.alice), "m1")
	require.NoError(t, err)
	assert.Equal(t, league.MatchWaitingConfirmation, m.Status)
	assert.Equal(t, "p-alice", gotSubmitter)
	assert.Len(t, f.notif.Sent(), 1)
	assert.Empty(t, f.store.ApproveMatchCalls, "a single finish must not approve")
}

func TestFinish_ConfirmationBySubmitterForbidden(t *testing.T) {
	f := newFixture(t)
	submitter := "p-alice"
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 5, Player2Score: 4, Status: league.MatchWaitingConfirmation, SubmitterID: &submitter})

	_, err := f.svc.Finish(asActor(f.alice), "m1")
	assert.True(t, league.IsKind(err, league.KindAuthorization))
}

func TestFinish_ConfirmationByOpponentApproves(t *testing.T) {
	f := newFixture(t)
	submitter := "p-alice"
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 5, Player2Score: 4, Status: league.MatchWaitingConfirmation, SubmitterID: &submitter})

	m, err := f.svc.Finish(asActor(f.bob), "m1")
	require.NoError(t, err)
	assert.Equal(t, league.MatchApproved, m.Status)
	require.Len(t, f.store.ApproveMatchCalls, 1)
	assert.Equal(t, league.MatchWaitingConfirmation, f.store.ApproveMatchCalls[0].ExpectedStatus)
}

func TestFinish_AdminBypassesSubmitterCheck(t *testing.T) {
	f := newFixture(t)
	submitter := "p-alice"
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 5, Player2Score: 4, Status: league.MatchWaitingConfirmation, SubmitterID: &submitter})

	actor := league.ActorContext{ID: "p-alice", Email: "alice@club.test", IsAdmin: true}
	m, err := f.svc.Finish(actor, "m1")
	require.NoError(t, err)
	assert.Equal(t, league.MatchApproved, m.Status)
}

func TestFinish_TerminalStatusConflicts(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchCancelled})

	_, err := f.svc.Finish(asActor(f.alice), "m1")
	assert.True(t, league.IsKind(err, league.KindStateConflict))
}

func TestCancel_ChargesCanceller(t *testing.T) {
	f := newFixture(t)
	f.alice.Wins = 3
	f.bob.Losses = 2
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchLive})

	m, err := f.svc.Cancel(asActor(f.bob), "m1")
	require.NoError(t, err)
	assert.Equal(t, league.MatchCancelled, m.Status)
	assert.Equal(t, 20, m.EloDelta1)
	assert.Equal(t, -20, m.EloDelta2)

	require.Len(t, f.store.CancelMatchCalls, 1)
	c := f.store.CancelMatchCalls[0]
	assert.Equal(t, 1020, c.Player1.Elo)
	assert.Equal(t, 980, c.Player2.Elo)
	assert.Equal(t, 3, c.Player1.Wins, "win/loss records stay untouched")
	assert.Equal(t, 2, c.Player2.Losses)

	assert.Equal(t, 1, f.metrics.MatchesCancelled())
	require.Len(t, f.events.SendMessageCalls, 1)
	assert.Equal(t, "match-cancelled", f.events.SendMessageCalls[0].Topic)
}

func TestCancel_AdminChargesRecordedSubmitter(t *testing.T) {
	f := newFixture(t)
	submitter := "p-bob"
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchWaitingConfirmation, SubmitterID: &submitter})

	actor := league.ActorContext{ID: "admin-1", IsAdmin: true}
	m, err := f.svc.Cancel(actor, "m1")
	require.NoError(t, err)
	assert.Equal(t, 20, m.EloDelta1)
	assert.Equal(t, -20, m.EloDelta2, "the recorded submitter pays the penalty")
}

func TestCancel_NonParticipantForbidden(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchLive})

	_, err := f.svc.Cancel(league.ActorContext{ID: "p-carol"}, "m1")
	assert.True(t, league.IsKind(err, league.KindAuthorization))
	assert.Empty(t, f.store.CancelMatchCalls)
}

func TestCancel_TerminalStatusConflicts(t *testing.T) {
	f := newFixture(t)
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchApproved})

	_, err := f.svc.Cancel(asActor(f.alice), "m1")
	assert.True(t, league.IsKind(err, league.KindStateConflict))
}

func TestStartFromChallenge_AppliesHandicap(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	handicap := 3
	ch := &league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent, Handicap: &handicap}

	m, err := f.svc.StartFromChallenge(ch)
	require.NoError(t, err)
	assert.Equal(t, league.MatchLive, m.Status)
	assert.Equal(t, 0, m.Player1Score)
	assert.Equal(t, 3, m.Player2Score, "the handicap becomes the opponent's head start")
	require.Len(t, f.store.InsertMatchCalls, 1)
}

func TestStartFromChallenge_ReusesExistingLiveMatch(t *testing.T) {
	f := newFixture(t)
	opponent := "p-bob"
	existing := &league.Match{ID: "m-live", Player1ID: "p-alice", Player2ID: "p-bob", Status: league.MatchLive}
	f.store.FindLiveMatchFunc = func(p1, p2 string) (*league.Match, error) {
		return existing, nil
	}

	ch := &league.Challenge{ID: "c1", ChallengerID: "p-alice", OpponentID: &opponent}
	m, err := f.svc.StartFromChallenge(ch)
	require.NoError(t, err)
	assert.Equal(t, "m-live", m.ID)
	assert.Empty(t, f.store.InsertMatchCalls, "no duplicate live match may be spawned")
}

func TestStartFromChallenge_RequiresOpponent(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.StartFromChallenge(&league.Challenge{ID: "c1", ChallengerID: "p-alice"})
	assert.True(t, league.IsKind(err, league.KindValidation))
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.notif.SendFunc = func(text string) error { return assert.AnError }
	f.serve(league.Match{ID: "m1", Player1ID: "p-alice", Player2ID: "p-bob", Player1Score: 5, Player2Score: 4, Status: league.MatchLive})

	_, err := f.svc.Finish(asActor(f.alice), "m1")
	require.NoError(t, err, "a dead chat integration must never block a transition")
}
