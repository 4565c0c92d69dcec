package league

import (
	"sync"
	"time"
)

// MockStore is a mock implementation of the LeagueStore interface for
// testing. It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	CreatePlayerFunc              func(p *Player) error
	GetPlayerFunc                 func(id string) (*Player, error)
	GetPlayerByEmailFunc          func(email string) (*Player, error)
	ListPlayersFunc               func() ([]Player, error)
	CountApprovedMatchesFunc      func(playerID string) (int, error)
	InsertMatchFunc               func(m *Match) error
	GetMatchFunc                  func(id string) (*Match, error)
	ListMatchesByStatusFunc       func(status MatchStatus) ([]Match, error)
	FindLiveMatchFunc             func(player1ID, player2ID string) (*Match, error)
	UpdateMatchScoreFunc          func(id string, player1Score, player2Score int) error
	MarkWaitingConfirmationFunc   func(id, submitterID string) error
	ApproveMatchFunc              func(a MatchApproval) error
	CancelMatchFunc               func(c MatchCancellation) error
	DeleteMatchFunc               func(id string) error
	InsertChallengeFunc           func(c *Challenge) error
	GetChallengeFunc              func(id string) (*Challenge, error)
	UpdateChallengeStatusFunc     func(id string, from, to ChallengeStatus) error
	ClaimOpenChallengeFunc        func(id, opponentID string) (*Challenge, error)
	ListExpiredOpenChallengesFunc func(now time.Time) ([]Challenge, error)
	ListDueRemindersFunc          func(from, to time.Time) ([]Challenge, error)
	MarkReminderSentFunc          func(id string) error

	// Call records
	ApproveMatchCalls     []MatchApproval
	CancelMatchCalls      []MatchCancellation
	InsertMatchCalls      []*Match
	InsertChallengeCalls  []*Challenge
	DeleteMatchCalls      []string
	MarkReminderSentCalls []string
	ClaimCalls            []struct{ ChallengeID, OpponentID string }
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) CreatePlayer(p *Player) error {
	if m.CreatePlayerFunc != nil {
		return m.CreatePlayerFunc(p)
	}
	return nil
}

func (m *MockStore) GetPlayer(id string) (*Player, error) {
	if m.GetPlayerFunc != nil {
		return m.GetPlayerFunc(id)
	}
	return nil, NotFoundf("player not found")
}

func (m *MockStore) GetPlayerByEmail(email string) (*Player, error) {
	if m.GetPlayerByEmailFunc != nil {
		return m.GetPlayerByEmailFunc(email)
	}
	return nil, NotFoundf("player not found")
}

func (m *MockStore) ListPlayers() ([]Player, error) {
	if m.ListPlayersFunc != nil {
		return m.ListPlayersFunc()
	}
	return nil, nil
}

func (m *MockStore) CountApprovedMatches(playerID string) (int, error) {
	if m.CountApprovedMatchesFunc != nil {
		return m.CountApprovedMatchesFunc(playerID)
	}
	return 0, nil
}

func (m *MockStore) InsertMatch(match *Match) error {
	m.mu.Lock()
	m.InsertMatchCalls = append(m.InsertMatchCalls, match)
	m.mu.Unlock()
	if m.InsertMatchFunc != nil {
		return m.InsertMatchFunc(match)
	}
	return nil
}

func (m *MockStore) GetMatch(id string) (*Match, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(id)
	}
	return nil, NotFoundf("match not found")
}

func (m *MockStore) ListMatchesByStatus(status MatchStatus) ([]Match, error) {
	if m.ListMatchesByStatusFunc != nil {
		return m.ListMatchesByStatusFunc(status)
	}
	return nil, nil
}

func (m *MockStore) FindLiveMatch(player1ID, player2ID string) (*Match, error) {
	if m.FindLiveMatchFunc != nil {
		return m.FindLiveMatchFunc(player1ID, player2ID)
	}
	return nil, NotFoundf("no live match for these players")
}

func (m *MockStore) UpdateMatchScore(id string, player1Score, player2Score int) error {
	if m.UpdateMatchScoreFunc != nil {
		return m.UpdateMatchScoreFunc(id, player1Score, player2Score)
	}
	return nil
}

func (m *MockStore) MarkWaitingConfirmation(id, submitterID string) error {
	if m.MarkWaitingConfirmationFunc != nil {
		return m.MarkWaitingConfirmationFunc(id, submitterID)
	}
	return nil
}

func (m *MockStore) ApproveMatch(a MatchApproval) error {
	m.mu.Lock()
	m.ApproveMatchCalls = append(m.ApproveMatchCalls, a)
	m.mu.Unlock()
	if m.ApproveMatchFunc != nil {
		return m.ApproveMatchFunc(a)
	}
	return nil
}

func (m *MockStore) CancelMatch(c MatchCancellation) error {
	m.mu.Lock()
	m.CancelMatchCalls = append(m.CancelMatchCalls, c)
	m.mu.Unlock()
	if m.CancelMatchFunc != nil {
		return m.CancelMatchFunc(c)
	}
	return nil
}

func (m *MockStore) DeleteMatch(id string) error {
	m.mu.Lock()
	m.DeleteMatchCalls = append(m.DeleteMatchCalls, id)
	m.mu.Unlock()
	if m.DeleteMatchFunc != nil {
		return m.DeleteMatchFunc(id)
	}
	return nil
}

func (m *MockStore) InsertChallenge(c *Challenge) error {
	m.mu.Lock()
	m.InsertChallengeCalls = append(m.InsertChallengeCalls, c)
	m.mu.Unlock()
	if m.InsertChallengeFunc != nil {
		return m.InsertChallengeFunc(c)
	}
	return nil
}

func (m *MockStore) GetChallenge(id string) (*Challenge, error) {
	if m.GetChallengeFunc != nil {
		return m.GetChallengeFunc(id)
	}
	return nil, NotFoundf("challenge not found")
}

func (m *MockStore) UpdateChallengeStatus(id string, from, to ChallengeStatus) error {
	if m.UpdateChallengeStatusFunc != nil {
		return m.UpdateChallengeStatusFunc(id, from, to)
	}
	return nil
}

func (m *MockStore) ClaimOpenChallenge(id, opponentID string) (*Challenge, error) {
	m.mu.Lock()
	m.ClaimCalls = append(m.ClaimCalls, struct{ ChallengeID, OpponentID string }{id, opponentID})
	m.mu.Unlock()
	if m.ClaimOpenChallengeFunc != nil {
		return m.ClaimOpenChallengeFunc(id, opponentID)
	}
	return nil, StateConflictf("challenge already claimed")
}

func (m *MockStore) ListExpiredOpenChallenges(now time.Time) ([]Challenge, error) {
	if m.ListExpiredOpenChallengesFunc != nil {
		return m.ListExpiredOpenChallengesFunc(now)
	}
	return nil, nil
}

func (m *MockStore) ListDueReminders(from, to time.Time) ([]Challenge, error) {
	if m.ListDueRemindersFunc != nil {
		return m.ListDueRemindersFunc(from, to)
	}
	return nil, nil
}

func (m *MockStore) MarkReminderSent(id string) error {
	m.mu.Lock()
	m.MarkReminderSentCalls = append(m.MarkReminderSentCalls, id)
	m.mu.Unlock()
	if m.MarkReminderSentFunc != nil {
		return m.MarkReminderSentFunc(id)
	}
	return nil
}
