package league

import "time"

// LeagueStore defines the interface for interacting with the league's data.
// Every finalize/cancel/claim write is a conditional update keyed on the
// expected prior state; a write that finds the state already changed returns
// a state-conflict error instead of clobbering it.
type LeagueStore interface {
	// Players
	CreatePlayer(p *Player) error
	GetPlayer(id string) (*Player, error)
	GetPlayerByEmail(email string) (*Player, error)
	ListPlayers() ([]Player, error)
	CountApprovedMatches(playerID string) (int, error)

	// Matches
	InsertMatch(m *Match) error
	GetMatch(id string) (*Match, error)
	ListMatchesByStatus(status MatchStatus) ([]Match, error)
	FindLiveMatch(player1ID, player2ID string) (*Match, error)
	UpdateMatchScore(id string, player1Score, player2Score int) error
	MarkWaitingConfirmation(id, submitterID string) error
	ApproveMatch(a MatchApproval) error
	CancelMatch(c MatchCancellation) error
	DeleteMatch(id string) error

	// Challenges
	InsertChallenge(c *Challenge) error
	GetChallenge(id string) (*Challenge, error)
	UpdateChallengeStatus(id string, from, to ChallengeStatus) error
	ClaimOpenChallenge(id, opponentID string) (*Challenge, error)
	ListExpiredOpenChallenges(now time.Time) ([]Challenge, error)
	ListDueReminders(from, to time.Time) ([]Challenge, error)
	MarkReminderSent(id string) error
}
