package league

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// store handles all database operations for the league.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// BaselineElo is the rating every new player starts at.
const BaselineElo = 1000

// MatchStatus tracks a match through its lifecycle. APPROVED and CANCELLED
// are terminal.
type MatchStatus string

const (
	MatchLive                MatchStatus = "LIVE"
	MatchWaitingConfirmation MatchStatus = "WAITING_CONFIRMATION"
	MatchPending             MatchStatus = "PENDING"
	MatchApproved            MatchStatus = "APPROVED"
	MatchCancelled           MatchStatus = "CANCELLED"
)

// ChallengeStatus tracks a challenge through its lifecycle.
type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "PENDING"
	ChallengeOpen      ChallengeStatus = "OPEN"
	ChallengeAccepted  ChallengeStatus = "ACCEPTED"
	ChallengeRejected  ChallengeStatus = "REJECTED"
	ChallengeCancelled ChallengeStatus = "CANCELLED"
)

// Player is a club member. The ID is the same as the authentication
// principal's id; Email is kept as a fallback for legacy-linked accounts
// whose auth id never matched their player row.
type Player struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Nickname          *string `json:"nickname,omitempty"`
	NicknamePlacement string  `json:"nickname_placement"`
	Email             string  `json:"email"`
	SlackHandle       *string `json:"slack_handle,omitempty"`
	Elo               int     `json:"elo"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	CreatedAt         time.Time
}

// Match is a single game between two players. Wins/losses and elo deltas are
// only meaningful once the match reaches a terminal status.
type Match struct {
	ID            string      `json:"id"`
	Player1ID     string      `json:"player1_id"`
	Player2ID     string      `json:"player2_id"`
	Player1Score  int         `json:"player1_score"`
	Player2Score  int         `json:"player2_score"`
	Status        MatchStatus `json:"status"`
	WinnerID      *string     `json:"winner_id,omitempty"`
	EloDelta1     int         `json:"elo_delta1"`
	EloDelta2     int         `json:"elo_delta2"`
	SubmitterID   *string     `json:"submitter_id,omitempty"`
	ScheduledTime *time.Time  `json:"scheduled_time,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Challenge is an invitation to play. An OPEN challenge has no opponent yet
// and can be claimed by anyone on a first-come basis.
type Challenge struct {
	ID            string          `json:"id"`
	ChallengerID  string          `json:"challenger_id"`
	OpponentID    *string         `json:"opponent_id,omitempty"`
	Status        ChallengeStatus `json:"status"`
	Message       *string         `json:"message,omitempty"`
	ScheduledTime *time.Time      `json:"scheduled_time,omitempty"`
	GameType      *string         `json:"game_type,omitempty"`
	RaceTo        *int            `json:"race_to,omitempty"`
	Handicap      *int            `json:"handicap,omitempty"`
	ReminderSent  bool            `json:"reminder_sent"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DisplayName renders the player's name with their nickname woven in. The
// default "middle" placement puts the nickname between first and last name,
// pool-hall style: Rudolf "Minnesota Fats" Wanderone.
func (p *Player) DisplayName() string {
	if p.Nickname == nil || *p.Nickname == "" {
		return p.Name
	}
	nick := fmt.Sprintf("%q", *p.Nickname)
	switch p.NicknamePlacement {
	case "prefix":
		return nick + " " + p.Name
	case "suffix":
		return p.Name + " " + nick
	default:
		first, rest, found := strings.Cut(p.Name, " ")
		if !found {
			return p.Name + " " + nick
		}
		return first + " " + nick + " " + rest
	}
}

// Tag is how the player is addressed in chat messages: their Slack handle when
// linked, otherwise their plain name.
func (p *Player) Tag() string {
	if p.SlackHandle != nil && *p.SlackHandle != "" {
		return *p.SlackHandle
	}
	return p.Name
}

// ActorContext is the caller's resolved identity. It is resolved once at the
// boundary layer and passed into every state-machine operation, so the core
// never talks to the auth system itself.
type ActorContext struct {
	ID      string
	Email   string
	IsAdmin bool
}

// ParticipantRole says which side of a match (if any) an actor is on.
type ParticipantRole int

const (
	RoleNone ParticipantRole = iota
	RolePlayer1
	RolePlayer2
)

// ResolveParticipantRole identifies the actor as one of the two match
// participants, matching by player id first and by email as a fallback for
// legacy-linked accounts. Every transition goes through this one check.
func ResolveParticipantRole(m *Match, p1, p2 *Player, actor ActorContext) ParticipantRole {
	if actor.ID != "" {
		if actor.ID == m.Player1ID {
			return RolePlayer1
		}
		if actor.ID == m.Player2ID {
			return RolePlayer2
		}
	}
	if actor.Email != "" {
		if p1 != nil && p1.Email == actor.Email {
			return RolePlayer1
		}
		if p2 != nil && p2.Email == actor.Email {
			return RolePlayer2
		}
	}
	return RoleNone
}

// RatingUpdate carries the new rating fields for one player as part of an
// atomic match finalization.
type RatingUpdate struct {
	PlayerID string
	Elo      int
	Wins     int
	Losses   int
}

// MatchApproval is everything needed to flip a match to APPROVED and apply
// both players' ratings in a single transaction. The status flip is
// conditional on ExpectedStatus so racing confirmers cannot both succeed.
type MatchApproval struct {
	MatchID        string
	ExpectedStatus MatchStatus
	WinnerID       *string
	Delta1         int
	Delta2         int
	Player1        RatingUpdate
	Player2        RatingUpdate
}

// MatchCancellation flips a LIVE or WAITING_CONFIRMATION match to CANCELLED
// and applies the fixed penalty, atomically. Wins/losses are untouched.
type MatchCancellation struct {
	MatchID string
	Delta1  int
	Delta2  int
	Player1 RatingUpdate
	Player2 RatingUpdate
}
