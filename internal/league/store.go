package league

import (
	"database/sql"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// New creates a new LeagueStore backed by the given database.
func New(db *sql.DB) LeagueStore {
	return &store{
		db: db,
	}
}

func (s *store) CreatePlayer(p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Elo == 0 {
		p.Elo = BaselineElo
	}
	if p.NicknamePlacement == "" {
		p.NicknamePlacement = "middle"
	}
	p.CreatedAt = time.Now()

	_, err := s.db.Exec(`
		INSERT INTO players (id, name, nickname, nickname_placement, email, slack_handle, elo, wins, losses, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Nickname, p.NicknamePlacement, p.Email, p.SlackHandle, p.Elo, p.Wins, p.Losses, p.CreatedAt.Unix())
	if err != nil {
		return Dependencyf(err, "failed to create player")
	}

	log.Info("Created player", "playerID", p.ID, "name", p.Name)
	return nil
}

const playerColumns = `id, name, nickname, nickname_placement, email, slack_handle, elo, wins, losses, created_at`

func (s *store) GetPlayer(id string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayerWhere(`id = ?`, id)
}

func (s *store) GetPlayerByEmail(email string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayerWhere(`email = ?`, email)
}

func (s *store) getPlayerWhere(where string, arg any) (*Player, error) {
	row := s.db.QueryRow(`SELECT `+playerColumns+` FROM players WHERE `+where, arg)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("player not found")
	}
	if err != nil {
		return nil, Dependencyf(err, "failed to load player")
	}
	return p, nil
}

// ListPlayers returns all players, ranked: players with at least one decisive
// approved match first (by elo, then wins), then the unranked alphabetically.
func (s *store) ListPlayers() ([]Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT ` + playerColumns + ` FROM players`)
	if err != nil {
		return nil, Dependencyf(err, "failed to query players")
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			log.Error("Failed to scan player row", "error", err)
			continue
		}
		players = append(players, *p)
	}

	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		aPlayed := a.Wins+a.Losses > 0
		bPlayed := b.Wins+b.Losses > 0
		if aPlayed != bPlayed {
			return aPlayed
		}
		if aPlayed {
			if a.Elo != b.Elo {
				return a.Elo > b.Elo
			}
			return a.Wins > b.Wins
		}
		return a.Name < b.Name
	})
	return players, nil
}

// CountApprovedMatches counts matches in APPROVED status involving the
// player. This is the live count used for K-factor graduation; the
// denormalized wins/losses counters are deliberately not used here since they
// disagree once draws or cancellations exist.
func (s *store) CountApprovedMatches(playerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM matches
		WHERE status = ? AND (player1_id = ? OR player2_id = ?)
	`, MatchApproved, playerID, playerID).Scan(&count)
	if err != nil {
		return 0, Dependencyf(err, "failed to count approved matches")
	}
	return count, nil
}

const matchColumns = `id, player1_id, player2_id, player1_score, player2_score, status, winner_id, elo_delta1, elo_delta2, submitter_id, scheduled_time, created_at, updated_at`

func (s *store) InsertMatch(m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Player1ID, m.Player2ID, m.Player1Score, m.Player2Score, m.Status,
		m.WinnerID, m.EloDelta1, m.EloDelta2, m.SubmitterID, unixPtr(m.ScheduledTime),
		now.Unix(), now.Unix())
	if err != nil {
		return Dependencyf(err, "failed to insert match")
	}

	log.Info("Inserted match", "matchID", m.ID, "status", m.Status)
	return nil
}

func (s *store) GetMatch(id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("match not found")
	}
	if err != nil {
		return nil, Dependencyf(err, "failed to load match")
	}
	return m, nil
}

func (s *store) ListMatchesByStatus(status MatchStatus) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+matchColumns+` FROM matches WHERE status = ? ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, Dependencyf(err, "failed to query matches")
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			log.Error("Failed to scan match row", "error", err)
			continue
		}
		matches = append(matches, *m)
	}
	return matches, nil
}

func (s *store) FindLiveMatch(player1ID, player2ID string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT `+matchColumns+` FROM matches
		WHERE player1_id = ? AND player2_id = ? AND status = ?
		LIMIT 1
	`, player1ID, player2ID, MatchLive)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("no live match for these players")
	}
	if err != nil {
		return nil, Dependencyf(err, "failed to look up live match")
	}
	return m, nil
}

// UpdateMatchScore persists live scores. The write is conditional on the
// match still being LIVE so a score update cannot race a finalization.
func (s *store) UpdateMatchScore(id string, player1Score, player2Score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE matches SET player1_score = ?, player2_score = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, player1Score, player2Score, time.Now().Unix(), id, MatchLive)
	if err != nil {
		return Dependencyf(err, "failed to update score")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return StateConflictf("match is no longer live")
	}
	return nil
}

func (s *store) MarkWaitingConfirmation(id, submitterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE matches SET status = ?, submitter_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, MatchWaitingConfirmation, submitterID, time.Now().Unix(), id, MatchLive)
	if err != nil {
		return Dependencyf(err, "failed to request confirmation")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return StateConflictf("match is no longer live")
	}
	return nil
}

// ApproveMatch flips the match to APPROVED and applies both players' rating
// fields in one transaction. The flip is a compare-and-swap on the expected
// status: if another confirmer (or a cancel) got there first, nothing is
// written and a state conflict is returned.
func (s *store) ApproveMatch(a MatchApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return Dependencyf(err, "failed to begin approval transaction")
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE matches SET status = ?, winner_id = ?, elo_delta1 = ?, elo_delta2 = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, MatchApproved, a.WinnerID, a.Delta1, a.Delta2, time.Now().Unix(), a.MatchID, a.ExpectedStatus)
	if err != nil {
		return Dependencyf(err, "failed to approve match")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return StateConflictf("match is no longer %s", a.ExpectedStatus)
	}

	for _, u := range []RatingUpdate{a.Player1, a.Player2} {
		if err := applyRating(tx, u); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return Dependencyf(err, "failed to commit approval")
	}
	log.Info("Approved match", "matchID", a.MatchID, "delta1", a.Delta1, "delta2", a.Delta2)
	return nil
}

// CancelMatch flips a LIVE or WAITING_CONFIRMATION match to CANCELLED and
// applies the elo penalty to both players, atomically.
func (s *store) CancelMatch(c MatchCancellation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return Dependencyf(err, "failed to begin cancellation transaction")
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE matches SET status = ?, elo_delta1 = ?, elo_delta2 = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, MatchCancelled, c.Delta1, c.Delta2, time.Now().Unix(), c.MatchID, MatchLive, MatchWaitingConfirmation)
	if err != nil {
		return Dependencyf(err, "failed to cancel match")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return StateConflictf("match can no longer be cancelled")
	}

	for _, u := range []RatingUpdate{c.Player1, c.Player2} {
		if err := applyRating(tx, u); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return Dependencyf(err, "failed to commit cancellation")
	}
	log.Info("Cancelled match", "matchID", c.MatchID, "delta1", c.Delta1, "delta2", c.Delta2)
	return nil
}

func applyRating(tx *sql.Tx, u RatingUpdate) error {
	res, err := tx.Exec(`UPDATE players SET elo = ?, wins = ?, losses = ? WHERE id = ?`,
		u.Elo, u.Wins, u.Losses, u.PlayerID)
	if err != nil {
		return Dependencyf(err, "failed to update player rating")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return NotFoundf("player %s not found during rating update", u.PlayerID)
	}
	return nil
}

func (s *store) DeleteMatch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return Dependencyf(err, "failed to delete match")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return NotFoundf("match not found")
	}
	return nil
}

const challengeColumns = `id, challenger_id, opponent_id, status, message, scheduled_time, game_type, race_to, handicap, reminder_sent, created_at, updated_at`

func (s *store) InsertChallenge(c *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO challenges (`+challengeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ChallengerID, c.OpponentID, c.Status, c.Message, unixPtr(c.ScheduledTime),
		c.GameType, c.RaceTo, c.Handicap, c.ReminderSent, now.Unix(), now.Unix())
	if err != nil {
		return Dependencyf(err, "failed to insert challenge")
	}

	log.Info("Inserted challenge", "challengeID", c.ID, "status", c.Status)
	return nil
}

func (s *store) GetChallenge(id string) (*Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getChallengeLocked(id)
}

func (s *store) getChallengeLocked(id string) (*Challenge, error) {
	row := s.db.QueryRow(`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id)
	c, err := scanChallenge(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("challenge not found")
	}
	if err != nil {
		return nil, Dependencyf(err, "failed to load challenge")
	}
	return c, nil
}

// UpdateChallengeStatus is a compare-and-swap on the challenge status.
func (s *store) UpdateChallengeStatus(id string, from, to ChallengeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE challenges SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, to, time.Now().Unix(), id, from)
	if err != nil {
		return Dependencyf(err, "failed to update challenge status")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return StateConflictf("challenge is no longer %s", from)
	}
	return nil
}

// ClaimOpenChallenge assigns the opponent slot of an open challenge. The
// write only succeeds if the slot is still empty, so of two simultaneous
// claimants exactly one wins and the other gets a state conflict.
func (s *store) ClaimOpenChallenge(id, opponentID string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE challenges SET opponent_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND opponent_id IS NULL
	`, opponentID, ChallengeAccepted, time.Now().Unix(), id, ChallengeOpen)
	if err != nil {
		return nil, Dependencyf(err, "failed to claim challenge")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, StateConflictf("challenge already claimed")
	}

	log.Info("Open challenge claimed", "challengeID", id, "opponentID", opponentID)
	return s.getChallengeLocked(id)
}

func (s *store) ListExpiredOpenChallenges(now time.Time) ([]Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Challenges with no scheduled time are "anytime" and never expire.
	return s.queryChallenges(`
		SELECT `+challengeColumns+` FROM challenges
		WHERE status = ? AND scheduled_time IS NOT NULL AND scheduled_time < ?
	`, ChallengeOpen, now.Unix())
}

func (s *store) ListDueReminders(from, to time.Time) ([]Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryChallenges(`
		SELECT `+challengeColumns+` FROM challenges
		WHERE status = ? AND reminder_sent = 0
		  AND scheduled_time IS NOT NULL AND scheduled_time > ? AND scheduled_time < ?
	`, ChallengeAccepted, from.Unix(), to.Unix())
}

func (s *store) queryChallenges(query string, args ...any) ([]Challenge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, Dependencyf(err, "failed to query challenges")
	}
	defer rows.Close()

	var challenges []Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			log.Error("Failed to scan challenge row", "error", err)
			continue
		}
		challenges = append(challenges, *c)
	}
	return challenges, nil
}

// MarkReminderSent flips the reminder flag, conditionally on it being unset.
// A second sweep over the same challenge gets a state conflict and skips the
// notification, so nobody is ever reminded twice.
func (s *store) MarkReminderSent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE challenges SET reminder_sent = 1, updated_at = ? WHERE id = ? AND reminder_sent = 0
	`, time.Now().Unix(), id)
	if err != nil {
		return Dependencyf(err, "failed to mark reminder sent")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return StateConflictf("reminder already sent")
	}
	return nil
}

type scanner interface{ Scan(...any) error }

func scanPlayer(sc scanner) (*Player, error) {
	var p Player
	var nickname, slackHandle sql.NullString
	var createdAt int64

	err := sc.Scan(&p.ID, &p.Name, &nickname, &p.NicknamePlacement, &p.Email, &slackHandle,
		&p.Elo, &p.Wins, &p.Losses, &createdAt)
	if err != nil {
		return nil, err
	}

	if nickname.Valid {
		p.Nickname = &nickname.String
	}
	if slackHandle.Valid {
		p.SlackHandle = &slackHandle.String
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

func scanMatch(sc scanner) (*Match, error) {
	var m Match
	var winnerID, submitterID sql.NullString
	var scheduledTime sql.NullInt64
	var createdAt, updatedAt int64

	err := sc.Scan(&m.ID, &m.Player1ID, &m.Player2ID, &m.Player1Score, &m.Player2Score,
		&m.Status, &winnerID, &m.EloDelta1, &m.EloDelta2, &submitterID, &scheduledTime,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if winnerID.Valid {
		m.WinnerID = &winnerID.String
	}
	if submitterID.Valid {
		m.SubmitterID = &submitterID.String
	}
	if scheduledTime.Valid {
		t := time.Unix(scheduledTime.Int64, 0)
		m.ScheduledTime = &t
	}
	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	return &m, nil
}

func scanChallenge(sc scanner) (*Challenge, error) {
	var c Challenge
	var opponentID, message, gameType sql.NullString
	var scheduledTime, raceTo, handicap sql.NullInt64
	var createdAt, updatedAt int64

	err := sc.Scan(&c.ID, &c.ChallengerID, &opponentID, &c.Status, &message, &scheduledTime,
		&gameType, &raceTo, &handicap, &c.ReminderSent, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if opponentID.Valid {
		c.OpponentID = &opponentID.String
	}
	if message.Valid {
		c.Message = &message.String
	}
	if gameType.Valid {
		c.GameType = &gameType.String
	}
	if scheduledTime.Valid {
		t := time.Unix(scheduledTime.Int64, 0)
		c.ScheduledTime = &t
	}
	if raceTo.Valid {
		v := int(raceTo.Int64)
		c.RaceTo = &v
	}
	if handicap.Valid {
		v := int(handicap.Int64)
		c.Handicap = &v
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return &c, nil
}

func unixPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
