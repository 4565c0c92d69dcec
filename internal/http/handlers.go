package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/longth-dev/billiard-ladder/internal/challenge"
	"github.com/longth-dev/billiard-ladder/internal/league"
	"github.com/longth-dev/billiard-ladder/internal/match"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) ListPlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.Store.ListPlayers()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func (s *Server) CreatePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p league.Player
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, league.Validationf("invalid request body: %v", err))
			return
		}
		if p.Name == "" || p.Email == "" {
			writeError(w, league.Validationf("name and email are required"))
			return
		}
		if err := s.Store.CreatePlayer(&p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func (s *Server) GetPlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.Store.GetPlayer(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := league.MatchStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = league.MatchApproved
		}
		matches, err := s.Store.ListMatchesByStatus(status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func (s *Server) GetMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Store.GetMatch(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) CreateMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params match.CreateParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, league.Validationf("invalid request body: %v", err))
			return
		}
		m, err := s.Matches.Create(actorFromContext(r), params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func (s *Server) ConfirmMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Matches.Confirm(actorFromContext(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) RejectMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Matches.Reject(actorFromContext(r), r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) UpdateScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Player1Score int `json:"player1_score"`
			Player2Score int `json:"player2_score"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, league.Validationf("invalid request body: %v", err))
			return
		}
		m, err := s.Matches.UpdateScore(actorFromContext(r), r.PathValue("id"), body.Player1Score, body.Player2Score)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) FinishMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Matches.Finish(actorFromContext(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) CancelMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Matches.Cancel(actorFromContext(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) IssueChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params challenge.IssueParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, league.Validationf("invalid request body: %v", err))
			return
		}
		ch, err := s.Challenges.Issue(actorFromContext(r), params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ch)
	}
}

func (s *Server) IssueOpenChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params challenge.IssueParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, league.Validationf("invalid request body: %v", err))
			return
		}
		ch, err := s.Challenges.IssueOpen(actorFromContext(r), params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ch)
	}
}

func (s *Server) GetChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := s.Store.GetChallenge(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ch)
	}
}

func (s *Server) RespondChallengeHandler(accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := s.Challenges.Respond(actorFromContext(r), r.PathValue("id"), accept)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ch)
	}
}

func (s *Server) ClaimChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := s.Challenges.Claim(actorFromContext(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ch)
	}
}

func (s *Server) CancelChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := s.Challenges.Cancel(actorFromContext(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ch)
	}
}

// CleanupHandler runs the open-challenge expiry sweep. Cron hits this
// endpoint; the sweep itself is idempotent so overlapping runs are harmless.
func (s *Server) CleanupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Starting challenge cleanup sweep...")
		rejected, err := s.Challenges.ExpireOpenChallenges(time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"rejected": rejected})
		log.Info("Challenge cleanup finished.", "rejected", rejected)
	}
}

// RemindersHandler runs the match reminder sweep.
func (s *Server) RemindersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Starting reminder sweep...")
		sent, err := s.Challenges.SendReminders(time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
		log.Info("Reminder sweep finished.", "sent", sent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch league.KindOf(err) {
	case league.KindValidation:
		status = http.StatusBadRequest
	case league.KindNotFound:
		status = http.StatusNotFound
	case league.KindAuthorization:
		status = http.StatusForbidden
	case league.KindStateConflict:
		status = http.StatusConflict
	}
	if status == http.StatusBadGateway {
		log.Error("Dependency failure", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
