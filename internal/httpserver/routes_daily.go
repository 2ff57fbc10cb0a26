// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
//   - POST /daily/new         → start (or resume) today's daily game
//   - GET  /daily/leaderboard → top 20 results for today (or ?date=YYYY-MM-DD)
//
// Guesses for a daily game go through POST /game/guess like any other game.
// Each player plays once per day: enforced by history when configured,
// and by the in-memory session map otherwise.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessing-game/internal/daily"
	"github.com/robalobadob/guessing-game/internal/game"
	"github.com/robalobadob/guessing-game/internal/history"
	"github.com/robalobadob/guessing-game/internal/secret"
)

// dailyServer wraps dependencies for /daily endpoints.
// sessions only ever holds entries for day; older keys are swept on rollover.
type dailyServer struct {
	srv      *Server
	day      string            // date key the sessions belong to
	sessions map[string]string // player|date → game ID
	mu       sync.Mutex        // guards day and sessions
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{srv: s, sessions: make(map[string]string)}
	s.daily = dd
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

type dailyNewReq struct {
	Player string `json:"player"`
}

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

// handleNew creates or reuses today's daily game for the player.
//   - Already recorded in history, or won in this process → Played=true.
//   - Otherwise an unfinished game is resumed or a new one is created.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	var req dailyNewReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	player := d.srv.playerName(w, r, req.Player)
	now := d.srv.now()
	date := daily.DateKey(now)

	if h := d.srv.history; h != nil {
		played, err := h.AlreadyPlayed(r.Context(), player, date)
		if err != nil {
			log.Error().Err(err).Str("player", player).Msg("daily lookup")
			writeError(w, http.StatusInternalServerError, "db_error", "")
			return
		}
		if played {
			_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
			return
		}
	}

	key := player + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollover(date)

	if id, ok := d.sessions[key]; ok {
		if g, err := d.srv.store.Get(r.Context(), id); err == nil {
			if g.Finished {
				_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
				return
			}
			_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: id, Date: date})
			return
		}
	}

	sec, err := secret.Pick(secret.Daily{Salt: d.srv.salt, Date: now})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "secret_failed", "")
		return
	}
	g := game.New(sec)
	g.Mode = game.ModeDaily
	g.Date = date
	g.Player = player
	if err := d.srv.store.Save(r.Context(), g); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed", "")
		return
	}
	d.sessions[key] = g.ID

	_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: g.ID, Date: date})
}

// rollover drops sessions from any day other than date. Callers hold d.mu.
func (d *dailyServer) rollover(date string) int {
	if d.day == date {
		return 0
	}
	n := len(d.sessions)
	clear(d.sessions)
	d.day = date
	return n
}

// sweep is rollover for callers outside a request.
func (d *dailyServer) sweep(date string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rollover(date)
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string           `json:"date"`
	Top  []history.Result `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if d.srv.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history_disabled", "")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.now())
	}
	rows, err := d.srv.history.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error", "")
		return
	}
	// hide today's secret
	if date == daily.DateKey(d.srv.now()) {
		for i := range rows {
			rows[i].Secret = 0
		}
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
