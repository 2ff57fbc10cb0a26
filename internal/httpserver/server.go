// internal/httpserver/server.go
//
// HTTP server wiring for the guessing game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, request logs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints: POST /game/new, POST /game/guess.
//   - Daily Challenge endpoints: mounted under /daily (routes_daily.go).
//   - Anonymous player cookie for guests without a name.
//
// Notes:
//   - Live games are held in a store.Store; won games are recorded in History when configured.
//   - Input errors are 400s with a stable code and a player-facing message.
//   - A janitor started by Start drops live games older than gameTTL and stale daily sessions.

package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessing-game/internal/daily"
	"github.com/robalobadob/guessing-game/internal/game"
	"github.com/robalobadob/guessing-game/internal/guess"
	"github.com/robalobadob/guessing-game/internal/history"
	"github.com/robalobadob/guessing-game/internal/secret"
	"github.com/robalobadob/guessing-game/internal/store"
)

// History is the subset of the results store the server needs.
type History interface {
	Record(ctx context.Context, r history.Result) (bool, error)
	AlreadyPlayed(ctx context.Context, player, date string) (bool, error)
	Leaderboard(ctx context.Context, date string, limit int) ([]history.Result, error)
}

// Live games older than gameTTL are pruned every pruneEvery.
const (
	gameTTL    = 24 * time.Hour
	pruneEvery = time.Hour
)

// Server bundles router, live game store, and optional history.
type Server struct {
	r       *chi.Mux
	daily   *dailyServer
	store   store.Store
	history History // nil disables recording and leaderboards
	secrets secret.Source
	salt    string
	now     func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
// hist may be nil.
func New(st store.Store, hist History, dailySalt string) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		store:   st,
		history: hist,
		secrets: secret.Random{},
		salt:    dailySalt,
		now:     time.Now,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // zerolog access log
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"guessing-game","endpoints":["/health","POST /game/new","POST /game/guess","POST /daily/new","/daily/leaderboard"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Post("/game/new", s.handleNewGame)
	s.r.Post("/game/guess", s.handleGuess)
	s.mountDaily(s.r)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", r.URL.Path)
	})

	return s
}

// Start begins serving HTTP on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	go s.janitor(ctx, pruneEvery)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// janitor calls prune every interval until ctx is cancelled.
func (s *Server) janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.prune(ctx)
		}
	}
}

// prune evicts expired live games and daily sessions from previous days.
func (s *Server) prune(ctx context.Context) {
	now := s.now()
	games := s.store.Prune(ctx, now.Add(-gameTTL))
	sessions := s.daily.sweep(daily.DateKey(now))
	if games > 0 || sessions > 0 {
		log.Info().Int("games", games).Int("dailySessions", sessions).Msg("pruned")
	}
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("reqId", chimw.GetReqID(r.Context())).
			Msg("request")
	})
}

// ------------------------------ GAME ---------------------------------------

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Player string `json:"player"` // optional; anonymous cookie ID otherwise
	Secret int    `json:"secret"` // optional fixed secret (testing)
}
type newGameRes struct {
	GameID string `json:"gameId"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
}

// handleNewGame creates a random-mode game in the live store.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	src := s.secrets
	if req.Secret != 0 {
		src = secret.Fixed(req.Secret)
	}
	sec, err := secret.Pick(src)
	if errors.Is(err, guess.ErrOutOfRange) {
		writeError(w, http.StatusBadRequest, guess.Code(err), guess.Hint(err))
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("pick secret")
		writeError(w, http.StatusInternalServerError, "secret_failed", "")
		return
	}

	g := game.New(sec)
	g.Player = s.playerName(w, r, req.Player)
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed", "")
		return
	}

	log.Debug().Str("gameId", g.ID).Str("player", g.Player).Msg("game started")
	_ = json.NewEncoder(w).Encode(newGameRes{GameID: g.ID, Min: guess.Min, Max: guess.Max})
}

// guessReq/Res payloads for POST /game/guess.
type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"` // raw text, validated like console input
}
type guessRes struct {
	Outcome  string     `json:"outcome"` // too_small | too_big | correct
	Attempts int        `json:"attempts"`
	State    game.State `json:"state"` // playing | won
}

// handleGuess applies a guess to a live game and records the result on a win.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}

	var (
		out      guess.Outcome
		snapshot game.Game
	)
	err := s.store.Update(r.Context(), req.GameID, func(g *game.Game) error {
		var err error
		out, err = g.ApplyGuess(req.Guess)
		snapshot = *g
		return err
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	case errors.Is(err, game.ErrFinished):
		writeError(w, http.StatusConflict, "finished", "")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, guess.Code(err), guess.Hint(err))
		return
	}

	if snapshot.Finished {
		s.record(r.Context(), &snapshot)
	}

	_ = json.NewEncoder(w).Encode(guessRes{
		Outcome:  out.String(),
		Attempts: snapshot.Attempts.Value(),
		State:    snapshot.State(),
	})
}

// record stores a won game in history (best effort, non-fatal if it fails).
func (s *Server) record(ctx context.Context, g *game.Game) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Record(ctx, history.FromGame(g)); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("record result")
	}
}

// ------------------------------ helpers ------------------------------------

type errorRes struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorRes{Error: code, Message: msg})
}

const anonCookieName = "guess_anon"

// playerName returns the trimmed requested name, or a stable anonymous ID.
func (s *Server) playerName(w http.ResponseWriter, r *http.Request, requested string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	return s.ensureAnonID(w, r)
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := "anon-" + genID()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(180 * 24 * time.Hour),
	})
	return id
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
