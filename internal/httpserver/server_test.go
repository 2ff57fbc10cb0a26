package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/robalobadob/guessing-game/internal/daily"
	"github.com/robalobadob/guessing-game/internal/game"
	"github.com/robalobadob/guessing-game/internal/history"
	"github.com/robalobadob/guessing-game/internal/secret"
	"github.com/robalobadob/guessing-game/internal/store"
)

// fakeHistory keeps results in memory.
type fakeHistory struct {
	mu      sync.Mutex
	results []history.Result
}

func (f *fakeHistory) Record(_ context.Context, r history.Result) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return true, nil
}

func (f *fakeHistory) AlreadyPlayed(_ context.Context, player, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.Mode == game.ModeDaily && r.Player == player && r.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHistory) Leaderboard(_ context.Context, date string, _ int) ([]history.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []history.Result
	for _, r := range f.results {
		if r.Mode == game.ModeDaily && r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, hist History) *Server {
	t.Helper()
	s := New(store.NewMemoryStore(), hist, "test-salt")
	s.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decode[map[string]bool](t, w); !body["ok"] {
		t.Fatalf("body = %v", body)
	}
}

func TestGame_FullRound(t *testing.T) {
	hist := &fakeHistory{}
	s := newTestServer(t, hist)

	w := do(t, s, http.MethodPost, "/game/new", `{"player":"ana","secret":50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("new: status = %d body = %s", w.Code, w.Body)
	}
	created := decode[newGameRes](t, w)
	if created.GameID == "" || created.Min != 1 || created.Max != 100 {
		t.Fatalf("new: %+v", created)
	}

	steps := []struct {
		guess    string
		status   int
		outcome  string
		errCode  string
		attempts int
	}{
		{"30", http.StatusOK, "too_small", "", 1},
		{"150", http.StatusBadRequest, "", "out_of_range", 0},
		{"abc", http.StatusBadRequest, "", "malformed_number", 0},
		{"70", http.StatusOK, "too_big", "", 2},
		{"50", http.StatusOK, "correct", "", 3},
	}
	for _, st := range steps {
		w := do(t, s, http.MethodPost, "/game/guess", `{"gameId":"`+created.GameID+`","guess":"`+st.guess+`"}`)
		if w.Code != st.status {
			t.Fatalf("guess %q: status = %d body = %s", st.guess, w.Code, w.Body)
		}
		if st.errCode != "" {
			if e := decode[errorRes](t, w); e.Error != st.errCode || e.Message == "" {
				t.Fatalf("guess %q: error = %+v", st.guess, e)
			}
			continue
		}
		res := decode[guessRes](t, w)
		if res.Outcome != st.outcome || res.Attempts != st.attempts {
			t.Fatalf("guess %q: %+v", st.guess, res)
		}
	}

	if len(hist.results) != 1 {
		t.Fatalf("recorded %d results, want 1", len(hist.results))
	}
	if r := hist.results[0]; r.Player != "ana" || r.Attempts != 3 || r.Secret != 50 || r.Mode != game.ModeRandom {
		t.Fatalf("recorded %+v", r)
	}

	w = do(t, s, http.MethodPost, "/game/guess", `{"gameId":"`+created.GameID+`","guess":"50"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("guess after win: status = %d", w.Code)
	}
}

func TestGame_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	if w := do(t, s, http.MethodPost, "/game/guess", `{"gameId":"nope","guess":"5"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown game: status = %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/game/guess", `not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/game/new", `{"secret":500}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad secret: status = %d", w.Code)
	}
}

func TestGame_AnonymousPlayerCookie(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(t, s, http.MethodPost, "/game/new", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == anonCookieName && strings.HasPrefix(c.Value, "anon-") {
			found = true
		}
	}
	if !found {
		t.Fatal("anonymous cookie not set")
	}
}

func TestDaily_OncePerDay(t *testing.T) {
	hist := &fakeHistory{}
	s := newTestServer(t, hist)

	w := do(t, s, http.MethodPost, "/daily/new", `{"player":"ana"}`)
	first := decode[dailyNewRes](t, w)
	if first.GameID == "" || first.Date != "2026-10-15" || first.Played {
		t.Fatalf("first daily: %+v", first)
	}

	// Resume, not restart.
	w = do(t, s, http.MethodPost, "/daily/new", `{"player":"ana"}`)
	if again := decode[dailyNewRes](t, w); again.GameID != first.GameID {
		t.Fatalf("resume: got %q, want %q", again.GameID, first.GameID)
	}

	// Another player gets the same secret in a different game.
	w = do(t, s, http.MethodPost, "/daily/new", `{"player":"bob"}`)
	bob := decode[dailyNewRes](t, w)
	ga, _ := s.store.Get(context.Background(), first.GameID)
	gb, _ := s.store.Get(context.Background(), bob.GameID)
	if bob.GameID == first.GameID || ga.Secret != gb.Secret {
		t.Fatalf("daily games: ana=%s/%d bob=%s/%d", ga.ID, ga.Secret.Value(), gb.ID, gb.Secret.Value())
	}

	// Win ana's game by bisection.
	lo, hi := 1, 100
	for {
		mid := (lo + hi) / 2
		w := do(t, s, http.MethodPost, "/game/guess", `{"gameId":"`+first.GameID+`","guess":"`+strconv.Itoa(mid)+`"}`)
		res := decode[guessRes](t, w)
		if res.Outcome == "correct" {
			break
		}
		if res.Outcome == "too_small" {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	w = do(t, s, http.MethodPost, "/daily/new", `{"player":"ana"}`)
	if after := decode[dailyNewRes](t, w); !after.Played || after.GameID != "" {
		t.Fatalf("after win: %+v", after)
	}

	w = do(t, s, http.MethodGet, "/daily/leaderboard", "")
	lb := decode[lbRes](t, w)
	if lb.Date != "2026-10-15" || len(lb.Top) != 1 || lb.Top[0].Player != "ana" {
		t.Fatalf("leaderboard: %+v", lb)
	}
	if lb.Top[0].Secret != 0 {
		t.Fatal("leaderboard leaked today's secret")
	}
}

func TestDaily_WithoutHistory(t *testing.T) {
	s := newTestServer(t, nil)
	if w := do(t, s, http.MethodGet, "/daily/leaderboard", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("leaderboard: status = %d", w.Code)
	}
	w := do(t, s, http.MethodPost, "/daily/new", `{"player":"ana"}`)
	if res := decode[dailyNewRes](t, w); res.GameID == "" {
		t.Fatalf("daily/new without history: %+v", res)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/nowhere", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decode[errorRes](t, w); e.Error != "not_found" {
		t.Fatalf("error = %+v", e)
	}
}

func TestGame_SecretDrawFailure(t *testing.T) {
	s := newTestServer(t, nil)
	s.secrets = secret.Random{Reader: iotest.ErrReader(errors.New("entropy unavailable"))}
	w := do(t, s, http.MethodPost, "/game/new", `{}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decode[errorRes](t, w); e.Error != "secret_failed" {
		t.Fatalf("error = %+v", e)
	}
}

func TestPrune_ExpiresGamesAndDailySessions(t *testing.T) {
	s := newTestServer(t, nil)
	s.now = time.Now // StartedAt comes from the real clock
	ctx := context.Background()

	live := decode[newGameRes](t, do(t, s, http.MethodPost, "/game/new", `{"player":"ana"}`))
	day1 := decode[dailyNewRes](t, do(t, s, http.MethodPost, "/daily/new", `{"player":"ana"}`))

	// Nothing is old enough yet.
	s.prune(ctx)
	if _, err := s.store.Get(ctx, live.GameID); err != nil {
		t.Fatalf("live game pruned early: %v", err)
	}
	if len(s.daily.sessions) != 1 {
		t.Fatalf("sessions = %v", s.daily.sessions)
	}

	later := time.Now().Add(gameTTL + time.Hour)
	s.now = func() time.Time { return later }
	s.prune(ctx)

	for _, id := range []string{live.GameID, day1.GameID} {
		if _, err := s.store.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("game %s: expected ErrNotFound, got %v", id, err)
		}
	}
	if len(s.daily.sessions) != 0 || s.daily.day != daily.DateKey(later) {
		t.Fatalf("daily sessions after prune: day=%s %v", s.daily.day, s.daily.sessions)
	}
}

func TestDaily_RolloverDropsYesterday(t *testing.T) {
	s := newTestServer(t, nil)
	first := decode[dailyNewRes](t, do(t, s, http.MethodPost, "/daily/new", `{"player":"ana"}`))

	s.now = func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }
	next := decode[dailyNewRes](t, do(t, s, http.MethodPost, "/daily/new", `{"player":"bob"}`))
	if next.Date != "2026-10-16" || next.GameID == first.GameID {
		t.Fatalf("next day: %+v", next)
	}
	if _, ok := s.daily.sessions["ana|2026-10-15"]; ok {
		t.Fatal("yesterday's session survived rollover")
	}
	if len(s.daily.sessions) != 1 {
		t.Fatalf("sessions = %v", s.daily.sessions)
	}
}
