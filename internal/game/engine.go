// internal/game/engine.go
//
// Core game engine for a single guessing session.
// Responsibilities:
//   - Create new games around a secret.
//   - Parse, validate and compare guesses.
//   - Count accepted attempts and track playing → won.
//
// Notes:
//   - Rejected input (empty, malformed, out of range) never counts as an attempt.
//   - Every accepted guess counts, whatever its outcome.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/robalobadob/guessing-game/internal/guess"
)

// ErrFinished is returned when guessing on a game that is already won.
var ErrFinished = errors.New("game finished")

// New constructs a random-mode game around secret.
func New(secret guess.Guess) *Game {
	return &Game{
		ID:        randomID(),
		Mode:      ModeRandom,
		Secret:    secret,
		StartedAt: time.Now().UTC(),
	}
}

// ApplyGuess parses input and evaluates it against the secret.
// Returns the outcome, or the parse error with the game left unchanged.
func (g *Game) ApplyGuess(input string) (guess.Outcome, error) {
	if g.Finished {
		return 0, ErrFinished
	}
	v, err := guess.Parse(input)
	if err != nil {
		return 0, err
	}
	return g.Apply(v), nil
}

// Apply evaluates an already validated guess.
// Callers are expected to check Finished first; ApplyGuess does.
func (g *Game) Apply(v guess.Guess) guess.Outcome {
	g.Attempts.Increment()
	out := guess.Compare(v, g.Secret)
	if out == guess.Correct {
		g.Finished = true
		g.FinishedAt = time.Now().UTC()
	}
	return out
}

// State reports the coarse state of the game.
func (g *Game) State() State {
	if g.Finished {
		return StateWon
	}
	return StatePlaying
}

// Elapsed is the time from start to finish, or to now while playing.
func (g *Game) Elapsed() time.Duration {
	if g.Finished {
		return g.FinishedAt.Sub(g.StartedAt)
	}
	return time.Since(g.StartedAt)
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
