// internal/game/types.go
//
// Core type definitions for the guessing game engine.
// Defines:
//   - Mode:  how the secret was chosen (random or daily).
//   - State: coarse game state reported to clients.
//   - Game:  state for a single in-progress or finished game.

package game

import (
	"time"

	"github.com/robalobadob/guessing-game/internal/guess"
)

// Mode records where the secret came from.
type Mode string

const (
	ModeRandom Mode = "random"
	ModeDaily  Mode = "daily"
)

// State is "playing" until the secret is found, then "won".
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
)

// Game holds the state of a single guessing session.
type Game struct {
	ID         string        // Unique game identifier (random hex string).
	Player     string        // Optional player name, used for history.
	Mode       Mode          // random | daily
	Date       string        // YYYY-MM-DD for daily games, empty otherwise.
	Secret     guess.Guess   // The hidden number.
	Attempts   guess.Counter // Accepted guesses so far.
	StartedAt  time.Time
	FinishedAt time.Time
	Finished   bool // True once the secret has been guessed.
}
