// internal/guess/guess.go
//
// Value types for the guessing game.
// Defines:
//   - Guess:   an integer constrained to [Min, Max].
//   - Counter: number of accepted attempts in a session.
//   - Outcome: result of comparing a guess with the secret.
//
// Parsing and error classification live in errors.go.

package guess

import (
	"fmt"
	"strconv"
	"strings"
)

// Inclusive bounds of a valid guess.
const (
	Min = 1
	Max = 100
)

// Guess is a number known to lie in [Min, Max].
// The zero value is not a valid guess; construct with New or Parse.
type Guess struct {
	value int
}

// New validates v and wraps it. Out-of-range values are rejected, never clamped.
func New(v int) (Guess, error) {
	if v < Min || v > Max {
		return Guess{}, fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	return Guess{value: v}, nil
}

// Value returns the wrapped integer.
func (g Guess) Value() int { return g.value }

// Parse reads a guess from a raw input line.
// Surrounding whitespace is ignored. The text must be an unsigned 32-bit
// decimal, optionally with a leading '+'; signs and overflow are malformed.
func Parse(s string) (Guess, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Guess{}, ErrInvalidInput
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, 32)
	if err != nil {
		return Guess{}, fmt.Errorf("%w %q: %w", ErrMalformedNumber, s, err)
	}
	return New(int(n))
}

// Outcome is the result of comparing a candidate with the secret.
type Outcome int

const (
	TooSmall Outcome = iota + 1
	TooBig
	Correct
)

// String returns a stable code, used on the wire and in logs.
func (o Outcome) String() string {
	switch o {
	case TooSmall:
		return "too_small"
	case TooBig:
		return "too_big"
	case Correct:
		return "correct"
	}
	return "unknown"
}

// Compare maps the ordering of candidate against secret to an Outcome.
func Compare(candidate, secret Guess) Outcome {
	switch {
	case candidate.value < secret.value:
		return TooSmall
	case candidate.value > secret.value:
		return TooBig
	default:
		return Correct
	}
}

// Counter counts accepted attempts. The zero value starts at 0.
type Counter struct {
	n int
}

// Increment records one more attempt.
func (c *Counter) Increment() { c.n++ }

// Value returns the number of attempts recorded so far.
func (c Counter) Value() int { return c.n }
