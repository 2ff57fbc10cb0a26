// internal/secret/secret.go
//
// Sources for the hidden number of a game.
//   - Random: uniform draw from crypto/rand.
//   - Fixed:  always the same number (tests, scripted play).
//   - Daily:  the shared number of the day (see package daily).

package secret

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/robalobadob/guessing-game/internal/daily"
	"github.com/robalobadob/guessing-game/internal/guess"
)

// Source draws an integer uniformly from [lo, hi].
type Source interface {
	Draw(lo, hi int) (int, error)
}

// Pick draws a secret in the valid guess range.
func Pick(src Source) (guess.Guess, error) {
	n, err := src.Draw(guess.Min, guess.Max)
	if err != nil {
		return guess.Guess{}, fmt.Errorf("draw secret: %w", err)
	}
	return guess.New(n)
}

// Random draws from Reader, or crypto/rand.Reader when Reader is nil.
type Random struct {
	Reader io.Reader
}

func (r Random) Draw(lo, hi int) (int, error) {
	src := r.Reader
	if src == nil {
		src = rand.Reader
	}
	n, err := rand.Int(src, big.NewInt(int64(hi-lo+1)))
	if err != nil {
		return 0, err
	}
	return lo + int(n.Int64()), nil
}

// Fixed always returns its own value.
type Fixed int

func (f Fixed) Draw(lo, hi int) (int, error) { return int(f), nil }

// Daily returns the number of the day for Date.
type Daily struct {
	Salt string
	Date time.Time
}

func (d Daily) Draw(lo, hi int) (int, error) {
	return daily.Number(d.Date, d.Salt, lo, hi), nil
}
