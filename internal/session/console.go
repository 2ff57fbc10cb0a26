// internal/session/console.go
//
// Line-oriented console driver for one game.
// Loop: prompt → read a line → apply → print outcome or error → repeat until won.
//
// Input errors are reported and re-prompted. A failed read (including EOF
// before the secret is found) ends the session with an error, and so does
// a cancelled context, checked before every prompt.

package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/robalobadob/guessing-game/internal/game"
	"github.com/robalobadob/guessing-game/internal/guess"
)

// Console text.
const (
	Banner = "Guess the number"
	Prompt = "Please input your guess:"
)

// ErrInputClosed is returned when input ends before the game is won.
var ErrInputClosed = errors.New("input closed before the number was guessed")

// Console plays games over a reader and writer.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	log zerolog.Logger
}

// NewConsole wires a console to the given streams.
func NewConsole(in io.Reader, out io.Writer, logger zerolog.Logger) *Console {
	return &Console{in: bufio.NewReader(in), out: out, log: logger}
}

// Play runs g until it is won, input fails, or ctx is done.
func (c *Console) Play(ctx context.Context, g *game.Game) error {
	log := c.log.With().Str("game", g.ID).Str("mode", string(g.Mode)).Logger()
	log.Debug().Msg("session started")

	fmt.Fprintln(c.out, Banner)
	for !g.Finished {
		if err := ctx.Err(); err != nil {
			log.Debug().Err(err).Int("attempts", g.Attempts.Value()).Msg("session cancelled")
			return err
		}
		fmt.Fprintln(c.out, Prompt)

		line, err := c.in.ReadString('\n')
		if err != nil {
			// A last line without a newline is still a guess.
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("read guess: %w", err)
			}
			if line == "" {
				return ErrInputClosed
			}
		}

		out, err := g.ApplyGuess(line)
		if err != nil {
			log.Debug().Err(err).Str("code", guess.Code(err)).Msg("rejected input")
			fmt.Fprintln(c.out, "Error: "+guess.Hint(err))
			continue
		}
		log.Debug().Str("outcome", out.String()).Int("attempts", g.Attempts.Value()).Msg("guess")
		fmt.Fprintln(c.out, OutcomeMessage(out, g.Attempts.Value()))
	}

	log.Info().Int("attempts", g.Attempts.Value()).Dur("elapsed", g.Elapsed()).Msg("session won")
	return nil
}

// OutcomeMessage returns the line printed after an accepted guess.
func OutcomeMessage(o guess.Outcome, attempts int) string {
	switch o {
	case guess.TooSmall:
		return "Too small"
	case guess.TooBig:
		return "Too big"
	default:
		return fmt.Sprintf("You win, in %d guesses!", attempts)
	}
}
