package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/robalobadob/guessing-game/internal/daily"
	"github.com/robalobadob/guessing-game/internal/game"
	"github.com/robalobadob/guessing-game/internal/history"
	"github.com/robalobadob/guessing-game/internal/httpserver"
	"github.com/robalobadob/guessing-game/internal/secret"
	"github.com/robalobadob/guessing-game/internal/session"
	"github.com/robalobadob/guessing-game/internal/store"
)

var errNoHistory = errors.New("history is disabled: set --db or GUESS_DB")

// newRootCommand returns the top-level CLI command.
// Without a subcommand it plays one console game on in/out.
func newRootCommand(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "guess",
		Usage:  "Guess the hidden number between 1 and 100",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite file for game history (history is off when empty)",
				Sources: cli.EnvVars("GUESS_DB"),
			},
			&cli.StringFlag{
				Name:    "player",
				Usage:   "Name recorded with results",
				Value:   defaultPlayer(),
				Sources: cli.EnvVars("GUESS_PLAYER"),
			},
			&cli.StringFlag{
				Name:    "salt",
				Usage:   "Salt for the daily number",
				Value:   "local_dev_salt",
				Sources: cli.EnvVars("DAILY_SALT"),
			},
			&cli.BoolFlag{
				Name:  "daily",
				Usage: "Play today's shared number",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPlay(ctx, cmd, in, out)
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newHistoryCommand(out),
		},
	}
}

func defaultPlayer() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "player"
}

// openHistory opens the results store, or returns nil when --db is unset.
func openHistory(cmd *cli.Command) (*history.Store, error) {
	dsn := cmd.String("db")
	if dsn == "" {
		return nil, nil
	}
	h, err := history.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", dsn, err)
	}
	return h, nil
}

func runPlay(ctx context.Context, cmd *cli.Command, in io.Reader, out io.Writer) error {
	hist, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	now := time.Now()
	player := cmd.String("player")
	mode := game.ModeRandom
	var src secret.Source = secret.Random{}
	if cmd.Bool("daily") {
		mode = game.ModeDaily
		src = secret.Daily{Salt: cmd.String("salt"), Date: now}
		if hist != nil {
			played, err := hist.AlreadyPlayed(ctx, player, daily.DateKey(now))
			if err != nil {
				return fmt.Errorf("check daily: %w", err)
			}
			if played {
				fmt.Fprintf(out, "%s already played the daily number for %s.\n", player, daily.DateKey(now))
				return nil
			}
		}
	}

	sec, err := secret.Pick(src)
	if err != nil {
		return fmt.Errorf("pick secret: %w", err)
	}
	g := game.New(sec)
	g.Player = player
	g.Mode = mode
	if mode == game.ModeDaily {
		g.Date = daily.DateKey(now)
	}

	if err := session.NewConsole(in, out, log.Logger).Play(ctx, g); err != nil {
		return err
	}

	if hist != nil {
		if _, err := hist.Record(ctx, history.FromGame(g)); err != nil {
			log.Warn().Err(err).Str("gameId", g.ID).Msg("record result")
		}
	}
	return nil
}

// newServeCommand returns the serve subcommand.
func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the game over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Port to listen on",
				Value:   5175,
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	if os.Getenv("LOG_LEVEL") == "" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var hist httpserver.History
	h, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if h != nil {
		defer h.Close()
		hist = h
	}

	srv := httpserver.New(store.NewMemoryStore(), hist, cmd.String("salt"))
	addr := fmt.Sprintf(":%d", cmd.Int("port"))
	log.Info().Str("addr", addr).Bool("history", h != nil).Msg("starting guess server")
	return srv.Start(ctx, addr)
}

// newHistoryCommand returns the history subcommand.
func newHistoryCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent results or the daily leaderboard",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "daily-board",
				Usage: "Show the daily leaderboard instead of your results",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "Leaderboard date (YYYY-MM-DD, default today)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum rows",
				Value: 20,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runHistory(ctx, cmd, out)
		},
	}
}

func runHistory(ctx context.Context, cmd *cli.Command, out io.Writer) error {
	hist, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if hist == nil {
		return errNoHistory
	}
	defer hist.Close()

	limit := int(cmd.Int("limit"))
	var rows []history.Result
	if cmd.Bool("daily-board") {
		today := daily.DateKey(time.Now())
		date := cmd.String("date")
		if date == "" {
			date = today
		}
		rows, err = hist.Leaderboard(ctx, date, limit)
		if date == today {
			for i := range rows {
				rows[i].Secret = 0
			}
		}
	} else {
		rows, err = hist.Recent(ctx, cmd.String("player"), limit)
	}
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No results yet.")
		return nil
	}
	fmt.Fprintln(out, renderResults(rows))
	return nil
}

// renderResults formats results as a bordered table.
func renderResults(rows []history.Result) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PLAYER", "MODE", "DATE", "NUMBER", "ATTEMPTS", "TIME")
	for _, r := range rows {
		number := "?"
		if r.Secret != 0 {
			number = strconv.Itoa(r.Secret)
		}
		t.Row(
			r.Player,
			string(r.Mode),
			r.Date,
			number,
			strconv.Itoa(r.Attempts),
			(time.Duration(r.ElapsedMs) * time.Millisecond).Round(10*time.Millisecond).String(),
		)
	}
	return t.String()
}
