// Command explore browses the destination directory from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/julianalert/expedition37-sub000/internal/explore"
	"github.com/julianalert/expedition37-sub000/internal/filter"
	"github.com/julianalert/expedition37-sub000/internal/logging"
)

func main() {
	var (
		apiURL     = flag.String("api", "http://localhost:8080", "base URL of the directory API")
		kind       = flag.String("kind", "countries", "listing to browse: countries or cities")
		limit      = flag.Int("limit", 36, "rows per page, 1 to 100")
		continent  = flag.String("continent", "", "comma-separated continents")
		criteria   = flag.String("criteria", "", "comma-separated criteria tags, all must match")
		additional = flag.String("additional", "", "comma-separated additional tags, all must match")
		budget     = flag.String("budget", "", "weekly budget bucket: <500, <1k, <2k or <3k")
		goal       = flag.String("goal", "", "comma-separated vacation goals")
		logLevel   = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	log := logging.New(logging.Config{Level: *logLevel, Format: "text", Output: os.Stderr})

	q := url.Values{}
	for k, v := range map[string]string{
		"continent": *continent, "criteria": *criteria, "additional": *additional,
		"budget": *budget, "goal": *goal,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	initial, err := filter.FromQuery(q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid filter: %v\n", err)
		os.Exit(2)
	}

	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".expedition_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          *kind + "> ",
		HistoryFile:     history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	session, err := explore.NewSession(explore.NewClient(*apiURL, nil), explore.Kind(*kind), *limit, initial, rl.Stdout(), log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := explore.Run(ctx, session, rl); err != nil {
		log.Error().Err(err).Msg("explore exited with error")
		os.Exit(1)
	}
}
