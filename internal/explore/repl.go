package explore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// Run reads commands from rl until quit, EOF or ctx is done. Command errors
// are printed and the loop continues.
func Run(ctx context.Context, s *Session, rl *readline.Instance) error {
	if err := s.Start(ctx); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if line == "" {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			s.log.Debug().Err(err).Str("command", line).Msg("command failed")
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}
