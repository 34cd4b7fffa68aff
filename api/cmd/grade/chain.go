package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"homework-grader/api/internal/config"
	"homework-grader/api/internal/grading"
)

func newChainCmd(opts *options, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "chain [TEXT...]",
		Short: "Grade a solution written as equality chains (stdin when no TEXT)",
		Example: `  grade chain "11/16 + 4/9 + 5/16 = 16/16 + 4/9 = 13/9"
  printf '1. 3 + 4 = 7\n2. 2^3 = 6\n' | grade chain`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, "\n")
			if len(args) == 0 {
				if interactive(cmd.InOrStdin()) {
					return errors.New("no solution given: pass TEXT or pipe it to stdin")
				}
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("empty solution")
			}

			e, err := opts.env(cmd, cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			problems, _ := e.svc.SegmentText(ctx, e.judge, text)
			out, err := e.svc.Grade(ctx, grading.Request{
				Source:   grading.SourceCLI,
				Locale:   opts.locale,
				Judge:    e.judge,
				AskJudge: e.judge != nil,
				Problems: problems,
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), out)
		},
	}
}

// interactive: stdin — терминал, читать из него нечего.
func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
