package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"homework-grader/api/internal/app"
	"homework-grader/api/internal/config"
	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/report"
)

type options struct {
	locale   string
	policy   string
	judge    string
	jsonOut  bool
	maxSugg  int
	parallel int
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "grade",
		Short: "Check hand-written arithmetic solutions step by step",
		Long: `grade verifies every step of an arithmetic solution with exact rational
arithmetic, classifies wrong steps and prints feedback.

A language-model judge (gemini or gpt) is used only when --judge is set and
the matching API key is present in the environment.`,
		SilenceUsage: true,
	}
	cfg := config.Load()
	root.PersistentFlags().StringVar(&opts.locale, "locale", cfg.Locale, "feedback locale (en, zh)")
	root.PersistentFlags().StringVar(&opts.policy, "policy", cfg.ReconcilePolicy, "reconcile policy: external_first | rule_first")
	root.PersistentFlags().StringVar(&opts.judge, "judge", "rules", "external judge: gemini | gpt | rules")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	root.PersistentFlags().IntVar(&opts.maxSugg, "max-suggestions", cfg.MaxSuggestions, "maximum suggestions per problem")
	root.PersistentFlags().IntVar(&opts.parallel, "parallel", cfg.StepParallelism, "steps graded concurrently (0 = GOMAXPROCS)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log grading details to stderr")

	root.AddCommand(newStepCmd(opts, cfg), newChainCmd(opts, cfg), newBatchCmd(opts, cfg))
	return root
}

// env собирает сервис и судью по флагам.
type env struct {
	svc   *grading.Service
	judge ocr.Judge
}

func (o *options) env(cmd *cobra.Command, cfg *config.Config) (*env, error) {
	c := *cfg
	c.Locale = o.locale
	c.ReconcilePolicy = o.policy
	c.MaxSuggestions = o.maxSugg
	c.StepParallelism = o.parallel

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	svc, err := app.NewService(&c, nil, logger)
	if err != nil {
		return nil, err
	}
	e := &env{svc: svc}
	if name := strings.ToLower(strings.TrimSpace(o.judge)); name != "" && name != "rules" {
		j, err := app.Engines(&c).GetEngine(name)
		if err != nil {
			return nil, fmt.Errorf("--judge %s: %w", name, err)
		}
		e.judge = j
	}
	return e, nil
}

func (o *options) print(w io.Writer, out *grading.Outcome) error {
	if o.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	sections := make([]report.Section, 0, len(out.Problems))
	for _, g := range out.Problems {
		title := g.Problem.ID
		if g.Problem.Text != "" {
			title += ": " + g.Problem.Text
		}
		sections = append(sections, report.Section{Title: title, Result: g.Result})
	}
	_, err := fmt.Fprintln(w, report.Render(report.Plain, sections...))
	for _, d := range out.Degraded {
		fmt.Fprintf(w, "warning: %s\n", d)
	}
	return err
}
