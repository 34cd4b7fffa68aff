package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"homework-grader/api/internal/config"
	"homework-grader/api/internal/verify"
)

func newStepCmd(opts *options, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "step FROM TO",
		Short: "Verify a single step FROM → TO",
		Example: `  grade step "11/16 + 4/9 + 5/16" "16/16 + 4/9"
  grade step "15 - (-4)" 11`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := args[0], args[1]
			check := verify.CheckStep(from, to)
			var cls *verify.Classification
			if check.Verdict == verify.Incorrect {
				c := verify.ClassifyDetail(from, to)
				cls = &c
			}

			w := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					verify.StepCheck
					Classification *verify.Classification `json:"classification,omitempty"`
				}{check, cls})
			}

			fmt.Fprintf(w, "%s → %s: %s (%s)\n", from, to, check.Verdict, check.Method)
			if check.FromValue != nil && check.ToValue != nil {
				fmt.Fprintf(w, "  %s = %s, %s = %s\n", from, check.FromValue, to, check.ToValue)
			}
			for _, e := range []string{check.FromError, check.ToError} {
				if e != "" {
					fmt.Fprintf(w, "  %s\n", e)
				}
			}
			if cls != nil {
				tax, err := verify.LoadTaxonomy(opts.locale)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  %s: %s\n", tax.Entry(cls.Category).Label, cls.Evidence)
			}
			return nil
		},
	}
}
