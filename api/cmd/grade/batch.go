package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"homework-grader/api/internal/config"
	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/verify"
)

// batchFile — YAML (или JSON) с уже выделенными шагами.
//
//	problems:
//	  - id: p1
//	    text: 15 - (-4)
//	    steps:
//	      - {from: "15 - (-4)", to: "19", external_verdict: true}
type batchFile struct {
	Problems []struct {
		ID    string `yaml:"id"`
		Text  string `yaml:"text"`
		Steps []struct {
			From     string `yaml:"from"`
			To       string `yaml:"to"`
			External *bool  `yaml:"external_verdict"`
		} `yaml:"steps"`
	} `yaml:"problems"`
}

func loadBatch(path string) ([]*verify.Problem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bf batchFile
	if err := yaml.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	problems := make([]*verify.Problem, 0, len(bf.Problems))
	for i, p := range bf.Problems {
		id := p.ID
		if id == "" {
			id = fmt.Sprintf("problem_%d", i+1)
		}
		vp := &verify.Problem{ID: id, Text: p.Text}
		for _, s := range p.Steps {
			vp.Steps = append(vp.Steps, &verify.SolutionStep{From: s.From, To: s.To, External: s.External})
		}
		problems = append(problems, vp)
	}
	return problems, nil
}

func newBatchCmd(opts *options, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE",
		Short: "Grade many problems from a YAML or JSON file in parallel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problems, err := loadBatch(args[0])
			if err != nil {
				return err
			}
			e, err := opts.env(cmd, cfg)
			if err != nil {
				return err
			}
			out, err := e.svc.Grade(cmd.Context(), grading.Request{
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
