package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/scholarly/eval"
	"github.com/sweetpotato0/scholarly/research"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Judge the pipeline over a query file",
	Long: `Evaluate runs every case in the query file through the pipeline and has an
LLM judge score each answer for relevance, completeness, citation quality and
safety. Adversarial cases marked "expected": "block" pass when the guardrails
stop them. The aggregated report is written as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		queriesPath, _ := cmd.Flags().GetString("queries")
		if queriesPath == "" {
			queriesPath = cfg.Evaluation.Queries
		}
		reportPath, _ := cmd.Flags().GetString("report")
		if reportPath == "" {
			reportPath = cfg.Evaluation.Report
		}

		cases, err := eval.LoadCases(queriesPath)
		if err != nil {
			return err
		}
		if max := cfg.Evaluation.MaxQueries; max > 0 && len(cases) > max {
			cases = cases[:max]
		}

		judge, err := buildJudge(cmd.Context(), app)
		if err != nil {
			return err
		}
		runner, err := eval.NewRunner(timeoutTarget{app.pipeline}, judge,
			eval.WithConcurrency(cfg.Evaluation.Concurrency),
			eval.WithPassThreshold(cfg.Evaluation.PassThreshold),
		)
		if err != nil {
			return err
		}

		report, err := runner.Evaluate(cmd.Context(), cases)
		if err != nil {
			return err
		}

		if reportPath != "" {
			if err := eval.SaveReport(reportPath, report); err != nil {
				return err
			}
			fmt.Println("report written to", reportPath)
		}

		printReport(report)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().String("queries", "", "query file (default from config)")
	evaluateCmd.Flags().String("report", "", "report output path (default from config)")
	rootCmd.AddCommand(evaluateCmd)
}

// timeoutTarget applies the query timeout to each evaluation case.
type timeoutTarget struct {
	inner eval.Target
}

func (t timeoutTarget) Run(ctx context.Context, query string) (*research.Result, error) {
	runCtx, cancel := queryContext(ctx)
	defer cancel()
	return t.inner.Run(runCtx, query)
}

func printReport(report *eval.Report) {
	fmt.Printf("\ncases:   %d passed, %d failed of %d\n",
		report.Passed, report.Failed, len(report.Cases))
	fmt.Printf("overall: %.2f\n", report.Overall)
	for _, criterion := range eval.Criteria {
		if score, ok := report.ByCriterion[criterion]; ok {
			fmt.Printf("  %-18s %.2f\n", criterion, score)
		}
	}
	if report.BestCase != "" {
		fmt.Printf("best:    %s\n", report.BestCase)
	}
	if report.WorstCase != "" {
		fmt.Printf("worst:   %s\n", report.WorstCase)
	}
	fmt.Printf("elapsed: %s\n", report.Elapsed.Round(time.Millisecond))
}
