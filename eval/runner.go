package eval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweetpotato0/scholarly/pkg/logging"
	"github.com/sweetpotato0/scholarly/research"
)

// Target is anything that can answer a research query. The research pipeline
// satisfies it.
type Target interface {
	Run(ctx context.Context, query string) (*research.Result, error)
}

// Expectation says what a case should produce.
type Expectation string

const (
	// ExpectAnswer is the default: the query should finish and score above
	// the pass threshold.
	ExpectAnswer Expectation = "answer"
	// ExpectBlock marks adversarial cases the guardrails must stop.
	ExpectBlock Expectation = "block"
)

// Case is one evaluation query.
type Case struct {
	ID       string      `json:"id"`
	Query    string      `json:"query"`
	Expected Expectation `json:"expected,omitempty"`
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case      Case           `json:"case"`
	Phase     research.Phase `json:"phase,omitempty"`
	Answer    string         `json:"answer,omitempty"`
	Judgement *Judgement     `json:"judgement,omitempty"`
	Passed    bool           `json:"passed"`
	Err       string         `json:"error,omitempty"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// Report aggregates a full evaluation run.
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Cases       []CaseResult          `json:"cases"`
	Passed      int                   `json:"passed"`
	Failed      int                   `json:"failed"`
	Overall     float64               `json:"overall"`
	ByCriterion map[Criterion]float64 `json:"by_criterion,omitempty"`
	BestCase    string                `json:"best_case,omitempty"`
	WorstCase   string                `json:"worst_case,omitempty"`
	Elapsed     time.Duration         `json:"elapsed"`
}

// Runner drives a target through a case set and judges the answers.
type Runner struct {
	target Target
	judge  *Judge
	cfg    *Config
	logger *slog.Logger
}

// NewRunner wires a target and judge together.
func NewRunner(target Target, judge *Judge, opts ...Option) (*Runner, error) {
	if target == nil {
		return nil, fmt.Errorf("runner needs a target")
	}
	if judge == nil {
		return nil, fmt.Errorf("runner needs a judge")
	}
	return &Runner{
		target: target,
		judge:  judge,
		cfg:    applyOptions(defaultConfig(), opts...),
		logger: logging.WithComponent("eval"),
	}, nil
}

// Evaluate runs every case, at most Concurrency at a time, and aggregates
// the outcomes. Case order is preserved in the report regardless of
// completion order.
func (r *Runner) Evaluate(ctx context.Context, cases []Case) (*Report, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases to evaluate")
	}
	start := time.Now()
	r.logger.Info("evaluation started",
		"cases", len(cases),
		"concurrency", r.cfg.Concurrency)

	results := make([]CaseResult, len(cases))
	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, c := range cases {
		wg.Add(1)
		go func(slot int, c Case) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[slot] = CaseResult{
						Case:   c,
						Err:    fmt.Sprintf("panic evaluating case: %v", rec),
						Passed: false,
					}
				}
			}()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[slot] = CaseResult{Case: c, Err: ctx.Err().Error()}
				return
			}
			results[slot] = r.runCase(ctx, c)
		}(i, c)
	}
	wg.Wait()

	report := buildReport(results, time.Since(start))
	r.logger.Info("evaluation finished",
		"passed", report.Passed,
		"failed", report.Failed,
		"overall", report.Overall,
		"elapsed", report.Elapsed)
	return report, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	start := time.Now()
	out := CaseResult{Case: c}
	defer func() { out.Elapsed = time.Since(start) }()

	res, err := r.target.Run(ctx, c.Query)
	if res != nil {
		out.Phase = res.Phase
		out.Answer = res.Answer
	}
	if err != nil {
		out.Err = err.Error()
		return out
	}

	if c.Expected == ExpectBlock {
		out.Passed = res.Phase == research.PhaseBlocked
		return out
	}
	if res.Phase != research.PhaseDone {
		return out
	}
	judgement, err := r.judge.Assess(ctx, c.Query, res.Answer, res.Citations)
	if err != nil {
		out.Err = fmt.Sprintf("judge: %v", err)
		return out
	}
	out.Judgement = judgement
	out.Passed = judgement.Overall >= r.cfg.PassThreshold
	return out
}

func buildReport(results []CaseResult, elapsed time.Duration) *Report {
	report := &Report{
		GeneratedAt: time.Now(),
		Cases:       results,
		Elapsed:     elapsed,
	}

	judged := 0
	sums := make(map[Criterion]float64)
	overallSum := 0.0
	bestScore, worstScore := -1.0, 2.0
	for _, cr := range results {
		if cr.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		if cr.Judgement == nil {
			continue
		}
		judged++
		overallSum += cr.Judgement.Overall
		for criterion, score := range cr.Judgement.Scores {
			sums[criterion] += score
		}
		if cr.Judgement.Overall > bestScore {
			bestScore = cr.Judgement.Overall
			report.BestCase = cr.Case.ID
		}
		if cr.Judgement.Overall < worstScore {
			worstScore = cr.Judgement.Overall
			report.WorstCase = cr.Case.ID
		}
	}
	if judged > 0 {
		report.Overall = overallSum / float64(judged)
		report.ByCriterion = make(map[Criterion]float64, len(sums))
		for criterion, sum := range sums {
			report.ByCriterion[criterion] = sum / float64(judged)
		}
	}
	return report
}
