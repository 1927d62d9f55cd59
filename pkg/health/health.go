// Package health runs named readiness checks concurrently and aggregates
// their outcome. The CLI uses it to verify that the corpus, benchmark,
// segment and any enabled backend are usable before a run.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/logger"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDisabled Status = "disabled"
)

// Check tests one dependency. A nil error means up; the returned detail is
// reported either way.
type Check func(ctx context.Context) (detail string, err error)

// Result is the outcome of a single check.
type Result struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Detail  string        `json:"detail,omitempty"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns"`
}

// Report lists results in registration order. Status is down when any
// enabled check failed.
type Report struct {
	Status  Status   `json:"status"`
	Results []Result `json:"results"`
}

type entry struct {
	name  string
	check Check
}

// Checker holds registered checks. It is not safe to Register while Run is
// in progress.
type Checker struct {
	entries []entry
	timeout time.Duration
}

// NewChecker creates a Checker that bounds each check by timeout. Zero
// means no bound.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{timeout: timeout}
}

func (c *Checker) Register(name string, check Check) {
	c.entries = append(c.entries, entry{name: name, check: check})
}

// Disabled registers a check that always reports disabled.
func (c *Checker) Disabled(name string) {
	c.entries = append(c.entries, entry{name: name})
}

// Run executes all checks concurrently.
func (c *Checker) Run(ctx context.Context) Report {
	log := logger.WithComponent("health")
	report := Report{
		Status:  StatusUp,
		Results: make([]Result, len(c.entries)),
	}

	var wg sync.WaitGroup
	for i, e := range c.entries {
		if e.check == nil {
			report.Results[i] = Result{Name: e.name, Status: StatusDisabled}
			continue
		}
		wg.Add(1)
		go func(i int, e entry) {
			defer wg.Done()
			checkCtx := ctx
			if c.timeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}
			start := time.Now()
			detail, err := e.check(checkCtx)
			res := Result{Name: e.name, Status: StatusUp, Detail: detail, Latency: time.Since(start)}
			if err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
				log.Warn("check failed", "check", e.name, "error", err)
			}
			report.Results[i] = res
		}(i, e)
	}
	wg.Wait()

	for _, res := range report.Results {
		if res.Status == StatusDown {
			report.Status = StatusDown
			break
		}
	}
	return report
}
