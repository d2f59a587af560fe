// Package executor defines the boundary between the orchestration engine and
// the code that actually performs work items. The engine treats executors as
// opaque capabilities: it hands over the item plus constrained execution
// parameters and consumes a stream of iteration records followed by a final
// outcome.
package executor

import (
	"context"

	"github.com/weftlabs/weft/internal/item"
)

// Config constrains a single execution. The queue processor tightens these
// values as the run's commitment level climbs.
type Config struct {
	// BudgetUnits is the budget allocated to this execution, possibly
	// clamped to whatever remains in the run budget.
	BudgetUnits float64
	// MaxIterations caps the executor's iteration count; zero means
	// unlimited.
	MaxIterations int
	// FixesOnly asks the executor to restrict itself to minimal corrective
	// work. Executors that cannot honor it should finish as partial.
	FixesOnly bool
}

// Execution is a live executor invocation. Iterations delivers records as
// work proceeds and is closed before Wait returns. Wait blocks until the
// executor finishes and reports the final outcome; it must be safe to call
// exactly once.
type Execution struct {
	Iterations <-chan item.IterationRecord
	Wait       func() item.Outcome
}

// Executor performs the work behind one item. Implementations must run to
// completion once started; the engine never interrupts an execution, it only
// withholds new dispatches.
type Executor interface {
	Execute(ctx context.Context, work *item.WorkItem, cfg Config) (*Execution, error)
}

// Func adapts a synchronous function into an Executor. The function reports
// iterations through the emit callback and returns the final outcome. Used
// heavily in tests.
type Func func(ctx context.Context, work *item.WorkItem, cfg Config, emit func(item.IterationRecord)) item.Outcome

// Execute runs the function on a goroutine and streams its iterations.
func (f Func) Execute(ctx context.Context, work *item.WorkItem, cfg Config) (*Execution, error) {
	iterations := make(chan item.IterationRecord, 16)
	done := make(chan item.Outcome, 1)
	go func() {
		defer close(iterations)
		outcome := f(ctx, work, cfg, func(rec item.IterationRecord) {
			iterations <- rec
		})
		done <- outcome
	}()
	return &Execution{
		Iterations: iterations,
		Wait:       func() item.Outcome { return <-done },
	}, nil
}
