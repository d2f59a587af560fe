package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/weftlabs/weft/internal/item"
)

// MetadataCommand is the metadata key the shell executor reads its command
// line from.
const MetadataCommand = "command"

// Shell runs an item's "command" metadata through the system shell, one
// iteration per invocation. It exists so queue definitions are runnable from
// the CLI without a custom executor.
type Shell struct {
	// Dir is the working directory for commands; empty means the process
	// working directory.
	Dir string
}

// Execute runs the command once and reports a single iteration. An item
// without a command completes immediately as a no-op.
func (s *Shell) Execute(ctx context.Context, work *item.WorkItem, cfg Config) (*Execution, error) {
	command := strings.TrimSpace(work.Metadata[MetadataCommand])
	iterations := make(chan item.IterationRecord, 1)
	done := make(chan item.Outcome, 1)
	go func() {
		defer close(iterations)
		if command == "" {
			done <- item.Outcome{Result: item.ResultSuccess, BudgetConsumed: 0}
			return
		}
		start := time.Now()
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Dir = s.Dir
		err := cmd.Run()
		record := item.IterationRecord{
			Index:         1,
			Progress:      1.0,
			Elapsed:       time.Since(start),
			ScopeBaseline: work.Produces,
		}
		if err != nil {
			record.Progress = 0
		}
		iterations <- record
		if err != nil {
			done <- item.Outcome{
				Result:         item.ResultFailure,
				BudgetConsumed: cfg.BudgetUnits,
				Err:            fmt.Errorf("executor: %s: %w", work.ID, err),
			}
			return
		}
		done <- item.Outcome{Result: item.ResultSuccess, BudgetConsumed: cfg.BudgetUnits}
	}()
	return &Execution{
		Iterations: iterations,
		Wait:       func() item.Outcome { return <-done },
	}, nil
}
