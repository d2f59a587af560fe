package executor

import (
	"context"
	"testing"

	"github.com/weftlabs/weft/internal/item"
)

func TestFuncStreamsIterationsThenOutcome(t *testing.T) {
	exec := Func(func(ctx context.Context, work *item.WorkItem, cfg Config, emit func(item.IterationRecord)) item.Outcome {
		emit(item.IterationRecord{Index: 1, Progress: 0.5})
		emit(item.IterationRecord{Index: 2, Progress: 1.0})
		return item.Outcome{Result: item.ResultSuccess, BudgetConsumed: 2}
	})
	run, err := exec.Execute(context.Background(), &item.WorkItem{ID: "a"}, Config{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var records []item.IterationRecord
	for rec := range run.Iterations {
		records = append(records, rec)
	}
	outcome := run.Wait()
	if len(records) != 2 {
		t.Fatalf("expected 2 iterations, got %d", len(records))
	}
	if records[1].Progress != 1.0 {
		t.Fatalf("unexpected final record %+v", records[1])
	}
	if outcome.Result != item.ResultSuccess || outcome.BudgetConsumed != 2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestShellNoCommandIsNoop(t *testing.T) {
	sh := &Shell{}
	run, err := sh.Execute(context.Background(), &item.WorkItem{ID: "empty"}, Config{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	count := 0
	for range run.Iterations {
		count++
	}
	outcome := run.Wait()
	if count != 0 {
		t.Fatalf("expected no iterations, got %d", count)
	}
	if outcome.Result != item.ResultSuccess || outcome.BudgetConsumed != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestShellRunsCommand(t *testing.T) {
	sh := &Shell{Dir: t.TempDir()}
	work := &item.WorkItem{
		ID:          "touch",
		BudgetUnits: 1,
		Metadata:    map[string]string{MetadataCommand: "true"},
	}
	run, err := sh.Execute(context.Background(), work, Config{BudgetUnits: 1})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var records []item.IterationRecord
	for rec := range run.Iterations {
		records = append(records, rec)
	}
	outcome := run.Wait()
	if len(records) != 1 || records[0].Progress != 1.0 {
		t.Fatalf("unexpected records %+v", records)
	}
	if outcome.Result != item.ResultSuccess || outcome.BudgetConsumed != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestShellReportsFailure(t *testing.T) {
	sh := &Shell{}
	work := &item.WorkItem{
		ID:          "boom",
		BudgetUnits: 1,
		Metadata:    map[string]string{MetadataCommand: "exit 3"},
	}
	run, err := sh.Execute(context.Background(), work, Config{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for range run.Iterations {
	}
	outcome := run.Wait()
	if outcome.Result != item.ResultFailure {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if outcome.Err == nil {
		t.Fatal("expected error detail on failure")
	}
}
