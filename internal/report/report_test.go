package report

import (
	"strings"
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/item"
	"github.com/weftlabs/weft/internal/queue"
	"github.com/weftlabs/weft/internal/spiral"
)

func sampleSummary() *queue.Summary {
	return &queue.Summary{
		RunID:     "run-abc123",
		Completed: []string{"a", "b"},
		Failed:    []string{"c"},
		Skipped:   []string{"d"},
		Statuses: map[string]item.Status{
			"a": item.StatusCompleted,
			"b": item.StatusCompleted,
			"c": item.StatusFailed,
			"d": item.StatusSkipped,
		},
		Errors:          map[string]string{"c": "exit status 3"},
		Stranded:        []string{"d"},
		BudgetTotal:     10,
		BudgetUsed:      6,
		BudgetRemaining: 4,
		FinalLevel:      queue.LevelSoftWarning,
		Reason:          queue.StopUnresolvedDependency,
		CriticalPath:    []string{"a", "c", "d"},
		Elapsed:         1500 * time.Millisecond,
		Histories: map[string][]item.IterationRecord{
			"a": {{Index: 1}},
			"c": {{Index: 1}, {Index: 2}, {Index: 3}},
		},
		Spirals: []queue.SpiralEvent{
			{ItemID: "c", Iteration: 3, Finding: spiral.Finding{Severity: spiral.SeverityCritical}},
		},
	}
}

func TestBuildCounts(t *testing.T) {
	r := Build(sampleSummary())
	if r.Completed != 2 || r.Failed != 1 || r.Skipped != 1 || r.Partial != 0 {
		t.Fatalf("counts = %d/%d/%d/%d", r.Completed, r.Partial, r.Failed, r.Skipped)
	}
	if r.SuccessRate != 0.5 {
		t.Fatalf("success rate = %.2f, want 0.50", r.SuccessRate)
	}
	if r.Reason != queue.StopUnresolvedDependency {
		t.Fatalf("reason = %s", r.Reason)
	}
}

func TestBuildBottlenecksRankSpiralsFirst(t *testing.T) {
	r := Build(sampleSummary())
	if len(r.Bottlenecks) == 0 {
		t.Fatalf("expected bottlenecks")
	}
	if r.Bottlenecks[0].ItemID != "c" {
		t.Fatalf("top bottleneck = %s, want c", r.Bottlenecks[0].ItemID)
	}
	if r.Bottlenecks[0].Spirals != 1 || r.Bottlenecks[0].Iterations != 3 {
		t.Fatalf("bottleneck = %+v", r.Bottlenecks[0])
	}
}

func TestBuildRecommendations(t *testing.T) {
	r := Build(sampleSummary())
	joined := strings.Join(r.Recommendations, "\n")
	if !strings.Contains(joined, "stranded") {
		t.Fatalf("expected a stranded-dependencies recommendation, got:\n%s", joined)
	}
	if !strings.Contains(joined, "critical spiral") {
		t.Fatalf("expected a critical-spiral recommendation, got:\n%s", joined)
	}
}

func TestRenderListsEveryItem(t *testing.T) {
	summary := sampleSummary()
	out := Render(Build(summary), summary)
	for id := range summary.Statuses {
		if !strings.Contains(out, id) {
			t.Fatalf("render output missing item %s:\n%s", id, out)
		}
	}
	if !strings.Contains(out, "run-abc123") {
		t.Fatalf("render output missing run id:\n%s", out)
	}
	if !strings.Contains(out, "exit status 3") {
		t.Fatalf("render output missing failure detail:\n%s", out)
	}
}
