// Package queue runs resolved work items against a shared budget under an
// escalating commitment ladder. The scheduling loop is single-threaded and
// cooperative: it dispatches one parallel group at a time, awaits every
// in-flight executor in that group, applies their results, and only then
// recomputes readiness.
package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weftlabs/weft/internal/events"
	"github.com/weftlabs/weft/internal/executor"
	"github.com/weftlabs/weft/internal/idgen"
	"github.com/weftlabs/weft/internal/item"
	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/internal/resolver"
	"github.com/weftlabs/weft/internal/spiral"
)

// reducedIterationCap bounds executor iterations at LevelReducedIterations
// when the budget declares no per-item cap to halve.
const reducedIterationCap = 2

// Options configures a Processor. The zero value is usable: one item in
// flight, noop events, default spiral thresholds.
type Options struct {
	// RunID labels the run in events and logs; generated when empty.
	RunID string
	// MaxInFlight bounds concurrent executor invocations inside a parallel
	// group. Values below 1 mean strictly sequential dispatch.
	MaxInFlight int
	// Publisher receives run events; nil means no events.
	Publisher events.Publisher
	// Logger receives human-readable run lines; nil discards them.
	Logger *logging.Logger
	// Thresholds tunes the spiral detector; the zero value selects defaults.
	Thresholds spiral.Thresholds
	// ForceLevel starts the run at an elevated commitment level. Used to
	// force-complete a run externally (LevelForceComplete) and in tests.
	ForceLevel Level
	// Clock injects a deterministic clock for tests.
	Clock func() time.Time
}

// Processor owns all mutable run state: item statuses, the remaining
// budget, iteration histories, and the commitment level. One Processor
// serves one Run call.
type Processor struct {
	opts     Options
	detector *spiral.Detector
	pub      events.Publisher
	clock    func() time.Time

	mu        sync.Mutex
	level     Level
	remaining float64
	statuses  map[string]item.Status
	histories map[string][]item.IterationRecord
	spirals   []SpiralEvent
	criticals int
	errors    map[string]error
}

// New builds a processor.
func New(opts Options) (*Processor, error) {
	if opts.RunID == "" {
		id, err := idgen.Generate()
		if err != nil {
			return nil, fmt.Errorf("queue: %w", err)
		}
		opts.RunID = id
	}
	thresholds := opts.Thresholds
	if thresholds == (spiral.Thresholds{}) {
		thresholds = spiral.DefaultThresholds()
	}
	detector, err := spiral.NewDetector(thresholds)
	if err != nil {
		return nil, err
	}
	pub := opts.Publisher
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Processor{
		opts:      opts,
		detector:  detector,
		pub:       pub,
		clock:     clock,
		level:     clampLevel(opts.ForceLevel),
		statuses:  make(map[string]item.Status),
		histories: make(map[string][]item.IterationRecord),
		errors:    make(map[string]error),
	}, nil
}

// Run executes the resolved plan until the queue drains, the budget runs
// out, or the commitment level forces completion. Every input item ends in
// exactly one terminal status.
func (p *Processor) Run(ctx context.Context, plan *resolver.Result, budget item.Budget, exec executor.Executor) (*Summary, error) {
	if plan == nil || plan.Graph == nil {
		return nil, fmt.Errorf("queue: a resolved plan is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("queue: an executor is required")
	}
	if err := budget.Validate(); err != nil {
		return nil, err
	}

	p.remaining = budget.TotalUnits
	for _, it := range plan.Ordered {
		p.statuses[it.ID] = item.StatusPending
	}
	groupOf := indexGroups(plan.Groups)
	started := p.clock()

	p.publish(ctx, events.TopicRunStarted, events.RunStarted{
		RunID:       p.opts.RunID,
		Items:       len(plan.Ordered),
		Budget:      budget.TotalUnits,
		MaxInFlight: p.opts.MaxInFlight,
	})
	p.opts.Logger.Printf("run %s: %d item(s), budget %.1f", p.opts.RunID, len(plan.Ordered), budget.TotalUnits)

	reason := StopCompleted
	brokenPath := ""
	var stranded []string

	for {
		if p.currentLevel() == LevelForceComplete {
			p.forceComplete(ctx)
			reason = StopForced
			break
		}

		elapsed := p.clock().Sub(started)
		if budget.WallClock > 0 {
			if elapsed >= budget.WallClock {
				p.skipWaiting("wall-clock budget exhausted")
				reason = StopWallClockExhausted
				break
			}
			if elapsed >= time.Duration(float64(budget.WallClock)*0.75) {
				p.raiseLevel(ctx, LevelReducedIterations, "75% of wall-clock budget consumed")
			}
		}

		ready := p.readyItems(plan)
		pending := p.pendingCount()
		if len(ready) == 0 {
			if pending == 0 {
				break
			}
			stranded = p.skipWaiting("dependencies can no longer complete")
			reason = StopUnresolvedDependency
			break
		}
		if p.remainingBudget() <= 0 {
			skipped := p.skipWaiting("budget exhausted")
			p.publish(ctx, events.TopicBudgetExhausted, events.BudgetExhausted{
				RunID:     p.opts.RunID,
				Remaining: p.remainingBudget(),
				Skipped:   skipped,
			})
			reason = StopBudgetExhausted
			break
		}

		batch := p.selectBatch(ready, groupOf)
		p.dispatch(ctx, plan, budget, exec, batch)
		p.checkBudgetPressure(ctx, budget)

		if id, broken := p.criticalPathBreak(plan); broken {
			p.skipWaiting(fmt.Sprintf("critical path broken at %s", id))
			reason = StopCriticalPathBroken
			brokenPath = id
			break
		}
	}

	summary := p.summarize(plan, budget, reason, brokenPath, stranded, p.clock().Sub(started))
	p.publish(ctx, events.TopicRunFinished, events.RunFinished{
		RunID:      p.opts.RunID,
		Completed:  len(summary.Completed),
		Partial:    len(summary.Partial),
		Failed:     len(summary.Failed),
		Skipped:    len(summary.Skipped),
		BudgetUsed: summary.BudgetUsed,
	})
	p.opts.Logger.Printf("run %s: %s (%d completed, %d partial, %d failed, %d skipped)",
		p.opts.RunID, reason, len(summary.Completed), len(summary.Partial), len(summary.Failed), len(summary.Skipped))
	return summary, nil
}

// readyItems returns pending items whose dependencies all completed, in
// dispatch order: priority descending, then direct unblock count
// descending, then allocated budget ascending, then id.
func (p *Processor) readyItems(plan *resolver.Result) []*item.WorkItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ready []*item.WorkItem
	for _, it := range plan.Ordered {
		if p.statuses[it.ID] != item.StatusPending {
			continue
		}
		satisfied := true
		for _, dep := range plan.Graph.Dependencies(it.ID) {
			if p.statuses[dep] != item.StatusCompleted {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, it)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		ua, ub := len(plan.Graph.Dependents(a.ID)), len(plan.Graph.Dependents(b.ID))
		if ua != ub {
			return ua > ub
		}
		if a.BudgetUnits != b.BudgetUnits {
			return a.BudgetUnits < b.BudgetUnits
		}
		return a.ID < b.ID
	})
	return ready
}

// selectBatch takes the head of the sorted ready set, then fills the rest
// of the batch only with same-depth peers so concurrent dispatch never
// mixes parallel groups, bounded by the in-flight limit.
func (p *Processor) selectBatch(ready []*item.WorkItem, groupOf map[string]int) []*item.WorkItem {
	limit := p.opts.MaxInFlight
	if limit < 1 {
		limit = 1
	}
	leader := ready[0]
	depth := groupOf[leader.ID]
	batch := []*item.WorkItem{leader}
	for _, it := range ready[1:] {
		if len(batch) == limit {
			break
		}
		if groupOf[it.ID] == depth {
			batch = append(batch, it)
		}
	}
	return batch
}

// dispatch runs one batch concurrently and awaits every member before
// returning. Budget decrements and status changes happen under the
// processor lock as each executor completes.
func (p *Processor) dispatch(ctx context.Context, plan *resolver.Result, budget item.Budget, exec executor.Executor, batch []*item.WorkItem) {
	limit := p.opts.MaxInFlight
	if limit < 1 {
		limit = 1
	}
	var group errgroup.Group
	group.SetLimit(limit)
	for _, work := range batch {
		work := work
		p.transition(work.ID, item.StatusReady)
		group.Go(func() error {
			p.runOne(ctx, budget, exec, work)
			return nil
		})
	}
	// Errors never propagate; per-item failures are recorded as statuses.
	_ = group.Wait()
}

func (p *Processor) runOne(ctx context.Context, budget item.Budget, exec executor.Executor, work *item.WorkItem) {
	cfg := p.execConfig(work, budget)
	p.transition(work.ID, item.StatusInProgress)
	p.publish(ctx, events.TopicItemStarted, events.ItemStarted{
		RunID:  p.opts.RunID,
		ItemID: work.ID,
		Level:  int(p.currentLevel()),
	})

	run, err := exec.Execute(ctx, work, cfg)
	if err != nil {
		p.finishItem(ctx, work.ID, item.Outcome{Result: item.ResultFailure, Err: err})
		return
	}
	for rec := range run.Iterations {
		p.recordIteration(ctx, work.ID, rec)
	}
	p.finishItem(ctx, work.ID, run.Wait())
}

// execConfig applies the commitment-level constraints to one execution.
func (p *Processor) execConfig(work *item.WorkItem, budget item.Budget) executor.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg := executor.Config{
		BudgetUnits:   work.BudgetUnits,
		MaxIterations: budget.MaxIterationsPerItem,
	}
	if p.level >= LevelBudgetClamp && cfg.BudgetUnits > p.remaining {
		cfg.BudgetUnits = p.remaining
	}
	if p.level >= LevelReducedIterations {
		if cfg.MaxIterations > 0 {
			cfg.MaxIterations = maxInt(1, cfg.MaxIterations/2)
		} else {
			cfg.MaxIterations = reducedIterationCap
		}
	}
	if p.level >= LevelFixesOnly {
		cfg.FixesOnly = true
	}
	return cfg
}

// recordIteration appends the record to the item history and feeds the
// spiral detector. Critical findings raise the commitment level; a second
// critical forces completion.
func (p *Processor) recordIteration(ctx context.Context, itemID string, rec item.IterationRecord) {
	p.mu.Lock()
	history := p.histories[itemID]
	finding := p.detector.Check(itemID, history, rec)
	p.histories[itemID] = append(history, rec)
	if finding.Severity != spiral.SeverityNone {
		p.spirals = append(p.spirals, SpiralEvent{ItemID: itemID, Iteration: rec.Index, Finding: finding})
	}
	var target Level
	var cause string
	switch {
	case finding.Severity == spiral.SeverityCritical:
		p.criticals++
		target = clampLevel(maxLevel(p.level+Level(finding.CommitmentDelta), LevelFixesOnly))
		if p.criticals >= 2 {
			target = LevelForceComplete
		}
		cause = fmt.Sprintf("critical spiral on %s", itemID)
	case finding.Escalate:
		target = clampLevel(p.level + Level(finding.CommitmentDelta))
		cause = fmt.Sprintf("repeated spiral warnings on %s", itemID)
	}
	p.mu.Unlock()

	if finding.Severity != spiral.SeverityNone {
		p.publish(ctx, events.TopicSpiralDetected, events.SpiralDetected{
			RunID:   p.opts.RunID,
			ItemID:  itemID,
			Finding: finding,
		})
		p.opts.Logger.Warnf("run %s: spiral %s on %s (iteration %d)", p.opts.RunID, finding.Severity, itemID, rec.Index)
	}
	if target > 0 {
		p.raiseLevel(ctx, target, cause)
	}
}

// finishItem applies the executor outcome: terminal status, budget
// decrement, and the finished event. Consumption is clamped so the
// remaining budget never goes negative.
func (p *Processor) finishItem(ctx context.Context, itemID string, outcome item.Outcome) {
	status := item.StatusFailed
	switch outcome.Result {
	case item.ResultSuccess:
		status = item.StatusCompleted
	case item.ResultPartial:
		status = item.StatusPartial
	}

	p.mu.Lock()
	consumed := outcome.BudgetConsumed
	if consumed < 0 {
		consumed = 0
	}
	if consumed > p.remaining {
		consumed = p.remaining
	}
	p.remaining -= consumed
	if item.CanTransition(p.statuses[itemID], status) {
		p.statuses[itemID] = status
	}
	if outcome.Err != nil {
		p.errors[itemID] = outcome.Err
	}
	p.mu.Unlock()

	errText := ""
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}
	p.publish(ctx, events.TopicItemFinished, events.ItemFinished{
		RunID:          p.opts.RunID,
		ItemID:         itemID,
		Status:         status,
		BudgetConsumed: consumed,
		Error:          errText,
	})
	p.opts.Logger.Printf("run %s: item %s %s (consumed %.1f)", p.opts.RunID, itemID, status, consumed)
}

// checkBudgetPressure raises budget-driven commitment levels once the used
// fraction crosses the ladder thresholds.
func (p *Processor) checkBudgetPressure(ctx context.Context, budget item.Budget) {
	used := budget.TotalUnits - p.remainingBudget()
	if budget.TotalUnits <= 0 {
		return
	}
	fraction := used / budget.TotalUnits
	if fraction >= 0.75 {
		p.raiseLevel(ctx, LevelBudgetClamp, "75% of unit budget consumed")
	} else if fraction >= 0.5 {
		p.raiseLevel(ctx, LevelSoftWarning, "50% of unit budget consumed")
	}
}

// criticalPathBreak reports a failed critical-path item that still has
// pending transitive dependents; such an item cannot be substituted and the
// run must end.
func (p *Processor) criticalPathBreak(plan *resolver.Result) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range plan.CriticalPath {
		if p.statuses[id] != item.StatusFailed {
			continue
		}
		for _, dep := range plan.Graph.TransitiveDependents(id) {
			if p.statuses[dep] == item.StatusPending {
				return id, true
			}
		}
	}
	return "", false
}

// forceComplete marks every in-progress item partial and everything still
// waiting skipped.
func (p *Processor) forceComplete(ctx context.Context) {
	p.mu.Lock()
	var partial, skipped []string
	for id, status := range p.statuses {
		switch status {
		case item.StatusInProgress:
			p.statuses[id] = item.StatusPartial
			partial = append(partial, id)
		case item.StatusPending, item.StatusReady:
			p.statuses[id] = item.StatusSkipped
			skipped = append(skipped, id)
		}
	}
	sort.Strings(partial)
	sort.Strings(skipped)
	p.mu.Unlock()

	p.publish(ctx, events.TopicForcedCompletion, events.ForcedCompletion{
		RunID:   p.opts.RunID,
		Partial: partial,
		Skipped: skipped,
	})
	p.opts.Logger.Warnf("run %s: forced completion (%d partial, %d skipped)", p.opts.RunID, len(partial), len(skipped))
}

// skipWaiting marks every pending or ready item skipped and returns their
// ids sorted.
func (p *Processor) skipWaiting(why string) []string {
	p.mu.Lock()
	var skipped []string
	for id, status := range p.statuses {
		if status == item.StatusPending || status == item.StatusReady {
			p.statuses[id] = item.StatusSkipped
			skipped = append(skipped, id)
		}
	}
	sort.Strings(skipped)
	p.mu.Unlock()
	if len(skipped) > 0 {
		p.opts.Logger.Warnf("run %s: skipped %d item(s): %s", p.opts.RunID, len(skipped), why)
	}
	return skipped
}

// raiseLevel raises the commitment level to the target if that is an
// increase. Levels never go down within a run.
func (p *Processor) raiseLevel(ctx context.Context, target Level, reason string) {
	target = clampLevel(target)
	p.mu.Lock()
	if target <= p.level {
		p.mu.Unlock()
		return
	}
	from := p.level
	p.level = target
	p.mu.Unlock()

	p.publish(ctx, events.TopicCommitmentRaised, events.CommitmentRaised{
		RunID:  p.opts.RunID,
		From:   int(from),
		To:     int(target),
		Reason: reason,
	})
	p.opts.Logger.Warnf("run %s: commitment %s -> %s (%s)", p.opts.RunID, from, target, reason)
}

func (p *Processor) transition(id string, to item.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if item.CanTransition(p.statuses[id], to) {
		p.statuses[id] = to
	}
}

func (p *Processor) currentLevel() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *Processor) remainingBudget() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remaining
}

func (p *Processor) pendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, status := range p.statuses {
		if status == item.StatusPending {
			count++
		}
	}
	return count
}

func (p *Processor) publish(ctx context.Context, topic string, event any) {
	// Delivery failures are observability losses, not run failures.
	_ = p.pub.Publish(ctx, topic, event)
}

func (p *Processor) summarize(plan *resolver.Result, budget item.Budget, reason StopReason, brokenPath string, stranded []string, elapsed time.Duration) *Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	summary := &Summary{
		RunID:           p.opts.RunID,
		Statuses:        make(map[string]item.Status, len(p.statuses)),
		Stranded:        stranded,
		BudgetTotal:     budget.TotalUnits,
		BudgetUsed:      budget.TotalUnits - p.remaining,
		BudgetRemaining: p.remaining,
		FinalLevel:      p.level,
		Reason:          reason,
		BrokenPathItem:  brokenPath,
		CriticalPath:    plan.CriticalPath,
		Spirals:         p.spirals,
		Elapsed:         elapsed,
		Histories:       p.histories,
	}
	if len(p.errors) > 0 {
		summary.Errors = make(map[string]string, len(p.errors))
		for id, err := range p.errors {
			summary.Errors[id] = err.Error()
		}
	}
	for _, it := range plan.Ordered {
		status := p.statuses[it.ID]
		summary.Statuses[it.ID] = status
		switch status {
		case item.StatusCompleted:
			summary.Completed = append(summary.Completed, it.ID)
		case item.StatusPartial:
			summary.Partial = append(summary.Partial, it.ID)
		case item.StatusFailed:
			summary.Failed = append(summary.Failed, it.ID)
		case item.StatusSkipped:
			summary.Skipped = append(summary.Skipped, it.ID)
		default:
			// Anything non-terminal at this point is unaccounted work.
			summary.Statuses[it.ID] = item.StatusSkipped
			summary.Skipped = append(summary.Skipped, it.ID)
		}
	}
	return summary
}

func indexGroups(groups [][]string) map[string]int {
	out := make(map[string]int)
	for depth, group := range groups {
		for _, id := range group {
			out[id] = depth
		}
	}
	return out
}

func maxLevel(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}
