package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/events"
	"github.com/weftlabs/weft/internal/executor"
	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/internal/item"
	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/internal/queue"
	"github.com/weftlabs/weft/internal/report"
	"github.com/weftlabs/weft/internal/resolver"
	"github.com/weftlabs/weft/internal/tui"
)

var (
	watchFlag   bool
	natsURL     string
	maxParallel int
	workDir     string
)

var runCmd = &cobra.Command{
	Use:   "run <queue.yaml>",
	Short: "Resolve and execute a work queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQueue(cmd.Context(), args[0])
	},
}

func init() {
	runCmd.Flags().BoolVar(&watchFlag, "watch", false, "show a live board while the run executes")
	runCmd.Flags().StringVar(&natsURL, "nats-url", "", "publish run events to a NATS server")
	runCmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "override the queue's max_parallel setting")
	runCmd.Flags().StringVar(&workDir, "dir", "", "directory item commands run in (defaults to the queue file's directory)")
	rootCmd.AddCommand(runCmd)
}

func runQueue(ctx context.Context, queuePath string) error {
	cfg, err := config.NewConfig("")
	if err != nil {
		return err
	}
	if err := config.InitWeftDir(cfg.ProjectDir); err != nil {
		return err
	}
	logger, err := logging.New(cfg.ProjectDir)
	if err != nil {
		return err
	}
	defer logger.Close()

	def, err := config.LoadQueue(queuePath)
	if err != nil {
		return err
	}
	budget, err := def.RunBudget()
	if err != nil {
		return err
	}

	var sinks []events.Publisher
	var stream *events.ChannelPublisher
	if watchFlag {
		stream = events.NewChannelPublisher(256)
		sinks = append(sinks, stream)
	}
	if natsURL != "" {
		nats, err := events.NewNATSPublisher(natsURL)
		if err != nil {
			return err
		}
		sinks = append(sinks, nats)
	}
	pub := events.NewMultiPublisher(sinks...)
	defer pub.Close()

	plan, err := resolvePlan(ctx, def, pub)
	if err != nil {
		return err
	}

	parallel := def.MaxParallel
	if maxParallel > 0 {
		parallel = maxParallel
	}
	proc, err := queue.New(queue.Options{
		MaxInFlight: parallel,
		Publisher:   pub,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	exec := &executor.Shell{Dir: commandDir(queuePath)}

	if watchFlag {
		return runWatched(ctx, cfg, proc, plan, budget, exec, stream)
	}

	summary, err := proc.Run(ctx, plan, budget, exec)
	if err != nil {
		return err
	}
	return emitResults(cfg, summary)
}

// emitResults prints the run report and persists the run record under
// .weft for later inspection.
func emitResults(cfg *config.Config, summary *queue.Summary) error {
	rendered := report.Render(report.Build(summary), summary)
	fmt.Print(rendered)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}
	statePath := filepath.Join(cfg.StateDir(), summary.RunID+".json")
	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return fmt.Errorf("persist run summary: %w", err)
	}
	reportPath := filepath.Join(cfg.ReportsDir(), summary.RunID+".txt")
	if err := os.WriteFile(reportPath, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("persist run report: %w", err)
	}
	return nil
}

// runWatched drives the run on a goroutine while the TUI owns the
// terminal. Closing the channel publisher tells the board the stream is
// done.
func runWatched(ctx context.Context, cfg *config.Config, proc *queue.Processor, plan *resolver.Result, budget item.Budget, exec executor.Executor, stream *events.ChannelPublisher) error {
	ids := make([]string, 0, len(plan.Ordered))
	for _, it := range plan.Ordered {
		ids = append(ids, it.ID)
	}
	program := tea.NewProgram(tui.NewModel(ids, stream.Events()))

	type runResult struct {
		summary *queue.Summary
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		summary, err := proc.Run(ctx, plan, budget, exec)
		stream.Close()
		done <- runResult{summary, err}
	}()

	if _, err := program.Run(); err != nil {
		return err
	}
	result := <-done
	if result.err != nil {
		return result.err
	}
	return emitResults(cfg, result.summary)
}

func resolvePlan(ctx context.Context, def *config.QueueDefinition, pub events.Publisher) (*resolver.Result, error) {
	opts := resolver.Options{
		Strategy:  def.Strategy(),
		EdgeKinds: def.EdgeKinds(),
		OnResolutionNeeded: func(requests []resolver.ResolutionRequest) {
			_ = pub.Publish(ctx, events.TopicResolutionNeeded, events.ResolutionNeeded{
				Cycles:  len(requests),
				Payload: requests,
			})
		},
	}
	if opts.Strategy == resolver.StrategyUserResolution {
		opts.Decide = promptDecision
	}
	return resolver.Resolve(def.Items, opts)
}

// promptDecision asks on the terminal how to repair one cycle.
func promptDecision(cycle graph.Cycle, options []resolver.Option) (resolver.Decision, error) {
	fmt.Printf("dependency cycle: %s\n", strings.Join(cycle.Members, " -> "))
	for i, opt := range options {
		fmt.Printf("  [%d] %s\n", i+1, opt.Description)
	}
	fmt.Print("choose: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return resolver.Decision{}, fmt.Errorf("read resolution choice: %w", err)
	}
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 1 || choice > len(options) {
		return resolver.Decision{}, fmt.Errorf("invalid choice %q", strings.TrimSpace(line))
	}
	picked := options[choice-1]
	decision := resolver.Decision{Kind: picked.Kind}
	if picked.Edge != nil {
		decision.Edge = *picked.Edge
	}
	return decision, nil
}

// commandDir is where item shell commands run: the --dir override, or the
// queue file's directory.
func commandDir(queuePath string) string {
	if workDir != "" {
		return workDir
	}
	return filepath.Dir(queuePath)
}
