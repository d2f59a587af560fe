package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/events"
	"github.com/weftlabs/weft/internal/resolver"
)

var graphCmd = &cobra.Command{
	Use:   "graph <queue.yaml>",
	Short: "Resolve a queue and print the execution plan without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := config.LoadQueue(args[0])
		if err != nil {
			return err
		}
		plan, err := resolvePlan(cmd.Context(), def, &events.NoopPublisher{})
		if err != nil {
			return err
		}
		printPlan(plan)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func printPlan(plan *resolver.Result) {
	fmt.Println("Execution order:")
	for i, it := range plan.Ordered {
		fmt.Printf("  %2d. %s", i+1, it.ID)
		if deps := plan.Graph.Dependencies(it.ID); len(deps) > 0 {
			fmt.Printf("  (after %s)", strings.Join(deps, ", "))
		}
		fmt.Println()
	}

	fmt.Println("\nParallel groups:")
	for depth, group := range plan.Groups {
		fmt.Printf("  %d: %s\n", depth, strings.Join(group, ", "))
	}

	if len(plan.CriticalPath) > 0 {
		fmt.Printf("\nCritical path: %s\n", strings.Join(plan.CriticalPath, " > "))
	}

	fmt.Println("\nEdges:")
	for _, e := range plan.Graph.Edges() {
		fmt.Printf("  %s -> %s  [%s %.1f]\n", e.From, e.To, e.Kind, e.Strength)
	}

	if len(plan.Resolutions) > 0 {
		fmt.Println("\nCycle resolutions:")
		for _, res := range plan.Resolutions {
			line := fmt.Sprintf("  %s via %s", strings.Join(res.Cycle.Members, " -> "), res.Strategy)
			if res.RemovedEdge != nil {
				line += fmt.Sprintf(" (removed %s -> %s)", res.RemovedEdge.From, res.RemovedEdge.To)
			}
			if res.MergedInto != "" {
				line += fmt.Sprintf(" (merged into %s)", res.MergedInto)
			}
			fmt.Println(line)
		}
	}
}
