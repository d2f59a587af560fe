// Package events defines the signals the engine emits during a run and the
// Publisher interface they travel through. Runs work fine with the noop
// publisher; wiring a real publisher is how callers observe resolution
// requests, spirals, and commitment changes without polling.
package events

import (
	"context"

	"github.com/weftlabs/weft/internal/item"
	"github.com/weftlabs/weft/internal/spiral"
)

// Event topic constants
const (
	TopicRunStarted   = "weft.run.started"
	TopicRunFinished  = "weft.run.finished"
	TopicItemStarted  = "weft.item.started"
	TopicItemFinished = "weft.item.finished"

	TopicCommitmentRaised = "weft.commitment.raised"
	TopicSpiralDetected   = "weft.spiral.detected"
	TopicForcedCompletion = "weft.run.forced_completion"
	TopicBudgetExhausted  = "weft.budget.exhausted"

	TopicResolutionNeeded = "weft.cycle.resolution_needed"
)

// Event types

type RunStarted struct {
	RunID       string  `json:"run_id"`
	Items       int     `json:"items"`
	Budget      float64 `json:"budget"`
	MaxInFlight int     `json:"max_in_flight,omitempty"`
}

type RunFinished struct {
	RunID      string  `json:"run_id"`
	Completed  int     `json:"completed"`
	Partial    int     `json:"partial"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	BudgetUsed float64 `json:"budget_used"`
}

type ItemStarted struct {
	RunID  string `json:"run_id"`
	ItemID string `json:"item_id"`
	Level  int    `json:"commitment_level"`
}

type ItemFinished struct {
	RunID          string      `json:"run_id"`
	ItemID         string      `json:"item_id"`
	Status         item.Status `json:"status"`
	BudgetConsumed float64     `json:"budget_consumed"`
	Error          string      `json:"error,omitempty"`
}

type CommitmentRaised struct {
	RunID  string `json:"run_id"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Reason string `json:"reason"`
}

type SpiralDetected struct {
	RunID   string         `json:"run_id"`
	ItemID  string         `json:"item_id"`
	Finding spiral.Finding `json:"finding"`
}

type ForcedCompletion struct {
	RunID   string   `json:"run_id"`
	Partial []string `json:"partial,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

type BudgetExhausted struct {
	RunID     string   `json:"run_id"`
	Remaining float64  `json:"remaining"`
	Skipped   []string `json:"skipped,omitempty"`
}

type ResolutionNeeded struct {
	Cycles  int `json:"cycles"`
	Payload any `json:"payload,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
