package simulation

import (
	"context"

	"areacloud/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a step takes longer than the tick interval.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventCatchupDropped is emitted when the loop falls so far behind that pending ticks are discarded.
	EventCatchupDropped logging.EventType = "simulation.catchup_dropped"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// CatchupDroppedPayload captures how many ticks were skipped.
type CatchupDroppedPayload struct {
	Dropped uint64 `json:"dropped"`
	Cap     int    `json:"cap"`
}

// TickBudgetOverrun publishes a warning when a step exceeds its budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
	})
}

// CatchupDropped publishes a warning when pending ticks are discarded.
func CatchupDropped(ctx context.Context, pub logging.Publisher, tick uint64, payload CatchupDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCatchupDropped,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
	})
}
