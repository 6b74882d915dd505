package sim

import (
	"context"
	"errors"
	"time"

	"areacloud/internal/telemetry"
	"areacloud/internal/world"
	"areacloud/logging"
	"areacloud/logging/simulation"
)

const (
	// DefaultTickRate is the number of world steps per second.
	DefaultTickRate = 20
	// DefaultCatchupMaxTicks bounds the steps run for one wake-up.
	DefaultCatchupMaxTicks = 4
	// DefaultCommandCapacity is the staged command limit per tick.
	DefaultCommandCapacity = 256

	metricStepsTotal      = "sim_steps_total"
	metricCatchupTotal    = "sim_catchup_steps_total"
	metricDroppedTotal    = "sim_dropped_ticks_total"
	metricCommandsApplied = "sim_commands_applied_total"
	metricCommandsFailed  = "sim_commands_failed_total"
	metricStepMicros      = "sim_step_duration_us"
)

// ErrQueueFull is returned by Enqueue when the command buffer is saturated.
var ErrQueueFull = errors.New("sim: command queue full")

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
}

func (c LoopConfig) normalized() LoopConfig {
	if c.TickRate <= 0 {
		c.TickRate = DefaultTickRate
	}
	if c.CatchupMaxTicks < 1 {
		c.CatchupMaxTicks = DefaultCatchupMaxTicks
	}
	if c.CommandCapacity < 1 {
		c.CommandCapacity = DefaultCommandCapacity
	}
	return c
}

// LoopDeps carries the ambient collaborators of the loop.
type LoopDeps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
}

// StepResult summarises one executed world step.
type StepResult struct {
	Tick     uint64
	Now      time.Time
	Duration time.Duration
	Budget   time.Duration
	Commands int
	Failed   int
}

// LoopHooks are invoked on the loop goroutine.
type LoopHooks struct {
	// AfterStep runs once per executed step. It may read the world.
	AfterStep func(ctx context.Context, result StepResult)
	// OnCommandError runs for every command the world rejected.
	OnCommandError func(cmd Command, err error)
}

// Loop drives the world with a fixed timestep and applies staged commands
// before each step. The world is only touched from the Run goroutine.
type Loop struct {
	world  *world.World
	buffer *CommandBuffer
	config LoopConfig
	hooks  LoopHooks
	deps   LoopDeps

	overrunStreak uint64
}

// NewLoop wires a loop around the world.
func NewLoop(w *world.World, cfg LoopConfig, hooks LoopHooks, deps LoopDeps) *Loop {
	if w == nil {
		return nil
	}
	cfg = cfg.normalized()
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher{}
	}
	return &Loop{
		world:  w,
		buffer: NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		config: cfg,
		hooks:  hooks,
		deps:   deps,
	}
}

// Interval returns the duration of one tick.
func (l *Loop) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return time.Second / time.Duration(l.config.TickRate)
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue validates and stages a command for the next step. It is safe to
// call from any goroutine.
func (l *Loop) Enqueue(cmd Command) error {
	if l == nil {
		return ErrQueueFull
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	if !l.buffer.Push(cmd) {
		if l.deps.Logger != nil {
			l.deps.Logger.Printf("[backpressure] dropping command type=%s pending=%d", cmd.Type, l.buffer.Len())
		}
		return ErrQueueFull
	}
	return nil
}

// Advance applies the staged commands and executes a single world step.
func (l *Loop) Advance(ctx context.Context) StepResult {
	if l == nil {
		return StepResult{}
	}
	start := l.deps.Clock.Now()
	commands := l.buffer.Drain()
	failed := 0
	for _, cmd := range commands {
		if err := apply(ctx, l.world, cmd); err != nil {
			failed++
			if l.hooks.OnCommandError != nil {
				l.hooks.OnCommandError(cmd, err)
			} else if l.deps.Logger != nil {
				l.deps.Logger.Printf("[sim] command %s rejected: %v", cmd.Type, err)
			}
		}
	}
	l.world.Step(ctx)
	end := l.deps.Clock.Now()

	result := StepResult{
		Tick:     l.world.Tick(),
		Now:      end,
		Duration: end.Sub(start),
		Budget:   l.Interval(),
		Commands: len(commands),
		Failed:   failed,
	}
	l.record(ctx, result)
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(ctx, result)
	}
	return result
}

func (l *Loop) record(ctx context.Context, result StepResult) {
	if m := l.deps.Metrics; m != nil {
		m.Add(metricStepsTotal, 1)
		m.Add(metricCommandsApplied, uint64(result.Commands-result.Failed))
		if result.Failed > 0 {
			m.Add(metricCommandsFailed, uint64(result.Failed))
		}
		m.Store(metricStepMicros, uint64(result.Duration.Microseconds()))
	}
	if result.Budget <= 0 || result.Duration <= result.Budget {
		l.overrunStreak = 0
		return
	}
	l.overrunStreak++
	simulation.TickBudgetOverrun(ctx, l.deps.Publisher, result.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         l.overrunStreak,
	})
}

// Catchup returns how many steps are owed for the elapsed time, capped at
// CatchupMaxTicks, plus the number of owed steps that were discarded.
func (l *Loop) Catchup(elapsed time.Duration) (steps int, dropped uint64) {
	interval := l.Interval()
	if interval <= 0 || elapsed < interval {
		return 0, 0
	}
	owed := uint64(elapsed / interval)
	limit := uint64(l.config.CatchupMaxTicks)
	if owed > limit {
		return int(limit), owed - limit
	}
	return int(owed), 0
}

// Run drives the fixed-timestep loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil {
		return nil
	}
	interval := l.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	next := l.deps.Clock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := l.deps.Clock.Now()
			steps, dropped := l.Catchup(now.Sub(next))
			if dropped > 0 {
				if l.deps.Metrics != nil {
					l.deps.Metrics.Add(metricDroppedTotal, dropped)
				}
				simulation.CatchupDropped(ctx, l.deps.Publisher, l.world.Tick(), simulation.CatchupDroppedPayload{
					Dropped: dropped,
					Cap:     l.config.CatchupMaxTicks,
				})
				next = now.Add(-time.Duration(steps) * interval)
			}
			for i := 0; i < steps; i++ {
				if ctx.Err() != nil {
					return nil
				}
				l.Advance(ctx)
				next = next.Add(interval)
			}
			if steps > 1 && l.deps.Metrics != nil {
				l.deps.Metrics.Add(metricCatchupTotal, uint64(steps-1))
			}
		}
	}
}
