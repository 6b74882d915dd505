package logging

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FallbackLogger receives router diagnostics that cannot go through sinks.
type FallbackLogger interface {
	Printf(format string, args ...any)
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Router fans published events out to sinks from a single dispatch
// goroutine. Publish never blocks; events are dropped when the queue is full.
type Router struct {
	cfg         Config
	queue       chan Event
	sinks       []*sinkState
	clock       Clock
	fallback    FallbackLogger
	minSeverity Severity
	fields      map[string]any

	closed atomic.Bool
	stop   chan struct{}
	done   chan struct{}

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	lastDropLog  atomic.Int64
}

// RouterStats reports delivery counters.
type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

type sinkState struct {
	name      string
	sink      Sink
	failures  int
	nextRetry time.Time
}

// NewRouter starts a router delivering to the named sinks in name order.
func NewRouter(cfg Config, clock Clock, fallback FallbackLogger, sinks map[string]Sink) (*Router, error) {
	if fallback == nil {
		return nil, errors.New("logging: fallback logger is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	r := &Router{
		cfg:         cfg,
		queue:       make(chan Event, bufferSize),
		clock:       clock,
		fallback:    fallback,
		minSeverity: cfg.MinimumSeverity,
		fields:      cfg.cloneFields(),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	names := make([]string, 0, len(sinks))
	for name, sink := range sinks {
		if sink != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		r.sinks = append(r.sinks, &sinkState{name: name, sink: sinks[name]})
	}
	go r.run()
	return r, nil
}

func (r *Router) run() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		case event := <-r.queue:
			r.forward(event)
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = withFields(event, r.fields)
	r.eventsTotal.Add(1)
	for _, state := range r.sinks {
		r.deliver(state, event)
	}
}

func (r *Router) deliver(state *sinkState, event Event) {
	now := time.Now()
	if state.failures > 0 && now.Before(state.nextRetry) {
		return
	}
	if err := state.sink.Write(cloneEvent(event)); err != nil {
		state.failures++
		delay := time.Duration(1<<min(state.failures, 5)) * time.Second
		state.nextRetry = now.Add(delay)
		r.fallback.Printf("logging: sink %s failed: %v (retry in %s)", state.name, err, delay)
		return
	}
	state.failures = 0
}

// Publish enqueues the event. Events without a type are ignored.
func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.handleDrop(event)
	}
}

func (r *Router) handleDrop(event Event) {
	r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.lastDropLog.Load()
	if now >= next && r.lastDropLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
		r.fallback.Printf("logging: dropping event type=%s tick=%d", event.Type, event.Tick)
	}
}

// Close drains queued events and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, state := range r.sinks {
		if err := state.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats returns the delivery counters.
func (r *Router) Stats() RouterStats {
	if r == nil {
		return RouterStats{}
	}
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}

// Sink returns the sink registered under name.
func (r *Router) Sink(name string) Sink {
	if r == nil {
		return nil
	}
	for _, state := range r.sinks {
		if state.name == name {
			return state.sink
		}
	}
	return nil
}
