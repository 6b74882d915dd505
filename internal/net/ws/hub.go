package ws

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"areacloud/internal/cloud"
	"areacloud/internal/geom"
	"areacloud/internal/net/proto"
	"areacloud/internal/sim"
	"areacloud/internal/synced"
	"areacloud/internal/telemetry"
	"areacloud/logging"
	"areacloud/logging/network"
)

const (
	// DefaultSendBuffer is the number of frames queued per subscriber before
	// it is dropped as a slow consumer.
	DefaultSendBuffer = 64

	writeWait = 5 * time.Second

	metricSubscribers    = "ws_subscribers"
	metricFramesSent     = "ws_frames_sent_total"
	metricBytesSent      = "ws_bytes_sent_total"
	metricSlowConsumers  = "ws_slow_consumers_total"
	metricEncodeFailures = "ws_encode_failures_total"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("ws: hub closed")

// CommandSink stages commands received from clients. *sim.Loop satisfies it.
type CommandSink interface {
	Enqueue(cmd sim.Command) error
}

// HubConfig wires the collaborators of a hub.
type HubConfig struct {
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
	Publisher  logging.Publisher
	Commands   CommandSink
	SendBuffer int
}

// CloudSource is the read side of a world that the hub replicates.
type CloudSource interface {
	Tick() uint64
	Clouds() []*cloud.Cloud
	DrainRemovedClouds() []uuid.UUID
}

type cachedCloud struct {
	position geom.Vec3
	order    []string
	fields   map[string]synced.Update
}

// Hub fans replicated cloud state out to websocket subscribers. Publish runs
// on the simulation goroutine once per step; subscribers are served from the
// cached state so they never touch the world.
type Hub struct {
	cfg HubConfig
	pub logging.Publisher

	mu          sync.Mutex
	closed      bool
	subscribers map[string]*Subscriber
	clouds      map[uuid.UUID]*cachedCloud
	cloudOrder  []uuid.UUID
	tick        uint64
	entropy     *ulid.MonotonicEntropy
}

// NewHub constructs an empty hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher{}
	}
	return &Hub{
		cfg:         cfg,
		pub:         pub,
		subscribers: make(map[string]*Subscriber),
		clouds:      make(map[uuid.UUID]*cachedCloud),
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

// Tick returns the tick of the last published frame.
func (h *Hub) Tick() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tick
}

// Subscribers returns the number of connected sessions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Publish drains the changed fields of every cloud in src, folds them into
// the cached state and broadcasts them as one update frame. Clouds that
// disappeared since the previous frame are reported as removed.
func (h *Hub) Publish(ctx context.Context, src CloudSource) {
	if h == nil || src == nil {
		return
	}
	src.DrainRemovedClouds()
	tick := src.Tick()
	clouds := src.Clouds()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.tick = tick

	present := make(map[uuid.UUID]struct{}, len(clouds))
	var changed []proto.CloudState
	for _, c := range clouds {
		present[c.ID()] = struct{}{}
		if !c.Store().Dirty() {
			continue
		}
		updates, err := c.Store().Drain()
		if err != nil {
			h.logf("[ws] drain cloud %s: %v", c.ID(), err)
			h.metric(metricEncodeFailures, 1)
			continue
		}
		h.merge(c.ID(), c.Position(), updates)
		changed = append(changed, proto.CloudState{ID: c.ID(), Position: c.Position(), Fields: updates})
	}

	var removed []uuid.UUID
	kept := h.cloudOrder[:0]
	for _, id := range h.cloudOrder {
		if _, ok := present[id]; ok {
			kept = append(kept, id)
			continue
		}
		delete(h.clouds, id)
		removed = append(removed, id)
	}
	h.cloudOrder = kept

	if len(changed) == 0 && len(removed) == 0 {
		return
	}
	data, err := proto.EncodeState(proto.State{Tick: tick, Clouds: changed, Removed: removed})
	if err != nil {
		h.logf("[ws] encode frame for tick %d: %v", tick, err)
		h.metric(metricEncodeFailures, 1)
		return
	}
	for _, sub := range h.subscribers {
		if !sub.enqueue(data) {
			h.metric(metricSlowConsumers, 1)
			h.removeLocked(ctx, sub, "slow consumer")
		}
	}
}

func (h *Hub) merge(id uuid.UUID, position geom.Vec3, updates []synced.Update) {
	entry, ok := h.clouds[id]
	if !ok {
		entry = &cachedCloud{fields: make(map[string]synced.Update)}
		h.clouds[id] = entry
		h.cloudOrder = append(h.cloudOrder, id)
	}
	entry.position = position
	for _, update := range updates {
		if _, exists := entry.fields[update.Key]; !exists {
			entry.order = append(entry.order, update.Key)
		}
		entry.fields[update.Key] = update
	}
}

// snapshotLocked renders every cached cloud as a resync frame.
func (h *Hub) snapshotLocked() ([]byte, error) {
	states := make([]proto.CloudState, 0, len(h.cloudOrder))
	for _, id := range h.cloudOrder {
		entry := h.clouds[id]
		fields := make([]synced.Update, 0, len(entry.order))
		for _, key := range entry.order {
			fields = append(fields, entry.fields[key])
		}
		states = append(states, proto.CloudState{ID: id, Position: entry.position, Fields: fields})
	}
	return proto.EncodeState(proto.State{Tick: h.tick, Resync: true, Clouds: states})
}

// Subscribe registers a connection and queues the full snapshot as its first
// frame. The returned subscriber owns a writer goroutine until it is removed.
func (h *Hub) Subscribe(ctx context.Context, conn *websocket.Conn, remote string) (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	snapshot, err := h.snapshotLocked()
	if err != nil {
		return nil, err
	}
	id := ulid.MustNew(ulid.Timestamp(time.Now()), h.entropy).String()
	sub := newSubscriber(id, remote, conn, h.cfg.SendBuffer)
	sub.enqueue(snapshot)
	h.subscribers[id] = sub
	go sub.writeLoop(h)

	h.store(metricSubscribers, uint64(len(h.subscribers)))
	network.SubscriberJoined(ctx, h.pub, h.tick, network.SubscriberPayload{Session: id, Remote: remote})
	return sub, nil
}

// Unsubscribe removes the session and closes its connection.
func (h *Hub) Unsubscribe(ctx context.Context, id, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		h.removeLocked(ctx, sub, reason)
	}
}

func (h *Hub) removeLocked(ctx context.Context, sub *Subscriber, reason string) {
	if h.subscribers[sub.id] != sub {
		return
	}
	delete(h.subscribers, sub.id)
	sub.close()
	h.store(metricSubscribers, uint64(len(h.subscribers)))
	network.SubscriberLeft(ctx, h.pub, h.tick, network.SubscriberPayload{Session: sub.id, Remote: sub.remote, Reason: reason})
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, sub := range h.subscribers {
		h.removeLocked(ctx, sub, "shutdown")
	}
}

func (h *Hub) sent(bytes int) {
	h.metric(metricFramesSent, 1)
	h.metric(metricBytesSent, uint64(bytes))
}

func (h *Hub) logf(format string, args ...any) {
	if h.cfg.Logger != nil {
		h.cfg.Logger.Printf(format, args...)
	}
}

func (h *Hub) metric(key string, delta uint64) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.Add(key, delta)
	}
}

func (h *Hub) store(key string, value uint64) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.Store(key, value)
	}
}
