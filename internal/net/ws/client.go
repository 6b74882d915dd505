package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"areacloud/internal/cloud"
	"areacloud/internal/net/proto"
	"areacloud/internal/sim"
	"areacloud/internal/telemetry"
)

// ClientConfig wires the optional collaborators of a mirroring client.
type ClientConfig struct {
	Emitter cloud.Emitter
	RNG     *rand.Rand
	Logger  telemetry.Logger
	Dialer  *websocket.Dialer
	// ReadTimeout bounds each Receive. Zero waits forever.
	ReadTimeout time.Duration
}

// CommandResult is the server's answer to a sequenced command.
type CommandResult struct {
	Accepted bool
	Reason   string
	Retry    bool
	Tick     uint64
}

// Client mirrors the clouds of a server into observing clouds.
type Client struct {
	conn *websocket.Conn
	cfg  ClientConfig

	writeMu sync.Mutex
	seq     uint64

	mu      sync.Mutex
	tick    uint64
	mirrors map[uuid.UUID]*cloud.Cloud
	order   []uuid.UUID
	results map[uint64]CommandResult
}

// Dial connects to the replication endpoint at url.
func Dial(ctx context.Context, url string, cfg ClientConfig) (*Client, error) {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}
	return &Client{
		conn:    conn,
		cfg:     cfg,
		mirrors: make(map[uuid.UUID]*cloud.Cloud),
		results: make(map[uint64]CommandResult),
	}, nil
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Receive reads and applies one server message and returns its type.
func (c *Client) Receive() (string, error) {
	if c.cfg.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	typ, err := proto.PeekType(payload)
	if err != nil {
		return "", err
	}
	switch typ {
	case proto.TypeState:
		var state proto.State
		if err := json.Unmarshal(payload, &state); err != nil {
			return typ, fmt.Errorf("ws: decode state: %w", err)
		}
		return typ, c.applyState(state)
	case proto.TypeCommandAck:
		var ack proto.CommandAck
		if err := json.Unmarshal(payload, &ack); err != nil {
			return typ, err
		}
		c.record(ack.Seq, CommandResult{Accepted: true, Tick: ack.Tick})
	case proto.TypeCommandReject:
		var reject proto.CommandReject
		if err := json.Unmarshal(payload, &reject); err != nil {
			return typ, err
		}
		c.record(reject.Seq, CommandResult{Reason: reject.Reason, Retry: reject.Retry})
	}
	return typ, nil
}

// Run receives messages until ctx is cancelled or the connection fails.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()
	for {
		if _, err := c.Receive(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Client) applyState(state proto.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = state.Tick
	if state.Resync {
		c.mirrors = make(map[uuid.UUID]*cloud.Cloud)
		c.order = nil
	}
	var firstErr error
	for _, cs := range state.Clouds {
		mirror, ok := c.mirrors[cs.ID]
		if !ok {
			mirror = cloud.NewMirror(cs.ID, cs.Position, c.cfg.Emitter, c.cfg.RNG)
			c.mirrors[cs.ID] = mirror
			c.order = append(c.order, cs.ID)
		}
		if _, err := mirror.ApplyUpdates(cs.Fields); err != nil {
			c.cfg.Logger.Printf("[ws] cloud %s: %v", cs.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, id := range state.Removed {
		if _, ok := c.mirrors[id]; !ok {
			continue
		}
		delete(c.mirrors, id)
		for i, existing := range c.order {
			if existing == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	return firstErr
}

func (c *Client) record(seq uint64, result CommandResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[seq] = result
}

// Tick returns the server tick of the last applied frame.
func (c *Client) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Cloud returns the mirror with the given id.
func (c *Client) Cloud(id uuid.UUID) (*cloud.Cloud, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mirror, ok := c.mirrors[id]
	return mirror, ok
}

// Clouds returns the mirrors in the order the server first reported them.
func (c *Client) Clouds() []*cloud.Cloud {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*cloud.Cloud, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.mirrors[id])
	}
	return out
}

// Step runs one observer tick on every mirror, emitting particles.
func (c *Client) Step(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		c.mirrors[id].Step(ctx)
	}
}

// Send submits a command and returns the sequence number the answer will
// carry.
func (c *Client) Send(cmd sim.Command) (uint64, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.seq++
	msg := proto.ClientMessage{Ver: proto.Version, Type: proto.TypeCommand, Seq: c.seq, Command: &cmd}
	if err := c.conn.WriteJSON(msg); err != nil {
		return 0, err
	}
	return c.seq, nil
}

// Result returns the answer to the command sent with seq, if one arrived.
func (c *Client) Result(seq uint64) (CommandResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.results[seq]
	return result, ok
}
