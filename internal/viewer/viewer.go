// Package viewer draws mirrored clouds and their particles top-down on a
// terminal screen.
package viewer

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"areacloud/internal/cloud"
)

const (
	// DefaultScale is the number of terminal rows per block.
	DefaultScale = 1.0
	// particleTTL is the number of frames a particle stays on screen.
	particleTTL = 8
)

// Source supplies mirrored clouds. *ws.Client satisfies it.
type Source interface {
	Tick() uint64
	Clouds() []*cloud.Cloud
	Step(ctx context.Context)
}

// Buffer collects emitted particles until the next frame.
type Buffer struct {
	mu      sync.Mutex
	pending []cloud.ParticleSpawn
}

// Emit implements cloud.Emitter.
func (b *Buffer) Emit(p cloud.ParticleSpawn) {
	b.mu.Lock()
	b.pending = append(b.pending, p)
	b.mu.Unlock()
}

func (b *Buffer) drain() []cloud.ParticleSpawn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

type particle struct {
	spawn cloud.ParticleSpawn
	ttl   int
}

// View renders one source onto a screen.
type View struct {
	screen tcell.Screen
	source Source
	buffer *Buffer
	scale  float64

	particles []particle
	centerX   float64
	centerZ   float64
}

// New constructs a view. buffer must be the emitter the source's mirrors
// were built with.
func New(screen tcell.Screen, source Source, buffer *Buffer, scale float64) *View {
	if scale <= 0 {
		scale = DefaultScale
	}
	if buffer == nil {
		buffer = &Buffer{}
	}
	return &View{screen: screen, source: source, buffer: buffer, scale: scale}
}

// Pan moves the view centre by the given number of blocks.
func (v *View) Pan(dx, dz float64) {
	v.centerX += dx
	v.centerZ += dz
}

// Frame runs one client tick and redraws the screen.
func (v *View) Frame(ctx context.Context) {
	if v.source != nil {
		v.source.Step(ctx)
	}
	kept := v.particles[:0]
	for _, p := range v.particles {
		p.ttl--
		if p.ttl <= 0 {
			continue
		}
		p.spawn.Position = p.spawn.Position.Add(p.spawn.Velocity)
		kept = append(kept, p)
	}
	v.particles = kept
	for _, spawn := range v.buffer.drain() {
		v.particles = append(v.particles, particle{spawn: spawn, ttl: particleTTL})
	}
	v.Draw()
}

// Draw renders the current particles and cloud centres.
func (v *View) Draw() {
	v.screen.Clear()
	width, height := v.screen.Size()

	for _, p := range v.particles {
		col, row, ok := v.project(p.spawn.Position.X, p.spawn.Position.Z, width, height)
		if !ok {
			continue
		}
		v.screen.SetContent(col, row, glyph(p.spawn.Type), nil, tcell.StyleDefault.Foreground(colorOf(p.spawn.Color)))
	}

	var clouds []*cloud.Cloud
	var tick uint64
	if v.source != nil {
		clouds = v.source.Clouds()
		tick = v.source.Tick()
	}
	for _, c := range clouds {
		pos := c.Position()
		col, row, ok := v.project(pos.X, pos.Z, width, height)
		if !ok {
			continue
		}
		style := tcell.StyleDefault.Foreground(colorOf(c.Color())).Bold(true)
		if c.Waiting() {
			style = style.Dim(true)
		}
		v.screen.SetContent(col, row, '+', nil, style)
	}

	status := fmt.Sprintf("tick %d  clouds %d  particles %d", tick, len(clouds), len(v.particles))
	for i, r := range status {
		if i >= width {
			break
		}
		v.screen.SetContent(i, 0, r, nil, tcell.StyleDefault.Reverse(true))
	}
	v.screen.Show()
}

// project maps world x/z onto a screen cell. Columns are doubled so a block
// looks square.
func (v *View) project(x, z float64, width, height int) (int, int, bool) {
	col := width/2 + int((x-v.centerX)*v.scale*2)
	row := height/2 + int((z-v.centerZ)*v.scale)
	if col < 0 || col >= width || row < 1 || row >= height {
		return 0, 0, false
	}
	return col, row, true
}

func glyph(particleType string) rune {
	switch particleType {
	case cloud.ParticleSmoke:
		return '░'
	case cloud.ParticleFlame:
		return '^'
	case cloud.ParticleDust:
		return '.'
	case cloud.ParticleDragonBreath, cloud.ParticleWitch:
		return '*'
	default:
		return 'o'
	}
}

func colorOf(rgb int32) tcell.Color {
	return tcell.NewRGBColor((rgb>>16)&0xFF, (rgb>>8)&0xFF, rgb&0xFF)
}
