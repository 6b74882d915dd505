package viewer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"

	"areacloud/internal/cloud"
	"areacloud/internal/geom"
	"areacloud/internal/synced"
)

type stubSource struct {
	clouds []*cloud.Cloud
	steps  int
}

func (s *stubSource) Tick() uint64 { return 7 }

func (s *stubSource) Clouds() []*cloud.Cloud { return s.clouds }

func (s *stubSource) Step(ctx context.Context) {
	s.steps++
	for _, c := range s.clouds {
		c.Step(ctx)
	}
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(40, 20)
	t.Cleanup(screen.Fini)
	return screen
}

func TestDrawPlacesParticleAtCentre(t *testing.T) {
	screen := newScreen(t)
	buffer := &Buffer{}
	v := New(screen, nil, buffer, 1)
	buffer.Emit(cloud.ParticleSpawn{Type: cloud.ParticleFlame, Position: geom.Vec3{}})

	v.Frame(context.Background())

	mainc, _, _, _ := screen.GetContent(20, 10)
	if mainc != '^' {
		t.Fatalf("expected flame glyph at centre, got %q", mainc)
	}
	if len(v.particles) != 1 {
		t.Fatalf("expected one live particle, got %d", len(v.particles))
	}
}

func TestParticlesExpire(t *testing.T) {
	screen := newScreen(t)
	buffer := &Buffer{}
	v := New(screen, nil, buffer, 1)
	buffer.Emit(cloud.ParticleSpawn{Type: cloud.ParticleDust, Position: geom.Vec3{X: 1}})
	for i := 0; i < particleTTL+1; i++ {
		v.Frame(context.Background())
	}
	if len(v.particles) != 0 {
		t.Fatalf("expected particles to expire, got %d", len(v.particles))
	}
}

func TestFrameStepsMirrorsIntoBuffer(t *testing.T) {
	screen := newScreen(t)
	buffer := &Buffer{}
	mirror := cloud.NewMirror(uuid.New(), geom.Vec3{}, buffer, rand.New(rand.NewSource(1)))
	if _, err := mirror.ApplyUpdates([]synced.Update{
		{Key: cloud.FieldWaiting, Value: []byte("false")},
		{Key: cloud.FieldRadius, Value: []byte("2")},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	source := &stubSource{clouds: []*cloud.Cloud{mirror}}
	v := New(screen, source, buffer, 1)

	v.Frame(context.Background())

	if source.steps != 1 {
		t.Fatalf("expected one client tick")
	}
	// ceil(pi*2*2) = 13 active particles
	if len(v.particles) != 13 {
		t.Fatalf("expected 13 particles, got %d", len(v.particles))
	}
	mainc, _, _, _ := screen.GetContent(20, 10)
	if mainc != '+' {
		t.Fatalf("expected cloud centre marker, got %q", mainc)
	}
}

func TestProjectClipsStatusRow(t *testing.T) {
	v := New(newScreen(t), nil, nil, 1)
	if _, _, ok := v.project(0, -10, 40, 20); ok {
		t.Fatalf("expected row 0 to be reserved for the status line")
	}
	v.Pan(5, 0)
	col, _, ok := v.project(5, 0, 40, 20)
	if !ok || col != 20 {
		t.Fatalf("expected pan to recentre, got col %d", col)
	}
}
