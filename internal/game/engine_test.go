package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"
)

const openLayout = `[Layout]
1 1 1 1
1 1 1 1
1 1 1 1
1 1 1 1
`

func newTestEngine(t *testing.T, layout string, cfg EngineConfig) *Engine {
	t.Helper()
	layer, err := collision.LoadLayout(strings.NewReader(layout), collision.DefaultConfig())
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	return NewEngine(layer, cfg)
}

// TestEngineStartStop verifies engine can start and stop without panics
func TestEngineStartStop(t *testing.T) {
	engine := newTestEngine(t, openLayout, EngineConfig{TickRate: 60})
	engine.Start()
	time.Sleep(50 * time.Millisecond)
	engine.Stop()

	// Should not panic on double stop
	engine.Stop()

	if engine.Stats().Tick == 0 {
		t.Error("expected at least one tick while running")
	}
}

func TestEngineRestart(t *testing.T) {
	engine := newTestEngine(t, openLayout, EngineConfig{TickRate: 100})
	engine.Start()
	time.Sleep(30 * time.Millisecond)
	engine.Stop()

	// A tick already queued on the ticker may still land
	time.Sleep(20 * time.Millisecond)
	stopped := engine.Stats().Tick
	time.Sleep(30 * time.Millisecond)
	if engine.Stats().Tick != stopped {
		t.Fatal("engine kept ticking after Stop")
	}

	engine.Start()
	defer engine.Stop()

	deadline := time.Now().Add(time.Second)
	for engine.Stats().Tick <= stopped {
		if time.Now().After(deadline) {
			t.Fatalf("no ticks after restart (tick stayed at %d)", stopped)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !engine.Stats().Running {
		t.Error("Running = false after restart")
	}
}

func TestSpawnPlacement(t *testing.T) {
	engine := newTestEngine(t, openLayout, EngineConfig{})

	tests := []struct {
		name  string
		opts  SpawnOptions
		wantX float64
		wantY float64
	}{
		{"default spawn", SpawnOptions{Name: "a"}, 64, 64},
		{"explicit position", SpawnOptions{Name: "b", Position: &spatial.Vec2{X: 10, Y: 20}}, 10, 20},
		{"cell centre", SpawnOptions{Name: "c", Cell: spatial.Point{X: 2, Y: 1}}, 128, 64},
		{"small body in cell", SpawnOptions{Name: "d", Cell: spatial.Point{X: 0, Y: 0}, Size: spatial.Vec2{X: 32, Y: 32}}, 16, 16},
		{"clamped to layer", SpawnOptions{Name: "e", Position: &spatial.Vec2{X: 1000, Y: -50}}, 192, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := engine.Spawn(tt.opts)
			if err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			snap, ok := engine.Entity(id)
			if !ok {
				t.Fatal("spawned entity not found")
			}
			if snap.X != tt.wantX || snap.Y != tt.wantY {
				t.Errorf("position = (%v,%v), want (%v,%v)", snap.X, snap.Y, tt.wantX, tt.wantY)
			}
			if snap.Name != tt.opts.Name {
				t.Errorf("name = %q, want %q", snap.Name, tt.opts.Name)
			}
		})
	}
}

func TestSpawnErrors(t *testing.T) {
	limits := ResourceLimits{MaxEntities: 1, MaxSnapshotEntities: 1, MaxEffectsPerTick: 1, MaxPendingEdits: 1}
	engine := newTestEngine(t, openLayout, EngineConfig{Limits: limits})

	if _, err := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 4, Y: 0}}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("out of bounds cell: err = %v, want ErrOutOfBounds", err)
	}

	sizes := []struct {
		name string
		size spatial.Vec2
	}{
		{"negative", spatial.Vec2{X: -40, Y: -40}},
		{"negative height", spatial.Vec2{X: 32, Y: -1}},
		{"zero width", spatial.Vec2{X: 0, Y: 32}},
		{"infinite", spatial.Vec2{X: math.Inf(1), Y: 32}},
		{"NaN", spatial.Vec2{X: math.NaN(), Y: 32}},
	}
	for _, tt := range sizes {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 1, Y: 1}, Size: tt.size})
			if !errors.Is(err, ErrInvalidSize) {
				t.Errorf("err = %v, want ErrInvalidSize", err)
			}
		})
	}
	if n := engine.Stats().Entities; n != 0 {
		t.Fatalf("rejected spawns left %d entities", n)
	}

	if _, err := engine.Spawn(SpawnOptions{}); err != nil {
		t.Fatalf("first spawn: %v", err)
	}
	if _, err := engine.Spawn(SpawnOptions{}); !errors.Is(err, ErrEntityLimit) {
		t.Errorf("second spawn: err = %v, want ErrEntityLimit", err)
	}
}

func TestRemove(t *testing.T) {
	engine := newTestEngine(t, openLayout, EngineConfig{})
	id, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 1, Y: 1}})

	if err := engine.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := engine.Entity(id); ok {
		t.Error("entity still present after Remove")
	}
	if got := engine.Occupants(spatial.Point{X: 1, Y: 1}); len(got) != 0 {
		t.Errorf("occupants after Remove = %v", got)
	}
	if err := engine.Remove(id); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("second Remove: err = %v, want ErrUnknownEntity", err)
	}
}

func TestStepResolvesBlocking(t *testing.T) {
	engine := newTestEngine(t, "[Layout]\n0 1\n1 1\n", EngineConfig{})
	id, _ := engine.Spawn(SpawnOptions{Position: &spatial.Vec2{X: 0, Y: 34}})

	stats := engine.Step(16)

	if stats.Contacts != 1 {
		t.Errorf("Contacts = %d, want 1", stats.Contacts)
	}
	snap, _ := engine.Entity(id)
	if snap.Y != 40 || snap.Speed != 0 {
		t.Errorf("entity at Y=%v speed=%v, want Y=40 speed=0", snap.Y, snap.Speed)
	}
	if snap.Contact != "n" {
		t.Errorf("Contact = %q, want n", snap.Contact)
	}
}

func TestEditsApplyBetweenTicks(t *testing.T) {
	engine := newTestEngine(t, openLayout, EngineConfig{})

	if err := engine.QueueEdit(2, 3, collision.CodeFast); err != nil {
		t.Fatalf("QueueEdit: %v", err)
	}
	if got := engine.Cell(2, 3); got != collision.CodeOpen {
		t.Errorf("cell changed before tick: %d", got)
	}
	if engine.PendingEdits() != 1 {
		t.Errorf("PendingEdits = %d, want 1", engine.PendingEdits())
	}

	stats := engine.Step(16)

	if stats.EditsApplied != 1 {
		t.Errorf("EditsApplied = %d, want 1", stats.EditsApplied)
	}
	if got := engine.Cell(2, 3); got != collision.CodeFast {
		t.Errorf("cell after tick = %d, want %d", got, collision.CodeFast)
	}
	if engine.PendingEdits() != 0 {
		t.Errorf("PendingEdits after tick = %d", engine.PendingEdits())
	}
}

func TestEditQueuedFromListenerWaitsForNextTick(t *testing.T) {
	engine := newTestEngine(t, "[Layout]\n4 1\n1 1\n", EngineConfig{})
	engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 0, Y: 0}})

	engine.Subscribe(func(string, collision.EffectEvent) {
		engine.QueueEdit(1, 1, collision.CodeBlocked)
	})

	engine.Step(16)
	if got := engine.Cell(1, 1); got != collision.CodeOpen {
		t.Fatalf("edit applied within the same tick: %d", got)
	}

	engine.Step(16)
	if got := engine.Cell(1, 1); got != collision.CodeBlocked {
		t.Errorf("edit not applied on next tick: %d", got)
	}
}

func TestQueueEditErrors(t *testing.T) {
	limits := DefaultLimits
	limits.MaxPendingEdits = 2
	engine := newTestEngine(t, openLayout, EngineConfig{Limits: limits})

	if err := engine.QueueEdit(-1, 0, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
	if err := engine.QueueEdit(0, 4, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}

	engine.QueueEdit(0, 0, 1)
	engine.QueueEdit(0, 1, 1)
	if err := engine.QueueEdit(0, 2, 1); !errors.Is(err, ErrEditQueueFull) {
		t.Errorf("err = %v, want ErrEditQueueFull", err)
	}
}

func TestListenersReceiveEffectsInOrder(t *testing.T) {
	engine := newTestEngine(t, "[Layout]\n4 5\n", EngineConfig{})
	a, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 0, Y: 0}})
	b, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 1, Y: 0}})

	var calls []string
	record := func(tag string) EffectListener {
		return func(id string, ev collision.EffectEvent) {
			calls = append(calls, fmt.Sprintf("%s:%s:%d", tag, id, ev.Code))
		}
	}
	engine.Subscribe(record("l1"))
	unsub := engine.Subscribe(record("l2"))

	engine.Step(16)

	want := []string{
		"l1:" + a + ":4", "l2:" + a + ":4",
		"l1:" + b + ":5", "l2:" + b + ":5",
	}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("calls = %v\nwant %v", calls, want)
	}

	unsub()
	calls = nil
	engine.Step(16)
	if len(calls) != 2 {
		t.Errorf("after unsubscribe got %d calls, want 2", len(calls))
	}
}

func TestSteer(t *testing.T) {
	engine := newTestEngine(t, openLayout, EngineConfig{})
	id, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 0, Y: 0}})

	if err := engine.SteerToCell(id, spatial.Point{X: 3, Y: 0}, true); err != nil {
		t.Fatalf("SteerToCell: %v", err)
	}
	for i := 0; i < 30; i++ {
		engine.Step(16)
	}

	snap, _ := engine.Entity(id)
	if snap.Movement != Accelerating {
		t.Errorf("Movement = %v, want accelerating", snap.Movement)
	}
	if snap.X <= 0 {
		t.Errorf("X = %v, expected the entity to move right", snap.X)
	}

	if err := engine.Steer("missing", spatial.Vec2{}, true); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("err = %v, want ErrUnknownEntity", err)
	}
	if err := engine.SteerToCell(id, spatial.Point{X: 9, Y: 9}, true); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestSnapshotAndOccupants(t *testing.T) {
	var ticks []uint64
	engine := newTestEngine(t, openLayout, EngineConfig{
		OnTick: func(s TickStats) { ticks = append(ticks, s.Tick) },
	})
	id, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 2, Y: 2}})

	engine.Step(16)
	engine.Step(16)

	snap := engine.GetSnapshot()
	if snap.TickNumber != 2 {
		t.Errorf("TickNumber = %d, want 2", snap.TickNumber)
	}
	if len(snap.Entities) != 1 || snap.Entities[0].ID != id {
		t.Errorf("snapshot entities = %+v", snap.Entities)
	}
	if snap.Entities[0].Cell != (spatial.Point{X: 2, Y: 2}) {
		t.Errorf("snapshot cell = %+v, want (2,2)", snap.Entities[0].Cell)
	}

	occ := engine.Occupants(spatial.Point{X: 2, Y: 2})
	if len(occ) != 1 || occ[0] != id {
		t.Errorf("Occupants = %v, want [%s]", occ, id)
	}

	if len(ticks) != 2 || ticks[1] != 2 {
		t.Errorf("OnTick saw %v, want [1 2]", ticks)
	}
}

func TestGridReturnsCopy(t *testing.T) {
	engine := newTestEngine(t, openLayout, EngineConfig{})
	grid := engine.Grid()
	grid[0][0] = collision.CodeBlocked

	if engine.Cell(0, 0) != collision.CodeOpen {
		t.Error("mutating Grid() result changed the engine's layer")
	}
}
