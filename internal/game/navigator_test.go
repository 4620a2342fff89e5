package game

import (
	"errors"
	"strings"
	"testing"

	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"
)

// wallLayout has a wall across the middle row with a gap on the right.
const wallLayout = `[Layout]
1 1 1 1
0 0 0 1
1 1 1 1
`

func TestNavigatorAimsAtNextCell(t *testing.T) {
	engine := newTestEngine(t, wallLayout, EngineConfig{})
	id, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 0, Y: 2}})

	if err := engine.Navigate(id, spatial.Point{X: 0, Y: 0}, true); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	engine.Step(16)

	ent := engine.entities[id]
	if want := (spatial.Vec2{X: 96, Y: 160}); ent.Pilot.Target != want {
		t.Errorf("target = %+v, want centre of (1,2) %+v", ent.Pilot.Target, want)
	}
	if ent.Movement != Accelerating {
		t.Errorf("Movement = %v, want accelerating", ent.Movement)
	}

	snap, _ := engine.Entity(id)
	if snap.Goal == nil || *snap.Goal != (spatial.Point{X: 0, Y: 0}) {
		t.Errorf("snapshot goal = %v, want (0,0)", snap.Goal)
	}
}

func TestNavigatorFollowsEdits(t *testing.T) {
	engine := newTestEngine(t, wallLayout, EngineConfig{})
	id, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 0, Y: 2}})
	engine.Navigate(id, spatial.Point{X: 0, Y: 0}, true)
	engine.Step(16)

	// Open the wall straight above the entity
	engine.QueueEdit(0, 1, collision.CodeOpen)
	engine.Step(16)

	if want := (spatial.Vec2{X: 32, Y: 96}); engine.entities[id].Pilot.Target != want {
		t.Errorf("target = %+v, want centre of (0,1) %+v", engine.entities[id].Pilot.Target, want)
	}
}

func TestNavigatorArrives(t *testing.T) {
	engine := newTestEngine(t, "[Layout]\n1 1 1\n", EngineConfig{})
	id, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 0, Y: 0}})
	engine.Navigate(id, spatial.Point{X: 2, Y: 0}, true)

	for i := 0; i < 400; i++ {
		engine.Step(16)
	}

	snap, _ := engine.Entity(id)
	if snap.Cell != (spatial.Point{X: 2, Y: 0}) {
		t.Errorf("entity ended in %+v, want (2,0)", snap.Cell)
	}
}

func TestSteerCancelsNavigation(t *testing.T) {
	engine := newTestEngine(t, wallLayout, EngineConfig{})
	id, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 0, Y: 2}})
	engine.Navigate(id, spatial.Point{X: 0, Y: 0}, true)

	if err := engine.Steer(id, spatial.Vec2{X: 200, Y: 160}, true); err != nil {
		t.Fatalf("Steer: %v", err)
	}
	engine.Step(16)

	snap, _ := engine.Entity(id)
	if snap.Goal != nil {
		t.Errorf("goal = %v after Steer, want none", *snap.Goal)
	}
	if engine.entities[id].Pilot.Target != (spatial.Vec2{X: 200, Y: 160}) {
		t.Errorf("target = %+v", engine.entities[id].Pilot.Target)
	}
}

func TestNavigateErrors(t *testing.T) {
	engine := newTestEngine(t, wallLayout, EngineConfig{})
	id, _ := engine.Spawn(SpawnOptions{Cell: spatial.Point{X: 0, Y: 0}})

	if err := engine.Navigate(id, spatial.Point{X: 4, Y: 0}, true); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
	if err := engine.Navigate("missing", spatial.Point{X: 1, Y: 0}, true); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("err = %v, want ErrUnknownEntity", err)
	}
}

func TestRoute(t *testing.T) {
	engine := newTestEngine(t, wallLayout, EngineConfig{})

	path, err := engine.Route(spatial.Point{X: 0, Y: 2}, spatial.Point{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	want := []spatial.Point{
		{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2},
		{X: 3, Y: 1},
		{X: 3, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 0},
	}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}

	if _, err := engine.Route(spatial.Point{X: 0, Y: 0}, spatial.Point{X: 1, Y: 1}); !errors.Is(err, ErrNoRoute) {
		t.Errorf("route into wall: err = %v, want ErrNoRoute", err)
	}
	if _, err := engine.Route(spatial.Point{X: 0, Y: 0}, spatial.Point{X: 0, Y: 3}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("route off grid: err = %v, want ErrOutOfBounds", err)
	}
}

func TestRouteCacheStaysBounded(t *testing.T) {
	const size = 12
	row := strings.TrimSpace(strings.Repeat("1 ", size))
	layout := "[Layout]\n" + strings.Repeat(row+"\n", size)

	limits := DefaultLimits
	limits.MaxRouteFields = 4
	engine := newTestEngine(t, layout, EngineConfig{Limits: limits})

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if _, err := engine.Route(spatial.Point{X: 0, Y: 0}, spatial.Point{X: x, Y: y}); err != nil {
				t.Fatalf("Route to (%d,%d): %v", x, y, err)
			}
		}
	}

	if n := engine.routes.Len(); n != 4 {
		t.Errorf("cached route fields = %d, want 4", n)
	}
}

func TestRouteCacheDefaultsWhenUnset(t *testing.T) {
	limits := ResourceLimits{MaxEntities: 1, MaxSnapshotEntities: 1, MaxEffectsPerTick: 1, MaxPendingEdits: 1}
	engine := newTestEngine(t, wallLayout, EngineConfig{Limits: limits})

	if got := engine.routes.Cap(); got != DefaultLimits.MaxRouteFields {
		t.Errorf("route cache cap = %d, want %d", got, DefaultLimits.MaxRouteFields)
	}
}
