package collision

import (
	"encoding/json"
	"testing"

	"tile-engine/internal/game/spatial"
)

func TestCustomEffectsAt(t *testing.T) {
	layer := MustLoadLayout("[Layout]\n0 1 2 3 4 5 6 7 8 9\n", DefaultConfig())

	for x := 0; x < layer.Width(); x++ {
		code := layer.Get(x, 0)
		center := spatial.Vec2{X: float64(x*64 + 32), Y: 32}

		ev, ok := layer.CustomEffectsAt(center)
		if ok != IsSpecial(code) {
			t.Errorf("code %d: emitted = %v, want %v", code, ok, IsSpecial(code))
			continue
		}
		if !ok {
			continue
		}
		if ev.Code != code {
			t.Errorf("event code = %d, want %d", ev.Code, code)
		}
		if ev.Cell != (spatial.Point{X: x, Y: 0}) {
			t.Errorf("event cell = %+v, want (%d,0)", ev.Cell, x)
		}
		if ev.Description == "" {
			t.Error("event has no description")
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		code int
		want EffectKind
	}{
		{CodeBlocked, EffectNone},
		{CodeOpen, EffectNone},
		{CodeSlow, EffectSlow},
		{CodeFast, EffectFast},
		{4, EffectTrigger},
		{9, EffectTrigger},
		{10, EffectNone},
		{-1, EffectNone},
	}
	for _, tt := range tests {
		if got := KindOf(tt.code); got != tt.want {
			t.Errorf("KindOf(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsKnown(t *testing.T) {
	for code := -2; code <= 11; code++ {
		want := code >= 0 && code <= 9
		if got := IsKnown(code); got != want {
			t.Errorf("IsKnown(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestMovementModifier(t *testing.T) {
	tests := []struct {
		code    int
		want    float64
		wantFPS int
	}{
		{CodeBlocked, 1.0, 7},
		{CodeOpen, 1.0, 7},
		{CodeSlow, 0.5, 3},
		{CodeFast, 1.5, 10},
		{7, 1.0, 7},
	}
	for _, tt := range tests {
		if got := MovementModifier(tt.code); got != tt.want {
			t.Errorf("MovementModifier(%d) = %v, want %v", tt.code, got, tt.want)
		}
		if got := ModifierFor(tt.code).AnimationFPS; got != tt.wantFPS {
			t.Errorf("ModifierFor(%d).AnimationFPS = %d, want %d", tt.code, got, tt.wantFPS)
		}
	}
}

func TestModifierAtClampsToEdge(t *testing.T) {
	layer := MustLoadLayout("[Layout]\n1 2\n", DefaultConfig())

	if got := layer.ModifierAt(spatial.Vec2{X: 500, Y: 10}).Speed; got != 0.5 {
		t.Errorf("ModifierAt past right edge = %v, want 0.5", got)
	}
}

func TestEffectEventJSON(t *testing.T) {
	ev := EffectEvent{Code: 3, Kind: EffectFast, Cell: spatial.Point{X: 1, Y: 2}}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["kind"] != "fast" {
		t.Errorf("kind = %v, want fast", decoded["kind"])
	}
}

func TestEffectKindUnmarshalText(t *testing.T) {
	var ev EffectEvent
	if err := json.Unmarshal([]byte(`{"code":5,"kind":"trigger"}`), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.Kind != EffectTrigger {
		t.Errorf("Kind = %v, want trigger", ev.Kind)
	}

	if err := json.Unmarshal([]byte(`{"kind":"lava"}`), &ev); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}
