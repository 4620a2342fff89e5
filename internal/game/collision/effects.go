package collision

import (
	"fmt"

	"tile-engine/internal/game/spatial"
)

// EffectKind tags what a special cell does to whatever stands on it.
type EffectKind uint8

const (
	EffectNone    EffectKind = iota
	EffectSlow               // code 2
	EffectFast               // code 3
	EffectTrigger            // codes 4..9, scripted by the map
)

func (k EffectKind) String() string {
	switch k {
	case EffectSlow:
		return "slow"
	case EffectFast:
		return "fast"
	case EffectTrigger:
		return "trigger"
	default:
		return "none"
	}
}

// MarshalText encodes the kind by name.
func (k EffectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a name written by MarshalText.
func (k *EffectKind) UnmarshalText(b []byte) error {
	for _, kind := range []EffectKind{EffectNone, EffectSlow, EffectFast, EffectTrigger} {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("collision: unknown effect kind %q", b)
}

// effectKinds maps each special code to its kind. New terrain is added here.
var effectKinds = map[int]EffectKind{
	2: EffectSlow,
	3: EffectFast,
	4: EffectTrigger,
	5: EffectTrigger,
	6: EffectTrigger,
	7: EffectTrigger,
	8: EffectTrigger,
	9: EffectTrigger,
}

// EffectEvent is emitted when a body's centre stands on a special cell.
type EffectEvent struct {
	Code        int           `json:"code"`
	Kind        EffectKind    `json:"kind"`
	Cell        spatial.Point `json:"cell"`
	Description string        `json:"description"`
}

// IsSpecial reports whether code is one of the special terrain codes.
func IsSpecial(code int) bool {
	return code >= minSpecialCode && code <= maxSpecialCode
}

// IsKnown reports whether code is a cell code layouts may contain.
func IsKnown(code int) bool {
	return code >= CodeBlocked && code <= maxSpecialCode
}

// KindOf returns the effect kind of a code, EffectNone for ordinary cells.
func KindOf(code int) EffectKind {
	return effectKinds[code]
}

// CustomEffectsAt looks up the cell under center and returns the event it
// produces, if any. The layer keeps no subscribers; delivering the event is
// up to the caller.
func (l *Layer) CustomEffectsAt(center spatial.Vec2) (EffectEvent, bool) {
	cell := l.cfg.Metrics.PixelToCell(center)
	code := l.GetCell(cell)

	kind, ok := effectKinds[code]
	if !ok {
		return EffectEvent{}, false
	}

	return EffectEvent{
		Code:        code,
		Kind:        kind,
		Cell:        cell,
		Description: fmt.Sprintf("collision with cell code %d at (%d,%d)", code, cell.X, cell.Y),
	}, true
}

// Modifier is how a terrain code changes movement and the suggested
// animation playback rate.
type Modifier struct {
	Speed        float64 `json:"speed"`
	AnimationFPS int     `json:"animationFps"`
}

var (
	defaultModifier = Modifier{Speed: 1.0, AnimationFPS: 7}
	modifiers       = map[int]Modifier{
		CodeSlow: {Speed: 0.5, AnimationFPS: 3},
		CodeFast: {Speed: 1.5, AnimationFPS: 10},
	}
)

// ModifierFor returns the movement modifier of a cell code.
func ModifierFor(code int) Modifier {
	if m, ok := modifiers[code]; ok {
		return m
	}
	return defaultModifier
}

// MovementModifier returns the velocity multiplier of a cell code.
func MovementModifier(code int) float64 {
	return ModifierFor(code).Speed
}

// ModifierAt returns the modifier of the cell under a pixel position.
func (l *Layer) ModifierAt(p spatial.Vec2) Modifier {
	return ModifierFor(l.GetCell(l.cfg.Metrics.PixelToCell(p)))
}
