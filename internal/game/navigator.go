package game

import (
	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"
)

// Navigator drives a mover to a goal cell along the cheapest route around
// blocking cells. Each tick it aims its Pilot at the centre of the next cell
// on the route, or straight at the goal when no route exists.
type Navigator struct {
	Pilot
	Goal spatial.Point `json:"goal"`

	fields *spatial.FlowFieldCache
}

// NewNavigator returns a navigator that takes its routes from fields.
func NewNavigator(goal spatial.Point, thrust bool, fields *spatial.FlowFieldCache) *Navigator {
	return &Navigator{
		Pilot:  Pilot{Thrust: thrust},
		Goal:   goal,
		fields: fields,
	}
}

// Steer implements Controller.
func (n *Navigator) Steer(m *Mover, layer *collision.Layer) {
	metrics := layer.Metrics()

	waypoint := n.Goal
	if next, ok := n.fields.Get(n.Goal).Next(metrics.PixelToCell(m.Center())); ok {
		waypoint = next
	}
	n.Target = metrics.CellCenter(waypoint, spatial.Vec2{})

	n.Pilot.Steer(m, layer)
}

// blockingCells is the passability rule routes are planned with.
func blockingCells(layer *collision.Layer) spatial.PassableFunc {
	return func(x, y int) bool {
		return layer.Get(x, y) != collision.CodeBlocked
	}
}
