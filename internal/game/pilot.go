package game

import (
	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"
)

// Pilot steers a mover toward a target point while thrust is held.
//
// With thrust on and the target outside the mover's own rectangle the mover
// accelerates. Otherwise it coasts down, and once its speed falls under
// MinSpeed it stops. While moving it turns toward the centre of the cell that
// holds the target, so it lines up with the grid rather than the raw point.
type Pilot struct {
	Target spatial.Vec2 `json:"target"`
	Thrust bool         `json:"thrust"`
}

// Steer implements Controller.
func (p *Pilot) Steer(m *Mover, layer *collision.Layer) {
	switch {
	case p.Thrust && !m.Bounds().Contains(p.Target):
		m.Movement = Accelerating
	case m.Speed == 0:
		m.Movement = Stopped
	case !p.Thrust && m.Speed < m.MinSpeed:
		m.SetSpeed(0)
		m.Movement = Stopped
	default:
		m.Movement = Decelerating
	}

	if m.Movement == Stopped {
		return
	}

	goal := layer.Metrics().PointToCellCenter(p.Target, spatial.Vec2{})
	m.RotateToward(goal.Sub(m.Center()).Normalize(), m.AngleOffset)
}

// Release drops thrust; the mover coasts to a stop on following ticks.
func (p *Pilot) Release() { p.Thrust = false }
