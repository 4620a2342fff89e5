package game

import (
	"fmt"
	"math"

	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"
)

// Movement is what a mover's speed does this tick.
type Movement uint8

const (
	Stopped Movement = iota
	Accelerating
	Decelerating
)

func (m Movement) String() string {
	switch m {
	case Accelerating:
		return "accelerating"
	case Decelerating:
		return "decelerating"
	default:
		return "stopped"
	}
}

// MarshalText encodes the movement state by name.
func (m Movement) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a name written by MarshalText.
func (m *Movement) UnmarshalText(b []byte) error {
	switch string(b) {
	case "stopped":
		*m = Stopped
	case "accelerating":
		*m = Accelerating
	case "decelerating":
		*m = Decelerating
	default:
		return fmt.Errorf("game: unknown movement %q", b)
	}
	return nil
}

// Motion holds the speed model of a mover. Rates are per millisecond.
type Motion struct {
	MinSpeed      float64 `json:"minSpeed"`
	MaxSpeed      float64 `json:"maxSpeed"`
	Acceleration  float64 `json:"acceleration"`
	Deceleration  float64 `json:"deceleration"`
	RotationSpeed float64 `json:"rotationSpeed"`
	// AngleOffset is subtracted from Angle to get the direction of travel.
	AngleOffset float64 `json:"angleOffset"`
}

// DefaultMotion returns the speed model of a standard ship sprite that faces
// up at angle zero.
func DefaultMotion() Motion {
	return Motion{
		MinSpeed:      0.05,
		MaxSpeed:      0.5,
		Acceleration:  0.0003,
		Deceleration:  0.0005,
		RotationSpeed: 0.003,
		AngleOffset:   math.Pi / 2,
	}
}

// Mover integrates speed, facing and position for one body.
//
// The elapsed time of the current tick is set by Tick and read by every
// other method; it is in milliseconds and never measured here.
type Mover struct {
	*Body
	Motion

	Speed        float64      `json:"speed"`
	Velocity     spatial.Vec2 `json:"velocity"`
	Movement     Movement     `json:"movement"`
	AnimationFPS int          `json:"animationFps"`

	modifier float64
	dt       float64
}

// NewMover wraps body with the given speed model, at rest.
func NewMover(body *Body, motion Motion) *Mover {
	return &Mover{
		Body:         body,
		Motion:       motion,
		Movement:     Stopped,
		AnimationFPS: collision.ModifierFor(collision.CodeOpen).AnimationFPS,
		modifier:     1,
	}
}

// SetSpeed sets the current speed, bounded to [0, MaxSpeed].
func (m *Mover) SetSpeed(speed float64) {
	m.Speed = clampFloat(speed, 0, m.MaxSpeed)
}

// SetElapsed sets the tick delta in milliseconds for the calls that follow.
func (m *Mover) SetElapsed(dt float64) {
	if dt < 0 {
		dt = 0
	}
	m.dt = dt
}

// Elapsed returns the current tick delta in milliseconds.
func (m *Mover) Elapsed() float64 { return m.dt }

// Accelerate raises speed by Acceleration*dt, never past MaxSpeed.
func (m *Mover) Accelerate() {
	m.Speed = math.Min(m.MaxSpeed, m.Speed+m.Acceleration*m.dt)
}

// Decelerate lowers speed by Deceleration*dt, never below zero.
func (m *Mover) Decelerate() {
	m.Speed = math.Max(0, m.Speed-m.Deceleration*m.dt)
}

// Facing returns the unit direction of travel under the mover's own
// AngleOffset.
func (m *Mover) Facing() spatial.Vec2 {
	return spatial.DirectionOf(m.Angle - m.AngleOffset)
}

// Move advances the body by speed*dt along (cos(Angle-angleOffset),
// sin(Angle-angleOffset)), scaled by the terrain modifier picked up on the
// previous Tick. Tick passes the mover's own AngleOffset.
func (m *Mover) Move(angleOffset float64) {
	m.Velocity = spatial.DirectionOf(m.Angle - angleOffset).Scale(m.Speed * m.dt * m.modifier)
	m.X += m.Velocity.X
	m.Y += m.Velocity.Y
}

// RotateToward turns the body toward direction, at most RotationSpeed*dt of
// the way per call. angleOffset maps the direction to a body angle the same
// way Move maps it back. A zero direction leaves the angle alone.
func (m *Mover) RotateToward(direction spatial.Vec2, angleOffset float64) {
	if direction.IsZero() {
		return
	}
	target := math.Atan2(direction.Y, direction.X) + angleOffset
	step := math.Min(1, m.RotationSpeed*m.dt)
	m.Angle = spatial.CurveAngle(m.Angle, target, step)
}

// Controller decides a mover's Movement and steering before it integrates.
type Controller interface {
	Steer(m *Mover, layer *collision.Layer)
}

// TickResult reports what happened to a mover during one Tick.
type TickResult struct {
	Contact   collision.Contact
	Cell      spatial.Point
	Effect    collision.EffectEvent
	HasEffect bool
}

// Tick runs one integration step against layer:
//
//  1. store dt and let the controller steer
//  2. accelerate or decelerate per Movement
//  3. push the current rectangle out of blocking neighbours
//  4. move, then clamp to the layer's pixel area
//  5. pick up the terrain modifier and effect of the centre cell
//
// Blocking is resolved before displacement so overlap left by the previous
// tick is corrected before the body moves further. ctrl may be nil.
func (m *Mover) Tick(layer *collision.Layer, dt float64, ctrl Controller) TickResult {
	m.SetElapsed(dt)
	if ctrl != nil {
		ctrl.Steer(m, layer)
	}

	switch m.Movement {
	case Accelerating:
		m.Accelerate()
	case Decelerating:
		m.Decelerate()
	}

	var res TickResult
	res.Contact = layer.ResolveBlocking(m)

	if m.Movement != Stopped {
		m.Move(m.AngleOffset)
	} else {
		m.Velocity = spatial.Vec2{}
	}
	m.ClampTo(float64(layer.WidthInPixels()), float64(layer.HeightInPixels()))

	center := m.Center()
	mod := layer.ModifierAt(center)
	m.modifier = mod.Speed
	m.AnimationFPS = mod.AnimationFPS

	res.Cell = layer.Metrics().PixelToCell(center)
	res.Effect, res.HasEffect = layer.CustomEffectsAt(center)
	return res
}
