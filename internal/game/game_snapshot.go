package game

import (
	"sync/atomic"
	"time"

	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"
)

// ResourceLimits defines hard caps on engine state
type ResourceLimits struct {
	MaxEntities         int // Hard cap on live entities
	MaxSnapshotEntities int // Cap on entities copied into a snapshot
	MaxEffectsPerTick   int // Cap on terrain effects kept per snapshot
	MaxPendingEdits     int // Cap on queued cell edits between ticks
	MaxRouteFields      int // Cap on cached route fields (one per goal cell)
}

// DefaultLimits provides production-safe default limits
var DefaultLimits = ResourceLimits{
	MaxEntities:         1000,
	MaxSnapshotEntities: 500,
	MaxEffectsPerTick:   64,
	MaxPendingEdits:     256,
	MaxRouteFields:      64,
}

// EntitySnapshot is an immutable copy of entity state for readers.
// Goal, set while the entity is navigating, points at a private copy.
type EntitySnapshot struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	X            float64        `json:"x"`
	Y            float64        `json:"y"`
	W            float64        `json:"w"`
	H            float64        `json:"h"`
	Angle        float64        `json:"angle"`
	Speed        float64        `json:"speed"`
	VX           float64        `json:"vx"`
	VY           float64        `json:"vy"`
	Movement     Movement       `json:"movement"`
	Cell         spatial.Point  `json:"cell"`
	AnimationFPS int            `json:"animationFps"`
	Contact      string         `json:"contact,omitempty"`
	Goal         *spatial.Point `json:"goal,omitempty"`
}

// EffectSnapshot is a terrain effect fired during the snapshot's tick
type EffectSnapshot struct {
	EntityID string                `json:"entityId"`
	Effect   collision.EffectEvent `json:"effect"`
}

// GameSnapshot is a complete immutable engine state.
// Slices are pre-allocated and capped by ResourceLimits.
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	TickNumber uint64    `json:"tick"`
	DeltaMs    float64   `json:"deltaMs"`

	Entities []EntitySnapshot `json:"entities"`
	Effects  []EffectSnapshot `json:"effects"`

	EntityCount  int `json:"entityCount"`
	ContactCount int `json:"contactCount"`
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Uses triple buffering for lock-free producer/consumer.
type SnapshotPool struct {
	snapshots [3]GameSnapshot
	limits    ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}

	for i := range pool.snapshots {
		pool.snapshots[i] = GameSnapshot{
			Entities: make([]EntitySnapshot, 0, limits.MaxSnapshotEntities),
			Effects:  make([]EffectSnapshot, 0, limits.MaxEffectsPerTick),
		}
	}

	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the tick).
// Returns a snapshot with reset slices but preserved capacity.
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Entities = snap.Entities[:0]
	snap.Effects = snap.Effects[:0]
	snap.EntityCount = 0
	snap.ContactCount = 0

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks write complete and advances read pointer
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer side).
// Before the first publish it returns an empty snapshot.
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// Limits returns the resource limits
func (p *SnapshotPool) Limits() ResourceLimits {
	return p.limits
}
