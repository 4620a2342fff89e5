package game

import (
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"
)

var (
	ErrOutOfBounds   = errors.New("game: cell out of bounds")
	ErrUnknownEntity = errors.New("game: unknown entity")
	ErrEntityLimit   = errors.New("game: entity limit reached")
	ErrEditQueueFull = errors.New("game: edit queue full")
	ErrNoRoute       = errors.New("game: no route")
	ErrInvalidSize   = errors.New("game: entity size must be positive and finite")
)

// DefaultSpawn is where entities appear when no position is given.
var DefaultSpawn = spatial.Vec2{X: 64, Y: 64}

// EngineConfig configures an Engine. Zero fields take defaults.
type EngineConfig struct {
	TickRate   int
	Motion     Motion
	EntitySize spatial.Vec2
	Limits     ResourceLimits

	// OnTick runs after every tick, outside the engine lock.
	OnTick func(TickStats)
}

// TickStats summarises one tick for metrics
type TickStats struct {
	Tick         uint64
	Duration     time.Duration
	DeltaMs      float64
	Entities     int
	Contacts     int
	EditsApplied int
	Effects      []EffectSnapshot
}

// EffectListener receives terrain effects after the tick that fired them.
type EffectListener func(entityID string, ev collision.EffectEvent)

// CellEdit is a queued grid mutation
type CellEdit struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Code int `json:"code"`
}

// SpawnOptions places a new entity. Cell wins over Position when both are set.
type SpawnOptions struct {
	Name     string
	Position *spatial.Vec2
	Cell     spatial.CellVector
	Size     spatial.Vec2
}

// Entity is a mover on the grid driven by its pilot, or by a navigator
// when it is routing to a cell.
type Entity struct {
	ID    string
	Name  string
	Pilot *Pilot
	*Mover

	ctrl Controller
	last TickResult
}

type listenerEntry struct {
	id int
	fn EffectListener
}

// Engine owns one collision layer and advances every entity on it once per
// tick, in spawn order.
type Engine struct {
	mu       sync.RWMutex
	layer    *collision.Layer
	entities map[string]*Entity
	order    []*Entity

	// Rebuilt whenever entities move or change
	occupancy *spatial.Occupancy

	// Route fields, dropped whenever an edit lands
	routes *spatial.FlowFieldCache

	// Edits wait here until the next tick boundary
	editMu sync.Mutex
	edits  []CellEdit

	listenerMu     sync.RWMutex
	listeners      []listenerEntry
	nextListenerID int

	motion     Motion
	entitySize spatial.Vec2
	limits     ResourceLimits
	onTick     func(TickStats)

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount uint64

	snapshotPool *SnapshotPool
	eventLog     *EventLog
}

// NewEngine creates an engine over layer
func NewEngine(layer *collision.Layer, cfg EngineConfig) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.Motion == (Motion{}) {
		cfg.Motion = DefaultMotion()
	}
	if cfg.EntitySize.IsZero() {
		m := layer.Metrics()
		cfg.EntitySize = spatial.Vec2{X: float64(m.TileWidth), Y: float64(m.TileHeight)}
	}
	if cfg.Limits == (ResourceLimits{}) {
		cfg.Limits = DefaultLimits
	}
	if cfg.Limits.MaxRouteFields <= 0 {
		cfg.Limits.MaxRouteFields = DefaultLimits.MaxRouteFields
	}

	return &Engine{
		layer:        layer,
		entities:     make(map[string]*Entity),
		order:        make([]*Entity, 0, cfg.Limits.MaxSnapshotEntities),
		occupancy:    spatial.NewOccupancy(layer.Metrics(), layer.Width(), layer.Height(), cfg.Limits.MaxEntities),
		routes:       spatial.NewFlowFieldCache(layer.Width(), layer.Height(), cfg.Limits.MaxRouteFields, blockingCells(layer)),
		edits:        make([]CellEdit, 0, cfg.Limits.MaxPendingEdits),
		motion:       cfg.Motion,
		entitySize:   cfg.EntitySize,
		limits:       cfg.Limits,
		onTick:       cfg.OnTick,
		tickRate:     cfg.TickRate,
		snapshotPool: NewSnapshotPool(cfg.Limits),
		eventLog:     NewEventLog(),
	}
}

// Start begins the tick loop. Each tick is handed the wall-clock time since
// the previous one. An engine may be started again after Stop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	ticker := time.NewTicker(time.Second / time.Duration(e.tickRate))
	e.ticker = ticker
	// Stop closes the channel, so each run gets a fresh one
	stop := make(chan struct{})
	e.stopChan = stop
	e.mu.Unlock()

	go func() {
		last := time.Now()
		for {
			select {
			case now := <-ticker.C:
				dt := float64(now.Sub(last)) / float64(time.Millisecond)
				last = now
				e.Step(dt)
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Tile engine started at %d TPS (%dx%d cells)", e.tickRate, e.layer.Width(), e.layer.Height())
}

// Stop stops the tick loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Tile engine stopped")
}

// Step runs one tick with dt milliseconds of elapsed time.
//
// Queued edits are applied first, so the grid is fixed for the rest of the
// tick. Effect listeners run after the lock is released, in the order the
// effects fired.
func (e *Engine) Step(dt float64) TickStats {
	start := time.Now()

	e.mu.Lock()
	applied := e.applyEdits()
	e.tickCount++

	e.eventLog.EmitSimple(EventTypeTick, e.tickCount, "",
		TickPayload{
			EntityCount:  len(e.order),
			DeltaMs:      dt,
			EditsApplied: applied,
		})

	var (
		contacts int
		effects  []EffectSnapshot
	)
	for _, ent := range e.order {
		res := ent.Tick(e.layer, dt, ent.ctrl)
		ent.last = res

		if res.Contact != 0 {
			contacts++
			e.eventLog.EmitSimple(EventTypeContact, e.tickCount, ent.ID,
				ContactPayload{
					EntityID:  ent.ID,
					Contact:   res.Contact.String(),
					Cell:      res.Cell,
					ResolvedX: ent.X,
					ResolvedY: ent.Y,
				})
		}
		if res.HasEffect {
			effects = append(effects, EffectSnapshot{EntityID: ent.ID, Effect: res.Effect})
			e.eventLog.EmitSimple(EventTypeTerrain, e.tickCount, ent.ID,
				TerrainPayload{EntityID: ent.ID, Effect: res.Effect})
		}
	}

	e.reindex()
	e.produceSnapshot(dt, effects, contacts)

	stats := TickStats{
		Tick:         e.tickCount,
		DeltaMs:      dt,
		Entities:     len(e.order),
		Contacts:     contacts,
		EditsApplied: applied,
		Effects:      effects,
	}
	e.mu.Unlock()

	e.deliver(effects)

	stats.Duration = time.Since(start)
	if e.onTick != nil {
		e.onTick(stats)
	}
	return stats
}

// applyEdits drains the edit queue into the layer. Caller holds e.mu.
func (e *Engine) applyEdits() int {
	e.editMu.Lock()
	pending := e.edits
	e.edits = make([]CellEdit, 0, cap(pending))
	e.editMu.Unlock()

	for _, ed := range pending {
		old := e.layer.Get(ed.X, ed.Y)
		e.layer.Set(ed.X, ed.Y, ed.Code)
		e.eventLog.EmitSimple(EventTypeCellEdit, e.tickCount, "",
			CellEditPayload{X: ed.X, Y: ed.Y, OldCode: old, NewCode: ed.Code})
	}
	if len(pending) > 0 {
		e.routes.Invalidate()
	}
	return len(pending)
}

// reindex rebuilds the occupancy index. Caller holds e.mu.
func (e *Engine) reindex() {
	e.occupancy.Clear()
	for i, ent := range e.order {
		e.occupancy.Insert(uint32(i), ent.Center())
	}
}

func (e *Engine) deliver(effects []EffectSnapshot) {
	if len(effects) == 0 {
		return
	}

	e.listenerMu.RLock()
	listeners := append([]listenerEntry(nil), e.listeners...)
	e.listenerMu.RUnlock()

	for _, fx := range effects {
		for _, l := range listeners {
			l.fn(fx.EntityID, fx.Effect)
		}
	}
}

// Subscribe registers fn for terrain effects. The returned function removes it.
func (e *Engine) Subscribe(fn EffectListener) (unsubscribe func()) {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()

	e.nextListenerID++
	id := e.nextListenerID
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		e.listenerMu.Lock()
		defer e.listenerMu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// QueueEdit schedules a cell change for the next tick boundary.
func (e *Engine) QueueEdit(x, y, code int) error {
	// Dimensions never change, so no engine lock is needed here
	if !e.layer.InBounds(x, y) {
		return ErrOutOfBounds
	}

	e.editMu.Lock()
	defer e.editMu.Unlock()

	if len(e.edits) >= e.limits.MaxPendingEdits {
		return ErrEditQueueFull
	}
	e.edits = append(e.edits, CellEdit{X: x, Y: y, Code: code})
	return nil
}

// PendingEdits returns the number of queued edits
func (e *Engine) PendingEdits() int {
	e.editMu.Lock()
	defer e.editMu.Unlock()
	return len(e.edits)
}

// Spawn places a new entity and returns its ID
func (e *Engine) Spawn(opts SpawnOptions) (string, error) {
	size := opts.Size
	if size.IsZero() {
		size = e.entitySize
	}
	if !validSize(size) {
		return "", ErrInvalidSize
	}

	pos := DefaultSpawn
	switch {
	case opts.Cell != nil:
		c := spatial.ToPoint(opts.Cell)
		if !e.layer.InBounds(c.X, c.Y) {
			return "", ErrOutOfBounds
		}
		pos = e.layer.Metrics().CellCenter(c, size)
	case opts.Position != nil:
		pos = *opts.Position
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.order) >= e.limits.MaxEntities {
		log.Printf("⚠️ Entity limit reached (%d), rejecting: %s", e.limits.MaxEntities, opts.Name)
		return "", ErrEntityLimit
	}

	body := NewBody(pos, size.X, size.Y)
	body.ClampTo(float64(e.layer.WidthInPixels()), float64(e.layer.HeightInPixels()))

	pilot := &Pilot{}
	ent := &Entity{
		ID:    uuid.New().String(),
		Name:  opts.Name,
		Pilot: pilot,
		Mover: NewMover(body, e.motion),
		ctrl:  pilot,
	}
	ent.last.Cell = e.layer.Metrics().PixelToCell(body.Center())

	e.entities[ent.ID] = ent
	e.order = append(e.order, ent)
	e.reindex()

	e.eventLog.EmitSimple(EventTypeSpawn, e.tickCount, ent.ID,
		SpawnPayload{
			EntityID: ent.ID,
			Name:     ent.Name,
			X:        body.X,
			Y:        body.Y,
			Cell:     ent.last.Cell,
		})

	log.Printf("🚀 Entity spawned: %s (%s) at (%.0f,%.0f)", ent.Name, ent.ID, body.X, body.Y)
	return ent.ID, nil
}

// validSize rejects sizes that would invert or blow up the body's bounds.
func validSize(size spatial.Vec2) bool {
	return size.X > 0 && size.Y > 0 && !math.IsInf(size.X, 0) && !math.IsInf(size.Y, 0)
}

// Remove deletes an entity
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.entities[id]; !ok {
		return ErrUnknownEntity
	}
	delete(e.entities, id)

	for i, ent := range e.order {
		if ent.ID == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.reindex()

	e.eventLog.EmitSimple(EventTypeDespawn, e.tickCount, id, DespawnPayload{EntityID: id})
	return nil
}

// Steer points an entity's pilot at a pixel target
func (e *Engine) Steer(id string, target spatial.Vec2, thrust bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entities[id]
	if !ok {
		return ErrUnknownEntity
	}
	ent.Pilot.Target = target
	ent.Pilot.Thrust = thrust
	ent.ctrl = ent.Pilot
	return nil
}

// SteerToCell points an entity's pilot at the centre of a cell
func (e *Engine) SteerToCell(id string, cell spatial.CellVector, thrust bool) error {
	c := spatial.ToPoint(cell)
	if !e.layer.InBounds(c.X, c.Y) {
		return ErrOutOfBounds
	}
	return e.Steer(id, e.layer.Metrics().CellCenter(c, spatial.Vec2{}), thrust)
}

// Navigate sends an entity to a goal cell along the cheapest route around
// blocking cells. Routes follow grid edits made after the call.
func (e *Engine) Navigate(id string, goal spatial.CellVector, thrust bool) error {
	g := spatial.ToPoint(goal)
	if !e.layer.InBounds(g.X, g.Y) {
		return ErrOutOfBounds
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entities[id]
	if !ok {
		return ErrUnknownEntity
	}
	nav := NewNavigator(g, thrust, e.routes)
	ent.Pilot = &nav.Pilot
	ent.ctrl = nav
	return nil
}

// Route returns the cells a navigator would pass from one cell to another,
// both included.
func (e *Engine) Route(from, to spatial.CellVector) ([]spatial.Point, error) {
	f, t := spatial.ToPoint(from), spatial.ToPoint(to)
	if !e.layer.InBounds(f.X, f.Y) || !e.layer.InBounds(t.X, t.Y) {
		return nil, ErrOutOfBounds
	}

	// The cache fills lazily, so this takes the write lock
	e.mu.Lock()
	defer e.mu.Unlock()

	path := e.routes.Get(t).Path(f)
	if path == nil {
		return nil, ErrNoRoute
	}
	return path, nil
}

// Entity returns a copy of one entity's state
func (e *Engine) Entity(id string) (EntitySnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ent, ok := e.entities[id]
	if !ok {
		return EntitySnapshot{}, false
	}
	return ent.snapshot(), true
}

// Cell returns the clamped code at (x, y)
func (e *Engine) Cell(x, y int) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.layer.Get(x, y)
}

// Grid returns a copy of the collision layer
func (e *Engine) Grid() [][]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.layer.Rows()
}

// Metrics returns the tile size
func (e *Engine) Metrics() spatial.Metrics {
	return e.layer.Metrics()
}

// Occupants returns the IDs of entities whose centre is in cell c.
// Out-of-range cells are clamped like Cell.
func (e *Engine) Occupants(c spatial.Point) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	slots := e.occupancy.QueryCell(c)
	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, e.order[slot].ID)
	}
	return ids
}

// EngineStats is a summary for the stats endpoint
type EngineStats struct {
	Tick         uint64                 `json:"tick"`
	Running      bool                   `json:"running"`
	Entities     int                    `json:"entities"`
	PendingEdits int                    `json:"pendingEdits"`
	Width        int                    `json:"width"`
	Height       int                    `json:"height"`
	Metrics      spatial.Metrics        `json:"metrics"`
	Threshold    float64                `json:"threshold"`
	Occupancy    spatial.OccupancyStats `json:"occupancy"`
	EventLog     EventLogStats          `json:"eventLog"`
}

// Stats returns engine counters
func (e *Engine) Stats() EngineStats {
	pending := e.PendingEdits()

	e.mu.RLock()
	defer e.mu.RUnlock()

	return EngineStats{
		Tick:         e.tickCount,
		Running:      e.running,
		Entities:     len(e.order),
		PendingEdits: pending,
		Width:        e.layer.Width(),
		Height:       e.layer.Height(),
		Metrics:      e.layer.Metrics(),
		Threshold:    e.layer.Threshold(),
		Occupancy:    e.occupancy.Stats(),
		EventLog:     e.eventLog.Stats(),
	}
}

// GetSnapshot returns the latest immutable snapshot for lock-free readers
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// produceSnapshot publishes the state at the end of a tick. Caller holds e.mu.
func (e *Engine) produceSnapshot(dt float64, effects []EffectSnapshot, contacts int) {
	snap := e.snapshotPool.AcquireWrite()
	snap.TickNumber = e.tickCount
	snap.DeltaMs = dt

	for _, ent := range e.order {
		if len(snap.Entities) >= e.limits.MaxSnapshotEntities {
			break
		}
		snap.Entities = append(snap.Entities, ent.snapshot())
	}
	for _, fx := range effects {
		if len(snap.Effects) >= e.limits.MaxEffectsPerTick {
			break
		}
		snap.Effects = append(snap.Effects, fx)
	}

	snap.EntityCount = len(e.order)
	snap.ContactCount = contacts

	e.snapshotPool.PublishWrite()
}

func (ent *Entity) snapshot() EntitySnapshot {
	s := EntitySnapshot{
		ID:           ent.ID,
		Name:         ent.Name,
		X:            ent.X,
		Y:            ent.Y,
		W:            ent.W,
		H:            ent.H,
		Angle:        ent.Angle,
		Speed:        ent.Speed,
		VX:           ent.Velocity.X,
		VY:           ent.Velocity.Y,
		Movement:     ent.Movement,
		Cell:         ent.last.Cell,
		AnimationFPS: ent.AnimationFPS,
	}
	if ent.last.Contact != 0 {
		s.Contact = ent.last.Contact.String()
	}
	if nav, ok := ent.ctrl.(*Navigator); ok {
		goal := nav.Goal
		s.Goal = &goal
	}
	return s
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// Limits returns the current resource limits
func (e *Engine) Limits() ResourceLimits {
	return e.limits
}
