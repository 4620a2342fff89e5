package game

import (
	"encoding/json"
	"time"

	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown  EventType = iota
	EventTypeTick               // Tick boundary with delta time
	EventTypeSpawn              // Entity placed on the grid
	EventTypeDespawn            // Entity removed
	EventTypeContact            // Entity pushed out of blocking cells
	EventTypeTerrain            // Entity centre on a special cell
	EventTypeCellEdit           // Grid cell changed between ticks
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`   // Schema version
	Type      EventType       `json:"type"`      // Event type
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	TickNum   uint64          `json:"tickNum"`   // Engine tick this occurred in
	EntityID  string          `json:"entityId"`  // Source entity (for rate limiting)
	Payload   json.RawMessage `json:"payload"`   // Typed payload, inline
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeSpawn:
		return "spawn"
	case EventTypeDespawn:
		return "despawn"
	case EventTypeContact:
		return "contact"
	case EventTypeTerrain:
		return "terrain"
	case EventTypeCellEdit:
		return "cell_edit"
	default:
		return "unknown"
	}
}

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	EntityCount  int     `json:"entityCount"`
	DeltaMs      float64 `json:"deltaMs"`
	EditsApplied int     `json:"editsApplied"`
}

// SpawnPayload contains spawn details
type SpawnPayload struct {
	EntityID string        `json:"entityId"`
	Name     string        `json:"name"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Cell     spatial.Point `json:"cell"`
}

// DespawnPayload contains removal details
type DespawnPayload struct {
	EntityID string `json:"entityId"`
}

// ContactPayload records which blocking neighbours pushed an entity back
type ContactPayload struct {
	EntityID  string        `json:"entityId"`
	Contact   string        `json:"contact"`
	Cell      spatial.Point `json:"cell"`
	ResolvedX float64       `json:"resolvedX"`
	ResolvedY float64       `json:"resolvedY"`
}

// TerrainPayload wraps a custom effect fired by the grid
type TerrainPayload struct {
	EntityID string                `json:"entityId"`
	Effect   collision.EffectEvent `json:"effect"`
}

// CellEditPayload records a grid mutation
type CellEditPayload struct {
	X       int `json:"x"`
	Y       int `json:"y"`
	OldCode int `json:"oldCode"`
	NewCode int `json:"newCode"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, entityID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		EntityID:  entityID,
		Payload:   EncodePayload(payload),
	}
}
