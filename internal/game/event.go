package game

import (
	"encoding/json"
	"time"

	"horde-sim/internal/game/spatial"
)

// EventType classifies simulation events for the log and the replay
// archive.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // tick boundary with population counts
	EventTypeSpawn
	EventTypeDespawn
	EventTypeCollision
	EventTypeDamage
)

// EventVersion guards replay compatibility across schema changes.
const EventVersion uint8 = 1

// Event is one log record. Payloads are pre-encoded so the writer
// goroutine never touches domain types.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // unix nano
	Sequence  uint64    `json:"sequence"`
	Tick      uint64    `json:"tick"`
	Source    uint32    `json:"source"` // entity id the event is attributed to
	Payload   []byte    `json:"payload"`
}

func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeSpawn:
		return "spawn"
	case EventTypeDespawn:
		return "despawn"
	case EventTypeCollision:
		return "collision"
	case EventTypeDamage:
		return "damage"
	default:
		return "unknown"
	}
}

// TickPayload summarizes one tick boundary.
type TickPayload struct {
	Entities   int `json:"entities"`
	Pairs      int `json:"pairs"`
	DurationUs int `json:"durationUs"`
}

// SpawnPayload records an entity entering the world.
type SpawnPayload struct {
	ID   uint32  `json:"id"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// DespawnPayload records an entity leaving the world.
type DespawnPayload struct {
	ID   uint32 `json:"id"`
	Kind string `json:"kind"`
}

// CollisionPayload records one confirmed pair.
type CollisionPayload struct {
	A        uint32  `json:"a"`
	B        uint32  `json:"b"`
	KindA    string  `json:"kindA"`
	KindB    string  `json:"kindB"`
	OverlapX float64 `json:"overlapX"`
	OverlapY float64 `json:"overlapY"`
}

// DamagePayload records damage applied by the damage hook.
type DamagePayload struct {
	SourceID uint32  `json:"sourceId"`
	TargetID uint32  `json:"targetId"`
	Amount   float64 `json:"amount"`
	TargetHP float64 `json:"targetHp"`
}

// EncodePayload marshals a payload, returning nil on failure so a bad
// payload degrades to an empty record instead of an error path.
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent stamps a new event with the current time.
func NewEvent(eventType EventType, tick uint64, source spatial.EntityID, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Tick:      tick,
		Source:    uint32(source),
		Payload:   EncodePayload(payload),
	}
}
