package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes which tracker mutation an Event records.
type Stage string

// Supported event stages.
const (
	StageCreate     Stage = "CREATE"
	StageSet        Stage = "SET"
	StagePush       Stage = "PUSH"
	StagePop        Stage = "POP"
	StageDone       Stage = "DONE"
	StageDoneUnsafe Stage = "DONE_UNSAFE"
)

// Event captures a single tracker mutation for downstream sinks.
type Event struct {
	// TrackerID identifies the tracker using the 16-byte UUID form.
	TrackerID [16]byte
	// TS is the UTC timestamp recorded when the mutation applied.
	TS time.Time
	// Stage denotes which mutation occurred.
	Stage Stage
	// Local is the range-relative value involved in the mutation: the
	// argument to Set, the lower bound for PUSH, the local read after POP.
	Local float64
	// True is the absolute progress after the mutation.
	True float64
	// Percent is the rounded integer percentage of True.
	Percent int
	// Depth is the number of frames above the base frame after the mutation.
	Depth int
	// Note lets emitters attach low-volume debug context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TrackerID == [16]byte{} {
		return errors.New("tracker id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageCreate, StageSet, StagePush, StagePop, StageDone, StageDoneUnsafe:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Depth < 0 {
		return errors.New("depth must be >= 0")
	}
	return nil
}

// TrackerUUID converts the binary tracker ID to uuid.UUID for display layers.
func (e Event) TrackerUUID() uuid.UUID {
	return uuid.UUID(e.TrackerID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
