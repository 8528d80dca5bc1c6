package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceKind names one of the four record sources feeding the stats engine.
type SourceKind string

const (
	SourceQuests   SourceKind = "quests"
	SourceBooks    SourceKind = "books"
	SourceExercise SourceKind = "exercise"
	SourceFinance  SourceKind = "finance"
)

// SourceKinds lists every source in a stable order.
var SourceKinds = []SourceKind{SourceQuests, SourceBooks, SourceExercise, SourceFinance}

func (k SourceKind) IsValid() bool {
	switch k {
	case SourceQuests, SourceBooks, SourceExercise, SourceFinance:
		return true
	default:
		return false
	}
}

// ParseSourceKind maps a table or topic name onto its SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch s {
	case "quests", "quest_records":
		return SourceQuests, nil
	case "books", "book_records":
		return SourceBooks, nil
	case "exercise", "exercise_records":
		return SourceExercise, nil
	case "finance", "assets", "asset_records":
		return SourceFinance, nil
	default:
		return "", fmt.Errorf("unknown source kind: %q", s)
	}
}

// ChangeOp is the mutation that produced a change event.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
	// ChangeResync asks consumers to reread a source after notices may have
	// been missed.
	ChangeResync ChangeOp = "resync"
)

// ChangeEvent is the wire form of a committed mutation to a record collection,
// carried by Postgres NOTIFY payloads and the Kafka change feed.
type ChangeEvent struct {
	Source     SourceKind `json:"source"`
	Op         ChangeOp   `json:"op"`
	RecordID   string     `json:"record_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// DecodeChangeEvent parses and validates a change event payload.
func DecodeChangeEvent(data []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	kind, err := ParseSourceKind(string(ev.Source))
	if err != nil {
		return ChangeEvent{}, err
	}
	ev.Source = kind
	return ev, nil
}

// ProfileEvent is published after every recomputation.
type ProfileEvent struct {
	EventID    uuid.UUID     `json:"event_id"`
	Profile    PlayerProfile `json:"profile"`
	OccurredAt time.Time     `json:"occurred_at"`
}
