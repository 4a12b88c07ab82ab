package quest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gitforged/server/internal/game"
	"github.com/gitforged/server/internal/semver"
	"github.com/gitforged/server/internal/store"
)

// Instance is the mutable, per-game progress of one quest definition. It is
// loaded from storage at the start of every execution pass, mutated only
// during the pass, and persisted once at the end.
type Instance struct {
	Definition *Definition
	GameKey    string

	// Data is the quest-local data bag, an instance of Definition.NewData.
	Data any

	// StageData holds per-stage scratch blobs, keyed by stage name.
	StageData map[string]json.RawMessage

	// Completed lists finished stages in completion order. It grows
	// monotonically; only recreating the instance resets it.
	Completed []string
	completed map[string]bool

	// Complete is set once a terminal stage executes; after that every
	// pass is a no-op.
	Complete bool

	LastRun time.Time
}

// dataEnvelope is the serialized form of an instance's mutable state.
type dataEnvelope struct {
	Data      json.RawMessage            `json:"data"`
	StageData map[string]json.RawMessage `json:"stage_data"`
}

// InstanceKey returns the storage key for a game's instance of the named
// quest.
func InstanceKey(gameKey, questName string) string {
	return gameKey + ":" + questName
}

// NewInstance creates a fresh instance of def for the given game, with the
// data bag at its declared defaults.
func NewInstance(def *Definition, g *game.Game) *Instance {
	return &Instance{
		Definition: def,
		GameKey:    g.Key(),
		Data:       def.NewData(),
		StageData:  make(map[string]json.RawMessage),
		completed:  make(map[string]bool),
	}
}

// Key returns the instance's stable storage key.
func (i *Instance) Key() string {
	return InstanceKey(i.GameKey, i.Definition.Name)
}

// CompletedStage reports whether the named stage has finished.
func (i *Instance) CompletedStage(name string) bool {
	return i.completed[name]
}

func (i *Instance) markCompleted(name string) {
	if i.completed[name] {
		return
	}
	if i.completed == nil {
		i.completed = make(map[string]bool)
	}
	i.completed[name] = true
	i.Completed = append(i.Completed, name)
}

// Record serializes the instance into its storage form, stamped with the
// definition version that wrote it.
func (i *Instance) Record() (*store.QuestRecord, error) {
	data, err := json.Marshal(i.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quest data for %s: %w", i.Definition.Name, err)
	}

	stageData := i.StageData
	if stageData == nil {
		stageData = make(map[string]json.RawMessage)
	}
	envelope, err := json.Marshal(dataEnvelope{Data: data, StageData: stageData})
	if err != nil {
		return nil, fmt.Errorf("failed to encode quest envelope for %s: %w", i.Definition.Name, err)
	}

	completed := make([]string, len(i.Completed))
	copy(completed, i.Completed)

	return &store.QuestRecord{
		Key:             i.Key(),
		GameKey:         i.GameKey,
		QuestName:       i.Definition.Name,
		Version:         i.Definition.Version,
		CompletedStages: completed,
		SerializedData:  string(envelope),
		Complete:        i.Complete,
		LastRun:         i.LastRun,
	}, nil
}

// LoadInstance rebuilds an instance from its storage record. The record's
// version is compatibility-checked before any data is deserialized; an
// unsafe version or a malformed body is a LoadError and the load aborts
// whole, never partially.
func LoadInstance(def *Definition, g *game.Game, rec *store.QuestRecord) (*Instance, error) {
	safe, err := semver.SafeToLoad(rec.Version, def.Version)
	if err != nil {
		return nil, &LoadError{Quest: def.Name, Err: err}
	}
	if !safe {
		return nil, &LoadError{
			Quest: def.Name,
			Err:   fmt.Errorf("version mismatch: saved %s, current %s", rec.Version, def.Version),
		}
	}

	inst := NewInstance(def, g)
	inst.Complete = rec.Complete
	inst.LastRun = rec.LastRun

	if rec.SerializedData != "" {
		var envelope dataEnvelope
		if err := json.Unmarshal([]byte(rec.SerializedData), &envelope); err != nil {
			return nil, &LoadError{Quest: def.Name, Err: fmt.Errorf("malformed serialized data: %w", err)}
		}
		if len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, inst.Data); err != nil {
				return nil, &LoadError{Quest: def.Name, Err: fmt.Errorf("malformed quest data: %w", err)}
			}
		}
		if envelope.StageData != nil {
			inst.StageData = envelope.StageData
		}
	}

	for _, name := range rec.CompletedStages {
		if _, ok := def.Stages[name]; !ok {
			return nil, &LoadError{Quest: def.Name, Err: fmt.Errorf("completed stage %s is not in the definition", name)}
		}
		inst.markCompleted(name)
	}
	return inst, nil
}
