package quest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gitforged/server/internal/character"
	"github.com/gitforged/server/internal/game"
	"github.com/gitforged/server/internal/tick"
)

// Run is the context handed to stage hooks during one execution pass. It
// carries the instance being advanced, the game it belongs to, and the
// external collaborators a stage may call.
type Run struct {
	Instance  *Instance
	Game      *game.Game
	Character character.Client
	Cadence   tick.Cadence

	// Now is the pass clock. Nil means time.Now.
	Now func() time.Time

	// stage is the name of the stage currently being evaluated; the engine
	// sets it before each hook so scratch data lands under the right key.
	stage string
}

func (r *Run) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Data returns the quest-local data bag.
func (r *Run) Data() any {
	return r.Instance.Data
}

// StageData decodes the current stage's scratch data into v. It returns
// false when the stage has no scratch data yet.
func (r *Run) StageData(v any) (bool, error) {
	raw, ok := r.Instance.StageData[r.stage]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode stage data for %s: %w", r.stage, err)
	}
	return true, nil
}

// SetStageData replaces the current stage's scratch data with v.
func (r *Run) SetStageData(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode stage data for %s: %w", r.stage, err)
	}
	if r.Instance.StageData == nil {
		r.Instance.StageData = make(map[string]json.RawMessage)
	}
	r.Instance.StageData[r.stage] = raw
	return nil
}
