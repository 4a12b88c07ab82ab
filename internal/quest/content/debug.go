package content

import (
	"github.com/gitforged/server/internal/quest"
)

// debugData gives the debug quest two comparable fields with unequal
// defaults, so neither branch fires until one is changed.
type debugData struct {
	ValueA int `json:"value_a"`
	ValueB int `json:"value_b"`
}

// DebugQuest is a reserved quest for exercising the engine: a start stage
// fanning out into two conditional branches, each with its own ending.
func DebugQuest() *quest.Definition {
	return &quest.Definition{
		Name:        "DebugQuest",
		Version:     "1.0.0",
		Difficulty:  quest.DifficultyReserved,
		Description: "This is a quest to facilitate testing/debugging",
		NewData: func() any {
			return &debugData{ValueA: 1, ValueB: 2}
		},
		Stages: map[string]quest.Stage{
			"Start": &quest.BaseStage{
				Kids: []string{"BranchA", "BranchB"},
			},
			"BranchA": &quest.ConditionStage{
				BaseStage:  quest.BaseStage{Kids: []string{"EndingA"}},
				Field:      "value_a",
				OtherField: "value_b",
			},
			"BranchB": &quest.ConditionStage{
				BaseStage: quest.BaseStage{Kids: []string{"EndingB"}},
				Field:     "value_a",
				Value:     10,
				Op:        quest.OpGreater,
			},
			"EndingA": &quest.TerminalStage{},
			"EndingB": &quest.TerminalStage{},
		},
	}
}

// Register adds every quest definition to the registry. The intro quest is
// the entry quest for new games.
func Register(r *quest.Registry) error {
	if err := r.RegisterFirst(IntroQuest()); err != nil {
		return err
	}
	return r.RegisterDebug(DebugQuest())
}
