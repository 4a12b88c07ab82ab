// Package quest implements the quest execution engine: versioned, resumable
// quest definitions whose stages form a dependency graph, advanced one
// externally-triggered pass at a time and persisted between passes.
package quest

import (
	"fmt"
	"sort"

	"github.com/gitforged/server/internal/semver"
)

// Difficulty rates a quest for players. Reserved marks internal quests that
// are excluded from player-visible listings.
type Difficulty int

const (
	DifficultyReserved Difficulty = iota
	DifficultyBeginner
	DifficultyIntermediate
	DifficultyAdvanced
	DifficultyExpert
	DifficultyHacker
)

// String returns the display name for the difficulty.
func (d Difficulty) String() string {
	switch d {
	case DifficultyReserved:
		return "reserved"
	case DifficultyBeginner:
		return "beginner"
	case DifficultyIntermediate:
		return "intermediate"
	case DifficultyAdvanced:
		return "advanced"
	case DifficultyExpert:
		return "expert"
	case DifficultyHacker:
		return "hacker"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// Definition is an immutable, versioned quest: a named set of stages whose
// declared children form the dependency graph, plus a constructor for the
// quest-local data bag.
type Definition struct {
	Name        string
	Version     string
	Difficulty  Difficulty
	Description string

	// NewData returns a fresh data bag with default field values. Must
	// return a pointer to a struct; fields are addressed by json tag.
	NewData func() any

	// Stages maps stage name to its logic. Edges run from each stage to
	// its declared children.
	Stages map[string]Stage
}

// Validate checks the definition's structural invariants: a parseable
// version, a data constructor, resolvable children, and an acyclic graph.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &DefinitionError{Quest: d.Name, Reason: "name cannot be blank"}
	}
	if !semver.Valid(d.Version) {
		return &DefinitionError{Quest: d.Name, Reason: fmt.Sprintf("invalid version %q", d.Version)}
	}
	if d.NewData == nil {
		return &DefinitionError{Quest: d.Name, Reason: "missing data constructor"}
	}
	if len(d.Stages) == 0 {
		return &DefinitionError{Quest: d.Name, Reason: "no stages declared"}
	}
	_, err := newGraph(d)
	return err
}

// StageNames returns the definition's stage names in sorted order.
func (d *Definition) StageNames() []string {
	names := make([]string, 0, len(d.Stages))
	for name := range d.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
