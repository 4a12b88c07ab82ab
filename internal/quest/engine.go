package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitforged/server/internal/character"
	"github.com/gitforged/server/internal/game"
	"github.com/gitforged/server/internal/logger"
	"github.com/gitforged/server/internal/store"
	"github.com/gitforged/server/internal/tick"
)

// Event describes quest progress for observers (the live event feed).
type Event struct {
	GameKey  string `json:"game_key"`
	Quest    string `json:"quest"`
	Stage    string `json:"stage,omitempty"`
	Complete bool   `json:"complete"`
}

// Engine drives quest instances through execution passes. Passes are
// synchronous and run to completion; concurrency exists only across games,
// never inside one pass.
type Engine struct {
	store     store.Store
	character character.Client
	registry  *Registry

	// Now is the engine clock, replaceable in tests. Nil means time.Now.
	Now func() time.Time

	// Events receives a notification per completed stage and per completed
	// quest. Optional.
	Events func(Event)
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(s store.Store, c character.Client, r *Registry) *Engine {
	return &Engine{store: s, character: c, registry: r}
}

// Registry returns the engine's quest registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) emit(ev Event) {
	if e.Events != nil {
		e.Events(ev)
	}
}

// LoadInstance returns the stored instance of def for the given game, or a
// fresh one when no record exists. A version-unsafe or malformed record is a
// LoadError.
func (e *Engine) LoadInstance(ctx context.Context, def *Definition, g *game.Game) (*Instance, error) {
	rec, err := e.store.GetQuest(ctx, InstanceKey(g.Key(), def.Name))
	if errors.Is(err, store.ErrNotFound) {
		return NewInstance(def, g), nil
	}
	if err != nil {
		return nil, err
	}
	return LoadInstance(def, g, rec)
}

// RunQuest loads (or creates) the game's instance of the named quest and
// executes one pass at the given cadence.
func (e *Engine) RunQuest(ctx context.Context, g *game.Game, questName string, cadence tick.Cadence) error {
	def, err := e.registry.Get(questName)
	if err != nil {
		return err
	}
	inst, err := e.LoadInstance(ctx, def, g)
	if err != nil {
		return err
	}
	return e.ExecutePass(ctx, inst, g, cadence)
}

// StartFirstQuest creates and runs the entry quest for a new game. Running
// it for a game that already has the instance just advances it, so webhook
// redelivery is harmless.
func (e *Engine) StartFirstQuest(ctx context.Context, g *game.Game, cadence tick.Cadence) error {
	def, err := e.registry.First()
	if err != nil {
		return err
	}
	inst, err := e.LoadInstance(ctx, def, g)
	if err != nil {
		return err
	}
	return e.ExecutePass(ctx, inst, g, cadence)
}

// ExecutePass advances the instance as far as external state allows, then
// persists it. The graph is rebuilt fresh; completed stages are pre-satisfied
// without re-running. Each ready stage is evaluated fully before the next,
// and the ready set is re-polled only once the current one is exhausted.
// Errors from stage hooks propagate unwrapped and nothing is persisted, so a
// failed pass leaves the last stored state intact.
func (e *Engine) ExecutePass(ctx context.Context, inst *Instance, g *game.Game, cadence tick.Cadence) error {
	if inst.Complete {
		return nil
	}

	def := inst.Definition
	graph, err := newGraph(def)
	if err != nil {
		return err
	}
	for _, name := range inst.Completed {
		graph.satisfy(name)
	}

	run := &Run{
		Instance:  inst,
		Game:      g,
		Character: e.character,
		Cadence:   cadence,
		Now:       e.Now,
	}

	for !inst.Complete {
		progressed := false
		for _, name := range graph.ready() {
			if inst.Complete {
				break
			}
			if inst.CompletedStage(name) {
				graph.satisfy(name)
				progressed = true
				continue
			}

			done, err := e.runStage(ctx, run, name, cadence)
			if err != nil {
				return err
			}
			if done {
				inst.markCompleted(name)
				graph.satisfy(name)
				inst.LastRun = e.now()
				progressed = true
				e.emit(Event{GameKey: inst.GameKey, Quest: def.Name, Stage: name})
			}
		}
		if !progressed {
			break
		}
	}

	if inst.Complete {
		e.emit(Event{GameKey: inst.GameKey, Quest: def.Name, Complete: true})
	}

	rec, err := inst.Record()
	if err != nil {
		return err
	}
	if err := e.store.PutQuest(ctx, rec); err != nil {
		return err
	}
	logger.Debug("Quest pass finished",
		"quest", def.Name, "game", inst.GameKey,
		"completed", len(inst.Completed), "complete", inst.Complete)
	return nil
}

// runStage evaluates one ready stage: prepare, then the cadence-appropriate
// condition and execute, then the done check. Returns whether the stage
// finished.
func (e *Engine) runStage(ctx context.Context, run *Run, name string, cadence tick.Cadence) (bool, error) {
	stage := run.Instance.Definition.Stages[name]
	run.stage = name

	if err := stage.Prepare(ctx, run); err != nil {
		return false, err
	}

	condition := stage.Condition
	execute := stage.Execute
	if cadence == tick.Fast {
		if fc, ok := stage.(FastConditioner); ok {
			condition = fc.FastCondition
		}
		if fe, ok := stage.(FastExecutor); ok {
			execute = fe.FastExecute
		}
	}

	ok, err := condition(ctx, run)
	if err != nil || !ok {
		return false, err
	}
	if err := execute(ctx, run); err != nil {
		return false, err
	}
	return stage.IsDone(ctx, run)
}

// TickAll advances every incomplete quest instance at the given cadence.
// Failures are collected per instance; one game's bad record does not stop
// the rest of the fleet.
func (e *Engine) TickAll(ctx context.Context, cadence tick.Cadence) error {
	records, err := e.store.IncompleteQuests(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, rec := range records {
		if err := e.tickRecord(ctx, rec, cadence); err != nil {
			logger.Error("Quest tick failed", "quest", rec.QuestName, "game", rec.GameKey, "error", err)
			errs = append(errs, fmt.Errorf("quest %s for game %s: %w", rec.QuestName, rec.GameKey, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) tickRecord(ctx context.Context, rec *store.QuestRecord, cadence tick.Cadence) error {
	def, err := e.registry.Get(rec.QuestName)
	if err != nil {
		return err
	}

	gameRec, err := e.store.GetGame(ctx, rec.GameKey)
	if err != nil {
		return err
	}
	g := &game.Game{
		UserKey:  gameRec.UserKey,
		ForkURL:  gameRec.ForkURL,
		PlayerID: gameRec.PlayerID,
	}

	inst, err := LoadInstance(def, g, rec)
	if err != nil {
		return err
	}
	return e.ExecutePass(ctx, inst, g, cadence)
}
