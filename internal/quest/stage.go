package quest

import "context"

// Stage is one node in a quest's dependency graph. The engine drives every
// ready stage through Prepare, Condition, Execute, and IsDone in that order;
// a stage only needs to override the hooks it cares about (embed BaseStage
// for the defaults).
type Stage interface {
	// Children returns the names of the stages unblocked by this one.
	Children() []string

	// Prepare runs before the condition on every pass where the stage is
	// ready. It may run many times before the stage completes, so it must
	// be idempotent.
	Prepare(ctx context.Context, run *Run) error

	// Condition reports whether Execute should run this pass. Conditions
	// may call external services; quest progression is driven by external
	// state.
	Condition(ctx context.Context, run *Run) (bool, error)

	// Execute performs the stage's side effect.
	Execute(ctx context.Context, run *Run) error

	// IsDone reports, after Execute, whether the stage is finished. Stages
	// that poll override this to stay ready across passes.
	IsDone(ctx context.Context, run *Run) (bool, error)
}

// FastConditioner is implemented by stages that want a cheaper condition on
// fast-cadence ticks, typically to avoid hammering a rate-limited API. Stages
// without it use Condition on every cadence.
type FastConditioner interface {
	FastCondition(ctx context.Context, run *Run) (bool, error)
}

// FastExecutor is implemented by stages with a cheaper fast-cadence execute.
type FastExecutor interface {
	FastExecute(ctx context.Context, run *Run) error
}

// BaseStage provides the default hook behavior: no preparation, an always
// true condition, no side effect, and done after one execution. It is a
// complete Stage on its own, usable for marker stages that exist only to
// shape the graph.
type BaseStage struct {
	// Kids is the stage's declared child list.
	Kids []string
}

func (s *BaseStage) Children() []string {
	return s.Kids
}

func (s *BaseStage) Prepare(ctx context.Context, run *Run) error {
	return nil
}

func (s *BaseStage) Condition(ctx context.Context, run *Run) (bool, error) {
	return true, nil
}

func (s *BaseStage) Execute(ctx context.Context, run *Run) error {
	return nil
}

func (s *BaseStage) IsDone(ctx context.Context, run *Run) (bool, error) {
	return true, nil
}
